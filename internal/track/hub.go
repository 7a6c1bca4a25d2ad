package track

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/delivery-tracking/internal/locations"
	"github.com/example/delivery-tracking/internal/models"
	"github.com/example/delivery-tracking/internal/observability"
	"github.com/example/delivery-tracking/internal/store"
)

// Outbound event names. The transport forwards these verbatim to clients.
const (
	EventDriverLocation = "driver:location"
	EventOrderCreated   = "order:created"
	EventOrderUpdated   = "order:updated"
)

// Ack is the result of one inbound client request. Failures carry a message;
// the connection always survives a failed ack.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func failAck(message string) Ack { return Ack{Message: message} }

const internalErrorMessage = "Internal error"

// LocationPublisher receives every accepted location update for downstream
// pipelines (Kafka). Best-effort: publish failures are logged, never surfaced
// to the driver. Implementations must be safe for concurrent use.
type LocationPublisher interface {
	PublishLocation(ctx context.Context, ev models.LocationEvent) error
}

// Hub is the routing core: it owns channel membership for the lifetime of
// each session and fans events out to current subscribers. One hub instance
// is constructed at process start and handed to everything that publishes.
type Hub struct {
	log       *slog.Logger
	oracle    *Oracle
	directory store.Directory
	positions locations.Store

	// Producer, when set, mirrors accepted location updates to Kafka.
	Producer LocationPublisher

	mu       sync.RWMutex
	channels map[Channel]map[*Session]struct{}
	sessions map[*Session]map[Channel]struct{}
}

func NewHub(log *slog.Logger, oracle *Oracle, directory store.Directory, positions locations.Store) *Hub {
	return &Hub{
		log:       log,
		oracle:    oracle,
		directory: directory,
		positions: positions,
		channels:  make(map[Channel]map[*Session]struct{}),
		sessions:  make(map[*Session]map[Channel]struct{}),
	}
}

// Register attaches an authenticated session and subscribes it to its role's
// implicit channel: driver -> driver:<self>, admin -> admins, restaurant ->
// restaurant:<owned>. The restaurant lookup happens once; on failure the
// implicit subscription is skipped and the session stays usable.
func (h *Hub) Register(ctx context.Context, s *Session) {
	h.mu.Lock()
	h.sessions[s] = make(map[Channel]struct{})
	h.mu.Unlock()
	observability.SessionsActive.Inc()

	switch s.Identity.Role {
	case models.RoleDriver:
		h.subscribe(s, DriverChannel(s.Identity.ID))
	case models.RoleAdmin:
		h.subscribe(s, AdminsChannel())
	case models.RoleRestaurant:
		restaurant, err := h.directory.RestaurantByOwner(ctx, s.Identity.ID)
		if err != nil {
			h.log.Warn("restaurant lookup failed on attach", "user_id", s.Identity.ID, "error", err)
			return
		}
		h.subscribe(s, RestaurantChannel(restaurant.ID))
	}
}

// Unregister atomically removes the session from every channel it joined.
// Events broadcast after teardown begins are not delivered to it.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	subs, ok := h.sessions[s]
	if ok {
		for ch := range subs {
			delete(h.channels[ch], s)
			if len(h.channels[ch]) == 0 {
				delete(h.channels, ch)
			}
		}
		delete(h.sessions, s)
	}
	h.mu.Unlock()
	if ok {
		observability.SessionsActive.Dec()
	}
}

// subscribe is idempotent; joining a channel twice leaves one membership.
// A session that already unregistered is ignored.
func (h *Hub) subscribe(s *Session, ch Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.sessions[s]
	if !ok {
		return
	}
	subs[ch] = struct{}{}
	if h.channels[ch] == nil {
		h.channels[ch] = make(map[*Session]struct{})
	}
	h.channels[ch][s] = struct{}{}
}

// JoinChannel gates a join request through the oracle. Denies ack the oracle
// reason and change no state; lookup failures ack a generic internal error.
func (h *Hub) JoinChannel(ctx context.Context, s *Session, ch Channel) Ack {
	decision, err := h.oracle.CanJoin(ctx, s.Identity, ch)
	if err != nil {
		h.log.Error("join authorization failed", "channel", ch.String(), "user_id", s.Identity.ID, "error", err)
		return failAck(internalErrorMessage)
	}
	if !decision.Allowed {
		observability.JoinsDenied.Inc()
		return failAck(decision.Reason)
	}
	h.subscribe(s, ch)
	return Ack{Success: true}
}

// ReportDriverLocation validates, stores, and fans out one position update.
// Only driver sessions may report. The order channel is included only after
// re-running the order-membership check for this event, so a driver cannot
// feed an order channel it is no longer assigned to.
func (h *Hub) ReportDriverLocation(ctx context.Context, s *Session, lat, lng float64, orderID string) Ack {
	if s.Identity.Role != models.RoleDriver {
		return failAck("Not authorized")
	}
	if !locations.Valid(lat, lng) {
		observability.LocationsRejected.Inc()
		return failAck("Invalid coordinates")
	}
	pos, err := h.positions.Upsert(ctx, s.Identity.ID, lat, lng, time.Now().UTC())
	if err != nil {
		h.log.Error("position upsert failed", "driver_id", s.Identity.ID, "error", err)
		return failAck(internalErrorMessage)
	}
	observability.LocationUpdates.Inc()

	ev := models.LocationEvent{
		DriverID:  s.Identity.ID,
		Location:  pos.Location,
		UpdatedAt: pos.UpdatedAt,
	}
	if orderID != "" {
		ev.OrderID = &orderID
	}

	if h.Producer != nil {
		if err := h.Producer.PublishLocation(ctx, ev); err != nil {
			h.log.Warn("location publish failed", "driver_id", s.Identity.ID, "error", err)
		}
	}

	h.Broadcast(DriverChannel(s.Identity.ID), EventDriverLocation, ev)
	h.Broadcast(AdminsChannel(), EventDriverLocation, ev)

	account, err := h.directory.AccountByID(ctx, s.Identity.ID)
	if err != nil {
		h.log.Warn("driver lookup failed on location fan-out", "driver_id", s.Identity.ID, "error", err)
	} else if account.RestaurantID != "" {
		h.Broadcast(RestaurantChannel(account.RestaurantID), EventDriverLocation, ev)
	}

	if orderID != "" {
		decision, err := h.oracle.CanJoin(ctx, s.Identity, OrderChannel(orderID))
		if err != nil {
			// The position is already stored and fanned out above, so a
			// directory failure here only costs the order-channel broadcast.
			// The ack stays successful.
			h.log.Warn("order check failed on location fan-out", "order_id", orderID, "error", err)
		} else if decision.Allowed {
			h.Broadcast(OrderChannel(orderID), EventDriverLocation, ev)
		}
	}
	return Ack{Success: true}
}

// PublishOrderCreated fans a new order out to the restaurant that must
// prepare it and to the admin dashboard. Called by the order-management flow
// right after the order row is persisted. Fire-and-forget.
func (h *Hub) PublishOrderCreated(order *models.Order) {
	h.Broadcast(RestaurantChannel(order.RestaurantID), EventOrderCreated, order)
	h.Broadcast(AdminsChannel(), EventOrderCreated, order)
}

// PublishOrderUpdated fans a status change out to the order's watchers, the
// restaurant, and the assigned driver if one is set. Fire-and-forget.
func (h *Hub) PublishOrderUpdated(order *models.Order) {
	h.Broadcast(OrderChannel(order.ID), EventOrderUpdated, order)
	h.Broadcast(RestaurantChannel(order.RestaurantID), EventOrderUpdated, order)
	if order.DriverID != "" {
		h.Broadcast(DriverChannel(order.DriverID), EventOrderUpdated, order)
	}
}

// Broadcast delivers one event to every current subscriber of the channel.
// Zero subscribers is a silent no-op. Delivery never blocks on a subscriber:
// a slow or dead session drops the event, not the producer.
func (h *Hub) Broadcast(ch Channel, event string, payload any) {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.channels[ch]))
	for s := range h.channels[ch] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if err := s.sender.Send(event, payload); err != nil {
			h.log.Debug("event dropped", "event", event, "session", s.ID, "error", err)
		}
	}
	if len(targets) > 0 {
		observability.EventsOut.WithLabelValues(event).Add(float64(len(targets)))
	}
}

// Subscribed reports current membership; used by the transport for
// diagnostics and by tests.
func (h *Hub) Subscribed(s *Session, ch Channel) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[s][ch]
	return ok
}
