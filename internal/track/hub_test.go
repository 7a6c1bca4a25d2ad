package track

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/delivery-tracking/internal/locations"
	"github.com/example/delivery-tracking/internal/models"
	"github.com/example/delivery-tracking/internal/store"
)

type recordedEvent struct {
	event   string
	payload any
}

type fakeSender struct {
	mu     sync.Mutex
	closed bool
	events []recordedEvent
}

func (f *fakeSender) Send(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	f.events = append(f.events, recordedEvent{event: event, payload: payload})
	return nil
}

func (f *fakeSender) Events() []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedEvent, len(f.events))
	copy(out, f.events)
	return out
}

func newTestHub(t *testing.T) (*Hub, *store.Memory, *locations.Memory) {
	t.Helper()
	dir := seededDirectory()
	positions := locations.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(log, NewOracle(dir), dir, positions)
	return hub, dir, positions
}

func connect(t *testing.T, hub *Hub, identity models.Identity) (*Session, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	s := NewSession("sess-"+identity.ID, identity, sender)
	hub.Register(context.Background(), s)
	return s, sender
}

func TestImplicitChannelsAndLocationBroadcast(t *testing.T) {
	hub, _, positions := newTestHub(t)

	driver, driverSender := connect(t, hub, models.Identity{ID: "d1", Role: models.RoleDriver})
	_, adminSender := connect(t, hub, models.Identity{ID: "a1", Role: models.RoleAdmin})
	_, ownerSender := connect(t, hub, models.Identity{ID: "owner1", Role: models.RoleRestaurant})

	assert.True(t, hub.Subscribed(driver, DriverChannel("d1")))

	ack := hub.ReportDriverLocation(context.Background(), driver, 9.03, 38.74, "")
	require.True(t, ack.Success, ack.Message)

	for name, sender := range map[string]*fakeSender{"driver": driverSender, "admin": adminSender, "employer": ownerSender} {
		events := sender.Events()
		require.Len(t, events, 1, "%s events", name)
		assert.Equal(t, EventDriverLocation, events[0].event)
		ev, ok := events[0].payload.(models.LocationEvent)
		require.True(t, ok)
		assert.Equal(t, "d1", ev.DriverID)
		assert.Equal(t, 9.03, ev.Location.Latitude)
		assert.Equal(t, 38.74, ev.Location.Longitude)
		assert.Nil(t, ev.OrderID)
	}

	pos, err := positions.Get(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, 9.03, pos.Location.Latitude)
}

func TestJoinChannelIdempotent(t *testing.T) {
	hub, _, _ := newTestHub(t)
	customer, sender := connect(t, hub, models.Identity{ID: "c1", Role: models.RoleCustomer})

	require.True(t, hub.JoinChannel(context.Background(), customer, OrderChannel("o1")).Success)
	require.True(t, hub.JoinChannel(context.Background(), customer, OrderChannel("o1")).Success)

	hub.PublishOrderUpdated(&models.Order{ID: "o1", RestaurantID: "r1", Status: models.OrderPicked})

	events := sender.Events()
	require.Len(t, events, 1, "duplicate membership delivered duplicate events")
	assert.Equal(t, EventOrderUpdated, events[0].event)
}

func TestJoinChannelDenied(t *testing.T) {
	hub, _, _ := newTestHub(t)
	// owner2 runs a different restaurant than the one behind order o1.
	other, sender := connect(t, hub, models.Identity{ID: "owner2", Role: models.RoleRestaurant})

	ack := hub.JoinChannel(context.Background(), other, OrderChannel("o1"))
	assert.False(t, ack.Success)
	assert.Equal(t, "Not authorized for this order", ack.Message)

	hub.PublishOrderUpdated(&models.Order{ID: "o1", RestaurantID: "r1", Status: models.OrderPicked})
	for _, ev := range sender.Events() {
		assert.NotEqual(t, EventOrderUpdated, ev.event, "denied join still received order events")
	}
}

func TestUnregisterTearsDownMemberships(t *testing.T) {
	hub, _, _ := newTestHub(t)
	customer, sender := connect(t, hub, models.Identity{ID: "c1", Role: models.RoleCustomer})
	require.True(t, hub.JoinChannel(context.Background(), customer, OrderChannel("o1")).Success)

	hub.Unregister(customer)
	assert.False(t, hub.Subscribed(customer, OrderChannel("o1")))

	hub.PublishOrderUpdated(&models.Order{ID: "o1", RestaurantID: "r1", Status: models.OrderPicked})
	assert.Empty(t, sender.Events())
}

func TestReportDriverLocationRejectsInvalidCoordinates(t *testing.T) {
	hub, _, positions := newTestHub(t)
	driver, _ := connect(t, hub, models.Identity{ID: "d1", Role: models.RoleDriver})
	_, adminSender := connect(t, hub, models.Identity{ID: "a1", Role: models.RoleAdmin})

	cases := [][2]float64{
		{math.NaN(), 38.74},
		{9.03, math.Inf(1)},
		{91, 38.74},
		{9.03, -181},
	}
	for _, c := range cases {
		ack := hub.ReportDriverLocation(context.Background(), driver, c[0], c[1], "")
		assert.False(t, ack.Success)
		assert.Equal(t, "Invalid coordinates", ack.Message)
	}

	_, err := positions.Get(context.Background(), "d1")
	assert.ErrorIs(t, err, store.ErrNotFound, "invalid update reached the store")
	assert.Empty(t, adminSender.Events())
}

func TestReportDriverLocationRequiresDriverRole(t *testing.T) {
	hub, _, _ := newTestHub(t)
	customer, _ := connect(t, hub, models.Identity{ID: "c1", Role: models.RoleCustomer})

	ack := hub.ReportDriverLocation(context.Background(), customer, 9.03, 38.74, "")
	assert.False(t, ack.Success)
	assert.Equal(t, "Not authorized", ack.Message)
}

func TestOrderChannelFanoutReverifiesAssignment(t *testing.T) {
	hub, _, _ := newTestHub(t)
	customer, customerSender := connect(t, hub, models.Identity{ID: "c1", Role: models.RoleCustomer})
	require.True(t, hub.JoinChannel(context.Background(), customer, OrderChannel("o1")).Success)

	// d2 is not assigned to o1: the update succeeds but must not leak into
	// the order channel.
	stranger, _ := connect(t, hub, models.Identity{ID: "d2", Role: models.RoleDriver})
	require.True(t, hub.ReportDriverLocation(context.Background(), stranger, 9.0, 38.7, "o1").Success)
	assert.Empty(t, customerSender.Events())

	assigned, _ := connect(t, hub, models.Identity{ID: "d1", Role: models.RoleDriver})
	require.True(t, hub.ReportDriverLocation(context.Background(), assigned, 9.1, 38.8, "o1").Success)

	events := customerSender.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventDriverLocation, events[0].event)
	ev := events[0].payload.(models.LocationEvent)
	require.NotNil(t, ev.OrderID)
	assert.Equal(t, "o1", *ev.OrderID)
}

// faultyOrderDirectory fails every order lookup while the rest of the
// directory stays healthy.
type faultyOrderDirectory struct {
	*store.Memory
}

func (f *faultyOrderDirectory) OrderByID(ctx context.Context, id string) (*models.Order, error) {
	return nil, errors.New("directory unavailable")
}

func TestReportDriverLocationSurvivesOrderLookupFailure(t *testing.T) {
	dir := &faultyOrderDirectory{Memory: seededDirectory()}
	positions := locations.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(log, NewOracle(dir), dir, positions)

	watcherSender := &fakeSender{}
	watcher := NewSession("sess-c1", models.Identity{ID: "c1", Role: models.RoleCustomer}, watcherSender)
	hub.Register(context.Background(), watcher)
	hub.subscribe(watcher, OrderChannel("o1"))

	driver, driverSender := connect(t, hub, models.Identity{ID: "d1", Role: models.RoleDriver})

	ack := hub.ReportDriverLocation(context.Background(), driver, 9.03, 38.74, "o1")
	require.True(t, ack.Success, ack.Message)

	// The update still lands in the store and on the driver's own channel;
	// only the unverifiable order-channel broadcast is skipped.
	pos, err := positions.Get(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, 9.03, pos.Location.Latitude)
	require.Len(t, driverSender.Events(), 1)
	assert.Empty(t, watcherSender.Events())
}

func TestPublishOrderCreatedRouting(t *testing.T) {
	hub, _, _ := newTestHub(t)
	_, ownerSender := connect(t, hub, models.Identity{ID: "owner1", Role: models.RoleRestaurant})
	_, adminSender := connect(t, hub, models.Identity{ID: "a1", Role: models.RoleAdmin})
	_, otherOwnerSender := connect(t, hub, models.Identity{ID: "owner2", Role: models.RoleRestaurant})

	order := &models.Order{ID: "o9", CustomerID: "c1", RestaurantID: "r1", Status: models.OrderPending}
	hub.PublishOrderCreated(order)

	require.Len(t, ownerSender.Events(), 1)
	assert.Equal(t, EventOrderCreated, ownerSender.Events()[0].event)
	require.Len(t, adminSender.Events(), 1)
	assert.Empty(t, otherOwnerSender.Events())
}

func TestPublishOrderUpdatedRouting(t *testing.T) {
	hub, _, _ := newTestHub(t)
	customer, customerSender := connect(t, hub, models.Identity{ID: "c1", Role: models.RoleCustomer})
	require.True(t, hub.JoinChannel(context.Background(), customer, OrderChannel("o1")).Success)
	_, ownerSender := connect(t, hub, models.Identity{ID: "owner1", Role: models.RoleRestaurant})
	_, driverSender := connect(t, hub, models.Identity{ID: "d1", Role: models.RoleDriver})
	_, otherOwnerSender := connect(t, hub, models.Identity{ID: "owner2", Role: models.RoleRestaurant})

	order := &models.Order{ID: "o1", CustomerID: "c1", RestaurantID: "r1", DriverID: "d1", Status: models.OrderPicked}
	hub.PublishOrderUpdated(order)

	for name, sender := range map[string]*fakeSender{"customer": customerSender, "restaurant": ownerSender, "driver": driverSender} {
		events := sender.Events()
		require.Len(t, events, 1, "%s events", name)
		assert.Equal(t, EventOrderUpdated, events[0].event)
		got := events[0].payload.(*models.Order)
		assert.Equal(t, models.OrderPicked, got.Status)
	}
	assert.Empty(t, otherOwnerSender.Events())
}

func TestBroadcastToEmptyChannelIsNoOp(t *testing.T) {
	hub, _, _ := newTestHub(t)
	// Nothing subscribed anywhere; must not panic or error.
	hub.Broadcast(OrderChannel("o1"), EventOrderUpdated, &models.Order{ID: "o1"})
}

func TestConcurrentJoinAndBroadcast(t *testing.T) {
	hub, _, _ := newTestHub(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			customer, _ := connect(t, hub, models.Identity{ID: "c1", Role: models.RoleCustomer})
			hub.JoinChannel(context.Background(), customer, OrderChannel("o1"))
			hub.Unregister(customer)
		}()
		go func() {
			defer wg.Done()
			hub.PublishOrderUpdated(&models.Order{ID: "o1", RestaurantID: "r1", Status: models.OrderPicked})
		}()
	}
	wg.Wait()
}
