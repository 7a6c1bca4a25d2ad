package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/delivery-tracking/internal/locations"
	"github.com/example/delivery-tracking/internal/models"
	"github.com/example/delivery-tracking/internal/observability"
	"github.com/example/delivery-tracking/internal/store"
	"github.com/example/delivery-tracking/internal/track"
)

// Server wires the tracking surface onto a mux router: the WebSocket
// endpoint, the order-event intake called by order management, and the
// read-only position endpoint.
type Server struct {
	log       *slog.Logger
	hub       *track.Hub
	positions locations.Store
	mux       *mux.Router

	// Ready, when set, gates the readiness probe (e.g. a datastore ping).
	Ready func(r *http.Request) error
}

func NewServer(log *slog.Logger, hub *track.Hub, wsHandler http.Handler, positions locations.Store) *Server {
	s := &Server{log: log, hub: hub, positions: positions, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes(wsHandler)
	return s
}

func (s *Server) routes(wsHandler http.Handler) {
	s.mux.Handle("/ws", wsHandler).Methods("GET")
	s.mux.HandleFunc("/internal/orders/events", s.handleOrderEvent).Methods("POST")
	s.mux.HandleFunc("/internal/drivers/{driver_id}/location", s.handleDriverPosition).Methods("GET")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.HandleFunc("/ready", s.handleReady).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type orderEventRequest struct {
	Event string       `json:"event"`
	Order models.Order `json:"order"`
}

// handleOrderEvent is the synchronous publishOrderUpdate surface: order
// management calls it after every persisted order mutation.
func (s *Server) handleOrderEvent(w http.ResponseWriter, r *http.Request) {
	var req orderEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid payload"})
		return
	}
	if req.Order.ID == "" || req.Order.RestaurantID == "" || !models.ValidOrderStatus(req.Order.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid order"})
		return
	}

	switch req.Event {
	case track.EventOrderCreated:
		s.hub.PublishOrderCreated(&req.Order)
	case track.EventOrderUpdated:
		s.hub.PublishOrderUpdated(&req.Order)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Unknown event"})
		return
	}
	observability.OrderEventsIn.WithLabelValues(req.Event, "http").Inc()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleDriverPosition(w http.ResponseWriter, r *http.Request) {
	driverID := mux.Vars(r)["driver_id"]
	pos, err := s.positions.Get(r.Context(), driverID)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Driver location not found"})
		return
	}
	if err != nil {
		s.log.Error("position read failed", "driver_id", driverID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": pos})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.Ready != nil {
		if err := s.Ready(r); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(200)
	w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
