package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/delivery-tracking/internal/locations"
	"github.com/example/delivery-tracking/internal/models"
	"github.com/example/delivery-tracking/internal/store"
	"github.com/example/delivery-tracking/internal/track"
)

type recordingSender struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSender) Send(event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSender) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func newTestServer(t *testing.T) (*Server, *track.Hub, *locations.Memory) {
	t.Helper()
	dir := store.NewMemory()
	dir.PutRestaurant(models.Restaurant{ID: "r1", OwnerID: "owner1"})
	dir.PutAccount(models.Account{ID: "owner1", Role: models.RoleRestaurant})
	positions := locations.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := track.NewHub(log, track.NewOracle(dir), dir, positions)
	return NewServer(log, hub, http.NotFoundHandler(), positions), hub, positions
}

func TestHandleOrderEvent_UpdatedReachesSubscribers(t *testing.T) {
	srv, hub, _ := newTestServer(t)

	sender := &recordingSender{}
	owner := track.NewSession("s1", models.Identity{ID: "owner1", Role: models.RoleRestaurant}, sender)
	hub.Register(context.Background(), owner)

	body := `{"event":"order:updated","order":{"id":"o1","customerId":"c1","restaurantId":"r1","driverId":"d1","status":"picked"}}`
	req := httptest.NewRequest("POST", "/internal/orders/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	events := sender.Events()
	if len(events) != 1 || events[0] != track.EventOrderUpdated {
		t.Fatalf("restaurant received %v", events)
	}
}

func TestHandleOrderEvent_RejectsUnknownEvent(t *testing.T) {
	srv, _, _ := newTestServer(t)
	body := `{"event":"order:deleted","order":{"id":"o1","restaurantId":"r1","status":"picked"}}`
	req := httptest.NewRequest("POST", "/internal/orders/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleOrderEvent_RejectsIncompleteOrder(t *testing.T) {
	srv, _, _ := newTestServer(t)
	body := `{"event":"order:created","order":{"id":"","restaurantId":"r1","status":"pending"}}`
	req := httptest.NewRequest("POST", "/internal/orders/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleDriverPosition(t *testing.T) {
	srv, _, positions := newTestServer(t)
	if _, err := positions.Upsert(context.Background(), "d1", 9.03, 38.74, time.Now().UTC()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	req := httptest.NewRequest("GET", "/internal/drivers/d1/location", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"driverId":"d1"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}

	req = httptest.NewRequest("GET", "/internal/drivers/ghost/location", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
