package locations

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/example/delivery-tracking/internal/models"
	"github.com/example/delivery-tracking/internal/store"
)

// Store holds the single latest position per driver, last-write-wins.
type Store interface {
	Upsert(ctx context.Context, driverID string, lat, lng float64, at time.Time) (models.DriverPosition, error)
	Get(ctx context.Context, driverID string) (models.DriverPosition, error)
}

// Valid reports whether the pair is a finite point on the globe. Callers must
// check this before any upsert; non-finite values never reach a backend.
func Valid(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Memory keeps positions in a mutex-guarded map.
type Memory struct {
	mu        sync.RWMutex
	positions map[string]models.DriverPosition
}

func NewMemory() *Memory {
	return &Memory{positions: make(map[string]models.DriverPosition)}
}

func (m *Memory) Upsert(ctx context.Context, driverID string, lat, lng float64, at time.Time) (models.DriverPosition, error) {
	pos := models.DriverPosition{
		DriverID:  driverID,
		Location:  models.Coordinates{Latitude: lat, Longitude: lng},
		UpdatedAt: at,
	}
	m.mu.Lock()
	m.positions[driverID] = pos
	m.mu.Unlock()
	return pos, nil
}

func (m *Memory) Get(ctx context.Context, driverID string) (models.DriverPosition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.positions[driverID]
	if !ok {
		return models.DriverPosition{}, store.ErrNotFound
	}
	return pos, nil
}
