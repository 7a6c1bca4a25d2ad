package store

import (
	"context"
	"sync"

	"github.com/example/delivery-tracking/internal/models"
)

// Memory is an in-process Directory for local runs and tests.
type Memory struct {
	mu          sync.RWMutex
	accounts    map[string]models.Account
	restaurants map[string]models.Restaurant // keyed by owner id
	orders      map[string]models.Order
}

func NewMemory() *Memory {
	return &Memory{
		accounts:    make(map[string]models.Account),
		restaurants: make(map[string]models.Restaurant),
		orders:      make(map[string]models.Order),
	}
}

func (m *Memory) PutAccount(a models.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
}

func (m *Memory) PutRestaurant(r models.Restaurant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restaurants[r.OwnerID] = r
}

func (m *Memory) PutOrder(o models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
}

func (m *Memory) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *Memory) RestaurantByOwner(ctx context.Context, ownerID string) (*models.Restaurant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.restaurants[ownerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *Memory) OrderByID(ctx context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}
