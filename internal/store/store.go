package store

import (
	"context"
	"errors"

	"github.com/example/delivery-tracking/internal/models"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// Directory exposes the read-only account/restaurant/order lookups the
// tracking core needs to authenticate connections and authorize channel
// membership. Writes stay with the out-of-scope CRUD services.
type Directory interface {
	AccountByID(ctx context.Context, id string) (*models.Account, error)
	RestaurantByOwner(ctx context.Context, ownerID string) (*models.Restaurant, error)
	OrderByID(ctx context.Context, id string) (*models.Order, error)
}
