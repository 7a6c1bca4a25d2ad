package track

import (
	"context"
	"errors"

	"github.com/example/delivery-tracking/internal/models"
	"github.com/example/delivery-tracking/internal/store"
)

// Decision is the oracle's answer to one join request. Order is populated on
// allowed order-channel decisions so callers can avoid a second lookup.
type Decision struct {
	Allowed bool
	Reason  string
	Order   *models.Order
}

func deny(reason string) Decision { return Decision{Reason: reason} }

// Oracle decides channel membership. Purely decisional: it reads the
// directory and never mutates anything. An error return means the lookup
// itself failed and is distinct from a deny.
type Oracle struct {
	directory store.Directory
}

func NewOracle(directory store.Directory) *Oracle {
	return &Oracle{directory: directory}
}

// CanJoin evaluates the membership rules in precedence order: the admin
// override first, then the per-kind ownership rules.
func (o *Oracle) CanJoin(ctx context.Context, identity models.Identity, ch Channel) (Decision, error) {
	if identity.Role == models.RoleAdmin {
		return Decision{Allowed: true}, nil
	}
	switch ch.Kind {
	case KindOrder:
		return o.canJoinOrder(ctx, identity, ch.ID)
	case KindRestaurant:
		return o.canJoinRestaurant(ctx, identity, ch.ID)
	case KindDriver:
		return o.canJoinDriver(ctx, identity, ch.ID)
	case KindAdmins:
		return deny("Not authorized"), nil
	}
	return deny("Not authorized"), nil
}

func (o *Oracle) canJoinOrder(ctx context.Context, identity models.Identity, orderID string) (Decision, error) {
	order, err := o.directory.OrderByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return deny("Order not found"), nil
	}
	if err != nil {
		return Decision{}, err
	}
	switch identity.Role {
	case models.RoleCustomer:
		if order.CustomerID == identity.ID {
			return Decision{Allowed: true, Order: order}, nil
		}
	case models.RoleDriver:
		if order.DriverID != "" && order.DriverID == identity.ID {
			return Decision{Allowed: true, Order: order}, nil
		}
	case models.RoleRestaurant:
		restaurant, err := o.directory.RestaurantByOwner(ctx, identity.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return Decision{}, err
		}
		if err == nil && restaurant.ID == order.RestaurantID {
			return Decision{Allowed: true, Order: order}, nil
		}
	}
	return deny("Not authorized for this order"), nil
}

func (o *Oracle) canJoinRestaurant(ctx context.Context, identity models.Identity, restaurantID string) (Decision, error) {
	if identity.Role != models.RoleRestaurant {
		return deny("Not authorized"), nil
	}
	restaurant, err := o.directory.RestaurantByOwner(ctx, identity.ID)
	if errors.Is(err, store.ErrNotFound) {
		return deny("Restaurant not found"), nil
	}
	if err != nil {
		return Decision{}, err
	}
	if restaurant.ID != restaurantID {
		return deny("Not authorized"), nil
	}
	return Decision{Allowed: true}, nil
}

// canJoinDriver lets a restaurant watch its own drivers. Drivers never need
// this path: each one is attached to driver:<self> at connect time.
func (o *Oracle) canJoinDriver(ctx context.Context, identity models.Identity, driverID string) (Decision, error) {
	if identity.Role != models.RoleRestaurant {
		return deny("Not authorized"), nil
	}
	driver, err := o.directory.AccountByID(ctx, driverID)
	if errors.Is(err, store.ErrNotFound) {
		return deny("Not found"), nil
	}
	if err != nil {
		return Decision{}, err
	}
	restaurant, err := o.directory.RestaurantByOwner(ctx, identity.ID)
	if errors.Is(err, store.ErrNotFound) {
		return deny("Not found"), nil
	}
	if err != nil {
		return Decision{}, err
	}
	if driver.Role != models.RoleDriver {
		return deny("Not found"), nil
	}
	if driver.RestaurantID != restaurant.ID {
		return deny("Not authorized"), nil
	}
	return Decision{Allowed: true}, nil
}
