package models

import "time"

type Role string

const (
	RoleCustomer   Role = "customer"
	RoleRestaurant Role = "restaurant"
	RoleDriver     Role = "driver"
	RoleAdmin      Role = "admin"
)

// Identity is the resolved account behind a live connection. It is fixed for
// the connection's lifetime; a role change requires a reconnect.
type Identity struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

type Account struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email"`
	// RestaurantID is the employing restaurant for driver accounts;
	// empty for every other role.
	RestaurantID string `json:"restaurantId,omitempty"`
}

type Restaurant struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	Name    string `json:"name"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderAccepted  OrderStatus = "accepted"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderPicked    OrderStatus = "picked"
	OrderEnRoute   OrderStatus = "en_route"
	OrderDelivered OrderStatus = "delivered"
	OrderCanceled  OrderStatus = "canceled"
)

// ValidOrderStatus reports whether s is one of the known lifecycle states.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderPending, OrderAccepted, OrderPreparing, OrderReady,
		OrderPicked, OrderEnRoute, OrderDelivered, OrderCanceled:
		return true
	}
	return false
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Order is read-only inside the tracking core: its lifecycle is owned by the
// order-management flow, which notifies us after every persisted mutation.
type Order struct {
	ID               string      `json:"id"`
	CustomerID       string      `json:"customerId"`
	RestaurantID     string      `json:"restaurantId"`
	DriverID         string      `json:"driverId,omitempty"`
	Status           OrderStatus `json:"status"`
	DeliveryLocation Coordinates `json:"deliveryLocation"`
	Total            float64     `json:"total"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// DriverPosition is the single latest position per driver. Upserts overwrite
// in place; no history is kept.
type DriverPosition struct {
	DriverID  string      `json:"driverId"`
	Location  Coordinates `json:"location"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// LocationEvent is the outbound driver:location payload, and the message
// shape published to Kafka for downstream consumers. OrderID stays a pointer
// so it serializes as null when the driver is not reporting against an order.
type LocationEvent struct {
	DriverID  string      `json:"driverId"`
	Location  Coordinates `json:"location"`
	UpdatedAt time.Time   `json:"updatedAt"`
	OrderID   *string     `json:"orderId"`
}
