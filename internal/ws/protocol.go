package ws

import "encoding/json"

// Inbound event names. These are the wire contract with the web and mobile
// clients; outbound names live in the track package.
const (
	EventJoinOrder      = "tracking:join:order"
	EventJoinRestaurant = "tracking:join:restaurant"
	EventJoinDriver     = "tracking:join:driver"
	EventLocationUpdate = "driver:location:update"
	EventAck            = "ack"
)

// Envelope frames every inbound message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outbound frames every message the server writes. For is set on acks and
// names the inbound event being acknowledged.
type outbound struct {
	Event string `json:"event"`
	For   string `json:"for,omitempty"`
	Data  any    `json:"data,omitempty"`
}

type joinOrderPayload struct {
	OrderID string `json:"orderId"`
}

type joinRestaurantPayload struct {
	RestaurantID string `json:"restaurantId"`
}

type joinDriverPayload struct {
	DriverID string `json:"driverId"`
}

type locationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	OrderID   string  `json:"orderId,omitempty"`
}
