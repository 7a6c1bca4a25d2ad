package track

import "github.com/example/delivery-tracking/internal/models"

// Sender delivers one outbound event to a connected client. Implementations
// must not block: the transport backs this with a buffered queue and returns
// an error when the client is gone or too slow to keep up.
type Sender interface {
	Send(event string, payload any) error
}

// Session is the hub-side state of one authenticated connection. Identity is
// resolved once at handshake and never changes; channel subscriptions are
// owned by the hub and torn down together on disconnect.
type Session struct {
	ID       string
	Identity models.Identity
	sender   Sender
}

func NewSession(id string, identity models.Identity, sender Sender) *Session {
	return &Session{ID: id, Identity: identity, sender: sender}
}
