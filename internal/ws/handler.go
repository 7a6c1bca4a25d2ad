package ws

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/example/delivery-tracking/internal/auth"
	"github.com/example/delivery-tracking/internal/track"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Cross-origin browsers are let through; the credential check below
		// is what actually gates the connection.
		return true
	},
}

// Handler upgrades tracking clients and bridges them onto the hub. Identity
// resolution happens before the upgrade: a connection that fails it is
// refused with 401 and never reaches the hub.
type Handler struct {
	Hub      *track.Hub
	Resolver *auth.Resolver
	Log      *slog.Logger
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.Resolver.Resolve(r.Context(), credentialFromRequest(r))
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h.Log.Error("identity resolution failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	c := newClient(conn, h.Hub, h.Log)
	c.session = track.NewSession(uuid.NewString(), identity, c)
	h.Hub.Register(r.Context(), c.session)
	h.Log.Info("session attached", "session", c.session.ID, "user_id", identity.ID, "role", identity.Role)

	go c.writePump()
	// The read loop runs on the handler goroutine so r.Context() stays live
	// for the lifetime of the connection.
	c.readPump(r.Context())
	h.Log.Info("session detached", "session", c.session.ID, "user_id", identity.ID)
}

// credentialFromRequest pulls the handshake credential: token cookie first
// (what the web client sends), then Authorization header, then query string.
func credentialFromRequest(r *http.Request) string {
	if c, err := r.Cookie("token"); err == nil && c.Value != "" {
		return c.Value
	}
	if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		return strings.TrimPrefix(ah, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
