package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/delivery-tracking/internal/track"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 8192
	sendBuffer     = 64
)

var (
	errClosed       = errors.New("connection closed")
	errSlowConsumer = errors.New("outbound queue full")
)

// client owns one WebSocket connection after a successful handshake. Its
// inbound messages are handled sequentially by the read loop, which is what
// preserves per-driver ordering of location updates.
type client struct {
	conn    *websocket.Conn
	hub     *track.Hub
	session *track.Session
	log     *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, hub *track.Hub, log *slog.Logger) *client {
	return &client{
		conn: conn,
		hub:  hub,
		log:  log,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Send implements track.Sender. It never blocks the hub: a full outbound
// queue tears the connection down and the event is dropped.
func (c *client) Send(event string, payload any) error {
	return c.enqueue(outbound{Event: event, Data: payload})
}

func (c *client) enqueue(msg outbound) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return errClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	case <-c.done:
		return errClosed
	default:
		c.shutdown()
		return errSlowConsumer
	}
}

func (c *client) ack(forEvent string, a track.Ack) {
	if err := c.enqueue(outbound{Event: EventAck, For: forEvent, Data: a}); err != nil {
		c.log.Debug("ack dropped", "for", forEvent, "error", err)
	}
}

func (c *client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump drives the connection until it drops, then unregisters the
// session so no membership survives the disconnect.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c.session)
		c.shutdown()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read error", "session", c.session.ID, "error", err)
			}
			return
		}
		c.handleMessage(ctx, raw)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage maps one inbound envelope onto a hub operation and acks the
// result. Malformed payloads ack a failure and leave the connection open.
func (c *client) handleMessage(ctx context.Context, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		c.ack("", track.Ack{Message: "Invalid payload"})
		return
	}

	switch env.Event {
	case EventJoinOrder:
		var p joinOrderPayload
		if !c.decode(env, &p) {
			return
		}
		c.ack(env.Event, c.hub.JoinChannel(ctx, c.session, track.OrderChannel(p.OrderID)))
	case EventJoinRestaurant:
		var p joinRestaurantPayload
		if !c.decode(env, &p) {
			return
		}
		c.ack(env.Event, c.hub.JoinChannel(ctx, c.session, track.RestaurantChannel(p.RestaurantID)))
	case EventJoinDriver:
		var p joinDriverPayload
		if !c.decode(env, &p) {
			return
		}
		c.ack(env.Event, c.hub.JoinChannel(ctx, c.session, track.DriverChannel(p.DriverID)))
	case EventLocationUpdate:
		var p locationPayload
		if !c.decode(env, &p) {
			return
		}
		c.ack(env.Event, c.hub.ReportDriverLocation(ctx, c.session, p.Latitude, p.Longitude, p.OrderID))
	default:
		c.ack(env.Event, track.Ack{Message: "Unknown event"})
	}
}

func (c *client) decode(env Envelope, into any) bool {
	if len(env.Data) == 0 {
		c.ack(env.Event, track.Ack{Message: "Invalid payload"})
		return false
	}
	if err := json.Unmarshal(env.Data, into); err != nil {
		c.ack(env.Event, track.Ack{Message: "Invalid payload"})
		return false
	}
	return true
}
