package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/delivery-tracking/internal/models"
	"github.com/example/delivery-tracking/internal/observability"
	"github.com/example/delivery-tracking/internal/track"
)

const reconnectDelay = 5 * time.Second

// orderEvent is the message shape order management publishes after every
// persisted order mutation. Same contract as the HTTP intake.
type orderEvent struct {
	Event string       `json:"event"`
	Order models.Order `json:"order"`
}

// Consumer feeds order lifecycle events from RabbitMQ into the hub's
// fan-out path. It reconnects forever until the context is canceled.
type Consumer struct {
	url   string
	queue string
	hub   *track.Hub
	log   *slog.Logger
}

func NewConsumer(url, queue string, hub *track.Hub, log *slog.Logger) *Consumer {
	return &Consumer{url: url, queue: queue, hub: hub, log: log}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		c.log.Warn("order-event consumer disconnected", "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose(make(chan *amqp.Error, 1))

	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.log.Info("order-event consumer started", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed")
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}
			if err := c.handle(msg.Body); err != nil {
				c.log.Warn("order event rejected", "error", err)
				// Malformed payloads don't requeue; retrying won't fix them.
				_ = msg.Nack(false, false)
				continue
			}
			_ = msg.Ack(false)
		}
	}
}

func (c *Consumer) handle(body []byte) error {
	var ev orderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if ev.Order.ID == "" || ev.Order.RestaurantID == "" {
		return fmt.Errorf("incomplete order payload")
	}
	switch ev.Event {
	case track.EventOrderCreated:
		c.hub.PublishOrderCreated(&ev.Order)
	case track.EventOrderUpdated:
		c.hub.PublishOrderUpdated(&ev.Order)
	default:
		return fmt.Errorf("unknown event %q", ev.Event)
	}
	observability.OrderEventsIn.WithLabelValues(ev.Event, "amqp").Inc()
	return nil
}
