// Package feeds consumes alert streams from the NATS broker and hands
// every delivery to the ingest service.
package feeds

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"skyhub/services"
)

// Consumer subscribes to the configured alert subjects. Deliveries are
// at-least-once; the ingest service's deduplication absorbs replays.
type Consumer struct {
	URL      string
	Subjects []string
	Ingest   *services.IngestService
	Log      *zap.Logger

	conn *nats.Conn
	subs []*nats.Subscription
}

// NewConsumer creates a consumer for the given subjects.
func NewConsumer(url string, subjects []string, ingest *services.IngestService, log *zap.Logger) *Consumer {
	return &Consumer{URL: url, Subjects: subjects, Ingest: ingest, Log: log}
}

// Start connects to the broker and subscribes to every subject. The
// connection reconnects indefinitely; deliveries during an outage are
// the upstream feed's replay problem, not ours.
func (c *Consumer) Start() error {
	conn, err := nats.Connect(c.URL,
		nats.Name("skyhub-ingest"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.Log.Warn("feed connection lost", zap.Error(err))
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			c.Log.Info("feed connection restored", zap.String("url", conn.ConnectedUrl()))
		}),
	)
	if err != nil {
		return err
	}
	c.conn = conn

	for _, subject := range c.Subjects {
		sub, err := conn.Subscribe(subject, c.handle)
		if err != nil {
			conn.Close()
			return err
		}
		c.subs = append(c.subs, sub)
		c.Log.Info("subscribed to feed subject", zap.String("subject", subject))
	}
	return nil
}

// handle turns one delivery into an ingest call. A JSON object payload
// becomes structured data; anything else is kept as raw text.
func (c *Consumer) handle(msg *nats.Msg) {
	alert := services.Alert{Topic: msg.Subject}
	if json.Valid(msg.Data) && len(msg.Data) > 0 && msg.Data[0] == '{' {
		alert.Data = json.RawMessage(msg.Data)
	} else {
		alert.MessageText = string(msg.Data)
	}

	_, _, err := c.Ingest.Ingest(alert)
	if err != nil {
		if errors.Is(err, services.ErrTopicIgnored) {
			return
		}
		c.Log.Error("ingest of feed message failed",
			zap.String("subject", msg.Subject), zap.Error(err))
	}
}

// Stop drains the subscriptions and closes the connection.
func (c *Consumer) Stop() {
	for _, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			c.Log.Warn("drain of feed subscription failed", zap.Error(err))
		}
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
