// Package events publishes domain events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectOrderSettled is the subject suffix for settled orders.
const SubjectOrderSettled = "orders.settled"

// Publisher sends an event. id is used for broker-side deduplication.
type Publisher interface {
	Publish(ctx context.Context, subject, id string, payload any) error
	Close() error
}

// Config configures the NATS publisher.
type Config struct {
	URL           string
	SubjectPrefix string // optional, e.g. "storefront"
	Name          string // client name shown in server monitoring
}

// NATSPublisher publishes JSON events on a core NATS connection.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

var _ Publisher = (*NATSPublisher)(nil)

// Connect dials NATS with reconnects enabled.
func Connect(cfg Config, logger *slog.Logger) (*NATSPublisher, error) {
	name := cfg.Name
	if name == "" {
		name = "storefront"
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats: disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats: reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	logger.Info("nats: connected", "url", conn.ConnectedUrl())
	return &NATSPublisher{conn: conn, prefix: cfg.SubjectPrefix, logger: logger}, nil
}

// Publish encodes payload as JSON and waits for the server to acknowledge
// the flush, so a returned nil means the broker has the message.
func (p *NATSPublisher) Publish(ctx context.Context, subject, id string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := nats.NewMsg(FullSubject(p.prefix, subject))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, id)
	msg.Header.Set("Content-Type", "application/json")

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", msg.Subject, err)
	}

	p.logger.Debug("nats: event published", "subject", msg.Subject, "id", id)
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// FullSubject joins prefix and subject with a dot.
func FullSubject(prefix, subject string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return subject
	}
	return prefix + "." + subject
}

// NopPublisher drops every event. Used when no NATS URL is configured.
type NopPublisher struct {
	Logger *slog.Logger
}

func (n NopPublisher) Publish(ctx context.Context, subject, id string, payload any) error {
	if n.Logger != nil {
		n.Logger.Debug("events disabled, dropping event", "subject", subject, "id", id)
	}
	return nil
}

func (NopPublisher) Close() error { return nil }
