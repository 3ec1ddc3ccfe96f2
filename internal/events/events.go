// Package events publishes completed analyses to NATS.
//
// Subjects follow <prefix>.analysis.<id>.completed and carry the result as JSON.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/convoscan/internal/config"
	"github.com/fyrsmithlabs/convoscan/internal/logging"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ErrClosed is returned when publishing after Close.
var ErrClosed = errors.New("publisher closed")

// Publisher receives completed analysis results.
type Publisher interface {
	PublishCompleted(ctx context.Context, analysisID string, result any) error
	Close() error
}

// Subject returns the completion subject for an analysis.
func Subject(prefix, analysisID string) string {
	return fmt.Sprintf("%s.analysis.%s.completed", prefix, analysisID)
}

// Noop discards every event.
type Noop struct{}

// PublishCompleted does nothing.
func (Noop) PublishCompleted(context.Context, string, any) error { return nil }

// Close does nothing.
func (Noop) Close() error { return nil }

// NATSPublisher publishes results over a NATS connection.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	owned  bool
	logger *logging.Logger
}

// Connect dials NATS using cfg. The returned publisher owns the connection.
func Connect(cfg config.EventsConfig, logger *logging.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx := context.Background()

	nc, err := nats.Connect(cfg.URL,
		nats.Name("convoscan"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn(ctx, "nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info(ctx, "nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	p := NewNATSPublisher(nc, cfg.SubjectPrefix, logger)
	p.owned = true
	return p, nil
}

// NewNATSPublisher wraps an existing connection. Close does not close nc.
func NewNATSPublisher(nc *nats.Conn, prefix string, logger *logging.Logger) *NATSPublisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if prefix == "" {
		prefix = "convoscan"
	}
	return &NATSPublisher{nc: nc, prefix: prefix, logger: logger}
}

// PublishCompleted marshals result and publishes it on the completion subject.
func (p *NATSPublisher) PublishCompleted(ctx context.Context, analysisID string, result any) error {
	if p.nc.IsClosed() {
		return ErrClosed
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	subject := Subject(p.prefix, analysisID)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}

	p.logger.Debug(ctx, "analysis published",
		zap.String("subject", subject),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Close drains the connection when the publisher owns it.
func (p *NATSPublisher) Close() error {
	if !p.owned || p.nc.IsClosed() {
		return nil
	}
	return p.nc.Drain()
}

var (
	_ Publisher = Noop{}
	_ Publisher = (*NATSPublisher)(nil)
)
