package nats

import (
	"fmt"
	"log/slog"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NewClient connects to cfg.Url and logs connection state changes. Reconnects are
// left to the nats client; publishing while disconnected fails fast.
func NewClient(cfg config.NATSConfig, name string, logger *slog.Logger) (*nats.Conn, error) {
	logger = logger.With("component", "nats")
	nc, err := nats.Connect(cfg.Url,
		nats.Name(name),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Debug("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.Url, err)
	}
	return nc, nil
}

// NewJetStreamContext wraps nc; nc is closed when JetStream cannot be initialized.
func NewJetStreamContext(nc *nats.Conn) (jetstream.JetStream, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return js, nil
}
