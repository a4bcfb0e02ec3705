package nats

import (
	"context"
	"fmt"

	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/nats-io/nats.go/jetstream"
)

// NatsPublisher publishes events to JetStream. Events implementing messaging.Identified
// are published with a message id so retries inside the stream's duplicate window are dropped.
type NatsPublisher struct {
	js jetstream.JetStream
}

var _ messaging.Publisher = (*NatsPublisher)(nil)

func NewNatsPublisher(js jetstream.JetStream) *NatsPublisher {
	return &NatsPublisher{js: js}
}

func (p *NatsPublisher) Publish(ctx context.Context, event messaging.Event) error {
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Subject(), err)
	}
	var opts []jetstream.PublishOpt
	if ident, ok := event.(messaging.Identified); ok && ident.MsgID() != "" {
		opts = append(opts, jetstream.WithMsgID(ident.MsgID()))
	}
	if _, err := p.js.Publish(ctx, event.Subject(), data, opts...); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", event.Subject(), err)
	}
	return nil
}
