package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/google/uuid"
)

// PublishNotifier forwards notices to a message broker so other processes (a push
// bridge, an audit consumer) can observe them.
type PublishNotifier struct {
	publisher messaging.Publisher
	subject   string
	timeout   time.Duration
	logger    *slog.Logger
}

func NewPublishNotifier(publisher messaging.Publisher, subject string, timeout time.Duration, logger *slog.Logger) *PublishNotifier {
	if subject == "" {
		subject = messaging.NoticesSubject
	}
	return &PublishNotifier{
		publisher: publisher,
		subject:   subject,
		timeout:   timeout,
		logger:    logger.With("component", "notify.publish"),
	}
}

func (p *PublishNotifier) Notify(ctx context.Context, n Notice) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	ev := events.NoticeEvent{
		ID:          uuid.NewString(),
		Title:       n.Title,
		Description: n.Description,
		Variant:     string(n.Variant),
		RequestID:   web.RequestID(ctx),
		CreatedAt:   n.CreatedAt,
	}.WithSubject(p.subject)

	pubCtx := context.WithoutCancel(ctx)
	if p.timeout > 0 {
		var cancel context.CancelFunc
		pubCtx, cancel = context.WithTimeout(pubCtx, p.timeout)
		defer cancel()
	}
	if err := p.publisher.Publish(pubCtx, ev); err != nil {
		p.logger.WarnContext(ctx, "Failed to publish notice", "subject", p.subject, "error", err)
	}
}
