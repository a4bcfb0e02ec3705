// Package notify delivers transient user-visible notices ("toasts").
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

type Notice struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     Variant   `json:"variant"`
	CreatedAt   time.Time `json:"created_at"`
}

// Info builds a default notice.
func Info(title, description string) Notice {
	return Notice{Title: title, Description: description, Variant: VariantDefault}
}

// Failure builds a destructive notice.
func Failure(title, description string) Notice {
	return Notice{Title: title, Description: description, Variant: VariantDestructive}
}

// Notifier surfaces a notice to the user. Delivery is best effort and never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// LogNotifier writes notices to a structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notify")}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notice) {
	level := slog.LevelInfo
	if n.Variant == VariantDestructive {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, n.Title, "description", n.Description, "variant", n.Variant)
}

// Recorder keeps the most recent notices in memory until they are drained.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
	limit   int
	now     func() time.Time
}

// NewRecorder keeps at most limit notices; older ones are dropped first.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 50
	}
	return &Recorder{limit: limit, now: time.Now}
}

func (r *Recorder) Notify(_ context.Context, n Notice) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	if over := len(r.notices) - r.limit; over > 0 {
		r.notices = append(r.notices[:0:0], r.notices[over:]...)
	}
}

// Drain returns the recorded notices oldest first and forgets them.
func (r *Recorder) Drain() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notices
	r.notices = nil
	if out == nil {
		return []Notice{}
	}
	return out
}

// Multi fans a notice out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notice) {
	for _, nt := range m {
		nt.Notify(ctx, n)
	}
}
