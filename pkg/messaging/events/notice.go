package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/storefront/pkg/messaging"
)

// NoticeEvent carries a user-visible notice to out-of-process listeners (e.g. a UI push bridge).
type NoticeEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     string    `json:"variant"`
	RequestID   string    `json:"request_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// subject overrides messaging.NoticesSubject when set.
	subject string
}

// WithSubject returns a copy of the event routed to subject.
func (e NoticeEvent) WithSubject(subject string) NoticeEvent {
	e.subject = subject
	return e
}

func (e NoticeEvent) Subject() string {
	if e.subject != "" {
		return e.subject
	}
	return messaging.NoticesSubject
}

// MsgID lets JetStream drop a notice published twice.
func (e NoticeEvent) MsgID() string {
	return e.ID
}

func (e NoticeEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
