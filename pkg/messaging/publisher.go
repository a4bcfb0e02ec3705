package messaging

import (
	"context"
)

// NoticesSubject is the default subject user-visible notices are published on.
const NoticesSubject = "storefront.notices"

// Event is anything that can be published on a subject.
type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

// Identified events carry an id the broker uses to drop redeliveries of the same event.
type Identified interface {
	MsgID() string
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
