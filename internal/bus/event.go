package bus

import (
	"strings"
	"time"
)

// Event is a domain event published on the bus. Kinds are dotted,
// namespace first: "message.received", "chat.deleted".
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Matches reports whether the event falls under namespace, a prefix of
// Kind. The empty namespace matches every event.
func (e Event) Matches(namespace string) bool {
	return strings.HasPrefix(e.Kind, namespace)
}
