package status

import (
	"errors"
	"fmt"
	"slices"
)

// Status is the delivery status of a message.
type Status string

const (
	Pending   Status = "pending"
	Sent      Status = "sent"
	Delivered Status = "delivered"
	Read      Status = "read"
	Failed    Status = "failed"
)

// ErrInvalidTransition is returned when a status change would move backwards
// or leave a terminal status.
var ErrInvalidTransition = errors.New("invalid status transition")

// validTransitions defines allowed status transitions.
// Read and Failed are terminal.
var validTransitions = map[Status][]Status{
	Pending:   {Sent, Failed},
	Sent:      {Delivered, Failed},
	Delivered: {Read, Failed},
	Read:      {},
	Failed:    {},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s == Read || s == Failed
}

// CanTransition reports whether from -> to is an allowed forward move.
func CanTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Transition validates a move from -> to and returns the resulting status.
// Moving to the current status is a no-op and returns changed=false.
func Transition(from, to Status) (next Status, changed bool, err error) {
	if !to.Valid() {
		return from, false, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if from == to {
		return from, false, nil
	}
	if !CanTransition(from, to) {
		return from, false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, true, nil
}

// Change is the payload for status change events.
type Change struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	From      Status `json:"from"`
	To        Status `json:"to"`
}
