package status

import (
	"errors"
	"testing"
)

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
	}{
		{Pending, Sent},
		{Pending, Failed},
		{Sent, Delivered},
		{Sent, Failed},
		{Delivered, Read},
		{Delivered, Failed},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			next, changed, err := Transition(tt.from, tt.to)
			if err != nil {
				t.Fatalf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if !changed || next != tt.to {
				t.Errorf("got (%s, %v), want (%s, true)", next, changed, tt.to)
			}
		})
	}
}

func TestInvalidTransitions(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
	}{
		{Pending, Delivered},
		{Pending, Read},
		{Sent, Pending},
		{Delivered, Sent},
		{Read, Delivered},
		{Read, Failed},
		{Failed, Sent},
		{Failed, Pending},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			next, changed, err := Transition(tt.from, tt.to)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("Transition(%s -> %s) error = %v, want ErrInvalidTransition", tt.from, tt.to, err)
			}
			if changed || next != tt.from {
				t.Errorf("got (%s, %v), want unchanged %s", next, changed, tt.from)
			}
		})
	}
}

// TestSameStatusIsNoop verifies repeated writes of one status are accepted
// without reporting a change, including on terminal statuses.
func TestSameStatusIsNoop(t *testing.T) {
	for _, s := range []Status{Pending, Sent, Delivered, Read, Failed} {
		next, changed, err := Transition(s, s)
		if err != nil {
			t.Errorf("Transition(%s -> %s) error = %v", s, s, err)
		}
		if changed || next != s {
			t.Errorf("Transition(%s -> %s) = (%s, %v), want no-op", s, s, next, changed)
		}
	}
}

func TestUnknownStatus(t *testing.T) {
	if _, _, err := Transition(Pending, Status("bogus")); err == nil {
		t.Error("Transition to unknown status should fail")
	}
}

func TestTerminal(t *testing.T) {
	want := map[Status]bool{Pending: false, Sent: false, Delivered: false, Read: true, Failed: true}
	for s, terminal := range want {
		if s.Terminal() != terminal {
			t.Errorf("%s.Terminal() = %v, want %v", s, s.Terminal(), terminal)
		}
	}
}

// TestFullDeliveryLifecycle walks pending -> sent -> delivered -> read.
func TestFullDeliveryLifecycle(t *testing.T) {
	cur := Pending
	for _, s := range []Status{Sent, Delivered, Read} {
		next, _, err := Transition(cur, s)
		if err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, cur)
		}
		cur = next
	}
	if cur != Read {
		t.Errorf("final status = %s, want read", cur)
	}
}
