// Package notify turns inbound message events into a sound and a
// user-facing alert.
package notify

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/matheus3301/hookchat/internal/bus"
	"github.com/matheus3301/hookchat/internal/store"
	"go.uber.org/zap"
)

// AlertTitle is the title of every inbound message alert.
const AlertTitle = "New Message"

const maxPreview = 120

// Sound plays a short notification sound.
type Sound interface {
	Play() error
}

// Alerter shows a notification to the user.
type Alerter interface {
	Alert(title, body string) error
}

// Bell rings the terminal bell.
type Bell struct {
	W io.Writer
}

func (b Bell) Play() error {
	_, err := io.WriteString(b.W, "\a")
	return err
}

// WriterAlerter prints one summary line per alert.
type WriterAlerter struct {
	W   io.Writer
	Now func() time.Time
}

func (a WriterAlerter) Alert(title, body string) error {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	_, err := fmt.Fprintf(a.W, "- %s [%s]: %s\n", title, now().Format(time.RFC3339), body)
	return err
}

// CommandAlerter runs an external program such as notify-send with the
// title and body appended to Args. The process is not waited on by the
// caller.
type CommandAlerter struct {
	Name string
	Args []string
}

func (a CommandAlerter) Alert(title, body string) error {
	if a.Name == "" {
		return errors.New("notify command not set")
	}
	args := append(append([]string{}, a.Args...), title, body)
	cmd := exec.Command(a.Name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", a.Name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Multi fans an alert out to several alerters and joins their errors.
type Multi []Alerter

func (m Multi) Alert(title, body string) error {
	var errs []error
	for _, a := range m {
		if err := a.Alert(title, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Notifier listens for received messages on the bus.
type Notifier struct {
	bus     *bus.Bus
	sound   Sound
	alerter Alerter
	logger  *zap.Logger

	kind   string
	token  bus.Token
	active bool
}

// New creates a Notifier for events of the given kind. Either sound or
// alerter may be nil.
func New(b *bus.Bus, kind string, sound Sound, alerter Alerter, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{bus: b, kind: kind, sound: sound, alerter: alerter, logger: logger.Named("notify")}
}

// Start subscribes to the bus. Calling it twice has no effect.
func (n *Notifier) Start() {
	if n.active {
		return
	}
	n.token = n.bus.Subscribe(n.kind, n.handle)
	n.active = true
}

// Stop unsubscribes from the bus.
func (n *Notifier) Stop() {
	if !n.active {
		return
	}
	n.bus.Unsubscribe(n.token)
	n.active = false
}

func (n *Notifier) handle(evt bus.Event) error {
	msg, ok := evt.Payload.(store.Message)
	if !ok {
		return nil
	}
	if n.sound != nil {
		if err := n.sound.Play(); err != nil {
			n.logger.Warn("notification sound failed", zap.Error(err))
		}
	}
	if n.alerter != nil {
		if err := n.alerter.Alert(AlertTitle, preview(msg.Text)); err != nil {
			n.logger.Warn("notification alert failed", zap.String("msg_id", msg.ID), zap.Error(err))
		}
	}
	return nil
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= maxPreview {
		return text
	}
	return string(r[:maxPreview-1]) + "…"
}
