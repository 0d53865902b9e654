package sync

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/hookchat/internal/bus"
	"github.com/matheus3301/hookchat/internal/schedule"
	"github.com/matheus3301/hookchat/internal/store"
	"github.com/matheus3301/hookchat/internal/webhook"
	"go.uber.org/zap"
)

const (
	DefaultPollInterval   = 3 * time.Second
	DefaultDeliveredDelay = 1 * time.Second
	DefaultReadDelay      = 2 * time.Second
	DefaultMaxLength      = 4096

	// DefaultChatID is the conversation every inbound message is routed to.
	DefaultChatID   = "bot_assistant"
	defaultChatName = "AI Assistant"
	defaultChatText = "Start a conversation"
)

// Event kinds published on the bus.
const (
	EventMessageUpserted      = "message.upserted"
	EventMessageStatusChanged = "message.status_changed"
	EventMessageReceived      = "message.received"
	EventChatUpdated          = "chat.updated"
	EventChatDeleted          = "chat.deleted"
)

var (
	ErrEmptyMessage    = errors.New("message text is empty")
	ErrMessageTooLong  = errors.New("message text exceeds maximum length")
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrEmptyChatName   = errors.New("chat name is empty")
	ErrInvalidKind     = errors.New("invalid chat kind")
)

// Store is the durable mirror of the synchronizer's state. Implementations
// swallow their own failures.
type Store interface {
	SaveChats(chats []store.Chat)
	LoadChats() []store.Chat
	SaveMessages(chatID string, msgs []store.Message)
	LoadAllMessages() map[string][]store.Message
	LoadCursor() int64
	SaveCursor(ts int64)
	SessionID() string
	SetSessionID(id string)
	ClearAll()
}

// Transport carries messages to and from the remote workflow.
type Transport interface {
	Send(ctx context.Context, msg store.Message, sessionID string) (webhook.Ack, error)
	Poll(ctx context.Context, since int64) []webhook.Inbound
}

// Metrics receives send and poll outcomes.
type Metrics interface {
	SendResult(kind webhook.FailureKind)
	PollTick(merged int)
}

type noopMetrics struct{}

func (noopMetrics) SendResult(webhook.FailureKind) {}
func (noopMetrics) PollTick(int)                   {}

// Options configures a Synchronizer. Zero durations and lengths fall back
// to the package defaults.
type Options struct {
	Store     Store
	Transport Transport
	Bus       *bus.Bus
	Scheduler schedule.Scheduler
	Logger    *zap.Logger
	Metrics   Metrics

	PollInterval   time.Duration
	DeliveredDelay time.Duration
	ReadDelay      time.Duration
	MaxLength      int

	// NewID generates message, chat and session ids.
	NewID func() string
}

// Synchronizer owns the authoritative chat and message state. Every
// mutation happens under mu and is mirrored to the store before mu is
// released, so writes for a chat reach the store in mutation order.
// Network calls and bus publishes happen outside mu.
type Synchronizer struct {
	store     Store
	transport Transport
	bus       *bus.Bus
	sched     schedule.Scheduler
	logger    *zap.Logger
	metrics   Metrics
	newID     func() string

	pollInterval   time.Duration
	deliveredDelay time.Duration
	readDelay      time.Duration
	maxLength      int

	mu        sync.Mutex
	chats     []store.Chat
	messages  map[string][]store.Message
	cursor    int64
	sessionID string
	lastSent  int64

	running  bool
	runGen   uint64
	runCtx   context.Context
	pollTask schedule.Task
	stopWait func() bool

	tickMu   sync.Mutex
	inflight sync.WaitGroup
}

// New creates a Synchronizer. Call Load before using it.
func New(opts Options) *Synchronizer {
	s := &Synchronizer{
		store:          opts.Store,
		transport:      opts.Transport,
		bus:            opts.Bus,
		sched:          opts.Scheduler,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		newID:          opts.NewID,
		pollInterval:   opts.PollInterval,
		deliveredDelay: opts.DeliveredDelay,
		readDelay:      opts.ReadDelay,
		maxLength:      opts.MaxLength,
		messages:       make(map[string][]store.Message),
	}
	if s.store == nil {
		s.store = store.NewMemory()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.Named("sync")
	if s.bus == nil {
		s.bus = bus.New(s.logger)
	}
	if s.sched == nil {
		s.sched = schedule.Real()
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.pollInterval <= 0 {
		s.pollInterval = DefaultPollInterval
	}
	if s.deliveredDelay <= 0 {
		s.deliveredDelay = DefaultDeliveredDelay
	}
	if s.readDelay <= 0 {
		s.readDelay = DefaultReadDelay
	}
	if s.maxLength <= 0 {
		s.maxLength = DefaultMaxLength
	}
	return s
}

// Load reads the durable state once. An empty chat list is seeded with the
// default assistant chat and a missing session id is generated.
func (s *Synchronizer) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats = s.store.LoadChats()
	s.messages = s.store.LoadAllMessages()
	if s.messages == nil {
		s.messages = make(map[string][]store.Message)
	}
	s.cursor = s.store.LoadCursor()

	s.sessionID = s.store.SessionID()
	if s.sessionID == "" {
		s.sessionID = s.newID()
		s.store.SetSessionID(s.sessionID)
	}

	for _, seq := range s.messages {
		for _, m := range seq {
			if m.Direction == store.Outbound && m.Timestamp > s.lastSent {
				s.lastSent = m.Timestamp
			}
		}
	}

	if len(s.chats) == 0 {
		s.chats = []store.Chat{s.defaultChat()}
		s.store.SaveChats(s.chats)
	}
	s.sortChats()

	s.logger.Info("state loaded",
		zap.Int("chats", len(s.chats)),
		zap.Int("conversations", len(s.messages)),
		zap.Int64("cursor", s.cursor))
}

// Start schedules the poll loop. The first tick runs one interval from now;
// each following tick is scheduled only after the previous one returns.
// Cancelling ctx stops the loop.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.runGen++
	s.runCtx = ctx
	s.scheduleTick(s.runGen)
	s.stopWait = context.AfterFunc(ctx, s.Stop)
	s.logger.Info("poll loop started", zap.Duration("interval", s.pollInterval))
}

// Stop cancels the pending poll tick. A tick already running finishes but
// does not reschedule. In-flight sends and their delivery progression
// continue.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	if s.pollTask != nil {
		s.pollTask.Stop()
		s.pollTask = nil
	}
	if s.stopWait != nil {
		s.stopWait()
		s.stopWait = nil
	}
	s.logger.Info("poll loop stopped")
}

// Wait blocks until every in-flight send has resolved and its delivery
// progression has finished.
func (s *Synchronizer) Wait() {
	s.inflight.Wait()
}

// scheduleTick arms the next tick of run gen. Callers hold s.mu.
func (s *Synchronizer) scheduleTick(gen uint64) {
	s.pollTask = s.sched.AfterFunc(s.pollInterval, func() { s.tick(gen) })
}

// tick polls once and re-arms itself, unless the loop was stopped or
// restarted while it ran.
func (s *Synchronizer) tick(gen uint64) {
	s.mu.Lock()
	if !s.running || s.runGen != gen {
		s.mu.Unlock()
		return
	}
	ctx := s.runCtx
	s.mu.Unlock()

	s.PollOnce(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.runGen == gen {
		s.scheduleTick(gen)
	}
}

// Chats returns the chat list, most recent first.
func (s *Synchronizer) Chats() []store.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.chats)
}

// Chat returns one chat.
func (s *Synchronizer) Chat(id string) (store.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.chatIndex(id)
	if i < 0 {
		return store.Chat{}, false
	}
	return s.chats[i], true
}

// Messages returns the message sequence of a chat in arrival order.
func (s *Synchronizer) Messages(chatID string) ([]store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chatIndex(chatID) < 0 {
		return nil, ErrChatNotFound
	}
	return slices.Clone(s.messages[chatID]), nil
}

// Cursor returns the poll watermark.
func (s *Synchronizer) Cursor() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Stats returns the number of chats and stored messages.
func (s *Synchronizer) Stats() (chats, messages int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seq := range s.messages {
		messages += len(seq)
	}
	return len(s.chats), messages
}

// Running reports whether the poll loop is scheduled.
func (s *Synchronizer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SessionID returns the identifier sent with every envelope.
func (s *Synchronizer) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Bus returns the hub events are published on.
func (s *Synchronizer) Bus() *bus.Bus {
	return s.bus
}

func (s *Synchronizer) publish(kind string, payload any) {
	s.bus.Publish(bus.Event{Kind: kind, Timestamp: s.sched.Now(), Payload: payload})
}

func (s *Synchronizer) nowMillis() int64 {
	return s.sched.Now().UnixMilli()
}

func (s *Synchronizer) defaultChat() store.Chat {
	return store.Chat{
		ID:              DefaultChatID,
		Name:            defaultChatName,
		LastMessageText: defaultChatText,
		LastMessageAt:   s.nowMillis(),
		Online:          true,
		Kind:            store.KindBot,
	}
}

// chatIndex returns the position of id in s.chats or -1. Callers hold s.mu.
func (s *Synchronizer) chatIndex(id string) int {
	return slices.IndexFunc(s.chats, func(c store.Chat) bool { return c.ID == id })
}

// sortChats orders chats by last activity, newest first. Callers hold s.mu.
func (s *Synchronizer) sortChats() {
	slices.SortStableFunc(s.chats, func(a, b store.Chat) int {
		return cmp.Compare(b.LastMessageAt, a.LastMessageAt)
	})
}
