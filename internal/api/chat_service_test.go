package api

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/matheus3301/hookchat/internal/bus"
	"github.com/matheus3301/hookchat/internal/schedule"
	"github.com/matheus3301/hookchat/internal/status"
	"github.com/matheus3301/hookchat/internal/store"
	intsync "github.com/matheus3301/hookchat/internal/sync"
	"github.com/matheus3301/hookchat/internal/webhook"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

type stubTransport struct{}

func (stubTransport) Send(context.Context, store.Message, string) (webhook.Ack, error) {
	return webhook.Ack{StatusCode: 200}, nil
}

func (stubTransport) Poll(context.Context, int64) []webhook.Inbound { return nil }

func newService(t *testing.T) (*ChatService, *intsync.Synchronizer) {
	t.Helper()
	var n int
	s := intsync.New(intsync.Options{
		Transport: stubTransport{},
		Scheduler: schedule.NewManual(time.UnixMilli(1000)),
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
	s.Load()
	return NewChatService(s, Info{Profile: "test", StoreMode: "memory"}, nil), s
}

func TestCodecKeepsMillisecondTimestamps(t *testing.T) {
	in := SendTextResponse{Message: store.Message{
		ID: "m1", ChatID: "c1", Text: "hi", Timestamp: 1735689600123,
		Direction: store.Outbound, Status: status.Pending,
	}}
	st, err := ToStruct(in)
	if err != nil {
		t.Fatal(err)
	}
	var out SendTextResponse
	if err := FromStruct(st, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("decoded = %+v, want %+v", out, in)
	}
}

func TestFromStructNil(t *testing.T) {
	req := ChatRef{ChatID: "keep"}
	if err := FromStruct(nil, &req); err != nil {
		t.Fatal(err)
	}
	if req.ChatID != "keep" {
		t.Errorf("ChatID = %q", req.ChatID)
	}
}

func TestToStatusCodes(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{intsync.ErrChatNotFound, codes.NotFound},
		{intsync.ErrMessageNotFound, codes.NotFound},
		{intsync.ErrEmptyMessage, codes.InvalidArgument},
		{intsync.ErrMessageTooLong, codes.InvalidArgument},
		{intsync.ErrEmptyChatName, codes.InvalidArgument},
		{fmt.Errorf("wrap: %w", intsync.ErrInvalidKind), codes.InvalidArgument},
		{fmt.Errorf("%w: read -> sent", status.ErrInvalidTransition), codes.InvalidArgument},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		if got := grpcstatus.Code(toStatus("op", tt.err)); got != tt.want {
			t.Errorf("toStatus(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestToEventPayloads(t *testing.T) {
	ts := time.UnixMilli(5000)
	chat := ToEvent(bus.Event{Kind: intsync.EventChatUpdated, Timestamp: ts, Payload: store.Chat{ID: "c1"}})
	if chat.Chat == nil || chat.Chat.ID != "c1" || chat.Timestamp != 5000 {
		t.Errorf("chat event = %+v", chat)
	}
	msg := ToEvent(bus.Event{Kind: intsync.EventMessageReceived, Timestamp: ts, Payload: store.Message{ID: "m1"}})
	if msg.Message == nil || msg.Message.ID != "m1" || msg.Chat != nil {
		t.Errorf("message event = %+v", msg)
	}
	change := ToEvent(bus.Event{Kind: intsync.EventMessageStatusChanged, Timestamp: ts, Payload: status.Change{To: status.Sent}})
	if change.Change == nil || change.Change.To != status.Sent {
		t.Errorf("change event = %+v", change)
	}
	other := ToEvent(bus.Event{Kind: "x", Timestamp: ts, Payload: 42})
	if other.Chat != nil || other.Message != nil || other.Change != nil {
		t.Errorf("unknown payload event = %+v", other)
	}
}

func TestServiceChatsAndMessages(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	list, err := svc.ListChats(ctx, &Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Chats) != 1 || list.Chats[0].ID != intsync.DefaultChatID {
		t.Fatalf("chats = %+v", list.Chats)
	}

	created, err := svc.CreateChat(ctx, &CreateChatRequest{Name: "Alice"})
	if err != nil {
		t.Fatal(err)
	}
	if created.Chat.Kind != store.KindIndividual {
		t.Errorf("kind = %q", created.Chat.Kind)
	}

	if _, err := svc.CreateChat(ctx, &CreateChatRequest{Name: " "}); grpcstatus.Code(err) != codes.InvalidArgument {
		t.Errorf("empty name err = %v", err)
	}
	if _, err := svc.GetChat(ctx, &ChatRef{ChatID: "nope"}); grpcstatus.Code(err) != codes.NotFound {
		t.Errorf("get unknown err = %v", err)
	}

	sent, err := svc.SendText(ctx, &SendTextRequest{ChatID: created.Chat.ID, Text: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if sent.Message.Status != status.Pending || sent.Message.Text != "hello" {
		t.Errorf("sent = %+v", sent.Message)
	}
	if _, err := svc.SendText(ctx, &SendTextRequest{ChatID: created.Chat.ID, Text: "  "}); grpcstatus.Code(err) != codes.InvalidArgument {
		t.Errorf("empty text err = %v", err)
	}

	msgs, err := svc.ListMessages(ctx, &ChatRef{ChatID: created.Chat.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs.Messages) != 1 {
		t.Errorf("messages = %+v", msgs.Messages)
	}

	if _, err := svc.DeleteChat(ctx, &ChatRef{ChatID: created.Chat.ID}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ListMessages(ctx, &ChatRef{ChatID: created.Chat.ID}); grpcstatus.Code(err) != codes.NotFound {
		t.Errorf("messages of deleted chat err = %v", err)
	}
}

func TestServiceStatus(t *testing.T) {
	svc, s := newService(t)
	resp, err := svc.GetStatus(context.Background(), &Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Profile != "test" || resp.StoreMode != "memory" {
		t.Errorf("info = %+v", resp)
	}
	if resp.SessionID != s.SessionID() || resp.SessionID == "" {
		t.Errorf("session = %q", resp.SessionID)
	}
	if resp.ChatCount != 1 || resp.MessageCount != 0 || resp.Polling {
		t.Errorf("counts = %+v", resp)
	}
	if resp.StoredChats != 0 || resp.StoredMessages != 0 {
		t.Errorf("memory store reported stored rows: %+v", resp)
	}
}

type fixedCounter struct {
	chats, messages int64
	err             error
}

func (c fixedCounter) ChatCount() (int64, error)    { return c.chats, c.err }
func (c fixedCounter) MessageCount() (int64, error) { return c.messages, c.err }

func TestServiceStatusReportsStoredCounts(t *testing.T) {
	_, s := newService(t)
	svc := NewChatService(s, Info{Profile: "test", StoreMode: "sqlite", Stored: fixedCounter{chats: 3, messages: 12}}, nil)

	resp, err := svc.GetStatus(context.Background(), &Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.StoredChats != 3 || resp.StoredMessages != 12 {
		t.Errorf("stored = %d chats, %d messages, want 3, 12", resp.StoredChats, resp.StoredMessages)
	}

	failing := NewChatService(s, Info{Stored: fixedCounter{chats: 9, err: errors.New("disk gone")}}, nil)
	resp, err = failing.GetStatus(context.Background(), &Empty{})
	if err != nil {
		t.Fatalf("count failure should not fail GetStatus: %v", err)
	}
	if resp.ChatCount != 1 {
		t.Errorf("chat count = %d, want 1", resp.ChatCount)
	}
}

type captureStream struct {
	ctx  context.Context
	sent chan *Event
}

func (c *captureStream) Send(evt *Event) error {
	c.sent <- evt
	return nil
}

func (c *captureStream) Context() context.Context { return c.ctx }

func TestWatchEventsFiltersNamespace(t *testing.T) {
	svc, s := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	stream := &captureStream{ctx: ctx, sent: make(chan *Event, 8)}

	done := make(chan error, 1)
	go func() { done <- svc.WatchEvents(&WatchRequest{Namespace: "chat."}, stream) }()

	// Publish until the subscription is in place.
	deadline := time.After(2 * time.Second)
	var got *Event
	for got == nil {
		if _, err := s.CreateChat(intsync.ChatInput{Name: "watched"}); err != nil {
			t.Fatal(err)
		}
		select {
		case got = <-stream.sent:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatal("no event received")
		}
	}
	if got.Kind != intsync.EventChatUpdated || got.Chat == nil {
		t.Errorf("event = %+v", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("WatchEvents returned %v", err)
	}
}
