package model

import (
	"context"
	"errors"
	"testing"

	"github.com/matheus3301/hookchat/internal/api"
	"github.com/matheus3301/hookchat/internal/status"
	"github.com/matheus3301/hookchat/internal/store"
	intsync "github.com/matheus3301/hookchat/internal/sync"
)

type fakeClient struct {
	chats    []store.Chat
	messages map[string][]store.Message
	read     []string
	deleted  []string
	sendErr  error
}

func (f *fakeClient) Status(context.Context) (*api.StatusResponse, error) {
	return &api.StatusResponse{Profile: "test", ChatCount: len(f.chats)}, nil
}

func (f *fakeClient) ListChats(context.Context) ([]store.Chat, error) {
	return f.chats, nil
}

func (f *fakeClient) ListMessages(_ context.Context, chatID string) ([]store.Message, error) {
	msgs, ok := f.messages[chatID]
	if !ok {
		return nil, intsync.ErrChatNotFound
	}
	return msgs, nil
}

func (f *fakeClient) SendText(_ context.Context, chatID, text string) (store.Message, error) {
	if f.sendErr != nil {
		return store.Message{}, f.sendErr
	}
	return store.Message{ID: "out-1", ChatID: chatID, Text: text, Direction: store.Outbound, Status: status.Pending}, nil
}

func (f *fakeClient) CreateChat(_ context.Context, req api.CreateChatRequest) (store.Chat, error) {
	return store.Chat{ID: "new", Name: req.Name, Kind: req.Kind, LastMessageAt: 9000}, nil
}

func (f *fakeClient) DeleteChat(_ context.Context, chatID string) error {
	f.deleted = append(f.deleted, chatID)
	return nil
}

func (f *fakeClient) MarkRead(_ context.Context, chatID string) error {
	f.read = append(f.read, chatID)
	return nil
}

func (f *fakeClient) ClearAll(context.Context) error {
	f.chats = nil
	return nil
}

func newFake() *fakeClient {
	return &fakeClient{
		chats: []store.Chat{
			{ID: "a", Name: "Alice", LastMessageAt: 2000},
			{ID: "b", Name: "Bob", LastMessageAt: 1000},
		},
		messages: map[string][]store.Message{
			"a": {{ID: "m1", ChatID: "a", Text: "hi", Direction: store.Inbound, Status: status.Read}},
			"b": {},
		},
	}
}

func TestOpenChatMarksRead(t *testing.T) {
	fc := newFake()
	vm := NewViewModel(fc)
	ctx := context.Background()

	if err := vm.OpenChat(ctx, "a"); err != nil {
		t.Fatalf("OpenChat error = %v", err)
	}
	if vm.ActiveChatID() != "a" || len(vm.Messages()) != 1 {
		t.Errorf("active = %q, messages = %+v", vm.ActiveChatID(), vm.Messages())
	}
	if len(fc.read) != 1 || fc.read[0] != "a" {
		t.Errorf("read = %v", fc.read)
	}

	if err := vm.OpenChat(ctx, "missing"); !errors.Is(err, intsync.ErrChatNotFound) {
		t.Errorf("OpenChat(missing) error = %v", err)
	}
	if vm.ActiveChatID() != "a" {
		t.Error("failed open should keep the previous chat")
	}

	vm.CloseChat()
	if vm.ActiveChatID() != "" || vm.Messages() != nil {
		t.Error("CloseChat should clear the thread")
	}
}

func TestSendTextRequiresActiveChat(t *testing.T) {
	vm := NewViewModel(newFake())
	if err := vm.SendText(context.Background(), "hello"); !errors.Is(err, intsync.ErrChatNotFound) {
		t.Errorf("SendText without chat error = %v", err)
	}
}

func TestSendTextAppendsPending(t *testing.T) {
	vm := NewViewModel(newFake())
	ctx := context.Background()
	_ = vm.OpenChat(ctx, "b")

	if err := vm.SendText(ctx, "hello"); err != nil {
		t.Fatalf("SendText error = %v", err)
	}
	msgs := vm.Messages()
	if len(msgs) != 1 || msgs[0].Status != status.Pending {
		t.Fatalf("messages = %+v", msgs)
	}

	// The upserted event for the same message must not duplicate it.
	_, thread := vm.Apply(&api.Event{Kind: intsync.EventMessageUpserted, Message: &msgs[0]})
	if !thread || len(vm.Messages()) != 1 {
		t.Errorf("thread = %v, messages = %+v", thread, vm.Messages())
	}
}

func TestApplyChatEvents(t *testing.T) {
	vm := NewViewModel(newFake())
	ctx := context.Background()
	_ = vm.LoadChats(ctx)

	bob := store.Chat{ID: "b", Name: "Bob", LastMessageAt: 5000, UnreadCount: 1}
	chats, thread := vm.Apply(&api.Event{Kind: intsync.EventChatUpdated, Chat: &bob})
	if !chats || thread {
		t.Errorf("chat.updated = (%v, %v)", chats, thread)
	}
	list := vm.Chats()
	if len(list) != 2 || list[0].ID != "b" || list[0].UnreadCount != 1 {
		t.Errorf("chats = %+v", list)
	}

	carol := store.Chat{ID: "c", Name: "Carol", LastMessageAt: 100}
	vm.Apply(&api.Event{Kind: intsync.EventChatUpdated, Chat: &carol})
	if list := vm.Chats(); len(list) != 3 || list[2].ID != "c" {
		t.Errorf("chats after insert = %+v", list)
	}

	_ = vm.OpenChat(ctx, "a")
	alice := store.Chat{ID: "a"}
	chats, thread = vm.Apply(&api.Event{Kind: intsync.EventChatDeleted, Chat: &alice})
	if !chats || !thread {
		t.Errorf("chat.deleted of the open chat = (%v, %v)", chats, thread)
	}
	if vm.ActiveChatID() != "" {
		t.Error("deleting the open chat should close it")
	}
	if _, ok := vm.Chat("a"); ok {
		t.Error("deleted chat still cached")
	}
}

func TestApplyMessageEvents(t *testing.T) {
	vm := NewViewModel(newFake())
	ctx := context.Background()
	_ = vm.OpenChat(ctx, "b")

	other := store.Message{ID: "x", ChatID: "a", Text: "elsewhere"}
	if _, thread := vm.Apply(&api.Event{Kind: intsync.EventMessageReceived, Message: &other}); thread {
		t.Error("message for another chat should not touch the thread")
	}

	out := store.Message{ID: "o1", ChatID: "b", Direction: store.Outbound, Status: status.Pending}
	vm.Apply(&api.Event{Kind: intsync.EventMessageUpserted, Message: &out})

	change := func(to status.Status) bool {
		_, thread := vm.Apply(&api.Event{
			Kind:   intsync.EventMessageStatusChanged,
			Change: &status.Change{ChatID: "b", MessageID: "o1", To: to},
		})
		return thread
	}
	if !change(status.Sent) || !change(status.Delivered) {
		t.Fatal("forward status changes should apply")
	}
	if change(status.Sent) {
		t.Error("backward status change should be ignored")
	}
	if got := vm.Messages()[0].Status; got != status.Delivered {
		t.Errorf("status = %q, want delivered", got)
	}

	// A stale snapshot of the message does not roll it back.
	stale := out
	vm.Apply(&api.Event{Kind: intsync.EventMessageUpserted, Message: &stale})
	if got := vm.Messages()[0].Status; got != status.Delivered {
		t.Errorf("status after stale upsert = %q, want delivered", got)
	}
}

func TestCreateDeleteClear(t *testing.T) {
	fc := newFake()
	vm := NewViewModel(fc)
	ctx := context.Background()
	_ = vm.LoadChats(ctx)

	c, err := vm.CreateChat(ctx, "Dana", store.KindGroup)
	if err != nil || c.Kind != store.KindGroup {
		t.Fatalf("CreateChat = %+v, %v", c, err)
	}
	if list := vm.Chats(); list[0].ID != "new" {
		t.Errorf("new chat should sort first: %+v", list)
	}

	if err := vm.DeleteChat(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if _, ok := vm.Chat("b"); ok || len(fc.deleted) != 1 {
		t.Errorf("delete not applied: %v", fc.deleted)
	}

	if err := vm.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	if len(vm.Chats()) != 0 {
		t.Errorf("chats after clear = %+v", vm.Chats())
	}

	if err := vm.LoadStatus(ctx); err != nil || vm.Status().Profile != "test" {
		t.Errorf("status = %+v, %v", vm.Status(), err)
	}
}
