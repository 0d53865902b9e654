package model

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/matheus3301/hookchat/internal/api"
	"github.com/matheus3301/hookchat/internal/status"
	"github.com/matheus3301/hookchat/internal/store"
	intsync "github.com/matheus3301/hookchat/internal/sync"
)

// Client is the part of the daemon API the view model uses.
type Client interface {
	Status(ctx context.Context) (*api.StatusResponse, error)
	ListChats(ctx context.Context) ([]store.Chat, error)
	ListMessages(ctx context.Context, chatID string) ([]store.Message, error)
	SendText(ctx context.Context, chatID, text string) (store.Message, error)
	CreateChat(ctx context.Context, req api.CreateChatRequest) (store.Chat, error)
	DeleteChat(ctx context.Context, chatID string) error
	MarkRead(ctx context.Context, chatID string) error
	ClearAll(ctx context.Context) error
}

// ViewModel caches daemon state for the views. Loads replace the cache;
// Apply folds streamed events into it.
type ViewModel struct {
	mu sync.RWMutex

	client       Client
	status       *api.StatusResponse
	chats        []store.Chat
	messages     []store.Message
	activeChatID string
}

// NewViewModel creates a new view model connected to the daemon client.
func NewViewModel(c Client) *ViewModel {
	return &ViewModel{client: c}
}

// LoadStatus fetches the daemon status.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	resp, err := vm.client.Status(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = resp
	vm.mu.Unlock()
	return nil
}

// LoadChats fetches the chat list.
func (vm *ViewModel) LoadChats(ctx context.Context) error {
	chats, err := vm.client.ListChats(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.chats = chats
	vm.mu.Unlock()
	return nil
}

// OpenChat makes chatID the active chat, loads its messages and resets its
// unread counter.
func (vm *ViewModel) OpenChat(ctx context.Context, chatID string) error {
	msgs, err := vm.client.ListMessages(ctx, chatID)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.activeChatID = chatID
	vm.messages = msgs
	vm.mu.Unlock()
	return vm.client.MarkRead(ctx, chatID)
}

// CloseChat clears the active chat.
func (vm *ViewModel) CloseChat() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.activeChatID = ""
	vm.messages = nil
}

// SendText sends text to the active chat. The pending message is merged
// right away; later status changes arrive as events.
func (vm *ViewModel) SendText(ctx context.Context, text string) error {
	chatID := vm.ActiveChatID()
	if chatID == "" {
		return intsync.ErrChatNotFound
	}
	msg, err := vm.client.SendText(ctx, chatID, text)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.upsertMessage(msg)
	vm.mu.Unlock()
	return nil
}

// CreateChat creates a chat and adds it to the cache.
func (vm *ViewModel) CreateChat(ctx context.Context, name string, kind store.Kind) (store.Chat, error) {
	c, err := vm.client.CreateChat(ctx, api.CreateChatRequest{Name: name, Kind: kind})
	if err != nil {
		return store.Chat{}, err
	}
	vm.mu.Lock()
	vm.upsertChat(c)
	vm.mu.Unlock()
	return c, nil
}

// DeleteChat deletes a chat and drops it from the cache.
func (vm *ViewModel) DeleteChat(ctx context.Context, chatID string) error {
	if err := vm.client.DeleteChat(ctx, chatID); err != nil {
		return err
	}
	vm.mu.Lock()
	vm.removeChat(chatID)
	vm.mu.Unlock()
	return nil
}

// MarkRead resets the unread counter of a chat.
func (vm *ViewModel) MarkRead(ctx context.Context, chatID string) error {
	return vm.client.MarkRead(ctx, chatID)
}

// ClearAll wipes the daemon state and reloads the chat list.
func (vm *ViewModel) ClearAll(ctx context.Context) error {
	if err := vm.client.ClearAll(ctx); err != nil {
		return err
	}
	vm.CloseChat()
	return vm.LoadChats(ctx)
}

// Apply folds a streamed event into the cache. It reports whether the chat
// list and the active thread changed.
func (vm *ViewModel) Apply(evt *api.Event) (chatsChanged, threadChanged bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	switch evt.Kind {
	case intsync.EventChatUpdated:
		if evt.Chat != nil {
			vm.upsertChat(*evt.Chat)
			return true, false
		}
	case intsync.EventChatDeleted:
		if evt.Chat != nil {
			active := evt.Chat.ID == vm.activeChatID
			vm.removeChat(evt.Chat.ID)
			return true, active
		}
	case intsync.EventMessageUpserted, intsync.EventMessageReceived:
		if evt.Message != nil && evt.Message.ChatID == vm.activeChatID {
			vm.upsertMessage(*evt.Message)
			return false, true
		}
	case intsync.EventMessageStatusChanged:
		if evt.Change != nil && evt.Change.ChatID == vm.activeChatID {
			for i := range vm.messages {
				if vm.messages[i].ID == evt.Change.MessageID {
					if !status.CanTransition(vm.messages[i].Status, evt.Change.To) {
						return false, false
					}
					vm.messages[i].Status = evt.Change.To
					return false, true
				}
			}
		}
	}
	return false, false
}

// upsertChat replaces or inserts c and restores the activity order.
// Callers hold vm.mu.
func (vm *ViewModel) upsertChat(c store.Chat) {
	i := slices.IndexFunc(vm.chats, func(x store.Chat) bool { return x.ID == c.ID })
	if i >= 0 {
		vm.chats[i] = c
	} else {
		vm.chats = append([]store.Chat{c}, vm.chats...)
	}
	slices.SortStableFunc(vm.chats, func(a, b store.Chat) int {
		return cmp.Compare(b.LastMessageAt, a.LastMessageAt)
	})
}

func (vm *ViewModel) removeChat(id string) {
	vm.chats = slices.DeleteFunc(vm.chats, func(c store.Chat) bool { return c.ID == id })
	if vm.activeChatID == id {
		vm.activeChatID = ""
		vm.messages = nil
	}
}

// upsertMessage keeps one entry per id; new messages are appended.
func (vm *ViewModel) upsertMessage(m store.Message) {
	if m.ChatID != vm.activeChatID {
		return
	}
	for i := range vm.messages {
		if vm.messages[i].ID == m.ID {
			// A stale snapshot never moves status backwards.
			cur := vm.messages[i].Status
			if cur == m.Status || status.CanTransition(cur, m.Status) {
				vm.messages[i] = m
			}
			return
		}
	}
	vm.messages = append(vm.messages, m)
}

// Chats returns a snapshot of the chat list.
func (vm *ViewModel) Chats() []store.Chat {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return slices.Clone(vm.chats)
}

// Chat returns one cached chat.
func (vm *ViewModel) Chat(id string) (store.Chat, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	i := slices.IndexFunc(vm.chats, func(c store.Chat) bool { return c.ID == id })
	if i < 0 {
		return store.Chat{}, false
	}
	return vm.chats[i], true
}

// Messages returns a snapshot of the active chat's messages.
func (vm *ViewModel) Messages() []store.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return slices.Clone(vm.messages)
}

// ActiveChatID returns the chat on display, or "".
func (vm *ViewModel) ActiveChatID() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.activeChatID
}

// Status returns the last fetched daemon status.
func (vm *ViewModel) Status() *api.StatusResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}
