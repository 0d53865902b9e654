package sync

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matheus3301/hookchat/internal/store"
	"go.uber.org/zap"
)

// ChatInput describes a chat created by the user.
type ChatInput struct {
	Name      string
	Kind      store.Kind
	AvatarRef string
	Online    bool
}

// CreateChat adds a new chat at the top of the list.
func (s *Synchronizer) CreateChat(in ChatInput) (store.Chat, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return store.Chat{}, ErrEmptyChatName
	}
	kind := in.Kind
	if kind == "" {
		kind = store.KindIndividual
	}
	if !kind.Valid() {
		return store.Chat{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	chat := store.Chat{
		ID:            s.newID(),
		Name:          name,
		AvatarRef:     in.AvatarRef,
		LastMessageAt: s.nowMillis(),
		Online:        in.Online,
		Kind:          kind,
	}

	s.mu.Lock()
	s.chats = append([]store.Chat{chat}, s.chats...)
	s.store.SaveChats(s.chats)
	s.mu.Unlock()

	s.logger.Info("chat created", zap.String("chat_id", chat.ID), zap.String("kind", string(kind)))
	s.publish(EventChatUpdated, chat)
	return chat, nil
}

// DeleteChat removes a chat and its whole message sequence.
func (s *Synchronizer) DeleteChat(id string) error {
	s.mu.Lock()
	i := s.chatIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}
	chat := s.chats[i]
	s.chats = slices.Delete(s.chats, i, i+1)
	delete(s.messages, id)
	s.store.SaveChats(s.chats)
	s.store.SaveMessages(id, nil)
	s.mu.Unlock()

	s.logger.Info("chat deleted", zap.String("chat_id", id))
	s.publish(EventChatDeleted, chat)
	return nil
}

// MarkRead resets the unread counter of a chat.
func (s *Synchronizer) MarkRead(id string) error {
	s.mu.Lock()
	i := s.chatIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}
	if s.chats[i].UnreadCount == 0 {
		s.mu.Unlock()
		return nil
	}
	s.chats[i].UnreadCount = 0
	chat := s.chats[i]
	s.store.SaveChats(s.chats)
	s.mu.Unlock()

	s.publish(EventChatUpdated, chat)
	return nil
}

// ClearAll wipes every chat and message, reseeds the default chat and
// rotates the session id. The poll cursor is kept so cleared history is not
// fetched again.
func (s *Synchronizer) ClearAll() {
	s.mu.Lock()
	s.store.ClearAll()
	s.messages = make(map[string][]store.Message)
	chat := s.defaultChat()
	s.chats = []store.Chat{chat}
	s.store.SaveChats(s.chats)
	s.sessionID = s.newID()
	s.store.SetSessionID(s.sessionID)
	s.mu.Unlock()

	s.logger.Info("state cleared")
	s.publish(EventChatUpdated, chat)
}
