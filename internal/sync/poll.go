package sync

import (
	"context"

	"github.com/matheus3301/hookchat/internal/status"
	"github.com/matheus3301/hookchat/internal/store"
	"go.uber.org/zap"
)

// PollOnce runs one poll tick and returns how many messages were merged.
// Calls are serialized. A failed fetch leaves every piece of state as it
// was.
func (s *Synchronizer) PollOnce(ctx context.Context) int {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	since := s.cursor
	s.mu.Unlock()

	batch := s.transport.Poll(ctx, since)
	if len(batch) == 0 {
		s.metrics.PollTick(0)
		return 0
	}

	s.mu.Lock()
	seen := make(map[string]bool, len(s.messages[DefaultChatID])+len(batch))
	for _, m := range s.messages[DefaultChatID] {
		seen[m.ID] = true
	}

	now := s.nowMillis()
	cursor := s.cursor
	var merged []store.Message
	for _, in := range batch {
		if in.Timestamp > cursor {
			cursor = in.Timestamp
		}
		if seen[in.ID] {
			s.logger.Debug("duplicate inbound message dropped", zap.String("msg_id", in.ID))
			continue
		}
		seen[in.ID] = true

		ts := in.Timestamp
		if ts <= 0 {
			ts = now
		}
		merged = append(merged, store.Message{
			ID:        in.ID,
			ChatID:    DefaultChatID,
			Text:      in.Text,
			Timestamp: ts,
			Direction: store.Inbound,
			Status:    status.Delivered,
			From:      in.From,
		})
	}

	if cursor != s.cursor {
		s.cursor = cursor
		s.store.SaveCursor(cursor)
	}

	var chat store.Chat
	if len(merged) > 0 {
		i := s.chatIndex(DefaultChatID)
		if i < 0 {
			s.chats = append(s.chats, s.defaultChat())
			i = len(s.chats) - 1
		}
		last := merged[len(merged)-1]
		s.chats[i].LastMessageText = last.Text
		s.chats[i].LastMessageAt = last.Timestamp
		s.chats[i].UnreadCount += len(merged)
		chat = s.chats[i]

		s.messages[DefaultChatID] = append(s.messages[DefaultChatID], merged...)
		s.sortChats()
		s.store.SaveMessages(DefaultChatID, s.messages[DefaultChatID])
		s.store.SaveChats(s.chats)
	}
	s.mu.Unlock()

	s.metrics.PollTick(len(merged))
	if len(merged) == 0 {
		return 0
	}

	s.logger.Info("inbound messages merged", zap.Int("count", len(merged)), zap.Int64("cursor", cursor))
	for _, m := range merged {
		s.publish(EventMessageReceived, m)
	}
	s.publish(EventChatUpdated, chat)
	return len(merged)
}
