package sync

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/matheus3301/hookchat/internal/status"
	"github.com/matheus3301/hookchat/internal/store"
	"github.com/matheus3301/hookchat/internal/webhook"
	"go.uber.org/zap"
)

// Send inserts text into chatID as a pending message, hands it to the
// transport and returns the message once it is sent or failed. Delivered
// and read follow on the scheduler.
func (s *Synchronizer) Send(ctx context.Context, chatID, text string) (store.Message, error) {
	msg, err := s.insertPending(chatID, text)
	if err != nil {
		return store.Message{}, err
	}
	s.inflight.Add(1)
	return s.deliver(ctx, msg), nil
}

// SendAsync inserts text into chatID as a pending message and returns it
// immediately. Delivery continues in the background; Wait blocks on it.
func (s *Synchronizer) SendAsync(chatID, text string) (store.Message, error) {
	msg, err := s.insertPending(chatID, text)
	if err != nil {
		return store.Message{}, err
	}
	s.inflight.Add(1)
	go s.deliver(context.Background(), msg)
	return msg, nil
}

// ValidateText trims text and checks it against the length limit.
func (s *Synchronizer) ValidateText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyMessage
	}
	if n := utf8.RuneCountInString(trimmed); n > s.maxLength {
		return "", fmt.Errorf("%w: %d > %d", ErrMessageTooLong, n, s.maxLength)
	}
	return trimmed, nil
}

// insertPending is the optimistic half of a send: the message is visible
// and persisted before any network activity.
func (s *Synchronizer) insertPending(chatID, text string) (store.Message, error) {
	trimmed, err := s.ValidateText(text)
	if err != nil {
		return store.Message{}, err
	}

	s.mu.Lock()
	i := s.chatIndex(chatID)
	if i < 0 {
		s.mu.Unlock()
		return store.Message{}, fmt.Errorf("%w: %s", ErrChatNotFound, chatID)
	}

	ts := s.nowMillis()
	if ts <= s.lastSent {
		ts = s.lastSent + 1
	}
	s.lastSent = ts

	msg := store.Message{
		ID:        s.newID(),
		ChatID:    chatID,
		Text:      trimmed,
		Timestamp: ts,
		Direction: store.Outbound,
		Status:    status.Pending,
	}
	s.messages[chatID] = append(s.messages[chatID], msg)
	s.chats[i].LastMessageText = trimmed
	s.chats[i].LastMessageAt = ts
	chat := s.chats[i]
	s.sortChats()

	s.store.SaveMessages(chatID, s.messages[chatID])
	s.store.SaveChats(s.chats)
	s.mu.Unlock()

	s.publish(EventMessageUpserted, msg)
	s.publish(EventChatUpdated, chat)
	return msg, nil
}

// deliver runs the transport call and resolves msg to sent or failed. The
// caller has already added msg to s.inflight.
func (s *Synchronizer) deliver(ctx context.Context, msg store.Message) store.Message {
	_, err := s.transport.Send(ctx, msg, s.SessionID())
	kind := webhook.Classify(err)
	s.metrics.SendResult(kind)

	if err != nil {
		s.logger.Warn("send failed",
			zap.String("chat_id", msg.ChatID),
			zap.String("msg_id", msg.ID),
			zap.String("failure", string(kind)),
			zap.Error(err))
		s.resolve(msg, status.Failed)
		s.inflight.Done()
		msg.Status = status.Failed
		return msg
	}

	s.logger.Info("message sent", zap.String("chat_id", msg.ChatID), zap.String("msg_id", msg.ID))
	if err := s.resolve(msg, status.Sent); err != nil {
		s.inflight.Done()
		return msg
	}
	msg.Status = status.Sent
	s.simulateDelivery(msg)
	return msg
}

func (s *Synchronizer) resolve(msg store.Message, to status.Status) error {
	err := s.UpdateStatus(msg.ChatID, msg.ID, to)
	if err != nil {
		s.logger.Debug("status update skipped",
			zap.String("msg_id", msg.ID),
			zap.String("to", string(to)),
			zap.Error(err))
	}
	return err
}

// simulateDelivery moves msg to delivered after deliveredDelay and to read
// after readDelay, both measured from now. The read task is scheduled by the
// delivered task so the two always run in that order.
func (s *Synchronizer) simulateDelivery(msg store.Message) {
	readAfter := max(s.readDelay-s.deliveredDelay, 0)
	s.sched.AfterFunc(s.deliveredDelay, func() {
		if err := s.resolve(msg, status.Delivered); err != nil {
			s.inflight.Done()
			return
		}
		s.sched.AfterFunc(readAfter, func() {
			defer s.inflight.Done()
			_ = s.resolve(msg, status.Read)
		})
	})
}

// UpdateStatus moves an outbound message forward in its lifecycle. Writing
// the current status again is a no-op.
func (s *Synchronizer) UpdateStatus(chatID, msgID string, to status.Status) error {
	s.mu.Lock()
	if s.chatIndex(chatID) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrChatNotFound, chatID)
	}
	seq := s.messages[chatID]
	i := slices.IndexFunc(seq, func(m store.Message) bool { return m.ID == msgID })
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrMessageNotFound, msgID)
	}
	if seq[i].Direction != store.Outbound {
		s.mu.Unlock()
		return fmt.Errorf("%w: inbound message %s", status.ErrInvalidTransition, msgID)
	}

	from := seq[i].Status
	next, changed, err := status.Transition(from, to)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	seq[i].Status = next
	s.store.SaveMessages(chatID, seq)
	s.mu.Unlock()

	s.publish(EventMessageStatusChanged, status.Change{
		ChatID:    chatID,
		MessageID: msgID,
		From:      from,
		To:        next,
	})
	return nil
}
