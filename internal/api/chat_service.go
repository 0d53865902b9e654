package api

import (
	"context"
	"errors"
	"time"

	"github.com/matheus3301/hookchat/internal/bus"
	"github.com/matheus3301/hookchat/internal/status"
	"github.com/matheus3301/hookchat/internal/store"
	intsync "github.com/matheus3301/hookchat/internal/sync"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

const watchBuffer = 256

// Counter reports what the durable store holds.
type Counter interface {
	ChatCount() (int64, error)
	MessageCount() (int64, error)
}

// Info is the static part of a GetStatus response. Stored is nil when the
// daemon runs on the memory store.
type Info struct {
	Profile   string
	StoreMode string
	SendURL   string
	PollURL   string
	Stored    Counter
}

// ChatService implements ChatServiceServer on top of a Synchronizer.
type ChatService struct {
	sync    *intsync.Synchronizer
	info    Info
	started time.Time
	logger  *zap.Logger
}

var _ ChatServiceServer = (*ChatService)(nil)

// NewChatService creates a new chat service backed by the synchronizer.
func NewChatService(s *intsync.Synchronizer, info Info, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{sync: s, info: info, started: time.Now(), logger: logger.Named("api")}
}

func (s *ChatService) GetStatus(_ context.Context, _ *Empty) (*StatusResponse, error) {
	chats, messages := s.sync.Stats()
	resp := &StatusResponse{
		Profile:      s.info.Profile,
		SessionID:    s.sync.SessionID(),
		Polling:      s.sync.Running(),
		Cursor:       s.sync.Cursor(),
		ChatCount:    chats,
		MessageCount: messages,
		UptimeMs:     time.Since(s.started).Milliseconds(),
		StoreMode:    s.info.StoreMode,
		SendURL:      s.info.SendURL,
		PollURL:      s.info.PollURL,
	}
	if s.info.Stored != nil {
		var err error
		if resp.StoredChats, err = s.info.Stored.ChatCount(); err != nil {
			s.logger.Warn("count stored chats", zap.Error(err))
		}
		if resp.StoredMessages, err = s.info.Stored.MessageCount(); err != nil {
			s.logger.Warn("count stored messages", zap.Error(err))
		}
	}
	return resp, nil
}

func (s *ChatService) ListChats(_ context.Context, _ *Empty) (*ChatList, error) {
	return &ChatList{Chats: s.sync.Chats()}, nil
}

func (s *ChatService) GetChat(_ context.Context, req *ChatRef) (*ChatResponse, error) {
	c, ok := s.sync.Chat(req.ChatID)
	if !ok {
		return nil, grpcstatus.Errorf(codes.NotFound, "chat %q not found", req.ChatID)
	}
	return &ChatResponse{Chat: c}, nil
}

func (s *ChatService) CreateChat(_ context.Context, req *CreateChatRequest) (*ChatResponse, error) {
	c, err := s.sync.CreateChat(intsync.ChatInput{
		Name:      req.Name,
		Kind:      req.Kind,
		AvatarRef: req.Avatar,
		Online:    req.Online,
	})
	if err != nil {
		return nil, toStatus("create chat", err)
	}
	return &ChatResponse{Chat: c}, nil
}

func (s *ChatService) DeleteChat(_ context.Context, req *ChatRef) (*Empty, error) {
	if err := s.sync.DeleteChat(req.ChatID); err != nil {
		return nil, toStatus("delete chat", err)
	}
	return &Empty{}, nil
}

func (s *ChatService) MarkRead(_ context.Context, req *ChatRef) (*Empty, error) {
	if err := s.sync.MarkRead(req.ChatID); err != nil {
		return nil, toStatus("mark read", err)
	}
	return &Empty{}, nil
}

func (s *ChatService) ListMessages(_ context.Context, req *ChatRef) (*MessageList, error) {
	msgs, err := s.sync.Messages(req.ChatID)
	if err != nil {
		return nil, toStatus("list messages", err)
	}
	return &MessageList{Messages: msgs}, nil
}

// SendText inserts the message optimistically and returns it as pending;
// the transport result arrives later as a status change event.
func (s *ChatService) SendText(_ context.Context, req *SendTextRequest) (*SendTextResponse, error) {
	msg, err := s.sync.SendAsync(req.ChatID, req.Text)
	if err != nil {
		return nil, toStatus("send text", err)
	}
	return &SendTextResponse{Message: msg}, nil
}

func (s *ChatService) UpdateStatus(_ context.Context, req *UpdateStatusRequest) (*Empty, error) {
	if err := s.sync.UpdateStatus(req.ChatID, req.MessageID, req.Status); err != nil {
		return nil, toStatus("update status", err)
	}
	return &Empty{}, nil
}

func (s *ChatService) ClearAll(_ context.Context, _ *Empty) (*Empty, error) {
	s.sync.ClearAll()
	s.logger.Info("state cleared by client")
	return &Empty{}, nil
}

func (s *ChatService) WatchEvents(req *WatchRequest, stream EventStream) error {
	ch, unsub := s.sync.Bus().SubscribeChan(req.Namespace, watchBuffer)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			if err := stream.Send(ToEvent(evt)); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

// ToEvent converts a hub event to its wire form.
func ToEvent(evt bus.Event) *Event {
	out := &Event{Kind: evt.Kind, Timestamp: evt.Timestamp.UnixMilli()}
	switch p := evt.Payload.(type) {
	case store.Chat:
		out.Chat = &p
	case store.Message:
		out.Message = &p
	case status.Change:
		out.Change = &p
	}
	return out
}

func toStatus(op string, err error) error {
	switch {
	case errors.Is(err, intsync.ErrChatNotFound), errors.Is(err, intsync.ErrMessageNotFound):
		return grpcstatus.Errorf(codes.NotFound, "%s: %v", op, err)
	case errors.Is(err, intsync.ErrEmptyMessage),
		errors.Is(err, intsync.ErrMessageTooLong),
		errors.Is(err, intsync.ErrEmptyChatName),
		errors.Is(err, intsync.ErrInvalidKind),
		errors.Is(err, status.ErrInvalidTransition):
		return grpcstatus.Errorf(codes.InvalidArgument, "%s: %v", op, err)
	default:
		return grpcstatus.Errorf(codes.Internal, "%s: %v", op, err)
	}
}
