package client

import (
	"context"
	"fmt"

	"github.com/matheus3301/hookchat/internal/api"
	"github.com/matheus3301/hookchat/internal/status"
	"github.com/matheus3301/hookchat/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn *grpc.ClientConn
}

// New dials the daemon's Unix domain socket. The connection is established
// lazily on the first call.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// NewFromConn wraps an existing connection.
func NewFromConn(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any) (*Resp, error) {
	in, err := api.ToStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, api.FullMethod(method), in, out); err != nil {
		return nil, err
	}
	resp := new(Resp)
	if err := api.FromStruct(out, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	return invoke[api.StatusResponse](ctx, c, "GetStatus", api.Empty{})
}

func (c *Client) ListChats(ctx context.Context) ([]store.Chat, error) {
	resp, err := invoke[api.ChatList](ctx, c, "ListChats", api.Empty{})
	if err != nil {
		return nil, err
	}
	return resp.Chats, nil
}

func (c *Client) GetChat(ctx context.Context, chatID string) (store.Chat, error) {
	resp, err := invoke[api.ChatResponse](ctx, c, "GetChat", api.ChatRef{ChatID: chatID})
	if err != nil {
		return store.Chat{}, err
	}
	return resp.Chat, nil
}

func (c *Client) CreateChat(ctx context.Context, req api.CreateChatRequest) (store.Chat, error) {
	resp, err := invoke[api.ChatResponse](ctx, c, "CreateChat", req)
	if err != nil {
		return store.Chat{}, err
	}
	return resp.Chat, nil
}

func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	_, err := invoke[api.Empty](ctx, c, "DeleteChat", api.ChatRef{ChatID: chatID})
	return err
}

func (c *Client) MarkRead(ctx context.Context, chatID string) error {
	_, err := invoke[api.Empty](ctx, c, "MarkRead", api.ChatRef{ChatID: chatID})
	return err
}

func (c *Client) ListMessages(ctx context.Context, chatID string) ([]store.Message, error) {
	resp, err := invoke[api.MessageList](ctx, c, "ListMessages", api.ChatRef{ChatID: chatID})
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendText returns the optimistically inserted message, still pending.
func (c *Client) SendText(ctx context.Context, chatID, text string) (store.Message, error) {
	resp, err := invoke[api.SendTextResponse](ctx, c, "SendText", api.SendTextRequest{ChatID: chatID, Text: text})
	if err != nil {
		return store.Message{}, err
	}
	return resp.Message, nil
}

func (c *Client) UpdateStatus(ctx context.Context, chatID, msgID string, to status.Status) error {
	_, err := invoke[api.Empty](ctx, c, "UpdateStatus", api.UpdateStatusRequest{ChatID: chatID, MessageID: msgID, Status: to})
	return err
}

func (c *Client) ClearAll(ctx context.Context) error {
	_, err := invoke[api.Empty](ctx, c, "ClearAll", api.Empty{})
	return err
}

// EventStream receives events from a WatchEvents call.
type EventStream struct {
	stream grpc.ClientStream
}

// Recv blocks until the next event arrives or the stream ends.
func (s *EventStream) Recv() (*api.Event, error) {
	msg := new(structpb.Struct)
	if err := s.stream.RecvMsg(msg); err != nil {
		return nil, err
	}
	evt := new(api.Event)
	if err := api.FromStruct(msg, evt); err != nil {
		return nil, err
	}
	return evt, nil
}

// Watch opens an event stream filtered by namespace prefix. Cancel ctx to
// end it.
func (c *Client) Watch(ctx context.Context, namespace string) (*EventStream, error) {
	stream, err := c.conn.NewStream(ctx, &api.WatchEventsDesc, api.FullMethod("WatchEvents"))
	if err != nil {
		return nil, err
	}
	in, err := api.ToStruct(api.WatchRequest{Namespace: namespace})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{stream: stream}, nil
}
