package client

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/hookchat/internal/api"
	"github.com/matheus3301/hookchat/internal/observability"
	"github.com/matheus3301/hookchat/internal/schedule"
	"github.com/matheus3301/hookchat/internal/status"
	"github.com/matheus3301/hookchat/internal/store"
	intsync "github.com/matheus3301/hookchat/internal/sync"
	"github.com/matheus3301/hookchat/internal/webhook"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

type okTransport struct{}

func (okTransport) Send(context.Context, store.Message, string) (webhook.Ack, error) {
	return webhook.Ack{StatusCode: 200}, nil
}

func (okTransport) Poll(context.Context, int64) []webhook.Inbound { return nil }

func startServer(t *testing.T) (*Client, *intsync.Synchronizer) {
	t.Helper()
	// Short path for the Unix socket length limit.
	dir, err := os.MkdirTemp("/tmp", "hookchat-client-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	socketPath := filepath.Join(dir, "d.sock")

	var n int
	s := intsync.New(intsync.Options{
		Transport: okTransport{},
		Scheduler: schedule.NewManual(time.UnixMilli(1000)),
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
	s.Load()

	srv := grpc.NewServer(grpc.UnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()))
	api.RegisterChatService(srv, api.NewChatService(s, api.Info{Profile: "client-test"}, nil))

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Serve(listener) }()
	t.Cleanup(srv.Stop)

	c, err := New(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, s
}

func TestClientRoundTrip(t *testing.T) {
	c, _ := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st, err := c.Status(ctx)
	if err != nil {
		t.Fatalf("Status error = %v", err)
	}
	if st.Profile != "client-test" || st.ChatCount != 1 {
		t.Errorf("status = %+v", st)
	}

	chat, err := c.CreateChat(ctx, api.CreateChatRequest{Name: "Bob", Kind: store.KindGroup})
	if err != nil {
		t.Fatal(err)
	}
	if chat.Name != "Bob" || chat.Kind != store.KindGroup {
		t.Errorf("chat = %+v", chat)
	}

	chats, err := c.ListChats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 2 || chats[0].ID != chat.ID {
		t.Errorf("chats = %+v", chats)
	}

	msg, err := c.SendText(ctx, chat.ID, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if msg.Status != status.Pending || msg.Timestamp <= 0 {
		t.Errorf("message = %+v", msg)
	}

	msgs, err := c.ListMessages(ctx, chat.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].ID != msg.ID {
		t.Errorf("messages = %+v", msgs)
	}

	if err := c.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetChat(ctx, chat.ID); grpcstatus.Code(err) != codes.NotFound {
		t.Errorf("GetChat after clear err = %v", err)
	}
}

func TestClientErrorCodes(t *testing.T) {
	c, _ := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := c.SendText(ctx, "missing", "hi"); grpcstatus.Code(err) != codes.NotFound {
		t.Errorf("send to unknown chat err = %v", err)
	}
	if _, err := c.SendText(ctx, intsync.DefaultChatID, ""); grpcstatus.Code(err) != codes.InvalidArgument {
		t.Errorf("empty send err = %v", err)
	}
	if err := c.UpdateStatus(ctx, intsync.DefaultChatID, "nope", status.Read); grpcstatus.Code(err) != codes.NotFound {
		t.Errorf("update unknown message err = %v", err)
	}
	if err := c.DeleteChat(ctx, "missing"); grpcstatus.Code(err) != codes.NotFound {
		t.Errorf("delete unknown chat err = %v", err)
	}
}

func TestClientWatch(t *testing.T) {
	c, s := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := c.Watch(ctx, "chat.")
	if err != nil {
		t.Fatal(err)
	}

	events := make(chan *api.Event, 1)
	go func() {
		for {
			evt, err := stream.Recv()
			if err != nil {
				close(events)
				return
			}
			select {
			case events <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()

	// The server subscribes asynchronously; publish until one event arrives.
	for {
		if _, err := s.CreateChat(intsync.ChatInput{Name: "watched"}); err != nil {
			t.Fatal(err)
		}
		select {
		case evt, ok := <-events:
			if !ok {
				t.Fatal("stream closed before any event")
			}
			if evt.Kind != intsync.EventChatUpdated || evt.Chat == nil || evt.Chat.Name != "watched" {
				t.Errorf("event = %+v", evt)
			}
			return
		case <-time.After(20 * time.Millisecond):
		case <-ctx.Done():
			t.Fatal("no event received")
		}
	}
}
