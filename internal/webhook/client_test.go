package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matheus3301/hookchat/internal/status"
	"github.com/matheus3301/hookchat/internal/store"
)

var testIdentity = Identity{ID: "u1", Name: "Ana", Phone: "+1555"}

func testMessage() store.Message {
	return store.Message{
		ID: "m1", ChatID: "bot_assistant", Text: "Hello", Timestamp: 1000,
		Direction: store.Outbound, Status: status.Pending,
	}
}

func TestSendEnvelope(t *testing.T) {
	var got Envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode envelope: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(Options{SendURL: srv.URL, Identity: testIdentity})
	ack, err := c.Send(context.Background(), testMessage(), "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if ack.StatusCode != http.StatusOK || string(ack.Body) != `{"ok":true}` {
		t.Errorf("ack = %d %s", ack.StatusCode, ack.Body)
	}

	want := Envelope{
		MessageID: "m1", Text: "Hello", Timestamp: 1000,
		UserID: "u1", UserName: "Ana", UserPhone: "+1555",
		SessionID: "sess-1", Source: Source,
	}
	if got != want {
		t.Errorf("envelope = %+v, want %+v", got, want)
	}
}

func TestSendRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("workflow down"))
	}))
	defer srv.Close()

	c := New(Options{SendURL: srv.URL, Identity: testIdentity})
	_, err := c.Send(context.Background(), testMessage(), "")

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("err = %v, want *RemoteError", err)
	}
	if remote.StatusCode != http.StatusBadGateway || remote.Body != "workflow down" {
		t.Errorf("remote = %+v", remote)
	}
	if Classify(err) != FailureRemote {
		t.Errorf("Classify = %q, want remote", Classify(err))
	}
}

func TestSendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Options{SendURL: url, Identity: testIdentity})
	_, err := c.Send(context.Background(), testMessage(), "")
	if Classify(err) != FailureUnreachable {
		t.Errorf("Classify(%v) = %q, want unreachable", err, Classify(err))
	}
}

func TestSendTimeoutIsUnreachable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The body must be consumed before the server notices the client hang up.
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(Options{SendURL: srv.URL, SendTimeout: 50 * time.Millisecond})
	_, err := c.Send(context.Background(), testMessage(), "")
	if Classify(err) != FailureUnreachable {
		t.Errorf("Classify(%v) = %q, want unreachable", err, Classify(err))
	}
}

func TestSendLocalError(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty url", ""},
		{"malformed url", "http://[::1"},
		{"missing scheme", "localhost:3001/api/relay/webhook"},
		{"unsupported scheme", "ftp://example.com/hook"},
		{"missing host", "http:///hook"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Options{SendURL: tt.url})
			_, err := c.Send(context.Background(), testMessage(), "")
			if Classify(err) != FailureLocal {
				t.Errorf("Classify(%v) = %q, want local", err, Classify(err))
			}
		})
	}
}

func TestPollQueryAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Query().Get("userId") != "u1" || r.URL.Query().Get("since") != "1000" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"messages":[{"id":"m1","text":"hi","from":"+1555","timestamp":2000}]}`))
	}))
	defer srv.Close()

	c := New(Options{PollURL: srv.URL, Identity: testIdentity})
	got := c.Poll(context.Background(), 1000)
	if len(got) != 1 {
		t.Fatalf("got %d messages, want 1", len(got))
	}
	want := Inbound{ID: "m1", Text: "hi", From: "+1555", Timestamp: 2000}
	if got[0] != want {
		t.Errorf("got %+v, want %+v", got[0], want)
	}
}

func TestPollFailuresYieldEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"messages":`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := New(Options{PollURL: srv.URL, PollTimeout: 50 * time.Millisecond})
			if got := c.Poll(context.Background(), 0); len(got) != 0 {
				t.Errorf("got %v, want empty", got)
			}
		})
	}
}

func TestParseInbound(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing messages", `{}`, 0},
		{"messages not array", `{"messages":"nope"}`, 0},
		{"empty array", `{"messages":[]}`, 0},
		{"skips entries without text", `{"messages":[{"id":"a"},{"id":"b","text":"x"}]}`, 1},
		{"skips non-objects", `{"messages":[1,"two",{"id":"c","text":"y"}]}`, 1},
		{"not json", `nope`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseInbound([]byte(tt.body)); len(got) != tt.want {
				t.Errorf("got %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestParseInboundDerivesMissingID(t *testing.T) {
	body := []byte(`{"messages":[{"text":"hi","from":"+1","timestamp":7}]}`)
	got := ParseInbound(body)
	if len(got) != 1 || got[0].ID == "" {
		t.Fatalf("got %+v, want one entry with a derived id", got)
	}
	again := ParseInbound(body)
	if again[0].ID != got[0].ID {
		t.Errorf("derived id not stable: %q then %q", got[0].ID, again[0].ID)
	}
}

func TestParseInboundDerivedIDsKeepDistinctMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"same sender and timestamp", `{"messages":[
			{"text":"first","from":"+1555","timestamp":2000},
			{"text":"second","from":"+1555","timestamp":2000}]}`},
		{"missing timestamps", `{"messages":[
			{"text":"first","from":"+1555"},
			{"text":"second","from":"+1555"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseInbound([]byte(tt.body))
			if len(got) != 2 {
				t.Fatalf("got %d messages, want 2", len(got))
			}
			if got[0].ID == got[1].ID {
				t.Errorf("distinct messages share id %q", got[0].ID)
			}
		})
	}
}
