package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/hookchat/internal/api"
	"github.com/matheus3301/hookchat/internal/lock"
	"github.com/matheus3301/hookchat/internal/profile"
	"github.com/matheus3301/hookchat/internal/status"
	"github.com/matheus3301/hookchat/internal/store"
)

func TestArgsValidatedBeforeConnect(t *testing.T) {
	t.Setenv(profile.HomeEnv, t.TempDir())
	tests := [][]string{
		{"send", "bot_assistant"},
		{"messages"},
		{"new-chat", "a", "group", "extra"},
		{"status", "extra"},
	}
	for _, args := range tests {
		root := newRootCmd()
		root.SetArgs(args)
		root.SetOut(&bytes.Buffer{})
		err := root.Execute()
		if err == nil || strings.Contains(err.Error(), "daemon not running") {
			t.Errorf("%v: error = %v, want an argument error", args, err)
		}
	}
}

func TestDaemonNotRunning(t *testing.T) {
	t.Setenv(profile.HomeEnv, t.TempDir())
	root := newRootCmd()
	root.SetArgs([]string{"--profile", "work", "chats"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), `profile "work"`) {
		t.Errorf("error = %v", err)
	}
}

func TestInvalidProfile(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--profile", "Bad Name", "chats"})
	if err := root.Execute(); err == nil {
		t.Error("invalid profile name should fail")
	}
}

func TestPrintMessage(t *testing.T) {
	var b bytes.Buffer
	printMessage(&b, store.Message{Text: "hi", Direction: store.Inbound, Status: status.Read})
	printMessage(&b, store.Message{Text: "yo", Direction: store.Outbound, Status: status.Sent, From: "x"})
	out := b.String()
	if !strings.Contains(out, "them: hi (read)") || !strings.Contains(out, "me: yo (sent)") {
		t.Errorf("output = %q", out)
	}
}

func TestPrintChatsAndStatus(t *testing.T) {
	var b bytes.Buffer
	printChats(&b, nil)
	if b.String() != "No chats.\n" {
		t.Errorf("empty = %q", b.String())
	}

	b.Reset()
	printChats(&b, []store.Chat{{ID: "c1", Name: "Alice", Kind: store.KindIndividual, UnreadCount: 3}})
	if !strings.Contains(b.String(), "Alice") || !strings.Contains(b.String(), "(3)") {
		t.Errorf("chats = %q", b.String())
	}

	b.Reset()
	printStatus(&b, &api.StatusResponse{
		Profile: "main", Polling: true, Cursor: 42, UptimeMs: 61000,
		StoreMode: "sqlite", StoredChats: 2, StoredMessages: 5,
	}, lock.Owner{PID: 7, Started: time.Now()})
	for _, want := range []string{"Profile:  main", "PID 7", "running (cursor 42)", "1m1s", "2 chats, 5 messages"} {
		if !strings.Contains(b.String(), want) {
			t.Errorf("status missing %q: %q", want, b.String())
		}
	}
}

func TestPrintEvent(t *testing.T) {
	var b bytes.Buffer
	printEvent(&b, &api.Event{Kind: "message.status_changed", Change: &status.Change{ChatID: "c", MessageID: "m", From: status.Sent, To: status.Delivered}})
	printEvent(&b, &api.Event{Kind: "chat.deleted", Chat: &store.Chat{ID: "c", Name: "Alice"}})
	out := b.String()
	if !strings.Contains(out, "c/m sent -> delivered") || !strings.Contains(out, `chat.deleted c "Alice"`) {
		t.Errorf("output = %q", out)
	}
}
