package tui

import (
	"testing"

	"github.com/matheus3301/hookchat/internal/store"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  Command
	}{
		{"quit", Command{Name: "quit"}},
		{"  Chat  Alice Smith ", Command{Name: "chat", Args: "Alice Smith"}},
		{"new", Command{Name: "new"}},
		{"", Command{Name: ""}},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.input); got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestNewChatArgs(t *testing.T) {
	tests := []struct {
		args     string
		wantName string
		wantKind store.Kind
	}{
		{"Alice", "Alice", ""},
		{"Team Room group", "Team Room", store.KindGroup},
		{"Helper BOT", "Helper", store.KindBot},
		{"Mr Robot", "Mr Robot", ""},
		// A lone kind word is a name.
		{"group", "group", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		name, kind := Command{Name: "new", Args: tt.args}.NewChatArgs()
		if name != tt.wantName || kind != tt.wantKind {
			t.Errorf("NewChatArgs(%q) = (%q, %q), want (%q, %q)", tt.args, name, kind, tt.wantName, tt.wantKind)
		}
	}
}
