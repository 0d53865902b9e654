package tui

import (
	"strings"

	"github.com/matheus3301/hookchat/internal/store"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

// NewChatArgs splits the arguments of :new into a name and a kind. A
// trailing word naming a valid kind is taken as the kind; everything else
// is the name.
func (c Command) NewChatArgs() (name string, kind store.Kind) {
	fields := strings.Fields(c.Args)
	if len(fields) > 1 {
		if k := store.Kind(strings.ToLower(fields[len(fields)-1])); k.Valid() {
			return strings.Join(fields[:len(fields)-1], " "), k
		}
	}
	return strings.Join(fields, " "), ""
}
