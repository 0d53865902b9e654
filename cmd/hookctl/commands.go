package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/matheus3301/hookchat/internal/api"
	"github.com/matheus3301/hookchat/internal/client"
	"github.com/matheus3301/hookchat/internal/lock"
	"github.com/matheus3301/hookchat/internal/profile"
	"github.com/matheus3301/hookchat/internal/store"
	"github.com/spf13/cobra"
)

const callTimeout = 10 * time.Second

// cli holds the flags and the daemon connection shared by every command.
type cli struct {
	profile string
	json    bool

	owner  lock.Owner
	client *client.Client
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:               "hookctl",
		Short:             "Control a running hookchatd daemon",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.connect,
		PersistentPostRun: func(*cobra.Command, []string) { c.close() },
	}
	root.PersistentFlags().StringVar(&c.profile, "profile", "", "profile name (overrides config default)")
	root.PersistentFlags().BoolVar(&c.json, "json", false, "output in JSON format")

	root.AddCommand(
		c.statusCmd(),
		c.chatsCmd(),
		c.messagesCmd(),
		c.sendCmd(),
		c.newChatCmd(),
		c.deleteChatCmd(),
		c.readCmd(),
		c.clearCmd(),
		c.watchCmd(),
	)
	return root
}

// connect resolves the profile and dials its daemon. The lock file gives
// a clear error before any RPC times out.
func (c *cli) connect(*cobra.Command, []string) error {
	name := profile.Resolve(c.profile)
	if err := profile.ValidateName(name); err != nil {
		return err
	}
	owner, held := lock.Holder(profile.LockPath(name))
	if !held {
		return fmt.Errorf("daemon not running for profile %q (start hookchatd --profile %s)", name, name)
	}
	cl, err := client.New(profile.SocketPath(name))
	if err != nil {
		return fmt.Errorf("cannot connect to daemon for profile %q: %w", name, err)
	}
	c.profile, c.owner, c.client = name, owner, cl
	return nil
}

func (c *cli) close() {
	if c.client != nil {
		_ = c.client.Close()
	}
}

// run wraps a unary call with the standard timeout.
func (c *cli) run(fn func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
		defer cancel()
		return fn(ctx, cmd, args)
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			resp, err := c.client.Status(ctx)
			if err != nil {
				return err
			}
			if c.json {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			printStatus(cmd.OutOrStdout(), resp, c.owner)
			return nil
		}),
	}
}

func (c *cli) chatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List chats, most recent first",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			chats, err := c.client.ListChats(ctx)
			if err != nil {
				return err
			}
			if c.json {
				return writeJSON(cmd.OutOrStdout(), chats)
			}
			printChats(cmd.OutOrStdout(), chats)
			return nil
		}),
	}
}

func (c *cli) messagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "messages <chat>",
		Short: "List the messages of a chat",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			msgs, err := c.client.ListMessages(ctx, args[0])
			if err != nil {
				return err
			}
			if c.json {
				return writeJSON(cmd.OutOrStdout(), msgs)
			}
			if len(msgs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No messages.")
			}
			for _, m := range msgs {
				printMessage(cmd.OutOrStdout(), m)
			}
			return nil
		}),
	}
}

func (c *cli) sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <chat> <text...>",
		Short: "Send a text message",
		Args:  cobra.MinimumNArgs(2),
		RunE: c.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			msg, err := c.client.SendText(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if c.json {
				return writeJSON(cmd.OutOrStdout(), msg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s (%s)\n", msg.ID, msg.Status)
			return nil
		}),
	}
}

func (c *cli) newChatCmd() *cobra.Command {
	var avatar string
	var online bool
	cmd := &cobra.Command{
		Use:   "new-chat <name> [individual|group|bot]",
		Short: "Create a chat",
		Args:  cobra.RangeArgs(1, 2),
		RunE: c.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			req := api.CreateChatRequest{Name: args[0], Avatar: avatar, Online: online}
			if len(args) > 1 {
				req.Kind = store.Kind(args[1])
			}
			chat, err := c.client.CreateChat(ctx, req)
			if err != nil {
				return err
			}
			if c.json {
				return writeJSON(cmd.OutOrStdout(), chat)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", chat.ID, chat.Name)
			return nil
		}),
	}
	cmd.Flags().StringVar(&avatar, "avatar", "", "avatar reference")
	cmd.Flags().BoolVar(&online, "online", false, "mark the chat online")
	return cmd
}

func (c *cli) deleteChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-chat <chat>",
		Short: "Delete a chat and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			if err := c.client.DeleteChat(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		}),
	}
}

func (c *cli) readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <chat>",
		Short: "Reset the unread counter",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			if err := c.client.MarkRead(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as read\n", args[0])
			return nil
		}),
	}
}

func (c *cli) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all chats and messages",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			if err := c.client.ClearAll(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All chats and messages cleared.")
			return nil
		}),
	}
}

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [namespace]",
		Short: "Stream events, optionally filtered by namespace (e.g. message.)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns := ""
			if len(args) > 0 {
				ns = args[0]
			}
			stream, err := c.client.Watch(cmd.Context(), ns)
			if err != nil {
				return err
			}
			for {
				evt, err := stream.Recv()
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return err
				}
				if c.json {
					if err := writeJSON(cmd.OutOrStdout(), evt); err != nil {
						return err
					}
					continue
				}
				printEvent(cmd.OutOrStdout(), evt)
			}
		},
	}
}

func printStatus(w io.Writer, resp *api.StatusResponse, owner lock.Owner) {
	polling := "stopped"
	if resp.Polling {
		polling = "running"
	}
	fmt.Fprintf(w, "Profile:  %s\n", resp.Profile)
	if owner.PID != 0 {
		fmt.Fprintf(w, "Daemon:   PID %d, started %s\n", owner.PID, owner.Started.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "Session:  %s\n", resp.SessionID)
	fmt.Fprintf(w, "Store:    %s\n", resp.StoreMode)
	fmt.Fprintf(w, "Polling:  %s (cursor %d)\n", polling, resp.Cursor)
	fmt.Fprintf(w, "Chats:    %d\n", resp.ChatCount)
	fmt.Fprintf(w, "Messages: %d\n", resp.MessageCount)
	if resp.StoreMode == "sqlite" {
		fmt.Fprintf(w, "On disk:  %d chats, %d messages\n", resp.StoredChats, resp.StoredMessages)
	}
	fmt.Fprintf(w, "Send URL: %s\n", resp.SendURL)
	fmt.Fprintf(w, "Poll URL: %s\n", resp.PollURL)
	fmt.Fprintf(w, "Uptime:   %s\n", time.Duration(resp.UptimeMs)*time.Millisecond)
}

func printChats(w io.Writer, chats []store.Chat) {
	if len(chats) == 0 {
		fmt.Fprintln(w, "No chats.")
		return
	}
	for _, ch := range chats {
		unread := ""
		if ch.UnreadCount > 0 {
			unread = fmt.Sprintf(" (%d)", ch.UnreadCount)
		}
		fmt.Fprintf(w, "%-24s %-20s %-10s %s%s\n", ch.ID, ch.Name, ch.Kind, formatTime(ch.LastMessageAt), unread)
	}
}

func printEvent(w io.Writer, evt *api.Event) {
	switch {
	case evt.Message != nil:
		fmt.Fprintf(w, "%s ", evt.Kind)
		printMessage(w, *evt.Message)
	case evt.Change != nil:
		fmt.Fprintf(w, "%s %s/%s %s -> %s\n", evt.Kind, evt.Change.ChatID, evt.Change.MessageID, evt.Change.From, evt.Change.To)
	case evt.Chat != nil:
		fmt.Fprintf(w, "%s %s %q unread=%d\n", evt.Kind, evt.Chat.ID, evt.Chat.Name, evt.Chat.UnreadCount)
	default:
		fmt.Fprintln(w, evt.Kind)
	}
}

func printMessage(w io.Writer, m store.Message) {
	who := "me"
	if m.Direction == store.Inbound {
		who = m.From
		if who == "" {
			who = "them"
		}
	}
	fmt.Fprintf(w, "[%s] %s: %s (%s)\n", formatTime(m.Timestamp), who, m.Text, m.Status)
}

func formatTime(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
