package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/liminalpurple/sayangku/internal/chat"
	"github.com/liminalpurple/sayangku/internal/richtext"
	"github.com/liminalpurple/sayangku/internal/storage"
	"github.com/spf13/cobra"
)

// NewChatCmd creates the chat command and its subcommands
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send and read messages",
	}

	cmd.AddCommand(newChatSendCmd())
	cmd.AddCommand(newChatHistoryCmd())
	cmd.AddCommand(newChatTranslateCmd())
	return cmd
}

func newChatSendCmd() *cobra.Command {
	var replyTo int64
	var markdown bool

	cmd := &cobra.Command{
		Use:   "send <message>...",
		Short: "Send a message to your partner",
		Long: `Send a message to your partner.

The message is formatted markup: <b>, <i>, <u>, <s>, <font color="#hex">
and <spoiler>. With --markdown it is converted from markdown instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{matrix: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if a.matrix == nil || a.cfg.Matrix.RoomID == "" {
				fmt.Println("⚠️  Matrix room not configured, the message is only stored locally")
			}

			markup := strings.Join(args, " ")
			if markdown {
				markup = richtext.FromMarkdown(markup)
			}

			composer := chat.NewComposer()
			composer.Edit(func(e *richtext.Editor) { e.Load(markup) })
			if replyTo != 0 {
				composer.ReplyTo(replyTo)
			}

			msg, err := a.chat.Send(ctx, composer)
			if errors.Is(err, chat.ErrEmptyMessage) {
				return fmt.Errorf("nothing to send")
			} else if err != nil {
				return err
			}

			fmt.Printf("✅ Sent: %s\n", msg.Text)
			if msg.Translation != "" {
				fmt.Printf("   → %s\n", plainText(msg.Translation))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&replyTo, "reply", 0, "gallery photo id the message replies to")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "treat the message as markdown")
	return cmd
}

func newChatHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			msgs, err := a.chat.Messages()
			if err != nil {
				return err
			}
			if limit > 0 && len(msgs) > limit {
				msgs = msgs[len(msgs)-limit:]
			}
			for _, m := range msgs {
				printMessage(m)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of messages (0 for all)")
	return cmd
}

func newChatTranslateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "translate <message-id>",
		Short: "Translate a message in the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			msg, err := a.chat.Translate(cmd.Context(), id)
			if err != nil {
				return err
			}
			printMessage(msg)
			return nil
		},
	}
}

// printMessage prints a message as plain text with spoilers hidden
func printMessage(m storage.ChatMessage) {
	line := fmt.Sprintf("[%d] %s %s: %s", m.ID, m.Timestamp.Format("01-02 15:04"), m.Sender, plainText(string(m.Text)))
	if m.RepliedToImageID != 0 {
		line += fmt.Sprintf(" (re photo %d)", m.RepliedToImageID)
	}
	fmt.Println(line)
	if m.Translation != "" {
		fmt.Printf("      → %s\n", plainText(m.Translation))
	}
}

// plainText strips formatting from wire text and hides spoilers
func plainText(wire string) string {
	return richtext.PlainText(hideSpoilers(richtext.Decode(wire)))
}

// hideSpoilers replaces spoiler contents with block characters
func hideSpoilers(n *richtext.Node) *richtext.Node {
	if n.Kind == richtext.Spoiler {
		return richtext.T(strings.Repeat("█", richtext.Len(n)))
	}
	if len(n.Children) == 0 {
		return n
	}
	children := make([]*richtext.Node, len(n.Children))
	for i, c := range n.Children {
		children[i] = hideSpoilers(c)
	}
	out := *n
	out.Children = children
	return &out
}
