package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"maunium.net/go/mautrix/id"
)

// packName is the display name of the published sticker pack
const packName = "Sayangku"

// NewStickerCmd creates the sticker command and its subcommands
func NewStickerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sticker",
		Short: "Manage the sticker library",
	}

	cmd.AddCommand(newStickerImportCmd())
	cmd.AddCommand(newStickerListCmd())
	cmd.AddCommand(newStickerPublishCmd())
	return cmd
}

func newStickerImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Add images to the sticker library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			imported := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					fmt.Printf("❌ %s: %v\n", path, err)
					continue
				}
				sticker, err := a.gallery.ImportSticker(ctx, data)
				if err != nil {
					fmt.Printf("❌ %s: %v\n", path, err)
					continue
				}
				fmt.Printf("✅ %s (aspect %.2f)\n", path, sticker.AspectRatio)
				imported++
			}

			if imported < len(args) {
				return fmt.Errorf("imported %d of %d stickers", imported, len(args))
			}
			return nil
		},
	}
}

func newStickerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the sticker library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			stickers, err := a.gallery.Library(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%d sticker(s) in the library\n", len(stickers))
			for i, s := range stickers {
				fmt.Printf("%d. aspect %.2f  %s\n", i, s.AspectRatio, truncate(s.Src, 48))
			}
			return nil
		},
	}
}

func newStickerPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish [room-id]",
		Short: "Publish the library to a room as an MSC2545 sticker pack",
		Long: `Upload the sticker library and publish it to a Matrix room as an
im.ponies.room_emotes state event. Defaults to the configured chat room.
Images already uploaded are reused.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{matrix: true, requireM: true})
			if err != nil {
				return err
			}
			defer a.Close()

			roomID := a.cfg.Matrix.RoomID
			if len(args) == 1 {
				roomID = args[0]
			}
			if roomID == "" {
				return fmt.Errorf("no room given and no room_id configured")
			}

			stickers, err := a.gallery.Library(ctx)
			if err != nil {
				return err
			}
			n, err := a.matrix.PublishLibrary(ctx, a.cfg.Storage.DataDir, stickers, id.RoomID(roomID), packName)
			if err != nil {
				return err
			}
			fmt.Printf("✅ Published %d sticker(s) to %s\n", n, roomID)
			return nil
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
