package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/liminalpurple/sayangku/internal/overlay"
	"github.com/liminalpurple/sayangku/internal/storage"
	"github.com/spf13/cobra"
)

// NewGalleryCmd creates the gallery command and its subcommands
func NewGalleryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Manage the shared photo gallery",
	}

	cmd.AddCommand(newGalleryListCmd())
	cmd.AddCommand(newGalleryAddCmd())
	cmd.AddCommand(newGalleryFavCmd())
	cmd.AddCommand(newGalleryRemoveCmd())
	cmd.AddCommand(newGalleryPlaceCmd())
	return cmd
}

func newGalleryListCmd() *cobra.Command {
	var favorites bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List gallery photos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			images := a.gallery.List(favorites)
			if len(images) == 0 {
				fmt.Println("No photos yet")
				return nil
			}
			for _, img := range images {
				star := ""
				if img.IsFavorite {
					star = " ★"
				}
				fmt.Printf("%d  %s  from %s%s  (%d stickers)\n",
					img.ID, img.CreatedAt.Format("2006-01-02 15:04"), img.User, star, len(img.Stickers))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&favorites, "fav", false, "only favourites")
	return cmd
}

func newGalleryAddCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Add a photo to the gallery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read photo: %w", err)
			}
			info, err := storage.GetImageInfo(data)
			if err != nil {
				return fmt.Errorf("not a supported image: %w", err)
			}

			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if user == "" {
				user = a.cfg.Chat.DisplayName
			}
			img := a.gallery.Add(storage.DataURL(data, info.MimeType), user)
			fmt.Printf("✅ Added photo %d (%dx%d)\n", img.ID, info.Width, info.Height)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "who added the photo (default chat.display_name)")
	return cmd
}

func newGalleryFavCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fav <id>",
		Short: "Toggle a photo's favourite flag",
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

			img, err := a.gallery.ToggleFavorite(id)
			if err != nil {
				return err
			}
			if img.IsFavorite {
				fmt.Printf("★ Photo %d is now a favourite\n", id)
			} else {
				fmt.Printf("Photo %d is no longer a favourite\n", id)
			}
			return nil
		},
	}
}

func newGalleryRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a photo from the gallery",
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

			if err := a.gallery.Delete(id); err != nil {
				return err
			}
			fmt.Printf("🗑️  Removed photo %d\n", id)
			return nil
		},
	}
}

func newGalleryPlaceCmd() *cobra.Command {
	var x, y, width float64

	cmd := &cobra.Command{
		Use:   "place <photo-id> <sticker-index>",
		Short: "Place a library sticker on a photo",
		Long: `Place a sticker from the library on a photo and commit it.

Positions are percentages of the photo: --x and --y are the sticker's
centre and --width its width. The sticker starts centred at 20% width.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			imageID, err := parseID(args[0])
			if err != nil {
				return err
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid sticker index: %s", args[1])
			}

			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			placed, err := placeSticker(cmd.Context(), a, imageID, index, x, y, width)
			if err != nil {
				return err
			}
			fmt.Printf("✅ Placed sticker %d at (%.1f%%, %.1f%%), width %.1f%%\n", placed.ID, placed.X, placed.Y, placed.Width)
			return nil
		},
	}

	cmd.Flags().Float64Var(&x, "x", overlay.DefaultX, "centre x, percent of photo width")
	cmd.Flags().Float64Var(&y, "y", overlay.DefaultY, "centre y, percent of photo height")
	cmd.Flags().Float64Var(&width, "width", overlay.DefaultWidth, "width, percent of photo width")
	return cmd
}

// placeSticker runs a scripted editor session. On a 100x100 container
// pointer pixels equal percentages, so the drags land exactly.
func placeSticker(ctx context.Context, a *app, imageID int64, index int, x, y, width float64) (overlay.PlacedSticker, error) {
	if err := a.gallery.Open(imageID, &overlay.Viewport{Width: 100, Height: 100}); err != nil {
		return overlay.PlacedSticker{}, err
	}

	placed, err := a.gallery.PlaceFromLibrary(ctx, imageID, index)
	if err != nil {
		return overlay.PlacedSticker{}, err
	}

	err = a.gallery.Do(imageID, func(sess *overlay.Session) error {
		sess.BeginInteraction(placed.ID, overlay.Move, placed.X, placed.Y)
		sess.UpdateInteraction(x, y)
		sess.BeginInteraction(placed.ID, overlay.Resize, 0, 0)
		sess.UpdateInteraction(width-placed.Width, 0)
		sess.EndInteraction()

		placed, _ = sess.Sticker(placed.ID)
		return nil
	})
	if err != nil {
		return overlay.PlacedSticker{}, err
	}

	if _, err := a.gallery.Commit(imageID); err != nil {
		return overlay.PlacedSticker{}, err
	}
	return placed, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id: %s", s)
	}
	return id, nil
}
