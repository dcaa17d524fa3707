package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/liminalpurple/sayangku/internal/gallery"
	"github.com/liminalpurple/sayangku/internal/llm"
	"github.com/liminalpurple/sayangku/internal/richtext"
	"github.com/liminalpurple/sayangku/internal/storage"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

const (
	commandPrefix = "!sayang"
	packName      = "Sayangku"
)

// handleCommand processes my own text messages looking for !sayang commands
func (b *Bot) handleCommand(ctx context.Context, evt *event.Event) {
	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok {
		return
	}

	// Skip edits, including our own command results
	if content.RelatesTo != nil && content.RelatesTo.Type == event.RelReplace {
		return
	}
	if content.MsgType != event.MsgText {
		return
	}

	body := strings.TrimSpace(content.Body)
	if !strings.HasPrefix(body, commandPrefix) {
		return
	}

	log.Printf("Processing command: %s", body)
	result := b.executeCommand(ctx, body)

	if err := b.editMessage(ctx, evt.RoomID, evt.ID, body, result); err != nil {
		log.Printf("Error editing message: %v", err)
	}
}

// showHelp returns a help message with all available commands
func (b *Bot) showHelp() string {
	return "Gallery:\n\n" +
		"- !sayang gallery [fav] - List photos, newest first\n" +
		"- !sayang fav <photo-id> - Toggle a photo as favourite\n\n" +
		"Stickers:\n\n" +
		"- !sayang stickers - Show the sticker library\n" +
		"- !sayang publish [room-id] - Publish stickers to a room (or all saved)\n\n" +
		"Language:\n\n" +
		"- !sayang translate <lang> <text> - Translate text\n" +
		"- !sayang define <lang> <word> - Define a word\n" +
		"- !sayang examples <lang> <word> - Example sentences\n\n" +
		"**React to an image with `!sticker` to add it to the library, or `!save` to keep it in the gallery!**"
}

// executeCommand parses and executes a !sayang command
func (b *Bot) executeCommand(ctx context.Context, body string) string {
	args := strings.Fields(strings.TrimPrefix(strings.TrimSpace(body), commandPrefix))
	if len(args) == 0 {
		return b.showHelp()
	}

	switch args[0] {
	case "gallery":
		return b.galleryList(len(args) > 1 && args[1] == "fav")
	case "fav":
		if len(args) < 2 {
			return "❌ Usage: !sayang fav <photo-id>"
		}
		return b.galleryFav(args[1])
	case "stickers":
		return b.stickerList(ctx)
	case "publish":
		roomID := ""
		if len(args) >= 2 {
			roomID = args[1]
		}
		return b.publish(ctx, roomID)
	case "translate", "define", "examples":
		if len(args) < 3 {
			return fmt.Sprintf("❌ Usage: !sayang %s <en|id|ar> <text>", args[0])
		}
		return b.language(ctx, args[0], args[1], strings.Join(args[2:], " "))
	default:
		return fmt.Sprintf("❌ Unknown command: %s\n\n%s", args[0], b.showHelp())
	}
}

// galleryList lists photos newest first
func (b *Bot) galleryList(favoritesOnly bool) string {
	images := b.gallery.List(favoritesOnly)
	if len(images) == 0 {
		if favoritesOnly {
			return "No favourites yet"
		}
		return "Gallery is empty"
	}

	var result strings.Builder
	for i, img := range images {
		star := ""
		if img.IsFavorite {
			star = " ★"
		}
		fmt.Fprintf(&result, "%d. `%d` from %s%s (%d stickers)\n", i+1, img.ID, img.User, star, len(img.Stickers))
	}
	return result.String()
}

// galleryFav toggles a photo's favourite flag
func (b *Bot) galleryFav(arg string) string {
	imageID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Sprintf("❌ Invalid photo id: %s", arg)
	}

	img, err := b.gallery.ToggleFavorite(imageID)
	if errors.Is(err, gallery.ErrNotFound) {
		return fmt.Sprintf("❌ Photo not found: %d", imageID)
	} else if err != nil {
		return fmt.Sprintf("❌ Error updating photo: %v", err)
	}

	if img.IsFavorite {
		return fmt.Sprintf("✅ Added %d to favourites", imageID)
	}
	return fmt.Sprintf("✅ Removed %d from favourites", imageID)
}

// stickerList summarises the sticker library
func (b *Bot) stickerList(ctx context.Context) string {
	stickers, err := b.gallery.Library(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Error loading stickers: %v", err)
	}
	if len(stickers) == 0 {
		return "Sticker library is empty\n\nReact to an image with `!sticker` to add one"
	}

	var result strings.Builder
	fmt.Fprintf(&result, "%d sticker(s) in the library\n\n", len(stickers))
	for i, s := range stickers {
		fmt.Fprintf(&result, "%d. aspect %.2f\n", i+1, s.AspectRatio)
	}
	return result.String()
}

// publish publishes the library to a room, or to every room it was published to
func (b *Bot) publish(ctx context.Context, roomID string) string {
	stickers, err := b.gallery.Library(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Error loading stickers: %v", err)
	}

	if roomID == "" {
		pub, err := storage.LoadPublication(b.dataDir)
		if err != nil {
			return fmt.Sprintf("❌ Error loading publication: %v", err)
		}
		if len(pub.Rooms) == 0 {
			return "❌ Stickers have not been published to any rooms yet\n\nUse: !sayang publish <room-id>"
		}

		successCount := 0
		var errs []string
		for savedRoomID := range pub.Rooms {
			if _, err := b.client.PublishLibrary(ctx, b.dataDir, stickers, id.RoomID(savedRoomID), packName); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", savedRoomID, err))
			} else {
				successCount++
			}
		}
		if len(errs) > 0 {
			return fmt.Sprintf("⚠️ Published to %d/%d rooms\n\nErrors:\n%s", successCount, len(pub.Rooms), strings.Join(errs, "\n"))
		}
		return fmt.Sprintf("✅ Published stickers to %d room(s)", successCount)
	}

	if !strings.HasPrefix(roomID, "!") {
		return "❌ Invalid room ID - must start with !\n\nExample: !roomid:matrix.org"
	}

	n, err := b.client.PublishLibrary(ctx, b.dataDir, stickers, id.RoomID(roomID), packName)
	if err != nil {
		return fmt.Sprintf("❌ Error publishing stickers: %v", err)
	}
	return fmt.Sprintf("✅ Published %d sticker(s) to room %s", n, roomID)
}

// language runs a translate, define or examples request
func (b *Bot) language(ctx context.Context, op, langArg, text string) string {
	if b.assistant == nil {
		return "❌ No Anthropic API key configured"
	}

	target, err := storage.ParseLanguage(langArg)
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}
	source, perr := storage.ParseLanguage(b.config.Chat.Language)
	if perr != nil {
		source = storage.English
	}

	var out string
	switch op {
	case "translate":
		out, err = b.assistant.Translate(ctx, text, storage.LanguageName(source), storage.LanguageName(target))
	case "define":
		out, err = b.assistant.Define(ctx, text, storage.LanguageName(target))
	case "examples":
		out, err = b.assistant.Examples(ctx, text, storage.LanguageName(target), storage.LanguageName(source))
	}
	if err != nil {
		log.Printf("%s failed: %v", op, err)
		if errors.Is(err, llm.ErrServiceFailed) {
			return "❌ " + err.Error()
		}
		return "❌ Something went wrong, please try again"
	}
	return out
}

// editMessage edits a message to show the command result
func (b *Bot) editMessage(ctx context.Context, roomID id.RoomID, eventID id.EventID, originalBody, result string) error {
	newBody := fmt.Sprintf("%s\n\n%s", originalBody, result)
	formattedBody := richtext.FromMarkdown(newBody)

	content := &event.MessageEventContent{
		MsgType:       event.MsgText,
		Body:          newBody,
		Format:        event.FormatHTML,
		FormattedBody: formattedBody,
		NewContent: &event.MessageEventContent{
			MsgType:       event.MsgText,
			Body:          newBody,
			Format:        event.FormatHTML,
			FormattedBody: formattedBody,
		},
		RelatesTo: &event.RelatesTo{
			Type:    event.RelReplace,
			EventID: eventID,
		},
	}

	_, err := b.client.SendMessageEvent(ctx, roomID, event.EventMessage, content)
	return err
}
