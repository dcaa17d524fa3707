package bot

import (
	"context"
	"fmt"
	"log"

	"github.com/liminalpurple/sayangku/internal/storage"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// reactionAction is what a reaction command does with the image it is on
type reactionAction int

const (
	actionNone reactionAction = iota
	actionSticker
	actionSave
)

// reactionCommands maps reaction keys to actions
var reactionCommands = map[string]reactionAction{
	"!sticker": actionSticker,
	"!yoink":   actionSticker,
	"!save":    actionSave,
	"📌":        actionSave,
}

// processReaction collects the reacted-to image as a sticker or gallery photo
func (b *Bot) processReaction(ctx context.Context, evt *event.Event) error {
	content, ok := evt.Content.Parsed.(*event.ReactionEventContent)
	if !ok {
		return fmt.Errorf("failed to parse reaction content")
	}

	action := reactionCommands[content.RelatesTo.Key]
	if action == actionNone {
		return nil
	}

	parent, err := b.client.GetEvent(ctx, evt.RoomID, content.RelatesTo.EventID)
	if err != nil {
		return fmt.Errorf("failed to get parent event: %w", err)
	}
	// Fetched events arrive unparsed
	_ = parent.Content.ParseRaw(parent.Type)

	mxcURI, body, err := extractImageData(parent)
	if err != nil {
		return fmt.Errorf("parent event is not a valid image/sticker: %w", err)
	}

	data, mimeType, err := b.client.DownloadMedia(ctx, string(mxcURI))
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	switch action {
	case actionSticker:
		err = b.collectSticker(ctx, data)
	case actionSave:
		err = b.savePhoto(data, mimeType, b.senderName(parent.Sender))
	}
	if err != nil {
		return err
	}
	log.Printf("Collected %q via %s", body, content.RelatesTo.Key)

	if _, err := b.client.RedactEvent(ctx, evt.RoomID, evt.ID); err != nil {
		log.Printf("Warning: failed to redact reaction: %v", err)
	}
	return nil
}

// extractImageData extracts the MXC URI and body text from an image or sticker event
func extractImageData(evt *event.Event) (mxcURI id.ContentURIString, body string, err error) {
	var msgtype event.MessageType
	switch evt.Type {
	case event.EventSticker:
		msgtype = event.MsgImage
	case event.EventMessage:
	default:
		return "", "", fmt.Errorf("unsupported event type: %s", evt.Type.Type)
	}

	if content, ok := evt.Content.Parsed.(*event.MessageEventContent); ok {
		if msgtype == "" {
			msgtype = content.MsgType
		}
		mxcURI, body = content.URL, content.Body
	} else {
		if msgtype == "" {
			s, _ := evt.Content.Raw["msgtype"].(string)
			msgtype = event.MessageType(s)
		}
		url, _ := evt.Content.Raw["url"].(string)
		body, _ = evt.Content.Raw["body"].(string)
		mxcURI = id.ContentURIString(url)
	}

	if msgtype != event.MsgImage {
		return "", "", fmt.Errorf("message is not an image (msgtype=%s)", msgtype)
	}
	if mxcURI == "" {
		return "", "", fmt.Errorf("image has no url")
	}
	return mxcURI, body, nil
}

// collectSticker adds an image to the sticker library and republishes it
func (b *Bot) collectSticker(ctx context.Context, data []byte) error {
	sticker, err := b.gallery.ImportSticker(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to collect sticker: %w", err)
	}
	log.Printf("Sticker added to library (aspect %.2f)", sticker.AspectRatio)

	b.republish(ctx)
	return nil
}

// savePhoto adds an image to the front of the gallery
func (b *Bot) savePhoto(data []byte, mimeType, user string) error {
	if _, err := storage.GetImageInfo(data); err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}
	b.gallery.Add(storage.DataURL(data, mimeType), user)
	return nil
}

// republish refreshes the sticker pack in every room it was published to
func (b *Bot) republish(ctx context.Context) {
	pub, err := storage.LoadPublication(b.dataDir)
	if err != nil {
		log.Printf("Warning: failed to load publication: %v", err)
		return
	}
	if len(pub.Rooms) == 0 {
		return
	}

	stickers, err := b.gallery.Library(ctx)
	if err != nil {
		log.Printf("Warning: failed to list library: %v", err)
		return
	}
	for roomID := range pub.Rooms {
		if _, err := b.client.PublishLibrary(ctx, b.dataDir, stickers, id.RoomID(roomID), packName); err != nil {
			log.Printf("Warning: failed to republish to %s: %v", roomID, err)
		}
	}
}

// senderName is the gallery user name for a Matrix user
func (b *Bot) senderName(userID id.UserID) string {
	if userID == b.client.UserID && b.config.Chat.DisplayName != "" {
		return b.config.Chat.DisplayName
	}
	return displayName(userID)
}
