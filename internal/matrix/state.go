package matrix

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/liminalpurple/sayangku/internal/overlay"
	"github.com/liminalpurple/sayangku/internal/storage"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// MSC2545 image pack types

// PackStateKey is the state key the sticker library is published under
const PackStateKey = "sayangku"

// RoomEmotesType is the MSC2545 room image pack state event
var RoomEmotesType = event.Type{Type: "im.ponies.room_emotes", Class: event.StateEventType}

// PackInfo represents the pack metadata
type PackInfo struct {
	DisplayName string   `json:"display_name"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	Usage       []string `json:"usage,omitempty"`
}

// StickerData represents a single sticker in the pack
type StickerData struct {
	URL  string `json:"url"`
	Body string `json:"body"`
	Info struct {
		Width    int    `json:"w"`
		Height   int    `json:"h"`
		Size     int64  `json:"size"`
		MimeType string `json:"mimetype"`
	} `json:"info"`
}

// PackContent represents the MSC2545 state event content
type PackContent struct {
	Pack   PackInfo               `json:"pack"`
	Images map[string]StickerData `json:"images"`
}

// uploader is the part of Client that BuildPack needs
type uploader interface {
	FetchImage(ctx context.Context, src string) ([]byte, string, error)
	UploadMedia(ctx context.Context, data []byte, mimeType string) (string, error)
}

// BuildPack converts the sticker library into pack content. Images are
// uploaded once and remembered by hash in pub.Uploads. Stickers that cannot
// be read are skipped.
func BuildPack(ctx context.Context, up uploader, stickers []overlay.SavedSticker, pub *storage.Publication, displayName string) (PackContent, error) {
	content := PackContent{
		Pack: PackInfo{
			DisplayName: displayName,
			Usage:       []string{"sticker"},
		},
		Images: make(map[string]StickerData),
	}

	for i, sticker := range stickers {
		data, mimeType, err := up.FetchImage(ctx, sticker.Src)
		if err != nil {
			log.Printf("Skipping sticker %d: %v", i, err)
			continue
		}
		info, err := storage.GetImageInfo(data)
		if err != nil {
			log.Printf("Skipping sticker %d: %v", i, err)
			continue
		}

		hash := storage.HashImage(data)
		mxc, ok := pub.Uploads[hash]
		if !ok {
			if strings.HasPrefix(sticker.Src, "mxc://") {
				mxc = sticker.Src
			} else if mxc, err = up.UploadMedia(ctx, data, mimeType); err != nil {
				return PackContent{}, fmt.Errorf("failed to upload sticker %d: %w", i, err)
			}
			pub.Uploads[hash] = mxc
		}

		sd := StickerData{
			URL:  mxc,
			Body: fmt.Sprintf("sticker %d", i+1),
		}
		sd.Info.Width = info.Width
		sd.Info.Height = info.Height
		sd.Info.Size = info.SizeBytes
		sd.Info.MimeType = info.MimeType

		// Shortcodes stay stable across republishes
		content.Images[hash[:16]] = sd
		if content.Pack.AvatarURL == "" {
			content.Pack.AvatarURL = mxc
		}
	}

	return content, nil
}

// PublishLibrary publishes the sticker library to a room as an MSC2545 state event
func (c *Client) PublishLibrary(ctx context.Context, dataDir string, stickers []overlay.SavedSticker, roomID id.RoomID, displayName string) (int, error) {
	pub, err := storage.LoadPublication(dataDir)
	if err != nil {
		return 0, fmt.Errorf("failed to load publication: %w", err)
	}

	content, err := BuildPack(ctx, c, stickers, pub, displayName)
	if err != nil {
		return 0, err
	}

	// Keep uploads even if the state event fails
	if err := storage.SavePublication(dataDir, pub); err != nil {
		log.Printf("Warning: failed to save uploads: %v", err)
	}

	if _, err := c.SendStateEvent(ctx, roomID, RoomEmotesType, PackStateKey, content); err != nil {
		return 0, fmt.Errorf("failed to send state event: %w", err)
	}

	if err := storage.UpdatePublished(dataDir, roomID.String(), PackStateKey); err != nil {
		return 0, fmt.Errorf("failed to update published rooms: %w", err)
	}

	return len(content.Images), nil
}
