package storage

import (
	"time"

	"github.com/liminalpurple/sayangku/internal/overlay"
	"github.com/liminalpurple/sayangku/internal/richtext"
)

// GalleryImage is a shared photo with its committed sticker overlay
type GalleryImage struct {
	ID         int64                   `json:"id"`         // Time-derived, unique within the gallery
	Src        string                  `json:"src"`        // Data URL or mxc:// URI
	User       string                  `json:"user"`       // Who added it
	IsFavorite bool                    `json:"isFavorite"` // Shown in the favourites filter
	Stickers   []overlay.PlacedSticker `json:"stickers"`   // Replaced wholesale on commit
	CreatedAt  time.Time               `json:"createdAt"`
}

// Gallery holds every image, newest first
type Gallery struct {
	Images []GalleryImage `json:"images"`
}

// ChatMessage is one bubble in the conversation
type ChatMessage struct {
	ID               int64                         `json:"id"`
	Sender           string                        `json:"sender"` // Display name or Matrix user ID
	Text             richtext.FormattedMessageText `json:"text"`   // Wire form
	Timestamp        time.Time                     `json:"timestamp"`
	RepliedToImageID int64                         `json:"repliedToImageId,omitempty"` // Gallery image the message replies to
	Translation      string                        `json:"translation,omitempty"`      // Translated wire text or a failure notice
	EventID          string                        `json:"eventId,omitempty"`          // Matrix event once sent or received
}

// History holds the conversation in send order
type History struct {
	Messages []ChatMessage `json:"messages"`
}

// Publication records the rooms the sticker library has been published to
type Publication struct {
	Rooms   map[string]string `json:"rooms"`   // Room ID -> state key
	Uploads map[string]string `json:"uploads"` // Image hash -> MXC URI
}
