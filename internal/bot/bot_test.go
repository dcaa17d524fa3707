package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/liminalpurple/sayangku/internal/chat"
	"github.com/liminalpurple/sayangku/internal/config"
	"github.com/liminalpurple/sayangku/internal/gallery"
	"github.com/liminalpurple/sayangku/internal/matrix"
	"github.com/liminalpurple/sayangku/internal/storage"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

const testRoom = "!couple:matrix.org"

// testConfig creates a minimal config for testing
func testConfig(storageDir string) *config.Config {
	return &config.Config{
		Matrix: config.MatrixConfig{
			Homeserver:  "https://matrix.org",
			UserID:      "@aku:matrix.org",
			AccessToken: "test-token",
			RoomID:      testRoom,
		},
		Storage: config.StorageConfig{
			DataDir: storageDir,
		},
		Chat: config.ChatConfig{
			DisplayName: "aku",
			Language:    "en",
		},
	}
}

// setupTestBot creates a bot with temp storage. The config directory is
// redirected so Stop never touches the real config.
func setupTestBot(t *testing.T, assistant Assistant) *Bot {
	t.Helper()
	t.Setenv("SAYANGKU_CONFIG_DIR", t.TempDir())
	dir := t.TempDir()

	matrixClient, err := matrix.NewClient("https://matrix.org", "@aku:matrix.org", "test-token")
	if err != nil {
		t.Fatalf("Failed to create matrix client: %v", err)
	}

	gallerySvc, err := gallery.NewService(dir, storage.NewFileLibrary(dir), nil)
	if err != nil {
		t.Fatalf("Failed to create gallery: %v", err)
	}
	chatSvc, err := chat.NewService(dir, nil, nil, chat.Settings{
		Me:              "aku",
		Language:        storage.English,
		PartnerLanguage: storage.Indonesian,
	})
	if err != nil {
		t.Fatalf("Failed to create chat: %v", err)
	}

	bot := NewBot(matrixClient, gallerySvc, chatSvc, assistant, testConfig(dir))
	t.Cleanup(bot.Stop)
	return bot
}

func textEvent(t *testing.T, sender, room, eventID, content string) *event.Event {
	t.Helper()
	evt := &event.Event{
		Sender: id.UserID(sender),
		RoomID: id.RoomID(room),
		ID:     id.EventID(eventID),
		Type:   event.EventMessage,
	}
	if err := json.Unmarshal([]byte(content), &evt.Content); err != nil {
		t.Fatalf("Failed to unmarshal content: %v", err)
	}
	if err := evt.Content.ParseRaw(event.EventMessage); err != nil {
		t.Fatalf("Failed to parse content: %v", err)
	}
	return evt
}

// TestNewBot verifies bot creation
func TestNewBot(t *testing.T) {
	bot := setupTestBot(t, nil)

	if bot.roomID != testRoom {
		t.Errorf("Expected room %s, got %s", testRoom, bot.roomID)
	}
	if bot.ctx == nil || bot.cancel == nil {
		t.Error("Expected context to be initialized")
	}
	if bot.syncer == nil {
		t.Error("Expected syncer to be initialized")
	}
}

// TestBotStop verifies graceful shutdown
func TestBotStop(t *testing.T) {
	bot := setupTestBot(t, nil)

	select {
	case <-bot.ctx.Done():
		t.Error("Context should not be cancelled initially")
	default:
	}

	bot.Stop()

	select {
	case <-bot.ctx.Done():
	default:
		t.Error("Context should be cancelled after Stop()")
	}
}

// TestReactionCommands verifies reaction key recognition
func TestReactionCommands(t *testing.T) {
	tests := []struct {
		key  string
		want reactionAction
	}{
		{"!sticker", actionSticker},
		{"!yoink", actionSticker},
		{"!save", actionSave},
		{"📌", actionSave},
		{"!nom", actionNone},
		{"sticker", actionNone},
		{"", actionNone},
		{"👍", actionNone},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := reactionCommands[tt.key]; got != tt.want {
				t.Errorf("Reaction %q: expected %v, got %v", tt.key, tt.want, got)
			}
		})
	}
}

// TestExtractImageData covers sticker and image events, parsed and raw
func TestExtractImageData(t *testing.T) {
	tests := []struct {
		name     string
		evt      *event.Event
		wantURI  string
		wantBody string
		wantErr  string
	}{
		{
			name: "parsed sticker",
			evt: &event.Event{Type: event.EventSticker, Content: event.Content{
				Parsed: &event.MessageEventContent{URL: "mxc://matrix.org/s1", Body: "Cool sticker"},
			}},
			wantURI:  "mxc://matrix.org/s1",
			wantBody: "Cool sticker",
		},
		{
			name: "raw sticker",
			evt: &event.Event{Type: event.EventSticker, Content: event.Content{
				Raw: map[string]any{"url": "mxc://matrix.org/s2", "body": "Raw sticker"},
			}},
			wantURI:  "mxc://matrix.org/s2",
			wantBody: "Raw sticker",
		},
		{
			name: "parsed image",
			evt: &event.Event{Type: event.EventMessage, Content: event.Content{
				Parsed: &event.MessageEventContent{MsgType: event.MsgImage, URL: "mxc://matrix.org/i1", Body: "Photo"},
			}},
			wantURI:  "mxc://matrix.org/i1",
			wantBody: "Photo",
		},
		{
			name: "raw image",
			evt: &event.Event{Type: event.EventMessage, Content: event.Content{
				Raw: map[string]any{"msgtype": "m.image", "url": "mxc://matrix.org/i2", "body": "Raw photo"},
			}},
			wantURI:  "mxc://matrix.org/i2",
			wantBody: "Raw photo",
		},
		{
			name: "text message",
			evt: &event.Event{Type: event.EventMessage, Content: event.Content{
				Parsed: &event.MessageEventContent{MsgType: event.MsgText, Body: "hi"},
			}},
			wantErr: "message is not an image (msgtype=m.text)",
		},
		{
			name: "video message",
			evt: &event.Event{Type: event.EventMessage, Content: event.Content{
				Parsed: &event.MessageEventContent{MsgType: event.MsgVideo, URL: "mxc://matrix.org/v"},
			}},
			wantErr: "message is not an image (msgtype=m.video)",
		},
		{
			name:    "member event",
			evt:     &event.Event{Type: event.StateMember},
			wantErr: "unsupported event type: m.room.member",
		},
		{
			name: "sticker without url",
			evt: &event.Event{Type: event.EventSticker, Content: event.Content{
				Parsed: &event.MessageEventContent{Body: "empty"},
			}},
			wantErr: "image has no url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri, body, err := extractImageData(tt.evt)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Errorf("Expected error %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if string(uri) != tt.wantURI || body != tt.wantBody {
				t.Errorf("Expected %s %q, got %s %q", tt.wantURI, tt.wantBody, uri, body)
			}
		})
	}
}

// TestReceiveChat verifies partner messages land in the chat history once
func TestReceiveChat(t *testing.T) {
	bot := setupTestBot(t, nil)
	ctx := context.Background()

	evt := textEvent(t, "@kamu:matrix.org", testRoom, "$m1", `{
		"msgtype": "m.text",
		"body": "rindu",
		"format": "org.matrix.custom.html",
		"formatted_body": "<b>rindu</b> <span data-mx-spoiler>kamu</span>"
	}`)

	bot.handleMessage(ctx, evt)
	bot.handleMessage(ctx, evt)

	msgs, err := bot.chat.Messages()
	if err != nil {
		t.Fatalf("Failed to load messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Sender != "kamu" || msgs[0].Text != "<b>rindu</b> <spoiler>kamu</spoiler>" {
		t.Errorf("Unexpected message: %+v", msgs[0])
	}
}

// TestReceiveChat_Ignored verifies other rooms and edits are not stored
func TestReceiveChat_Ignored(t *testing.T) {
	bot := setupTestBot(t, nil)
	ctx := context.Background()

	bot.handleMessage(ctx, textEvent(t, "@kamu:matrix.org", "!other:matrix.org", "$o1", `{"msgtype": "m.text", "body": "elsewhere"}`))
	bot.handleMessage(ctx, textEvent(t, "@kamu:matrix.org", testRoom, "$e1", `{
		"msgtype": "m.text",
		"body": "* fixed",
		"m.new_content": {"msgtype": "m.text", "body": "fixed"},
		"m.relates_to": {"rel_type": "m.replace", "event_id": "$m1"}
	}`))

	msgs, _ := bot.chat.Messages()
	if len(msgs) != 0 {
		t.Errorf("Expected nothing stored, got %+v", msgs)
	}
}

// TestSavePhoto verifies saved images go to the front of the gallery
func TestSavePhoto(t *testing.T) {
	bot := setupTestBot(t, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}

	if err := bot.savePhoto(buf.Bytes(), "image/png", bot.senderName("@kamu:matrix.org")); err != nil {
		t.Fatalf("Failed to save photo: %v", err)
	}

	images := bot.gallery.List(false)
	if len(images) != 1 {
		t.Fatalf("Expected 1 image, got %d", len(images))
	}
	if images[0].User != "kamu" || !strings.HasPrefix(images[0].Src, "data:image/png;base64,") {
		t.Errorf("Unexpected image: user=%s src=%.30s", images[0].User, images[0].Src)
	}

	if err := bot.savePhoto([]byte("nope"), "image/png", "kamu"); err == nil {
		t.Error("Expected error for non-image data")
	}
}

// TestSenderName verifies my own name comes from config
func TestSenderName(t *testing.T) {
	bot := setupTestBot(t, nil)

	if got := bot.senderName("@aku:matrix.org"); got != "aku" {
		t.Errorf("Expected display name, got %s", got)
	}
	if got := bot.senderName("@kamu:example.org"); got != "kamu" {
		t.Errorf("Expected localpart, got %s", got)
	}
}
