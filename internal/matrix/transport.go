package matrix

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liminalpurple/sayangku/internal/richtext"
	"github.com/liminalpurple/sayangku/internal/storage"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/format"
	"maunium.net/go/mautrix/id"
)

// ReplyImageKey is the custom content key carrying the gallery image a
// message replies to
const ReplyImageKey = "fi.sayangku.reply_image"

// ChatTransport sends chat messages into the couple's room
type ChatTransport struct {
	client *Client
	roomID id.RoomID
}

// NewChatTransport creates a transport for roomID
func NewChatTransport(client *Client, roomID string) *ChatTransport {
	return &ChatTransport{client: client, roomID: id.RoomID(roomID)}
}

// Send posts the message and returns its event ID
func (t *ChatTransport) Send(ctx context.Context, msg storage.ChatMessage) (string, error) {
	resp, err := t.client.SendMessageEvent(ctx, t.roomID, event.EventMessage, MessageContent(msg))
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return resp.EventID.String(), nil
}

// MessageContent builds m.room.message content for a chat message. The
// formatted body uses Matrix spoiler and colour attributes, the plain body is
// derived from it.
func MessageContent(msg storage.ChatMessage) *event.Content {
	body := richtext.EncodeDialect(richtext.Decode(msg.Text), richtext.DialectMatrix)

	raw := map[string]any{}
	if msg.RepliedToImageID != 0 {
		raw[ReplyImageKey] = msg.RepliedToImageID
	}

	return &event.Content{
		Raw: raw,
		Parsed: &event.MessageEventContent{
			MsgType:       event.MsgText,
			Body:          format.HTMLToText(body),
			Format:        event.FormatHTML,
			FormattedBody: body,
		},
	}
}

// MessageFromEvent converts a room text message into a chat message in wire
// form. ok is false for events that are not text messages.
func MessageFromEvent(evt *event.Event, senderName string) (msg storage.ChatMessage, ok bool) {
	content := evt.Content.AsMessage()
	if content == nil || content.MsgType != event.MsgText {
		return storage.ChatMessage{}, false
	}

	var text richtext.FormattedMessageText
	if content.Format == event.FormatHTML && content.FormattedBody != "" {
		text = richtext.Encode(richtext.Decode(stripReplyFallback(content.FormattedBody)))
	} else {
		text = richtext.Encode(richtext.NewDocument(richtext.T(content.Body)))
	}

	msg = storage.ChatMessage{
		Sender:  senderName,
		Text:    text,
		EventID: evt.ID.String(),
	}
	if evt.Timestamp > 0 {
		msg.Timestamp = time.UnixMilli(evt.Timestamp)
	}
	if v, ok := evt.Content.Raw[ReplyImageKey].(float64); ok {
		msg.RepliedToImageID = int64(v)
	}
	return msg, true
}

// stripReplyFallback removes the quoted <mx-reply> block clients prepend to replies
func stripReplyFallback(body string) string {
	start := strings.Index(body, "<mx-reply>")
	if start < 0 {
		return body
	}
	end := strings.Index(body[start:], "</mx-reply>")
	if end < 0 {
		return body
	}
	return body[:start] + body[start+end+len("</mx-reply>"):]
}
