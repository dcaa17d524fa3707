// Package chat implements the couple's conversation: composing rich-text
// messages, sending them over a transport, storing history and translating
// bubbles between the two languages.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/liminalpurple/sayangku/internal/richtext"
	"github.com/liminalpurple/sayangku/internal/storage"
)

var (
	// ErrEmptyMessage is returned when sending a whitespace-only draft
	ErrEmptyMessage = errors.New("message is empty")
	// ErrNotFound is returned for an unknown message id
	ErrNotFound = errors.New("message not found")
)

// TranslationFailed is shown in place of a translation that could not be made
const TranslationFailed = "Translation unavailable."

// Transport delivers a sent message to the partner and returns its event ID
type Transport interface {
	Send(ctx context.Context, msg storage.ChatMessage) (string, error)
}

// Translator is an opaque text transform between two languages
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Settings configures the conversation
type Settings struct {
	Me               string           // Sender name for my messages
	MyBubbleColor    string           // Background of my bubbles
	OtherBubbleColor string           // Background of my partner's bubbles
	Language         storage.Language // Language I write in
	PartnerLanguage  storage.Language // Language my partner writes in
	AutoTranslate    bool
}

// Service stores the history and sends messages. Transport and Translator
// may be nil: messages are then only stored, or never translated.
type Service struct {
	dataDir    string
	transport  Transport
	translator Translator
	settings   Settings
	now        func() time.Time

	mu     sync.Mutex
	lastID int64

	// store serialises load-modify-save cycles on chat.json
	store sync.Mutex
}

// NewService creates a chat service storing its history in dataDir
func NewService(dataDir string, transport Transport, translator Translator, settings Settings) (*Service, error) {
	history, err := storage.LoadHistory(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	s := &Service{
		dataDir:    dataDir,
		transport:  transport,
		translator: translator,
		settings:   settings,
		now:        time.Now,
	}
	for _, m := range history.Messages {
		if m.ID > s.lastID {
			s.lastID = m.ID
		}
	}
	return s, nil
}

// Settings returns the service configuration
func (s *Service) Settings() Settings {
	return s.settings
}

// Messages returns the history in send order
func (s *Service) Messages() ([]storage.ChatMessage, error) {
	s.store.Lock()
	defer s.store.Unlock()

	history, err := storage.LoadHistory(s.dataDir)
	if err != nil {
		return nil, err
	}
	return history.Messages, nil
}

// Send serializes the draft, hands it to the transport and stores it. The
// composer is cleared on success and left as it was on failure.
func (s *Service) Send(ctx context.Context, c *Composer) (storage.ChatMessage, error) {
	text, replyTo, ok := c.take(isBlank)
	if !ok {
		return storage.ChatMessage{}, ErrEmptyMessage
	}

	msg := storage.ChatMessage{
		ID:               s.nextID(),
		Sender:           s.settings.Me,
		Text:             text,
		Timestamp:        s.now(),
		RepliedToImageID: replyTo,
	}

	if s.transport != nil {
		eventID, err := s.transport.Send(ctx, msg)
		if err != nil {
			c.restore(text, replyTo)
			return storage.ChatMessage{}, fmt.Errorf("failed to send message: %w", err)
		}
		msg.EventID = eventID
	}

	if _, err := s.append(msg); err != nil {
		log.Printf("Warning: failed to store sent message: %v", err)
	}

	if s.settings.AutoTranslate {
		msg.Translation = s.translate(ctx, msg, s.settings.Language, s.settings.PartnerLanguage)
	}

	return msg, nil
}

// Receive stores a message from the partner. Messages already stored (same
// event ID) are ignored and reported with added=false.
func (s *Service) Receive(ctx context.Context, msg storage.ChatMessage) (storage.ChatMessage, bool, error) {
	if msg.ID == 0 {
		msg.ID = s.nextID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}

	added, err := s.append(msg)
	if err != nil {
		return msg, false, fmt.Errorf("failed to store message: %w", err)
	}
	if !added {
		return msg, false, nil
	}

	if s.settings.AutoTranslate {
		msg.Translation = s.translate(ctx, msg, s.settings.PartnerLanguage, s.settings.Language)
	}
	return msg, true, nil
}

// Translate translates a stored message on demand into the reader's language
func (s *Service) Translate(ctx context.Context, id int64) (storage.ChatMessage, error) {
	msgs, err := s.Messages()
	if err != nil {
		return storage.ChatMessage{}, err
	}

	for _, msg := range msgs {
		if msg.ID != id {
			continue
		}
		source, target := s.settings.PartnerLanguage, s.settings.Language
		if s.IsMe(msg) {
			source, target = target, source
		}
		msg.Translation = s.translate(ctx, msg, source, target)
		return msg, nil
	}
	return storage.ChatMessage{}, ErrNotFound
}

// translate produces the translation for a message and stores it. Failures
// yield a generic notice and never an error. Text inside and outside spoilers
// is translated separately so the translation keeps its spoilers.
func (s *Service) translate(ctx context.Context, msg storage.ChatMessage, source, target storage.Language) string {
	if s.translator == nil {
		return ""
	}

	doc := richtext.NewDocument()
	for _, r := range spoilerRuns(richtext.Decode(msg.Text)) {
		text := r.text
		if core := strings.TrimSpace(text); core != "" {
			out, err := s.translator.Translate(ctx, core, storage.LanguageName(source), storage.LanguageName(target))
			if err != nil {
				log.Printf("Translation failed for message %d: %v", msg.ID, err)
				doc = nil
				break
			}
			lead := len(text) - len(strings.TrimLeftFunc(text, unicode.IsSpace))
			trail := len(text) - len(strings.TrimRightFunc(text, unicode.IsSpace))
			text = text[:lead] + strings.TrimSpace(out) + text[len(text)-trail:]
		}

		node := richtext.T(text)
		if r.spoiler {
			node = richtext.Wrap(richtext.Spoiler, node)
		}
		doc.Children = append(doc.Children, node)
	}

	out := TranslationFailed
	if doc != nil {
		out = string(richtext.Encode(doc))
	}

	s.store.Lock()
	err := storage.SetTranslation(s.dataDir, msg.ID, out)
	s.store.Unlock()
	if err != nil {
		log.Printf("Warning: failed to store translation: %v", err)
	}
	return out
}

// run is a stretch of text that is either entirely inside a spoiler or
// entirely outside one
type run struct {
	text    string
	spoiler bool
}

// spoilerRuns flattens a document into alternating plain and spoiler runs.
// Other formatting is dropped.
func spoilerRuns(root *richtext.Node) []run {
	var runs []run
	var walk func(n *richtext.Node, inSpoiler bool)
	walk = func(n *richtext.Node, inSpoiler bool) {
		if n.Kind == richtext.Spoiler {
			inSpoiler = true
		}
		if n.Kind == richtext.Text {
			if k := len(runs); k > 0 && runs[k-1].spoiler == inSpoiler {
				runs[k-1].text += n.Text
				return
			}
			runs = append(runs, run{text: n.Text, spoiler: inSpoiler})
			return
		}
		for _, c := range n.Children {
			walk(c, inSpoiler)
		}
	}
	walk(root, false)
	return runs
}

// IsMe reports whether a message was sent by this side of the conversation
func (s *Service) IsMe(msg storage.ChatMessage) bool {
	return msg.Sender == s.settings.Me
}

// Bubble is a message ready for display
type Bubble struct {
	storage.ChatMessage
	IsMe            bool   `json:"isMe"`
	HTML            string `json:"html"`
	TranslationHTML string `json:"translationHtml,omitempty"`
	Background      string `json:"background"`
}

// RenderBubble renders a message for display in its sender's bubble colour
func (s *Service) RenderBubble(msg storage.ChatMessage) Bubble {
	isMe := s.IsMe(msg)
	bg := s.settings.OtherBubbleColor
	if isMe {
		bg = s.settings.MyBubbleColor
	}
	b := Bubble{
		ChatMessage: msg,
		IsMe:        isMe,
		HTML:        richtext.Render(msg.Text, bg),
		Background:  bg,
	}
	if msg.Translation != "" {
		b.TranslationHTML = richtext.Render(richtext.FormattedMessageText(msg.Translation), bg)
	}
	return b
}

func (s *Service) append(msg storage.ChatMessage) (bool, error) {
	s.store.Lock()
	defer s.store.Unlock()
	return storage.AppendMessage(s.dataDir, msg)
}

func (s *Service) nextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
