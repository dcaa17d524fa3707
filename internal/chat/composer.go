package chat

import (
	"sync"

	"github.com/liminalpurple/sayangku/internal/richtext"
)

// Composer is the message draft: the rich-text editor plus the gallery image
// being replied to (0 when none).
type Composer struct {
	mu      sync.Mutex
	editor  *richtext.Editor
	replyTo int64
}

// NewComposer returns an empty draft
func NewComposer() *Composer {
	return &Composer{editor: richtext.NewEditor()}
}

// Edit runs fn against the draft's editor under the composer lock
func (c *Composer) Edit(fn func(e *richtext.Editor)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.editor)
}

// ReplyTo sets the gallery image the draft replies to; 0 clears it
func (c *Composer) ReplyTo(imageID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replyTo = imageID
}

// Draft is a snapshot of the composer for display
type Draft struct {
	Markup    string                 `json:"markup"`
	Text      string                 `json:"text"`
	Selection richtext.Selection     `json:"selection"`
	Active    richtext.ActiveFormats `json:"active"`
	ReplyTo   int64                  `json:"replyTo,omitempty"`
}

// Snapshot returns the current draft state
func (c *Composer) Snapshot() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Draft{
		Markup:    c.editor.Markup(),
		Text:      c.editor.Text(),
		Selection: c.editor.Selection(),
		Active:    c.editor.ActiveFormats(),
		ReplyTo:   c.replyTo,
	}
}

// take returns the serialized draft and reply target, then clears both.
// ok is false for a whitespace-only draft, which is left untouched.
func (c *Composer) take(isEmpty func(string) bool) (text richtext.FormattedMessageText, replyTo int64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if isEmpty(c.editor.Text()) {
		return "", 0, false
	}
	text, replyTo = c.editor.Serialize(), c.replyTo
	c.editor.Reset()
	c.replyTo = 0
	return text, replyTo, true
}

// restore puts a draft back after a failed send
func (c *Composer) restore(text richtext.FormattedMessageText, replyTo int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editor.Load(string(text))
	c.replyTo = replyTo
}
