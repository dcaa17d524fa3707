package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/liminalpurple/sayangku/internal/richtext"
	"github.com/liminalpurple/sayangku/internal/storage"
)

type fakeTransport struct {
	sent []storage.ChatMessage
	err  error
}

func (f *fakeTransport) Send(ctx context.Context, msg storage.ChatMessage) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "$event" + string(rune('a'+len(f.sent)-1)), nil
}

type fakeTranslator struct {
	calls []string
	err   error
}

func (f *fakeTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	f.calls = append(f.calls, source+">"+target+":"+text)
	if f.err != nil {
		return "", f.err
	}
	return "[" + target + "] " + text, nil
}

func testSettings() Settings {
	return Settings{
		Me:               "aku",
		MyBubbleColor:    "#ffffff",
		OtherBubbleColor: "#000000",
		Language:         storage.English,
		PartnerLanguage:  storage.Indonesian,
	}
}

func newTestService(t *testing.T, transport Transport, translator Translator, settings Settings) *Service {
	t.Helper()
	svc, err := NewService(t.TempDir(), transport, translator, settings)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	return svc
}

func draft(markup string) *Composer {
	c := NewComposer()
	c.Edit(func(e *richtext.Editor) { e.Load(markup) })
	return c
}

// TestSend_Empty verifies whitespace-only drafts are rejected and kept
func TestSend_Empty(t *testing.T) {
	transport := &fakeTransport{}
	svc := newTestService(t, transport, nil, testSettings())

	for _, markup := range []string{"", "   ", "<b> </b>", "<br><br>"} {
		c := draft(markup)
		if _, err := svc.Send(context.Background(), c); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Send(%q): expected ErrEmptyMessage, got %v", markup, err)
		}
	}
	if len(transport.sent) != 0 {
		t.Errorf("Expected nothing sent, got %d", len(transport.sent))
	}
}

// TestSend_SerializesAndClears verifies the wire form is sent and stored
func TestSend_SerializesAndClears(t *testing.T) {
	transport := &fakeTransport{}
	svc := newTestService(t, transport, nil, testSettings())

	c := draft("secret")
	c.Edit(func(e *richtext.Editor) {
		e.Select(0, 6)
		e.ApplyFormat(richtext.FormatSpoiler, "")
		e.Select(0, 2)
		e.ApplyFormat(richtext.FormatBold, "")
	})
	c.ReplyTo(42)

	msg, err := svc.Send(context.Background(), c)
	if err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	if msg.Text != "<spoiler><b>se</b>cret</spoiler>" {
		t.Errorf("Unexpected wire text: %q", msg.Text)
	}
	if msg.RepliedToImageID != 42 || msg.EventID != "$eventa" {
		t.Errorf("Unexpected message: %+v", msg)
	}
	if len(transport.sent) != 1 {
		t.Fatalf("Expected 1 sent message, got %d", len(transport.sent))
	}

	snap := c.Snapshot()
	if snap.Text != "" || snap.ReplyTo != 0 {
		t.Errorf("Expected composer cleared, got %+v", snap)
	}

	msgs, _ := svc.Messages()
	if len(msgs) != 1 || msgs[0].Text != msg.Text {
		t.Errorf("Expected stored message, got %+v", msgs)
	}
}

// TestSend_TransportFailureKeepsDraft verifies a failed send loses nothing
func TestSend_TransportFailureKeepsDraft(t *testing.T) {
	svc := newTestService(t, &fakeTransport{err: errors.New("offline")}, nil, testSettings())

	c := draft("<i>halo</i>")
	c.ReplyTo(7)
	if _, err := svc.Send(context.Background(), c); err == nil {
		t.Fatal("Expected send error")
	}

	snap := c.Snapshot()
	if snap.Text != "halo" || snap.ReplyTo != 7 {
		t.Errorf("Expected draft restored, got %+v", snap)
	}
	msgs, _ := svc.Messages()
	if len(msgs) != 0 {
		t.Errorf("Expected nothing stored, got %d", len(msgs))
	}
}

// TestSend_AutoTranslate verifies outgoing messages translate into the
// partner's language from plain text
func TestSend_AutoTranslate(t *testing.T) {
	settings := testSettings()
	settings.AutoTranslate = true
	translator := &fakeTranslator{}
	svc := newTestService(t, nil, translator, settings)

	msg, err := svc.Send(context.Background(), draft("<b>hi</b> love"))
	if err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	if len(translator.calls) != 1 || translator.calls[0] != "English>Indonesian:hi love" {
		t.Errorf("Unexpected translator calls: %v", translator.calls)
	}
	if msg.Translation != "[Indonesian] hi love" {
		t.Errorf("Unexpected translation: %q", msg.Translation)
	}

	msgs, _ := svc.Messages()
	if msgs[0].Translation != msg.Translation {
		t.Errorf("Expected translation stored, got %q", msgs[0].Translation)
	}
}

// TestSend_TranslationFailureNeverBlocks verifies failures become a notice
func TestSend_TranslationFailureNeverBlocks(t *testing.T) {
	settings := testSettings()
	settings.AutoTranslate = true
	transport := &fakeTransport{}
	svc := newTestService(t, transport, &fakeTranslator{err: errors.New("quota: key sk-123")}, settings)

	msg, err := svc.Send(context.Background(), draft("halo"))
	if err != nil {
		t.Fatalf("Expected send to succeed, got %v", err)
	}
	if len(transport.sent) != 1 {
		t.Error("Expected message to be sent")
	}
	if msg.Translation != TranslationFailed {
		t.Errorf("Expected generic notice, got %q", msg.Translation)
	}
	if strings.Contains(msg.Translation, "sk-123") {
		t.Error("Notice leaks the underlying error")
	}
}

// TestReceive verifies incoming messages are stored once and translated
// into my language
func TestReceive(t *testing.T) {
	settings := testSettings()
	settings.AutoTranslate = true
	translator := &fakeTranslator{}
	svc := newTestService(t, nil, translator, settings)
	ctx := context.Background()

	in := storage.ChatMessage{Sender: "kamu", Text: "aku <b>rindu</b>", EventID: "$in1"}
	got, added, err := svc.Receive(ctx, in)
	if err != nil || !added {
		t.Fatalf("Expected message added, got added=%v err=%v", added, err)
	}
	if got.ID == 0 || got.Timestamp.IsZero() {
		t.Errorf("Expected id and timestamp assigned, got %+v", got)
	}
	if got.Translation != "[English] aku rindu" {
		t.Errorf("Unexpected translation: %q", got.Translation)
	}

	_, added, err = svc.Receive(ctx, in)
	if err != nil || added {
		t.Errorf("Expected duplicate ignored, got added=%v err=%v", added, err)
	}
	if len(translator.calls) != 1 {
		t.Errorf("Expected one translation, got %d", len(translator.calls))
	}
}

// TestTranslate_OnDemand verifies direction follows the sender
func TestTranslate_OnDemand(t *testing.T) {
	translator := &fakeTranslator{}
	svc := newTestService(t, nil, translator, testSettings())
	ctx := context.Background()

	mine, _ := svc.Send(ctx, draft("good night"))
	theirs, _, _ := svc.Receive(ctx, storage.ChatMessage{Sender: "kamu", Text: "selamat malam"})

	if _, err := svc.Translate(ctx, mine.ID); err != nil {
		t.Fatalf("Failed to translate: %v", err)
	}
	if _, err := svc.Translate(ctx, theirs.ID); err != nil {
		t.Fatalf("Failed to translate: %v", err)
	}

	if translator.calls[0] != "English>Indonesian:good night" {
		t.Errorf("Unexpected direction for my message: %s", translator.calls[0])
	}
	if translator.calls[1] != "Indonesian>English:selamat malam" {
		t.Errorf("Unexpected direction for partner message: %s", translator.calls[1])
	}

	if _, err := svc.Translate(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

// TestRenderBubble verifies the spoiler patch follows the bubble colour
func TestRenderBubble(t *testing.T) {
	svc := newTestService(t, nil, nil, testSettings())

	mine := svc.RenderBubble(storage.ChatMessage{Sender: "aku", Text: "<spoiler>x</spoiler>"})
	if !mine.IsMe || !strings.Contains(mine.HTML, "background-color:#808080") {
		t.Errorf("Unexpected bubble for my message: %+v", mine)
	}

	theirs := svc.RenderBubble(storage.ChatMessage{Sender: "kamu", Text: "<spoiler>x</spoiler>"})
	if theirs.IsMe || !strings.Contains(theirs.HTML, "background-color:#000000") {
		t.Errorf("Unexpected bubble for partner message: %+v", theirs)
	}
}

// TestSend_TranslationKeepsSpoilers verifies spoiler text stays covered in
// the translation and is translated apart from the visible text
func TestSend_TranslationKeepsSpoilers(t *testing.T) {
	settings := testSettings()
	settings.AutoTranslate = true
	translator := &fakeTranslator{}
	svc := newTestService(t, nil, translator, settings)

	msg, err := svc.Send(context.Background(), draft("the ending is <spoiler>he dies</spoiler>"))
	if err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	want := []string{"English>Indonesian:the ending is", "English>Indonesian:he dies"}
	if strings.Join(translator.calls, "|") != strings.Join(want, "|") {
		t.Errorf("Unexpected translator calls: %v", translator.calls)
	}
	if msg.Translation != "[Indonesian] the ending is <spoiler>[Indonesian] he dies</spoiler>" {
		t.Errorf("Unexpected translation: %q", msg.Translation)
	}

	for _, r := range spoilerRuns(richtext.Decode(richtext.FormattedMessageText(msg.Translation))) {
		if !r.spoiler && strings.Contains(r.text, "dies") {
			t.Errorf("Spoiler text outside a spoiler: %q", r.text)
		}
	}

	bubble := svc.RenderBubble(msg)
	covered := `background-color:#808080;color:#808080`
	i := strings.Index(bubble.TranslationHTML, covered)
	j := strings.Index(bubble.TranslationHTML, "he dies")
	if i < 0 || j < i {
		t.Errorf("Expected spoiler covered in translation, got %q", bubble.TranslationHTML)
	}

	msgs, _ := svc.Messages()
	if msgs[0].Translation != msg.Translation {
		t.Errorf("Expected translation stored, got %q", msgs[0].Translation)
	}
}

// TestSpoilerRuns verifies nested formatting flattens into plain and spoiler runs
func TestSpoilerRuns(t *testing.T) {
	doc := richtext.Decode(richtext.FormattedMessageText("<b>a <spoiler>b</spoiler></b><spoiler><i>c</i></spoiler> d"))
	runs := spoilerRuns(doc)

	want := []run{{"a ", false}, {"bc", true}, {" d", false}}
	if len(runs) != len(want) {
		t.Fatalf("Expected %d runs, got %+v", len(want), runs)
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Errorf("Run %d: expected %+v, got %+v", i, want[i], runs[i])
		}
	}
}
