package storage

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"testing"
	"time"

	"github.com/liminalpurple/sayangku/internal/overlay"
)

// TestLoadGallery_Empty verifies a missing file gives an empty gallery
func TestLoadGallery_Empty(t *testing.T) {
	tmpDir := setupTestDir(t)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	gallery, err := LoadGallery(tmpDir)
	if err != nil {
		t.Fatalf("Failed to load gallery: %v", err)
	}

	if len(gallery.Images) != 0 {
		t.Errorf("Expected empty gallery, got %d images", len(gallery.Images))
	}
}

// TestSaveGallery_RoundTrip verifies committed stickers survive a save
func TestSaveGallery_RoundTrip(t *testing.T) {
	tmpDir := setupTestDir(t)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	img := testImage(42)
	if err := SaveGallery(tmpDir, &Gallery{Images: []GalleryImage{img}}); err != nil {
		t.Fatalf("Failed to save gallery: %v", err)
	}

	retrieved, err := GetImage(tmpDir, 42)
	if err != nil {
		t.Fatalf("Failed to get image: %v", err)
	}

	if len(retrieved.Stickers) != 1 {
		t.Fatalf("Expected 1 sticker, got %d", len(retrieved.Stickers))
	}
	if retrieved.Stickers[0] != img.Stickers[0] {
		t.Errorf("Expected sticker %+v, got %+v", img.Stickers[0], retrieved.Stickers[0])
	}
	if !retrieved.IsFavorite {
		t.Error("Expected favourite flag to be kept")
	}
}

// TestGetImage_NotFound verifies error when image doesn't exist
func TestGetImage_NotFound(t *testing.T) {
	tmpDir := setupTestDir(t)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	if _, err := GetImage(tmpDir, 7); err == nil {
		t.Error("Expected error when getting non-existent image")
	}
}

// TestFileLibrary_AppendKeepsOrder verifies the library is append-only and ordered
func TestFileLibrary_AppendKeepsOrder(t *testing.T) {
	tmpDir := setupTestDir(t)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	lib := NewFileLibrary(tmpDir)
	ctx := t.Context()

	first := overlay.SavedSticker{Src: "data:image/png;base64,AA==", AspectRatio: 1}
	second := overlay.SavedSticker{Src: "data:image/png;base64,BB==", AspectRatio: 2}

	for _, s := range []overlay.SavedSticker{first, second, first} {
		if err := lib.Append(ctx, s); err != nil {
			t.Fatalf("Failed to append sticker: %v", err)
		}
	}

	stickers, err := NewFileLibrary(tmpDir).List(ctx)
	if err != nil {
		t.Fatalf("Failed to list library: %v", err)
	}

	if len(stickers) != 3 {
		t.Fatalf("Expected 3 stickers (duplicates allowed), got %d", len(stickers))
	}
	if stickers[0] != first || stickers[1] != second || stickers[2] != first {
		t.Errorf("Library order changed: %+v", stickers)
	}
}

// TestFileLibrary_Empty verifies a fresh library lists as empty, not nil
func TestFileLibrary_Empty(t *testing.T) {
	tmpDir := setupTestDir(t)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	stickers, err := NewFileLibrary(tmpDir).List(t.Context())
	if err != nil {
		t.Fatalf("Failed to list library: %v", err)
	}
	if stickers == nil || len(stickers) != 0 {
		t.Errorf("Expected empty non-nil library, got %v", stickers)
	}
}

// TestAppendMessage_DedupesEvents verifies replayed Matrix events are stored once
func TestAppendMessage_DedupesEvents(t *testing.T) {
	tmpDir := setupTestDir(t)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	msg := ChatMessage{ID: 1, Sender: "@sayang:matrix.org", Text: "<b>hi</b>", Timestamp: time.Now(), EventID: "$abc"}

	added, err := AppendMessage(tmpDir, msg)
	if err != nil || !added {
		t.Fatalf("Expected first append to succeed, got added=%v err=%v", added, err)
	}

	msg.ID = 2
	added, err = AppendMessage(tmpDir, msg)
	if err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if added {
		t.Error("Expected duplicate event to be ignored")
	}

	history, err := LoadHistory(tmpDir)
	if err != nil {
		t.Fatalf("Failed to load history: %v", err)
	}
	if len(history.Messages) != 1 {
		t.Errorf("Expected 1 message, got %d", len(history.Messages))
	}
}

// TestSetTranslation verifies translations attach to the right message
func TestSetTranslation(t *testing.T) {
	tmpDir := setupTestDir(t)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	for _, id := range []int64{1, 2} {
		if _, err := AppendMessage(tmpDir, ChatMessage{ID: id, Text: "halo"}); err != nil {
			t.Fatalf("Failed to append: %v", err)
		}
	}

	if err := SetTranslation(tmpDir, 2, "hello"); err != nil {
		t.Fatalf("Failed to set translation: %v", err)
	}

	history, _ := LoadHistory(tmpDir)
	if history.Messages[0].Translation != "" {
		t.Errorf("Expected first message untouched, got %q", history.Messages[0].Translation)
	}
	if history.Messages[1].Translation != "hello" {
		t.Errorf("Expected translation 'hello', got %q", history.Messages[1].Translation)
	}

	if err := SetTranslation(tmpDir, 99, "x"); err == nil {
		t.Error("Expected error for unknown message")
	}
}

// TestUpdatePublished verifies published rooms accumulate
func TestUpdatePublished(t *testing.T) {
	tmpDir := setupTestDir(t)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	if err := UpdatePublished(tmpDir, "!a:matrix.org", "sayangku"); err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	if err := UpdatePublished(tmpDir, "!b:matrix.org", "sayangku"); err != nil {
		t.Fatalf("Failed to update: %v", err)
	}

	pub, err := LoadPublication(tmpDir)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(pub.Rooms) != 2 {
		t.Errorf("Expected 2 rooms, got %d", len(pub.Rooms))
	}
}

// TestSavedStickerFromImage verifies the aspect ratio comes from the image
func TestSavedStickerFromImage(t *testing.T) {
	data := encodePNG(t, 200, 100)

	sticker, info, err := SavedStickerFromImage(data)
	if err != nil {
		t.Fatalf("Failed to build sticker: %v", err)
	}

	if sticker.AspectRatio != 2 {
		t.Errorf("Expected aspect ratio 2, got %v", sticker.AspectRatio)
	}
	if info.MimeType != "image/png" {
		t.Errorf("Expected image/png, got %s", info.MimeType)
	}

	decoded, mimeType, err := ParseDataURL(sticker.Src)
	if err != nil {
		t.Fatalf("Failed to parse data URL: %v", err)
	}
	if mimeType != "image/png" || !bytes.Equal(decoded, data) {
		t.Error("Data URL did not round trip the image")
	}
}

// TestGetImageInfo_Invalid verifies non-images are rejected
func TestGetImageInfo_Invalid(t *testing.T) {
	if _, err := GetImageInfo([]byte("not an image")); err == nil {
		t.Error("Expected error for invalid image data")
	}
}

// TestParseDataURL_Invalid verifies malformed data URLs are rejected
func TestParseDataURL_Invalid(t *testing.T) {
	for _, src := range []string{"mxc://matrix.org/abc", "data:image/png,raw", "data:image/png;base64", "data:image/png;base64,!!"} {
		if _, _, err := ParseDataURL(src); err == nil {
			t.Errorf("Expected error for %q", src)
		}
	}
}

// TestDetectMimeType verifies magic-number sniffing
func TestDetectMimeType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D}, "image/png"},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		{"gif", []byte("GIF89a"), "image/gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "image/webp"},
		{"short", []byte{0x01}, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMimeType(tt.data); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

// TestHashImage_Format verifies hash has correct format
func TestHashImage_Format(t *testing.T) {
	hash := HashImage([]byte("test"))

	if len(hash) != 64 {
		t.Errorf("Expected hash length 64, got %d", len(hash))
	}
	if HashImage([]byte("test")) != hash {
		t.Error("Same data produced different hashes")
	}
}

// TestParseLanguage verifies language parsing
func TestParseLanguage(t *testing.T) {
	tests := []struct {
		input string
		want  Language
	}{
		{"en", English},
		{"English", English},
		{" id ", Indonesian},
		{"bahasa", Indonesian},
		{"AR", Arabic},
	}

	for _, tt := range tests {
		got, err := ParseLanguage(tt.input)
		if err != nil {
			t.Errorf("ParseLanguage(%q) failed: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLanguage(%q): expected %s, got %s", tt.input, tt.want, got)
		}
	}

	if _, err := ParseLanguage("klingon"); err == nil {
		t.Error("Expected error for unsupported language")
	}
	if LanguageName(Indonesian) != "Indonesian" {
		t.Errorf("Unexpected name: %s", LanguageName(Indonesian))
	}
}

func setupTestDir(t *testing.T) string {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "sayangku-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	return tmpDir
}

func testImage(id int64) GalleryImage {
	return GalleryImage{
		ID:         id,
		Src:        "data:image/png;base64,AAAA",
		User:       "aku",
		IsFavorite: true,
		Stickers: []overlay.PlacedSticker{{
			ID:           1700000000000,
			SavedSticker: overlay.SavedSticker{Src: "data:image/png;base64,BBBB", AspectRatio: 1.5},
			X:            52,
			Y:            51,
			Width:        20,
		}},
		CreatedAt: time.Now(),
	}
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}
