// Package gallery manages the shared photo gallery: the image list, the
// sticker library and the sticker overlay editor open on an image.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/liminalpurple/sayangku/internal/overlay"
	"github.com/liminalpurple/sayangku/internal/storage"
)

var (
	// ErrNotFound is returned for an unknown image id
	ErrNotFound = errors.New("image not found")
	// ErrAlreadyOpen is returned when an image already has an open editor
	ErrAlreadyOpen = errors.New("editor already open for image")
	// ErrNotOpen is returned when no editor is open for an image
	ErrNotOpen = errors.New("no editor open for image")
	// ErrNoSuchSticker is returned for a library index out of range
	ErrNoSuchSticker = errors.New("no such sticker in library")
	// ErrInvalidImage is returned when an uploaded sticker cannot be decoded
	ErrInvalidImage = errors.New("invalid sticker image")
)

// Service owns the gallery state. It is safe for concurrent use; editor
// sessions are only reachable through Do, which holds the service lock.
type Service struct {
	dataDir string
	library storage.LibraryStore
	now     func() time.Time

	mu      sync.Mutex
	images  []storage.GalleryImage
	editors map[int64]*overlay.Session
	lastID  int64
}

// NewService loads the gallery from dataDir. A nil clock means time.Now.
func NewService(dataDir string, library storage.LibraryStore, clock func() time.Time) (*Service, error) {
	if clock == nil {
		clock = time.Now
	}

	gallery, err := storage.LoadGallery(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load gallery: %w", err)
	}

	s := &Service{
		dataDir: dataDir,
		library: library,
		now:     clock,
		images:  gallery.Images,
		editors: make(map[int64]*overlay.Session),
	}
	for _, img := range s.images {
		if img.ID > s.lastID {
			s.lastID = img.ID
		}
	}
	return s, nil
}

// List returns the images newest first, optionally only favourites
func (s *Service) List(favoritesOnly bool) []storage.GalleryImage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]storage.GalleryImage, 0, len(s.images))
	for _, img := range s.images {
		if favoritesOnly && !img.IsFavorite {
			continue
		}
		out = append(out, copyImage(img))
	}
	return out
}

// Get returns one image
func (s *Service) Get(id int64) (storage.GalleryImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return storage.GalleryImage{}, ErrNotFound
	}
	return copyImage(s.images[i]), nil
}

// Add puts a new image at the front of the gallery
func (s *Service) Add(src, user string) storage.GalleryImage {
	s.mu.Lock()
	defer s.mu.Unlock()

	img := storage.GalleryImage{
		ID:        s.nextID(),
		Src:       src,
		User:      user,
		Stickers:  []overlay.PlacedSticker{},
		CreatedAt: s.now(),
	}
	s.images = append([]storage.GalleryImage{img}, s.images...)
	s.persist()

	log.Printf("Added image %d from %s", img.ID, user)
	return copyImage(img)
}

// ToggleFavorite flips the favourite flag and returns the updated image
func (s *Service) ToggleFavorite(id int64) (storage.GalleryImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return storage.GalleryImage{}, ErrNotFound
	}
	s.images[i].IsFavorite = !s.images[i].IsFavorite
	s.persist()
	return copyImage(s.images[i]), nil
}

// Delete removes an image. An editor open on it is discarded.
func (s *Service) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	if sess, ok := s.editors[id]; ok {
		sess.Close()
		delete(s.editors, id)
	}
	s.images = append(s.images[:i], s.images[i+1:]...)
	s.persist()
	return nil
}

// Open starts an editor on an image, seeded with its committed stickers
func (s *Service) Open(imageID int64, container overlay.Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(imageID)
	if i < 0 {
		return ErrNotFound
	}
	if _, ok := s.editors[imageID]; ok {
		return ErrAlreadyOpen
	}

	s.editors[imageID] = overlay.Open(imageID, s.images[i].Stickers, container, overlay.WithClock(s.now))
	return nil
}

// IsOpen reports whether an editor is open on the image
func (s *Service) IsOpen(imageID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.editors[imageID]
	return ok
}

// Do runs fn against the image's open editor while holding the service lock
func (s *Service) Do(imageID int64, fn func(*overlay.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.editors[imageID]
	if !ok {
		return ErrNotOpen
	}
	return fn(sess)
}

// PlaceFromLibrary places the library sticker at index on the image's editor
func (s *Service) PlaceFromLibrary(ctx context.Context, imageID int64, index int) (overlay.PlacedSticker, error) {
	stickers, err := s.library.List(ctx)
	if err != nil {
		return overlay.PlacedSticker{}, fmt.Errorf("failed to list library: %w", err)
	}
	if index < 0 || index >= len(stickers) {
		return overlay.PlacedSticker{}, ErrNoSuchSticker
	}

	var placed overlay.PlacedSticker
	err = s.Do(imageID, func(sess *overlay.Session) error {
		placed = sess.Place(stickers[index])
		return nil
	})
	return placed, err
}

// Commit closes the editor and replaces the image's stickers with its final
// working set
func (s *Service) Commit(imageID int64) (storage.GalleryImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.editors[imageID]
	if !ok {
		return storage.GalleryImage{}, ErrNotOpen
	}
	delete(s.editors, imageID)
	stickers := sess.Close()

	i := s.indexOf(imageID)
	if i < 0 {
		return storage.GalleryImage{}, ErrNotFound
	}
	s.images[i].Stickers = stickers
	s.persist()

	log.Printf("Committed %d sticker(s) on image %d", len(stickers), imageID)
	return copyImage(s.images[i]), nil
}

// Library returns the sticker library in insertion order
func (s *Service) Library(ctx context.Context) ([]overlay.SavedSticker, error) {
	return s.library.List(ctx)
}

// ImportSticker turns an uploaded image into a library sticker. The aspect
// ratio is taken from the image's natural size.
func (s *Service) ImportSticker(ctx context.Context, data []byte) (overlay.SavedSticker, error) {
	return s.importSticker(ctx, data)
}

// ImportAndPlace imports an upload and places it on the image's open editor.
// Nothing is added to the library unless the editor is open.
func (s *Service) ImportAndPlace(ctx context.Context, data []byte, imageID int64) (overlay.SavedSticker, overlay.PlacedSticker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.editors[imageID]
	if !ok {
		return overlay.SavedSticker{}, overlay.PlacedSticker{}, ErrNotOpen
	}

	sticker, err := s.importSticker(ctx, data)
	if err != nil {
		return overlay.SavedSticker{}, overlay.PlacedSticker{}, err
	}
	return sticker, sess.Place(sticker), nil
}

func (s *Service) importSticker(ctx context.Context, data []byte) (overlay.SavedSticker, error) {
	sticker, info, err := storage.SavedStickerFromImage(data)
	if err != nil {
		return overlay.SavedSticker{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if err := s.library.Append(ctx, sticker); err != nil {
		return overlay.SavedSticker{}, fmt.Errorf("failed to save sticker: %w", err)
	}

	log.Printf("Imported sticker: %dx%d, %s, %d bytes", info.Width, info.Height, info.MimeType, info.SizeBytes)
	return sticker, nil
}

// persist writes the gallery, keeping in-memory state on failure.
// Callers hold s.mu.
func (s *Service) persist() {
	if err := storage.SaveGallery(s.dataDir, &storage.Gallery{Images: s.images}); err != nil {
		log.Printf("Warning: failed to save gallery: %v", err)
	}
}

func (s *Service) indexOf(id int64) int {
	for i := range s.images {
		if s.images[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func copyImage(img storage.GalleryImage) storage.GalleryImage {
	img.Stickers = append([]overlay.PlacedSticker{}, img.Stickers...)
	return img
}
