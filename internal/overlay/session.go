package overlay

import (
	"math"
	"time"
)

// Session owns the working set of one open image editor together with the
// in-flight pointer interaction. A Session is single-owner; callers that share
// it across goroutines must serialise access themselves.
type Session struct {
	imageID     int64
	stickers    []PlacedSticker
	interaction *Interaction
	container   Container
	now         func() time.Time
	lastID      int64
	open        bool
	view        View
}

// View holds display flags that last only as long as one editing session.
type View struct {
	Inverted bool `json:"inverted"`
	Mirrored bool `json:"mirrored"`
}

// Option configures a Session
type Option func(*Session)

// WithClock overrides the time source used for sticker ids.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// Open starts an editor session seeded with a copy of the image's committed stickers.
func Open(imageID int64, stickers []PlacedSticker, container Container, opts ...Option) *Session {
	s := &Session{
		imageID:   imageID,
		stickers:  make([]PlacedSticker, len(stickers)),
		container: container,
		now:       time.Now,
		open:      true,
	}
	copy(s.stickers, stickers)

	for _, st := range s.stickers {
		if st.ID > s.lastID {
			s.lastID = st.ID
		}
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ImageID returns the id of the image being edited
func (s *Session) ImageID() int64 {
	return s.imageID
}

// IsOpen reports whether the session still accepts edits
func (s *Session) IsOpen() bool {
	return s.open
}

// Container returns the container the session measures pointer moves against
func (s *Session) Container() Container {
	return s.container
}

// View returns the current display flags
func (s *Session) View() View {
	return s.view
}

// ToggleInverted flips colour inversion of the image being edited.
func (s *Session) ToggleInverted() View {
	if s.open {
		s.view.Inverted = !s.view.Inverted
	}
	return s.view
}

// ToggleMirrored flips the image horizontally.
func (s *Session) ToggleMirrored() View {
	if s.open {
		s.view.Mirrored = !s.view.Mirrored
	}
	return s.view
}

// Stickers returns a copy of the working set
func (s *Session) Stickers() []PlacedSticker {
	out := make([]PlacedSticker, len(s.stickers))
	copy(out, s.stickers)
	return out
}

// Sticker returns the placement with the given id
func (s *Session) Sticker(id int64) (PlacedSticker, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.stickers[i], true
	}
	return PlacedSticker{}, false
}

// Active returns the in-flight interaction, if any
func (s *Session) Active() (Interaction, bool) {
	if s.interaction == nil {
		return Interaction{}, false
	}
	return *s.interaction, true
}

// Place appends a copy of the library sticker at the default position and size.
func (s *Session) Place(sticker SavedSticker) PlacedSticker {
	placed := PlacedSticker{
		ID:           s.nextID(),
		SavedSticker: sticker,
		X:            DefaultX,
		Y:            DefaultY,
		Width:        DefaultWidth,
	}
	if !s.open {
		return placed
	}

	s.stickers = append(s.stickers, placed)
	return placed
}

// Remove deletes the placement with the given id. Unknown ids are ignored.
func (s *Session) Remove(id int64) {
	if !s.open {
		return
	}

	i := s.indexOf(id)
	if i < 0 {
		return
	}

	s.stickers = append(s.stickers[:i], s.stickers[i+1:]...)
	if s.interaction != nil && s.interaction.StickerID == id {
		s.interaction = nil
	}
}

// BeginInteraction starts a move or resize drag on a sticker, replacing any
// interaction already in progress. Unknown stickers and types are ignored.
func (s *Session) BeginInteraction(id int64, kind InteractionType, pointerX, pointerY float64) {
	if !s.open || !kind.Valid() {
		return
	}

	i := s.indexOf(id)
	if i < 0 {
		return
	}

	st := s.stickers[i]
	s.interaction = &Interaction{
		Type:              kind,
		StickerID:         id,
		StartX:            pointerX,
		StartY:            pointerY,
		StartStickerX:     st.X,
		StartStickerY:     st.Y,
		StartStickerWidth: st.Width,
	}
}

// UpdateInteraction applies the pointer delta since BeginInteraction. The
// container is measured on every call so it may resize mid-drag.
func (s *Session) UpdateInteraction(pointerX, pointerY float64) {
	if !s.open || s.interaction == nil || s.container == nil {
		return
	}

	in := s.interaction
	i := s.indexOf(in.StickerID)
	if i < 0 {
		s.interaction = nil
		return
	}

	width, height := s.container.Size()
	if width <= 0 {
		return
	}
	dx := (pointerX - in.StartX) / width * 100

	switch in.Type {
	case Move:
		if height <= 0 {
			return
		}
		dy := (pointerY - in.StartY) / height * 100
		s.stickers[i].X = in.StartStickerX + dx
		s.stickers[i].Y = in.StartStickerY + dy
	case Resize:
		s.stickers[i].Width = math.Max(MinWidth, in.StartStickerWidth+dx)
	}
}

// EndInteraction clears the in-flight interaction. Calling it twice is harmless.
func (s *Session) EndInteraction() {
	s.interaction = nil
}

// Close ends any interaction, stops accepting edits and returns the final working set.
func (s *Session) Close() []PlacedSticker {
	s.EndInteraction()
	s.open = false
	return s.Stickers()
}

func (s *Session) indexOf(id int64) int {
	for i := range s.stickers {
		if s.stickers[i].ID == id {
			return i
		}
	}
	return -1
}

// nextID derives an id from the wall clock, bumped past the last issued id so
// two placements within the same millisecond stay distinct.
func (s *Session) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}
