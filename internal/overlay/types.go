// Package overlay implements sticker placement on a single open gallery image.
// Positions and sizes are percentages of the image container so a placement
// survives any rendering size.
package overlay

// Placement defaults for a freshly placed sticker
const (
	DefaultX     = 50.0
	DefaultY     = 50.0
	DefaultWidth = 20.0
	MinWidth     = 5.0
)

// SavedSticker is a reusable sticker asset in the library
type SavedSticker struct {
	Src         string  `json:"src"`         // Image reference (data URL, mxc:// or http URL)
	AspectRatio float64 `json:"aspectRatio"` // Natural width / height, fixed at import
}

// PlacedSticker is a SavedSticker instantiated onto one image
type PlacedSticker struct {
	ID int64 `json:"id"`
	SavedSticker
	X     float64 `json:"x"`     // Center X, percent of container width
	Y     float64 `json:"y"`     // Center Y, percent of container height
	Width float64 `json:"width"` // Percent of container width
}

// Height returns the rendered height in percent of container width.
func (p PlacedSticker) Height() float64 {
	if p.AspectRatio <= 0 {
		return p.Width
	}
	return p.Width / p.AspectRatio
}

// InteractionType is the kind of pointer drag in progress
type InteractionType string

const (
	Move   InteractionType = "move"
	Resize InteractionType = "resize"
)

// Valid reports whether t is a known interaction type.
func (t InteractionType) Valid() bool {
	return t == Move || t == Resize
}

// Interaction is the baseline captured at pointer-down
type Interaction struct {
	Type              InteractionType `json:"type"`
	StickerID         int64           `json:"stickerId"`
	StartX            float64         `json:"startX"`
	StartY            float64         `json:"startY"`
	StartStickerX     float64         `json:"startStickerX"`
	StartStickerY     float64         `json:"startStickerY"`
	StartStickerWidth float64         `json:"startStickerWidth"`
}

// Container reports the current pixel size of the image container.
type Container interface {
	Size() (width, height float64)
}

// Viewport is a Container whose size the presentation layer updates as it changes.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size implements Container.
func (v *Viewport) Size() (float64, float64) {
	return v.Width, v.Height
}

// Resize records a new container size.
func (v *Viewport) Resize(width, height float64) {
	v.Width = width
	v.Height = height
}
