package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"  // Import for image format support
	_ "image/jpeg" // Import for image format support
	_ "image/png"  // Import for image format support
	"strings"

	"github.com/liminalpurple/sayangku/internal/overlay"
	_ "golang.org/x/image/webp" // Stickers are commonly webp
)

// ImageInfo contains metadata about an image
type ImageInfo struct {
	Width     int
	Height    int
	SizeBytes int64
	MimeType  string
}

// AspectRatio returns width / height
func (i ImageInfo) AspectRatio() float64 {
	if i.Height == 0 {
		return 1
	}
	return float64(i.Width) / float64(i.Height)
}

// GetImageInfo extracts image metadata
func GetImageInfo(data []byte) (*ImageInfo, error) {
	img, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("image has no area: %dx%d", img.Width, img.Height)
	}

	return &ImageInfo{
		Width:     img.Width,
		Height:    img.Height,
		SizeBytes: int64(len(data)),
		MimeType:  formatToMimeType(format),
	}, nil
}

// SavedStickerFromImage builds a library entry from raw image bytes. The
// aspect ratio comes from the image's natural dimensions.
func SavedStickerFromImage(data []byte) (overlay.SavedSticker, *ImageInfo, error) {
	info, err := GetImageInfo(data)
	if err != nil {
		return overlay.SavedSticker{}, nil, err
	}

	return overlay.SavedSticker{
		Src:         DataURL(data, info.MimeType),
		AspectRatio: info.AspectRatio(),
	}, info, nil
}

// DataURL encodes image bytes as a base64 data URL
func DataURL(data []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL decodes a base64 data URL into its bytes and MIME type
func ParseDataURL(src string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(src, "data:")
	if !ok {
		return nil, "", fmt.Errorf("not a data URL")
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URL")
	}

	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("data URL is not base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode data URL: %w", err)
	}
	return data, mimeType, nil
}

// HashImage generates a SHA256 hash of image data
func HashImage(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// DetectMimeType attempts to detect MIME type from data
func DetectMimeType(data []byte) string {
	if len(data) < 4 {
		return "application/octet-stream"
	}

	// Check PNG signature
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}

	// Check JPEG signature
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}

	// Check GIF signature
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 {
		return "image/gif"
	}

	// Check WebP signature
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}

	return "application/octet-stream"
}

// formatToMimeType converts image format string to MIME type
func formatToMimeType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	default:
		return "image/" + format
	}
}
