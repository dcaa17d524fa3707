// Package storage provides persistent storage for the shared gallery, the
// sticker library and the chat history.
// Each lives in its own JSON file in the data directory: gallery.json,
// stickers.json and chat.json. The sticker library can live in Redis instead.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadGallery loads the gallery from disk
func LoadGallery(dataDir string) (*Gallery, error) {
	galleryPath := filepath.Join(dataDir, "gallery.json")

	// Check if file exists
	if _, err := os.Stat(galleryPath); os.IsNotExist(err) {
		// Return empty gallery if file doesn't exist
		return &Gallery{Images: []GalleryImage{}}, nil
	}

	data, err := os.ReadFile(galleryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read gallery file: %w", err)
	}

	var gallery Gallery
	if err := json.Unmarshal(data, &gallery); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gallery: %w", err)
	}
	if gallery.Images == nil {
		gallery.Images = []GalleryImage{}
	}

	return &gallery, nil
}

// SaveGallery saves the gallery to disk
func SaveGallery(dataDir string, gallery *Gallery) error {
	return writeJSON(dataDir, "gallery.json", gallery)
}

// GetImage retrieves an image by ID
func GetImage(dataDir string, id int64) (*GalleryImage, error) {
	gallery, err := LoadGallery(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load gallery: %w", err)
	}

	for _, image := range gallery.Images {
		if image.ID == id {
			return &image, nil
		}
	}

	return nil, fmt.Errorf("image not found: %d", id)
}

// writeJSON marshals v into dataDir/name, creating the directory if needed
func writeJSON(dataDir, name string, v any) error {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	if err := os.WriteFile(filepath.Join(dataDir, name), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	return nil
}

// readJSON unmarshals dataDir/name into v. A missing file leaves v untouched.
func readJSON(dataDir, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(dataDir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}
