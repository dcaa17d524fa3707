package storage

import "fmt"

// LoadPublication loads the record of rooms the library was published to
func LoadPublication(dataDir string) (*Publication, error) {
	pub := &Publication{}
	if err := readJSON(dataDir, "published.json", pub); err != nil {
		return nil, err
	}
	if pub.Rooms == nil {
		pub.Rooms = map[string]string{}
	}
	if pub.Uploads == nil {
		pub.Uploads = map[string]string{}
	}
	return pub, nil
}

// SavePublication writes the publication record
func SavePublication(dataDir string, pub *Publication) error {
	return writeJSON(dataDir, "published.json", pub)
}

// UpdatePublished remembers that the library was published to roomID
func UpdatePublished(dataDir string, roomID string, stateKey string) error {
	pub, err := LoadPublication(dataDir)
	if err != nil {
		return fmt.Errorf("failed to load publication: %w", err)
	}

	pub.Rooms[roomID] = stateKey
	return SavePublication(dataDir, pub)
}
