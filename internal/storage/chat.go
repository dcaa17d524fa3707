package storage

import (
	"fmt"
)

// LoadHistory loads the chat history from disk
func LoadHistory(dataDir string) (*History, error) {
	history := &History{Messages: []ChatMessage{}}
	if err := readJSON(dataDir, "chat.json", history); err != nil {
		return nil, err
	}
	if history.Messages == nil {
		history.Messages = []ChatMessage{}
	}
	return history, nil
}

// SaveHistory saves the chat history to disk
func SaveHistory(dataDir string, history *History) error {
	return writeJSON(dataDir, "chat.json", history)
}

// AppendMessage adds a message to the end of the history. A message whose
// EventID is already stored is ignored, so replayed sync batches are harmless.
func AppendMessage(dataDir string, msg ChatMessage) (bool, error) {
	history, err := LoadHistory(dataDir)
	if err != nil {
		return false, fmt.Errorf("failed to load history: %w", err)
	}

	if msg.EventID != "" {
		for _, existing := range history.Messages {
			if existing.EventID == msg.EventID {
				return false, nil
			}
		}
	}

	history.Messages = append(history.Messages, msg)
	if err := SaveHistory(dataDir, history); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateMessage applies fn to the message with the given ID and saves
func UpdateMessage(dataDir string, id int64, fn func(*ChatMessage)) error {
	history, err := LoadHistory(dataDir)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	for i := range history.Messages {
		if history.Messages[i].ID == id {
			fn(&history.Messages[i])
			return SaveHistory(dataDir, history)
		}
	}

	return fmt.Errorf("message not found: %d", id)
}

// SetTranslation stores the translation (or failure notice) for a message
func SetTranslation(dataDir string, id int64, translation string) error {
	return UpdateMessage(dataDir, id, func(m *ChatMessage) {
		m.Translation = translation
	})
}
