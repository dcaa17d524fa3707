package storage

import (
	"fmt"
	"strings"
)

// Language is a chat language code
type Language string

const (
	English    Language = "en"
	Indonesian Language = "id"
	Arabic     Language = "ar"
)

var languageNames = map[Language]string{
	English:    "English",
	Indonesian: "Indonesian",
	Arabic:     "Arabic",
}

// ParseLanguage converts a user-friendly language string into a Language
// Accepts codes (en, id, ar) and names (english, indonesian, arabic, bahasa)
func ParseLanguage(input string) (Language, error) {
	input = strings.ToLower(strings.TrimSpace(input))

	switch input {
	case "en", "english":
		return English, nil
	case "id", "indonesian", "bahasa":
		return Indonesian, nil
	case "ar", "arabic":
		return Arabic, nil
	default:
		return "", fmt.Errorf("invalid language: %s (valid: en, id, ar)", input)
	}
}

// LanguageName returns the English name of a language for prompts and display
func LanguageName(lang Language) string {
	if name, ok := languageNames[lang]; ok {
		return name
	}
	return string(lang)
}
