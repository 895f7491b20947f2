package model

import (
	"fmt"
	"strings"
)

// Language is one of the supported story languages.
type Language string

const (
	LanguageEnglish Language = "english"
	LanguageHindi   Language = "hindi"
	LanguageNepali  Language = "nepali"
)

// Languages lists every supported language in display order.
var Languages = []Language{LanguageEnglish, LanguageHindi, LanguageNepali}

// ParseLanguage maps user input to a Language. An empty string selects English.
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case "", LanguageEnglish:
		return LanguageEnglish, nil
	case LanguageHindi:
		return LanguageHindi, nil
	case LanguageNepali:
		return LanguageNepali, nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

// LanguageInfo holds the code and English name of a language.
type LanguageInfo struct {
	Code string `json:"code"` // e.g., "hi"
	Name string `json:"name"` // e.g., "Hindi"
}
