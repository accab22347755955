package turn

import (
	"strings"

	"github.com/kristentruong11/sun11this/internal/store"
)

// Classify maps a user message to its turn kind by fixed keyword lists,
// checked in priority order. The match is case-insensitive on the raw text;
// diacritics are significant here ("tạo ảnh" matches, "tao anh" does not),
// except for the true/false keyword, which users type with and without tone
// marks and hyphens often enough that every spelling gets an entry.
func Classify(content string) store.TurnKind {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "tạo ảnh") || strings.Contains(lower, "minh họa"):
		return store.TurnImage
	case strings.Contains(lower, "trắc nghiệm") || strings.Contains(lower, "quiz"):
		return store.TurnQuiz
	case strings.Contains(lower, "flashcard"):
		return store.TurnFlashcard
	case strings.Contains(lower, "đúng-sai") || strings.Contains(lower, "đúng sai") ||
		strings.Contains(lower, "dung-sai") || strings.Contains(lower, "dung sai"):
		return store.TurnTrueFalse
	default:
		return store.TurnText
	}
}
