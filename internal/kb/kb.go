// Package kb provides the lesson knowledge base lookup.
//
// A lesson is addressed by a (grade, lesson) coordinate or found by a
// diacritic-insensitive title substring search. Lookups are served from an
// in-memory index built over the lesson rows; the index is the unit the
// resolver and orchestrator consume.
package kb

import "context"

// Lesson categories. Theory rows carry the lesson content; other categories
// (exercises, question banks) contribute true/false items only.
const (
	CategoryTheory = "theory"
)

// Choice holds the four option or answer slots of a true/false item.
type Choice struct {
	A string `json:"a"`
	B string `json:"b"`
	C string `json:"c"`
	D string `json:"d"`
}

// TrueFalseItem is one multi-statement true/false exercise.
type TrueFalseItem struct {
	Number   string `json:"question_number"`
	Material string `json:"material,omitempty"`
	Options  Choice `json:"options"`
	Answers  Choice `json:"answers"`
}

// LessonDoc is one knowledge-base row.
type LessonDoc struct {
	Grade     int
	Lesson    int
	Title     string
	Content   string
	Category  string
	TrueFalse []TrueFalseItem
}

// Lookup is the knowledge lookup contract consumed by the resolver and the
// turn orchestrator. Implementations must be safe for concurrent use.
type Lookup interface {
	// ByCoordinate resolves a (grade, lesson) coordinate to its content
	// document. Returns (nil, nil) when no lesson exists at the
	// coordinate; a miss is a conversational outcome, not an error.
	ByCoordinate(ctx context.Context, grade, lesson int) (*LessonDoc, error)

	// ByTitleSubstring returns lessons whose folded title contains the
	// folded query, in stable match order.
	ByTitleSubstring(ctx context.Context, query string) ([]LessonDoc, error)

	// TrueFalseItems returns every true/false item recorded for the
	// coordinate, merged across categories in row order.
	TrueFalseItems(ctx context.Context, grade, lesson int) ([]TrueFalseItem, error)
}
