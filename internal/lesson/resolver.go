// Package lesson resolves user text to a knowledge-base lesson coordinate.
//
// The resolver is a pure function over its inputs plus the lookup
// collaborator: it never persists context itself. The turn orchestrator owns
// the per-conversation context state machine and applies the outcome.
package lesson

import (
	"context"
	"fmt"
	"strings"

	"github.com/kristentruong11/sun11this/internal/kb"
)

// Context is the active lesson coordinate of a conversation. It is created
// when a message resolves to a lesson, cleared when the user asks to pick a
// different one, and persisted per conversation id across reloads.
type Context struct {
	Grade  int    `json:"grade"`
	Lesson int    `json:"lesson"`
	Title  string `json:"title"`
}

// OutcomeKind enumerates resolution results.
type OutcomeKind int

const (
	// KindResolved means a coordinate was found and the lesson exists.
	KindResolved OutcomeKind = iota

	// KindCarryForward means the text names no coordinate but the
	// conversation already has one; the prior coordinate applies.
	KindCarryForward

	// KindAskForLesson means the user must be asked for a grade+lesson.
	KindAskForLesson

	// KindSuggestions means a title search produced candidate lessons to
	// surface instead of guessing.
	KindSuggestions

	// KindNotFound means a coordinate was named but no lesson exists
	// there. Callers must not fall through to open generation.
	KindNotFound

	// KindOpen means the text is an open-ended query with no lesson
	// coordinate and no prior context.
	KindOpen
)

// String returns the kind name for logging.
func (k OutcomeKind) String() string {
	switch k {
	case KindResolved:
		return "resolved"
	case KindCarryForward:
		return "carry_forward"
	case KindAskForLesson:
		return "ask_for_lesson"
	case KindSuggestions:
		return "suggestions"
	case KindNotFound:
		return "not_found"
	case KindOpen:
		return "open"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the result of resolving one user message.
type Outcome struct {
	Kind   OutcomeKind
	Grade  int // set for Resolved, CarryForward, NotFound
	Lesson int // set for Resolved, CarryForward, NotFound

	// Doc is the resolved lesson document (Resolved only).
	Doc *kb.LessonDoc

	// Suggestions holds candidate lessons in match order (Suggestions
	// only), bounded by MaxSuggestions.
	Suggestions []kb.LessonDoc
}

// MaxSuggestions bounds how many title-search candidates are surfaced.
const MaxSuggestions = 10

// genericOpener is the bare "explain this to me" phrase that, on its own,
// signals the user wants to pick a (different) lesson.
const genericOpener = "giai thich cho toi ve"

// genericPhrases are stripped from title-search terms and, when they make up
// the whole message without a usable coordinate, trigger the ask-for-lesson
// reply instead of a blind generation call. Phrases are in folded form (see
// kb.Fold), so hyphenated and unhyphenated spellings match alike. The bare
// true/false keyword is not here: on its own it is a turn-kind signal, and
// the orchestrator answers a lesson-less true/false request itself.
var genericPhrases = []string{
	genericOpener,
	"noi dung bai hoc",
	"tao anh minh hoa",
	"tao 5 cau trac nghiem",
	"trac nghiem",
	"tao 7 flashcards",
	"flashcard",
	"tao 3 cau dung sai",
}

// bareOpenerMaxRunes bounds how long a message can be and still count as the
// bare opener (longer texts carry a topic worth searching for).
const bareOpenerMaxRunes = 30

// Resolver maps raw user text plus prior context to an Outcome.
//
// Resolution is idempotent: the same inputs against the same lookup state
// produce the same outcome. Resolver is safe for concurrent use.
type Resolver struct {
	lookup   kb.Lookup
	gradeMin int
	gradeMax int
}

// NewResolver creates a resolver over the given lookup and supported grade
// range.
func NewResolver(lookup kb.Lookup, gradeMin, gradeMax int) *Resolver {
	return &Resolver{lookup: lookup, gradeMin: gradeMin, gradeMax: gradeMax}
}

// Resolve decides the effective lesson coordinate for one user message.
//
// The decision order mirrors the conversation flow: an explicit "let me pick
// a lesson" opener wins, then a named coordinate (possibly completed from
// prior context), then carry-forward, then title search, then the generic
// ask, and only an unrecognized free-text message is left open-ended.
func (r *Resolver) Resolve(ctx context.Context, rawText string, prior *Context) (Outcome, error) {
	folded := kb.Fold(rawText)
	coord := ExtractCoordinate(folded, r.gradeMin, r.gradeMax)

	// Bare opener: the user is (re)starting lesson selection. The
	// orchestrator clears any prior context on this outcome.
	if coord.Empty() && isBareOpener(folded) {
		return Outcome{Kind: KindAskForLesson}, nil
	}

	if coord.Empty() && prior != nil {
		return Outcome{Kind: KindCarryForward, Grade: prior.Grade, Lesson: prior.Lesson}, nil
	}

	// A partial coordinate is completed from prior context, matching how
	// "bài 5" inside an ongoing grade-10 conversation means (10, 5).
	effective := coord
	if prior != nil {
		if effective.Grade == 0 {
			effective.Grade = prior.Grade
		}
		if effective.Lesson == 0 {
			effective.Lesson = prior.Lesson
		}
	}

	if effective.Complete() {
		doc, err := r.lookup.ByCoordinate(ctx, effective.Grade, effective.Lesson)
		if err != nil {
			return Outcome{}, fmt.Errorf("looking up lesson (%d, %d): %w", effective.Grade, effective.Lesson, err)
		}
		if doc == nil {
			return Outcome{Kind: KindNotFound, Grade: effective.Grade, Lesson: effective.Lesson}, nil
		}
		return Outcome{Kind: KindResolved, Grade: effective.Grade, Lesson: effective.Lesson, Doc: doc}, nil
	}

	// No usable coordinate and no prior context: try the title search
	// before giving up on grounding.
	term := stripGenericPhrases(folded)
	if len([]rune(term)) >= 3 {
		matches, err := r.lookup.ByTitleSubstring(ctx, term)
		if err != nil {
			return Outcome{}, fmt.Errorf("searching lesson titles: %w", err)
		}
		if len(matches) > 0 {
			if len(matches) > MaxSuggestions {
				matches = matches[:MaxSuggestions]
			}
			return Outcome{Kind: KindSuggestions, Suggestions: matches}, nil
		}
	}

	if isGenericPrompt(folded) {
		return Outcome{Kind: KindAskForLesson}, nil
	}

	return Outcome{Kind: KindOpen}, nil
}

func isBareOpener(folded string) bool {
	return strings.Contains(folded, genericOpener) &&
		len([]rune(folded)) < bareOpenerMaxRunes
}

func isGenericPrompt(folded string) bool {
	for _, p := range genericPhrases {
		if strings.Contains(folded, p) {
			return true
		}
	}
	return false
}

func stripGenericPhrases(folded string) string {
	term := folded
	for _, p := range genericPhrases {
		term = strings.ReplaceAll(term, p, "")
	}
	return strings.Join(strings.Fields(term), " ")
}
