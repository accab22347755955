package kb

import (
	"context"
	"strings"
	"sync"
)

// Index is an in-memory Lookup over a lesson document set.
//
// The document set is replaced wholesale by Reload; reads and reloads are
// safe to interleave. Index is safe for concurrent use.
type Index struct {
	mu   sync.RWMutex
	docs []LessonDoc
}

// NewIndex builds a lookup index over the given documents.
func NewIndex(docs []LessonDoc) *Index {
	idx := &Index{}
	idx.Reload(docs)
	return idx
}

// Reload replaces the indexed document set.
func (idx *Index) Reload(docs []LessonDoc) {
	cp := make([]LessonDoc, len(docs))
	copy(cp, docs)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.docs = cp
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// ByCoordinate returns the theory document at (grade, lesson), or (nil, nil)
// when the coordinate has no theory content.
func (idx *Index) ByCoordinate(_ context.Context, grade, lesson int) (*LessonDoc, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for i := range idx.docs {
		doc := &idx.docs[i]
		if doc.Grade != grade || doc.Lesson != lesson {
			continue
		}
		if doc.Category != "" && doc.Category != CategoryTheory {
			continue
		}
		cp := *doc
		return &cp, nil
	}
	return nil, nil
}

// ByTitleSubstring returns theory documents whose folded title contains the
// folded query, in index order. An empty or too-short query matches nothing.
func (idx *Index) ByTitleSubstring(_ context.Context, query string) ([]LessonDoc, error) {
	folded := Fold(query)
	if len([]rune(folded)) < 3 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var matches []LessonDoc
	for _, doc := range idx.docs {
		if doc.Category != "" && doc.Category != CategoryTheory {
			continue
		}
		if containsFolded(doc.Title, folded) {
			matches = append(matches, doc)
		}
	}
	return matches, nil
}

// TrueFalseItems merges the true/false items of every category row at the
// coordinate, in row order.
func (idx *Index) TrueFalseItems(_ context.Context, grade, lesson int) ([]TrueFalseItem, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var items []TrueFalseItem
	for _, doc := range idx.docs {
		if doc.Grade != grade || doc.Lesson != lesson {
			continue
		}
		items = append(items, doc.TrueFalse...)
	}
	return items, nil
}

func containsFolded(title, foldedQuery string) bool {
	folded := Fold(title)
	return folded != "" && strings.Contains(folded, foldedQuery)
}
