package state

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/kristentruong11/sun11this/internal/lesson"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestContextRoundTrip(t *testing.T) {
	s := newTestStore(t)
	convID := uuid.New()

	if got := s.LoadContext(convID); got != nil {
		t.Fatalf("LoadContext() on empty store = %v, want nil", got)
	}

	want := lesson.Context{Grade: 12, Lesson: 2, Title: "Cách mạng tháng Tám năm 1945"}
	if err := s.SaveContext(convID, want); err != nil {
		t.Fatalf("SaveContext() error = %v", err)
	}

	got := s.LoadContext(convID)
	if got == nil {
		t.Fatal("LoadContext() = nil after save")
	}
	if *got != want {
		t.Errorf("LoadContext() = %+v, want %+v", *got, want)
	}

	s.ClearContext(convID)
	if got := s.LoadContext(convID); got != nil {
		t.Errorf("LoadContext() after clear = %v, want nil", got)
	}
}

func TestContextsAreScopedPerConversation(t *testing.T) {
	s := newTestStore(t)
	a, b := uuid.New(), uuid.New()

	if err := s.SaveContext(a, lesson.Context{Grade: 10, Lesson: 3, Title: "Văn minh Đại Việt"}); err != nil {
		t.Fatalf("SaveContext() error = %v", err)
	}
	if got := s.LoadContext(b); got != nil {
		t.Errorf("LoadContext(other) = %v, want nil", got)
	}
}

func TestCorruptContextTreatedAsAbsent(t *testing.T) {
	s := newTestStore(t)
	convID := uuid.New()

	path := filepath.Join(s.dir, "lesson_context_"+convID.String()+".json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := s.LoadContext(convID); got != nil {
		t.Errorf("LoadContext() on corrupt file = %v, want nil", got)
	}
}

func TestCursorRoundTripAndScoping(t *testing.T) {
	s := newTestStore(t)
	convID := uuid.New()

	if got := s.LoadCursor(convID, 12, 2); got != 0 {
		t.Fatalf("LoadCursor() on empty store = %d, want 0", got)
	}

	if err := s.SaveCursor(convID, 12, 2, 6); err != nil {
		t.Fatalf("SaveCursor() error = %v", err)
	}
	if got := s.LoadCursor(convID, 12, 2); got != 6 {
		t.Errorf("LoadCursor() = %d, want 6", got)
	}

	// A different lesson coordinate keeps its own cursor.
	if got := s.LoadCursor(convID, 12, 3); got != 0 {
		t.Errorf("LoadCursor(other lesson) = %d, want 0", got)
	}
	if got := s.LoadCursor(uuid.New(), 12, 2); got != 0 {
		t.Errorf("LoadCursor(other conversation) = %d, want 0", got)
	}
}

func TestDropConversationRemovesAllState(t *testing.T) {
	s := newTestStore(t)
	convID := uuid.New()

	if err := s.SaveContext(convID, lesson.Context{Grade: 11, Lesson: 5, Title: "Cách mạng công nghiệp"}); err != nil {
		t.Fatalf("SaveContext() error = %v", err)
	}
	if err := s.SaveCursor(convID, 11, 5, 3); err != nil {
		t.Fatalf("SaveCursor() error = %v", err)
	}

	s.DropConversation(convID)
	if got := s.LoadContext(convID); got != nil {
		t.Errorf("LoadContext() after drop = %v, want nil", got)
	}
	if got := s.LoadCursor(convID, 11, 5); got != 0 {
		t.Errorf("LoadCursor() after drop = %d, want 0", got)
	}
}
