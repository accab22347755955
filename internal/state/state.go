// Package state persists small per-conversation client state (active lesson
// context, true/false question cursor) as JSON files under the application
// state directory. The files are a local convenience, not a source of truth:
// a missing or corrupt file degrades to "no state".
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/kristentruong11/sun11this/internal/lesson"
)

// Store reads and writes per-conversation state files.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates a state store rooted at dir, creating it if needed.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("state: directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}, nil
}

// LoadContext returns the saved lesson context for a conversation, or nil
// when none is stored. A corrupt file is logged and treated as absent.
func (s *Store) LoadContext(conversationID uuid.UUID) *lesson.Context {
	path := s.contextPath(conversationID)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("reading lesson context failed", "path", path, "error", err)
		}
		return nil
	}

	var ctx lesson.Context
	if err := json.Unmarshal(data, &ctx); err != nil {
		s.logger.Warn("discarding corrupt lesson context", "path", path, "error", err)
		return nil
	}
	return &ctx
}

// SaveContext stores the lesson context for a conversation.
func (s *Store) SaveContext(conversationID uuid.UUID, ctx lesson.Context) error {
	data, err := json.Marshal(ctx)
	if err != nil {
		return fmt.Errorf("encoding lesson context: %w", err)
	}
	if err := os.WriteFile(s.contextPath(conversationID), data, 0o600); err != nil {
		return fmt.Errorf("writing lesson context: %w", err)
	}
	return nil
}

// ClearContext removes the stored lesson context, if any.
func (s *Store) ClearContext(conversationID uuid.UUID) {
	if err := os.Remove(s.contextPath(conversationID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("clearing lesson context failed", "conversation_id", conversationID, "error", err)
	}
}

// LoadCursor returns the saved true/false cursor for a conversation and
// lesson coordinate. Missing or corrupt state yields zero.
func (s *Store) LoadCursor(conversationID uuid.UUID, grade, lessonNumber int) int {
	path := s.cursorPath(conversationID, grade, lessonNumber)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}

	var cursor int
	if err := json.Unmarshal(data, &cursor); err != nil || cursor < 0 {
		s.logger.Warn("discarding corrupt cursor", "path", path)
		return 0
	}
	return cursor
}

// SaveCursor stores the true/false cursor for a conversation and lesson
// coordinate.
func (s *Store) SaveCursor(conversationID uuid.UUID, grade, lessonNumber, cursor int) error {
	data, err := json.Marshal(cursor)
	if err != nil {
		return fmt.Errorf("encoding cursor: %w", err)
	}
	path := s.cursorPath(conversationID, grade, lessonNumber)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing cursor: %w", err)
	}
	return nil
}

// DropConversation removes all state files belonging to a conversation.
// Used when the conversation itself is deleted.
func (s *Store) DropConversation(conversationID uuid.UUID) {
	s.ClearContext(conversationID)

	pattern := filepath.Join(s.dir, fmt.Sprintf("tf_cursor_%s_*.json", conversationID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("removing cursor file failed", "path", m, "error", err)
		}
	}
}

func (s *Store) contextPath(conversationID uuid.UUID) string {
	return filepath.Join(s.dir, fmt.Sprintf("lesson_context_%s.json", conversationID))
}

func (s *Store) cursorPath(conversationID uuid.UUID, grade, lessonNumber int) string {
	return filepath.Join(s.dir, fmt.Sprintf("tf_cursor_%s_%d_%d.json", conversationID, lessonNumber, grade))
}
