package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LoadPostgres reads the full lesson set from the lessons table.
// The result feeds NewIndex; the tutoring client works against the index,
// mirroring how the knowledge base is a small, fully cacheable corpus.
func LoadPostgres(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) ([]LessonDoc, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rows, err := pool.Query(ctx, `
		SELECT grade, lesson, title, content, category, true_false_items
		FROM lessons
		ORDER BY grade, lesson`)
	if err != nil {
		return nil, fmt.Errorf("loading lessons: %w", err)
	}
	defer rows.Close()

	var docs []LessonDoc
	for rows.Next() {
		var (
			doc       LessonDoc
			itemsJSON []byte
		)
		if err := rows.Scan(&doc.Grade, &doc.Lesson, &doc.Title, &doc.Content, &doc.Category, &itemsJSON); err != nil {
			return nil, fmt.Errorf("scanning lesson: %w", err)
		}
		if len(itemsJSON) > 0 {
			if err := json.Unmarshal(itemsJSON, &doc.TrueFalse); err != nil {
				// A malformed item bank should not take the whole
				// lesson content offline.
				logger.Warn("skipping malformed true/false items",
					"grade", doc.Grade,
					"lesson", doc.Lesson,
					"error", err)
				doc.TrueFalse = nil
			}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading lessons: %w", err)
	}

	logger.Debug("loaded knowledge base", "lessons", len(docs))
	return docs, nil
}
