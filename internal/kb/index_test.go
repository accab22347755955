package kb

import (
	"context"
	"testing"
)

func testDocs() []LessonDoc {
	return []LessonDoc{
		{
			Grade:    10,
			Lesson:   3,
			Title:    "Văn minh Đại Việt",
			Content:  "Nội dung bài 3 lớp 10",
			Category: CategoryTheory,
			TrueFalse: []TrueFalseItem{
				{Number: "Câu 1", Options: Choice{A: "a1"}, Answers: Choice{A: "Đ"}},
			},
		},
		{
			Grade:    10,
			Lesson:   3,
			Category: "exercise",
			TrueFalse: []TrueFalseItem{
				{Number: "Câu 2", Options: Choice{A: "a2"}, Answers: Choice{A: "S"}},
				{Number: "Câu 3", Options: Choice{A: "a3"}, Answers: Choice{A: "Đ"}},
			},
		},
		{
			Grade:    12,
			Lesson:   2,
			Title:    "Cách mạng tháng Tám năm 1945",
			Content:  "Nội dung bài 2 lớp 12",
			Category: CategoryTheory,
		},
	}
}

func TestIndexByCoordinate(t *testing.T) {
	idx := NewIndex(testDocs())
	ctx := context.Background()

	t.Run("theory document found", func(t *testing.T) {
		doc, err := idx.ByCoordinate(ctx, 12, 2)
		if err != nil {
			t.Fatalf("ByCoordinate() error = %v", err)
		}
		if doc == nil {
			t.Fatal("ByCoordinate() = nil, want document")
		}
		if doc.Title != "Cách mạng tháng Tám năm 1945" {
			t.Errorf("Title = %q", doc.Title)
		}
	})

	t.Run("miss returns nil nil", func(t *testing.T) {
		doc, err := idx.ByCoordinate(ctx, 11, 99)
		if err != nil {
			t.Fatalf("ByCoordinate() error = %v", err)
		}
		if doc != nil {
			t.Errorf("ByCoordinate() = %+v, want nil", doc)
		}
	})

	t.Run("non-theory rows do not serve content", func(t *testing.T) {
		doc, err := idx.ByCoordinate(ctx, 10, 3)
		if err != nil {
			t.Fatalf("ByCoordinate() error = %v", err)
		}
		if doc == nil || doc.Category != CategoryTheory {
			t.Fatalf("ByCoordinate() = %+v, want theory row", doc)
		}
	})
}

func TestIndexByTitleSubstring(t *testing.T) {
	idx := NewIndex(testDocs())
	ctx := context.Background()

	t.Run("diacritic-insensitive match", func(t *testing.T) {
		matches, err := idx.ByTitleSubstring(ctx, "cach mang thang tam")
		if err != nil {
			t.Fatalf("ByTitleSubstring() error = %v", err)
		}
		if len(matches) != 1 || matches[0].Grade != 12 {
			t.Fatalf("matches = %+v, want the grade 12 lesson", matches)
		}
	})

	t.Run("query with diacritics", func(t *testing.T) {
		matches, err := idx.ByTitleSubstring(ctx, "Đại Việt")
		if err != nil {
			t.Fatalf("ByTitleSubstring() error = %v", err)
		}
		if len(matches) != 1 || matches[0].Lesson != 3 {
			t.Fatalf("matches = %+v, want lesson 3", matches)
		}
	})

	t.Run("short query matches nothing", func(t *testing.T) {
		matches, err := idx.ByTitleSubstring(ctx, "ab")
		if err != nil {
			t.Fatalf("ByTitleSubstring() error = %v", err)
		}
		if matches != nil {
			t.Errorf("matches = %+v, want nil", matches)
		}
	})
}

func TestIndexTrueFalseItems(t *testing.T) {
	idx := NewIndex(testDocs())

	items, err := idx.TrueFalseItems(context.Background(), 10, 3)
	if err != nil {
		t.Fatalf("TrueFalseItems() error = %v", err)
	}
	// Items merge across the theory and exercise rows of the coordinate.
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	if items[0].Number != "Câu 1" || items[2].Number != "Câu 3" {
		t.Errorf("items out of row order: %+v", items)
	}
}

func TestIndexReload(t *testing.T) {
	idx := NewIndex(testDocs())
	if idx.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", idx.Len())
	}

	idx.Reload(nil)
	if idx.Len() != 0 {
		t.Fatalf("Len() after empty reload = %d, want 0", idx.Len())
	}

	doc, err := idx.ByCoordinate(context.Background(), 12, 2)
	if err != nil || doc != nil {
		t.Fatalf("ByCoordinate() after reload = (%+v, %v), want (nil, nil)", doc, err)
	}
}
