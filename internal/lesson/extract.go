package lesson

import (
	"regexp"
	"strconv"
)

// Coordinate is a partially extracted (grade, lesson) pair. A zero field
// means the component was not present in the text.
type Coordinate struct {
	Grade  int
	Lesson int
}

// Complete reports whether both components were found.
func (c Coordinate) Complete() bool { return c.Grade != 0 && c.Lesson != 0 }

// Empty reports whether neither component was found.
func (c Coordinate) Empty() bool { return c.Grade == 0 && c.Lesson == 0 }

// Extraction patterns run against folded text (see kb.Fold), so they only
// need the unaccented forms. The keyword before the number fixes each
// component's role, which is what lets "bai 2 lop 12" and "lop 12 bai 2"
// parse identically. Longer spelled-out alternatives must precede their
// prefixes ("muoi hai" before "muoi").
var (
	lessonPattern = regexp.MustCompile(`\bbai\s*:?\s*(muoi|mot|hai|ba|bon|nam|sau|bay|tam|chin|\d+)\b`)
	gradePattern  = regexp.MustCompile(`\blop\s*:?\s*(muoi hai|muoi mot|muoi|\d+)\b`)
)

var spelledLessons = map[string]int{
	"mot": 1, "hai": 2, "ba": 3, "bon": 4, "nam": 5,
	"sau": 6, "bay": 7, "tam": 8, "chin": 9, "muoi": 10,
}

var spelledGrades = map[string]int{
	"muoi": 10, "muoi mot": 11, "muoi hai": 12,
}

// ExtractCoordinate pulls a (grade, lesson) coordinate out of folded user
// text. gradeMin/gradeMax bound the grades the knowledge base supports.
//
// A grade outside the valid range is rejected; when the extracted lesson
// value falls inside the range instead, the pair is assumed swapped in the
// source text and reassigned so that the grade member is the in-range one.
func ExtractCoordinate(folded string, gradeMin, gradeMax int) Coordinate {
	var coord Coordinate

	if m := lessonPattern.FindStringSubmatch(folded); m != nil {
		coord.Lesson = parseNumber(m[1], spelledLessons)
	}
	if m := gradePattern.FindStringSubmatch(folded); m != nil {
		coord.Grade = parseNumber(m[1], spelledGrades)
	}

	inRange := func(n int) bool { return n >= gradeMin && n <= gradeMax }

	if coord.Grade != 0 && !inRange(coord.Grade) {
		if coord.Lesson != 0 && inRange(coord.Lesson) {
			coord.Grade, coord.Lesson = coord.Lesson, coord.Grade
		} else {
			coord.Grade = 0
		}
	}

	return coord
}

func parseNumber(s string, spelled map[string]int) int {
	if n, ok := spelled[s]; ok {
		return n
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
