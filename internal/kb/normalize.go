package kb

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips combining marks after canonical decomposition, which
// removes Vietnamese tone and vowel diacritics (ế → e, ạ → a, ...).
var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Fold normalizes Vietnamese text for matching: lowercases, strips
// diacritics, maps đ to d, treats commas and hyphens as spaces and collapses
// whitespace. "Bài 2, Lớp 12" and "bai 2 lop 12" fold to the same string, as
// do "đúng-sai" and "đúng sai".
//
// đ/Đ is a stroked letter, not a combining mark, so it survives NFD and is
// mapped explicitly.
func Fold(s string) string {
	lower := strings.ToLower(s)

	folded, _, err := transform.String(foldTransformer, lower)
	if err != nil {
		folded = lower
	}

	folded = strings.ReplaceAll(folded, "đ", "d")
	folded = strings.ReplaceAll(folded, ",", " ")
	folded = strings.ReplaceAll(folded, "-", " ")

	return strings.Join(strings.Fields(folded), " ")
}
