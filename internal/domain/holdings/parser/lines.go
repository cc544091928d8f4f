package parser

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// DefaultYPrecision is the number of decimal places Top is rounded to.
const DefaultYPrecision = 1

type lineKey struct {
	page int
	y    int64
}

// ReconstructLines groups tokens sharing a rounded Top into lines. Tokens of a
// line are ordered left to right and joined by single spaces. The result is
// ordered by page, then by Y ascending. Lines that are empty after trimming are
// skipped.
func ReconstructLines(tokens []Token, precision int) []Line {
	if precision < 0 {
		precision = DefaultYPrecision
	}
	scale := math.Pow10(precision)

	buckets := make(map[lineKey][]Token)
	keys := make([]lineKey, 0)
	for _, tok := range tokens {
		k := lineKey{page: tok.Page, y: int64(math.Round(tok.Top * scale))}
		if _, ok := buckets[k]; !ok {
			keys = append(keys, k)
		}
		buckets[k] = append(buckets[k], tok)
	}

	slices.SortFunc(keys, func(a, b lineKey) int {
		if c := cmp.Compare(a.page, b.page); c != 0 {
			return c
		}
		return cmp.Compare(a.y, b.y)
	})

	lines := make([]Line, 0, len(keys))
	for _, k := range keys {
		bucket := buckets[k]
		slices.SortStableFunc(bucket, func(a, b Token) int {
			if c := cmp.Compare(a.X0, b.X0); c != 0 {
				return c
			}
			return strings.Compare(a.Text, b.Text)
		})

		parts := make([]string, 0, len(bucket))
		for _, tok := range bucket {
			if t := strings.TrimSpace(tok.Text); t != "" {
				parts = append(parts, t)
			}
		}
		text := strings.TrimSpace(strings.Join(parts, " "))
		if text == "" {
			continue
		}

		lines = append(lines, Line{
			Page: k.page,
			Y:    float64(k.y) / scale,
			Text: text,
		})
	}
	return lines
}
