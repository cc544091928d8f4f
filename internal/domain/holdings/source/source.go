// Package source provides parser.TokenSource implementations backed by PDF
// files and by JSON word dumps.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
)

// ErrPageOutOfRange is returned when a page outside 1..NumPages is requested.
var ErrPageOutOfRange = errors.New("page out of range")

func checkPage(page, count int) error {
	if page < 1 || page > count {
		return fmt.Errorf("page %d of %d: %w", page, count, ErrPageOutOfRange)
	}
	return nil
}

// Dump writes the tokens of the given pages (all pages when empty) as a JSON
// array that JSONSource can read back.
func Dump(ctx context.Context, src parser.TokenSource, pages []int, w io.Writer) error {
	if len(pages) == 0 {
		for p := 1; p <= src.NumPages(); p++ {
			pages = append(pages, p)
		}
	}

	all := make([]parser.Token, 0)
	for _, page := range pages {
		tokens, err := src.PageTokens(ctx, page)
		if err != nil {
			return fmt.Errorf("failed to read page %d: %w", page, err)
		}
		for _, tok := range tokens {
			tok.Page = page
			all = append(all, tok)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(all); err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}
	return nil
}
