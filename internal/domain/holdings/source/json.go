package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
)

// JSONSource serves tokens from a word dump: a JSON array of
// {"page","text","x0","top"} objects as written by Dump.
type JSONSource struct {
	pages map[int][]parser.Token
	count int
}

// LoadJSON decodes a word dump.
func LoadJSON(r io.Reader) (*JSONSource, error) {
	var tokens []parser.Token
	if err := json.NewDecoder(r).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("failed to decode word dump: %w", err)
	}
	return NewJSONSource(tokens), nil
}

// OpenJSON loads a word dump from disk.
func OpenJSON(path string) (*JSONSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open word dump: %w", err)
	}
	defer f.Close()

	return LoadJSON(f)
}

// NewJSONSource indexes tokens by page. The page count is the highest page
// number seen.
func NewJSONSource(tokens []parser.Token) *JSONSource {
	s := &JSONSource{pages: make(map[int][]parser.Token)}
	for _, tok := range tokens {
		s.pages[tok.Page] = append(s.pages[tok.Page], tok)
		if tok.Page > s.count {
			s.count = tok.Page
		}
	}
	return s
}

// NumPages implements parser.TokenSource.
func (s *JSONSource) NumPages() int {
	return s.count
}

// PageTokens implements parser.TokenSource.
func (s *JSONSource) PageTokens(ctx context.Context, page int) ([]parser.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkPage(page, s.count); err != nil {
		return nil, err
	}

	out := make([]parser.Token, len(s.pages[page]))
	copy(out, s.pages[page])
	return out, nil
}
