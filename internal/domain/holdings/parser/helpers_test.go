package parser

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rows lays out each row as one token per word, 12 points apart vertically.
func rows(page int, lines ...string) []Token {
	var tokens []Token
	for i, line := range lines {
		top := 100 + float64(i)*12
		for j, word := range strings.Fields(line) {
			tokens = append(tokens, Token{Page: page, Text: word, X0: 20 + float64(j)*40, Top: top})
		}
	}
	return tokens
}

func pageLines(page int, texts ...string) []Line {
	lines := make([]Line, len(texts))
	for i, text := range texts {
		lines[i] = Line{Page: page, Y: 100 + float64(i)*12, Text: text}
	}
	return lines
}

type memorySource struct {
	pages map[int][]Token
	count int
	err   error
}

func newMemorySource(pages ...[]Token) *memorySource {
	m := &memorySource{pages: make(map[int][]Token), count: len(pages)}
	for i, tokens := range pages {
		m.pages[i+1] = tokens
	}
	return m
}

func (m *memorySource) NumPages() int { return m.count }

func (m *memorySource) PageTokens(_ context.Context, page int) ([]Token, error) {
	if m.err != nil {
		return nil, m.err
	}
	if page < 1 || page > m.count {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	out := make([]Token, len(m.pages[page]))
	copy(out, m.pages[page])
	return out, nil
}

func assertFloat(t *testing.T, want float64, got *float64, msgAndArgs ...interface{}) {
	t.Helper()
	require.NotNil(t, got, msgAndArgs...)
	assert.InDelta(t, want, *got, 1e-9, msgAndArgs...)
}

func assertName(t *testing.T, want string, got *string) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}
