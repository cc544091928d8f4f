package source

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
)

const (
	// defaultPageHeight is A4 in points, used when a page has no MediaBox.
	defaultPageHeight = 842.0
	// wordGap is the horizontal distance, in points, that separates two words
	// printed without a space glyph between them.
	wordGap = 3.0
)

// PDFSource reads word tokens from a PDF document.
type PDFSource struct {
	reader *pdf.Reader
	closer io.Closer
}

// OpenPDF opens the PDF at path. Close releases the file.
func OpenPDF(path string) (*PDFSource, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &PDFSource{reader: r, closer: f}, nil
}

// NewPDFSource reads a PDF held in memory or any other io.ReaderAt.
func NewPDFSource(r io.ReaderAt, size int64) (*PDFSource, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return &PDFSource{reader: reader}, nil
}

// Close releases the underlying file, if any.
func (s *PDFSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// NumPages implements parser.TokenSource.
func (s *PDFSource) NumPages() int {
	return s.reader.NumPage()
}

// PageTokens implements parser.TokenSource. Glyphs are merged into words and
// Top is measured from the top edge of the page.
func (s *PDFSource) PageTokens(ctx context.Context, page int) (tokens []parser.Token, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkPage(page, s.NumPages()); err != nil {
		return nil, err
	}

	p := s.reader.Page(page)
	if p.V.IsNull() || p.V.Key("Contents").Kind() == pdf.Null {
		return []parser.Token{}, nil
	}

	// the pdf package panics on malformed content streams
	defer func() {
		if r := recover(); r != nil {
			tokens = nil
			err = fmt.Errorf("read page %d: %v", page, r)
		}
	}()

	return buildWords(page, pageHeight(p), p.Content().Text), nil
}

// pageHeight walks up the page tree until a MediaBox is found.
func pageHeight(p pdf.Page) float64 {
	v := p.V
	for i := 0; i < 32 && !v.IsNull(); i++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			return box.Index(3).Float64() - box.Index(1).Float64()
		}
		v = v.Key("Parent")
	}
	return defaultPageHeight
}

type glyphLine struct {
	y      int64
	glyphs []pdf.Text
}

// buildWords groups glyphs sharing a baseline and splits them into words on
// whitespace glyphs and on horizontal gaps wider than wordGap.
func buildWords(page int, height float64, glyphs []pdf.Text) []parser.Token {
	byLine := make(map[int64]*glyphLine)
	order := make([]int64, 0)
	for _, g := range glyphs {
		y := int64(math.Round(g.Y * 10))
		l, ok := byLine[y]
		if !ok {
			l = &glyphLine{y: y}
			byLine[y] = l
			order = append(order, y)
		}
		l.glyphs = append(l.glyphs, g)
	}
	// PDF y grows upwards
	slices.SortFunc(order, func(a, b int64) int { return cmp.Compare(b, a) })

	tokens := make([]parser.Token, 0)
	for _, y := range order {
		l := byLine[y]
		slices.SortStableFunc(l.glyphs, func(a, b pdf.Text) int { return cmp.Compare(a.X, b.X) })

		var (
			word  strings.Builder
			first pdf.Text
			end   float64
		)
		flush := func() {
			if word.Len() == 0 {
				return
			}
			tokens = append(tokens, parser.Token{
				Page: page,
				Text: word.String(),
				X0:   first.X,
				Top:  height - first.Y - first.FontSize,
			})
			word.Reset()
		}

		for _, g := range l.glyphs {
			if strings.TrimFunc(g.S, unicode.IsSpace) == "" {
				flush()
				continue
			}
			if word.Len() > 0 && g.X-end > wordGap {
				flush()
			}
			if word.Len() == 0 {
				first = g
			}
			word.WriteString(g.S)
			end = g.X + g.W
		}
		flush()
	}
	return tokens
}
