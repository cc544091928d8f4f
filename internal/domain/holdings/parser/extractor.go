package parser

import (
	"context"
	"fmt"
	"log/slog"
)

// TokenSource provides the positioned words of a document, one page at a time.
// Pages are 1-based.
type TokenSource interface {
	NumPages() int
	PageTokens(ctx context.Context, page int) ([]Token, error)
}

// Config holds extraction settings.
type Config struct {
	YPrecision          int
	Continuation        ContinuationPolicy
	ResetSectionPerPage bool
	Pages               []int
	NoiseMarkers        []string
}

// DefaultConfig returns sensible defaults for the statement format.
func DefaultConfig() Config {
	return Config{
		YPrecision:   DefaultYPrecision,
		Continuation: ContinueUnlessInline,
		NoiseMarkers: DefaultNoiseMarkers,
	}
}

// Extractor turns token pages into position records.
type Extractor struct {
	cfg        Config
	classifier *Classifier
	logger     *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor creates an extractor for cfg.
func NewExtractor(cfg Config, opts ...Option) *Extractor {
	e := &Extractor{
		cfg:        cfg,
		classifier: NewClassifier(cfg.NoiseMarkers),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads the configured pages from src in order and returns every
// position record found. Errors from src abort the run; nothing else does.
func (e *Extractor) Extract(ctx context.Context, src TokenSource) (*Result, error) {
	pages := e.cfg.Pages
	if len(pages) == 0 {
		pages = make([]int, 0, src.NumPages())
		for p := 1; p <= src.NumPages(); p++ {
			pages = append(pages, p)
		}
	}

	t := e.newTraversal()
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extraction cancelled before page %d: %w", page, err)
		}

		tokens, err := src.PageTokens(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("failed to read tokens of page %d: %w", page, err)
		}
		for i := range tokens {
			tokens[i].Page = page
		}

		lines := ReconstructLines(tokens, e.cfg.YPrecision)
		e.logger.Debug("page reconstructed",
			slog.Int("page", page),
			slog.Int("tokens", len(tokens)),
			slog.Int("lines", len(lines)),
		)
		t.page(lines)
	}

	t.result.Stats.Records = len(t.result.Records)
	return &t.result, nil
}

// ExtractLines runs the line pipeline over already reconstructed lines. A
// change of Line.Page starts a new page.
func (e *Extractor) ExtractLines(lines []Line) Result {
	t := e.newTraversal()
	start := 0
	for i := 1; i <= len(lines); i++ {
		if i == len(lines) || lines[i].Page != lines[start].Page {
			t.page(lines[start:i])
			start = i
		}
	}
	t.result.Stats.Records = len(t.result.Records)
	return t.result
}

func (e *Extractor) newTraversal() *traversal {
	return &traversal{
		extractor: e,
		result:    Result{Records: make([]Record, 0)},
	}
}

// traversal is the mutable state of one extraction run.
type traversal struct {
	extractor *Extractor
	sections  SectionTracker
	pending   string
	result    Result
}

func (t *traversal) page(lines []Line) {
	e := t.extractor
	t.result.Stats.Pages++
	t.pending = ""
	if e.cfg.ResetSectionPerPage {
		t.sections.Reset()
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		t.result.Stats.Lines++

		switch e.classifier.Classify(line.Text, t.sections.Current()) {
		case ClassHeader:
			s, _ := t.sections.Observe(line.Text)
			t.pending = ""
			t.result.Stats.Headers++
			e.logger.Debug("section changed", slog.String("section", string(s)), slog.Int("page", line.Page))

		case ClassNoise:
			t.pending = ""
			t.result.Stats.Noise++

		case ClassDropped:
			t.result.Stats.Dropped++
			e.logger.Debug("data line outside any section dropped",
				slog.Int("page", line.Page),
				slog.String("text", line.Text),
			)

		case ClassNameOnly:
			t.pending = line.Text
			t.result.Stats.NameOnly++

		case ClassData:
			t.result.Stats.Data++
			w := Window{Curr: line, Section: t.sections.Current()}
			if i+1 < len(lines) {
				w.Next = &lines[i+1]
			}
			if i+2 < len(lines) {
				w.AfterNext = &lines[i+2]
			}

			res := e.classifier.ResolveName(w, t.pending, e.cfg.Continuation)
			t.pending = ""
			t.emit(line, w.Section, res)

			if res.ConsumedNext {
				i++
				t.result.Stats.Lines++
				t.result.Stats.Continuations++
			}
		}
	}
}

func (t *traversal) emit(line Line, section Section, res Resolution) {
	f := DecodeFields(line.Text)
	t.result.Records = append(t.result.Records, Record{
		Section: section,
		Page:    line.Page,
		Layout:  f.Layout,
		Name:    res.Name,
		Dates:   f.Dates,
		Index:   f.Index,
		Values:  f.Values,
	})
}
