// Package service orchestrates extraction, aggregation, export and
// persistence of brokerage statements.
package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/blake2b"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/export"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/notify"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/repository"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/summary"
	"github.com/FACorreiaa/holdings-extractor/pkg/metrics"
	"github.com/FACorreiaa/holdings-extractor/pkg/storage"
)

const tracerName = "github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/service"

// DefaultCacheTTL is how long processed results stay cached.
const DefaultCacheTTL = 15 * time.Minute

// Options tune a single Process call.
type Options struct {
	// Source is a display name for the document, usually its file name.
	Source string
	// Digest is the document fingerprint (see Digest). When set, results are
	// cached under it together with Pages, Formats and Expectation.
	Digest string
	// Pages overrides the configured page filter.
	Pages []int
	// Formats lists the exports to store as artifacts.
	Formats []export.Format
	// Expectation enables validation when set.
	Expectation *summary.Expectation
}

// ProcessResult is the outcome of processing one statement.
type ProcessResult struct {
	StatementID uuid.UUID           `json:"statement_id"`
	Source      string              `json:"source"`
	Digest      string              `json:"digest,omitempty"`
	ExtractedAt time.Time           `json:"extracted_at"`
	Result      *parser.Result      `json:"result"`
	Summary     summary.Summary     `json:"summary"`
	Report      *summary.Report     `json:"report,omitempty"`
	Artifacts   []*storage.FileInfo `json:"artifacts"`
	Cached      bool                `json:"cached"`
}

// Service provides statement processing business logic
type Service struct {
	cfg      parser.Config
	repo     repository.StatementRepository
	storage  storage.Storage
	metrics  *metrics.Metrics
	notifier *notify.Notifier
	cache    *cache.Cache
	tracer   trace.Tracer
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRepository persists every processed statement.
func WithRepository(repo repository.StatementRepository) Option {
	return func(s *Service) { s.repo = repo }
}

// WithStorage stores export artifacts.
func WithStorage(st storage.Storage) Option {
	return func(s *Service) { s.storage = st }
}

// WithMetrics records pipeline metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNotifier sends a report after each statement.
func WithNotifier(n *notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithCacheTTL sets the result cache expiration.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cache = cache.New(ttl, 2*ttl)
		}
	}
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// NewService creates a new statement service. Every dependency besides the
// extraction config is optional.
func NewService(cfg parser.Config, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		cfg:    cfg,
		cache:  cache.New(DefaultCacheTTL, 2*DefaultCacheTTL),
		tracer: otel.Tracer(tracerName),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Digest returns the hex BLAKE2b-256 fingerprint of r's content.
func Digest(r io.Reader) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash document: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func statementKey(id uuid.UUID) string { return "statement:" + id.String() }

// resultKey identifies a cached result: the same document processed with the
// same pages, exports and expectation.
func resultKey(opts Options) string {
	params, err := json.Marshal(struct {
		Pages       []int                `json:"pages"`
		Formats     []export.Format      `json:"formats"`
		Expectation *summary.Expectation `json:"expectation"`
	}{opts.Pages, opts.Formats, opts.Expectation})
	if err != nil {
		return ""
	}
	sum := blake2b.Sum256(params)
	return "digest:" + opts.Digest + ":" + hex.EncodeToString(sum[:8])
}

// Process extracts the positions of src, summarizes and validates them,
// stores the requested exports and persists the statement. A document whose
// digest was processed recently is served from the cache.
func (s *Service) Process(ctx context.Context, src parser.TokenSource, opts Options) (*ProcessResult, error) {
	var key string
	if opts.Digest != "" {
		key = resultKey(opts)
	}
	if key != "" {
		if v, ok := s.cache.Get(key); ok {
			cached := *v.(*ProcessResult)
			cached.Cached = true
			s.logger.Info("Serving cached statement",
				slog.String("statement_id", cached.StatementID.String()),
				slog.String("digest", opts.Digest))
			return &cached, nil
		}
	}

	ctx, span := s.tracer.Start(ctx, "holdings.Process", trace.WithAttributes(
		attribute.String("holdings.source", opts.Source),
		attribute.Int("holdings.pages", src.NumPages()),
	))
	defer span.End()

	cfg := s.cfg
	if len(opts.Pages) > 0 {
		cfg.Pages = opts.Pages
	}

	// Extractors are not safe for concurrent use; one per call.
	extractor := parser.NewExtractor(cfg, parser.WithLogger(s.logger))

	start := time.Now()
	result, err := extractor.Extract(ctx, src)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		s.observeFailure(elapsed)
		return nil, fmt.Errorf("failed to extract %s: %w", opts.Source, err)
	}
	span.SetAttributes(attribute.Int("holdings.records", len(result.Records)))

	res := &ProcessResult{
		StatementID: uuid.New(),
		Source:      opts.Source,
		Digest:      opts.Digest,
		ExtractedAt: time.Now().UTC(),
		Result:      result,
		Summary:     summary.Summarize(result.Records),
		Artifacts:   []*storage.FileInfo{},
	}
	if opts.Expectation != nil {
		report := summary.Validate(result.Records, *opts.Expectation)
		res.Report = &report
	}

	if err := s.storeArtifacts(ctx, res, opts.Formats); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		s.observeFailure(elapsed)
		return nil, err
	}

	st := &repository.Statement{
		ID:           res.StatementID,
		Source:       res.Source,
		SourceDigest: res.Digest,
		ExtractedAt:  res.ExtractedAt,
		Stats:        result.Stats,
		Records:      result.Records,
	}
	if s.repo != nil {
		if err := s.repo.SaveStatement(ctx, st); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "persist failed")
			s.observeFailure(elapsed)
			return nil, fmt.Errorf("failed to save statement: %w", err)
		}
	}

	s.observeSuccess(elapsed, res)

	s.cache.Set(statementKey(res.StatementID), st, cache.DefaultExpiration)
	if key != "" {
		s.cache.Set(key, res, cache.DefaultExpiration)
	}

	if err := s.notifier.StatementProcessed(ctx, notify.Message{
		StatementID: res.StatementID,
		Source:      res.Source,
		Summary:     res.Summary,
		Report:      reportOrEmpty(res.Report),
	}); err != nil {
		s.logger.Error("failed to send report email",
			slog.String("statement_id", res.StatementID.String()),
			slog.Any("error", err))
	}

	s.logger.Info("Statement processed",
		slog.String("statement_id", res.StatementID.String()),
		slog.String("source", res.Source),
		slog.Int("records", len(result.Records)),
		slog.Int("dropped", result.Stats.Dropped),
		slog.Duration("elapsed", elapsed))

	return res, nil
}

func reportOrEmpty(r *summary.Report) summary.Report {
	if r == nil {
		return summary.Report{}
	}
	return *r
}

func (s *Service) storeArtifacts(ctx context.Context, res *ProcessResult, formats []export.Format) error {
	if len(formats) == 0 {
		return nil
	}
	if s.storage == nil {
		s.logger.Warn("storage not configured, skipping artifacts",
			slog.String("statement_id", res.StatementID.String()))
		return nil
	}

	meta := export.Metadata{
		ExtractedAt: res.ExtractedAt,
		Source:      res.Source,
		Digest:      res.Digest,
	}
	for _, f := range formats {
		var buf bytes.Buffer
		if err := export.Write(&buf, f, meta, *res.Result); err != nil {
			return fmt.Errorf("failed to export %s: %w", f, err)
		}
		info, err := s.storage.Put(ctx, res.StatementID, f.FileName(), f.ContentType(), &buf)
		if err != nil {
			return fmt.Errorf("failed to store %s: %w", f, err)
		}
		res.Artifacts = append(res.Artifacts, info)
	}
	return nil
}

func (s *Service) observeFailure(elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveStatement(metrics.StatusFailed, elapsed)
	}
}

func (s *Service) observeSuccess(elapsed time.Duration, res *ProcessResult) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveStatement(metrics.StatusOK, elapsed)
	for sec, t := range res.Summary.Sections {
		s.metrics.AddRecords(string(sec), t.Count)
	}

	stats := res.Result.Stats
	s.metrics.AddLines(parser.ClassHeader.String(), stats.Headers)
	s.metrics.AddLines(parser.ClassNoise.String(), stats.Noise)
	s.metrics.AddLines(parser.ClassData.String(), stats.Data)
	s.metrics.AddLines(parser.ClassNameOnly.String(), stats.NameOnly)
	s.metrics.AddLines(parser.ClassDropped.String(), stats.Dropped)

	if res.Report != nil {
		for _, c := range res.Report.Checks {
			s.metrics.ObserveCheck(c.Name, c.Passed)
		}
	}
}

// GetStatement returns a processed statement, from the cache when possible.
func (s *Service) GetStatement(ctx context.Context, id uuid.UUID) (*repository.Statement, error) {
	if v, ok := s.cache.Get(statementKey(id)); ok {
		return v.(*repository.Statement), nil
	}
	if s.repo == nil {
		return nil, fmt.Errorf("%s: %w", id, repository.ErrStatementNotFound)
	}

	st, err := s.repo.GetStatement(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(statementKey(id), st, cache.DefaultExpiration)
	return st, nil
}

// SearchPositions returns the positions of a statement whose name fuzzily
// matches query, ignoring case and accents. An empty query returns every
// position.
func (s *Service) SearchPositions(ctx context.Context, id uuid.UUID, query string) ([]parser.Record, error) {
	st, err := s.GetStatement(ctx, id)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return st.Records, nil
	}

	matches := []parser.Record{}
	for _, r := range st.Records {
		if r.Name != nil && fuzzy.MatchNormalizedFold(query, *r.Name) {
			matches = append(matches, r)
		}
	}
	return matches, nil
}

// OpenArtifact returns a stored export of a statement.
func (s *Service) OpenArtifact(ctx context.Context, id uuid.UUID, name string) (io.ReadCloser, *storage.FileInfo, error) {
	if s.storage == nil {
		return nil, nil, fmt.Errorf("%s: %w", name, storage.ErrFileNotFound)
	}
	return s.storage.Open(ctx, id, name)
}

// IsNotFound reports whether err means the statement or artifact does not
// exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrStatementNotFound) || errors.Is(err, storage.ErrFileNotFound)
}
