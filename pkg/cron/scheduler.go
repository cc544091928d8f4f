// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/export"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/service"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/source"
)

// Subdirectories of the inbox that receive handled files.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// Processor runs one statement through the pipeline.
type Processor interface {
	Process(ctx context.Context, src parser.TokenSource, opts service.Options) (*service.ProcessResult, error)
}

// InboxConfig describes the watched directory.
type InboxConfig struct {
	Dir      string
	Schedule string
	Formats  []export.Format
	// Timeout bounds a single scan.
	Timeout time.Duration
}

// ScanResult counts the outcome of one inbox scan.
type ScanResult struct {
	Processed int
	Failed    int
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron   *cron.Cron
	proc   Processor
	cfg    InboxConfig
	logger *slog.Logger

	// scans never overlap
	mu sync.Mutex
}

// NewScheduler creates a new job scheduler.
func NewScheduler(proc Processor, cfg InboxConfig, logger *slog.Logger) *Scheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1m"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}

	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &Scheduler{
		cron:   c,
		proc:   proc,
		cfg:    cfg,
		logger: logger,
	}
}

// Start creates the inbox directories and begins scheduled scans.
func (s *Scheduler) Start() error {
	for _, dir := range []string{s.cfg.Dir, filepath.Join(s.cfg.Dir, ProcessedDir), filepath.Join(s.cfg.Dir, FailedDir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create inbox directory: %w", err)
		}
	}

	_, err := s.cron.AddFunc(s.cfg.Schedule, s.scan)
	if err != nil {
		return fmt.Errorf("invalid inbox schedule %q: %w", s.cfg.Schedule, err)
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("inbox", s.cfg.Dir),
		slog.String("schedule", s.cfg.Schedule),
	)
	return nil
}

// Stop stops the scheduler. The returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow triggers an inbox scan in the background.
func (s *Scheduler) RunNow() {
	go s.scan()
}

func (s *Scheduler) scan() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	if _, err := s.ScanInbox(ctx); err != nil {
		s.logger.Error("inbox scan failed", slog.Any("error", err))
	}
}

// ScanInbox processes every statement currently in the inbox and moves each
// file to processed/ or failed/.
func (s *Scheduler) ScanInbox(ctx context.Context) (ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res ScanResult
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return res, fmt.Errorf("failed to read inbox: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".pdf", ".json":
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		path := filepath.Join(s.cfg.Dir, name)
		target := ProcessedDir
		if err := s.processFile(ctx, path); err != nil {
			s.logger.Warn("failed to process inbox file",
				slog.String("file", name),
				slog.Any("error", err),
			)
			target = FailedDir
			res.Failed++
		} else {
			res.Processed++
		}

		if err := moveTo(path, filepath.Join(s.cfg.Dir, target)); err != nil {
			return res, err
		}
	}

	if len(files) > 0 {
		s.logger.Info("inbox scan completed",
			slog.Int("processed", res.Processed),
			slog.Int("failed", res.Failed),
		)
	}
	return res, nil
}

func (s *Scheduler) processFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	digest, err := service.Digest(f)
	f.Close()
	if err != nil {
		return err
	}

	var src parser.TokenSource
	if strings.EqualFold(filepath.Ext(path), ".json") {
		src, err = source.OpenJSON(path)
	} else {
		var pdfSrc *source.PDFSource
		pdfSrc, err = source.OpenPDF(path)
		if err == nil {
			defer pdfSrc.Close()
			src = pdfSrc
		}
	}
	if err != nil {
		return err
	}

	res, err := s.proc.Process(ctx, src, service.Options{
		Source:  filepath.Base(path),
		Digest:  digest,
		Formats: s.cfg.Formats,
	})
	if err != nil {
		return err
	}

	s.logger.Debug("inbox file processed",
		slog.String("file", filepath.Base(path)),
		slog.String("statement_id", res.StatementID.String()),
		slog.Int("records", len(res.Result.Records)),
	)
	return nil
}

// moveTo moves path into dir, adding a timestamp when the name is taken.
func moveTo(path, dir string) error {
	target := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(path)
		base := strings.TrimSuffix(filepath.Base(path), ext)
		target = filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, time.Now().UnixNano(), ext))
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("failed to move %s: %w", filepath.Base(path), err)
	}
	return nil
}
