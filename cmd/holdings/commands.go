package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/export"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/service"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/source"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/summary"
	"github.com/FACorreiaa/holdings-extractor/pkg/config"
	"github.com/FACorreiaa/holdings-extractor/pkg/cron"
	"github.com/FACorreiaa/holdings-extractor/pkg/logger"
	"github.com/FACorreiaa/holdings-extractor/pkg/middleware"
	"github.com/FACorreiaa/holdings-extractor/pkg/money"
)

// setup loads configuration and builds the logger. Logs go to stderr so
// command output on stdout stays clean.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cmd.ErrOrStderr(), cfg.Observability.LogLevel, cfg.Observability.LogFormat), nil
}

// openSource opens a PDF or a JSON word dump and returns it with its digest.
func openSource(pdfPath, wordsPath string) (parser.TokenSource, string, func(), error) {
	path := pdfPath
	if path == "" {
		path = wordsPath
	}
	if (pdfPath == "") == (wordsPath == "") {
		return nil, "", nil, errors.New("exactly one of --pdf or --words is required")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", nil, err
	}
	digest, err := service.Digest(f)
	f.Close()
	if err != nil {
		return nil, "", nil, err
	}

	if wordsPath != "" {
		src, err := source.OpenJSON(wordsPath)
		if err != nil {
			return nil, "", nil, err
		}
		return src, digest, func() {}, nil
	}

	src, err := source.OpenPDF(pdfPath)
	if err != nil {
		return nil, "", nil, err
	}
	return src, digest, func() { src.Close() }, nil
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract positions from a statement",
		Long: `Extract the position table of a statement and write the requested exports.

Example:
  holdings extract --pdf extrato.pdf --pages 6,7 --format json,csv --out ./out
  holdings extract --words words.json --expect-count 42 --expect-gross 3.190.888,05`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pdfPath, _ := cmd.Flags().GetString("pdf")
			wordsPath, _ := cmd.Flags().GetString("words")
			pagesStr, _ := cmd.Flags().GetString("pages")
			formatStr, _ := cmd.Flags().GetString("format")
			outDir, _ := cmd.Flags().GetString("out")
			continuation, _ := cmd.Flags().GetString("continuation")
			resetSection, _ := cmd.Flags().GetBool("reset-section-per-page")
			expectCount, _ := cmd.Flags().GetInt("expect-count")
			expectGross, _ := cmd.Flags().GetString("expect-gross")
			save, _ := cmd.Flags().GetBool("save")

			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("continuation") {
				cfg.Extract.Continuation = continuation
			}
			if cmd.Flags().Changed("reset-section-per-page") {
				cfg.Extract.ResetSectionPerPage = resetSection
			}
			if pagesStr != "" {
				if cfg.Extract.Pages, err = config.ParsePages(pagesStr); err != nil {
					return err
				}
			}
			extractCfg, err := extractorConfig(cfg)
			if err != nil {
				return err
			}

			formats, err := export.ParseFormats(formatStr)
			if err != nil {
				return err
			}

			var exp *summary.Expectation
			if expectCount >= 0 || expectGross != "" {
				exp = &summary.Expectation{}
				if expectCount >= 0 {
					exp.Count = &expectCount
				}
				if expectGross != "" {
					if exp.GrossTotal, err = money.NewFromLocale(expectGross, money.BRL); err != nil {
						return fmt.Errorf("invalid --expect-gross: %w", err)
					}
				}
			}

			src, digest, closeSrc, err := openSource(pdfPath, wordsPath)
			if err != nil {
				return err
			}
			defer closeSrc()

			var opts []service.Option
			if save {
				deps := &Dependencies{Config: cfg, Logger: log}
				if err := deps.initDatabase(); err != nil {
					return err
				}
				defer deps.Close()
				deps.initRepositories()
				if deps.StatementRepo == nil {
					return errors.New("--save requires DB_DRIVER=postgres or sqlite")
				}
				opts = append(opts, service.WithRepository(deps.StatementRepo))
			}
			svc := service.NewService(extractCfg, log, opts...)

			name := filepath.Base(pdfPath + wordsPath)
			res, err := svc.Process(cmd.Context(), src, service.Options{
				Source:      name,
				Digest:      digest,
				Expectation: exp,
			})
			if err != nil {
				return err
			}

			if err := writeExports(res, formats, outDir, name); err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), res, outDir, formats)

			if res.Report != nil && !res.Report.Passed() {
				return fmt.Errorf("%d validation checks failed", len(res.Report.Failed()))
			}
			return nil
		},
	}

	cmd.Flags().String("pdf", "", "Statement PDF")
	cmd.Flags().String("words", "", "JSON word dump (see 'holdings words')")
	cmd.Flags().String("pages", "", "Pages to read, e.g. 6,7 or 2-4 (default: all)")
	cmd.Flags().StringP("format", "f", "json", "Export formats (json, csv, xlsx)")
	cmd.Flags().StringP("out", "o", ".", "Output directory")
	cmd.Flags().String("continuation", "unless-inline", "Name continuation policy (never, unless-inline, always)")
	cmd.Flags().Bool("reset-section-per-page", false, "Forget the current section at each page break")
	cmd.Flags().Int("expect-count", -1, "Expected number of positions")
	cmd.Flags().String("expect-gross", "", "Expected gross total, e.g. 3.190.888,05")
	cmd.Flags().Bool("save", false, "Persist the statement to the configured database")

	return cmd
}

func writeExports(res *service.ProcessResult, formats []export.Format, outDir, name string) error {
	if len(formats) == 0 {
		return nil
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	meta := export.Metadata{ExtractedAt: res.ExtractedAt, Source: res.Source, Digest: res.Digest, Stats: res.Result.Stats}
	for _, f := range formats {
		path := filepath.Join(outDir, base+"_positions."+string(f))
		out, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := export.Write(out, f, meta, *res.Result); err != nil {
			out.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := out.Close(); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(w io.Writer, res *service.ProcessResult, outDir string, formats []export.Format) {
	stats := res.Result.Stats
	fmt.Fprintf(w, "Statement: %s\n", res.Source)
	fmt.Fprintf(w, "Pages: %d  Lines: %d  Records: %d  Dropped: %d\n\n", stats.Pages, stats.Lines, stats.Records, stats.Dropped)

	for _, sec := range parser.Sections {
		t := res.Summary.Section(sec)
		fmt.Fprintf(w, "  %-22s %4d  R$ %s\n", sec.Label(), t.Count, t.Gross.Locale())
	}
	fmt.Fprintf(w, "  %-22s %4d  R$ %s\n", "TOTAL", res.Summary.Total.Count, res.Summary.Total.Gross.Locale())

	if res.Report != nil {
		fmt.Fprintln(w, "\nValidation:")
		for _, c := range res.Report.Checks {
			mark := "ok  "
			if !c.Passed {
				mark = "FAIL"
			}
			fmt.Fprintf(w, "  [%s] %s: %s\n", mark, c.Name, c.Message)
		}
	}

	if len(formats) > 0 {
		fmt.Fprintf(w, "\nExports written to %s\n", outDir)
	}
}

func wordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "words",
		Short: "Dump the positioned words of a PDF as JSON",
		Long: `Dump the positioned words of a PDF as a JSON array that 'extract --words'
accepts back.

Example:
  holdings words --pdf extrato.pdf --pages 6,7 > words.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pdfPath, _ := cmd.Flags().GetString("pdf")
			pagesStr, _ := cmd.Flags().GetString("pages")
			output, _ := cmd.Flags().GetString("output")

			if pdfPath == "" {
				return fmt.Errorf("--pdf flag is required")
			}
			pages, err := config.ParsePages(pagesStr)
			if err != nil {
				return err
			}

			src, err := source.OpenPDF(pdfPath)
			if err != nil {
				return err
			}
			defer src.Close()

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return source.Dump(cmd.Context(), src, pages, w)
		},
	}

	cmd.Flags().String("pdf", "", "Statement PDF")
	cmd.Flags().String("pages", "", "Pages to dump (default: all)")
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.Driver == config.DriverNone {
				return errors.New("DB_DRIVER is none; set it to postgres or sqlite")
			}

			deps := &Dependencies{Config: cfg, Logger: log}
			if err := deps.initDatabase(); err != nil {
				return err
			}
			deps.Close()
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}

			deps, err := InitDependencies(cfg, log)
			if err != nil {
				return err
			}
			defer deps.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var metricsHandler http.Handler
			if deps.Metrics != nil {
				metricsHandler = deps.Metrics.Handler()
				if cfg.Observability.MetricsPort > 0 && cfg.Observability.MetricsPort != cfg.Server.Port {
					go serveMetrics(ctx, cfg, metricsHandler, log)
					metricsHandler = nil
				}
			}

			mws := []middleware.Middleware{
				middleware.Logger(log),
				middleware.CORS(cfg.Server.CORSAllowedOrigins),
				middleware.RateLimit(cfg.Server.RateLimitPerSecond, cfg.Server.RateLimitBurst, log),
			}
			if cfg.Auth.JWTSecret != "" {
				auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret, "/healthz", "/metrics")
				mws = append(mws, auth.Middleware)
			} else {
				log.Warn("API_JWT_SECRET not set, API is unauthenticated")
			}

			if cfg.Inbox.Dir != "" {
				scheduler := cron.NewScheduler(deps.StatementService, cron.InboxConfig{
					Dir:      cfg.Inbox.Dir,
					Schedule: cfg.Inbox.Schedule,
					Formats:  []export.Format{export.FormatJSON, export.FormatCSV},
				}, log)
				if err := scheduler.Start(); err != nil {
					return err
				}
				defer func() { <-scheduler.Stop().Done() }()
				scheduler.RunNow()
			}

			server := &http.Server{
				Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
				Handler:      middleware.Chain(deps.StatementHandler.Routes(metricsHandler), mws...),
				ReadTimeout:  60 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}
			return runServer(ctx, server, log)
		},
	}
}

func serveMetrics(ctx context.Context, cfg *config.Config, h http.Handler, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", h)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Observability.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := runServer(ctx, server, log); err != nil {
		log.Error("metrics server failed", slog.Any("error", err))
	}
}

// runServer serves until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, server *http.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("address", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	log.Info("server shutting down", slog.String("address", server.Addr))
	return server.Shutdown(shutdownCtx)
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("API_JWT_SECRET is not set")
			}

			token, err := middleware.NewAuthenticator(cfg.Auth.JWTSecret).GenerateToken(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().String("subject", "", "Token subject")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

