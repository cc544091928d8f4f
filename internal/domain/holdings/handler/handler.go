// Package handler implements the statement HTTP API.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/export"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/repository"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/service"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/source"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/summary"
	"github.com/FACorreiaa/holdings-extractor/pkg/config"
	"github.com/FACorreiaa/holdings-extractor/pkg/money"
	"github.com/FACorreiaa/holdings-extractor/pkg/storage"
)

// MaxUploadSize bounds the size of an uploaded statement.
const MaxUploadSize = 32 << 20

// StatementService is what the handler needs from the service layer.
type StatementService interface {
	Process(ctx context.Context, src parser.TokenSource, opts service.Options) (*service.ProcessResult, error)
	GetStatement(ctx context.Context, id uuid.UUID) (*repository.Statement, error)
	SearchPositions(ctx context.Context, id uuid.UUID, query string) ([]parser.Record, error)
	OpenArtifact(ctx context.Context, id uuid.UUID, name string) (io.ReadCloser, *storage.FileInfo, error)
}

// StatementHandler serves the statement endpoints
type StatementHandler struct {
	svc            StatementService
	logger         *slog.Logger
	defaultFormats []export.Format
}

// NewStatementHandler constructs a new handler. Uploads without a formats
// field store defaultFormats.
func NewStatementHandler(svc StatementService, logger *slog.Logger, defaultFormats ...export.Format) *StatementHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatementHandler{svc: svc, logger: logger, defaultFormats: defaultFormats}
}

// Routes registers every endpoint on a new mux. metrics may be nil.
func (h *StatementHandler) Routes(metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/statements", h.CreateStatement)
	mux.HandleFunc("GET /v1/statements/{id}", h.GetStatement)
	mux.HandleFunc("GET /v1/statements/{id}/positions", h.ListPositions)
	mux.HandleFunc("GET /v1/statements/{id}/artifacts/{name}", h.GetArtifact)
	mux.HandleFunc("GET /healthz", h.Health)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return mux
}

// Health reports liveness.
func (h *StatementHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateStatement processes an uploaded statement.
func (h *StatementHandler) CreateStatement(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: %v", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload: %v", err)
		return
	}

	opts, err := h.options(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	opts.Source = filepath.Base(header.Filename)
	if opts.Digest, err = service.Digest(bytes.NewReader(data)); err != nil {
		writeError(w, http.StatusInternalServerError, "%v", err)
		return
	}

	src, err := openUpload(data, header.Header.Get("Content-Type"), header.Filename)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unreadable document: %v", err)
		return
	}

	res, err := h.svc.Process(r.Context(), src, opts)
	if err != nil {
		h.logger.Error("failed to process statement",
			slog.String("source", opts.Source),
			slog.Any("error", err))
		if errors.Is(err, source.ErrPageOutOfRange) {
			writeError(w, http.StatusBadRequest, "%v", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to process statement")
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

func (h *StatementHandler) options(r *http.Request) (service.Options, error) {
	opts := service.Options{Formats: h.defaultFormats}

	if v := r.FormValue("pages"); v != "" {
		pages, err := config.ParsePages(v)
		if err != nil {
			return opts, err
		}
		opts.Pages = pages
	}
	if v := r.FormValue("formats"); v != "" {
		formats, err := export.ParseFormats(v)
		if err != nil {
			return opts, err
		}
		opts.Formats = formats
	}

	var exp summary.Expectation
	if v := r.FormValue("expect_count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("invalid expect_count %q", v)
		}
		exp.Count = &n
	}
	if v := r.FormValue("expect_gross"); v != "" {
		gross, err := money.NewFromLocale(v, money.BRL)
		if err != nil {
			return opts, fmt.Errorf("invalid expect_gross %q: %w", v, err)
		}
		exp.GrossTotal = gross
	}
	if exp.Count != nil || exp.GrossTotal != nil {
		opts.Expectation = &exp
	}
	return opts, nil
}

// openUpload reads JSON word dumps as tokens and everything else as PDF.
func openUpload(data []byte, contentType, filename string) (parser.TokenSource, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" || strings.EqualFold(filepath.Ext(filename), ".json") {
		return source.LoadJSON(bytes.NewReader(data))
	}
	return source.NewPDFSource(bytes.NewReader(data), int64(len(data)))
}

// GetStatement returns a statement with its positions.
func (h *StatementHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	id, ok := statementID(w, r)
	if !ok {
		return
	}

	st, err := h.svc.GetStatement(r.Context(), id)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ListPositions returns positions, filtered by the q query parameter.
func (h *StatementHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	id, ok := statementID(w, r)
	if !ok {
		return
	}

	records, err := h.svc.SearchPositions(r.Context(), id, r.URL.Query().Get("q"))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"statement_id": id,
		"count":        len(records),
		"positions":    records,
	})
}

// GetArtifact streams a stored export.
func (h *StatementHandler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	id, ok := statementID(w, r)
	if !ok {
		return
	}

	rc, info, err := h.svc.OpenArtifact(r.Context(), id, r.PathValue("name"))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Name}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("failed to stream artifact",
			slog.String("statement_id", id.String()),
			slog.String("name", info.Name),
			slog.Any("error", err))
	}
}

func (h *StatementHandler) serviceError(w http.ResponseWriter, err error) {
	if service.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	h.logger.Error("request failed", slog.Any("error", err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func statementID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid statement id")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}
