// Package storage keeps the files exported for a statement on a pluggable
// backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// ErrFileNotFound is returned when an artifact does not exist.
var ErrFileNotFound = errors.New("file not found")

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	StatementID uuid.UUID `json:"statement_id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // Internal storage path
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the interface for artifact storage operations
type Storage interface {
	// Put stores an artifact under a statement and returns its metadata
	Put(ctx context.Context, statementID uuid.UUID, name string, contentType string, r io.Reader) (*FileInfo, error)

	// Open returns a reader for the artifact with the given name
	Open(ctx context.Context, statementID uuid.UUID, name string) (io.ReadCloser, *FileInfo, error)

	// List returns all artifacts of a statement
	List(ctx context.Context, statementID uuid.UUID) ([]*FileInfo, error)

	// Delete removes every artifact of a statement
	Delete(ctx context.Context, statementID uuid.UUID) error
}

// StorageType identifies the storage backend
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
)

// Config holds storage configuration
type Config struct {
	Type      StorageType
	LocalPath string
}

// New creates a new Storage implementation based on configuration
func New(cfg *Config) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal, "":
		return NewLocalStorage(cfg.LocalPath)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}
