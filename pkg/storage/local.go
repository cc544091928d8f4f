package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const metaDirName = ".meta"

// LocalStorage implements Storage using the local filesystem. Each statement
// gets its own directory; metadata lives in a .meta subdirectory.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local filesystem storage
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{basePath: basePath}, nil
}

func (s *LocalStorage) dir(statementID uuid.UUID) string {
	return filepath.Join(s.basePath, statementID.String())
}

func (s *LocalStorage) metaPath(statementID uuid.UUID, name string) string {
	return filepath.Join(s.dir(statementID), metaDirName, name+".json")
}

// Put stores an artifact, replacing any previous artifact with the same name.
func (s *LocalStorage) Put(ctx context.Context, statementID uuid.UUID, name string, contentType string, r io.Reader) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	safeName := sanitizeFilename(name)
	if safeName == "" {
		return nil, errors.New("artifact name is required")
	}

	dir := s.dir(statementID)
	if err := os.MkdirAll(filepath.Join(dir, metaDirName), 0755); err != nil {
		return nil, fmt.Errorf("failed to create statement directory: %w", err)
	}

	filePath := filepath.Join(dir, safeName)
	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	info := &FileInfo{
		ID:          uuid.New(),
		StatementID: statementID,
		Name:        safeName,
		Size:        size,
		ContentType: contentType,
		Path:        safeName,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.saveMetadata(info); err != nil {
		os.Remove(filePath)
		return nil, err
	}

	return info, nil
}

// Open retrieves an artifact by name
func (s *LocalStorage) Open(ctx context.Context, statementID uuid.UUID, name string) (io.ReadCloser, *FileInfo, error) {
	info, err := s.info(statementID, sanitizeFilename(name))
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.dir(statementID), info.Path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%s: %w", name, ErrFileNotFound)
		}
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, info, nil
}

// List returns all artifacts of a statement ordered by name
func (s *LocalStorage) List(ctx context.Context, statementID uuid.UUID) ([]*FileInfo, error) {
	metaDir := filepath.Join(s.dir(statementID), metaDirName)
	entries, err := os.ReadDir(metaDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*FileInfo{}, nil
		}
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		info, err := s.info(statementID, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		files = append(files, info)
	}

	slices.SortFunc(files, func(a, b *FileInfo) int { return strings.Compare(a.Name, b.Name) })
	return files, nil
}

// Delete removes the statement directory
func (s *LocalStorage) Delete(ctx context.Context, statementID uuid.UUID) error {
	if err := os.RemoveAll(s.dir(statementID)); err != nil {
		return fmt.Errorf("failed to delete artifacts: %w", err)
	}
	return nil
}

func (s *LocalStorage) info(statementID uuid.UUID, name string) (*FileInfo, error) {
	data, err := os.ReadFile(s.metaPath(statementID, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", name, ErrFileNotFound)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var info FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	return &info, nil
}

// saveMetadata saves file metadata to a JSON file
func (s *LocalStorage) saveMetadata(info *FileInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(s.metaPath(info.StatementID, info.Name), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return strings.TrimSpace(replacer.Replace(name))
}
