// Package repository provides data access for extracted statements.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
)

// ErrStatementNotFound is returned when no statement has the requested ID.
var ErrStatementNotFound = errors.New("statement not found")

// Statement is one extraction run together with its positions in statement
// order.
type Statement struct {
	ID           uuid.UUID       `json:"id"`
	Source       string          `json:"source"`
	SourceDigest string          `json:"source_digest"`
	ExtractedAt  time.Time       `json:"extracted_at"`
	Stats        parser.Stats    `json:"stats"`
	Records      []parser.Record `json:"records"`
}

// StatementRepository defines the interface for statement data access
type StatementRepository interface {
	SaveStatement(ctx context.Context, st *Statement) error
	GetStatement(ctx context.Context, id uuid.UUID) (*Statement, error)
	ListPositions(ctx context.Context, id uuid.UUID) ([]parser.Record, error)
}

// position is the row shape shared by both backends.
type position struct {
	seq        int
	section    string
	page       int
	layout     string
	name       *string
	grossValue *float64
	record     []byte
}

func positions(records []parser.Record) ([]position, error) {
	rows := make([]position, 0, len(records))
	for i, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to encode position %d: %w", i, err)
		}
		rows = append(rows, position{
			seq:        i,
			section:    string(r.Section),
			page:       r.Page,
			layout:     string(r.Layout),
			name:       r.Name,
			grossValue: r.Values.GrossValue,
			record:     data,
		})
	}
	return rows, nil
}

func decodeRecord(data []byte) (parser.Record, error) {
	var r parser.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return parser.Record{}, fmt.Errorf("failed to decode position: %w", err)
	}
	return r, nil
}
