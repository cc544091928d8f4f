package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
)

// SQLiteRepository implements StatementRepository on a local SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an already migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveStatement inserts the statement and its positions in one transaction.
func (r *SQLiteRepository) SaveStatement(ctx context.Context, st *Statement) error {
	stats, err := json.Marshal(st.Stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	rows, err := positions(st.Records)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO statements (id, source, source_digest, extracted_at, stats)
		VALUES (?, ?, ?, ?, ?)
	`, st.ID.String(), st.Source, st.SourceDigest, st.ExtractedAt.UTC().Format(time.RFC3339Nano), string(stats))
	if err != nil {
		return fmt.Errorf("failed to insert statement: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO positions (statement_id, seq, section, page, layout, name, gross_value, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare position insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range rows {
		_, err = stmt.ExecContext(ctx, st.ID.String(), p.seq, p.section, p.page, p.layout, p.name, p.grossValue, string(p.record))
		if err != nil {
			return fmt.Errorf("failed to insert position %d: %w", p.seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit statement: %w", err)
	}
	return nil
}

// GetStatement loads a statement and its positions.
func (r *SQLiteRepository) GetStatement(ctx context.Context, id uuid.UUID) (*Statement, error) {
	var (
		st          Statement
		rawID       string
		extractedAt string
		stats       string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, source, source_digest, extracted_at, stats
		FROM statements WHERE id = ?
	`, id.String()).Scan(&rawID, &st.Source, &st.SourceDigest, &extractedAt, &stats)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrStatementNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get statement: %w", err)
	}

	if st.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("invalid statement id %q: %w", rawID, err)
	}
	if st.ExtractedAt, err = time.Parse(time.RFC3339Nano, extractedAt); err != nil {
		return nil, fmt.Errorf("invalid extracted_at %q: %w", extractedAt, err)
	}
	if err := json.Unmarshal([]byte(stats), &st.Stats); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}

	st.Records, err = r.ListPositions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListPositions returns the positions of a statement in statement order.
func (r *SQLiteRepository) ListPositions(ctx context.Context, id uuid.UUID) ([]parser.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT record FROM positions
		WHERE statement_id = ?
		ORDER BY seq
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	records := []parser.Record{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		rec, err := decodeRecord([]byte(data))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	return records, nil
}
