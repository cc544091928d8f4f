package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
)

// Pool is the subset of *pgxpool.Pool the repository uses.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements StatementRepository using PostgreSQL
type PostgresRepository struct {
	pool Pool
}

// NewPostgresRepository creates a new PostgreSQL-backed statement repository
func NewPostgresRepository(pool Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// SaveStatement inserts the statement and its positions in one transaction.
func (r *PostgresRepository) SaveStatement(ctx context.Context, st *Statement) error {
	stats, err := json.Marshal(st.Stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	rows, err := positions(st.Records)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO statements (id, source, source_digest, extracted_at, stats)
		VALUES ($1, $2, $3, $4, $5)
	`, st.ID, st.Source, st.SourceDigest, st.ExtractedAt, stats)
	if err != nil {
		return fmt.Errorf("failed to insert statement: %w", err)
	}

	for _, p := range rows {
		_, err = tx.Exec(ctx, `
			INSERT INTO positions (statement_id, seq, section, page, layout, name, gross_value, record)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, st.ID, p.seq, p.section, p.page, p.layout, p.name, p.grossValue, p.record)
		if err != nil {
			return fmt.Errorf("failed to insert position %d: %w", p.seq, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit statement: %w", err)
	}
	return nil
}

// GetStatement loads a statement and its positions.
func (r *PostgresRepository) GetStatement(ctx context.Context, id uuid.UUID) (*Statement, error) {
	query := `
		SELECT id, source, source_digest, extracted_at, stats
		FROM statements WHERE id = $1
	`

	var (
		st    Statement
		stats []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&st.ID, &st.Source, &st.SourceDigest, &st.ExtractedAt, &stats,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrStatementNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get statement: %w", err)
	}
	if err := json.Unmarshal(stats, &st.Stats); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}

	st.Records, err = r.ListPositions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListPositions returns the positions of a statement in statement order.
func (r *PostgresRepository) ListPositions(ctx context.Context, id uuid.UUID) ([]parser.Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT record FROM positions
		WHERE statement_id = $1
		ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	records := []parser.Record{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		rec, err := decodeRecord(data)
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
