package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/holdings-extractor/pkg/db"
)

func newSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlite, err := db.OpenSQLite(filepath.Join(t.TempDir(), "holdings.db"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	require.NoError(t, sqlite.RunMigrations())
	return sqlite.DB
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(newSQLiteDB(t))
	st := fixtureStatement()

	require.NoError(t, repo.SaveStatement(ctx, st))

	got, err := repo.GetStatement(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)
	assert.Equal(t, st.SourceDigest, got.SourceDigest)
	assert.True(t, st.ExtractedAt.Equal(got.ExtractedAt))
	assert.Equal(t, st.Stats, got.Stats)
	assert.Equal(t, st.Records, got.Records)
}

func TestSQLiteRepository_DuplicateIDFails(t *testing.T) {
	ctx := context.Background()
	sqlDB := newSQLiteDB(t)
	repo := NewSQLiteRepository(sqlDB)
	st := fixtureStatement()

	require.NoError(t, repo.SaveStatement(ctx, st))
	assert.Error(t, repo.SaveStatement(ctx, st))

	// The failed save must not leave extra positions behind.
	var n int
	require.NoError(t, sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM positions`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestSQLiteRepository_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(newSQLiteDB(t))

	_, err := repo.GetStatement(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrStatementNotFound)

	records, err := repo.ListPositions(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, records)
}
