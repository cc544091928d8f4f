package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
	"github.com/FACorreiaa/holdings-extractor/pkg/middleware"
)

const (
	titleLine = "CDB ALFA 10/01/2023 10/01/2023 11/01/2027 100.000,00 CDI - 110,00 100,00 1.020,84 102.084,44 1.084,44 15,00 101.000,00 3,20 1,05 2,10"
	fundLine  = "FUNDO BETA FIC MM 5.000,00 10,00 525,05 5.250,50 0,00 0,00 5.250,50 0,16 0,50 5,00"
)

func writeWordDump(t *testing.T) string {
	t.Helper()
	var tokens []parser.Token
	add := func(page int, lines ...string) {
		for i, line := range lines {
			for j, word := range strings.Fields(line) {
				tokens = append(tokens, parser.Token{Page: page, Text: word, X0: 20 + float64(j)*40, Top: 100 + float64(i)*12})
			}
		}
	}
	add(1, "PÓS-FIXADO", titleLine)
	add(2, "MULTIMERCADOS", fundLine)

	data, err := json.Marshal(tokens)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "extrato.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DB_DRIVER", "none")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestExtractCmd(t *testing.T) {
	words := writeWordDump(t)
	outDir := t.TempDir()

	out, err := run(t, "extract", "--words", words, "--format", "json,csv", "--out", outDir,
		"--expect-count", "2", "--expect-gross", "107.334,94")
	require.NoError(t, err)

	assert.Contains(t, out, "Records: 2")
	assert.Contains(t, out, "107.334,94")
	assert.Contains(t, out, "Validation:")
	assert.NotContains(t, out, "FAIL")

	assert.FileExists(t, filepath.Join(outDir, "extrato_positions.json"))
	assert.FileExists(t, filepath.Join(outDir, "extrato_positions.csv"))

	data, err := os.ReadFile(filepath.Join(outDir, "extrato_positions.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "CDB ALFA")
	assert.Contains(t, string(data), "FUNDO BETA FIC MM")
}

func TestExtractCmd_ValidationFailure(t *testing.T) {
	words := writeWordDump(t)

	out, err := run(t, "extract", "--words", words, "--out", t.TempDir(), "--expect-count", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation checks failed")
	assert.Contains(t, out, "FAIL")
}

func TestExtractCmd_Errors(t *testing.T) {
	words := writeWordDump(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no input", []string{"extract"}, "exactly one of --pdf or --words"},
		{"both inputs", []string{"extract", "--pdf", "a.pdf", "--words", words}, "exactly one of --pdf or --words"},
		{"bad format", []string{"extract", "--words", words, "--format", "pdf"}, "pdf"},
		{"bad pages", []string{"extract", "--words", words, "--pages", "x"}, "x"},
		{"bad policy", []string{"extract", "--words", words, "--continuation", "sometimes"}, "sometimes"},
		{"save without database", []string{"extract", "--words", words, "--out", t.TempDir(), "--save"}, "DB_DRIVER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWordsCmd_RequiresPDF(t *testing.T) {
	_, err := run(t, "words")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--pdf")
}

func TestMigrateCmd_RequiresDriver(t *testing.T) {
	_, err := run(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
}

func TestTokenCmd(t *testing.T) {
	t.Run("without secret", func(t *testing.T) {
		t.Setenv("API_JWT_SECRET", "")
		_, err := run(t, "token", "--subject", "ops")
		require.Error(t, err)
	})

	t.Run("mints a valid token", func(t *testing.T) {
		t.Setenv("API_JWT_SECRET", "test-secret")
		out, err := run(t, "token", "--subject", "ops")
		require.NoError(t, err)

		subject, err := middleware.NewAuthenticator("test-secret").ValidateToken(strings.TrimSpace(out))
		require.NoError(t, err)
		assert.Equal(t, "ops", subject)
	})
}

func TestExtractorConfig(t *testing.T) {
	t.Setenv("EXTRACT_CONTINUATION", "always")
	t.Setenv("EXTRACT_PAGES", "6,7")

	cfg, _, err := setup(newRootCmd())
	require.NoError(t, err)

	pc, err := extractorConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, parser.ContinueAlways, pc.Continuation)
	assert.Equal(t, []int{6, 7}, pc.Pages)
}
