package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
)

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

func records() []parser.Record {
	return []parser.Record{
		{
			Section: parser.SectionPosFixado,
			Page:    6,
			Layout:  parser.LayoutTitle,
			Name:    s("CDB BANCO & CIA"),
			Dates:   parser.Dates{Emissao: s("2023-02-01"), Aplicacao: s("2023-02-01"), Vencimento: s("2026-02-01")},
			Index:   &parser.Index{Kind: parser.IndexCDI, IssueRate: f(95)},
			Values: parser.Values{
				InitialAmount: f(100000),
				Quantity:      f(100),
				CurrentPrice:  f(1020.844412),
				GrossValue:    f(102084.44),
				Taxes:         f(1084.44),
				NetValue:      f(101000),
			},
		},
		{
			Section: parser.SectionMultimercados,
			Page:    7,
			Layout:  parser.LayoutFund,
			Dates:   parser.Dates{Aplicacao: s("2024-01-10")},
			Values:  parser.Values{GrossValue: f(5250.5), MonthReturnPct: f(-0.35)},
		},
	}
}

// ============================================================================
// Formats
// ============================================================================

func TestParseFormats(t *testing.T) {
	got, err := ParseFormats("json, CSV,json,,xlsx")
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatJSON, FormatCSV, FormatXLSX}, got)

	_, err = ParseFormats("pdf")
	assert.Error(t, err)

	empty, err := ParseFormats("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", FormatJSON.ContentType())
	assert.Equal(t, "text/csv", FormatCSV.ContentType())
	assert.Contains(t, FormatXLSX.ContentType(), "spreadsheetml")
	assert.Equal(t, "application/octet-stream", Format("bin").ContentType())
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "", formatNumber(nil))
	assert.Equal(t, "102.084,44", formatNumber(f(102084.44)))
	assert.Equal(t, "100,00", formatNumber(f(100)))
	assert.Equal(t, "1.020,844412", formatNumber(f(1020.844412)))
	assert.Equal(t, "0,12345679", formatNumber(f(0.123456789)))
	assert.Equal(t, "-0,35", formatNumber(f(-0.35)))
}

// ============================================================================
// CSV
// ============================================================================

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records()))

	header, _, _ := strings.Cut(buf.String(), "\n")
	assert.Equal(t, strings.Join(Headers, ","), header)

	var rows []*Row
	require.NoError(t, gocsv.UnmarshalBytes(buf.Bytes(), &rows))
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "PÓS-FIXADO", first.Tipo)
	assert.Equal(t, "CDB BANCO & CIA", first.Nome)
	assert.Equal(t, "TITULO", first.Layout)
	assert.Equal(t, "2026-02-01", first.DataVencimento)
	assert.Equal(t, "CDI", first.Indexador)
	assert.Equal(t, "95,00", first.TxEmis)
	assert.Equal(t, "", first.TxAA)
	assert.Equal(t, "102.084,44", first.ValorBrutoAtual)
	assert.Equal(t, "1.020,844412", first.PrecoAtual)

	second := rows[1]
	assert.Equal(t, "MULTIMERCADOS", second.Tipo)
	assert.Equal(t, "", second.Nome)
	assert.Equal(t, "", second.Indexador)
	assert.Equal(t, "-0,35", second.RentMesPct)
}

// ============================================================================
// JSON
// ============================================================================

func TestWriteJSON(t *testing.T) {
	extractedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	result := parser.Result{Records: records(), Stats: parser.Stats{Pages: 2, Records: 2}}
	doc := NewDocument(Metadata{ExtractedAt: extractedAt, Source: "statement.pdf"}, result)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, doc))
	assert.Contains(t, buf.String(), "CDB BANCO & CIA")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	meta := decoded["metadata"].(map[string]any)
	assert.Equal(t, "statement.pdf", meta["source"])
	assert.Equal(t, "2026-01-02T03:04:05Z", meta["extracted_at"])
	assert.Equal(t, float64(2), meta["stats"].(map[string]any)["pages"])

	rf := decoded["renda_fixa"].(map[string]any)
	assert.Len(t, rf["pos_fixado"], 1)
	assert.Len(t, rf["pre_fixado"], 0)
	assert.InDelta(t, 102084.44, rf["pos_fixado_summary"].(map[string]any)["gross_total"], 1e-9)

	alt := decoded["alternativos"].(map[string]any)
	assert.Len(t, alt["multimercados"], 1)

	totais := decoded["totais"].(map[string]any)
	assert.Equal(t, float64(2), totais["quantidade_investimentos"])
	assert.InDelta(t, 107334.94, totais["valor_bruto_total"], 1e-9)
}

// ============================================================================
// XLSX
// ============================================================================

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, records()))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{SheetPositions, SheetSummary}, wb.GetSheetList())

	rows, err := wb.GetRows(SheetPositions)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, "CDB BANCO & CIA", rows[1][1])

	gross, err := wb.GetCellValue(SheetPositions, "M2")
	require.NoError(t, err)
	assert.Equal(t, "102084.44", gross)

	total, err := wb.GetCellValue(SheetSummary, "A6")
	require.NoError(t, err)
	assert.Equal(t, "Total", total)
	count, err := wb.GetCellValue(SheetSummary, "B6")
	require.NoError(t, err)
	assert.Equal(t, "2", count)
}

func TestWrite(t *testing.T) {
	result := parser.Result{Records: records(), Stats: parser.Stats{Records: 2}}
	meta := Metadata{Source: "extrato.pdf"}

	for _, format := range []Format{FormatJSON, FormatCSV, FormatXLSX} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, format, meta, result))
			assert.NotZero(t, buf.Len())
			assert.Equal(t, "positions."+string(format), format.FileName())
		})
	}

	assert.Error(t, Write(&bytes.Buffer{}, Format("pdf"), meta, result))
}
