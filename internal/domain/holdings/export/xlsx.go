package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/summary"
)

// Sheet names of the workbook.
const (
	SheetPositions = "Posicoes"
	SheetSummary   = "Resumo"
)

// Headers is the column order shared by the CSV and XLSX exports.
var Headers = []string{
	"Tipo", "Nome", "Layout", "Data_Emissao", "Data_Aplicacao", "Data_Vencimento",
	"Aplicacao_Inicial", "Indexador", "TX_Emis", "TX_aa", "Quantidade", "Preco_Atual",
	"Valor_Bruto_Atual", "Impostos", "Aliq_Atual", "Valor_Liquido_Atual",
	"Part_Prflo_Pct", "Rent_Mes_Pct", "Rent_Inicio_Pct",
}

func cell(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func positionRow(r parser.Record) []interface{} {
	var kind, issue, annual interface{}
	if r.Index != nil {
		kind = string(r.Index.Kind)
		issue = cell(r.Index.IssueRate)
		annual = cell(r.Index.AnnualRate)
	}
	return []interface{}{
		r.Section.Label(), deref(r.Name), string(r.Layout),
		deref(r.Dates.Emissao), deref(r.Dates.Aplicacao), deref(r.Dates.Vencimento),
		cell(r.Values.InitialAmount), kind, issue, annual,
		cell(r.Values.Quantity), cell(r.Values.CurrentPrice), cell(r.Values.GrossValue),
		cell(r.Values.Taxes), cell(r.Values.EffectiveTaxRate), cell(r.Values.NetValue),
		cell(r.Values.PortfolioSharePct), cell(r.Values.MonthReturnPct), cell(r.Values.SinceInceptionPct),
	}
}

// WriteXLSX writes a workbook with one row per record on the Posicoes sheet
// and per-section totals on the Resumo sheet. Numbers are stored as numeric
// cells.
func WriteXLSX(w io.Writer, records []parser.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetPositions); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := writeRow(f, SheetPositions, 1, header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
	if err := f.SetCellStyle(SheetPositions, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range records {
		if err := writeRow(f, SheetPositions, i+2, positionRow(r)); err != nil {
			return err
		}
	}

	if err := writeSummarySheet(f, records, headerStyle); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write XLSX: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, records []parser.Record, headerStyle int) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	header := []interface{}{"Tipo", "Quantidade", "Valor_Bruto", "Valor_Liquido", "Impostos"}
	if err := writeRow(f, SheetSummary, 1, header); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSummary, "A1", "E1", headerStyle); err != nil {
		return fmt.Errorf("failed to style summary header: %w", err)
	}

	sum := summary.Summarize(records)
	row := 2
	for _, sec := range parser.Sections {
		t := sum.Section(sec)
		if err := writeRow(f, SheetSummary, row, totalsRow(sec.Label(), t)); err != nil {
			return err
		}
		row++
	}
	return writeRow(f, SheetSummary, row, totalsRow("Total", sum.Total))
}

func totalsRow(label string, t *summary.Totals) []interface{} {
	return []interface{}{label, t.Count, t.Gross.ToFloat64(), t.Net.ToFloat64(), t.Taxes.ToFloat64()}
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("invalid row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, start, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}
