package export

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
)

// Row is one flat CSV line.
type Row struct {
	Tipo              string `csv:"Tipo"`
	Nome              string `csv:"Nome"`
	Layout            string `csv:"Layout"`
	DataEmissao       string `csv:"Data_Emissao"`
	DataAplicacao     string `csv:"Data_Aplicacao"`
	DataVencimento    string `csv:"Data_Vencimento"`
	AplicacaoInicial  string `csv:"Aplicacao_Inicial"`
	Indexador         string `csv:"Indexador"`
	TxEmis            string `csv:"TX_Emis"`
	TxAA              string `csv:"TX_aa"`
	Quantidade        string `csv:"Quantidade"`
	PrecoAtual        string `csv:"Preco_Atual"`
	ValorBrutoAtual   string `csv:"Valor_Bruto_Atual"`
	Impostos          string `csv:"Impostos"`
	AliqAtual         string `csv:"Aliq_Atual"`
	ValorLiquidoAtual string `csv:"Valor_Liquido_Atual"`
	PartPrfloPct      string `csv:"Part_Prflo_Pct"`
	RentMesPct        string `csv:"Rent_Mes_Pct"`
	RentInicioPct     string `csv:"Rent_Inicio_Pct"`
}

// Rows flattens records, keeping their order.
func Rows(records []parser.Record) []*Row {
	rows := make([]*Row, 0, len(records))
	for _, r := range records {
		row := &Row{
			Tipo:              r.Section.Label(),
			Nome:              deref(r.Name),
			Layout:            string(r.Layout),
			DataEmissao:       deref(r.Dates.Emissao),
			DataAplicacao:     deref(r.Dates.Aplicacao),
			DataVencimento:    deref(r.Dates.Vencimento),
			AplicacaoInicial:  formatNumber(r.Values.InitialAmount),
			Quantidade:        formatNumber(r.Values.Quantity),
			PrecoAtual:        formatNumber(r.Values.CurrentPrice),
			ValorBrutoAtual:   formatNumber(r.Values.GrossValue),
			Impostos:          formatNumber(r.Values.Taxes),
			AliqAtual:         formatNumber(r.Values.EffectiveTaxRate),
			ValorLiquidoAtual: formatNumber(r.Values.NetValue),
			PartPrfloPct:      formatNumber(r.Values.PortfolioSharePct),
			RentMesPct:        formatNumber(r.Values.MonthReturnPct),
			RentInicioPct:     formatNumber(r.Values.SinceInceptionPct),
		}
		if r.Index != nil {
			row.Indexador = string(r.Index.Kind)
			row.TxEmis = formatNumber(r.Index.IssueRate)
			row.TxAA = formatNumber(r.Index.AnnualRate)
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes one row per record with a header line.
func WriteCSV(w io.Writer, records []parser.Record) error {
	rows := Rows(records)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}
