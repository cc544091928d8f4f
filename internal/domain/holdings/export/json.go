package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/summary"
)

// Metadata describes where a document came from.
type Metadata struct {
	ExtractedAt time.Time    `json:"extracted_at"`
	Source      string       `json:"source"`
	Digest      string       `json:"digest,omitempty"`
	Stats       parser.Stats `json:"stats"`
}

// SectionSummary is the per-table aggregate shown next to its positions.
type SectionSummary struct {
	Count      int     `json:"count"`
	GrossTotal float64 `json:"gross_total"`
	NetTotal   float64 `json:"net_total"`
	TaxesTotal float64 `json:"taxes_total"`
}

// RendaFixa groups the fixed-income tables.
type RendaFixa struct {
	PosFixado               []parser.Record `json:"pos_fixado"`
	PosFixadoSummary        SectionSummary  `json:"pos_fixado_summary"`
	PreFixado               []parser.Record `json:"pre_fixado"`
	PreFixadoSummary        SectionSummary  `json:"pre_fixado_summary"`
	JuroRealInflacao        []parser.Record `json:"juro_real_inflacao"`
	JuroRealInflacaoSummary SectionSummary  `json:"juro_real_inflacao_summary"`
}

// Alternativos groups the alternative-investment tables.
type Alternativos struct {
	Multimercados        []parser.Record `json:"multimercados"`
	MultimercadosSummary SectionSummary  `json:"multimercados_summary"`
}

// Totais holds statement-wide totals.
type Totais struct {
	Count      int     `json:"quantidade_investimentos"`
	GrossTotal float64 `json:"valor_bruto_total"`
	NetTotal   float64 `json:"valor_liquido_total"`
}

// Document is the hierarchical JSON export.
type Document struct {
	Metadata     Metadata     `json:"metadata"`
	RendaFixa    RendaFixa    `json:"renda_fixa"`
	Alternativos Alternativos `json:"alternativos"`
	Totais       Totais       `json:"totais"`
}

func sectionSummary(t *summary.Totals) SectionSummary {
	return SectionSummary{
		Count:      t.Count,
		GrossTotal: t.Gross.ToFloat64(),
		NetTotal:   t.Net.ToFloat64(),
		TaxesTotal: t.Taxes.ToFloat64(),
	}
}

// NewDocument groups the records of result by section.
func NewDocument(meta Metadata, result parser.Result) Document {
	meta.Stats = result.Stats
	doc := Document{Metadata: meta}

	bySection := make(map[parser.Section][]parser.Record)
	for _, sec := range parser.Sections {
		bySection[sec] = []parser.Record{}
	}
	for _, r := range result.Records {
		if _, ok := bySection[r.Section]; ok {
			bySection[r.Section] = append(bySection[r.Section], r)
		}
	}

	sum := summary.Summarize(result.Records)

	doc.RendaFixa = RendaFixa{
		PosFixado:               bySection[parser.SectionPosFixado],
		PosFixadoSummary:        sectionSummary(sum.Section(parser.SectionPosFixado)),
		PreFixado:               bySection[parser.SectionPreFixado],
		PreFixadoSummary:        sectionSummary(sum.Section(parser.SectionPreFixado)),
		JuroRealInflacao:        bySection[parser.SectionJuroRealInflacao],
		JuroRealInflacaoSummary: sectionSummary(sum.Section(parser.SectionJuroRealInflacao)),
	}
	doc.Alternativos = Alternativos{
		Multimercados:        bySection[parser.SectionMultimercados],
		MultimercadosSummary: sectionSummary(sum.Section(parser.SectionMultimercados)),
	}
	doc.Totais = Totais{
		Count:      sum.Total.Count,
		GrossTotal: sum.Total.Gross.ToFloat64(),
		NetTotal:   sum.Total.Net.ToFloat64(),
	}
	return doc
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
