package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
)

func ptr[T any](v T) *T { return &v }

func fixtureStatement() *Statement {
	return &Statement{
		ID:           uuid.New(),
		Source:       "extrato.pdf",
		SourceDigest: "abc123",
		ExtractedAt:  time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC),
		Stats:        parser.Stats{Pages: 2, Lines: 40, Data: 2, Records: 2},
		Records: []parser.Record{
			{
				Section: parser.SectionPosFixado,
				Page:    6,
				Layout:  parser.LayoutTitle,
				Name:    ptr("CDB BANCO XYZ"),
				Dates: parser.Dates{
					Emissao:    ptr("2023-01-10"),
					Aplicacao:  ptr("2023-01-10"),
					Vencimento: ptr("2027-01-11"),
				},
				Index:  &parser.Index{Kind: parser.IndexCDI, IssueRate: ptr(110.0)},
				Values: parser.Values{GrossValue: ptr(102084.44), NetValue: ptr(99000.10)},
			},
			{
				Section: parser.SectionMultimercados,
				Page:    7,
				Layout:  parser.LayoutFund,
				Name:    nil,
				Values:  parser.Values{GrossValue: ptr(5250.50)},
			},
		},
	}
}

func encodeForTest(r parser.Record) ([]byte, error) {
	rows, err := positions([]parser.Record{r})
	if err != nil {
		return nil, err
	}
	return rows[0].record, nil
}
