package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFields_TitlePlain(t *testing.T) {
	text := "CDB BANCO X 01/02/2023 01/02/2023 01/02/2026 10.000,00 12,50 12,50 10,00 1.050,00 10.500,00 75,00 15,00 10.425,00 3,25 0,95 5,00"

	f := DecodeFields(text)

	assert.Equal(t, LayoutTitle, f.Layout)
	assert.Equal(t, 3, f.DateCount)
	assert.Equal(t, "2023-02-01", *f.Dates.Emissao)
	assert.Equal(t, "2023-02-01", *f.Dates.Aplicacao)
	assert.Equal(t, "2026-02-01", *f.Dates.Vencimento)

	require.NotNil(t, f.Index)
	assert.Equal(t, IndexNone, f.Index.Kind)
	assertFloat(t, 12.5, f.Index.IssueRate)
	assertFloat(t, 12.5, f.Index.AnnualRate)

	v := f.Values
	assertFloat(t, 10000, v.InitialAmount)
	assertFloat(t, 10, v.Quantity)
	assertFloat(t, 1050, v.CurrentPrice)
	assertFloat(t, 10500, v.GrossValue)
	assertFloat(t, 75, v.Taxes)
	assertFloat(t, 15, v.EffectiveTaxRate)
	assertFloat(t, 10425, v.NetValue)
	assertFloat(t, 3.25, v.PortfolioSharePct)
	assertFloat(t, 0.95, v.MonthReturnPct)
	assertFloat(t, 5, v.SinceInceptionPct)
}

func TestDecodeFields_IndexedTitles(t *testing.T) {
	tail := "1,00 55.000,00 55.000,00 0,00 0,00 55.000,00 10,00 0,90 10,00"

	tests := []struct {
		name       string
		text       string
		kind       IndexKind
		issueRate  float64
		annualRate *float64
	}{
		{
			name:      "CDI rate only sets issue rate",
			text:      "LCA BANCO Y 15/03/2022 15/03/2022 15/03/2027 50.000,00 CDI - 95,00 " + tail,
			kind:      IndexCDI,
			issueRate: 95,
		},
		{
			name:       "PRE",
			text:       "LTN 15/03/2022 15/03/2022 15/03/2027 50.000,00 PRE 12,00 " + tail,
			kind:       IndexPRE,
			issueRate:  12,
			annualRate: ptr(12.0),
		},
		{
			name:       "IPCA",
			text:       "NTN-B 15/03/2022 15/03/2022 15/03/2027 50.000,00 IPCA 6,20 " + tail,
			kind:       IndexIPCA,
			issueRate:  6.2,
			annualRate: ptr(6.2),
		},
		{
			name:       "IPCA M D",
			text:       "DEB ENERGIA 15/03/2022 15/03/2022 15/03/2027 50.000,00 IPCA M D 7,15 " + tail,
			kind:       IndexIPCAMD,
			issueRate:  7.15,
			annualRate: ptr(7.15),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DecodeFields(tt.text)

			assert.Equal(t, LayoutTitle, f.Layout)
			require.NotNil(t, f.Index)
			assert.Equal(t, tt.kind, f.Index.Kind)
			assertFloat(t, tt.issueRate, f.Index.IssueRate)
			if tt.annualRate == nil {
				assert.Nil(t, f.Index.AnnualRate)
			} else {
				assertFloat(t, *tt.annualRate, f.Index.AnnualRate)
			}

			// the rate does not shift the positional columns
			assertFloat(t, 50000, f.Values.InitialAmount)
			assertFloat(t, 1, f.Values.Quantity)
			assertFloat(t, 55000, f.Values.CurrentPrice)
			assertFloat(t, 55000, f.Values.GrossValue)
			assertFloat(t, 55000, f.Values.NetValue)
			assertFloat(t, 10, f.Values.SinceInceptionPct)
		})
	}
}

func TestDecodeFields_IndexIgnoredInNameBeforeFirstDate(t *testing.T) {
	f := DecodeFields("FUNDO CDI - 5,00 PLUS 01/01/2024 01/01/2024 01/01/2026 1.000,00 2,00 3,00")

	require.NotNil(t, f.Index)
	assert.Equal(t, IndexNone, f.Index.Kind)
	// 5,00 from the name is a plain decimal and fills the first slot
	assertFloat(t, 5, f.Values.InitialAmount)
	assertFloat(t, 1000, f.Index.IssueRate)
	assertFloat(t, 2, f.Index.AnnualRate)
	assertFloat(t, 3, f.Values.Quantity)
}

func TestDecodeFields_BareKeywordSetsKindOnly(t *testing.T) {
	tests := []struct {
		name string
		text string
		want IndexKind
	}{
		{"keyword", "CDB 01/01/2024 01/01/2024 01/01/2026 CDI", IndexCDI},
		{"printed fragment", "CDB 01/01/2024 01/01/2024 01/01/2026 CDI_3 -", IndexCDI},
		{"ipca fragment", "NTN-B 01/01/2024 01/01/2024 01/01/2026 IPCA_12", IndexIPCA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DecodeFields(tt.text)

			require.NotNil(t, f.Index)
			assert.Equal(t, tt.want, f.Index.Kind)
			assert.Nil(t, f.Index.IssueRate)
			assert.Nil(t, f.Index.AnnualRate)
			assert.Nil(t, f.Values.InitialAmount)
		})
	}
}

func TestDecodeFields_Fund(t *testing.T) {
	f := DecodeFields("FUNDO ABC 10/01/2024 5.000,00 100,00 52,50 5.250,00 37,50 15,00 5.212,50")

	assert.Equal(t, LayoutFund, f.Layout)
	assert.Equal(t, 1, f.DateCount)
	assert.Nil(t, f.Dates.Emissao)
	assert.Nil(t, f.Dates.Vencimento)
	assert.Equal(t, "2024-01-10", *f.Dates.Aplicacao)
	assert.Nil(t, f.Index)

	v := f.Values
	assertFloat(t, 5000, v.InitialAmount)
	assertFloat(t, 100, v.Quantity)
	assertFloat(t, 52.5, v.CurrentPrice)
	assertFloat(t, 5250, v.GrossValue)
	assertFloat(t, 37.5, v.Taxes)
	assertFloat(t, 15, v.EffectiveTaxRate)
	assertFloat(t, 5212.5, v.NetValue)
	assert.Nil(t, v.PortfolioSharePct)
	assert.Nil(t, v.MonthReturnPct)
	assert.Nil(t, v.SinceInceptionPct)
}

func TestDecodeFields_DatelessFund(t *testing.T) {
	f := DecodeFields("XP MACRO FIC FIM 1.000,00 -2,50")

	assert.Equal(t, LayoutFund, f.Layout)
	assert.Nil(t, f.Dates.Aplicacao)
	assertFloat(t, 1000, f.Values.InitialAmount)
	assertFloat(t, -2.5, f.Values.Quantity)
}

func TestDecodeFields_EdgeCases(t *testing.T) {
	t.Run("invalid calendar date is nil", func(t *testing.T) {
		f := DecodeFields("CDB 31/02/24 01/03/24 01/03/26 1,00")
		assert.Equal(t, LayoutTitle, f.Layout)
		assert.Nil(t, f.Dates.Emissao)
		assert.Equal(t, "2024-03-01", *f.Dates.Aplicacao)
		assert.Equal(t, "2026-03-01", *f.Dates.Vencimento)
	})

	t.Run("missing slots are nil", func(t *testing.T) {
		f := DecodeFields("CDB 01/01/2024 01/01/2024 01/01/2026 1.000,00")
		assertFloat(t, 1000, f.Values.InitialAmount)
		assert.Nil(t, f.Index)
		assert.Nil(t, f.Values.Quantity)
		assert.Nil(t, f.Values.SinceInceptionPct)
	})

	t.Run("surplus decimals are ignored", func(t *testing.T) {
		f := DecodeFields("F 01/01/2024 1,00 2,00 3,00 4,00 5,00 6,00 7,00 8,00 9,00 10,00 11,00 12,00")
		assertFloat(t, 1, f.Values.InitialAmount)
		assertFloat(t, 10, f.Values.SinceInceptionPct)
	})

	t.Run("more than three dates uses the first three", func(t *testing.T) {
		f := DecodeFields("X 01/01/2020 02/01/2020 03/01/2020 04/01/2020 1,00")
		assert.Equal(t, "2020-01-01", *f.Dates.Emissao)
		assert.Equal(t, "2020-01-02", *f.Dates.Aplicacao)
		assert.Equal(t, "2020-01-03", *f.Dates.Vencimento)
	})
}

func ptr[T any](v T) *T { return &v }
