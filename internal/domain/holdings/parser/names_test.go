package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dataWithoutName = "01/01/2024 01/01/2024 01/01/2026 1.000,00"

func window(curr string, next *Line) Window {
	return Window{
		Curr:    Line{Page: 1, Y: 100, Text: curr},
		Next:    next,
		Section: SectionPosFixado,
	}
}

func TestResolveName_FallbackChain(t *testing.T) {
	tests := []struct {
		name    string
		curr    string
		pending string
		want    *string
		source  NameSource
	}{
		{"in-line name wins over pending", "ACME CORP " + dataWithoutName, "IGNORED", ptr("ACME CORP"), NameInline},
		{"pending used without in-line name", dataWithoutName, "IGNORED", ptr("IGNORED"), NamePending},
		{"index suffix stripped from pending", dataWithoutName, "GLOBAL FUND CDI_3 -", ptr("GLOBAL FUND"), NamePending},
		{"PRE suffix stripped", dataWithoutName, "TESOURO PRE 2026", ptr("TESOURO"), NamePending},
		{"noise pending rejected", dataWithoutName, "Total", nil, NameNone},
		{"nothing available", dataWithoutName, "", nil, NameNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveName(window(tt.curr, nil), tt.pending, ContinueUnlessInline)
			assert.Equal(t, tt.want, res.Name)
			assert.Equal(t, tt.source, res.Source)
			assert.False(t, res.ConsumedNext)
		})
	}
}

func TestResolveName_MultimercadosInlineName(t *testing.T) {
	w := Window{
		Curr:    Line{Page: 1, Text: "XP MACRO FIC FIM 1.000,00 2,00"},
		Section: SectionMultimercados,
	}
	res := ResolveName(w, "", ContinueNever)
	assertName(t, "XP MACRO FIC FIM", res.Name)
}

func TestResolveName_ContinuationPolicy(t *testing.T) {
	next := &Line{Page: 1, Y: 112, Text: "MASTER S.A. 100,00"}

	tests := []struct {
		name     string
		curr     string
		pending  string
		policy   ContinuationPolicy
		want     *string
		consumed bool
	}{
		{"unless-inline appends to pending", dataWithoutName, "BANCO", ContinueUnlessInline, ptr("BANCO MASTER S.A."), true},
		{"unless-inline skips in-line names", "CDB X " + dataWithoutName, "", ContinueUnlessInline, ptr("CDB X"), false},
		{"always appends to in-line names", "CDB X " + dataWithoutName, "", ContinueAlways, ptr("CDB X MASTER S.A."), true},
		{"never", dataWithoutName, "BANCO", ContinueNever, ptr("BANCO"), false},
		{"continuation alone becomes the name", dataWithoutName, "", ContinueUnlessInline, ptr("MASTER S.A."), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveName(window(tt.curr, next), tt.pending, tt.policy)
			assert.Equal(t, tt.want, res.Name)
			assert.Equal(t, tt.consumed, res.ConsumedNext)
		})
	}
}

func TestResolveName_ContinuationRejected(t *testing.T) {
	tests := []struct {
		name string
		next *Line
	}{
		{"no next line", nil},
		{"next on another page", &Line{Page: 2, Text: "MASTER"}},
		{"next is a header", &Line{Page: 1, Text: "PRÉ-FIXADO"}},
		{"next is noise", &Line{Page: 1, Text: "Total 1.000,00"}},
		{"next is data", &Line{Page: 1, Text: "CDB 01/02/2024 1,00"}},
		{"next is numeric", &Line{Page: 1, Text: "1.234,56 7,89"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveName(window(dataWithoutName, tt.next), "BANCO", ContinueAlways)
			assertName(t, "BANCO", res.Name)
			assert.False(t, res.ConsumedNext)
		})
	}
}

func TestResolveName_NextRowName(t *testing.T) {
	next := &Line{Page: 1, Y: 112, Text: "CDB BANCO BETA CDI_3 -"}

	tests := []struct {
		name      string
		afterNext *Line
		want      string
		consumed  bool
	}{
		{"next row has no in-line name", &Line{Page: 1, Y: 124, Text: dataWithoutName}, "CDB BANCO ALFA", false},
		{"next row names itself", &Line{Page: 1, Y: 124, Text: "LCA X " + dataWithoutName}, "CDB BANCO ALFA CDB BANCO BETA", true},
		{"next row on another page", &Line{Page: 2, Y: 124, Text: dataWithoutName}, "CDB BANCO ALFA CDB BANCO BETA", true},
		{"followed by totals", &Line{Page: 1, Y: 124, Text: "Total 3.000,00"}, "CDB BANCO ALFA CDB BANCO BETA", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, policy := range []ContinuationPolicy{ContinueUnlessInline, ContinueAlways} {
				w := window(dataWithoutName, next)
				w.AfterNext = tt.afterNext

				res := ResolveName(w, "CDB BANCO ALFA CDI_3 -", policy)
				assertName(t, tt.want, res.Name)
				assert.Equal(t, tt.consumed, res.ConsumedNext)
			}
		})
	}
}

func TestParseContinuationPolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    ContinuationPolicy
		wantErr bool
	}{
		{"never", ContinueNever, false},
		{"ALWAYS", ContinueAlways, false},
		{"unless-inline", ContinueUnlessInline, false},
		{"", ContinueUnlessInline, false},
		{"sometimes", ContinueUnlessInline, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseContinuationPolicy(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.String(), tt.want.String())
		})
	}
}
