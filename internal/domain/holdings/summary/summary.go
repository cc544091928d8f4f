// Package summary aggregates extracted positions and checks them against
// known statement figures.
package summary

import (
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
	"github.com/FACorreiaa/holdings-extractor/pkg/money"
)

// Totals accumulates amounts in integer cents.
type Totals struct {
	Count int          `json:"count"`
	Gross *money.Money `json:"gross"`
	Net   *money.Money `json:"net"`
	Taxes *money.Money `json:"taxes"`
}

func newTotals() *Totals {
	return &Totals{
		Gross: money.Zero(money.BRL),
		Net:   money.Zero(money.BRL),
		Taxes: money.Zero(money.BRL),
	}
}

func (t *Totals) add(r parser.Record) {
	t.Count++
	t.Gross = t.Gross.MustAdd(amount(r.Values.GrossValue))
	t.Net = t.Net.MustAdd(amount(r.Values.NetValue))
	t.Taxes = t.Taxes.MustAdd(amount(r.Values.Taxes))
}

func amount(v *float64) *money.Money {
	if v == nil {
		return money.Zero(money.BRL)
	}
	return money.NewFromFloat(*v, money.BRL)
}

// Summary holds per-section and overall figures for a set of records.
type Summary struct {
	Sections map[parser.Section]*Totals `json:"sections"`
	Total    *Totals                    `json:"total"`

	// Counts by benchmark; records without an index are not counted.
	Indexes map[parser.IndexKind]int `json:"indexes"`

	// Largest and smallest gross value among records that have one.
	MaxGross *money.Money `json:"max_gross"`
	MinGross *money.Money `json:"min_gross"`

	AvgMonthReturnPct    *float64 `json:"avg_month_return_pct"`
	AvgSinceInceptionPct *float64 `json:"avg_since_inception_pct"`
	MissingGrossValue    int      `json:"missing_gross_value"`
	MissingName          int      `json:"missing_name"`
}

// Section returns the totals of s, zero totals when no record belongs to it.
func (s Summary) Section(sec parser.Section) *Totals {
	if t, ok := s.Sections[sec]; ok {
		return t
	}
	return newTotals()
}

// Summarize computes totals per section and overall. Nil values count as
// zero.
func Summarize(records []parser.Record) Summary {
	s := Summary{
		Sections: make(map[parser.Section]*Totals),
		Total:    newTotals(),
		Indexes:  make(map[parser.IndexKind]int),
	}

	var (
		monthSum, sinceSum     float64
		monthCount, sinceCount int
	)

	for _, r := range records {
		t, ok := s.Sections[r.Section]
		if !ok {
			t = newTotals()
			s.Sections[r.Section] = t
		}
		t.add(r)
		s.Total.add(r)

		if r.Index != nil {
			s.Indexes[r.Index.Kind]++
		}
		if r.Name == nil {
			s.MissingName++
		}

		if r.Values.GrossValue == nil {
			s.MissingGrossValue++
		} else {
			g := amount(r.Values.GrossValue)
			if s.MaxGross == nil || s.MaxGross.LessThan(g) {
				s.MaxGross = g
			}
			if s.MinGross == nil || g.LessThan(s.MinGross) {
				s.MinGross = g
			}
		}

		if v := r.Values.MonthReturnPct; v != nil {
			monthSum += *v
			monthCount++
		}
		if v := r.Values.SinceInceptionPct; v != nil {
			sinceSum += *v
			sinceCount++
		}
	}

	if monthCount > 0 {
		avg := monthSum / float64(monthCount)
		s.AvgMonthReturnPct = &avg
	}
	if sinceCount > 0 {
		avg := sinceSum / float64(sinceCount)
		s.AvgSinceInceptionPct = &avg
	}
	return s
}
