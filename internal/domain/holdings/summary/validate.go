package summary

import (
	"fmt"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
	"github.com/FACorreiaa/holdings-extractor/pkg/money"
)

// DefaultTolerance is the accepted gap between the expected and extracted
// gross total.
var DefaultTolerance = money.New(100000, money.BRL)

// Expectation carries figures known from the statement itself. Unset fields
// skip the matching check.
type Expectation struct {
	Count         *int
	SectionCounts map[parser.Section]int
	GrossTotal    *money.Money
	Tolerance     *money.Money
}

// Check is one validation outcome.
type Check struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// Report lists every check that ran.
type Report struct {
	Checks []Check `json:"checks"`
}

// Passed reports whether every check passed.
func (r Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failed returns the checks that did not pass.
func (r Report) Failed() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

func (r *Report) add(name string, passed bool, format string, args ...any) {
	r.Checks = append(r.Checks, Check{Name: name, Passed: passed, Message: fmt.Sprintf(format, args...)})
}

// Validate runs sanity checks on records and compares them with exp. It
// never modifies or rejects records.
func Validate(records []parser.Record, exp Expectation) Report {
	var r Report
	s := Summarize(records)

	r.add("records_present", len(records) > 0, "%d records extracted", len(records))

	withDates := 0
	for _, rec := range records {
		if rec.Dates.Emissao != nil || rec.Dates.Aplicacao != nil || rec.Dates.Vencimento != nil {
			withDates++
		}
	}
	r.add("dates_present", withDates > 0, "%d records carry at least one date", withDates)

	withGross := len(records) - s.MissingGrossValue
	r.add("gross_values_present", withGross > 0, "%d records carry a gross value", withGross)

	identified := 0
	for sec := range s.Sections {
		if sec != parser.SectionNone {
			identified++
		}
	}
	r.add("sections_identified", identified > 0, "%d sections identified", identified)

	if exp.Count != nil {
		r.add("total_count", len(records) == *exp.Count,
			"%d records (expected %d)", len(records), *exp.Count)
	}

	for _, sec := range parser.Sections {
		want, ok := exp.SectionCounts[sec]
		if !ok {
			continue
		}
		got := s.Section(sec).Count
		r.add("count_"+sec.Key(), got == want, "%s: %d records (expected %d)", sec, got, want)
	}

	if exp.GrossTotal != nil {
		tolerance := exp.Tolerance
		if tolerance == nil {
			tolerance = DefaultTolerance
		}
		diff, err := s.Total.Gross.Subtract(exp.GrossTotal)
		if err != nil {
			r.add("gross_total", false, "cannot compare totals: %v", err)
		} else {
			r.add("gross_total", !tolerance.LessThan(diff.Abs()),
				"gross total R$ %s (expected R$ %s, tolerance R$ %s)",
				s.Total.Gross.Locale(), exp.GrossTotal.Locale(), tolerance.Locale())
		}
	}

	return r
}
