package parser

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/holdings-extractor/pkg/money"
)

// ParseDecimal parses a pt-BR amount ("102.084,44") and returns nil when the
// text is not a number.
func ParseDecimal(s string) *float64 {
	d, err := money.ParseLocale(s)
	if err != nil {
		return nil
	}
	v := d.InexactFloat64()
	return &v
}

// FormatDecimal renders v with "." thousands and "," decimal separators.
func FormatDecimal(v float64, places int) string {
	return money.FormatLocale(decimal.NewFromFloat(v), int32(places))
}

// ParseDate converts dd/mm/yy or dd/mm/yyyy into an ISO date. Impossible
// calendar dates such as 31/02/24 yield nil.
func ParseDate(s string) *string {
	s = strings.TrimSpace(s)
	layout := "02/01/2006"
	if len(s) == len("02/01/06") {
		layout = "02/01/06"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return nil
	}
	iso := t.Format(time.DateOnly)
	return &iso
}
