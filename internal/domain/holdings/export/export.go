// Package export serializes extracted positions as hierarchical JSON, flat
// CSV and XLSX.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
)

// Format is an output format name.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// FileName is the artifact name used for the format.
func (f Format) FileName() string {
	return "positions." + string(f)
}

// Write renders result in format f.
func Write(w io.Writer, f Format, meta Metadata, result parser.Result) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, NewDocument(meta, result))
	case FormatCSV:
		return WriteCSV(w, result.Records)
	case FormatXLSX:
		return WriteXLSX(w, result.Records)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// ParseFormats parses a comma separated list such as "json,csv".
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool)
	for _, part := range strings.Split(s, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))
		if f == "" {
			continue
		}
		switch f {
		case FormatJSON, FormatCSV, FormatXLSX:
		default:
			return nil, fmt.Errorf("unknown export format %q", part)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// maxPlaces bounds the decimals kept for quantities and unit prices.
const maxPlaces = 8

// formatNumber renders v in pt-BR notation with at least two decimals; nil
// renders as an empty string.
func formatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	places := 2
	if exp := -int(decimal.NewFromFloat(*v).Exponent()); exp > places {
		places = min(exp, maxPlaces)
	}
	return parser.FormatDecimal(*v, places)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
