package parser

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// LineClass is the role a line plays in the table.
type LineClass int

const (
	ClassNoise LineClass = iota
	ClassHeader
	ClassData
	ClassNameOnly
	ClassDropped
)

func (c LineClass) String() string {
	switch c {
	case ClassHeader:
		return "header"
	case ClassData:
		return "data"
	case ClassNameOnly:
		return "name_only"
	case ClassDropped:
		return "dropped"
	default:
		return "noise"
	}
}

// DefaultNoiseMarkers are substrings that mark totals rows, page furniture and
// the alternatives banner. A marker starting with "^" only matches at the
// start of the line.
var DefaultNoiseMarkers = []string{
	"^Total",
	"Data de",
	"RENDA FIXA",
	"Página",
	"ALTERNATIVOS",
}

// Classifier assigns a LineClass to a line given the active section. The
// underlying matcher keeps per-match state, so a Classifier must not be
// shared between goroutines.
type Classifier struct {
	markers  *ahocorasick.Matcher
	prefixes []string
}

// NewClassifier builds a classifier for the given noise markers. An empty
// slice falls back to DefaultNoiseMarkers.
func NewClassifier(markers []string) *Classifier {
	if len(markers) == 0 {
		markers = DefaultNoiseMarkers
	}

	c := &Classifier{}
	var anywhere []string
	for _, m := range markers {
		if prefix, ok := strings.CutPrefix(m, "^"); ok {
			if prefix != "" {
				c.prefixes = append(c.prefixes, prefix)
			}
			continue
		}
		anywhere = append(anywhere, m)
	}
	if len(anywhere) > 0 {
		c.markers = ahocorasick.NewStringMatcher(anywhere)
	}
	return c
}

// IsNoise reports whether text is empty or carries a noise marker.
func (c *Classifier) IsNoise(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return true
	}
	for _, p := range c.prefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return c.markers != nil && len(c.markers.Match([]byte(text))) > 0
}

// Classify applies, in order: header, noise, data, name-only, and falls back
// to noise. Data-looking lines seen before any header are ClassDropped.
func (c *Classifier) Classify(text string, section Section) LineClass {
	text = strings.TrimSpace(text)
	if _, ok := HeaderSection(text); ok {
		return ClassHeader
	}
	if c.IsNoise(text) {
		return ClassNoise
	}
	if looksLikeData(text, section) {
		if section == SectionNone {
			return ClassDropped
		}
		return ClassData
	}
	if section != SectionNone {
		return ClassNameOnly
	}
	return ClassNoise
}

// looksLikeData is true for lines carrying a date, or, inside the
// multimercados table, a decimal amount.
func looksLikeData(text string, section Section) bool {
	if datePattern.MatchString(text) {
		return true
	}
	return section == SectionMultimercados && decimalPattern.MatchString(text)
}
