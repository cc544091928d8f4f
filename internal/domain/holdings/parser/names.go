package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// ContinuationPolicy controls when the line after a data line is appended to
// the resolved name.
type ContinuationPolicy int

const (
	ContinueUnlessInline ContinuationPolicy = iota
	ContinueNever
	ContinueAlways
)

func (p ContinuationPolicy) String() string {
	switch p {
	case ContinueNever:
		return "never"
	case ContinueAlways:
		return "always"
	default:
		return "unless-inline"
	}
}

// ParseContinuationPolicy accepts "never", "unless-inline" or "always".
func ParseContinuationPolicy(s string) (ContinuationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "never":
		return ContinueNever, nil
	case "", "unless-inline", "unless_inline":
		return ContinueUnlessInline, nil
	case "always":
		return ContinueAlways, nil
	default:
		return ContinueUnlessInline, fmt.Errorf("unknown continuation policy %q", s)
	}
}

// NameSource says where a resolved name came from.
type NameSource string

const (
	NameNone         NameSource = ""
	NameInline       NameSource = "inline"
	NamePending      NameSource = "pending"
	NameContinuation NameSource = "continuation"
)

// Window is the data line being resolved and the two lines below it on the
// same page. Next and AfterNext are nil at the page edge.
type Window struct {
	Curr      Line
	Next      *Line
	AfterNext *Line
	Section   Section
}

// Resolution is the outcome of name resolution for one data line.
type Resolution struct {
	Name         *string
	Source       NameSource
	ConsumedNext bool
}

var (
	indexSuffixPattern    = regexp.MustCompile(`\s+(CDI|PRE|IPCA)[\s_\d\-]*$`)
	trailingNumberPattern = regexp.MustCompile(`\s+[\d.,]+$`)
	numericLinePattern    = regexp.MustCompile(`^[\d.,%\s\-]+$`)
)

var defaultClassifier = NewClassifier(nil)

// ResolveName resolves the name of w.Curr using the default noise markers.
func ResolveName(w Window, pending string, policy ContinuationPolicy) Resolution {
	return defaultClassifier.ResolveName(w, pending, policy)
}

// ResolveName picks the in-line name, then the pending name line, and finally
// lets the policy decide whether the next line continues the name.
func (c *Classifier) ResolveName(w Window, pending string, policy ContinuationPolicy) Resolution {
	var res Resolution

	name := inlineName(w.Curr.Text, w.Section)
	if name != "" {
		res.Source = NameInline
	} else if p := c.pendingName(pending); p != "" {
		name = p
		res.Source = NamePending
	}

	if policy == ContinueAlways || (policy == ContinueUnlessInline && res.Source != NameInline) {
		if cont, ok := c.continuation(w); ok {
			if name == "" {
				name = cont
				res.Source = NameContinuation
			} else {
				name = name + " " + cont
			}
			res.ConsumedNext = true
		}
	}

	if name != "" {
		res.Name = &name
	}
	return res
}

// inlineName is the text in front of the first date, or in front of the
// first amount for a date-less multimercados line.
func inlineName(text string, section Section) string {
	if loc := datePattern.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[:loc[0]])
	}
	if section == SectionMultimercados {
		if loc := decimalPattern.FindStringIndex(text); loc != nil {
			return strings.TrimSpace(text[:loc[0]])
		}
	}
	return ""
}

func (c *Classifier) pendingName(pending string) string {
	pending = strings.TrimSpace(pending)
	if pending == "" || c.IsNoise(pending) {
		return ""
	}
	return strings.TrimSpace(indexSuffixPattern.ReplaceAllString(pending, ""))
}

func (c *Classifier) continuation(w Window) (string, bool) {
	next := w.Next
	if next == nil || next.Page != w.Curr.Page {
		return "", false
	}
	text := strings.TrimSpace(next.Text)
	if _, ok := HeaderSection(text); ok {
		return "", false
	}
	if c.IsNoise(text) || looksLikeData(text, w.Section) || numericLinePattern.MatchString(text) {
		return "", false
	}
	if c.namesNextRow(w) {
		return "", false
	}
	text = strings.TrimSpace(trailingNumberPattern.ReplaceAllString(text, ""))
	text = strings.TrimSpace(indexSuffixPattern.ReplaceAllString(text, ""))
	if text == "" {
		return "", false
	}
	return text, true
}

// namesNextRow reports whether w.Next is the name line of the data row below
// it, which has no in-line name of its own.
func (c *Classifier) namesNextRow(w Window) bool {
	after := w.AfterNext
	if after == nil || after.Page != w.Curr.Page {
		return false
	}
	text := strings.TrimSpace(after.Text)
	if c.Classify(text, w.Section) != ClassData {
		return false
	}
	return inlineName(text, w.Section) == ""
}
