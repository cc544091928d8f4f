package parser

import "strings"

// SectionTracker remembers the most recent section header seen.
type SectionTracker struct {
	current Section
}

// HeaderSection reports whether text is exactly one of the section headers.
func HeaderSection(text string) (Section, bool) {
	s, ok := sectionHeaders[strings.TrimSpace(text)]
	return s, ok
}

// Observe switches the current section when text is a header and reports
// whether it was one.
func (t *SectionTracker) Observe(text string) (Section, bool) {
	s, ok := HeaderSection(text)
	if ok {
		t.current = s
	}
	return s, ok
}

// Current returns the active section, SectionNone before the first header.
func (t *SectionTracker) Current() Section {
	return t.current
}

// Reset forgets the active section.
func (t *SectionTracker) Reset() {
	t.current = SectionNone
}
