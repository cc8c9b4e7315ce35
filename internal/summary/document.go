package summary

import "strings"

// Section is one heading-delimited part of a summary document. A section is
// either a bullet list (Bullets non-nil) or a free-text block (Text), never
// both.
type Section struct {
	// ID is the canonical identifier, or "" if the heading is not part of the
	// known schema for the document's language.
	ID SectionID `json:"id,omitempty"`

	// Label is the heading text exactly as written, trimmed.
	Label string `json:"label"`

	// Level is the markdown heading level (1–6) the section was written with.
	Level int `json:"level"`

	// Text is the section body for paragraph sections. Empty for list sections.
	Text string `json:"text,omitempty"`

	// Bullets holds the ordered bullet contents for list sections.
	Bullets []string `json:"bullets,omitempty"`
}

// IsList reports whether the section body is a bullet list.
func (s Section) IsList() bool {
	return s.Bullets != nil
}

// Document is the structured consent summary extracted from generated
// markdown: an ordered sequence of sections. The zero value is an empty
// document. A nil *Document means "no summary yet", which is distinct from an
// empty one — the distinction drives turn routing.
type Document struct {
	Sections []Section `json:"sections"`
}

// Empty reports whether the document has no sections, meaning the parser found
// no headings. This is the signal that the model answered in plain prose (a
// greeting exchange) instead of producing the consent template.
func (d *Document) Empty() bool {
	return d == nil || len(d.Sections) == 0
}

// Get returns the section with the given canonical id.
func (d *Document) Get(id SectionID) (Section, bool) {
	if d == nil {
		return Section{}, false
	}
	for _, s := range d.Sections {
		if s.ID == id && id != "" {
			return s, true
		}
	}
	return Section{}, false
}

// GetLabel returns the section with the given heading label, for sections that
// fall outside the canonical schema.
func (d *Document) GetLabel(label string) (Section, bool) {
	if d == nil {
		return Section{}, false
	}
	for _, s := range d.Sections {
		if s.Label == label {
			return s, true
		}
	}
	return Section{}, false
}

// Text returns the paragraph body of the section with the given id, or "".
func (d *Document) Text(id SectionID) string {
	s, ok := d.Get(id)
	if !ok {
		return ""
	}
	return s.Text
}

// Bullets returns at most max bullet entries of the section with the given id.
// max <= 0 returns all of them.
func (d *Document) Bullets(id SectionID, max int) []string {
	s, ok := d.Get(id)
	if !ok || !s.IsList() {
		return nil
	}
	if max > 0 && len(s.Bullets) > max {
		return s.Bullets[:max]
	}
	return s.Bullets
}

// String renders the document back to markdown in its original section order.
// Re-parsing the output yields the same section set, so the rendering doubles
// as the assistant-turn text recorded in the conversation.
func (d *Document) String() string {
	if d.Empty() {
		return ""
	}
	var b strings.Builder
	for i, s := range d.Sections {
		if i > 0 {
			b.WriteString("\n")
		}
		level := s.Level
		if level < 1 || level > 6 {
			level = 2
		}
		b.WriteString(strings.Repeat("#", level))
		b.WriteString(" ")
		b.WriteString(s.Label)
		b.WriteString("\n")
		if s.IsList() {
			for _, item := range s.Bullets {
				b.WriteString("- ")
				b.WriteString(item)
				b.WriteString("\n")
			}
		} else if s.Text != "" {
			b.WriteString(s.Text)
			b.WriteString("\n")
		}
	}
	return b.String()
}
