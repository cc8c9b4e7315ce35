package summary

import (
	"regexp"
	"strings"

	"github.com/evalden/concento/pkg/types"
)

var (
	headingRe = regexp.MustCompile(`^(#{1,6})\s*(.+?)\s*$`)
	bulletRe  = regexp.MustCompile(`^\s*[-*]\s+(.*\S)\s*$`)
)

// Parse scans markdown line by line and extracts a [Document].
//
// A heading line (one to six '#' markers followed by a title) starts a new
// section and flushes the previous one. Non-heading lines accumulate into the
// current section's buffer. On flush the buffer is trimmed; if any bullet
// lines ('-' or '*' followed by content) are present the section becomes a
// bullet list and non-bullet lines are dropped, otherwise the trimmed block is
// kept as a single text body. Text before the first heading belongs to no
// section and is discarded.
//
// Heading labels are kept exactly as written (trimmed). lang selects the label
// table used to resolve canonical section ids; unknown headings get an empty
// id but remain in the document.
func Parse(markdown string, lang types.Language) *Document {
	doc := &Document{}

	var (
		current *Section
		buf     []string
	)

	flush := func() {
		if current == nil {
			buf = nil
			return
		}
		raw := strings.TrimSpace(strings.Join(buf, "\n"))
		if raw != "" {
			var bullets []string
			for _, line := range strings.Split(raw, "\n") {
				if m := bulletRe.FindStringSubmatch(line); m != nil {
					bullets = append(bullets, m[1])
				}
			}
			if bullets != nil {
				current.Bullets = bullets
			} else {
				current.Text = raw
			}
		}
		doc.Sections = append(doc.Sections, *current)
		current = nil
		buf = nil
	}

	for _, line := range strings.Split(markdown, "\n") {
		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			buf = append(buf, line)
			continue
		}
		flush()
		label := strings.TrimSpace(m[2])
		id, _ := Resolve(lang, label)
		current = &Section{ID: id, Label: label, Level: len(m[1])}
	}
	flush()

	return doc
}
