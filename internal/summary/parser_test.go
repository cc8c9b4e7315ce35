package summary_test

import (
	"reflect"
	"testing"

	"github.com/evalden/concento/internal/summary"
	"github.com/evalden/concento/pkg/types"
)

func TestParse_TitleAndBullets(t *testing.T) {
	t.Parallel()
	md := "# Title\nProcedure X\n## Benefits\n- A\n- B\n"

	doc := summary.Parse(md, types.LanguageEnglish)
	if doc.Empty() {
		t.Fatal("expected non-empty document")
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(doc.Sections))
	}

	title, ok := doc.Get(summary.SectionTitle)
	if !ok {
		t.Fatal("Title section not resolved")
	}
	if title.Text != "Procedure X" {
		t.Errorf("Title text = %q, want %q", title.Text, "Procedure X")
	}
	if title.Level != 1 {
		t.Errorf("Title level = %d, want 1", title.Level)
	}

	benefits, ok := doc.Get(summary.SectionBenefits)
	if !ok {
		t.Fatal("Benefits section not resolved")
	}
	if !benefits.IsList() {
		t.Fatal("Benefits should be a bullet list")
	}
	if want := []string{"A", "B"}; !reflect.DeepEqual(benefits.Bullets, want) {
		t.Errorf("Benefits = %v, want %v", benefits.Bullets, want)
	}
}

func TestParse_NoHeadings(t *testing.T) {
	t.Parallel()
	md := "Hello! I'm your assistant.\nWhich procedure can I help you with?"

	doc := summary.Parse(md, types.LanguageEnglish)
	if !doc.Empty() {
		t.Fatalf("expected empty document, got %d sections", len(doc.Sections))
	}
}

func TestParse_PreambleDiscarded(t *testing.T) {
	t.Parallel()
	md := "this text has no section\n## Overview\nA short overview.\n"

	doc := summary.Parse(md, types.LanguageEnglish)
	if len(doc.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(doc.Sections))
	}
	if doc.Sections[0].Label != "Overview" {
		t.Errorf("label = %q, want Overview", doc.Sections[0].Label)
	}
	if doc.Sections[0].Text != "A short overview." {
		t.Errorf("text = %q", doc.Sections[0].Text)
	}
}

func TestParse_NonBulletLinesInListSectionDropped(t *testing.T) {
	t.Parallel()
	md := "## Common risks\nintro line\n- bleeding\nstray note\n- infection\n"

	doc := summary.Parse(md, types.LanguageEnglish)
	s, ok := doc.Get(summary.SectionCommonRisks)
	if !ok {
		t.Fatal("Common risks not resolved")
	}
	if want := []string{"bleeding", "infection"}; !reflect.DeepEqual(s.Bullets, want) {
		t.Errorf("bullets = %v, want %v", s.Bullets, want)
	}
}

func TestParse_EmptySectionIsEmptyText(t *testing.T) {
	t.Parallel()
	md := "## Preparation\n## Alternatives\n- rest\n"

	doc := summary.Parse(md, types.LanguageEnglish)
	prep, ok := doc.Get(summary.SectionPreparation)
	if !ok {
		t.Fatal("Preparation not resolved")
	}
	if prep.IsList() || prep.Text != "" {
		t.Errorf("expected empty paragraph section, got %+v", prep)
	}
}

func TestParse_UnknownHeadingKeepsLabel(t *testing.T) {
	t.Parallel()
	md := "## Aftercare\n- keep the wound dry\n"

	doc := summary.Parse(md, types.LanguageEnglish)
	s, ok := doc.GetLabel("Aftercare")
	if !ok {
		t.Fatal("unknown heading should stay addressable by label")
	}
	if s.ID != "" {
		t.Errorf("unknown heading resolved to id %q, want empty", s.ID)
	}
}

func TestParse_SwedishLabels(t *testing.T) {
	t.Parallel()
	md := "# Titel\nLaparoskopi\n## Vanliga risker\n- blödning\n"

	doc := summary.Parse(md, types.LanguageSvenska)
	if got := doc.Text(summary.SectionTitle); got != "Laparoskopi" {
		t.Errorf("Titel = %q", got)
	}
	if got := doc.Bullets(summary.SectionCommonRisks, 0); len(got) != 1 || got[0] != "blödning" {
		t.Errorf("Vanliga risker = %v", got)
	}
}

// Re-parsing a document's own rendering must yield the same section set.
func TestParse_RoundTrip(t *testing.T) {
	t.Parallel()
	md := "# Title\nAppendectomy\n## Overview\nRemoval of the appendix.\n" +
		"## Benefits\n- treats infection\n- prevents rupture\n## Preparation\n"

	first := summary.Parse(md, types.LanguageEnglish)
	second := summary.Parse(first.String(), types.LanguageEnglish)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("round trip mismatch:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestParse_MultilineParagraph(t *testing.T) {
	t.Parallel()
	md := "## Overview\nfirst line\nsecond line\n"

	doc := summary.Parse(md, types.LanguageEnglish)
	if got := doc.Text(summary.SectionOverview); got != "first line\nsecond line" {
		t.Errorf("overview = %q", got)
	}
}

func TestBullets_Cap(t *testing.T) {
	t.Parallel()
	md := "## Rare risks\n- a\n- b\n- c\n- d\n"

	doc := summary.Parse(md, types.LanguageEnglish)
	if got := doc.Bullets(summary.SectionRareRisks, 3); len(got) != 3 {
		t.Errorf("capped bullets = %v, want 3 entries", got)
	}
}
