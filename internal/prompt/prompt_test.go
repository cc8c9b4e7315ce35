package prompt_test

import (
	"strings"
	"testing"

	"github.com/evalden/concento/internal/prompt"
	"github.com/evalden/concento/internal/summary"
	"github.com/evalden/concento/pkg/types"
)

func TestSummarySystem_ContainsTemplateHeadings(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		lang types.Language
	}{
		{types.LanguageEnglish},
		{types.LanguageSvenska},
	} {
		sys := prompt.SummarySystem(tc.lang)
		for _, id := range summary.Order {
			label := summary.Label(tc.lang, id)
			if !strings.Contains(sys, label) {
				t.Errorf("%s summary prompt missing heading %q", tc.lang, label)
			}
		}
	}
}

func TestQAUser_IncludesContextHistoryAndQuestion(t *testing.T) {
	t.Parallel()
	doc := summary.Parse(
		"# Title\nAppendectomy\n## Overview\nRemoval of the appendix.\n## Common risks\n- bleeding\n- infection\n",
		types.LanguageEnglish,
	)

	got := prompt.QAUser("Will it hurt?", doc, "Q: appendectomy\nA: summary", types.LanguageEnglish)
	for _, want := range []string{"Appendectomy", "bleeding, infection", "Q: appendectomy", "Will it hurt?"} {
		if !strings.Contains(got, want) {
			t.Errorf("QA prompt missing %q:\n%s", want, got)
		}
	}
}

func TestQAUser_EmptyHistoryRendersNone(t *testing.T) {
	t.Parallel()
	got := prompt.QAUser("question", nil, "", types.LanguageEnglish)
	if !strings.Contains(got, "(none)") {
		t.Errorf("empty recap should render as (none):\n%s", got)
	}
}

func TestQAUser_NilDocumentIsSafe(t *testing.T) {
	t.Parallel()
	got := prompt.QAUser("fråga", nil, "", types.LanguageSvenska)
	if !strings.Contains(got, "Titel: ") {
		t.Errorf("nil document should yield empty context fields:\n%s", got)
	}
}

func TestQAUser_RiskCaps(t *testing.T) {
	t.Parallel()
	doc := summary.Parse(
		"## Common risks\n- r1\n- r2\n- r3\n- r4\n- r5\n- r6\n- r7\n",
		types.LanguageEnglish,
	)
	got := prompt.QAUser("q", doc, "", types.LanguageEnglish)
	if strings.Contains(got, "r6") {
		t.Error("common risks must be capped to the top five")
	}
}

func TestSpeechInstructions_PerLanguage(t *testing.T) {
	t.Parallel()
	en := prompt.SpeechInstructions(types.LanguageEnglish)
	sv := prompt.SpeechInstructions(types.LanguageSvenska)
	if en == sv {
		t.Error("speech instructions should differ per language")
	}
	if !strings.Contains(sv, "svenska") && !strings.Contains(sv, "patient") {
		t.Errorf("unexpected Swedish instructions: %s", sv[:40])
	}
}
