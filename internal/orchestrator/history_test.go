package orchestrator_test

import (
	"testing"

	"github.com/evalden/concento/internal/orchestrator"
	"github.com/evalden/concento/pkg/types"
)

func TestFormatHistory(t *testing.T) {
	t.Parallel()

	turns := []types.Turn{
		types.Human("a"),
		types.Assistant("b"),
		types.Human("c"),
		types.Assistant("d"),
	}

	tests := []struct {
		name     string
		turns    []types.Turn
		maxPairs int
		want     string
	}{
		{"empty history", nil, 3, ""},
		{"zero pairs", turns, 0, ""},
		{"window keeps the most recent pair", turns, 1, "Q: c\nA: d"},
		{"window larger than history", turns, 3, "Q: a\nA: b\nQ: c\nA: d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := orchestrator.FormatHistory(tt.turns, tt.maxPairs); got != tt.want {
				t.Errorf("FormatHistory() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatHistory_SkipsUnknownRoles(t *testing.T) {
	t.Parallel()

	turns := []types.Turn{
		{Role: "system", Text: "ignored"},
		types.Human("q"),
		types.Assistant("a"),
	}
	want := "Q: q\nA: a"
	if got := orchestrator.FormatHistory(turns, 3); got != want {
		t.Errorf("FormatHistory() = %q, want %q", got, want)
	}
}
