package orchestrator_test

import (
	"testing"

	"github.com/evalden/concento/internal/orchestrator"
	"github.com/evalden/concento/internal/session"
	"github.com/evalden/concento/internal/summary"
	"github.com/evalden/concento/pkg/types"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	withSummary := &session.State{
		ID:       "s",
		Language: types.LanguageEnglish,
		Stage:    types.StageSummary,
		Summary:  summary.Parse("# Title\nAppendectomy\n", types.LanguageEnglish),
	}
	fresh := &session.State{ID: "s", Language: types.LanguageEnglish}

	tests := []struct {
		name string
		req  orchestrator.Request
		st   *session.State
		want orchestrator.Route
	}{
		{
			name: "audio-out always routes to synthesis",
			req:  orchestrator.Request{Kind: orchestrator.TurnAudioOut, Text: "read this"},
			st:   withSummary,
			want: orchestrator.RouteSynthesize,
		},
		{
			name: "audio-out beats pending input",
			req:  orchestrator.Request{Kind: orchestrator.TurnAudioOut, Text: "read this", Stage: types.StageInputPending},
			st:   fresh,
			want: orchestrator.RouteSynthesize,
		},
		{
			name: "pending input without text routes to transcription",
			req:  orchestrator.Request{Kind: orchestrator.TurnAudioIn, Stage: types.StageInputPending, AudioPath: "/tmp/a.wav"},
			st:   fresh,
			want: orchestrator.RouteTranscribe,
		},
		{
			name: "pending input with text skips transcription",
			req:  orchestrator.Request{Kind: orchestrator.TurnText, Stage: types.StageInputPending, Text: "appendectomy"},
			st:   fresh,
			want: orchestrator.RouteBuildSummary,
		},
		{
			name: "stored pending stage routes to transcription",
			req:  orchestrator.Request{Kind: orchestrator.TurnAudioIn, AudioPath: "/tmp/a.wav"},
			st:   &session.State{ID: "s", Stage: types.StageInputPending},
			want: orchestrator.RouteTranscribe,
		},
		{
			name: "no summary routes to summary building",
			req:  orchestrator.Request{Kind: orchestrator.TurnText, Text: "appendectomy"},
			st:   fresh,
			want: orchestrator.RouteBuildSummary,
		},
		{
			name: "existing summary routes to question answering",
			req:  orchestrator.Request{Kind: orchestrator.TurnText, Text: "how long is recovery?"},
			st:   withSummary,
			want: orchestrator.RouteAnswerQA,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := orchestrator.Decide(tt.req, tt.st); got != tt.want {
				t.Errorf("Decide() = %q, want %q", got, tt.want)
			}
		})
	}
}
