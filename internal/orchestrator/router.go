package orchestrator

import (
	"github.com/evalden/concento/internal/session"
	"github.com/evalden/concento/pkg/types"
)

// TurnKind flags how the incoming turn should be interpreted.
type TurnKind string

const (
	// TurnText is a regular typed (or already-transcribed) text turn.
	TurnText TurnKind = "text"

	// TurnAudioIn references an uploaded recording that still needs
	// transcription before any generative step can run.
	TurnAudioIn TurnKind = "audio"

	// TurnAudioOut requests speech synthesis of existing content. It is a
	// terminal side-request and is never reinterpreted as new input.
	TurnAudioOut TurnKind = "audio-out"
)

// Request is one inbound turn descriptor. It is consumed once by the router
// and never persisted.
type Request struct {
	// SessionID is the opaque, caller-supplied conversation key.
	SessionID string

	// Text is the turn content. May be empty for audio turns.
	Text string

	// AudioPath references the uploaded recording for TurnAudioIn requests.
	// The artifact's lifecycle is owned by the caller.
	AudioPath string

	// Kind flags the turn type.
	Kind TurnKind

	// Language is the requested conversation language. When set it is merged
	// into the session; when empty the session's current language applies.
	Language types.Language

	// Stage is an optional stage hint carried in-band by the transport (the
	// transcription endpoint marks its requests input-pending). When empty
	// the session's stored stage applies.
	Stage types.Stage
}

// Route names the stage handler selected for one turn.
type Route string

const (
	RouteSynthesize   Route = "synthesize"
	RouteTranscribe   Route = "transcribe"
	RouteBuildSummary Route = "build-summary"
	RouteAnswerQA     Route = "answer-qa"
)

// rule is one guarded transition in the routing chain.
type rule struct {
	route Route
	match func(req Request, st *session.State) bool
}

// rules is the ordered routing policy; the first matching rule wins. The
// final rule is a catch-all, so every request resolves to exactly one route:
//
//  1. Synthesis side-requests are independent of conversational progress.
//  2. Audio must resolve to text before any generative step runs.
//  3. Summary absence is the sole signal for "first substantive turn".
//  4. Everything else is a follow-up question.
var rules = []rule{
	{RouteSynthesize, func(req Request, _ *session.State) bool {
		return req.Kind == TurnAudioOut
	}},
	{RouteTranscribe, func(req Request, st *session.State) bool {
		return effectiveStage(req, st) == types.StageInputPending && req.Text == ""
	}},
	{RouteBuildSummary, func(_ Request, st *session.State) bool {
		return st.Summary == nil
	}},
	{RouteAnswerQA, func(Request, *session.State) bool {
		return true
	}},
}

// Decide selects the stage handler for req given a session snapshot. It is a
// pure function: it inspects state but never mutates it.
func Decide(req Request, st *session.State) Route {
	for _, r := range rules {
		if r.match(req, st) {
			return r.route
		}
	}
	// Unreachable: the last rule always matches.
	return RouteAnswerQA
}

// effectiveStage resolves the stage hint against the stored stage.
func effectiveStage(req Request, st *session.State) types.Stage {
	if req.Stage != "" {
		return req.Stage
	}
	return st.Stage
}

// effectiveLanguage resolves the requested language against the stored one.
func effectiveLanguage(req Request, st *session.State) types.Language {
	if req.Language.IsValid() {
		return req.Language
	}
	if st.Language.IsValid() {
		return st.Language
	}
	return types.LanguageEnglish
}
