// Package session holds per-conversation state and the stores that keep it.
//
// A session is keyed by an opaque, caller-supplied id and is created lazily on
// first reference. State is mutated exclusively through delta merges: turns
// are appended, scalar fields are overwritten when present in the delta. A
// restart truncates the conversation but keeps the language.
package session

import (
	"github.com/evalden/concento/internal/summary"
	"github.com/evalden/concento/pkg/types"
)

// State is the complete memory of one conversation.
type State struct {
	// ID is the opaque session identifier supplied by the caller.
	ID string `json:"id"`

	// Language is the conversation language. Defaults to English on creation.
	Language types.Language `json:"language"`

	// Turns is the append-only conversation history.
	Turns []types.Turn `json:"turns,omitempty"`

	// Summary is the current consent summary document, or nil if none has
	// been produced yet. Absence is a routing signal: a session without a
	// summary is still in its first substantive turn.
	Summary *summary.Document `json:"summary,omitempty"`

	// Stage is the latest progress tag produced by a stage handler.
	Stage types.Stage `json:"stage,omitempty"`

	// PendingText is the most recent transcription result, waiting to be
	// re-submitted by the caller as a regular text turn.
	PendingText string `json:"pending_text,omitempty"`
}

// Clone returns a deep copy of s so callers can hand out snapshots without
// exposing store internals to mutation.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Turns = append([]types.Turn(nil), s.Turns...)
	if s.Summary != nil {
		doc := &summary.Document{Sections: append([]summary.Section(nil), s.Summary.Sections...)}
		out.Summary = doc
	}
	return &out
}

// Delta is a partial state update produced by a stage handler. Zero-valued
// fields are left untouched by the merge; Turns are appended, never replaced.
type Delta struct {
	// Turns to append to the conversation history.
	Turns []types.Turn

	// Language overwrites the session language when non-empty.
	Language types.Language

	// Stage overwrites the session stage when non-empty.
	Stage types.Stage

	// Summary overwrites the session summary when non-nil.
	Summary *summary.Document

	// PendingText overwrites the pending transcription text when non-nil.
	// A pointer distinguishes "set to empty" from "leave unchanged".
	PendingText *string
}

// apply merges d into st in place.
func (d Delta) apply(st *State) {
	st.Turns = append(st.Turns, d.Turns...)
	if d.Language != "" {
		st.Language = d.Language
	}
	if d.Stage != "" {
		st.Stage = d.Stage
	}
	if d.Summary != nil {
		st.Summary = d.Summary
	}
	if d.PendingText != nil {
		st.PendingText = *d.PendingText
	}
}

// newState returns a freshly initialised state for id: empty turns, no
// summary, stage unset, language defaulted to English.
func newState(id string) *State {
	return &State{ID: id, Language: types.LanguageEnglish}
}
