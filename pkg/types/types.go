// Package types defines the shared types used across all Concento packages.
//
// These types form the lingua franca between the session store, the summary
// extractor, the collaborator facade, and the orchestrator. They are
// intentionally minimal — each package defines its own domain types, but
// cross-cutting data structures live here to avoid circular imports.
package types

// Language selects the conversation language for a session. The set is fixed;
// there is no cross-language merging — a session speaks one language at a time.
type Language string

const (
	// LanguageEnglish produces English summaries, answers, and speech.
	LanguageEnglish Language = "English"

	// LanguageSvenska produces Swedish summaries, answers, and speech.
	LanguageSvenska Language = "Svenska"
)

// IsValid reports whether l is a recognised language.
func (l Language) IsValid() bool {
	return l == LanguageEnglish || l == LanguageSvenska
}

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleHuman marks a turn authored by the patient.
	RoleHuman Role = "human"

	// RoleAssistant marks a turn authored by the assistant.
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in a conversation. Turns are append-only: once merged
// into a session they are never edited or removed, except by a full restart.
type Turn struct {
	// Role is the author of the turn.
	Role Role `json:"role"`

	// Text is the utterance content. For assistant turns produced by the
	// summary stage this is the rendered markdown of the summary document.
	Text string `json:"text"`
}

// Human returns a patient turn with the given text.
func Human(text string) Turn {
	return Turn{Role: RoleHuman, Text: text}
}

// Assistant returns an assistant turn with the given text.
func Assistant(text string) Turn {
	return Turn{Role: RoleAssistant, Text: text}
}

// Stage tags how far a session has progressed. It drives both routing and UI
// rendering. The zero value means the session has not produced a stage yet.
type Stage string

const (
	// StageWelcome is set when the first substantive turn turned out to be a
	// greeting rather than a procedure description — no summary was produced.
	StageWelcome Stage = "welcome"

	// StageInputPending marks a request whose text still has to be resolved
	// from an uploaded audio recording.
	StageInputPending Stage = "input-pending"

	// StageInputResolved is set once transcription has turned the recording
	// into text the caller can re-submit as a normal text turn.
	StageInputResolved Stage = "input-resolved"

	// StageSummary is set when a consent summary document has been extracted.
	StageSummary Stage = "summary"

	// StageQA is set while the patient is asking follow-up questions about an
	// existing summary.
	StageQA Stage = "qa"
)

// IsValid reports whether s is a recognised stage tag.
func (s Stage) IsValid() bool {
	switch s {
	case StageWelcome, StageInputPending, StageInputResolved, StageSummary, StageQA:
		return true
	}
	return false
}
