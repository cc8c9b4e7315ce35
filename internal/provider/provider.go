// Package provider defines the facade over the three external collaborators
// the orchestrator depends on: the generative-language service, the
// speech-to-text service, and the text-to-speech service.
//
// These four operations are the entire boundary the core depends on. Retry,
// backoff, and availability policy belong to the implementations (or the
// services behind them), never to the orchestrator: a failed call surfaces as
// a wrapped sentinel error and no session state is committed.
//
// Implementations must be safe for concurrent use.
package provider

import (
	"context"
	"errors"

	"github.com/evalden/concento/internal/summary"
	"github.com/evalden/concento/pkg/types"
)

// ErrTranscription marks a speech-to-text collaborator failure: the service
// was unreachable or the recording was unreadable.
var ErrTranscription = errors.New("transcription failed")

// ErrSynthesis marks a text-to-speech collaborator failure.
var ErrSynthesis = errors.New("speech synthesis failed")

// LanguageModel is the generative-language collaborator.
type LanguageModel interface {
	// Summarize asks the model for a consent summary of the procedure named
	// or described in query. The result is raw markdown; it may be plain
	// prose with no headings, which signals that query was not a procedure.
	Summarize(ctx context.Context, query string, lang types.Language) (string, error)

	// Answer responds to a follow-up question. doc is the current summary
	// document and may be nil; history is a short pre-rendered conversation
	// recap and may be empty.
	Answer(ctx context.Context, question string, lang types.Language, doc *summary.Document, history string) (string, error)
}

// Transcriber is the speech-to-text collaborator. The audio artifact's
// lifecycle (creation and deletion) is owned by the caller.
type Transcriber interface {
	// Transcribe reads the recording at audioPath and returns the recognised
	// text. Failures wrap [ErrTranscription].
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Synthesizer is the text-to-speech collaborator.
type Synthesizer interface {
	// Synthesize renders text as speech in the given language and returns the
	// audio payload as WAV bytes. Failures wrap [ErrSynthesis].
	Synthesize(ctx context.Context, text string, lang types.Language) ([]byte, error)
}
