// Package mock provides scriptable collaborator fakes for tests.
//
// Each mock exposes function fields; unset fields return canned defaults so a
// zero-valued mock is usable. Calls are counted for interaction assertions.
package mock

import (
	"context"
	"sync/atomic"

	"github.com/evalden/concento/internal/summary"
	"github.com/evalden/concento/pkg/types"
)

// LanguageModel is a scriptable provider.LanguageModel.
type LanguageModel struct {
	SummarizeFunc func(ctx context.Context, query string, lang types.Language) (string, error)
	AnswerFunc    func(ctx context.Context, question string, lang types.Language, doc *summary.Document, history string) (string, error)

	SummarizeCalls atomic.Int64
	AnswerCalls    atomic.Int64
}

// Summarize implements provider.LanguageModel.
func (m *LanguageModel) Summarize(ctx context.Context, query string, lang types.Language) (string, error) {
	m.SummarizeCalls.Add(1)
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, query, lang)
	}
	return "# Title\n" + query + "\n## Overview\nmock overview\n", nil
}

// Answer implements provider.LanguageModel.
func (m *LanguageModel) Answer(ctx context.Context, question string, lang types.Language, doc *summary.Document, history string) (string, error) {
	m.AnswerCalls.Add(1)
	if m.AnswerFunc != nil {
		return m.AnswerFunc(ctx, question, lang, doc, history)
	}
	return "mock answer", nil
}

// Transcriber is a scriptable provider.Transcriber.
type Transcriber struct {
	TranscribeFunc func(ctx context.Context, audioPath string) (string, error)

	TranscribeCalls atomic.Int64
}

// Transcribe implements provider.Transcriber.
func (m *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	m.TranscribeCalls.Add(1)
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audioPath)
	}
	return "mock transcription", nil
}

// Synthesizer is a scriptable provider.Synthesizer.
type Synthesizer struct {
	SynthesizeFunc func(ctx context.Context, text string, lang types.Language) ([]byte, error)

	SynthesizeCalls atomic.Int64
}

// Synthesize implements provider.Synthesizer.
func (m *Synthesizer) Synthesize(ctx context.Context, text string, lang types.Language) ([]byte, error) {
	m.SynthesizeCalls.Add(1)
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text, lang)
	}
	return []byte("RIFFmockwav"), nil
}
