// Package orchestrator routes inbound conversation turns to stage handlers
// and applies their state deltas to the session store.
//
// A turn flows through exactly one handler: transcription, summary building,
// question answering, or speech synthesis. Handlers validate their inputs
// against a read-only session snapshot before calling any collaborator, so a
// failed turn never leaves partial state behind. Turns on the same session
// are serialised by a per-session lock; distinct sessions proceed in
// parallel.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/evalden/concento/internal/observe"
	"github.com/evalden/concento/internal/provider"
	"github.com/evalden/concento/internal/session"
	"github.com/evalden/concento/internal/summary"
	"github.com/evalden/concento/pkg/types"
)

// ErrMissingInput is returned when a turn lacks the input its selected stage
// handler requires: text for synthesis, summary building, and question
// answering, an audio reference for transcription.
var ErrMissingInput = errors.New("missing input for requested operation")

// Result is the outcome of one successfully handled turn.
type Result struct {
	// Route is the stage handler that produced this result.
	Route Route

	// Stage is the session's progress tag after the turn.
	Stage types.Stage

	// Turns is the full conversation history after the turn.
	Turns []types.Turn

	// Summary is the session's structured summary, or nil if none exists.
	Summary *summary.Document

	// Text is the handler's primary text output: the assistant reply for
	// generative routes, the recognised text for transcription. Empty for
	// synthesis.
	Text string

	// Audio is the synthesised waveform. Nil for every route except
	// synthesis.
	Audio []byte
}

// Orchestrator wires the router, the stage handlers, and the session store.
type Orchestrator struct {
	lm    provider.LanguageModel
	stt   provider.Transcriber
	tts   provider.Synthesizer
	store session.Store

	historyPairs int
	logger       *slog.Logger
	metrics      *observe.Metrics

	locks keyedLocks
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithHistoryPairs bounds the Q&A conversation recap to n question/answer
// pairs. Values below 1 keep the default.
func WithHistoryPairs(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.historyPairs = n
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics sink. Nil disables turn metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an Orchestrator. All four collaborators are required.
func New(lm provider.LanguageModel, stt provider.Transcriber, tts provider.Synthesizer, store session.Store, opts ...Option) (*Orchestrator, error) {
	if lm == nil {
		return nil, errors.New("orchestrator: language model must not be nil")
	}
	if stt == nil {
		return nil, errors.New("orchestrator: transcriber must not be nil")
	}
	if tts == nil {
		return nil, errors.New("orchestrator: synthesizer must not be nil")
	}
	if store == nil {
		return nil, errors.New("orchestrator: session store must not be nil")
	}
	o := &Orchestrator{
		lm:           lm,
		stt:          stt,
		tts:          tts,
		store:        store,
		historyPairs: defaultHistoryPairs,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// HandleTurn processes one inbound turn end to end: snapshot the session,
// pick a route, run the stage handler, merge its delta, and report the
// resulting state. On error the session is left exactly as it was.
func (o *Orchestrator) HandleTurn(ctx context.Context, req Request) (*Result, error) {
	if req.SessionID == "" {
		return nil, fmt.Errorf("orchestrator: %w: session id", ErrMissingInput)
	}

	unlock := o.locks.lock(req.SessionID)
	defer unlock()

	st, err := o.store.Get(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load session %q: %w", req.SessionID, err)
	}

	route := Decide(req, st)
	start := time.Now()

	res, delta, err := o.dispatch(ctx, route, req, st)
	if err != nil {
		o.metrics.RecordTurn(ctx, string(route), "error", time.Since(start))
		o.logger.LogAttrs(ctx, slog.LevelWarn, "turn failed",
			slog.String("session", req.SessionID),
			slog.String("route", string(route)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	final := st
	if delta != nil {
		final, err = o.store.Merge(ctx, req.SessionID, *delta)
		if err != nil {
			o.metrics.RecordTurn(ctx, string(route), "error", time.Since(start))
			return nil, fmt.Errorf("orchestrator: merge session %q: %w", req.SessionID, err)
		}
	}

	res.Route = route
	res.Stage = final.Stage
	res.Turns = final.Turns
	res.Summary = final.Summary

	o.metrics.RecordTurn(ctx, string(route), "ok", time.Since(start))
	o.logger.LogAttrs(ctx, slog.LevelInfo, "turn handled",
		slog.String("session", req.SessionID),
		slog.String("route", string(route)),
		slog.String("stage", string(final.Stage)),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// Restart clears the session's conversation while keeping its language.
func (o *Orchestrator) Restart(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("orchestrator: %w: session id", ErrMissingInput)
	}
	unlock := o.locks.lock(sessionID)
	defer unlock()
	return o.store.Restart(ctx, sessionID)
}

// Session returns a snapshot of the session state, creating the session if it
// does not exist.
func (o *Orchestrator) Session(ctx context.Context, sessionID string) (*session.State, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("orchestrator: %w: session id", ErrMissingInput)
	}
	return o.store.Get(ctx, sessionID)
}

// dispatch runs the stage handler for route. Handlers return the partial
// result plus the state delta to merge; a nil delta means the turn leaves the
// session untouched.
func (o *Orchestrator) dispatch(ctx context.Context, route Route, req Request, st *session.State) (*Result, *session.Delta, error) {
	switch route {
	case RouteSynthesize:
		return o.handleSynthesize(ctx, req, st)
	case RouteTranscribe:
		return o.handleTranscribe(ctx, req, st)
	case RouteBuildSummary:
		return o.handleBuildSummary(ctx, req, st)
	default:
		return o.handleAnswerQA(ctx, req, st)
	}
}

// handleSynthesize turns text into speech. It is a side-request: the session
// is never modified, regardless of outcome.
func (o *Orchestrator) handleSynthesize(ctx context.Context, req Request, st *session.State) (*Result, *session.Delta, error) {
	if req.Text == "" {
		return nil, nil, fmt.Errorf("orchestrator: %w: text to synthesise", ErrMissingInput)
	}
	lang := effectiveLanguage(req, st)

	start := time.Now()
	audio, err := o.tts.Synthesize(ctx, req.Text, lang)
	o.recordProviderCall(ctx, "tts", start, err)
	if err != nil {
		return nil, nil, err
	}
	return &Result{Audio: audio}, nil, nil
}

// handleTranscribe resolves an uploaded recording to text. The recognised
// text is parked on the session as pending input for the caller to resubmit.
func (o *Orchestrator) handleTranscribe(ctx context.Context, req Request, st *session.State) (*Result, *session.Delta, error) {
	if req.AudioPath == "" {
		return nil, nil, fmt.Errorf("orchestrator: %w: audio reference", ErrMissingInput)
	}
	lang := effectiveLanguage(req, st)

	start := time.Now()
	text, err := o.stt.Transcribe(ctx, req.AudioPath)
	o.recordProviderCall(ctx, "stt", start, err)
	if err != nil {
		return nil, nil, err
	}

	delta := &session.Delta{
		Language:    lang,
		Stage:       types.StageInputResolved,
		PendingText: &text,
	}
	return &Result{Text: text}, delta, nil
}

// handleBuildSummary runs the first substantive turn: the patient's procedure
// description goes to the language model, and the reply is parsed into a
// structured summary. A reply with no recognisable sections is treated as a
// clarification exchange: the session stays in the welcome stage and no
// summary is stored.
func (o *Orchestrator) handleBuildSummary(ctx context.Context, req Request, st *session.State) (*Result, *session.Delta, error) {
	if req.Text == "" {
		return nil, nil, fmt.Errorf("orchestrator: %w: procedure description", ErrMissingInput)
	}
	lang := effectiveLanguage(req, st)

	start := time.Now()
	raw, err := o.lm.Summarize(ctx, req.Text, lang)
	o.recordProviderCall(ctx, "llm", start, err)
	if err != nil {
		return nil, nil, err
	}

	doc := summary.Parse(raw, lang)
	if doc.Empty() {
		delta := &session.Delta{
			Turns:    []types.Turn{types.Human(req.Text), types.Assistant(raw)},
			Language: lang,
			Stage:    types.StageWelcome,
		}
		return &Result{Text: raw}, delta, nil
	}

	rendered := doc.String()
	delta := &session.Delta{
		Turns:    []types.Turn{types.Human(req.Text), types.Assistant(rendered)},
		Language: lang,
		Stage:    types.StageSummary,
		Summary:  doc,
	}
	return &Result{Text: rendered}, delta, nil
}

// handleAnswerQA answers a follow-up question grounded in the stored summary
// and a bounded window of recent conversation.
func (o *Orchestrator) handleAnswerQA(ctx context.Context, req Request, st *session.State) (*Result, *session.Delta, error) {
	if req.Text == "" {
		return nil, nil, fmt.Errorf("orchestrator: %w: question", ErrMissingInput)
	}
	lang := effectiveLanguage(req, st)
	history := FormatHistory(st.Turns, o.historyPairs)

	start := time.Now()
	answer, err := o.lm.Answer(ctx, req.Text, lang, st.Summary, history)
	o.recordProviderCall(ctx, "llm", start, err)
	if err != nil {
		return nil, nil, err
	}

	delta := &session.Delta{
		Turns:    []types.Turn{types.Human(req.Text), types.Assistant(answer)},
		Language: lang,
		Stage:    types.StageQA,
	}
	return &Result{Text: answer}, delta, nil
}

// recordProviderCall records collaborator latency and failure metrics.
func (o *Orchestrator) recordProviderCall(ctx context.Context, kind string, start time.Time, err error) {
	if o.metrics == nil {
		return
	}
	d := time.Since(start).Seconds()
	switch kind {
	case "stt":
		o.metrics.STTDuration.Record(ctx, d)
	case "tts":
		o.metrics.TTSDuration.Record(ctx, d)
	default:
		o.metrics.LLMDuration.Record(ctx, d)
	}
	if err != nil {
		o.metrics.RecordProviderError(ctx, kind)
	}
}

// keyedLocks serialises turns per session id. Entries are reference counted
// and removed once the last holder releases, so the map stays bounded by the
// number of in-flight turns.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// lock acquires the lock for key and returns the release function.
func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*lockEntry)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
