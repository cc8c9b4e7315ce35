// Package audit captures consent records: a durable trace of which summary a
// patient saw when they confirmed consent. Records are append-only and never
// mutated after capture.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/evalden/concento/pkg/types"
)

// ErrNoSummary is returned when consent is requested for a session that has
// no summary to consent to.
var ErrNoSummary = errors.New("session has no summary to record consent for")

// Method is how the patient expressed consent.
type Method string

const (
	MethodTyped     Method = "typed"
	MethodVerbal    Method = "verbal"
	MethodSignature Method = "signature"
)

// IsValid reports whether m is a recognised consent method.
func (m Method) IsValid() bool {
	switch m {
	case MethodTyped, MethodVerbal, MethodSignature:
		return true
	}
	return false
}

// Record is one captured consent event.
type Record struct {
	// ID uniquely identifies the record.
	ID string `json:"id"`

	// SessionID is the conversation the consent belongs to.
	SessionID string `json:"session_id"`

	// PatientName is the name the patient consented under.
	PatientName string `json:"patient_name"`

	// Method is how the consent was expressed.
	Method Method `json:"method"`

	// Language is the conversation language at capture time.
	Language types.Language `json:"language"`

	// Procedure is the summary's title text, when present.
	Procedure string `json:"procedure,omitempty"`

	// Summary is the full rendered summary the patient confirmed.
	Summary string `json:"summary"`

	// CapturedAt is the capture timestamp in UTC.
	CapturedAt time.Time `json:"captured_at"`
}

// NewRecord builds a consent record with a fresh id and the current time.
func NewRecord(sessionID, patientName string, method Method, lang types.Language, procedure, summaryText string) Record {
	return Record{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		PatientName: patientName,
		Method:      method,
		Language:    lang,
		Procedure:   procedure,
		Summary:     summaryText,
		CapturedAt:  time.Now().UTC(),
	}
}

// Event is one entry in the conversational audit trail. Unlike a consent
// [Record] it carries no summary text, just what happened and when.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// SessionID is the conversation the event belongs to.
	SessionID string `json:"session_id"`

	// Kind classifies the event, e.g. "turn".
	Kind string `json:"kind"`

	// Route is the stage handler that ran, for turn events.
	Route string `json:"route,omitempty"`

	// Stage is the session stage after the event.
	Stage string `json:"stage,omitempty"`

	// At is the event timestamp in UTC.
	At time.Time `json:"at"`
}

// EventTurn marks one handled conversation turn.
const EventTurn = "turn"

// NewTurnEvent builds a turn event with a fresh id and the current time.
func NewTurnEvent(sessionID, route, stage string) Event {
	return Event{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Kind:      EventTurn,
		Route:     route,
		Stage:     stage,
		At:        time.Now().UTC(),
	}
}

// Store persists the audit trail: consent records and turn events.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Save appends one consent record.
	Save(ctx context.Context, rec Record) error

	// Log appends one trail event.
	Log(ctx context.Context, ev Event) error

	// Close releases underlying resources.
	Close() error
}
