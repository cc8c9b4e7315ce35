// Package server exposes the conversation orchestrator over HTTP.
//
// The API is a thin JSON transport: it validates and decodes requests, hands
// them to the orchestrator, and maps its errors onto status codes. No
// conversational logic lives here.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"

	"github.com/evalden/concento/internal/audit"
	"github.com/evalden/concento/internal/health"
	"github.com/evalden/concento/internal/observe"
	"github.com/evalden/concento/internal/orchestrator"
	"github.com/evalden/concento/internal/summary"
	"github.com/evalden/concento/pkg/types"
)

// maxUploadBytes caps the size of an uploaded recording (25 MiB, the OpenAI
// transcription limit). Larger bodies are rejected with 413.
const maxUploadBytes = 25 << 20

// Server is the HTTP front door.
type Server struct {
	orc         *orchestrator.Orchestrator
	audits      audit.Store
	logger      *slog.Logger
	metrics     *observe.Metrics
	health      *health.Handler
	defaultLang types.Language
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics sink. Nil disables HTTP metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealth sets the health handler serving /healthz and /readyz.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithDefaultLanguage sets the language applied to requests that omit one.
func WithDefaultLanguage(lang types.Language) Option {
	return func(s *Server) {
		if lang.IsValid() {
			s.defaultLang = lang
		}
	}
}

// New creates a Server over the given orchestrator and consent store.
func New(orc *orchestrator.Orchestrator, audits audit.Store, opts ...Option) (*Server, error) {
	if orc == nil {
		return nil, errors.New("server: orchestrator must not be nil")
	}
	if audits == nil {
		return nil, errors.New("server: audit store must not be nil")
	}
	s := &Server{
		orc:    orc,
		audits: audits,
		logger: slog.Default(),
		health: health.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the fully wired HTTP handler: routes, health endpoints,
// Prometheus scrape endpoint, and the observability middleware stack.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("POST /v1/transcribe", s.handleTranscribe)
	mux.HandleFunc("POST /v1/speech", s.handleSpeech)
	mux.HandleFunc("POST /v1/restart", s.handleRestart)
	mux.HandleFunc("POST /v1/consent", s.handleConsent)
	mux.Handle("GET /metrics", promhttp.Handler())
	s.health.Register(mux)

	var h http.Handler = mux
	h = observe.Middleware(s.metrics, s.logger, h)
	h = otelhttp.NewHandler(h, "concento")
	return h
}

// chatRequest is the body of /v1/chat and /v1/speech.
type chatRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Language  string `json:"language,omitempty"`
}

// turnResponse is the JSON reply for conversational endpoints.
type turnResponse struct {
	Route   string       `json:"route"`
	Stage   string       `json:"stage,omitempty"`
	Text    string       `json:"text,omitempty"`
	Summary string       `json:"summary,omitempty"`
	Turns   []types.Turn `json:"turns,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	res, err := s.orc.HandleTurn(r.Context(), orchestrator.Request{
		SessionID: req.SessionID,
		Text:      req.Text,
		Kind:      orchestrator.TurnText,
		Language:  s.language(req.Language),
	})
	if err != nil {
		s.writeTurnError(w, r, err)
		return
	}
	s.logTurn(r, req.SessionID, res)
	writeJSON(w, http.StatusOK, turnResponseFrom(res))
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		s.writeError(w, r, status, fmt.Errorf("parse multipart form: %w", err))
		return
	}
	sessionID := r.FormValue("session_id")
	lang := r.FormValue("language")

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("audio file part is required: %w", err))
		return
	}
	defer file.Close()

	path, err := spoolUpload(file, header)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	defer os.Remove(path)

	res, err := s.orc.HandleTurn(r.Context(), orchestrator.Request{
		SessionID: sessionID,
		AudioPath: path,
		Kind:      orchestrator.TurnAudioIn,
		Language:  s.language(lang),
		Stage:     types.StageInputPending,
	})
	if err != nil {
		s.writeTurnError(w, r, err)
		return
	}
	s.logTurn(r, sessionID, res)
	writeJSON(w, http.StatusOK, turnResponseFrom(res))
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	res, err := s.orc.HandleTurn(r.Context(), orchestrator.Request{
		SessionID: req.SessionID,
		Text:      req.Text,
		Kind:      orchestrator.TurnAudioOut,
		Language:  s.language(req.Language),
	})
	if err != nil {
		s.writeTurnError(w, r, err)
		return
	}
	s.logTurn(r, req.SessionID, res)

	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Audio); err != nil {
		s.logger.LogAttrs(r.Context(), slog.LevelWarn, "write audio response",
			slog.String("error", err.Error()))
	}
}

// restartRequest is the body of /v1/restart.
type restartRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	var req restartRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := s.orc.Restart(r.Context(), req.SessionID); err != nil {
		s.writeTurnError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// consentRequest is the body of /v1/consent.
type consentRequest struct {
	SessionID   string `json:"session_id"`
	PatientName string `json:"patient_name"`
	Method      string `json:"method,omitempty"`
}

// consentResponse acknowledges a captured consent record.
type consentResponse struct {
	RecordID   string    `json:"record_id"`
	CapturedAt time.Time `json:"captured_at"`
}

func (s *Server) handleConsent(w http.ResponseWriter, r *http.Request) {
	var req consentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if req.SessionID == "" || req.PatientName == "" {
		s.writeError(w, r, http.StatusBadRequest, errors.New("session_id and patient_name are required"))
		return
	}
	method := audit.MethodTyped
	if req.Method != "" {
		method = audit.Method(req.Method)
		if !method.IsValid() {
			s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("method %q is invalid; valid values: typed, verbal, signature", req.Method))
			return
		}
	}

	st, err := s.orc.Session(r.Context(), req.SessionID)
	if err != nil {
		s.writeTurnError(w, r, err)
		return
	}
	if st.Summary == nil {
		s.writeError(w, r, http.StatusConflict, audit.ErrNoSummary)
		return
	}

	rec := audit.NewRecord(req.SessionID, req.PatientName, method, st.Language,
		st.Summary.Text(summary.SectionTitle), st.Summary.String())
	if err := s.audits.Save(r.Context(), rec); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ConsentRecords.Add(r.Context(), 1, metric.WithAttributes(
			observe.Attr("method", string(method))))
	}
	s.logger.LogAttrs(r.Context(), slog.LevelInfo, "consent recorded",
		slog.String("session", req.SessionID),
		slog.String("record", rec.ID),
		slog.String("method", string(method)),
	)
	writeJSON(w, http.StatusCreated, consentResponse{RecordID: rec.ID, CapturedAt: rec.CapturedAt})
}

// logTurn appends a turn event to the audit trail. Trail failures never fail
// the turn; they are logged and dropped.
func (s *Server) logTurn(r *http.Request, sessionID string, res *orchestrator.Result) {
	ev := audit.NewTurnEvent(sessionID, string(res.Route), string(res.Stage))
	if err := s.audits.Log(r.Context(), ev); err != nil {
		s.logger.LogAttrs(r.Context(), slog.LevelWarn, "audit trail write failed",
			slog.String("error", err.Error()))
	}
}

// language resolves a request's language field against the server default.
func (s *Server) language(raw string) types.Language {
	if raw != "" {
		return types.Language(raw)
	}
	return s.defaultLang
}

// turnResponseFrom maps an orchestrator result to the wire shape.
func turnResponseFrom(res *orchestrator.Result) turnResponse {
	out := turnResponse{
		Route: string(res.Route),
		Stage: string(res.Stage),
		Text:  res.Text,
		Turns: res.Turns,
	}
	if res.Summary != nil {
		out.Summary = res.Summary.String()
	}
	return out
}

// writeTurnError maps orchestrator errors onto status codes: missing input is
// the caller's fault, everything else surfaces as a bad gateway since the
// remaining failure modes are collaborator calls.
func (s *Server) writeTurnError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, orchestrator.ErrMissingInput) {
		status = http.StatusBadRequest
	}
	s.writeError(w, r, status, err)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encode response"}`, http.StatusInternalServerError)
	}
}

// spoolUpload copies an uploaded part to a temp file and returns its path.
// The caller owns the file and must remove it.
func spoolUpload(file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := ".wav"
	if header != nil && header.Filename != "" {
		if e := filepath.Ext(header.Filename); e != "" {
			ext = e
		}
	}
	tmp, err := os.CreateTemp("", "concento-upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("spool upload: %w", err)
	}
	return tmp.Name(), nil
}
