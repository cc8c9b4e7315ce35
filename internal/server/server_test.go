package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/evalden/concento/internal/audit"
	"github.com/evalden/concento/internal/orchestrator"
	"github.com/evalden/concento/internal/provider/mock"
	"github.com/evalden/concento/internal/server"
	"github.com/evalden/concento/internal/session"
	"github.com/evalden/concento/pkg/types"
)

// memAudit is an in-memory audit.Store for tests.
type memAudit struct {
	mu      sync.Mutex
	records []audit.Record
	events  []audit.Event
	saveErr error
}

func (m *memAudit) Save(_ context.Context, rec audit.Record) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memAudit) Log(_ context.Context, ev audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memAudit) Close() error { return nil }

func newTestServer(t *testing.T, lm *mock.LanguageModel, stt *mock.Transcriber, tts *mock.Synthesizer) (http.Handler, *memAudit) {
	t.Helper()
	if lm == nil {
		lm = &mock.LanguageModel{}
	}
	if stt == nil {
		stt = &mock.Transcriber{}
	}
	if tts == nil {
		tts = &mock.Synthesizer{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orc, err := orchestrator.New(lm, stt, tts, session.NewMemoryStore(), orchestrator.WithLogger(logger))
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	audits := &memAudit{}
	srv, err := server.New(orc, audits, server.WithLogger(logger))
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	return srv.Handler(), audits
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChat_BuildsSummary(t *testing.T) {
	t.Parallel()

	h, audits := newTestServer(t, nil, nil, nil)

	rec := postJSON(t, h, "/v1/chat", map[string]string{
		"session_id": "s1",
		"text":       "appendectomy",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		Route   string `json:"route"`
		Stage   string `json:"stage"`
		Summary string `json:"summary"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Route != "build-summary" {
		t.Errorf("route = %q", resp.Route)
	}
	if resp.Stage != string(types.StageSummary) {
		t.Errorf("stage = %q", resp.Stage)
	}
	if !strings.Contains(resp.Summary, "appendectomy") {
		t.Errorf("summary = %q", resp.Summary)
	}
	if len(audits.events) != 1 || audits.events[0].Kind != audit.EventTurn || audits.events[0].Route != "build-summary" {
		t.Errorf("turn event not logged: %+v", audits.events)
	}
}

func TestChat_EmptyText(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, nil, nil, nil)
	rec := postJSON(t, h, "/v1/chat", map[string]string{"session_id": "s1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestChat_ProviderFailure(t *testing.T) {
	t.Parallel()

	lm := &mock.LanguageModel{
		SummarizeFunc: func(context.Context, string, types.Language) (string, error) {
			return "", errors.New("model overloaded")
		},
	}
	h, _ := newTestServer(t, lm, nil, nil)
	rec := postJSON(t, h, "/v1/chat", map[string]string{"session_id": "s1", "text": "x"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestTranscribe_Multipart(t *testing.T) {
	t.Parallel()

	stt := &mock.Transcriber{
		TranscribeFunc: func(_ context.Context, audioPath string) (string, error) {
			if audioPath == "" {
				return "", errors.New("no path")
			}
			return "knee arthroscopy", nil
		},
	}
	h, _ := newTestServer(t, nil, stt, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("session_id", "s1"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := mw.CreateFormFile("audio", "rec.wav")
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte("RIFFfakewav")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/transcribe", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp struct {
		Route string `json:"route"`
		Text  string `json:"text"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Route != "transcribe" {
		t.Errorf("route = %q", resp.Route)
	}
	if resp.Text != "knee arthroscopy" {
		t.Errorf("text = %q", resp.Text)
	}
}

func TestTranscribe_MissingFile(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, nil, nil, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("session_id", "s1"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/transcribe", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTranscribe_OversizeUploadRejected(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, nil, nil, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("session_id", "s1"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := mw.CreateFormFile("audio", "long.wav")
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	// One byte past the 25 MiB cap.
	if _, err := part.Write(make([]byte, 25<<20+1)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/transcribe", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestSpeech_ReturnsWAV(t *testing.T) {
	t.Parallel()

	tts := &mock.Synthesizer{
		SynthesizeFunc: func(_ context.Context, text string, _ types.Language) ([]byte, error) {
			return []byte("RIFF" + text), nil
		},
	}
	h, _ := newTestServer(t, nil, nil, tts)

	rec := postJSON(t, h, "/v1/speech", map[string]string{"session_id": "s1", "text": "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Body.String() != "RIFFhello" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestRestart(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, nil, nil, nil)

	// Build a summary, then restart.
	if rec := postJSON(t, h, "/v1/chat", map[string]string{"session_id": "s1", "text": "appendectomy"}); rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d", rec.Code)
	}
	if rec := postJSON(t, h, "/v1/restart", map[string]string{"session_id": "s1"}); rec.Code != http.StatusNoContent {
		t.Fatalf("restart status = %d", rec.Code)
	}

	// Next substantive turn builds a fresh summary again.
	rec := postJSON(t, h, "/v1/chat", map[string]string{"session_id": "s1", "text": "colonoscopy"})
	var resp struct {
		Route string `json:"route"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Route != "build-summary" {
		t.Errorf("route after restart = %q, want build-summary", resp.Route)
	}
}

func TestConsent(t *testing.T) {
	t.Parallel()

	h, audits := newTestServer(t, nil, nil, nil)

	if rec := postJSON(t, h, "/v1/chat", map[string]string{"session_id": "s1", "text": "appendectomy"}); rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d", rec.Code)
	}

	rec := postJSON(t, h, "/v1/consent", map[string]string{
		"session_id":   "s1",
		"patient_name": "Ann Smith",
		"method":       "verbal",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if len(audits.records) != 1 {
		t.Fatalf("records = %d, want 1", len(audits.records))
	}
	got := audits.records[0]
	if got.PatientName != "Ann Smith" || got.Method != audit.MethodVerbal {
		t.Errorf("record = %+v", got)
	}
	if !strings.Contains(got.Summary, "appendectomy") {
		t.Errorf("record summary = %q", got.Summary)
	}
}

func TestConsent_WithoutSummary(t *testing.T) {
	t.Parallel()

	h, audits := newTestServer(t, nil, nil, nil)

	rec := postJSON(t, h, "/v1/consent", map[string]string{
		"session_id":   "s1",
		"patient_name": "Ann Smith",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if len(audits.records) != 0 {
		t.Errorf("no record should be captured, got %d", len(audits.records))
	}
}

func TestConsent_InvalidMethod(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, nil, nil, nil)
	rec := postJSON(t, h, "/v1/consent", map[string]string{
		"session_id":   "s1",
		"patient_name": "Ann Smith",
		"method":       "telepathy",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, nil, nil, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestUnknownJSONFieldRejected(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, nil, nil, nil)
	rec := postJSON(t, h, "/v1/chat", map[string]string{"session_id": "s1", "text": "x", "surprise": "y"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
