package audit_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/evalden/concento/internal/audit"
	"github.com/evalden/concento/pkg/types"
)

func TestNewRecord(t *testing.T) {
	t.Parallel()

	rec := audit.NewRecord("s1", "Alva Berg", audit.MethodTyped, types.LanguageSvenska, "Appendectomy", "# Titel\nAppendektomi\n")
	if rec.ID == "" {
		t.Error("record id not generated")
	}
	if rec.SessionID != "s1" || rec.Language != types.LanguageSvenska {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.CapturedAt.IsZero() {
		t.Error("capture time not set")
	}

	other := audit.NewRecord("s1", "Alva Berg", audit.MethodTyped, types.LanguageSvenska, "Appendectomy", "x")
	if other.ID == rec.ID {
		t.Error("record ids must be unique")
	}
}

func TestMethod_IsValid(t *testing.T) {
	t.Parallel()

	for _, m := range []audit.Method{audit.MethodTyped, audit.MethodVerbal, audit.MethodSignature} {
		if !m.IsValid() {
			t.Errorf("%q should be valid", m)
		}
	}
	if audit.Method("telepathy").IsValid() {
		t.Error("unknown method should be invalid")
	}
}

func TestFileStore_SaveAppendsJSONLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "consent.jsonl")
	fs := audit.NewFileStore(path)
	ctx := t.Context()

	first := audit.NewRecord("s1", "Ann Smith", audit.MethodVerbal, types.LanguageEnglish, "Appendectomy", "# Title\nAppendectomy\n")
	second := audit.NewRecord("s2", "Alva Berg", audit.MethodSignature, types.LanguageSvenska, "Koloskopi", "# Titel\nKoloskopi\n")
	if err := fs.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := fs.Save(ctx, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var got []audit.Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec audit.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		got = append(got, rec)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("records = %d, want 2", len(got))
	}
	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Errorf("record order or ids wrong: %+v", got)
	}
	if got[1].Procedure != "Koloskopi" {
		t.Errorf("procedure = %q", got[1].Procedure)
	}
}

func TestFileStore_LogAppendsTurnEvents(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trail.jsonl")
	fs := audit.NewFileStore(path)

	ev := audit.NewTurnEvent("s1", "answer-qa", "qa")
	if err := fs.Log(t.Context(), ev); err != nil {
		t.Fatalf("Log: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got audit.Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != ev.ID || got.Kind != audit.EventTurn || got.Route != "answer-qa" {
		t.Errorf("event = %+v", got)
	}
}

func TestFileStore_ConcurrentSaves(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "consent.jsonl")
	fs := audit.NewFileStore(path)
	ctx := t.Context()

	const n = 20
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fs.Save(ctx, audit.NewRecord("s", "P", audit.MethodTyped, types.LanguageEnglish, "p", "text")); err != nil {
				t.Errorf("Save: %v", err)
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != n {
		t.Errorf("lines = %d, want %d", lines, n)
	}
}
