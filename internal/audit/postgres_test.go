package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/evalden/concento/pkg/types"
)

// mockDB implements DB, recording statements and returning scripted results.
type mockDB struct {
	execSQL  []string
	execArgs [][]any
	execErr  error
}

func (m *mockDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.execSQL = append(m.execSQL, sql)
	m.execArgs = append(m.execArgs, args)
	return pgconn.CommandTag{}, m.execErr
}

func (m *mockDB) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (m *mockDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not scripted")
}

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	s := NewPostgresStore(db)
	if err := s.Migrate(t.Context()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if len(db.execSQL) != 1 || db.execSQL[0] != Schema {
		t.Errorf("migrate did not execute schema DDL")
	}
}

func TestPostgresStore_Save(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	s := NewPostgresStore(db)

	rec := Record{
		ID:          "r1",
		SessionID:   "s1",
		PatientName: "Ann Smith",
		Method:      MethodTyped,
		Language:    types.LanguageEnglish,
		Procedure:   "Appendectomy",
		Summary:     "# Title\nAppendectomy\n",
		CapturedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.Save(t.Context(), rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(db.execArgs) != 1 {
		t.Fatalf("exec calls = %d, want 1", len(db.execArgs))
	}
	args := db.execArgs[0]
	if args[0] != "r1" || args[1] != "s1" || args[2] != "Ann Smith" || args[3] != string(MethodTyped) {
		t.Errorf("unexpected insert args: %v", args)
	}
}

func TestPostgresStore_SaveDuplicate(t *testing.T) {
	t.Parallel()

	db := &mockDB{execErr: &pgconn.PgError{Code: "23505"}}
	s := NewPostgresStore(db)

	err := s.Save(t.Context(), Record{ID: "r1", SessionID: "s1", Language: types.LanguageEnglish})
	if err == nil {
		t.Fatal("expected duplicate error")
	}
}
