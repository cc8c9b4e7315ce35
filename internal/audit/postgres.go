package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evalden/concento/pkg/types"
)

// Schema is the SQL DDL for the consent_records and audit_events tables.
// Execute it via [PostgresStore.Migrate] or apply it manually during
// deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS consent_records (
    id           TEXT PRIMARY KEY,
    session_id   TEXT NOT NULL,
    patient_name TEXT NOT NULL DEFAULT '',
    method       TEXT NOT NULL DEFAULT 'typed',
    language     TEXT NOT NULL,
    procedure    TEXT NOT NULL DEFAULT '',
    summary      TEXT NOT NULL,
    captured_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_consent_records_session ON consent_records(session_id);

CREATE TABLE IF NOT EXISTS audit_events (
    id         TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    kind       TEXT NOT NULL,
    route      TEXT NOT NULL DEFAULT '',
    stage      TEXT NOT NULL DEFAULT '',
    at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_audit_events_session ON audit_events(session_id);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB

	// pool is set when the store owns its connection pool and should close it.
	pool *pgxpool.Pool
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore] over an existing connection or
// pool. The caller is responsible for calling [PostgresStore.Migrate] to
// ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect creates a [PostgresStore] with its own connection pool for dsn and
// runs the migration. The returned store closes the pool on Close.
func Connect(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: connect: %w", err)
	}
	s := &PostgresStore{db: pool, pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate executes the [Schema] DDL against the database, creating the trail
// tables and indexes if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("audit: migrate: %w", err)
	}
	return nil
}

// Save inserts one consent record. Saving a record whose id already exists is
// an error: records are immutable once captured.
func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	const query = `
		INSERT INTO consent_records (id, session_id, patient_name, method, language, procedure, summary, captured_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err := s.db.Exec(ctx, query,
		rec.ID, rec.SessionID, rec.PatientName, string(rec.Method),
		string(rec.Language), rec.Procedure, rec.Summary, rec.CapturedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("audit: record %q already exists", rec.ID)
		}
		return fmt.Errorf("audit: save: %w", err)
	}
	return nil
}

// Log inserts one trail event.
func (s *PostgresStore) Log(ctx context.Context, ev Event) error {
	const query = `
		INSERT INTO audit_events (id, session_id, kind, route, stage, at)
		VALUES ($1,$2,$3,$4,$5,$6)`

	_, err := s.db.Exec(ctx, query, ev.ID, ev.SessionID, ev.Kind, ev.Route, ev.Stage, ev.At)
	if err != nil {
		return fmt.Errorf("audit: log event: %w", err)
	}
	return nil
}

// BySession returns all consent records captured for a session, oldest first.
func (s *PostgresStore) BySession(ctx context.Context, sessionID string) ([]Record, error) {
	const query = `
		SELECT id, session_id, patient_name, method, language, procedure, summary, captured_at
		FROM consent_records
		WHERE session_id = $1
		ORDER BY captured_at`

	rows, err := s.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("audit: list %q: %w", sessionID, err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		var method, lang string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.PatientName, &method, &lang, &rec.Procedure, &rec.Summary, &rec.CapturedAt); err != nil {
			return nil, fmt.Errorf("audit: list scan: %w", err)
		}
		rec.Method = Method(method)
		rec.Language = types.Language(lang)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	return recs, nil
}

// Close releases the owned connection pool, if any.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// isDuplicateKeyError checks whether a PostgreSQL error is a unique-violation
// (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
