// Package journal appends an audit row for every confirm and cancel outcome.
// It records counts and classifications, never addresses or bodies.
package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Attempt is one journal row.
type Attempt struct {
	DraftID        string
	Outcome        string
	ErrorKind      string
	StatusCode     int
	RecipientCount int
}

// Recorder persists attempts.
type Recorder interface {
	Record(ctx context.Context, a Attempt) error
}

// DBTX is the subset of pgx used here; *pgxpool.Pool and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schema = `CREATE TABLE IF NOT EXISTS mailgate_send_attempts (
	id              BIGSERIAL PRIMARY KEY,
	draft_id        TEXT        NOT NULL,
	outcome         TEXT        NOT NULL,
	error_kind      TEXT        NOT NULL DEFAULT '',
	status_code     INTEGER     NOT NULL DEFAULT 0,
	recipient_count INTEGER     NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertAttempt = `INSERT INTO mailgate_send_attempts
	(draft_id, outcome, error_kind, status_code, recipient_count)
	VALUES ($1, $2, $3, $4, $5)`

// Postgres records attempts in mailgate_send_attempts.
type Postgres struct {
	db DBTX
}

func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the journal table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create journal table: %w", err)
	}
	return nil
}

func (p *Postgres) Record(ctx context.Context, a Attempt) error {
	tag, err := p.db.Exec(ctx, insertAttempt, a.DraftID, a.Outcome, a.ErrorKind, a.StatusCode, a.RecipientCount)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("record attempt: %d rows inserted", tag.RowsAffected())
	}
	return nil
}

// Nop discards attempts. Used when no database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Attempt) error { return nil }

// Open connects a pool to url and verifies it.
func Open(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
