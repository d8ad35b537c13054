// Package archive keeps completed advisory reports in PostgreSQL.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spigell/cv-advisor/internal/workflow"
)

var ErrNotFound = errors.New("report not found")

const schema = `
CREATE TABLE IF NOT EXISTS analysis_reports (
	id UUID PRIMARY KEY,
	session_id TEXT NOT NULL,
	job_title TEXT NOT NULL,
	score INTEGER NOT NULL,
	needs_interview BOOLEAN NOT NULL,
	outcome TEXT NOT NULL,
	remaining_gaps JSONB NOT NULL,
	rendered TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS analysis_reports_session_idx ON analysis_reports (session_id);
`

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Record is one archived report.
type Record struct {
	ID             uuid.UUID
	SessionID      string
	JobTitle       string
	Score          int
	NeedsInterview bool
	Outcome        string
	RemainingGaps  []string
	Rendered       string
	CreatedAt      time.Time
}

type Postgres struct {
	db   querier
	pool *pgxpool.Pool
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{db: pool, pool: pool}, nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// EnsureSchema creates the reports table when missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save stores a completed report under a fresh id.
func (p *Postgres) Save(ctx context.Context, report *workflow.FinalReport) error {
	record := NewRecord(report)

	gapsJSON, err := json.Marshal(record.RemainingGaps)
	if err != nil {
		return fmt.Errorf("failed to marshal remaining gaps: %w", err)
	}

	_, err = p.db.Exec(ctx, `
INSERT INTO analysis_reports (id, session_id, job_title, score, needs_interview, outcome, remaining_gaps, rendered, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, record.ID, record.SessionID, record.JobTitle, record.Score, record.NeedsInterview, record.Outcome, gapsJSON, record.Rendered, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// Latest returns the newest report of a session.
func (p *Postgres) Latest(ctx context.Context, sessionID string) (*Record, error) {
	row := p.db.QueryRow(ctx, `
SELECT id, session_id, job_title, score, needs_interview, outcome, remaining_gaps, rendered, created_at
FROM analysis_reports WHERE session_id = $1
ORDER BY created_at DESC LIMIT 1
`, sessionID)

	var record Record
	var gapsJSON []byte
	if err := row.Scan(&record.ID, &record.SessionID, &record.JobTitle, &record.Score, &record.NeedsInterview,
		&record.Outcome, &gapsJSON, &record.Rendered, &record.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	if err := json.Unmarshal(gapsJSON, &record.RemainingGaps); err != nil {
		return nil, fmt.Errorf("failed to decode remaining gaps: %w", err)
	}
	record.CreatedAt = record.CreatedAt.UTC()

	return &record, nil
}

// NewRecord flattens a final report into its archived form.
func NewRecord(report *workflow.FinalReport) Record {
	record := Record{
		ID:            uuid.New(),
		SessionID:     report.SessionID,
		JobTitle:      report.JobTitle,
		Outcome:       "skipped",
		RemainingGaps: []string{},
		Rendered:      report.Render(),
		CreatedAt:     report.CreatedAt,
	}

	if report.Analysis != nil {
		record.Score = report.Analysis.Decision.Score
		record.NeedsInterview = report.Analysis.Decision.NeedsInterview
	}
	if report.Interview != nil {
		record.Outcome = string(report.Interview.Outcome)
		if len(report.Interview.RemainingGaps) > 0 {
			record.RemainingGaps = report.Interview.RemainingGaps
		}
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	return record
}
