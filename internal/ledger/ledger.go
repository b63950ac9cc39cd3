// Package ledger persists run history to postgres so every execution can be
// audited after its working directory is gone.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/farsight-labs/dspipe/internal/orchestrator"
)

// DB is the subset of database/sql the ledger needs.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Postgres records run outcomes in the pipeline_runs table.
type Postgres struct {
	db DB
}

func NewPostgres(db DB) (*Postgres, error) {
	if db == nil {
		return nil, errors.New("db handle is required")
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) RunStarted(ctx context.Context, executionID, environment string, startedAt time.Time) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (execution_id, environment, state, started_at)
		 VALUES ($1, $2, 'running', $3)
		 ON CONFLICT (execution_id) DO NOTHING`,
		executionID, environment, startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

func (p *Postgres) RunFinished(ctx context.Context, outcome orchestrator.Outcome) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE pipeline_runs
		 SET state = $2, cause = $3, finished_at = $4
		 WHERE execution_id = $1`,
		outcome.ExecutionID, string(outcome.State), outcome.Cause, outcome.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}
