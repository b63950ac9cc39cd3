package paramstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// DB is the subset of database/sql the postgres store needs.
type DB interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres reads parameters from the pipeline_parameters table.
type Postgres struct {
	db DB
}

func NewPostgres(db DB) (*Postgres, error) {
	if db == nil {
		return nil, errors.New("db handle is required")
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Get(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("parameter name is required")
	}
	var value string
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM pipeline_parameters WHERE name = $1`, name,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query parameter %s: %w", name, err)
	}
	return value, nil
}
