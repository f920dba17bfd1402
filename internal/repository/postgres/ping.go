package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxviazov/range-feed-service/internal/repository"
)

var errSchemaMissing = errors.New("events table missing; run migrations")

type pinger struct{ pool *pgxpool.Pool }

// NewPinger reports ready only when the pool answers and the events table
// exists, so a fresh database without migrations fails /ready.
func NewPinger(pool *pgxpool.Pool) repository.Pinger { return &pinger{pool: pool} }

func (p *pinger) Ping(ctx context.Context) error {
	if p.pool == nil {
		return errNilPool
	}
	var present bool
	if err := p.pool.QueryRow(ctx, `SELECT to_regclass('events') IS NOT NULL`).Scan(&present); err != nil {
		return repository.MapPgError(err)
	}
	if !present {
		return errSchemaMissing
	}
	return nil
}
