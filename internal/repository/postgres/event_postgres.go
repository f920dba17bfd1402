package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxviazov/range-feed-service/internal/model"
	"github.com/maxviazov/range-feed-service/internal/repository"
)

const defaultTopicsLimit = 50

type eventRepository struct {
	pool *pgxpool.Pool
	tx   repository.TxManager
}

func NewEventRepository(pool *pgxpool.Pool) repository.EventRepository {
	return &eventRepository{pool: pool, tx: NewTxManager(pool)}
}

// Append serializes writers per topic with a transaction-scoped advisory lock,
// so Seq stays gap-free and the closed check cannot race another append.
func (r *eventRepository) Append(ctx context.Context, e model.Event) (model.Event, error) {
	if r.pool == nil {
		return model.Event{}, errNilPool
	}
	var out model.Event
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		exec := conn(ctx, r.pool)
		if _, err := exec.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, e.Topic); err != nil {
			return err
		}

		var closed bool
		var next int64
		err := exec.QueryRow(ctx,
			`SELECT COALESCE(bool_or(final), false), COALESCE(MAX(seq) + 1, 0)
			 FROM events WHERE topic = $1`,
			e.Topic,
		).Scan(&closed, &next)
		if err != nil {
			return err
		}
		if closed {
			return repository.ErrTopicClosed
		}

		row := exec.QueryRow(ctx,
			`INSERT INTO events (topic, seq, payload, final)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, topic, seq, payload, final, created_at`,
			e.Topic, next, []byte(e.Payload), e.Final,
		)
		return scanEvent(row, &out)
	})
	if err != nil {
		return model.Event{}, repository.MapPgError(err)
	}
	return out, nil
}

func (r *eventRepository) Count(ctx context.Context, topic string) (int64, error) {
	if r.pool == nil {
		return 0, errNilPool
	}
	var n int64
	exec := conn(ctx, r.pool)
	if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE topic = $1`, topic).Scan(&n); err != nil {
		return 0, repository.MapPgError(err)
	}
	return n, nil
}

func (r *eventRepository) Slice(ctx context.Context, topic string, offset, limit int64) ([]model.Event, error) {
	if r.pool == nil {
		return nil, errNilPool
	}
	out := make([]model.Event, 0)
	if limit == 0 {
		return out, nil
	}
	offset = max(offset, 0)
	var lim *int64 // NULL means LIMIT ALL
	if limit > 0 {
		lim = &limit
	}

	exec := conn(ctx, r.pool)
	rows, err := exec.Query(ctx,
		`SELECT id, topic, seq, payload, final, created_at
		 FROM events
		 WHERE topic = $1
		 ORDER BY seq
		 OFFSET $2 LIMIT $3`,
		topic, offset, lim,
	)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var e model.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, repository.MapPgError(err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.MapPgError(err)
	}
	return out, nil
}

func (r *eventRepository) Topics(ctx context.Context, p repository.Page) (repository.PageResult[string], error) {
	if r.pool == nil {
		return repository.PageResult[string]{}, errNilPool
	}
	limit, offset := p.Limit, max(p.Offset, 0)
	if limit <= 0 {
		limit = defaultTopicsLimit
	}
	exec := conn(ctx, r.pool)
	rows, err := exec.Query(ctx,
		`SELECT topic, COUNT(*) OVER() AS total
		 FROM (SELECT DISTINCT topic FROM events) t
		 ORDER BY topic
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return repository.PageResult[string]{}, repository.MapPgError(err)
	}
	defer rows.Close()
	res := repository.PageResult[string]{Items: make([]string, 0, limit)}
	for rows.Next() {
		var topic string
		var total int
		if err := rows.Scan(&topic, &total); err != nil {
			return repository.PageResult[string]{}, repository.MapPgError(err)
		}
		res.Items = append(res.Items, topic)
		res.Total = total
	}
	if err := rows.Err(); err != nil {
		return repository.PageResult[string]{}, repository.MapPgError(err)
	}
	return res, nil
}

func scanEvent(row pgx.Row, e *model.Event) error {
	var payload []byte
	if err := row.Scan(&e.ID, &e.Topic, &e.Seq, &payload, &e.Final, &e.CreatedAt); err != nil {
		return err
	}
	e.Payload = payload
	return nil
}

var _ repository.EventRepository = (*eventRepository)(nil)
