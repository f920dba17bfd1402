package repository

import (
	"context"

	"github.com/maxviazov/range-feed-service/internal/model"
)

// Pinger represents a minimal readiness probe capability.
// I use it to decouple health checks from storage implementation details.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TxFunc is the unit of work executed within a transaction boundary.
// I pass context through so nested calls can honor cancellations and deadlines.
type TxFunc func(ctx context.Context) error

// TxManager abstracts transactional execution for repositories that support it.
// Calls nested inside an open transaction join it instead of starting a new one.
type TxManager interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// EventRepository stores append-only topic feeds. Within a topic, events are
// ordered by Seq, which starts at 0 and has no gaps.
type EventRepository interface {
	// Append assigns the next Seq and stores e. Appending to a topic whose last
	// event is Final fails with ErrConflict.
	Append(ctx context.Context, e model.Event) (model.Event, error)
	Count(ctx context.Context, topic string) (int64, error)
	// Slice returns up to limit events starting at offset; a negative limit
	// means "to the end". Out-of-range windows yield an empty slice.
	Slice(ctx context.Context, topic string, offset, limit int64) ([]model.Event, error)
	// Topics lists known topic names in lexical order.
	Topics(ctx context.Context, p Page) (PageResult[string], error)
}
