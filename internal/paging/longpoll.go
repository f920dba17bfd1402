package paging

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// FetchFunc re-reads an already range-restricted source.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Poller retries a fetch until it returns something or the attempt budget runs out.
type Poller[T any] struct {
	MaxAttempts int
	Delay       time.Duration
	Log         zerolog.Logger
}

// NewPoller builds a poller with a disabled logger.
func NewPoller[T any](maxAttempts int, delay time.Duration) Poller[T] {
	return Poller[T]{MaxAttempts: maxAttempts, Delay: delay, Log: zerolog.Nop()}
}

// Poll evaluates fetch up to MaxAttempts times and returns the first non-empty
// result. An empty result after the last attempt is not an error.
// Waiting between attempts honors ctx: cancellation aborts the loop and
// returns ctx.Err() without a partial result.
func (p Poller[T]) Poll(ctx context.Context, fetch FetchFunc[T]) ([]T, error) {
	attempts := max(p.MaxAttempts, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			p.Log.Debug().Int("attempt", attempt).Int("items", len(items)).Msg("long poll satisfied")
			return items, nil
		}
		if attempt >= attempts {
			p.Log.Debug().Int("attempts", attempt).Msg("long poll exhausted")
			return []T{}, nil
		}

		if timer == nil {
			timer = time.NewTimer(p.Delay)
		} else {
			timer.Reset(p.Delay)
		}
		select {
		case <-ctx.Done():
			p.Log.Debug().Int("attempt", attempt).Err(ctx.Err()).Msg("long poll cancelled")
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// PollBlocking is the non-cancellable form of Poll: it sleeps the calling
// goroutine between attempts.
func (p Poller[T]) PollBlocking(fetch func() ([]T, error)) ([]T, error) {
	attempts := max(p.MaxAttempts, 1)
	for attempt := 1; ; attempt++ {
		items, err := fetch()
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			return items, nil
		}
		if attempt >= attempts {
			return []T{}, nil
		}
		time.Sleep(p.Delay)
	}
}
