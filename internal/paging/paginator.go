package paging

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Window is a resolved range: Slice(Offset, Limit) yields the page starting at FirstIndex.
type Window struct {
	Offset     int64
	Limit      int64
	FirstIndex int64
	// Total is the source count when resolving required one (tail ranges), otherwise -1.
	Total int64
}

// Resolve turns spec into a concrete window over src. Only tail ranges
// ("last n") need to count the source first.
func Resolve[T any](ctx context.Context, src Source[T], spec RangeSpec) (Window, error) {
	if err := spec.Validate(); err != nil {
		return Window{}, err
	}
	switch {
	case spec.From != nil && spec.To != nil:
		n, _ := spec.Span()
		return Window{Offset: *spec.From, Limit: n, FirstIndex: *spec.From, Total: -1}, nil
	case spec.From != nil:
		return Window{Offset: *spec.From, Limit: NoLimit, FirstIndex: *spec.From, Total: -1}, nil
	default:
		total, err := src.Count(ctx)
		if err != nil {
			return Window{}, fmt.Errorf("count source: %w", err)
		}
		first := max(total-*spec.To, 0)
		return Window{Offset: first, Limit: total - first, FirstIndex: first, Total: total}, nil
	}
}

// Paginate applies spec to src once, without long polling.
func Paginate[T any](ctx context.Context, src Source[T], spec RangeSpec) (Page[T], error) {
	w, err := Resolve(ctx, src, spec)
	if err != nil {
		return Page[T]{}, err
	}
	items, err := fetchWindow(ctx, src, w)
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Items: items, FirstIndex: w.FirstIndex}, nil
}

func fetchWindow[T any](ctx context.Context, src Source[T], w Window) ([]T, error) {
	if w.Limit == 0 {
		return []T{}, nil
	}
	items, err := src.Slice(ctx, w.Offset, w.Limit)
	if err != nil {
		return nil, fmt.Errorf("slice source: %w", err)
	}
	return items, nil
}

// Paginator serves range requests against sources of T under one policy.
// It holds no per-request state and is safe for concurrent use.
type Paginator[T any] struct {
	policy Policy[T]
	log    zerolog.Logger
}

// NewPaginator validates the policy settings and returns a paginator.
func NewPaginator[T any](policy Policy[T], logger zerolog.Logger) (*Paginator[T], error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	l := logger.With().Str("module", "paging").Str("component", "paginator").Str("unit", policy.Unit).Logger()
	return &Paginator[T]{policy: policy, log: l}, nil
}

// Policy returns the paginator's policy.
func (p *Paginator[T]) Policy() Policy[T] { return p.policy }

// Serve runs the whole request flow: validity check, cap check, slicing,
// optional long polling and response building. Range and cap violations come
// back as error Responses; the returned error is reserved for source
// failures and context cancellation, which have no response body.
func (p *Paginator[T]) Serve(ctx context.Context, src Source[T], spec *RangeSpec) (Response[T], error) {
	if spec == nil {
		if err := p.policy.checkCap(nil); err != nil {
			return Build(Outcome[T]{Kind: OutcomeTooLarge, Err: err}, p.policy), nil
		}
		items, err := fetchWindow(ctx, src, Window{Limit: NoLimit})
		if err != nil {
			return Response[T]{}, err
		}
		return Build(Outcome[T]{Kind: OutcomeFull, Page: Page[T]{Items: items}}, p.policy), nil
	}

	if err := spec.Validate(); err != nil {
		return Build(Outcome[T]{Kind: OutcomeInvalidRange, Err: err}, p.policy), nil
	}
	if spec.Unit != "" && spec.Unit != p.policy.Unit {
		err := fmt.Errorf("%w: unit %q is not supported, use %q", ErrInvalidRange, spec.Unit, p.policy.Unit)
		return Build(Outcome[T]{Kind: OutcomeInvalidRange, Err: err}, p.policy), nil
	}
	if err := p.policy.checkCap(spec); err != nil {
		p.log.Debug().Str("range", spec.String()).Err(err).Msg("range rejected by cap")
		return Build(Outcome[T]{Kind: OutcomeTooLarge, Err: err}, p.policy), nil
	}

	w, err := Resolve(ctx, src, *spec)
	if err != nil {
		return Response[T]{}, err
	}

	if spec.IsHalfOpen() && p.policy.LongPolling {
		return p.serveLongPoll(ctx, src, w)
	}

	items, err := fetchWindow(ctx, src, w)
	if err != nil {
		return Response[T]{}, err
	}
	if len(items) == 0 {
		return Build(Outcome[T]{Kind: OutcomeEmpty}, p.policy), nil
	}
	total := w.Total
	if total < 0 {
		if total, err = src.Count(ctx); err != nil {
			return Response[T]{}, fmt.Errorf("count source: %w", err)
		}
	}
	page := Page[T]{Items: items, FirstIndex: w.FirstIndex}
	return Build(Outcome[T]{Kind: OutcomePage, Page: page, Total: total}, p.policy), nil
}

func (p *Paginator[T]) serveLongPoll(ctx context.Context, src Source[T], w Window) (Response[T], error) {
	poller := Poller[T]{MaxAttempts: p.policy.MaxAttempts, Delay: p.policy.Delay, Log: p.log}
	items, err := poller.Poll(ctx, func(ctx context.Context) ([]T, error) {
		return fetchWindow(ctx, src, w)
	})
	if err != nil {
		return Response[T]{}, err
	}
	if len(items) == 0 {
		return Build(Outcome[T]{Kind: OutcomeEmptyAfterPoll}, p.policy), nil
	}
	page := Page[T]{Items: items, FirstIndex: w.FirstIndex}
	return Build(Outcome[T]{Kind: OutcomePage, Page: page, LongPolled: true}, p.policy), nil
}
