package paging

import "context"

// NoLimit passed as Slice's limit means "everything from offset to the end".
const NoLimit int64 = -1

// Source is an ordered, countable, re-queryable sequence.
// Implementations may change between calls; each call is an independent read.
type Source[T any] interface {
	Count(ctx context.Context) (int64, error)
	// Slice returns up to limit items starting at offset. Out-of-range offsets
	// and limits are clamped, never reported as errors.
	Slice(ctx context.Context, offset, limit int64) ([]T, error)
}

// SourceFuncs adapts a pair of functions to Source.
type SourceFuncs[T any] struct {
	CountFunc func(ctx context.Context) (int64, error)
	SliceFunc func(ctx context.Context, offset, limit int64) ([]T, error)
}

func (f SourceFuncs[T]) Count(ctx context.Context) (int64, error) { return f.CountFunc(ctx) }

func (f SourceFuncs[T]) Slice(ctx context.Context, offset, limit int64) ([]T, error) {
	return f.SliceFunc(ctx, offset, limit)
}

// SliceSource serves an in-memory slice.
type SliceSource[T any] []T

func (s SliceSource[T]) Count(context.Context) (int64, error) { return int64(len(s)), nil }

func (s SliceSource[T]) Slice(_ context.Context, offset, limit int64) ([]T, error) {
	lo, hi := ClampWindow(int64(len(s)), offset, limit)
	out := make([]T, hi-lo)
	copy(out, s[lo:hi])
	return out, nil
}

// ClampWindow converts offset/limit into [lo, hi) bounds inside a sequence of length n.
func ClampWindow(n, offset, limit int64) (lo, hi int64) {
	lo = min(max(offset, 0), n)
	hi = n
	if limit >= 0 && limit < hi-lo {
		hi = lo + limit
	}
	return lo, hi
}

var _ Source[int] = SliceSource[int](nil)
var _ Source[int] = SourceFuncs[int]{}
