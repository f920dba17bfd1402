// Package paging implements Range-header style pagination over an ordered,
// countable source, with optional long polling for open-ended ranges.
// It knows nothing about HTTP wire bytes: callers hand it a parsed RangeSpec
// and render the returned Response themselves.
package paging

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidRange is returned for a range that names neither bound (maps to HTTP 400).
	ErrInvalidRange = errors.New("invalid range")
	// ErrRangeTooLarge is returned when a request violates Settings.MaxCount (maps to HTTP 413).
	ErrRangeTooLarge = errors.New("range too large")
)

// RangeSpec is a requested interval of element indices, both ends inclusive.
// From without To means "from From onward"; To without From means "the last To elements".
type RangeSpec struct {
	From *int64
	To   *int64
	Unit string
}

// Subset requests elements from..to inclusive.
func Subset(from, to int64) RangeSpec { return RangeSpec{From: &from, To: &to} }

// TailOpen requests every element starting at from.
func TailOpen(from int64) RangeSpec { return RangeSpec{From: &from} }

// Tail requests the last n elements.
func Tail(n int64) RangeSpec { return RangeSpec{To: &n} }

// WithUnit returns a copy of r tagged with unit.
func (r RangeSpec) WithUnit(unit string) RangeSpec {
	r.Unit = unit
	return r
}

// IsHalfOpen reports whether only the lower bound is set.
func (r RangeSpec) IsHalfOpen() bool { return r.From != nil && r.To == nil }

// Validate checks that at least one bound is present and that bounds are non-negative.
func (r RangeSpec) Validate() error {
	if r.From == nil && r.To == nil {
		return fmt.Errorf("%w: range must specify at least one bound", ErrInvalidRange)
	}
	if (r.From != nil && *r.From < 0) || (r.To != nil && *r.To < 0) {
		return fmt.Errorf("%w: bounds must be non-negative", ErrInvalidRange)
	}
	return nil
}

// Span returns the number of elements the range asks for. ok is false for
// half-open ranges, whose length is unknown until the source is read.
// The result saturates at math.MaxInt64.
func (r RangeSpec) Span() (n int64, ok bool) {
	switch {
	case r.From != nil && r.To != nil:
		d := *r.To - *r.From
		switch {
		case d < 0:
			return 0, true
		case d == math.MaxInt64:
			return math.MaxInt64, true
		}
		return d + 1, true
	case r.To != nil:
		return *r.To, true
	default:
		return 0, false
	}
}

func (r RangeSpec) String() string {
	from, to := "", ""
	if r.From != nil {
		from = fmt.Sprint(*r.From)
	}
	if r.To != nil {
		to = fmt.Sprint(*r.To)
	}
	if r.From == nil && r.To != nil {
		return fmt.Sprintf("%s=-%s", r.Unit, to)
	}
	return fmt.Sprintf("%s=%s-%s", r.Unit, from, to)
}

// Page is one slice of a source together with the absolute index of its first item.
type Page[T any] struct {
	Items      []T
	FirstIndex int64
}

// Len returns the number of items in the page.
func (p Page[T]) Len() int64 { return int64(len(p.Items)) }

// LastIndex returns the absolute index of the last item, or FirstIndex-1 for an empty page.
func (p Page[T]) LastIndex() int64 { return p.FirstIndex + p.Len() - 1 }
