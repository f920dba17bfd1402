package paging

import "net/http"

// Status is the transport-neutral result class of a paginated request.
type Status int

const (
	StatusOK Status = iota
	StatusPartialContent
	StatusRangeNotSatisfiable
	StatusBadRequest
	StatusPayloadTooLarge
)

// HTTPCode returns the HTTP status code for s.
func (s Status) HTTPCode() int {
	switch s {
	case StatusPartialContent:
		return http.StatusPartialContent
	case StatusRangeNotSatisfiable:
		return http.StatusRequestedRangeNotSatisfiable
	case StatusBadRequest:
		return http.StatusBadRequest
	case StatusPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusOK
	}
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusPartialContent:
		return "partial_content"
	case StatusRangeNotSatisfiable:
		return "range_not_satisfiable"
	case StatusBadRequest:
		return "bad_range"
	case StatusPayloadTooLarge:
		return "range_too_large"
	default:
		return "unknown"
	}
}

// IsError reports whether s carries an error message instead of items.
func (s Status) IsError() bool { return s == StatusBadRequest || s == StatusPayloadTooLarge }

// Response messages for statuses without items.
const (
	MsgEmptyRange     = "no elements in requested range"
	MsgEmptyAfterPoll = "no elements in requested range at this time; try again later"
	MsgInvalidRange   = "range must specify at least one bound"
	MsgRangeTooLarge  = "requested range exceeds the maximum allowed element count"
)

// ContentRange describes which slice of the collection a response carries.
// With only Unit set it merely advertises that ranges are accepted.
type ContentRange struct {
	Unit  string
	From  *int64
	To    *int64
	Total *int64
}

// Advertised reports whether the accepted unit should be announced.
func (r ContentRange) Advertised() bool { return r.Unit != "" }

// HasSlice reports whether From/To are present.
func (r ContentRange) HasSlice() bool { return r.From != nil && r.To != nil }

// Response is the structured result handed back to the transport layer.
type Response[T any] struct {
	Status  Status
	Items   []T
	Message string
	Range   ContentRange
}

// OutcomeKind enumerates what happened while serving a request.
type OutcomeKind int

const (
	OutcomeFull OutcomeKind = iota
	OutcomePage
	OutcomeEmpty
	OutcomeEmptyAfterPoll
	OutcomeInvalidRange
	OutcomeTooLarge
)

// Outcome is the input to Build.
type Outcome[T any] struct {
	Kind OutcomeKind
	Page Page[T]
	// Total is the source length observed while slicing. Ignored for long-poll results.
	Total int64
	// LongPolled marks a page produced by the long-poll loop.
	LongPolled bool
	// Err carries the validation error for OutcomeInvalidRange and OutcomeTooLarge.
	Err error
}

// Build maps an outcome onto a Response. It has no side effects.
func Build[T any](o Outcome[T], p Policy[T]) Response[T] {
	advert := ContentRange{Unit: p.Unit}
	switch o.Kind {
	case OutcomeFull:
		items := o.Page.Items
		if items == nil {
			items = []T{}
		}
		return Response[T]{Status: StatusOK, Items: items, Range: advert}

	case OutcomeInvalidRange:
		return Response[T]{Status: StatusBadRequest, Message: errMessage(o.Err, MsgInvalidRange)}

	case OutcomeTooLarge:
		return Response[T]{Status: StatusPayloadTooLarge, Message: errMessage(o.Err, MsgRangeTooLarge)}

	case OutcomeEmptyAfterPoll:
		return Response[T]{Status: StatusRangeNotSatisfiable, Message: MsgEmptyAfterPoll, Range: advert}

	case OutcomePage:
		if o.Page.Len() == 0 {
			break
		}
		from, to := o.Page.FirstIndex, o.Page.LastIndex()
		cr := ContentRange{Unit: p.Unit, From: &from, To: &to}
		switch {
		case !o.LongPolled:
			total := o.Total
			cr.Total = &total
		case p.endOfStream(o.Page.Items):
			total := to + 1
			cr.Total = &total
		}
		return Response[T]{Status: StatusPartialContent, Items: o.Page.Items, Range: cr}
	}
	return Response[T]{Status: StatusRangeNotSatisfiable, Message: MsgEmptyRange, Range: advert}
}

func errMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	return err.Error()
}
