// Package service holds business logic orchestration across repositories and handlers.
// Kept intentionally lean: only use-case coordination, validation and domain error shaping.
package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/maxviazov/range-feed-service/internal/model"
	"github.com/maxviazov/range-feed-service/internal/paging"
	"github.com/maxviazov/range-feed-service/internal/repository"
)

// ErrInvalidInput is the marker error for aggregated validation failures (maps to HTTP 400).
// Field-level details are retrieved via FieldErrors(err).
var ErrInvalidInput = errors.New("invalid input")

// FieldError describes a single invalid field in a client request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// invalidInputError aggregates multiple FieldError instances and unwraps to ErrInvalidInput.
type invalidInputError struct {
	fields []FieldError
}

func (e *invalidInputError) Error() string        { return ErrInvalidInput.Error() }
func (e *invalidInputError) Unwrap() error        { return ErrInvalidInput }
func (e *invalidInputError) Fields() []FieldError { return e.fields }

func newInvalidInput(fe []FieldError) error {
	if len(fe) == 0 {
		return nil
	}
	return &invalidInputError{fields: fe}
}

// FieldErrors extracts field errors from an aggregated validation error.
func FieldErrors(err error) []FieldError {
	if err == nil {
		return nil
	}
	type feIface interface{ Fields() []FieldError }
	var v feIface
	if errors.As(err, &v) && errors.Is(err, ErrInvalidInput) {
		return v.Fields()
	}
	return nil
}

// EventInput is one element of a batch publish.
type EventInput struct {
	Payload json.RawMessage
	Final   bool
}

// FeedService defines topic feed use cases.
type FeedService interface {
	Publish(ctx context.Context, topic string, in EventInput) (model.Event, error)
	// PublishBatch appends all inputs in order. With transactional storage
	// either every event is stored or none is.
	PublishBatch(ctx context.Context, topic string, batch []EventInput) ([]model.Event, error)
	// Read serves a Range request over one topic. A nil spec means the whole
	// feed. Range and cap violations are reported through the Response status;
	// the error is reserved for invalid topics, storage failures and
	// cancellation.
	Read(ctx context.Context, topic string, spec *paging.RangeSpec) (paging.Response[model.Event], error)
	ListTopics(ctx context.Context, page repository.Page) (repository.PageResult[string], error)
	// Settings returns the pagination settings Read applies.
	Settings() paging.Settings
}
