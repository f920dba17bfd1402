// Package response centralizes HTTP response shapes and helpers.
// Handlers rely on it to keep controllers thin and uniform.
package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/range-feed-service/internal/paging"
	"github.com/maxviazov/range-feed-service/internal/repository"
	"github.com/maxviazov/range-feed-service/internal/service"
)

// ErrorPayload is the canonical error envelope returned by the API.
type ErrorPayload struct {
	Error       string               `json:"error"`
	Message     string               `json:"message,omitempty"`
	FieldErrors []service.FieldError `json:"field_errors,omitempty"`
}

// errorRule maps one sentinel to a status. Order matters: ErrTopicClosed also
// matches ErrConflict, so it comes first.
type errorRule struct {
	target      error
	status      int
	code        string
	withMessage bool
}

var errorRules = []errorRule{
	{paging.ErrInvalidRange, http.StatusBadRequest, paging.StatusBadRequest.String(), true},
	{paging.ErrRangeTooLarge, http.StatusRequestEntityTooLarge, paging.StatusPayloadTooLarge.String(), true},
	{repository.ErrTopicClosed, http.StatusConflict, "topic_closed", true},
	{repository.ErrNotFound, http.StatusNotFound, "not_found", false},
	{repository.ErrAlreadyExists, http.StatusConflict, "already_exists", false},
	{repository.ErrConflict, http.StatusConflict, "conflict", false},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout", false},
}

// MapError converts a domain / infrastructure error into an HTTP status and payload.
// Unknown errors become 500 without leaking their text.
func MapError(err error) (int, ErrorPayload) {
	if err == nil {
		return http.StatusOK, ErrorPayload{Error: "ok"}
	}
	if errors.Is(err, service.ErrInvalidInput) {
		return http.StatusBadRequest, ErrorPayload{
			Error:       "invalid_input",
			Message:     "one or more fields are invalid",
			FieldErrors: service.FieldErrors(err),
		}
	}
	for _, rule := range errorRules {
		if !errors.Is(err, rule.target) {
			continue
		}
		p := ErrorPayload{Error: rule.code}
		if rule.withMessage {
			p.Message = err.Error()
		}
		return rule.status, p
	}
	return http.StatusInternalServerError, ErrorPayload{Error: "internal_error"}
}

// WriteError writes an error response and aborts the context.
func WriteError(c *gin.Context, err error) {
	status, payload := MapError(err)
	c.AbortWithStatusJSON(status, payload)
}

// WriteData writes a successful JSON response.
func WriteData(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}
