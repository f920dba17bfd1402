package service

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/maxviazov/range-feed-service/internal/repository"
)

// MaxBatchSize bounds PublishBatch.
const MaxBatchSize = 500

var topicPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,63}$`)

func normalizePage(p repository.Page) repository.Page {
	limit := p.Limit
	offset := p.Offset
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return repository.Page{Limit: limit, Offset: offset}
}

func normalizeTopic(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}

// IsValidTopic reports whether topic, after trimming and lowercasing, is an
// acceptable topic name.
func IsValidTopic(topic string) bool {
	return topicPattern.MatchString(normalizeTopic(topic))
}

func validateTopic(topic string) []FieldError {
	if topic == "" {
		return []FieldError{{Field: "topic", Message: "must not be empty"}}
	}
	if !topicPattern.MatchString(topic) {
		return []FieldError{{Field: "topic", Message: "must match " + topicPattern.String()}}
	}
	return nil
}

func validatePayload(field string, payload json.RawMessage) []FieldError {
	if len(payload) == 0 {
		return []FieldError{{Field: field, Message: "must not be empty"}}
	}
	if !json.Valid(payload) {
		return []FieldError{{Field: field, Message: "must be valid JSON"}}
	}
	return nil
}
