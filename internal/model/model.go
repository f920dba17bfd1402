// Package model contains domain entities shared across layers.
// Entities stay plain data; the only helper is the end-of-stream predicate.
package model

import (
	"encoding/json"
	"time"
)

// Event is one entry of a topic feed. Seq is the 0-based position inside its
// topic and doubles as the range index clients page over.
type Event struct {
	ID        int64           `json:"id"`
	Topic     string          `json:"topic"`
	Seq       int64           `json:"seq"`
	Payload   json.RawMessage `json:"payload"`
	Final     bool            `json:"final,omitempty"` // closes the topic; nothing is appended after it
	CreatedAt time.Time       `json:"created_at"`
}

// IsFinal is the end-of-stream predicate for event feeds.
func IsFinal(e Event) bool { return e.Final }
