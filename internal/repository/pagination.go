package repository

import (
	"context"

	"github.com/maxviazov/range-feed-service/internal/model"
	"github.com/maxviazov/range-feed-service/internal/paging"
)

// Page represents a simple limit/offset window for listing operations.
// Range-header pagination over events goes through TopicSource instead.
type Page struct {
	Limit  int
	Offset int
}

// PageResult carries a slice of items and the total count matching the query.
type PageResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// TopicSource exposes one topic of an EventRepository as a paging.Source.
// Every call hits the repository again; nothing is cached between polls.
type TopicSource struct {
	repo  EventRepository
	topic string
}

func NewTopicSource(repo EventRepository, topic string) *TopicSource {
	return &TopicSource{repo: repo, topic: topic}
}

func (s *TopicSource) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, s.topic)
}

func (s *TopicSource) Slice(ctx context.Context, offset, limit int64) ([]model.Event, error) {
	return s.repo.Slice(ctx, s.topic, offset, limit)
}

var _ paging.Source[model.Event] = (*TopicSource)(nil)
