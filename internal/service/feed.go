package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxviazov/range-feed-service/internal/model"
	"github.com/maxviazov/range-feed-service/internal/paging"
	"github.com/maxviazov/range-feed-service/internal/repository"
)

type feedService struct {
	events repository.EventRepository
	tx     repository.TxManager
	pager  *paging.Paginator[model.Event]
	log    zerolog.Logger
}

// NewFeedService wires the paginator for event feeds. Final events act as the
// end-of-stream marker for long-polled reads.
func NewFeedService(events repository.EventRepository, tx repository.TxManager, settings paging.Settings, logger zerolog.Logger) (FeedService, error) {
	l := logger.With().Str("module", "service").Str("component", "feed").Logger()
	policy := paging.NewPolicy[model.Event](settings)
	policy.EndOfStream = model.IsFinal
	pager, err := paging.NewPaginator(policy, logger)
	if err != nil {
		return nil, fmt.Errorf("feed paginator: %w", err)
	}
	return &feedService{events: events, tx: tx, pager: pager, log: l}, nil
}

func (s *feedService) Settings() paging.Settings { return s.pager.Policy().Settings }

func (s *feedService) Publish(ctx context.Context, topic string, in EventInput) (model.Event, error) {
	start := time.Now()
	topic = normalizeTopic(topic)

	ferrs := validateTopic(topic)
	ferrs = append(ferrs, validatePayload("payload", in.Payload)...)
	if err := newInvalidInput(ferrs); err != nil {
		s.log.Debug().Str("topic", topic).Interface("field_errors", ferrs).Msg("event validation failed")
		return model.Event{}, err
	}

	out, err := s.events.Append(ctx, model.Event{Topic: topic, Payload: in.Payload, Final: in.Final})
	if err != nil {
		if errors.Is(err, repository.ErrTopicClosed) {
			s.log.Debug().Str("topic", topic).Msg("publish to closed topic")
		} else {
			s.log.Error().Err(err).Str("topic", topic).Msg("append event failed")
		}
		return model.Event{}, err
	}
	s.log.Info().Dur("took", time.Since(start)).Str("topic", topic).Int64("seq", out.Seq).Bool("final", out.Final).Msg("event published")
	return out, nil
}

func (s *feedService) PublishBatch(ctx context.Context, topic string, batch []EventInput) ([]model.Event, error) {
	topic = normalizeTopic(topic)

	ferrs := validateTopic(topic)
	switch {
	case len(batch) == 0:
		ferrs = append(ferrs, FieldError{Field: "events", Message: "must not be empty"})
	case len(batch) > MaxBatchSize:
		ferrs = append(ferrs, FieldError{Field: "events", Message: fmt.Sprintf("at most %d events per batch", MaxBatchSize)})
	}
	for i, in := range batch {
		ferrs = append(ferrs, validatePayload(fmt.Sprintf("events[%d].payload", i), in.Payload)...)
		if in.Final && i != len(batch)-1 {
			ferrs = append(ferrs, FieldError{Field: fmt.Sprintf("events[%d].final", i), Message: "only the last event may be final"})
		}
	}
	if err := newInvalidInput(ferrs); err != nil {
		s.log.Debug().Str("topic", topic).Interface("field_errors", ferrs).Msg("batch validation failed")
		return nil, err
	}

	out := make([]model.Event, 0, len(batch))
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, in := range batch {
			e, err := s.events.Append(ctx, model.Event{Topic: topic, Payload: in.Payload, Final: in.Final})
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("topic", topic).Int("batch", len(batch)).Msg("batch publish failed")
		return nil, err
	}
	s.log.Info().Str("topic", topic).Int("count", len(out)).Msg("batch published")
	return out, nil
}

func (s *feedService) Read(ctx context.Context, topic string, spec *paging.RangeSpec) (paging.Response[model.Event], error) {
	topic = normalizeTopic(topic)
	if err := newInvalidInput(validateTopic(topic)); err != nil {
		return paging.Response[model.Event]{}, err
	}

	resp, err := s.pager.Serve(ctx, repository.NewTopicSource(s.events, topic), spec)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error().Err(err).Str("topic", topic).Msg("read feed failed")
		}
		return paging.Response[model.Event]{}, err
	}
	s.log.Debug().Str("topic", topic).Str("status", resp.Status.String()).Int("items", len(resp.Items)).Msg("feed read")
	return resp, nil
}

func (s *feedService) ListTopics(ctx context.Context, page repository.Page) (repository.PageResult[string], error) {
	p := normalizePage(page)
	res, err := s.events.Topics(ctx, p)
	if err != nil {
		s.log.Error().Err(err).Int("limit", p.Limit).Int("offset", p.Offset).Msg("list topics failed")
		return repository.PageResult[string]{}, err
	}
	return res, nil
}
