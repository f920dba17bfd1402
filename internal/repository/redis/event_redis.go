// Package redis stores topic feeds as Redis lists: the list index is the
// event Seq, so Count is LLEN and Slice is a single LRANGE.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/maxviazov/range-feed-service/internal/config"
	"github.com/maxviazov/range-feed-service/internal/model"
	"github.com/maxviazov/range-feed-service/internal/repository"
)

// appendScript pushes one element unless the topic is closed and returns its
// index, or -1 for a closed topic. KEYS: events list, closed marker, topic set.
var appendScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	return -1
end
local n = redis.call('RPUSH', KEYS[1], ARGV[1])
if ARGV[2] == '1' then
	redis.call('SET', KEYS[2], n - 1)
end
redis.call('ZADD', KEYS[3], 0, ARGV[3])
return n - 1
`)

// NewClient connects and pings Redis.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	rc := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rc, nil
}

// storedEvent is the list element; Topic and Seq are implied by the key and index.
type storedEvent struct {
	Payload   json.RawMessage `json:"payload"`
	Final     bool            `json:"final,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type eventRepository struct {
	rc     goredis.Cmdable
	prefix string
	now    func() time.Time
}

func NewEventRepository(rc goredis.Cmdable, keyPrefix string) repository.EventRepository {
	if keyPrefix == "" {
		keyPrefix = "feed"
	}
	return &eventRepository{rc: rc, prefix: keyPrefix, now: time.Now}
}

func (r *eventRepository) eventsKey(topic string) string {
	return fmt.Sprintf("%s:topic:%s:events", r.prefix, topic)
}

func (r *eventRepository) closedKey(topic string) string {
	return fmt.Sprintf("%s:topic:%s:closed", r.prefix, topic)
}

func (r *eventRepository) topicsKey() string { return r.prefix + ":topics" }

func (r *eventRepository) Append(ctx context.Context, e model.Event) (model.Event, error) {
	stored := storedEvent{Payload: e.Payload, Final: e.Final, CreatedAt: r.now().UTC()}
	raw, err := json.Marshal(stored)
	if err != nil {
		return model.Event{}, fmt.Errorf("encode event: %w", err)
	}
	final := "0"
	if e.Final {
		final = "1"
	}
	keys := []string{r.eventsKey(e.Topic), r.closedKey(e.Topic), r.topicsKey()}
	seq, err := appendScript.Run(ctx, r.rc, keys, raw, final, e.Topic).Int64()
	if err != nil {
		return model.Event{}, repository.MapRedisError(err)
	}
	if seq < 0 {
		return model.Event{}, repository.ErrTopicClosed
	}
	return toEvent(e.Topic, seq, stored), nil
}

func (r *eventRepository) Count(ctx context.Context, topic string) (int64, error) {
	n, err := r.rc.LLen(ctx, r.eventsKey(topic)).Result()
	if err != nil {
		return 0, repository.MapRedisError(err)
	}
	return n, nil
}

func (r *eventRepository) Slice(ctx context.Context, topic string, offset, limit int64) ([]model.Event, error) {
	out := make([]model.Event, 0)
	if limit == 0 {
		return out, nil
	}
	offset = max(offset, 0)
	stop := int64(-1)
	if limit > 0 && limit <= math.MaxInt64-offset {
		stop = offset + limit - 1
	}
	raw, err := r.rc.LRange(ctx, r.eventsKey(topic), offset, stop).Result()
	if err != nil {
		return nil, repository.MapRedisError(err)
	}
	for i, s := range raw {
		var stored storedEvent
		if err := json.Unmarshal([]byte(s), &stored); err != nil {
			return nil, fmt.Errorf("decode event %s[%d]: %w", topic, offset+int64(i), err)
		}
		out = append(out, toEvent(topic, offset+int64(i), stored))
	}
	return out, nil
}

func (r *eventRepository) Topics(ctx context.Context, p repository.Page) (repository.PageResult[string], error) {
	limit, offset := p.Limit, max(p.Offset, 0)
	if limit <= 0 {
		limit = 50
	}
	total, err := r.rc.ZCard(ctx, r.topicsKey()).Result()
	if err != nil {
		return repository.PageResult[string]{}, repository.MapRedisError(err)
	}
	// Equal scores make ZRANGE lexical.
	names, err := r.rc.ZRange(ctx, r.topicsKey(), int64(offset), int64(offset+limit-1)).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return repository.PageResult[string]{}, repository.MapRedisError(err)
	}
	if names == nil {
		names = []string{}
	}
	return repository.PageResult[string]{Items: names, Total: int(total)}, nil
}

func toEvent(topic string, seq int64, s storedEvent) model.Event {
	return model.Event{
		ID:        seq + 1,
		Topic:     topic,
		Seq:       seq,
		Payload:   s.Payload,
		Final:     s.Final,
		CreatedAt: s.CreatedAt,
	}
}

type pinger struct{ rc goredis.Cmdable }

// NewPinger adapts a Redis client to repository.Pinger.
func NewPinger(rc goredis.Cmdable) repository.Pinger { return &pinger{rc: rc} }

func (p *pinger) Ping(ctx context.Context) error { return p.rc.Ping(ctx).Err() }

// txManager runs fn directly: each Redis append is atomic on its own, but a
// batch of appends is not.
type txManager struct{}

func NewTxManager() repository.TxManager { return txManager{} }

func (txManager) WithinTx(ctx context.Context, fn repository.TxFunc) error { return fn(ctx) }

var (
	_ repository.EventRepository = (*eventRepository)(nil)
	_ repository.Pinger          = (*pinger)(nil)
	_ repository.TxManager       = txManager{}
)
