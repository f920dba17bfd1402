package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/range-feed-service/internal/handler"
	"github.com/maxviazov/range-feed-service/internal/model"
	"github.com/maxviazov/range-feed-service/internal/paging"
	"github.com/maxviazov/range-feed-service/internal/repository"
	"github.com/maxviazov/range-feed-service/internal/service"
	"github.com/maxviazov/range-feed-service/pkg/response"
)

// stubPingerNoop satisfies handler.Pinger (health endpoints not focus here).
type stubPingerNoop struct{}

func (s stubPingerNoop) Ping(ctx context.Context) error { return nil }

// memRepo is an in-memory EventRepository so the real feed service can run.
type memRepo struct {
	mu     sync.Mutex
	topics map[string][]model.Event
}

func newMemRepo() *memRepo { return &memRepo{topics: map[string][]model.Event{}} }

func (m *memRepo) Append(_ context.Context, e model.Event) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := m.topics[e.Topic]
	if n := len(events); n > 0 && events[n-1].Final {
		return model.Event{}, repository.ErrTopicClosed
	}
	e.Seq = int64(len(events))
	e.ID = e.Seq + 1
	m.topics[e.Topic] = append(events, e)
	return e, nil
}

func (m *memRepo) Count(_ context.Context, topic string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.topics[topic])), nil
}

func (m *memRepo) Slice(ctx context.Context, topic string, offset, limit int64) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return paging.SliceSource[model.Event](m.topics[topic]).Slice(ctx, offset, limit)
}

func (m *memRepo) Topics(_ context.Context, _ repository.Page) (repository.PageResult[string], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := repository.PageResult[string]{Items: []string{}}
	for name := range m.topics {
		res.Items = append(res.Items, name)
	}
	res.Total = len(res.Items)
	return res, nil
}

type passTx struct{}

func (passTx) WithinTx(ctx context.Context, fn repository.TxFunc) error { return fn(ctx) }

func newRouter(t *testing.T, repo repository.EventRepository, mutate func(*paging.Settings), mw ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	s := paging.DefaultSettings()
	s.Delay = 5 * time.Millisecond
	if mutate != nil {
		mutate(&s)
	}
	svc, err := service.NewFeedService(repo, passTx{}, s, zerolog.New(io.Discard))
	require.NoError(t, err)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	handler.Register(r, stubPingerNoop{}, svc)
	return r
}

func seed(t *testing.T, repo *memRepo, topic string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := repo.Append(context.Background(), model.Event{Topic: topic, Payload: json.RawMessage(`{}`)})
		require.NoError(t, err)
	}
}

func get(r *gin.Engine, path, rangeHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if rangeHeader != "" {
		req.Header.Set(response.HeaderRange, rangeHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const eventsPath = handler.APIV1Prefix + "/topics/orders/events"

func TestEventHandler_Read_Ranges(t *testing.T) {
	repo := newMemRepo()
	seed(t, repo, "orders", 5)
	r := newRouter(t, repo, func(s *paging.Settings) { s.MaxCount = 3 })

	cases := []struct {
		name         string
		header       string
		wantCode     int
		contentRange string
		acceptRanges string
		wantItems    int
	}{
		{"subset", "items=1-2", http.StatusPartialContent, "items 1-2/5", "items", 2},
		{"subset past end", "items=3-9", http.StatusRequestEntityTooLarge, "", "", 0},
		{"tail", "items=-2", http.StatusPartialContent, "items 3-4/5", "items", 2},
		{"tail longer than feed", "items=-3", http.StatusPartialContent, "items 2-4/5", "items", 3},
		{"empty subset", "items=7-8", http.StatusRequestedRangeNotSatisfiable, "", "items", 0},
		{"no bounds", "items=-", http.StatusBadRequest, "", "", 0},
		{"garbage", "items=x-y", http.StatusBadRequest, "", "", 0},
		{"wrong unit", "bytes=0-1", http.StatusBadRequest, "", "", 0},
		{"half open under cap", "items=2-", http.StatusRequestEntityTooLarge, "", "", 0},
		{"no range under cap", "", http.StatusRequestEntityTooLarge, "", "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(r, eventsPath, tc.header)
			require.Equal(t, tc.wantCode, w.Code, w.Body.String())
			assert.Equal(t, tc.contentRange, w.Header().Get(response.HeaderContentRange))
			assert.Equal(t, tc.acceptRanges, w.Header().Get(response.HeaderAcceptRanges))
			if tc.wantItems > 0 {
				var items []model.Event
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
				assert.Len(t, items, tc.wantItems)
			}
		})
	}
}

func TestEventHandler_Read_FullListing(t *testing.T) {
	repo := newMemRepo()
	seed(t, repo, "orders", 2)
	r := newRouter(t, repo, nil)

	w := get(r, eventsPath, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "items", w.Header().Get(response.HeaderAcceptRanges))
	assert.Empty(t, w.Header().Get(response.HeaderContentRange))

	w = get(r, handler.APIV1Prefix+"/topics/empty/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestEventHandler_Read_LongPoll(t *testing.T) {
	repo := newMemRepo()
	seed(t, repo, "orders", 2)
	r := newRouter(t, repo, func(s *paging.Settings) {
		s.LongPolling = true
		s.MaxAttempts = 200
	})

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = repo.Append(context.Background(), model.Event{Topic: "orders", Payload: json.RawMessage(`{}`)})
	}()

	w := get(r, eventsPath, "items=2-")
	require.Equal(t, http.StatusPartialContent, w.Code, w.Body.String())
	assert.Equal(t, "items 2-2/*", w.Header().Get(response.HeaderContentRange))
}

func TestEventHandler_Read_LongPollExhausted(t *testing.T) {
	r := newRouter(t, newMemRepo(), func(s *paging.Settings) {
		s.LongPolling = true
		s.MaxAttempts = 2
		s.Delay = time.Millisecond
	})
	w := get(r, eventsPath, "items=0-")
	require.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
	assert.Contains(t, w.Body.String(), paging.MsgEmptyAfterPoll)
}

func TestEventHandler_Read_ClientGone(t *testing.T) {
	r := newRouter(t, newMemRepo(), func(s *paging.Settings) {
		s.LongPolling = true
		s.Delay = time.Second
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(10*time.Millisecond, cancel)
	req := httptest.NewRequest(http.MethodGet, eventsPath, nil).WithContext(ctx)
	req.Header.Set(response.HeaderRange, "items=0-")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Body.String())
}

func TestEventHandler_Read_RequestTimeout(t *testing.T) {
	r := newRouter(t, newMemRepo(), func(s *paging.Settings) {
		s.LongPolling = true
		s.Delay = time.Second
	}, handler.Timeout(10*time.Millisecond))

	w := get(r, eventsPath, "items=0-")
	require.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "timeout")
	assert.Empty(t, w.Header().Get(response.HeaderContentRange))
}

func post(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw)))
	return w
}

func TestEventHandler_Publish(t *testing.T) {
	repo := newMemRepo()
	r := newRouter(t, repo, nil)

	w := post(r, eventsPath, map[string]any{"payload": map[string]int{"n": 1}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var e model.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, int64(0), e.Seq)
	assert.Equal(t, "orders", e.Topic)

	w = post(r, eventsPath, map[string]any{"payload": map[string]int{"n": 2}, "final": true})
	require.Equal(t, http.StatusCreated, w.Code)

	w = post(r, eventsPath, map[string]any{"payload": map[string]int{"n": 3}})
	require.Equal(t, http.StatusConflict, w.Code)
	var payload response.ErrorPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "topic_closed", payload.Error)
}

func TestEventHandler_Publish_Invalid(t *testing.T) {
	r := newRouter(t, newMemRepo(), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, eventsPath, bytes.NewReader([]byte("{bad"))))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, eventsPath, map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var payload response.ErrorPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "invalid_input", payload.Error)
	require.NotEmpty(t, payload.FieldErrors)
	assert.Equal(t, "payload", payload.FieldErrors[0].Field)
}

func TestEventHandler_PublishBatch(t *testing.T) {
	repo := newMemRepo()
	r := newRouter(t, repo, nil)

	body := map[string]any{"events": []map[string]any{
		{"payload": 1}, {"payload": 2}, {"payload": 3, "final": true},
	}}
	w := post(r, eventsPath+"/batch", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out []model.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 3)
	assert.True(t, out[2].Final)

	w = get(r, eventsPath, "items=0-")
	require.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "items 0-2/3", w.Header().Get(response.HeaderContentRange))
}

func TestEventHandler_ListTopics(t *testing.T) {
	repo := newMemRepo()
	seed(t, repo, "orders", 1)
	r := newRouter(t, repo, nil)

	w := get(r, handler.APIV1Prefix+"/topics", "")
	require.Equal(t, http.StatusOK, w.Code)
	var res repository.PageResult[string]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, []string{"orders"}, res.Items)
}

type failingRepo struct{ *memRepo }

func (failingRepo) Count(context.Context, string) (int64, error) { return 0, errors.New("db down") }

func TestEventHandler_Read_StorageFailure(t *testing.T) {
	r := newRouter(t, failingRepo{newMemRepo()}, nil)
	w := get(r, eventsPath, "items=-2")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_error")
}
