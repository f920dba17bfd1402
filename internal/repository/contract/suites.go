package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/maxviazov/range-feed-service/internal/model"
	"github.com/maxviazov/range-feed-service/internal/paging"
	"github.com/maxviazov/range-feed-service/internal/repository"
)

type EventFactory func(t *testing.T) (repository.EventRepository, func())

type TxFactory func(t *testing.T) (tx repository.TxManager, events repository.EventRepository, cleanup func())

type PingerFactory func(t *testing.T) (repository.Pinger, func())

func seed(t *testing.T, repo repository.EventRepository, topic string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		payload := json.RawMessage(fmt.Sprintf(`{"n":%d}`, i))
		if _, err := repo.Append(context.Background(), model.Event{Topic: topic, Payload: payload}); err != nil {
			t.Fatalf("seed %s[%d]: %v", topic, i, err)
		}
	}
}

func RunEventRepositoryContract(t *testing.T, makeRepo EventFactory) {
	t.Helper()

	t.Run("append_assigns_sequential_seq", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		for want := int64(0); want < 3; want++ {
			e, err := repo.Append(ctx, model.Event{Topic: "orders", Payload: json.RawMessage(`{}`)})
			if err != nil {
				t.Fatalf("append: %v", err)
			}
			if e.Seq != want || e.Topic != "orders" || e.CreatedAt.IsZero() {
				t.Fatalf("unexpected event: %+v", e)
			}
		}
		n, err := repo.Count(ctx, "orders")
		if err != nil || n != 3 {
			t.Fatalf("count: n=%d err=%v", n, err)
		}
	})

	t.Run("topics_are_independent", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		seed(t, repo, "a", 2)
		seed(t, repo, "b", 5)
		ctx := context.Background()
		if n, _ := repo.Count(ctx, "a"); n != 2 {
			t.Fatalf("count a = %d", n)
		}
		if n, _ := repo.Count(ctx, "missing"); n != 0 {
			t.Fatalf("count missing = %d", n)
		}
		res, err := repo.Topics(ctx, repository.Page{Limit: 10})
		if err != nil {
			t.Fatalf("topics: %v", err)
		}
		if res.Total != 2 || len(res.Items) != 2 || res.Items[0] != "a" || res.Items[1] != "b" {
			t.Fatalf("unexpected topics: %+v", res)
		}
	})

	t.Run("slice_windows_and_clamping", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		seed(t, repo, "feed", 5)
		ctx := context.Background()
		cases := []struct {
			offset, limit int64
			wantSeqs      []int64
		}{
			{0, paging.NoLimit, []int64{0, 1, 2, 3, 4}},
			{1, 2, []int64{1, 2}},
			{3, 10, []int64{3, 4}},
			{5, paging.NoLimit, nil},
			{9, 1, nil},
			{0, 0, nil},
		}
		for _, tc := range cases {
			got, err := repo.Slice(ctx, "feed", tc.offset, tc.limit)
			if err != nil {
				t.Fatalf("slice(%d,%d): %v", tc.offset, tc.limit, err)
			}
			if got == nil {
				t.Fatalf("slice(%d,%d) returned nil slice", tc.offset, tc.limit)
			}
			if len(got) != len(tc.wantSeqs) {
				t.Fatalf("slice(%d,%d) len=%d want %d", tc.offset, tc.limit, len(got), len(tc.wantSeqs))
			}
			for i, e := range got {
				if e.Seq != tc.wantSeqs[i] {
					t.Fatalf("slice(%d,%d)[%d].Seq=%d want %d", tc.offset, tc.limit, i, e.Seq, tc.wantSeqs[i])
				}
			}
		}
	})

	t.Run("payload_round_trip", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		if _, err := repo.Append(ctx, model.Event{Topic: "p", Payload: json.RawMessage(`{"name":"x","v":[1,2]}`)}); err != nil {
			t.Fatalf("append: %v", err)
		}
		got, err := repo.Slice(ctx, "p", 0, 1)
		if err != nil || len(got) != 1 {
			t.Fatalf("slice: %v %+v", err, got)
		}
		var decoded map[string]any
		if err := json.Unmarshal(got[0].Payload, &decoded); err != nil || decoded["name"] != "x" {
			t.Fatalf("payload mismatch: %s", got[0].Payload)
		}
	})

	t.Run("final_event_closes_topic", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		seed(t, repo, "done", 1)
		last, err := repo.Append(ctx, model.Event{Topic: "done", Payload: json.RawMessage(`{}`), Final: true})
		if err != nil || !last.Final || last.Seq != 1 {
			t.Fatalf("final append: %+v %v", last, err)
		}
		_, err = repo.Append(ctx, model.Event{Topic: "done", Payload: json.RawMessage(`{}`)})
		if !errors.Is(err, repository.ErrTopicClosed) || !errors.Is(err, repository.ErrConflict) {
			t.Fatalf("expected ErrTopicClosed, got %v", err)
		}
		if n, _ := repo.Count(ctx, "done"); n != 2 {
			t.Fatalf("closed topic grew to %d", n)
		}
	})

	t.Run("topic_source_paginates", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		seed(t, repo, "src", 5)
		page, err := paging.Paginate[model.Event](context.Background(), repository.NewTopicSource(repo, "src"), paging.Tail(2))
		if err != nil {
			t.Fatalf("paginate: %v", err)
		}
		if page.FirstIndex != 3 || len(page.Items) != 2 || page.Items[0].Seq != 3 {
			t.Fatalf("unexpected page: %+v", page)
		}
	})
}

func RunTxManagerContract(t *testing.T, makeTx TxFactory) {
	t.Helper()

	t.Run("commit_on_nil_error", func(t *testing.T) {
		tx, events, cleanup := makeTx(t)
		t.Cleanup(cleanup)
		RunTxCommitContract(t, tx, events)
	})

	t.Run("rollback_on_error", func(t *testing.T) {
		tx, events, cleanup := makeTx(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		errMarker := errors.New("boom")
		err := tx.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := events.Append(ctx, model.Event{Topic: "rb", Payload: json.RawMessage(`{}`)}); err != nil {
				return err
			}
			return errMarker
		})
		if !errors.Is(err, errMarker) {
			t.Fatalf("expected marker error, got %v", err)
		}
		if n, _ := events.Count(ctx, "rb"); n != 0 {
			t.Fatalf("expected rollback, found %d events", n)
		}
	})
}

// RunTxCommitContract checks that appends made inside WithinTx are visible
// once it returns nil.
func RunTxCommitContract(t *testing.T, tx repository.TxManager, events repository.EventRepository) {
	t.Helper()
	ctx := context.Background()
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		for i := 0; i < 2; i++ {
			if _, err := events.Append(ctx, model.Event{Topic: "tx", Payload: json.RawMessage(`{}`)}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	if n, _ := events.Count(ctx, "tx"); n != 2 {
		t.Fatalf("expected 2 committed events, got %d", n)
	}
}

func RunPingerContract(t *testing.T, makePinger PingerFactory) {
	t.Helper()
	t.Run("ping_ok", func(t *testing.T) {
		p, cleanup := makePinger(t)
		t.Cleanup(cleanup)
		if err := p.Ping(context.Background()); err != nil {
			t.Fatalf("expected ping ok, got %v", err)
		}
	})
}
