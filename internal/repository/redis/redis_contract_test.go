package redis_test

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/maxviazov/range-feed-service/internal/config"
	"github.com/maxviazov/range-feed-service/internal/repository"
	"github.com/maxviazov/range-feed-service/internal/repository/contract"
	redisrepo "github.com/maxviazov/range-feed-service/internal/repository/redis"
)

var prefixSeq atomic.Int64

func connect(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("redis contract tests skipped; set REDIS_ADDR")
	}
	rc, err := redisrepo.NewClient(context.Background(), config.RedisConfig{Addr: addr})
	if err != nil {
		t.Fatalf("redis connect: %v", err)
	}
	return rc
}

// uniquePrefix isolates each subtest's keys so runs never see each other.
func uniquePrefix() string {
	return fmt.Sprintf("contract:%d:%d", time.Now().UnixNano(), prefixSeq.Add(1))
}

func dropPrefix(rc *goredis.Client, prefix string) {
	ctx := context.Background()
	iter := rc.Scan(ctx, 0, prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		_ = rc.Del(ctx, iter.Val()).Err()
	}
	_ = rc.Close()
}

func makeEventRepo(t *testing.T) (repository.EventRepository, func()) {
	rc := connect(t)
	prefix := uniquePrefix()
	return redisrepo.NewEventRepository(rc, prefix), func() { dropPrefix(rc, prefix) }
}

func makeTx(t *testing.T) (repository.TxManager, repository.EventRepository, func()) {
	rc := connect(t)
	prefix := uniquePrefix()
	return redisrepo.NewTxManager(), redisrepo.NewEventRepository(rc, prefix), func() { dropPrefix(rc, prefix) }
}

func makePinger(t *testing.T) (repository.Pinger, func()) {
	rc := connect(t)
	return redisrepo.NewPinger(rc), func() { _ = rc.Close() }
}

func TestEventRepository_RedisContract(t *testing.T) {
	contract.RunEventRepositoryContract(t, makeEventRepo)
}

// Redis has no rollback, so only the commit half of the tx contract applies.
func TestTxManager_RedisCommit(t *testing.T) {
	tx, events, cleanup := makeTx(t)
	t.Cleanup(cleanup)
	contract.RunTxCommitContract(t, tx, events)
}

func TestPinger_RedisContract(t *testing.T) {
	contract.RunPingerContract(t, makePinger)
}
