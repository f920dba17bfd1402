package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/maxviazov/range-feed-service/internal/config"
	"github.com/maxviazov/range-feed-service/internal/repository"
	"github.com/maxviazov/range-feed-service/internal/repository/contract"
	"github.com/maxviazov/range-feed-service/migrations"
)

var (
	db     *sql.DB
	pool   *pgxpool.Pool
	dsn    string
	skippy bool
)

func TestMain(m *testing.M) {
	if os.Getenv("CONTRACT_TESTS") != "1" {
		// allow skipping contract tests unless explicitly enabled
		skippy = true
		os.Exit(m.Run())
	}

	dsn = buildDSNFromEnv()
	if dsn == "" {
		fmt.Println("[contract] DATABASE_URL or APP_POSTGRES_* env not set; skipping")
		skippy = true
		os.Exit(m.Run())
	}

	var err error
	db, err = sql.Open("pgx", dsn)
	if err != nil {
		fmt.Println("[contract] sql open error:", err)
		os.Exit(1)
	}
	if err := db.Ping(); err != nil {
		fmt.Println("[contract] db ping error:", err)
		os.Exit(1)
	}

	if err := migrations.Up(db); err != nil {
		fmt.Println("[contract] goose up error:", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err = pgxpool.New(ctx, dsn)
	if err != nil {
		fmt.Println("[contract] pgxpool new error:", err)
		os.Exit(1)
	}

	code := m.Run()
	pool.Close()
	db.Close()
	os.Exit(code)
}

func skipIfNeeded(t *testing.T) {
	if skippy {
		t.Skip("contract tests skipped; set CONTRACT_TESTS=1 and provide DB env")
	}
}

func buildDSNFromEnv() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	cfg := config.PostgresConfig{
		Host:     firstNonEmpty(os.Getenv("APP_POSTGRES_HOST"), "localhost"),
		User:     os.Getenv("APP_POSTGRES_USER"),
		Password: os.Getenv("APP_POSTGRES_PASSWORD"),
		DBName:   os.Getenv("APP_POSTGRES_DB"),
		SSLMode:  firstNonEmpty(os.Getenv("APP_POSTGRES_SSLMODE"), "disable"),
		Port:     5432,
	}
	if p, err := strconv.Atoi(os.Getenv("APP_POSTGRES_PORT")); err == nil {
		cfg.Port = p
	}
	if cfg.User == "" || cfg.Password == "" || cfg.DBName == "" {
		return ""
	}
	return repository.DSN(cfg)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncateAll(t *testing.T) {
	t.Helper()
	if _, err := db.Exec("TRUNCATE TABLE events RESTART IDENTITY"); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}
}

// Factories used by contract suites

func makeEventRepo(t *testing.T) (repository.EventRepository, func()) {
	skipIfNeeded(t)
	truncateAll(t)
	return NewEventRepository(pool), func() { truncateAll(t) }
}

func makeTx(t *testing.T) (repository.TxManager, repository.EventRepository, func()) {
	skipIfNeeded(t)
	truncateAll(t)
	return NewTxManager(pool), NewEventRepository(pool), func() { truncateAll(t) }
}

func makePinger(t *testing.T) (repository.Pinger, func()) {
	skipIfNeeded(t)
	return NewPinger(pool), func() {}
}

// Wire the contract suites to Postgres factories

func TestEventRepository_PostgresContract(t *testing.T) {
	contract.RunEventRepositoryContract(t, makeEventRepo)
}

func TestTxManager_PostgresContract(t *testing.T) {
	contract.RunTxManagerContract(t, makeTx)
}

func TestPinger_PostgresContract(t *testing.T) {
	contract.RunPingerContract(t, makePinger)
}
