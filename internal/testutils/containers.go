// Package testutils 提供整合測試使用的測試容器。
//
// 容器在測試結束時自動終止；呼叫端應在 -short 模式下跳過整合測試。
package testutils

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/koopa0/system-design/14-game-rooms/internal/history"
)

// TestEnvironment 封裝測試環境
type TestEnvironment struct {
	RedisClient  *redis.Client
	PostgresPool *pgxpool.Pool
	PostgresDSN  string
	Logger       *slog.Logger
}

func newEnvironment() *TestEnvironment {
	return &TestEnvironment{
		Logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelWarn, // 測試時減少日誌噪音
		})),
	}
}

// SetupRedis 啟動 Redis 容器並建立客戶端
func SetupRedis(t testing.TB) *TestEnvironment {
	t.Helper()

	env := newEnvironment()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}

	env.RedisClient = redis.NewClient(&redis.Options{
		Addr:         endpoint,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	t.Cleanup(func() { _ = env.RedisClient.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := env.RedisClient.Ping(pingCtx).Err(); err != nil {
		t.Fatalf("failed to ping redis: %v", err)
	}
	return env
}

// SetupPostgres 啟動 PostgreSQL 容器、套用資料表定義並建立連線池
func SetupPostgres(t testing.TB) *TestEnvironment {
	t.Helper()

	env := newEnvironment()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}
	env.PostgresDSN = dsn

	if err := history.Migrate(dsn, env.Logger); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	env.PostgresPool, err = pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to create postgres pool: %v", err)
	}
	t.Cleanup(env.PostgresPool.Close)

	if err := env.PostgresPool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping postgres: %v", err)
	}
	return env
}

// TruncateMatches 清空對局紀錄（用於測試之間的清理）
func (env *TestEnvironment) TruncateMatches(t testing.TB) {
	t.Helper()

	if _, err := env.PostgresPool.Exec(context.Background(), "TRUNCATE TABLE matches"); err != nil {
		t.Fatalf("failed to truncate matches: %v", err)
	}
}
