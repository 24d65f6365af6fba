package dictionary

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss 快取中沒有該鍵
var ErrCacheMiss = errors.New("cache miss")

// RedisClient 快取層需要的最小 Redis 操作
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// goRedis 將 go-redis 客戶端轉為 RedisClient
type goRedis struct {
	rdb redis.UniversalClient
}

// NewRedisClient 包裝 go-redis 客戶端
func NewRedisClient(rdb redis.UniversalClient) RedisClient {
	return &goRedis{rdb: rdb}
}

func (g *goRedis) Get(ctx context.Context, key string) (string, error) {
	val, err := g.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return val, err
}

func (g *goRedis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return g.rdb.Set(ctx, key, value, ttl).Err()
}

const (
	cachePrefix = "dict:"
	cachedWord  = "1"
	cachedNot   = "0"
)

// CachedChecker 以 Redis 快取下層驗證器的結果（Cache-Aside）
//
// 正反結果都會快取；下層查詢失敗時不寫入快取。Redis 本身故障時直接查下層。
type CachedChecker struct {
	next   Checker
	client RedisClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedChecker 建立快取驗證器，ttl 為 0 時使用 24 小時
func NewCachedChecker(next Checker, client RedisClient, ttl time.Duration, logger *slog.Logger) *CachedChecker {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedChecker{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Check 實現 Checker
func (c *CachedChecker) Check(ctx context.Context, word string) (bool, error) {
	key := cachePrefix + word

	val, err := c.client.Get(ctx, key)
	switch {
	case err == nil && val == cachedWord:
		return true, nil
	case err == nil && val == cachedNot:
		return false, nil
	case err != nil && !errors.Is(err, ErrCacheMiss):
		c.logger.WarnContext(ctx, "dictionary cache read failed", "word", word, "error", err)
	}

	ok, err := c.next.Check(ctx, word)
	if err != nil {
		return false, err
	}

	verdict := cachedNot
	if ok {
		verdict = cachedWord
	}
	if err := c.client.Set(ctx, key, verdict, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "dictionary cache write failed", "word", word, "error", err)
	}
	return ok, nil
}
