package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/koopa0/system-design/14-game-rooms/internal"
	"github.com/koopa0/system-design/14-game-rooms/internal/dictionary"
	"github.com/koopa0/system-design/14-game-rooms/internal/events"
	"github.com/koopa0/system-design/14-game-rooms/internal/history"
	"github.com/koopa0/system-design/14-game-rooms/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "配置檔路徑")
		port       = flag.Int("port", 0, "服務器端口（覆蓋配置檔）")
		logLevel   = flag.String("log-level", "", "日誌級別 (debug, info, warn, error)")
		logFormat  = flag.String("log-format", "", "日誌格式 (text, json)")
	)
	flag.Parse()

	cfg, err := internal.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}

	log := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg *internal.Config, log *slog.Logger) error {
	ctx := context.Background()

	dict, closeDict, err := setupDictionary(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDict()

	recorder, closeRecorder, err := setupHistory(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRecorder()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATS.URL != "" {
		p, err := events.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		publisher = p
		log.Info("publishing lifecycle events", "url", cfg.NATS.URL, "prefix", cfg.NATS.SubjectPrefix)
	}
	defer publisher.Close()

	registry := internal.NewRegistry(log)
	coord := internal.NewCoordinator(registry, cfg.Games, internal.Dependencies{
		Dictionary: dict,
		Recorder:   recorder,
		Publisher:  publisher,
	}, log)
	coord.Start()

	hub := internal.NewHub(coord, cfg.WebSocket, log)
	handler := internal.NewHandler(coord, hub, recorder, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("failed to shutdown server", "error", err)
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("failed to force close server", "error", closeErr)
			}
		}
	}

	// 先斷開連線（放棄中的對局會寫入紀錄），再關閉房間
	hub.Stop()
	coord.Shutdown()
	return nil
}

// setupDictionary 組合字典：詞表或 HTTP 端點，設定 Redis 時加上快取；停用時接受所有單字
func setupDictionary(ctx context.Context, cfg *internal.Config, log *slog.Logger) (dictionary.Checker, func(), error) {
	noop := func() {}

	checker, err := cfg.Dictionary.NewChecker()
	if err != nil {
		return nil, noop, err
	}
	switch {
	case cfg.Dictionary.Disabled:
		log.Warn("dictionary disabled, every word is accepted")
		return checker, noop, nil
	case cfg.Dictionary.WordList != "":
		log.Info("using word list dictionary", "path", cfg.Dictionary.WordList)
	default:
		log.Info("using http dictionary", "endpoint", cfg.Dictionary.Endpoint)
	}

	if cfg.Redis.Addr == "" {
		return checker, noop, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, noop, fmt.Errorf("connect redis: %w", err)
	}
	log.Info("caching dictionary lookups", "addr", cfg.Redis.Addr, "ttl", cfg.Dictionary.CacheTTL)

	cached := dictionary.NewCachedChecker(checker, dictionary.NewRedisClient(rdb), cfg.Dictionary.CacheTTL, log)
	return cached, func() { _ = rdb.Close() }, nil
}

// setupHistory 設定 Postgres 時執行遷移並返回對局紀錄器
func setupHistory(ctx context.Context, cfg *internal.Config, log *slog.Logger) (history.Recorder, func(), error) {
	if cfg.Postgres.URL == "" {
		return history.NopRecorder{}, func() {}, nil
	}

	if err := history.Migrate(cfg.Postgres.URL, log); err != nil {
		return nil, func() {}, fmt.Errorf("run migrations: %w", err)
	}

	pgConfig, err := pgxpool.ParseConfig(cfg.Postgres.URL)
	if err != nil {
		return nil, func() {}, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		pgConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		pgConfig.MinConns = cfg.Postgres.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgConfig)
	if err != nil {
		return nil, func() {}, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, func() {}, fmt.Errorf("ping postgres: %w", err)
	}
	log.Info("recording match history")
	return history.NewPostgresRecorder(pool), pool.Close, nil
}
