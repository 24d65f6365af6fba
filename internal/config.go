package internal

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/koopa0/system-design/14-game-rooms/internal/dictionary"
	"github.com/koopa0/system-design/14-game-rooms/internal/game"
)

// DefaultDictionaryEndpoint 預設的線上字典服務
const DefaultDictionaryEndpoint = "https://api.dictionaryapi.dev/api/v2/entries/en"

// Config 整個應用的配置
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Games      GamesConfig      `yaml:"games"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Redis      RedisConfig      `yaml:"redis"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	NATS       NATSConfig       `yaml:"nats"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig HTTP 伺服器
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// WebSocketConfig 連線心跳與緩衝
//
// PingPeriod 必須小於 PongWait，否則健康的連線也會逾時。
type WebSocketConfig struct {
	PingPeriod     time.Duration `yaml:"ping_period"`
	PongWait       time.Duration `yaml:"pong_wait"`
	WriteWait      time.Duration `yaml:"write_wait"`
	SendBuffer     int           `yaml:"send_buffer"`
	MaxMessageSize int64         `yaml:"max_message_size"`
}

// GamesConfig 各遊戲規則參數
type GamesConfig struct {
	RematchTTL    time.Duration `yaml:"rematch_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`

	TicTacToe struct {
		RejoinGrace time.Duration `yaml:"rejoin_grace"`
	} `yaml:"tictactoe"`

	Mancala struct {
		StonesPerPit int `yaml:"stones_per_pit"`
	} `yaml:"mancala"`

	WordHunt struct {
		BoardSize        int           `yaml:"board_size"`
		Duration         time.Duration `yaml:"duration"`
		MinWordLength    int           `yaml:"min_word_length"`
		RequireTraceable bool          `yaml:"require_traceable"`
		TimeUpTolerance  time.Duration `yaml:"time_up_tolerance"`
	} `yaml:"wordhunt"`

	Memory struct {
		Pairs         int           `yaml:"pairs"`
		FlipBackDelay time.Duration `yaml:"flip_back_delay"`
	} `yaml:"memory"`
}

// DictionaryConfig 字典驗證來源
//
// WordList 優先於 Endpoint。Disabled 為 true 時所有字母組合都視為單字。
type DictionaryConfig struct {
	Disabled bool          `yaml:"disabled"`
	Endpoint string        `yaml:"endpoint"`
	WordList string        `yaml:"word_list"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// RedisConfig 字典快取用的 Redis，Addr 為空時不啟用
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// PostgresConfig 對局紀錄資料庫，URL 為空時不啟用
type PostgresConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

// NATSConfig 生命週期事件，URL 為空時不啟用
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// LogConfig 日誌
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig 返回預設配置
func DefaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		WebSocket: WebSocketConfig{
			PingPeriod:     54 * time.Second,
			PongWait:       60 * time.Second,
			WriteWait:      10 * time.Second,
			SendBuffer:     256,
			MaxMessageSize: 4096,
		},
		Dictionary: DictionaryConfig{
			Endpoint: DefaultDictionaryEndpoint,
			Timeout:  5 * time.Second,
			CacheTTL: 24 * time.Hour,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Postgres: PostgresConfig{
			MaxConns: 10,
			MinConns: 2,
		},
		NATS: NATSConfig{
			SubjectPrefix: "games",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}

	cfg.Games.RematchTTL = 5 * time.Minute
	cfg.Games.SweepInterval = time.Minute
	cfg.Games.Mancala.StonesPerPit = game.DefaultStones
	cfg.Games.WordHunt.BoardSize = 4
	cfg.Games.WordHunt.Duration = 180 * time.Second
	cfg.Games.WordHunt.MinWordLength = game.MinWordLength
	cfg.Games.WordHunt.TimeUpTolerance = 3 * time.Second
	cfg.Games.Memory.Pairs = 8
	cfg.Games.Memory.FlipBackDelay = 1200 * time.Millisecond
	return cfg
}

// LoadConfig 讀取 YAML 配置並套用環境變數
//
// 檔案不存在時使用預設值；檔案中未出現的欄位保留預設值。
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		// #nosec G304 - 配置檔路徑來自命令列參數
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 環境變數覆蓋（部署環境常用）
func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
	}
}

// Validate 檢查配置是否合理
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.WebSocket.PingPeriod >= c.WebSocket.PongWait {
		return fmt.Errorf("websocket ping_period (%s) must be shorter than pong_wait (%s)",
			c.WebSocket.PingPeriod, c.WebSocket.PongWait)
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("websocket send_buffer must be positive")
	}

	if !c.Dictionary.Disabled && c.Dictionary.Endpoint == "" && c.Dictionary.WordList == "" {
		return fmt.Errorf("dictionary needs endpoint or word_list unless disabled")
	}

	g := c.Games
	if g.Mancala.StonesPerPit <= 0 {
		return fmt.Errorf("mancala stones_per_pit must be positive")
	}
	if g.WordHunt.BoardSize != 4 && g.WordHunt.BoardSize != 5 {
		return fmt.Errorf("wordhunt board_size must be 4 or 5, got %d", g.WordHunt.BoardSize)
	}
	if g.WordHunt.Duration <= 0 {
		return fmt.Errorf("wordhunt duration must be positive")
	}
	if g.WordHunt.MinWordLength < 1 {
		return fmt.Errorf("wordhunt min_word_length must be at least 1")
	}
	if g.Memory.Pairs < 1 || g.Memory.Pairs > len(game.DefaultCardValues) {
		return fmt.Errorf("memory pairs must be between 1 and %d", len(game.DefaultCardValues))
	}
	if g.Memory.FlipBackDelay < 0 || g.TicTacToe.RejoinGrace < 0 || g.RematchTTL < 0 {
		return fmt.Errorf("games durations must not be negative")
	}
	return nil
}

// NewChecker 依配置建立字典（不含快取）
func (c DictionaryConfig) NewChecker() (dictionary.Checker, error) {
	switch {
	case c.Disabled:
		return dictionary.AcceptAll, nil
	case c.WordList != "":
		words, err := dictionary.LoadWordList(c.WordList)
		if err != nil {
			return nil, fmt.Errorf("load word list: %w", err)
		}
		return words, nil
	case c.Endpoint != "":
		return dictionary.NewHTTPChecker(c.Endpoint, c.Timeout), nil
	}
	return nil, errors.New("no dictionary configured")
}
