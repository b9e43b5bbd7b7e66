package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// defaultEnvFile は既定で読み込む.envファイル。
const defaultEnvFile = ".env"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort        string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL           string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:5173"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// アカウントディレクトリ。未設定の場合は埋め込みのデモアカウントのみを使う
	DatabaseURL string `env:"DATABASE_URL"`

	// セッションスロット。REDIS_URLが設定されていればRedis、なければファイルに保存する
	RedisURL        string `env:"REDIS_URL"`
	SessionSlotPath string `env:"SESSION_SLOT_PATH" envDefault:"./data/session.json"`
	SessionSlotKey  string `env:"SESSION_SLOT_KEY" envDefault:"user"`

	// 擬似遅延
	LatencyEnabled bool    `env:"LATENCY_ENABLED" envDefault:"true"`
	LatencyScale   float64 `env:"LATENCY_SCALE" envDefault:"1.0"`

	// Rate Limit（req/min）
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitAuth    int `env:"RATE_LIMIT_AUTH" envDefault:"10"`

	// Analytics
	AnalyticsSchedule string `env:"ANALYTICS_SCHEDULE" envDefault:"@every 30s"`
}

// UseDirectory はアカウントディレクトリ（PostgreSQL）が設定されているかを返す。
func (c Config) UseDirectory() bool {
	return c.DatabaseURL != ""
}

// UseRedisSlot はセッションスロットをRedisに保存するかを返す。
func (c Config) UseRedisSlot() bool {
	return c.RedisURL != ""
}

// LatencyFactor は擬似遅延の倍率を返す。無効の場合は0。
func (c Config) LatencyFactor() float64 {
	if !c.LatencyEnabled {
		return 0
	}
	return c.LatencyScale
}

// SlogLevel はLOG_LEVELをslog.Levelに変換する。
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Load は.envファイルと環境変数からConfigを読み込む。
// filesを省略した場合はカレントディレクトリの.envを読む。ファイルが存在しなければ無視する。
// .envの値は既に設定されている環境変数を上書きしない。
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{defaultEnvFile}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var problems []string

	if c.ServerPort == "" {
		problems = append(problems, "SERVER_PORT must not be empty")
	}
	if c.SessionSlotKey == "" {
		problems = append(problems, "SESSION_SLOT_KEY must not be empty")
	}
	if c.LatencyScale < 0 {
		problems = append(problems, "LATENCY_SCALE must not be negative")
	}
	if c.RateLimitGeneral <= 0 {
		problems = append(problems, "RATE_LIMIT_GENERAL must be positive")
	}
	if c.RateLimitAuth <= 0 {
		problems = append(problems, "RATE_LIMIT_AUTH must be positive")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		problems = append(problems, fmt.Sprintf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
