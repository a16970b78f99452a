package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Pipeline  PipelineConfig
	Quota     QuotaConfig
	Telegram  TelegramConfig
	Scheduler SchedulerConfig

	Workers int `env:"MESSAGE_WORKERS, default=8"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=content_system"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// PipelineConfig points at the three remote generation stage endpoints and
// sets the per-stage call policy.
type PipelineConfig struct {
	NicheURL string `env:"STAGE_NICHE_URL"`
	TopicURL string `env:"STAGE_TOPIC_URL"`
	PostURL  string `env:"STAGE_POST_URL"`

	StageTimeout time.Duration `env:"STAGE_TIMEOUT, default=30s"`
	StageRetries int           `env:"STAGE_RETRIES, default=1"`
	Language     string        `env:"STAGE_LANGUAGE, default=en"`
}

type QuotaConfig struct {
	WeeklyPostLimit int `env:"WEEKLY_POST_LIMIT, default=10"`
}

type TelegramConfig struct {
	BotToken    string `env:"TELEGRAM_BOT_TOKEN"`
	AdminChatID int64  `env:"TELEGRAM_ADMIN_CHAT_ID"`
}

// SchedulerConfig sets the daily prompt fire time. Hours and minutes are UTC.
type SchedulerConfig struct {
	Hour   int `env:"REMINDER_HOUR,   default=9"`
	Minute int `env:"REMINDER_MINUTE, default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
