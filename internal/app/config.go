package app

import (
	"fmt"
	"time"

	server "github.com/gab-cat/tarot-bot/internal/adapters/primary/http"
	alerterAdapter "github.com/gab-cat/tarot-bot/internal/adapters/secondary/alerter"
	"github.com/gab-cat/tarot-bot/internal/adapters/secondary/gemini"
	kafkaAdapter "github.com/gab-cat/tarot-bot/internal/adapters/secondary/kafka"
	messengerAdapter "github.com/gab-cat/tarot-bot/internal/adapters/secondary/messenger"
	"github.com/gab-cat/tarot-bot/internal/adapters/secondary/payment/xendit"
	"github.com/gab-cat/tarot-bot/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/gab-cat/tarot-bot/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/gab-cat/tarot-bot/internal/adapters/secondary/storage/s3"
	"github.com/gab-cat/tarot-bot/internal/pkg/logger"
	"github.com/gab-cat/tarot-bot/internal/services/cardimages"
	"github.com/gab-cat/tarot-bot/internal/services/timers"
	paymentUsecase "github.com/gab-cat/tarot-bot/internal/usecases/payment"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	IngressModeLocal = "local"
	IngressModeKafka = "kafka"
)

type Config struct {
	StorageDriver string                   `envconfig:"STORAGE_DRIVER" default:"postgres"` // postgres | memory
	Postgres      *pg.Config               `envconfig:"POSTGRES"`
	Redis         *redisAdapter.Config     `envconfig:"REDIS"`
	S3            *s3Adapter.Config        `envconfig:"S3"`
	Kafka         *kafkaAdapter.Config     `envconfig:"KAFKA"`
	Messenger     *messengerAdapter.Config `envconfig:"MESSENGER"`
	Gemini        *gemini.Config           `envconfig:"GEMINI"`
	Xendit        *xendit.Config           `envconfig:"XENDIT"`
	Alerter       *alerterAdapter.Config   `envconfig:"ALERTER"`
	Server        *server.Config           `envconfig:"APISERVER"`
	Log           *logger.Config           `envconfig:"LOG"`
	Timers        timers.Config            `envconfig:"TIMERS"`
	Payment       paymentUsecase.Config    `envconfig:"PAYMENT"`
	CardImages    cardimages.Config        `envconfig:"CARD_IMAGES"`
	Bot           BotConfig                `envconfig:"BOT"`
}

// BotConfig настройки самого бота
type BotConfig struct {
	Timezone     string        `envconfig:"TIMEZONE" default:"Asia/Manila"` // граница суток для лимитов
	IngressMode  string        `envconfig:"INGRESS_MODE" default:"local"`   // local | kafka
	MaxInFlight  int64         `envconfig:"MAX_IN_FLIGHT" default:"64"`
	DedupTTL     time.Duration `envconfig:"DEDUP_TTL" default:"24h"`
	AdminToken   string        `envconfig:"ADMIN_TOKEN"`
	CardWarmHour int           `envconfig:"CARD_WARM_HOUR" default:"4"`
}

func NewEnvConfig(envPrefix string) (*Config, error) {
	cfg := &Config{}

	_ = godotenv.Load("deployments/local/.env")

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver: %s", c.StorageDriver)
	}

	switch c.Bot.IngressMode {
	case IngressModeLocal:
	case IngressModeKafka:
		if !c.kafkaEnabled() {
			return fmt.Errorf("ingress mode kafka requires KAFKA_BROKERS")
		}
	default:
		return fmt.Errorf("unknown ingress mode: %s", c.Bot.IngressMode)
	}

	if _, err := time.LoadLocation(c.Bot.Timezone); err != nil {
		return fmt.Errorf("invalid bot timezone %q: %w", c.Bot.Timezone, err)
	}

	if c.Bot.CardWarmHour < 0 || c.Bot.CardWarmHour > 23 {
		return fmt.Errorf("card warm hour must be in 0..23, got %d", c.Bot.CardWarmHour)
	}

	return nil
}

// Опциональные адаптеры включаются по наличию ключевого параметра

func (c *Config) messengerEnabled() bool {
	return c.Messenger != nil && c.Messenger.PageAccessToken != ""
}

func (c *Config) redisEnabled() bool {
	return c.Redis != nil && c.Redis.Host != ""
}

func (c *Config) s3Enabled() bool {
	return c.S3 != nil && c.S3.Host != ""
}

func (c *Config) kafkaEnabled() bool {
	return c.Kafka != nil && c.Kafka.Brokers != ""
}

func (c *Config) geminiEnabled() bool {
	return c.Gemini != nil && c.Gemini.APIKey != ""
}

func (c *Config) xenditEnabled() bool {
	return c.Xendit != nil && c.Xendit.SecretKey != ""
}

func (c *Config) verifyToken() string {
	if c.Messenger == nil {
		return ""
	}
	return c.Messenger.VerifyToken
}
