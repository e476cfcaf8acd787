package gemini

import "time"

type Config struct {
	// пустой ключ: только шаблонные трактовки
	APIKey      string  `envconfig:"API_KEY"`
	BaseURL     string  `envconfig:"BASE_URL" default:"https://generativelanguage.googleapis.com"`
	ApiVersion  string  `envconfig:"VERSION" default:"v1beta"`
	Model       string  `envconfig:"MODEL" default:"gemini-2.5-flash"`
	Temperature float64 `envconfig:"TEMPERATURE" default:"0.9"`
	MaxTokens   int     `envconfig:"MAX_TOKENS" default:"1024"`
	Timeout     int     `envconfig:"TIMEOUT" default:"30"` // в секундах

	// circuit breaker
	BreakerFailures uint32        `envconfig:"BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `envconfig:"BREAKER_TIMEOUT" default:"30s"`
}
