package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Encoding  string `envconfig:"ENCODING" default:"console"`
	Level     string `envconfig:"LEVEL" default:"info"`
	AddSource bool   `envconfig:"ADD_SOURCE" default:"false"`
}

// New логгер приложения: json в stdout или текст в stderr
func New(app string, cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = &Config{}
	}

	var w io.Writer = os.Stderr
	if cfg.Encoding == "json" {
		w = os.Stdout
	}
	return NewWithWriter(app, cfg, w)
}

// NewWithWriter то же, что New, но с явным writer
func NewWithWriter(app string, cfg *Config, w io.Writer) *slog.Logger {
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "console"
	}
	levelName := cfg.Level
	if levelName == "" {
		levelName = "info"
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(levelName),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch encoding {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "console":
		handler = slog.NewTextHandler(w, opts)
	default:
		panic(fmt.Errorf("invalid logger config: encoding %s is not supported", encoding))
	}

	return slog.New(handler).With("app", app)
}

// Nop логгер без вывода, для тестов
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// parseLevel парсит строковый уровень в slog.Level
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		panic(fmt.Errorf("invalid logger config: level %s is not supported", level))
	}
}

// SetDefault устанавливает логгер по умолчанию
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
