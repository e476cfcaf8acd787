// setup настраивает экран приветствия страницы: кнопку Get Started и текст приветствия.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	messengerAdapter "github.com/gab-cat/tarot-bot/internal/adapters/secondary/messenger"
	"github.com/gab-cat/tarot-bot/internal/pkg/logger"
	"github.com/gab-cat/tarot-bot/internal/usecases/tarot/texts"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	appName   = "tarot_bot_setup"
	envPrefix = "tarot_bot"
)

type config struct {
	Messenger messengerAdapter.Config `envconfig:"MESSENGER"`
	Log       logger.Config           `envconfig:"LOG"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load("deployments/local/.env")

	var cfg config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Messenger.PageAccessToken == "" {
		return fmt.Errorf("TAROT_BOT_MESSENGER_PAGE_ACCESS_TOKEN is required")
	}

	log := logger.New(appName, &cfg.Log)
	client := messengerAdapter.NewClient(&cfg.Messenger, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.SetGetStarted(ctx, texts.PayloadGetStarted); err != nil {
		return fmt.Errorf("failed to configure get started button: %w", err)
	}
	if err := client.SetGreeting(ctx, texts.WelcomeGreeting); err != nil {
		return fmt.Errorf("failed to configure greeting: %w", err)
	}

	log.Info("welcome screen configured")
	return nil
}
