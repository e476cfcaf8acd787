package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/sony/gobreaker/v2"
)

// truncateString обрезает строку до указанной длины
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Client клиент Gemini generateContent с circuit breaker
type Client struct {
	cfg        *Config
	HTTPClient *http.Client
	Log        *slog.Logger
	breaker    *gobreaker.CircuitBreaker[string]
}

// NewClient создаёт новый клиент Gemini
func NewClient(cfg *Config, log *slog.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		cfg:        cfg,
		HTTPClient: &http.Client{Timeout: timeout},
		Log:        log,
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	c.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// отмена контекста вызывающим не считается сбоем провайдера
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return c
}

// buildURL собирает полный URL из BaseURL, ApiVersion и модели
func (c *Client) buildURL() string {
	baseURL := strings.TrimSuffix(c.cfg.BaseURL, "/")
	return fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s",
		baseURL, c.cfg.ApiVersion, c.cfg.Model, url.QueryEscape(c.cfg.APIKey))
}

// Generate один вызов модели. Любой сбой и открытый breaker отдаются как domain.ErrProviderUnavailable
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := c.breaker.Execute(func() (string, error) {
		return c.generate(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.Log.Debug("gemini breaker rejected call", "state", c.breaker.State().String())
		}
		return "", fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return text, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	req := GenerateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     c.cfg.Temperature,
			MaxOutputTokens: c.cfg.MaxTokens,
		},
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Ошибка внешнего API - Debug
		c.Log.Debug("gemini returned non-200 status",
			"status_code", resp.StatusCode,
			"body_preview", truncateString(string(body), 200),
		)
		return "", fmt.Errorf("gemini error [status=%d]: %s", resp.StatusCode, truncateString(string(body), 500))
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		c.Log.Debug("failed to unmarshal gemini response",
			"error", err,
			"body_preview", truncateString(string(body), 200),
		)
		return "", fmt.Errorf("gemini unmarshal failed: %w", err)
	}
	if genResp.Error != nil {
		return "", fmt.Errorf("gemini error %d %s: %s", genResp.Error.Code, genResp.Error.Status, genResp.Error.Message)
	}

	text := strings.TrimSpace(genResp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	return text, nil
}
