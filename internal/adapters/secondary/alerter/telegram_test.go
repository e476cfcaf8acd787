package alerter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gab-cat/tarot-bot/internal/adapters/secondary/telegram"
	"github.com/gab-cat/tarot-bot/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_DisabledWithoutToken(t *testing.T) {
	assert.Nil(t, NewClient(nil, logger.Nop()))
	assert.Nil(t, NewClient(&Config{ChatID: 1}, logger.Nop()))
}

func TestSendAlert(t *testing.T) {
	var got telegram.SendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7}}`))
	}))
	defer srv.Close()

	thread := int64(42)
	client := newClient(telegram.NewClientWithBaseURL(srv.URL, logger.Nop()), &Config{ChatID: -100, MessageThreadID: &thread}, logger.Nop())

	require.NoError(t, client.SendAlert(context.Background(), "payment-expirer failed"))
	assert.Equal(t, int64(-100), got.ChatID)
	assert.Equal(t, "payment-expirer failed", got.Text)
	require.NotNil(t, got.MessageThreadID)
	assert.Equal(t, int64(42), *got.MessageThreadID)
}

func TestSendAlert_TelegramError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"chat not found"}`))
	}))
	defer srv.Close()

	client := newClient(telegram.NewClientWithBaseURL(srv.URL, logger.Nop()), &Config{ChatID: 1}, logger.Nop())

	err := client.SendAlert(context.Background(), "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
