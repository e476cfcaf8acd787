package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/ports/cache"
	"github.com/redis/go-redis/v9"
)

var _ cache.Cache = (*Client)(nil)

// Client обёртка над redis.Client для работы с кэшем
type Client struct {
	client *redis.Client
	prefix string
}

// NewClient создаёт новый Redis-клиент, все ключи получают prefix
func NewClient(client *redis.Client, prefix string) *Client {
	return &Client{
		client: client,
		prefix: prefix,
	}
}

func (c *Client) key(k string) string {
	return c.prefix + k
}

// Get получает значение по ключу, отсутствие ключа domain.ErrNotFound
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("key %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return val, nil
}

// Set устанавливает значение с TTL
func (c *Client) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// SetNX атомарно занимает ключ
func (c *Client) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.key(key), value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, nil
}

// Delete удаляет значение по ключу
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Exists проверяет существование ключа
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	count, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return count > 0, nil
}

// Close закрывает подключение к кэшу
func (c *Client) Close() error {
	return c.client.Close()
}

// PingContext проверка соединения для /ready
func (c *Client) PingContext(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
