package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"log/slog"

	"github.com/gab-cat/tarot-bot/internal/ports/storage"
	"github.com/minio/minio-go/v7"
)

// Client обёртка над minio.Client, ключи строятся от prefix (например "cards/")
type Client struct {
	client *minio.Client
	bucket string
	prefix string
	log    *slog.Logger
}

// NewClient создаёт новый S3 клиент
func NewClient(client *minio.Client, bucket, prefix string, log *slog.Logger) storage.IS3Client {
	return &Client{
		client: client,
		bucket: bucket,
		prefix: prefix,
		log:    log,
	}
}

// GetFile получает файл по пути относительно prefix
func (c *Client) GetFile(ctx context.Context, path string) ([]byte, error) {
	key := c.prefix + strings.TrimPrefix(path, "/")
	object, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	c.log.Debug("object fetched", "bucket", c.bucket, "key", key, "size", len(data))
	return data, nil
}

// ListFiles получает список файлов по префиксу, ключи без c.prefix
func (c *Client) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	var files []string

	objectCh := c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    c.prefix + prefix,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects with prefix %s: %w", prefix, object.Err)
		}

		// Пропускаем директории (объекты, заканчивающиеся на /)
		if strings.HasSuffix(object.Key, "/") {
			continue
		}
		files = append(files, strings.TrimPrefix(object.Key, c.prefix))
	}

	return files, nil
}
