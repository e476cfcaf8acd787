package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gab-cat/tarot-bot/internal/domain"
)

// FileStore in-memory реализация storage.IS3Client
type FileStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewFileStore() *FileStore {
	return &FileStore{files: make(map[string][]byte)}
}

func (s *FileStore) Put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
}

func (s *FileStore) GetFile(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", path, domain.ErrNotFound)
	}
	return data, nil
}

func (s *FileStore) ListFiles(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var files []string
	for p := range s.files {
		if strings.HasPrefix(p, prefix) {
			files = append(files, p)
		}
	}
	sort.Strings(files)
	return files, nil
}
