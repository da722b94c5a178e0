package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned by Retrieve for unknown names
var ErrNotFound = errors.New("report not found")

// MemoryStorage keeps reports in process. It is used when no storage account is configured.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// Ensure MemoryStorage implements StorageInterface
var _ StorageInterface = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string][]byte)}
}

func (s *MemoryStorage) Store(_ context.Context, name string, data []byte) error {
	if !IsReportName(name) {
		return fmt.Errorf("refusing to archive %s: report names end in %s", name, reportExt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[name] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStorage) Retrieve(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.items[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return append([]byte(nil), data...), nil
}

// List returns matching report names in lexical order
func (s *MemoryStorage) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for name := range s.items {
		if strings.HasPrefix(name, prefix) && IsReportName(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStorage) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, name)
	return nil
}
