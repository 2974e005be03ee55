// Package storage provides the local key-value substrate shared by the
// preference, history, and annotation stores. Access is synchronous and
// best-effort: reads report presence, writes swallow failures so a full
// disk or unwritable data dir degrades to in-session state instead of
// crashing the reader.
package storage

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store is a synchronous local key-value store. There are no
// transactions and no cross-process coordination; concurrent writers
// race with last-writer-wins semantics.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)
}

// FileStore keeps one JSON document per key under a data directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	// Keys are fixed namespace names; the replacement guards against
	// a separator sneaking into a key.
	key = strings.ReplaceAll(key, string(os.PathSeparator), "_")
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (s *FileStore) Set(key string, value []byte) {
	_ = os.WriteFile(s.path(key), value, 0o644)
}

func (s *FileStore) Delete(key string) {
	_ = os.Remove(s.path(key))
}

// MemStore is an in-memory Store used by tests.
type MemStore struct {
	mu     sync.Mutex
	values map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{values: map[string][]byte{}}
}

func (s *MemStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok
}

func (s *MemStore) Set(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
}

func (s *MemStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}
