package artifact

import (
	"context"
	"sync"

	"github.com/fpang/storyfairy/internal/story"
)

// MemoryStore keeps artifacts in memory. URLs use the memory:// scheme.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
	puts    int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

func (s *MemoryStore) Put(_ context.Context, data []byte, contentType, container, key string) (string, error) {
	c, err := story.ParseContainer(container)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[string(c)+"/"+key] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	s.puts++
	return "memory://" + string(c) + "/" + key, nil
}

func (s *MemoryStore) Get(_ context.Context, container, key string) (*Object, error) {
	c, err := story.ParseContainer(container)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[string(c)+"/"+key]
	if !ok {
		return nil, ErrNotFound
	}
	return &obj, nil
}

// Puts returns how many writes the store has accepted.
func (s *MemoryStore) Puts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
