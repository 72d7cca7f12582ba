package infrastructure

import (
	"context"
	"sort"
	"sync"

	"gridfeed/internal/modules/prices/application/port"
	"gridfeed/internal/modules/prices/domain"
)

// MemoryStore keeps price documents in process memory. It lives and dies
// with the service: a restart starts empty and relies on the consumer's
// full replay to repopulate. One writer and any number of readers may use it
// concurrently; documents are replaced wholesale so readers never observe a
// partially written entry.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[domain.Topic]map[string]domain.Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[domain.Topic]map[string]domain.Document)}
}

func (s *MemoryStore) Get(ctx context.Context, topic domain.Topic, day string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.entries[topic][day]
	if !ok {
		return domain.Document{}, port.ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (s *MemoryStore) Put(ctx context.Context, doc domain.Document) error {
	if doc.Day == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entries[doc.Topic] == nil {
		s.entries[doc.Topic] = make(map[string]domain.Document)
	}
	s.entries[doc.Topic][doc.Day] = cloneDocument(doc)
	return nil
}

func (s *MemoryStore) ListDays(ctx context.Context, topic domain.Topic) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := make([]string, 0, len(s.entries[topic]))
	for day := range s.entries[topic] {
		days = append(days, day)
	}
	sort.Strings(days)
	return days, nil
}

func (s *MemoryStore) EntryCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, days := range s.entries {
		total += len(days)
	}
	return total, nil
}

func cloneDocument(doc domain.Document) domain.Document {
	cloned := doc
	cloned.Payload = append([]byte(nil), doc.Payload...)
	return cloned
}

var _ port.PriceStore = (*MemoryStore)(nil)
