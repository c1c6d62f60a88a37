package store

import (
	"context"
	"sync"

	"github.com/sells-group/geowave/internal/model"
)

// MemoryStore keeps records in process memory. Each key has its own lock,
// so merges on one key never block merges on another.
type MemoryStore struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	records map[string]model.QueryRecord

	// between runs after the read and before the write of a merge; tests use
	// it to force interleavings.
	between func(key string)
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		locks:   make(map[string]*sync.Mutex),
		records: make(map[string]model.QueryRecord),
	}
}

func (s *MemoryStore) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func (s *MemoryStore) read(key string) *model.QueryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil
	}
	return &rec
}

// Merge implements Store.
func (s *MemoryStore) Merge(_ context.Context, key string, fresh []model.ImageRef) (*model.QueryRecord, error) {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()

	existing := s.read(key)
	if s.between != nil {
		s.between(key)
	}
	rec := MergeImages(existing, fresh)

	s.mu.Lock()
	s.records[key] = rec
	s.mu.Unlock()

	return cloneRecord(rec), nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (*model.QueryRecord, error) {
	rec := s.read(key)
	if rec == nil {
		return nil, nil
	}
	return cloneRecord(*rec), nil
}

// Migrate implements Store. It is a no-op.
func (s *MemoryStore) Migrate(context.Context) error { return nil }

// Close implements Store. It is a no-op.
func (s *MemoryStore) Close() error { return nil }

func cloneRecord(rec model.QueryRecord) *model.QueryRecord {
	out := model.QueryRecord{Count: rec.Count, Images: make([]model.ImageRef, len(rec.Images))}
	copy(out.Images, rec.Images)
	return &out
}
