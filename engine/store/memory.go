package store

import (
	"context"
	"sync"
	"time"

	"github.com/rae1st/oscillate/engine"
)

// MemoryStore is an in-memory engine.StateStore for tests and embedders
// that do not want persistence.
type MemoryStore struct {
	mu      sync.Mutex
	states  map[int64][]byte
	history map[int64][]*engine.Track
	stats   map[int64]*engine.EntityStats
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:  make(map[int64][]byte),
		history: make(map[int64][]*engine.Track),
		stats:   make(map[int64]*engine.EntityStats),
	}
}

func (s *MemoryStore) SaveState(_ context.Context, entityID int64, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[entityID] = append([]byte(nil), blob...)
	return nil
}

func (s *MemoryStore) LoadState(_ context.Context, entityID int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.states[entityID]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), blob...), nil
}

func (s *MemoryStore) ClearState(_ context.Context, entityID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, entityID)
	return nil
}

func (s *MemoryStore) SaveHistory(_ context.Context, entityID int64, track *engine.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := track.Clone()
	clone.AddedAt = time.Now()
	s.history[entityID] = append([]*engine.Track{clone}, s.history[entityID]...)

	stat, ok := s.stats[entityID]
	if !ok {
		stat = &engine.EntityStats{EntityID: entityID}
		s.stats[entityID] = stat
	}
	stat.TracksPlayed++
	stat.PlaytimeSecond += int64(track.Duration)
	return nil
}

func (s *MemoryStore) History(_ context.Context, entityID int64, limit int) ([]*engine.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tracks := s.history[entityID]
	if limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return append([]*engine.Track(nil), tracks...), nil
}

func (s *MemoryStore) EntityStats(_ context.Context, entityID int64) (*engine.EntityStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stat, ok := s.stats[entityID]; ok {
		copied := *stat
		return &copied, nil
	}
	return &engine.EntityStats{EntityID: entityID}, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
