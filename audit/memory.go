package audit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and development.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveEvent(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, filter Filter) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []Event
	for _, evt := range s.events {
		if filter.matches(&evt) {
			matched = append(matched, evt)
		}
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *MemoryStore) Count(ctx context.Context, filter Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, evt := range s.events {
		if filter.matches(&evt) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []Event
	var purged int64
	for _, evt := range s.events {
		if evt.CreatedAt.Before(olderThan) {
			purged++
			continue
		}
		kept = append(kept, evt)
	}
	s.events = kept
	return purged, nil
}

func (f Filter) matches(evt *Event) bool {
	if f.ActorID != "" && evt.ActorID != f.ActorID {
		return false
	}
	if len(f.Types) > 0 && !contains(f.Types, evt.Type) {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, evt.Status) {
		return false
	}
	if !f.Since.IsZero() && evt.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && evt.CreatedAt.After(f.Until) {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
