// Package store provides RecordStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/domu/rental-engine/temporal"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records map[string]temporal.Record
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]temporal.Record)}
}

func (m *Memory) InsertFact(_ context.Context, r temporal.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Backstop for the open-version invariant, mirroring the sqlite
	// partial unique index.
	if r.End == nil {
		for _, existing := range m.records {
			if existing.End == nil && existing.ChainRoot() == r.ChainRoot() {
				return temporal.ErrConflict
			}
		}
	}
	m.records[r.ID] = r
	return nil
}

func (m *Memory) GetFact(_ context.Context, id string) (temporal.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok {
		return temporal.Record{}, temporal.ErrFactNotFound
	}
	return r, nil
}

func (m *Memory) CurrentFacts(_ context.Context, propertyID, kind string) ([]temporal.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []temporal.Record
	for _, r := range m.records {
		if r.PropertyID == propertyID && r.Kind == kind && r.Active && r.End == nil {
			out = append(out, r)
		}
	}
	sortChronological(out)
	return out, nil
}

func (m *Memory) ChainCurrent(_ context.Context, rootID string) (temporal.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.records {
		if r.ChainRoot() == rootID && r.Active && r.End == nil {
			return r, nil
		}
	}
	return temporal.Record{}, temporal.ErrFactNotFound
}

func (m *Memory) FactsActiveAt(_ context.Context, propertyID, kind string, at temporal.Date) ([]temporal.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []temporal.Record
	for _, r := range m.records {
		if r.PropertyID == propertyID && r.Kind == kind && r.Active && r.ActiveOn(at) {
			out = append(out, r)
		}
	}
	sortChronological(out)
	return out, nil
}

func (m *Memory) FactsOverlapping(_ context.Context, propertyID, kind string, from, to temporal.Date) ([]temporal.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []temporal.Record
	for _, r := range m.records {
		if r.PropertyID == propertyID && r.Kind == kind && r.Active && r.Overlaps(from, to) {
			out = append(out, r)
		}
	}
	sortChronological(out)
	return out, nil
}

func (m *Memory) ChainVersions(_ context.Context, rootID string) ([]temporal.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []temporal.Record
	for _, r := range m.records {
		if r.ChainRoot() == rootID {
			out = append(out, r)
		}
	}
	sortChronological(out)
	return out, nil
}

func (m *Memory) SetFactEnd(_ context.Context, id string, end *temporal.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return temporal.ErrFactNotFound
	}
	r.End = end
	m.records[id] = r
	return nil
}

func (m *Memory) SetFactActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return temporal.ErrFactNotFound
	}
	r.Active = active
	m.records[id] = r
	return nil
}

func (m *Memory) DeleteFact(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return temporal.ErrFactNotFound
	}
	delete(m.records, id)
	return nil
}

// sortChronological orders records by start date ascending, nulls first,
// with created-at as the stable fallback.
func sortChronological(rs []temporal.Record) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		switch {
		case a.Start == nil && b.Start == nil:
			return a.CreatedAt.Before(b.CreatedAt)
		case a.Start == nil:
			return true
		case b.Start == nil:
			return false
		case !a.Start.Equal(*b.Start):
			return a.Start.Before(*b.Start)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}
