package metrics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/model"
)

// MemoryStore keeps snapshots in process memory, sorted by timestamp.
// It is the default backend and the one tests run against.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots []model.MetricSnapshot
}

// NewMemoryStore creates an empty in-memory metrics store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Store implements Store. Snapshots are inserted in timestamp order so
// queries never need to re-sort.
func (m *MemoryStore) Store(ctx context.Context, snapshot model.MetricSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := sort.Search(len(m.snapshots), func(i int) bool {
		return m.snapshots[i].Timestamp.After(snapshot.Timestamp)
	})
	m.snapshots = append(m.snapshots, model.MetricSnapshot{})
	copy(m.snapshots[idx+1:], m.snapshots[idx:])
	m.snapshots[idx] = snapshot
	return nil
}

// Query implements Store.
func (m *MemoryStore) Query(ctx context.Context, q Query) ([]model.MetricSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.MetricSnapshot
	for _, s := range m.snapshots {
		if q.matches(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

// PlatformSummary implements Store.
func (m *MemoryStore) PlatformSummary(ctx context.Context, platform common.PlatformType, start, end time.Time) (model.PlatformReport, error) {
	snapshots, err := m.Query(ctx, Query{Platform: platform, Start: start, End: end})
	if err != nil {
		return model.PlatformReport{}, err
	}
	return Summarize(platform, snapshots), nil
}

// Close implements Store.
func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}
