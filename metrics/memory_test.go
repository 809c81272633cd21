package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/model"
)

func snapshotAt(t time.Time, platform common.PlatformType, attempted, succeeded int) model.MetricSnapshot {
	return model.MetricSnapshot{
		ID:             uuid.NewString(),
		AgentName:      string(platform) + "-agent",
		Platform:       platform,
		Timestamp:      t,
		PostsAttempted: attempted,
		PostsSucceeded: succeeded,
		PostsFailed:    attempted - succeeded,
		ErrorsCount:    attempted - succeeded,
	}
}

func TestMemoryStoreOrdersByTimestamp(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Written out of order on purpose.
	for _, offset := range []time.Duration{2 * time.Hour, 0, time.Hour} {
		require.NoError(t, store.Store(ctx, snapshotAt(base.Add(offset), common.PlatformTelegram, 1, 1)))
	}

	got, err := store.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Timestamp.Before(got[i-1].Timestamp))
	}
}

func TestMemoryStoreQueryFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Store(ctx, snapshotAt(base, common.PlatformTelegram, 5, 4)))
	require.NoError(t, store.Store(ctx, snapshotAt(base.Add(time.Hour), common.PlatformBluesky, 3, 3)))
	require.NoError(t, store.Store(ctx, snapshotAt(base.Add(2*time.Hour), common.PlatformTelegram, 2, 2)))

	byPlatform, err := store.Query(ctx, Query{Platform: common.PlatformTelegram})
	require.NoError(t, err)
	assert.Len(t, byPlatform, 2)

	byAgent, err := store.Query(ctx, Query{AgentName: "bluesky-agent"})
	require.NoError(t, err)
	assert.Len(t, byAgent, 1)
}

// TestMemoryStoreHalfOpenRange pins the [start, end) window semantics: a
// snapshot exactly at end is excluded, one exactly at start included.
func TestMemoryStoreHalfOpenRange(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	require.NoError(t, store.Store(ctx, snapshotAt(start, common.PlatformTelegram, 1, 1)))
	require.NoError(t, store.Store(ctx, snapshotAt(end.Add(-time.Second), common.PlatformTelegram, 1, 1)))
	require.NoError(t, store.Store(ctx, snapshotAt(end, common.PlatformTelegram, 1, 1)))

	got, err := store.Query(ctx, Query{Start: start, End: end})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMemoryStoreConcurrentWrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap := snapshotAt(base.Add(time.Duration(i)*time.Minute), common.PlatformBluesky, 1, 1)
			assert.NoError(t, store.Store(ctx, snap))
		}(i)
	}
	wg.Wait()

	got, err := store.Query(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, got, 50)
}

func TestPlatformSummary(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	s1 := snapshotAt(base, common.PlatformYouTube, 8, 6)
	s1.AvgLatencyMS = 100
	s1.EngagementRate = 0.05
	s2 := snapshotAt(base.Add(time.Hour), common.PlatformYouTube, 2, 2)
	s2.AvgLatencyMS = 200
	s2.EngagementRate = 0.10

	require.NoError(t, store.Store(ctx, s1))
	require.NoError(t, store.Store(ctx, s2))
	// Another platform's snapshot never leaks into the summary.
	require.NoError(t, store.Store(ctx, snapshotAt(base, common.PlatformTelegram, 100, 0)))

	report, err := store.PlatformSummary(ctx, common.PlatformYouTube, base, base.Add(2*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 2, report.SnapshotCount)
	assert.Equal(t, 10, report.PostsAttempted)
	assert.Equal(t, 8, report.PostsSucceeded)
	assert.InDelta(t, 0.8, report.SuccessRate, 1e-9)
	assert.InDelta(t, 120.0, report.AvgLatencyMS, 1e-9, "latency average is weighted by attempts")
	assert.InDelta(t, 0.06, report.AvgEngagementRate, 1e-9)
}

func TestPlatformSummaryEmptyWindow(t *testing.T) {
	store := NewMemoryStore()

	report, err := store.PlatformSummary(context.Background(), common.PlatformTelegram, time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.Zero(t, report.SnapshotCount)
	assert.Zero(t, report.SuccessRate)
	assert.Zero(t, report.AvgLatencyMS)
}

func TestNewStoreSelectsBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default is memory", cfg: Config{}},
		{name: "explicit memory", cfg: Config{Backend: "memory"}},
		{name: "mongo without uri", cfg: Config{Backend: "mongo"}, wantErr: true},
		{name: "dapr without store name", cfg: Config{Backend: "dapr"}, wantErr: true},
		{name: "unknown backend", cfg: Config{Backend: "redis"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(context.Background(), tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, &MemoryStore{}, store)
		})
	}
}

func TestSummarizeIgnoresIdleSnapshotsInAverages(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	busy := snapshotAt(base, common.PlatformBluesky, 4, 4)
	busy.AvgLatencyMS = 50

	idle := model.MetricSnapshot{
		ID:        uuid.NewString(),
		AgentName: "bluesky-agent",
		Platform:  common.PlatformBluesky,
		Timestamp: base.Add(time.Minute),
	}

	report := Summarize(common.PlatformBluesky, []model.MetricSnapshot{busy, idle})
	assert.Equal(t, 2, report.SnapshotCount)
	assert.InDelta(t, 50.0, report.AvgLatencyMS, 1e-9)
	assert.InDelta(t, 1.0, report.SuccessRate, 1e-9)
}
