package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosspost-labs/crosspost/client"
	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/metrics"
	"github.com/crosspost-labs/crosspost/model"
	"github.com/crosspost-labs/crosspost/ratelimit"
)

// mockClient implements client.PlatformClient with overridable behavior.
type mockClient struct {
	platform    common.PlatformType
	connectErr  error
	postFunc    func(ctx context.Context, content client.PostContent) (*client.PostResponse, error)
	health      client.Health
	postCalls   int32
	disconnects int32
}

func (m *mockClient) Connect(ctx context.Context) error { return m.connectErr }

func (m *mockClient) Disconnect(ctx context.Context) error {
	atomic.AddInt32(&m.disconnects, 1)
	return nil
}

func (m *mockClient) Post(ctx context.Context, content client.PostContent) (*client.PostResponse, error) {
	atomic.AddInt32(&m.postCalls, 1)
	if m.postFunc != nil {
		return m.postFunc(ctx, content)
	}
	return &client.PostResponse{ID: "p1", URL: "https://example.com/p1"}, nil
}

func (m *mockClient) HealthProbe(ctx context.Context) client.Health {
	if m.health == "" {
		return client.HealthOK
	}
	return m.health
}

func (m *mockClient) Platform() common.PlatformType { return m.platform }

// mockGenerator implements generator.ContentGenerator.
type mockGenerator struct {
	text  string
	err   error
	calls int32
}

func (m *mockGenerator) Generate(ctx context.Context, brief string, platform common.PlatformType, contentType model.ContentType, opts map[string]interface{}) (string, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.err != nil {
		return "", m.err
	}
	if m.text != "" {
		return m.text, nil
	}
	return brief, nil
}

// metricsStore renames the embedded field below so it does not collide
// with the Store method.
type metricsStore interface {
	metrics.Store
}

// failingStore rejects every write, for testing flush behavior.
type failingStore struct {
	metricsStore
}

func (f *failingStore) Store(ctx context.Context, snapshot model.MetricSnapshot) error {
	return errors.New("store unavailable")
}

func newTestDeps(c *mockClient, g *mockGenerator) Deps {
	if c.platform == "" {
		c.platform = common.PlatformBluesky
	}
	return Deps{
		Name:         "test-agent",
		Platform:     c.platform,
		Client:       c,
		Generator:    g,
		Limiter:      ratelimit.New(ratelimit.Budget{}),
		Metrics:      metrics.NewMemoryStore(),
		RetryBackoff: time.Millisecond,
	}
}

func newRunningAgent(t *testing.T, deps Deps) *BaseAgent {
	t.Helper()

	a, err := NewBaseAgent(deps)
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	return a
}

func TestBaseAgentCreatePostSuccess(t *testing.T) {
	c := &mockClient{}
	g := &mockGenerator{text: "generated text"}
	a := newRunningAgent(t, newTestDeps(c, g))

	result := a.CreatePost(context.Background(), model.PostRequest{Brief: "announce v2"})

	assert.True(t, result.Success)
	assert.Equal(t, "p1", result.PostID)
	assert.Equal(t, "https://example.com/p1", result.URL)
	assert.Equal(t, "generated text", result.Content)
	assert.Empty(t, result.ErrorKind)

	status := a.Status()
	assert.Equal(t, int64(1), status.PostsAttempted)
	assert.Equal(t, int64(1), status.PostsSucceeded)
	assert.Zero(t, status.PostsFailed)
}

func TestBaseAgentGenerationFailureSkipsClient(t *testing.T) {
	c := &mockClient{}
	g := &mockGenerator{err: errors.New("model unavailable")}
	a := newRunningAgent(t, newTestDeps(c, g))

	result := a.CreatePost(context.Background(), model.PostRequest{Brief: "announce v2"})

	assert.False(t, result.Success)
	assert.Equal(t, model.ErrKindContentGeneration, result.ErrorKind)
	assert.Zero(t, atomic.LoadInt32(&c.postCalls), "generation failure never reaches the platform")
}

func TestBaseAgentRetriesOnceOnThrottle(t *testing.T) {
	var calls int32
	c := &mockClient{
		postFunc: func(ctx context.Context, content client.PostContent) (*client.PostResponse, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return nil, &client.RateLimitError{Platform: common.PlatformBluesky, Message: "slow down"}
			}
			return &client.PostResponse{ID: "p2", URL: "https://example.com/p2"}, nil
		},
	}
	a := newRunningAgent(t, newTestDeps(c, &mockGenerator{}))

	result := a.CreatePost(context.Background(), model.PostRequest{Brief: "announce v2"})

	assert.True(t, result.Success)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestBaseAgentSecondThrottleIsFinal(t *testing.T) {
	c := &mockClient{
		postFunc: func(ctx context.Context, content client.PostContent) (*client.PostResponse, error) {
			return nil, &client.RateLimitError{Platform: common.PlatformBluesky, Message: "slow down"}
		},
	}
	a := newRunningAgent(t, newTestDeps(c, &mockGenerator{}))

	result := a.CreatePost(context.Background(), model.PostRequest{Brief: "announce v2"})

	assert.False(t, result.Success)
	assert.Equal(t, model.ErrKindPlatformRateLimit, result.ErrorKind)
	assert.Equal(t, int32(2), atomic.LoadInt32(&c.postCalls), "exactly one retry, never more")
}

func TestBaseAgentPlatformErrorNoRetry(t *testing.T) {
	c := &mockClient{
		postFunc: func(ctx context.Context, content client.PostContent) (*client.PostResponse, error) {
			return nil, &client.PlatformError{Platform: common.PlatformBluesky, Message: "bad request"}
		},
	}
	a := newRunningAgent(t, newTestDeps(c, &mockGenerator{}))

	result := a.CreatePost(context.Background(), model.PostRequest{Brief: "announce v2"})

	assert.False(t, result.Success)
	assert.Equal(t, model.ErrKindPlatform, result.ErrorKind)
	assert.Equal(t, int32(1), atomic.LoadInt32(&c.postCalls))
}

func TestBaseAgentCancelledContext(t *testing.T) {
	c := &mockClient{}
	a := newRunningAgent(t, newTestDeps(c, &mockGenerator{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := a.CreatePost(ctx, model.PostRequest{Brief: "announce v2"})

	assert.False(t, result.Success)
	assert.Equal(t, model.ErrKindCancelled, result.ErrorKind)
}

func TestBaseAgentRejectsWhenNotRunning(t *testing.T) {
	c := &mockClient{}
	a, err := NewBaseAgent(newTestDeps(c, &mockGenerator{}))
	require.NoError(t, err)

	result := a.CreatePost(context.Background(), model.PostRequest{Brief: "announce v2"})

	assert.False(t, result.Success)
	assert.Equal(t, model.ErrKindAgentStartup, result.ErrorKind)
	assert.Zero(t, a.Status().PostsAttempted, "rejected requests do not count as attempts")
}

func TestBaseAgentStartFailure(t *testing.T) {
	c := &mockClient{connectErr: errors.New("no network")}
	a, err := NewBaseAgent(newTestDeps(c, &mockGenerator{}))
	require.NoError(t, err)

	require.Error(t, a.Start(context.Background()))
	assert.Equal(t, StateError, a.Status().State)
}

func TestBaseAgentStopDisconnects(t *testing.T) {
	c := &mockClient{}
	a := newRunningAgent(t, newTestDeps(c, &mockGenerator{}))

	require.NoError(t, a.Stop(context.Background()))
	assert.Equal(t, StateStopped, a.Status().State)
	assert.Equal(t, int32(1), atomic.LoadInt32(&c.disconnects))

	result := a.CreatePost(context.Background(), model.PostRequest{Brief: "announce v2"})
	assert.Equal(t, model.ErrKindAgentStartup, result.ErrorKind)
}

func TestBaseAgentRestart(t *testing.T) {
	c := &mockClient{}
	a := newRunningAgent(t, newTestDeps(c, &mockGenerator{}))

	require.NoError(t, a.Restart(context.Background()))
	assert.Equal(t, StateRunning, a.Status().State)
}

func TestBaseAgentCollectMetrics(t *testing.T) {
	c := &mockClient{}
	deps := newTestDeps(c, &mockGenerator{})
	store := metrics.NewMemoryStore()
	deps.Metrics = store
	a := newRunningAgent(t, deps)

	a.CreatePost(context.Background(), model.PostRequest{Brief: "one"})
	a.CreatePost(context.Background(), model.PostRequest{Brief: "two"})

	snap, err := a.CollectMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.PostsAttempted)
	assert.Equal(t, 2, snap.PostsSucceeded)
	assert.NotEmpty(t, snap.ID)

	stored, err := store.Query(context.Background(), metrics.Query{})
	require.NoError(t, err)
	require.Len(t, stored, 1)

	// A second flush with no new posts reports zeros.
	snap2, err := a.CollectMetrics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap2.PostsAttempted)
	assert.Zero(t, snap2.PostsSucceeded)
}

func TestBaseAgentCollectMetricsKeepsCountersOnStoreFailure(t *testing.T) {
	c := &mockClient{}
	deps := newTestDeps(c, &mockGenerator{})
	deps.Metrics = &failingStore{}
	a := newRunningAgent(t, deps)

	a.CreatePost(context.Background(), model.PostRequest{Brief: "one"})

	_, err := a.CollectMetrics(context.Background())
	require.Error(t, err)

	// Counters survive the failed flush and land in the next snapshot.
	a.deps.Metrics = metrics.NewMemoryStore()
	snap, err := a.CollectMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.PostsAttempted)
}

func TestBaseAgentHealthCheck(t *testing.T) {
	c := &mockClient{health: client.HealthOK}
	a, err := NewBaseAgent(newTestDeps(c, &mockGenerator{}))
	require.NoError(t, err)

	assert.Equal(t, client.HealthDown, a.HealthCheck(context.Background()), "stopped agents report down")

	require.NoError(t, a.Start(context.Background()))
	assert.Equal(t, client.HealthOK, a.HealthCheck(context.Background()))
}

func TestDefaultAgentFactory(t *testing.T) {
	factory := NewDefaultAgentFactory()

	ctor := func(deps Deps) (PlatformAgent, error) {
		return NewBaseAgent(deps)
	}
	require.NoError(t, factory.Register(common.PlatformBluesky, ctor))
	assert.Error(t, factory.Register(common.PlatformBluesky, ctor), "double registration fails")

	deps := newTestDeps(&mockClient{}, &mockGenerator{})
	a, err := factory.CreateAgent(common.PlatformBluesky, deps)
	require.NoError(t, err)
	assert.Equal(t, common.PlatformBluesky, a.Platform())

	_, err = factory.CreateAgent(common.PlatformTelegram, deps)
	assert.Error(t, err)
}
