package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crosspost-labs/crosspost/client"
	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/model"
)

// BaseAgent implements the full posting pipeline shared by every platform:
// limiter acquisition, content generation, publish with a single throttle
// retry, and metric accounting. Platform packages embed it and add their
// own validation and defaults on top.
type BaseAgent struct {
	deps Deps

	mu        sync.Mutex
	state     State
	startedAt time.Time
	lastError string

	// cumulative counters, reported through Status
	totalAttempted int64
	totalSucceeded int64
	totalFailed    int64
	inFlight       int64

	// delta counters since the last successful CollectMetrics flush
	attempted    int
	succeeded    int
	failed       int
	errorsCount  int
	latencySumMS float64

	wg sync.WaitGroup
}

// NewBaseAgent builds the shared agent core.
func NewBaseAgent(deps Deps) (*BaseAgent, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.RetryBackoff <= 0 {
		deps.RetryBackoff = 5 * time.Second
	}
	return &BaseAgent{deps: deps, state: StateStopped}, nil
}

// Start connects the platform client and marks the agent running.
func (a *BaseAgent) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.state == StateRunning || a.state == StateStarting {
		a.mu.Unlock()
		log.Warn().Str("agent", a.deps.Name).Msg("Agent already running")
		return nil
	}
	a.state = StateStarting
	a.mu.Unlock()

	log.Info().Str("agent", a.deps.Name).Str("platform", string(a.deps.Platform)).Msg("Starting agent")

	if err := a.deps.Client.Connect(ctx); err != nil {
		a.mu.Lock()
		a.state = StateError
		a.lastError = err.Error()
		a.mu.Unlock()
		return fmt.Errorf("agent %s failed to start: %w", a.deps.Name, err)
	}

	a.mu.Lock()
	a.state = StateRunning
	a.startedAt = time.Now()
	a.mu.Unlock()

	log.Info().Str("agent", a.deps.Name).Msg("Agent running")
	return nil
}

// Stop drains in-flight posts and disconnects the client. New posts are
// rejected as soon as the state flips to stopping.
func (a *BaseAgent) Stop(ctx context.Context) error {
	a.mu.Lock()
	if a.state != StateRunning && a.state != StateError {
		a.mu.Unlock()
		return fmt.Errorf("agent %s is not running", a.deps.Name)
	}
	a.state = StateStopping
	a.mu.Unlock()

	log.Info().Str("agent", a.deps.Name).Msg("Stopping agent, draining in-flight posts")

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Str("agent", a.deps.Name).Msg("Stop deadline hit before in-flight posts drained")
	}

	err := a.deps.Client.Disconnect(ctx)
	a.setState(StateStopped)
	if err != nil {
		return fmt.Errorf("agent %s disconnect failed: %w", a.deps.Name, err)
	}

	log.Info().Str("agent", a.deps.Name).Msg("Agent stopped")
	return nil
}

// Restart stops and starts the agent in one call.
func (a *BaseAgent) Restart(ctx context.Context) error {
	if err := a.Stop(ctx); err != nil {
		return err
	}
	return a.Start(ctx)
}

// CreatePost runs the posting pipeline for one request. All failures come
// back inside the PostResult so the coordinator can fan out without
// special-casing errors.
func (a *BaseAgent) CreatePost(ctx context.Context, req model.PostRequest) model.PostResult {
	// Rejected requests never count against the agent's posting counters.
	if !a.beginPost() {
		return model.NewFailedResult(a.deps.Platform, model.ErrKindAgentStartup,
			fmt.Errorf("agent %s is not running", a.deps.Name))
	}
	defer a.endPost()

	if a.deps.PostTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.deps.PostTimeout)
		defer cancel()
	}

	if err := a.deps.Limiter.Acquire(ctx); err != nil {
		return a.failure(model.ErrKindCancelled, err)
	}
	defer a.deps.Limiter.Release()

	// Generation failures are final. Retrying the model with the same
	// brief rarely changes the outcome and burns the local budget.
	text, err := a.deps.Generator.Generate(ctx, req.Brief, a.deps.Platform, req.ContentType, req.Options)
	if err != nil {
		log.Error().Err(err).Str("agent", a.deps.Name).Msg("Content generation failed")
		return a.failure(model.ErrKindContentGeneration, err)
	}

	content := client.PostContent{
		Text:        text,
		Title:       req.Option("title", ""),
		ContentType: req.ContentType,
		MediaPath:   req.Option("media_path", ""),
		Metadata:    req.Options,
	}

	return a.publish(ctx, content)
}

// publish submits the content, retrying exactly once when the platform
// itself throttles the call.
func (a *BaseAgent) publish(ctx context.Context, content client.PostContent) model.PostResult {
	for attempt := 1; attempt <= 2; attempt++ {
		start := time.Now()
		resp, err := a.deps.Client.Post(ctx, content)
		if err == nil {
			latency := time.Since(start)
			a.recordSuccess(latency)
			log.Info().
				Str("agent", a.deps.Name).
				Str("post_id", resp.ID).
				Dur("latency", latency).
				Msg("Post published")

			result := model.NewSuccessResult(a.deps.Platform, resp.ID, resp.URL, content.Text)
			result.Metadata = resp.Raw
			return result
		}

		var rle *client.RateLimitError
		if errors.As(err, &rle) && attempt == 1 {
			wait := a.deps.RetryBackoff
			if rle.RetryAfter > 0 {
				wait = rle.RetryAfter
			}
			log.Warn().
				Str("agent", a.deps.Name).
				Dur("wait", wait).
				Msg("Platform throttled the post, retrying once")

			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
				continue
			case <-ctx.Done():
				timer.Stop()
				return a.failure(model.ErrKindCancelled, ctx.Err())
			}
		}

		switch {
		case errors.As(err, &rle):
			return a.failure(model.ErrKindPlatformRateLimit, err)
		case ctx.Err() != nil:
			return a.failure(model.ErrKindCancelled, err)
		default:
			log.Error().Err(err).Str("agent", a.deps.Name).Msg("Post failed")
			return a.failure(model.ErrKindPlatform, err)
		}
	}

	// Unreachable; the loop always returns.
	return a.failure(model.ErrKindPlatform, fmt.Errorf("publish loop exited unexpectedly"))
}

// CollectMetrics flushes the delta counters into a snapshot and persists
// it. Counters reset only after the store write succeeds, so a failed
// flush loses nothing.
func (a *BaseAgent) CollectMetrics(ctx context.Context) (*model.MetricSnapshot, error) {
	a.mu.Lock()
	snap := model.MetricSnapshot{
		ID:             uuid.NewString(),
		AgentName:      a.deps.Name,
		Platform:       a.deps.Platform,
		Timestamp:      time.Now(),
		PostsAttempted: a.attempted,
		PostsSucceeded: a.succeeded,
		PostsFailed:    a.failed,
		ErrorsCount:    a.errorsCount,
	}
	if a.succeeded > 0 {
		snap.AvgLatencyMS = a.latencySumMS / float64(a.succeeded)
	}
	a.mu.Unlock()

	if err := a.deps.Metrics.Store(ctx, snap); err != nil {
		return nil, fmt.Errorf("agent %s failed to store metrics: %w", a.deps.Name, err)
	}

	a.mu.Lock()
	a.attempted -= snap.PostsAttempted
	a.succeeded -= snap.PostsSucceeded
	a.failed -= snap.PostsFailed
	a.errorsCount -= snap.ErrorsCount
	if a.succeeded == 0 {
		a.latencySumMS = 0
	} else {
		a.latencySumMS -= snap.AvgLatencyMS * float64(snap.PostsSucceeded)
	}
	a.mu.Unlock()

	return &snap, nil
}

// HealthCheck probes the platform through the client.
func (a *BaseAgent) HealthCheck(ctx context.Context) client.Health {
	a.mu.Lock()
	state := a.state
	a.mu.Unlock()

	if state != StateRunning {
		return client.HealthDown
	}
	return a.deps.Client.HealthProbe(ctx)
}

// Status implements PlatformAgent.
func (a *BaseAgent) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Status{
		Name:           a.deps.Name,
		Platform:       a.deps.Platform,
		State:          a.state,
		StartedAt:      a.startedAt,
		LastError:      a.lastError,
		PostsAttempted: a.totalAttempted,
		PostsSucceeded: a.totalSucceeded,
		PostsFailed:    a.totalFailed,
		InFlight:       a.inFlight,
	}
}

// Platform implements PlatformAgent.
func (a *BaseAgent) Platform() common.PlatformType {
	return a.deps.Platform
}

// Name returns the agent's configured name.
func (a *BaseAgent) Name() string {
	return a.deps.Name
}

func (a *BaseAgent) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *BaseAgent) beginPost() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateRunning {
		return false
	}
	a.wg.Add(1)
	a.inFlight++
	a.totalAttempted++
	a.attempted++
	return true
}

func (a *BaseAgent) endPost() {
	a.mu.Lock()
	a.inFlight--
	a.mu.Unlock()
	a.wg.Done()
}

func (a *BaseAgent) recordSuccess(latency time.Duration) {
	a.mu.Lock()
	a.totalSucceeded++
	a.succeeded++
	a.latencySumMS += float64(latency.Milliseconds())
	a.mu.Unlock()
}

func (a *BaseAgent) failure(kind model.ErrorKind, err error) model.PostResult {
	a.mu.Lock()
	a.totalFailed++
	a.failed++
	a.errorsCount++
	if err != nil {
		a.lastError = err.Error()
	}
	a.mu.Unlock()
	return model.NewFailedResult(a.deps.Platform, kind, err)
}
