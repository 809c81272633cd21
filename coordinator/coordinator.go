// Package coordinator wires the platform agents together and fans posting
// requests out to them.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/crosspost-labs/crosspost/agent"
	agentcommon "github.com/crosspost-labs/crosspost/agent/common"
	"github.com/crosspost-labs/crosspost/client"
	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/generator"
	"github.com/crosspost-labs/crosspost/metrics"
	"github.com/crosspost-labs/crosspost/model"
	"github.com/crosspost-labs/crosspost/ratelimit"
	"github.com/crosspost-labs/crosspost/report"
)

// Coordinator owns one agent per enabled platform plus the shared metrics
// store, content generator and report generator.
type Coordinator struct {
	cfg       *common.PosterConfig
	agents    map[common.PlatformType]agent.PlatformAgent
	limiters  map[common.PlatformType]*ratelimit.Limiter
	store     metrics.Store
	reporter  *report.Generator
	startTime time.Time

	mu        sync.Mutex
	running   bool
	scheduled map[string]*time.Timer

	collectCancel context.CancelFunc
	collectDone   chan struct{}
}

// New builds a coordinator from the loaded configuration. Every enabled
// platform gets its own client, limiter and agent; the metrics store and
// generator are shared.
func New(ctx context.Context, cfg *common.PosterConfig) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := metrics.NewStore(ctx, metrics.Config{
		Backend:        cfg.MetricsBackend,
		MongoURI:       cfg.MongoURI,
		MongoDatabase:  cfg.MongoDatabase,
		DaprStateStore: cfg.DaprStateStore,
		DaprGRPCPort:   cfg.DaprGRPCPort,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics store: %w", err)
	}

	var gen generator.ContentGenerator
	if cfg.AnthropicAPIKey != "" {
		gen, err = generator.NewAnthropicGenerator(cfg.AnthropicAPIKey, cfg.GeneratorModel, cfg.GeneratorMaxTokens, cfg.GeneratorTemperature)
		if err != nil {
			store.Close(ctx)
			return nil, fmt.Errorf("failed to create content generator: %w", err)
		}
	} else {
		log.Warn().Msg("No Anthropic API key configured, using template content generator")
		gen = generator.NewTemplateGenerator()
	}

	agentFactory := agent.NewDefaultAgentFactory()
	if err := agentcommon.RegisterAllAgents(agentFactory); err != nil {
		store.Close(ctx)
		return nil, fmt.Errorf("failed to register agents: %w", err)
	}
	clientFactory := client.NewDefaultFactory()

	c := &Coordinator{
		cfg:       cfg,
		agents:    make(map[common.PlatformType]agent.PlatformAgent),
		limiters:  make(map[common.PlatformType]*ratelimit.Limiter),
		store:     store,
		reporter:  report.NewGenerator(store),
		startTime: time.Now(),
		scheduled: make(map[string]*time.Timer),
	}

	for _, platform := range cfg.EnabledPlatforms() {
		pc, _ := cfg.PlatformConfig(platform)

		platformClient, err := clientFactory.CreateClient(platform, cfg.StorageRoot, pc)
		if err != nil {
			store.Close(ctx)
			return nil, fmt.Errorf("failed to create %s client: %w", platform, err)
		}

		limiter := ratelimit.New(ratelimit.Budget{
			PerMinute: pc.RateLimits.PerMinute,
			PerHour:   pc.RateLimits.PerHour,
			PerDay:    pc.RateLimits.PerDay,
		})

		a, err := agentFactory.CreateAgent(platform, agent.Deps{
			Name:         fmt.Sprintf("%s-poster", platform),
			Platform:     platform,
			Config:       pc,
			Client:       platformClient,
			Generator:    gen,
			Limiter:      limiter,
			Metrics:      store,
			PostTimeout:  cfg.PostTimeout,
			RetryBackoff: cfg.RetryBackoff,
		})
		if err != nil {
			store.Close(ctx)
			return nil, fmt.Errorf("failed to create %s agent: %w", platform, err)
		}

		c.agents[platform] = a
		c.limiters[platform] = limiter
	}

	if len(c.agents) == 0 {
		store.Close(ctx)
		return nil, fmt.Errorf("no platforms enabled")
	}

	log.Info().Int("agents", len(c.agents)).Msg("Coordinator initialized")
	return c, nil
}

// StartAllAgents starts every agent concurrently. It returns true only
// when all of them started; agents that fail stay stopped while the rest
// keep running.
func (c *Coordinator) StartAllAgents(ctx context.Context) bool {
	var g errgroup.Group
	var failures sync.Map

	for platform, a := range c.agents {
		g.Go(func() error {
			if err := a.Start(ctx); err != nil {
				log.Error().Err(err).Str("platform", string(platform)).Msg("Agent failed to start")
				failures.Store(platform, err)
			}
			return nil
		})
	}
	g.Wait()

	allStarted := true
	failures.Range(func(_, _ interface{}) bool {
		allStarted = false
		return false
	})

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	if allStarted {
		c.startCollector()
		log.Info().Msg("All agents started")
	} else {
		c.startCollector()
		log.Warn().Msg("Some agents failed to start, continuing with the rest")
	}
	return allStarted
}

// StopAllAgents stops every running agent, best effort. Scheduled posts
// are cancelled and the metrics collector shut down first.
func (c *Coordinator) StopAllAgents(ctx context.Context) bool {
	c.mu.Lock()
	c.running = false
	for id, timer := range c.scheduled {
		timer.Stop()
		delete(c.scheduled, id)
		log.Info().Str("schedule_id", id).Msg("Cancelled scheduled post on shutdown")
	}
	c.mu.Unlock()

	c.stopCollector()

	allStopped := true
	var g errgroup.Group
	var failed sync.Map
	for platform, a := range c.agents {
		g.Go(func() error {
			if a.Status().State != agent.StateRunning && a.Status().State != agent.StateError {
				return nil
			}
			if err := a.Stop(ctx); err != nil {
				log.Error().Err(err).Str("platform", string(platform)).Msg("Agent failed to stop")
				failed.Store(platform, err)
			}
			return nil
		})
	}
	g.Wait()
	failed.Range(func(_, _ interface{}) bool {
		allStopped = false
		return false
	})

	log.Info().Bool("clean", allStopped).Msg("All agents stopped")
	return allStopped
}

// Close stops everything and releases the metrics store.
func (c *Coordinator) Close(ctx context.Context) error {
	c.StopAllAgents(ctx)
	return c.store.Close(ctx)
}

// CreateCoordinatedPost fans the request out to the selected platforms and
// returns one result per platform. A scheduled request returns a nil map
// and the schedule id instead; the fan-out happens when the timer fires.
func (c *Coordinator) CreateCoordinatedPost(ctx context.Context, req model.PostRequest) (map[common.PlatformType]model.PostResult, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	platforms, err := c.resolvePlatforms(req)
	if err != nil {
		return nil, "", err
	}

	if req.ScheduleTime != nil && req.ScheduleTime.After(time.Now()) {
		id := c.schedulePost(req, platforms)
		return nil, id, nil
	}

	return c.fanOut(ctx, req, platforms), "", nil
}

// CancelScheduledPost cancels a pending scheduled post by id.
func (c *Coordinator) CancelScheduledPost(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer, ok := c.scheduled[id]
	if !ok {
		return false
	}
	timer.Stop()
	delete(c.scheduled, id)
	log.Info().Str("schedule_id", id).Msg("Cancelled scheduled post")
	return true
}

// schedulePost arms an in-memory timer for the request. Pending schedules
// do not survive a process restart.
func (c *Coordinator) schedulePost(req model.PostRequest, platforms []common.PlatformType) string {
	id := uuid.NewString()
	delay := time.Until(*req.ScheduleTime)

	c.mu.Lock()
	c.scheduled[id] = time.AfterFunc(delay, func() {
		c.mu.Lock()
		delete(c.scheduled, id)
		c.mu.Unlock()

		log.Info().Str("schedule_id", id).Msg("Scheduled post firing")
		results := c.fanOut(context.Background(), req, platforms)
		for platform, result := range results {
			log.Info().
				Str("schedule_id", id).
				Str("platform", string(platform)).
				Bool("success", result.Success).
				Str("error_kind", string(result.ErrorKind)).
				Msg("Scheduled post result")
		}
	})
	c.mu.Unlock()

	log.Info().
		Str("schedule_id", id).
		Time("fire_at", *req.ScheduleTime).
		Int("platforms", len(platforms)).
		Msg("Post scheduled")
	return id
}

// fanOut runs the request on every selected agent concurrently. One
// platform's failure never cancels the others, so the group carries no
// shared context.
func (c *Coordinator) fanOut(ctx context.Context, req model.PostRequest, platforms []common.PlatformType) map[common.PlatformType]model.PostResult {
	results := make([]model.PostResult, len(platforms))

	var g errgroup.Group
	for i, platform := range platforms {
		a := c.agents[platform]
		g.Go(func() error {
			results[i] = a.CreatePost(ctx, req)
			return nil
		})
	}
	g.Wait()

	out := make(map[common.PlatformType]model.PostResult, len(platforms))
	for i, platform := range platforms {
		out[platform] = results[i]
	}
	return out
}

// resolvePlatforms maps the request's platform list onto configured
// agents. An empty list means every currently running agent.
func (c *Coordinator) resolvePlatforms(req model.PostRequest) ([]common.PlatformType, error) {
	if len(req.Platforms) == 0 {
		platforms := make([]common.PlatformType, 0, len(c.agents))
		for _, platform := range common.AllPlatforms() {
			a, ok := c.agents[platform]
			if !ok {
				continue
			}
			if a.Status().State != agent.StateRunning {
				log.Debug().Str("platform", string(platform)).Msg("Skipping non-running agent in fan-out")
				continue
			}
			platforms = append(platforms, platform)
		}
		if len(platforms) == 0 {
			return nil, fmt.Errorf("no agents are running")
		}
		return platforms, nil
	}

	platforms := make([]common.PlatformType, 0, len(req.Platforms))
	for _, platform := range req.Platforms {
		if _, ok := c.agents[platform]; !ok {
			return nil, fmt.Errorf("platform %s is not enabled", platform)
		}
		platforms = append(platforms, platform)
	}
	return platforms, nil
}

// CollectAllMetrics flushes every agent's counters into the store.
func (c *Coordinator) CollectAllMetrics(ctx context.Context) error {
	var g errgroup.Group
	for platform, a := range c.agents {
		g.Go(func() error {
			if _, err := a.CollectMetrics(ctx); err != nil {
				log.Error().Err(err).Str("platform", string(platform)).Msg("Metrics collection failed")
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// HealthCheck probes every agent and returns the per-platform health.
func (c *Coordinator) HealthCheck(ctx context.Context) map[common.PlatformType]client.Health {
	out := make(map[common.PlatformType]client.Health, len(c.agents))
	var mu sync.Mutex

	var g errgroup.Group
	for platform, a := range c.agents {
		g.Go(func() error {
			h := a.HealthCheck(ctx)
			mu.Lock()
			out[platform] = h
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return out
}

// GetSystemStatus returns the current status of the coordinator
func (c *Coordinator) GetSystemStatus() map[string]interface{} {
	c.mu.Lock()
	running := c.running
	pendingSchedules := len(c.scheduled)
	c.mu.Unlock()

	agents := make(map[string]interface{}, len(c.agents))
	var attempted, succeeded, failed int64
	for platform, a := range c.agents {
		status := a.Status()
		attempted += status.PostsAttempted
		succeeded += status.PostsSucceeded
		failed += status.PostsFailed

		agents[string(platform)] = map[string]interface{}{
			"name":            status.Name,
			"state":           string(status.State),
			"last_error":      status.LastError,
			"posts_attempted": status.PostsAttempted,
			"posts_succeeded": status.PostsSucceeded,
			"posts_failed":    status.PostsFailed,
			"in_flight":       status.InFlight,
			"rate_limits":     c.limiters[platform].Snapshot(),
		}
	}

	return map[string]interface{}{
		"is_running":        running,
		"agent_count":       len(c.agents),
		"agents":            agents,
		"pending_schedules": pendingSchedules,
		"post_stats": map[string]interface{}{
			"attempted": attempted,
			"succeeded": succeeded,
			"failed":    failed,
		},
		"uptime":     time.Since(c.startTime),
		"start_time": c.startTime,
	}
}

// GenerateWeeklyReport builds the weekly report from stored metrics.
func (c *Coordinator) GenerateWeeklyReport(ctx context.Context, weekStart time.Time) (*model.WeeklyReport, error) {
	return c.reporter.WeeklyReport(ctx, weekStart)
}

// startCollector runs the periodic metrics flush until stopCollector.
func (c *Coordinator) startCollector() {
	if c.cfg.CollectInterval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.collectCancel = cancel
	c.collectDone = make(chan struct{})

	go func() {
		defer close(c.collectDone)
		ticker := time.NewTicker(c.cfg.CollectInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := c.CollectAllMetrics(ctx); err != nil {
					log.Warn().Err(err).Msg("Periodic metrics collection incomplete")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info().Dur("interval", c.cfg.CollectInterval).Msg("Metrics collector started")
}

func (c *Coordinator) stopCollector() {
	if c.collectCancel == nil {
		return
	}
	c.collectCancel()
	<-c.collectDone
	c.collectCancel = nil

	// Final flush so counters accumulated since the last tick survive.
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.CollectAllMetrics(flushCtx); err != nil {
		log.Warn().Err(err).Msg("Final metrics flush incomplete")
	}
}
