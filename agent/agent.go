// Package agent defines the platform agent capability and its factory
// registry. Concrete agents live in the per-platform subpackages and
// register themselves through Register.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crosspost-labs/crosspost/client"
	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/generator"
	"github.com/crosspost-labs/crosspost/metrics"
	"github.com/crosspost-labs/crosspost/model"
	"github.com/crosspost-labs/crosspost/ratelimit"
)

// State is the lifecycle state of an agent.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateError    State = "error"
)

// Status is a point-in-time view of one agent, used for system status
// reporting.
type Status struct {
	Name      string              `json:"name"`
	Platform  common.PlatformType `json:"platform"`
	State     State               `json:"state"`
	StartedAt time.Time           `json:"started_at,omitempty"`
	LastError string              `json:"last_error,omitempty"`

	PostsAttempted int64 `json:"posts_attempted"`
	PostsSucceeded int64 `json:"posts_succeeded"`
	PostsFailed    int64 `json:"posts_failed"`
	InFlight       int64 `json:"in_flight"`
}

// PlatformAgent represents a posting agent for any platform
type PlatformAgent interface {
	// Start connects the underlying client and makes the agent ready to post
	Start(ctx context.Context) error

	// Stop drains in-flight posts and disconnects the client
	Stop(ctx context.Context) error

	// CreatePost generates content for the request and publishes it. It
	// never returns an error; failures are carried in the PostResult.
	CreatePost(ctx context.Context, req model.PostRequest) model.PostResult

	// CollectMetrics flushes the agent's counters into a snapshot and
	// persists it
	CollectMetrics(ctx context.Context) (*model.MetricSnapshot, error)

	// HealthCheck probes the platform connection
	HealthCheck(ctx context.Context) client.Health

	// Status returns the current agent status
	Status() Status

	// Platform returns the platform this agent posts to
	Platform() common.PlatformType
}

// Deps carries everything a concrete agent needs. The coordinator builds
// one Deps per enabled platform.
type Deps struct {
	Name      string
	Platform  common.PlatformType
	Config    common.PlatformConfig
	Client    client.PlatformClient
	Generator generator.ContentGenerator
	Limiter   *ratelimit.Limiter
	Metrics   metrics.Store

	PostTimeout  time.Duration
	RetryBackoff time.Duration
}

func (d Deps) validate() error {
	if d.Name == "" {
		return fmt.Errorf("agent name is required")
	}
	if d.Client == nil {
		return fmt.Errorf("agent %s requires a platform client", d.Name)
	}
	if d.Generator == nil {
		return fmt.Errorf("agent %s requires a content generator", d.Name)
	}
	if d.Limiter == nil {
		return fmt.Errorf("agent %s requires a rate limiter", d.Name)
	}
	if d.Metrics == nil {
		return fmt.Errorf("agent %s requires a metrics store", d.Name)
	}
	return nil
}

// Constructor builds a platform agent from its dependencies
type Constructor func(deps Deps) (PlatformAgent, error)

// Factory creates agents based on the platform type
type Factory interface {
	CreateAgent(platform common.PlatformType, deps Deps) (PlatformAgent, error)
}

// DefaultAgentFactory implements Factory with a registry of constructors
type DefaultAgentFactory struct {
	mu           sync.RWMutex
	constructors map[common.PlatformType]Constructor
}

// NewDefaultAgentFactory creates a new DefaultAgentFactory
func NewDefaultAgentFactory() *DefaultAgentFactory {
	return &DefaultAgentFactory{
		constructors: make(map[common.PlatformType]Constructor),
	}
}

// Register registers an agent constructor for a platform
func (f *DefaultAgentFactory) Register(platform common.PlatformType, ctor Constructor) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.constructors[platform]; exists {
		return fmt.Errorf("agent constructor for platform %s already registered", platform)
	}
	f.constructors[platform] = ctor
	return nil
}

// CreateAgent implements Factory
func (f *DefaultAgentFactory) CreateAgent(platform common.PlatformType, deps Deps) (PlatformAgent, error) {
	f.mu.RLock()
	ctor, ok := f.constructors[platform]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no agent registered for platform: %s", platform)
	}
	return ctor(deps)
}
