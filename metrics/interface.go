// Package metrics persists agent metric snapshots and answers time-range
// queries over them. Three backends exist: an in-memory store for tests
// and single-process runs, MongoDB for durable deployments and a Dapr
// state store for sidecar deployments.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/model"
)

// Query selects snapshots. Zero-value fields match everything; the time
// range is half-open, [Start, End).
type Query struct {
	AgentName string
	Platform  common.PlatformType
	Start     time.Time
	End       time.Time
}

// matches reports whether a snapshot satisfies the query.
func (q Query) matches(s model.MetricSnapshot) bool {
	if q.AgentName != "" && s.AgentName != q.AgentName {
		return false
	}
	if q.Platform != "" && s.Platform != q.Platform {
		return false
	}
	if !q.Start.IsZero() && s.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && !s.Timestamp.Before(q.End) {
		return false
	}
	return true
}

// Store persists and queries metric snapshots. Query results are always
// ordered by snapshot timestamp ascending, regardless of write order.
type Store interface {
	// Store persists one snapshot
	Store(ctx context.Context, snapshot model.MetricSnapshot) error

	// Query returns snapshots matching the query, ordered by timestamp
	Query(ctx context.Context, q Query) ([]model.MetricSnapshot, error)

	// PlatformSummary aggregates one platform's snapshots over a time range
	PlatformSummary(ctx context.Context, platform common.PlatformType, start, end time.Time) (model.PlatformReport, error)

	// Close releases backend resources
	Close(ctx context.Context) error
}

// Config selects and parameterizes a metrics backend.
type Config struct {
	Backend        string
	MongoURI       string
	MongoDatabase  string
	DaprStateStore string
	DaprGRPCPort   string
}

// NewStore creates the configured metrics backend. An empty backend name
// selects the in-memory store.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "mongo":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case "dapr":
		return NewDaprStore(cfg.DaprStateStore, cfg.DaprGRPCPort)
	default:
		return nil, fmt.Errorf("unknown metrics backend: %s", cfg.Backend)
	}
}
