package model

import (
	"time"

	"github.com/crosspost-labs/crosspost/common"
)

// MetricSnapshot is one immutable, timestamped bundle of metric values
// written by exactly one agent. Stores append and query snapshots; they
// never mutate one after the fact.
type MetricSnapshot struct {
	ID             string              `json:"id" bson:"_id"`
	AgentName      string              `json:"agent_name" bson:"agent_name"`
	Platform       common.PlatformType `json:"platform" bson:"platform"`
	Timestamp      time.Time           `json:"timestamp" bson:"timestamp"`
	PostsAttempted int                 `json:"posts_attempted" bson:"posts_attempted"`
	PostsSucceeded int                 `json:"posts_succeeded" bson:"posts_succeeded"`
	PostsFailed    int                 `json:"posts_failed" bson:"posts_failed"`
	AvgLatencyMS   float64             `json:"avg_latency_ms" bson:"avg_latency_ms"`
	EngagementRate float64             `json:"engagement_rate" bson:"engagement_rate"`
	ErrorsCount    int                 `json:"errors_count" bson:"errors_count"`
	Extra          map[string]float64  `json:"extra,omitempty" bson:"extra,omitempty"`
}
