package model

import (
	"time"

	"github.com/crosspost-labs/crosspost/common"
)

// PlatformReport aggregates the stored snapshots of one platform over a
// time window.
type PlatformReport struct {
	Platform          common.PlatformType `json:"platform"`
	SnapshotCount     int                 `json:"snapshot_count"`
	PostsAttempted    int                 `json:"posts_attempted"`
	PostsSucceeded    int                 `json:"posts_succeeded"`
	PostsFailed       int                 `json:"posts_failed"`
	SuccessRate       float64             `json:"success_rate"`
	AvgLatencyMS      float64             `json:"avg_latency_ms"`
	AvgEngagementRate float64             `json:"avg_engagement_rate"`
	ErrorsCount       int                 `json:"errors_count"`
}

// ReportSummary holds cross-platform totals and averages.
type ReportSummary struct {
	TotalPosts        int     `json:"total_posts"`
	TotalSucceeded    int     `json:"total_succeeded"`
	TotalFailed       int     `json:"total_failed"`
	SuccessRate       float64 `json:"success_rate"`
	AvgEngagementRate float64 `json:"avg_engagement_rate"`
}

// WeeklyReport is derived on demand from stored metrics, exported to zero
// or more formats and then discarded. It is never persisted canonically.
type WeeklyReport struct {
	GeneratedAt     time.Time                              `json:"generated_at"`
	WeekStart       time.Time                              `json:"week_start"`
	WeekEnd         time.Time                              `json:"week_end"`
	Summary         ReportSummary                          `json:"summary"`
	Platforms       map[common.PlatformType]PlatformReport `json:"platforms"`
	Recommendations []string                               `json:"recommendations"`
}
