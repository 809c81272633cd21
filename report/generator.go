// Package report derives weekly performance reports from stored metrics.
// Reports are computed on demand and never persisted; exports are plain
// files derived from the in-memory report.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/metrics"
	"github.com/crosspost-labs/crosspost/model"
)

const (
	// lowSuccessRate marks a platform for a retry/configuration review.
	lowSuccessRate = 0.9
	// lowEngagementRate marks a platform for a content review.
	lowEngagementRate = 0.02
)

// Generator builds reports from a metrics store.
type Generator struct {
	store metrics.Store
}

// NewGenerator creates a report generator over the given store.
func NewGenerator(store metrics.Store) *Generator {
	return &Generator{store: store}
}

// WeeklyReport aggregates the seven days starting at weekStart. A zero
// weekStart means the trailing seven days ending now. An empty window
// produces a zero-valued report, not an error.
func (g *Generator) WeeklyReport(ctx context.Context, weekStart time.Time) (*model.WeeklyReport, error) {
	if weekStart.IsZero() {
		weekStart = time.Now().Add(-7 * 24 * time.Hour)
	}
	weekEnd := weekStart.Add(7 * 24 * time.Hour)

	report := &model.WeeklyReport{
		GeneratedAt: time.Now(),
		WeekStart:   weekStart,
		WeekEnd:     weekEnd,
		Platforms:   make(map[common.PlatformType]model.PlatformReport),
	}

	var engagementWeighted float64
	for _, platform := range common.AllPlatforms() {
		pr, err := g.store.PlatformSummary(ctx, platform, weekStart, weekEnd)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize %s metrics: %w", platform, err)
		}
		report.Platforms[platform] = pr

		report.Summary.TotalPosts += pr.PostsAttempted
		report.Summary.TotalSucceeded += pr.PostsSucceeded
		report.Summary.TotalFailed += pr.PostsFailed
		engagementWeighted += pr.AvgEngagementRate * float64(pr.PostsAttempted)
	}

	if report.Summary.TotalPosts > 0 {
		report.Summary.SuccessRate = float64(report.Summary.TotalSucceeded) / float64(report.Summary.TotalPosts)
		report.Summary.AvgEngagementRate = engagementWeighted / float64(report.Summary.TotalPosts)
	}

	report.Recommendations = recommendations(report)

	log.Info().
		Time("week_start", weekStart).
		Int("total_posts", report.Summary.TotalPosts).
		Int("recommendations", len(report.Recommendations)).
		Msg("Generated weekly report")
	return report, nil
}

// recommendations derives advice from the aggregated numbers. Platforms
// are visited in the fixed AllPlatforms order so output is deterministic.
func recommendations(report *model.WeeklyReport) []string {
	var recs []string

	for _, platform := range common.AllPlatforms() {
		pr, ok := report.Platforms[platform]
		if !ok || pr.PostsAttempted == 0 {
			continue
		}

		if pr.SuccessRate < lowSuccessRate {
			recs = append(recs, fmt.Sprintf(
				"%s success rate is %.0f%%; review credentials and rate limit budgets",
				platform, pr.SuccessRate*100))
		}
		if pr.AvgEngagementRate > 0 && pr.AvgEngagementRate < lowEngagementRate {
			recs = append(recs, fmt.Sprintf(
				"%s engagement is %.2f%%; review posting times and content briefs",
				platform, pr.AvgEngagementRate*100))
		}
	}

	return recs
}
