package metrics

import (
	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/model"
)

// Summarize aggregates snapshots into one platform report. Averages are
// weighted by attempted posts so a busy snapshot counts more than an idle
// one; an empty input yields a zero report rather than NaN rates.
func Summarize(platform common.PlatformType, snapshots []model.MetricSnapshot) model.PlatformReport {
	report := model.PlatformReport{Platform: platform}

	var latencyWeighted, engagementWeighted float64
	for _, s := range snapshots {
		report.SnapshotCount++
		report.PostsAttempted += s.PostsAttempted
		report.PostsSucceeded += s.PostsSucceeded
		report.PostsFailed += s.PostsFailed
		report.ErrorsCount += s.ErrorsCount

		latencyWeighted += s.AvgLatencyMS * float64(s.PostsAttempted)
		engagementWeighted += s.EngagementRate * float64(s.PostsAttempted)
	}

	if report.PostsAttempted > 0 {
		report.SuccessRate = float64(report.PostsSucceeded) / float64(report.PostsAttempted)
		report.AvgLatencyMS = latencyWeighted / float64(report.PostsAttempted)
		report.AvgEngagementRate = engagementWeighted / float64(report.PostsAttempted)
	}

	return report
}
