package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/model"
)

// ExportJSON writes the report as indented JSON.
func ExportJSON(w io.Writer, report *model.WeeklyReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// ExportMarkdown writes a human-readable weekly summary.
func ExportMarkdown(w io.Writer, report *model.WeeklyReport) error {
	var err error
	write := func(format string, args ...interface{}) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, format, args...)
	}

	write("# Weekly Posting Report\n\n")
	write("Week: %s to %s\n\n", report.WeekStart.Format("2006-01-02"), report.WeekEnd.Format("2006-01-02"))
	write("## Summary\n\n")
	write("- Total posts: %d\n", report.Summary.TotalPosts)
	write("- Succeeded: %d\n", report.Summary.TotalSucceeded)
	write("- Failed: %d\n", report.Summary.TotalFailed)
	write("- Success rate: %.1f%%\n", report.Summary.SuccessRate*100)
	write("- Avg engagement: %.2f%%\n\n", report.Summary.AvgEngagementRate*100)

	write("## Platforms\n\n")
	write("| Platform | Posts | Succeeded | Failed | Success rate | Avg latency (ms) | Engagement |\n")
	write("|----------|-------|-----------|--------|--------------|------------------|------------|\n")
	for _, platform := range common.AllPlatforms() {
		pr, ok := report.Platforms[platform]
		if !ok {
			continue
		}
		write("| %s | %d | %d | %d | %.1f%% | %.0f | %.2f%% |\n",
			platform, pr.PostsAttempted, pr.PostsSucceeded, pr.PostsFailed,
			pr.SuccessRate*100, pr.AvgLatencyMS, pr.AvgEngagementRate*100)
	}

	if len(report.Recommendations) > 0 {
		write("\n## Recommendations\n\n")
		for _, rec := range report.Recommendations {
			write("- %s\n", rec)
		}
	}

	return err
}

// ExportCSV writes one row per platform.
func ExportCSV(w io.Writer, report *model.WeeklyReport) error {
	cw := csv.NewWriter(w)

	header := []string{"platform", "posts_attempted", "posts_succeeded", "posts_failed", "success_rate", "avg_latency_ms", "avg_engagement_rate", "errors_count"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, platform := range common.AllPlatforms() {
		pr, ok := report.Platforms[platform]
		if !ok {
			continue
		}
		row := []string{
			string(platform),
			strconv.Itoa(pr.PostsAttempted),
			strconv.Itoa(pr.PostsSucceeded),
			strconv.Itoa(pr.PostsFailed),
			strconv.FormatFloat(pr.SuccessRate, 'f', 4, 64),
			strconv.FormatFloat(pr.AvgLatencyMS, 'f', 1, 64),
			strconv.FormatFloat(pr.AvgEngagementRate, 'f', 4, 64),
			strconv.Itoa(pr.ErrorsCount),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
