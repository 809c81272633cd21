package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/coordinator"
	"github.com/crosspost-labs/crosspost/model"
	"github.com/crosspost-labs/crosspost/report"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "crosspost",
		Short:         "Multi-platform posting orchestrator",
		Long:          "crosspost generates content with an LLM and publishes it to Telegram, YouTube and Bluesky through per-platform agents.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newPostCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newStatusCmd())

	return rootCmd
}

func buildCoordinator(ctx context.Context) (*coordinator.Coordinator, error) {
	cfg, err := common.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	return coordinator.New(ctx, cfg)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start all agents and serve until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coord, err := buildCoordinator(ctx)
			if err != nil {
				return err
			}

			coord.StartAllAgents(ctx)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			log.Info().Str("signal", sig.String()).Msg("Shutting down")

			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return coord.Close(stopCtx)
		},
	}
}

func newPostCmd() *cobra.Command {
	var (
		brief       string
		contentType string
		platforms   []string
		schedule    string
		title       string
		mediaPath   string
		hashtags    string
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Generate content and publish it to the selected platforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coord, err := buildCoordinator(ctx)
			if err != nil {
				return err
			}
			defer coord.Close(context.Background())

			req := model.PostRequest{
				Brief:       brief,
				ContentType: model.ContentType(contentType),
				Options:     map[string]interface{}{},
			}
			for _, p := range platforms {
				req.Platforms = append(req.Platforms, common.PlatformType(strings.TrimSpace(p)))
			}
			if title != "" {
				req.Options["title"] = title
			}
			if mediaPath != "" {
				req.Options["media_path"] = mediaPath
			}
			if hashtags != "" {
				req.Options["hashtags"] = hashtags
			}
			if schedule != "" {
				at, err := time.Parse(time.RFC3339, schedule)
				if err != nil {
					return fmt.Errorf("invalid --schedule value %q, want RFC3339: %w", schedule, err)
				}
				req.ScheduleTime = &at
			}

			if !coord.StartAllAgents(ctx) {
				log.Warn().Msg("Not all agents started; posting to the ones that did")
			}

			results, scheduleID, err := coord.CreateCoordinatedPost(ctx, req)
			if err != nil {
				return err
			}
			if scheduleID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "scheduled post %s for %s\n", scheduleID, schedule)
				// Keep the process alive until the scheduled post fires.
				delay := time.Until(*req.ScheduleTime) + 5*time.Second
				log.Info().Dur("wait", delay).Msg("Waiting for scheduled post")
				time.Sleep(delay)
				return nil
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}

			for _, result := range results {
				if !result.Success {
					return fmt.Errorf("one or more platforms failed")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&brief, "brief", "", "what the post should say (required)")
	cmd.Flags().StringVar(&contentType, "content-type", "text", "content type: text, image or video")
	cmd.Flags().StringSliceVar(&platforms, "platforms", nil, "platforms to post to (default: all enabled)")
	cmd.Flags().StringVar(&schedule, "schedule", "", "RFC3339 time to publish at instead of now")
	cmd.Flags().StringVar(&title, "title", "", "post title, used by platforms that have one")
	cmd.Flags().StringVar(&mediaPath, "media", "", "path to a media file for video posts")
	cmd.Flags().StringVar(&hashtags, "hashtags", "", "hashtags appended to the generated text")
	cmd.MarkFlagRequired("brief")

	return cmd
}

func newReportCmd() *cobra.Command {
	var (
		weekStart string
		format    string
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the weekly performance report from stored metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coord, err := buildCoordinator(ctx)
			if err != nil {
				return err
			}
			defer coord.Close(context.Background())

			var start time.Time
			if weekStart != "" {
				start, err = time.Parse("2006-01-02", weekStart)
				if err != nil {
					return fmt.Errorf("invalid --week-start value %q, want YYYY-MM-DD: %w", weekStart, err)
				}
			}

			weekly, err := coord.GenerateWeeklyReport(ctx, start)
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create report file: %w", err)
				}
				defer f.Close()
				out = f
			}

			switch format {
			case "json":
				return report.ExportJSON(out, weekly)
			case "markdown", "md":
				return report.ExportMarkdown(out, weekly)
			case "csv":
				return report.ExportCSV(out, weekly)
			default:
				return fmt.Errorf("unknown report format %q, want json, markdown or csv", format)
			}
		},
	}

	cmd.Flags().StringVar(&weekStart, "week-start", "", "first day of the report week (YYYY-MM-DD, default: trailing 7 days)")
	cmd.Flags().StringVar(&format, "format", "markdown", "output format: json, markdown or csv")
	cmd.Flags().StringVar(&outPath, "out", "", "write the report to a file instead of stdout")

	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the coordinator status as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coord, err := buildCoordinator(ctx)
			if err != nil {
				return err
			}
			defer coord.Close(context.Background())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(coord.GetSystemStatus())
		},
	}
}
