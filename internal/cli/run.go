package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ppiankov/airwatch/internal/dispatch"
	"github.com/ppiankov/airwatch/internal/model"
)

var (
	runOnce          bool
	runInterval      time.Duration
	runDedupInterval time.Duration
	runChannels      []string
	runSink          string
	runDryRun        bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the configured channels and relay alert events",
	Long: `Run polls every configured channel, extracts threat events from new
messages, drops invalid and duplicate events and delivers one notification
per event.

On SIGINT or SIGTERM the current cycle finishes delivering the events it
has already accepted, then the service exits.

Example:
  airwatch run
  airwatch run --once --sink stdout
  airwatch run --channels war_monitor,kpszsu --interval 15s`,
	Args: cobra.NoArgs,
}

func init() {
	// RunE is wired here: runRun reads runCmd's flags, so setting it in the
	// composite literal would form an initialization cycle.
	runCmd.RunE = runRun
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single polling cycle and exit")
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "delay between polling cycles (overrides feeds.poll_interval)")
	runCmd.Flags().DurationVar(&runDedupInterval, "dedup-interval", 0, "duplicate suppression window (overrides dedup.interval)")
	runCmd.Flags().StringSliceVar(&runChannels, "channels", nil, "channels to poll (overrides feeds.channels)")
	runCmd.Flags().StringVar(&runSink, "sink", "", "delivery sink: telegram or stdout (overrides delivery.sink)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "print notifications to stdout instead of delivering them")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, log, appOptions{stdout: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("closing state failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Strs("channels", cfg.Feeds.Channels).
		Str("source", cfg.Feeds.Source).
		Str("sink", cfg.Delivery.Sink).
		Dur("interval", cfg.Feeds.PollInterval).
		Dur("dedup_interval", a.dedup.Interval()).
		Bool("once", runOnce).
		Msg("airwatch started")

	var stats dispatch.Stats
	if runOnce {
		stats = a.dispatcher.RunCycle(ctx)
	} else {
		stats = a.dispatcher.Run(ctx, cfg.Feeds.PollInterval)
	}

	logSummary(log, stats)
	return nil
}

// applyRunFlags layers explicitly set flags over the loaded config
func applyRunFlags(cfg *model.Config) {
	flags := runCmd.Flags()
	if flags.Changed("interval") {
		cfg.Feeds.PollInterval = runInterval
	}
	if flags.Changed("dedup-interval") {
		cfg.Dedup.Interval = runDedupInterval
	}
	if flags.Changed("channels") {
		cfg.Feeds.Channels = trimChannels(runChannels)
	}
	if flags.Changed("sink") {
		cfg.Delivery.Sink = runSink
	}
	if runDryRun {
		cfg.Delivery.Sink = "stdout"
	}
}

// trimChannels accepts "@name", "https://t.me/name" and "name"
func trimChannels(channels []string) []string {
	out := make([]string, 0, len(channels))
	for _, ch := range channels {
		ch = strings.TrimSpace(ch)
		ch = strings.TrimPrefix(ch, "https://t.me/s/")
		ch = strings.TrimPrefix(ch, "https://t.me/")
		ch = strings.TrimPrefix(ch, "@")
		ch = strings.Trim(ch, "/")
		if ch != "" {
			out = append(out, ch)
		}
	}
	return out
}

func logSummary(log zerolog.Logger, stats dispatch.Stats) {
	log.Info().
		Int("messages", stats.Messages).
		Int("accepted", stats.Accepted).
		Int("unresolved", stats.Unresolved).
		Int("skipped", stats.Skipped).
		Int("duplicates", stats.Duplicates).
		Int("delivered", stats.Delivered).
		Int("failed", stats.Failed).
		Int("poll_errors", stats.PollErrors).
		Msg("airwatch stopped")
}
