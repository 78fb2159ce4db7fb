package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/airwatch/internal/feed"
)

var replaySink string

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay <messages.jsonl>",
	Short: "Run one pipeline cycle over a recorded message dump",
	Long: `Replay feeds every message of a JSON Lines dump through the full
pipeline in one cycle: extraction, validation, deduplication, enrichment
and delivery. Each line is one message:

  {"feed":"war_monitor","id":101,"text":"БПЛА курсом на Полтаву"}

Feeds are processed in order of first appearance, messages of a feed in
ascending id order. Notifications go to stdout unless --sink is given.

Example:
  airwatch replay testdata/night.jsonl
  airwatch replay night.jsonl --sink telegram`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replaySink, "sink", "stdout", "delivery sink: stdout or telegram")
}

func runReplay(cmd *cobra.Command, args []string) error {
	path := args[0]
	msgs, err := feed.ReadMessages(path)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Feeds.Source = "file"
	cfg.Feeds.File = path
	cfg.Feeds.SkipBacklog = false
	cfg.Feeds.Channels = nil
	seen := make(map[string]bool)
	for _, m := range msgs {
		if !seen[m.Feed] {
			seen[m.Feed] = true
			cfg.Feeds.Channels = append(cfg.Feeds.Channels, m.Feed)
		}
	}
	cfg.Delivery.Sink = replaySink
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, log, appOptions{noState: true, stdout: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	stats := a.dispatcher.RunCycle(cmd.Context())
	logSummary(log, stats)
	return nil
}
