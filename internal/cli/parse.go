package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/airwatch/internal/dispatch"
	"github.com/ppiankov/airwatch/internal/model"
)

var (
	parseLLM bool
	parseGeo bool
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse [text]",
	Short: "Extract the event from a single message",
	Long: `Parse runs one message through normalization, extraction and validation
and prints the result without touching the dedup cache or delivering
anything. The text is read from stdin when no argument is given.

Example:
  airwatch parse "БПЛА курсом на Полтаву"
  echo "Балістика на Одесу" | airwatch parse --geo`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().BoolVar(&parseLLM, "llm", false, "consult the configured LLM fallback when no rule matches")
	parseCmd.Flags().BoolVar(&parseGeo, "geo", false, "resolve coordinates with the configured geocoder")
}

// parseOutput is the printed verdict
type parseOutput struct {
	Outcome      dispatch.Outcome `json:"outcome"`
	Text         string           `json:"normalized_text"`
	Event        *model.Event     `json:"event,omitempty"`
	Reason       string           `json:"reason,omitempty"`
	Notification string           `json:"notification,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	text, err := messageText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Delivery.Sink = "stdout"
	if !parseLLM {
		cfg.LLM.Provider = ""
	}
	if !parseGeo {
		cfg.Geo.Provider = ""
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, log, appOptions{noState: true, stdout: io.Discard})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	msg := model.RawMessage{Feed: "cli", ID: 1, Text: text}
	res := a.dispatcher.Evaluate(ctx, msg)

	out := parseOutput{Outcome: res.Outcome, Text: res.Text, Reason: string(res.Reason)}
	if res.Outcome == dispatch.OutcomeAccepted || res.Outcome == dispatch.OutcomeSkipped {
		ev := res.Event
		if res.Outcome == dispatch.OutcomeAccepted {
			if parseGeo {
				ev = a.enricher.EnrichBatch(ctx, []model.Event{ev})[0]
			}
			out.Notification = dispatch.Format(ev)
		}
		out.Event = &ev
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}

// messageText takes the message from the argument or, failing that, stdin
func messageText(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no message text given")
	}
	return text, nil
}
