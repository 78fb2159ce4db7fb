package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/airwatch/internal/extract"
)

// rulesCmd represents the rules command
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the extraction rules in evaluation order",
	Long: `Rules prints the built-in extraction catalog in the order messages are
matched against it. The first matching rule decides the event.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, rule := range extract.NewDefaultEngine().Rules() {
			if _, err := fmt.Fprintf(out, "%3d  %-26s %s\n", rule.Priority, rule.Name, rule.Pattern); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
