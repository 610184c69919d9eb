package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/golovatskygroup/hookbase-mcp/internal/config"
	"github.com/golovatskygroup/hookbase-mcp/internal/journal"
)

// NewHistoryCmd creates the "history" command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent tool invocations from the journal",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.Flags().String("tool", "", "Only invocations of this tool")
	cmd.Flags().Int("limit", 20, "Maximum entries")
	cmd.Flags().Bool("json", false, "Print entries as JSON")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if settings.JournalPath == "" {
		return exitError(exitConfig, "no journal configured: pass --journal or set %s", config.EnvJournalPath)
	}

	j, err := journal.Open(settings.JournalPath)
	if err != nil {
		return exitError(exitRuntime, "%s", err)
	}
	defer j.Close()

	tool, _ := cmd.Flags().GetString("tool")
	limit, _ := cmd.Flags().GetInt("limit")
	entries, err := j.Recent(cmd.Context(), tool, limit)
	if err != nil {
		return exitError(exitRuntime, "%s", err)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		if entries == nil {
			entries = []journal.Entry{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No invocations recorded.")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTOOL\tSTATUS\tDURATION\tERROR")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%dms\t%s\n",
			e.ExecutedAt.Local().Format("2006-01-02 15:04:05"), e.Tool, e.Status, e.DurationMS, e.Error)
	}
	return w.Flush()
}
