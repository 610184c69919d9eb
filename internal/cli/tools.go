package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/golovatskygroup/hookbase-mcp/internal/registry"
	"github.com/golovatskygroup/hookbase-mcp/internal/tools"
)

// NewToolsCmd creates the "tools" command.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools [query]",
		Short: "List or search the tools the server advertises",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTools,
	}
	cmd.Flags().String("category", "", "Only tools in this category")
	cmd.Flags().Int("limit", 0, "Maximum results (default: all)")
	cmd.Flags().Bool("json", false, "Print results as JSON")
	return cmd
}

func runTools(cmd *cobra.Command, args []string) error {
	reg := registry.NewRegistry()
	tools.Register(reg)

	query := ""
	if len(args) == 1 {
		query = args[0]
	}
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		limit = reg.ToolCount()
	}

	if category != "" {
		known := false
		for _, c := range reg.ListCategories() {
			if c.Name == category {
				known = true
				break
			}
		}
		if !known {
			return exitError(exitConfig, "unknown category %q", category)
		}
	}

	hits := reg.Search(query, category, limit)

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching tools.")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCATEGORY\tDESCRIPTION")
	for _, h := range hits {
		fmt.Fprintf(w, "%s\t%s\t%s\n", h.Name, h.Category, h.Description)
	}
	return w.Flush()
}
