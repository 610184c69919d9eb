package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the hookbase-mcp command tree. Without a subcommand it
// serves MCP over stdio.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "hookbase-mcp",
		Short: "MCP server for the Hookbase webhook relay",
		Long: `hookbase-mcp exposes the Hookbase API as Model Context Protocol tools.

It reads HOOKBASE_API_KEY (required), HOOKBASE_API_URL and HOOKBASE_ORG_ID
from the environment and speaks JSON-RPC on stdin/stdout.`,
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         serveRunE(version),
	}
	root.SetVersionTemplate("hookbase-mcp {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to YAML config file")
	flags.Bool("debug", false, "Enable debug logging (also HOOKBASE_DEBUG)")
	flags.Bool("strict", false, "Hide tools until the configuration resolves (also HOOKBASE_STRICT)")
	flags.String("journal", "", "SQLite file recording tool invocations (also HOOKBASE_JOURNAL_PATH)")

	root.AddCommand(NewServeCmd(version))
	root.AddCommand(NewCheckCmd(version))
	root.AddCommand(NewToolsCmd())
	root.AddCommand(NewHistoryCmd())
	return root
}
