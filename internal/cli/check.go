package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/golovatskygroup/hookbase-mcp/internal/config"
)

// NewCheckCmd creates the "check" command.
func NewCheckCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Resolve the API key and organization, then exit",
		Long: `check runs the same configuration resolution the server performs before
its first tool call and reports the outcome.

Exit codes: 0 resolved, 2 configuration problem, 3 key rejected, 4 network error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, version)
		},
	}
	cmd.Flags().Bool("json", false, "Print the result as JSON")
	return cmd
}

type checkResult struct {
	OK             bool   `json:"ok"`
	APIURL         string `json:"apiUrl,omitempty"`
	OrganizationID string `json:"organizationId,omitempty"`
	Kind           string `json:"kind,omitempty"`
	Error          string `json:"error,omitempty"`
}

func runCheck(cmd *cobra.Command, version string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), settings.Debug)
	resolver := config.NewResolver(settings, clientFactory(settings, logger, version), logger)

	cfg, resolveErr := resolver.Resolve(cmd.Context())
	res := checkResult{OK: resolveErr == nil, APIURL: cfg.APIURL, OrganizationID: cfg.OrganizationID}
	var re *config.ResolveError
	if errors.As(resolveErr, &re) {
		res.Kind = string(re.Kind)
		res.Error = re.Message
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else if resolveErr == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "API:          %s\nOrganization: %s\n", cfg.APIURL, cfg.OrganizationID)
	}

	if resolveErr != nil {
		return exitError(resolveExitCode(resolveErr), "%s", resolveErr)
	}
	return nil
}
