package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/similigh/jira-sync/internal/action"
	"github.com/similigh/jira-sync/internal/core/config"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and Jira credentials",
	Long: `Load and validate the configuration, then fetch the Jira project keys to
confirm the credentials work and every mapped project exists.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	exec, err := connectors(ctx, cfg, logger)
	if err != nil {
		return err
	}

	mappings := config.NewMappings(cfg)
	missing, err := checkProjects(ctx, exec, mappings)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, m := range mappings.All() {
		fmt.Fprintf(out, "%s -> %s (%s)\n", m.FullName(), m.JiraProjectKey, m.JiraName)
	}
	if len(missing) > 0 {
		return fmt.Errorf("jira projects not found: %v", missing)
	}
	fmt.Fprintln(out, "configuration OK")
	return nil
}

// checkProjects returns the mapped project keys Jira does not know about.
func checkProjects(ctx context.Context, exec action.Executor, mappings *config.Mappings) ([]string, error) {
	keys, err := projectKeys(exec)(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jira projects: %w", err)
	}
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = true
	}

	var missing []string
	for _, m := range mappings.All() {
		if !known[m.JiraProjectKey] {
			missing = append(missing, m.JiraProjectKey)
		}
	}
	return missing, nil
}
