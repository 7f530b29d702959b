package commands

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/similigh/jira-sync/internal/action"
	"github.com/similigh/jira-sync/internal/core/config"
	"github.com/similigh/jira-sync/internal/core/state"
	"github.com/similigh/jira-sync/internal/correlation"
	ghclient "github.com/similigh/jira-sync/internal/integrations/github"
	"github.com/similigh/jira-sync/internal/integrations/jira"
	"github.com/similigh/jira-sync/internal/reconcile"
	"github.com/similigh/jira-sync/internal/relay"
	"github.com/similigh/jira-sync/internal/translate"
)

// connectors builds the two remote clients behind one executor.
func connectors(ctx context.Context, cfg *config.Config, logger *log.Logger) (*action.Dispatcher, error) {
	jc, err := jira.NewClient(cfg.Jira.URL, cfg.Jira.Username, cfg.Jira.Password, cfg.Server.HTTPTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}
	gc, err := ghclient.NewClient(ctx, cfg.GitHub, cfg.Server.HTTPTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create github client: %w", err)
	}
	return action.NewDispatcher(jc, gc, logger), nil
}

// projectKeys fetches the Jira project keys through exec.
func projectKeys(exec action.Executor) state.KeyFetcher {
	return func(ctx context.Context) ([]string, error) {
		out, err := exec.Execute(ctx, action.GetJiraProjectKeys{})
		if err != nil {
			return nil, err
		}
		return out.ProjectKeys, nil
	}
}

// buildEngine assembles the reconciliation engine around exec.
func buildEngine(cfg *config.Config, exec action.Executor, logger *log.Logger) *reconcile.Engine {
	keys := state.NewProjectKeyCache(projectKeys(exec))
	return reconcile.New(reconcile.Dependencies{
		Config:     cfg,
		Mappings:   config.NewMappings(cfg),
		Executor:   exec,
		Resolver:   correlation.NewResolver(exec, keys, cfg.Jira, logger),
		Translator: translate.New(exec, cfg.Sync.StatusLabelPrefix, logger),
		Relay:      relay.New(exec, logger),
		Logger:     logger,
	})
}
