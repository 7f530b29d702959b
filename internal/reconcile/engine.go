// Package reconcile routes inbound webhook events to the flows that bring the
// counterpart tracker up to date.
package reconcile

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/similigh/jira-sync/internal/action"
	"github.com/similigh/jira-sync/internal/core/config"
	"github.com/similigh/jira-sync/internal/core/pipeline"
	"github.com/similigh/jira-sync/internal/core/remote"
	"github.com/similigh/jira-sync/internal/correlation"
	"github.com/similigh/jira-sync/internal/relay"
	"github.com/similigh/jira-sync/internal/translate"
)

// Dependencies holds the collaborators injected into the engine.
type Dependencies struct {
	Config     *config.Config
	Mappings   *config.Mappings
	Executor   action.Executor
	Resolver   *correlation.Resolver
	Translator *translate.Translator
	Relay      *relay.Relay
	Logger     *log.Logger
}

// Request is what a handler receives: the event plus its resolved mapping.
type Request struct {
	Ctx   context.Context
	Event *Event
	Repo  *config.RepositoryMapping
	Log   *log.Entry
}

// ghRepo returns the GitHub side of the request's mapping.
func (r *Request) ghRepo() action.Repo {
	return action.Repo{Owner: r.Repo.GitHubOwner, Name: r.Repo.GitHubName}
}

// chain starts a derived action chain scoped to the request.
func (r *Request) chain() *pipeline.Context {
	return pipeline.NewContext(r.Ctx, r.Log)
}

// Engine is the event router. It is safe for concurrent use; each event is
// processed synchronously by the calling goroutine.
type Engine struct {
	jira     config.JiraConfig
	mappings *config.Mappings

	exec       action.Executor
	resolver   *correlation.Resolver
	translator *translate.Translator
	relay      *relay.Relay

	registry *Registry
	log      *log.Logger
}

// New creates an engine with every supported event kind registered.
func New(deps Dependencies) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	e := &Engine{
		jira:       deps.Config.Jira,
		mappings:   deps.Mappings,
		exec:       deps.Executor,
		resolver:   deps.Resolver,
		translator: deps.Translator,
		relay:      deps.Relay,
		registry:   NewRegistry(),
		log:        logger,
	}

	e.registry.Register(KindIssueOpened, e.onIssueOpened)
	e.registry.Register(KindPullRequestOpened, e.onPullRequestOpened)
	e.registry.Register(KindCommentCreated, e.onCommentCreated)
	e.registry.Register(KindIssueAssigned, e.onAssignment)
	e.registry.Register(KindIssueUnassigned, e.onAssignment)
	e.registry.Register(KindIssueLabeled, e.onLabel)
	e.registry.Register(KindIssueUnlabeled, e.onLabel)
	e.registry.Register(KindJiraIssueCreated, e.onJiraIssueCreated)
	e.registry.Register(KindJiraIssueUpdated, e.onJiraIssueUpdated)
	return e
}

// Kinds lists the event kinds the engine acts on.
func (e *Engine) Kinds() []Kind {
	return e.registry.Kinds()
}

// Handle processes one event to completion. Failures are logged, never
// returned: the sender gets the same acknowledgment either way.
func (e *Engine) Handle(ctx context.Context, ev *Event) {
	entry := e.log.WithFields(log.Fields{
		"event_id": ev.ID,
		"source":   ev.Source,
		"kind":     ev.Kind,
	})

	handler, ok := e.registry.Get(ev.Kind)
	if !ok {
		entry.Debug("ignoring unhandled event kind")
		return
	}

	repo, ok := e.mappingFor(ev)
	if !ok {
		entry.Debug("repository not mapped, ignoring event")
		return
	}
	entry = entry.WithField("repo", repo.FullName())

	req := &Request{Ctx: ctx, Event: ev, Repo: repo, Log: entry}
	if err := handler(req); err != nil {
		entry.WithError(err).Error("event processing failed")
		return
	}
	entry.Debug("event processed")
}

func (e *Engine) mappingFor(ev *Event) (*config.RepositoryMapping, bool) {
	switch ev.Source {
	case remote.GitHub:
		if ev.Repository == "" {
			return nil, false
		}
		return e.mappings.ForGitHub(ev.Repository)
	case remote.Jira:
		if ev.Jira == nil {
			return nil, false
		}
		name, ok := e.resolver.RepositoryName(ev.Jira.Issue)
		if !ok {
			return nil, false
		}
		return e.mappings.ForJira(name)
	default:
		return nil, false
	}
}
