// Package webhook receives GitHub and Jira webhook deliveries and hands them
// to the reconciliation engine. Every delivery is acknowledged with 200,
// whatever happens to it afterwards.
package webhook

import (
	"context"
	"io"
	"net/http"

	"github.com/google/go-github/v60/github"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/similigh/jira-sync/internal/integrations/jira"
	"github.com/similigh/jira-sync/internal/reconcile"
)

// Routes.
const (
	GitHubPath = "/ghwh"
	JiraPath   = "/jwh"
	HealthPath = "/healthz"
)

const jiraDeliveryHeader = "X-Atlassian-Webhook-Identifier"

// Dispatcher processes one inbound event to completion.
type Dispatcher interface {
	Handle(ctx context.Context, ev *reconcile.Event)
}

// Register wires the webhook routes on e.
func Register(e *echo.Echo, d Dispatcher, secret string, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	h := &handlers{dispatch: d, secret: []byte(secret), log: logger.WithField("component", "webhook")}

	e.POST(GitHubPath, h.github)
	e.POST(JiraPath, h.jira)
	e.GET(HealthPath, healthz)
}

// NewServer builds an echo instance serving the webhook routes.
func NewServer(d Dispatcher, secret string, logger *log.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	Register(e, d, secret, logger)
	return e
}

type handlers struct {
	dispatch Dispatcher
	secret   []byte
	log      *log.Entry
}

func healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *handlers) github(c echo.Context) error {
	req := c.Request()
	eventType := github.WebHookType(req)
	id := github.DeliveryID(req)
	entry := h.log.WithFields(log.Fields{"delivery": id, "event": eventType})

	body, err := io.ReadAll(req.Body)
	if err != nil {
		entry.WithError(err).Warn("failed to read github delivery")
		return c.NoContent(http.StatusOK)
	}

	if len(h.secret) > 0 {
		sig := req.Header.Get(github.SHA256SignatureHeader)
		if sig == "" {
			sig = req.Header.Get(github.SHA1SignatureHeader)
		}
		if err := github.ValidateSignature(sig, body, h.secret); err != nil {
			entry.WithError(err).Warn("dropping github delivery with invalid signature")
			return c.NoContent(http.StatusOK)
		}
	}

	payload, err := github.ParseWebHook(eventType, body)
	if err != nil {
		entry.WithError(err).Debug("ignoring unparseable github delivery")
		return c.NoContent(http.StatusOK)
	}

	h.handle(req.Context(), entry, reconcile.FromGitHub(id, eventType, payload))
	return c.NoContent(http.StatusOK)
}

func (h *handlers) jira(c echo.Context) error {
	req := c.Request()
	id := req.Header.Get(jiraDeliveryHeader)

	body, err := io.ReadAll(req.Body)
	if err != nil {
		h.log.WithError(err).Warn("failed to read jira delivery")
		return c.NoContent(http.StatusOK)
	}

	ev, err := jira.ParseEvent(body)
	if err != nil {
		h.log.WithError(err).WithField("delivery", id).Warn("ignoring unparseable jira delivery")
		return c.NoContent(http.StatusOK)
	}

	h.handle(req.Context(), h.log.WithField("delivery", id), reconcile.FromJira(id, ev))
	return c.NoContent(http.StatusOK)
}

// handle dispatches ev and contains any panic, so the delivery is still
// acknowledged with 200.
func (h *handlers) handle(ctx context.Context, entry *log.Entry, ev *reconcile.Event) {
	defer func() {
		if r := recover(); r != nil {
			entry.WithField("kind", ev.Kind).Errorf("panic while processing delivery: %v", r)
		}
	}()
	h.dispatch.Handle(detach(ctx), ev)
}

// detach keeps processing alive when the sender hangs up mid-request.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
