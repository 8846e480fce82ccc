// Package sequence provides the email follow-up bounded context: welcome
// sends triggered by new leads and scheduled follow-up dispatch runs.
package sequence

import (
	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/sequence/dispatch"
	"leadflow_backend/internal/sequence/handler"
	"leadflow_backend/internal/sequence/sendlog"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/distlock"
	"leadflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the sequence bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	dispatch *dispatch.Service
}

// NewModule wires the dispatcher and subscribes the welcome sender to LeadCreated.
func NewModule(pool *pgxpool.Pool, leads dispatch.LeadReader, eventBus events.Bus, sender email.Sender, locks distlock.Factory, cfg interface {
	config.DispatchConfig
	config.ContentConfig
}, log *logger.Logger) (*Module, error) {
	renderer, err := email.NewRenderer(email.Links{
		AppBaseURL:  cfg.GetAppBaseURL(),
		WhatsAppURL: cfg.GetWhatsAppContactURL(),
	})
	if err != nil {
		return nil, err
	}

	logs := sendlog.New(pool)
	svc := dispatch.New(dispatch.Deps{
		Leads:        leads,
		SendLog:      logs,
		Sender:       sender,
		Renderer:     renderer,
		Locks:        locks,
		EventBus:     eventBus,
		Log:          log,
		SendInterval: cfg.GetDispatchSendInterval(),
	})

	if eventBus != nil {
		eventBus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(svc.HandleLeadCreated))
	}

	return &Module{
		handler:  handler.New(svc, logs, cfg.GetDispatchTimeout()),
		dispatch: svc,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "sequence"
}

// Dispatcher exposes the dispatch service for the scheduler worker.
func (m *Module) Dispatcher() *dispatch.Service {
	return m.dispatch
}

// RegisterRoutes mounts the operator endpoints on the bearer-protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Operator)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
