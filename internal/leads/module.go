// Package leads provides the lead intake bounded context module.
// This file defines the module that encapsulates leads setup and route registration.
package leads

import (
	"leadflow_backend/internal/analytics"
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/leads/handler"
	"leadflow_backend/internal/leads/intake"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/ratelimit"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	intake  *intake.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, limiter ratelimit.RateLimiter, sink analytics.Sink, val *validator.Validator, cfg config.PhoneConfig, log *logger.Logger) (*Module, error) {
	repo := repository.New(pool)

	svc, err := intake.New(intake.Deps{
		Limiter:     limiter,
		Validator:   val,
		Store:       repo,
		Analytics:   sink,
		EventBus:    eventBus,
		Log:         log,
		PhoneRegion: cfg.GetPhoneDefaultRegion(),
	})
	if err != nil {
		return nil, err
	}

	return &Module{
		handler: handler.New(svc),
		intake:  svc,
		repo:    repo,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Repository exposes the lead repository for modules that read leads.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts POST /api/v1/leads and the legacy POST /api/leads.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/leads"))
	m.handler.RegisterRoutes(ctx.API.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
