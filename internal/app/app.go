// Package app wires the service's components together, leaves first: the
// workspace client, then the pure builder and validator, then the stateful
// orchestrator and registry, then the HTTP handlers.
package app

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scriba/internal/builder"
	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/handlers"
	"github.com/ternarybob/scriba/internal/orchestrator"
	"github.com/ternarybob/scriba/internal/registry"
	"github.com/ternarybob/scriba/internal/services/scheduler"
	"github.com/ternarybob/scriba/internal/services/transform"
	validation "github.com/ternarybob/scriba/internal/validator"
	"github.com/ternarybob/scriba/internal/workspace"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Core pipeline
	WorkspaceClient *workspace.Client
	BuilderService  *builder.Service
	Validator       *validation.Service
	Orchestrator    *orchestrator.Service
	Registry        *registry.Registry

	// Supporting services
	TransformService *transform.Service
	SchedulerService *scheduler.Service

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	PageHandler      *handlers.PageHandler
	CompareHandler   *handlers.CompareHandler
	DatabaseHandler  *handlers.DatabaseHandler
	StatusHandler    *handlers.StatusHandler
	JobHandler       *handlers.JobHandler
	TransformHandler *handlers.TransformHandler
	WSHandler        *handlers.WebSocketHandler
}

// New composes the application from configuration. configPath is kept for
// the reload endpoint.
func New(config *common.Config, configPath string, logger arbor.ILogger) *App {
	a := &App{
		Config: config,
		Logger: logger,
	}

	a.WorkspaceClient = workspace.NewClientFromConfig(config.Workspace, logger)
	a.BuilderService = builder.NewService(config.Builder, nil, logger)
	a.Validator = validation.NewService(config.Validator, logger)
	a.Registry = registry.New(logger)
	a.TransformService = transform.NewService(logger)

	a.WSHandler = handlers.NewWebSocketHandler(logger)
	a.Orchestrator = orchestrator.NewService(config.Jobs, a.WorkspaceClient, a.WSHandler, a.TransformService, logger)

	a.SchedulerService = scheduler.NewService(config.Scheduler, config.Jobs, a.WorkspaceClient, a.Registry, logger)

	a.APIHandler = handlers.NewAPIHandler()
	a.PageHandler = handlers.NewPageHandler(config.Jobs, a.BuilderService, a.Validator, a.Orchestrator, a.Registry, a.WorkspaceClient, logger)
	a.CompareHandler = handlers.NewCompareHandler(a.Validator, a.WorkspaceClient, logger)
	a.DatabaseHandler = handlers.NewDatabaseHandler(a.WorkspaceClient, logger)
	a.StatusHandler = handlers.NewStatusHandler(configPath, a.Registry, logger)
	a.JobHandler = handlers.NewJobHandler(a.Registry, logger)
	a.TransformHandler = handlers.NewTransformHandler(a.TransformService, logger)

	return a
}

// Start launches background services
func (a *App) Start() error {
	return a.SchedulerService.Start()
}

// Stop shuts background services down
func (a *App) Stop() {
	a.SchedulerService.Stop()
}
