package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/registry"
)

// StatusHandler reports runtime configuration and handles config reloads
type StatusHandler struct {
	logger     arbor.ILogger
	configPath string
	registry   *registry.Registry
}

// NewStatusHandler creates a new StatusHandler. configPath is the TOML file
// reloads re-read; empty disables reloading.
func NewStatusHandler(configPath string, reg *registry.Registry, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		logger:     logger,
		configPath: configPath,
		registry:   reg,
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	cfg := common.GetSnapshot()
	WriteSuccess(w, map[string]interface{}{
		"environment": cfg.Environment,
		"version":     common.GetVersion(),
		"listen_addr": cfg.Server.ListenAddr,
		"jobs": map[string]interface{}{
			"max_concurrent":  cfg.Jobs.MaxConcurrent,
			"job_parallelism": cfg.Jobs.JobParallelism,
			"strict_sweep":    cfg.Jobs.StrictSweep,
			"purge_attempts":  cfg.Jobs.PurgeAttempts,
			"tracked":         h.registry.Len(),
			"active":          h.registry.Active(),
		},
		"workspace": map[string]interface{}{
			"api_version":         cfg.Workspace.APIVersion,
			"requests_per_second": cfg.Workspace.RequestsPerSecond,
			"max_retries":         cfg.Workspace.MaxRetries,
		},
		"validator": map[string]interface{}{
			"coverage_threshold": cfg.Validator.CoverageThreshold,
			"max_missing_spans":  cfg.Validator.MaxMissingSpans,
			"group_max":          cfg.Validator.GroupMax,
			"lev_ratio":          cfg.Validator.LevRatio,
			"token_overlap":      cfg.Validator.TokenOverlap,
			"fuzzy_threshold":    cfg.Validator.FuzzyThreshold,
		},
		"scheduler": map[string]interface{}{
			"schedule": cfg.Scheduler.Schedule,
			"pages":    len(cfg.Scheduler.PageIDs),
		},
	})
}

// ReloadConfigHandler handles POST /api/config/reload. Re-reads the config
// file and swaps the process-wide snapshot; services pick up tunable values
// on their next snapshot read.
func (h *StatusHandler) ReloadConfigHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	cfg, err := common.LoadFromFile(h.configPath)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	common.SetSnapshot(cfg)

	if h.logger != nil {
		h.logger.Info().Str("path", h.configPath).Msg("Configuration reloaded")
	}
	WriteSuccess(w, map[string]interface{}{
		"reloaded":    true,
		"environment": cfg.Environment,
	})
}
