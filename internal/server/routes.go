package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (job progress stream)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Pages
	mux.HandleFunc("/api/pages", s.app.PageHandler.CreatePageHandler) // POST - create page from HTML
	mux.HandleFunc("/api/pages/", s.handlePageRoutes)                 // PATCH /{id}, POST /{id}:appendChildren

	// API routes - Validation & comparison
	mux.HandleFunc("/api/validate", s.app.CompareHandler.ValidatePagesHandler)
	mux.HandleFunc("/api/compare/notion-page", s.app.CompareHandler.ComparePageHandler)
	mux.HandleFunc("/api/compare/notion-db-row", s.app.CompareHandler.CompareDBRowHandler)
	mux.HandleFunc("/api/compare/health", s.app.CompareHandler.CompareHealthHandler)

	// API routes - Databases
	mux.HandleFunc("/api/databases/", s.handleDatabaseRoutes) // GET /{id}, POST /{id}/query

	// API routes - Transform
	mux.HandleFunc("/api/transform/markdown", s.app.TransformHandler.MarkdownHandler)

	// API routes - Jobs
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes) // GET /{id}, POST /{id}/cancel

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/config/reload", s.app.StatusHandler.ReloadConfigHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handlePageRoutes routes /api/pages/{id} requests by method and suffix
func (s *Server) handlePageRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if r.Method == http.MethodPost && strings.HasSuffix(path, ":appendChildren") {
		s.app.PageHandler.AppendChildrenHandler(w, r)
		return
	}

	if r.Method == http.MethodPatch {
		s.app.PageHandler.ReplaceContentHandler(w, r)
		return
	}

	s.app.APIHandler.NotFoundHandler(w, r)
}

// handleDatabaseRoutes routes /api/databases/{id} requests
func (s *Server) handleDatabaseRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if r.Method == http.MethodPost && strings.HasSuffix(path, "/query") {
		s.app.DatabaseHandler.QueryDatabaseHandler(w, r)
		return
	}

	if r.Method == http.MethodGet {
		s.app.DatabaseHandler.GetDatabaseHandler(w, r)
		return
	}

	s.app.APIHandler.NotFoundHandler(w, r)
}

// handleJobRoutes routes /api/jobs/{id} requests
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if r.Method == http.MethodPost && strings.HasSuffix(path, "/cancel") {
		s.app.JobHandler.CancelJobHandler(w, r)
		return
	}

	if r.Method == http.MethodGet {
		s.app.JobHandler.GetJobHandler(w, r)
		return
	}

	s.app.APIHandler.NotFoundHandler(w, r)
}
