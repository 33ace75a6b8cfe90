package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (job progress feed)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// Query engines and synchronous question answering
	mux.HandleFunc("/query", s.app.EngineHandler.HandleQueryList)    // GET (list engines)
	mux.HandleFunc("/query/", s.app.EngineHandler.HandleQueryRoutes) // /query/engine, /query/engine/{id}[...], /query/{id}

	// Conversation threads with streaming generation
	mux.HandleFunc("/chat", s.app.ChatHandler.HandleThreads)     // GET (list), POST (create)
	mux.HandleFunc("/chat/", s.app.ChatHandler.HandleThreadByID) // GET/DELETE /{id}, POST /{id}/generate, POST /{id}/archive

	// API routes - Batch jobs
	mux.HandleFunc("/api/jobs", s.app.JobHandler.HandleJobs)     // GET (list, filterable by engine_id or status)
	mux.HandleFunc("/api/jobs/", s.app.JobHandler.HandleJobByID) // GET /{id}

	// 404 handler for unmatched routes
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
