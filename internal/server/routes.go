package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - System
	mux.HandleFunc("GET /api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("GET /api/version", s.app.APIHandler.VersionHandler)

	// API routes - Documents
	mux.HandleFunc("POST /api/documents", s.app.DocumentHandler.UploadHandler)
	mux.HandleFunc("GET /api/documents", s.app.DocumentHandler.ListHandler)
	mux.HandleFunc("GET /api/documents/{id}", s.app.DocumentHandler.GetHandler)
	mux.HandleFunc("GET /api/documents/{id}/file", s.app.DocumentHandler.FileHandler)
	mux.HandleFunc("GET /api/documents/{id}/pages/{page}/text", s.app.DocumentHandler.PageTextHandler)

	// API routes - Fonts (per-document registries)
	mux.HandleFunc("GET /api/documents/{id}/fonts", s.app.FontHandler.ListHandler)
	mux.HandleFunc("POST /api/documents/{id}/fonts", s.app.FontHandler.UploadHandler)
	mux.HandleFunc("GET /api/documents/{id}/fonts/{name}", s.app.FontHandler.DownloadHandler)

	// API routes - Export
	mux.HandleFunc("POST /api/documents/{id}/export", s.app.ExportHandler.ExportHandler)

	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
