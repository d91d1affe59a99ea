package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Liveness.
	mux.HandleFunc("GET /health", s.handleHealth)

	// Ingestion.
	mux.Handle("POST /ingest", s.withAuth(http.HandlerFunc(s.handleIngest)))

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return mux
}
