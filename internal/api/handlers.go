// Package api exposes the pipeline over HTTP: one ask endpoint, a store
// listing, and a health probe. Everything else (auth, TLS, rate limiting)
// is the deployment's concern.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"askdb/internal/pipeline"
)

// Server binds the pipeline to HTTP handlers.
type Server struct {
	pipe   *pipeline.Pipeline
	logger *zap.Logger
}

// NewServer wires the handlers.
func NewServer(pipe *pipeline.Pipeline, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{pipe: pipe, logger: logger}
}

// Routes builds the request mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.HandleHealth)
	mux.HandleFunc("POST /api/v1/ask", s.HandleAsk)
	mux.HandleFunc("GET /api/v1/dbs", s.HandleStores)

	return s.middleware(mux)
}

// HandleHealth - GET /health
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, StandardResponse{Success: true, Message: "ok"})
}

// HandleAsk - POST /api/v1/ask
func (s *Server) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		errorResponse(w, http.StatusBadRequest, "Missing question")
		return
	}

	resp := s.pipe.Answer(r.Context(), pipeline.Request{
		Question: req.Question,
		Pending:  req.Pending,
	})

	jsonResponse(w, http.StatusOK, StandardResponse{
		Success: true,
		Data: AskResponse{
			Kind:    string(resp.Kind),
			Text:    resp.Text,
			StoreID: resp.StoreID,
			SQL:     resp.SQL,
		},
	})
}

// HandleStores - GET /api/v1/dbs
func (s *Server) HandleStores(w http.ResponseWriter, r *http.Request) {
	var out StoreListResponse
	for _, d := range s.pipe.Registry().All() {
		out.Stores = append(out.Stores, StoreInfo{
			ID:            d.ID,
			Name:          d.Name,
			Rel:           d.Rel,
			TablesPreview: d.TablesPreview,
		})
	}
	jsonResponse(w, http.StatusOK, StandardResponse{Success: true, Data: out})
}

// middleware wraps the mux with CORS and request logging.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)

		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}
