// Package api provides the local HTTP view for incomeview.
//
// It serves the filterable statement table as an HTML page, the same view
// as JSON under /api/v1, and a WebSocket that re-renders rows as the
// filter form changes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seenimoa/incomeview/internal/config"
	"github.com/seenimoa/incomeview/internal/report"
	"github.com/seenimoa/incomeview/internal/state"
	"github.com/seenimoa/incomeview/internal/statement"
)

// Version is reported by the health endpoint.
var Version = "dev"

// wsPath is the WebSocket route the HTML page connects to.
const wsPath = "/api/v1/ws"

// Server is the HTTP view server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	state  *state.State
	source state.Source // nil disables POST /api/v1/refresh
}

// NewServer creates a configured server with all routes and middleware.
// The state is read on every request; src is used by the refresh endpoint.
func NewServer(cfg *config.Config, st *state.State, src state.Source) *Server {
	srv := &Server{
		cfg:    cfg,
		state:  st,
		source: src,
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when
// ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then lets
// in-flight requests finish before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpSrv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("api: listening on http://%s", ln.Addr())
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Println("api: shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// HTML view
	r.Get("/", s.handleIndex)

	// WebSocket sits outside the timeout group; it is long-lived.
	r.Get(wsPath, s.handleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Health (also available at /health)
		r.Get("/health", s.handleHealth)

		// Statements
		r.Get("/statements", s.handleStatements)
		r.Post("/refresh", s.handleRefresh)

		// Config
		r.Get("/config", s.handleGetConfig)
	})

	return r
}

// ════════════════════════════════════════════════════════════════════
// Response types
// ════════════════════════════════════════════════════════════════════

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// StatementsResponse is the data of GET /api/v1/statements.
type StatementsResponse = report.Document

// ════════════════════════════════════════════════════════════════════
// Handlers
// ════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()
	data := map[string]interface{}{
		"status":  "ok",
		"version": Version,
		"symbol":  snap.Symbol,
		"records": len(snap.Records),
	}
	if snap.Err != "" {
		data["fetch_error"] = snap.Err
	}
	if !snap.FetchedAt.IsZero() {
		data["fetched_at"] = snap.FetchedAt.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// handleIndex renders the HTML table for the query string.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := s.queryFromRequest(r)
	snap := s.state.Snapshot()

	var rows = snap.Records
	var inputErr string
	if filter, sort, err := q.Parse(); err != nil {
		inputErr = err.Error()
		rows = nil
	} else {
		rows = statement.Apply(snap.Records, filter, sort)
	}

	page := report.NewPage(snap.Symbol, q, rows)
	page.FetchErr = snap.Err
	page.InputErr = inputErr
	page.WSPath = wsPath
	if !snap.FetchedAt.IsZero() {
		page.FetchedAt = snap.FetchedAt.Format(time.RFC1123)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	status := http.StatusOK
	if inputErr != "" {
		status = http.StatusBadRequest
	}
	w.WriteHeader(status)
	if err := report.HTML(w, page); err != nil {
		log.Printf("api: render page: %v", err)
	}
}

// handleStatements returns the filtered and sorted records.
// Query params: start_date, end_date, min_revenue, max_revenue,
// min_net_income, max_net_income, sort, order.
func (s *Server) handleStatements(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()
	if snap.Err != "" {
		writeError(w, http.StatusBadGateway, report.ErrorMessage(snap.Err))
		return
	}

	filter, sort, err := s.queryFromRequest(r).Parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records := statement.Apply(snap.Records, filter, sort)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: StatementsResponse{
			Symbol:    snap.Symbol,
			Count:     len(records),
			FetchedAt: snap.FetchedAt,
			Records:   records,
		},
	})
}

// handleRefresh performs one fetch attempt against the configured source.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		writeError(w, http.StatusNotImplemented, "refresh is not configured")
		return
	}
	if err := s.state.Refresh(r.Context(), s.source); err != nil {
		writeError(w, http.StatusBadGateway, report.ErrorMessage(err.Error()))
		return
	}
	snap := s.state.Snapshot()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"symbol":     snap.Symbol,
			"count":      len(snap.Records),
			"fetched_at": snap.FetchedAt,
		},
	})
}

// queryFromRequest reads the filter and sort query params. Absent sort and
// order params fall back to the configured view defaults; an explicit empty
// sort param disables sorting.
func (s *Server) queryFromRequest(r *http.Request) statement.Query {
	v := r.URL.Query()
	q := statement.Query{
		FilterInput: statement.FilterInput{
			StartDate:    v.Get("start_date"),
			EndDate:      v.Get("end_date"),
			MinRevenue:   v.Get("min_revenue"),
			MaxRevenue:   v.Get("max_revenue"),
			MinNetIncome: v.Get("min_net_income"),
			MaxNetIncome: v.Get("max_net_income"),
		},
		Sort:  s.cfg.View.SortField,
		Order: s.cfg.View.SortOrder,
	}
	if v.Has("sort") {
		q.Sort = v.Get("sort")
	}
	if v.Has("order") {
		q.Order = v.Get("order")
	}
	return q
}

// ════════════════════════════════════════════════════════════════════
// Helpers
// ════════════════════════════════════════════════════════════════════

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
