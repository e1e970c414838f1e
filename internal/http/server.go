// Package http exposes the ledger's query surface as a JSON API for the
// dashboard front-end.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"obras/internal/amqp"
	"obras/internal/report"
	"obras/internal/storage"
)

// AlertPublisher pushes over-budget alert events onto the bus. May be nil
// when no bus is configured; alerting is advisory either way.
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// SummaryPublisher pushes the summary report to an external spreadsheet.
type SummaryPublisher interface {
	PublishSummary(ctx context.Context, rows []report.SummaryRow) error
}

type Server struct {
	http.Server
	repo   *storage.Repository
	alerts AlertPublisher
	sheets SummaryPublisher
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// alerts and sheets may be nil; the affected endpoints degrade gracefully.
func NewServer(addr string, repo *storage.Repository, alerts AlertPublisher, sheets SummaryPublisher) *Server {
	s := &Server{
		repo:   repo,
		alerts: alerts,
		sheets: sheets,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(requestLogger)
	r.Use(securityHeaders)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)

	r.Route("/departments", func(r chi.Router) {
		r.Get("/", s.handleListDepartments)
		r.Post("/", s.handleCreateDepartment)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetDepartment)
			r.Put("/", s.handleUpdateDepartment)
			r.Delete("/", s.handleDeleteDepartment)
			r.Get("/overview", s.handleDepartmentOverview)
			r.Get("/chart", s.handleDepartmentChart)
			r.Get("/measurements", s.handleListMeasurements)
			r.Post("/measurements", s.handleCreateMeasurement)
		})
	})

	r.Route("/measurements/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetMeasurement)
		r.Put("/", s.handleUpdateMeasurement)
		r.Delete("/", s.handleDeleteMeasurement)
		r.Get("/summary", s.handleMeasurementSummary)
		r.Get("/allocations", s.handleListAllocations)
		r.Put("/allocations/{projectID}", s.handleUpsertAllocation)
	})

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", s.handleListProjects)
		r.Post("/", s.handleCreateProject)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetProject)
			r.Put("/", s.handleUpdateProject)
			r.Delete("/", s.handleDeleteProject)
			r.Get("/chart", s.handleProjectChart)
			r.Put("/progress", s.handleUpdateProgress)
			r.Get("/expenses", s.handleListExpenses)
			r.Post("/expenses", s.handleCreateExpense)
		})
	})

	r.Delete("/expenses/{id}", s.handleDeleteExpense)

	r.Get("/report/xlsx", s.handleReportXLSX)
	r.Post("/report/sheets", s.handlePublishSheets)

	s.Server = http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// requestLogger logs start and completion of every request with the chi
// request id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := chimw.GetReqID(r.Context())

		slog.InfoContext(r.Context(), "Request started",
			"request_id", reqID,
			"method", r.Method,
			"url", r.URL.Path,
			"remote", r.RemoteAddr)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		slog.InfoContext(r.Context(), "Request completed",
			"request_id", reqID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// pathID parses the named numeric path parameter; writes 404 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "registro não encontrado")
		return 0, false
	}
	return id, true
}
