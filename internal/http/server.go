// Package http exposes the invoice, vehicle and budget services as a JSON API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"fleetbudget/internal/core"
	"fleetbudget/internal/log"
	"fleetbudget/internal/middleware/ratelimit"
	"fleetbudget/internal/middleware/security"
	"fleetbudget/internal/middleware/trace"
	"fleetbudget/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// Services groups what the API serves.
type Services struct {
	Invoices *services.InvoiceService
	Budget   *services.BudgetService
	Fleet    *services.FleetService
}

type Options struct {
	RateLimit ratelimit.Config
	// Ready reports whether dependencies (database, broker) are usable.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
	Now    func() time.Time
}

type Server struct {
	*http.Server

	svc      Services
	ready    func(ctx context.Context) error
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	validate *validator.Validate
	now      func() time.Time
}

func NewServer(addr string, svc Services, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default(log.ComponentHTTP)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Ready == nil {
		opts.Ready = func(context.Context) error { return nil }
	}

	s := &Server{
		svc:      svc,
		ready:    opts.Ready,
		logger:   opts.Logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		detector: security.NewDetector(),
		validate: newValidator(),
		now:      opts.Now,
	}

	s.Server = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(trace.NewMiddleware(s.logger, s.detector.ExtractClientIP).Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/vehicles", s.handleListVehicles)
		r.Get("/invoices", s.handleListInvoices)
		r.Get("/invoices/{id}", s.handleGetInvoice)
		r.Get("/budget/limit", s.handleGetLimit)
		r.Get("/budget/spending", s.handleSpending)
		r.Get("/budget/report.xlsx", s.handleReport)
		r.Get("/alerts", s.handleListAlerts)

		// writes are rate limited per client
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited))
			r.Post("/invoices/preview", s.handlePreviewInvoice)
			r.Post("/invoices", s.handleCreateInvoice)
			r.Post("/vehicles", s.handleCreateVehicle)
			r.Put("/budget/limit", s.handleSetLimit)
			r.Post("/budget/check", s.handleCheckBudget)
			r.Post("/alerts/{id}/ack", s.handleAcknowledgeAlert)
		})
	})
	return r
}

// Shutdown drains in-flight requests and stops background helpers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ready(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorBody{Code: "rate_limited", Message: "too many requests"})
}

// periodParam reads ?period=YYYY-MM, defaulting to the current month.
func (s *Server) periodParam(r *http.Request) (core.Period, error) {
	v := r.URL.Query().Get("period")
	if v == "" {
		return core.PeriodOf(s.now()), nil
	}
	p, err := core.ParsePeriod(v)
	if err != nil {
		return core.Period{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return p, nil
}
