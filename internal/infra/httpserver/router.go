package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-sar/internal/application/alerts"
	appanalysis "github.com/bryanwahyu/automaton-sar/internal/application/analysis"
	"github.com/bryanwahyu/automaton-sar/internal/domain/ai"
	"github.com/bryanwahyu/automaton-sar/internal/domain/cases"
	"github.com/bryanwahyu/automaton-sar/internal/domain/priority"
	"github.com/bryanwahyu/automaton-sar/internal/domain/risk"
	"github.com/bryanwahyu/automaton-sar/internal/middleware"
)

const defaultMaxBody = 4 << 20

type Analyzer interface {
	Analyze(ctx context.Context, cmd appanalysis.AnalyzeCommand) (*appanalysis.AnalyzeResult, error)
	Approve(ctx context.Context, cmd appanalysis.ApproveCommand) error
}

type Triage interface {
	Intake(ctx context.Context, tenantID, actorID string, a alerts.Alert) alerts.IntakeResult
	Explain(a alerts.Alert) priority.Explanation
}

// Options carries the optional pieces of the HTTP surface. Zero values
// disable the matching feature.
type Options struct {
	Log            *zap.Logger
	Metrics        middleware.RequestObserver
	MetricsHandler http.Handler
	Limiter        *middleware.RateLimiter
	Health         map[string]middleware.HealthChecker
	AllowedOrigins []string
	MaxBodyBytes   int64
}

type Router struct {
	analysis Analyzer
	alerts   Triage
	log      *zap.Logger
	maxBody  int64
}

func NewRouter(analysisSvc Analyzer, alertSvc Triage, opts Options) http.Handler {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	r := &Router{analysis: analysisSvc, alerts: alertSvc, log: opts.Log, maxBody: opts.MaxBodyBytes}

	mux := chi.NewRouter()
	mux.Use(chimw.Recoverer)
	if opts.Metrics != nil {
		mux.Use(middleware.Metrics(opts.Metrics))
	}
	mux.Use(middleware.Logging(opts.Log))
	if len(opts.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", middleware.ActorHeader},
			MaxAge:         300,
		}))
	}

	mux.Get("/health", middleware.HealthHandler(opts.Health))
	if opts.MetricsHandler != nil {
		mux.Handle("/metrics", opts.MetricsHandler)
	}

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(middleware.RequireTenant)
		if opts.Limiter != nil {
			rt.Use(middleware.RateLimit(opts.Limiter))
		}
		rt.Post("/cases/analyze", r.wrap(r.handleAnalyze))
		rt.Post("/cases/risk", r.wrap(r.handleRisk))
		rt.Post("/cases/{caseID}/approve", r.wrap(r.handleApprove))
		rt.Post("/alerts/priority", r.wrap(r.handlePriority))
		rt.Post("/alerts/priority/explain", r.wrap(r.handleExplain))
	})

	return mux
}

var errBadRequest = errors.New("bad request")

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, errBadRequest), errors.Is(err, cases.ErrInvalidInput):
			status = http.StatusBadRequest
		case errors.Is(err, ai.ErrQuotaExceeded):
			status = http.StatusTooManyRequests
		case errors.Is(err, ai.ErrGeneration):
			status = http.StatusBadGateway
		}
		if status == http.StatusInternalServerError {
			r.log.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
	}
}

// POST /v1/{tenant}/cases/analyze
// Body: case input plus an optional "case_id".
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		CaseID string `json:"case_id"`
		cases.Input
	}
	if err := r.decode(w, req, &body); err != nil {
		return err
	}
	if body.CaseID != "" {
		if err := middleware.ValidateCaseID(body.CaseID); err != nil {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	if isEmpty(body.Input) {
		return fmt.Errorf("%w: case input is empty", cases.ErrInvalidInput)
	}

	res, err := r.analysis.Analyze(req.Context(), appanalysis.AnalyzeCommand{
		TenantID: middleware.GetTenantFromContext(req.Context()),
		CaseID:   cases.CaseID(body.CaseID),
		ActorID:  middleware.GetActorFromContext(req.Context()),
		Input:    body.Input,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// POST /v1/{tenant}/cases/risk
func (r *Router) handleRisk(w http.ResponseWriter, req *http.Request) error {
	var in cases.Input
	if err := r.decode(w, req, &in); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, risk.Score(in))
	return nil
}

// POST /v1/{tenant}/cases/{caseID}/approve
func (r *Router) handleApprove(w http.ResponseWriter, req *http.Request) error {
	caseID := chi.URLParam(req, "caseID")
	if err := middleware.ValidateCaseID(caseID); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	var body struct {
		Narrative string `json:"narrative"`
		Typology  string `json:"typology"`
		RiskLevel string `json:"risk_level"`
		Comments  string `json:"comments"`
	}
	if err := r.decode(w, req, &body); err != nil {
		return err
	}

	err := r.analysis.Approve(req.Context(), appanalysis.ApproveCommand{
		TenantID:  middleware.GetTenantFromContext(req.Context()),
		CaseID:    cases.CaseID(caseID),
		ActorID:   middleware.GetActorFromContext(req.Context()),
		Narrative: body.Narrative,
		Typology:  middleware.SanitizeString(body.Typology),
		RiskLevel: middleware.SanitizeString(body.RiskLevel),
		Comments:  middleware.SanitizeString(body.Comments),
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]string{"case_id": caseID, "status": "approved"})
	return nil
}

// POST /v1/{tenant}/alerts/priority
func (r *Router) handlePriority(w http.ResponseWriter, req *http.Request) error {
	var a alerts.Alert
	if err := r.decode(w, req, &a); err != nil {
		return err
	}
	res := r.alerts.Intake(req.Context(),
		middleware.GetTenantFromContext(req.Context()),
		middleware.GetActorFromContext(req.Context()), a)
	writeJSON(w, http.StatusOK, res)
	return nil
}

// POST /v1/{tenant}/alerts/priority/explain
func (r *Router) handleExplain(w http.ResponseWriter, req *http.Request) error {
	var a alerts.Alert
	if err := r.decode(w, req, &a); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, r.alerts.Explain(a))
	return nil
}

func (r *Router) decode(w http.ResponseWriter, req *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, r.maxBody))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return nil
}

func isEmpty(in cases.Input) bool {
	return len(in.Customer) == 0 && len(in.KYC) == 0 && len(in.Transactions) == 0 && in.AlertReason == ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
