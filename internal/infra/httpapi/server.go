// Package httpapi exposes the dashboard endpoints over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/runoshun/swarm-factory/internal/domain"
	"github.com/runoshun/swarm-factory/internal/usecase"
)

const maxBodyBytes = 64 << 10

// Handlers holds factories for the use cases served by the API.
// Each request builds its own use case, so every decision write gets a fresh
// retry policy and pulls first when configured.
type Handlers struct {
	AppendDecision   func() *usecase.AppendDecision
	Board            func() *usecase.Board
	ShowJob          func() *usecase.ShowJob
	ResolveEffective func() *usecase.ResolveEffective
	Logger           domain.Logger
}

// decisionRequest is the body of POST /api/decision.
type decisionRequest struct {
	Pipeline *bool  `json:"pipeline"`
	JobID    string `json:"jobId"`
	Action   string `json:"action"`
	ToPhase  string `json:"toPhase"`
	Agent    string `json:"agent"`
	Note     string `json:"note"`
}

type errorResponse struct {
	Error string `json:"error"`
	OK    bool   `json:"ok"`
}

type decisionResponse struct {
	*usecase.AppendDecisionOutput
	OK bool `json:"ok"`
}

type boardResponse struct {
	*usecase.BoardOutput
	OK bool `json:"ok"`
}

type jobResponse struct {
	*usecase.ShowJobOutput
	OK bool `json:"ok"`
}

type effectiveResponse struct {
	*usecase.ResolveEffectiveOutput
	OK bool `json:"ok"`
}

// NewRouter builds the chi router.
func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Route("/api", func(r chi.Router) {
		r.Post("/decision", h.postDecision)
		r.Get("/board", h.getBoard)
		r.Get("/runs/{jobId}", h.getRun)
		r.Get("/runs/{jobId}/effective", h.getEffective)
	})
	return r
}

func (h Handlers) postDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	out, err := h.AppendDecision().Execute(r.Context(), usecase.AppendDecisionInput{
		JobID:  req.JobID,
		Action: domain.DecisionAction(req.Action),
		Fields: domain.DecisionFields{
			ToPhase:  req.ToPhase,
			Agent:    req.Agent,
			Pipeline: req.Pipeline,
			Note:     req.Note,
		},
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decisionResponse{OK: true, AppendDecisionOutput: out})
}

func (h Handlers) getBoard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid limit %q", s)})
			return
		}
		limit = n
	}

	out, err := h.Board().Execute(r.Context(), usecase.BoardInput{Limit: limit})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, boardResponse{OK: true, BoardOutput: out})
}

func (h Handlers) getRun(w http.ResponseWriter, r *http.Request) {
	out, err := h.ShowJob().Execute(r.Context(), usecase.ShowJobInput{JobID: chi.URLParam(r, "jobId")})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{OK: true, ShowJobOutput: out})
}

func (h Handlers) getEffective(w http.ResponseWriter, r *http.Request) {
	out, err := h.ResolveEffective().Execute(r.Context(), usecase.ResolveEffectiveInput{JobID: chi.URLParam(r, "jobId")})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, effectiveResponse{OK: true, ResolveEffectiveOutput: out})
}

// fail maps use-case errors onto HTTP statuses.
func (h Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrStoreConflict), errors.Is(err, domain.ErrRetryExhausted):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError && h.Logger != nil {
		h.Logger.Error("", "http", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Serve runs the API on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
