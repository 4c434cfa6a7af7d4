package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/deprov/internal/audit"
	"github.com/JonMunkholm/deprov/internal/core"
	"github.com/JonMunkholm/deprov/internal/logging"
	"github.com/JonMunkholm/deprov/internal/web/templates"
)

// handleIndex renders the upload form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.IndexPage(indexParams(s)).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// handleGenerate runs a generation from the form and renders the result
// page with the checklist and both downloads.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	res, err := s.generate(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ResultPage(resultParams(res)).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render result", "error", err)
	}
}

// handleDeprovision is the JSON form of handleGenerate.
func (s *Server) handleDeprovision(w http.ResponseWriter, r *http.Request) {
	res, err := s.generate(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, newDeprovisionResponse(res))
}

// generate holds a limiter slot while the uploads are parsed and reconciled.
func (s *Server) generate(w http.ResponseWriter, r *http.Request) (core.Result, error) {
	if err := s.limiter.Acquire(r.Context()); err != nil {
		return core.Result{}, err
	}
	defer s.limiter.Release()

	raw, src, err := s.parseUpload(w, r)
	if err != nil {
		return core.Result{}, err
	}
	return s.service.Generate(WithRequestMetadata(r.Context(), r), raw, src)
}

// handleListRuns returns the most recent runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, r, audit.ErrHistoryDisabled, statusFor(audit.ErrHistoryDisabled))
		return
	}

	limit := parseIntParam(r, "limit", s.cfg.Audit.HistoryLimit)
	if ceiling := s.cfg.Audit.HistoryLimit; ceiling > 0 && limit > ceiling {
		limit = ceiling
	}

	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []audit.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleHealth reports limiter occupancy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Time:    time.Now().UTC(),
		Limiter: s.limiter.Status(),
		History: s.history != nil,
	})
}

// parseIntParam parses a positive integer query parameter.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
