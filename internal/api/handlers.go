package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sitescout/sitescout/internal/dispatcher"
	"github.com/sitescout/sitescout/internal/search"
)

const (
	minTermLength = 3
	maxPagesLimit = 100
	maxDepthLimit = 10
)

type searchRequest struct {
	URL        string `json:"url"`
	SearchTerm string `json:"search_term"`
	MaxPages   int    `json:"max_pages"`
	MaxDepth   int    `json:"max_depth"`
}

// submitSearch handles POST /api/search. Invalid input is rejected with 400
// before any job is created; on success the job is registered in the
// waiting state and handed to the dispatcher.
func (s *Server) submitSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	params, err := validateRequest(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	searchID, err := s.idGen.NewID()
	if err != nil {
		s.logger.Error("generate search id failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to create search")
		return
	}
	job := search.Job{
		ID:        searchID,
		Params:    params,
		State:     search.StateWaiting,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.Create(r.Context(), job); err != nil {
		s.logger.Error("create job failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to create search")
		return
	}
	if err := s.dispatcher.Start(job); err != nil {
		// The job is already in the store; leaving it waiting would
		// report pending forever for a run that never starts.
		job.State = search.StateError
		job.ErrorText = "search could not be started"
		if uerr := s.store.Update(r.Context(), job); uerr != nil {
			s.logger.Warn("mark failed job failed", zap.Error(uerr))
		}
		status := http.StatusInternalServerError
		if errors.Is(err, dispatcher.ErrShuttingDown) {
			status = http.StatusServiceUnavailable
		}
		s.writeError(w, status, "failed to start search")
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":    "success",
		"search_id": searchID,
	})
}

// getStatus handles GET /api/status/{search_id}.
func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	payload := map[string]any{
		"status":         "success",
		"search_id":      job.ID,
		"current_status": string(job.State),
		"pages_crawled":  job.PagesCrawled,
	}
	if evt, found := s.broker.Latest(job.ID); found {
		payload["progress"] = evt.Progress
		payload["pages_total"] = evt.PagesTotal
	}
	if job.ErrorText != "" {
		payload["error"] = job.ErrorText
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// getResults handles GET /api/results/{search_id}: 200 with the ranked set
// for completed jobs, 202 while the job is still running, 410 once the job
// has errored or been cancelled.
func (s *Server) getResults(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	switch job.State {
	case search.StateCompleted:
		results := job.Results
		if results == nil {
			results = []search.Result{}
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"status":  "success",
			"results": results,
		})
	case search.StateError, search.StateCancelled:
		msg := job.ErrorText
		if msg == "" {
			msg = fmt.Sprintf("search %s", job.State)
		}
		s.writeError(w, http.StatusGone, msg)
	default:
		s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
	}
}

// cancelSearch handles POST /api/search/{search_id}/cancel.
func (s *Server) cancelSearch(w http.ResponseWriter, r *http.Request) {
	searchID := chi.URLParam(r, "search_id")
	if s.dispatcher.Cancel(searchID) {
		s.writeJSON(w, http.StatusAccepted, map[string]string{
			"status":    "success",
			"search_id": searchID,
		})
		return
	}
	job, err := s.store.Get(r.Context(), searchID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "search not found")
		return
	}
	s.writeError(w, http.StatusConflict,
		fmt.Sprintf("search already %s", job.State))
}

func (s *Server) lookupJob(w http.ResponseWriter, r *http.Request) (search.Job, bool) {
	searchID := chi.URLParam(r, "search_id")
	job, err := s.store.Get(r.Context(), searchID)
	if err != nil {
		if errors.Is(err, search.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "search not found")
		} else {
			s.logger.Error("job lookup failed", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to load search")
		}
		return search.Job{}, false
	}
	return job, true
}

// validateRequest enforces the submit contract: well-formed absolute http(s)
// URL, search term of at least three characters, and bounded crawl limits.
func validateRequest(req searchRequest) (search.JobParams, error) {
	seed := strings.TrimSpace(req.URL)
	if seed == "" {
		return search.JobParams{}, errors.New("url is required")
	}
	u, err := url.Parse(seed)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return search.JobParams{}, errors.New("url must be an absolute http(s) URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return search.JobParams{}, errors.New("url scheme must be http or https")
	}

	term := strings.TrimSpace(req.SearchTerm)
	if utf8.RuneCountInString(term) < minTermLength {
		return search.JobParams{}, fmt.Errorf("search_term must be at least %d characters", minTermLength)
	}

	if req.MaxPages < 1 || req.MaxPages > maxPagesLimit {
		return search.JobParams{}, fmt.Errorf("max_pages must be between 1 and %d", maxPagesLimit)
	}
	if req.MaxDepth < 1 || req.MaxDepth > maxDepthLimit {
		return search.JobParams{}, fmt.Errorf("max_depth must be between 1 and %d", maxDepthLimit)
	}

	return search.JobParams{
		SeedURL:    seed,
		SearchTerm: term,
		MaxPages:   req.MaxPages,
		MaxDepth:   req.MaxDepth,
	}, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"status": "error", "message": msg})
}
