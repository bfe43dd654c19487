package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/releaseradar/internal/repositories"
	"github.com/desertthunder/releaseradar/internal/shared"
	"github.com/desertthunder/releaseradar/internal/tasks"
)

// runRequest is the optional JSON body of a manual trigger.
type runRequest struct {
	From string `json:"from,omitempty"` // Lower bound for release dates, YYYY-MM-DD
}

// runResponse is the aggregated result of a manual trigger.
type runResponse struct {
	ExecutionTime time.Time `json:"execution_time"`
	DurationMS    int64     `json:"duration_ms"`
	Status        string    `json:"status,omitempty"`
	Skipped       bool      `json:"skipped,omitempty"`
	SkipReason    string    `json:"skip_reason,omitempty"`
	UsersSynced   int       `json:"users_synced"`
	UsersFailed   int       `json:"users_failed"`
	TracksAdded   int       `json:"tracks_added"`
}

// entryResponse is the JSON shape of one execution log entry.
type entryResponse struct {
	ExecutionTime time.Time `json:"execution_time"`
	Status        string    `json:"status"`
	DurationMS    int64     `json:"duration_ms"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// JobsHandler serves the administrative job endpoints.
//
// POST /jobs/run triggers a manual fleet run, optionally bounded by a "from"
// date in the JSON body; it answers 409 while another run is active. GET
// /jobs/latest returns the most recent execution log entry.
type JobsHandler struct {
	scheduler *tasks.Scheduler
	entries   *repositories.ExecutionLogRepository
	logger    *log.Logger
}

// NewJobsHandler creates a JobsHandler over the scheduler and log store.
func NewJobsHandler(scheduler *tasks.Scheduler, entries *repositories.ExecutionLogRepository, logger *log.Logger) *JobsHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &JobsHandler{scheduler: scheduler, entries: entries, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *JobsHandler) Routes() []string {
	return []string{"/jobs/run", "/jobs/latest"}
}

// ServeHTTP dispatches to the job endpoints.
func (h *JobsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/jobs/run":
		h.handleRun(w, r)
	case "/jobs/latest":
		h.handleLatest(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *JobsHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req runRequest
	if r.Body != nil {
		// An empty body is a trigger with no lower bound.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var fromDate time.Time
	if req.From != "" {
		parsed, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid from date %q, expected YYYY-MM-DD", req.From))
			return
		}
		fromDate = parsed
	}

	summary, err := h.scheduler.ExecuteJob(r.Context(), tasks.RunOptions{Manual: true, FromDate: fromDate})
	if err != nil {
		if errors.Is(err, shared.ErrRunActive) {
			writeError(w, http.StatusConflict, "a run is already active")
			return
		}
		h.logger.Error("manual run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "run failed")
		return
	}

	writeJSON(w, http.StatusOK, runResponse{
		ExecutionTime: summary.ExecutionTime,
		DurationMS:    summary.Duration.Milliseconds(),
		Status:        string(summary.Status),
		Skipped:       summary.Skipped,
		SkipReason:    summary.SkipReason,
		UsersSynced:   summary.UsersSynced,
		UsersFailed:   summary.UsersFailed,
		TracksAdded:   summary.TracksAdded,
	})
}

func (h *JobsHandler) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entry, err := h.entries.Latest()
	if err != nil {
		h.logger.Error("failed to read execution log", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read execution log")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "no runs recorded")
		return
	}

	writeJSON(w, http.StatusOK, entryResponse{
		ExecutionTime: entry.ExecutionTime(),
		Status:        string(entry.Status()),
		DurationMS:    entry.DurationMS(),
		Error:         entry.Error(),
		CreatedAt:     entry.CreatedAt(),
	})
}

// HealthHandler answers liveness probes.
type HealthHandler struct{}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Routes returns the HTTP routes this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"/health"}
}

// ServeHTTP reports service liveness.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
