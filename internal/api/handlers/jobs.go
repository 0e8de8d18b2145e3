package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ledger/internal/api/middleware"
	"github.com/dvloznov/statement-ledger/internal/export"
	"github.com/dvloznov/statement-ledger/internal/extract"
	"github.com/dvloznov/statement-ledger/internal/jobs"
)

// JobsHandler handles job status and export endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{jobID}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobID")

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		StatementID: query.Get("statement_id"),
		Status:      jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// ExportTransactions handles GET /api/jobs/{jobID}/transactions.csv
func (h *JobsHandler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	h.exportCSV(w, r, "transactions", export.WriteTransactions)
}

// ExportSummary handles GET /api/jobs/{jobID}/summary.csv
func (h *JobsHandler) ExportSummary(w http.ResponseWriter, r *http.Request) {
	h.exportCSV(w, r, "summary", export.WriteAccountSummary)
}

func (h *JobsHandler) exportCSV(w http.ResponseWriter, r *http.Request, kind string, write func(io.Writer, *extract.Result) error) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobID")

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	if job.Status != jobs.JobStatusCompleted || job.Result == nil {
		middleware.WriteError(w, http.StatusConflict, "Job has no result to export")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", jobID+"-"+kind+".csv"))

	if err := write(w, job.Result); err != nil {
		// Headers are already on the wire; all we can do is log.
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to stream CSV export")
	}
}
