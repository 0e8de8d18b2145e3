// Package handlers implements the HTTP endpoints of the statement ledger API.
package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ledger/internal/api/middleware"
	"github.com/dvloznov/statement-ledger/internal/archive"
	"github.com/dvloznov/statement-ledger/internal/extract"
	"github.com/dvloznov/statement-ledger/internal/jobs"
	"github.com/dvloznov/statement-ledger/internal/ledgerstore"
	"github.com/dvloznov/statement-ledger/internal/metrics"
	"github.com/dvloznov/statement-ledger/internal/pdftext"
)

// Extractor runs the whole extraction pipeline over raw statement text.
type Extractor interface {
	Extract(ctx context.Context, text string) (*extract.Result, error)
}

// TextReader pulls plain text out of a PDF on disk.
type TextReader func(path, password string) (string, error)

// StatementsHandler handles statement upload and extraction endpoints.
type StatementsHandler struct {
	extractor Extractor
	readText  TextReader
	archive   archive.Store          // nil disables async uploads
	repo      ledgerstore.Repository // nil disables persistence
	publisher jobs.Publisher
	metrics   *metrics.Metrics
	maxUpload int64
	log       zerolog.Logger
}

// NewStatementsHandler creates a new statements handler. archive and repo may
// be nil; the synchronous endpoint works without either.
func NewStatementsHandler(
	extractor Extractor,
	readText TextReader,
	store archive.Store,
	repo ledgerstore.Repository,
	publisher jobs.Publisher,
	m *metrics.Metrics,
	maxUpload int64,
	log zerolog.Logger,
) *StatementsHandler {
	return &StatementsHandler{
		extractor: extractor,
		readText:  readText,
		archive:   store,
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		maxUpload: maxUpload,
		log:       log,
	}
}

// Extract handles POST /upload/
//
// Synchronous extraction: the request blocks until the model has processed
// every chunk. Accepts a multipart form with a "file" part and an optional
// "password" field for encrypted PDFs.
func (h *StatementsHandler) Extract(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()
	password := r.FormValue("password")

	path, cleanup, err := spoolToTemp(file)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to spool upload to disk")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	defer cleanup()

	text, err := h.readText(path, password)
	if err != nil {
		switch {
		case errors.Is(err, pdftext.ErrWrongPassword):
			middleware.WriteError(w, http.StatusBadRequest, "Incorrect PDF password")
		case errors.Is(err, pdftext.ErrNoText):
			middleware.WriteError(w, http.StatusUnprocessableEntity, "No readable text in PDF")
		default:
			h.log.Error().Err(err).Str("filename", header.Filename).Msg("Failed to read PDF")
			middleware.WriteError(w, http.StatusBadRequest, "Could not read PDF")
		}
		return
	}

	result, err := h.extractor.Extract(r.Context(), text)
	if err != nil {
		h.metrics.IncrStatement("error")
		h.log.Error().Err(err).Str("filename", header.Filename).Msg("Extraction failed")
		middleware.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.metrics.IncrStatement("success")
	if result.Cost != nil {
		h.metrics.RecordTokens(result.Cost.InputTokens, result.Cost.OutputTokens)
	}
	h.metrics.RecordExtractionDuration(time.Since(start))

	h.log.Info().
		Str("filename", header.Filename).
		Int("income", len(result.Transactions.Income)).
		Int("expenses", len(result.Transactions.Expenses)).
		Dur("duration", time.Since(start)).
		Msg("Statement extracted")

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"extracted": result,
	})
}

// CreateStatement handles POST /api/statements
//
// Asynchronous extraction: the PDF is archived, a statement row is recorded,
// and an extraction job is enqueued. The response carries the job id for
// status polling.
func (h *StatementsHandler) CreateStatement(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Statement archive is not configured")
		return
	}

	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	statementID := uuid.NewString()
	checksum := sha256.Sum256(data)

	uri, err := h.archive.PutStatement(ctx, statementID, data)
	if err != nil {
		h.log.Error().Err(err).Str("statement_id", statementID).Msg("Failed to archive statement")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to archive statement")
		return
	}

	if h.repo != nil {
		row := &ledgerstore.StatementRow{
			StatementID:      statementID,
			GCSURI:           uri,
			OriginalFilename: filepath.Base(header.Filename),
			ChecksumSHA256:   hex.EncodeToString(checksum[:]),
			UploadTS:         time.Now(),
		}
		if err := h.repo.InsertStatement(ctx, row); err != nil {
			h.log.Error().Err(err).Str("statement_id", statementID).Msg("Failed to insert statement row")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to record statement")
			return
		}
	}

	job := &jobs.ExtractStatementJob{
		StatementID: statementID,
		GCSURI:      uri,
		Password:    r.FormValue("password"),
		MaxRetries:  1,
	}
	if err := h.publisher.PublishExtractStatement(ctx, job); err != nil {
		h.log.Error().Err(err).Str("statement_id", statementID).Msg("Failed to enqueue extraction job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue extraction job")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("statement_id", statementID).
		Str("gcs_uri", uri).
		Msg("Extraction job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":       job.JobID,
		"statement_id": statementID,
		"status":       string(job.Status),
	})
}

// spoolToTemp writes an uploaded file to a temp path the PDF reader can seek
// in. The returned cleanup removes the file.
func spoolToTemp(file multipart.File) (string, func(), error) {
	tmp, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return tmp.Name(), cleanup, nil
}
