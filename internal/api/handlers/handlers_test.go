package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-ledger/internal/api"
	"github.com/dvloznov/statement-ledger/internal/api/handlers"
	"github.com/dvloznov/statement-ledger/internal/archive"
	"github.com/dvloznov/statement-ledger/internal/extract"
	"github.com/dvloznov/statement-ledger/internal/jobs"
	"github.com/dvloznov/statement-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/statement-ledger/internal/metrics"
	"github.com/dvloznov/statement-ledger/internal/pdftext"
)

type mockExtractor struct {
	extractFunc func(ctx context.Context, text string) (*extract.Result, error)
}

func (m *mockExtractor) Extract(ctx context.Context, text string) (*extract.Result, error) {
	return m.extractFunc(ctx, text)
}

type mockArchive struct {
	putStatementFunc func(ctx context.Context, statementID string, pdf []byte) (string, error)
	putResultFunc    func(ctx context.Context, statementID string, result *extract.Result) (string, error)
	fetchFunc        func(ctx context.Context, uri string) ([]byte, error)
}

func (m *mockArchive) PutStatement(ctx context.Context, statementID string, pdf []byte) (string, error) {
	if m.putStatementFunc != nil {
		return m.putStatementFunc(ctx, statementID, pdf)
	}
	return "gs://test-bucket/statements/" + statementID + ".pdf", nil
}

func (m *mockArchive) PutResult(ctx context.Context, statementID string, result *extract.Result) (string, error) {
	if m.putResultFunc != nil {
		return m.putResultFunc(ctx, statementID, result)
	}
	return "gs://test-bucket/results/" + statementID + ".json", nil
}

func (m *mockArchive) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, uri)
	}
	return nil, fmt.Errorf("not found: %s", uri)
}

type mockPublisher struct {
	published   []*jobs.ExtractStatementJob
	publishFunc func(ctx context.Context, job *jobs.ExtractStatementJob) error
}

func (m *mockPublisher) PublishExtractStatement(ctx context.Context, job *jobs.ExtractStatementJob) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, job)
	}
	job.JobID = "job-1"
	job.Status = jobs.JobStatusPending
	m.published = append(m.published, job)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func sampleResult() *extract.Result {
	return &extract.Result{
		AccountDetails: extract.AccountDetails{
			Name:            "Jane Doe",
			AccountNumber:   "12345678",
			Currency:        "GBP",
			StatementPeriod: "01JUN2025 to 30JUN2025",
		},
		FinalBalance: decimal.NewFromFloat(150),
		Transactions: extract.TransactionSet{
			Income: []extract.Transaction{
				{Date: "02JUN2025", Description: "Salary", Amount: decimal.NewFromFloat(200)},
			},
			Expenses: []extract.Transaction{
				{Date: "03JUN2025", Description: "Groceries", Amount: decimal.NewFromFloat(50)},
			},
		},
	}
}

func readTextOK(path, password string) (string, error) {
	return "02JUN2025 Salary 200.00", nil
}

type routerDeps struct {
	extractor handlers.Extractor
	readText  handlers.TextReader
	archive   *mockArchive
	publisher *mockPublisher
	store     jobs.JobStore
}

func newTestRouter(deps routerDeps) http.Handler {
	log := zerolog.Nop()
	m := metrics.New()

	if deps.readText == nil {
		deps.readText = readTextOK
	}
	if deps.store == nil {
		deps.store = inmemory.NewStore()
	}
	if deps.publisher == nil {
		deps.publisher = &mockPublisher{}
	}

	// A nil *mockArchive must become a nil interface, not a typed nil.
	var archiveStore archive.Store
	if deps.archive != nil {
		archiveStore = deps.archive
	}
	sh := handlers.NewStatementsHandler(deps.extractor, deps.readText, archiveStore, nil, deps.publisher, m, 20<<20, log)

	jh := handlers.NewJobsHandler(deps.store, log)

	return api.NewRouter(api.RouterConfig{
		Statements: sh,
		Jobs:       jh,
		Metrics:    m,
		Log:        log,
	})
}

func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUpload_Success(t *testing.T) {
	router := newTestRouter(routerDeps{
		extractor: &mockExtractor{
			extractFunc: func(ctx context.Context, text string) (*extract.Result, error) {
				return sampleResult(), nil
			},
		},
	})

	body, contentType := multipartBody(t, "statement.pdf", []byte("%PDF-1.4 fake"), nil)
	req := httptest.NewRequest(http.MethodPost, "/upload/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Extracted extract.Result `json:"extracted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Jane Doe", resp.Extracted.AccountDetails.Name)
	assert.Len(t, resp.Extracted.Transactions.Income, 1)
	assert.Len(t, resp.Extracted.Transactions.Expenses, 1)
}

func TestUpload_MissingFile(t *testing.T) {
	router := newTestRouter(routerDeps{
		extractor: &mockExtractor{
			extractFunc: func(ctx context.Context, text string) (*extract.Result, error) {
				t.Fatal("extractor must not be called")
				return nil, nil
			},
		},
	})

	body, contentType := func() (*bytes.Buffer, string) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("password", "secret"))
		require.NoError(t, mw.Close())
		return &buf, mw.FormDataContentType()
	}()

	req := httptest.NewRequest(http.MethodPost, "/upload/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file field is required")
}

func TestUpload_WrongPassword(t *testing.T) {
	var gotPassword string
	router := newTestRouter(routerDeps{
		extractor: &mockExtractor{
			extractFunc: func(ctx context.Context, text string) (*extract.Result, error) {
				t.Fatal("extractor must not be called")
				return nil, nil
			},
		},
		readText: func(path, password string) (string, error) {
			gotPassword = password
			return "", pdftext.ErrWrongPassword
		},
	})

	body, contentType := multipartBody(t, "locked.pdf", []byte("%PDF"), map[string]string{"password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/upload/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incorrect PDF password")
	assert.Equal(t, "wrong", gotPassword)
}

func TestUpload_NoReadableText(t *testing.T) {
	router := newTestRouter(routerDeps{
		extractor: &mockExtractor{},
		readText: func(path, password string) (string, error) {
			return "", pdftext.ErrNoText
		},
	})

	body, contentType := multipartBody(t, "scan.pdf", []byte("%PDF"), nil)
	req := httptest.NewRequest(http.MethodPost, "/upload/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpload_ExtractionFails(t *testing.T) {
	router := newTestRouter(routerDeps{
		extractor: &mockExtractor{
			extractFunc: func(ctx context.Context, text string) (*extract.Result, error) {
				return nil, fmt.Errorf("all 3 chunks failed")
			},
		},
	})

	body, contentType := multipartBody(t, "statement.pdf", []byte("%PDF"), nil)
	req := httptest.NewRequest(http.MethodPost, "/upload/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "all 3 chunks failed")
}

func TestCreateStatement(t *testing.T) {
	pub := &mockPublisher{}
	router := newTestRouter(routerDeps{
		extractor: &mockExtractor{},
		archive:   &mockArchive{},
		publisher: pub,
	})

	body, contentType := multipartBody(t, "june.pdf", []byte("%PDF-1.4 fake"), map[string]string{"password": "hunter2"})
	req := httptest.NewRequest(http.MethodPost, "/api/statements", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp["job_id"])
	assert.NotEmpty(t, resp["statement_id"])
	assert.Equal(t, "pending", resp["status"])

	require.Len(t, pub.published, 1)
	job := pub.published[0]
	assert.Equal(t, resp["statement_id"], job.StatementID)
	assert.Equal(t, "gs://test-bucket/statements/"+job.StatementID+".pdf", job.GCSURI)
	assert.Equal(t, "hunter2", job.Password)
}

func TestCreateStatement_NoArchive(t *testing.T) {
	router := newTestRouter(routerDeps{
		extractor: &mockExtractor{},
	})

	body, contentType := multipartBody(t, "june.pdf", []byte("%PDF"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/statements", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetJob(t *testing.T) {
	store := inmemory.NewStore()
	require.NoError(t, store.SaveJob(context.Background(), &jobs.ExtractStatementJob{
		JobID:       "job-42",
		StatementID: "stmt-1",
		Status:      jobs.JobStatusCompleted,
		Result:      sampleResult(),
	}))

	router := newTestRouter(routerDeps{extractor: &mockExtractor{}, store: store})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/job-42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var job jobs.ExtractStatementJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "job-42", job.JobID)
	assert.Equal(t, jobs.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, "Jane Doe", job.Result.AccountDetails.Name)
}

func TestGetJob_NotFound(t *testing.T) {
	router := newTestRouter(routerDeps{extractor: &mockExtractor{}})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/no-such-job", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListJobs_FilterByStatus(t *testing.T) {
	store := inmemory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.SaveJob(ctx, &jobs.ExtractStatementJob{JobID: "a", Status: jobs.JobStatusCompleted}))
	require.NoError(t, store.SaveJob(ctx, &jobs.ExtractStatementJob{JobID: "b", Status: jobs.JobStatusFailed}))

	router := newTestRouter(routerDeps{extractor: &mockExtractor{}, store: store})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs?status=failed", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Jobs  []jobs.ExtractStatementJob `json:"jobs"`
		Count int                        `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, "b", resp.Jobs[0].JobID)
}

func TestExportTransactionsCSV(t *testing.T) {
	store := inmemory.NewStore()
	require.NoError(t, store.SaveJob(context.Background(), &jobs.ExtractStatementJob{
		JobID:  "job-csv",
		Status: jobs.JobStatusCompleted,
		Result: sampleResult(),
	}))

	router := newTestRouter(routerDeps{extractor: &mockExtractor{}, store: store})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/job-csv/transactions.csv", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "job-csv-transactions.csv")
	assert.Contains(t, rec.Body.String(), "Date,Type,Description,Amount,Running_Balance")
	assert.Contains(t, rec.Body.String(), "Salary")
	assert.Contains(t, rec.Body.String(), "Groceries")
}

func TestExportSummaryCSV(t *testing.T) {
	store := inmemory.NewStore()
	require.NoError(t, store.SaveJob(context.Background(), &jobs.ExtractStatementJob{
		JobID:  "job-sum",
		Status: jobs.JobStatusCompleted,
		Result: sampleResult(),
	}))

	router := newTestRouter(routerDeps{extractor: &mockExtractor{}, store: store})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/job-sum/summary.csv", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Account Holder,Jane Doe")
}

func TestExportCSV_JobNotCompleted(t *testing.T) {
	store := inmemory.NewStore()
	require.NoError(t, store.SaveJob(context.Background(), &jobs.ExtractStatementJob{
		JobID:  "job-pending",
		Status: jobs.JobStatusPending,
	}))

	router := newTestRouter(routerDeps{extractor: &mockExtractor{}, store: store})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/job-pending/transactions.csv", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(routerDeps{extractor: &mockExtractor{}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(routerDeps{extractor: &mockExtractor{}})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
