package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/statement-ledger/internal/jobs"
)

// Store is an in-memory JobStore. Data is lost on restart; a database-backed
// store slots in behind the same interface when that matters.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.ExtractStatementJob
}

var _ jobs.JobStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*jobs.ExtractStatementJob),
	}
}

// SaveJob saves or updates a job. It stores a copy so later mutations by the
// caller don't leak into the store.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ExtractStatementJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ExtractStatementJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	jobCopy := *job
	return &jobCopy, nil
}

func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ExtractStatementJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.ExtractStatementJob
	for _, job := range s.jobs {
		if filter.StatementID != "" && job.StatementID != filter.StatementID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.ExtractStatementJob{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}
