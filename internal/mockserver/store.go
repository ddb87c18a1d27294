package mockserver

import (
	"sync"
	"time"

	"github.com/gdi-labs/importkit/constants"
	"github.com/gdi-labs/importkit/internal/operation"
	"github.com/gdi-labs/importkit/internal/results"
	"github.com/gdi-labs/importkit/internal/schema"
)

// Job is one queued extraction with its full lifecycle state. All fields
// are guarded by the owning Store.
type Job struct {
	ID        string
	FileName  string
	FileData  []byte
	SheetName string
	Context   schema.ExtractionContext

	Status      constants.OperationStatus
	Progress    *operation.Progress
	Result      *results.ExtractionResult
	Err         *operation.ErrorInfo
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	CancelledAt time.Time
}

// Store is the in-memory operation registry. Jobs are never evicted for
// the lifetime of the server; clients are expected to be short-lived.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

func (s *Store) Create(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.Status = constants.StatusPending
	job.CreatedAt = time.Now().UTC()
	s.jobs[job.ID] = job
}

// Snapshot returns a copy of the job's externally visible state.
func (s *Store) Snapshot(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// SetProcessing advances a job to processing with the given phase report.
// No-op once the job is terminal.
func (s *Store) SetProcessing(id string, p operation.Progress) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status.Terminal() {
		return false
	}
	if job.Status == constants.StatusPending {
		job.StartedAt = time.Now().UTC()
	}
	job.Status = constants.StatusProcessing
	job.Progress = &p
	return true
}

// Complete finishes a job with its result. No-op once terminal.
func (s *Store) Complete(id string, result results.ExtractionResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status.Terminal() {
		return false
	}
	job.Status = constants.StatusCompleted
	job.Result = &result
	job.CompletedAt = time.Now().UTC()
	return true
}

// Fail finishes a job with an error block. No-op once terminal.
func (s *Store) Fail(id string, errInfo operation.ErrorInfo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status.Terminal() {
		return false
	}
	job.Status = constants.StatusFailed
	job.Err = &errInfo
	job.CompletedAt = time.Now().UTC()
	return true
}

// CancelJob marks a non-terminal job cancelled. Returns whether the job
// exists and whether this call changed anything.
func (s *Store) CancelJob(id string) (found, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false, false
	}
	if job.Status.Terminal() {
		return true, false
	}
	job.Status = constants.StatusCancelled
	job.CancelledAt = time.Now().UTC()
	return true, true
}

// IsCancelled lets workers poll for cooperative cancellation.
func (s *Store) IsCancelled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	return ok && job.Status == constants.StatusCancelled
}
