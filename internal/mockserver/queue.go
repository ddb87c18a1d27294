package mockserver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gdi-labs/importkit/constants"
	"github.com/gdi-labs/importkit/internal/operation"
)

// phaseScript is the fixed progress sequence a job walks through before it
// completes, mirroring the real backend's pipeline stages.
var phaseScript = []operation.Progress{
	{Phase: constants.PhaseParsing, Message: "Parsing file...", PercentComplete: 25},
	{Phase: constants.PhaseDiscovery, Message: "Identifying column mappings...", PercentComplete: 50},
	{Phase: constants.PhaseExtraction, Message: "Extracting compound values...", PercentComplete: 75},
	{Phase: constants.PhaseMapping, Message: "Finalizing mappings...", PercentComplete: 90},
}

// JobQueue runs queued extractions on a small worker pool, advancing each
// job through the phase script with a delay per step so clients observe
// realistic progress.
type JobQueue struct {
	store     *Store
	logger    *slog.Logger
	workers   int
	stepDelay time.Duration

	ch   chan string
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type QueueOption func(*JobQueue)

func WithWorkers(n int) QueueOption {
	return func(q *JobQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithStepDelay(d time.Duration) QueueOption {
	return func(q *JobQueue) {
		if d >= 0 {
			q.stepDelay = d
		}
	}
}

func WithQueueSize(n int) QueueOption {
	return func(q *JobQueue) {
		if n > 0 {
			q.ch = make(chan string, n)
		}
	}
}

func NewJobQueue(store *Store, logger *slog.Logger, opts ...QueueOption) *JobQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &JobQueue{
		store:     store,
		logger:    logger,
		workers:   2,
		stepDelay: 200 * time.Millisecond,
		ch:        make(chan string, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *JobQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("mock.worker.started", "worker_id", workerID)
				for jobID := range q.ch {
					q.process(workerID, jobID)
				}
				q.logger.Info("mock.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue hands a created job to the pool.
func (q *JobQueue) Enqueue(jobID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("mock.queue.rejected_shutdown", "op_id", jobID)
		return
	}
	q.ch <- jobID
	q.logger.Info("mock.queue.enqueued", "op_id", jobID)
}

// process walks one job through the phase script and finishes it.
// Cancellation is checked between steps so a cancel request lands within
// one step delay.
func (q *JobQueue) process(workerID int, jobID string) {
	job, ok := q.store.Snapshot(jobID)
	if !ok {
		return
	}
	start := time.Now()

	for _, phase := range phaseScript {
		if q.store.IsCancelled(jobID) {
			q.logger.Info("mock.job.cancelled_midway", "worker_id", workerID, "op_id", jobID)
			return
		}
		if !q.store.SetProcessing(jobID, phase) {
			return
		}
		time.Sleep(q.stepDelay)
	}

	tbl, err := readTable(job.FileName, job.FileData, job.SheetName)
	if err != nil {
		q.store.Fail(jobID, operation.ErrorInfo{
			Code:    string(constants.ErrCodeParse),
			Message: err.Error(),
		})
		q.logger.Error("mock.job.failed", "worker_id", workerID, "op_id", jobID, "error", err)
		return
	}

	rows := categorize(tbl, job.Context)
	result := buildResult(job.FileName, job.SheetName, rows, time.Since(start).Milliseconds())
	if q.store.Complete(jobID, result) {
		q.logger.Info("mock.job.completed",
			"worker_id", workerID,
			"op_id", jobID,
			"rows", len(rows),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

// Shutdown stops intake and waits for in-flight jobs, bounded by ctx.
func (q *JobQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()
	select {
	case <-done:
	case <-ctx.Done():
		q.logger.Warn("mock.queue.shutdown_timeout")
	}
}
