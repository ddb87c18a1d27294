package client

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdi-labs/importkit/constants"
	"github.com/gdi-labs/importkit/internal/common"
	"github.com/gdi-labs/importkit/internal/operation"
	"github.com/gdi-labs/importkit/internal/results"
	"github.com/gdi-labs/importkit/internal/schema"
)

// Poll interval defaults and the fixed linear backoff step.
const (
	DefaultPollInterval    = 500 * time.Millisecond
	DefaultMaxPollInterval = 2 * time.Second
	backoffStep            = 500 * time.Millisecond
)

// RunOptions tunes one Session.Run invocation.
type RunOptions struct {
	SheetName string
	// OnProgress receives every fetched status, terminal ones included,
	// in receipt order and synchronously before the next poll.
	OnProgress      func(operation.Status)
	PollInterval    time.Duration
	MaxPollInterval time.Duration
}

// Session is the handle for one in-flight import. A Session runs at most
// one extraction at a time; a second Run while the first is still in flight
// fails fast instead of leaving two poll loops racing.
type Session struct {
	client *Client
	logger *slog.Logger

	inFlight atomic.Bool

	mu     sync.Mutex
	opID   string
	cancel context.CancelFunc
}

// NewSession binds a fresh session handle to a client.
func NewSession(c *Client) *Session {
	return &Session{client: c, logger: c.logger}
}

// OperationID returns the id of the current (or last) operation, if any.
func (s *Session) OperationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opID
}

// Run drives the whole extraction: start, poll with linear backoff, handle
// the terminal state. Pending and processing statuses keep the loop going;
// the first terminal status ends it. After cancellation the loop makes no
// further progress callbacks and returns an operation-not-found class
// error.
func (s *Session) Run(ctx context.Context, file FileUpload, ec schema.ExtractionContext, opts RunOptions) (results.ExtractionResult, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return results.ExtractionResult{}, common.NewImportError(constants.ErrCodeValidation,
			"session already has an operation in flight", nil)
	}
	defer s.inFlight.Store(false)

	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	maxInterval := opts.MaxPollInterval
	if maxInterval < interval {
		maxInterval = DefaultMaxPollInterval
	}

	started, err := s.client.Start(ctx, file, ec, opts.SheetName)
	if err != nil {
		return results.ExtractionResult{}, common.Normalize(err)
	}
	opID := started.OperationID

	pollCtx, cancelPoll := context.WithCancel(ctx)
	defer cancelPoll()
	s.client.registerPolling(opID, cancelPoll)
	defer s.client.unregisterPolling(opID)

	s.mu.Lock()
	s.opID = opID
	s.cancel = cancelPoll
	s.mu.Unlock()

	start := time.Now()
	polls := 0
	for {
		if pollCtx.Err() != nil {
			return results.ExtractionResult{}, cancelledError(opID)
		}

		st, err := s.client.GetStatus(pollCtx, opID)
		if err != nil {
			if pollCtx.Err() != nil {
				return results.ExtractionResult{}, cancelledError(opID)
			}
			return results.ExtractionResult{}, common.Normalize(err)
		}
		polls++

		if opts.OnProgress != nil {
			opts.OnProgress(st)
		}

		switch v := st.(type) {
		case operation.Completed:
			s.logger.Info("client.run.completed",
				"op_id", opID,
				"polls", polls,
				"rows", len(v.Result.Rows),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return v.Result, nil

		case operation.Failed:
			s.logger.Error("client.run.failed",
				"op_id", opID,
				"code", v.Err.Code,
				"message", v.Err.Message,
			)
			return results.ExtractionResult{}, common.ServerError(v.Err.Code, v.Err.Message, v.Err.Details)

		case operation.Cancelled:
			s.logger.Info("client.run.cancelled", "op_id", opID)
			return results.ExtractionResult{}, cancelledError(opID)

		case operation.Pending, operation.Processing:
			select {
			case <-pollCtx.Done():
				return results.ExtractionResult{}, cancelledError(opID)
			case <-time.After(interval):
			}
			interval += backoffStep
			if interval > maxInterval {
				interval = maxInterval
			}
		}
	}
}

// Cancel aborts the in-flight poll loop and requests server-side
// cancellation, best effort.
func (s *Session) Cancel(ctx context.Context) error {
	s.mu.Lock()
	opID := s.opID
	s.mu.Unlock()
	if opID == "" {
		return nil
	}
	return s.client.Cancel(ctx, opID)
}

func cancelledError(opID string) *common.ImportError {
	return &common.ImportError{
		Code:      constants.ErrCodeOperationNotFound,
		Message:   "operation " + opID + " was cancelled",
		Timestamp: time.Now().UTC(),
	}
}
