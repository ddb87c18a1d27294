// Package mockserver is an in-memory stand-in for the extraction backend.
// It implements the same HTTP surface the real service exposes (multipart
// POST /extract, GET /operations/{id}, POST /operations/{id}/cancel, JSON
// error envelope) backed by a naive rule-based "extractor", so the demo
// CLI and the end-to-end tests can exercise the full client workflow
// without an AI backend.
package mockserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gdi-labs/importkit/constants"
	"github.com/gdi-labs/importkit/internal/operation"
	"github.com/gdi-labs/importkit/internal/schema"
)

// maxUploadBytes bounds multipart parsing memory.
const maxUploadBytes = 32 << 20

// Server holds the mock backend's handlers and state.
type Server struct {
	store  *Store
	queue  *JobQueue
	logger *slog.Logger
}

// New builds a mock server. Queue options tune worker count and the
// per-phase delay (tests set a zero delay).
func New(logger *slog.Logger, opts ...QueueOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	store := NewStore()
	return &Server{
		store:  store,
		queue:  NewJobQueue(store, logger, opts...),
		logger: logger,
	}
}

// Router mounts the backend surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/extract", s.handleExtract)
	r.Get("/operations/{id}", s.handleStatus)
	r.Post("/operations/{id}/cancel", s.handleCancel)
	return r
}

// Shutdown drains the worker pool.
func (s *Server) Shutdown(ctx context.Context) {
	s.queue.Shutdown(ctx)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, constants.ErrCodeParse, "malformed multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, constants.ErrCodeValidation, "file part is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, constants.ErrCodeParse, "read file part")
		return
	}

	rawContext := r.FormValue("context")
	if rawContext == "" {
		s.writeError(w, http.StatusBadRequest, constants.ErrCodeValidation, "context part is required")
		return
	}
	if err := schema.ValidateJSONAgainstSchema(schema.BuildContextJSONSchema(), []byte(rawContext)); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, constants.ErrCodeInvalidSchema, err.Error())
		return
	}
	var ec schema.ExtractionContext
	if err := json.Unmarshal([]byte(rawContext), &ec); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, constants.ErrCodeInvalidSchema, "decode context")
		return
	}

	if !constants.IsSpreadsheetFile(header.Filename) && !constants.IsDelimitedFile(header.Filename) {
		s.writeError(w, http.StatusUnsupportedMediaType, constants.ErrCodeUnsupportedFormat,
			"unsupported file format: "+header.Filename)
		return
	}

	job := &Job{
		ID:        uuid.New().String(),
		FileName:  header.Filename,
		FileData:  data,
		SheetName: r.FormValue("sheet_name"),
		Context:   ec,
	}
	s.store.Create(job)
	s.queue.Enqueue(job.ID)

	s.logger.Info("mock.extract.accepted",
		"op_id", job.ID,
		"file", job.FileName,
		"sheet_name", job.SheetName,
		"bytes", len(data),
	)
	s.writeJSON(w, http.StatusAccepted, operation.StartResponse{
		OperationID: job.ID,
		Status:      constants.StatusPending,
		CreatedAt:   job.CreatedAt,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := s.store.Snapshot(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, constants.ErrCodeOperationNotFound, "operation "+id+" not found")
		return
	}

	switch job.Status {
	case constants.StatusPending:
		s.writeJSON(w, http.StatusOK, statusBody{
			OperationID: job.ID,
			Status:      job.Status,
			CreatedAt:   &job.CreatedAt,
		})
	case constants.StatusProcessing:
		s.writeJSON(w, http.StatusOK, statusBody{
			OperationID: job.ID,
			Status:      job.Status,
			Progress:    job.Progress,
			StartedAt:   &job.StartedAt,
		})
	case constants.StatusCompleted:
		s.writeJSON(w, http.StatusOK, statusBody{
			OperationID:      job.ID,
			Status:           job.Status,
			Result:           job.Result,
			CompletedAt:      &job.CompletedAt,
			ProcessingTimeMs: job.CompletedAt.Sub(job.StartedAt).Milliseconds(),
		})
	case constants.StatusFailed:
		s.writeJSON(w, http.StatusOK, statusBody{
			OperationID: job.ID,
			Status:      job.Status,
			Err:         job.Err,
			FailedAt:    &job.CompletedAt,
		})
	case constants.StatusCancelled:
		s.writeJSON(w, http.StatusOK, statusBody{
			OperationID: job.ID,
			Status:      job.Status,
			Message:     "operation was cancelled",
			CancelledAt: &job.CancelledAt,
		})
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	found, changed := s.store.CancelJob(id)
	if !found {
		s.writeError(w, http.StatusNotFound, constants.ErrCodeOperationNotFound, "operation "+id+" not found")
		return
	}
	if changed {
		s.logger.Info("mock.cancel.ok", "op_id", id)
	}
	job, _ := s.store.Snapshot(id)
	cancelledAt := job.CancelledAt
	if cancelledAt.IsZero() {
		cancelledAt = time.Now().UTC()
	}
	s.writeJSON(w, http.StatusOK, operation.CancelResponse{
		OperationID: id,
		Status:      constants.StatusCancelled,
		Message:     "operation was cancelled",
		CancelledAt: cancelledAt,
	})
}

// statusBody is the wire shape of GET /operations/{id}: one struct with
// status-dependent optional fields, matching what the real backend emits.
type statusBody struct {
	OperationID      string                    `json:"operationId"`
	Status           constants.OperationStatus `json:"status"`
	CreatedAt        *time.Time                `json:"createdAt,omitempty"`
	Progress         *operation.Progress       `json:"progress,omitempty"`
	StartedAt        *time.Time                `json:"startedAt,omitempty"`
	Result           any                       `json:"result,omitempty"`
	CompletedAt      *time.Time                `json:"completedAt,omitempty"`
	ProcessingTimeMs int64                     `json:"processingTimeMs,omitempty"`
	Err              *operation.ErrorInfo      `json:"error,omitempty"`
	FailedAt         *time.Time                `json:"failedAt,omitempty"`
	Message          string                    `json:"message,omitempty"`
	CancelledAt      *time.Time                `json:"cancelledAt,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Code      constants.ErrorCode `json:"code"`
	Message   string              `json:"message"`
	Timestamp time.Time           `json:"timestamp"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, code constants.ErrorCode, message string) {
	s.logger.Warn("mock.request.rejected", "status", status, "code", code, "message", message)
	s.writeJSON(w, status, errorEnvelope{
		Error: errorBody{Code: code, Message: message, Timestamp: time.Now().UTC()},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("mock.response.encode_error", "error", err)
	}
}
