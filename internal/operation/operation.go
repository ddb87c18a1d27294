// Package operation models the lifecycle of one server-side extraction job
// as a closed sum over its status variants. The backend reports status as a
// tagged union on the "status" string; decoding produces exactly one of the
// variant types below so consumers switch exhaustively instead of narrowing
// optional fields.
package operation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gdi-labs/importkit/constants"
	"github.com/gdi-labs/importkit/internal/results"
)

// Progress is the phase report carried by a processing status.
type Progress struct {
	Phase           constants.Phase `json:"phase"`
	Message         string          `json:"message"`
	PercentComplete int             `json:"percentComplete"` // 0-100
}

// ErrorInfo is the error block of a failed status. Details is a
// server-defined blob kept opaque.
type ErrorInfo struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

// Status is the closed sum of operation status variants. Exactly the five
// types in this package implement it.
type Status interface {
	// OperationID returns the opaque operation identifier.
	OperationID() string
	// Kind returns the status tag this variant decodes from.
	Kind() constants.OperationStatus

	statusVariant()
}

// Pending means the operation was accepted but has not started processing.
type Pending struct {
	ID        string    `json:"operationId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Processing means the operation is running; Progress is always present.
type Processing struct {
	ID                      string     `json:"operationId"`
	Progress                Progress   `json:"progress"`
	StartedAt               time.Time  `json:"startedAt"`
	EstimatedCompletionTime *time.Time `json:"estimatedCompletionTime,omitempty"`
}

// Completed is terminal success; Result is the embedded extraction payload.
type Completed struct {
	ID               string                   `json:"operationId"`
	Result           results.ExtractionResult `json:"result"`
	CompletedAt      time.Time                `json:"completedAt"`
	ProcessingTimeMs int64                    `json:"processingTimeMs"`
}

// Failed is terminal failure with the server's error block.
type Failed struct {
	ID       string    `json:"operationId"`
	Err      ErrorInfo `json:"error"`
	FailedAt time.Time `json:"failedAt"`
}

// Cancelled is terminal cancellation.
type Cancelled struct {
	ID          string    `json:"operationId"`
	Message     string    `json:"message"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (p Pending) OperationID() string    { return p.ID }
func (p Processing) OperationID() string { return p.ID }
func (c Completed) OperationID() string  { return c.ID }
func (f Failed) OperationID() string     { return f.ID }
func (c Cancelled) OperationID() string  { return c.ID }

func (Pending) Kind() constants.OperationStatus    { return constants.StatusPending }
func (Processing) Kind() constants.OperationStatus { return constants.StatusProcessing }
func (Completed) Kind() constants.OperationStatus  { return constants.StatusCompleted }
func (Failed) Kind() constants.OperationStatus     { return constants.StatusFailed }
func (Cancelled) Kind() constants.OperationStatus  { return constants.StatusCancelled }

func (Pending) statusVariant()    {}
func (Processing) statusVariant() {}
func (Completed) statusVariant()  {}
func (Failed) statusVariant()     {}
func (Cancelled) statusVariant()  {}

// DecodeStatus unmarshals a GET /operations/{id} body into the matching
// variant. An unrecognized status tag is an error, not a silent fallthrough.
func DecodeStatus(data []byte) (Status, error) {
	var tag struct {
		Status constants.OperationStatus `json:"status"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("decode status tag: %w", err)
	}

	switch tag.Status {
	case constants.StatusPending:
		var v Pending
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode pending status: %w", err)
		}
		return v, nil
	case constants.StatusProcessing:
		var v Processing
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode processing status: %w", err)
		}
		return v, nil
	case constants.StatusCompleted:
		var v Completed
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode completed status: %w", err)
		}
		return v, nil
	case constants.StatusFailed:
		var v Failed
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode failed status: %w", err)
		}
		return v, nil
	case constants.StatusCancelled:
		var v Cancelled
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode cancelled status: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unrecognized operation status %q", tag.Status)
	}
}

// StartResponse is the body of a 202 from POST /extract.
type StartResponse struct {
	OperationID             string                    `json:"operationId"`
	Status                  constants.OperationStatus `json:"status"`
	CreatedAt               time.Time                 `json:"createdAt"`
	EstimatedCompletionTime *time.Time                `json:"estimatedCompletionTime,omitempty"`
}

// CancelResponse is the body of POST /operations/{id}/cancel.
type CancelResponse struct {
	OperationID string                    `json:"operationId"`
	Status      constants.OperationStatus `json:"status"`
	Message     string                    `json:"message"`
	CancelledAt time.Time                 `json:"cancelledAt"`
}
