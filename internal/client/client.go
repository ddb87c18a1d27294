// Package client talks to the extraction backend: start an operation,
// poll its status, cancel it, and run the whole start/poll/terminal
// workflow on behalf of one import session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gdi-labs/importkit/constants"
	"github.com/gdi-labs/importkit/internal/common"
	"github.com/gdi-labs/importkit/internal/operation"
	"github.com/gdi-labs/importkit/internal/schema"
)

// FileUpload is the file part of a start request.
type FileUpload struct {
	Name   string
	Reader io.Reader
}

// Client is the HTTP operation client. One Client may serve many sequential
// sessions; per-operation poll cancellation is tracked internally.
type Client struct {
	baseURL string
	headers map[string]string
	http    *http.Client
	logger  *slog.Logger

	mu            sync.Mutex
	activeCancels map[string]context.CancelFunc
}

// NewClient builds a Client from transport configuration.
func NewClient(cfg common.APIConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		headers:       cfg.Headers,
		http:          &http.Client{Timeout: timeout},
		logger:        logger,
		activeCancels: make(map[string]context.CancelFunc),
	}
}

// Start uploads the file and context to POST /extract and returns the
// accepted operation. The context is validated locally before any bytes go
// on the wire.
func (c *Client) Start(ctx context.Context, file FileUpload, ec schema.ExtractionContext, sheetName string) (operation.StartResponse, error) {
	reqID := uuid.New().String()
	start := time.Now()

	if err := schema.ValidateContext(ec); err != nil {
		return operation.StartResponse{}, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", file.Name)
	if err != nil {
		return operation.StartResponse{}, common.NewImportError(constants.ErrCodeUnknown, "build multipart body", err)
	}
	if _, err := io.Copy(part, file.Reader); err != nil {
		return operation.StartResponse{}, common.NewImportError(constants.ErrCodeUnknown, "read upload file", err)
	}
	ctxJSON, err := json.Marshal(ec)
	if err != nil {
		return operation.StartResponse{}, common.NewImportError(constants.ErrCodeUnknown, "encode extraction context", err)
	}
	if err := mw.WriteField("context", string(ctxJSON)); err != nil {
		return operation.StartResponse{}, common.NewImportError(constants.ErrCodeUnknown, "build multipart body", err)
	}
	if sheetName != "" {
		if err := mw.WriteField("sheet_name", sheetName); err != nil {
			return operation.StartResponse{}, common.NewImportError(constants.ErrCodeUnknown, "build multipart body", err)
		}
	}
	if err := mw.Close(); err != nil {
		return operation.StartResponse{}, common.NewImportError(constants.ErrCodeUnknown, "build multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", &body)
	if err != nil {
		return operation.StartResponse{}, common.NewImportError(constants.ErrCodeUnknown, "build request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.applyHeaders(req)

	c.logger.Info("client.start.request",
		"req_id", reqID,
		"file", file.Name,
		"sheet_name", sheetName,
		"fields", len(ec.Fields),
	)

	raw, status, err := c.do(req)
	if err != nil {
		c.logger.Error("client.start.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return operation.StartResponse{}, normalizeTransport(err)
	}
	if status/100 != 2 {
		c.logger.Error("client.start.server_error", "req_id", reqID, "status", status)
		return operation.StartResponse{}, decodeErrorEnvelope(raw, status)
	}

	var resp operation.StartResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return operation.StartResponse{}, common.NewImportError(constants.ErrCodeUnknown, "decode start response", err)
	}

	c.logger.Info("client.start.accepted",
		"req_id", reqID,
		"op_id", resp.OperationID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

// GetStatus fetches the current status of an operation. Context
// cancellation is a recognized outcome: the returned error wraps ctx's
// error and callers can distinguish it from transport failure.
func (c *Client) GetStatus(ctx context.Context, operationID string) (operation.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/operations/"+operationID, nil)
	if err != nil {
		return nil, common.NewImportError(constants.ErrCodeUnknown, "build request", err)
	}
	c.applyHeaders(req)

	raw, status, err := c.do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Poll aborted, not a network failure.
			return nil, ctx.Err()
		}
		return nil, normalizeTransport(err)
	}
	if status/100 != 2 {
		return nil, decodeErrorEnvelope(raw, status)
	}

	st, err := operation.DecodeStatus(raw)
	if err != nil {
		return nil, common.NewImportError(constants.ErrCodeUnknown, "decode operation status", err)
	}
	return st, nil
}

// Cancel requests server-side cancellation and aborts any in-flight poll
// loop for the operation. Idempotent: cancelling twice or cancelling an
// operation the server no longer knows is a no-op.
func (c *Client) Cancel(ctx context.Context, operationID string) error {
	c.abortPolling(operationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/operations/"+operationID+"/cancel", nil)
	if err != nil {
		return common.NewImportError(constants.ErrCodeUnknown, "build request", err)
	}
	c.applyHeaders(req)

	raw, status, err := c.do(req)
	if err != nil {
		return normalizeTransport(err)
	}
	if status/100 != 2 {
		cancelErr := decodeErrorEnvelope(raw, status)
		if common.IsCode(cancelErr, constants.ErrCodeOperationNotFound) ||
			common.IsCode(cancelErr, constants.ErrCodeOperationExpired) {
			c.logger.Info("client.cancel.noop", "op_id", operationID, "code", common.Normalize(cancelErr).Code)
			return nil
		}
		return cancelErr
	}

	c.logger.Info("client.cancel.ok", "op_id", operationID)
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.logger.Warn("client.http.response_body_close_error", "error", cerr)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return raw, resp.StatusCode, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
}

// registerPolling records the cancel func for an in-flight poll loop so
// Cancel can preempt it.
func (c *Client) registerPolling(operationID string, cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeCancels[operationID] = cancel
}

func (c *Client) abortPolling(operationID string) {
	c.mu.Lock()
	cancel, ok := c.activeCancels[operationID]
	if ok {
		delete(c.activeCancels, operationID)
	}
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

func (c *Client) unregisterPolling(operationID string) {
	c.mu.Lock()
	delete(c.activeCancels, operationID)
	c.mu.Unlock()
}

// normalizeTransport wraps a transport-level failure as NETWORK_ERROR.
func normalizeTransport(err error) *common.ImportError {
	return common.NewImportError(constants.ErrCodeNetwork, "request failed", err)
}

// decodeErrorEnvelope turns a non-2xx response into an ImportError. Bodies
// carrying the structured {success:false, error:{...}} envelope keep their
// code and details; anything else becomes NETWORK_ERROR.
func decodeErrorEnvelope(raw []byte, httpStatus int) *common.ImportError {
	var envelope struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string          `json:"code"`
			Message string          `json:"message"`
			Details json.RawMessage `json:"details,omitempty"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		return common.ServerError(envelope.Error.Code, envelope.Error.Message, envelope.Error.Details)
	}
	return common.NewImportError(constants.ErrCodeNetwork,
		fmt.Sprintf("unexpected response status %d", httpStatus), nil)
}
