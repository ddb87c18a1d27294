package mockserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdi-labs/importkit/constants"
	"github.com/gdi-labs/importkit/internal/client"
	"github.com/gdi-labs/importkit/internal/common"
	"github.com/gdi-labs/importkit/internal/operation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startMock(t *testing.T, opts ...QueueOption) (*Server, *httptest.Server) {
	t.Helper()
	opts = append([]QueueOption{WithStepDelay(0)}, opts...)
	srv := New(testLogger(), opts...)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv, ts
}

func postExtract(t *testing.T, ts *httptest.Server, filename, fileBody, contextPart string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(fileBody))
		require.NoError(t, err)
	}
	if contextPart != "" {
		require.NoError(t, mw.WriteField("context", contextPart))
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/extract", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeErrorCode(t *testing.T, resp *http.Response) constants.ErrorCode {
	t.Helper()
	var envelope struct {
		Success bool `json:"success"`
		Error   struct {
			Code constants.ErrorCode `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.False(t, envelope.Success)
	return envelope.Error.Code
}

const validContextJSON = `{
	"description": "Contacts",
	"fields": [
		{"field": "firstName", "description": "Given name"},
		{"field": "lastName", "description": "Family name"},
		{"field": "email", "description": "Email address", "required": true}
	]
}`

func TestExtractRequiresFilePart(t *testing.T) {
	_, ts := startMock(t)
	resp := postExtract(t, ts, "", "", validContextJSON)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, constants.ErrCodeValidation, decodeErrorCode(t, resp))
}

func TestExtractRequiresContextPart(t *testing.T) {
	_, ts := startMock(t)
	resp := postExtract(t, ts, "contacts.csv", contactsCSV, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, constants.ErrCodeValidation, decodeErrorCode(t, resp))
}

func TestExtractRejectsInvalidContext(t *testing.T) {
	_, ts := startMock(t)
	resp := postExtract(t, ts, "contacts.csv", contactsCSV, `{"description":"d","fields":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, constants.ErrCodeInvalidSchema, decodeErrorCode(t, resp))
}

func TestExtractRejectsUnsupportedFormat(t *testing.T) {
	_, ts := startMock(t)
	resp := postExtract(t, ts, "notes.txt", "whatever", validContextJSON)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	assert.Equal(t, constants.ErrCodeUnsupportedFormat, decodeErrorCode(t, resp))
}

func TestStatusUnknownOperation(t *testing.T) {
	_, ts := startMock(t)
	resp, err := http.Get(ts.URL + "/operations/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, constants.ErrCodeOperationNotFound, decodeErrorCode(t, resp))
}

func TestCancelUnknownOperation(t *testing.T) {
	_, ts := startMock(t)
	resp, err := http.Post(ts.URL+"/operations/nope/cancel", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEndToEndThroughRealClient(t *testing.T) {
	_, ts := startMock(t)

	c := client.NewClient(common.APIConfig{BaseURL: ts.URL, Timeout: 5 * time.Second}, testLogger())
	sess := client.NewSession(c)

	var sawProcessing bool
	res, err := sess.Run(context.Background(),
		client.FileUpload{Name: "contacts.csv", Reader: strings.NewReader(contactsCSV)},
		contactContext(), client.RunOptions{
			PollInterval:    time.Millisecond,
			MaxPollInterval: 5 * time.Millisecond,
			OnProgress: func(st operation.Status) {
				if _, ok := st.(operation.Processing); ok {
					sawProcessing = true
				}
			},
		})
	require.NoError(t, err)

	require.Len(t, res.Rows, 3)
	first := res.Rows[0]
	assert.Equal(t, "email", first.Direct["email"].TargetField)
	assert.Equal(t, "ada@example.com", first.Direct["email"].Value)

	cc := first.Compound["Full Name"]
	require.Len(t, cc.Extractions, 2)
	assert.Equal(t, "Ada", cc.Extractions[0].ExtractedValue)
	assert.Equal(t, "Lovelace", cc.Extractions[1].ExtractedValue)

	assert.Contains(t, first.Unmapped, "Notes")
	require.NotNil(t, res.Source)
	assert.Equal(t, "contacts.csv", res.Source.Filename)
	_ = sawProcessing // timing-dependent with a zero step delay
}

func TestEndToEndCancellation(t *testing.T) {
	// A generous step delay keeps the job in processing long enough for
	// the cancel to land mid-script.
	_, ts := startMock(t, WithStepDelay(100*time.Millisecond))

	c := client.NewClient(common.APIConfig{BaseURL: ts.URL, Timeout: 5 * time.Second}, testLogger())
	sess := client.NewSession(c)

	started := make(chan struct{})
	var once bool
	done := make(chan error, 1)
	go func() {
		_, err := sess.Run(context.Background(),
			client.FileUpload{Name: "contacts.csv", Reader: strings.NewReader(contactsCSV)},
			contactContext(), client.RunOptions{
				PollInterval:    10 * time.Millisecond,
				MaxPollInterval: 20 * time.Millisecond,
				OnProgress: func(operation.Status) {
					if !once {
						once = true
						close(started)
					}
				},
			})
		done <- err
	}()

	<-started
	require.NoError(t, sess.Cancel(context.Background()))

	err := <-done
	require.Error(t, err)
	assert.True(t, common.IsCode(err, constants.ErrCodeOperationNotFound))

	// The server side also reflects the cancellation.
	opID := sess.OperationID()
	require.NotEmpty(t, opID)
	require.Eventually(t, func() bool {
		resp, gerr := http.Get(ts.URL + "/operations/" + opID)
		if gerr != nil {
			return false
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		st, derr := operation.DecodeStatus(raw)
		if derr != nil {
			return false
		}
		return st.Kind() == constants.StatusCancelled
	}, 2*time.Second, 20*time.Millisecond)
}

func TestQueueRejectsAfterShutdown(t *testing.T) {
	store := NewStore()
	q := NewJobQueue(store, testLogger(), WithStepDelay(0))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)

	// Must not panic on a closed channel.
	q.Enqueue("late-job")
}
