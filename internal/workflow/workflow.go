// Package workflow drives one import session through its states: a file is
// selected, spreadsheets get their sheets inspected (and, when several are
// visible, user-selected), extraction runs to completion with progress,
// and the result is reviewed, remapped and confirmed into a final export
// payload. Every transition that clears the file also clears all
// per-session state; partial resets are the bug class this package guards
// against.
package workflow

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gdi-labs/importkit/constants"
	"github.com/gdi-labs/importkit/internal/client"
	"github.com/gdi-labs/importkit/internal/common"
	"github.com/gdi-labs/importkit/internal/export"
	"github.com/gdi-labs/importkit/internal/mapping"
	"github.com/gdi-labs/importkit/internal/operation"
	"github.com/gdi-labs/importkit/internal/results"
	"github.com/gdi-labs/importkit/internal/schema"
	"github.com/gdi-labs/importkit/internal/sheets"
)

// State is the orchestrator's current position in the import dialog.
type State string

const (
	StateIdle           State = "idle"
	StateInspecting     State = "inspecting"
	StateSelectingSheet State = "selecting-sheet"
	StateExtracting     State = "extracting"
	StateResults        State = "results"
	StateError          State = "error"
)

// FileSource names a selected file and knows how to open it. Inspection
// and upload each open their own reader.
type FileSource struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FromPath builds a FileSource over a file on disk.
func FromPath(path string) FileSource {
	return FileSource{
		Name: path,
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// Outcome is handed to the caller when the user confirms the review step.
type Outcome struct {
	Result    results.ExtractionResult
	Mappings  mapping.Mappings
	Overrides mapping.Overrides
	Output    export.FinalOutput
}

// Options configures a workflow session.
type Options struct {
	OnProgress func(operation.Status)
	Poll       common.PollConfig
}

// Session is the orchestrator for one import dialog. Methods are meant to
// be called from a single goroutine; Abort is the exception and may be
// called concurrently (e.g. from a signal handler).
type Session struct {
	ctxDef    schema.ExtractionContext
	sess      *client.Session
	inspector sheets.Inspector
	logger    *slog.Logger
	opts      Options

	state      State
	file       *FileSource
	inspection *sheets.InspectionResult
	sheetName  string
	result     *results.ExtractionResult
	mapState   *mapping.State
	lastErr    *common.ImportError
}

// New builds an idle workflow session around an operation client.
func New(c *client.Client, inspector sheets.Inspector, ctxDef schema.ExtractionContext, logger *slog.Logger, opts Options) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ctxDef:    ctxDef,
		sess:      client.NewSession(c),
		inspector: inspector,
		logger:    logger,
		opts:      opts,
		state:     StateIdle,
		mapState:  mapping.NewState(),
	}
}

// State returns the current workflow state.
func (s *Session) State() State { return s.state }

// Context returns the immutable extraction context of this session.
func (s *Session) Context() schema.ExtractionContext { return s.ctxDef }

// Result returns the extraction result while in the results state.
func (s *Session) Result() (results.ExtractionResult, bool) {
	if s.result == nil {
		return results.ExtractionResult{}, false
	}
	return *s.result, true
}

// Inspection returns sheet metadata gathered for the selected file, if any.
func (s *Session) Inspection() (sheets.InspectionResult, bool) {
	if s.inspection == nil {
		return sheets.InspectionResult{}, false
	}
	return *s.inspection, true
}

// MappingState exposes the session's mapping state machine for review
// edits.
func (s *Session) MappingState() *mapping.State { return s.mapState }

// ConfirmState evaluates the confirm gate against the current mappings.
func (s *Session) ConfirmState() mapping.ConfirmState {
	return mapping.EvaluateConfirm(s.ctxDef, s.mapState.Mappings())
}

// LastError returns the normalized error that moved the session into the
// error state.
func (s *Session) LastError() *common.ImportError { return s.lastErr }

// SelectFile accepts a file in the idle state. Plain delimited files go
// straight to extraction. Spreadsheets are inspected first: a single (or
// no) visible sheet auto-selects, several visible sheets park the session
// in selecting-sheet, and an inspection failure degrades gracefully to
// extraction without a sheet name.
func (s *Session) SelectFile(ctx context.Context, src FileSource) error {
	if s.state != StateIdle {
		return s.invalidTransition("SelectFile")
	}
	s.file = &src

	if !constants.IsSpreadsheetFile(src.Name) {
		s.logger.Info("workflow.file.delimited", "file", src.Name)
		return s.extract(ctx)
	}

	s.state = StateInspecting
	inspection, err := s.inspectFile(src)
	if err != nil {
		s.logger.Warn("workflow.inspect.failed_proceeding", "file", src.Name, "error", err)
		return s.extract(ctx)
	}
	s.inspection = &inspection

	if inspection.RequiresSheetSelection {
		s.state = StateSelectingSheet
		s.logger.Info("workflow.inspect.selection_required",
			"file", src.Name, "visible_sheets", len(inspection.VisibleSheets))
		return nil
	}
	if len(inspection.VisibleSheets) == 1 {
		s.sheetName = inspection.VisibleSheets[0].Name
		s.logger.Info("workflow.inspect.auto_selected", "file", src.Name, "sheet", s.sheetName)
	}
	return s.extract(ctx)
}

// ChooseSheet resumes an import parked in selecting-sheet.
func (s *Session) ChooseSheet(ctx context.Context, name string) error {
	if s.state != StateSelectingSheet {
		return s.invalidTransition("ChooseSheet")
	}
	s.sheetName = name
	return s.extract(ctx)
}

// CancelSheetSelection abandons the parked import and clears the file.
func (s *Session) CancelSheetSelection() error {
	if s.state != StateSelectingSheet {
		return s.invalidTransition("CancelSheetSelection")
	}
	s.resetAll()
	return nil
}

// Confirm finishes the review step. The confirm gate must be open; the
// assembled output is returned together with the result, mappings and
// overrides, and the session resets to idle.
func (s *Session) Confirm() (Outcome, error) {
	if s.state != StateResults {
		return Outcome{}, s.invalidTransition("Confirm")
	}
	gate := s.ConfirmState()
	if !gate.Enabled {
		return Outcome{}, common.NewImportError(constants.ErrCodeValidation, gate.Tooltip, nil)
	}

	mappings := s.mapState.Mappings()
	overrides := s.mapState.Overrides()
	outcome := Outcome{
		Result:    *s.result,
		Mappings:  mappings,
		Overrides: overrides,
		Output:    export.Assemble(*s.result, mappings, overrides),
	}
	s.logger.Info("workflow.confirm.ok", "items", outcome.Output.Metadata.TotalItems)
	s.resetAll()
	return outcome, nil
}

// CancelReview abandons the results step and clears all session state.
func (s *Session) CancelReview() error {
	if s.state != StateResults {
		return s.invalidTransition("CancelReview")
	}
	s.resetAll()
	return nil
}

// DismissError acknowledges a failed import and returns to idle.
func (s *Session) DismissError() error {
	if s.state != StateError {
		return s.invalidTransition("DismissError")
	}
	s.resetAll()
	return nil
}

// Abort cancels any in-flight operation best effort and resets the
// session. Safe to call from any state, including while extract is
// blocked; the poll loop observes the cancellation at its next boundary.
func (s *Session) Abort(ctx context.Context) {
	if err := s.sess.Cancel(ctx); err != nil {
		s.logger.Warn("workflow.abort.cancel_error", "error", err)
	}
}

func (s *Session) extract(ctx context.Context) error {
	src := *s.file
	s.state = StateExtracting

	f, err := src.Open()
	if err != nil {
		return s.fail(common.NewImportError(constants.ErrCodeUnknown, "open file", err))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.logger.Warn("workflow.extract.file_close_error", "error", cerr)
		}
	}()

	start := time.Now()
	res, err := s.sess.Run(ctx, client.FileUpload{Name: src.Name, Reader: f}, s.ctxDef, client.RunOptions{
		SheetName:       s.sheetName,
		OnProgress:      s.opts.OnProgress,
		PollInterval:    s.opts.Poll.Interval,
		MaxPollInterval: s.opts.Poll.MaxInterval,
	})
	if err != nil {
		return s.fail(common.Normalize(err))
	}

	s.result = &res
	s.mapState.Seed(res, s.ctxDef)
	s.state = StateResults
	s.logger.Info("workflow.extract.ok",
		"file", src.Name,
		"rows", len(res.Rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *Session) fail(ierr *common.ImportError) error {
	s.lastErr = ierr
	s.state = StateError
	s.logger.Error("workflow.extract.failed", "code", ierr.Code, "message", ierr.Message)
	return ierr
}

// resetAll clears every piece of per-session state in one place. Keeping a
// single reset path is what guarantees no transition leaves stale sheet
// info, progress, errors or mappings behind.
func (s *Session) resetAll() {
	s.state = StateIdle
	s.file = nil
	s.inspection = nil
	s.sheetName = ""
	s.result = nil
	s.lastErr = nil
	s.mapState.Reset()
}

func (s *Session) invalidTransition(event string) error {
	return common.NewImportError(constants.ErrCodeValidation,
		event+" is not valid in state "+string(s.state), nil)
}

func (s *Session) inspectFile(src FileSource) (sheets.InspectionResult, error) {
	f, err := src.Open()
	if err != nil {
		return sheets.InspectionResult{}, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.logger.Warn("workflow.inspect.file_close_error", "error", cerr)
		}
	}()
	return s.inspector.Inspect(f)
}
