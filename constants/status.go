package constants

// OperationStatus is the canonical lifecycle status of a server-side
// extraction operation.
type OperationStatus string

// Stable values (the backend returns these exact strings).
const (
	StatusPending    OperationStatus = "pending"    // accepted, not yet started
	StatusProcessing OperationStatus = "processing" // in progress, carries phase progress
	StatusCompleted  OperationStatus = "completed"  // terminal success
	StatusFailed     OperationStatus = "failed"     // terminal failure
	StatusCancelled  OperationStatus = "cancelled"  // terminal, cancelled by caller
)

// Terminal reports whether s is a final status. A terminal operation never
// re-enters a non-terminal status.
func (s OperationStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Phase identifies the processing stage reported while an operation is in
// the processing status.
type Phase string

const (
	PhaseParsing    Phase = "parsing"
	PhaseDiscovery  Phase = "discovery"
	PhaseExtraction Phase = "extraction"
	PhaseMapping    Phase = "mapping"
)
