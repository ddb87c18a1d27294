package results

import "fmt"

// Confidence level buckets derived from the 1-10 score.
const (
	LevelHigh   = "high"   // 8-10
	LevelMedium = "medium" // 5-7
	LevelLow    = "low"    // 1-4
)

// ConfidenceLevel buckets a 1-10 score into high/medium/low.
func ConfidenceLevel(score int) string {
	switch {
	case score >= 8:
		return LevelHigh
	case score >= 5:
		return LevelMedium
	default:
		return LevelLow
	}
}

// NewConfidenceScore pairs a raw score with its derived level.
func NewConfidenceScore(score int) ConfidenceScore {
	return ConfidenceScore{Value: score, Level: ConfidenceLevel(score)}
}

// ConfidenceLabel renders a human-readable confidence description.
func ConfidenceLabel(score int) string {
	switch ConfidenceLevel(score) {
	case LevelHigh:
		return fmt.Sprintf("High confidence (%d/10)", score)
	case LevelMedium:
		return fmt.Sprintf("Medium confidence (%d/10)", score)
	default:
		return fmt.Sprintf("Low confidence (%d/10)", score)
	}
}
