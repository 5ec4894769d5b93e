package scoring

import (
	"fmt"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
)

// Thresholds maps a score to a status. Scores at or above Malicious are
// MALICIOUS, at or above Suspicious are SUSPICIOUS, everything else SAFE.
type Thresholds struct {
	Suspicious int
	Malicious  int
}

var DefaultThresholds = Thresholds{Suspicious: 30, Malicious: 70}

func NewThresholds(suspicious, malicious int) (Thresholds, error) {
	if suspicious <= 0 || suspicious >= malicious || malicious > 100 {
		return Thresholds{}, fmt.Errorf("invalid thresholds: suspicious=%d malicious=%d", suspicious, malicious)
	}
	return Thresholds{Suspicious: suspicious, Malicious: malicious}, nil
}

// StatusFor is the only path from score to status.
func (t Thresholds) StatusFor(score int) models.ScanStatus {
	score = ClampScore(score)
	switch {
	case score >= t.Malicious:
		return models.StatusMalicious
	case score >= t.Suspicious:
		return models.StatusSuspicious
	default:
		return models.StatusSafe
	}
}

func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func summaryFor(status models.ScanStatus) string {
	switch status {
	case models.StatusMalicious:
		return "Multiple signals flagged this target as malicious."
	case models.StatusSuspicious:
		return "At least one indicator appears suspicious."
	default:
		return "No immediate malicious indicators were detected."
	}
}
