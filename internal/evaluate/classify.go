package evaluate

import (
	"argus/internal/constants"
	"argus/pkg/models"
)

// Bands holds the per-organization risk level floors. Invariant
// medium < high < critical is enforced at write time; values here are
// trusted.
type Bands struct {
	MediumFloor   int
	HighFloor     int
	CriticalFloor int
}

// DefaultBands returns the platform floors used when an organization has no
// row of its own.
func DefaultBands() Bands {
	return Bands{
		MediumFloor:   constants.DefaultMediumFloor,
		HighFloor:     constants.DefaultHighFloor,
		CriticalFloor: constants.DefaultCriticalFloor,
	}
}

// Score sums the weights of matched contributions and clamps the result to
// [0, 100]. Weights are never scaled.
func Score(contributions []Contribution) int {
	total := 0
	for _, c := range contributions {
		if c.Matched {
			total += c.Weight
		}
	}
	if total < 0 {
		return 0
	}
	if total > constants.MaxRiskScore {
		return constants.MaxRiskScore
	}
	return total
}

// Classify applies the severity threshold gate, then maps the score onto the
// risk bands. Scores below the threshold never trigger regardless of bands;
// a triggered score below the medium floor still reports medium, the lowest
// level that exists.
func Classify(score, threshold int, bands Bands) (bool, models.RiskLevel) {
	if score < threshold {
		return false, ""
	}
	switch {
	case score >= bands.CriticalFloor:
		return true, models.RiskLevelCritical
	case score >= bands.HighFloor:
		return true, models.RiskLevelHigh
	default:
		return true, models.RiskLevelMedium
	}
}
