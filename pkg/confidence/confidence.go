// Package confidence implements the nine-signal weighted confidence
// aggregation for a proof submission.
package confidence

import "fmt"

// Signal weights. Witness is a reserved bonus
// that can push the total above 100; all others are capped contributors
// to a 100-point budget.
const (
	WeightSignature  = 20
	WeightGpsAccuracy = 15
	WeightSpeedGate   = 10
	WeightMoratorium  = 5
	WeightAttestation = 25
	WeightGnssRaw     = 15
	WeightCellTower   = 10
	WeightWifi        = 10 // reserved, always 0 until Wi-Fi verification ships
	WeightWitness     = 10 // reserved bonus, always 0 until witness corroboration ships
)

// DefaultAcceptanceThreshold is the default minimum total required to
// accept a proof.
const DefaultAcceptanceThreshold = 70

// Signals is the per-signal pass/fail plus earned-points input to
// Aggregate. Each Points field is the value the caller already computed
// for a bounded sub-check (e.g. gnss.ScoreRaw's 0-15); the boolean
// fields are binary signals the orchestrator already decided.
type Signals struct {
	SignatureValid  bool
	GpsAccuracyOK   bool
	SpeedGateOK     bool
	MoratoriumOK    bool
	AttestationOK   bool
	GnssRawPoints   int // 0-WeightGnssRaw, from gnss.ScoreRaw
	CellTowerPoints int // 0-WeightCellTower, from gnss.ScoreCellDistance
	WifiPoints      int // reserved, always 0 for now
	WitnessPoints   int // reserved bonus, always 0 for now
}

// Score is the aggregated result of scoring one proof.
type Score struct {
	Total     int
	Band      string
	Accepted  bool
	Reasons   []string
}

// Aggregate sums the weighted signals into a Score using weights,
// deciding acceptance against threshold. Pass DefaultWeights() for the
// default weight table unmodified, or a WeightsConfig loaded from a
// deployment's YAML override via LoadWeights.
func Aggregate(s Signals, weights WeightsConfig, threshold int) *Score {
	total := 0
	var reasons []string

	if s.SignatureValid {
		total += weights.Signature
	} else {
		reasons = append(reasons, "signature did not recover to the claimed account")
	}

	if s.GpsAccuracyOK {
		total += weights.GpsAccuracy
	} else {
		reasons = append(reasons, "reported GPS accuracy exceeded the configured threshold")
	}

	if s.SpeedGateOK {
		total += weights.SpeedGate
	} else {
		reasons = append(reasons, "implied speed since the prior click exceeded the configured threshold")
	}

	if s.MoratoriumOK {
		total += weights.Moratorium
	} else {
		reasons = append(reasons, "submitted before the moratorium interval elapsed")
	}

	if s.AttestationOK {
		total += weights.Attestation
	} else {
		reasons = append(reasons, "platform attestation did not pass")
	}

	total += clamp(s.GnssRawPoints, 0, weights.GnssRaw)
	if s.GnssRawPoints < weights.GnssRaw {
		reasons = append(reasons, "GNSS raw-signal sub-checks did not all pass")
	}

	total += clamp(s.CellTowerPoints, 0, weights.CellTower)
	if s.CellTowerPoints < weights.CellTower {
		reasons = append(reasons, "reported position was far from the serving cell tower")
	}

	total += clamp(s.WifiPoints, 0, weights.Wifi)
	total += clamp(s.WitnessPoints, 0, weights.Witness) // bonus, uncapped against total

	accepted := total >= threshold
	if accepted {
		reasons = nil
	} else {
		reasons = append(reasons, thresholdSummary(total, threshold))
	}

	return &Score{
		Total:    total,
		Band:     Band(total),
		Accepted: accepted,
		Reasons:  reasons,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func thresholdSummary(total, threshold int) string {
	return fmt.Sprintf("total confidence %d is below acceptance threshold %d", total, threshold)
}

// Band labels. The three intermediate bands fill the gap between Fraud
// Likely and Very High Confidence; DefaultAcceptanceThreshold (70) falls
// inside Moderate Confidence.
const (
	BandFraudLikely       = "Fraud Likely"
	BandLowConfidence     = "Low Confidence"
	BandModerateConfidence = "Moderate Confidence"
	BandHighConfidence    = "High Confidence"
	BandVeryHighConfidence = "Very High Confidence"
)

// Band maps a total score to its labeled band.
func Band(total int) string {
	switch {
	case total < 50:
		return BandFraudLikely
	case total < 70:
		return BandLowConfidence
	case total < 85:
		return BandModerateConfidence
	case total < 95:
		return BandHighConfidence
	default:
		return BandVeryHighConfidence
	}
}
