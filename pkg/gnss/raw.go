// Package gnss implements the GNSS raw-signal and cell-tower cross-check
// signal: five bounded sub-checks against a 15-point GNSS
// budget, and a distance-bucketed cell-tower score.
package gnss

import (
	"math"

	"github.com/stepnetwork/mesh-validator/pkg/canonical"
)

// Point-budget allocation across the five GNSS sub-checks.
const (
	RawBudget = 15

	pointsSatelliteCount  = 4
	pointsConstellations  = 3
	pointsCn0Variance     = 3
	pointsCn0Mean         = 3
	pointsElevationSpread = 2

	minSatellites     = 4
	minConstellations = 2
	cn0VarianceMin    = 5.0 // dB-Hz^2
	cn0MeanLow        = 30.0
	cn0MeanHigh       = 50.0
)

// Breakdown records which sub-checks passed, for use in confidence
// reason strings.
type Breakdown struct {
	SatelliteCountOK  bool
	ConstellationsOK  bool
	Cn0VarianceOK     bool
	Cn0MeanOK         bool
	ElevationSpreadOK bool
}

// ScoreRaw scores a list of raw satellite observations against the
// five sub-checks, returning the total points (0-RawBudget) and which
// sub-checks passed. An empty or nil list yields 0 points — missing
// GNSS data is not a rejection.
func ScoreRaw(satellites []canonical.GNSSSatellite) (int, Breakdown) {
	var b Breakdown
	if len(satellites) == 0 {
		return 0, b
	}

	points := 0

	if len(satellites) >= minSatellites {
		b.SatelliteCountOK = true
		points += pointsSatelliteCount
	}

	constellations := make(map[string]struct{})
	cn0 := make([]float64, 0, len(satellites))
	elevations := make([]float64, 0, len(satellites))
	for _, s := range satellites {
		constellations[s.Constellation] = struct{}{}
		cn0 = append(cn0, s.CN0DbHz)
		elevations = append(elevations, s.ElevationDeg)
	}
	if len(constellations) >= minConstellations {
		b.ConstellationsOK = true
		points += pointsConstellations
	}

	mean, variance := meanAndVariance(cn0)
	if variance > cn0VarianceMin {
		b.Cn0VarianceOK = true
		points += pointsCn0Variance
	}
	if mean >= cn0MeanLow && mean <= cn0MeanHigh {
		b.Cn0MeanOK = true
		points += pointsCn0Mean
	}

	if !elevationDistributionPathological(elevations) {
		b.ElevationSpreadOK = true
		points += pointsElevationSpread
	}

	return points, b
}

func meanAndVariance(values []float64) (mean, variance float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	variance = sumSq / float64(len(values))
	return mean, variance
}

// elevationDistributionPathological flags the degenerate case of every
// satellite reporting (near) the same elevation angle, a signature of a
// replayed or synthetic fix rather than a live sky view.
func elevationDistributionPathological(elevations []float64) bool {
	if len(elevations) < 2 {
		return true
	}
	min, max := elevations[0], elevations[0]
	for _, e := range elevations {
		if e < min {
			min = e
		}
		if e > max {
			max = e
		}
	}
	return math.Abs(max-min) < 1.0
}
