// Package geometry implements the anti-spoof gates that run over a single
// proof plus the most recent prior click event by the same account.
package geometry

import (
	"errors"
	"time"

	"github.com/stepnetwork/mesh-validator/pkg/mesh"
)

// Gate failure kinds.
var (
	ErrLowGpsAccuracy = errors.New("reported GPS accuracy exceeds threshold")
	ErrTooFast        = errors.New("implied speed exceeds threshold")
	ErrMoratorium     = errors.New("submitted before moratorium interval elapsed")
)

// ClockDriftTolerance bounds the window within which a negative time delta
// (current before previous, per client clocks) is treated as zero rather
// than rejected outright.
const ClockDriftTolerance = 2 * time.Minute

// AccuracyGate rejects proofs whose reported GPS accuracy exceeds
// maxAccuracyM.
func AccuracyGate(accuracyM, maxAccuracyM float64) error {
	if accuracyM > maxAccuracyM {
		return ErrLowGpsAccuracy
	}
	return nil
}

// PriorClick is the subset of the most recent prior click event needed by
// the speed and moratorium gates.
type PriorClick struct {
	Point     mesh.Point
	Timestamp time.Time // server-observed arrival time of the prior event
}

// SpeedGate computes the great-circle distance between the prior and
// current positions divided by the elapsed time, rejecting if it exceeds
// limitMPS. A nil prior indicates this is
// the account's first click, which always passes. Negative deltas within
// ClockDriftTolerance are treated as zero elapsed time with zero implied
// speed, rather than rejected; larger negative deltas are rejected with
// ErrTooFast.
func SpeedGate(prior *PriorClick, current mesh.Point, currentTime time.Time, limitMPS float64) error {
	if prior == nil {
		return nil
	}

	delta := currentTime.Sub(prior.Timestamp)
	if delta < 0 {
		if -delta <= ClockDriftTolerance {
			return nil
		}
		return ErrTooFast
	}
	if delta == 0 {
		return nil
	}

	distance := mesh.HaversineMeters(prior.Point, current)
	speed := distance / delta.Seconds()
	if speed > limitMPS {
		return ErrTooFast
	}
	return nil
}

// MoratoriumGate rejects a click submitted less than moratorium after the
// prior click, using the server's own observed arrival time for both
// sides of the comparison — never the client-supplied proof timestamp,
// which is untrusted input. A nil prior
// always passes.
func MoratoriumGate(prior *PriorClick, serverNow time.Time, moratorium time.Duration) error {
	if prior == nil {
		return nil
	}
	if serverNow.Sub(prior.Timestamp) < moratorium {
		return ErrMoratorium
	}
	return nil
}
