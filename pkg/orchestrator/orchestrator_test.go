package orchestrator

import (
	"testing"

	"github.com/stepnetwork/mesh-validator/pkg/attestation"
	"github.com/stepnetwork/mesh-validator/pkg/confidence"
)

func TestExpectedAppIDDispatchesByPlatform(t *testing.T) {
	o := &Orchestrator{androidPackageName: "com.step.miner", iosBundleID: "com.step.miner.ios"}

	if got := o.expectedAppID(attestation.PlatformA); got != "com.step.miner" {
		t.Errorf("expectedAppID(PlatformA) = %q, want android package", got)
	}
	if got := o.expectedAppID(attestation.PlatformB); got != "com.step.miner.ios" {
		t.Errorf("expectedAppID(PlatformB) = %q, want ios bundle id", got)
	}
}

func TestScoreBreakdownOmitsFailedSignals(t *testing.T) {
	o := &Orchestrator{weights: confidence.DefaultWeights()}
	signals := confidence.Signals{
		SignatureValid:  true,
		GpsAccuracyOK:   true,
		SpeedGateOK:     false,
		MoratoriumOK:    true,
		AttestationOK:   false,
		GnssRawPoints:   10,
		CellTowerPoints: 4,
	}

	breakdown := o.scoreBreakdown(signals)

	if breakdown["signature"] != confidence.WeightSignature {
		t.Errorf("expected signature weight present, got %+v", breakdown)
	}
	if _, ok := breakdown["speedGate"]; ok {
		t.Errorf("expected failed speedGate signal omitted, got %+v", breakdown)
	}
	if _, ok := breakdown["attestation"]; ok {
		t.Errorf("expected failed attestation signal omitted, got %+v", breakdown)
	}
	if breakdown["gnssRaw"] != 10 || breakdown["cellTower"] != 4 {
		t.Errorf("expected raw point signals carried through unmodified, got %+v", breakdown)
	}
}

func TestErrorKindsCarrySubmitResponseShape(t *testing.T) {
	err := &Error{Kind: KindLowConfidence, Message: "below threshold", Confidence: 42, Reasons: []string{"x"}}
	if err.Error() == "" {
		t.Error("expected non-empty error string")
	}
	if err.Kind != KindLowConfidence {
		t.Errorf("Kind = %v, want %v", err.Kind, KindLowConfidence)
	}
}
