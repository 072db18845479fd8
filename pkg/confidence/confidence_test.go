package confidence

import "testing"

func allPassSignals() Signals {
	return Signals{
		SignatureValid:  true,
		GpsAccuracyOK:   true,
		SpeedGateOK:     true,
		MoratoriumOK:    true,
		AttestationOK:   true,
		GnssRawPoints:   WeightGnssRaw,
		CellTowerPoints: WeightCellTower,
	}
}

func TestAggregateAllSignalsPass(t *testing.T) {
	score := Aggregate(allPassSignals(), DefaultWeights(), DefaultAcceptanceThreshold)
	want := WeightSignature + WeightGpsAccuracy + WeightSpeedGate + WeightMoratorium +
		WeightAttestation + WeightGnssRaw + WeightCellTower
	if score.Total != want {
		t.Errorf("Total = %d, want %d", score.Total, want)
	}
	if !score.Accepted {
		t.Errorf("expected acceptance, got %+v", score)
	}
	if len(score.Reasons) != 0 {
		t.Errorf("expected no reasons on full pass, got %v", score.Reasons)
	}
}

func TestAggregateFailedAttestationReducesTotalAndAddsReason(t *testing.T) {
	s := allPassSignals()
	s.AttestationOK = false
	want := 100 - WeightAttestation
	// Reasons are reported only for rejected proofs, so the threshold sits
	// just above the reduced total.
	score := Aggregate(s, DefaultWeights(), want+1)

	if score.Total != want {
		t.Errorf("Total = %d, want %d", score.Total, want)
	}
	found := false
	for _, r := range score.Reasons {
		if r == "platform attestation did not pass" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected attestation failure reason, got %v", score.Reasons)
	}
}

func TestAggregateBelowThresholdRejectsWithReasons(t *testing.T) {
	s := Signals{SignatureValid: true}
	score := Aggregate(s, DefaultWeights(), DefaultAcceptanceThreshold)
	if score.Accepted {
		t.Error("expected rejection below threshold")
	}
	if len(score.Reasons) == 0 {
		t.Error("expected rejection reasons to be populated")
	}
}

func TestAggregateWitnessBonusCanExceed100(t *testing.T) {
	s := allPassSignals()
	s.WitnessPoints = WeightWitness
	score := Aggregate(s, DefaultWeights(), DefaultAcceptanceThreshold)
	if score.Total <= 100 {
		t.Errorf("expected witness bonus to push total above 100, got %d", score.Total)
	}
}

func TestBandBoundaries(t *testing.T) {
	cases := []struct {
		total int
		want  string
	}{
		{0, BandFraudLikely},
		{49, BandFraudLikely},
		{50, BandLowConfidence},
		{69, BandLowConfidence},
		{70, BandModerateConfidence},
		{84, BandModerateConfidence},
		{85, BandHighConfidence},
		{94, BandHighConfidence},
		{95, BandVeryHighConfidence},
		{110, BandVeryHighConfidence},
	}
	for _, tc := range cases {
		if got := Band(tc.total); got != tc.want {
			t.Errorf("Band(%d) = %q, want %q", tc.total, got, tc.want)
		}
	}
}

func TestLoadWeightsMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadWeights("/nonexistent/weights.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg != DefaultWeights() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadWeightsEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadWeights("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != DefaultWeights() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}
