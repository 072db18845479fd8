package gnss

import (
	"context"
	"testing"

	"github.com/stepnetwork/mesh-validator/pkg/canonical"
	"github.com/stepnetwork/mesh-validator/pkg/mesh"
)

func goodConstellation(svid int, constellation string, cn0, elevation float64) canonical.GNSSSatellite {
	return canonical.GNSSSatellite{
		SVID:          svid,
		CN0DbHz:       cn0,
		ElevationDeg:  elevation,
		AzimuthDeg:    float64(svid) * 10,
		Constellation: constellation,
	}
}

func TestScoreRawEmptyYieldsZero(t *testing.T) {
	points, b := ScoreRaw(nil)
	if points != 0 {
		t.Errorf("expected 0 points for empty GNSS data, got %d", points)
	}
	if b.SatelliteCountOK {
		t.Error("expected no sub-checks to pass for empty data")
	}
}

func TestScoreRawFullBudget(t *testing.T) {
	sats := []canonical.GNSSSatellite{
		goodConstellation(1, "GPS", 25, 10),
		goodConstellation(2, "GPS", 35, 40),
		goodConstellation(3, "GLONASS", 45, 70),
		goodConstellation(4, "GALILEO", 30, 20),
	}
	points, b := ScoreRaw(sats)
	if points != RawBudget {
		t.Errorf("expected full %d points, got %d (%+v)", RawBudget, points, b)
	}
}

func TestScoreRawPathologicalElevationFailsSpreadCheck(t *testing.T) {
	sats := []canonical.GNSSSatellite{
		goodConstellation(1, "GPS", 25, 45),
		goodConstellation(2, "GPS", 35, 45.2),
		goodConstellation(3, "GLONASS", 45, 45.1),
		goodConstellation(4, "GALILEO", 30, 45.3),
	}
	_, b := ScoreRaw(sats)
	if b.ElevationSpreadOK {
		t.Error("expected pathologically uniform elevations to fail the spread check")
	}
}

func TestScoreRawTooFewSatellites(t *testing.T) {
	sats := []canonical.GNSSSatellite{
		goodConstellation(1, "GPS", 25, 10),
		goodConstellation(2, "GPS", 35, 40),
	}
	_, b := ScoreRaw(sats)
	if b.SatelliteCountOK {
		t.Error("expected satellite count check to fail with only 2 satellites")
	}
}

type fakeLookup struct {
	tower *Tower
	err   error
}

func (f fakeLookup) Lookup(ctx context.Context, mcc, mnc int, cellID int64) (*Tower, error) {
	return f.tower, f.err
}

func TestChainedTowerLookupFallsThrough(t *testing.T) {
	chain := NewChainedTowerLookup(nil, fakeLookup{err: ErrTowerNotFound}, fakeLookup{tower: &Tower{Lat: 1, Lon: 2}})
	tower, err := chain.Lookup(context.Background(), 1, 1, 1)
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if tower.Lat != 1 || tower.Lon != 2 {
		t.Errorf("expected fallback tower, got %+v", tower)
	}
}

func TestChainedTowerLookupAllMiss(t *testing.T) {
	chain := NewChainedTowerLookup(nil, fakeLookup{err: ErrTowerNotFound}, fakeLookup{err: ErrTowerNotFound})
	_, err := chain.Lookup(context.Background(), 1, 1, 1)
	if err != ErrTowerNotFound {
		t.Errorf("expected ErrTowerNotFound, got %v", err)
	}
}

func TestNullTowerLookupAlwaysNotFound(t *testing.T) {
	var l NullTowerLookup
	_, err := l.Lookup(context.Background(), 1, 1, 1)
	if err != ErrTowerNotFound {
		t.Errorf("expected ErrTowerNotFound, got %v", err)
	}
}

func TestScoreCellDistanceBuckets(t *testing.T) {
	reported := mesh.Point{Lat: 51.5074, Lon: -0.1278}
	cases := []struct {
		name  string
		tower Tower
		want  int
	}{
		{"same point", Tower{Lat: 51.5074, Lon: -0.1278}, cellScoreNear},
		{"16km away", Tower{Lat: 51.65, Lon: -0.1278}, cellScoreMid},
		{"44km away", Tower{Lat: 51.9, Lon: -0.1278}, cellScoreFar},
		{"far away", Tower{Lat: 48.8566, Lon: 2.3522}, cellScoreTooFar},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreCellDistance(reported, tc.tower)
			if got != tc.want {
				t.Errorf("ScoreCellDistance(%s) = %d, want %d", tc.name, got, tc.want)
			}
		})
	}
}
