package gnss

import (
	"context"
	"errors"
	"log"

	"github.com/stepnetwork/mesh-validator/pkg/mesh"
)

// ErrTowerNotFound is returned by a CellTowerLookup when it has no
// record for the requested cell, not because the lookup failed.
var ErrTowerNotFound = errors.New("gnss: cell tower not found")

// Tower is a cell tower's known location, as resolved by a
// CellTowerLookup.
type Tower struct {
	Lat, Lon float64
}

// CellTowerLookup resolves a cell identity to a known tower location.
type CellTowerLookup interface {
	Lookup(ctx context.Context, mcc, mnc int, cellID int64) (*Tower, error)
}

// ChainedTowerLookup tries each lookup in order, falling through to the
// next on ErrTowerNotFound: a free global DB as primary, with a keyed
// commercial DB as fallback. Any other error from a
// lookup is logged and treated the same as not-found, since a
// cell-tower lookup failure must never be fatal to the pipeline.
type ChainedTowerLookup struct {
	lookups []CellTowerLookup
	logger  *log.Logger
}

// NewChainedTowerLookup builds a lookup chain tried in order.
func NewChainedTowerLookup(logger *log.Logger, lookups ...CellTowerLookup) *ChainedTowerLookup {
	if logger == nil {
		logger = log.New(log.Writer(), "[GNSS] ", log.LstdFlags)
	}
	return &ChainedTowerLookup{lookups: lookups, logger: logger}
}

func (c *ChainedTowerLookup) Lookup(ctx context.Context, mcc, mnc int, cellID int64) (*Tower, error) {
	for _, l := range c.lookups {
		tower, err := l.Lookup(ctx, mcc, mnc, cellID)
		if err == nil {
			return tower, nil
		}
		if errors.Is(err, ErrTowerNotFound) {
			continue
		}
		c.logger.Printf("cell tower lookup error, treating as not found: %v", err)
	}
	return nil, ErrTowerNotFound
}

// NullTowerLookup always reports not-found and never errors — the
// default wired implementation when no commercial cell-location API key
// is configured, so the cell-tower signal degrades to zero points
// rather than failing a deployment.
type NullTowerLookup struct{}

func (NullTowerLookup) Lookup(ctx context.Context, mcc, mnc int, cellID int64) (*Tower, error) {
	return nil, ErrTowerNotFound
}

// Cell-tower distance score buckets.
const (
	cellScoreNear     = 10
	cellScoreMid      = 7
	cellScoreFar      = 4
	cellScoreTooFar   = 0
	cellNearKm        = 10.0
	cellMidKm         = 25.0
	cellFarKm         = 50.0
)

// ScoreCellDistance buckets the great-circle distance between the
// reported GPS point and the looked-up tower location:
// <10 km -> 10, <25 km -> 7, <50 km -> 4, >=50 km -> 0.
func ScoreCellDistance(reported mesh.Point, tower Tower) int {
	km := mesh.HaversineMeters(reported, mesh.Point{Lat: tower.Lat, Lon: tower.Lon}) / 1000.0
	switch {
	case km < cellNearKm:
		return cellScoreNear
	case km < cellMidKm:
		return cellScoreMid
	case km < cellFarKm:
		return cellScoreFar
	default:
		return cellScoreTooFar
	}
}
