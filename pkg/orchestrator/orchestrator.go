package orchestrator

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/stepnetwork/mesh-validator/pkg/attestation"
	"github.com/stepnetwork/mesh-validator/pkg/canonical"
	"github.com/stepnetwork/mesh-validator/pkg/confidence"
	"github.com/stepnetwork/mesh-validator/pkg/config"
	"github.com/stepnetwork/mesh-validator/pkg/database"
	"github.com/stepnetwork/mesh-validator/pkg/geometry"
	"github.com/stepnetwork/mesh-validator/pkg/gnss"
	"github.com/stepnetwork/mesh-validator/pkg/mesh"
)

// Default per-call timeouts for verifier sub-requests.
const (
	DefaultAttestationTimeout = 500 * time.Millisecond
	DefaultCellTowerTimeout   = 400 * time.Millisecond
)

// Orchestrator wires the full proof-submission pipeline
// over its collaborating packages. It holds no mutable request state —
// every field is a shared, concurrency-safe dependency.
type Orchestrator struct {
	store               *database.Store
	attestationRegistry *attestation.Registry
	towerLookup         gnss.CellTowerLookup
	weights             confidence.WeightsConfig

	gpsMaxAccuracyM     float64
	speedLimitMPS       float64
	moratorium          time.Duration
	acceptanceThreshold int
	requireAttestation  bool
	androidPackageName  string
	iosBundleID         string
	attestationTimeout  time.Duration
	cellTowerTimeout    time.Duration

	logger *log.Logger
}

// New builds an Orchestrator from the service configuration and its
// collaborating dependencies. towerLookup may be gnss.NullTowerLookup{}
// when no commercial cell-location API key is configured.
func New(cfg *config.Config, store *database.Store, attestationRegistry *attestation.Registry, towerLookup gnss.CellTowerLookup, weights confidence.WeightsConfig, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[Orchestrator] ", log.LstdFlags)
	}
	return &Orchestrator{
		store:               store,
		attestationRegistry: attestationRegistry,
		towerLookup:         towerLookup,
		weights:             weights,
		gpsMaxAccuracyM:     cfg.GPSMaxAccuracyM,
		speedLimitMPS:       cfg.ProofSpeedLimitMPS,
		moratorium:          cfg.ProofMoratorium,
		acceptanceThreshold: cfg.ConfidenceAcceptanceThreshold,
		requireAttestation:  cfg.ConfidenceRequireAttestation,
		androidPackageName:  cfg.AndroidPackageName,
		iosBundleID:         cfg.IOSBundleID,
		attestationTimeout:  DefaultAttestationTimeout,
		cellTowerTimeout:    DefaultCellTowerTimeout,
		logger:              logger,
	}
}

// Result is the success response of Submit.
type Result struct {
	Reward          string
	Unit            string
	TriangleID      string
	Level           int
	Clicks          int
	Balance         string
	Confidence      int
	ConfidenceLevel string
	Scores          map[string]int
	ProcessedAt     time.Time
}

// Submit runs the full proof-submission pipeline: structural validation,
// gates, signature recovery, verifier fan-out, confidence aggregation,
// reward computation, and the atomic commit.
func (o *Orchestrator) Submit(ctx context.Context, raw []byte, signatureHex string) (*Result, *Error) {
	payload, err := canonical.Parse(raw)
	if err != nil {
		return nil, newError(KindInvalidPayload, "%v", err)
	}

	lat, lErr := payload.Location.Lat.Float64()
	lon, oErr := payload.Location.Lon.Float64()
	accuracy, aErr := payload.Location.Accuracy.Float64()
	if lErr != nil || oErr != nil || aErr != nil {
		return nil, newError(KindInvalidPayload, "lat/lon/acc must be valid decimal numbers")
	}

	if err := geometry.AccuracyGate(accuracy, o.gpsMaxAccuracyM); err != nil {
		return nil, newError(KindLowGpsAccuracy, "%v", err)
	}

	sig, err := canonical.ParseHexSignature(signatureHex)
	if err != nil {
		return nil, newError(KindBadSignature, "%v", err)
	}
	if err := canonical.Verify(payload, sig); err != nil {
		return nil, newError(KindBadSignature, "%v", err)
	}

	exists, err := o.store.Events.ExistsForNonce(ctx, payload.Account, payload.Nonce)
	if err != nil {
		return nil, newError(KindInternalError, "nonce pre-check: %v", err)
	}
	if exists {
		return nil, newError(KindNonceReplay, "account %s has already used nonce %s", payload.Account, payload.Nonce)
	}

	if _, err := o.store.Triangles.Get(ctx, payload.TriangleID); err != nil {
		if err == database.ErrTriangleNotFound {
			return nil, newError(KindTriangleNotFound, "triangle %s not found", payload.TriangleID)
		}
		return nil, newError(KindInternalError, "triangle fetch: %v", err)
	}

	meshID, err := mesh.Decode(payload.TriangleID)
	if err != nil {
		return nil, newError(KindInvalidPayload, "malformed triangle id: %v", err)
	}

	contains, err := mesh.PointInTriangle(lat, lon, meshID)
	if err != nil {
		return nil, newError(KindInternalError, "geometry check: %v", err)
	}
	if !contains {
		return nil, newError(KindOutOfBounds, "reported position is outside triangle %s", payload.TriangleID)
	}

	priorEvents, err := o.store.Events.ForAccount(ctx, payload.Account, 1)
	if err != nil {
		return nil, newError(KindInternalError, "prior event lookup: %v", err)
	}

	var prior *geometry.PriorClick
	if len(priorEvents) > 0 && priorEvents[0].Kind == database.EventClick {
		ev := priorEvents[0]
		prior = &geometry.PriorClick{
			Point:     mesh.Point{Lat: ev.Lat.Float64, Lon: ev.Lon.Float64},
			Timestamp: ev.Timestamp,
		}
	}

	claimedTime, err := time.Parse(time.RFC3339Nano, payload.Timestamp)
	if err != nil {
		return nil, newError(KindInvalidPayload, "ts must be an ISO-8601 timestamp: %v", err)
	}

	now := time.Now()
	if err := geometry.SpeedGate(prior, mesh.Point{Lat: lat, Lon: lon}, claimedTime, o.speedLimitMPS); err != nil {
		return nil, newError(KindTooFast, "%v", err)
	}
	if err := geometry.MoratoriumGate(prior, now, o.moratorium); err != nil {
		return nil, newError(KindMoratorium, "%v", err)
	}

	verifiers := o.runVerifiers(ctx, payload)

	if o.requireAttestation {
		if payload.Attestation == nil {
			return nil, newError(KindAttestationRequired, "this deployment requires platform attestation")
		}
		if !verifiers.attestationVerdict.Passed {
			return nil, newError(KindAttestationFailed, "%s", verifiers.attestationVerdict.Reason)
		}
	}

	signals := confidence.Signals{
		SignatureValid:  true, // BadSignature would already have returned above
		GpsAccuracyOK:   true, // LowGpsAccuracy would already have returned above
		SpeedGateOK:     true,
		MoratoriumOK:    true,
		AttestationOK:   verifiers.attestationVerdict.Passed,
		GnssRawPoints:   verifiers.gnssPoints,
		CellTowerPoints: verifiers.cellPoints,
	}
	score := confidence.Aggregate(signals, o.weights, o.acceptanceThreshold)
	if !score.Accepted {
		return nil, &Error{Kind: KindLowConfidence, Message: "confidence below acceptance threshold", Confidence: score.Total, Reasons: score.Reasons}
	}

	rewardMicro := RewardMicro(meshID.Level)

	var speedMPS *float64
	if prior != nil {
		if delta := claimedTime.Sub(prior.Timestamp); delta > 0 {
			s := mesh.HaversineMeters(prior.Point, mesh.Point{Lat: lat, Lon: lon}) / delta.Seconds()
			speedMPS = &s
		}
	}

	var subdivisionChildren []database.ChildTriangle
	if meshID.Level < mesh.MaxLevel {
		subdivisionChildren, err = o.precomputeChildren(meshID)
		if err != nil {
			return nil, newError(KindInternalError, "child precomputation: %v", err)
		}
	}

	commit := database.ClickCommit{
		TriangleID:  payload.TriangleID,
		Account:     payload.Account,
		Nonce:       payload.Nonce,
		RewardMicro: rewardMicro,
		Payload: database.ClickPayload{
			MinerAddress: payload.Account,
			Lat:          lat,
			Lon:          lon,
			Accuracy:     accuracy,
			SpeedMPS:     speedMPS,
			Signature:    sig,
		},
		SubdivisionChildren: subdivisionChildren,
	}

	commitResult, err := o.store.CommitClick(ctx, commit)
	if err != nil {
		switch err {
		case database.ErrNonceReplay:
			return nil, newError(KindNonceReplay, "account %s has already used nonce %s", payload.Account, payload.Nonce)
		case database.ErrTriangleNotFound:
			return nil, newError(KindTriangleNotFound, "triangle %s not found", payload.TriangleID)
		case database.ErrAlreadySubdivided:
			return nil, newError(KindOutOfBounds, "triangle %s has already subdivided", payload.TriangleID)
		default:
			return nil, newError(KindInternalError, "commit: %v", err)
		}
	}

	return &Result{
		Reward:          formatMicroAsStep(rewardMicro.String()),
		Unit:            "STEP",
		TriangleID:      payload.TriangleID,
		Level:           meshID.Level,
		Clicks:          commitResult.Clicks,
		Balance:         formatMicroAsStep(commitResult.BalanceMicro),
		Confidence:      score.Total,
		ConfidenceLevel: score.Band,
		Scores:          o.scoreBreakdown(signals),
		ProcessedAt:     time.Now(),
	}, nil
}

func (o *Orchestrator) scoreBreakdown(s confidence.Signals) map[string]int {
	breakdown := map[string]int{
		"gnssRaw":   s.GnssRawPoints,
		"cellTower": s.CellTowerPoints,
	}
	if s.SignatureValid {
		breakdown["signature"] = o.weights.Signature
	}
	if s.GpsAccuracyOK {
		breakdown["gpsAccuracy"] = o.weights.GpsAccuracy
	}
	if s.SpeedGateOK {
		breakdown["speedGate"] = o.weights.SpeedGate
	}
	if s.MoratoriumOK {
		breakdown["moratorium"] = o.weights.Moratorium
	}
	if s.AttestationOK {
		breakdown["attestation"] = o.weights.Attestation
	}
	return breakdown
}

// precomputeChildren computes the four child triangles eagerly, ahead of
// the commit, regardless of the triangle's currently-known click count.
// This is deliberate: the click count this request sees can be stale by
// the time CommitClick locks the row, so computing children unconditionally
// (mesh.Children is a pure, cheap function) removes the race where a
// concurrent click reaches 11 first and finds no precomputed children
// waiting for it.
func (o *Orchestrator) precomputeChildren(id mesh.ID) ([]database.ChildTriangle, error) {
	children, err := mesh.Children(id)
	if err != nil {
		return nil, err
	}

	out := make([]database.ChildTriangle, 0, 4)
	for _, c := range children {
		encoded, err := mesh.Encode(c.Face, c.Path)
		if err != nil {
			return nil, err
		}
		centroid, err := mesh.Centroid(c)
		if err != nil {
			return nil, err
		}
		polygon, err := mesh.Polygon(c)
		if err != nil {
			return nil, err
		}
		dbPolygon := make([]database.Point, len(polygon))
		for i, p := range polygon {
			dbPolygon[i] = database.Point{Lat: p.Lat, Lon: p.Lon}
		}
		out = append(out, database.ChildTriangle{
			ID:       encoded,
			Face:     c.Face,
			Level:    c.Level,
			Path:     pathString(c.Path),
			Centroid: database.Point{Lat: centroid.Lat, Lon: centroid.Lon},
			Polygon:  dbPolygon,
		})
	}
	return out, nil
}

// verifierResults collects the outcome of the concurrent attestation/GNSS/
// cell-tower fan-out.
type verifierResults struct {
	attestationVerdict attestation.Verdict
	gnssPoints         int
	cellPoints         int
}

func (o *Orchestrator) runVerifiers(ctx context.Context, p *canonical.Payload) verifierResults {
	var wg sync.WaitGroup
	var res verifierResults

	if p.Attestation != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			actx, cancel := context.WithTimeout(ctx, o.attestationTimeout)
			defer cancel()
			platform := attestation.Platform(p.Attestation.Platform)
			res.attestationVerdict = o.attestationRegistry.Verify(actx, platform, p.Attestation.Token, o.expectedAppID(platform), p.Nonce)
		}()
	}

	if len(p.GNSS) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res.gnssPoints, _ = gnss.ScoreRaw(p.GNSS)
		}()
	}

	if p.Cell != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, o.cellTowerTimeout)
			defer cancel()
			tower, err := o.towerLookup.Lookup(cctx, p.Cell.MCC, p.Cell.MNC, p.Cell.CellID)
			if err != nil {
				o.logger.Printf("cell tower lookup failed, scoring 0: %v", err)
				return
			}
			lat, _ := p.Location.Lat.Float64()
			lon, _ := p.Location.Lon.Float64()
			res.cellPoints = gnss.ScoreCellDistance(mesh.Point{Lat: lat, Lon: lon}, *tower)
		}()
	}

	wg.Wait()
	return res
}

func (o *Orchestrator) expectedAppID(platform attestation.Platform) string {
	if platform == attestation.PlatformB {
		return o.iosBundleID
	}
	return o.androidPackageName
}
