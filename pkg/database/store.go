// Store is the facade the orchestrator depends on: it exposes read
// repositories plus the single atomic write the proof-submission pipeline
// needs, CommitClick, implemented as one SQL transaction.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store bundles the three repositories and the atomic commit operation.
type Store struct {
	client     *Client
	Triangles  *TriangleRepository
	Events     *EventRepository
	Accounts   *AccountRepository
}

// NewStore creates a Store backed by the given client.
func NewStore(client *Client) *Store {
	return &Store{
		client:    client,
		Triangles: NewTriangleRepository(client),
		Events:    NewEventRepository(client),
		Accounts:  NewAccountRepository(client),
	}
}

// ClickPayload carries the type-specific fields recorded on a click event.
type ClickPayload struct {
	MinerAddress string
	Lat          float64
	Lon          float64
	Accuracy     float64
	SpeedMPS     *float64
	Signature    []byte
}

// ClickCommit is the input to the atomic commit step of the proof
// submission pipeline.
type ClickCommit struct {
	TriangleID  string
	Account     string
	Nonce       string
	RewardMicro *big.Int
	Payload     ClickPayload

	// SubdivisionChildren is computed by the caller (pkg/orchestrator,
	// from pkg/mesh) for every click on a triangle below MaxMeshLevel,
	// whatever its current click count, and is used only when this click
	// is the 11th, so the transaction never calls back out to mesh algebra
	// itself.
	SubdivisionChildren []ChildTriangle
}

// ChildTriangle is a fully-computed child record ready for insertion,
// produced by pkg/mesh ahead of the transaction.
type ChildTriangle struct {
	ID       string
	Face     int
	Level    int
	Path     string
	Centroid Point
	Polygon  []Point
}

// CommitResult reports the post-commit state needed for the orchestrator's
// response envelope.
type CommitResult struct {
	EventID       string
	Clicks        int
	Subdivided    bool
	ChildIDs      []string
	BalanceMicro  string
}

// CommitClick performs the insert-event, update-or-subdivide-triangle, and
// credit-account steps in a single transaction. The unique index on
// (account, nonce) is the authoritative replay guard: a concurrent
// duplicate submission fails here with ErrNonceReplay even if the
// application-level pre-check in the orchestrator raced past it.
func (s *Store) CommitClick(ctx context.Context, cc ClickCommit) (*CommitResult, error) {
	tx, err := s.client.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin commit transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	eventID := uuid.New().String()

	var speedMPS sql.NullFloat64
	if cc.Payload.SpeedMPS != nil {
		speedMPS = sql.NullFloat64{Float64: *cc.Payload.SpeedMPS, Valid: true}
	}

	var current Triangle
	var polyLat, polyLon pq.Float64Array
	var childIDs pq.StringArray
	err = tx.QueryRowContext(ctx, `
		SELECT state, clicks, face, level, path, centroid_lat, centroid_lon, polygon_lat, polygon_lon, child_ids
		FROM step_triangles WHERE id = $1 FOR UPDATE`, cc.TriangleID,
	).Scan(&current.State, &current.Clicks, &current.Face, &current.Level, &current.Path,
		&current.Centroid.Lat, &current.Centroid.Lon, &polyLat, &polyLon, &childIDs)
	if err == sql.ErrNoRows {
		return nil, ErrTriangleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock triangle: %w", err)
	}
	if current.State == TriangleSubdivided {
		return nil, ErrAlreadySubdivided
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO step_events (
			id, triangle_id, kind, ts, account, nonce, signature,
			miner_address, reward_micro, click_number, lat, lon, accuracy, speed_mps
		) VALUES ($1,$2,'click',$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		eventID, cc.TriangleID, now, cc.Account, cc.Nonce, cc.Payload.Signature,
		cc.Payload.MinerAddress, cc.RewardMicro.String(), current.Clicks+1,
		cc.Payload.Lat, cc.Payload.Lon, cc.Payload.Accuracy, speedMPS,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrNonceReplay
		}
		return nil, fmt.Errorf("failed to insert click event: %w", err)
	}

	newClicks := current.Clicks + 1
	result := &CommitResult{EventID: eventID, Clicks: newClicks}

	// A level-21 triangle has no children to subdivide into — mesh algebra
	// refuses to compute them — so its 11th click freezes it in place
	// (state=subdivided, zero children) rather than erroring. Every other
	// level always arrives here with exactly 4 precomputed children; the
	// caller (pkg/orchestrator) computes them unconditionally ahead of the
	// commit so a concurrent click racing this one to click 11 never finds
	// SubdivisionChildren missing.
	if newClicks == 11 && current.Level >= MaxMeshLevel {
		_, err = tx.ExecContext(ctx, `
			UPDATE step_triangles
			SET state = 'subdivided', clicks = $2, last_click_at = $3, updated_at = $3
			WHERE id = $1`,
			cc.TriangleID, newClicks, now)
		if err != nil {
			return nil, fmt.Errorf("failed to freeze max-level triangle: %w", err)
		}
		result.Subdivided = true
	} else if newClicks == 11 {
		if len(cc.SubdivisionChildren) != 4 {
			return nil, fmt.Errorf("subdivision requires exactly 4 precomputed children, got %d", len(cc.SubdivisionChildren))
		}
		childIDList := make([]string, 4)
		for i, child := range cc.SubdivisionChildren {
			childIDList[i] = child.ID
			cPolyLat := make(pq.Float64Array, len(child.Polygon))
			cPolyLon := make(pq.Float64Array, len(child.Polygon))
			for j, p := range child.Polygon {
				cPolyLat[j] = p.Lat
				cPolyLon[j] = p.Lon
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO step_triangles (
					id, face, level, path, parent_id, child_ids, state, clicks,
					moratorium_start, last_click_at, centroid_lat, centroid_lon,
					polygon_lat, polygon_lon, created_at, updated_at
				) VALUES ($1,$2,$3,$4,$5,'{}','active',0,$6,NULL,$7,$8,$9,$10,$6,$6)`,
				child.ID, child.Face, child.Level, child.Path, cc.TriangleID, now,
				child.Centroid.Lat, child.Centroid.Lon, cPolyLat, cPolyLon,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to insert child triangle %s: %w", child.ID, err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE step_triangles
			SET state = 'subdivided', clicks = $2, last_click_at = $3, child_ids = $4, updated_at = $3
			WHERE id = $1`,
			cc.TriangleID, newClicks, now, pq.StringArray(childIDList))
		if err != nil {
			return nil, fmt.Errorf("failed to mark triangle subdivided: %w", err)
		}

		subdivideNonce := eventID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO step_events (id, triangle_id, kind, ts, account, nonce, parent_id, child_ids, old_level, new_level)
			VALUES ($1,$2,'subdivide',$3,$4,$5,$2,$6,$7,$8)`,
			uuid.New().String(), cc.TriangleID, now, SystemAccount, subdivideNonce,
			pq.StringArray(childIDList), current.Level, current.Level+1,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert subdivide event: %w", err)
		}

		result.Subdivided = true
		result.ChildIDs = childIDList
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE step_triangles SET clicks = $2, last_click_at = $3, updated_at = $3 WHERE id = $1`,
			cc.TriangleID, newClicks, now)
		if err != nil {
			return nil, fmt.Errorf("failed to increment triangle clicks: %w", err)
		}
	}

	var balanceMicro string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO step_accounts (address, balance_micro, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (address) DO UPDATE SET
			balance_micro = step_accounts.balance_micro + EXCLUDED.balance_micro,
			updated_at = $3
		RETURNING balance_micro`,
		cc.Account, cc.RewardMicro.String(), now,
	).Scan(&balanceMicro)
	if err != nil {
		return nil, fmt.Errorf("failed to credit account: %w", err)
	}
	result.BalanceMicro = balanceMicro

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return result, nil
}
