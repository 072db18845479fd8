// Event repository - append-only audit log for clicks and subdivisions.

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// EventRepository handles the append-only event log.
type EventRepository struct {
	client *Client
}

// NewEventRepository creates a new event repository.
func NewEventRepository(client *Client) *EventRepository {
	return &EventRepository{client: client}
}

const eventColumns = `
	id, triangle_id, kind, ts, account, nonce, signature,
	miner_address, reward_micro, click_number, lat, lon, accuracy, speed_mps,
	parent_id, child_ids, old_level, new_level`

func scanEvent(row interface{ Scan(...interface{}) error }) (*Event, error) {
	e := &Event{}
	var childIDs pq.StringArray
	err := row.Scan(
		&e.ID, &e.TriangleID, &e.Kind, &e.Timestamp, &e.Account, &e.Nonce, &e.Signature,
		&e.MinerAddress, &e.RewardMicro, &e.ClickNumber, &e.Lat, &e.Lon, &e.Accuracy, &e.SpeedMPS,
		&e.ParentID, &childIDs, &e.OldLevel, &e.NewLevel,
	)
	if err != nil {
		return nil, err
	}
	e.ChildIDs = []string(childIDs)
	return e, nil
}

// Get retrieves a single event by id.
func (r *EventRepository) Get(ctx context.Context, id string) (*Event, error) {
	query := `SELECT` + eventColumns + ` FROM step_events WHERE id = $1`
	e, err := scanEvent(r.client.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// ExistsForNonce reports whether an event with (account, nonce) has already
// been recorded. This is a convenience pre-check only — the authoritative
// guard is the unique index enforced inside CommitClick.
func (r *EventRepository) ExistsForNonce(ctx context.Context, account, nonce string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM step_events WHERE account = $1 AND nonce = $2)`
	var exists bool
	if err := r.client.QueryRowContext(ctx, query, account, nonce).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check nonce: %w", err)
	}
	return exists, nil
}

// ForAccount returns the click history for an account, newest first, used
// by the miner-facing proof-history surface.
func (r *EventRepository) ForAccount(ctx context.Context, account string, limit int) ([]*Event, error) {
	query := `SELECT` + eventColumns + ` FROM step_events WHERE account = $1 ORDER BY ts DESC LIMIT $2`
	rows, err := r.client.QueryContext(ctx, query, account, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for account: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
