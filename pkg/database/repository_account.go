// Account repository - lazily-created micro-STEP balance records.

package database

import (
	"context"
	"database/sql"
	"fmt"
)

// AccountRepository handles account balance lookups.
type AccountRepository struct {
	client *Client
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(client *Client) *AccountRepository {
	return &AccountRepository{client: client}
}

// Get retrieves an account by address. Returns ErrNotFound if the address
// has never received a reward — callers should treat that as a zero
// balance, not an error — accounts are lazily created on first reward.
func (r *AccountRepository) Get(ctx context.Context, address string) (*Account, error) {
	query := `SELECT address, balance_micro, created_at, updated_at FROM step_accounts WHERE address = $1`
	a := &Account{}
	err := r.client.QueryRowContext(ctx, query, address).Scan(&a.Address, &a.BalanceMicro, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// BalanceMicro returns the account's balance in micro-STEP as a decimal
// string, defaulting to "0" for accounts that have never been credited.
func (r *AccountRepository) BalanceMicro(ctx context.Context, address string) (string, error) {
	a, err := r.Get(ctx, address)
	if err == ErrNotFound {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return a.BalanceMicro, nil
}

// Top returns the highest-balance accounts for leaderboard-style queries.
func (r *AccountRepository) Top(ctx context.Context, limit int) ([]*Account, error) {
	query := `SELECT address, balance_micro, created_at, updated_at FROM step_accounts ORDER BY balance_micro DESC LIMIT $1`
	rows, err := r.client.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top accounts: %w", err)
	}
	defer rows.Close()

	var out []*Account
	for rows.Next() {
		a := &Account{}
		if err := rows.Scan(&a.Address, &a.BalanceMicro, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
