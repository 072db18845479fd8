package database

import (
	"errors"

	"github.com/lib/pq"
)

// asPQError unwraps err looking for a *pq.Error, the concrete type the
// lib/pq driver returns for SQLSTATE-carrying failures.
func asPQError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}
