// Package database is the persistence layer for the mesh validator: three
// collections — triangles, events, accounts — backed by PostgreSQL, with
// the (account, nonce) unique index as the sole authoritative replay guard.
package database

import (
	"database/sql"
	"time"
)

// MaxMeshLevel mirrors pkg/mesh.MaxLevel. Duplicated as a constant rather
// than imported so the persistence layer has no compile-time dependency
// on the mesh-algebra package; the two are kept in sync by a dedicated
// test (TestMaxMeshLevelMatchesMeshPackage) in pkg/orchestrator, the one
// package that already imports both.
const MaxMeshLevel = 21

// TriangleState is the lifecycle state of a mesh triangle.
type TriangleState string

const (
	TriangleActive     TriangleState = "active"
	TriangleSubdivided TriangleState = "subdivided"
)

// Point is a (lat, lon) pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Triangle is the persisted record for a single mesh cell.
type Triangle struct {
	ID               string        `json:"triangleId"`
	Face             int           `json:"face"`
	Level            int           `json:"level"`
	Path             string        `json:"path"` // stable digit-string encoding, e.g. "0213"
	ParentID         sql.NullString `json:"parentId,omitempty"`
	ChildIDs         []string      `json:"children"`
	State            TriangleState `json:"state"`
	Clicks           int           `json:"clicks"`
	MoratoriumStart  time.Time     `json:"moratoriumStart"`
	LastClickAt      sql.NullTime  `json:"lastClickAt,omitempty"`
	Centroid         Point         `json:"centroid"`
	Polygon          []Point       `json:"polygon"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// EventKind distinguishes the two append-only event shapes.
type EventKind string

const (
	EventClick     EventKind = "click"
	EventSubdivide EventKind = "subdivide"
)

// SystemAccount is the sentinel account value subdivide events are
// attributed to, satisfying the (account, nonce) uniqueness constraint.
const SystemAccount = "system"

// Event is a single append-only audit-log row. Click-specific and
// subdivide-specific fields are both present but only one set is populated,
// matching a type-specific payload shape — a database
// row, not a tagged union, because the table itself is the source of truth
// and must remain queryable by (account, nonce) and (triangleId, ts).
type Event struct {
	ID          string    `json:"eventId"`
	TriangleID  string    `json:"triangleId"`
	Kind        EventKind `json:"kind"`
	Timestamp   time.Time `json:"timestamp"`
	Account     string    `json:"account"`
	Nonce       string    `json:"nonce"`
	Signature   []byte    `json:"signature,omitempty"`

	// Click payload.
	MinerAddress sql.NullString  `json:"minerAddress,omitempty"`
	RewardMicro  sql.NullString  `json:"rewardMicro,omitempty"` // decimal string, arbitrary precision
	ClickNumber  sql.NullInt64   `json:"clickNumber,omitempty"`
	Lat          sql.NullFloat64 `json:"lat,omitempty"`
	Lon          sql.NullFloat64 `json:"lon,omitempty"`
	Accuracy     sql.NullFloat64 `json:"accuracy,omitempty"`
	SpeedMPS     sql.NullFloat64 `json:"speedMps,omitempty"`

	// Subdivide payload.
	ParentID  sql.NullString `json:"parentId,omitempty"`
	ChildIDs  []string       `json:"childIds,omitempty"`
	OldLevel  sql.NullInt64  `json:"oldLevel,omitempty"`
	NewLevel  sql.NullInt64  `json:"newLevel,omitempty"`
}

// Account is the lazily-created balance record. Balance is stored
// as a base-10 string of an arbitrary-precision integer count of micro-STEP
// (1 STEP = 10^6 micro-STEP) so Postgres's NUMERIC type, not a 64-bit float,
// backs the on-disk value.
type Account struct {
	Address     string    `json:"account"`
	BalanceMicro string   `json:"balanceMicro"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
