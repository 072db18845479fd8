// Triangle repository - CRUD and lookup operations for mesh cells.

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// TriangleRepository handles mesh triangle persistence.
type TriangleRepository struct {
	client *Client
}

// NewTriangleRepository creates a new triangle repository.
func NewTriangleRepository(client *Client) *TriangleRepository {
	return &TriangleRepository{client: client}
}

const triangleColumns = `
	id, face, level, path, parent_id, child_ids, state, clicks,
	moratorium_start, last_click_at, centroid_lat, centroid_lon,
	polygon_lat, polygon_lon, created_at, updated_at`

func scanTriangle(row interface{ Scan(...interface{}) error }) (*Triangle, error) {
	t := &Triangle{}
	var polyLat, polyLon pq.Float64Array
	var childIDs pq.StringArray
	err := row.Scan(
		&t.ID, &t.Face, &t.Level, &t.Path, &t.ParentID, &childIDs, &t.State, &t.Clicks,
		&t.MoratoriumStart, &t.LastClickAt, &t.Centroid.Lat, &t.Centroid.Lon,
		&polyLat, &polyLon, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.ChildIDs = []string(childIDs)
	t.Polygon = make([]Point, len(polyLat))
	for i := range polyLat {
		t.Polygon[i] = Point{Lat: polyLat[i], Lon: polyLon[i]}
	}
	return t, nil
}

// Create inserts a new triangle row. Used by cmd/meshgen to seed the 20
// base icosahedron faces and by CommitClick when a subdivision mints
// children.
func (r *TriangleRepository) Create(ctx context.Context, t *Triangle) error {
	polyLat := make(pq.Float64Array, len(t.Polygon))
	polyLon := make(pq.Float64Array, len(t.Polygon))
	for i, p := range t.Polygon {
		polyLat[i] = p.Lat
		polyLon[i] = p.Lon
	}

	query := `
		INSERT INTO step_triangles (
			id, face, level, path, parent_id, child_ids, state, clicks,
			moratorium_start, last_click_at, centroid_lat, centroid_lon,
			polygon_lat, polygon_lon, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`

	_, err := r.client.ExecContext(ctx, query,
		t.ID, t.Face, t.Level, t.Path, t.ParentID, pq.StringArray(t.ChildIDs), t.State, t.Clicks,
		t.MoratoriumStart, t.LastClickAt, t.Centroid.Lat, t.Centroid.Lon,
		polyLat, polyLon, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create triangle: %w", err)
	}
	return nil
}

// Get retrieves a triangle by its canonical id.
func (r *TriangleRepository) Get(ctx context.Context, id string) (*Triangle, error) {
	query := `SELECT` + triangleColumns + ` FROM step_triangles WHERE id = $1`
	row := r.client.QueryRowContext(ctx, query, id)
	t, err := scanTriangle(row)
	if err == sql.ErrNoRows {
		return nil, ErrTriangleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get triangle: %w", err)
	}
	return t, nil
}

// ActiveAtLevel returns every active triangle at the given level, used by
// the /mesh/search and /mesh/nearest endpoints.
func (r *TriangleRepository) ActiveAtLevel(ctx context.Context, level int) ([]*Triangle, error) {
	query := `SELECT` + triangleColumns + ` FROM step_triangles WHERE level = $1 AND state = 'active'`
	rows, err := r.client.QueryContext(ctx, query, level)
	if err != nil {
		return nil, fmt.Errorf("failed to query triangles at level: %w", err)
	}
	defer rows.Close()

	var out []*Triangle
	for rows.Next() {
		t, err := scanTriangle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan triangle: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Children returns the child triangles of a subdivided triangle.
func (r *TriangleRepository) Children(ctx context.Context, id string) ([]*Triangle, error) {
	parent, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]*Triangle, 0, len(parent.ChildIDs))
	for _, cid := range parent.ChildIDs {
		c, err := r.Get(ctx, cid)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// LevelStats is the triangle count breakdown for a single mesh level.
type LevelStats struct {
	Level               int
	TotalTriangles      int
	ActiveTriangles     int
	SubdividedTriangles int
}

// Stats aggregates mesh statistics for the /mesh/stats endpoint: overall
// totals plus a per-level breakdown, optionally narrowed to one level.
type Stats struct {
	TotalTriangles      int
	ActiveTriangles     int
	SubdividedTriangles int
	MaxLevelReached     int
	ByLevel             []LevelStats
}

// Stats computes aggregate counts across the mesh, grouped by level and
// state. When level is non-nil the query (and the returned totals) are
// narrowed to that single level.
func (r *TriangleRepository) Stats(ctx context.Context, level *int) (*Stats, error) {
	query := `
		SELECT
			level,
			COUNT(*),
			COUNT(*) FILTER (WHERE state = 'active'),
			COUNT(*) FILTER (WHERE state = 'subdivided')
		FROM step_triangles`
	var args []interface{}
	if level != nil {
		query += ` WHERE level = $1`
		args = append(args, *level)
	}
	query += ` GROUP BY level ORDER BY level`

	rows, err := r.client.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to compute mesh stats: %w", err)
	}
	defer rows.Close()

	s := &Stats{}
	for rows.Next() {
		var ls LevelStats
		if err := rows.Scan(&ls.Level, &ls.TotalTriangles, &ls.ActiveTriangles, &ls.SubdividedTriangles); err != nil {
			return nil, fmt.Errorf("failed to scan mesh stats row: %w", err)
		}
		s.ByLevel = append(s.ByLevel, ls)
		s.TotalTriangles += ls.TotalTriangles
		s.ActiveTriangles += ls.ActiveTriangles
		s.SubdividedTriangles += ls.SubdividedTriangles
		if ls.Level > s.MaxLevelReached {
			s.MaxLevelReached = ls.Level
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mesh stats rows: %w", err)
	}
	return s, nil
}
