package mesh

// EstimatedSideLengthMeters returns the approximate edge length of a
// triangle at the given level.
func EstimatedSideLengthMeters(level int) float64 {
	return estimatedSideLengthMeters(level)
}

// EstimatedAreaM2 returns the approximate area of a triangle at the given
// level.
func EstimatedAreaM2(level int) float64 {
	return estimatedAreaM2(level)
}

// Info bundles the commonly-requested derived facts about a triangle, as
// returned by the /mesh/info and /mesh/triangleAt endpoints.
type Info struct {
	ID                  ID
	Centroid            Point
	Polygon             []Point
	EstimatedSideLength float64
	EstimatedAreaM2     float64
}

// Describe computes the full Info record for id.
func Describe(id ID, includePolygon bool) (*Info, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	centroid, err := Centroid(id)
	if err != nil {
		return nil, err
	}

	info := &Info{
		ID:                  id,
		Centroid:            centroid,
		EstimatedSideLength: EstimatedSideLengthMeters(id.Level),
		EstimatedAreaM2:     EstimatedAreaM2(id.Level),
	}
	if includePolygon {
		poly, err := Polygon(id)
		if err != nil {
			return nil, err
		}
		info.Polygon = poly
	}
	return info, nil
}
