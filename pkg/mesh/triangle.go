package mesh

import (
	"fmt"
	"math"
)

// childVertices holds the three corner vec3s of one of a triangle's four
// children, in the deterministic order: 0=A-corner,
// 1=B-corner, 2=C-corner, 3=center.
type childVertices [3]vec3

// subdivideTriangle computes the four children of triangle (a,b,c) using
// geodesic midpoints.
func subdivideTriangle(a, b, c vec3) [4]childVertices {
	mab := geodesicMidpoint(a, b)
	mbc := geodesicMidpoint(b, c)
	mca := geodesicMidpoint(c, a)

	return [4]childVertices{
		{a, mab, mca},   // 0: A-corner
		{mab, b, mbc},   // 1: B-corner
		{mca, mbc, c},   // 2: C-corner
		{mab, mbc, mca}, // 3: center
	}
}

// vertices returns the three corner vectors of the triangle identified by
// id, descending from its root face through each path digit.
func vertices(id ID) (a, b, c vec3, err error) {
	if err := id.Validate(); err != nil {
		return vec3{}, vec3{}, vec3{}, err
	}
	a, b, c = faceVertices(id.Face)
	for _, d := range id.Path {
		children := subdivideTriangle(a, b, c)
		cv := children[d]
		a, b, c = cv[0], cv[1], cv[2]
	}
	return a, b, c, nil
}

// Children returns the four child ids of id, in deterministic order
//. Fails at
// level 21, the deepest level.
func Children(id ID) ([4]ID, error) {
	if err := id.Validate(); err != nil {
		return [4]ID{}, err
	}
	if id.Level >= MaxLevel {
		return [4]ID{}, fmt.Errorf("mesh: triangle at level %d has no children (max level %d)", id.Level, MaxLevel)
	}

	var out [4]ID
	for d := 0; d < 4; d++ {
		path := make([]int, len(id.Path)+1)
		copy(path, id.Path)
		path[len(id.Path)] = d
		out[d] = newID(id.Face, path)
	}
	return out, nil
}

// Parent returns the parent id of id. Fails at level 1, which has no
// parent.
func Parent(id ID) (ID, error) {
	if err := id.Validate(); err != nil {
		return ID{}, err
	}
	if id.Level <= 1 {
		return ID{}, fmt.Errorf("mesh: level-1 triangle %s has no parent", id)
	}
	path := make([]int, len(id.Path)-1)
	copy(path, id.Path[:len(id.Path)-1])
	return newID(id.Face, path), nil
}

// Polygon returns the closed, counter-clockwise boundary ring of id: three
// corner points followed by a repeat of the first.
func Polygon(id ID) ([]Point, error) {
	a, b, c, err := vertices(id)
	if err != nil {
		return nil, err
	}
	pa, pb, pc := a.toLatLon(), b.toLatLon(), c.toLatLon()
	return []Point{pa, pb, pc, pa}, nil
}

// Centroid returns the spherical centroid of id: the unit-normalized mean
// of its three corner vectors.
func Centroid(id ID) (Point, error) {
	a, b, c, err := vertices(id)
	if err != nil {
		return Point{}, err
	}
	mean := vec3{
		X: (a.X + b.X + c.X) / 3,
		Y: (a.Y + b.Y + c.Y) / 3,
		Z: (a.Z + b.Z + c.Z) / 3,
	}
	return mean.normalize().toLatLon(), nil
}

// PointInTriangle reports whether (lat, lon) lies inside or on the
// boundary of triangle id. Levels below SphericalBelowLevel use true
// spherical containment; deeper levels use a planar approximation, sound
// for triangles up to ~10 km on a side.
func PointInTriangle(lat, lon float64, id ID) (bool, error) {
	a, b, c, err := vertices(id)
	if err != nil {
		return false, err
	}
	p := fromLatLon(Point{Lat: lat, Lon: lon})

	if id.Level < SphericalBelowLevel {
		return sphericalContains(p, a, b, c), nil
	}
	return planarContains(Point{Lat: lat, Lon: lon}, a.toLatLon(), b.toLatLon(), c.toLatLon()), nil
}

// planarContains tests containment in an equirectangular projection
// centered on the triangle's own first vertex, adequate at the scale
// planar approximation is bounded to below the spherical/planar dispatch level.
func planarContains(p, a, b, c Point) bool {
	cosLat := math.Cos(a.Lat * math.Pi / 180)
	proj := func(q Point) (float64, float64) {
		return (q.Lon - a.Lon) * cosLat, q.Lat - a.Lat
	}
	px, py := proj(p)
	ax, ay := proj(a)
	bx, by := proj(b)
	cx, cy := proj(c)

	sign := func(x1, y1, x2, y2, x3, y3 float64) float64 {
		return (x1-x3)*(y2-y3) - (x2-x3)*(y1-y3)
	}

	const eps = 1e-9
	d1 := sign(px, py, ax, ay, bx, by)
	d2 := sign(px, py, bx, by, cx, cy)
	d3 := sign(px, py, cx, cy, ax, ay)

	hasNeg := d1 < -eps || d2 < -eps || d3 < -eps
	hasPos := d1 > eps || d2 > eps || d3 > eps
	return !(hasNeg && hasPos)
}

// Locate descends the mesh top-down to find the id of the triangle at the
// given level containing (lat, lon): first the face, then at each level
// the unique child whose triangle contains the point, with ties on edges
// resolved by preferring the smallest path digit.
func Locate(lat, lon float64, level int) (ID, error) {
	if level < 1 || level > MaxLevel {
		return ID{}, fmt.Errorf("mesh: level %d out of range", level)
	}
	p := fromLatLon(Point{Lat: lat, Lon: lon})

	face := -1
	for f := 0; f < NumFaces; f++ {
		a, b, c := faceVertices(f)
		if sphericalContains(p, a, b, c) {
			face = f
			break
		}
	}
	if face == -1 {
		return ID{}, fmt.Errorf("mesh: point (%g, %g) does not lie on any face", lat, lon)
	}

	a, b, c := faceVertices(face)
	path := make([]int, 0, level-1)
	for l := 2; l <= level; l++ {
		children := subdivideTriangle(a, b, c)
		chosen := -1
		for d := 0; d < 4; d++ {
			cv := children[d]
			if sphericalContains(p, cv[0], cv[1], cv[2]) {
				chosen = d
				break
			}
		}
		if chosen == -1 {
			// Floating-point edge case: point falls exactly between
			// children. Fall back to the nearest center by distance to
			// each child's centroid, still preferring the smallest digit
			// on exact ties.
			chosen = nearestChild(p, children)
		}
		cv := children[chosen]
		a, b, c = cv[0], cv[1], cv[2]
		path = append(path, chosen)
	}

	return newID(face, path), nil
}

func nearestChild(p vec3, children [4]childVertices) int {
	best := 0
	bestDist := -2.0 // dot product ranges [-1,1]; anything is better than this
	for d := 0; d < 4; d++ {
		cv := children[d]
		mean := vec3{
			X: (cv[0].X + cv[1].X + cv[2].X) / 3,
			Y: (cv[0].Y + cv[1].Y + cv[2].Y) / 3,
			Z: (cv[0].Z + cv[1].Z + cv[2].Z) / 3,
		}.normalize()
		dot := p.dot(mean)
		if dot > bestDist {
			bestDist = dot
			best = d
		}
	}
	return best
}
