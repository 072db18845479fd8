// Package mesh implements the icosahedral geodesic mesh algebra: triangle
// identifier encode/decode, subdivision, and point containment. All
// operations are pure and stateless; failures are returned, never panicked.
package mesh

import "math"

const earthRadiusMeters = 6371000.0

// vec3 is a point on or near the unit sphere, in Cartesian coordinates.
type vec3 struct {
	X, Y, Z float64
}

func fromLatLon(p Point) vec3 {
	latR := p.Lat * math.Pi / 180
	lonR := p.Lon * math.Pi / 180
	cosLat := math.Cos(latR)
	return vec3{
		X: cosLat * math.Cos(lonR),
		Y: cosLat * math.Sin(lonR),
		Z: math.Sin(latR),
	}
}

func (v vec3) toLatLon() Point {
	lat := math.Asin(clamp(v.Z, -1, 1))
	lon := math.Atan2(v.Y, v.X)
	return Point{Lat: lat * 180 / math.Pi, Lon: lon * 180 / math.Pi}
}

func (v vec3) add(o vec3) vec3    { return vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v vec3) sub(o vec3) vec3    { return vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v vec3) dot(o vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v vec3) cross(o vec3) vec3 {
	return vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}
func (v vec3) norm() float64 { return math.Sqrt(v.dot(v)) }

func (v vec3) normalize() vec3 {
	n := v.norm()
	if n == 0 {
		return v
	}
	return vec3{v.X / n, v.Y / n, v.Z / n}
}

// geodesicMidpoint is the unit-normalized sum of two unit vectors on the
// sphere.
func geodesicMidpoint(a, b vec3) vec3 {
	return a.add(b).normalize()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sphericalContains reports whether point p lies inside or on the spherical
// triangle with vertices a, b, c (given counter-clockwise as seen from
// outside the sphere), using the sign of the scalar triple product against
// each edge's great-circle plane.
func sphericalContains(p, a, b, c vec3) bool {
	const eps = -1e-9 // tolerate points exactly on an edge
	return a.cross(b).dot(p) >= eps &&
		b.cross(c).dot(p) >= eps &&
		c.cross(a).dot(p) >= eps
}

// haversineMeters is the great-circle distance between two lat/lon points.
func haversineMeters(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)
	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c
}

// HaversineMeters is the public great-circle distance helper used by
// pkg/geometry's speed gate.
func HaversineMeters(a, b Point) float64 {
	return haversineMeters(a, b)
}
