package mesh

import "math"

// NumFaces is the number of root faces of the base icosahedron.
const NumFaces = 20

// baseVertices is the fixed corner-vertex table for the base icosahedron,
// one north pole, one south pole, and two pentagonal rings offset 36° from
// each other.
var baseVertices = buildBaseVertices()

func buildBaseVertices() [12]vec3 {
	const ringLat = 26.56505117707799 // atan(0.5) in degrees

	var v [12]vec3
	v[0] = fromLatLon(Point{Lat: 90, Lon: 0})
	for i := 0; i < 5; i++ {
		v[1+i] = fromLatLon(Point{Lat: ringLat, Lon: float64(i) * 72})
		v[6+i] = fromLatLon(Point{Lat: -ringLat, Lon: 36 + float64(i)*72})
	}
	v[11] = fromLatLon(Point{Lat: -90, Lon: 0})
	return v
}

// baseFaces lists the three corner-vertex indices of each of the 20 root
// faces, ordered counter-clockwise as seen from outside the sphere.
var baseFaces = buildBaseFaces()

func buildBaseFaces() [NumFaces][3]int {
	var f [NumFaces][3]int
	n := 0

	// Top cap: five faces sharing the north pole.
	for i := 0; i < 5; i++ {
		next := 1 + (i+1)%5
		f[n] = [3]int{0, 1 + i, next}
		n++
	}

	// Equatorial band: ten faces alternating orientation between the two
	// pentagonal rings.
	for i := 0; i < 5; i++ {
		upperI := 1 + i
		upperNext := 1 + (i+1)%5
		lowerI := 6 + i
		lowerNext := 6 + (i+1)%5

		f[n] = [3]int{upperI, lowerI, upperNext}
		n++
		f[n] = [3]int{lowerI, lowerNext, upperNext}
		n++
	}

	// Bottom cap: five faces sharing the south pole, wound opposite the
	// top cap to keep outward-facing orientation.
	for i := 0; i < 5; i++ {
		lowerI := 6 + i
		lowerNext := 6 + (i+1)%5
		f[n] = [3]int{11, lowerNext, lowerI}
		n++
	}

	return f
}

func faceVertices(face int) (a, b, c vec3) {
	idx := baseFaces[face]
	return baseVertices[idx[0]], baseVertices[idx[1]], baseVertices[idx[2]]
}

// estimatedSideLengthMeters implements the scale rule:
// edge ≈ 7200 km / 2^(level-1).
func estimatedSideLengthMeters(level int) float64 {
	const baseEdgeMeters = 7_200_000.0
	return baseEdgeMeters / math.Pow(2, float64(level-1))
}

// estimatedAreaM2 follows from the side-length halving each level, so area
// (∝ side²) shrinks by 4 per level.
func estimatedAreaM2(level int) float64 {
	side := estimatedSideLengthMeters(level)
	// Planar equilateral-triangle area as a first-order approximation. It
	// ignores the sphere's curvature, so it is not exact for the base faces;
	// the error shrinks as triangles get smaller at deeper levels.
	return (math.Sqrt(3) / 4) * side * side
}
