package mesh

// MaxLevel is the deepest subdivision level.
const MaxLevel = 21

// SphericalBelowLevel is the level strictly below which pointInTriangle
// uses true spherical containment instead of planar containment.
const SphericalBelowLevel = 6

// Point is a (lat, lon) pair in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// ID is the structured form of a triangle identifier: a face,
// a path of child-selector digits, and the derived level. This is the form
// operations are performed on; Encode/Decode convert to and from the
// canonical textual form used in persistence and wire messages.
type ID struct {
	Face  int
	Path  []int // each element in [0,3]; len(Path) == Level-1
	Level int
}

func newID(face int, path []int) ID {
	return ID{Face: face, Path: path, Level: len(path) + 1}
}
