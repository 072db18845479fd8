package mesh

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		face int
		path []int
	}{
		{"level1", 0, []int{}},
		{"level1-last-face", 19, []int{}},
		{"level2", 3, []int{2}},
		{"level5", 7, []int{0, 1, 2, 3, 1}},
		{"level21", 12, make([]int, 20)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := Encode(tc.face, tc.path)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			decoded, err := Decode(id)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if decoded.Face != tc.face {
				t.Errorf("face mismatch: got %d, want %d", decoded.Face, tc.face)
			}
			if decoded.Level != len(tc.path)+1 {
				t.Errorf("level mismatch: got %d, want %d", decoded.Level, len(tc.path)+1)
			}
			if len(decoded.Path) != len(tc.path) {
				t.Fatalf("path length mismatch: got %d, want %d", len(decoded.Path), len(tc.path))
			}
			for i := range tc.path {
				if decoded.Path[i] != tc.path[i] {
					t.Errorf("path[%d] mismatch: got %d, want %d", i, decoded.Path[i], tc.path[i])
				}
			}
		})
	}
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	id, err := Encode(0, []int{1, 2})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	tampered := id[:len(id)-1] + "0"
	if tampered == id {
		tampered = id[:len(id)-1] + "f"
	}

	_, err = Decode(tampered)
	if err != ErrBadChecksum {
		t.Errorf("expected ErrBadChecksum, got %v", err)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := []string{"", "not-an-id", "STEPMESH1:00:01:garbage:00000000"}
	for _, s := range cases {
		if _, err := Decode(s); err == nil {
			t.Errorf("expected error decoding %q, got nil", s)
		}
	}
}

func TestChildrenOrderedAndReversible(t *testing.T) {
	root := newID(0, []int{})
	children, err := Children(root)
	if err != nil {
		t.Fatalf("Children failed: %v", err)
	}

	for i, child := range children {
		if child.Level != 2 {
			t.Errorf("child %d level = %d, want 2", i, child.Level)
		}
		if child.Path[len(child.Path)-1] != i {
			t.Errorf("child %d last path digit = %d, want %d", i, child.Path[len(child.Path)-1], i)
		}

		parent, err := Parent(child)
		if err != nil {
			t.Fatalf("Parent failed: %v", err)
		}
		if parent.Face != root.Face || len(parent.Path) != 0 {
			t.Errorf("Parent(children[%d]) != root", i)
		}
	}
}

func TestChildrenFailAtMaxLevel(t *testing.T) {
	path := make([]int, MaxLevel-1)
	leaf := newID(0, path)
	if _, err := Children(leaf); err == nil {
		t.Error("expected error subdividing a level-21 triangle")
	}
}

func TestParentFailsAtLevel1(t *testing.T) {
	root := newID(5, []int{})
	if _, err := Parent(root); err == nil {
		t.Error("expected error taking the parent of a level-1 triangle")
	}
}

func TestCentroidIsContained(t *testing.T) {
	ids := []ID{
		newID(0, []int{}),
		newID(4, []int{2}),
		newID(10, []int{1, 3, 0}),
		newID(15, []int{0, 0, 0, 0, 0, 0}),
	}

	for _, id := range ids {
		c, err := Centroid(id)
		if err != nil {
			t.Fatalf("Centroid(%v) failed: %v", id, err)
		}
		inside, err := PointInTriangle(c.Lat, c.Lon, id)
		if err != nil {
			t.Fatalf("PointInTriangle failed: %v", err)
		}
		if !inside {
			t.Errorf("centroid of %v not contained in its own triangle", id)
		}
	}
}

func TestChildVerticesLieWithinParent(t *testing.T) {
	parent := newID(2, []int{1})
	children, err := Children(parent)
	if err != nil {
		t.Fatalf("Children failed: %v", err)
	}

	for _, child := range children {
		poly, err := Polygon(child)
		if err != nil {
			t.Fatalf("Polygon failed: %v", err)
		}
		// Each child vertex should lie inside or on the parent's boundary.
		for _, v := range poly[:3] {
			inside, err := PointInTriangle(v.Lat, v.Lon, parent)
			if err != nil {
				t.Fatalf("PointInTriangle failed: %v", err)
			}
			if !inside {
				t.Errorf("child vertex %+v not contained in parent %v", v, parent)
			}
		}
	}
}

func TestPolygonIsClosed(t *testing.T) {
	id := newID(6, []int{2, 1})
	poly, err := Polygon(id)
	if err != nil {
		t.Fatalf("Polygon failed: %v", err)
	}
	if len(poly) != 4 {
		t.Fatalf("expected 4 points (closed ring), got %d", len(poly))
	}
	if poly[0] != poly[3] {
		t.Errorf("ring not closed: first %+v != last %+v", poly[0], poly[3])
	}
}

func TestSideLengthShrinksAcrossLevels(t *testing.T) {
	for level := 1; level < MaxLevel; level++ {
		a := EstimatedSideLengthMeters(level)
		b := EstimatedSideLengthMeters(level + 1)
		if b >= a {
			t.Errorf("side length did not shrink from level %d (%f) to %d (%f)", level, a, level+1, b)
		}
	}
}

func TestLocateFindsContainingTriangle(t *testing.T) {
	id := newID(9, []int{2, 0, 3})
	c, err := Centroid(id)
	if err != nil {
		t.Fatalf("Centroid failed: %v", err)
	}

	located, err := Locate(c.Lat, c.Lon, id.Level)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if located.Face != id.Face {
		t.Errorf("Locate face = %d, want %d", located.Face, id.Face)
	}
}
