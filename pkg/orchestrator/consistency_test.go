package orchestrator

import (
	"testing"

	"github.com/stepnetwork/mesh-validator/pkg/database"
	"github.com/stepnetwork/mesh-validator/pkg/mesh"
)

// database.MaxMeshLevel is duplicated from mesh.MaxLevel to keep the
// persistence layer free of a compile-time dependency on the mesh-algebra
// package; this package already imports both, so it's the natural home
// for the test that catches the two constants drifting apart.
func TestMaxMeshLevelMatchesMeshPackage(t *testing.T) {
	if database.MaxMeshLevel != mesh.MaxLevel {
		t.Errorf("database.MaxMeshLevel = %d, mesh.MaxLevel = %d: these must stay in sync", database.MaxMeshLevel, mesh.MaxLevel)
	}
}
