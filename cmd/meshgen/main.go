// Command meshgen seeds the 20 root icosahedron faces into step_triangles.
// The validator's mesh algebra works on any valid id without requiring a
// materialized row, but the orchestrator's database-backed queries
// (search, nearest, stats) and the initial level-1 commit path need at
// least the 20 base faces to exist before any clicks can land.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/stepnetwork/mesh-validator/pkg/config"
	"github.com/stepnetwork/mesh-validator/pkg/database"
	"github.com/stepnetwork/mesh-validator/pkg/mesh"
)

func main() {
	force := flag.Bool("force", false, "re-seed faces that already exist (skipped by default)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := log.New(os.Stdout, "[meshgen] ", log.LstdFlags)
	dbClient, err := database.NewClient(cfg, database.WithLogger(logger))
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbClient.Close()

	ctx := context.Background()
	if err := dbClient.MigrateUp(ctx); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	repo := database.NewTriangleRepository(dbClient)

	seeded := 0
	for face := 0; face < mesh.NumFaces; face++ {
		id, err := mesh.Encode(face, nil)
		if err != nil {
			log.Fatalf("face %d: failed to encode id: %v", face, err)
		}

		if !*force {
			if _, err := repo.Get(ctx, id); err == nil {
				logger.Printf("face %d (%s) already seeded, skipping", face, id)
				continue
			} else if err != database.ErrTriangleNotFound {
				log.Fatalf("face %d: failed to check for existing row: %v", face, err)
			}
		}

		row, err := seedRow(id, face)
		if err != nil {
			log.Fatalf("face %d: failed to build seed row: %v", face, err)
		}
		if err := repo.Create(ctx, row); err != nil {
			log.Fatalf("face %d: failed to insert: %v", face, err)
		}
		seeded++
		logger.Printf("seeded face %d as %s", face, id)
	}

	fmt.Printf("mesh seeding complete: %d/%d base faces inserted\n", seeded, mesh.NumFaces)
}

// seedRow builds the level-1 database.Triangle row for a root face: the
// geometry comes entirely from pkg/mesh's pure algebra, so this is the
// same Describe/Polygon/Centroid path the HTTP read handlers use.
func seedRow(id string, face int) (*database.Triangle, error) {
	meshID := mesh.ID{Face: face, Path: nil, Level: 1}

	centroid, err := mesh.Centroid(meshID)
	if err != nil {
		return nil, err
	}
	polygon, err := mesh.Polygon(meshID)
	if err != nil {
		return nil, err
	}

	dbPolygon := make([]database.Point, len(polygon))
	for i, p := range polygon {
		dbPolygon[i] = database.Point{Lat: p.Lat, Lon: p.Lon}
	}

	now := time.Now().UTC()
	return &database.Triangle{
		ID:              id,
		Face:            face,
		Level:           1,
		Path:            "",
		ChildIDs:        nil,
		State:           database.TriangleActive,
		Clicks:          0,
		MoratoriumStart: now,
		Centroid:        database.Point{Lat: centroid.Lat, Lon: centroid.Lon},
		Polygon:         dbPolygon,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
