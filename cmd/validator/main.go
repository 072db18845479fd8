package main

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/stepnetwork/mesh-validator/pkg/attestation"
	"github.com/stepnetwork/mesh-validator/pkg/confidence"
	"github.com/stepnetwork/mesh-validator/pkg/config"
	"github.com/stepnetwork/mesh-validator/pkg/database"
	"github.com/stepnetwork/mesh-validator/pkg/gnss"
	"github.com/stepnetwork/mesh-validator/pkg/orchestrator"
	"github.com/stepnetwork/mesh-validator/pkg/server"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Println("starting mesh validator service")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	dbClient, err := database.NewClient(cfg, database.WithLogger(
		log.New(log.Writer(), "[Database] ", log.LstdFlags),
	))
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := waitForDB(dbClient, cfg.StartupDBWaitMS); err != nil {
		log.Fatalf("database did not become ready: %v", err)
	}
	if err := dbClient.MigrateUp(context.Background()); err != nil {
		log.Printf("database migration warning: %v", err)
	}

	store := database.NewStore(dbClient)

	weights, err := confidence.LoadWeights(cfg.ConfidenceWeightsPath)
	if err != nil {
		log.Fatalf("failed to load confidence weights: %v", err)
	}

	registry := attestation.NewRegistry(buildVerifiers(cfg)...)

	towerLookup := buildTowerLookup(cfg)

	orch := orchestrator.New(cfg, store, registry, towerLookup, weights, log.New(log.Writer(), "[Orchestrator] ", log.LstdFlags))

	srv := server.New(cfg, orch, store.Triangles, dbClient, log.New(log.Writer(), "[Server] ", log.LstdFlags))

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Routes(),
	}

	go func() {
		log.Printf("mesh validator API listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down mesh validator...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown error: %v", err)
	}
	log.Println("mesh validator stopped")
}

// waitForDB retries the initial ping for up to waitMS milliseconds, since
// the database container in a compose/orchestrated deployment frequently
// isn't accepting connections the instant this process starts.
func waitForDB(client *database.Client, waitMS int) error {
	deadline := time.Now().Add(time.Duration(waitMS) * time.Millisecond)
	var lastErr error
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lastErr = client.Ping(ctx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return lastErr
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// buildVerifiers wires the platform attestation verifiers this deployment
// has keys configured for. A deployment with neither key
// configured still starts; CONFIDENCE_REQUIRE_ATTESTATION=true would have
// already failed config.Validate() in that case.
func buildVerifiers(cfg *config.Config) []attestation.Verifier {
	var verifiers []attestation.Verifier
	if cfg.JWTSigningKey != "" {
		keyFunc, err := rsaKeyFunc(cfg.JWTSigningKey)
		if err != nil {
			log.Printf("attestation: failed to parse JWT_SIGNING_KEY, android attestation disabled: %v", err)
		} else {
			verifiers = append(verifiers, attestation.NewPlatformAVerifier(keyFunc))
		}
	}
	if cfg.AttestationPlatformBSharedSecret != "" {
		verifiers = append(verifiers, attestation.NewPlatformBVerifier(attestation.NewInMemoryTokenStore()))
	}
	return verifiers
}

// rsaKeyFunc parses a PEM-encoded RSA public key once at startup and
// returns a jwt.Keyfunc that always returns it, the simplest implementation
// of the key-lookup indirection pkg/attestation.NewPlatformAVerifier expects.
func rsaKeyFunc(pemKey string) (jwt.Keyfunc, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, jwt.ErrKeyMustBePEMEncoded
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	return func(*jwt.Token) (interface{}, error) { return pub, nil }, nil
}

// buildTowerLookup wires a chained cell-tower lookup in front of the
// always-miss default, leaving room for a commercial geolocation API
// lookup to be layered in ahead of it without touching pkg/orchestrator.
func buildTowerLookup(cfg *config.Config) gnss.CellTowerLookup {
	return gnss.NewChainedTowerLookup(
		log.New(log.Writer(), "[CellTower] ", log.LstdFlags),
		gnss.NullTowerLookup{},
	)
}
