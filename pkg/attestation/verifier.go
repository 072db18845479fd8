// Package attestation implements the pluggable platform-integrity-token
// verifier interface. Two built-in verifiers are provided;
// the orchestrator consumes them only through the Verifier interface, so a
// third platform can be added without touching pkg/orchestrator.
package attestation

import (
	"context"
	"time"
)

// Platform identifies which vendor issued an attestation token.
type Platform string

const (
	PlatformA Platform = "android" // Mobile-platform-A integrity service
	PlatformB Platform = "ios"     // Mobile-platform-B attestation service
)

// Verdict is the result of verifying a single attestation token: passed,
// reason, platform, and verifiedAt.
type Verdict struct {
	Passed     bool
	Reason     string
	Platform   Platform
	VerifiedAt time.Time
}

// Verifier validates an attestation token for one platform. A transport
// or service error from Verify is non-fatal to the request: the caller
// degrades to Verdict{Passed:false} and logs the error, never aborting
// the proof-submission pipeline on it.
type Verifier interface {
	Platform() Platform
	Verify(ctx context.Context, token string, expectedAppID string, expectedNonce string) (Verdict, error)
}

// Registry dispatches to the Verifier registered for a given platform.
type Registry struct {
	verifiers map[Platform]Verifier
}

// NewRegistry builds a Registry from the given verifiers, keyed by their
// own declared Platform().
func NewRegistry(verifiers ...Verifier) *Registry {
	r := &Registry{verifiers: make(map[Platform]Verifier, len(verifiers))}
	for _, v := range verifiers {
		r.verifiers[v.Platform()] = v
	}
	return r
}

// Verify looks up the verifier for platform and delegates to it. An
// unregistered platform always fails closed (Passed:false), never panics.
func (r *Registry) Verify(ctx context.Context, platform Platform, token, expectedAppID, expectedNonce string) Verdict {
	v, ok := r.verifiers[platform]
	if !ok {
		return Verdict{Passed: false, Reason: "no verifier registered for platform " + string(platform), Platform: platform, VerifiedAt: time.Now()}
	}
	verdict, err := v.Verify(ctx, token, expectedAppID, expectedNonce)
	if err != nil {
		return Verdict{Passed: false, Reason: err.Error(), Platform: platform, VerifiedAt: time.Now()}
	}
	return verdict
}
