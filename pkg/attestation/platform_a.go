package attestation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// platformAClaims is the subset of fields the integrity-token JWT carries
// that this verifier actually checks: the bundle/package
// the token was issued for, and coarse device/app integrity verdicts.
type platformAClaims struct {
	jwt.RegisteredClaims
	PackageName       string `json:"packageName"`
	Nonce             string `json:"nonce"`
	AppIntegrity      string `json:"appIntegrity"`      // "PLAY_RECOGNIZED" expected
	DeviceIntegrity   string `json:"deviceIntegrity"`   // "MEETS_DEVICE_INTEGRITY" expected
}

const (
	platformAAppIntegrityOK    = "PLAY_RECOGNIZED"
	platformADeviceIntegrityOK = "MEETS_DEVICE_INTEGRITY"
)

// PlatformAVerifier validates JWT-encoded integrity tokens, the scheme
// used by the Android Play Integrity style of attestation.
type PlatformAVerifier struct {
	keyFunc jwt.Keyfunc
}

// NewPlatformAVerifier builds a verifier that validates token signatures
// with keyFunc (a key lookup callback, e.g. by "kid" header against a
// published JWKS) — the same indirection jwt.Keyfunc is designed for, so
// callers can swap in real key-fetching without this package knowing
// about HTTP or JWKS caching.
func NewPlatformAVerifier(keyFunc jwt.Keyfunc) *PlatformAVerifier {
	return &PlatformAVerifier{keyFunc: keyFunc}
}

func (v *PlatformAVerifier) Platform() Platform { return PlatformA }

func (v *PlatformAVerifier) Verify(ctx context.Context, token, expectedAppID, expectedNonce string) (Verdict, error) {
	now := time.Now()
	var claims platformAClaims
	_, err := jwt.ParseWithClaims(token, &claims, v.keyFunc, jwt.WithValidMethods([]string{"RS256", "ES256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Verdict{Passed: false, Reason: "attestation token expired", Platform: PlatformA, VerifiedAt: now}, nil
		}
		return Verdict{}, fmt.Errorf("parse attestation token: %w", err)
	}

	if claims.PackageName != expectedAppID {
		return Verdict{Passed: false, Reason: "package name mismatch", Platform: PlatformA, VerifiedAt: now}, nil
	}
	if expectedNonce != "" && claims.Nonce != expectedNonce {
		return Verdict{Passed: false, Reason: "nonce mismatch", Platform: PlatformA, VerifiedAt: now}, nil
	}
	if claims.AppIntegrity != platformAAppIntegrityOK {
		return Verdict{Passed: false, Reason: "app integrity verdict rejected: " + claims.AppIntegrity, Platform: PlatformA, VerifiedAt: now}, nil
	}
	if claims.DeviceIntegrity != platformADeviceIntegrityOK {
		return Verdict{Passed: false, Reason: "device integrity verdict rejected: " + claims.DeviceIntegrity, Platform: PlatformA, VerifiedAt: now}, nil
	}

	return Verdict{Passed: true, Reason: "ok", Platform: PlatformA, VerifiedAt: now}, nil
}
