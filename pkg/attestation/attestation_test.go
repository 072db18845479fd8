package attestation

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// newPlatformAKey generates a P-256 key, since PlatformAVerifier only
// admits RS256 and ES256 tokens.
func newPlatformAKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func signPlatformAToken(t *testing.T, key *ecdsa.PrivateKey, claims platformAClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func fixedKeyFunc(key interface{}) jwt.Keyfunc {
	return func(*jwt.Token) (interface{}, error) { return key, nil }
}

func TestPlatformAVerifierAcceptsValidToken(t *testing.T) {
	key := newPlatformAKey(t)
	claims := platformAClaims{
		PackageName:     "com.step.miner",
		Nonce:           "abc123",
		AppIntegrity:    platformAAppIntegrityOK,
		DeviceIntegrity: platformADeviceIntegrityOK,
	}
	token := signPlatformAToken(t, key, claims)

	v := NewPlatformAVerifier(fixedKeyFunc(&key.PublicKey))
	verdict, err := v.Verify(context.Background(), token, "com.step.miner", "abc123")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !verdict.Passed {
		t.Errorf("expected passed verdict, got %+v", verdict)
	}
}

func TestPlatformAVerifierRejectsPackageMismatch(t *testing.T) {
	key := newPlatformAKey(t)
	claims := platformAClaims{
		PackageName:     "com.other.app",
		AppIntegrity:    platformAAppIntegrityOK,
		DeviceIntegrity: platformADeviceIntegrityOK,
	}
	token := signPlatformAToken(t, key, claims)

	v := NewPlatformAVerifier(fixedKeyFunc(&key.PublicKey))
	verdict, err := v.Verify(context.Background(), token, "com.step.miner", "")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if verdict.Passed {
		t.Error("expected failed verdict for package name mismatch")
	}
}

func TestPlatformAVerifierRejectsFailedIntegrity(t *testing.T) {
	key := newPlatformAKey(t)
	claims := platformAClaims{
		PackageName:     "com.step.miner",
		AppIntegrity:    "PLAY_UNRECOGNIZED_VERSION",
		DeviceIntegrity: platformADeviceIntegrityOK,
	}
	token := signPlatformAToken(t, key, claims)

	v := NewPlatformAVerifier(fixedKeyFunc(&key.PublicKey))
	verdict, err := v.Verify(context.Background(), token, "com.step.miner", "")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if verdict.Passed {
		t.Error("expected failed verdict for rejected app integrity")
	}
}

func TestPlatformBVerifierAcceptsFreshChallenge(t *testing.T) {
	store := NewInMemoryTokenStore()
	store.Issue("tok-1", "nonce-1", time.Now().Add(-1*time.Minute))

	v := NewPlatformBVerifier(store)
	verdict, err := v.Verify(context.Background(), "tok-1", "com.step.miner", "nonce-1")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !verdict.Passed {
		t.Errorf("expected passed verdict, got %+v", verdict)
	}
}

func TestPlatformBVerifierRejectsExpiredChallenge(t *testing.T) {
	store := NewInMemoryTokenStore()
	store.Issue("tok-1", "nonce-1", time.Now().Add(-10*time.Minute))

	v := NewPlatformBVerifier(store)
	verdict, err := v.Verify(context.Background(), "tok-1", "com.step.miner", "nonce-1")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if verdict.Passed {
		t.Error("expected failed verdict for expired challenge")
	}
}

func TestPlatformBVerifierRejectsUnknownToken(t *testing.T) {
	store := NewInMemoryTokenStore()
	v := NewPlatformBVerifier(store)

	verdict, err := v.Verify(context.Background(), "unknown-token", "com.step.miner", "")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if verdict.Passed {
		t.Error("expected failed verdict for unrecognized token")
	}
}

func TestPlatformBVerifierRejectsNonceMismatch(t *testing.T) {
	store := NewInMemoryTokenStore()
	store.Issue("tok-1", "nonce-1", time.Now())

	v := NewPlatformBVerifier(store)
	verdict, err := v.Verify(context.Background(), "tok-1", "com.step.miner", "nonce-other")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if verdict.Passed {
		t.Error("expected failed verdict for nonce mismatch")
	}
}

func TestRegistryDispatchesByPlatform(t *testing.T) {
	store := NewInMemoryTokenStore()
	store.Issue("tok-1", "nonce-1", time.Now())

	reg := NewRegistry(
		NewPlatformAVerifier(fixedKeyFunc([]byte("k"))),
		NewPlatformBVerifier(store),
	)

	verdict := reg.Verify(context.Background(), PlatformB, "tok-1", "com.step.miner", "nonce-1")
	if !verdict.Passed {
		t.Errorf("expected passed verdict via registry dispatch, got %+v", verdict)
	}
}

func TestRegistryFailsClosedForUnregisteredPlatform(t *testing.T) {
	reg := NewRegistry()
	verdict := reg.Verify(context.Background(), PlatformA, "tok", "app", "")
	if verdict.Passed {
		t.Error("expected failed verdict for unregistered platform")
	}
}
