package canonical

import (
	"crypto/ecdsa"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func signMessage(t *testing.T, key *ecdsa.PrivateKey, message string) []byte {
	t.Helper()
	digest := Digest(message)
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		t.Fatalf("crypto.Sign failed: %v", err)
	}
	sig[64] += 27
	return sig
}

func TestParseV1(t *testing.T) {
	raw := []byte(`{"version":"STEP-PROOF-v1","account":"0xABC","triangle":"t1","lat":"51.5074","lon":"-0.1278","acc":"12.5","ts":"2026-07-30T12:00:00.000Z","nonce":"n1"}`)

	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if p.Version != V1 {
		t.Errorf("version = %q, want %q", p.Version, V1)
	}
	if p.Location.Lat.String() != "51.5074" {
		t.Errorf("lat = %q, want exact client text 51.5074", p.Location.Lat.String())
	}
}

func TestParseV2WithAttestation(t *testing.T) {
	raw := []byte(`{
		"version":"STEP-PROOF-v2",
		"account":"0xABC",
		"triangle":"t1",
		"location":{"lat":"51.5","lon":"-0.1","acc":"10"},
		"ts":"2026-07-30T12:00:00.000Z",
		"nonce":"n2",
		"attestation":{"platform":"android","token":"tok"}
	}`)

	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if p.Attestation == nil || p.Attestation.Platform != "android" {
		t.Errorf("attestation not parsed correctly: %+v", p.Attestation)
	}
}

func TestParseRejectsUnknownVersion(t *testing.T) {
	raw := []byte(`{"version":"STEP-PROOF-v3"}`)
	if _, err := Parse(raw); err == nil {
		t.Error("expected error for unrecognized version")
	}
}

func TestParseRejectsMissingFields(t *testing.T) {
	raw := []byte(`{"version":"STEP-PROOF-v1","account":"0xABC"}`)
	if _, err := Parse(raw); err == nil {
		t.Error("expected error for missing required fields")
	}
}

func TestBuildMessageIsByteExact(t *testing.T) {
	p := &Payload{
		Version:    V1,
		Account:    "0xABC",
		TriangleID: "t1",
		Location:   Location{Lat: json.Number("51.5074"), Lon: json.Number("-0.1278"), Accuracy: json.Number("12.5")},
		Timestamp:  "2026-07-30T12:00:00.000Z",
		Nonce:      "n1",
	}
	got := BuildMessage(p)
	want := "STEP-PROOF-v1|account:0xABC|triangle:t1|lat:51.5074|lon:-0.1278|acc:12.5|ts:2026-07-30T12:00:00.000Z|nonce:n1"
	if got != want {
		t.Errorf("BuildMessage =\n%q\nwant\n%q", got, want)
	}
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	p := &Payload{
		Version:    V1,
		Account:    address,
		TriangleID: "t1",
		Location:   Location{Lat: json.Number("1"), Lon: json.Number("2"), Accuracy: json.Number("3")},
		Timestamp:  "2026-07-30T12:00:00.000Z",
		Nonce:      "n1",
	}
	sig := signMessage(t, key, BuildMessage(p))

	if err := Verify(p, sig); err != nil {
		t.Errorf("Verify failed for valid signature: %v", err)
	}
}

func TestVerifyRejectsWrongAccount(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	p := &Payload{
		Version:    V1,
		Account:    "0x0000000000000000000000000000000000000000",
		TriangleID: "t1",
		Location:   Location{Lat: json.Number("1"), Lon: json.Number("2"), Accuracy: json.Number("3")},
		Timestamp:  "2026-07-30T12:00:00.000Z",
		Nonce:      "n1",
	}
	sig := signMessage(t, key, BuildMessage(p))

	err = Verify(p, sig)
	if err != ErrAddressMismatch {
		t.Errorf("expected ErrAddressMismatch, got %v", err)
	}
}

func TestRecoverSignerRejectsBadLength(t *testing.T) {
	_, err := RecoverSigner("hello", []byte{1, 2, 3})
	if err != ErrBadLength {
		t.Errorf("expected ErrBadLength, got %v", err)
	}
}

func TestRecoverSignerRejectsBadRecoveryID(t *testing.T) {
	sig := make([]byte, 65)
	sig[64] = 99
	_, err := RecoverSigner("hello", sig)
	if err != ErrBadRecoveryID {
		t.Errorf("expected ErrBadRecoveryID, got %v", err)
	}
}

func TestParseHexSignatureRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	sig := signMessage(t, key, "hello world")

	hexSig := "0x"
	for _, b := range sig {
		hexSig += byteToHex(b)
	}

	decoded, err := ParseHexSignature(hexSig)
	if err != nil {
		t.Fatalf("ParseHexSignature failed: %v", err)
	}
	if strings.Compare(string(decoded), string(sig)) != 0 {
		t.Errorf("decoded signature does not round-trip")
	}
}

func byteToHex(b byte) string {
	const hexDigits = "0123456789abcdef"
	return string([]byte{hexDigits[b>>4], hexDigits[b&0x0f]})
}
