package canonical

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Digest computes the EIP-191 domain-separated digest of message
//:
// keccak256("\x19Ethereum Signed Message:\n" + len(message) + message).
func Digest(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}

// RecoverSigner recovers the secp256k1 signer address from a 65-byte
// r||s||v signature over message's EIP-191 digest.
func RecoverSigner(message string, signature []byte) (string, error) {
	if len(signature) != 65 {
		return "", ErrBadLength
	}

	sig := make([]byte, 65)
	copy(sig, signature)

	v := sig[64]
	switch {
	case v == 27 || v == 28:
		sig[64] = v - 27
	case v == 0 || v == 1:
		// already normalized
	default:
		return "", ErrBadRecoveryID
	}

	digest := Digest(message)
	pubKey, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecoveryFailed, err)
	}

	return crypto.PubkeyToAddress(*pubKey).Hex(), nil
}

// Verify recovers the signer of p's canonical message and checks it
// matches p.Account under case-insensitive compare.
func Verify(p *Payload, signature []byte) error {
	message := BuildMessage(p)
	recovered, err := RecoverSigner(message, signature)
	if err != nil {
		return err
	}
	if !strings.EqualFold(recovered, p.Account) {
		return ErrAddressMismatch
	}
	return nil
}

// ParseHexSignature decodes a 0x-prefixed hex-encoded signature string
// into raw bytes, a convenience used by pkg/server when decoding request
// bodies.
func ParseHexSignature(hexSig string) ([]byte, error) {
	hexSig = strings.TrimPrefix(hexSig, "0x")
	if len(hexSig) != 130 {
		return nil, ErrBadLength
	}
	out := make([]byte, 65)
	for i := 0; i < 65; i++ {
		b, err := strconv.ParseUint(hexSig[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		out[i] = byte(b)
	}
	return out, nil
}
