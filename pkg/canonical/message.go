package canonical

import "fmt"

// BuildMessage re-assembles the canonical signable byte string
// character-for-character from the submitted fields. Only the core location claim is signed; attestation,
// GNSS, and cell fields are carried in the payload but verified out of
// band, not included in the signed digest.
func BuildMessage(p *Payload) string {
	return fmt.Sprintf(
		"%s|account:%s|triangle:%s|lat:%s|lon:%s|acc:%s|ts:%s|nonce:%s",
		p.Version, p.Account, p.TriangleID,
		p.Location.Lat.String(), p.Location.Lon.String(), p.Location.Accuracy.String(),
		p.Timestamp, p.Nonce,
	)
}
