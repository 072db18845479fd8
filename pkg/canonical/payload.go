// Package canonical implements the proof payload's canonical-message and
// signature-recovery rules: sum-typed v1/v2 payload parsing,
// byte-exact canonical message assembly, and EIP-191 signature recovery
// over secp256k1.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Version distinguishes the two accepted payload schemas.
type Version string

const (
	V1 Version = "STEP-PROOF-v1"
	V2 Version = "STEP-PROOF-v2"
)

// Location is the (lat, lon, accuracy) triple, carried as json.Number so
// the exact numeric text the client submitted is preserved byte-for-byte.
type Location struct {
	Lat      json.Number `json:"lat"`
	Lon      json.Number `json:"lon"`
	Accuracy json.Number `json:"acc"`
}

// Attestation carries the optional platform-integrity token, present only in v2 payloads.
type Attestation struct {
	Platform string `json:"platform"`
	Token    string `json:"token"`
}

// GNSSSatellite is one raw satellite observation.
type GNSSSatellite struct {
	SVID         int     `json:"svid"`
	CN0DbHz      float64 `json:"cn0DbHz"`
	AzimuthDeg   float64 `json:"azimuthDeg"`
	ElevationDeg float64 `json:"elevationDeg"`
	Constellation string `json:"constellation"`
}

// Cell is the cell-tower payload.
type Cell struct {
	MCC       int     `json:"mcc"`
	MNC       int     `json:"mnc"`
	CellID    int64   `json:"cellId"`
	TAC       *int    `json:"tac,omitempty"`
	RSRP      *float64 `json:"rsrp,omitempty"`
}

// Payload is the parsed sum of the v1/v2 wire schemas. Exactly one of the
// two wire shapes produced it; callers use Version to know which optional
// fields can be populated.
type Payload struct {
	Version    Version
	Account    string
	TriangleID string
	Location   Location
	Timestamp  string // ISO-8601 with milliseconds UTC, trailing Z, as submitted
	Nonce      string

	// v2-only, all optional.
	Attestation *Attestation
	GNSS        []GNSSSatellite
	Cell        *Cell
}

// wireV1 is the flat v1 wire schema.
type wireV1 struct {
	Version    Version     `json:"version"`
	Account    string      `json:"account"`
	TriangleID string      `json:"triangle"`
	Lat        json.Number `json:"lat"`
	Lon        json.Number `json:"lon"`
	Accuracy   json.Number `json:"acc"`
	Timestamp  string      `json:"ts"`
	Nonce      string      `json:"nonce"`
}

// wireV2 nests location and adds the optional verifier inputs.
type wireV2 struct {
	Version     Version         `json:"version"`
	Account     string          `json:"account"`
	TriangleID  string          `json:"triangle"`
	Location    Location        `json:"location"`
	Timestamp   string          `json:"ts"`
	Nonce       string          `json:"nonce"`
	Attestation *Attestation    `json:"attestation,omitempty"`
	GNSS        []GNSSSatellite `json:"gnss,omitempty"`
	Cell        *Cell           `json:"cell,omitempty"`
}

type versionProbe struct {
	Version Version `json:"version"`
}

// Parse decodes raw into a Payload, dispatching on the declared version.
// Version strings that are not exactly V1 or V2 are rejected. Numeric fields are decoded with json.Number so the caller can
// round-trip them verbatim into the canonical message.
func Parse(raw []byte) (*Payload, error) {
	var probe versionProbe
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	switch probe.Version {
	case V1:
		return parseV1(raw)
	case V2:
		return parseV2(raw)
	default:
		return nil, fmt.Errorf("%w: unrecognized version %q", ErrInvalidPayload, probe.Version)
	}
}

func parseV1(raw []byte) (*Payload, error) {
	var w wireV1
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	p := &Payload{
		Version:    w.Version,
		Account:    w.Account,
		TriangleID: w.TriangleID,
		Location:   Location{Lat: w.Lat, Lon: w.Lon, Accuracy: w.Accuracy},
		Timestamp:  w.Timestamp,
		Nonce:      w.Nonce,
	}
	if err := p.validateRequired(); err != nil {
		return nil, err
	}
	return p, nil
}

func parseV2(raw []byte) (*Payload, error) {
	var w wireV2
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	p := &Payload{
		Version:     w.Version,
		Account:     w.Account,
		TriangleID:  w.TriangleID,
		Location:    w.Location,
		Timestamp:   w.Timestamp,
		Nonce:       w.Nonce,
		Attestation: w.Attestation,
		GNSS:        w.GNSS,
		Cell:        w.Cell,
	}
	if err := p.validateRequired(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Payload) validateRequired() error {
	if p.Account == "" || p.TriangleID == "" || p.Timestamp == "" || p.Nonce == "" {
		return fmt.Errorf("%w: missing required field", ErrInvalidPayload)
	}
	if p.Location.Lat == "" || p.Location.Lon == "" || p.Location.Accuracy == "" {
		return fmt.Errorf("%w: missing location field", ErrInvalidPayload)
	}
	for _, n := range []json.Number{p.Location.Lat, p.Location.Lon, p.Location.Accuracy} {
		if _, err := strconv.ParseFloat(string(n), 64); err != nil {
			return fmt.Errorf("%w: numeric field %q does not parse as a float64", ErrInvalidPayload, string(n))
		}
	}
	return nil
}
