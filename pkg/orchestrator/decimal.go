package orchestrator

import "strings"

// formatMicroAsStep renders a base-10 micro-STEP integer string (as
// produced by pkg/database, e.g. "1500000") as a fixed-point STEP amount
//. Arithmetic stays over strings
// and big.Int upstream — this is pure formatting, never float64, so the
// response never loses precision on large balances.
func formatMicroAsStep(micro string) string {
	neg := strings.HasPrefix(micro, "-")
	if neg {
		micro = micro[1:]
	}
	for len(micro) < 7 {
		micro = "0" + micro
	}
	intPart := micro[:len(micro)-6]
	fracPart := strings.TrimRight(micro[len(micro)-6:], "0")

	out := intPart
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}

// pathString renders a mesh path (each element in [0,3]) as a compact
// digit string, the form pkg/database stores in the triangle row's path
// column.
func pathString(path []int) string {
	b := make([]byte, len(path))
	for i, d := range path {
		b[i] = byte('0' + d)
	}
	return string(b)
}
