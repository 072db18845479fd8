package mesh

import (
	"errors"
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"
)

// Errors returned by Decode.
var (
	ErrMalformedID = errors.New("mesh: malformed triangle id")
	ErrBadChecksum = errors.New("mesh: triangle id checksum mismatch")
)

// idVersion is the version prefix of the canonical textual form.
const idVersion = "STEPMESH1"

// maxPathLen is the fixed width the path digits are padded to, sized for
// the deepest level (21, i.e. 20 path digits).
const maxPathLen = 20

const pathPadChar = '-'

// Encode renders (face, path) as the canonical, self-checksummed textual
// triangle id. level is derived as len(path)+1 and is included explicitly
// in the string for human readability and defensive re-validation on
// decode.
func Encode(face int, path []int) (string, error) {
	id := newID(face, path)
	if err := id.Validate(); err != nil {
		return "", err
	}

	body := fmt.Sprintf("%s:%02d:%02d:%s", idVersion, face, id.Level, encodePath(path))
	sum := checksum(body)
	return body + ":" + sum, nil
}

// Decode parses a canonical textual triangle id, verifying its checksum.
func Decode(s string) (ID, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 5 {
		return ID{}, ErrMalformedID
	}
	version, faceStr, levelStr, pathStr, sumStr := parts[0], parts[1], parts[2], parts[3], parts[4]
	if version != idVersion {
		return ID{}, ErrMalformedID
	}

	body := strings.Join(parts[:4], ":")
	if checksum(body) != sumStr {
		return ID{}, ErrBadChecksum
	}

	face, err := strconv.Atoi(faceStr)
	if err != nil {
		return ID{}, ErrMalformedID
	}
	level, err := strconv.Atoi(levelStr)
	if err != nil {
		return ID{}, ErrMalformedID
	}
	if len(pathStr) != maxPathLen {
		return ID{}, ErrMalformedID
	}

	path, err := decodePath(pathStr, level-1)
	if err != nil {
		return ID{}, err
	}

	id := newID(face, path)
	if id.Level != level {
		return ID{}, ErrMalformedID
	}
	if err := id.Validate(); err != nil {
		return ID{}, err
	}
	return id, nil
}

// String renders id in its canonical textual form. It never panics: an id
// constructed with invalid fields renders as "<invalid-mesh-id: ...>".
func (id ID) String() string {
	s, err := Encode(id.Face, id.Path)
	if err != nil {
		return fmt.Sprintf("<invalid-mesh-id: %v>", err)
	}
	return s
}

// Validate reports whether id's fields satisfy the structural invariants:
// face in range, level in [1,21], path digits in [0,3], and
// len(path) == level-1.
func (id ID) Validate() error {
	if id.Face < 0 || id.Face >= NumFaces {
		return fmt.Errorf("%w: face %d out of range", ErrMalformedID, id.Face)
	}
	if id.Level < 1 || id.Level > MaxLevel {
		return fmt.Errorf("%w: level %d out of range", ErrMalformedID, id.Level)
	}
	if len(id.Path) != id.Level-1 {
		return fmt.Errorf("%w: path length %d does not match level %d", ErrMalformedID, len(id.Path), id.Level)
	}
	for _, d := range id.Path {
		if d < 0 || d > 3 {
			return fmt.Errorf("%w: path digit %d out of range", ErrMalformedID, d)
		}
	}
	return nil
}

func encodePath(path []int) string {
	var b strings.Builder
	b.Grow(maxPathLen)
	for _, d := range path {
		b.WriteByte(byte('0' + d))
	}
	for i := len(path); i < maxPathLen; i++ {
		b.WriteByte(pathPadChar)
	}
	return b.String()
}

func decodePath(s string, n int) ([]int, error) {
	if n < 0 || n > maxPathLen {
		return nil, ErrMalformedID
	}
	path := make([]int, n)
	for i := 0; i < n; i++ {
		c := s[i]
		if c < '0' || c > '3' {
			return nil, ErrMalformedID
		}
		path[i] = int(c - '0')
	}
	for i := n; i < maxPathLen; i++ {
		if s[i] != pathPadChar {
			return nil, ErrMalformedID
		}
	}
	return path, nil
}

// checksum computes a short, deterministic checksum over body's bytes,
// rendered as 8 lowercase hex digits.
func checksum(body string) string {
	sum := crc32.ChecksumIEEE([]byte(body))
	return fmt.Sprintf("%08x", sum)
}
