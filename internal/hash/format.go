package hash

import (
	"encoding/hex"
	"fmt"
)

// FormatDigest returns the lowercase hex form of a digest, the format used in
// checksum lists and log output.
func FormatDigest(sum Sum) string {
	return sum.String()
}

// ParseDigest parses a 64-character hex string. Upper and lower case are
// both accepted.
func ParseDigest(hexString string) (Sum, error) {
	var sum Sum
	if len(hexString) != 2*Size {
		return sum, fmt.Errorf("digest is %d characters, want %d", len(hexString), 2*Size)
	}
	if _, err := hex.Decode(sum[:], []byte(hexString)); err != nil {
		return sum, fmt.Errorf("parsing digest: %w", err)
	}
	return sum, nil
}
