package guardiansigner

import (
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

const nearKeyPrefix = "ed25519:"

// NewNearSigner parses a key in NEAR's "ed25519:<base58>" format, e.g. the private_key field of a NEAR CLI
// credentials file.
func NewNearSigner(key string) (GuardianSigner, error) {
	encoded, ok := strings.CutPrefix(strings.TrimSpace(key), nearKeyPrefix)
	if !ok {
		return nil, fmt.Errorf("NEAR key must start with %q", nearKeyPrefix)
	}
	b, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base58 key: %w", err)
	}
	pk, err := keyFromBytes(b)
	if err != nil {
		return nil, err
	}
	return newKeySigner("near", pk), nil
}

// FormatNearKey renders a public key the way NEAR tooling prints it.
func FormatNearKey(pub []byte) string {
	return nearKeyPrefix + base58.Encode(pub)
}
