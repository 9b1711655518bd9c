package guardiansigner

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// NewHexSigner parses a hex-encoded ed25519 seed (32 bytes) or private key (64 bytes).
func NewHexSigner(keyHex string) (GuardianSigner, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(keyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex guardian key: %w", err)
	}
	key, err := keyFromBytes(b)
	if err != nil {
		return nil, err
	}
	return newKeySigner("hex", key), nil
}
