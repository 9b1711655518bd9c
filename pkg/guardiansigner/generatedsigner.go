package guardiansigner

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// NewGeneratedSigner wraps key, or a freshly generated key when key is nil. It is meant for tests and devnets.
func NewGeneratedSigner(key ed25519.PrivateKey) (GuardianSigner, error) {
	if key == nil {
		var err error
		_, key, err = ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid ed25519 private key length %d", len(key))
	}
	return newKeySigner("generated", key), nil
}
