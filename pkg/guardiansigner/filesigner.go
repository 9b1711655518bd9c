package guardiansigner

import (
	"fmt"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/common"
)

// NewFileSigner loads an armored guardian key written by `bridged keygen`.
func NewFileSigner(unsafeDevMode bool, signerKeyPath string) (GuardianSigner, error) {
	key, err := common.LoadGuardianKey(signerKeyPath, unsafeDevMode)
	if err != nil {
		return nil, fmt.Errorf("failed to load guardian key from %s: %w", signerKeyPath, err)
	}
	return newKeySigner("file", key), nil
}
