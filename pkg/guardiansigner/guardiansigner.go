package guardiansigner

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
)

// The types of guardian signers that are supported
type SignerType int

const (
	InvalidSignerType SignerType = iota
	// file://<path-to-armored-key-file>
	FileSignerType
	// hex://<hex-encoded ed25519 seed or private key>
	HexSignerType
	// near://ed25519:<base58-encoded private key>, the format of NEAR CLI credential files
	NearSignerType
)

// GuardianSigner signs message digests on behalf of this guardian.
type GuardianSigner interface {
	// Sign signs the 32-byte signing digest of a VAA.
	Sign(ctx context.Context, digest []byte) (sig []byte, err error)
	// PublicKey returns the ed25519 public key of the signer, as it appears in guardian rosters.
	PublicKey(ctx context.Context) vaa.PubKey
	// Verify checks that sig is a valid signature of digest under the signer's public key.
	Verify(ctx context.Context, sig []byte, digest []byte) (valid bool, err error)
	// TypeAsString names the signer implementation for logs.
	TypeAsString() string
}

var _ vaa.Signer = GuardianSigner(nil)

func NewGuardianSignerFromUri(signerUri string, unsafeDevMode bool) (GuardianSigner, error) {

	// Get the signer type
	signerType, signerKeyConfig := ParseSignerUri(signerUri)

	switch signerType {
	case FileSignerType:
		return NewFileSigner(unsafeDevMode, signerKeyConfig)
	case HexSignerType:
		return NewHexSigner(signerKeyConfig)
	case NearSignerType:
		return NewNearSigner(signerKeyConfig)
	default:
		return nil, fmt.Errorf("unsupported guardian signer type")
	}
}

func ParseSignerUri(signerUri string) (signerType SignerType, signerKeyConfig string) {
	typeStr, keyConfig, found := strings.Cut(signerUri, "://")
	if !found {
		return InvalidSignerType, ""
	}

	switch typeStr {
	case "file":
		return FileSignerType, keyConfig
	case "hex":
		return HexSignerType, keyConfig
	case "near":
		return NearSignerType, keyConfig
	default:
		return InvalidSignerType, ""
	}
}

// keySigner signs with an in-memory ed25519 key. All signer types load their key into one.
type keySigner struct {
	kind       string
	privateKey ed25519.PrivateKey
	publicKey  vaa.PubKey
}

func newKeySigner(kind string, key ed25519.PrivateKey) *keySigner {
	s := &keySigner{kind: kind, privateKey: key}
	copy(s.publicKey[:], key.Public().(ed25519.PublicKey))
	return s
}

func (s *keySigner) Sign(_ context.Context, digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("expected a 32-byte digest, got %d bytes", len(digest))
	}
	return ed25519.Sign(s.privateKey, digest), nil
}

func (s *keySigner) PublicKey(context.Context) vaa.PubKey {
	return s.publicKey
}

func (s *keySigner) Verify(_ context.Context, sig []byte, digest []byte) (bool, error) {
	if len(sig) != ed25519.SignatureSize {
		return false, fmt.Errorf("invalid signature length %d", len(sig))
	}
	return ed25519.Verify(s.publicKey[:], digest, sig), nil
}

func (s *keySigner) TypeAsString() string {
	return s.kind
}

// keyFromBytes accepts either a 32-byte seed or a 64-byte seed||public key.
func keyFromBytes(b []byte) (ed25519.PrivateKey, error) {
	switch len(b) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(b), nil
	case ed25519.PrivateKeySize:
		key := ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])
		if !key.Equal(ed25519.PrivateKey(b)) {
			return nil, fmt.Errorf("public key half does not match the seed")
		}
		return key, nil
	default:
		return nil, fmt.Errorf("invalid ed25519 key length %d", len(b))
	}
}

// WARNING: DO NOT USE THIS SIGNER OUTSIDE OF TESTS
//
// This function is meant to be a helper function that returns a guardian signer for tests
// that simply require a private key.
// The caller can specify a private key to be used, or pass nil to have `NewGeneratedSigner`
// generate a random private key.
func GenerateSignerWithPrivatekeyUnsafe(key ed25519.PrivateKey) (GuardianSigner, error) {
	return NewGeneratedSigner(key)
}
