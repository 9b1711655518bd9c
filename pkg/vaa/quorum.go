package vaa

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
)

var (
	ErrInvalidQuorum = errors.New("invalid quorum")
	ErrNoGuardians   = errors.New("no guardian keys were provided")
	ErrNotSigned     = errors.New("VAA was not signed")
	ErrNoQuorum      = errors.New("VAA did not have a quorum")
	ErrBadSignatures = errors.New("VAA had bad signatures")
)

// Signer produces ed25519 signatures over a signing digest.
type Signer interface {
	Sign(ctx context.Context, digest []byte) ([]byte, error)
	PublicKey(ctx context.Context) PubKey
}

// CalculateQuorum returns the default minimum number of guardians that need to sign a VAA for a
// guardian set of the given size. It is only used when an operator does not configure a quorum.
func CalculateQuorum(numGuardians int) int {
	if numGuardians < 0 {
		panic("Invalid numGuardians is less than zero")
	}
	return ((numGuardians * 2) / 3) + 1
}

// ValidateQuorum checks 0 < quorum <= numGuardians.
func ValidateQuorum(quorum int, numGuardians int) error {
	if quorum <= 0 || quorum > numGuardians {
		return fmt.Errorf("%w: %d of %d guardians", ErrInvalidQuorum, quorum, numGuardians)
	}
	return nil
}

// Sign signs the digest with signer and appends the signature.
func (v *VAA) Sign(ctx context.Context, signer Signer) error {
	digest := v.SigningDigest()
	s, err := signer.Sign(ctx, digest.Bytes())
	if err != nil {
		return fmt.Errorf("failed to sign VAA %s: %w", v.MessageID(), err)
	}
	if len(s) != ed25519.SignatureSize {
		return fmt.Errorf("signer returned %d bytes, expected %d", len(s), ed25519.SignatureSize)
	}

	var sig SignatureData
	copy(sig[:], s)
	v.AddSignature(signer.PublicKey(ctx), sig)
	return nil
}

// VerifySignatures returns true iff at least quorum distinct guardians from keys produced a valid signature
// over the signing digest. Signatures from unknown keys, invalid signatures and repeated keys are ignored.
func (v *VAA) VerifySignatures(keys []PubKey, quorum int) bool {
	if quorum <= 0 || len(v.Signatures) < quorum {
		return false
	}

	authorized := make(map[PubKey]struct{}, len(keys))
	for _, k := range keys {
		authorized[k] = struct{}{}
	}

	return countValidSignatures(v.SigningDigest().Bytes(), v.Signatures, authorized) >= quorum
}

func countValidSignatures(digest []byte, signatures []*Signature, authorized map[PubKey]struct{}) int {
	seen := make(map[PubKey]struct{}, len(signatures))
	for _, sig := range signatures {
		if sig == nil {
			continue
		}
		if _, ok := authorized[sig.GuardianPubKey]; !ok {
			continue
		}
		if _, dup := seen[sig.GuardianPubKey]; dup {
			continue
		}
		if !ed25519.Verify(sig.GuardianPubKey[:], digest, sig.Signature[:]) {
			continue
		}
		seen[sig.GuardianPubKey] = struct{}{}
	}
	return len(seen)
}

// Verify is the descriptive form of VerifySignatures. It returns nil if the VAA carries a quorum of valid
// signatures from keys, or an error describing the first check that failed.
func (v *VAA) Verify(keys []PubKey, quorum int) error {
	if len(keys) == 0 {
		return ErrNoGuardians
	}
	if err := ValidateQuorum(quorum, len(keys)); err != nil {
		return err
	}

	if len(v.Signatures) == 0 {
		return ErrNotSigned
	}

	if len(v.Signatures) < quorum {
		return fmt.Errorf("%w: %d signatures, quorum is %d", ErrNoQuorum, len(v.Signatures), quorum)
	}

	if !v.VerifySignatures(keys, quorum) {
		return ErrBadSignatures
	}

	return nil
}
