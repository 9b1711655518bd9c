package common

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/openpgp/armor" //nolint // Package is deprecated but armored key files are still read with it.
)

const (
	GuardianKeyArmoredBlock = "AURORA GUARDIAN PRIVATE KEY"

	armorHeaderPublicKey   = "PublicKey"
	armorHeaderDescription = "Description"
	armorHeaderUnsafe      = "UnsafeDeterministicKey"
)

// LoadGuardianKey loads an armored guardian key from disk.
func LoadGuardianKey(filename string, unsafeDevMode bool) (ed25519.PrivateKey, error) {
	return LoadArmoredKey(filename, GuardianKeyArmoredBlock, unsafeDevMode)
}

// LoadArmoredKey loads an armored ed25519 seed from disk. The body is the raw 32-byte seed.
func LoadArmoredKey(filename string, blockType string, unsafeDevMode bool) (ed25519.PrivateKey, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	p, err := armor.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read armored file: %w", err)
	}

	if p.Type != blockType {
		return nil, fmt.Errorf("invalid block type: %s", p.Type)
	}

	b, err := io.ReadAll(p.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if !unsafeDevMode && p.Header[armorHeaderUnsafe] == "true" {
		return nil, errors.New("refusing to use deterministic key in production")
	}

	if len(b) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid key length: got %d bytes, expected %d", len(b), ed25519.SeedSize)
	}

	key := ed25519.NewKeyFromSeed(b)

	if pk, ok := p.Header[armorHeaderPublicKey]; ok && pk != hex.EncodeToString(key.Public().(ed25519.PublicKey)) {
		return nil, errors.New("public key header does not match the key material")
	}

	return key, nil
}

// WriteArmoredKey serializes a key and writes it to disk. Existing files are never overwritten.
func WriteArmoredKey(key ed25519.PrivateKey, description string, filename string, blockType string, unsafe bool) error {
	if _, err := os.Stat(filename); !os.IsNotExist(err) {
		return errors.New("refusing to override existing key")
	}

	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	headers := map[string]string{
		armorHeaderPublicKey: hex.EncodeToString(key.Public().(ed25519.PublicKey)),
	}
	if description != "" {
		headers[armorHeaderDescription] = description
	}
	if unsafe {
		headers[armorHeaderUnsafe] = "true"
	}

	a, err := armor.Encode(f, blockType, headers)
	if err != nil {
		return fmt.Errorf("failed to create armor encoder: %w", err)
	}
	if _, err := a.Write(key.Seed()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	if err := a.Close(); err != nil {
		return err
	}
	return f.Close()
}
