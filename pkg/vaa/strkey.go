package vaa

import (
	"errors"
	"fmt"

	"github.com/stellar/go/strkey"
)

// StrkeyVersion is the version byte of a Stellar strkey. It determines the leading character of the encoding.
type StrkeyVersion = strkey.VersionByte

const (
	StrkeyAccount  = strkey.VersionByteAccountID // G...
	StrkeyContract = strkey.VersionByteContract  // C...

	strkeyLength = 56
)

var ErrInvalidStrkey = errors.New("invalid strkey")

// StrkeyToAddress decodes a Stellar account (G...) or contract (C...) strkey into the 32-byte key or contract hash
// it encodes.
func StrkeyToAddress(s string) (Address, StrkeyVersion, error) {
	var a Address
	if len(s) != strkeyLength {
		return a, 0, fmt.Errorf("%w: length %d", ErrInvalidStrkey, len(s))
	}
	version, err := strkey.Version(s)
	if err != nil {
		return a, 0, fmt.Errorf("%w: %v", ErrInvalidStrkey, err)
	}
	if version != StrkeyAccount && version != StrkeyContract {
		return a, 0, fmt.Errorf("%w: unsupported version byte %d", ErrInvalidStrkey, version)
	}
	raw, err := strkey.Decode(version, s)
	if err != nil {
		return a, 0, fmt.Errorf("%w: %v", ErrInvalidStrkey, err)
	}
	if len(raw) != len(a) {
		return a, 0, fmt.Errorf("%w: payload length %d", ErrInvalidStrkey, len(raw))
	}
	copy(a[:], raw)
	return a, version, nil
}

// Strkey encodes a as a Stellar strkey of the given version.
func (a Address) Strkey(version StrkeyVersion) string {
	return strkey.MustEncode(version, a[:])
}
