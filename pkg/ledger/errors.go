package ledger

import (
	"errors"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/replay"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
)

// Every rejection is returned before the ledger is mutated.
var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrAmountOverflow      = errors.New("amount overflows the 128-bit supply")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnauthorized        = errors.New("caller is not the owner")
	ErrAlreadyProcessed    = replay.ErrAlreadyProcessed
	ErrLockNotFound        = errors.New("lock record not found")
	ErrAlreadyReleased     = errors.New("lock already released")
	ErrAssetMismatch       = errors.New("asset does not match lock record")
	ErrAmountMismatch      = errors.New("amount does not match lock record")
	ErrAlreadyBurned       = errors.New("lock already burned")
	ErrWrongDestination    = errors.New("message is not addressed to this contract")
	ErrWrongOrigin         = errors.New("message origin is not the counterpart chain")
	ErrUnsupportedChain    = errors.New("unsupported destination chain")
	ErrInvalidRecipient    = errors.New("invalid recipient")
	ErrInvalidNonce        = errors.New("invalid lock nonce")
	ErrInvalidMessage      = errors.New("invalid message")
	ErrVerificationFailed  = errors.New("guardian signature verification failed")
	ErrInvalidQuorum       = vaa.ErrInvalidQuorum
)
