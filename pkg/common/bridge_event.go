package common

import (
	"errors"
	"fmt"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
	"go.uber.org/zap/zapcore"
)

var ErrMalformedEvent = errors.New("malformed bridge event")

// BridgeEvent is a typed state change emitted by one of the bridge contracts. Loosely-typed chain payloads are
// converted into one of the variants below and validated before anything else looks at them.
type BridgeEvent interface {
	zapcore.ObjectMarshaler
	// EventName is the name the contract logs the event under.
	EventName() string
	// EmitterChain is the chain whose contract emitted the event.
	EmitterChain() vaa.ChainID
	Validate() error

	bridgeEvent()
}

type (
	// LockEvent is emitted by the custody contract when native tokens are locked for bridging.
	LockEvent struct {
		Nonce            uint64
		Asset            vaa.Address
		Amount           vaa.Amount
		Sender           vaa.Address
		DestinationChain vaa.ChainID
		Recipient        vaa.Address
		Timestamp        uint64
		// TxID is the chain-native identifier of the transaction that emitted the event, if known.
		TxID string
	}

	// BurnEvent is emitted by the wrapped-asset contract when wrapped tokens are burned to be released on the
	// custody chain. LockNonce references the lock being redeemed and becomes the nonce of the release message.
	BurnEvent struct {
		LockNonce        uint64
		Asset            vaa.Address
		Amount           vaa.Amount
		Sender           vaa.Address
		DestinationChain vaa.ChainID
		Recipient        vaa.Address
		Timestamp        uint64
		TxID             string
	}

	// MintEvent is emitted by the wrapped-asset contract after applying a message.
	MintEvent struct {
		OriginChain vaa.ChainID
		Nonce       uint64
		Asset       vaa.Address
		Amount      vaa.Amount
		Recipient   vaa.Address
	}

	// ReleaseEvent is emitted by the custody contract after applying a message.
	ReleaseEvent struct {
		OriginChain vaa.ChainID
		Nonce       uint64
		Asset       vaa.Address
		Amount      vaa.Amount
		Recipient   vaa.Address
	}
)

const (
	EventNameLock    = "lock"
	EventNameBurn    = "burn"
	EventNameMint    = "mint"
	EventNameRelease = "release"
)

func validateTransfer(nonce uint64, amount *vaa.Amount, emitter vaa.ChainID, destination vaa.ChainID, recipient vaa.Address) error {
	if nonce == 0 {
		return fmt.Errorf("%w: zero nonce", ErrMalformedEvent)
	}
	if amount.IsZero() {
		return fmt.Errorf("%w: zero amount", ErrMalformedEvent)
	}
	if amount.BitLen() > vaa.MaxAmountBits {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, vaa.ErrAmountTooLarge)
	}
	if destination != emitter.Counterpart() {
		return fmt.Errorf("%w: destination %s is not reachable from %s", ErrMalformedEvent, destination, emitter)
	}
	if recipient == (vaa.Address{}) {
		return fmt.Errorf("%w: empty recipient", ErrMalformedEvent)
	}
	return nil
}

func (*LockEvent) EventName() string            { return EventNameLock }
func (*LockEvent) EmitterChain() vaa.ChainID    { return vaa.ChainIDStellar }
func (*LockEvent) bridgeEvent()                 {}
func (*BurnEvent) EventName() string            { return EventNameBurn }
func (*BurnEvent) EmitterChain() vaa.ChainID    { return vaa.ChainIDNear }
func (*BurnEvent) bridgeEvent()                 {}
func (*MintEvent) EventName() string            { return EventNameMint }
func (*MintEvent) EmitterChain() vaa.ChainID    { return vaa.ChainIDNear }
func (*MintEvent) bridgeEvent()                 {}
func (*ReleaseEvent) EventName() string         { return EventNameRelease }
func (*ReleaseEvent) EmitterChain() vaa.ChainID { return vaa.ChainIDStellar }
func (*ReleaseEvent) bridgeEvent()              {}

func (e *LockEvent) Validate() error {
	return validateTransfer(e.Nonce, &e.Amount, e.EmitterChain(), e.DestinationChain, e.Recipient)
}

func (e *BurnEvent) Validate() error {
	return validateTransfer(e.LockNonce, &e.Amount, e.EmitterChain(), e.DestinationChain, e.Recipient)
}

func (e *MintEvent) Validate() error {
	if e.OriginChain != e.EmitterChain().Counterpart() {
		return fmt.Errorf("%w: mint from %s", ErrMalformedEvent, e.OriginChain)
	}
	if e.Amount.IsZero() {
		return fmt.Errorf("%w: zero amount", ErrMalformedEvent)
	}
	return nil
}

func (e *ReleaseEvent) Validate() error {
	if e.OriginChain != e.EmitterChain().Counterpart() {
		return fmt.Errorf("%w: release from %s", ErrMalformedEvent, e.OriginChain)
	}
	if e.Amount.IsZero() {
		return fmt.Errorf("%w: zero amount", ErrMalformedEvent)
	}
	return nil
}

func (e *LockEvent) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("event", EventNameLock)
	enc.AddUint64("nonce", e.Nonce)
	enc.AddString("asset", e.Asset.String())
	enc.AddString("amount", e.Amount.Dec())
	enc.AddString("sender", e.Sender.String())
	enc.AddString("destinationChain", e.DestinationChain.String())
	enc.AddString("recipient", e.Recipient.String())
	enc.AddUint64("timestamp", e.Timestamp)
	if e.TxID != "" {
		enc.AddString("txID", e.TxID)
	}
	return nil
}

func (e *BurnEvent) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("event", EventNameBurn)
	enc.AddUint64("lockNonce", e.LockNonce)
	enc.AddString("asset", e.Asset.String())
	enc.AddString("amount", e.Amount.Dec())
	enc.AddString("sender", e.Sender.String())
	enc.AddString("destinationChain", e.DestinationChain.String())
	enc.AddString("recipient", e.Recipient.String())
	enc.AddUint64("timestamp", e.Timestamp)
	if e.TxID != "" {
		enc.AddString("txID", e.TxID)
	}
	return nil
}

func (e *MintEvent) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("event", EventNameMint)
	enc.AddString("originChain", e.OriginChain.String())
	enc.AddUint64("nonce", e.Nonce)
	enc.AddString("asset", e.Asset.String())
	enc.AddString("amount", e.Amount.Dec())
	enc.AddString("recipient", e.Recipient.String())
	return nil
}

func (e *ReleaseEvent) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("event", EventNameRelease)
	enc.AddString("originChain", e.OriginChain.String())
	enc.AddUint64("nonce", e.Nonce)
	enc.AddString("asset", e.Asset.String())
	enc.AddString("amount", e.Amount.Dec())
	enc.AddString("recipient", e.Recipient.String())
	return nil
}
