package ledger

import (
	"fmt"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/common"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
	"go.uber.org/zap"
)

// MintRecord is kept for every applied mint, keyed by the nonce of the counterpart lock it mirrors.
type MintRecord struct {
	LockNonce uint64
	Asset     vaa.Address
	Amount    vaa.Amount
	Recipient vaa.Address
	Burned    bool
}

// WrappedLedger is the contract on the wrapped-asset chain. Wrapped supply only changes through Mint and Burn.
type WrappedLedger struct {
	*contract

	mints map[uint64]*MintRecord
}

func NewWrappedLedger(logger *zap.Logger, cfg Config, sink EventSink) (*WrappedLedger, error) {
	c, err := newContract(logger.With(zap.String("component", "wrapped_ledger")), cfg, sink)
	if err != nil {
		return nil, err
	}
	return &WrappedLedger{
		contract: c,
		mints:    make(map[uint64]*MintRecord),
	}, nil
}

// Mint applies a quorum-signed message from the custody chain, crediting msg.Amount of the wrapped asset to
// msg.Recipient.
func (l *WrappedLedger) Mint(msg *vaa.VAA) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkIncoming(msg); err != nil {
		return err
	}
	b := l.book(msg.AssetID)
	if err := b.checkCredit(&msg.Amount); err != nil {
		return err
	}

	b.mint(msg.Recipient, &msg.Amount)
	rec := &MintRecord{
		LockNonce: msg.Nonce,
		Asset:     msg.AssetID,
		Recipient: msg.Recipient,
	}
	rec.Amount.Set(&msg.Amount)
	l.mints[msg.Nonce] = rec
	if err := l.processed.MarkProcessed(msg.OriginChain, msg.Nonce); err != nil {
		panic(err) // checked above under the same lock
	}

	ev := &common.MintEvent{
		OriginChain: msg.OriginChain,
		Nonce:       msg.Nonce,
		Asset:       msg.AssetID,
		Recipient:   msg.Recipient,
	}
	ev.Amount.Set(&msg.Amount)
	l.emit(ev)

	return nil
}

// Burn destroys amount of the caller's wrapped asset so that the lock lockNonce can be released to recipient on
// destinationChain. The lock must have been minted here, not burned before, and amount must be exactly what was
// minted for it, since the custody side only ever releases a lock in full. The emitted BurnEvent carries the
// routing information for the relayer.
func (l *WrappedLedger) Burn(caller vaa.Address, asset vaa.Address, amount *vaa.Amount, destinationChain vaa.ChainID, recipient vaa.Address, lockNonce uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkOutgoing(amount, destinationChain, recipient); err != nil {
		return err
	}
	if lockNonce == 0 {
		return ErrInvalidNonce
	}
	rec, ok := l.mints[lockNonce]
	if !ok {
		return fmt.Errorf("%w: %d", ErrLockNotFound, lockNonce)
	}
	if rec.Burned {
		return fmt.Errorf("%w: %d", ErrAlreadyBurned, lockNonce)
	}
	if rec.Asset != asset {
		return fmt.Errorf("%w: lock %d holds %s", ErrAssetMismatch, lockNonce, rec.Asset)
	}
	b, err := l.debitable(asset, caller, amount)
	if err != nil {
		return err
	}
	if !amount.Eq(&rec.Amount) {
		return fmt.Errorf("%w: lock %d minted %s, burning %s", ErrAmountMismatch, lockNonce, rec.Amount.Dec(), amount.Dec())
	}

	b.burn(caller, amount)
	rec.Burned = true

	ev := &common.BurnEvent{
		LockNonce:        lockNonce,
		Asset:            asset,
		Sender:           caller,
		DestinationChain: destinationChain,
		Recipient:        recipient,
		Timestamp:        l.now(),
	}
	ev.Amount.Set(amount)
	l.emit(ev)

	return nil
}

// MintRecord returns a copy of the mint for the counterpart lock lockNonce.
func (l *WrappedLedger) MintRecord(lockNonce uint64) (MintRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.mints[lockNonce]
	if !ok {
		return MintRecord{}, false
	}
	return *rec, true
}
