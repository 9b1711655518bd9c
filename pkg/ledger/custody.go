package ledger

import (
	"fmt"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/common"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
	"go.uber.org/zap"
)

// LockRecord is stored for every lock, keyed by its nonce.
type LockRecord struct {
	Nonce            uint64
	Asset            vaa.Address
	Amount           vaa.Amount
	Sender           vaa.Address
	DestinationChain vaa.ChainID
	Recipient        vaa.Address
	Timestamp        uint64
	Released         bool
}

// Stats are running totals over all assets.
type Stats struct {
	Locks    uint64
	Releases uint64

	TotalLocked   vaa.Amount
	TotalReleased vaa.Amount
	// TotalVolume is TotalLocked + TotalReleased
	TotalVolume vaa.Amount
}

// CustodyLedger is the contract on the asset-native chain. Native tokens are held in the contract's own account
// between Lock and Release.
type CustodyLedger struct {
	*contract

	locks     map[uint64]*LockRecord
	lastNonce uint64
	stats     Stats
}

func NewCustodyLedger(logger *zap.Logger, cfg Config, sink EventSink) (*CustodyLedger, error) {
	c, err := newContract(logger.With(zap.String("component", "custody_ledger")), cfg, sink)
	if err != nil {
		return nil, err
	}
	return &CustodyLedger{
		contract: c,
		locks:    make(map[uint64]*LockRecord),
	}, nil
}

// Fund credits native tokens to account. It stands in for the native token contract and is owner-only.
func (l *CustodyLedger) Fund(caller vaa.Address, asset vaa.Address, account vaa.Address, amount *vaa.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.owner {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	b := l.book(asset)
	if err := b.checkCredit(amount); err != nil {
		return err
	}
	b.mint(account, amount)
	return nil
}

// Lock moves amount of asset from caller into custody and returns the allocated nonce. Every call allocates a new
// nonce, starting at 1.
func (l *CustodyLedger) Lock(caller vaa.Address, asset vaa.Address, amount *vaa.Amount, destinationChain vaa.ChainID, recipient vaa.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkOutgoing(amount, destinationChain, recipient); err != nil {
		return 0, err
	}
	b, err := l.debitable(asset, caller, amount)
	if err != nil {
		return 0, err
	}

	b.transfer(caller, l.self, amount)

	l.lastNonce++
	rec := &LockRecord{
		Nonce:            l.lastNonce,
		Asset:            asset,
		Sender:           caller,
		DestinationChain: destinationChain,
		Recipient:        recipient,
		Timestamp:        l.now(),
	}
	rec.Amount.Set(amount)
	l.locks[rec.Nonce] = rec

	l.stats.Locks++
	l.stats.TotalLocked.Add(&l.stats.TotalLocked, amount)
	l.stats.TotalVolume.Add(&l.stats.TotalVolume, amount)

	ev := &common.LockEvent{
		Nonce:            rec.Nonce,
		Asset:            asset,
		Sender:           caller,
		DestinationChain: destinationChain,
		Recipient:        recipient,
		Timestamp:        rec.Timestamp,
	}
	ev.Amount.Set(amount)
	l.emit(ev)

	return rec.Nonce, nil
}

// Release applies a quorum-signed message from the wrapped chain. The message nonce names the lock being redeemed
// and msg.Amount must be the full locked amount, which moves from custody to msg.Recipient. A lock is released at
// most once.
func (l *CustodyLedger) Release(msg *vaa.VAA) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkIncoming(msg); err != nil {
		return err
	}

	rec, ok := l.locks[msg.Nonce]
	if !ok {
		return fmt.Errorf("%w: %d", ErrLockNotFound, msg.Nonce)
	}
	if rec.Released {
		return fmt.Errorf("%w: %d", ErrAlreadyReleased, msg.Nonce)
	}
	if rec.Asset != msg.AssetID {
		return fmt.Errorf("%w: lock %d holds %s", ErrAssetMismatch, rec.Nonce, rec.Asset)
	}
	if !msg.Amount.Eq(&rec.Amount) {
		return fmt.Errorf("%w: lock %d holds %s, message carries %s", ErrAmountMismatch, rec.Nonce, rec.Amount.Dec(), msg.Amount.Dec())
	}
	b, err := l.debitable(msg.AssetID, l.self, &msg.Amount)
	if err != nil {
		return err
	}

	// Nothing below can fail.
	b.transfer(l.self, msg.Recipient, &msg.Amount)
	rec.Released = true
	l.stats.Releases++
	l.stats.TotalReleased.Add(&l.stats.TotalReleased, &msg.Amount)
	l.stats.TotalVolume.Add(&l.stats.TotalVolume, &msg.Amount)
	if err := l.processed.MarkProcessed(msg.OriginChain, msg.Nonce); err != nil {
		panic(err) // checked above under the same lock
	}

	ev := &common.ReleaseEvent{
		OriginChain: msg.OriginChain,
		Nonce:       msg.Nonce,
		Asset:       msg.AssetID,
		Recipient:   msg.Recipient,
	}
	ev.Amount.Set(&msg.Amount)
	l.emit(ev)

	return nil
}

// LockRecord returns a copy of the lock with the given nonce.
func (l *CustodyLedger) LockRecord(nonce uint64) (LockRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.locks[nonce]
	if !ok {
		return LockRecord{}, false
	}
	return *rec, true
}

// LastNonce returns the most recently allocated lock nonce, 0 if nothing was locked yet.
func (l *CustodyLedger) LastNonce() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastNonce
}

func (l *CustodyLedger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// CustodyBalance returns the amount of asset held by the contract.
func (l *CustodyLedger) CustodyBalance(asset vaa.Address) vaa.Amount {
	return l.BalanceOf(asset, l.self)
}
