package ledger

import (
	"crypto/ed25519"
	"math/rand"
	"testing"
	"time"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/common"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/replay"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	owner           = mustAccount("owner.testnet")
	alice           = mustAccount("alice")
	bob             = mustAccount("bob.testnet")
	mallory         = mustAccount("mallory")
	asset           = vaa.Address{0x04}
	stellarContract = mustAccount("CBRIDGE")
	nearContract    = mustAccount("bridge.testnet")
	fixedTime       = time.Unix(1700000000, 0)
)

func mustAccount(s string) vaa.Address {
	a, err := vaa.AccountToAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func guardians(n int) ([]ed25519.PrivateKey, []vaa.PubKey) {
	privs := make([]ed25519.PrivateKey, n)
	pubs := make([]vaa.PubKey, n)
	for i := 0; i < n; i++ {
		seed := make([]byte, ed25519.SeedSize)
		seed[0] = byte(i + 1)
		privs[i] = ed25519.NewKeyFromSeed(seed)
		copy(pubs[i][:], privs[i].Public().(ed25519.PublicKey))
	}
	return privs, pubs
}

type fixture struct {
	privs   []ed25519.PrivateKey
	pubs    []vaa.PubKey
	custody *CustodyLedger
	wrapped *WrappedLedger
	events  *EventLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	privs, pubs := guardians(3)
	events := &EventLog{}
	clock := func() time.Time { return fixedTime }

	custody, err := NewCustodyLedger(zap.NewNop(), Config{
		ChainID:   vaa.ChainIDStellar,
		Contract:  stellarContract,
		Owner:     owner,
		Guardians: pubs,
		Quorum:    2,
		Clock:     clock,
	}, events)
	require.NoError(t, err)

	wrapped, err := NewWrappedLedger(zap.NewNop(), Config{
		ChainID:   vaa.ChainIDNear,
		Contract:  nearContract,
		Owner:     owner,
		Guardians: pubs,
		Quorum:    2,
		Clock:     clock,
	}, events)
	require.NoError(t, err)

	return &fixture{privs: privs, pubs: pubs, custody: custody, wrapped: wrapped, events: events}
}

func (f *fixture) mintMessage(nonce uint64, amount uint64, recipient vaa.Address, signers ...int) *vaa.VAA {
	v := vaa.New(vaa.ChainIDStellar, stellarContract, vaa.ChainIDNear, nearContract, asset, vaa.NewAmount(amount), recipient, nonce, uint64(fixedTime.Unix()))
	for _, i := range signers {
		v.AddSignatureFromKey(f.privs[i])
	}
	return v
}

func (f *fixture) releaseMessage(nonce uint64, amount uint64, recipient vaa.Address, signers ...int) *vaa.VAA {
	v := vaa.New(vaa.ChainIDNear, nearContract, vaa.ChainIDStellar, stellarContract, asset, vaa.NewAmount(amount), recipient, nonce, uint64(fixedTime.Unix()))
	for _, i := range signers {
		v.AddSignatureFromKey(f.privs[i])
	}
	return v
}

func amt(n uint64) *vaa.Amount { return vaa.NewAmount(n) }

func assertBalance(t *testing.T, expected uint64, actual vaa.Amount) {
	t.Helper()
	assert.Equal(t, expected, actual.Uint64(), "balance %s", actual.Dec())
}

func assertConserved(t *testing.T, c *contract) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for a, b := range c.books {
		sum := b.sum()
		assert.True(t, sum.Eq(&b.supply), "asset %s: supply %s != sum %s", a, b.supply.Dec(), sum.Dec())
	}
}

func TestNewLedgerRejectsInvalidRoster(t *testing.T) {
	_, pubs := guardians(3)

	_, err := NewWrappedLedger(zap.NewNop(), Config{ChainID: vaa.ChainIDNear, Guardians: pubs, Quorum: 0}, nil)
	assert.ErrorIs(t, err, ErrInvalidQuorum)

	_, err = NewWrappedLedger(zap.NewNop(), Config{ChainID: vaa.ChainIDNear, Guardians: pubs, Quorum: 4}, nil)
	assert.ErrorIs(t, err, ErrInvalidQuorum)

	_, err = NewCustodyLedger(zap.NewNop(), Config{ChainID: vaa.ChainIDNear, Guardians: []vaa.PubKey{pubs[0], pubs[0]}, Quorum: 1}, nil)
	assert.ErrorIs(t, err, common.ErrDuplicateGuardian)

	_, err = NewCustodyLedger(zap.NewNop(), Config{ChainID: 9, Guardians: pubs, Quorum: 1}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedChain)
}

func TestLockAllocatesMonotonicNonces(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.custody.Fund(owner, asset, alice, amt(100)))

	for i := uint64(1); i <= 3; i++ {
		nonce, err := f.custody.Lock(alice, asset, amt(10), vaa.ChainIDNear, bob)
		require.NoError(t, err)
		// identical arguments never deduplicate
		assert.Equal(t, i, nonce)
	}

	assertBalance(t, 70, f.custody.BalanceOf(asset, alice))
	assertBalance(t, 30, f.custody.CustodyBalance(asset))
	assertBalance(t, 100, f.custody.TotalSupply(asset))
	assert.Equal(t, uint64(3), f.custody.LastNonce())

	rec, ok := f.custody.LockRecord(2)
	require.True(t, ok)
	assert.Equal(t, alice, rec.Sender)
	assert.Equal(t, bob, rec.Recipient)
	assert.Equal(t, vaa.ChainIDNear, rec.DestinationChain)
	assert.Equal(t, uint64(fixedTime.Unix()), rec.Timestamp)
	assert.False(t, rec.Released)

	stats := f.custody.Stats()
	assert.Equal(t, uint64(3), stats.Locks)
	assertBalance(t, 30, stats.TotalLocked)
	assertBalance(t, 30, stats.TotalVolume)

	events := f.events.Events()
	require.Len(t, events, 3)
	lock, ok := events[2].(*common.LockEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(3), lock.Nonce)
	assertBalance(t, 10, lock.Amount)
	assert.NoError(t, lock.Validate())
}

func TestLockRejections(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.custody.Fund(owner, asset, alice, amt(100)))

	_, err := f.custody.Lock(alice, asset, amt(0), vaa.ChainIDNear, bob)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.custody.Lock(alice, asset, nil, vaa.ChainIDNear, bob)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.custody.Lock(alice, asset, amt(101), vaa.ChainIDNear, bob)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = f.custody.Lock(alice, asset, amt(1), vaa.ChainIDStellar, bob)
	assert.ErrorIs(t, err, ErrUnsupportedChain)

	_, err = f.custody.Lock(alice, asset, amt(1), vaa.ChainIDNear, vaa.Address{})
	assert.ErrorIs(t, err, ErrInvalidRecipient)

	assertBalance(t, 100, f.custody.BalanceOf(asset, alice))
	assert.Equal(t, uint64(0), f.custody.LastNonce())
	assert.Empty(t, f.events.Events())
}

func TestFundIsOwnerOnly(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.custody.Fund(mallory, asset, mallory, amt(1)), ErrUnauthorized)
	assert.ErrorIs(t, f.custody.Fund(owner, asset, mallory, amt(0)), ErrInvalidAmount)

	huge, err := vaa.AmountFromDecimal("340282366920938463463374607431768211455")
	require.NoError(t, err)
	require.NoError(t, f.custody.Fund(owner, asset, alice, huge))
	assert.ErrorIs(t, f.custody.Fund(owner, asset, alice, amt(1)), ErrAmountOverflow)
}

// Lock 1000 with nonce 7, mint it on the wrapped chain, then replay the same message.
func TestLockThenMintThenReplay(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.custody.Fund(owner, asset, alice, amt(2000)))

	var nonce uint64
	for i := 0; i < 7; i++ {
		var err error
		nonce, err = f.custody.Lock(alice, asset, amt(1000/7+1), vaa.ChainIDNear, bob)
		require.NoError(t, err)
	}
	require.Equal(t, uint64(7), nonce)

	msg := f.mintMessage(7, 1000, bob, 0, 1)
	require.NoError(t, f.wrapped.Mint(msg))
	assertBalance(t, 1000, f.wrapped.BalanceOf(asset, bob))
	assertBalance(t, 1000, f.wrapped.TotalSupply(asset))
	assert.True(t, f.wrapped.IsProcessed(vaa.ChainIDStellar, 7))

	err := f.wrapped.Mint(f.mintMessage(7, 1000, bob, 0, 1))
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assertBalance(t, 1000, f.wrapped.BalanceOf(asset, bob))
	assertBalance(t, 1000, f.wrapped.TotalSupply(asset))
}

// Burn 400 of 1000, then fail to burn 700 of the remaining 600. Bob holds two minted locks of 400 and 600.
func TestBurn(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wrapped.Mint(f.mintMessage(1, 400, bob, 0, 1)))
	require.NoError(t, f.wrapped.Mint(f.mintMessage(2, 600, bob, 0, 1)))
	assertBalance(t, 1000, f.wrapped.BalanceOf(asset, bob))

	require.NoError(t, f.wrapped.Burn(bob, asset, amt(400), vaa.ChainIDStellar, alice, 1))
	assertBalance(t, 600, f.wrapped.BalanceOf(asset, bob))
	assertBalance(t, 600, f.wrapped.TotalSupply(asset))

	err := f.wrapped.Burn(bob, asset, amt(700), vaa.ChainIDStellar, alice, 2)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assertBalance(t, 600, f.wrapped.BalanceOf(asset, bob))
	assertBalance(t, 600, f.wrapped.TotalSupply(asset))

	rec, ok := f.wrapped.MintRecord(1)
	require.True(t, ok)
	assert.True(t, rec.Burned)
	rec, ok = f.wrapped.MintRecord(2)
	require.True(t, ok)
	assert.False(t, rec.Burned)

	events := f.events.Events()
	require.Len(t, events, 3)
	burn, ok := events[2].(*common.BurnEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(1), burn.LockNonce)
	assert.Equal(t, vaa.ChainIDStellar, burn.DestinationChain)
	assert.Equal(t, alice, burn.Recipient)
	assert.Equal(t, bob, burn.Sender)
	assertBalance(t, 400, burn.Amount)
	assert.NoError(t, burn.Validate())
}

func TestBurnRejections(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wrapped.Mint(f.mintMessage(1, 1000, bob, 0, 1)))
	require.NoError(t, f.wrapped.Mint(f.mintMessage(2, 10, bob, 0, 1)))
	require.NoError(t, f.wrapped.Burn(bob, asset, amt(10), vaa.ChainIDStellar, alice, 2))

	tests := map[string]struct {
		caller    vaa.Address
		asset     vaa.Address
		amount    *vaa.Amount
		dest      vaa.ChainID
		lockNonce uint64
		err       error
	}{
		"zero amount":         {bob, asset, amt(0), vaa.ChainIDStellar, 1, ErrInvalidAmount},
		"wrong chain":         {bob, asset, amt(1000), vaa.ChainIDNear, 1, ErrUnsupportedChain},
		"zero nonce":          {bob, asset, amt(1000), vaa.ChainIDStellar, 0, ErrInvalidNonce},
		"unknown lock":        {bob, asset, amt(1), vaa.ChainIDStellar, 9999, ErrLockNotFound},
		"lock already burned": {bob, asset, amt(10), vaa.ChainIDStellar, 2, ErrAlreadyBurned},
		"other asset":         {bob, vaa.Address{0x09}, amt(1000), vaa.ChainIDStellar, 1, ErrAssetMismatch},
		"not the holder":      {alice, asset, amt(1000), vaa.ChainIDStellar, 1, ErrInsufficientBalance},
		"partial":             {bob, asset, amt(400), vaa.ChainIDStellar, 1, ErrAmountMismatch},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, f.wrapped.Burn(tc.caller, tc.asset, tc.amount, tc.dest, alice, tc.lockNonce), tc.err)
			assertBalance(t, 1000, f.wrapped.TotalSupply(asset))
			assertBalance(t, 1000, f.wrapped.BalanceOf(asset, bob))
			rec, ok := f.wrapped.MintRecord(1)
			require.True(t, ok)
			assert.False(t, rec.Burned)
		})
	}
	assert.Len(t, f.events.Events(), 3)
}

func TestUpdateGuardians(t *testing.T) {
	f := newFixture(t)
	_, newKeys := guardians(5)

	assert.ErrorIs(t, f.wrapped.UpdateGuardians(mallory, newKeys, 3), ErrUnauthorized)
	assert.ErrorIs(t, f.wrapped.UpdateGuardians(owner, newKeys, 0), ErrInvalidQuorum)
	assert.ErrorIs(t, f.wrapped.UpdateGuardians(owner, newKeys, 6), ErrInvalidQuorum)
	assert.Equal(t, f.pubs, f.wrapped.GetGuardians())
	assert.Equal(t, 2, f.wrapped.Quorum())

	require.NoError(t, f.wrapped.UpdateGuardians(owner, newKeys[3:], 2))
	assert.Equal(t, newKeys[3:], f.wrapped.GetGuardians())
	assert.Equal(t, 2, f.wrapped.Quorum())

	// the old roster no longer attests
	assert.ErrorIs(t, f.wrapped.Mint(f.mintMessage(1, 10, bob, 0, 1)), ErrVerificationFailed)
}

func TestMintRejections(t *testing.T) {
	f := newFixture(t)

	tests := map[string]struct {
		msg func() *vaa.VAA
		err error
	}{
		"below quorum": {
			msg: func() *vaa.VAA { return f.mintMessage(1, 10, bob, 0) },
			err: ErrVerificationFailed,
		},
		"duplicate guardian": {
			msg: func() *vaa.VAA { return f.mintMessage(1, 10, bob, 0, 0) },
			err: ErrVerificationFailed,
		},
		"wrong destination contract": {
			msg: func() *vaa.VAA {
				m := f.mintMessage(1, 10, bob)
				m.DestinationContract = mustAccount("other.testnet")
				m.AddSignatureFromKey(f.privs[0])
				m.AddSignatureFromKey(f.privs[1])
				return m
			},
			err: ErrWrongDestination,
		},
		"wrong destination chain": {
			msg: func() *vaa.VAA { return f.releaseMessage(1, 10, bob, 0, 1) },
			err: ErrWrongDestination,
		},
		"zero amount": {
			msg: func() *vaa.VAA { return f.mintMessage(1, 0, bob, 0, 1) },
			err: ErrInvalidAmount,
		},
		"nil": {
			msg: func() *vaa.VAA { return nil },
			err: ErrInvalidMessage,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, f.wrapped.Mint(tc.msg()), tc.err)
			assertBalance(t, 0, f.wrapped.TotalSupply(asset))
			assert.False(t, f.wrapped.IsProcessed(vaa.ChainIDStellar, 1))
		})
	}
}

func TestMintTamperedMessage(t *testing.T) {
	f := newFixture(t)
	msg := f.mintMessage(1, 10, bob, 0, 1)
	msg.Recipient = mallory

	assert.ErrorIs(t, f.wrapped.Mint(msg), ErrVerificationFailed)
	assertBalance(t, 0, f.wrapped.BalanceOf(asset, mallory))
}

func TestRoundTripRelease(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.custody.Fund(owner, asset, alice, amt(1000)))

	nonce, err := f.custody.Lock(alice, asset, amt(1000), vaa.ChainIDNear, bob)
	require.NoError(t, err)
	require.NoError(t, f.wrapped.Mint(f.mintMessage(nonce, 1000, bob, 0, 2)))
	require.NoError(t, f.wrapped.Burn(bob, asset, amt(1000), vaa.ChainIDStellar, alice, nonce))

	release := f.releaseMessage(nonce, 1000, alice, 1, 2)
	require.NoError(t, f.custody.Release(release))
	assertBalance(t, 1000, f.custody.BalanceOf(asset, alice))
	assertBalance(t, 0, f.custody.CustodyBalance(asset))
	assertBalance(t, 0, f.wrapped.TotalSupply(asset))
	assert.True(t, f.custody.IsProcessed(vaa.ChainIDNear, nonce))

	rec, ok := f.custody.LockRecord(nonce)
	require.True(t, ok)
	assert.True(t, rec.Released)

	stats := f.custody.Stats()
	assert.Equal(t, uint64(1), stats.Locks)
	assert.Equal(t, uint64(1), stats.Releases)
	assertBalance(t, 1000, stats.TotalLocked)
	assertBalance(t, 1000, stats.TotalReleased)
	assertBalance(t, 2000, stats.TotalVolume)

	// replaying the release changes nothing
	assert.ErrorIs(t, f.custody.Release(f.releaseMessage(nonce, 1000, alice, 1, 2)), ErrAlreadyProcessed)
	assertBalance(t, 1000, f.custody.BalanceOf(asset, alice))

	events := f.events.Events()
	_, ok = events[len(events)-1].(*common.ReleaseEvent)
	assert.True(t, ok)
}

func TestReleaseRejections(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.custody.Fund(owner, asset, alice, amt(1000)))
	nonce, err := f.custody.Lock(alice, asset, amt(500), vaa.ChainIDNear, bob)
	require.NoError(t, err)

	otherAsset := f.releaseMessage(nonce, 100, alice)
	otherAsset.AssetID = vaa.Address{0x05}
	otherAsset.AddSignatureFromKey(f.privs[0])
	otherAsset.AddSignatureFromKey(f.privs[1])

	tests := map[string]struct {
		msg *vaa.VAA
		err error
	}{
		"unknown lock":    {msg: f.releaseMessage(nonce+1, 100, alice, 0, 1), err: ErrLockNotFound},
		"exceeds lock":    {msg: f.releaseMessage(nonce, 501, alice, 0, 1), err: ErrAmountMismatch},
		"partial":         {msg: f.releaseMessage(nonce, 100, alice, 0, 1), err: ErrAmountMismatch},
		"asset mismatch":  {msg: otherAsset, err: ErrAssetMismatch},
		"below quorum":    {msg: f.releaseMessage(nonce, 100, alice, 2), err: ErrVerificationFailed},
		"wrong direction": {msg: f.mintMessage(nonce, 100, alice, 0, 1), err: ErrWrongDestination},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, f.custody.Release(tc.msg), tc.err)
			assertBalance(t, 500, f.custody.CustodyBalance(asset))
			assertBalance(t, 500, f.custody.BalanceOf(asset, alice))
			rec, ok := f.custody.LockRecord(nonce)
			require.True(t, ok)
			assert.False(t, rec.Released)
		})
	}
}

func TestReleaseMalformedMessage(t *testing.T) {
	f := newFixture(t)
	msg := vaa.New(vaa.ChainIDStellar, stellarContract, vaa.ChainIDNear, stellarContract, asset, amt(1), alice, 1, 1)
	msg.DestinationChain = vaa.ChainIDStellar
	// rejected before any signature is checked
	assert.ErrorIs(t, f.custody.Release(msg), ErrInvalidMessage)

	msg = f.releaseMessage(1, 1, alice, 0, 1)
	msg.OriginChain = vaa.ChainIDUnset
	assert.ErrorIs(t, f.custody.Release(msg), ErrInvalidMessage)

	msg = f.releaseMessage(1, 1, alice, 0, 1)
	msg.Version = 2
	assert.ErrorIs(t, f.custody.Release(msg), ErrInvalidMessage)
}

// Custody holds exactly the wrapped supply at every step of a round trip, and a lock is only redeemable in full.
func TestRedemptionIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.custody.Fund(owner, asset, alice, amt(1000)))
	assertBacked := func() {
		t.Helper()
		custody := f.custody.CustodyBalance(asset)
		supply := f.wrapped.TotalSupply(asset)
		assert.True(t, custody.Eq(&supply), "custody %s != wrapped supply %s", custody.Dec(), supply.Dec())
	}

	nonce, err := f.custody.Lock(alice, asset, amt(1000), vaa.ChainIDNear, bob)
	require.NoError(t, err)
	require.NoError(t, f.wrapped.Mint(f.mintMessage(nonce, 1000, bob, 0, 1)))
	assertBacked()

	assert.ErrorIs(t, f.wrapped.Burn(bob, asset, amt(400), vaa.ChainIDStellar, alice, nonce), ErrAmountMismatch)
	assertBalance(t, 1000, f.wrapped.BalanceOf(asset, bob))
	assertBacked()

	require.NoError(t, f.wrapped.Burn(bob, asset, amt(1000), vaa.ChainIDStellar, alice, nonce))

	// a short release leaves the lock open
	assert.ErrorIs(t, f.custody.Release(f.releaseMessage(nonce, 400, alice, 0, 1)), ErrAmountMismatch)
	assert.False(t, f.custody.IsProcessed(vaa.ChainIDNear, nonce))
	assertBalance(t, 1000, f.custody.CustodyBalance(asset))

	require.NoError(t, f.custody.Release(f.releaseMessage(nonce, 1000, alice, 0, 1)))
	assertBalance(t, 1000, f.custody.BalanceOf(asset, alice))
	assertBacked()

	// the replay guard fires first
	assert.ErrorIs(t, f.custody.Release(f.releaseMessage(nonce, 1000, alice, 0, 1)), ErrAlreadyProcessed)

	// the lock record is closed independently of the replay guard
	f.custody.mu.Lock()
	f.custody.processed = replay.NewGuard()
	f.custody.mu.Unlock()
	assert.ErrorIs(t, f.custody.Release(f.releaseMessage(nonce, 1000, alice, 0, 1)), ErrAlreadyReleased)
	assertBacked()
}

// Read views never create state for an asset they have not seen.
func TestReadsDoNotCreateBooks(t *testing.T) {
	f := newFixture(t)
	unknown := vaa.Address{0x0f}

	assertBalance(t, 0, f.wrapped.BalanceOf(unknown, bob))
	assertBalance(t, 0, f.wrapped.TotalSupply(unknown))
	assertBalance(t, 0, f.custody.CustodyBalance(unknown))

	_, err := f.custody.Lock(alice, unknown, amt(1), vaa.ChainIDNear, bob)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	f.custody.mu.Lock()
	assert.Empty(t, f.custody.books)
	f.custody.mu.Unlock()
	f.wrapped.mu.Lock()
	assert.Empty(t, f.wrapped.books)
	f.wrapped.mu.Unlock()
}

func TestNoncesAreScopedByOriginChain(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wrapped.Mint(f.mintMessage(1, 10, bob, 0, 1)))
	assert.True(t, f.wrapped.IsProcessed(vaa.ChainIDStellar, 1))
	assert.False(t, f.wrapped.IsProcessed(vaa.ChainIDNear, 1))
}

// Supply equals the sum of balances after every operation of a random sequence, including rejected ones.
func TestConservation(t *testing.T) {
	f := newFixture(t)
	r := rand.New(rand.NewSource(42))
	accounts := []vaa.Address{alice, bob, mallory}

	for _, a := range accounts {
		require.NoError(t, f.custody.Fund(owner, asset, a, amt(10_000)))
	}

	var locks []uint64
	funded := uint64(30_000)
	for i := 0; i < 500; i++ {
		who := accounts[r.Intn(len(accounts))]
		to := accounts[r.Intn(len(accounts))]
		n := uint64(r.Intn(1500))

		switch r.Intn(5) {
		case 0:
			nonce, err := f.custody.Lock(who, asset, amt(n), vaa.ChainIDNear, to)
			if err == nil {
				locks = append(locks, nonce)
			}
		case 1:
			if len(locks) > 0 {
				nonce := locks[r.Intn(len(locks))]
				_ = f.wrapped.Mint(f.mintMessage(nonce, n, to, 0, 1))
			}
		case 2:
			if len(locks) > 0 {
				nonce := locks[r.Intn(len(locks))]
				if rec, ok := f.wrapped.MintRecord(nonce); ok && r.Intn(2) == 0 {
					_ = f.wrapped.Burn(rec.Recipient, asset, &rec.Amount, vaa.ChainIDStellar, to, nonce)
				} else {
					_ = f.wrapped.Burn(who, asset, amt(n), vaa.ChainIDStellar, to, nonce)
				}
			}
		case 3:
			if len(locks) > 0 {
				nonce := locks[r.Intn(len(locks))]
				if rec, ok := f.custody.LockRecord(nonce); ok && r.Intn(2) == 0 {
					n = rec.Amount.Uint64()
				}
				_ = f.custody.Release(f.releaseMessage(nonce, n, to, 1, 2))
			}
		case 4:
			if err := f.custody.Fund(owner, asset, who, amt(n)); err == nil {
				funded += n
			}
		}

		assertConserved(t, f.custody.contract)
		assertConserved(t, f.wrapped.contract)
	}

	assertBalance(t, funded, f.custody.TotalSupply(asset))
}
