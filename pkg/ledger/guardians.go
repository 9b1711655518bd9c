// Package ledger implements the state machines of the two bridge contracts. CustodyLedger holds native assets on
// the asset-native chain (lock/release) and WrappedLedger accounts for wrapped assets on the other chain
// (mint/burn). Both are plain structs so they can be hosted by a chain runtime, a devnet or a test.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/common"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/replay"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
	"go.uber.org/zap"
)

// Config is the initialization state of a bridge contract.
type Config struct {
	// ChainID of the chain hosting the contract
	ChainID vaa.ChainID
	// Contract is the contract's own identity. Messages must name it as their destination.
	Contract vaa.Address
	// Owner may replace the guardian roster.
	Owner vaa.Address
	// Guardians and Quorum form the initial roster.
	Guardians []vaa.PubKey
	Quorum    int
	// Clock stamps emitted events. Defaults to time.Now.
	Clock func() time.Time
}

// contract is the state shared by both ledgers. All fields are guarded by mu.
type contract struct {
	mu sync.Mutex

	logger    *zap.Logger
	chain     vaa.ChainID
	self      vaa.Address
	owner     vaa.Address
	guardians *common.GuardianSetState
	processed *replay.Guard
	books     map[vaa.Address]*book
	sink      EventSink
	clock     func() time.Time
}

func newContract(logger *zap.Logger, cfg Config, sink EventSink) (*contract, error) {
	if _, err := vaa.KnownChainIDFromNumber(cfg.ChainID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedChain, err)
	}
	gs, err := common.NewGuardianSet(cfg.Guardians, cfg.Quorum)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = discardSink{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &contract{
		logger:    logger,
		chain:     cfg.ChainID,
		self:      cfg.Contract,
		owner:     cfg.Owner,
		guardians: common.NewGuardianSetState(gs),
		processed: replay.NewGuard(),
		books:     make(map[vaa.Address]*book),
		sink:      sink,
		clock:     clock,
	}, nil
}

// UpdateGuardians replaces the roster and quorum. Only the owner may call it.
func (c *contract) UpdateGuardians(caller vaa.Address, keys []vaa.PubKey, quorum int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.owner {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}

	gs, err := common.NewGuardianSet(keys, quorum)
	if err != nil {
		return err
	}

	c.guardians.Set(gs)
	c.logger.Info("guardian set updated",
		zap.Strings("guardians", gs.KeysAsHexStrings()),
		zap.Int("quorum", gs.Quorum),
	)
	return nil
}

// GetGuardians returns a copy of the current roster.
func (c *contract) GetGuardians() []vaa.PubKey {
	c.mu.Lock()
	defer c.mu.Unlock()

	gs := c.guardians.Get()
	keys := make([]vaa.PubKey, len(gs.Keys))
	copy(keys, gs.Keys)
	return keys
}

func (c *contract) Quorum() int {
	return c.guardians.Get().Quorum
}

// IsProcessed reports whether the message (originChain, nonce) was applied.
func (c *contract) IsProcessed(originChain vaa.ChainID, nonce uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processed.HasProcessed(originChain, nonce)
}

func (c *contract) Owner() vaa.Address {
	return c.owner
}

// Identity returns the chain and contract address messages must be addressed to.
func (c *contract) Identity() (vaa.ChainID, vaa.Address) {
	return c.chain, c.self
}

func (c *contract) BalanceOf(asset vaa.Address, account vaa.Address) vaa.Amount {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.books[asset]
	if !ok {
		return vaa.Amount{}
	}
	return b.balanceOf(account)
}

func (c *contract) TotalSupply(asset vaa.Address) vaa.Amount {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.books[asset]
	if !ok {
		return vaa.Amount{}
	}
	return b.supply
}

// book returns the asset's book, creating it on first use. Only mutating transitions call it, after their
// stateless checks passed. Callers hold mu.
func (c *contract) book(asset vaa.Address) *book {
	b, ok := c.books[asset]
	if !ok {
		b = newBook()
		c.books[asset] = b
	}
	return b
}

// debitable returns the asset's book if account holds at least amount of it. It never creates a book. Callers
// hold mu.
func (c *contract) debitable(asset vaa.Address, account vaa.Address, amount *vaa.Amount) (*book, error) {
	b, ok := c.books[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s holds no %s", ErrInsufficientBalance, account, asset)
	}
	if err := b.checkDebit(account, amount); err != nil {
		return nil, err
	}
	return b, nil
}

// checkIncoming runs the checks shared by Mint and Release, in order: well-formedness, destination, origin,
// replay and quorum. Callers hold mu.
func (c *contract) checkIncoming(msg *vaa.VAA) error {
	if msg == nil {
		return fmt.Errorf("%w: nil", ErrInvalidMessage)
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.DestinationChain != c.chain || msg.DestinationContract != c.self {
		return fmt.Errorf("%w: %s/%s", ErrWrongDestination, msg.DestinationChain, msg.DestinationContract)
	}
	if msg.OriginChain != c.chain.Counterpart() {
		return fmt.Errorf("%w: %s", ErrWrongOrigin, msg.OriginChain)
	}
	if err := c.processed.Check(msg.OriginChain, msg.Nonce); err != nil {
		return err
	}
	if err := c.guardians.Get().Verify(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	if msg.Amount.IsZero() {
		return ErrInvalidAmount
	}
	return nil
}

// checkOutgoing validates the routing of a lock or burn. Callers hold mu.
func (c *contract) checkOutgoing(amount *vaa.Amount, destinationChain vaa.ChainID, recipient vaa.Address) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	if amount.BitLen() > vaa.MaxAmountBits {
		return ErrAmountOverflow
	}
	if destinationChain != c.chain.Counterpart() {
		return fmt.Errorf("%w: %s", ErrUnsupportedChain, destinationChain)
	}
	if recipient == (vaa.Address{}) {
		return ErrInvalidRecipient
	}
	return nil
}

// emit forwards ev to the sink and the log. Callers hold mu.
func (c *contract) emit(ev common.BridgeEvent) {
	c.sink.Emit(ev)
	c.logger.Info("bridge event", zap.Object("event", ev))
}

func (c *contract) now() uint64 {
	ts := c.clock().Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// book holds the balances and total supply of one asset. Invariant: supply equals the sum of balances.
type book struct {
	balances map[vaa.Address]vaa.Amount
	supply   vaa.Amount
}

func newBook() *book {
	return &book{balances: make(map[vaa.Address]vaa.Amount)}
}

func (b *book) balanceOf(account vaa.Address) vaa.Amount {
	return b.balances[account]
}

// checkCredit returns an error if minting amount would push supply beyond 128 bits.
func (b *book) checkCredit(amount *vaa.Amount) error {
	var next vaa.Amount
	next.Add(&b.supply, amount)
	if next.BitLen() > vaa.MaxAmountBits {
		return ErrAmountOverflow
	}
	return nil
}

func (b *book) checkDebit(account vaa.Address, amount *vaa.Amount) error {
	bal := b.balances[account]
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, account, bal.Dec(), amount.Dec())
	}
	return nil
}

// mint and burn change supply. Callers run the matching check first.
func (b *book) mint(account vaa.Address, amount *vaa.Amount) {
	bal := b.balances[account]
	bal.Add(&bal, amount)
	b.balances[account] = bal
	b.supply.Add(&b.supply, amount)
}

func (b *book) burn(account vaa.Address, amount *vaa.Amount) {
	bal := b.balances[account]
	bal.Sub(&bal, amount)
	b.balances[account] = bal
	b.supply.Sub(&b.supply, amount)
}

// transfer moves amount between accounts without touching supply. Callers run checkDebit first.
func (b *book) transfer(from, to vaa.Address, amount *vaa.Amount) {
	fromBal := b.balances[from]
	fromBal.Sub(&fromBal, amount)
	b.balances[from] = fromBal

	toBal := b.balances[to]
	toBal.Add(&toBal, amount)
	b.balances[to] = toBal
}

// sum adds up all balances. It is used to check the supply invariant.
func (b *book) sum() vaa.Amount {
	var total vaa.Amount
	for _, bal := range b.balances {
		bal := bal
		total.Add(&total, &bal)
	}
	return total
}
