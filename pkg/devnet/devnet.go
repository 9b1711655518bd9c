// Package devnet hosts both bridge ledgers in-process and exposes them to relayers the way the chain watchers do.
// It backs the devnet command and end-to-end tests.
package devnet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/db"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/ledger"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/relayer"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
	"go.uber.org/zap"
)

type Config struct {
	Owner           vaa.Address
	StellarContract vaa.Address
	NearContract    vaa.Address
	Guardians       []vaa.PubKey
	Quorum          int
}

// Network is a Stellar custody ledger and a NEAR wrapped ledger guarded by the same roster.
type Network struct {
	Custody *ledger.CustodyLedger
	Wrapped *ledger.WrappedLedger

	stellar *chain
	near    *chain
}

func NewNetwork(logger *zap.Logger, cfg Config) (*Network, error) {
	stellarEvents, nearEvents := &ledger.EventLog{}, &ledger.EventLog{}

	custody, err := ledger.NewCustodyLedger(logger, ledger.Config{
		ChainID:   vaa.ChainIDStellar,
		Contract:  cfg.StellarContract,
		Owner:     cfg.Owner,
		Guardians: cfg.Guardians,
		Quorum:    cfg.Quorum,
	}, stellarEvents)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize custody ledger: %w", err)
	}
	wrapped, err := ledger.NewWrappedLedger(logger, ledger.Config{
		ChainID:   vaa.ChainIDNear,
		Contract:  cfg.NearContract,
		Owner:     cfg.Owner,
		Guardians: cfg.Guardians,
		Quorum:    cfg.Quorum,
	}, nearEvents)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize wrapped ledger: %w", err)
	}

	return &Network{
		Custody: custody,
		Wrapped: wrapped,
		stellar: &chain{
			logger:   logger.With(zap.String("component", "devnet_stellar")),
			id:       vaa.ChainIDStellar,
			contract: cfg.StellarContract,
			events:   stellarEvents,
			host:     custody,
			apply:    custody.Release,
			pending:  make(map[db.MessageID]*vaa.VAA),
			rejected: make(map[db.MessageID]error),
		},
		near: &chain{
			logger:   logger.With(zap.String("component", "devnet_near")),
			id:       vaa.ChainIDNear,
			contract: cfg.NearContract,
			events:   nearEvents,
			host:     wrapped,
			apply:    wrapped.Mint,
			pending:  make(map[db.MessageID]*vaa.VAA),
			rejected: make(map[db.MessageID]error),
		},
	}, nil
}

// Chains returns the relayer wiring for both sides of the network.
func (n *Network) Chains() []*relayer.Chain {
	return []*relayer.Chain{
		{ID: n.stellar.id, Contract: n.stellar.contract, Source: n.stellar, Submitter: n.stellar},
		{ID: n.near.id, Contract: n.near.contract, Source: n.near, Submitter: n.near},
	}
}

// Pending returns the number of messages on chain that are waiting for more signatures.
func (n *Network) Pending(chain vaa.ChainID) int {
	c := n.stellar
	if chain == vaa.ChainIDNear {
		c = n.near
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// host is the part of a ledger the aggregating submitter consults.
type host interface {
	GetGuardians() []vaa.PubKey
	Quorum() int
	IsProcessed(originChain vaa.ChainID, nonce uint64) bool
}

// chain is an EventSource and an aggregating Submitter. Guardians submit their own signature; the chain keeps a
// merged copy per message and applies it to the ledger once it carries a quorum. A message the ledger refused stays
// refused.
type chain struct {
	logger   *zap.Logger
	id       vaa.ChainID
	contract vaa.Address
	events   *ledger.EventLog
	host     host
	apply    func(*vaa.VAA) error

	mu       sync.Mutex
	pending  map[db.MessageID]*vaa.VAA
	rejected map[db.MessageID]error
}

func (c *chain) ChainID() vaa.ChainID {
	return c.id
}

// Fetch returns events by their position in the ledger's event log. The cursor is the decimal index of the next
// event.
func (c *chain) Fetch(_ context.Context, cursor string) ([]relayer.Observation, string, error) {
	from := 0
	if cursor != "" {
		var err error
		from, err = strconv.Atoi(cursor)
		if err != nil || from < 0 {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
	}

	events, next := c.events.Since(from)
	obs := make([]relayer.Observation, len(events))
	for i, ev := range events {
		obs[i] = relayer.Observation{Event: ev, Cursor: strconv.Itoa(from + i + 1)}
	}
	return obs, strconv.Itoa(next), nil
}

func (c *chain) Submit(_ context.Context, v *vaa.VAA) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.host.IsProcessed(v.OriginChain, v.Nonce) {
		return fmt.Errorf("%w: %s", relayer.ErrAlreadyDelivered, v.MessageID())
	}

	id := *db.MessageIDFromVAA(v)
	if err, ok := c.rejected[id]; ok {
		return err
	}
	merged := v
	if prev, ok := c.pending[id]; ok {
		var err error
		merged, err = relayer.Aggregate(prev, v)
		if err != nil {
			return err
		}
	}

	if !merged.VerifySignatures(c.host.GetGuardians(), c.host.Quorum()) {
		c.pending[id] = merged
		c.logger.Info("message waiting for quorum",
			zap.String("messageID", id.String()),
			zap.Int("signatures", len(merged.Signatures)),
		)
		return nil
	}

	if err := c.apply(merged); err != nil {
		if errors.Is(err, relayer.ErrAlreadyDelivered) {
			return err
		}
		// Ledger rejections happen before any state change and are final for this message.
		delete(c.pending, id)
		err = fmt.Errorf("%w: %w", relayer.ErrRejected, err)
		c.rejected[id] = err
		c.logger.Warn("message rejected", zap.String("messageID", id.String()), zap.Error(err))
		return err
	}
	delete(c.pending, id)
	c.logger.Info("message applied", zap.String("messageID", id.String()), zap.String("digest", merged.HexDigest()))
	return nil
}

var (
	_ relayer.EventSource = (*chain)(nil)
	_ relayer.Submitter   = (*chain)(nil)
)
