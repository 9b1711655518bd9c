// Package replay tracks which messages a destination ledger has already applied.
package replay

import (
	"errors"
	"fmt"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
)

var ErrAlreadyProcessed = errors.New("message already processed")

// Key identifies a message for replay protection. Nonces are only unique per origin chain, so the origin is part of
// the key.
type Key struct {
	Chain vaa.ChainID
	Nonce uint64
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d", k.Chain, k.Nonce)
}

// KeyOf returns the replay key of v. It matches v.MessageID().
func KeyOf(v *vaa.VAA) Key {
	return Key{Chain: v.OriginChain, Nonce: v.Nonce}
}

// Guard is the set of processed (origin chain, nonce) pairs.
//
// Guard is not safe for concurrent use. The owning ledger holds its own lock across check, balance mutation and
// MarkProcessed so that marking and the transition it protects are observed together.
type Guard struct {
	processed map[Key]struct{}
}

func NewGuard() *Guard {
	return &Guard{processed: make(map[Key]struct{})}
}

func (g *Guard) HasProcessed(chain vaa.ChainID, nonce uint64) bool {
	_, ok := g.processed[Key{Chain: chain, Nonce: nonce}]
	return ok
}

// Check returns ErrAlreadyProcessed if (chain, nonce) was marked.
func (g *Guard) Check(chain vaa.ChainID, nonce uint64) error {
	if g.HasProcessed(chain, nonce) {
		return fmt.Errorf("%w: %s", ErrAlreadyProcessed, Key{Chain: chain, Nonce: nonce})
	}
	return nil
}

// MarkProcessed records (chain, nonce). Marking a pair twice is an error and leaves the set unchanged.
func (g *Guard) MarkProcessed(chain vaa.ChainID, nonce uint64) error {
	if err := g.Check(chain, nonce); err != nil {
		return err
	}
	g.processed[Key{Chain: chain, Nonce: nonce}] = struct{}{}
	return nil
}

func (g *Guard) Len() int {
	return len(g.processed)
}
