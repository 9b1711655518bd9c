package common

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
)

// MaxGuardianCount is bounded by the one-byte signature count of the wire format.
const MaxGuardianCount = vaa.MaxSignatures

var ErrDuplicateGuardian = errors.New("duplicate guardian key")

// GuardianSet is the roster of guardians authorized to attest messages for a destination ledger, together with the
// number of distinct signatures required.
type GuardianSet struct {
	// ed25519 public keys in roster order
	Keys []vaa.PubKey
	// Minimum number of distinct valid signatures, 0 < Quorum <= len(Keys)
	Quorum int
}

// NewGuardianSet validates keys and quorum and returns a roster holding a copy of keys.
func NewGuardianSet(keys []vaa.PubKey, quorum int) (*GuardianSet, error) {
	if len(keys) > MaxGuardianCount {
		return nil, fmt.Errorf("too many guardians: %d > %d", len(keys), MaxGuardianCount)
	}
	if err := vaa.ValidateQuorum(quorum, len(keys)); err != nil {
		return nil, err
	}

	seen := make(map[vaa.PubKey]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateGuardian, k)
		}
		seen[k] = struct{}{}
	}

	cp := make([]vaa.PubKey, len(keys))
	copy(cp, keys)
	return &GuardianSet{Keys: cp, Quorum: quorum}, nil
}

func (g *GuardianSet) KeysAsHexStrings() []string {
	r := make([]string, len(g.Keys))

	for n, k := range g.Keys {
		r[n] = k.String()
	}

	return r
}

// Verify checks that v carries a quorum of valid signatures from this roster.
func (g *GuardianSet) Verify(v *vaa.VAA) error {
	if g == nil {
		return vaa.ErrNoGuardians
	}
	return v.Verify(g.Keys, g.Quorum)
}

// GuardianSetState holds the roster currently in effect for a process. Replacing it is atomic.
type GuardianSetState struct {
	mu      sync.Mutex
	current *GuardianSet
}

func NewGuardianSetState(gs *GuardianSet) *GuardianSetState {
	return &GuardianSetState{current: gs}
}

func (st *GuardianSetState) Set(set *GuardianSet) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.current = set
}

func (st *GuardianSetState) Get() *GuardianSet {
	st.mu.Lock()
	defer st.mu.Unlock()

	return st.current
}
