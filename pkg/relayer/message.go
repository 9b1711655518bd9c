package relayer

import (
	"errors"
	"fmt"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/common"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
)

// errNotRelayable is returned by BuildMessage for events that complete a transfer rather than start one.
var errNotRelayable = errors.New("event does not start a transfer")

// BuildMessage converts a validated lock or burn event into the unsigned message for the counterpart chain.
// Contract addresses come from the relayer's chain configuration.
func (r *Relayer) BuildMessage(ev common.BridgeEvent) (*vaa.VAA, error) {
	var (
		nonce     uint64
		asset     vaa.Address
		amount    *vaa.Amount
		dest      vaa.ChainID
		recipient vaa.Address
		timestamp uint64
	)

	switch e := ev.(type) {
	case *common.LockEvent:
		nonce, asset, amount, dest, recipient, timestamp = e.Nonce, e.Asset, &e.Amount, e.DestinationChain, e.Recipient, e.Timestamp
	case *common.BurnEvent:
		nonce, asset, amount, dest, recipient, timestamp = e.LockNonce, e.Asset, &e.Amount, e.DestinationChain, e.Recipient, e.Timestamp
	default:
		return nil, fmt.Errorf("%w: %s", errNotRelayable, ev.EventName())
	}

	origin, ok := r.chains[ev.EmitterChain()]
	if !ok {
		return nil, fmt.Errorf("origin chain %s is not configured", ev.EmitterChain())
	}
	destination, ok := r.chains[dest]
	if !ok {
		return nil, fmt.Errorf("destination chain %s is not configured", dest)
	}

	return vaa.New(
		origin.ID,
		origin.Contract,
		destination.ID,
		destination.Contract,
		asset,
		amount,
		recipient,
		nonce,
		timestamp,
	), nil
}

// Aggregate merges copies of one message signed by different guardians. All inputs must share the signing digest;
// the result carries one signature per guardian key in input order.
func Aggregate(msgs ...*vaa.VAA) (*vaa.VAA, error) {
	if len(msgs) == 0 {
		return nil, errors.New("nothing to aggregate")
	}

	digest := msgs[0].SigningDigest()
	out := *msgs[0]
	out.Signatures = nil

	seen := make(map[vaa.PubKey]struct{})
	for i, m := range msgs {
		if m.SigningDigest() != digest {
			return nil, fmt.Errorf("message %d has digest %s, want %s", i, m.HexDigest(), digest.Hex())
		}
		for _, sig := range m.Signatures {
			if _, ok := seen[sig.GuardianPubKey]; ok {
				continue
			}
			seen[sig.GuardianPubKey] = struct{}{}
			out.Signatures = append(out.Signatures, sig)
		}
	}
	if len(out.Signatures) > vaa.MaxSignatures {
		return nil, fmt.Errorf("too many signatures: %d", len(out.Signatures))
	}
	return &out, nil
}
