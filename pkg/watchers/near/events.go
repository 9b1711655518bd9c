package near

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/common"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
	"github.com/tidwall/gjson"
)

const (
	eventLogPrefix = "EVENT_JSON:"
	// eventStandard is the NEP-297 standard name the bridge contract logs under.
	eventStandard = "aurora_bridge"
)

var errUnknownEvent = errors.New("not a bridge event")

// parseLog decodes a NEP-297 log line (https://nomicon.io/Standards/EventsFormat) of the bridge contract. One log
// may carry several events in its data array. blockTime is used for burns that do not log a timestamp.
func parseLog(log string, txID string, blockTime uint64) ([]common.BridgeEvent, error) {
	payload, ok := strings.CutPrefix(log, eventLogPrefix)
	if !ok {
		return nil, errUnknownEvent
	}
	if !gjson.Valid(payload) {
		return nil, fmt.Errorf("%w: invalid json", common.ErrMalformedEvent)
	}
	ev := gjson.Parse(payload)
	if ev.Get("standard").String() != eventStandard {
		return nil, errUnknownEvent
	}

	name := ev.Get("event").String()
	if name != common.EventNameBurn && name != common.EventNameMint {
		return nil, errUnknownEvent
	}

	data := ev.Get("data")
	if !data.IsArray() {
		return nil, fmt.Errorf("%w: %s: data is not an array", common.ErrMalformedEvent, name)
	}

	var events []common.BridgeEvent
	for _, d := range data.Array() {
		var (
			e   common.BridgeEvent
			err error
		)
		switch name {
		case common.EventNameBurn:
			e, err = parseBurn(d, txID, blockTime)
		case common.EventNameMint:
			e, err = parseMint(d)
		}
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

type fieldReader struct {
	data gjson.Result
	err  error
}

func (r *fieldReader) get(key string) gjson.Result {
	if r.err != nil {
		return gjson.Result{}
	}
	v := r.data.Get(key)
	if !v.Exists() {
		r.err = fmt.Errorf("missing field %q", key)
	}
	return v
}

func (r *fieldReader) fail(key string, err error) {
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("field %q: %w", key, err)
	}
}

func (r *fieldReader) u64(key string) uint64 {
	v := r.get(key)
	if r.err != nil {
		return 0
	}
	// u64 values above 2^53 are logged as strings.
	if v.Type != gjson.Number && v.Type != gjson.String {
		r.fail(key, fmt.Errorf("not an integer: %s", v.Raw))
		return 0
	}
	n, err := strconv.ParseUint(v.String(), 10, 64)
	if err != nil {
		r.fail(key, fmt.Errorf("not a u64: %s", v.Raw))
		return 0
	}
	return n
}

func (r *fieldReader) chain(key string) vaa.ChainID {
	n := r.u64(key)
	if r.err != nil {
		return vaa.ChainIDUnset
	}
	id, err := vaa.ChainIDFromNumber(n)
	r.fail(key, err)
	return id
}

func (r *fieldReader) amount(key string, dst *vaa.Amount) {
	v := r.get(key)
	if r.err != nil {
		return
	}
	// U128 is serialized as a decimal string by near-sdk.
	if v.Type != gjson.String {
		r.fail(key, errors.New("amount must be a decimal string"))
		return
	}
	a, err := vaa.AmountFromDecimal(v.String())
	if err != nil {
		r.fail(key, err)
		return
	}
	dst.Set(a)
}

func (r *fieldReader) address(key string) vaa.Address {
	v := r.get(key)
	if r.err != nil {
		return vaa.Address{}
	}
	a, err := vaa.ParseAddress(v.String())
	r.fail(key, err)
	return a
}

func (r *fieldReader) account(key string) vaa.Address {
	v := r.get(key)
	if r.err != nil {
		return vaa.Address{}
	}
	a, err := vaa.AccountToAddress(v.String())
	r.fail(key, err)
	return a
}

func parseBurn(d gjson.Result, txID string, blockTime uint64) (*common.BurnEvent, error) {
	r := &fieldReader{data: d}
	ev := &common.BurnEvent{
		LockNonce:        r.u64("lock_nonce"),
		Asset:            r.address("asset"),
		Sender:           r.account("sender"),
		DestinationChain: r.chain("recipient_chain"),
		Recipient:        r.address("recipient"),
		Timestamp:        blockTime,
		TxID:             txID,
	}
	r.amount("amount", &ev.Amount)
	if d.Get("timestamp").Exists() {
		ev.Timestamp = r.u64("timestamp")
	}
	if r.err != nil {
		return nil, fmt.Errorf("%w: burn: %v", common.ErrMalformedEvent, r.err)
	}
	return ev, nil
}

func parseMint(d gjson.Result) (*common.MintEvent, error) {
	r := &fieldReader{data: d}
	ev := &common.MintEvent{
		OriginChain: r.chain("origin_chain"),
		Nonce:       r.u64("nonce"),
		Asset:       r.address("asset"),
		Recipient:   r.account("recipient"),
	}
	r.amount("amount", &ev.Amount)
	if r.err != nil {
		return nil, fmt.Errorf("%w: mint: %v", common.ErrMalformedEvent, r.err)
	}
	return ev, nil
}
