package stellar

import (
	"errors"
	"fmt"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/common"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
	"github.com/stellar/go/xdr"
	"github.com/tidwall/gjson"
)

var errUnknownEvent = errors.New("not a bridge event")

// parseEvent converts one entry of a getEvents response into a bridge event. The first topic names the event; the
// value is a map with symbol keys.
func parseEvent(e gjson.Result) (common.BridgeEvent, error) {
	topics := e.Get("topic").Array()
	if len(topics) == 0 {
		return nil, errUnknownEvent
	}
	topic, err := decodeScVal(topics[0].String())
	if err != nil {
		return nil, errUnknownEvent
	}
	name, err := scSymbol(topic)
	if err != nil {
		return nil, errUnknownEvent
	}

	value, err := decodeScVal(e.Get("value").String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrMalformedEvent, name, err)
	}
	fields, err := scMap(value)
	if err != nil {
		return nil, err
	}
	txID := e.Get("txHash").String()

	switch name {
	case common.EventNameLock:
		return parseLock(fields, txID)
	case common.EventNameRelease:
		return parseRelease(fields)
	default:
		return nil, errUnknownEvent
	}
}

// fieldReader collects the first decoding error so field extraction reads linearly.
type fieldReader struct {
	fields map[string]xdr.ScVal
	err    error
}

func (r *fieldReader) get(key string) (xdr.ScVal, bool) {
	if r.err != nil {
		return xdr.ScVal{}, false
	}
	v, ok := r.fields[key]
	if !ok {
		r.err = fmt.Errorf("missing field %q", key)
	}
	return v, ok
}

func (r *fieldReader) fail(key string, err error) {
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("field %q: %w", key, err)
	}
}

func (r *fieldReader) u64(key string) uint64 {
	v, ok := r.get(key)
	if !ok {
		return 0
	}
	n, err := scU64(v)
	r.fail(key, err)
	return n
}

func (r *fieldReader) chain(key string) vaa.ChainID {
	v, ok := r.get(key)
	if !ok {
		return vaa.ChainIDUnset
	}
	n, err := scU32(v)
	if err != nil {
		r.fail(key, err)
		return vaa.ChainIDUnset
	}
	id, err := vaa.ChainIDFromNumber(n)
	r.fail(key, err)
	return id
}

func (r *fieldReader) amount(key string, dst *vaa.Amount) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	a, err := scAmount(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	dst.Set(a)
}

func (r *fieldReader) address(key string) vaa.Address {
	v, ok := r.get(key)
	if !ok {
		return vaa.Address{}
	}
	a, err := scAddress(v)
	r.fail(key, err)
	return a
}

func (r *fieldReader) bytesAddress(key string) vaa.Address {
	v, ok := r.get(key)
	if !ok {
		return vaa.Address{}
	}
	a, err := scBytesAddress(v)
	r.fail(key, err)
	return a
}

func parseLock(fields map[string]xdr.ScVal, txID string) (*common.LockEvent, error) {
	r := &fieldReader{fields: fields}
	ev := &common.LockEvent{
		Nonce:            r.u64("nonce"),
		Asset:            r.address("token"),
		Sender:           r.address("sender"),
		DestinationChain: r.chain("recipient_chain"),
		Recipient:        r.bytesAddress("recipient"),
		Timestamp:        r.u64("timestamp"),
		TxID:             txID,
	}
	r.amount("amount", &ev.Amount)
	if r.err != nil {
		return nil, fmt.Errorf("%w: lock: %v", common.ErrMalformedEvent, r.err)
	}
	return ev, nil
}

func parseRelease(fields map[string]xdr.ScVal) (*common.ReleaseEvent, error) {
	r := &fieldReader{fields: fields}
	ev := &common.ReleaseEvent{
		OriginChain: r.chain("origin_chain"),
		Nonce:       r.u64("nonce"),
		Asset:       r.address("token"),
		Recipient:   r.address("recipient"),
	}
	r.amount("amount", &ev.Amount)
	if r.err != nil {
		return nil, fmt.Errorf("%w: release: %v", common.ErrMalformedEvent, r.err)
	}
	return ev, nil
}
