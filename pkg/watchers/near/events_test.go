package near

import (
	"fmt"
	"testing"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/common"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testContract = "bridge.testnet"
	// bytes 1..32
	testAsset = "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"
	// account strkey of the same bytes
	testStellarRecipient = "GAAQEAYEAUDAOCAJBIFQYDIOB4IBCEQTCQKRMFYYDENBWHA5DYPSABOV"
)

func burnLog(lockNonce uint64, amount string) string {
	return fmt.Sprintf(`EVENT_JSON:{"standard":"aurora_bridge","version":"1.0.0","event":"burn","data":[`+
		`{"lock_nonce":%d,"asset":%q,"amount":%q,"sender":"alice.testnet","recipient_chain":1,"recipient":%q}]}`,
		lockNonce, testAsset, amount, testStellarRecipient)
}

func mintLog(nonce uint64) string {
	return fmt.Sprintf(`EVENT_JSON:{"standard":"aurora_bridge","version":"1.0.0","event":"mint","data":[`+
		`{"origin_chain":1,"nonce":%d,"asset":%q,"amount":"1000","recipient":"alice.testnet"}]}`, nonce, testAsset)
}

func assetAddress() vaa.Address {
	var a vaa.Address
	for i := range a {
		a[i] = byte(i + 1)
	}
	return a
}

func TestParseBurnLog(t *testing.T) {
	events, err := parseLog(burnLog(7, "400"), "txhash", 1700000000)
	require.NoError(t, err)
	require.Len(t, events, 1)

	burn, ok := events[0].(*common.BurnEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(7), burn.LockNonce)
	assert.Equal(t, assetAddress(), burn.Asset)
	assert.Equal(t, uint64(400), burn.Amount.Uint64())
	assert.Equal(t, "alice.testnet", burn.Sender.AccountString())
	assert.Equal(t, vaa.ChainIDStellar, burn.DestinationChain)
	assert.Equal(t, assetAddress(), burn.Recipient)
	assert.Equal(t, uint64(1700000000), burn.Timestamp)
	assert.Equal(t, "txhash", burn.TxID)
	assert.NoError(t, burn.Validate())
}

func TestParseBurnLogTimestamp(t *testing.T) {
	log := fmt.Sprintf(`EVENT_JSON:{"standard":"aurora_bridge","event":"burn","data":[`+
		`{"lock_nonce":"7","asset":%q,"amount":"1","sender":"a.testnet","recipient_chain":1,"recipient":"0x01","timestamp":42}]}`, testAsset)
	events, err := parseLog(log, "", 1700000000)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), events[0].(*common.BurnEvent).Timestamp)
	assert.Equal(t, uint64(7), events[0].(*common.BurnEvent).LockNonce)
}

func TestParseMintLog(t *testing.T) {
	events, err := parseLog(mintLog(3), "", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)

	mint, ok := events[0].(*common.MintEvent)
	require.True(t, ok)
	assert.Equal(t, vaa.ChainIDStellar, mint.OriginChain)
	assert.Equal(t, uint64(3), mint.Nonce)
	assert.Equal(t, "alice.testnet", mint.Recipient.AccountString())
	assert.Equal(t, uint64(1000), mint.Amount.Uint64())
}

func TestParseLogMultipleEvents(t *testing.T) {
	log := fmt.Sprintf(`EVENT_JSON:{"standard":"aurora_bridge","event":"burn","data":[`+
		`{"lock_nonce":1,"asset":%[1]q,"amount":"1","sender":"a.testnet","recipient_chain":1,"recipient":"0x01"},`+
		`{"lock_nonce":2,"asset":%[1]q,"amount":"2","sender":"a.testnet","recipient_chain":1,"recipient":"0x01"}]}`, testAsset)
	events, err := parseLog(log, "", 1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(2), events[1].(*common.BurnEvent).LockNonce)
}

func TestParseLogRejects(t *testing.T) {
	tests := []struct {
		name    string
		log     string
		unknown bool
	}{
		{"plain log", "Burned 400 of asset", true},
		{"other standard", `EVENT_JSON:{"standard":"nep141","event":"ft_burn","data":[]}`, true},
		{"other event", `EVENT_JSON:{"standard":"aurora_bridge","event":"set_guardians","data":[]}`, true},
		{"invalid json", `EVENT_JSON:{"standard":`, false},
		{"data object", `EVENT_JSON:{"standard":"aurora_bridge","event":"burn","data":{}}`, false},
		{"numeric amount", burnLogWithAmount(`400`), false},
		{"negative amount", burnLogWithAmount(`"-400"`), false},
		{"amount over 128 bits", burnLogWithAmount(`"340282366920938463463374607431768211456"`), false},
		{"missing field", `EVENT_JSON:{"standard":"aurora_bridge","event":"burn","data":[{"lock_nonce":1}]}`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseLog(tc.log, "", 0)
			if tc.unknown {
				assert.ErrorIs(t, err, errUnknownEvent)
			} else {
				assert.ErrorIs(t, err, common.ErrMalformedEvent)
			}
		})
	}
}

func burnLogWithAmount(amount string) string {
	return fmt.Sprintf(`EVENT_JSON:{"standard":"aurora_bridge","event":"burn","data":[`+
		`{"lock_nonce":1,"asset":%q,"amount":%s,"sender":"a.testnet","recipient_chain":1,"recipient":"0x01"}]}`, testAsset, amount)
}
