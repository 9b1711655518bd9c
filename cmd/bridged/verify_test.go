package bridged

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
)

func testVAA(t *testing.T, keys ...ed25519.PrivateKey) *vaa.VAA {
	t.Helper()
	v := vaa.New(vaa.ChainIDStellar, vaa.Address{1}, vaa.ChainIDNear, vaa.Address{2}, vaa.Address{3}, vaa.NewAmount(500), vaa.Address{4}, 9, 1700000000)
	for _, k := range keys {
		v.AddSignatureFromKey(k)
	}
	return v
}

func testKey(b byte) ed25519.PrivateKey {
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = b
	return ed25519.NewKeyFromSeed(seed)
}

func TestDecodeVAA(t *testing.T) {
	v := testVAA(t, testKey(1))

	raw, err := v.Marshal()
	require.NoError(t, err)
	js, err := json.Marshal(v)
	require.NoError(t, err)

	for name, input := range map[string]string{
		"hex":         hex.EncodeToString(raw),
		"prefixed":    "0x" + hex.EncodeToString(raw) + "\n",
		"json":        string(js),
		"padded json": "\n  " + string(js) + "\n",
	} {
		t.Run(name, func(t *testing.T) {
			got, err := decodeVAA([]byte(input))
			require.NoError(t, err)
			assert.Equal(t, v.HexDigest(), got.HexDigest())
			assert.Len(t, got.Signatures, 1)
		})
	}

	_, err = decodeVAA([]byte("not a message"))
	assert.Error(t, err)
}

func TestParseGuardianKeysAndVerify(t *testing.T) {
	k1, k2, k3 := testKey(1), testKey(2), testKey(3)
	v := testVAA(t, k1, k2)

	keys, err := parseGuardianKeys([]string{
		hex.EncodeToString(k1.Public().(ed25519.PublicKey)),
		"0x" + hex.EncodeToString(k2.Public().(ed25519.PublicKey)),
		hex.EncodeToString(k3.Public().(ed25519.PublicKey)),
	})
	require.NoError(t, err)
	require.Len(t, keys, 3)

	assert.NoError(t, v.Verify(keys, 2))
	assert.ErrorIs(t, v.Verify(keys, 3), vaa.ErrNoQuorum)

	_, err = parseGuardianKeys([]string{"abcd"})
	assert.Error(t, err)
}
