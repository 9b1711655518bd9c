package near

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/minio/sha256-simd"
	"github.com/mr-tron/base58"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/relayer"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/watchers/jsonrpc"
	"github.com/near/borsh-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const testRelayerAccount = "relayer.testnet"

func testAccountKey() ed25519.PrivateKey {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(100 + i)
	}
	return ed25519.NewKeyFromSeed(seed)
}

func mintMessage() *vaa.VAA {
	contract, _ := vaa.AccountToAddress(testContract)
	v := vaa.New(vaa.ChainIDStellar, assetAddress(), vaa.ChainIDNear, contract, assetAddress(), vaa.NewAmount(1000), vaa.Address{'b', 'o', 'b'}, 7, 1700000000)
	v.AddSignatureFromKey(testAccountKey())
	return v
}

func newTestSubmitter(t *testing.T, url string) *Submitter {
	s, err := NewSubmitter(zap.NewNop(), SubmitterConfig{
		RPC:        url,
		Contract:   testContract,
		Account:    testRelayerAccount,
		AccountKey: "ed25519:" + base58.Encode(testAccountKey()),
		RPCOptions: jsonrpc.Options{Timeout: time.Second, RequestsPerSecond: 1000, MaxRetryTime: time.Second},
	})
	require.NoError(t, err)
	return s
}

// decodeSignedTx checks the signature of a broadcast transaction and returns it.
func decodeSignedTx(t *testing.T, req gjson.Result) signedTransaction {
	raw, err := base64.StdEncoding.DecodeString(req.Get("params.0").String())
	require.NoError(t, err)

	var stx signedTransaction
	require.NoError(t, borsh.Deserialize(&stx, raw))

	body, err := borsh.Serialize(stx.Transaction)
	require.NoError(t, err)
	hash := sha256.Sum256(body)
	assert.True(t, ed25519.Verify(stx.Transaction.PublicKey.Data[:], hash[:], stx.Signature.Data[:]), "transaction signature")
	return stx
}

func TestSubmitMint(t *testing.T) {
	srv := newNodeServer(t, 100)
	srv.nonce = 41
	v := mintMessage()

	var stx signedTransaction
	srv.broadcast = func(req gjson.Result) string {
		stx = decodeSignedTx(t, req)
		return `{"jsonrpc":"2.0","id":1,"result":{"status":{"SuccessValue":""},"transaction":{},"receipts_outcome":[]}}`
	}

	s := newTestSubmitter(t, srv.URL)
	require.NoError(t, s.Submit(context.Background(), v))

	tx := stx.Transaction
	assert.Equal(t, testRelayerAccount, tx.SignerID)
	assert.Equal(t, testContract, tx.ReceiverID)
	assert.Equal(t, uint64(42), tx.Nonce)
	assert.Equal(t, []byte(testAccountKey().Public().(ed25519.PublicKey)), tx.PublicKey.Data[:])
	assert.Equal(t, testHash(1, 100), base58.Encode(tx.BlockHash[:]))

	require.Len(t, tx.Actions, 1)
	call := tx.Actions[0]
	assert.Equal(t, actionFunctionCall, call.Enum)
	assert.Equal(t, mintMethod, call.FunctionCall.MethodName)
	assert.Equal(t, uint64(DefaultGas), call.FunctionCall.Gas)
	assert.Equal(t, [16]byte{}, call.FunctionCall.Deposit)

	var args struct {
		VAAJSON string `json:"vaa_json"`
	}
	require.NoError(t, json.Unmarshal(call.FunctionCall.Args, &args))
	var got vaa.VAA
	require.NoError(t, json.Unmarshal([]byte(args.VAAJSON), &got))
	assert.Equal(t, v.SigningDigest(), got.SigningDigest())
	assert.Len(t, got.Signatures, 1)
}

func TestSubmitMintAlreadyProcessed(t *testing.T) {
	srv := newNodeServer(t, 100)
	srv.broadcast = func(gjson.Result) string {
		return `{"jsonrpc":"2.0","id":1,"result":{"status":{"Failure":{"ActionError":{"index":0,"kind":{"FunctionCallError":{"ExecutionError":"Smart contract panicked: message already processed"}}}}}}}`
	}
	s := newTestSubmitter(t, srv.URL)
	assert.ErrorIs(t, s.Submit(context.Background(), mintMessage()), relayer.ErrAlreadyDelivered)
}

func TestSubmitMintFailed(t *testing.T) {
	srv := newNodeServer(t, 100)
	srv.broadcast = func(gjson.Result) string {
		return `{"jsonrpc":"2.0","id":1,"result":{"status":{"Failure":{"ActionError":{"index":0,"kind":{"FunctionCallError":{"ExecutionError":"Smart contract panicked: quorum not reached"}}}}}}}`
	}
	s := newTestSubmitter(t, srv.URL)
	err := s.Submit(context.Background(), mintMessage())
	require.Error(t, err)
	assert.NotErrorIs(t, err, relayer.ErrAlreadyDelivered)
	assert.ErrorIs(t, err, relayer.ErrRejected)

	// not an action error, so it may succeed on a later cycle
	srv.broadcast = func(gjson.Result) string {
		return `{"jsonrpc":"2.0","id":1,"result":{"status":{"Failure":{"InvalidTxError":{"InvalidNonce":{"tx_nonce":5,"ak_nonce":6}}}}}}`
	}
	err = s.Submit(context.Background(), mintMessage())
	require.Error(t, err)
	assert.NotErrorIs(t, err, relayer.ErrRejected)

	srv.broadcast = func(gjson.Result) string {
		return fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"error":{"name":"HANDLER_ERROR","cause":{"name":"INVALID_TRANSACTION","info":{}},"code":-32000,"message":"Server error","data":%q}}`,
			"InvalidNonce")
	}
	err = s.Submit(context.Background(), mintMessage())
	require.Error(t, err)
	assert.NotErrorIs(t, err, relayer.ErrAlreadyDelivered)
	assert.NotErrorIs(t, err, relayer.ErrRejected)
}

func TestNewSubmitterValidatesConfig(t *testing.T) {
	_, err := NewSubmitter(zap.NewNop(), SubmitterConfig{Contract: testContract, AccountKey: "ed25519:" + base58.Encode(testAccountKey())})
	assert.Error(t, err, "missing account")

	_, err = NewSubmitter(zap.NewNop(), SubmitterConfig{Contract: testContract, Account: testRelayerAccount, AccountKey: "secret"})
	assert.Error(t, err, "bad key")

	_, err = NewSubmitter(zap.NewNop(), SubmitterConfig{Account: testRelayerAccount, AccountKey: "ed25519:" + base58.Encode(testAccountKey())})
	assert.Error(t, err, "missing contract")
}
