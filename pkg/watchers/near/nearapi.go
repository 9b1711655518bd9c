package near

import (
	"context"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/watchers/jsonrpc"
	"github.com/tidwall/gjson"
)

// causeUnknownBlock is returned for heights that were skipped by the chain or garbage collected by the node.
const causeUnknownBlock = "UNKNOWN_BLOCK"

type (
	blockHeader struct {
		Hash   string
		Height uint64
		// Timestamp in seconds
		Timestamp uint64
	}

	block struct {
		Header blockHeader
		Chunks []string
	}

	transaction struct {
		Hash       string
		SignerID   string
		ReceiverID string
	}
)

// nearAPI wraps the handful of NEAR RPC methods the watcher and submitter need
// (https://docs.near.org/api/rpc/introduction).
type nearAPI struct {
	rpc *jsonrpc.Client
}

func isWellFormedHash(hash string) error {
	b, err := base58.Decode(hash)
	if err != nil {
		return err
	}
	if len(b) != 32 {
		return fmt.Errorf("hash %q is %d bytes long", hash, len(b))
	}
	return nil
}

func parseBlock(res gjson.Result) (block, error) {
	b := block{
		Header: blockHeader{
			Hash:      res.Get("header.hash").String(),
			Height:    res.Get("header.height").Uint(),
			Timestamp: res.Get("header.timestamp").Uint() / 1_000_000_000,
		},
	}
	if b.Header.Height == 0 || isWellFormedHash(b.Header.Hash) != nil {
		return block{}, errors.New("malformed block header")
	}
	for _, h := range res.Get("chunks.#.chunk_hash").Array() {
		if isWellFormedHash(h.String()) != nil {
			continue
		}
		b.Chunks = append(b.Chunks, h.String())
	}
	return b, nil
}

func (n *nearAPI) finalBlock(ctx context.Context) (block, error) {
	res, err := n.rpc.Call(ctx, "block", map[string]any{"finality": "final"})
	if err != nil {
		return block{}, err
	}
	return parseBlock(res)
}

func (n *nearAPI) blockByHeight(ctx context.Context, height uint64) (block, error) {
	res, err := n.rpc.Call(ctx, "block", map[string]any{"block_id": height})
	if err != nil {
		return block{}, err
	}
	return parseBlock(res)
}

// chunkTransactions returns the transactions included in a chunk.
func (n *nearAPI) chunkTransactions(ctx context.Context, chunkHash string) ([]transaction, error) {
	res, err := n.rpc.Call(ctx, "chunk", map[string]any{"chunk_id": chunkHash})
	if err != nil {
		return nil, err
	}
	var txs []transaction
	for _, tx := range res.Get("transactions").Array() {
		t := transaction{
			Hash:       tx.Get("hash").String(),
			SignerID:   tx.Get("signer_id").String(),
			ReceiverID: tx.Get("receiver_id").String(),
		}
		if t.SignerID == "" || isWellFormedHash(t.Hash) != nil {
			continue
		}
		txs = append(txs, t)
	}
	return txs, nil
}

// txStatus returns the execution outcome of a transaction once all its receipts are final. The signer is needed to
// route the query to the right shard.
func (n *nearAPI) txStatus(ctx context.Context, txHash string, signerID string) (gjson.Result, error) {
	return n.rpc.Call(ctx, "EXPERIMENTAL_tx_status", map[string]any{
		"tx_hash":           txHash,
		"sender_account_id": signerID,
		"wait_until":        "FINAL",
	})
}

type accessKey struct {
	Nonce     uint64
	BlockHash string
}

func (n *nearAPI) viewAccessKey(ctx context.Context, accountID string, publicKey string) (accessKey, error) {
	res, err := n.rpc.Call(ctx, "query", map[string]any{
		"request_type": "view_access_key",
		"finality":     "final",
		"account_id":   accountID,
		"public_key":   publicKey,
	})
	if err != nil {
		return accessKey{}, err
	}
	// Query errors of older nodes come back as a result with an error field.
	if e := res.Get("error"); e.Exists() {
		return accessKey{}, fmt.Errorf("view_access_key: %s", e.String())
	}
	k := accessKey{
		Nonce:     res.Get("nonce").Uint(),
		BlockHash: res.Get("block_hash").String(),
	}
	if err := isWellFormedHash(k.BlockHash); err != nil {
		return accessKey{}, fmt.Errorf("view_access_key returned a bad block hash: %w", err)
	}
	return k, nil
}

// broadcastTxCommit sends a base64 encoded signed transaction and waits for its final outcome. It is not retried
// within a relay cycle.
func (n *nearAPI) broadcastTxCommit(ctx context.Context, signedTx string) (gjson.Result, error) {
	return n.rpc.CallOnce(ctx, "broadcast_tx_commit", []string{signedTx})
}
