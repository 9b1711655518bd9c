// Package near observes the wrapped-asset contract through NEAR JSON-RPC and delivers mint messages to it.
package near

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/common"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/relayer"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/watchers/jsonrpc"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// DefaultMaxBlocksPerFetch bounds how far one Fetch walks, so a relayer that fell behind catches up over several
// ticks and persists progress in between.
const DefaultMaxBlocksPerFetch = 50

type WatcherConfig struct {
	// RPC is the NEAR archival or regular RPC endpoint.
	RPC string
	// Contract is the account id of the wrapped-asset contract.
	Contract string
	// StartHeight is the first block scanned when no cursor is stored. Zero means the current final block.
	StartHeight       uint64
	MaxBlocksPerFetch int
	RPCOptions        jsonrpc.Options
}

// ContractAddress returns the contract account as it appears in messages.
func (wc WatcherConfig) ContractAddress() (vaa.Address, error) {
	a, err := vaa.AccountToAddress(wc.Contract)
	if err != nil {
		return vaa.Address{}, fmt.Errorf("invalid NEAR contract account %q: %w", wc.Contract, err)
	}
	return a, nil
}

// Watcher is the relayer event source for NEAR. The cursor is the height of the last fully scanned final block.
type Watcher struct {
	logger      *zap.Logger
	api         nearAPI
	contract    string
	startHeight uint64
	maxBlocks   uint64
}

func NewWatcher(logger *zap.Logger, wc WatcherConfig) (*Watcher, error) {
	if _, err := wc.ContractAddress(); err != nil {
		return nil, err
	}
	if wc.MaxBlocksPerFetch <= 0 {
		wc.MaxBlocksPerFetch = DefaultMaxBlocksPerFetch
	}
	return &Watcher{
		logger: logger.With(
			zap.String("component", "near_watcher"),
			zap.String("rpc", wc.RPC),
			zap.String("contract", wc.Contract),
		),
		api:         nearAPI{rpc: jsonrpc.NewClient(wc.RPC, wc.RPCOptions)},
		contract:    wc.Contract,
		startHeight: wc.StartHeight,
		maxBlocks:   uint64(wc.MaxBlocksPerFetch),
	}, nil
}

func (w *Watcher) ChainID() vaa.ChainID {
	return vaa.ChainIDNear
}

// Fetch scans the final blocks after cursor for burn and mint events of the contract. An event's cursor is the
// height of its block once it is the last event there, and the height before otherwise, so an interrupted block is
// scanned again. Events seen twice are filtered out by the relayer.
func (w *Watcher) Fetch(ctx context.Context, cursor string) ([]relayer.Observation, string, error) {
	final, err := w.api.finalBlock(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get final block: %w", err)
	}

	var last uint64
	switch {
	case cursor != "":
		if last, err = strconv.ParseUint(cursor, 10, 64); err != nil {
			return nil, "", fmt.Errorf("invalid cursor %q: %w", cursor, err)
		}
	case w.startHeight > 0:
		last = w.startHeight - 1
	default:
		w.logger.Info("no stored cursor, starting at final block", zap.Uint64("height", final.Header.Height))
		return nil, strconv.FormatUint(final.Header.Height, 10), nil
	}

	to := final.Header.Height
	if to > last+w.maxBlocks {
		to = last + w.maxBlocks
	}

	var obs []relayer.Observation
	for height := last + 1; height <= to; height++ {
		b, err := w.api.blockByHeight(ctx, height)
		if jsonrpc.IsCause(err, causeUnknownBlock) {
			// skipped height
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to get block %d: %w", height, err)
		}
		blocksScanned.Inc()

		events, err := w.scanBlock(ctx, b)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan block %d: %w", height, err)
		}
		for i, ev := range events {
			c := height - 1
			if i == len(events)-1 {
				c = height
			}
			obs = append(obs, relayer.Observation{Event: ev, Cursor: strconv.FormatUint(c, 10)})
		}
	}

	eventsFetched.Add(float64(len(obs)))
	if last > to {
		// The node lags behind the stored cursor.
		to = last
	}
	return obs, strconv.FormatUint(to, 10), nil
}

func (w *Watcher) scanBlock(ctx context.Context, b block) ([]common.BridgeEvent, error) {
	var events []common.BridgeEvent
	for _, chunk := range b.Chunks {
		txs, err := w.api.chunkTransactions(ctx, chunk)
		if err != nil {
			return nil, err
		}
		for _, tx := range txs {
			if tx.ReceiverID != w.contract {
				continue
			}
			status, err := w.api.txStatus(ctx, tx.Hash, tx.SignerID)
			if err != nil {
				return nil, fmt.Errorf("tx %s: %w", tx.Hash, err)
			}
			events = append(events, w.processTx(tx, status, b.Header.Timestamp)...)
		}
	}
	return events, nil
}

// processTx collects the bridge events logged by the contract in the receipts of one transaction.
func (w *Watcher) processTx(tx transaction, status gjson.Result, blockTime uint64) []common.BridgeEvent {
	var events []common.BridgeEvent
	for _, outcome := range status.Get("receipts_outcome").Array() {
		// SECURITY: only logs emitted by the contract account itself count
		if outcome.Get("outcome.executor_id").String() != w.contract {
			continue
		}
		if !outcome.Get("outcome.status.SuccessValue").Exists() {
			eventsSkipped.WithLabelValues("failed_receipt").Inc()
			continue
		}

		for _, log := range outcome.Get("outcome.logs").Array() {
			evs, err := parseLog(log.String(), tx.Hash, blockTime)
			if errors.Is(err, errUnknownEvent) {
				continue
			}
			if err != nil {
				eventsSkipped.WithLabelValues("malformed").Inc()
				w.logger.Warn("skipping malformed contract event",
					zap.String("tx", tx.Hash),
					zap.String("log", log.String()),
					zap.Error(err),
				)
				continue
			}
			for _, ev := range evs {
				w.logger.Debug("observed contract event", zap.String("tx", tx.Hash), zap.Object("event", ev))
			}
			events = append(events, evs...)
		}
	}
	return events
}

var _ relayer.EventSource = (*Watcher)(nil)
