// Package stellar observes the custody contract through Soroban JSON-RPC and delivers release messages to it as
// signed invokeHostFunction transactions.
package stellar

import (
	"context"
	"errors"
	"fmt"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/relayer"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/watchers/jsonrpc"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const DefaultMaxPerFetch = 100

type WatcherConfig struct {
	// RPC is the Soroban RPC HTTP endpoint.
	RPC string
	// Contract is the custody contract id (C... strkey).
	Contract string
	// StartLedger is where polling starts when no cursor is stored. Zero means the latest ledger.
	StartLedger uint32
	MaxPerFetch int
	RPCOptions  jsonrpc.Options
}

// ContractAddress returns the contract id as it appears in messages.
func (wc WatcherConfig) ContractAddress() (vaa.Address, error) {
	a, version, err := vaa.StrkeyToAddress(wc.Contract)
	if err != nil {
		return vaa.Address{}, fmt.Errorf("invalid Stellar contract id %q: %w", wc.Contract, err)
	}
	if version != vaa.StrkeyContract {
		return vaa.Address{}, fmt.Errorf("%q is not a contract id", wc.Contract)
	}
	return a, nil
}

// Watcher is the relayer event source for Stellar.
type Watcher struct {
	logger      *zap.Logger
	rpc         *jsonrpc.Client
	contract    string
	startLedger uint32
	maxPerFetch int
}

func NewWatcher(logger *zap.Logger, wc WatcherConfig) (*Watcher, error) {
	if _, err := wc.ContractAddress(); err != nil {
		return nil, err
	}
	if wc.MaxPerFetch <= 0 {
		wc.MaxPerFetch = DefaultMaxPerFetch
	}
	return &Watcher{
		logger: logger.With(
			zap.String("component", "stellar_watcher"),
			zap.String("rpc", wc.RPC),
			zap.String("contract", wc.Contract),
		),
		rpc:         jsonrpc.NewClient(wc.RPC, wc.RPCOptions),
		contract:    wc.Contract,
		startLedger: wc.StartLedger,
		maxPerFetch: wc.MaxPerFetch,
	}, nil
}

func (w *Watcher) ChainID() vaa.ChainID {
	return vaa.ChainIDStellar
}

// ledgerCursor returns the paging token that makes getEvents start at the beginning of ledger seq. Event ids are
// TOIDs (ledger<<32 | tx<<12 | op) followed by the event index, and transaction indexes start at 1.
func ledgerCursor(seq uint32) string {
	return fmt.Sprintf("%019d-%010d", uint64(seq)<<32, 0)
}

func (w *Watcher) getLatestLedger(ctx context.Context) (uint32, error) {
	res, err := w.rpc.Call(ctx, "getLatestLedger", nil)
	if err != nil {
		return 0, err
	}
	seq := res.Get("sequence").Uint()
	if seq == 0 || seq > uint64(^uint32(0)) {
		return 0, fmt.Errorf("invalid latest ledger %q", res.Get("sequence").String())
	}
	return uint32(seq), nil
}

// Fetch returns the lock and release events of the contract after cursor. Each event's cursor is its event id,
// which getEvents accepts as a pagination cursor.
func (w *Watcher) Fetch(ctx context.Context, cursor string) ([]relayer.Observation, string, error) {
	pagination := map[string]any{"limit": w.maxPerFetch}
	params := map[string]any{
		"filters": []map[string]any{
			{
				"type":        "contract",
				"contractIds": []string{w.contract},
			},
		},
		"pagination": pagination,
	}

	if cursor == "" {
		start := w.startLedger
		if start == 0 {
			var err error
			if start, err = w.getLatestLedger(ctx); err != nil {
				return nil, "", fmt.Errorf("failed to get latest ledger: %w", err)
			}
			w.logger.Info("no stored cursor, starting at latest ledger", zap.Uint32("ledger", start))
		}
		params["startLedger"] = start
		cursor = ledgerCursor(start)
	} else {
		pagination["cursor"] = cursor
	}

	res, err := w.rpc.Call(ctx, "getEvents", params)
	if err != nil {
		return nil, "", err
	}

	events := res.Get("events").Array()
	var obs []relayer.Observation
	next := cursor
	for _, e := range events {
		id := e.Get("id").String()
		if id == "" {
			return nil, "", errors.New("getEvents returned an event without id")
		}
		next = id

		if e.Get("contractId").String() != w.contract {
			continue
		}
		if s := e.Get("inSuccessfulContractCall"); s.Exists() && !s.Bool() {
			continue
		}

		ev, err := parseEvent(e)
		if errors.Is(err, errUnknownEvent) {
			continue
		}
		if err != nil {
			eventsSkipped.WithLabelValues("malformed").Inc()
			w.logger.Warn("skipping malformed contract event",
				zap.String("id", id),
				zap.String("tx", e.Get("txHash").String()),
				zap.Uint64("ledger", e.Get("ledger").Uint()),
				zap.Error(err),
			)
			continue
		}

		w.logger.Debug("observed contract event",
			zap.String("id", id),
			zap.Uint64("ledger", e.Get("ledger").Uint()),
			zap.Object("event", ev),
		)
		obs = append(obs, relayer.Observation{Event: ev, Cursor: id})
	}

	// Newer RPC versions return the position after the scanned range, even when no event matched.
	if c := res.Get("cursor").String(); c != "" {
		next = c
	}
	if len(events) == 0 {
		advanceToLatest(res, &next)
	}
	eventsFetched.Add(float64(len(obs)))
	return obs, next, nil
}

// advanceToLatest moves an idle cursor up to the latest ledger reported by the node, so that a quiet contract does
// not keep the scan pinned to an old ledger the node may have pruned.
func advanceToLatest(res gjson.Result, next *string) {
	latest := res.Get("latestLedger").Uint()
	if latest == 0 || latest > uint64(^uint32(0)) {
		return
	}
	if c := ledgerCursor(uint32(latest)); c > *next {
		*next = c
	}
}

var _ relayer.EventSource = (*Watcher)(nil)
