// Package relayer turns lock and burn events observed on one chain into signed messages and delivers them to the
// bridge contract on the other chain.
package relayer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/common"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/db"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/guardiansigner"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/readiness"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/replay"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
)

// ErrAlreadyDelivered is returned (possibly wrapped) by a Submitter when the destination contract reports the
// message as processed. The relayer treats it as success. It is the ledgers' own replay error.
var ErrAlreadyDelivered = replay.ErrAlreadyProcessed

// ErrRejected is wrapped by a Submitter when the destination contract refused the message for good, for example
// because the lock it names does not exist. The relayer skips such a message and moves on to the next event.
var ErrRejected = errors.New("message rejected by destination")

const (
	DefaultPollInterval       = 10 * time.Second
	DefaultDeliveredCacheSize = 10_000
)

type (
	// Observation is an event together with the source cursor that resumes polling right after it.
	Observation struct {
		Event  common.BridgeEvent
		Cursor string
	}

	// EventSource polls a chain for bridge events.
	EventSource interface {
		ChainID() vaa.ChainID
		// Fetch returns the events after cursor in chain order and the cursor to resume from once all of them were
		// processed. An empty cursor means the source picks its own starting point.
		Fetch(ctx context.Context, cursor string) ([]Observation, string, error)
	}

	// Submitter delivers signed messages to the bridge contract of a chain.
	Submitter interface {
		ChainID() vaa.ChainID
		Submit(ctx context.Context, v *vaa.VAA) error
	}

	// Chain is everything the relayer knows about one side of the bridge.
	Chain struct {
		ID vaa.ChainID
		// Contract is the bridge contract's address as it appears in messages.
		Contract  vaa.Address
		Source    EventSource
		Submitter Submitter
	}

	Config struct {
		PollInterval       time.Duration
		DeliveredCacheSize int
	}
)

type Relayer struct {
	logger    *zap.Logger
	db        *db.Database
	signer    guardiansigner.GuardianSigner
	chains    map[vaa.ChainID]*Chain
	cfg       Config
	delivered *lru.Cache
	readiness *readiness.Registry
	syncing   map[vaa.ChainID]readiness.Component

	// restartBackOff paces the restarts of one chain loop.
	restartBackOff func() backoff.BackOff
}

// NewRelayer validates the chain wiring. Every chain with a Source needs its counterpart to have a Submitter.
func NewRelayer(
	logger *zap.Logger,
	database *db.Database,
	signer guardiansigner.GuardianSigner,
	chains []*Chain,
	cfg Config,
	registry *readiness.Registry,
) (*Relayer, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.DeliveredCacheSize <= 0 {
		cfg.DeliveredCacheSize = DefaultDeliveredCacheSize
	}
	if registry == nil {
		registry = readiness.Default()
	}

	byID := make(map[vaa.ChainID]*Chain, len(chains))
	for _, c := range chains {
		if _, err := vaa.KnownChainIDFromNumber(c.ID); err != nil {
			return nil, err
		}
		if _, dup := byID[c.ID]; dup {
			return nil, fmt.Errorf("chain %s configured twice", c.ID)
		}
		if c.Source != nil && c.Source.ChainID() != c.ID {
			return nil, fmt.Errorf("event source for %s polls %s", c.ID, c.Source.ChainID())
		}
		if c.Submitter != nil && c.Submitter.ChainID() != c.ID {
			return nil, fmt.Errorf("submitter for %s submits to %s", c.ID, c.Submitter.ChainID())
		}
		byID[c.ID] = c
	}
	for id, c := range byID {
		if c.Source == nil {
			continue
		}
		dst, ok := byID[id.Counterpart()]
		if !ok || dst.Submitter == nil {
			return nil, fmt.Errorf("events from %s cannot be delivered: no submitter for %s", id, id.Counterpart())
		}
	}

	cache, err := lru.New(cfg.DeliveredCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create delivered cache: %w", err)
	}

	r := &Relayer{
		logger:    logger.With(zap.String("component", "relayer")),
		db:        database,
		signer:    signer,
		chains:    byID,
		cfg:       cfg,
		delivered: cache,
		readiness: registry,
		syncing:   make(map[vaa.ChainID]readiness.Component),

		restartBackOff: newRestartBackOff,
	}
	for id, c := range byID {
		if c.Source != nil {
			r.syncing[id] = common.MustRegisterReadinessSyncing(registry, id)
		}
	}
	return r, nil
}

// Run polls every configured chain until ctx is canceled. Chains are polled independently: an error or a panic in
// one never stops the other.
func (r *Relayer) Run(ctx context.Context) error {
	r.logger.Info("starting relayer",
		zap.String("guardian", r.signer.PublicKey(ctx).String()),
		zap.Duration("pollInterval", r.cfg.PollInterval),
	)
	r.logNonceGaps()

	var wg sync.WaitGroup
	for _, c := range r.chains {
		if c.Source == nil {
			continue
		}
		wg.Add(1)
		go func(c *Chain) {
			defer wg.Done()
			r.superviseChain(ctx, c)
		}(c)
	}

	wg.Wait()
	return ctx.Err()
}

// superviseChain restarts the chain loop after a panic. Restarts back off exponentially; the backoff is reset once
// the loop completed a poll cycle.
func (r *Relayer) superviseChain(ctx context.Context, c *Chain) {
	logger := r.logger.With(zap.Stringer("chain", c.ID))
	bo := r.restartBackOff()
	var healthy atomic.Bool
	for {
		errC := make(chan error, 1)
		common.RunWithScissors(ctx, errC, fmt.Sprintf("relay_%s", c.ID), func(ctx context.Context) error {
			return r.chainLoop(ctx, c, &healthy)
		})

		select {
		case <-ctx.Done():
			return
		case err := <-errC:
			if ctx.Err() != nil {
				return
			}
			if healthy.Swap(false) {
				bo.Reset()
			}
			delay := bo.NextBackOff()
			relayErrors.WithLabelValues(c.ID.String(), "crash").Inc()
			logger.Error("relay loop crashed, restarting", zap.Error(err), zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}
}

func (r *Relayer) chainLoop(ctx context.Context, c *Chain, healthy *atomic.Bool) error {
	logger := r.logger.With(zap.Stringer("chain", c.ID))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			err := r.PollOnce(ctx, c.ID)
			switch {
			case err == nil:
				healthy.Store(true)
			case ctx.Err() == nil:
				logger.Warn("relay attempt failed, retrying on next tick", zap.Error(err))
			}
			timer.Reset(r.cfg.PollInterval)
		}
	}
}

// PollOnce runs a single relay cycle for the events of chain. Events are processed in order; the first failure ends
// the cycle and the stored cursor never moves past an event that was not delivered. Messages the destination
// rejected for good count as processed.
func (r *Relayer) PollOnce(ctx context.Context, chain vaa.ChainID) error {
	c, ok := r.chains[chain]
	if !ok || c.Source == nil {
		return fmt.Errorf("no event source for %s", chain)
	}
	label := chain.String()

	cursor, err := r.db.GetCursor(chain)
	if err != nil && !errors.Is(err, db.ErrCursorNotFound) {
		relayErrors.WithLabelValues(label, "cursor").Inc()
		return err
	}

	observations, next, err := c.Source.Fetch(ctx, cursor)
	if err != nil {
		relayErrors.WithLabelValues(label, "fetch").Inc()
		return fmt.Errorf("failed to fetch events: %w", err)
	}
	r.readiness.SetReady(r.syncing[chain])

	for _, o := range observations {
		if err := r.relay(ctx, o.Event); err != nil {
			// cursor still points right after the last delivered event.
			if storeErr := r.storeCursor(chain, cursor); storeErr != nil {
				return errors.Join(err, storeErr)
			}
			return err
		}
		if o.Cursor != "" {
			cursor = o.Cursor
		}
	}

	if next != "" {
		cursor = next
	}
	return r.storeCursor(chain, cursor)
}

func (r *Relayer) storeCursor(chain vaa.ChainID, cursor string) error {
	if cursor == "" {
		return nil
	}
	if err := r.db.StoreCursor(chain, cursor); err != nil {
		relayErrors.WithLabelValues(chain.String(), "cursor").Inc()
		return err
	}
	return nil
}

// relay processes one event: validate, build, sign, store, submit. Malformed and non-transfer events are skipped, as
// are messages the destination rejected. A panicking Submitter fails the event like a transport error would.
func (r *Relayer) relay(ctx context.Context, ev common.BridgeEvent) error {
	label := ev.EmitterChain().String()
	eventsObserved.WithLabelValues(label, ev.EventName()).Inc()

	logger := r.logger.With(zap.Object("event", ev))

	if err := ev.Validate(); err != nil {
		eventsMalformed.WithLabelValues(label).Inc()
		logger.Warn("dropping malformed event", zap.Error(err))
		return nil
	}

	msg, err := r.BuildMessage(ev)
	if errors.Is(err, errNotRelayable) {
		return nil
	}
	if err != nil {
		relayErrors.WithLabelValues(label, "build").Inc()
		return err
	}

	id := db.MessageIDFromVAA(msg)
	if done, err := r.isDelivered(*id); err != nil {
		relayErrors.WithLabelValues(label, "db").Inc()
		return err
	} else if done {
		logger.Debug("message already delivered", zap.String("messageID", id.String()))
		return nil
	}

	if err := msg.Sign(ctx, r.signer); err != nil {
		relayErrors.WithLabelValues(label, "sign").Inc()
		return err
	}
	messagesSigned.WithLabelValues(label).Inc()

	// Signatures collected from other guardians for the same message are merged in the store.
	if err := r.db.StoreSignedVAA(msg); err != nil {
		relayErrors.WithLabelValues(label, "store").Inc()
		return err
	}
	toSubmit, err := r.db.GetSignedVAA(*id)
	if err != nil {
		relayErrors.WithLabelValues(label, "store").Inc()
		return err
	}

	dst := r.chains[msg.DestinationChain]
	err = common.WrapWithScissors(func(ctx context.Context) error {
		return dst.Submitter.Submit(ctx, toSubmit)
	})(ctx)
	switch {
	case err == nil:
		messagesDelivered.WithLabelValues(label).Inc()
		logger.Info("message delivered",
			zap.String("messageID", id.String()),
			zap.String("digest", toSubmit.HexDigest()),
			zap.Int("signatures", len(toSubmit.Signatures)),
		)
	case errors.Is(err, ErrAlreadyDelivered):
		messagesAlreadyDelivered.WithLabelValues(label).Inc()
		logger.Info("message was already delivered", zap.String("messageID", id.String()))
	case errors.Is(err, ErrRejected):
		// Not marked as delivered: the destination never applied it.
		messagesRejected.WithLabelValues(label).Inc()
		logger.Warn("destination rejected message, skipping",
			zap.String("messageID", id.String()),
			zap.Stringer("destination", msg.DestinationChain),
			zap.Error(err),
		)
		return nil
	default:
		relayErrors.WithLabelValues(label, "submit").Inc()
		return fmt.Errorf("failed to submit %s to %s: %w", id, msg.DestinationChain, err)
	}

	if err := r.db.MarkDelivered(*id); err != nil {
		relayErrors.WithLabelValues(label, "db").Inc()
		return err
	}
	r.delivered.Add(id.String(), struct{}{})
	return nil
}

func (r *Relayer) isDelivered(id db.MessageID) (bool, error) {
	if r.delivered.Contains(id.String()) {
		return true, nil
	}
	done, err := r.db.IsDelivered(id)
	if err != nil {
		return false, err
	}
	if done {
		r.delivered.Add(id.String(), struct{}{})
	}
	return done, nil
}

func (r *Relayer) logNonceGaps() {
	for id := range r.chains {
		gaps, first, last, err := r.db.FindNonceGaps(id)
		if err != nil {
			r.logger.Warn("failed to scan stored messages", zap.Stringer("chain", id), zap.Error(err))
			continue
		}
		if len(gaps) > 0 {
			r.logger.Info("stored messages have nonce gaps",
				zap.Stringer("chain", id),
				zap.Uint64("first", first),
				zap.Uint64("last", last),
				zap.Uint64s("missing", gaps),
			)
		}
	}
}
