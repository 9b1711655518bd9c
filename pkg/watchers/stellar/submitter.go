package stellar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/relayer"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/watchers/jsonrpc"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
	"go.uber.org/zap"
)

const (
	releaseFunction = "release"

	// alreadyProcessedMarker is the contract's panic message for a replayed message.
	alreadyProcessedMarker = "already processed"

	DefaultConfirmInterval = time.Second
	DefaultConfirmAttempts = 30

	txTimeout = 300 // seconds
)

type SubmitterConfig struct {
	// RPC is the Soroban RPC HTTP endpoint.
	RPC      string
	Contract string
	// AccountSecret is the S... seed of the account paying for release transactions.
	AccountSecret string
	// NetworkPassphrase defaults to the test network.
	NetworkPassphrase string
	// ConfirmInterval and ConfirmAttempts bound how long Submit waits for a sent transaction.
	ConfirmInterval time.Duration
	ConfirmAttempts uint64
	RPCOptions      jsonrpc.Options
}

// Submitter delivers release messages to the custody contract. Each message becomes an invokeHostFunction
// transaction calling release(message), simulated for its resource footprint, signed by the relayer account and
// sent through Soroban RPC.
type Submitter struct {
	logger     *zap.Logger
	rpc        *jsonrpc.Client
	contract   xdr.ScAddress
	account    *keypair.Full
	passphrase string

	confirmInterval time.Duration
	confirmAttempts uint64

	// serializes use of the account sequence number
	mu sync.Mutex
}

func NewSubmitter(logger *zap.Logger, sc SubmitterConfig) (*Submitter, error) {
	if sc.RPC == "" {
		return nil, errors.New("no Soroban RPC endpoint configured")
	}
	contractID, err := strkey.Decode(strkey.VersionByteContract, sc.Contract)
	if err != nil {
		return nil, fmt.Errorf("invalid Stellar contract id %q: %w", sc.Contract, err)
	}
	var hash xdr.Hash
	copy(hash[:], contractID)

	account, err := keypair.ParseFull(sc.AccountSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid Stellar account secret: %w", err)
	}
	if sc.NetworkPassphrase == "" {
		sc.NetworkPassphrase = network.TestNetworkPassphrase
	}
	if sc.ConfirmInterval <= 0 {
		sc.ConfirmInterval = DefaultConfirmInterval
	}
	if sc.ConfirmAttempts == 0 {
		sc.ConfirmAttempts = DefaultConfirmAttempts
	}

	return &Submitter{
		logger: logger.With(
			zap.String("component", "stellar_submitter"),
			zap.String("contract", sc.Contract),
			zap.String("account", account.Address()),
		),
		rpc:             jsonrpc.NewClient(sc.RPC, sc.RPCOptions),
		contract:        xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeContract, ContractId: &hash},
		account:         account,
		passphrase:      sc.NetworkPassphrase,
		confirmInterval: sc.ConfirmInterval,
		confirmAttempts: sc.ConfirmAttempts,
	}, nil
}

func (s *Submitter) ChainID() vaa.ChainID {
	return vaa.ChainIDStellar
}

// Submit calls release(message) with the binary encoding of v and waits for the transaction to be applied.
func (s *Submitter) Submit(ctx context.Context, v *vaa.VAA) error {
	b, err := v.Marshal()
	if err != nil {
		return err
	}
	arg := xdr.ScBytes(b)
	op := &txnbuild.InvokeHostFunction{
		HostFunction: xdr.HostFunction{
			Type: xdr.HostFunctionTypeHostFunctionTypeInvokeContract,
			InvokeContract: &xdr.InvokeContractArgs{
				ContractAddress: s.contract,
				FunctionName:    xdr.ScSymbol(releaseFunction),
				Args:            xdr.ScVec{{Type: xdr.ScValTypeScvBytes, Bytes: &arg}},
			},
		},
		SourceAccount: s.account.Address(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.sequence(ctx)
	if err != nil {
		submissions.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to get account sequence: %w", err)
	}

	preflight, err := s.buildTx(seq, txnbuild.MinBaseFee, op)
	if err != nil {
		return err
	}
	sim, err := s.simulate(ctx, preflight)
	if err != nil {
		return err
	}
	op.Ext = xdr.TransactionExt{V: 1, SorobanData: &sim.data}
	op.Auth = sim.auth

	tx, err := s.buildTx(seq, txnbuild.MinBaseFee+sim.minResourceFee, op)
	if err != nil {
		return err
	}
	tx, err = tx.Sign(s.passphrase, s.account)
	if err != nil {
		return fmt.Errorf("failed to sign release transaction: %w", err)
	}
	hash, err := tx.HashHex(s.passphrase)
	if err != nil {
		return err
	}
	envelope, err := tx.Base64()
	if err != nil {
		return err
	}

	if err := s.send(ctx, hash, envelope); err != nil {
		return err
	}
	if err := s.waitForTransaction(ctx, hash); err != nil {
		return err
	}

	submissions.WithLabelValues("success").Inc()
	s.logger.Info("release submitted",
		zap.String("messageID", v.MessageID()),
		zap.String("tx", hash),
		zap.Int64("sequence", seq+1),
	)
	return nil
}

func (s *Submitter) buildTx(seq int64, fee int64, op *txnbuild.InvokeHostFunction) (*txnbuild.Transaction, error) {
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: s.account.Address(), Sequence: seq},
		IncrementSequenceNum: true,
		Operations:           []txnbuild.Operation{op},
		BaseFee:              fee,
		Preconditions:        txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(txTimeout)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build release transaction: %w", err)
	}
	return tx, nil
}

// sequence reads the current sequence number of the relayer account.
func (s *Submitter) sequence(ctx context.Context) (int64, error) {
	var key xdr.LedgerKey
	if err := key.SetAccount(xdr.MustAddress(s.account.Address())); err != nil {
		return 0, err
	}
	keyB64, err := xdr.MarshalBase64(key)
	if err != nil {
		return 0, err
	}

	res, err := s.rpc.Call(ctx, "getLedgerEntries", map[string]any{"keys": []string{keyB64}})
	if err != nil {
		return 0, err
	}
	entries := res.Get("entries").Array()
	if len(entries) == 0 {
		return 0, fmt.Errorf("account %s not found", s.account.Address())
	}
	var data xdr.LedgerEntryData
	if err := xdr.SafeUnmarshalBase64(entries[0].Get("xdr").String(), &data); err != nil {
		return 0, fmt.Errorf("invalid account entry: %w", err)
	}
	account, ok := data.GetAccount()
	if !ok {
		return 0, fmt.Errorf("ledger entry is a %s, not an account", data.Type)
	}
	return int64(account.SeqNum), nil
}

type simulation struct {
	data           xdr.SorobanTransactionData
	auth           []xdr.SorobanAuthorizationEntry
	minResourceFee int64
}

// simulate preflights tx. A contract error during simulation is final for the message.
func (s *Submitter) simulate(ctx context.Context, tx *txnbuild.Transaction) (*simulation, error) {
	envelope, err := tx.Base64()
	if err != nil {
		return nil, err
	}
	res, err := s.rpc.Call(ctx, "simulateTransaction", map[string]any{"transaction": envelope})
	if err != nil {
		submissions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to simulate release: %w", err)
	}

	if reason := res.Get("error").String(); reason != "" {
		if strings.Contains(reason, alreadyProcessedMarker) {
			submissions.WithLabelValues("already_processed").Inc()
			return nil, fmt.Errorf("%w: %s", relayer.ErrAlreadyDelivered, reason)
		}
		submissions.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: release simulation failed: %s", relayer.ErrRejected, reason)
	}

	sim := &simulation{minResourceFee: res.Get("minResourceFee").Int()}
	if err := xdr.SafeUnmarshalBase64(res.Get("transactionData").String(), &sim.data); err != nil {
		submissions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("invalid simulated transaction data: %w", err)
	}
	for _, a := range res.Get("results.0.auth").Array() {
		var entry xdr.SorobanAuthorizationEntry
		if err := xdr.SafeUnmarshalBase64(a.String(), &entry); err != nil {
			submissions.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("invalid simulated authorization: %w", err)
		}
		sim.auth = append(sim.auth, entry)
	}
	return sim, nil
}

// send hands the signed envelope to the node once. Retries happen on the next relay cycle with a fresh sequence.
func (s *Submitter) send(ctx context.Context, hash string, envelope string) error {
	res, err := s.rpc.CallOnce(ctx, "sendTransaction", map[string]any{"transaction": envelope})
	if err != nil {
		submissions.WithLabelValues("error").Inc()
		return err
	}
	switch status := res.Get("status").String(); status {
	case "PENDING", "DUPLICATE":
		return nil
	default:
		submissions.WithLabelValues("error").Inc()
		return fmt.Errorf("release transaction %s not accepted: %s %s", hash, status, res.Get("errorResultXdr").String())
	}
}

var errNotFound = errors.New("transaction not found yet")

// waitForTransaction polls getTransaction until the transaction was applied or the confirm budget is spent.
func (s *Submitter) waitForTransaction(ctx context.Context, hash string) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(s.confirmInterval), s.confirmAttempts), ctx)
	err := backoff.Retry(func() error {
		res, err := s.rpc.Call(ctx, "getTransaction", map[string]any{"hash": hash})
		if err != nil {
			return backoff.Permanent(err)
		}
		switch status := res.Get("status").String(); status {
		case "SUCCESS":
			return nil
		case "NOT_FOUND":
			return errNotFound
		case "FAILED":
			// The state changed after simulation. The next cycle simulates again and sees why.
			submissions.WithLabelValues("failed").Inc()
			return backoff.Permanent(fmt.Errorf("release transaction %s failed: %s", hash, res.Get("resultXdr").String()))
		default:
			return backoff.Permanent(fmt.Errorf("unexpected status %q for tx %s", status, hash))
		}
	}, bo)
	if errors.Is(err, errNotFound) {
		submissions.WithLabelValues("unconfirmed").Inc()
		return fmt.Errorf("release transaction %s not confirmed after %d attempts", hash, s.confirmAttempts)
	}
	return err
}

var _ relayer.Submitter = (*Submitter)(nil)
