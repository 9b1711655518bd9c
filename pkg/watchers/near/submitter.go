package near

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/guardiansigner"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/relayer"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/watchers/jsonrpc"
	"go.uber.org/zap"
)

const (
	mintMethod = "mint_wrapped"
	// DefaultGas is 100 TGas.
	DefaultGas = 100_000_000_000_000

	alreadyProcessedMarker = "already processed"
)

type SubmitterConfig struct {
	RPC      string
	Contract string
	// Account is the NEAR account paying for mint transactions.
	Account string
	// AccountKey is the full access key of Account in "ed25519:<base58>" form.
	AccountKey string
	Gas        uint64
	RPCOptions jsonrpc.Options
}

// Submitter delivers mint messages to the wrapped-asset contract as signed function call transactions.
type Submitter struct {
	logger   *zap.Logger
	api      nearAPI
	contract string
	account  string
	signer   guardiansigner.GuardianSigner
	gas      uint64

	// serializes access key nonce use
	mu sync.Mutex
}

func NewSubmitter(logger *zap.Logger, sc SubmitterConfig) (*Submitter, error) {
	if _, err := (WatcherConfig{Contract: sc.Contract}).ContractAddress(); err != nil {
		return nil, err
	}
	if sc.Account == "" {
		return nil, errors.New("no NEAR relayer account configured")
	}
	signer, err := guardiansigner.NewNearSigner(sc.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid NEAR account key: %w", err)
	}
	if sc.Gas == 0 {
		sc.Gas = DefaultGas
	}
	return &Submitter{
		logger: logger.With(
			zap.String("component", "near_submitter"),
			zap.String("contract", sc.Contract),
			zap.String("account", sc.Account),
		),
		api:      nearAPI{rpc: jsonrpc.NewClient(sc.RPC, sc.RPCOptions)},
		contract: sc.Contract,
		account:  sc.Account,
		signer:   signer,
		gas:      sc.Gas,
	}, nil
}

func (s *Submitter) ChainID() vaa.ChainID {
	return vaa.ChainIDNear
}

// Submit calls mint_wrapped({"vaa_json": ...}) with the JSON encoding of v.
func (s *Submitter) Submit(ctx context.Context, v *vaa.VAA) error {
	vaaJSON, err := json.Marshal(v)
	if err != nil {
		return err
	}
	args, err := json.Marshal(map[string]string{"vaa_json": string(vaaJSON)})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pub := s.signer.PublicKey(ctx)
	key, err := s.api.viewAccessKey(ctx, s.account, guardiansigner.FormatNearKey(pub[:]))
	if err != nil {
		return fmt.Errorf("failed to get access key: %w", err)
	}
	blockHash, err := decodeBlockHash(key.BlockHash)
	if err != nil {
		return err
	}

	tx := nearTransaction{
		SignerID:   s.account,
		PublicKey:  publicKey{KeyType: keyTypeED25519, Data: pub},
		Nonce:      key.Nonce + 1,
		ReceiverID: s.contract,
		BlockHash:  blockHash,
		Actions:    []action{newFunctionCall(mintMethod, args, s.gas)},
	}
	signed, txHash, err := signTransaction(ctx, s.signer, tx)
	if err != nil {
		return err
	}

	res, err := s.api.broadcastTxCommit(ctx, base64.StdEncoding.EncodeToString(signed))
	if err != nil {
		var rpcErr *jsonrpc.Error
		if errors.As(err, &rpcErr) && strings.Contains(rpcErr.Error(), alreadyProcessedMarker) {
			submissions.WithLabelValues("already_processed").Inc()
			return fmt.Errorf("%w: %v", relayer.ErrAlreadyDelivered, err)
		}
		submissions.WithLabelValues("error").Inc()
		return err
	}

	if failure := res.Get("status.Failure"); failure.Exists() {
		if strings.Contains(failure.Raw, alreadyProcessedMarker) {
			submissions.WithLabelValues("already_processed").Inc()
			return fmt.Errorf("%w: tx %s", relayer.ErrAlreadyDelivered, txHash)
		}
		if failure.Get("ActionError").Exists() {
			// The contract refused the call. Sending it again cannot change that.
			submissions.WithLabelValues("rejected").Inc()
			return fmt.Errorf("%w: mint transaction %s failed: %s", relayer.ErrRejected, txHash, failure.Raw)
		}
		submissions.WithLabelValues("failed").Inc()
		return fmt.Errorf("mint transaction %s failed: %s", txHash, failure.Raw)
	}
	if !res.Get("status.SuccessValue").Exists() {
		submissions.WithLabelValues("error").Inc()
		return fmt.Errorf("unexpected outcome for tx %s: %s", txHash, res.Get("status").Raw)
	}

	submissions.WithLabelValues("success").Inc()
	s.logger.Info("mint submitted",
		zap.String("messageID", v.MessageID()),
		zap.String("tx", txHash),
		zap.Uint64("nonce", tx.Nonce),
	)
	return nil
}

var _ relayer.Submitter = (*Submitter)(nil)
