package near

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/minio/sha256-simd"
	"github.com/mr-tron/base58"
	"github.com/near/borsh-go"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/guardiansigner"
)

// Borsh layouts of nearcore's transaction types (core/primitives/src/transaction.rs). Enum variants must keep
// their declaration order.
type (
	publicKey struct {
		KeyType uint8
		Data    [ed25519.PublicKeySize]byte
	}

	signature struct {
		KeyType uint8
		Data    [ed25519.SignatureSize]byte
	}

	createAccount struct{}

	deployContract struct {
		Code []byte
	}

	functionCall struct {
		MethodName string
		Args       []byte
		Gas        uint64
		// Deposit is a little-endian u128 in yoctoNEAR.
		Deposit [16]byte
	}

	action struct {
		Enum           borsh.Enum `borsh_enum:"true"`
		CreateAccount  createAccount
		DeployContract deployContract
		FunctionCall   functionCall
	}

	nearTransaction struct {
		SignerID   string
		PublicKey  publicKey
		Nonce      uint64
		ReceiverID string
		BlockHash  [32]byte
		Actions    []action
	}

	signedTransaction struct {
		Transaction nearTransaction
		Signature   signature
	}
)

const (
	keyTypeED25519 = 0

	actionFunctionCall borsh.Enum = 2
)

func newFunctionCall(method string, args []byte, gas uint64) action {
	return action{
		Enum: actionFunctionCall,
		FunctionCall: functionCall{
			MethodName: method,
			Args:       args,
			Gas:        gas,
		},
	}
}

func decodeBlockHash(hash string) ([32]byte, error) {
	var out [32]byte
	b, err := base58.Decode(hash)
	if err != nil {
		return out, err
	}
	if len(b) != len(out) {
		return out, fmt.Errorf("block hash is %d bytes long", len(b))
	}
	copy(out[:], b)
	return out, nil
}

// signTransaction signs sha256(borsh(tx)) and returns the borsh encoded signed transaction together with the
// transaction hash, base58 encoded as explorers show it.
func signTransaction(ctx context.Context, signer guardiansigner.GuardianSigner, tx nearTransaction) ([]byte, string, error) {
	body, err := borsh.Serialize(tx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	hash := sha256.Sum256(body)

	sig, err := signer.Sign(ctx, hash[:])
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign transaction: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return nil, "", fmt.Errorf("signer returned a %d byte signature", len(sig))
	}

	stx := signedTransaction{Transaction: tx, Signature: signature{KeyType: keyTypeED25519}}
	copy(stx.Signature.Data[:], sig)
	b, err := borsh.Serialize(stx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to serialize signed transaction: %w", err)
	}
	return b, base58.Encode(hash[:]), nil
}
