package stellar

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
	"github.com/stellar/go/xdr"
)

// Helpers for the Soroban ScVal values of contract events. getEvents returns topics and values as base64 XDR.

var errWrongType = errors.New("unexpected ScVal type")

func decodeScVal(b64 string) (xdr.ScVal, error) {
	var v xdr.ScVal
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return v, fmt.Errorf("invalid base64: %w", err)
	}
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &v); err != nil {
		return v, fmt.Errorf("invalid ScVal: %w", err)
	}
	return v, nil
}

func scSymbol(v xdr.ScVal) (string, error) {
	sym, ok := v.GetSym()
	if !ok {
		return "", fmt.Errorf("%w: want symbol, got %s", errWrongType, v.Type)
	}
	return string(sym), nil
}

// scMap indexes a map with symbol keys.
func scMap(v xdr.ScVal) (map[string]xdr.ScVal, error) {
	m, ok := v.GetMap()
	if !ok || m == nil {
		return nil, fmt.Errorf("%w: want map, got %s", errWrongType, v.Type)
	}
	out := make(map[string]xdr.ScVal, len(*m))
	for _, entry := range *m {
		key, err := scSymbol(entry.Key)
		if err != nil {
			return nil, err
		}
		out[key] = entry.Val
	}
	return out, nil
}

func scU64(v xdr.ScVal) (uint64, error) {
	n, ok := v.GetU64()
	if !ok {
		return 0, fmt.Errorf("%w: want u64, got %s", errWrongType, v.Type)
	}
	return uint64(n), nil
}

func scU32(v xdr.ScVal) (uint64, error) {
	n, ok := v.GetU32()
	if !ok {
		return 0, fmt.Errorf("%w: want u32, got %s", errWrongType, v.Type)
	}
	return uint64(n), nil
}

// scAmount decodes a non-negative i128 (or u128) token amount.
func scAmount(v xdr.ScVal) (*vaa.Amount, error) {
	var hi, lo uint64
	switch v.Type {
	case xdr.ScValTypeScvI128:
		parts := v.MustI128()
		if parts.Hi < 0 {
			return nil, errors.New("negative amount")
		}
		hi, lo = uint64(parts.Hi), uint64(parts.Lo)
	case xdr.ScValTypeScvU128:
		parts := v.MustU128()
		hi, lo = uint64(parts.Hi), uint64(parts.Lo)
	default:
		return nil, fmt.Errorf("%w: want i128, got %s", errWrongType, v.Type)
	}

	amount := new(vaa.Amount).SetUint64(hi)
	amount.Lsh(amount, 64)
	amount.Or(amount, new(vaa.Amount).SetUint64(lo))
	return amount, nil
}

// scAddress returns the ed25519 key of an account or the hash of a contract.
func scAddress(v xdr.ScVal) (vaa.Address, error) {
	addr, ok := v.GetAddress()
	if !ok {
		return vaa.Address{}, fmt.Errorf("%w: want address, got %s", errWrongType, v.Type)
	}
	switch addr.Type {
	case xdr.ScAddressTypeScAddressTypeAccount:
		account := addr.MustAccountId()
		if account.Ed25519 == nil {
			return vaa.Address{}, errors.New("account is not an ed25519 key")
		}
		return vaa.Address(*account.Ed25519), nil
	case xdr.ScAddressTypeScAddressTypeContract:
		return vaa.Address(addr.MustContractId()), nil
	default:
		return vaa.Address{}, fmt.Errorf("unsupported address type %s", addr.Type)
	}
}

// scBytesAddress decodes a BytesN<32> (or shorter Bytes) value into an Address.
func scBytesAddress(v xdr.ScVal) (vaa.Address, error) {
	b, ok := v.GetBytes()
	if !ok {
		return vaa.Address{}, fmt.Errorf("%w: want bytes, got %s", errWrongType, v.Type)
	}
	return vaa.BytesToAddress(b)
}
