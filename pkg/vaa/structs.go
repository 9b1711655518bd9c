package vaa

import (
	"bytes"
	"crypto/ed25519"
	"encoding"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	sha256 "github.com/minio/sha256-simd"
)

type (
	// VAA is a verifiable action approval of the bridge protocol. It attests that a lock or burn
	// happened on the origin chain and instructs the destination chain to mint or release.
	VAA struct {
		// Version of the VAA schema
		Version uint8
		// OriginChain the lock/burn event happened on
		OriginChain ChainID
		// OriginContract is the bridge contract on the origin chain
		OriginContract Address
		// DestinationChain the tokens will be minted/released on
		DestinationChain ChainID
		// DestinationContract is the bridge contract expected to apply this VAA
		DestinationContract Address
		// AssetID is an opaque handle of the asset being transferred
		AssetID Address
		// Amount in the asset's smallest unit. Never rescaled.
		Amount Amount
		// Recipient on the destination chain
		Recipient Address
		// Nonce is unique per origin lock/burn event
		Nonce uint64
		// Timestamp of the origin event (unix seconds)
		Timestamp uint64
		// Signatures attached by guardians. Not covered by the signing digest.
		Signatures []*Signature
	}

	// ChainID of a bridged chain
	ChainID uint8

	// Address is a bridge protocol address. Identifiers shorter than 32 bytes are zero-padded on the right.
	Address [32]byte

	// Amount is an unsigned integer of at most 128 bits.
	Amount = uint256.Int

	// PubKey is an ed25519 guardian public key.
	PubKey [ed25519.PublicKeySize]byte

	// SignatureData is a raw ed25519 signature.
	SignatureData [ed25519.SignatureSize]byte

	// Signature of a single guardian
	Signature struct {
		// GuardianPubKey identifies the guardian that produced the signature
		GuardianPubKey PubKey `json:"guardian_pubkey"`
		// Signature over the signing digest
		Signature SignatureData `json:"signature"`
	}

	// Attestation interface contains the methods common to all VAA types
	Attestation interface {
		encoding.BinaryMarshaler
		encoding.BinaryUnmarshaler
		SigningDigest() common.Hash
		VerifySignatures(keys []PubKey, quorum int) bool
		MessageID() string
		HexDigest() string
	}

	// number is a constraint for generic functions that can safely convert integer types to a ChainID (uint8).
	number interface {
		~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
	}
)

const (
	ChainIDUnset ChainID = 0
	// ChainIDStellar is the ChainID of the asset-native Stellar chain
	ChainIDStellar ChainID = 1
	// ChainIDNear is the ChainID of the wrapped-asset NEAR chain
	ChainIDNear ChainID = 2

	SupportedVAAVersion = 0x01

	// MaxAmountBits is the width of the amount field in the signing body.
	MaxAmountBits = 128

	// bodyLength is the size of the signed body:
	//  - version (1)
	//  - origin chain (1), origin contract (32)
	//  - destination chain (1), destination contract (32)
	//  - asset id (32)
	//  - amount (16)
	//  - recipient (32)
	//  - nonce (8), timestamp (8)
	bodyLength      = 1 + 1 + 32 + 1 + 32 + 32 + 16 + 32 + 8 + 8
	signatureLength = ed25519.PublicKeySize + ed25519.SignatureSize

	// MaxSignatures is bounded by the one-byte signature count of the wire format.
	MaxSignatures = math.MaxUint8
)

var (
	ErrAmountTooLarge     = errors.New("amount exceeds 128 bits")
	ErrUnsupportedVersion = errors.New("unsupported VAA version")
)

func (c ChainID) String() string {
	switch c {
	case ChainIDUnset:
		return "unset"
	case ChainIDStellar:
		return "stellar"
	case ChainIDNear:
		return "near"
	default:
		return fmt.Sprintf("unknown chain ID: %d", c)
	}
}

// Counterpart returns the chain on the other side of the bridge, or ChainIDUnset for unknown chains.
func (c ChainID) Counterpart() ChainID {
	switch c {
	case ChainIDStellar:
		return ChainIDNear
	case ChainIDNear:
		return ChainIDStellar
	default:
		return ChainIDUnset
	}
}

// GetAllNetworkIDs returns every chain participating in the bridge.
func GetAllNetworkIDs() []ChainID {
	return []ChainID{ChainIDStellar, ChainIDNear}
}

// ChainIDFromNumber converts an integer into a ChainID. It only checks that the value fits the type.
func ChainIDFromNumber[N number](n N) (ChainID, error) {
	if n < 0 {
		return ChainIDUnset, fmt.Errorf("chainID cannot be negative but got %d", n)
	}
	val := uint64(n)
	if val > uint64(math.MaxUint8) {
		return ChainIDUnset, fmt.Errorf("chainID must be less than or equal to %d but got %d", math.MaxUint8, n)
	}
	return ChainID(val), nil
}

// KnownChainIDFromNumber is ChainIDFromNumber restricted to chains that participate in the bridge.
func KnownChainIDFromNumber[N number](n N) (ChainID, error) {
	id, err := ChainIDFromNumber(n)
	if err != nil {
		return ChainIDUnset, err
	}

	for _, known := range GetAllNetworkIDs() {
		if id == known {
			return id, nil
		}
	}

	return ChainIDUnset, fmt.Errorf("no known ChainID for input %d", n)
}

// ChainIDFromString converts from a chain's name (e.g. "near") to its corresponding ChainID.
func ChainIDFromString(s string) (ChainID, error) {
	switch strings.ToLower(s) {
	case "stellar":
		return ChainIDStellar, nil
	case "near":
		return ChainIDNear, nil
	default:
		return ChainIDUnset, fmt.Errorf("unknown chain ID: %s", s)
	}
}

// StringToKnownChainID accepts either a chain name or its numeric representation.
func StringToKnownChainID(s string) (ChainID, error) {
	id, err := ChainIDFromString(s)
	if err == nil {
		return id, nil
	}

	u8, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return ChainIDUnset, err
	}

	return KnownChainIDFromNumber(u8)
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

// AccountString renders the address as the chain-native account identifier it was padded from.
func (a Address) AccountString() string {
	return string(bytes.TrimRight(a[:], "\x00"))
}

func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, a)), nil
}

func (a *Address) UnmarshalJSON(data []byte) error {
	addr, err := StringToAddress(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

func (k PubKey) String() string {
	return hex.EncodeToString(k[:])
}

func (k PubKey) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, k)), nil
}

func (k *PubKey) UnmarshalJSON(data []byte) error {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.Trim(string(data), `"`), "0x"))
	if err != nil {
		return err
	}
	if len(b) != len(k) {
		return fmt.Errorf("guardian public key must be %d bytes, got %d", len(k), len(b))
	}
	copy(k[:], b)
	return nil
}

func (s SignatureData) String() string {
	return hex.EncodeToString(s[:])
}

func (s SignatureData) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, s)), nil
}

func (s *SignatureData) UnmarshalJSON(data []byte) error {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.Trim(string(data), `"`), "0x"))
	if err != nil {
		return err
	}
	if len(b) != len(s) {
		return fmt.Errorf("signature must be %d bytes, got %d", len(s), len(b))
	}
	copy(s[:], b)
	return nil
}

// New creates an unsigned VAA at the current protocol version.
func New(
	originChain ChainID,
	originContract Address,
	destinationChain ChainID,
	destinationContract Address,
	assetID Address,
	amount *Amount,
	recipient Address,
	nonce uint64,
	timestamp uint64,
) *VAA {
	v := &VAA{
		Version:             SupportedVAAVersion,
		OriginChain:         originChain,
		OriginContract:      originContract,
		DestinationChain:    destinationChain,
		DestinationContract: destinationContract,
		AssetID:             assetID,
		Recipient:           recipient,
		Nonce:               nonce,
		Timestamp:           timestamp,
	}
	if amount != nil {
		v.Amount.Set(amount)
	}
	return v
}

// NewAmount returns an Amount holding n.
func NewAmount(n uint64) *Amount {
	return uint256.NewInt(n)
}

// AmountFromDecimal parses a base-10 amount and checks that it fits the wire format.
func AmountFromDecimal(s string) (*Amount, error) {
	a, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if a.BitLen() > MaxAmountBits {
		return nil, ErrAmountTooLarge
	}
	return a, nil
}

/*
SECURITY: Do not change this code! Independent guardians sign this exact byte layout.
Changing it breaks signatures over in-flight messages and the replay keys derived from them.
*/
func (v *VAA) serializeBody() []byte {
	buf := new(bytes.Buffer)
	MustWrite(buf, binary.BigEndian, v.Version)
	MustWrite(buf, binary.BigEndian, v.OriginChain)
	buf.Write(v.OriginContract[:])
	MustWrite(buf, binary.BigEndian, v.DestinationChain)
	buf.Write(v.DestinationContract[:])
	buf.Write(v.AssetID[:])
	amount := v.Amount.Bytes32()
	buf.Write(amount[32-MaxAmountBits/8:])
	buf.Write(v.Recipient[:])
	MustWrite(buf, binary.BigEndian, v.Nonce)
	MustWrite(buf, binary.BigEndian, v.Timestamp)

	return buf.Bytes()
}

// SigningDigest returns the SHA-256 hash of the signing body. Guardians sign these 32 bytes directly.
func (v *VAA) SigningDigest() common.Hash {
	return common.Hash(sha256.Sum256(v.serializeBody()))
}

// HexDigest returns the hex-encoded digest.
func (v *VAA) HexDigest() string {
	return hex.EncodeToString(v.SigningDigest().Bytes())
}

// MessageID returns a human-readable origin_chain/nonce tuple, which is also the replay key.
func (v *VAA) MessageID() string {
	return fmt.Sprintf("%d/%d", v.OriginChain, v.Nonce)
}

// AddSignature appends a guardian signature. Duplicates are filtered during verification, not here.
func (v *VAA) AddSignature(pubKey PubKey, sig SignatureData) {
	v.Signatures = append(v.Signatures, &Signature{
		GuardianPubKey: pubKey,
		Signature:      sig,
	})
}

// AddSignatureFromKey signs the digest with key and appends the result.
func (v *VAA) AddSignatureFromKey(key ed25519.PrivateKey) {
	digest := v.SigningDigest()
	var pub PubKey
	copy(pub[:], key.Public().(ed25519.PublicKey))
	var sig SignatureData
	copy(sig[:], ed25519.Sign(key, digest.Bytes()))
	v.AddSignature(pub, sig)
}

// Validate checks the non-cryptographic invariants of the body.
func (v *VAA) Validate() error {
	if v.Version != SupportedVAAVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, v.Version)
	}
	if _, err := KnownChainIDFromNumber(v.OriginChain); err != nil {
		return fmt.Errorf("invalid origin chain: %w", err)
	}
	if _, err := KnownChainIDFromNumber(v.DestinationChain); err != nil {
		return fmt.Errorf("invalid destination chain: %w", err)
	}
	if v.OriginChain == v.DestinationChain {
		return fmt.Errorf("origin and destination chain are both %s", v.OriginChain)
	}
	if v.Amount.BitLen() > MaxAmountBits {
		return ErrAmountTooLarge
	}
	if len(v.Signatures) > MaxSignatures {
		return fmt.Errorf("too many signatures: %d", len(v.Signatures))
	}
	return nil
}

// Marshal returns the binary representation of the VAA: the signing body followed by the signatures.
func (v *VAA) Marshal() ([]byte, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	buf.Write(v.serializeBody())

	MustWrite(buf, binary.BigEndian, uint8(len(v.Signatures))) // #nosec G115 -- checked by Validate
	for _, sig := range v.Signatures {
		buf.Write(sig.GuardianPubKey[:])
		buf.Write(sig.Signature[:])
	}

	return buf.Bytes(), nil
}

// implement encoding.BinaryMarshaler interface for the VAA struct
func (v VAA) MarshalBinary() ([]byte, error) {
	return v.Marshal()
}

// implement encoding.BinaryUnmarshaler interface for the VAA struct
func (v *VAA) UnmarshalBinary(data []byte) error {
	vaa, err := Unmarshal(data)
	if err != nil {
		return err
	}

	*v = *vaa
	return nil
}

// Unmarshal deserializes the binary representation of a VAA
func Unmarshal(data []byte) (*VAA, error) {
	if len(data) < bodyLength+1 {
		return nil, fmt.Errorf("VAA is too short")
	}
	v := &VAA{}

	v.Version = data[0]
	if v.Version != SupportedVAAVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v.Version)
	}

	reader := bytes.NewReader(data[1:])

	if err := binary.Read(reader, binary.BigEndian, &v.OriginChain); err != nil {
		return nil, fmt.Errorf("failed to read origin chain: %w", err)
	}
	if err := readAddress(reader, &v.OriginContract); err != nil {
		return nil, fmt.Errorf("failed to read origin contract: %w", err)
	}
	if err := binary.Read(reader, binary.BigEndian, &v.DestinationChain); err != nil {
		return nil, fmt.Errorf("failed to read destination chain: %w", err)
	}
	if err := readAddress(reader, &v.DestinationContract); err != nil {
		return nil, fmt.Errorf("failed to read destination contract: %w", err)
	}
	if err := readAddress(reader, &v.AssetID); err != nil {
		return nil, fmt.Errorf("failed to read asset id: %w", err)
	}

	amount := make([]byte, MaxAmountBits/8)
	if _, err := io.ReadFull(reader, amount); err != nil {
		return nil, fmt.Errorf("failed to read amount: %w", err)
	}
	v.Amount.SetBytes(amount)

	if err := readAddress(reader, &v.Recipient); err != nil {
		return nil, fmt.Errorf("failed to read recipient: %w", err)
	}
	if err := binary.Read(reader, binary.BigEndian, &v.Nonce); err != nil {
		return nil, fmt.Errorf("failed to read nonce: %w", err)
	}
	if err := binary.Read(reader, binary.BigEndian, &v.Timestamp); err != nil {
		return nil, fmt.Errorf("failed to read timestamp: %w", err)
	}

	lenSignatures, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("failed to read signature length")
	}
	if reader.Len() != int(lenSignatures)*signatureLength {
		return nil, fmt.Errorf("expected %d signature bytes, got %d", int(lenSignatures)*signatureLength, reader.Len())
	}

	if lenSignatures > 0 {
		v.Signatures = make([]*Signature, lenSignatures)
	}
	for i := 0; i < int(lenSignatures); i++ {
		sig := &Signature{}
		if _, err := io.ReadFull(reader, sig.GuardianPubKey[:]); err != nil {
			return nil, fmt.Errorf("failed to read guardian key [%d]: %w", i, err)
		}
		if _, err := io.ReadFull(reader, sig.Signature[:]); err != nil {
			return nil, fmt.Errorf("failed to read signature [%d]: %w", i, err)
		}
		v.Signatures[i] = sig
	}

	if err := v.Validate(); err != nil {
		return nil, err
	}

	return v, nil
}

func readAddress(r io.Reader, a *Address) error {
	_, err := io.ReadFull(r, a[:])
	return err
}

// MustWrite calls binary.Write and panics on errors
func MustWrite(w io.Writer, order binary.ByteOrder, data interface{}) {
	if err := binary.Write(w, order, data); err != nil {
		panic(fmt.Errorf("failed to write binary data: %v", data).Error())
	}
}

// StringToAddress converts a hex-encoded identifier into a vaa.Address
func StringToAddress(value string) (Address, error) {
	var address Address

	// Make sure we have enough to decode
	if len(value) < 2 {
		return address, fmt.Errorf("value must be at least 1 byte")
	}

	value = strings.TrimPrefix(value, "0x")

	res, err := hex.DecodeString(value)
	if err != nil {
		return address, err
	}

	return BytesToAddress(res)
}

// BytesToAddress copies b into the front of an Address, zero-padding the remainder.
func BytesToAddress(b []byte) (Address, error) {
	var address Address
	if len(b) > 32 {
		return address, fmt.Errorf("value must be no more than 32 bytes")
	}

	copy(address[:], b)
	return address, nil
}

// AccountToAddress converts a chain-native account name (e.g. "bridge.testnet") into an Address.
func AccountToAddress(account string) (Address, error) {
	if account == "" {
		return Address{}, errors.New("empty account")
	}
	return BytesToAddress([]byte(account))
}

// ParseAddress accepts a 0x-prefixed/plain hex identifier of at most 32 bytes, a Stellar strkey or a chain-native
// account name, tried in that order.
func ParseAddress(s string) (Address, error) {
	if a, err := StringToAddress(s); err == nil {
		return a, nil
	}
	if len(s) == strkeyLength {
		if a, _, err := StrkeyToAddress(s); err == nil {
			return a, nil
		}
	}
	return AccountToAddress(s)
}
