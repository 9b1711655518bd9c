package vaa

import (
	"encoding/json"
	"fmt"
)

// jsonVAA is the text encoding used when a VAA is handed to a destination chain RPC.
type jsonVAA struct {
	Version             uint8        `json:"version"`
	OriginChain         ChainID      `json:"origin_chain"`
	OriginContract      Address      `json:"origin_contract"`
	DestinationChain    ChainID      `json:"destination_chain"`
	DestinationContract Address      `json:"destination_contract"`
	AssetID             Address      `json:"asset_id"`
	Amount              string       `json:"amount"`
	Recipient           Address      `json:"recipient"`
	Nonce               uint64       `json:"nonce"`
	Timestamp           uint64       `json:"timestamp"`
	Signatures          []*Signature `json:"signatures"`
}

func (v VAA) MarshalJSON() ([]byte, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}

	sigs := v.Signatures
	if sigs == nil {
		sigs = []*Signature{}
	}

	return json.Marshal(&jsonVAA{
		Version:             v.Version,
		OriginChain:         v.OriginChain,
		OriginContract:      v.OriginContract,
		DestinationChain:    v.DestinationChain,
		DestinationContract: v.DestinationContract,
		AssetID:             v.AssetID,
		Amount:              v.Amount.Dec(),
		Recipient:           v.Recipient,
		Nonce:               v.Nonce,
		Timestamp:           v.Timestamp,
		Signatures:          sigs,
	})
}

func (v *VAA) UnmarshalJSON(data []byte) error {
	var j jsonVAA
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	amount, err := AmountFromDecimal(j.Amount)
	if err != nil {
		return err
	}

	for i, sig := range j.Signatures {
		if sig == nil {
			return fmt.Errorf("signature %d is null", i)
		}
	}

	parsed := VAA{
		Version:             j.Version,
		OriginChain:         j.OriginChain,
		OriginContract:      j.OriginContract,
		DestinationChain:    j.DestinationChain,
		DestinationContract: j.DestinationContract,
		AssetID:             j.AssetID,
		Recipient:           j.Recipient,
		Nonce:               j.Nonce,
		Timestamp:           j.Timestamp,
		Signatures:          j.Signatures,
	}
	parsed.Amount.Set(amount)
	if len(parsed.Signatures) == 0 {
		parsed.Signatures = nil
	}

	if err := parsed.Validate(); err != nil {
		return err
	}

	*v = parsed
	return nil
}
