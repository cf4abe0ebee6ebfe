// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/vms/carbonvm/errs"
)

// envelope is the JSON form of a Tx:
//
//	{"type": "transfer", "signer": "...", "nonce": 7, "signature": "...", "tx": {"tokenID": "...", ...}}
//
// The signature is base64 and absent for unsigned txs.
type envelope struct {
	Type      string          `json:"type"`
	Signer    ids.ShortID     `json:"signer"`
	Nonce     uint64          `json:"nonce,omitempty"`
	Signature []byte          `json:"signature,omitempty"`
	Tx        json.RawMessage `json:"tx"`
}

func newUnsigned(t TxType) (UnsignedTx, error) {
	switch t {
	case InitializeToken:
		return &InitializeTokenTx{}, nil
	case Mint:
		return &MintTx{}, nil
	case Burn:
		return &BurnTx{}, nil
	case Retire:
		return &RetireTx{}, nil
	case Transfer:
		return &TransferTx{}, nil
	case VerifyProject:
		return &VerifyProjectTx{}, nil
	case UpdateMetadata:
		return &UpdateMetadataTx{}, nil
	case FreezeAccount:
		return &FreezeAccountTx{}, nil
	case InitializeMarket:
		return &InitializeMarketTx{}, nil
	case CreateOrder:
		return &CreateOrderTx{}, nil
	case CancelOrder:
		return &CancelOrderTx{}, nil
	case MatchOrders:
		return &MatchOrdersTx{}, nil
	case SettleTrade:
		return &SettleTradeTx{}, nil
	case ArchiveOrder:
		return &ArchiveOrderTx{}, nil
	case AddLiquidity:
		return &AddLiquidityTx{}, nil
	case RemoveLiquidity:
		return &RemoveLiquidityTx{}, nil
	case Swap:
		return &SwapTx{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTxType, t)
	}
}

func (tx *Tx) MarshalJSON() ([]byte, error) {
	if tx.Unsigned == nil {
		return nil, ErrNilTx
	}
	body, err := json.Marshal(tx.Unsigned)
	if err != nil {
		return nil, err
	}
	env := envelope{
		Type:   tx.Unsigned.Type().String(),
		Signer: tx.Signer,
		Nonce:  tx.Nonce,
		Tx:     body,
	}
	if tx.IsSigned() {
		env.Signature = tx.Signature[:]
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the envelope and initializes the tx. Unknown fields
// are rejected.
func (tx *Tx) UnmarshalJSON(b []byte) error {
	var env envelope
	if err := strictUnmarshal(b, &env); err != nil {
		return err
	}
	t, err := ParseTxType(env.Type)
	if err != nil {
		return err
	}
	unsigned, err := newUnsigned(t)
	if err != nil {
		return err
	}
	if len(env.Tx) != 0 {
		if err := strictUnmarshal(env.Tx, unsigned); err != nil {
			return err
		}
	}
	if len(env.Signature) != 0 && len(env.Signature) != secp256k1.SignatureLen {
		return fmt.Errorf("%w: %d bytes", ErrBadSignature, len(env.Signature))
	}
	tx.Unsigned = unsigned
	tx.Signer = env.Signer
	tx.Nonce = env.Nonce
	copy(tx.Signature[:], env.Signature)
	return tx.Initialize()
}

// ParseJSON decodes a tx from its JSON envelope.
func ParseJSON(b []byte) (*Tx, error) {
	tx := &Tx{}
	if err := tx.UnmarshalJSON(b); err != nil {
		return nil, err
	}
	return tx, nil
}

func strictUnmarshal(b []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed tx json: %w", errs.ErrValidation, err)
	}
	return nil
}
