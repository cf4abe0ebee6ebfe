// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/vms/carbonvm/ledger"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

var (
	_ UnsignedTx = (*InitializeTokenTx)(nil)
	_ UnsignedTx = (*MintTx)(nil)
	_ UnsignedTx = (*BurnTx)(nil)
	_ UnsignedTx = (*RetireTx)(nil)
	_ UnsignedTx = (*TransferTx)(nil)
	_ UnsignedTx = (*VerifyProjectTx)(nil)
	_ UnsignedTx = (*UpdateMetadataTx)(nil)
	_ UnsignedTx = (*FreezeAccountTx)(nil)
)

// InitializeTokenTx creates a token. The signer becomes its mint authority
// and receives the initial supply.
type InitializeTokenTx struct {
	TokenID       ids.ID          `serialize:"true" json:"tokenID"`
	Kind          state.TokenKind `serialize:"true" json:"kind"`
	Symbol        string          `serialize:"true" json:"symbol"`
	InitialSupply uint64          `serialize:"true" json:"initialSupply"`
	Decimals      uint8           `serialize:"true" json:"decimals"`
	// Left empty, the token can never be frozen.
	FreezeAuthority ids.ShortID `serialize:"true" json:"freezeAuthority"`

	// Carbon unit attributes
	ProjectID             string      `serialize:"true" json:"projectID,omitempty"`
	VintageYear           uint16      `serialize:"true" json:"vintageYear,omitempty"`
	VerificationStandard  string      `serialize:"true" json:"verificationStandard,omitempty"`
	VerificationAuthority ids.ShortID `serialize:"true" json:"verificationAuthority"`
}

func (*InitializeTokenTx) Type() TxType { return InitializeToken }

func (tx *InitializeTokenTx) SyntacticVerify() error {
	if err := nonEmpty(tx.TokenID); err != nil {
		return err
	}
	if err := tx.Kind.Verify(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEnum, err)
	}
	return nil
}

func (tx *InitializeTokenTx) Visit(v Visitor) error {
	return v.InitializeTokenTx(tx)
}

// Params returns the ledger parameters of the token.
func (tx *InitializeTokenTx) Params() ledger.TokenParams {
	return ledger.TokenParams{
		TokenID:               tx.TokenID,
		Kind:                  tx.Kind,
		Symbol:                tx.Symbol,
		InitialSupply:         tx.InitialSupply,
		Decimals:              tx.Decimals,
		FreezeAuthority:       tx.FreezeAuthority,
		ProjectID:             tx.ProjectID,
		VintageYear:           tx.VintageYear,
		VerificationStandard:  tx.VerificationStandard,
		VerificationAuthority: tx.VerificationAuthority,
	}
}

// MintTx issues new units to Recipient. The signer must be the mint
// authority.
type MintTx struct {
	TokenID   ids.ID      `serialize:"true" json:"tokenID"`
	Amount    uint64      `serialize:"true" json:"amount"`
	Recipient ids.ShortID `serialize:"true" json:"recipient"`
}

func (*MintTx) Type() TxType { return Mint }

func (tx *MintTx) SyntacticVerify() error {
	if err := nonEmpty(tx.TokenID); err != nil {
		return err
	}
	return positive(tx.Amount)
}

func (tx *MintTx) Visit(v Visitor) error {
	return v.MintTx(tx)
}

// BurnTx destroys units held by the signer.
type BurnTx struct {
	TokenID ids.ID `serialize:"true" json:"tokenID"`
	Amount  uint64 `serialize:"true" json:"amount"`
}

func (*BurnTx) Type() TxType { return Burn }

func (tx *BurnTx) SyntacticVerify() error {
	if err := nonEmpty(tx.TokenID); err != nil {
		return err
	}
	return positive(tx.Amount)
}

func (tx *BurnTx) Visit(v Visitor) error {
	return v.BurnTx(tx)
}

// RetireTx permanently retires carbon units held by the signer.
type RetireTx struct {
	TokenID ids.ID `serialize:"true" json:"tokenID"`
	Amount  uint64 `serialize:"true" json:"amount"`
}

func (*RetireTx) Type() TxType { return Retire }

func (tx *RetireTx) SyntacticVerify() error {
	if err := nonEmpty(tx.TokenID); err != nil {
		return err
	}
	return positive(tx.Amount)
}

func (tx *RetireTx) Visit(v Visitor) error {
	return v.RetireTx(tx)
}

// TransferTx moves units from the signer to To.
type TransferTx struct {
	TokenID ids.ID      `serialize:"true" json:"tokenID"`
	Amount  uint64      `serialize:"true" json:"amount"`
	To      ids.ShortID `serialize:"true" json:"to"`
}

func (*TransferTx) Type() TxType { return Transfer }

func (tx *TransferTx) SyntacticVerify() error {
	if err := nonEmpty(tx.TokenID); err != nil {
		return err
	}
	return positive(tx.Amount)
}

func (tx *TransferTx) Visit(v Visitor) error {
	return v.TransferTx(tx)
}

type VerifyProjectTx struct {
	TokenID ids.ID `serialize:"true" json:"tokenID"`
}

func (*VerifyProjectTx) Type() TxType { return VerifyProject }

func (tx *VerifyProjectTx) SyntacticVerify() error {
	return nonEmpty(tx.TokenID)
}

func (tx *VerifyProjectTx) Visit(v Visitor) error {
	return v.VerifyProjectTx(tx)
}

// UpdateMetadataTx changes the non-zero attributes of a carbon unit.
type UpdateMetadataTx struct {
	TokenID              ids.ID `serialize:"true" json:"tokenID"`
	VintageYear          uint16 `serialize:"true" json:"vintageYear,omitempty"`
	VerificationStandard string `serialize:"true" json:"verificationStandard,omitempty"`
}

func (*UpdateMetadataTx) Type() TxType { return UpdateMetadata }

func (tx *UpdateMetadataTx) SyntacticVerify() error {
	if err := nonEmpty(tx.TokenID); err != nil {
		return err
	}
	if tx.VintageYear == 0 && tx.VerificationStandard == "" {
		return ErrEmptyUpdate
	}
	return nil
}

func (tx *UpdateMetadataTx) Visit(v Visitor) error {
	return v.UpdateMetadataTx(tx)
}

// FreezeAccountTx freezes or thaws Holder. The signer must be the freeze
// authority.
type FreezeAccountTx struct {
	TokenID ids.ID      `serialize:"true" json:"tokenID"`
	Holder  ids.ShortID `serialize:"true" json:"holder"`
	Frozen  bool        `serialize:"true" json:"frozen"`
}

func (*FreezeAccountTx) Type() TxType { return FreezeAccount }

func (tx *FreezeAccountTx) SyntacticVerify() error {
	return nonEmpty(tx.TokenID)
}

func (tx *FreezeAccountTx) Visit(v Visitor) error {
	return v.FreezeAccountTx(tx)
}
