// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger maintains token supplies and balances.
//
// Every function reads and checks all of its preconditions before its first
// write, so a returned error leaves the chain untouched.
package ledger

import (
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/utils/math"
	"github.com/luxfi/carbon/vms/carbonvm/errs"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

const (
	MaxDecimals     = 18
	MaxSymbolLen    = 32
	MaxProjectIDLen = 128
)

var (
	ErrAlreadyInitialized           = fmt.Errorf("%w: token already initialized", errs.ErrDuplicateInitialization)
	ErrTokenNotInitialized          = fmt.Errorf("%w: token not initialized", errs.ErrState)
	ErrZeroAmount                   = fmt.Errorf("%w: amount must be positive", errs.ErrValidation)
	ErrSupplyOverflow               = fmt.Errorf("%w: total supply overflow", errs.ErrValidation)
	ErrInvalidDecimals              = fmt.Errorf("%w: decimals exceed %d", errs.ErrValidation, MaxDecimals)
	ErrInvalidSymbol                = fmt.Errorf("%w: symbol must be 1 to %d bytes", errs.ErrValidation, MaxSymbolLen)
	ErrInvalidKind                  = fmt.Errorf("%w: unknown token kind", errs.ErrValidation)
	ErrMissingProjectID             = fmt.Errorf("%w: carbon unit requires a project id of 1 to %d bytes", errs.ErrValidation, MaxProjectIDLen)
	ErrMissingVerificationAuthority = fmt.Errorf("%w: carbon unit requires a verification authority", errs.ErrValidation)
	ErrNotMintAuthority             = fmt.Errorf("%w: signer is not the mint authority", errs.ErrAuthorization)
	ErrProjectNotVerified           = fmt.Errorf("%w: project is not verified", errs.ErrAuthorization)
	ErrNotHolder                    = fmt.Errorf("%w: signer is not the holder", errs.ErrAuthorization)
	ErrInsufficientBalance          = fmt.Errorf("%w: insufficient balance", errs.ErrResource)
	ErrAccountFrozen                = fmt.Errorf("%w: account is frozen", errs.ErrState)
)

// TokenParams describes a token at initialization. The signer of the
// initialization becomes its mint authority.
type TokenParams struct {
	TokenID       ids.ID
	Kind          state.TokenKind
	Symbol        string
	InitialSupply uint64
	Decimals      uint8
	// FreezeAuthority is optional; ids.ShortEmpty disables freezing.
	FreezeAuthority ids.ShortID

	ProjectID             string
	VintageYear           uint16
	VerificationStandard  string
	VerificationAuthority ids.ShortID
}

// Initialize creates the mint record of a token and credits the initial
// supply to the mint authority.
func Initialize(chain state.Chain, params TokenParams, mintAuthority ids.ShortID, now uint64) (*state.MintRecord, error) {
	switch _, err := chain.GetMint(params.TokenID); {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInitialized, params.TokenID)
	case !errors.Is(err, database.ErrNotFound):
		return nil, err
	}
	if err := params.Kind.Verify(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKind, err)
	}
	if len(params.Symbol) == 0 || len(params.Symbol) > MaxSymbolLen {
		return nil, ErrInvalidSymbol
	}
	if params.Decimals > MaxDecimals {
		return nil, ErrInvalidDecimals
	}
	if params.Kind == state.CarbonUnit {
		if len(params.ProjectID) == 0 || len(params.ProjectID) > MaxProjectIDLen {
			return nil, ErrMissingProjectID
		}
		if params.VerificationAuthority == ids.ShortEmpty {
			return nil, ErrMissingVerificationAuthority
		}
	}

	record := &state.MintRecord{
		TokenID:            params.TokenID,
		Kind:               params.Kind,
		Symbol:             params.Symbol,
		TotalSupply:        params.InitialSupply,
		Decimals:           params.Decimals,
		MintAuthority:      mintAuthority,
		HasFreezeAuthority: params.FreezeAuthority != ids.ShortEmpty,
		FreezeAuthority:    params.FreezeAuthority,
		CreatedAt:          now,
	}
	if params.Kind == state.CarbonUnit {
		record.ProjectID = params.ProjectID
		record.VintageYear = params.VintageYear
		record.VerificationStandard = params.VerificationStandard
		record.VerificationAuthority = params.VerificationAuthority
	}

	if err := chain.PutMint(record); err != nil {
		return nil, err
	}
	if params.InitialSupply > 0 {
		if err := chain.SetBalance(params.TokenID, mintAuthority, params.InitialSupply); err != nil {
			return nil, err
		}
	}
	return record, nil
}

// Mint increases the supply of a token and credits recipient. Carbon units
// can only be minted once their project is verified, and then only by the
// project's verification authority.
func Mint(chain state.Chain, tokenID ids.ID, amount uint64, signer, recipient ids.ShortID) (*state.MintRecord, error) {
	record, err := GetMint(chain, tokenID)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, ErrZeroAmount
	}
	if err := checkMinter(record, signer); err != nil {
		return nil, err
	}
	newSupply, err := math.Add(record.TotalSupply, amount)
	if err != nil {
		return nil, ErrSupplyOverflow
	}
	balance, err := chain.GetBalance(tokenID, recipient)
	if err != nil {
		return nil, err
	}
	newBalance, err := math.Add(balance, amount)
	if err != nil {
		return nil, ErrSupplyOverflow
	}

	record.TotalSupply = newSupply
	if err := chain.PutMint(record); err != nil {
		return nil, err
	}
	return record, chain.SetBalance(tokenID, recipient, newBalance)
}

// checkMinter reports whether signer may issue new units of record.
func checkMinter(record *state.MintRecord, signer ids.ShortID) error {
	minter := record.MintAuthority
	if record.Kind == state.CarbonUnit {
		if !record.Verified {
			return fmt.Errorf("%w: %s", ErrProjectNotVerified, record.ProjectID)
		}
		minter = record.VerificationAuthority
	}
	if signer != minter {
		return ErrNotMintAuthority
	}
	return nil
}

// Burn destroys amount of the holder's balance.
func Burn(chain state.Chain, tokenID ids.ID, amount uint64, holder, signer ids.ShortID) (*state.MintRecord, error) {
	record, err := GetMint(chain, tokenID)
	if err != nil {
		return nil, err
	}
	return record, burn(chain, record, amount, holder, signer)
}

func burn(chain state.Chain, record *state.MintRecord, amount uint64, holder, signer ids.ShortID) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	if signer != holder {
		return ErrNotHolder
	}
	newBalance, err := debitable(chain, record.TokenID, holder, amount)
	if err != nil {
		return err
	}
	newSupply, err := math.Sub(record.TotalSupply, amount)
	if err != nil {
		return fmt.Errorf("%w: supply below balance: %w", state.ErrCorrupted, err)
	}

	record.TotalSupply = newSupply
	if err := chain.PutMint(record); err != nil {
		return err
	}
	return chain.SetBalance(record.TokenID, holder, newBalance)
}

// Transfer moves amount from the signer's balance to recipient.
func Transfer(chain state.Chain, tokenID ids.ID, amount uint64, from, to, signer ids.ShortID) error {
	if _, err := GetMint(chain, tokenID); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	if signer != from {
		return ErrNotHolder
	}
	if _, err := debitable(chain, tokenID, from, amount); err != nil {
		return err
	}
	return Move(chain, tokenID, from, to, amount)
}

// Move transfers amount between two free balances without checking who
// asked. Callers own the authorization.
func Move(chain state.Chain, tokenID ids.ID, from, to ids.ShortID, amount uint64) error {
	fromBalance, err := debitable(chain, tokenID, from, amount)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	toBalance, err := chain.GetBalance(tokenID, to)
	if err != nil {
		return err
	}
	newToBalance, err := math.Add(toBalance, amount)
	if err != nil {
		return fmt.Errorf("%w: balance above supply: %w", state.ErrCorrupted, err)
	}

	if err := chain.SetBalance(tokenID, from, fromBalance); err != nil {
		return err
	}
	return chain.SetBalance(tokenID, to, newToBalance)
}

// Credit adds amount to a free balance.
func Credit(chain state.Chain, tokenID ids.ID, holder ids.ShortID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	balance, err := chain.GetBalance(tokenID, holder)
	if err != nil {
		return err
	}
	newBalance, err := math.Add(balance, amount)
	if err != nil {
		return fmt.Errorf("%w: balance above supply: %w", state.ErrCorrupted, err)
	}
	return chain.SetBalance(tokenID, holder, newBalance)
}

// GetMint returns the mint record of an initialized token.
func GetMint(chain state.ReadOnlyChain, tokenID ids.ID) (*state.MintRecord, error) {
	record, err := chain.GetMint(tokenID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotInitialized, tokenID)
	}
	return record, err
}

// CheckSpendable returns nil if holder can spend amount of tokenID.
func CheckSpendable(chain state.ReadOnlyChain, tokenID ids.ID, holder ids.ShortID, amount uint64) error {
	_, err := debitable(chain, tokenID, holder, amount)
	return err
}

// debitable returns the balance of holder after spending amount.
func debitable(chain state.ReadOnlyChain, tokenID ids.ID, holder ids.ShortID, amount uint64) (uint64, error) {
	frozen, err := chain.IsFrozen(tokenID, holder)
	if err != nil {
		return 0, err
	}
	if frozen {
		return 0, fmt.Errorf("%w: %s", ErrAccountFrozen, holder)
	}
	balance, err := chain.GetBalance(tokenID, holder)
	if err != nil {
		return 0, err
	}
	if balance < amount {
		return 0, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, balance, amount)
	}
	return balance - amount, nil
}
