// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/utils/math"
	"github.com/luxfi/carbon/vms/carbonvm/errs"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

var ErrInsufficientEscrow = fmt.Errorf("%w: insufficient escrow", errs.ErrResource)

// Lock moves amount from holder's free balance into the escrow account of an
// order or pool. Escrowed funds still count towards the token supply.
func Lock(chain state.Chain, tokenID ids.ID, holder ids.ShortID, accountID ids.ID, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	newBalance, err := debitable(chain, tokenID, holder, amount)
	if err != nil {
		return err
	}
	escrow, err := chain.GetEscrow(tokenID, accountID)
	if err != nil {
		return err
	}
	newEscrow, err := math.Add(escrow, amount)
	if err != nil {
		return fmt.Errorf("%w: escrow above supply: %w", state.ErrCorrupted, err)
	}

	if err := chain.SetBalance(tokenID, holder, newBalance); err != nil {
		return err
	}
	return chain.SetEscrow(tokenID, accountID, newEscrow)
}

// Release moves amount out of an escrow account into to's free balance.
func Release(chain state.Chain, tokenID ids.ID, accountID ids.ID, to ids.ShortID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	escrow, err := CheckEscrow(chain, tokenID, accountID, amount)
	if err != nil {
		return err
	}
	if err := chain.SetEscrow(tokenID, accountID, escrow-amount); err != nil {
		return err
	}
	return Credit(chain, tokenID, to, amount)
}

// CheckEscrow returns the escrow of accountID if it holds at least amount.
func CheckEscrow(chain state.ReadOnlyChain, tokenID ids.ID, accountID ids.ID, amount uint64) (uint64, error) {
	escrow, err := chain.GetEscrow(tokenID, accountID)
	if err != nil {
		return 0, err
	}
	if escrow < amount {
		return 0, fmt.Errorf("%w: %s holds %d, need %d", ErrInsufficientEscrow, accountID, escrow, amount)
	}
	return escrow, nil
}
