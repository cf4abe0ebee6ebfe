// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/utils/math"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

var ErrSupplyMismatch = errors.New("total supply does not match balances")

// Audit recomputes the sum of every free balance and escrow of a token and
// compares it with the recorded total supply.
func Audit(chain state.ReadOnlyChain, tokenID ids.ID) error {
	record, err := GetMint(chain, tokenID)
	if err != nil {
		return err
	}

	var sum uint64
	for holding, err := range chain.Holdings(tokenID) {
		if err != nil {
			return err
		}
		if sum, err = math.Add(sum, holding.Amount); err != nil {
			return fmt.Errorf("%w: %s balances overflow", ErrSupplyMismatch, tokenID)
		}
	}
	for escrow, err := range chain.Escrows(tokenID) {
		if err != nil {
			return err
		}
		if sum, err = math.Add(sum, escrow.Amount); err != nil {
			return fmt.Errorf("%w: %s escrows overflow", ErrSupplyMismatch, tokenID)
		}
	}
	if sum != record.TotalSupply {
		return fmt.Errorf("%w: %s supply %d, held %d", ErrSupplyMismatch, tokenID, record.TotalSupply, sum)
	}
	return nil
}
