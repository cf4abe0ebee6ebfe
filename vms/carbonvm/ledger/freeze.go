// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/vms/carbonvm/errs"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

var (
	ErrNoFreezeAuthority  = fmt.Errorf("%w: token has no freeze authority", errs.ErrAuthorization)
	ErrNotFreezeAuthority = fmt.Errorf("%w: signer is not the freeze authority", errs.ErrAuthorization)
	ErrFreezeUnchanged    = fmt.Errorf("%w: account already in requested freeze state", errs.ErrState)
)

// SetFrozen freezes or thaws holder's balance of tokenID. A frozen holder
// cannot send, burn, retire or escrow the token but can still receive it.
func SetFrozen(chain state.Chain, tokenID ids.ID, holder ids.ShortID, frozen bool, signer ids.ShortID) error {
	record, err := GetMint(chain, tokenID)
	if err != nil {
		return err
	}
	if !record.HasFreezeAuthority {
		return ErrNoFreezeAuthority
	}
	if signer != record.FreezeAuthority {
		return ErrNotFreezeAuthority
	}
	current, err := chain.IsFrozen(tokenID, holder)
	if err != nil {
		return err
	}
	if current == frozen {
		return ErrFreezeUnchanged
	}
	return chain.SetFrozen(tokenID, holder, frozen)
}
