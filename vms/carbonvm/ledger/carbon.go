// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/vms/carbonvm/errs"
	"github.com/luxfi/carbon/vms/carbonvm/retirement"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

var (
	ErrNotCarbonUnit            = fmt.Errorf("%w: token is not a carbon unit", errs.ErrValidation)
	ErrNotVerificationAuthority = fmt.Errorf("%w: signer is not the verification authority", errs.ErrAuthorization)
	ErrAlreadyVerified          = fmt.Errorf("%w: project already verified", errs.ErrState)
	ErrEmptyMetadataUpdate      = fmt.Errorf("%w: metadata update changes nothing", errs.ErrValidation)
)

// Retire burns amount of the holder's carbon units and appends the evidence
// to the retirement log in the same staged change.
func Retire(
	chain state.Chain,
	tokenID ids.ID,
	amount uint64,
	holder ids.ShortID,
	signer ids.ShortID,
	now uint64,
) (*state.RetirementRecord, error) {
	record, err := GetMint(chain, tokenID)
	if err != nil {
		return nil, err
	}
	if record.Kind != state.CarbonUnit {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotCarbonUnit, tokenID, record.Kind)
	}
	if err := burn(chain, record, amount, holder, signer); err != nil {
		return nil, err
	}
	return retirement.Append(chain, tokenID, record.ProjectID, holder, amount, now)
}

// VerifyProject marks the project behind a carbon unit as verified, which
// unlocks minting.
func VerifyProject(chain state.Chain, tokenID ids.ID, signer ids.ShortID, now uint64) (*state.MintRecord, error) {
	record, err := carbonUnit(chain, tokenID, signer)
	if err != nil {
		return nil, err
	}
	if record.Verified {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyVerified, record.ProjectID)
	}
	record.Verified = true
	record.VerifiedAt = now
	return record, chain.PutMint(record)
}

// MetadataUpdate lists the carbon unit fields the verification authority may
// change. Zero values leave a field unchanged.
type MetadataUpdate struct {
	VintageYear          uint16
	VerificationStandard string
}

// UpdateMetadata amends the verification metadata of a carbon unit.
func UpdateMetadata(chain state.Chain, tokenID ids.ID, update MetadataUpdate, signer ids.ShortID) (*state.MintRecord, error) {
	record, err := carbonUnit(chain, tokenID, signer)
	if err != nil {
		return nil, err
	}
	if update.VintageYear == 0 && update.VerificationStandard == "" {
		return nil, ErrEmptyMetadataUpdate
	}
	if update.VintageYear != 0 {
		record.VintageYear = update.VintageYear
	}
	if update.VerificationStandard != "" {
		record.VerificationStandard = update.VerificationStandard
	}
	return record, chain.PutMint(record)
}

func carbonUnit(chain state.ReadOnlyChain, tokenID ids.ID, signer ids.ShortID) (*state.MintRecord, error) {
	record, err := GetMint(chain, tokenID)
	if err != nil {
		return nil, err
	}
	if record.Kind != state.CarbonUnit {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotCarbonUnit, tokenID, record.Kind)
	}
	if signer != record.VerificationAuthority {
		return nil, ErrNotVerificationAuthority
	}
	return record, nil
}
