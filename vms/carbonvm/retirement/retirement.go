// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package retirement is the append-only log of retired carbon units.
//
// The ledger is the only writer. Readers query a project's records as a lazy
// sequence ordered by timestamp; every range over the sequence starts again
// from the first record.
package retirement

import (
	"fmt"
	"iter"

	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"

	"github.com/luxfi/carbon/utils/math"
	"github.com/luxfi/carbon/vms/carbonvm/errs"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

var (
	ErrZeroAmount     = fmt.Errorf("%w: retired amount must be positive", errs.ErrValidation)
	ErrMissingProject = fmt.Errorf("%w: retirement requires a project id", errs.ErrValidation)
)

// Append records that retiree permanently retired amount units of tokenID
// issued for projectID.
func Append(
	chain state.Chain,
	tokenID ids.ID,
	projectID string,
	retiree ids.ShortID,
	amount uint64,
	now uint64,
) (*state.RetirementRecord, error) {
	if amount == 0 {
		return nil, ErrZeroAmount
	}
	if projectID == "" {
		return nil, ErrMissingProject
	}
	record := &state.RetirementRecord{
		TokenID:   tokenID,
		ProjectID: projectID,
		Retiree:   retiree,
		Amount:    amount,
		Timestamp: now,
	}
	return record, chain.AppendRetirement(record)
}

// Records returns the retirements of a project ordered by timestamp.
func Records(chain state.ReadOnlyChain, projectID string) iter.Seq2[*state.RetirementRecord, error] {
	return chain.Retirements(projectID)
}

// Page returns at most limit records of a project starting at offset in
// timestamp order. A limit of zero returns every remaining record.
func Page(chain state.ReadOnlyChain, projectID string, offset, limit int) ([]*state.RetirementRecord, error) {
	var (
		records []*state.RetirementRecord
		skipped int
	)
	for record, err := range chain.Retirements(projectID) {
		if err != nil {
			return nil, err
		}
		if skipped < offset {
			skipped++
			continue
		}
		records = append(records, record)
		if limit > 0 && len(records) == limit {
			break
		}
	}
	return records, nil
}

// Certificate summarizes the retirements of a project as offset evidence.
type Certificate struct {
	ProjectID      string        `json:"projectID"`
	TotalRetired   uint64        `json:"totalRetired"`
	Count          uint64        `json:"count"`
	FirstTimestamp uint64        `json:"firstTimestamp"`
	LastTimestamp  uint64        `json:"lastTimestamp"`
	LastRecordID   ids.ID        `json:"lastRecordID"`
	Tokens         []ids.ID      `json:"tokens"`
	Retirees       []ids.ShortID `json:"retirees"`
}

// Summarize folds a project's retirement log into a certificate. Retirees and
// tokens are listed in order of first appearance.
func Summarize(chain state.ReadOnlyChain, projectID string) (*Certificate, error) {
	certificate := &Certificate{ProjectID: projectID}
	var (
		seenTokens   = make(set.Set[ids.ID])
		seenRetirees = make(set.Set[ids.ShortID])
	)
	for record, err := range chain.Retirements(projectID) {
		if err != nil {
			return nil, err
		}
		total, err := math.Add(certificate.TotalRetired, record.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: retired total overflows: %w", state.ErrCorrupted, err)
		}
		certificate.TotalRetired = total
		if certificate.Count == 0 {
			certificate.FirstTimestamp = record.Timestamp
		}
		certificate.Count++
		certificate.LastTimestamp = record.Timestamp
		certificate.LastRecordID = record.ID

		if !seenTokens.Contains(record.TokenID) {
			seenTokens.Add(record.TokenID)
			certificate.Tokens = append(certificate.Tokens, record.TokenID)
		}
		if !seenRetirees.Contains(record.Retiree) {
			seenRetirees.Add(record.Retiree)
			certificate.Retirees = append(certificate.Retirees, record.Retiree)
		}
	}
	return certificate, nil
}
