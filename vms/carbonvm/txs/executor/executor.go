// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package executor applies transactions to the carbon VM state.
package executor

import (
	"fmt"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/carbon/vms/carbonvm/errs"
	"github.com/luxfi/carbon/vms/carbonvm/state"
	"github.com/luxfi/carbon/vms/carbonvm/txs"
)

// ErrAlreadyAccepted is returned when a signed tx is issued again.
var ErrAlreadyAccepted = fmt.Errorf("%w: tx already accepted", errs.ErrState)

// Execute applies tx to chain as one unit. The tx runs against a staged diff
// which is committed only if the tx and, when enabled, the invariant audit
// of everything it touched succeed. On error chain is unchanged. A signed tx
// is accepted at most once.
//
// The returned value describes the outcome and depends on the tx type.
func Execute(backend *Backend, chain *state.State, tx *txs.Tx) (any, error) {
	start := time.Now()
	result, err := execute(backend, chain, tx)
	if err != nil {
		backend.Metrics.MarkRejected(tx, err)
		backend.Log.Debug("tx rejected",
			log.Stringer("txID", txID(tx)),
			log.String("kind", errs.Kind(err)),
			log.String("error", err.Error()),
		)
		return nil, err
	}
	backend.Metrics.MarkAccepted(tx, time.Since(start))
	backend.Log.Debug("tx accepted",
		log.Stringer("txID", tx.ID()),
		log.Stringer("type", tx.Unsigned.Type()),
	)
	return result, nil
}

func execute(backend *Backend, chain *state.State, tx *txs.Tx) (any, error) {
	if err := tx.SyntacticVerify(); err != nil {
		return nil, err
	}

	var signingHash ids.ID
	if tx.IsSigned() {
		var err error
		signingHash, err = tx.SigningHash()
		if err != nil {
			return nil, err
		}
		accepted, err := chain.HasAcceptedTx(signingHash)
		if err != nil {
			return nil, err
		}
		if accepted {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyAccepted, signingHash)
		}
	}

	diff := chain.NewDiff()
	e := &txExecutor{
		Backend:       backend,
		chain:         diff,
		signer:        tx.Signer,
		now:           backend.Clk.Unix(),
		touchedTokens: set.NewSet[ids.ID](2),
		touchedOrders: set.NewSet[ids.ID](2),
		touchedPools:  set.NewSet[ids.ID](1),
		swappedPools:  map[ids.ID]*state.Pool{},
	}
	if err := tx.Unsigned.Visit(e); err != nil {
		diff.Abort()
		return nil, err
	}
	if backend.Config.CheckInvariants {
		if err := e.audit(); err != nil {
			diff.Abort()
			return nil, fmt.Errorf("invariant violated by %s: %w", tx.ID(), err)
		}
	}
	if tx.IsSigned() {
		if err := diff.MarkAcceptedTx(signingHash); err != nil {
			diff.Abort()
			return nil, err
		}
	}
	if err := diff.Commit(); err != nil {
		diff.Abort()
		return nil, err
	}
	e.observe()
	return e.result, nil
}

func txID(tx *txs.Tx) ids.ID {
	if tx == nil {
		return ids.Empty
	}
	return tx.ID()
}
