// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package genesis builds the initial state of a carbon chain from an ordered
// list of transactions.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/database"
	"github.com/luxfi/database/versiondb"

	"github.com/luxfi/carbon/utils/timer/mockable"
	"github.com/luxfi/carbon/utils/wrappers"
	"github.com/luxfi/carbon/vms/carbonvm/state"
	"github.com/luxfi/carbon/vms/carbonvm/txs"
	"github.com/luxfi/carbon/vms/carbonvm/txs/executor"
)

var (
	ErrNoTxs = errors.New("genesis has no txs")

	appliedKey = []byte("genesisApplied")
)

// Genesis is the initial state of a chain: the txs that create its tokens,
// markets, balances and pools, executed in order at Timestamp.
type Genesis struct {
	Timestamp uint64    `json:"timestamp"`
	Txs       []*txs.Tx `json:"txs"`
}

// Parse decodes and verifies a JSON genesis document.
func Parse(genesisBytes []byte) (*Genesis, error) {
	g := &Genesis{}
	if err := json.Unmarshal(genesisBytes, g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal genesis: %w", err)
	}
	return g, g.Verify()
}

func (g *Genesis) Verify() error {
	if len(g.Txs) == 0 {
		return ErrNoTxs
	}
	var errs wrappers.Errs
	for i, tx := range g.Txs {
		if err := tx.SyntacticVerify(); err != nil {
			errs.Add(fmt.Errorf("genesis tx %d: %w", i, err))
		}
	}
	return errs.Err
}

func (g *Genesis) Bytes() ([]byte, error) {
	return json.Marshal(g)
}

// Apply executes the genesis txs against db. Either every tx is applied or
// db is left untouched. A db that already holds a genesis is not modified
// and Apply returns false.
func Apply(backend *executor.Backend, db database.Database, g *Genesis) (bool, error) {
	applied, err := db.Has(appliedKey)
	if err != nil || applied {
		return false, err
	}

	clk := &mockable.Clock{}
	clk.Set(time.Unix(int64(g.Timestamp), 0))
	genesisBackend := *backend
	genesisBackend.Clk = clk

	vdb := versiondb.New(db)
	defer vdb.Abort()

	chain := state.New(vdb, 0)
	for i, tx := range g.Txs {
		if _, err := executor.Execute(&genesisBackend, chain, tx); err != nil {
			return false, fmt.Errorf("genesis tx %d (%s): %w", i, tx.Unsigned.Type(), err)
		}
	}
	if err := vdb.Put(appliedKey, []byte{1}); err != nil {
		return false, err
	}
	return true, vdb.Commit()
}
