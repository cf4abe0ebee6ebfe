// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package carbonvm implements a VM that issues, trades and retires carbon
// credits.
//
// The VM provides:
//   - A settlement token (CST) and verified carbon units (VCU) with mint,
//     burn, transfer, freeze and retirement
//   - Limit order markets with escrow, explicit matching and fee-bearing
//     settlement at the maker price
//   - Constant-product liquidity pools
//   - An append-only retirement log with per-project certificates
package carbonvm

import (
	"github.com/luxfi/log"

	"github.com/luxfi/carbon/vms/carbonvm/config"
)

// VMID is the unique identifier for the carbon VM.
var VMID = [32]byte{'c', 'a', 'r', 'b', 'o', 'n', 'v', 'm'}

// Factory creates new carbon VM instances.
type Factory struct {
	config.Config
}

// NewFactory returns a factory for VMs running cfg.
func NewFactory(cfg config.Config) *Factory {
	return &Factory{Config: cfg}
}

// New creates a VM with the factory's configuration.
func (f *Factory) New(logger log.Logger) (*VM, error) {
	if err := f.Config.Validate(); err != nil {
		return nil, err
	}
	vm := New(logger)
	vm.Config = f.Config
	return vm, nil
}
