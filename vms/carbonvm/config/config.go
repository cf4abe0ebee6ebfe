// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines configuration types for the carbon VM.
package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/luxfi/carbon/utils/wrappers"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

var (
	ErrInvalidSwapFee       = fmt.Errorf("swap fee exceeds %d basis points", state.MaxBasisPoints)
	ErrInvalidCacheSize     = errors.New("retirement cache size must not be negative")
	ErrInvalidDepthLevels   = errors.New("max depth levels must be positive")
	ErrInvalidRetirementCap = errors.New("max retirements page must be positive")
)

// Config contains configuration parameters for the carbon VM.
type Config struct {
	// SwapFeeBps is the fee in basis points assigned to pools created while
	// this config is active. It stays in the pool reserves.
	SwapFeeBps uint16 `json:"swapFeeBps"`

	// AllowSelfTrade permits matching two orders of the same owner.
	AllowSelfTrade bool `json:"allowSelfTrade"`

	// CheckInvariants audits supply conservation and order bounds of every
	// token and order a tx touched before committing it.
	CheckInvariants bool `json:"checkInvariants"`

	// RetirementCacheSize is the number of retirement records kept in memory.
	RetirementCacheSize int `json:"retirementCacheSize"`

	// API limits
	MaxDepthLevels     int `json:"maxDepthLevels"`
	MaxRetirementsPage int `json:"maxRetirementsPage"`
}

// DefaultConfig returns the default configuration for the carbon VM.
func DefaultConfig() Config {
	return Config{
		SwapFeeBps:      30, // 0.3%
		AllowSelfTrade:  false,
		CheckInvariants: true,

		RetirementCacheSize: 1024,

		MaxDepthLevels:     50,
		MaxRetirementsPage: 100,
	}
}

// Parse overlays the JSON in configBytes onto the defaults and validates
// the result. Empty input selects the defaults.
func Parse(configBytes []byte) (Config, error) {
	config := DefaultConfig()
	if len(configBytes) > 0 {
		if err := json.Unmarshal(configBytes, &config); err != nil {
			return Config{}, fmt.Errorf("failed to unmarshal config %s: %w", string(configBytes), err)
		}
	}
	return config, config.Validate()
}

func (c *Config) Validate() error {
	var errs wrappers.Errs
	if c.SwapFeeBps > state.MaxBasisPoints {
		errs.Add(fmt.Errorf("%w: %d", ErrInvalidSwapFee, c.SwapFeeBps))
	}
	if c.RetirementCacheSize < 0 {
		errs.Add(ErrInvalidCacheSize)
	}
	if c.MaxDepthLevels <= 0 {
		errs.Add(ErrInvalidDepthLevels)
	}
	if c.MaxRetirementsPage <= 0 {
		errs.Add(ErrInvalidRetirementCap)
	}
	return errs.Err
}
