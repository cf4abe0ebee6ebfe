// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package liquidity

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/utils/math"
	"github.com/luxfi/carbon/vms/carbonvm/ledger"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

// SwapResult describes a swap against a pool.
type SwapResult struct {
	PoolID    ids.ID `json:"poolID"`
	TokenIn   ids.ID `json:"tokenIn"`
	TokenOut  ids.ID `json:"tokenOut"`
	AmountIn  uint64 `json:"amountIn"`
	AmountOut uint64 `json:"amountOut"`
	// Fee is the part of AmountIn retained by the pool.
	Fee        uint64 `json:"fee"`
	ReserveIn  uint64 `json:"reserveIn"`
	ReserveOut uint64 `json:"reserveOut"`
}

// Quote prices a swap of amountIn of tokenIn without executing it.
func Quote(chain state.ReadOnlyChain, tokenIn, tokenOut ids.ID, amountIn uint64) (*SwapResult, error) {
	if tokenIn == tokenOut {
		return nil, ErrSameToken
	}
	if amountIn == 0 {
		return nil, ErrZeroAmount
	}
	pool, err := GetPool(chain, tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	return quote(pool, tokenIn, tokenOut, amountIn)
}

func quote(pool *state.Pool, tokenIn, tokenOut ids.ID, amountIn uint64) (*SwapResult, error) {
	reserveIn, _ := pool.Reserve(tokenIn)
	reserveOut, _ := pool.Reserve(tokenOut)

	// amountOut = reserveOut*amountIn*(10000-fee) / (reserveIn*10000 + amountIn*(10000-fee))
	var (
		feeFactor   = uint256.NewInt(state.MaxBasisPoints - uint64(pool.FeeBps))
		inWithFee   = new(uint256.Int).Mul(uint256.NewInt(amountIn), feeFactor)
		numerator   = new(uint256.Int).Mul(uint256.NewInt(reserveOut), inWithFee)
		denominator = new(uint256.Int).Mul(uint256.NewInt(reserveIn), uint256.NewInt(state.MaxBasisPoints))
	)
	denominator.Add(denominator, inWithFee)
	if denominator.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	amountOut := numerator.Div(numerator, denominator)
	if amountOut.IsZero() || !amountOut.IsUint64() || amountOut.Uint64() >= reserveOut {
		return nil, ErrInsufficientLiquidity
	}

	newReserveIn, err := math.Add(reserveIn, amountIn)
	if err != nil {
		return nil, ErrReserveOverflow
	}
	fee, err := math.MulDiv(amountIn, uint64(pool.FeeBps), state.MaxBasisPoints)
	if err != nil {
		return nil, err
	}
	return &SwapResult{
		PoolID:     pool.ID,
		TokenIn:    tokenIn,
		TokenOut:   tokenOut,
		AmountIn:   amountIn,
		AmountOut:  amountOut.Uint64(),
		Fee:        fee,
		ReserveIn:  newReserveIn,
		ReserveOut: reserveOut - amountOut.Uint64(),
	}, nil
}

// Swap sells amountIn of tokenIn to the pool for at least minAmountOut of
// tokenOut.
func (p *Pools) Swap(
	tokenIn, tokenOut ids.ID,
	amountIn, minAmountOut uint64,
	trader ids.ShortID,
	now uint64,
) (*SwapResult, error) {
	if tokenIn == tokenOut {
		return nil, ErrSameToken
	}
	if amountIn == 0 {
		return nil, ErrZeroAmount
	}
	pool, err := GetPool(p.chain, tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	result, err := quote(pool, tokenIn, tokenOut, amountIn)
	if err != nil {
		return nil, err
	}
	if result.AmountOut < minAmountOut {
		return nil, fmt.Errorf("%w: %d < %d", ErrSlippageExceeded, result.AmountOut, minAmountOut)
	}
	if err := ledger.CheckSpendable(p.chain, tokenIn, trader, amountIn); err != nil {
		return nil, err
	}

	if err := ledger.Lock(p.chain, tokenIn, trader, pool.ID, amountIn); err != nil {
		return nil, err
	}
	if err := ledger.Release(p.chain, tokenOut, pool.ID, trader, result.AmountOut); err != nil {
		return nil, err
	}
	if tokenIn == pool.TokenA {
		pool.ReserveA, pool.ReserveB = result.ReserveIn, result.ReserveOut
	} else {
		pool.ReserveA, pool.ReserveB = result.ReserveOut, result.ReserveIn
	}
	pool.UpdatedAt = now
	return result, p.chain.PutPool(pool)
}
