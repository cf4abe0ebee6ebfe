// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package liquidity implements constant-product liquidity pools.
//
// Pool reserves are ledger escrow accounts keyed by the pool ID, so they
// count towards token supply and no principal can send to or spend from
// them. LP shares are tracked per pool and never leave it.
package liquidity

import (
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/utils/math"
	"github.com/luxfi/carbon/vms/carbonvm/errs"
	"github.com/luxfi/carbon/vms/carbonvm/ledger"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

var (
	ErrSameToken             = fmt.Errorf("%w: pool tokens must differ", errs.ErrValidation)
	ErrZeroAmount            = fmt.Errorf("%w: amounts must be positive", errs.ErrValidation)
	ErrRatioMismatch         = fmt.Errorf("%w: deposit does not match the pool ratio", errs.ErrValidation)
	ErrDepositTooSmall       = fmt.Errorf("%w: deposit mints no LP shares", errs.ErrValidation)
	ErrWithdrawalTooSmall    = fmt.Errorf("%w: withdrawal returns nothing of one token", errs.ErrValidation)
	ErrReserveOverflow       = fmt.Errorf("%w: pool reserve overflows", errs.ErrValidation)
	ErrInvalidFee            = fmt.Errorf("%w: pool fee exceeds %d basis points", errs.ErrValidation, state.MaxBasisPoints)
	ErrPoolNotFound          = fmt.Errorf("%w: pool not found", errs.ErrState)
	ErrInsufficientShares    = fmt.Errorf("%w: insufficient LP shares", errs.ErrResource)
	ErrInsufficientLiquidity = fmt.Errorf("%w: insufficient liquidity", errs.ErrResource)
	ErrSlippageExceeded      = fmt.Errorf("%w: output below minimum", errs.ErrResource)
)

// Config holds the pool parameters chosen when a pool is first funded.
type Config struct {
	// SwapFeeBps is retained in the reserves on every swap.
	SwapFeeBps uint16
}

// Pools applies pool operations to a chain.
type Pools struct {
	chain  state.Chain
	config Config
}

// New returns pools operating on chain.
func New(chain state.Chain, config Config) *Pools {
	return &Pools{
		chain:  chain,
		config: config,
	}
}

// AddResult describes a deposit. Amounts are in canonical token order.
type AddResult struct {
	Pool     *state.Pool `json:"pool"`
	AmountA  uint64      `json:"amountA"`
	AmountB  uint64      `json:"amountB"`
	LPMinted uint64      `json:"lpMinted"`
}

// AddLiquidity deposits amountA of tokenA and amountB of tokenB. The first
// deposit mints isqrt(amountA*amountB) shares. Later deposits must match the
// reserve ratio up to integer rounding.
func (p *Pools) AddLiquidity(
	tokenA, tokenB ids.ID,
	amountA, amountB uint64,
	provider ids.ShortID,
	now uint64,
) (*AddResult, error) {
	if tokenA == tokenB {
		return nil, ErrSameToken
	}
	if amountA == 0 || amountB == 0 {
		return nil, ErrZeroAmount
	}
	if p.config.SwapFeeBps > state.MaxBasisPoints {
		return nil, ErrInvalidFee
	}
	if tokenA.Compare(tokenB) > 0 {
		tokenA, tokenB = tokenB, tokenA
		amountA, amountB = amountB, amountA
	}
	for _, tokenID := range []ids.ID{tokenA, tokenB} {
		if _, err := ledger.GetMint(p.chain, tokenID); err != nil {
			return nil, err
		}
	}

	pool, err := p.chain.GetPool(state.PoolID(tokenA, tokenB))
	switch {
	case errors.Is(err, database.ErrNotFound):
		pool = &state.Pool{
			ID:        state.PoolID(tokenA, tokenB),
			TokenA:    tokenA,
			TokenB:    tokenB,
			FeeBps:    p.config.SwapFeeBps,
			CreatedAt: now,
		}
	case err != nil:
		return nil, err
	}

	minted, err := mintedShares(pool, amountA, amountB)
	if err != nil {
		return nil, err
	}
	newReserveA, err := math.Add(pool.ReserveA, amountA)
	if err != nil {
		return nil, ErrReserveOverflow
	}
	newReserveB, err := math.Add(pool.ReserveB, amountB)
	if err != nil {
		return nil, ErrReserveOverflow
	}
	newSupply, err := math.Add(pool.LPSupply, minted)
	if err != nil {
		return nil, ErrReserveOverflow
	}
	if err := ledger.CheckSpendable(p.chain, tokenA, provider, amountA); err != nil {
		return nil, err
	}
	if err := ledger.CheckSpendable(p.chain, tokenB, provider, amountB); err != nil {
		return nil, err
	}
	shares, err := p.chain.GetShares(pool.ID, provider)
	if err != nil {
		return nil, err
	}

	if err := ledger.Lock(p.chain, tokenA, provider, pool.ID, amountA); err != nil {
		return nil, err
	}
	if err := ledger.Lock(p.chain, tokenB, provider, pool.ID, amountB); err != nil {
		return nil, err
	}
	if err := p.chain.SetShares(pool.ID, provider, shares+minted); err != nil {
		return nil, err
	}
	pool.ReserveA = newReserveA
	pool.ReserveB = newReserveB
	pool.LPSupply = newSupply
	pool.UpdatedAt = now
	if err := p.chain.PutPool(pool); err != nil {
		return nil, err
	}
	return &AddResult{
		Pool:     pool,
		AmountA:  amountA,
		AmountB:  amountB,
		LPMinted: minted,
	}, nil
}

func mintedShares(pool *state.Pool, amountA, amountB uint64) (uint64, error) {
	if pool.LPSupply == 0 {
		return math.SqrtProduct(amountA, amountB), nil
	}

	// amountB must be floor or ceil of amountA*reserveB/reserveA.
	low, err := math.MulDiv(amountA, pool.ReserveB, pool.ReserveA)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRatioMismatch, err)
	}
	high, err := math.MulDivRoundUp(amountA, pool.ReserveB, pool.ReserveA)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRatioMismatch, err)
	}
	if amountB < low || amountB > high {
		return 0, fmt.Errorf("%w: expected %d to %d of token B, got %d", ErrRatioMismatch, low, high, amountB)
	}

	minted, err := math.MulDiv(pool.LPSupply, amountA, pool.ReserveA)
	if err != nil {
		return 0, ErrReserveOverflow
	}
	if minted == 0 {
		return 0, ErrDepositTooSmall
	}
	return minted, nil
}

// RemoveResult describes a withdrawal. Amounts are in canonical token order.
type RemoveResult struct {
	Pool     *state.Pool `json:"pool"`
	AmountA  uint64      `json:"amountA"`
	AmountB  uint64      `json:"amountB"`
	LPBurned uint64      `json:"lpBurned"`
	// Closed is set when the withdrawal drained the pool and it was deleted.
	Closed bool `json:"closed"`
}

// RemoveLiquidity burns lpAmount of the provider's shares for the same
// fraction of each reserve, rounded down.
func (p *Pools) RemoveLiquidity(
	tokenA, tokenB ids.ID,
	lpAmount uint64,
	provider ids.ShortID,
	now uint64,
) (*RemoveResult, error) {
	if tokenA == tokenB {
		return nil, ErrSameToken
	}
	if lpAmount == 0 {
		return nil, ErrZeroAmount
	}
	pool, err := GetPool(p.chain, tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	shares, err := p.chain.GetShares(pool.ID, provider)
	if err != nil {
		return nil, err
	}
	if shares < lpAmount {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientShares, shares, lpAmount)
	}
	if lpAmount > pool.LPSupply {
		return nil, fmt.Errorf("%w: shares exceed pool supply", state.ErrCorrupted)
	}
	amountA, err := math.MulDiv(pool.ReserveA, lpAmount, pool.LPSupply)
	if err != nil {
		return nil, err
	}
	amountB, err := math.MulDiv(pool.ReserveB, lpAmount, pool.LPSupply)
	if err != nil {
		return nil, err
	}
	if amountA == 0 || amountB == 0 {
		return nil, ErrWithdrawalTooSmall
	}

	if err := ledger.Release(p.chain, pool.TokenA, pool.ID, provider, amountA); err != nil {
		return nil, err
	}
	if err := ledger.Release(p.chain, pool.TokenB, pool.ID, provider, amountB); err != nil {
		return nil, err
	}
	if err := p.chain.SetShares(pool.ID, provider, shares-lpAmount); err != nil {
		return nil, err
	}

	pool.ReserveA -= amountA
	pool.ReserveB -= amountB
	pool.LPSupply -= lpAmount
	pool.UpdatedAt = now
	result := &RemoveResult{
		Pool:     pool,
		AmountA:  amountA,
		AmountB:  amountB,
		LPBurned: lpAmount,
		Closed:   pool.LPSupply == 0,
	}
	if result.Closed {
		return result, p.chain.DeletePool(pool.ID)
	}
	return result, p.chain.PutPool(pool)
}

// GetPool returns the pool of an unordered token pair.
func GetPool(chain state.ReadOnlyChain, tokenA, tokenB ids.ID) (*state.Pool, error) {
	poolID := state.PoolID(tokenA, tokenB)
	pool, err := chain.GetPool(poolID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, poolID)
	}
	return pool, err
}
