// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import "github.com/luxfi/ids"

var (
	_ UnsignedTx = (*AddLiquidityTx)(nil)
	_ UnsignedTx = (*RemoveLiquidityTx)(nil)
	_ UnsignedTx = (*SwapTx)(nil)
)

// AddLiquidityTx deposits both tokens of a pair from the signer, creating
// the pool on first deposit.
type AddLiquidityTx struct {
	TokenA  ids.ID `serialize:"true" json:"tokenA"`
	TokenB  ids.ID `serialize:"true" json:"tokenB"`
	AmountA uint64 `serialize:"true" json:"amountA"`
	AmountB uint64 `serialize:"true" json:"amountB"`
}

func (*AddLiquidityTx) Type() TxType { return AddLiquidity }

func (tx *AddLiquidityTx) SyntacticVerify() error {
	if err := pair(tx.TokenA, tx.TokenB); err != nil {
		return err
	}
	return positive(tx.AmountA, tx.AmountB)
}

func (tx *AddLiquidityTx) Visit(v Visitor) error {
	return v.AddLiquidityTx(tx)
}

// RemoveLiquidityTx burns LP shares of the signer.
type RemoveLiquidityTx struct {
	TokenA   ids.ID `serialize:"true" json:"tokenA"`
	TokenB   ids.ID `serialize:"true" json:"tokenB"`
	LPAmount uint64 `serialize:"true" json:"lpAmount"`
}

func (*RemoveLiquidityTx) Type() TxType { return RemoveLiquidity }

func (tx *RemoveLiquidityTx) SyntacticVerify() error {
	if err := pair(tx.TokenA, tx.TokenB); err != nil {
		return err
	}
	return positive(tx.LPAmount)
}

func (tx *RemoveLiquidityTx) Visit(v Visitor) error {
	return v.RemoveLiquidityTx(tx)
}

type SwapTx struct {
	TokenIn      ids.ID `serialize:"true" json:"tokenIn"`
	TokenOut     ids.ID `serialize:"true" json:"tokenOut"`
	AmountIn     uint64 `serialize:"true" json:"amountIn"`
	MinAmountOut uint64 `serialize:"true" json:"minAmountOut"`
}

func (*SwapTx) Type() TxType { return Swap }

func (tx *SwapTx) SyntacticVerify() error {
	if err := pair(tx.TokenIn, tx.TokenOut); err != nil {
		return err
	}
	return positive(tx.AmountIn)
}

func (tx *SwapTx) Visit(v Visitor) error {
	return v.SwapTx(tx)
}

func pair(tokenA, tokenB ids.ID) error {
	if err := nonEmpty(tokenA, tokenB); err != nil {
		return err
	}
	if tokenA == tokenB {
		return ErrSameToken
	}
	return nil
}
