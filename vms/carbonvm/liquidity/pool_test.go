// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package liquidity

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/vms/carbonvm/errs"
	"github.com/luxfi/carbon/vms/carbonvm/ledger"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

const now = 1_700_000_000

type testEnv struct {
	chain    *state.State
	pools    *Pools
	provider ids.ShortID
	trader   ids.ShortID
	tokenA   ids.ID
	tokenB   ids.ID
}

func newTestEnv(t *testing.T, feeBps uint16) *testEnv {
	require := require.New(t)

	chain := state.New(memdb.New(), 0)
	tokenA, tokenB := state.SortTokens(ids.GenerateTestID(), ids.GenerateTestID())
	env := &testEnv{
		chain:    chain,
		pools:    New(chain, Config{SwapFeeBps: feeBps}),
		provider: ids.GenerateTestShortID(),
		trader:   ids.GenerateTestShortID(),
		tokenA:   tokenA,
		tokenB:   tokenB,
	}
	for _, tokenID := range []ids.ID{tokenA, tokenB} {
		_, err := ledger.Initialize(chain, ledger.TokenParams{
			TokenID:       tokenID,
			Kind:          state.Settlement,
			Symbol:        "TKN",
			InitialSupply: 1_000_000,
		}, env.provider, now)
		require.NoError(err)
		require.NoError(ledger.Transfer(chain, tokenID, 10_000, env.provider, env.trader, env.provider))
	}
	return env
}

func (env *testEnv) balance(t *testing.T, tokenID ids.ID, holder ids.ShortID) uint64 {
	balance, err := env.chain.GetBalance(tokenID, holder)
	require.NoError(t, err)
	return balance
}

func (env *testEnv) reserve(t *testing.T, tokenID ids.ID) uint64 {
	escrow, err := env.chain.GetEscrow(tokenID, state.PoolID(env.tokenA, env.tokenB))
	require.NoError(t, err)
	return escrow
}

func (env *testEnv) shares(t *testing.T, holder ids.ShortID) uint64 {
	shares, err := env.chain.GetShares(state.PoolID(env.tokenA, env.tokenB), holder)
	require.NoError(t, err)
	return shares
}

func (env *testEnv) audit(t *testing.T) {
	require.NoError(t, ledger.Audit(env.chain, env.tokenA))
	require.NoError(t, ledger.Audit(env.chain, env.tokenB))
}

func TestAddLiquidityInitial(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, 30)

	result, err := env.pools.AddLiquidity(env.tokenA, env.tokenB, 1_000, 4_000, env.provider, now)
	require.NoError(err)
	require.Equal(uint64(2_000), result.LPMinted)
	require.Equal(uint64(1_000), result.Pool.ReserveA)
	require.Equal(uint64(4_000), result.Pool.ReserveB)
	require.Equal(uint64(2_000), result.Pool.LPSupply)
	require.Equal(uint16(30), result.Pool.FeeBps)
	require.Equal(uint64(2_000), env.shares(t, env.provider))

	require.Equal(uint64(1_000), env.reserve(t, env.tokenA))
	require.Equal(uint64(4_000), env.reserve(t, env.tokenB))
	env.audit(t)
}

func TestAddLiquidityReversedPair(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, 0)

	result, err := env.pools.AddLiquidity(env.tokenB, env.tokenA, 4_000, 1_000, env.provider, now)
	require.NoError(err)
	require.Equal(env.tokenA, result.Pool.TokenA)
	require.Equal(uint64(1_000), result.Pool.ReserveA)
	require.Equal(uint64(4_000), result.Pool.ReserveB)
}

func TestAddLiquidityProportional(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, 0)

	_, err := env.pools.AddLiquidity(env.tokenA, env.tokenB, 1_000, 4_000, env.provider, now)
	require.NoError(err)

	result, err := env.pools.AddLiquidity(env.tokenA, env.tokenB, 500, 2_000, env.trader, now+1)
	require.NoError(err)
	require.Equal(uint64(1_000), result.LPMinted)
	require.Equal(uint64(3_000), result.Pool.LPSupply)
	require.Equal(uint64(1_000), env.shares(t, env.trader))

	_, err = env.pools.AddLiquidity(env.tokenA, env.tokenB, 500, 2_001, env.trader, now+2)
	require.ErrorIs(err, ErrRatioMismatch)
	require.ErrorIs(err, errs.ErrValidation)
	require.Equal(uint64(1_000), env.shares(t, env.trader))
	env.audit(t)
}

func TestAddLiquidityRoundingTolerance(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, 0)

	_, err := env.pools.AddLiquidity(env.tokenA, env.tokenB, 3, 10, env.provider, now)
	require.NoError(err)

	// 1 * 10 / 3 = 3.33, so both 3 and 4 are accepted.
	_, err = env.pools.AddLiquidity(env.tokenA, env.tokenB, 1, 3, env.trader, now)
	require.NoError(err)
	_, err = env.pools.AddLiquidity(env.tokenA, env.tokenB, 1, 5, env.trader, now)
	require.ErrorIs(err, ErrRatioMismatch)
}

func TestAddLiquidityRejections(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, 0)

	_, err := env.pools.AddLiquidity(env.tokenA, env.tokenA, 1, 1, env.provider, now)
	require.ErrorIs(err, ErrSameToken)

	_, err = env.pools.AddLiquidity(env.tokenA, env.tokenB, 0, 1, env.provider, now)
	require.ErrorIs(err, ErrZeroAmount)

	_, err = env.pools.AddLiquidity(env.tokenA, env.tokenB, 20_000, 20_000, env.trader, now)
	require.ErrorIs(err, ledger.ErrInsufficientBalance)
	require.ErrorIs(err, errs.ErrResource)

	_, err = env.pools.AddLiquidity(env.tokenA, ids.GenerateTestID(), 1, 1, env.provider, now)
	require.ErrorIs(err, ledger.ErrTokenNotInitialized)

	_, err = GetPool(env.chain, env.tokenA, env.tokenB)
	require.ErrorIs(err, ErrPoolNotFound)

	// 100 shares over a reserve of 1000: one unit of token A is worth 0.1 shares.
	_, err = env.pools.AddLiquidity(env.tokenA, env.tokenB, 1_000, 10, env.provider, now)
	require.NoError(err)
	_, err = env.pools.AddLiquidity(env.tokenA, env.tokenB, 1, 1, env.trader, now)
	require.ErrorIs(err, ErrDepositTooSmall)

	_, err = New(env.chain, Config{SwapFeeBps: state.MaxBasisPoints + 1}).AddLiquidity(env.tokenA, env.tokenB, 1, 1, env.trader, now)
	require.ErrorIs(err, ErrInvalidFee)
}

func TestRemoveLiquidity(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, 0)

	_, err := env.pools.AddLiquidity(env.tokenA, env.tokenB, 1_000, 4_000, env.provider, now)
	require.NoError(err)
	_, err = env.pools.AddLiquidity(env.tokenA, env.tokenB, 500, 2_000, env.trader, now)
	require.NoError(err)

	_, err = env.pools.RemoveLiquidity(env.tokenA, env.tokenB, 1_001, env.trader, now)
	require.ErrorIs(err, ErrInsufficientShares)
	require.ErrorIs(err, errs.ErrResource)

	_, err = env.pools.RemoveLiquidity(env.tokenA, env.tokenB, 0, env.trader, now)
	require.ErrorIs(err, ErrZeroAmount)

	traderA := env.balance(t, env.tokenA, env.trader)
	result, err := env.pools.RemoveLiquidity(env.tokenB, env.tokenA, 300, env.trader, now+1)
	require.NoError(err)
	require.Equal(uint64(150), result.AmountA)
	require.Equal(uint64(600), result.AmountB)
	require.False(result.Closed)
	require.Equal(uint64(1_350), result.Pool.ReserveA)
	require.Equal(uint64(5_400), result.Pool.ReserveB)
	require.Equal(uint64(2_700), result.Pool.LPSupply)
	require.Equal(traderA+150, env.balance(t, env.tokenA, env.trader))
	require.Equal(uint64(700), env.shares(t, env.trader))
	env.audit(t)

	_, err = env.pools.RemoveLiquidity(env.tokenA, env.tokenB, 700, env.trader, now+2)
	require.NoError(err)
	result, err = env.pools.RemoveLiquidity(env.tokenA, env.tokenB, 2_000, env.provider, now+3)
	require.NoError(err)
	require.True(result.Closed)
	require.Zero(result.Pool.ReserveA)
	require.Zero(result.Pool.ReserveB)

	_, err = GetPool(env.chain, env.tokenA, env.tokenB)
	require.ErrorIs(err, ErrPoolNotFound)
	require.Zero(env.reserve(t, env.tokenA))
	env.audit(t)

	_, err = env.pools.RemoveLiquidity(env.tokenA, env.tokenB, 1, env.provider, now)
	require.ErrorIs(err, ErrPoolNotFound)
	require.ErrorIs(err, errs.ErrState)
}

func TestRemoveLiquidityTooSmall(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, 0)

	_, err := env.pools.AddLiquidity(env.tokenA, env.tokenB, 10, 1_000, env.provider, now)
	require.NoError(err)

	// 100 shares: one share is worth 0.1 of token A.
	_, err = env.pools.RemoveLiquidity(env.tokenA, env.tokenB, 1, env.provider, now)
	require.ErrorIs(err, ErrWithdrawalTooSmall)
}

func TestSwap(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, 30)

	_, err := env.pools.AddLiquidity(env.tokenA, env.tokenB, 10_000, 10_000, env.provider, now)
	require.NoError(err)

	quoted, err := Quote(env.chain, env.tokenA, env.tokenB, 1_000)
	require.NoError(err)
	// 10000 * 1000 * 9970 / (10000 * 10000 + 1000 * 9970) = 906.6
	require.Equal(uint64(906), quoted.AmountOut)
	require.Equal(uint64(3), quoted.Fee)

	_, err = env.pools.Swap(env.tokenA, env.tokenB, 1_000, 907, env.trader, now)
	require.ErrorIs(err, ErrSlippageExceeded)
	require.ErrorIs(err, errs.ErrResource)

	result, err := env.pools.Swap(env.tokenA, env.tokenB, 1_000, 906, env.trader, now)
	require.NoError(err)
	require.Equal(quoted, result)
	require.Equal(uint64(9_000), env.balance(t, env.tokenA, env.trader))
	require.Equal(uint64(10_906), env.balance(t, env.tokenB, env.trader))

	pool, err := GetPool(env.chain, env.tokenA, env.tokenB)
	require.NoError(err)
	require.Equal(uint64(11_000), pool.ReserveA)
	require.Equal(uint64(9_094), pool.ReserveB)
	require.Equal(uint64(11_000), env.reserve(t, env.tokenA))
	require.Equal(uint64(9_094), env.reserve(t, env.tokenB))

	// The product never decreases.
	require.GreaterOrEqual(pool.ReserveA*pool.ReserveB, uint64(10_000*10_000))
	env.audit(t)
}

func TestSwapRejections(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, 0)

	_, err := env.pools.Swap(env.tokenA, env.tokenB, 10, 0, env.trader, now)
	require.ErrorIs(err, ErrPoolNotFound)

	_, err = env.pools.AddLiquidity(env.tokenA, env.tokenB, 100, 100, env.provider, now)
	require.NoError(err)

	_, err = env.pools.Swap(env.tokenA, env.tokenA, 10, 0, env.trader, now)
	require.ErrorIs(err, ErrSameToken)

	_, err = env.pools.Swap(env.tokenA, env.tokenB, 0, 0, env.trader, now)
	require.ErrorIs(err, ErrZeroAmount)

	_, err = Quote(env.chain, env.tokenA, env.tokenB, 1)
	require.ErrorIs(err, ErrInsufficientLiquidity)

	_, err = env.pools.Swap(env.tokenA, env.tokenB, 20_000, 0, env.trader, now)
	require.ErrorIs(err, ledger.ErrInsufficientBalance)
}

// Depositing k times the reserves mints k times the LP supply, and
// withdrawing those shares again never returns more than was deposited.
func TestProportionalDepositScaling(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		require := require.New(t)

		chain := state.New(memdb.New(), 0)
		tokenA, tokenB := state.SortTokens(ids.GenerateTestID(), ids.GenerateTestID())
		provider := ids.GenerateTestShortID()
		for _, tokenID := range []ids.ID{tokenA, tokenB} {
			_, err := ledger.Initialize(chain, ledger.TokenParams{
				TokenID:       tokenID,
				Kind:          state.Settlement,
				Symbol:        "TKN",
				InitialSupply: 1 << 40,
			}, provider, now)
			require.NoError(err)
		}
		pools := New(chain, Config{})

		reserveA := rapid.Uint64Range(1, 1<<20).Draw(t, "reserveA")
		reserveB := rapid.Uint64Range(1, 1<<20).Draw(t, "reserveB")
		k := rapid.Uint64Range(1, 8).Draw(t, "k")

		initial, err := pools.AddLiquidity(tokenA, tokenB, reserveA, reserveB, provider, now)
		require.NoError(err)
		supply := initial.Pool.LPSupply

		second, err := pools.AddLiquidity(tokenA, tokenB, k*reserveA, k*reserveB, provider, now)
		require.NoError(err)
		require.Equal(k*supply, second.LPMinted)

		removed, err := pools.RemoveLiquidity(tokenA, tokenB, second.LPMinted, provider, now)
		require.NoError(err)
		require.LessOrEqual(removed.AmountA, k*reserveA)
		require.LessOrEqual(removed.AmountB, k*reserveB)

		require.NoError(ledger.Audit(chain, tokenA))
		require.NoError(ledger.Audit(chain, tokenB))
	})
}
