// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlement

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/vms/carbonvm/errs"
	"github.com/luxfi/carbon/vms/carbonvm/ledger"
	"github.com/luxfi/carbon/vms/carbonvm/orderbook"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

const now = 1_700_000_000

type testEnv struct {
	chain     *state.State
	book      *orderbook.Book
	authority ids.ShortID
	collector ids.ShortID
	buyer     ids.ShortID
	seller    ids.ShortID
	vcu       ids.ID
	cst       ids.ID
	market    *state.Market
}

func newTestEnv(t *testing.T, feeRateBps uint16) *testEnv {
	require := require.New(t)

	chain := state.New(memdb.New(), 0)
	env := &testEnv{
		chain:     chain,
		book:      orderbook.New(chain, orderbook.Config{}),
		authority: ids.GenerateTestShortID(),
		collector: ids.GenerateTestShortID(),
		buyer:     ids.GenerateTestShortID(),
		seller:    ids.GenerateTestShortID(),
		vcu:       ids.GenerateTestID(),
		cst:       ids.GenerateTestID(),
	}
	verifier := ids.GenerateTestShortID()
	_, err := ledger.Initialize(chain, ledger.TokenParams{
		TokenID:               env.vcu,
		Kind:                  state.CarbonUnit,
		Symbol:                "VCU",
		ProjectID:             "GS-4411",
		VerificationAuthority: verifier,
	}, env.authority, now)
	require.NoError(err)
	_, err = ledger.VerifyProject(chain, env.vcu, verifier, now)
	require.NoError(err)
	_, err = ledger.Mint(chain, env.vcu, 500, verifier, env.seller)
	require.NoError(err)

	_, err = ledger.Initialize(chain, ledger.TokenParams{
		TokenID:       env.cst,
		Kind:          state.Settlement,
		Symbol:        "CST",
		InitialSupply: 50_000,
	}, env.authority, now)
	require.NoError(err)
	require.NoError(ledger.Transfer(chain, env.cst, 5_000, env.authority, env.buyer, env.authority))

	env.market, err = env.book.InitializeMarket(orderbook.MarketParams{
		BaseToken:    env.vcu,
		QuoteToken:   env.cst,
		FeeRateBps:   feeRateBps,
		FeeCollector: env.collector,
	}, env.authority, now)
	require.NoError(err)
	return env
}

func (env *testEnv) balance(t *testing.T, tokenID ids.ID, holder ids.ShortID) uint64 {
	balance, err := env.chain.GetBalance(tokenID, holder)
	require.NoError(t, err)
	return balance
}

func (env *testEnv) audit(t *testing.T) {
	require.NoError(t, ledger.Audit(env.chain, env.vcu))
	require.NoError(t, ledger.Audit(env.chain, env.cst))
}

func TestFee(t *testing.T) {
	tests := []struct {
		quote uint64
		bps   uint16
		want  uint64
	}{
		{quote: 900, bps: 50, want: 4},
		{quote: 1_000, bps: 30, want: 3},
		{quote: 199, bps: 50, want: 0},
		{quote: 12_345, bps: 0, want: 0},
		{quote: 12_345, bps: state.MaxBasisPoints, want: 12_345},
	}
	for _, test := range tests {
		fee, err := Fee(test.quote, test.bps)
		require.NoError(t, err)
		require.Equal(t, test.want, fee)
	}
}

// A resting sell at 9 matched by a buy bidding 10 executes at the maker's 9.
func TestSettleMakerPriceWithFee(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, 50)

	sell, err := env.book.CreateOrder(env.market.ID, env.seller, state.Sell, 9, 100, now)
	require.NoError(err)
	buy, err := env.book.CreateOrder(env.market.ID, env.buyer, state.Buy, 10, 100, now+1)
	require.NoError(err)

	match, err := env.book.MatchOrders(buy.ID, sell.ID, 100, now+2)
	require.NoError(err)
	require.Equal(uint64(9), match.Price)

	result, err := SettleTrade(env.chain, buy.ID, now+3)
	require.NoError(err)
	require.Equal(uint64(100), result.Quantity)
	require.Equal(uint64(900), result.QuoteAmount)
	require.Equal(uint64(4), result.Fee)
	require.Equal(uint64(896), result.NetToSeller)
	require.Equal(uint64(100), result.Refund)

	require.Equal(uint64(896), env.balance(t, env.cst, env.seller))
	require.Equal(uint64(4), env.balance(t, env.cst, env.collector))
	require.Equal(uint64(5_000-900), env.balance(t, env.cst, env.buyer))
	require.Equal(uint64(100), env.balance(t, env.vcu, env.buyer))
	require.Equal(uint64(400), env.balance(t, env.vcu, env.seller))

	for _, orderID := range []ids.ID{buy.ID, sell.ID} {
		order, err := env.book.GetOrder(orderID)
		require.NoError(err)
		require.Equal(state.Filled, order.Status)
		require.Equal(uint64(100), order.FilledQuantity)
		require.False(order.HasPendingMatch())
	}
	escrow, err := env.chain.GetEscrow(env.cst, buy.ID)
	require.NoError(err)
	require.Zero(escrow)

	_, err = env.chain.GetMatch(match.ID)
	require.Error(err)
	levels, err := orderbook.Depth(env.chain, env.market.ID, state.Buy, 0)
	require.NoError(err)
	require.Empty(levels)
	env.audit(t)
}

func TestSettlePartialFills(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, 0)

	buy, err := env.book.CreateOrder(env.market.ID, env.buyer, state.Buy, 7, 100, now)
	require.NoError(err)
	sell, err := env.book.CreateOrder(env.market.ID, env.seller, state.Sell, 7, 30, now)
	require.NoError(err)

	_, err = env.book.MatchOrders(buy.ID, sell.ID, 100, now)
	require.NoError(err)
	_, err = SettleTrade(env.chain, sell.ID, now)
	require.NoError(err)

	buy, err = env.book.GetOrder(buy.ID)
	require.NoError(err)
	require.Equal(state.Open, buy.Status)
	require.Equal(uint64(70), buy.Remaining())
	escrow, err := env.chain.GetEscrow(env.cst, buy.ID)
	require.NoError(err)
	require.Equal(uint64(70*7), escrow)

	second, err := env.book.CreateOrder(env.market.ID, env.seller, state.Sell, 6, 70, now+1)
	require.NoError(err)
	match, err := env.book.MatchOrders(buy.ID, second.ID, 70, now+2)
	require.NoError(err)
	require.Equal(uint64(7), match.Price)

	_, err = SettleTrade(env.chain, buy.ID, now+3)
	require.NoError(err)
	buy, err = env.book.GetOrder(buy.ID)
	require.NoError(err)
	require.Equal(state.Filled, buy.Status)
	require.Equal(uint64(5_000-700), env.balance(t, env.cst, env.buyer))
	env.audit(t)
}

func TestSettleTradeRejections(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, 25)

	sell, err := env.book.CreateOrder(env.market.ID, env.seller, state.Sell, 5, 10, now)
	require.NoError(err)
	buy, err := env.book.CreateOrder(env.market.ID, env.buyer, state.Buy, 5, 10, now)
	require.NoError(err)

	_, err = SettleTrade(env.chain, buy.ID, now)
	require.ErrorIs(err, ErrNoPendingMatch)
	require.ErrorIs(err, errs.ErrState)

	_, err = SettleTrade(env.chain, ids.GenerateTestID(), now)
	require.ErrorIs(err, orderbook.ErrOrderNotFound)

	_, err = env.book.MatchOrders(buy.ID, sell.ID, 10, now)
	require.NoError(err)

	// Drain the seller's escrow behind the book's back: settlement must fail
	// without moving anything.
	require.NoError(env.chain.SetEscrow(env.vcu, sell.ID, 3))
	buyerBefore := env.balance(t, env.cst, env.buyer)
	_, err = SettleTrade(env.chain, buy.ID, now)
	require.ErrorIs(err, ledger.ErrInsufficientEscrow)
	require.ErrorIs(err, errs.ErrResource)
	require.Equal(buyerBefore, env.balance(t, env.cst, env.buyer))
	require.Zero(env.balance(t, env.vcu, env.buyer))
	escrow, err := env.chain.GetEscrow(env.cst, buy.ID)
	require.NoError(err)
	require.Equal(uint64(50), escrow)
}

func TestSettleAfterCancelRejected(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, 0)

	sell, err := env.book.CreateOrder(env.market.ID, env.seller, state.Sell, 5, 10, now)
	require.NoError(err)
	buy, err := env.book.CreateOrder(env.market.ID, env.buyer, state.Buy, 5, 10, now)
	require.NoError(err)
	_, err = env.book.MatchOrders(buy.ID, sell.ID, 10, now)
	require.NoError(err)

	_, err = env.book.CancelOrder(buy.ID, env.buyer, now)
	require.NoError(err)

	_, err = SettleTrade(env.chain, sell.ID, now)
	require.ErrorIs(err, ErrNoPendingMatch)
	_, err = SettleTrade(env.chain, buy.ID, now)
	require.ErrorIs(err, ErrNoPendingMatch)
	env.audit(t)
}
