// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"errors"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"

	"github.com/luxfi/carbon/vms/carbonvm/ledger"
	"github.com/luxfi/carbon/vms/carbonvm/liquidity"
	"github.com/luxfi/carbon/vms/carbonvm/orderbook"
	"github.com/luxfi/carbon/vms/carbonvm/settlement"
	"github.com/luxfi/carbon/vms/carbonvm/state"
	"github.com/luxfi/carbon/vms/carbonvm/txs"
)

var _ txs.Visitor = (*txExecutor)(nil)

// txExecutor routes each tx type to the component that implements it and
// remembers which tokens and orders the tx touched.
type txExecutor struct {
	*Backend

	chain  state.Chain
	signer ids.ShortID
	now    uint64

	result        any
	touchedTokens set.Set[ids.ID]
	touchedOrders set.Set[ids.ID]
	touchedPools  set.Set[ids.ID]
	// pre-swap copies of the pools the tx swapped against
	swappedPools map[ids.ID]*state.Pool

	trade   *settlement.Result
	retired *state.RetirementRecord
}

func (e *txExecutor) book() *orderbook.Book {
	return orderbook.New(e.chain, orderbook.Config{
		AllowSelfTrade: e.Config.AllowSelfTrade,
	})
}

func (e *txExecutor) pools() *liquidity.Pools {
	return liquidity.New(e.chain, liquidity.Config{
		SwapFeeBps: e.Config.SwapFeeBps,
	})
}

func (e *txExecutor) touchMarket(market *state.Market) {
	e.touchedTokens.Add(market.BaseToken, market.QuoteToken)
}

func (e *txExecutor) InitializeTokenTx(tx *txs.InitializeTokenTx) error {
	record, err := ledger.Initialize(e.chain, tx.Params(), e.signer, e.now)
	if err != nil {
		return err
	}
	e.touchedTokens.Add(tx.TokenID)
	e.result = record
	return nil
}

func (e *txExecutor) MintTx(tx *txs.MintTx) error {
	record, err := ledger.Mint(e.chain, tx.TokenID, tx.Amount, e.signer, tx.Recipient)
	if err != nil {
		return err
	}
	e.touchedTokens.Add(tx.TokenID)
	e.result = record
	return nil
}

func (e *txExecutor) BurnTx(tx *txs.BurnTx) error {
	record, err := ledger.Burn(e.chain, tx.TokenID, tx.Amount, e.signer, e.signer)
	if err != nil {
		return err
	}
	e.touchedTokens.Add(tx.TokenID)
	e.result = record
	return nil
}

func (e *txExecutor) RetireTx(tx *txs.RetireTx) error {
	record, err := ledger.Retire(e.chain, tx.TokenID, tx.Amount, e.signer, e.signer, e.now)
	if err != nil {
		return err
	}
	e.touchedTokens.Add(tx.TokenID)
	e.retired = record
	e.result = record
	return nil
}

func (e *txExecutor) TransferTx(tx *txs.TransferTx) error {
	if err := ledger.Transfer(e.chain, tx.TokenID, tx.Amount, e.signer, tx.To, e.signer); err != nil {
		return err
	}
	e.touchedTokens.Add(tx.TokenID)
	return nil
}

func (e *txExecutor) VerifyProjectTx(tx *txs.VerifyProjectTx) error {
	record, err := ledger.VerifyProject(e.chain, tx.TokenID, e.signer, e.now)
	e.result = record
	return err
}

func (e *txExecutor) UpdateMetadataTx(tx *txs.UpdateMetadataTx) error {
	record, err := ledger.UpdateMetadata(e.chain, tx.TokenID, ledger.MetadataUpdate{
		VintageYear:          tx.VintageYear,
		VerificationStandard: tx.VerificationStandard,
	}, e.signer)
	e.result = record
	return err
}

func (e *txExecutor) FreezeAccountTx(tx *txs.FreezeAccountTx) error {
	return ledger.SetFrozen(e.chain, tx.TokenID, tx.Holder, tx.Frozen, e.signer)
}

func (e *txExecutor) InitializeMarketTx(tx *txs.InitializeMarketTx) error {
	market, err := e.book().InitializeMarket(tx.Params(), e.signer, e.now)
	e.result = market
	return err
}

func (e *txExecutor) CreateOrderTx(tx *txs.CreateOrderTx) error {
	book := e.book()
	order, err := book.CreateOrder(tx.MarketID, e.signer, tx.Side, tx.Price, tx.Quantity, e.now)
	if err != nil {
		return err
	}
	market, err := book.GetMarket(order.MarketID)
	if err != nil {
		return err
	}
	e.touchMarket(market)
	e.touchedOrders.Add(order.ID)
	e.result = order
	return nil
}

func (e *txExecutor) CancelOrderTx(tx *txs.CancelOrderTx) error {
	book := e.book()
	order, err := book.GetOrder(tx.OrderID)
	if err != nil {
		return err
	}
	// The counterparty of a voided match loses its reference to it.
	if order.HasPendingMatch() {
		match, err := e.chain.GetMatch(order.PendingMatch)
		switch {
		case err == nil:
			e.touchedOrders.Add(match.Counterparty(order.ID))
		case !errors.Is(err, database.ErrNotFound):
			return err
		}
	}

	order, err = book.CancelOrder(tx.OrderID, e.signer, e.now)
	if err != nil {
		return err
	}
	market, err := book.GetMarket(order.MarketID)
	if err != nil {
		return err
	}
	e.touchMarket(market)
	e.touchedOrders.Add(order.ID)
	e.result = order
	return nil
}

func (e *txExecutor) MatchOrdersTx(tx *txs.MatchOrdersTx) error {
	match, err := e.book().MatchOrders(tx.BuyOrderID, tx.SellOrderID, tx.Quantity, e.now)
	if err != nil {
		return err
	}
	e.touchedOrders.Add(match.BuyOrderID, match.SellOrderID)
	e.result = match
	return nil
}

func (e *txExecutor) SettleTradeTx(tx *txs.SettleTradeTx) error {
	result, err := settlement.SettleTrade(e.chain, tx.OrderID, e.now)
	if err != nil {
		return err
	}
	market, err := orderbook.GetMarket(e.chain, result.MarketID)
	if err != nil {
		return err
	}
	e.touchMarket(market)
	e.touchedOrders.Add(result.BuyOrder.ID, result.SellOrder.ID)
	e.trade = result
	e.result = result
	return nil
}

func (e *txExecutor) ArchiveOrderTx(tx *txs.ArchiveOrderTx) error {
	order, err := e.book().ArchiveOrder(tx.OrderID, e.signer)
	e.result = order
	return err
}

func (e *txExecutor) AddLiquidityTx(tx *txs.AddLiquidityTx) error {
	result, err := e.pools().AddLiquidity(tx.TokenA, tx.TokenB, tx.AmountA, tx.AmountB, e.signer, e.now)
	if err != nil {
		return err
	}
	e.touchedTokens.Add(tx.TokenA, tx.TokenB)
	e.touchedPools.Add(state.PoolID(tx.TokenA, tx.TokenB))
	e.result = result
	return nil
}

func (e *txExecutor) RemoveLiquidityTx(tx *txs.RemoveLiquidityTx) error {
	result, err := e.pools().RemoveLiquidity(tx.TokenA, tx.TokenB, tx.LPAmount, e.signer, e.now)
	if err != nil {
		return err
	}
	e.touchedTokens.Add(tx.TokenA, tx.TokenB)
	e.touchedPools.Add(state.PoolID(tx.TokenA, tx.TokenB))
	e.result = result
	return nil
}

func (e *txExecutor) SwapTx(tx *txs.SwapTx) error {
	poolID := state.PoolID(tx.TokenIn, tx.TokenOut)
	before, err := e.chain.GetPool(poolID)
	switch {
	case err == nil:
		e.swappedPools[poolID] = before
	case !errors.Is(err, database.ErrNotFound):
		return err
	}

	result, err := e.pools().Swap(tx.TokenIn, tx.TokenOut, tx.AmountIn, tx.MinAmountOut, e.signer, e.now)
	if err != nil {
		return err
	}
	e.touchedTokens.Add(tx.TokenIn, tx.TokenOut)
	e.touchedPools.Add(poolID)
	e.result = result
	return nil
}

// observe reports domain metrics of a committed tx.
func (e *txExecutor) observe() {
	if e.trade != nil {
		e.Metrics.ObserveTrade(e.trade.QuoteAmount, e.trade.Fee)
	}
	if e.retired != nil {
		e.Metrics.ObserveRetirement(e.retired.Amount)
	}
}
