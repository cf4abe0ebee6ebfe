// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package settlement executes matched trades.
//
// A settlement moves the base token from the seller's escrow to the buyer and
// the quote token from the buyer's escrow to the seller, the market's fee
// collector and, when the buyer bid above the execution price, back to the
// buyer. Every leg is checked before the first balance changes.
package settlement

import (
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/utils/math"
	"github.com/luxfi/carbon/vms/carbonvm/errs"
	"github.com/luxfi/carbon/vms/carbonvm/ledger"
	"github.com/luxfi/carbon/vms/carbonvm/orderbook"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

var (
	ErrNoPendingMatch   = fmt.Errorf("%w: order has no pending match", errs.ErrState)
	ErrMatchNotFound    = fmt.Errorf("%w: match not found", errs.ErrState)
	ErrQuantityExceeded = fmt.Errorf("%w: match exceeds remaining quantity", errs.ErrState)
	ErrQuoteOverflow    = fmt.Errorf("%w: quote amount overflows", errs.ErrValidation)
)

// Result describes a settled trade.
type Result struct {
	MatchID     ids.ID       `json:"matchID"`
	MarketID    ids.ID       `json:"marketID"`
	BuyOrder    *state.Order `json:"buyOrder"`
	SellOrder   *state.Order `json:"sellOrder"`
	Buyer       ids.ShortID  `json:"buyer"`
	Seller      ids.ShortID  `json:"seller"`
	Quantity    uint64       `json:"quantity"`
	Price       uint64       `json:"price"`
	QuoteAmount uint64       `json:"quoteAmount"`
	Fee         uint64       `json:"fee"`
	NetToSeller uint64       `json:"netToSeller"`
	// Refund is the price improvement returned to the buyer.
	Refund uint64 `json:"refund"`
}

// Fee returns floor(quoteAmount * feeRateBps / 10000).
func Fee(quoteAmount uint64, feeRateBps uint16) (uint64, error) {
	return math.MulDiv(quoteAmount, uint64(feeRateBps), state.MaxBasisPoints)
}

// SettleTrade settles the pending match of orderID, which may name either
// side of the match.
func SettleTrade(chain state.Chain, orderID ids.ID, now uint64) (*Result, error) {
	order, err := orderbook.GetOrder(chain, orderID)
	if err != nil {
		return nil, err
	}
	if !order.HasPendingMatch() {
		return nil, fmt.Errorf("%w: %s", ErrNoPendingMatch, order.ID)
	}
	match, err := chain.GetMatch(order.PendingMatch)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, order.PendingMatch)
	}
	if err != nil {
		return nil, err
	}
	return Settle(chain, match, now)
}

// Settle applies a match. Nothing is written unless every order, escrow and
// amount check passes.
func Settle(chain state.Chain, match *state.Match, now uint64) (*Result, error) {
	market, err := orderbook.GetMarket(chain, match.MarketID)
	if err != nil {
		return nil, err
	}
	buy, err := orderbook.GetOrder(chain, match.BuyOrderID)
	if err != nil {
		return nil, err
	}
	sell, err := orderbook.GetOrder(chain, match.SellOrderID)
	if err != nil {
		return nil, err
	}
	for _, order := range []*state.Order{buy, sell} {
		if !order.IsOpen() {
			return nil, fmt.Errorf("%w: %s is %s", orderbook.ErrOrderNotOpen, order.ID, order.Status)
		}
		if order.PendingMatch != match.ID {
			return nil, fmt.Errorf("%w: %s does not reference %s", ErrMatchNotFound, order.ID, match.ID)
		}
		if match.Quantity > order.Remaining() {
			return nil, fmt.Errorf("%w: %d > %d on %s", ErrQuantityExceeded, match.Quantity, order.Remaining(), order.ID)
		}
	}

	quoteAmount, err := math.Mul(match.Quantity, match.Price)
	if err != nil {
		return nil, ErrQuoteOverflow
	}
	buyerLocked, err := math.Mul(match.Quantity, buy.Price)
	if err != nil {
		return nil, ErrQuoteOverflow
	}
	fee, err := Fee(quoteAmount, market.FeeRateBps)
	if err != nil {
		return nil, ErrQuoteOverflow
	}
	result := &Result{
		MatchID:     match.ID,
		MarketID:    market.ID,
		BuyOrder:    buy,
		SellOrder:   sell,
		Buyer:       buy.Owner,
		Seller:      sell.Owner,
		Quantity:    match.Quantity,
		Price:       match.Price,
		QuoteAmount: quoteAmount,
		Fee:         fee,
		NetToSeller: quoteAmount - fee,
		Refund:      buyerLocked - quoteAmount,
	}

	if _, err := ledger.CheckEscrow(chain, market.BaseToken, sell.ID, match.Quantity); err != nil {
		return nil, err
	}
	if _, err := ledger.CheckEscrow(chain, market.QuoteToken, buy.ID, buyerLocked); err != nil {
		return nil, err
	}

	legs := []struct {
		tokenID ids.ID
		orderID ids.ID
		to      ids.ShortID
		amount  uint64
	}{
		{market.BaseToken, sell.ID, buy.Owner, result.Quantity},
		{market.QuoteToken, buy.ID, sell.Owner, result.NetToSeller},
		{market.QuoteToken, buy.ID, market.FeeCollector, result.Fee},
		{market.QuoteToken, buy.ID, buy.Owner, result.Refund},
	}
	for _, leg := range legs {
		if err := ledger.Release(chain, leg.tokenID, leg.orderID, leg.to, leg.amount); err != nil {
			return nil, err
		}
	}

	for _, order := range []*state.Order{buy, sell} {
		order.FilledQuantity += match.Quantity
		order.PendingMatch = ids.Empty
		order.UpdatedAt = now
		if order.Remaining() == 0 {
			order.Status = state.Filled
			if err := chain.RemoveRestingOrder(order); err != nil {
				return nil, err
			}
		}
		if err := chain.PutOrder(order); err != nil {
			return nil, err
		}
	}
	return result, chain.DeleteMatch(match.ID)
}
