// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package orderbook

import (
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/vms/carbonvm/errs"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

var (
	ErrNotBuyOrder      = fmt.Errorf("%w: first order is not a buy", errs.ErrValidation)
	ErrNotSellOrder     = fmt.Errorf("%w: second order is not a sell", errs.ErrValidation)
	ErrMarketMismatch   = fmt.Errorf("%w: orders belong to different markets", errs.ErrValidation)
	ErrPricesDoNotCross = fmt.Errorf("%w: buy price is below sell price", errs.ErrValidation)
	ErrZeroProposal     = fmt.Errorf("%w: proposed quantity must be positive", errs.ErrValidation)
	ErrSelfTrade        = fmt.Errorf("%w: self-trade not allowed", errs.ErrValidation)
	ErrPendingMatch     = fmt.Errorf("%w: order already has a pending match", errs.ErrState)
)

// Maker returns whichever order rested first: the earlier creation time, or
// the lower sequence number when both were created in the same second.
func Maker(a, b *state.Order) *state.Order {
	switch {
	case a.CreatedAt < b.CreatedAt:
		return a
	case b.CreatedAt < a.CreatedAt:
		return b
	case a.Sequence <= b.Sequence:
		return a
	default:
		return b
	}
}

// MatchOrders pairs a buy with a crossing sell for
// min(remaining buy, remaining sell, proposed) units at the maker's price.
// The match is recorded on both orders and awaits settlement.
func (b *Book) MatchOrders(buyID, sellID ids.ID, proposed uint64, now uint64) (*state.Match, error) {
	buy, err := b.GetOrder(buyID)
	if err != nil {
		return nil, err
	}
	sell, err := b.GetOrder(sellID)
	if err != nil {
		return nil, err
	}
	if buy.Side != state.Buy {
		return nil, ErrNotBuyOrder
	}
	if sell.Side != state.Sell {
		return nil, ErrNotSellOrder
	}
	if buy.MarketID != sell.MarketID {
		return nil, ErrMarketMismatch
	}
	if !buy.IsOpen() {
		return nil, fmt.Errorf("%w: buy %s is %s", ErrOrderNotOpen, buy.ID, buy.Status)
	}
	if !sell.IsOpen() {
		return nil, fmt.Errorf("%w: sell %s is %s", ErrOrderNotOpen, sell.ID, sell.Status)
	}
	if buy.HasPendingMatch() {
		return nil, fmt.Errorf("%w: %s", ErrPendingMatch, buy.ID)
	}
	if sell.HasPendingMatch() {
		return nil, fmt.Errorf("%w: %s", ErrPendingMatch, sell.ID)
	}
	if buy.Price < sell.Price {
		return nil, fmt.Errorf("%w: %d < %d", ErrPricesDoNotCross, buy.Price, sell.Price)
	}
	if proposed == 0 {
		return nil, ErrZeroProposal
	}
	if !b.config.AllowSelfTrade && buy.Owner == sell.Owner {
		return nil, ErrSelfTrade
	}

	maker := Maker(buy, sell)
	match := &state.Match{
		ID:           state.MatchID(buy, sell),
		MarketID:     buy.MarketID,
		BuyOrderID:   buy.ID,
		SellOrderID:  sell.ID,
		MakerOrderID: maker.ID,
		Quantity:     min(buy.Remaining(), sell.Remaining(), proposed),
		Price:        maker.Price,
		CreatedAt:    now,
	}

	for _, order := range []*state.Order{buy, sell} {
		order.PendingMatch = match.ID
		order.UpdatedAt = now
		if err := b.chain.PutOrder(order); err != nil {
			return nil, err
		}
	}
	return match, b.chain.PutMatch(match)
}
