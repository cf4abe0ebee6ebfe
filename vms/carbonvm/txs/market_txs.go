// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/vms/carbonvm/orderbook"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

var (
	_ UnsignedTx = (*InitializeMarketTx)(nil)
	_ UnsignedTx = (*CreateOrderTx)(nil)
	_ UnsignedTx = (*CancelOrderTx)(nil)
	_ UnsignedTx = (*MatchOrdersTx)(nil)
	_ UnsignedTx = (*SettleTradeTx)(nil)
	_ UnsignedTx = (*ArchiveOrderTx)(nil)
)

// InitializeMarketTx opens a market trading BaseToken against QuoteToken.
// The signer becomes the market authority.
type InitializeMarketTx struct {
	BaseToken    ids.ID      `serialize:"true" json:"baseToken"`
	QuoteToken   ids.ID      `serialize:"true" json:"quoteToken"`
	FeeRateBps   uint16      `serialize:"true" json:"feeRateBps"`
	FeeCollector ids.ShortID `serialize:"true" json:"feeCollector"`
}

func (*InitializeMarketTx) Type() TxType { return InitializeMarket }

func (tx *InitializeMarketTx) SyntacticVerify() error {
	if err := nonEmpty(tx.BaseToken, tx.QuoteToken); err != nil {
		return err
	}
	if tx.BaseToken == tx.QuoteToken {
		return ErrSameToken
	}
	return nil
}

func (tx *InitializeMarketTx) Visit(v Visitor) error {
	return v.InitializeMarketTx(tx)
}

func (tx *InitializeMarketTx) Params() orderbook.MarketParams {
	return orderbook.MarketParams{
		BaseToken:    tx.BaseToken,
		QuoteToken:   tx.QuoteToken,
		FeeRateBps:   tx.FeeRateBps,
		FeeCollector: tx.FeeCollector,
	}
}

// CreateOrderTx places a limit order owned by the signer and escrows its
// funds.
type CreateOrderTx struct {
	MarketID ids.ID     `serialize:"true" json:"marketID"`
	Side     state.Side `serialize:"true" json:"side"`
	Price    uint64     `serialize:"true" json:"price"`
	Quantity uint64     `serialize:"true" json:"quantity"`
}

func (*CreateOrderTx) Type() TxType { return CreateOrder }

func (tx *CreateOrderTx) SyntacticVerify() error {
	if err := nonEmpty(tx.MarketID); err != nil {
		return err
	}
	if err := tx.Side.Verify(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEnum, err)
	}
	return positive(tx.Price, tx.Quantity)
}

func (tx *CreateOrderTx) Visit(v Visitor) error {
	return v.CreateOrderTx(tx)
}

type CancelOrderTx struct {
	OrderID ids.ID `serialize:"true" json:"orderID"`
}

func (*CancelOrderTx) Type() TxType { return CancelOrder }

func (tx *CancelOrderTx) SyntacticVerify() error {
	return nonEmpty(tx.OrderID)
}

func (tx *CancelOrderTx) Visit(v Visitor) error {
	return v.CancelOrderTx(tx)
}

// MatchOrdersTx proposes a fill of Quantity between a crossing buy and sell.
// Anyone may match.
type MatchOrdersTx struct {
	BuyOrderID  ids.ID `serialize:"true" json:"buyOrderID"`
	SellOrderID ids.ID `serialize:"true" json:"sellOrderID"`
	Quantity    uint64 `serialize:"true" json:"quantity"`
}

func (*MatchOrdersTx) Type() TxType { return MatchOrders }

func (tx *MatchOrdersTx) SyntacticVerify() error {
	if err := nonEmpty(tx.BuyOrderID, tx.SellOrderID); err != nil {
		return err
	}
	return positive(tx.Quantity)
}

func (tx *MatchOrdersTx) Visit(v Visitor) error {
	return v.MatchOrdersTx(tx)
}

// SettleTradeTx settles the pending match of either of its orders.
type SettleTradeTx struct {
	OrderID ids.ID `serialize:"true" json:"orderID"`
}

func (*SettleTradeTx) Type() TxType { return SettleTrade }

func (tx *SettleTradeTx) SyntacticVerify() error {
	return nonEmpty(tx.OrderID)
}

func (tx *SettleTradeTx) Visit(v Visitor) error {
	return v.SettleTradeTx(tx)
}

// ArchiveOrderTx deletes a filled or cancelled order of the signer.
type ArchiveOrderTx struct {
	OrderID ids.ID `serialize:"true" json:"orderID"`
}

func (*ArchiveOrderTx) Type() TxType { return ArchiveOrder }

func (tx *ArchiveOrderTx) SyntacticVerify() error {
	return nonEmpty(tx.OrderID)
}

func (tx *ArchiveOrderTx) Visit(v Visitor) error {
	return v.ArchiveOrderTx(tx)
}
