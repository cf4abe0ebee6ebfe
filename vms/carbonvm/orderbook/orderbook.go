// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package orderbook manages markets and their limit orders.
//
// Orders escrow their funds when created. Matching two crossing orders only
// records a pending match; balances move when the match is settled.
package orderbook

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
	ErrMarketExists      = fmt.Errorf("%w: market already initialized", errs.ErrDuplicateInitialization)
	ErrMarketNotFound    = fmt.Errorf("%w: market not found", errs.ErrState)
	ErrInvalidFeeRate    = fmt.Errorf("%w: fee rate exceeds %d basis points", errs.ErrValidation, state.MaxBasisPoints)
	ErrSameToken         = fmt.Errorf("%w: base and quote tokens must differ", errs.ErrValidation)
	ErrOrderNotFound     = fmt.Errorf("%w: order not found", errs.ErrState)
	ErrInvalidSide       = fmt.Errorf("%w: unknown order side", errs.ErrValidation)
	ErrInvalidPrice      = fmt.Errorf("%w: price must be positive", errs.ErrValidation)
	ErrInvalidQuantity   = fmt.Errorf("%w: quantity must be positive", errs.ErrValidation)
	ErrNotionalOverflow  = fmt.Errorf("%w: price times quantity overflows", errs.ErrValidation)
	ErrNotOwner          = fmt.Errorf("%w: signer does not own the order", errs.ErrAuthorization)
	ErrOrderNotOpen      = fmt.Errorf("%w: order is not open", errs.ErrState)
	ErrOrderNotTerminal  = fmt.Errorf("%w: order is still open", errs.ErrState)
	ErrEscrowOutstanding = fmt.Errorf("%w: order still holds escrow", errs.ErrState)
)

// Config holds the market rules that are not stored per market.
type Config struct {
	// AllowSelfTrade permits matching two orders with the same owner.
	AllowSelfTrade bool
}

// Book applies order book operations to a chain.
type Book struct {
	chain  state.Chain
	config Config
}

// New returns a book operating on chain.
func New(chain state.Chain, config Config) *Book {
	return &Book{
		chain:  chain,
		config: config,
	}
}

// MarketParams describes a market at initialization. The signer becomes its
// authority.
type MarketParams struct {
	BaseToken  ids.ID
	QuoteToken ids.ID
	FeeRateBps uint16
	// FeeCollector receives trading fees. ids.ShortEmpty selects the
	// authority.
	FeeCollector ids.ShortID
}

// InitializeMarket creates the market for a token pair.
func (b *Book) InitializeMarket(params MarketParams, authority ids.ShortID, now uint64) (*state.Market, error) {
	if params.FeeRateBps > state.MaxBasisPoints {
		return nil, ErrInvalidFeeRate
	}
	if params.BaseToken == params.QuoteToken {
		return nil, ErrSameToken
	}
	if _, err := ledger.GetMint(b.chain, params.BaseToken); err != nil {
		return nil, fmt.Errorf("base token: %w", err)
	}
	if _, err := ledger.GetMint(b.chain, params.QuoteToken); err != nil {
		return nil, fmt.Errorf("quote token: %w", err)
	}

	marketID := state.MarketID(params.BaseToken, params.QuoteToken)
	switch _, err := b.chain.GetMarket(marketID); {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrMarketExists, marketID)
	case !errors.Is(err, database.ErrNotFound):
		return nil, err
	}

	feeCollector := params.FeeCollector
	if feeCollector == ids.ShortEmpty {
		feeCollector = authority
	}
	market := &state.Market{
		ID:           marketID,
		Authority:    authority,
		BaseToken:    params.BaseToken,
		QuoteToken:   params.QuoteToken,
		FeeRateBps:   params.FeeRateBps,
		FeeCollector: feeCollector,
		CreatedAt:    now,
	}
	return market, b.chain.PutMarket(market)
}

// CreateOrder places a limit order and escrows its funds: price*quantity of
// the quote token for a buy, quantity of the base token for a sell.
func (b *Book) CreateOrder(
	marketID ids.ID,
	owner ids.ShortID,
	side state.Side,
	price uint64,
	quantity uint64,
	now uint64,
) (*state.Order, error) {
	market, err := b.GetMarket(marketID)
	if err != nil {
		return nil, err
	}
	if err := side.Verify(); err != nil {
		return nil, ErrInvalidSide
	}
	if price == 0 {
		return nil, ErrInvalidPrice
	}
	if quantity == 0 {
		return nil, ErrInvalidQuantity
	}
	notional, err := math.Mul(price, quantity)
	if err != nil {
		return nil, ErrNotionalOverflow
	}

	escrowToken, escrowAmount := market.BaseToken, quantity
	if side == state.Buy {
		escrowToken, escrowAmount = market.QuoteToken, notional
	}
	if err := ledger.CheckSpendable(b.chain, escrowToken, owner, escrowAmount); err != nil {
		return nil, err
	}

	order := &state.Order{
		ID:        state.OrderID(market.ID, market.OrdersCount),
		Owner:     owner,
		MarketID:  market.ID,
		Side:      side,
		Price:     price,
		Quantity:  quantity,
		Status:    state.Open,
		CreatedAt: now,
		UpdatedAt: now,
		Sequence:  market.OrdersCount,
	}
	market.OrdersCount++

	if err := ledger.Lock(b.chain, escrowToken, owner, order.ID, escrowAmount); err != nil {
		return nil, err
	}
	if err := b.chain.PutMarket(market); err != nil {
		return nil, err
	}
	if err := b.chain.PutOrder(order); err != nil {
		return nil, err
	}
	return order, b.chain.AddRestingOrder(order)
}

// CancelOrder closes an open order, returns its escrow to the owner and
// voids any match awaiting settlement.
func (b *Book) CancelOrder(orderID ids.ID, requester ids.ShortID, now uint64) (*state.Order, error) {
	order, err := b.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.Owner != requester {
		return nil, ErrNotOwner
	}
	if !order.IsOpen() {
		return nil, fmt.Errorf("%w: %s is %s", ErrOrderNotOpen, order.ID, order.Status)
	}
	market, err := b.GetMarket(order.MarketID)
	if err != nil {
		return nil, err
	}
	escrowToken := market.BaseToken
	if order.Side == state.Buy {
		escrowToken = market.QuoteToken
	}
	escrow, err := b.chain.GetEscrow(escrowToken, order.ID)
	if err != nil {
		return nil, err
	}

	if order.HasPendingMatch() {
		if err := b.voidMatch(order, now); err != nil {
			return nil, err
		}
	}
	if err := ledger.Release(b.chain, escrowToken, order.ID, order.Owner, escrow); err != nil {
		return nil, err
	}
	if err := b.chain.RemoveRestingOrder(order); err != nil {
		return nil, err
	}
	order.Status = state.Cancelled
	order.PendingMatch = ids.Empty
	order.UpdatedAt = now
	return order, b.chain.PutOrder(order)
}

// voidMatch deletes the pending match of order and clears it from the
// counterparty.
func (b *Book) voidMatch(order *state.Order, now uint64) error {
	match, err := b.chain.GetMatch(order.PendingMatch)
	if err != nil {
		return fmt.Errorf("%w: pending match %s: %w", state.ErrCorrupted, order.PendingMatch, err)
	}
	counterparty, err := b.chain.GetOrder(match.Counterparty(order.ID))
	if err != nil {
		return fmt.Errorf("%w: counterparty of %s: %w", state.ErrCorrupted, match.ID, err)
	}
	counterparty.PendingMatch = ids.Empty
	counterparty.UpdatedAt = now
	if err := b.chain.PutOrder(counterparty); err != nil {
		return err
	}
	return b.chain.DeleteMatch(match.ID)
}

// ArchiveOrder deletes the record of a filled or cancelled order.
func (b *Book) ArchiveOrder(orderID ids.ID, requester ids.ShortID) (*state.Order, error) {
	order, err := b.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.Owner != requester {
		return nil, ErrNotOwner
	}
	if order.IsOpen() {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotTerminal, order.ID)
	}
	market, err := b.GetMarket(order.MarketID)
	if err != nil {
		return nil, err
	}
	for _, tokenID := range []ids.ID{market.BaseToken, market.QuoteToken} {
		escrow, err := b.chain.GetEscrow(tokenID, order.ID)
		if err != nil {
			return nil, err
		}
		if escrow != 0 {
			return nil, fmt.Errorf("%w: %s holds %d", ErrEscrowOutstanding, order.ID, escrow)
		}
	}
	return order, b.chain.DeleteOrder(order.ID)
}

// GetMarket returns an initialized market.
func (b *Book) GetMarket(marketID ids.ID) (*state.Market, error) {
	return GetMarket(b.chain, marketID)
}

// GetOrder returns a stored order.
func (b *Book) GetOrder(orderID ids.ID) (*state.Order, error) {
	return GetOrder(b.chain, orderID)
}

// GetMarket returns an initialized market.
func GetMarket(chain state.ReadOnlyChain, marketID ids.ID) (*state.Market, error) {
	market, err := chain.GetMarket(marketID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMarketNotFound, marketID)
	}
	return market, err
}

// GetOrder returns a stored order.
func GetOrder(chain state.ReadOnlyChain, orderID ids.ID) (*state.Order, error) {
	order, err := chain.GetOrder(orderID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return order, err
}
