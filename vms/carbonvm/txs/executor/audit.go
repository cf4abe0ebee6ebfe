// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/utils/math"
	"github.com/luxfi/carbon/vms/carbonvm/ledger"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

var (
	ErrOrderBound  = errors.New("order violates its bounds")
	ErrPoolBacking = errors.New("pool reserves not backed by its escrow")
	ErrPoolProduct = errors.New("swap decreased the pool's reserve product")
)

// audit checks the supply of every touched token, the bounds of every
// touched order and the backing of every touched pool.
func (e *txExecutor) audit() error {
	for tokenID := range e.touchedTokens {
		if err := ledger.Audit(e.chain, tokenID); err != nil {
			return err
		}
	}
	for orderID := range e.touchedOrders {
		if err := checkOrder(e.chain, orderID); err != nil {
			return err
		}
	}
	for poolID := range e.touchedPools {
		if err := checkPool(e.chain, poolID, e.touchedTokens.List(), e.swappedPools[poolID]); err != nil {
			return err
		}
	}
	return nil
}

// checkOrder verifies that an order never fills beyond its quantity, that
// its status agrees with its fill and that its escrow covers exactly what
// it can still trade.
func checkOrder(chain state.ReadOnlyChain, orderID ids.ID) error {
	order, err := chain.GetOrder(orderID)
	if errors.Is(err, database.ErrNotFound) {
		// archived
		return nil
	}
	if err != nil {
		return err
	}
	if order.FilledQuantity > order.Quantity {
		return fmt.Errorf("%w: %s filled %d of %d", ErrOrderBound, order.ID, order.FilledQuantity, order.Quantity)
	}
	if (order.Status == state.Filled) != (order.Remaining() == 0) {
		return fmt.Errorf("%w: %s is %s with %d remaining", ErrOrderBound, order.ID, order.Status, order.Remaining())
	}

	market, err := chain.GetMarket(order.MarketID)
	if err != nil {
		return err
	}
	escrowToken, expected := market.BaseToken, order.Remaining()
	if order.Side == state.Buy {
		escrowToken = market.QuoteToken
		if expected, err = math.Mul(order.Price, order.Remaining()); err != nil {
			return fmt.Errorf("%w: %s notional overflows", ErrOrderBound, order.ID)
		}
	}
	if !order.IsOpen() {
		expected = 0
	}
	escrow, err := chain.GetEscrow(escrowToken, order.ID)
	if err != nil {
		return err
	}
	if escrow != expected {
		return fmt.Errorf("%w: %s escrows %d, expected %d", ErrOrderBound, order.ID, escrow, expected)
	}
	return nil
}

// checkPool verifies that the pool's escrow accounts hold exactly the recorded
// reserves and that LP supply equals the sum of all shares. A closed pool must
// leave nothing of pairTokens behind. When before is set, the tx swapped
// against the pool and the reserve product must not have decreased.
func checkPool(chain state.ReadOnlyChain, poolID ids.ID, pairTokens []ids.ID, before *state.Pool) error {
	pool, err := chain.GetPool(poolID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		pool = &state.Pool{ID: poolID}
	case err != nil:
		return err
	}
	reserves := map[ids.ID]uint64{}
	if pool.LPSupply != 0 {
		reserves[pool.TokenA] = pool.ReserveA
		reserves[pool.TokenB] = pool.ReserveB
	} else {
		for _, tokenID := range pairTokens {
			reserves[tokenID] = 0
		}
	}

	var shares uint64
	for holding, err := range chain.Shareholders(poolID) {
		if err != nil {
			return err
		}
		if shares, err = math.Add(shares, holding.Amount); err != nil {
			return fmt.Errorf("%w: %s shares overflow", ErrPoolBacking, poolID)
		}
	}
	if shares != pool.LPSupply {
		return fmt.Errorf("%w: %s has %d shares outstanding, supply %d", ErrPoolBacking, poolID, shares, pool.LPSupply)
	}

	for tokenID, reserve := range reserves {
		escrow, err := chain.GetEscrow(tokenID, poolID)
		if err != nil {
			return err
		}
		if escrow != reserve {
			return fmt.Errorf("%w: %s escrows %d of %s, reserve %d", ErrPoolBacking, poolID, escrow, tokenID, reserve)
		}
	}

	if before != nil && math.CompareProducts(pool.ReserveA, pool.ReserveB, before.ReserveA, before.ReserveB) < 0 {
		return fmt.Errorf("%w: %s reserves %d*%d below %d*%d",
			ErrPoolProduct,
			poolID,
			pool.ReserveA,
			pool.ReserveB,
			before.ReserveA,
			before.ReserveB,
		)
	}
	return nil
}
