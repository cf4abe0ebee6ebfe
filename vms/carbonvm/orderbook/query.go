// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package orderbook

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/utils/math"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

// PriceLevel aggregates the open quantity resting at one price.
type PriceLevel struct {
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
	Orders   int    `json:"orders"`
}

// Depth returns up to levels price levels of one side of a market, best price
// first. A non-positive levels returns every level.
func Depth(chain state.ReadOnlyChain, marketID ids.ID, side state.Side, levels int) ([]PriceLevel, error) {
	if _, err := GetMarket(chain, marketID); err != nil {
		return nil, err
	}
	var result []PriceLevel
	for orderID, err := range chain.RestingOrders(marketID, side) {
		if err != nil {
			return nil, err
		}
		order, err := GetOrder(chain, orderID)
		if err != nil {
			return nil, err
		}
		if n := len(result); n > 0 && result[n-1].Price == order.Price {
			quantity, err := math.Add(result[n-1].Quantity, order.Remaining())
			if err != nil {
				quantity = math.MaxUint[uint64]()
			}
			result[n-1].Quantity = quantity
			result[n-1].Orders++
			continue
		}
		if levels > 0 && len(result) == levels {
			break
		}
		result = append(result, PriceLevel{
			Price:    order.Price,
			Quantity: order.Remaining(),
			Orders:   1,
		})
	}
	return result, nil
}

// BestCrossing returns the best bid and best ask of a market if they cross.
func BestCrossing(chain state.ReadOnlyChain, marketID ids.ID) (*state.Order, *state.Order, bool, error) {
	if _, err := GetMarket(chain, marketID); err != nil {
		return nil, nil, false, err
	}
	buy, err := best(chain, marketID, state.Buy)
	if err != nil || buy == nil {
		return nil, nil, false, err
	}
	sell, err := best(chain, marketID, state.Sell)
	if err != nil || sell == nil {
		return nil, nil, false, err
	}
	if buy.Price < sell.Price {
		return nil, nil, false, nil
	}
	return buy, sell, true, nil
}

func best(chain state.ReadOnlyChain, marketID ids.ID, side state.Side) (*state.Order, error) {
	for orderID, err := range chain.RestingOrders(marketID, side) {
		if err != nil {
			return nil, err
		}
		return GetOrder(chain, orderID)
	}
	return nil, nil
}
