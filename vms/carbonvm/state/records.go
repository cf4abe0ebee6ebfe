// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"

	"github.com/luxfi/ids"
)

// MaxBasisPoints is the denominator of every basis-point rate.
const MaxBasisPoints = 10_000

var (
	errUnknownTokenKind   = errors.New("unknown token kind")
	errUnknownSide        = errors.New("unknown side")
	errUnknownOrderStatus = errors.New("unknown order status")
)

// TokenKind distinguishes the settlement token from carbon units.
type TokenKind uint8

const (
	// Settlement is the carbon settlement token (CST) used as quote currency.
	Settlement TokenKind = iota
	// CarbonUnit is a verified carbon unit (VCU) that can be retired.
	CarbonUnit
)

func (k TokenKind) String() string {
	switch k {
	case Settlement:
		return "CST"
	case CarbonUnit:
		return "VCU"
	default:
		return "unknown"
	}
}

func (k TokenKind) Verify() error {
	if k > CarbonUnit {
		return errUnknownTokenKind
	}
	return nil
}

// MintRecord is the singleton issuance record of a token.
type MintRecord struct {
	TokenID            ids.ID      `serialize:"true" json:"tokenID"`
	Kind               TokenKind   `serialize:"true" json:"kind"`
	Symbol             string      `serialize:"true" json:"symbol"`
	TotalSupply        uint64      `serialize:"true" json:"totalSupply"`
	Decimals           uint8       `serialize:"true" json:"decimals"`
	MintAuthority      ids.ShortID `serialize:"true" json:"mintAuthority"`
	HasFreezeAuthority bool        `serialize:"true" json:"hasFreezeAuthority"`
	FreezeAuthority    ids.ShortID `serialize:"true" json:"freezeAuthority"`

	// Carbon unit metadata. Empty for the settlement token.
	ProjectID             string      `serialize:"true" json:"projectID,omitempty"`
	VintageYear           uint16      `serialize:"true" json:"vintageYear,omitempty"`
	VerificationStandard  string      `serialize:"true" json:"verificationStandard,omitempty"`
	VerificationAuthority ids.ShortID `serialize:"true" json:"verificationAuthority"`
	Verified              bool        `serialize:"true" json:"verified"`
	VerifiedAt            uint64      `serialize:"true" json:"verifiedAt,omitempty"`

	CreatedAt uint64 `serialize:"true" json:"createdAt"`
}

// Side is the side of an order.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

func (s Side) Verify() error {
	if s > Sell {
		return errUnknownSide
	}
	return nil
}

// OrderStatus is the lifecycle state of an order. Filled and Cancelled are
// terminal.
type OrderStatus uint8

const (
	Open OrderStatus = iota
	Filled
	Cancelled
)

func (s OrderStatus) String() string {
	switch s {
	case Open:
		return "open"
	case Filled:
		return "filled"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s OrderStatus) Verify() error {
	if s > Cancelled {
		return errUnknownOrderStatus
	}
	return nil
}

// Order is a limit order resting on a market.
type Order struct {
	ID             ids.ID      `serialize:"true" json:"id"`
	Owner          ids.ShortID `serialize:"true" json:"owner"`
	MarketID       ids.ID      `serialize:"true" json:"marketID"`
	Side           Side        `serialize:"true" json:"side"`
	Price          uint64      `serialize:"true" json:"price"`
	Quantity       uint64      `serialize:"true" json:"quantity"`
	FilledQuantity uint64      `serialize:"true" json:"filledQuantity"`
	Status         OrderStatus `serialize:"true" json:"status"`
	CreatedAt      uint64      `serialize:"true" json:"createdAt"`
	UpdatedAt      uint64      `serialize:"true" json:"updatedAt"`
	Sequence       uint64      `serialize:"true" json:"sequence"`
	// PendingMatch is the match awaiting settlement, or ids.Empty.
	PendingMatch ids.ID `serialize:"true" json:"pendingMatch"`
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() uint64 {
	return o.Quantity - o.FilledQuantity
}

// IsOpen reports whether the order can still trade.
func (o *Order) IsOpen() bool {
	return o.Status == Open
}

// HasPendingMatch reports whether a match awaits settlement.
func (o *Order) HasPendingMatch() bool {
	return o.PendingMatch != ids.Empty
}

// Market is a trading venue between a base (carbon) token and a quote token.
type Market struct {
	ID           ids.ID      `serialize:"true" json:"id"`
	Authority    ids.ShortID `serialize:"true" json:"authority"`
	BaseToken    ids.ID      `serialize:"true" json:"baseToken"`
	QuoteToken   ids.ID      `serialize:"true" json:"quoteToken"`
	FeeRateBps   uint16      `serialize:"true" json:"feeRateBps"`
	FeeCollector ids.ShortID `serialize:"true" json:"feeCollector"`
	OrdersCount  uint64      `serialize:"true" json:"ordersCount"`
	CreatedAt    uint64      `serialize:"true" json:"createdAt"`
}

// Match authorizes the settlement of Quantity units between two orders at
// Price.
type Match struct {
	ID           ids.ID `serialize:"true" json:"id"`
	MarketID     ids.ID `serialize:"true" json:"marketID"`
	BuyOrderID   ids.ID `serialize:"true" json:"buyOrderID"`
	SellOrderID  ids.ID `serialize:"true" json:"sellOrderID"`
	MakerOrderID ids.ID `serialize:"true" json:"makerOrderID"`
	Quantity     uint64 `serialize:"true" json:"quantity"`
	Price        uint64 `serialize:"true" json:"price"`
	CreatedAt    uint64 `serialize:"true" json:"createdAt"`
}

// Counterparty returns the other order of the match.
func (m *Match) Counterparty(orderID ids.ID) ids.ID {
	if orderID == m.BuyOrderID {
		return m.SellOrderID
	}
	return m.BuyOrderID
}

// Pool is a constant-product liquidity pool. TokenA sorts before TokenB.
type Pool struct {
	ID        ids.ID `serialize:"true" json:"id"`
	TokenA    ids.ID `serialize:"true" json:"tokenA"`
	TokenB    ids.ID `serialize:"true" json:"tokenB"`
	ReserveA  uint64 `serialize:"true" json:"reserveA"`
	ReserveB  uint64 `serialize:"true" json:"reserveB"`
	LPSupply  uint64 `serialize:"true" json:"lpSupply"`
	FeeBps    uint16 `serialize:"true" json:"feeBps"`
	CreatedAt uint64 `serialize:"true" json:"createdAt"`
	UpdatedAt uint64 `serialize:"true" json:"updatedAt"`
}

// Reserve returns the reserve held in tokenID, and false if the token is not
// part of the pool.
func (p *Pool) Reserve(tokenID ids.ID) (uint64, bool) {
	switch tokenID {
	case p.TokenA:
		return p.ReserveA, true
	case p.TokenB:
		return p.ReserveB, true
	default:
		return 0, false
	}
}

// RetirementRecord is the permanent evidence of retired carbon units.
type RetirementRecord struct {
	ID        ids.ID      `serialize:"true" json:"id"`
	TokenID   ids.ID      `serialize:"true" json:"tokenID"`
	ProjectID string      `serialize:"true" json:"projectID"`
	Retiree   ids.ShortID `serialize:"true" json:"retiree"`
	Amount    uint64      `serialize:"true" json:"amount"`
	Timestamp uint64      `serialize:"true" json:"timestamp"`
	Index     uint64      `serialize:"true" json:"index"`
}

// Holding is one non-zero balance of a token.
type Holding struct {
	Holder ids.ShortID
	Amount uint64
}

// Escrow is one non-zero escrow sub-balance of a token. Account is the order
// or pool holding it.
type Escrow struct {
	Account ids.ID
	Amount  uint64
}
