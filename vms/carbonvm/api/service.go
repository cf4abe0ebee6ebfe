// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api provides the JSON-RPC API of the carbon VM.
package api

import (
	stdjson "encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/utils/json"
	"github.com/luxfi/carbon/vms/carbonvm/config"
	"github.com/luxfi/carbon/vms/carbonvm/errs"
	"github.com/luxfi/carbon/vms/carbonvm/ledger"
	"github.com/luxfi/carbon/vms/carbonvm/liquidity"
	"github.com/luxfi/carbon/vms/carbonvm/orderbook"
	"github.com/luxfi/carbon/vms/carbonvm/retirement"
	"github.com/luxfi/carbon/vms/carbonvm/state"
	"github.com/luxfi/carbon/vms/carbonvm/txs"
)

var (
	ErrNotBootstrapped = errors.New("carbon VM not bootstrapped")
	ErrInvalidRequest  = fmt.Errorf("%w: invalid request", errs.ErrValidation)
	ErrUnsignedTx      = fmt.Errorf("%w: tx must be signed", errs.ErrAuthorization)
)

// VM is the part of the carbon VM the API serves.
type VM interface {
	IsBootstrapped() bool
	// IssueTx executes tx and returns its outcome.
	IssueTx(tx *txs.Tx) (any, error)
	// ReadState calls f with a consistent view of the committed state.
	ReadState(f func(state.ReadOnlyChain) error) error
}

// Service provides the RPC API for the carbon VM.
type Service struct {
	vm     VM
	config config.Config
}

// NewService creates a new API service.
func NewService(vm VM, cfg config.Config) *Service {
	return &Service{
		vm:     vm,
		config: cfg,
	}
}

type HealthReply struct {
	Healthy      bool `json:"healthy"`
	Bootstrapped bool `json:"bootstrapped"`
}

// Health returns whether the VM is serving.
func (s *Service) Health(_ *http.Request, _ *struct{}, reply *HealthReply) error {
	reply.Bootstrapped = s.vm.IsBootstrapped()
	reply.Healthy = reply.Bootstrapped
	return nil
}

// IssueTxArgs carries a signed tx in its JSON envelope:
//
//	{"type": "transfer", "signer": "...", "nonce": 1, "signature": "...", "tx": {...}}
type IssueTxArgs struct {
	Tx stdjson.RawMessage `json:"tx"`
}

type IssueTxReply struct {
	TxID   ids.ID `json:"txID"`
	Result any    `json:"result"`
}

// IssueTx executes a signed tx. The signer is the address the signature
// recovers to. Rejected txs change nothing and return an error naming the
// rejection kind.
func (s *Service) IssueTx(_ *http.Request, args *IssueTxArgs, reply *IssueTxReply) error {
	if !s.vm.IsBootstrapped() {
		return ErrNotBootstrapped
	}
	tx, err := txs.ParseJSON(args.Tx)
	if err != nil {
		return err
	}
	if !tx.IsSigned() {
		return fmt.Errorf("%s: %w", errs.KindAuthorization, ErrUnsignedTx)
	}
	result, err := s.vm.IssueTx(tx)
	if err != nil {
		return fmt.Errorf("%s: %w", errs.Kind(err), err)
	}
	reply.TxID = tx.ID()
	reply.Result = result
	return nil
}

type GetTokenArgs struct {
	TokenID ids.ID `json:"tokenID"`
}

type GetTokenReply struct {
	Token *state.MintRecord `json:"token"`
}

func (s *Service) GetToken(_ *http.Request, args *GetTokenArgs, reply *GetTokenReply) error {
	return s.vm.ReadState(func(chain state.ReadOnlyChain) error {
		token, err := ledger.GetMint(chain, args.TokenID)
		reply.Token = token
		return err
	})
}

type GetBalanceArgs struct {
	TokenID ids.ID      `json:"tokenID"`
	Holder  ids.ShortID `json:"holder"`
}

type GetBalanceReply struct {
	Balance json.Uint64 `json:"balance"`
	Frozen  bool        `json:"frozen"`
}

// GetBalance returns the free balance of a holder. Funds locked in orders
// are not included.
func (s *Service) GetBalance(_ *http.Request, args *GetBalanceArgs, reply *GetBalanceReply) error {
	return s.vm.ReadState(func(chain state.ReadOnlyChain) error {
		if _, err := ledger.GetMint(chain, args.TokenID); err != nil {
			return err
		}
		balance, err := chain.GetBalance(args.TokenID, args.Holder)
		if err != nil {
			return err
		}
		frozen, err := chain.IsFrozen(args.TokenID, args.Holder)
		if err != nil {
			return err
		}
		reply.Balance = json.Uint64(balance)
		reply.Frozen = frozen
		return nil
	})
}

type GetOrderArgs struct {
	OrderID ids.ID `json:"orderID"`
}

type GetOrderReply struct {
	Order  *state.Order `json:"order"`
	Escrow json.Uint64  `json:"escrow"`
	Match  *state.Match `json:"match,omitempty"`
}

// GetOrder returns an order with its escrow and pending match.
func (s *Service) GetOrder(_ *http.Request, args *GetOrderArgs, reply *GetOrderReply) error {
	return s.vm.ReadState(func(chain state.ReadOnlyChain) error {
		order, err := orderbook.GetOrder(chain, args.OrderID)
		if err != nil {
			return err
		}
		market, err := orderbook.GetMarket(chain, order.MarketID)
		if err != nil {
			return err
		}
		escrowToken := market.BaseToken
		if order.Side == state.Buy {
			escrowToken = market.QuoteToken
		}
		escrow, err := chain.GetEscrow(escrowToken, order.ID)
		if err != nil {
			return err
		}
		reply.Order = order
		reply.Escrow = json.Uint64(escrow)
		if order.HasPendingMatch() {
			if reply.Match, err = chain.GetMatch(order.PendingMatch); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetMarketArgs names a market by ID or by its token pair.
type GetMarketArgs struct {
	MarketID   ids.ID `json:"marketID"`
	BaseToken  ids.ID `json:"baseToken"`
	QuoteToken ids.ID `json:"quoteToken"`
}

func (a *GetMarketArgs) marketID() ids.ID {
	if a.MarketID != ids.Empty {
		return a.MarketID
	}
	return state.MarketID(a.BaseToken, a.QuoteToken)
}

type GetMarketReply struct {
	Market *state.Market `json:"market"`
}

func (s *Service) GetMarket(_ *http.Request, args *GetMarketArgs, reply *GetMarketReply) error {
	return s.vm.ReadState(func(chain state.ReadOnlyChain) error {
		market, err := orderbook.GetMarket(chain, args.marketID())
		reply.Market = market
		return err
	})
}

type GetDepthArgs struct {
	GetMarketArgs
	Side   state.Side `json:"side"`
	Levels int        `json:"levels"`
}

type GetDepthReply struct {
	Side   state.Side             `json:"side"`
	Levels []orderbook.PriceLevel `json:"levels"`
}

// GetDepth aggregates one side of a book by price, best first. Levels is
// capped by the configured maximum.
func (s *Service) GetDepth(_ *http.Request, args *GetDepthArgs, reply *GetDepthReply) error {
	if err := args.Side.Verify(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	levels := args.Levels
	if levels <= 0 || levels > s.config.MaxDepthLevels {
		levels = s.config.MaxDepthLevels
	}
	return s.vm.ReadState(func(chain state.ReadOnlyChain) error {
		depth, err := orderbook.Depth(chain, args.marketID(), args.Side, levels)
		reply.Side = args.Side
		reply.Levels = depth
		return err
	})
}

type GetBestCrossingReply struct {
	Crossing  bool         `json:"crossing"`
	BuyOrder  *state.Order `json:"buyOrder,omitempty"`
	SellOrder *state.Order `json:"sellOrder,omitempty"`
}

// GetBestCrossing returns the best bid and ask of a market and whether they
// can be matched.
func (s *Service) GetBestCrossing(_ *http.Request, args *GetMarketArgs, reply *GetBestCrossingReply) error {
	return s.vm.ReadState(func(chain state.ReadOnlyChain) error {
		buy, sell, crossing, err := orderbook.BestCrossing(chain, args.marketID())
		if err != nil {
			return err
		}
		reply.Crossing = crossing
		reply.BuyOrder = buy
		reply.SellOrder = sell
		return nil
	})
}

type PairArgs struct {
	TokenA ids.ID `json:"tokenA"`
	TokenB ids.ID `json:"tokenB"`
}

type GetPoolReply struct {
	Pool *state.Pool `json:"pool"`
}

func (s *Service) GetPool(_ *http.Request, args *PairArgs, reply *GetPoolReply) error {
	return s.vm.ReadState(func(chain state.ReadOnlyChain) error {
		pool, err := liquidity.GetPool(chain, args.TokenA, args.TokenB)
		reply.Pool = pool
		return err
	})
}

type GetSharesArgs struct {
	PairArgs
	Holder ids.ShortID `json:"holder"`
}

type GetSharesReply struct {
	Shares   json.Uint64 `json:"shares"`
	LPSupply json.Uint64 `json:"lpSupply"`
}

func (s *Service) GetShares(_ *http.Request, args *GetSharesArgs, reply *GetSharesReply) error {
	return s.vm.ReadState(func(chain state.ReadOnlyChain) error {
		pool, err := liquidity.GetPool(chain, args.TokenA, args.TokenB)
		if err != nil {
			return err
		}
		shares, err := chain.GetShares(pool.ID, args.Holder)
		if err != nil {
			return err
		}
		reply.Shares = json.Uint64(shares)
		reply.LPSupply = json.Uint64(pool.LPSupply)
		return nil
	})
}

type GetQuoteArgs struct {
	TokenIn  ids.ID      `json:"tokenIn"`
	TokenOut ids.ID      `json:"tokenOut"`
	AmountIn json.Uint64 `json:"amountIn"`
}

type GetQuoteReply struct {
	Quote *liquidity.SwapResult `json:"quote"`
}

// GetQuote prices a swap without executing it.
func (s *Service) GetQuote(_ *http.Request, args *GetQuoteArgs, reply *GetQuoteReply) error {
	return s.vm.ReadState(func(chain state.ReadOnlyChain) error {
		quote, err := liquidity.Quote(chain, args.TokenIn, args.TokenOut, uint64(args.AmountIn))
		reply.Quote = quote
		return err
	})
}

type GetRetirementsArgs struct {
	ProjectID string `json:"projectID"`
	Offset    int    `json:"offset"`
	Limit     int    `json:"limit"`
}

type GetRetirementsReply struct {
	Records []*state.RetirementRecord `json:"records"`
	// NextOffset is set when more records may follow.
	NextOffset int `json:"nextOffset,omitempty"`
}

// GetRetirements pages through a project's retirement log in timestamp
// order.
func (s *Service) GetRetirements(_ *http.Request, args *GetRetirementsArgs, reply *GetRetirementsReply) error {
	if args.ProjectID == "" || args.Offset < 0 {
		return ErrInvalidRequest
	}
	limit := args.Limit
	if limit <= 0 || limit > s.config.MaxRetirementsPage {
		limit = s.config.MaxRetirementsPage
	}
	return s.vm.ReadState(func(chain state.ReadOnlyChain) error {
		records, err := retirement.Page(chain, args.ProjectID, args.Offset, limit)
		if err != nil {
			return err
		}
		reply.Records = records
		if len(records) == limit {
			reply.NextOffset = args.Offset + limit
		}
		return nil
	})
}

type GetRetirementCertificateArgs struct {
	ProjectID string `json:"projectID"`
}

type GetRetirementCertificateReply struct {
	Certificate *retirement.Certificate `json:"certificate"`
}

func (s *Service) GetRetirementCertificate(_ *http.Request, args *GetRetirementCertificateArgs, reply *GetRetirementCertificateReply) error {
	if args.ProjectID == "" {
		return ErrInvalidRequest
	}
	return s.vm.ReadState(func(chain state.ReadOnlyChain) error {
		certificate, err := retirement.Summarize(chain, args.ProjectID)
		reply.Certificate = certificate
		return err
	})
}
