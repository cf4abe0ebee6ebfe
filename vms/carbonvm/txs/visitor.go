// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

// Allow vm to execute custom logic against the underlying transaction types.
type Visitor interface {
	// Ledger
	InitializeTokenTx(*InitializeTokenTx) error
	MintTx(*MintTx) error
	BurnTx(*BurnTx) error
	RetireTx(*RetireTx) error
	TransferTx(*TransferTx) error
	VerifyProjectTx(*VerifyProjectTx) error
	UpdateMetadataTx(*UpdateMetadataTx) error
	FreezeAccountTx(*FreezeAccountTx) error

	// Order book
	InitializeMarketTx(*InitializeMarketTx) error
	CreateOrderTx(*CreateOrderTx) error
	CancelOrderTx(*CancelOrderTx) error
	MatchOrdersTx(*MatchOrdersTx) error
	SettleTradeTx(*SettleTradeTx) error
	ArchiveOrderTx(*ArchiveOrderTx) error

	// Liquidity
	AddLiquidityTx(*AddLiquidityTx) error
	RemoveLiquidityTx(*RemoveLiquidityTx) error
	SwapTx(*SwapTx) error
}
