// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"errors"
	"math"

	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"
)

const CodecVersion = 0

var Codec codec.Manager

func init() {
	Codec = codec.NewManager(math.MaxInt)
	lc := linearcodec.NewDefault()

	// The registration order fixes the wire type IDs and must only be
	// appended to.
	err := errors.Join(
		lc.RegisterType(&InitializeTokenTx{}),
		lc.RegisterType(&MintTx{}),
		lc.RegisterType(&BurnTx{}),
		lc.RegisterType(&RetireTx{}),
		lc.RegisterType(&TransferTx{}),
		lc.RegisterType(&VerifyProjectTx{}),
		lc.RegisterType(&UpdateMetadataTx{}),
		lc.RegisterType(&FreezeAccountTx{}),
		lc.RegisterType(&InitializeMarketTx{}),
		lc.RegisterType(&CreateOrderTx{}),
		lc.RegisterType(&CancelOrderTx{}),
		lc.RegisterType(&MatchOrdersTx{}),
		lc.RegisterType(&SettleTradeTx{}),
		lc.RegisterType(&ArchiveOrderTx{}),
		lc.RegisterType(&AddLiquidityTx{}),
		lc.RegisterType(&RemoveLiquidityTx{}),
		lc.RegisterType(&SwapTx{}),
		Codec.RegisterCodec(CodecVersion, lc),
	)
	if err != nil {
		panic(err)
	}
}
