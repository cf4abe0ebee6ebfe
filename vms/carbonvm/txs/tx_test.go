// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/vms/carbonvm/errs"
	"github.com/luxfi/carbon/vms/carbonvm/state"
)

func TestTxTypeNames(t *testing.T) {
	require := require.New(t)

	for typ := InitializeToken; typ <= Swap; typ++ {
		unsigned, err := newUnsigned(typ)
		require.NoError(err)
		require.Equal(typ, unsigned.Type())

		parsed, err := ParseTxType(typ.String())
		require.NoError(err)
		require.Equal(typ, parsed)
	}
	require.Equal("unknown", (Swap + 1).String())

	_, err := ParseTxType("mint_everything")
	require.ErrorIs(err, ErrUnknownTxType)
	_, err = newUnsigned(Swap + 1)
	require.ErrorIs(err, ErrUnknownTxType)
}

func TestTxIDIsDeterministic(t *testing.T) {
	require := require.New(t)

	signer := ids.GenerateTestShortID()
	tokenID := ids.GenerateTestID()
	tx1, err := NewTx(&TransferTx{TokenID: tokenID, Amount: 10, To: ids.GenerateTestShortID()}, signer)
	require.NoError(err)
	tx2, err := NewTx(&TransferTx{TokenID: tokenID, Amount: 10, To: tx1.Unsigned.(*TransferTx).To}, signer)
	require.NoError(err)
	require.Equal(tx1.ID(), tx2.ID())
	require.Equal(tx1.Bytes(), tx2.Bytes())

	tx3, err := NewTx(&TransferTx{TokenID: tokenID, Amount: 11, To: tx1.Unsigned.(*TransferTx).To}, signer)
	require.NoError(err)
	require.NotEqual(tx1.ID(), tx3.ID())

	parsed, err := Parse(tx1.Bytes())
	require.NoError(err)
	require.Equal(tx1.ID(), parsed.ID())
	require.Equal(tx1.Unsigned, parsed.Unsigned)
	require.Equal(signer, parsed.Signer)

	_, err = Parse([]byte{0x00, 0x00, 0xff})
	require.ErrorIs(err, errs.ErrValidation)

	_, err = NewTx(nil, signer)
	require.ErrorIs(err, ErrNilTx)
}

func TestJSONEnvelope(t *testing.T) {
	require := require.New(t)

	tx, err := NewTx(&CreateOrderTx{
		MarketID: ids.GenerateTestID(),
		Side:     state.Sell,
		Price:    9,
		Quantity: 100,
	}, ids.GenerateTestShortID())
	require.NoError(err)

	b, err := json.Marshal(tx)
	require.NoError(err)

	var raw map[string]any
	require.NoError(json.Unmarshal(b, &raw))
	require.Equal("create_order", raw["type"])
	require.Equal("sell", raw["tx"].(map[string]any)["side"])

	parsed, err := ParseJSON(b)
	require.NoError(err)
	require.Equal(tx.ID(), parsed.ID())
	require.Equal(tx.Unsigned, parsed.Unsigned)
}

func TestJSONEnvelopeRejections(t *testing.T) {
	signer := ids.GenerateTestShortID()
	tests := []struct {
		name        string
		json        string
		expectedErr error
	}{
		{
			name:        "not json",
			json:        `{"type":`,
			expectedErr: errs.ErrValidation,
		},
		{
			name:        "unknown type",
			json:        fmt.Sprintf(`{"type":"airdrop","signer":"%s","tx":{}}`, signer),
			expectedErr: ErrUnknownTxType,
		},
		{
			name:        "unknown envelope field",
			json:        fmt.Sprintf(`{"type":"burn","signer":"%s","tx":{},"fee":1}`, signer),
			expectedErr: errs.ErrValidation,
		},
		{
			name:        "unknown tx field",
			json:        fmt.Sprintf(`{"type":"burn","signer":"%s","tx":{"amount":1,"memo":"x"}}`, signer),
			expectedErr: errs.ErrValidation,
		},
		{
			name:        "bad side",
			json:        fmt.Sprintf(`{"type":"create_order","signer":"%s","tx":{"side":"hold"}}`, signer),
			expectedErr: errs.ErrValidation,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(test.json))
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestSyntacticVerify(t *testing.T) {
	var (
		tokenA = ids.GenerateTestID()
		tokenB = ids.GenerateTestID()
		holder = ids.GenerateTestShortID()
	)
	tests := []struct {
		name        string
		unsigned    UnsignedTx
		expectedErr error
	}{
		{
			name:     "valid transfer",
			unsigned: &TransferTx{TokenID: tokenA, Amount: 1, To: holder},
		},
		{
			name:        "zero mint",
			unsigned:    &MintTx{TokenID: tokenA, Recipient: holder},
			expectedErr: ErrZeroAmount,
		},
		{
			name:        "missing token",
			unsigned:    &RetireTx{Amount: 1},
			expectedErr: ErrMissingID,
		},
		{
			name:        "invalid kind",
			unsigned:    &InitializeTokenTx{TokenID: tokenA, Kind: 7},
			expectedErr: ErrInvalidEnum,
		},
		{
			name:        "empty metadata update",
			unsigned:    &UpdateMetadataTx{TokenID: tokenA},
			expectedErr: ErrEmptyUpdate,
		},
		{
			name:        "market on one token",
			unsigned:    &InitializeMarketTx{BaseToken: tokenA, QuoteToken: tokenA},
			expectedErr: ErrSameToken,
		},
		{
			name:        "order without price",
			unsigned:    &CreateOrderTx{MarketID: tokenA, Side: state.Buy, Quantity: 1},
			expectedErr: ErrZeroAmount,
		},
		{
			name:        "order with invalid side",
			unsigned:    &CreateOrderTx{MarketID: tokenA, Side: 9, Price: 1, Quantity: 1},
			expectedErr: ErrInvalidEnum,
		},
		{
			name:        "match without quantity",
			unsigned:    &MatchOrdersTx{BuyOrderID: tokenA, SellOrderID: tokenB},
			expectedErr: ErrZeroAmount,
		},
		{
			name:        "swap into same token",
			unsigned:    &SwapTx{TokenIn: tokenA, TokenOut: tokenA, AmountIn: 1},
			expectedErr: ErrSameToken,
		},
		{
			name:     "swap without minimum",
			unsigned: &SwapTx{TokenIn: tokenA, TokenOut: tokenB, AmountIn: 1},
		},
		{
			name:        "remove no shares",
			unsigned:    &RemoveLiquidityTx{TokenA: tokenA, TokenB: tokenB},
			expectedErr: ErrZeroAmount,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			tx, err := NewTx(test.unsigned, holder)
			require.NoError(err)
			require.ErrorIs(tx.SyntacticVerify(), test.expectedErr)
		})
	}
}

func TestSyntacticVerifyRequiresSigner(t *testing.T) {
	require := require.New(t)

	tx, err := NewTx(&CancelOrderTx{OrderID: ids.GenerateTestID()}, ids.ShortEmpty)
	require.NoError(err)
	err = tx.SyntacticVerify()
	require.ErrorIs(err, ErrMissingSigner)
	require.ErrorIs(err, errs.ErrAuthorization)

	require.ErrorIs((&Tx{Signer: ids.GenerateTestShortID()}).SyntacticVerify(), ErrNilTx)
	require.ErrorIs((&Tx{Unsigned: &BurnTx{}, Signer: ids.GenerateTestShortID()}).SyntacticVerify(), errNotInitialized)
}

func TestSignedTx(t *testing.T) {
	require := require.New(t)

	key, err := secp256k1.NewPrivateKey()
	require.NoError(err)
	transfer := &TransferTx{TokenID: ids.GenerateTestID(), Amount: 5, To: ids.GenerateTestShortID()}

	tx, err := NewSignedTx(transfer, 3, key)
	require.NoError(err)
	require.True(tx.IsSigned())
	require.Equal(key.Address(), tx.Signer)
	require.NoError(tx.SyntacticVerify())

	parsed, err := Parse(tx.Bytes())
	require.NoError(err)
	require.Equal(tx.Signature, parsed.Signature)
	require.Equal(uint64(3), parsed.Nonce)
	require.NoError(parsed.SyntacticVerify())

	b, err := json.Marshal(tx)
	require.NoError(err)
	fromJSON, err := ParseJSON(b)
	require.NoError(err)
	require.Equal(tx.ID(), fromJSON.ID())
	require.NoError(fromJSON.SyntacticVerify())

	// The same body under another nonce signs a different hash.
	again, err := NewSignedTx(transfer, 4, key)
	require.NoError(err)
	hash3, err := tx.SigningHash()
	require.NoError(err)
	hash4, err := again.SigningHash()
	require.NoError(err)
	require.NotEqual(hash3, hash4)
	require.NotEqual(tx.ID(), again.ID())

	unsigned, err := NewTx(transfer, key.Address())
	require.NoError(err)
	require.False(unsigned.IsSigned())
	require.NoError(unsigned.SyntacticVerify())
}

func TestSignatureMustMatchSigner(t *testing.T) {
	require := require.New(t)

	key, err := secp256k1.NewPrivateKey()
	require.NoError(err)
	other, err := secp256k1.NewPrivateKey()
	require.NoError(err)

	// A valid signature claimed for another principal.
	tx, err := NewSignedTx(&BurnTx{TokenID: ids.GenerateTestID(), Amount: 1}, 0, key)
	require.NoError(err)
	tx.Signer = other.Address()
	require.NoError(tx.Initialize())
	err = tx.SyntacticVerify()
	require.ErrorIs(err, ErrSignerMismatch)
	require.ErrorIs(err, errs.ErrAuthorization)

	// A body changed after signing.
	tx, err = NewSignedTx(&BurnTx{TokenID: ids.GenerateTestID(), Amount: 1}, 0, key)
	require.NoError(err)
	tx.Unsigned.(*BurnTx).Amount = 1_000
	require.NoError(tx.Initialize())
	require.ErrorIs(tx.SyntacticVerify(), errs.ErrAuthorization)

	// Truncated signatures never parse.
	signer := key.Address()
	_, err = ParseJSON([]byte(fmt.Sprintf(`{"type":"burn","signer":"%s","signature":"AAEC","tx":{}}`, signer)))
	require.ErrorIs(err, ErrBadSignature)
}
