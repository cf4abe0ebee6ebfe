// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package carbonvm

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/carbon/utils/json"
	"github.com/luxfi/carbon/vms/carbonvm/api"
	"github.com/luxfi/carbon/vms/carbonvm/config"
	"github.com/luxfi/carbon/vms/carbonvm/genesis"
	"github.com/luxfi/carbon/vms/carbonvm/state"
	"github.com/luxfi/carbon/vms/carbonvm/txs"
)

const genesisTime = 1_704_067_200

type testGenesis struct {
	bytes     []byte
	authority ids.ShortID
	holderKey *secp256k1.PrivateKey
	holder    ids.ShortID
	cst       ids.ID
	vcu       ids.ID
}

func newTestGenesis(t *testing.T) *testGenesis {
	require := require.New(t)

	holderKey, err := secp256k1.NewPrivateKey()
	require.NoError(err)
	g := &testGenesis{
		authority: ids.GenerateTestShortID(),
		holderKey: holderKey,
		holder:    holderKey.Address(),
		cst:       ids.GenerateTestID(),
		vcu:       ids.GenerateTestID(),
	}
	verifier := ids.GenerateTestShortID()
	unsignedTxs := []struct {
		signer   ids.ShortID
		unsigned txs.UnsignedTx
	}{
		{g.authority, &txs.InitializeTokenTx{TokenID: g.cst, Kind: state.Settlement, Symbol: "CST", InitialSupply: 1_000_000}},
		{g.authority, &txs.InitializeTokenTx{
			TokenID:               g.vcu,
			Kind:                  state.CarbonUnit,
			Symbol:                "VCU",
			ProjectID:             "VCS-1001",
			VerificationAuthority: verifier,
		}},
		{verifier, &txs.VerifyProjectTx{TokenID: g.vcu}},
		{verifier, &txs.MintTx{TokenID: g.vcu, Amount: 100, Recipient: g.holder}},
		{g.authority, &txs.InitializeMarketTx{BaseToken: g.vcu, QuoteToken: g.cst, FeeRateBps: 50}},
	}
	genesisTxs := make([]*txs.Tx, 0, len(unsignedTxs))
	for _, u := range unsignedTxs {
		tx, err := txs.NewTx(u.unsigned, u.signer)
		require.NoError(err)
		genesisTxs = append(genesisTxs, tx)
	}

	g.bytes, err = (&genesis.Genesis{Timestamp: genesisTime, Txs: genesisTxs}).Bytes()
	require.NoError(err)
	return g
}

func newTestVM(t *testing.T, db database.Database, g *testGenesis, registerer metric.Registerer) *VM {
	vm := New(log.NewNoOpLogger())
	require.NoError(t, vm.Initialize(context.Background(), db, g.bytes, nil, registerer))
	vm.Clock().Set(time.Unix(genesisTime+60, 0))
	return vm
}

func mustIssue(t *testing.T, vm *VM, signer ids.ShortID, unsigned txs.UnsignedTx) any {
	tx, err := txs.NewTx(unsigned, signer)
	require.NoError(t, err)
	result, err := vm.IssueTx(tx)
	require.NoError(t, err)
	return result
}

func balance(t *testing.T, vm *VM, tokenID ids.ID, holder ids.ShortID) uint64 {
	var amount uint64
	require.NoError(t, vm.ReadState(func(chain state.ReadOnlyChain) error {
		var err error
		amount, err = chain.GetBalance(tokenID, holder)
		return err
	}))
	return amount
}

func TestInitialize(t *testing.T) {
	require := require.New(t)
	g := newTestGenesis(t)

	vm := New(nil)
	require.False(vm.IsBootstrapped())
	_, err := vm.HealthCheck(context.Background())
	require.ErrorIs(err, errNotInitialized)

	require.NoError(vm.Initialize(
		context.Background(),
		memdb.New(),
		g.bytes,
		[]byte(`{"swapFeeBps":100,"maxDepthLevels":5}`),
		metric.NewRegistry(),
	))
	require.True(vm.IsBootstrapped())
	require.Equal(uint16(100), vm.SwapFeeBps)
	require.Equal(5, vm.MaxDepthLevels)
	require.True(vm.CheckInvariants)
	require.Equal(uint64(100), balance(t, vm, g.vcu, g.holder))

	health, err := vm.HealthCheck(context.Background())
	require.NoError(err)
	require.Equal(true, health.(map[string]any)["healthy"])

	err = vm.Initialize(context.Background(), memdb.New(), g.bytes, nil, nil)
	require.ErrorIs(err, errAlreadyInitialized)
}

func TestInitializeRejects(t *testing.T) {
	g := newTestGenesis(t)

	tests := []struct {
		name         string
		genesisBytes []byte
		configBytes  []byte
		expectedErr  error
	}{
		{
			name:         "invalid config",
			genesisBytes: g.bytes,
			configBytes:  []byte(`{"swapFeeBps":10001}`),
			expectedErr:  config.ErrInvalidSwapFee,
		},
		{
			name:         "empty genesis",
			genesisBytes: []byte(`{"timestamp":1,"txs":[]}`),
			expectedErr:  genesis.ErrNoTxs,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			vm := New(nil)
			err := vm.Initialize(context.Background(), memdb.New(), test.genesisBytes, test.configBytes, nil)
			require.ErrorIs(err, test.expectedErr)
			require.False(vm.IsBootstrapped())
		})
	}
}

func TestRestartKeepsState(t *testing.T) {
	require := require.New(t)
	g := newTestGenesis(t)
	db := memdb.New()

	vm := newTestVM(t, db, g, nil)
	mustIssue(t, vm, g.holder, &txs.RetireTx{TokenID: g.vcu, Amount: 40})

	// The genesis is not applied twice.
	restarted := newTestVM(t, db, g, nil)
	require.Equal(uint64(60), balance(t, restarted, g.vcu, g.holder))
	require.NoError(restarted.ReadState(func(chain state.ReadOnlyChain) error {
		count, err := chain.RetirementCount("VCS-1001")
		require.Equal(uint64(1), count)
		return err
	}))
}

func TestShutdown(t *testing.T) {
	require := require.New(t)
	g := newTestGenesis(t)

	db := memdb.New()
	vm := newTestVM(t, db, g, nil)
	require.NoError(vm.Shutdown(context.Background()))
	require.False(vm.IsBootstrapped())

	// The caller's database stays open.
	require.NoError(db.Put([]byte("after"), []byte("shutdown")))
	restarted := newTestVM(t, db, g, nil)
	require.Equal(uint64(100), balance(t, restarted, g.vcu, g.holder))
	require.NoError(restarted.Shutdown(context.Background()))
	require.NoError(db.Close())

	tx, err := txs.NewTx(&txs.RetireTx{TokenID: g.vcu, Amount: 1}, g.holder)
	require.NoError(err)
	_, err = vm.IssueTx(tx)
	require.ErrorIs(err, errShutdown)
	require.ErrorIs(vm.ReadState(func(state.ReadOnlyChain) error { return nil }), errShutdown)

	require.NoError(vm.Shutdown(context.Background()))
}

func TestHandlers(t *testing.T) {
	require := require.New(t)
	g := newTestGenesis(t)
	registry := metric.NewRegistry()

	vm := newTestVM(t, memdb.New(), g, registry)
	handlers, err := vm.CreateHandlers(context.Background())
	require.NoError(err)
	server := httptest.NewServer(handlers[""])
	defer server.Close()

	call := func(method string, args any, reply any) error {
		body, err := json2.EncodeClientRequest(method, args)
		require.NoError(err)
		resp, err := http.Post(server.URL, "application/json", bytes.NewReader(body))
		require.NoError(err)
		defer resp.Body.Close()
		return json2.DecodeClientResponse(resp.Body, reply)
	}

	sell, err := txs.NewSignedTx(&txs.CreateOrderTx{
		MarketID: state.MarketID(g.vcu, g.cst),
		Side:     state.Sell,
		Price:    9,
		Quantity: 100,
	}, 0, g.holderKey)
	require.NoError(err)
	sellJSON, err := stdjson.Marshal(sell)
	require.NoError(err)
	require.NoError(call("carbon.IssueTx", &api.IssueTxArgs{Tx: sellJSON}, &api.IssueTxReply{}))

	balanceReply := &api.GetBalanceReply{}
	require.NoError(call("carbon.GetBalance", &api.GetBalanceArgs{TokenID: g.vcu, Holder: g.holder}, balanceReply))
	require.Equal(json.Uint64(0), balanceReply.Balance)

	healthReply := &api.HealthReply{}
	require.NoError(call("carbon.Health", struct{}{}, healthReply))
	require.True(healthReply.Healthy)

	families, err := registry.Gather()
	require.NoError(err)
	var accepted float64
	for _, family := range families {
		if family.GetName() != "txs_accepted" {
			continue
		}
		for _, metric := range family.GetMetric() {
			accepted += metric.GetCounter().GetValue()
		}
	}
	// Five genesis txs and the order.
	require.Equal(float64(6), accepted)
}
