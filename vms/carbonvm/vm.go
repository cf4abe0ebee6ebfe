// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package carbonvm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/carbon/utils/timer/mockable"
	"github.com/luxfi/carbon/vms/carbonvm/api"
	"github.com/luxfi/carbon/vms/carbonvm/config"
	"github.com/luxfi/carbon/vms/carbonvm/genesis"
	"github.com/luxfi/carbon/vms/carbonvm/metrics"
	"github.com/luxfi/carbon/vms/carbonvm/state"
	"github.com/luxfi/carbon/vms/carbonvm/txs"
	"github.com/luxfi/carbon/vms/carbonvm/txs/executor"
)

const (
	// Name is the VM name used for its API endpoint.
	Name = "carbonvm"

	// Version of the carbon VM.
	Version = "v0.3.0"
)

var (
	errNotInitialized     = errors.New("VM not initialized")
	errAlreadyInitialized = errors.New("VM already initialized")
	errShutdown           = errors.New("VM is shutting down")

	vmPrefix = []byte("carbon")

	_ api.VM = (*VM)(nil)
)

// VM is the carbon credit ledger and exchange VM. Txs are executed one at a
// time; reads share the lock and see only committed state.
type VM struct {
	config.Config

	log   log.Logger
	clock mockable.Clock

	lock sync.RWMutex

	db      database.Database
	state   *state.State
	backend *executor.Backend

	initialized  bool
	bootstrapped bool
	shutdown     bool
}

// New returns an uninitialized VM.
func New(logger log.Logger) *VM {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &VM{
		Config: config.DefaultConfig(),
		log:    logger,
	}
}

// Initialize opens the VM state in db and applies the genesis on first
// start. configBytes, when set, overrides the VM configuration. Metrics are
// registered without a namespace on registerer; a nil registerer disables
// them.
func (vm *VM) Initialize(
	_ context.Context,
	db database.Database,
	genesisBytes []byte,
	configBytes []byte,
	registerer metric.Registerer,
) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.initialized {
		return errAlreadyInitialized
	}

	if len(configBytes) > 0 {
		cfg, err := config.Parse(configBytes)
		if err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		vm.Config = cfg
	} else if err := vm.Config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	vmMetrics := metrics.NewNoMetrics()
	if registerer != nil {
		var err error
		vmMetrics, err = metrics.New("", registerer)
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	vm.db = prefixdb.New(vmPrefix, db)
	vm.backend = &executor.Backend{
		Config:  &vm.Config,
		Clk:     &vm.clock,
		Log:     vm.log,
		Metrics: vmMetrics,
	}

	if len(genesisBytes) > 0 {
		if err := vm.applyGenesis(genesisBytes); err != nil {
			return err
		}
	}

	vm.state = state.New(vm.db, vm.RetirementCacheSize)
	vm.initialized = true
	vm.bootstrapped = true

	vm.log.Info("initialized carbon VM",
		log.String("version", Version),
		log.Uint64("swapFeeBps", uint64(vm.SwapFeeBps)),
		log.Bool("checkInvariants", vm.CheckInvariants),
	)
	return nil
}

func (vm *VM) applyGenesis(genesisBytes []byte) error {
	g, err := genesis.Parse(genesisBytes)
	if err != nil {
		return fmt.Errorf("failed to parse genesis: %w", err)
	}
	if err := g.Verify(); err != nil {
		return fmt.Errorf("invalid genesis: %w", err)
	}
	applied, err := genesis.Apply(vm.backend, vm.db, g)
	if err != nil {
		return fmt.Errorf("failed to apply genesis: %w", err)
	}
	if applied {
		vm.log.Info("applied genesis",
			log.Uint64("timestamp", g.Timestamp),
			log.Int("txs", len(g.Txs)),
		)
	}
	return nil
}

// Clock returns the clock stamping executed txs.
func (vm *VM) Clock() *mockable.Clock {
	return &vm.clock
}

func (vm *VM) IsBootstrapped() bool {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	return vm.bootstrapped && !vm.shutdown
}

// IssueTx executes tx against the committed state.
func (vm *VM) IssueTx(tx *txs.Tx) (any, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if err := vm.ready(); err != nil {
		return nil, err
	}
	return executor.Execute(vm.backend, vm.state, tx)
}

// ReadState calls f with the committed state. Txs wait until f returns.
func (vm *VM) ReadState(f func(state.ReadOnlyChain) error) error {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if err := vm.ready(); err != nil {
		return err
	}
	return f(vm.state)
}

func (vm *VM) ready() error {
	switch {
	case vm.shutdown:
		return errShutdown
	case !vm.initialized:
		return errNotInitialized
	default:
		return nil
	}
}

// CreateHandlers returns the JSON-RPC API of the VM keyed by path suffix.
func (vm *VM) CreateHandlers(context.Context) (map[string]http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json2.NewCodec(), "application/json")
	server.RegisterCodec(json2.NewCodec(), "application/json;charset=UTF-8")

	vm.lock.RLock()
	service := api.NewService(vm, vm.Config)
	vm.lock.RUnlock()

	if err := server.RegisterService(service, "carbon"); err != nil {
		return nil, fmt.Errorf("failed to register carbon service: %w", err)
	}
	return map[string]http.Handler{
		"": server,
	}, nil
}

// HealthCheck reports whether the VM is serving.
func (vm *VM) HealthCheck(context.Context) (any, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	healthy := vm.initialized && vm.bootstrapped && !vm.shutdown
	details := map[string]any{
		"healthy":         healthy,
		"bootstrapped":    vm.bootstrapped,
		"checkInvariants": vm.CheckInvariants,
	}
	if !healthy {
		return details, errNotInitialized
	}
	return details, nil
}

// Version returns the VM version.
func (*VM) Version(context.Context) (string, error) {
	return Version, nil
}

// Shutdown stops the VM. Later calls are no-ops. The database passed to
// Initialize belongs to the caller and is left open.
func (vm *VM) Shutdown(context.Context) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.shutdown || !vm.initialized {
		vm.shutdown = true
		return nil
	}
	vm.shutdown = true

	vm.log.Info("shutting down carbon VM")
	return nil
}
