// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/database"
	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/database/corruptabledb"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/carbon/api/metrics"
	"github.com/luxfi/carbon/api/server"
	"github.com/luxfi/carbon/vms/carbonvm"
)

const (
	readHeaderTimeout = 10 * time.Second

	apiNamespace     = "api"
	runtimeNamespace = "runtime"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Runs the carbon VM behind its JSON-RPC API",
		RunE:  serveFunc,
	}
	AddFlags(c.Flags())
	return c
}

func serveFunc(c *cobra.Command, args []string) error {
	config, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}
	return Run(c.Context(), log.NewLogger(carbonvm.Name), config)
}

// Run serves the VM until ctx is cancelled or the server fails.
func Run(ctx context.Context, logger log.Logger, config *Config) (err error) {
	var genesisBytes []byte
	if config.GenesisFile != "" {
		genesisBytes, err = os.ReadFile(config.GenesisFile)
		if err != nil {
			return fmt.Errorf("failed to read genesis: %w", err)
		}
	}

	gatherer := metrics.NewPrefixGatherer()
	registries := make(map[string]metric.Registry, 3)
	for _, name := range []string{carbonvm.Name, apiNamespace, runtimeNamespace} {
		registries[name], err = metrics.MakeAndRegister(gatherer, name)
		if err != nil {
			return err
		}
	}
	if err := errors.Join(
		registries[runtimeNamespace].Register(metric.NewGoCollector()),
		registries[runtimeNamespace].Register(metric.NewProcessCollector(metric.ProcessCollectorOpts{})),
	); err != nil {
		return err
	}

	db, err := openDB(logger, config.DBDir)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, db.Close())
	}()

	vm, err := carbonvm.NewFactory(config.VM).New(logger)
	if err != nil {
		return err
	}
	if err := vm.Initialize(ctx, db, genesisBytes, nil, registries[carbonvm.Name]); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, vm.Shutdown(context.Background()))
	}()

	listener, err := net.Listen("tcp", net.JoinHostPort(config.HTTPHost, strconv.Itoa(int(config.HTTPPort))))
	if err != nil {
		return err
	}
	srv, err := server.New(
		logger,
		listener,
		config.AllowedOrigins,
		config.ShutdownTimeout,
		registries[apiNamespace],
		server.HTTPConfig{ReadHeaderTimeout: readHeaderTimeout},
		config.AllowedHosts,
	)
	if err != nil {
		return errors.Join(err, listener.Close())
	}
	if err := errors.Join(
		srv.RegisterVM(ctx, carbonvm.Name, vm),
		srv.AddRoute(metric.HandlerFor(gatherer), "metrics", ""),
	); err != nil {
		return errors.Join(err, listener.Close())
	}

	logger.Info("serving carbon VM",
		log.String("address", listener.Addr().String()),
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := srv.Dispatch(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		logger.Info("shutting down")
		return srv.Shutdown()
	})
	return eg.Wait()
}

func openDB(logger log.Logger, dir string) (database.Database, error) {
	if dir == "" {
		logger.Warn("no database directory set, state is kept in memory")
		return memdb.New(), nil
	}
	db, err := badgerdb.New(dir, nil, "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", dir, err)
	}
	return corruptabledb.New(db, logger), nil
}
