// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/stakevault/vault/kv"
	"github.com/stakevault/vault/log"
	"github.com/stakevault/vault/metrics"
	"github.com/stakevault/vault/registry"
	"github.com/stakevault/vault/vault"
)

func fatal(args ...any) {
	fmt.Fprint(os.Stderr, "Fatal: ")
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}

func fatalf(format string, args ...any) {
	fatal(fmt.Sprintf(format, args...))
}

func defaultDataDir() string {
	// try to place the data folder in the user's home dir
	if u, err := user.Current(); err == nil && u.HomeDir != "" {
		return filepath.Join(u.HomeDir, ".vaultd")
	}
	return ""
}

func initLogger(ctx *cli.Context) {
	var lvl slog.LevelVar
	lvl.Set(log.FromLegacyLevel(int(ctx.Uint64(verbosityFlag.Name))))

	output := os.Stdout
	useJSON := ctx.Bool(jsonLogsFlag.Name) || !isatty.IsTerminal(output.Fd())
	var handler slog.Handler
	if useJSON {
		handler = log.JSONHandlerWithLevel(output, &lvl)
	} else {
		handler = log.LogfmtHandlerWithLevel(output, &lvl)
	}
	log.SetDefault(log.NewLogger(handler))
}

func makeDataDir(ctx *cli.Context) string {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		fatalf("unable to infer default data dir, use -%s to specify one", dataDirFlag.Name)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		fatalf("create data dir at '%v': %v", dataDir, err)
	}
	return dataDir
}

func openStore(dataDir string) *kv.LevelDB {
	dir := filepath.Join(dataDir, "registry.db")
	store, err := kv.Open(dir, 128, 512)
	if err != nil {
		fatalf("open registry database at '%v': %v", dir, err)
	}
	return store
}

// setupParams runs one-time setup from the flags when the registry has not
// been initialized yet. Repeated starts with setup flags are tolerated as
// long as the registry already holds params.
func setupParams(ctx *cli.Context, reg *registry.Registry) {
	if reg.Initialized() {
		return
	}
	params, err := paramsFromFlags(ctx)
	if err != nil {
		fatal(err)
	}
	if err := reg.Initialize(params); err != nil {
		fatal("initialize registry:", err)
	}
	logger.Info("registry initialized", "settlement", params.SettlementAuthority)
}

func paramsFromFlags(ctx *cli.Context) (*registry.Params, error) {
	parse := func(flag cli.StringFlag) (vault.Address, error) {
		s := ctx.String(flag.Name)
		if s == "" {
			return vault.Address{}, errors.Errorf("registry not initialized, -%s is required for first start", flag.Name)
		}
		addr, err := vault.ParseAddress(s)
		if err != nil {
			return vault.Address{}, errors.WithMessage(err, flag.Name)
		}
		return *addr, nil
	}

	var (
		params registry.Params
		err    error
	)
	if params.SettlementAuthority, err = parse(settlementFlag); err != nil {
		return nil, err
	}
	if params.ValidatorLedger, err = parse(validatorLedgerFlag); err != nil {
		return nil, err
	}
	if params.AdminRegistry, err = parse(adminRegistryFlag); err != nil {
		return nil, err
	}
	if params.ManagerRegistry, err = parse(managerRegistryFlag); err != nil {
		return nil, err
	}
	return &params, nil
}

func startAPIServer(ctx *cli.Context, handler http.HandlerFunc) (*http.Server, string) {
	addr := ctx.String(apiAddrFlag.Name)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		fatalf("listen API addr '%v': %v", addr, err)
	}
	srv := &http.Server{Handler: handler}
	go func() {
		srv.Serve(listener)
	}()
	return srv, "http://" + listener.Addr().String() + "/"
}

func startMetricsServer(ctx *cli.Context) *http.Server {
	if !ctx.Bool(enableMetricsFlag.Name) {
		return nil
	}
	metrics.InitializePrometheusMetrics()

	addr := ctx.String(metricsAddrFlag.Name)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		fatalf("listen metrics addr '%v': %v", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler())
	srv := &http.Server{Handler: mux}
	go func() {
		srv.Serve(listener)
	}()
	logger.Info("metrics server started", "addr", "http://"+listener.Addr().String()+"/metrics")
	return srv
}

func handleExitSignal() context.Context {
	exitSignalCh := make(chan os.Signal, 1)
	signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}
