// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/stakevault/vault/api"
	"github.com/stakevault/vault/eventdb"
	"github.com/stakevault/vault/log"
	"github.com/stakevault/vault/oracle"
	"github.com/stakevault/vault/registry"
	"github.com/stakevault/vault/wallet"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "vaultd",
		Usage:     "validator settlement wallet registry",
		Copyright: "2026 StakeVault",
		Flags: []cli.Flag{
			dataDirFlag,
			oracleConfigFlag,
			settlementFlag,
			validatorLedgerFlag,
			adminRegistryFlag,
			managerRegistryFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiEventsLimitFlag,
			pprofFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableMetricsFlag,
			metricsAddrFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	initLogger(ctx)

	oraclePath := ctx.String(oracleConfigFlag.Name)
	if oraclePath == "" {
		fatalf("-%s is required", oracleConfigFlag.Name)
	}
	roles, err := oracle.FromFile(oraclePath)
	if err != nil {
		fatal(err)
	}

	dataDir := makeDataDir(ctx)

	store := openStore(dataDir)
	defer func() { logger.Info("closing registry database..."); store.Close() }()

	eventDB, err := eventdb.New(filepath.Join(dataDir, "events.db"))
	if err != nil {
		fatalf("open event database: %v", err)
	}
	defer func() { logger.Info("closing event database..."); eventDB.Close() }()

	ledger, err := wallet.NewLedger(store)
	if err != nil {
		fatal("open wallet ledger:", err)
	}
	reg, err := registry.New(store, roles, roles, ledger)
	if err != nil {
		fatal("open registry:", err)
	}
	defer func() { logger.Info("closing registry..."); reg.Close() }()

	setupParams(ctx, reg)

	exitCtx := handleExitSignal()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		drainEvents(exitCtx, reg, eventDB)
	}()

	apiHandler, apiCloser := api.New(reg, ledger, eventDB, api.Options{
		AllowedOrigins: ctx.String(apiCorsFlag.Name),
		EventsLimit:    ctx.Uint64(apiEventsLimitFlag.Name),
		PprofOn:        ctx.Bool(pprofFlag.Name),
		EnableMetrics:  ctx.Bool(enableMetricsFlag.Name),
	})
	defer apiCloser()

	metricsSrv := startMetricsServer(ctx)
	if metricsSrv != nil {
		defer func() { logger.Info("stopping metrics server..."); metricsSrv.Shutdown(context.Background()) }()
	}

	apiSrv, apiURL := startAPIServer(ctx, apiHandler)
	defer func() { logger.Info("stopping API server..."); apiSrv.Shutdown(context.Background()) }()

	printStartupMessage(reg, dataDir, apiURL)

	<-exitCtx.Done()
	wg.Wait()
	return nil
}

// drainEvents copies committed registry transitions into the event db,
// making them queryable across restarts.
func drainEvents(ctx context.Context, reg *registry.Registry, eventDB *eventdb.EventDB) {
	events := make(chan *registry.Event, 256)
	sub := reg.SubscribeEvents(events)
	defer sub.Unsubscribe()

	for {
		select {
		case ev := <-events:
			if err := eventDB.Insert(ev); err != nil {
				logger.Error("failed to persist event", "seq", ev.Seq, "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func printStartupMessage(reg *registry.Registry, dataDir string, apiURL string) {
	params, err := reg.Params()
	if err != nil {
		fatal("read registry params:", err)
	}
	fmt.Printf(`Starting %v
    Network      [ settlement %v ]
    Pool         [ %v available, %v assigned ]
    Data dir     [ %v ]
    API portal   [ %v ]
`,
		fullVersion(),
		params.SettlementAuthority,
		len(reg.Available()),
		reg.AssignedCount(),
		dataDir,
		apiURL)
}
