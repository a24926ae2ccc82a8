// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/stakevault/vault/log"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for registry and wallet databases",
	}
	oracleConfigFlag = cli.StringFlag{
		Name:  "oracle-config",
		Usage: "path to the YAML file listing admins, managers and validator deposits",
	}
	settlementFlag = cli.StringFlag{
		Name:  "settlement",
		Usage: "address of the settlement authority, used for one-time setup",
	}
	validatorLedgerFlag = cli.StringFlag{
		Name:  "validator-ledger",
		Usage: "address of the validator deposit ledger, used for one-time setup",
	}
	adminRegistryFlag = cli.StringFlag{
		Name:  "admin-registry",
		Usage: "address of the admin registry, used for one-time setup",
	}
	managerRegistryFlag = cli.StringFlag{
		Name:  "manager-registry",
		Usage: "address of the manager registry, used for one-time setup",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8669",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiEventsLimitFlag = cli.Uint64Flag{
		Name:  "api-events-limit",
		Value: 1000,
		Usage: "limit the number of events returned by the /events API",
	}
	pprofFlag = cli.BoolFlag{
		Name:  "pprof",
		Usage: "turn on go-pprof",
	}
	verbosityFlag = cli.Uint64Flag{
		Name:  "verbosity",
		Value: log.LegacyLevelInfo,
		Usage: "log verbosity (0-5)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}
)
