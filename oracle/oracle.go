// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package oracle provides the role and deposit collaborators the registry
// consumes. Membership and deposits are loaded once from a YAML file and
// trusted as ground truth.
package oracle

import (
	"math/big"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/stakevault/vault/log"
	"github.com/stakevault/vault/vault"
)

var logger = log.WithContext("pkg", "oracle")

// Config is the file form of the oracle state.
type Config struct {
	Admins     []string          `yaml:"admins"`
	Managers   []string          `yaml:"managers"`
	Validators map[string]string `yaml:"validators"` // identity -> deposit amount, decimal
}

// Oracle answers role membership and deposit queries.
type Oracle struct {
	admins   map[vault.Address]struct{}
	managers map[vault.Address]struct{}
	deposits map[vault.Bytes32]*big.Int
}

// FromFile loads the oracle state from a YAML file.
func FromFile(path string) (*Oracle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read oracle config")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse oracle config")
	}
	return FromConfig(&cfg)
}

// FromConfig builds the oracle from an already parsed config.
func FromConfig(cfg *Config) (*Oracle, error) {
	o := &Oracle{
		admins:   make(map[vault.Address]struct{}, len(cfg.Admins)),
		managers: make(map[vault.Address]struct{}, len(cfg.Managers)),
		deposits: make(map[vault.Bytes32]*big.Int, len(cfg.Validators)),
	}

	for _, s := range cfg.Admins {
		addr, err := vault.ParseAddress(s)
		if err != nil {
			return nil, errors.WithMessagef(err, "admin %q", s)
		}
		o.admins[*addr] = struct{}{}
	}
	for _, s := range cfg.Managers {
		addr, err := vault.ParseAddress(s)
		if err != nil {
			return nil, errors.WithMessagef(err, "manager %q", s)
		}
		o.managers[*addr] = struct{}{}
	}
	for id, amount := range cfg.Validators {
		validator, err := vault.ParseBytes32(id)
		if err != nil {
			return nil, errors.WithMessagef(err, "validator %q", id)
		}
		deposit, ok := new(big.Int).SetString(amount, 10)
		if !ok || deposit.Sign() < 0 {
			return nil, errors.Errorf("validator %q: bad deposit amount %q", id, amount)
		}
		o.deposits[validator] = deposit
	}

	logger.Info("oracle loaded",
		"admins", len(o.admins),
		"managers", len(o.managers),
		"validators", len(o.deposits),
	)
	return o, nil
}

// IsAdmin reports whether the caller is an admin.
func (o *Oracle) IsAdmin(caller vault.Address) bool {
	_, ok := o.admins[caller]
	return ok
}

// IsManager reports whether the caller is a wallet manager.
func (o *Oracle) IsManager(caller vault.Address) bool {
	_, ok := o.managers[caller]
	return ok
}

// DepositAmount returns the deposit recorded for the validator, nil when
// none is recorded.
func (o *Oracle) DepositAmount(validator vault.Bytes32) *big.Int {
	return o.deposits[validator]
}
