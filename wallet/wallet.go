// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package wallet keeps the ledger of wallet objects: recyclable
// funds-custody accounts created on demand for the assignment registry.
// A wallet's identity is immutable once created; its balance is credited
// by deposits and drained only by the settlement authority.
package wallet

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/stakevault/vault/kv"
	"github.com/stakevault/vault/log"
	"github.com/stakevault/vault/metrics"
	"github.com/stakevault/vault/vault"
)

var logger = log.WithContext("pkg", "wallet")

var metricSwept = metrics.LazyLoadCounter("wallet_sweep_total")

// ErrUnknownWallet the handle names no wallet object.
var ErrUnknownWallet = errors.New("unknown wallet")

// ErrPermissionDenied the caller is not the wallet's settlement authority.
var ErrPermissionDenied = errors.New("permission denied")

var (
	objectPrefix = []byte("wallet/object/")
	nonceKey     = []byte("wallet/nonce")
)

func objectKey(wallet vault.Address) []byte {
	return append(append([]byte(nil), objectPrefix...), wallet.Bytes()...)
}

// object is the persisted form of one wallet.
type object struct {
	Settlement vault.Address
	Balance    *big.Int
}

// Ledger tracks every wallet object ever created.
type Ledger struct {
	store kv.GetPutter

	mu    sync.Mutex
	nonce uint64 // count of wallets ever created, drives handle derivation
}

// NewLedger creates a ledger over the given store, restoring the creation
// counter.
func NewLedger(store kv.GetPutter) (*Ledger, error) {
	l := &Ledger{store: store}
	data, err := store.Get(nonceKey)
	if err != nil {
		if !store.IsNotFound(err) {
			return nil, errors.Wrap(err, "load wallet nonce")
		}
	} else {
		if err := rlp.DecodeBytes(data, &l.nonce); err != nil {
			return nil, errors.Wrap(err, "decode wallet nonce")
		}
	}
	return l, nil
}

// CreateWallet instantiates a new wallet object bound to the settlement
// authority and returns its handle. Handles are never destroyed, only
// recycled by the registry.
func (l *Ledger) CreateWallet(settlement vault.Address) (vault.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	handle := vault.NewWalletAddress(settlement, l.nonce)
	batch := l.store.NewBatch()
	if err := saveObject(batch, handle, &object{Settlement: settlement, Balance: new(big.Int)}); err != nil {
		return vault.Address{}, err
	}
	nonce, err := rlp.EncodeToBytes(l.nonce + 1)
	if err != nil {
		return vault.Address{}, err
	}
	if err := batch.Put(nonceKey, nonce); err != nil {
		return vault.Address{}, err
	}
	if err := batch.Write(); err != nil {
		return vault.Address{}, errors.Wrap(err, "persist wallet")
	}

	l.nonce++
	logger.Debug("wallet object created", "wallet", handle, "settlement", settlement)
	return handle, nil
}

// BalanceOf returns the wallet's current balance.
func (l *Ledger) BalanceOf(wallet vault.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	obj, err := l.getObject(wallet)
	if err != nil {
		return nil, err
	}
	return obj.Balance, nil
}

// Deposit credits the wallet. This is how deposits and rewards earned by
// the assigned validator arrive.
func (l *Ledger) Deposit(wallet vault.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errors.New("non-positive deposit")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	obj, err := l.getObject(wallet)
	if err != nil {
		return err
	}
	obj.Balance = new(big.Int).Add(obj.Balance, amount)
	if err := saveObject(l.store, wallet, obj); err != nil {
		return errors.Wrap(err, "persist deposit")
	}
	logger.Debug("wallet credited", "wallet", wallet, "amount", amount, "balance", obj.Balance)
	return nil
}

// Sweep forwards the wallet's full balance to its settlement authority and
// returns the amount moved. Only the settlement authority may command it.
func (l *Ledger) Sweep(wallet vault.Address, caller vault.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	obj, err := l.getObject(wallet)
	if err != nil {
		return nil, err
	}
	if caller != obj.Settlement {
		return nil, ErrPermissionDenied
	}

	amount := obj.Balance
	obj.Balance = new(big.Int)
	if err := saveObject(l.store, wallet, obj); err != nil {
		return nil, errors.Wrap(err, "persist sweep")
	}

	metricSwept().Add(1)
	logger.Debug("wallet swept", "wallet", wallet, "amount", amount, "to", obj.Settlement)
	return amount, nil
}

// Exists reports whether the handle names a created wallet object.
func (l *Ledger) Exists(wallet vault.Address) (bool, error) {
	has, err := l.store.Has(objectKey(wallet))
	return has, errors.Wrap(err, "check wallet")
}

func (l *Ledger) getObject(wallet vault.Address) (*object, error) {
	data, err := l.store.Get(objectKey(wallet))
	if err != nil {
		if l.store.IsNotFound(err) {
			return nil, ErrUnknownWallet
		}
		return nil, errors.Wrap(err, "get wallet")
	}
	var obj object
	if err := rlp.DecodeBytes(data, &obj); err != nil {
		return nil, errors.Wrap(err, "decode wallet")
	}
	return &obj, nil
}

func saveObject(putter kv.Putter, wallet vault.Address, obj *object) error {
	data, err := rlp.EncodeToBytes(obj)
	if err != nil {
		return err
	}
	return putter.Put(objectKey(wallet), data)
}
