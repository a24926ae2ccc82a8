// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package registry implements the wallet assignment registry: the 1:1
// binding between validator identities and reusable wallet objects, and
// the role-gated lifecycle transitions between the available,
// assigned-locked and assigned-unlocked wallet states.
package registry

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"

	"github.com/stakevault/vault/kv"
	"github.com/stakevault/vault/log"
	"github.com/stakevault/vault/metrics"
	"github.com/stakevault/vault/vault"
)

var logger = log.WithContext("pkg", "registry")

var (
	metricOps       = metrics.LazyLoadCounterVec("registry_op_total", []string{"op", "outcome"})
	metricAvailable = metrics.LazyLoadGauge("registry_available_wallets")
	metricCreated   = metrics.LazyLoadCounter("registry_wallets_created_total")
)

// Registry owns the validator↔wallet assignment state machine.
//
// Every state-changing operation runs as one critical section: read, check
// preconditions, persist the mutation, update the in-memory model, emit the
// notification. A failed precondition or a failed persist leaves no effect.
type Registry struct {
	store    kv.GetPutter
	roles    RoleOracle
	deposits DepositLedger
	factory  WalletFactory

	mu       sync.Mutex
	params   *Params
	records  map[vault.Address]*Record
	assigned map[vault.Bytes32]vault.Address
	pool     []vault.Address // available wallets, reused from the tail
	seq      uint64

	feed  event.Feed
	scope event.SubscriptionScope

	// committed events are fanned out by a dedicated goroutine so a slow
	// subscriber can never stall operations holding mu. The queue keeps
	// delivery in seq order.
	emitMu    sync.Mutex
	emitQueue []*Event
	emitCh    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a registry over the given store and collaborators, restoring
// any previously persisted state.
func New(store kv.GetPutter, roles RoleOracle, deposits DepositLedger, factory WalletFactory) (*Registry, error) {
	r := &Registry{
		store:    store,
		roles:    roles,
		deposits: deposits,
		factory:  factory,
		records:  make(map[vault.Address]*Record),
		assigned: make(map[vault.Bytes32]vault.Address),
		emitCh:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if err := r.loadState(); err != nil {
		return nil, err
	}
	r.wg.Add(1)
	go r.emitLoop()
	metricAvailable().Set(int64(len(r.pool)))
	if r.params != nil {
		logger.Info("registry state restored",
			"assigned", len(r.assigned),
			"available", len(r.pool),
			"seq", r.seq,
		)
	}
	return r, nil
}

// Close flushes pending notifications and releases all event subscriptions.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		r.scope.Close()
	})
}

// emitLoop delivers committed events outside the registry lock, in commit
// order.
func (r *Registry) emitLoop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.emitCh:
			r.flushEvents()
		case <-r.done:
			r.flushEvents()
			return
		}
	}
}

func (r *Registry) flushEvents() {
	for {
		r.emitMu.Lock()
		pending := r.emitQueue
		r.emitQueue = nil
		r.emitMu.Unlock()
		if len(pending) == 0 {
			return
		}
		for _, ev := range pending {
			r.feed.Send(ev)
		}
	}
}

// emit queues a committed event for delivery. Never blocks.
func (r *Registry) emit(ev *Event) {
	r.emitMu.Lock()
	r.emitQueue = append(r.emitQueue, ev)
	r.emitMu.Unlock()
	select {
	case r.emitCh <- struct{}{}:
	default:
	}
}

// SubscribeEvents receivers will receive every committed transition.
func (r *Registry) SubscribeEvents(ch chan *Event) event.Subscription {
	return r.scope.Track(r.feed.Subscribe(ch))
}

// Initialize binds the registry to its collaborator identities. It must be
// invoked exactly once before any other operation is accepted; a second
// invocation fails with ErrAlreadyInitialized and alters nothing.
func (r *Registry) Initialize(params *Params) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.params != nil {
		return ErrAlreadyInitialized
	}
	if err := saveParams(r.store, params); err != nil {
		return errors.Wrap(err, "persist params")
	}
	copied := *params
	r.params = &copied
	logger.Info("registry initialized",
		"settlement", params.SettlementAuthority,
		"validatorLedger", params.ValidatorLedger,
		"adminRegistry", params.AdminRegistry,
		"managerRegistry", params.ManagerRegistry,
	)
	return nil
}

// Initialized reports whether setup has run.
func (r *Registry) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params != nil
}

// Params returns the bound collaborator identities.
func (r *Registry) Params() (Params, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.params == nil {
		return Params{}, ErrNotInitialized
	}
	return *r.params, nil
}

// Assign binds a wallet to the given validator and returns its handle.
// The wallet is reused from the available pool when possible, otherwise a
// new wallet object is created bound to the settlement authority. Callable
// by managers only.
//
// Creating the wallet object and persisting the assignment are two steps.
// If the persist fails after a fresh wallet was created, the registry state
// is untouched but the wallet object remains in the ledger, orphaned. It is
// never handed out; a later Assign creates a new one.
func (r *Registry) Assign(validator vault.Bytes32, caller vault.Address) (vault.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.params == nil {
		return vault.Address{}, r.opFailed("assign", ErrNotInitialized)
	}
	if _, bound := r.assigned[validator]; bound {
		return vault.Address{}, r.opFailed("assign", ErrAlreadyAssigned)
	}
	if amount := r.deposits.DepositAmount(validator); amount == nil || amount.Sign() == 0 {
		return vault.Address{}, r.opFailed("assign", ErrNoDeposit)
	}
	if !r.roles.IsManager(caller) {
		return vault.Address{}, r.opFailed("assign", ErrPermissionDenied)
	}

	var (
		wallet  vault.Address
		pool    = r.pool
		created bool
	)
	if n := len(pool); n > 0 {
		// last reset, first reused
		wallet = pool[n-1]
		pool = pool[:n-1]
	} else {
		var err error
		if wallet, err = r.factory.CreateWallet(r.params.SettlementAuthority); err != nil {
			return vault.Address{}, errors.Wrap(err, "create wallet")
		}
		created = true
	}

	rec := &Record{Unlocked: false, Validator: validator}
	ev := &Event{
		Seq:       r.seq + 1,
		Type:      EventAssigned,
		Validator: validator,
		Wallet:    wallet,
		Time:      now(),
	}
	if err := r.commit(func(batch kv.Putter) error {
		if err := saveRecord(batch, wallet, rec); err != nil {
			return err
		}
		return savePool(batch, pool)
	}); err != nil {
		if created {
			logger.Warn("assignment not persisted, created wallet orphaned", "wallet", wallet, "err", err)
		}
		return vault.Address{}, err
	}

	r.records[wallet] = rec
	r.assigned[validator] = wallet
	r.pool = pool
	r.seq = ev.Seq

	if created {
		metricCreated().Add(1)
	}
	metricAvailable().Set(int64(len(r.pool)))
	metricOps().AddWithLabel(1, map[string]string{"op": "assign", "outcome": "ok"})
	logger.Debug("wallet assigned", "validator", validator.AbbrevString(), "wallet", wallet, "created", created)

	r.emit(ev)
	return wallet, nil
}

// Reset clears a wallet's assignment and returns the handle to the
// available pool. Callable by admins only. The registry does not verify
// the wallet's residual balance is zero; an admin resetting a wallet
// before settlement paid out all claims strands the remainder with no
// validator attached.
func (r *Registry) Reset(wallet vault.Address, caller vault.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.params == nil {
		return r.opFailed("reset", ErrNotInitialized)
	}
	if !r.roles.IsAdmin(caller) {
		return r.opFailed("reset", ErrPermissionDenied)
	}
	rec := r.records[wallet]
	if rec == nil || !rec.HasValidator() {
		return r.opFailed("reset", ErrAlreadyReset)
	}

	validator := rec.Validator
	cleared := &Record{}
	pool := append(append([]vault.Address(nil), r.pool...), wallet)
	ev := &Event{
		Seq:    r.seq + 1,
		Type:   EventReset,
		Wallet: wallet,
		Time:   now(),
	}
	if err := r.commit(func(batch kv.Putter) error {
		if err := saveRecord(batch, wallet, cleared); err != nil {
			return err
		}
		return savePool(batch, pool)
	}); err != nil {
		return err
	}

	r.records[wallet] = cleared
	delete(r.assigned, validator)
	r.pool = pool
	r.seq = ev.Seq

	metricAvailable().Set(int64(len(r.pool)))
	metricOps().AddWithLabel(1, map[string]string{"op": "reset", "outcome": "ok"})
	logger.Debug("wallet reset", "wallet", wallet, "validator", validator.AbbrevString())

	r.emit(ev)
	return nil
}

// Unlock marks a wallet withdrawable. Callable only by the settlement
// authority bound at setup. The emitted notification carries the wallet
// balance read at the moment of unlocking.
func (r *Registry) Unlock(wallet vault.Address, caller vault.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.params == nil {
		return r.opFailed("unlock", ErrNotInitialized)
	}
	if caller != r.params.SettlementAuthority {
		return r.opFailed("unlock", ErrPermissionDenied)
	}
	rec := r.records[wallet]
	if rec == nil || !rec.HasValidator() {
		return r.opFailed("unlock", ErrAlreadyReset)
	}
	if rec.Unlocked {
		return r.opFailed("unlock", ErrAlreadyUnlocked)
	}

	balance, err := r.factory.BalanceOf(wallet)
	if err != nil {
		return errors.Wrap(err, "read balance")
	}

	unlocked := &Record{Unlocked: true, Validator: rec.Validator}
	ev := &Event{
		Seq:       r.seq + 1,
		Type:      EventUnlocked,
		Validator: rec.Validator,
		Wallet:    wallet,
		Balance:   balance,
		Time:      now(),
	}
	if err := r.commit(func(batch kv.Putter) error {
		return saveRecord(batch, wallet, unlocked)
	}); err != nil {
		return err
	}

	r.records[wallet] = unlocked
	r.seq = ev.Seq

	metricOps().AddWithLabel(1, map[string]string{"op": "unlock", "outcome": "ok"})
	logger.Debug("wallet unlocked", "wallet", wallet, "validator", rec.Validator.AbbrevString(), "balance", balance)

	r.emit(ev)
	return nil
}

// WalletOf returns the wallet currently bound to the validator.
func (r *Registry) WalletOf(validator vault.Bytes32) (vault.Address, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wallet, ok := r.assigned[validator]
	return wallet, ok
}

// Get returns the assignment record of the given wallet handle. ok is false
// for handles the registry has never seen.
func (r *Registry) Get(wallet vault.Address) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[wallet]
	if !ok {
		// available wallets have cleared records
		for _, w := range r.pool {
			if w == wallet {
				return Record{}, true
			}
		}
		return Record{}, false
	}
	return *rec, true
}

// Available returns the handles currently eligible for reuse, in pool order.
func (r *Registry) Available() []vault.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]vault.Address(nil), r.pool...)
}

// AssignedCount returns the number of validators currently holding a wallet.
func (r *Registry) AssignedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.assigned)
}

// commit writes mutation plus the advanced event sequence atomically.
func (r *Registry) commit(mutate func(batch kv.Putter) error) error {
	batch := r.store.NewBatch()
	if err := mutate(batch); err != nil {
		return errors.Wrap(err, "stage mutation")
	}
	if err := saveSeq(batch, r.seq+1); err != nil {
		return errors.Wrap(err, "stage seq")
	}
	return errors.Wrap(batch.Write(), "commit mutation")
}

func (r *Registry) opFailed(op string, err error) error {
	metricOps().AddWithLabel(1, map[string]string{"op": op, "outcome": "rejected"})
	return err
}

func now() uint64 {
	return uint64(time.Now().Unix())
}
