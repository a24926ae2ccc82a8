// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"math/big"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakevault/vault/kv"
	"github.com/stakevault/vault/vault"
)

var (
	admin      = vault.BytesToAddress([]byte("admin"))
	manager    = vault.BytesToAddress([]byte("manager"))
	settlement = vault.BytesToAddress([]byte("settlement"))
	stranger   = vault.BytesToAddress([]byte("stranger"))

	v1 = vault.BytesToBytes32([]byte("validator-1"))
	v2 = vault.BytesToBytes32([]byte("validator-2"))
	v3 = vault.BytesToBytes32([]byte("validator-3"))
)

type fakeRoles struct{}

func (fakeRoles) IsAdmin(caller vault.Address) bool   { return caller == admin }
func (fakeRoles) IsManager(caller vault.Address) bool { return caller == manager }

type fakeDeposits map[vault.Bytes32]*big.Int

func (d fakeDeposits) DepositAmount(validator vault.Bytes32) *big.Int { return d[validator] }

type fakeFactory struct {
	created  int
	balances map[vault.Address]*big.Int
}

func (f *fakeFactory) CreateWallet(settlement vault.Address) (vault.Address, error) {
	wallet := vault.NewWalletAddress(settlement, uint64(f.created))
	f.created++
	return wallet, nil
}

func (f *fakeFactory) BalanceOf(wallet vault.Address) (*big.Int, error) {
	if bal, ok := f.balances[wallet]; ok {
		return bal, nil
	}
	return new(big.Int), nil
}

func newTestRegistry(t *testing.T) (*Registry, *fakeFactory, *kv.LevelDB) {
	store, err := kv.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	factory := &fakeFactory{balances: make(map[vault.Address]*big.Int)}
	deposits := fakeDeposits{
		v1: big.NewInt(1000),
		v2: big.NewInt(2000),
		v3: big.NewInt(3000),
	}
	reg, err := New(store, fakeRoles{}, deposits, factory)
	require.NoError(t, err)
	t.Cleanup(reg.Close)
	return reg, factory, store
}

func initTestRegistry(t *testing.T, reg *Registry) {
	require.NoError(t, reg.Initialize(&Params{
		SettlementAuthority: settlement,
		ValidatorLedger:     vault.BytesToAddress([]byte("ledger")),
		AdminRegistry:       vault.BytesToAddress([]byte("admins")),
		ManagerRegistry:     vault.BytesToAddress([]byte("managers")),
	}))
}

func TestInitializeOnce(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	_, err := reg.Assign(v1, manager)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, reg.Reset(vault.Address{}, admin), ErrNotInitialized)
	assert.ErrorIs(t, reg.Unlock(vault.Address{}, settlement), ErrNotInitialized)

	initTestRegistry(t, reg)
	params, err := reg.Params()
	require.NoError(t, err)
	assert.Equal(t, settlement, params.SettlementAuthority)

	// a second setup must fail and must not alter the bound addresses
	err = reg.Initialize(&Params{SettlementAuthority: stranger})
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	params, _ = reg.Params()
	assert.Equal(t, settlement, params.SettlementAuthority)
}

func TestAssign(t *testing.T) {
	reg, factory, _ := newTestRegistry(t)
	initTestRegistry(t, reg)

	wallet, err := reg.Assign(v1, manager)
	require.NoError(t, err)
	assert.Equal(t, 1, factory.created)

	rec, ok := reg.Get(wallet)
	require.True(t, ok)
	assert.Equal(t, Record{Unlocked: false, Validator: v1}, rec)

	bound, ok := reg.WalletOf(v1)
	require.True(t, ok)
	assert.Equal(t, wallet, bound)

	// double assign for the same validator
	_, err = reg.Assign(v1, manager)
	assert.ErrorIs(t, err, ErrAlreadyAssigned)

	// unknown validator has no deposit
	_, err = reg.Assign(vault.BytesToBytes32([]byte("validator-x")), manager)
	assert.ErrorIs(t, err, ErrNoDeposit)

	// non-manager caller
	_, err = reg.Assign(v2, stranger)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = reg.Assign(v2, admin)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// failures left no trace
	_, ok = reg.WalletOf(v2)
	assert.False(t, ok)
	assert.Equal(t, 1, reg.AssignedCount())
}

// failingStore makes every batch fail at Write time. Direct Puts still work,
// so setup succeeds while state-changing ops cannot persist.
type failingStore struct {
	*kv.LevelDB
}

func (s *failingStore) NewBatch() kv.Batch {
	return &failingBatch{s.LevelDB.NewBatch()}
}

type failingBatch struct {
	kv.Batch
}

func (b *failingBatch) Write() error { return errors.New("disk full") }

func TestAssignPersistFailure(t *testing.T) {
	store, err := kv.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	factory := &fakeFactory{balances: make(map[vault.Address]*big.Int)}
	reg, err := New(&failingStore{store}, fakeRoles{}, fakeDeposits{v1: big.NewInt(1000)}, factory)
	require.NoError(t, err)
	t.Cleanup(reg.Close)
	initTestRegistry(t, reg)

	_, err = reg.Assign(v1, manager)
	require.Error(t, err)

	// the wallet object was created but the registry forgot it entirely
	assert.Equal(t, 1, factory.created)
	_, ok := reg.WalletOf(v1)
	assert.False(t, ok)
	assert.Equal(t, 0, reg.AssignedCount())
	assert.Empty(t, reg.Available())
}

func TestUnlock(t *testing.T) {
	reg, factory, _ := newTestRegistry(t)
	initTestRegistry(t, reg)

	wallet, err := reg.Assign(v1, manager)
	require.NoError(t, err)
	factory.balances[wallet] = big.NewInt(777)

	assert.ErrorIs(t, reg.Unlock(wallet, manager), ErrPermissionDenied)
	assert.ErrorIs(t, reg.Unlock(wallet, admin), ErrPermissionDenied)

	ch := make(chan *Event, 1)
	sub := reg.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	require.NoError(t, reg.Unlock(wallet, settlement))
	rec, _ := reg.Get(wallet)
	assert.True(t, rec.Unlocked)
	assert.Equal(t, v1, rec.Validator)

	ev := <-ch
	assert.Equal(t, EventUnlocked, ev.Type)
	assert.Equal(t, wallet, ev.Wallet)
	assert.Equal(t, v1, ev.Validator)
	assert.Equal(t, big.NewInt(777), ev.Balance)

	// second unlock
	assert.ErrorIs(t, reg.Unlock(wallet, settlement), ErrAlreadyUnlocked)

	// unlocking an unassigned wallet
	assert.ErrorIs(t, reg.Unlock(stranger, settlement), ErrAlreadyReset)
}

func TestReset(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	initTestRegistry(t, reg)

	wallet, err := reg.Assign(v1, manager)
	require.NoError(t, err)

	assert.ErrorIs(t, reg.Reset(wallet, manager), ErrPermissionDenied)
	assert.ErrorIs(t, reg.Reset(wallet, stranger), ErrPermissionDenied)

	// reset is reachable directly from assigned-locked
	require.NoError(t, reg.Reset(wallet, admin))

	rec, ok := reg.Get(wallet)
	require.True(t, ok)
	assert.True(t, rec.IsEmpty())
	_, ok = reg.WalletOf(v1)
	assert.False(t, ok)
	assert.Equal(t, []vault.Address{wallet}, reg.Available())

	// double reset
	assert.ErrorIs(t, reg.Reset(wallet, admin), ErrAlreadyReset)
}

func TestReuseLIFO(t *testing.T) {
	reg, factory, _ := newTestRegistry(t)
	initTestRegistry(t, reg)

	w1, err := reg.Assign(v1, manager)
	require.NoError(t, err)
	w2, err := reg.Assign(v2, manager)
	require.NoError(t, err)
	assert.Equal(t, 2, factory.created)

	// reset w1 then w2: the next assign must reuse w2, then w1
	require.NoError(t, reg.Reset(w1, admin))
	require.NoError(t, reg.Reset(w2, admin))

	got, err := reg.Assign(v3, manager)
	require.NoError(t, err)
	assert.Equal(t, w2, got)

	got, err = reg.Assign(v1, manager)
	require.NoError(t, err)
	assert.Equal(t, w1, got)

	// no new wallet objects were created for the reuses
	assert.Equal(t, 2, factory.created)
}

func TestEndToEndRecycle(t *testing.T) {
	reg, factory, _ := newTestRegistry(t)
	initTestRegistry(t, reg)

	w1, err := reg.Assign(v1, manager)
	require.NoError(t, err)
	factory.balances[w1] = big.NewInt(10)

	require.NoError(t, reg.Unlock(w1, settlement))
	require.NoError(t, reg.Reset(w1, admin))

	w2, err := reg.Assign(v2, manager)
	require.NoError(t, err)
	assert.Equal(t, w1, w2, "the same physical wallet must be reused")

	// v1 is gone from every record, and the reused wallet is locked again
	_, ok := reg.WalletOf(v1)
	assert.False(t, ok)
	rec, _ := reg.Get(w2)
	assert.Equal(t, Record{Unlocked: false, Validator: v2}, rec)
}

func TestEventSequence(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	initTestRegistry(t, reg)

	ch := make(chan *Event, 8)
	sub := reg.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	w1, _ := reg.Assign(v1, manager)
	_ = reg.Unlock(w1, settlement)
	_ = reg.Reset(w1, admin)

	for i, want := range []EventType{EventAssigned, EventUnlocked, EventReset} {
		ev := <-ch
		assert.Equal(t, want, ev.Type)
		assert.Equal(t, uint64(i+1), ev.Seq)
		if want == EventReset {
			// reset events carry the handle only
			assert.True(t, ev.Validator.IsZero())
			assert.Equal(t, w1, ev.Wallet)
		}
	}
}

func TestStalledSubscriberDoesNotBlockOps(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	initTestRegistry(t, reg)

	// an unbuffered channel nobody reads: feed delivery to it can never
	// complete until the subscription dies
	stalled := make(chan *Event)
	stalledSub := reg.SubscribeEvents(stalled)
	defer stalledSub.Unsubscribe()

	healthy := make(chan *Event, 8)
	healthySub := reg.SubscribeEvents(healthy)
	defer healthySub.Unsubscribe()

	done := make(chan error, 1)
	go func() {
		w, err := reg.Assign(v1, manager)
		if err == nil {
			err = reg.Reset(w, admin)
		}
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("operations blocked behind a stalled subscriber")
	}

	// free the feed so the healthy subscriber can observe both events in
	// commit order
	stalledSub.Unsubscribe()
	for i, want := range []EventType{EventAssigned, EventReset} {
		select {
		case ev := <-healthy:
			assert.Equal(t, want, ev.Type)
			assert.Equal(t, uint64(i+1), ev.Seq)
		case <-time.After(5 * time.Second):
			t.Fatal("event never delivered")
		}
	}
}

func TestRestartRestore(t *testing.T) {
	store, err := kv.NewMem()
	require.NoError(t, err)
	defer store.Close()

	factory := &fakeFactory{balances: make(map[vault.Address]*big.Int)}
	deposits := fakeDeposits{v1: big.NewInt(1), v2: big.NewInt(1), v3: big.NewInt(1)}

	reg, err := New(store, fakeRoles{}, deposits, factory)
	require.NoError(t, err)
	initTestRegistry(t, reg)

	w1, err := reg.Assign(v1, manager)
	require.NoError(t, err)
	w2, err := reg.Assign(v2, manager)
	require.NoError(t, err)
	require.NoError(t, reg.Unlock(w2, settlement))
	require.NoError(t, reg.Reset(w1, admin))
	reg.Close()

	// a fresh registry over the same store sees the same model
	restored, err := New(store, fakeRoles{}, deposits, factory)
	require.NoError(t, err)
	defer restored.Close()

	assert.True(t, restored.Initialized())
	_, ok := restored.WalletOf(v1)
	assert.False(t, ok)
	bound, ok := restored.WalletOf(v2)
	require.True(t, ok)
	assert.Equal(t, w2, bound)

	rec, ok := restored.Get(w2)
	require.True(t, ok)
	assert.True(t, rec.Unlocked)

	rec, ok = restored.Get(w1)
	require.True(t, ok)
	assert.True(t, rec.IsEmpty())
	assert.Equal(t, []vault.Address{w1}, restored.Available())

	// reuse order survives the restart
	got, err := restored.Assign(v3, manager)
	require.NoError(t, err)
	assert.Equal(t, w1, got)
}

func TestBijection(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	initTestRegistry(t, reg)

	w1, _ := reg.Assign(v1, manager)
	w2, _ := reg.Assign(v2, manager)
	assert.NotEqual(t, w1, w2)

	// every wallet binds at most one validator and vice versa
	for _, tt := range []struct {
		validator vault.Bytes32
		wallet    vault.Address
	}{{v1, w1}, {v2, w2}} {
		bound, ok := reg.WalletOf(tt.validator)
		require.True(t, ok)
		assert.Equal(t, tt.wallet, bound)
		rec, ok := reg.Get(tt.wallet)
		require.True(t, ok)
		assert.Equal(t, tt.validator, rec.Validator)
	}
}
