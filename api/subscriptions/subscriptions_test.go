// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakevault/vault/kv"
	"github.com/stakevault/vault/oracle"
	"github.com/stakevault/vault/registry"
	"github.com/stakevault/vault/vault"
	"github.com/stakevault/vault/wallet"
)

var (
	manager    = vault.BytesToAddress([]byte("manager"))
	settlement = vault.BytesToAddress([]byte("settlement"))
	validator  = vault.BytesToBytes32([]byte("validator-1"))
)

func newTestSetup(t *testing.T) (string, *registry.Registry) {
	store, err := kv.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	roles, err := oracle.FromConfig(&oracle.Config{
		Admins:   []string{manager.String()},
		Managers: []string{manager.String()},
		Validators: map[string]string{
			validator.String(): "1000",
		},
	})
	require.NoError(t, err)
	ledger, err := wallet.NewLedger(store)
	require.NoError(t, err)
	reg, err := registry.New(store, roles, roles, ledger)
	require.NoError(t, err)
	t.Cleanup(reg.Close)
	require.NoError(t, reg.Initialize(&registry.Params{SettlementAuthority: settlement}))

	router := mux.NewRouter()
	subs := New(reg)
	subs.Mount(router, "/subscriptions")
	t.Cleanup(subs.Close)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), reg
}

func readEvent(t *testing.T, conn *websocket.Conn) *StreamedEvent {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev StreamedEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return &ev
}

func TestSubscribeEvents(t *testing.T) {
	url, reg := newTestSetup(t)

	conn, _, err := websocket.DefaultDialer.Dial(url+"/subscriptions/events", nil)
	require.NoError(t, err)
	defer conn.Close()

	walletAddr, err := reg.Assign(validator, manager)
	require.NoError(t, err)

	ev := readEvent(t, conn)
	assert.Equal(t, uint64(1), ev.Seq)
	assert.Equal(t, "assigned", ev.Type)
	require.NotNil(t, ev.Validator)
	assert.Equal(t, validator, *ev.Validator)
	assert.Equal(t, walletAddr, ev.Wallet)

	require.NoError(t, reg.Reset(walletAddr, manager))
	ev = readEvent(t, conn)
	assert.Equal(t, "reset", ev.Type)
	assert.Nil(t, ev.Validator)
}

func TestSubscribeEventsFiltered(t *testing.T) {
	url, reg := newTestSetup(t)

	conn, _, err := websocket.DefaultDialer.Dial(url+"/subscriptions/events?type=reset", nil)
	require.NoError(t, err)
	defer conn.Close()

	walletAddr, err := reg.Assign(validator, manager)
	require.NoError(t, err)
	require.NoError(t, reg.Reset(walletAddr, manager))

	// the assigned event is filtered out, the first frame is the reset
	ev := readEvent(t, conn)
	assert.Equal(t, "reset", ev.Type)
	assert.Equal(t, walletAddr, ev.Wallet)
}

func TestSubscribeEventsBadFilter(t *testing.T) {
	url, _ := newTestSetup(t)

	_, res, err := websocket.DefaultDialer.Dial(url+"/subscriptions/events?type=bogus", nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 400, res.StatusCode)
}
