// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package assignments

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakevault/vault/api/auth"
	"github.com/stakevault/vault/kv"
	"github.com/stakevault/vault/oracle"
	"github.com/stakevault/vault/registry"
	"github.com/stakevault/vault/vault"
	"github.com/stakevault/vault/wallet"
)

var (
	funded   = vault.BytesToBytes32([]byte("validator-funded"))
	unfunded = vault.BytesToBytes32([]byte("validator-unfunded"))
)

type testServer struct {
	url        string
	managerKey *ecdsa.PrivateKey
	reg        *registry.Registry
}

func newTestServer(t *testing.T) *testServer {
	store, err := kv.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	managerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	manager := vault.Address(crypto.PubkeyToAddress(managerKey.PublicKey))

	roles, err := oracle.FromConfig(&oracle.Config{
		Managers: []string{manager.String()},
		Validators: map[string]string{
			funded.String(): "1000",
		},
	})
	require.NoError(t, err)

	ledger, err := wallet.NewLedger(store)
	require.NoError(t, err)
	reg, err := registry.New(store, roles, roles, ledger)
	require.NoError(t, err)
	t.Cleanup(reg.Close)
	require.NoError(t, reg.Initialize(&registry.Params{
		SettlementAuthority: vault.BytesToAddress([]byte("settlement")),
	}))

	router := mux.NewRouter()
	New(reg).Mount(router, "/assignments")
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{srv.URL, managerKey, reg}
}

func (ts *testServer) postAssign(t *testing.T, validator vault.Bytes32, key *ecdsa.PrivateKey) *http.Response {
	body, err := json.Marshal(&AssignRequest{Validator: validator})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.url+"/assignments", bytes.NewReader(body))
	require.NoError(t, err)
	if key != nil {
		require.NoError(t, auth.SignRequest(req, body, key))
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return res
}

func decodeAssignment(t *testing.T, res *http.Response) *Assignment {
	defer res.Body.Close()
	var a Assignment
	require.NoError(t, json.NewDecoder(res.Body).Decode(&a))
	return &a
}

func TestAssignEndpoint(t *testing.T) {
	ts := newTestServer(t)

	res := ts.postAssign(t, funded, ts.managerKey)
	require.Equal(t, http.StatusOK, res.StatusCode)
	created := decodeAssignment(t, res)
	assert.Equal(t, funded, created.Validator)
	assert.False(t, created.Wallet.IsZero())

	// the binding is queryable without authentication
	res, err := http.Get(ts.url + "/assignments/" + funded.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	got := decodeAssignment(t, res)
	assert.Equal(t, created.Wallet, got.Wallet)
	assert.False(t, got.Unlocked)
}

func TestAssignRejections(t *testing.T) {
	ts := newTestServer(t)

	strangerKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	res := ts.postAssign(t, funded, strangerKey)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	res.Body.Close()

	res = ts.postAssign(t, funded, nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	res.Body.Close()

	res = ts.postAssign(t, unfunded, ts.managerKey)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	res.Body.Close()

	res = ts.postAssign(t, vault.Bytes32{}, ts.managerKey)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res.Body.Close()

	// duplicate assignment conflicts
	res = ts.postAssign(t, funded, ts.managerKey)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()
	res = ts.postAssign(t, funded, ts.managerKey)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Contains(t, string(body), "already")
}

func TestGetUnknownAssignment(t *testing.T) {
	ts := newTestServer(t)

	res, err := http.Get(ts.url + "/assignments/" + unfunded.String())
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
