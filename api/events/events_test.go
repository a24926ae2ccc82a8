// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakevault/vault/eventdb"
	"github.com/stakevault/vault/registry"
	"github.com/stakevault/vault/vault"
)

const testLimit = 5

func newTestServer(t *testing.T) (string, *eventdb.EventDB) {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(db.Close)

	router := mux.NewRouter()
	New(db, testLimit).Mount(router, "/events")
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv.URL, db
}

func seedEvents(t *testing.T, db *eventdb.EventDB, n int) []*registry.Event {
	var events []*registry.Event
	for i := 1; i <= n; i++ {
		ev := &registry.Event{
			Seq:       uint64(i),
			Type:      registry.EventAssigned,
			Validator: vault.BytesToBytes32([]byte{byte(i)}),
			Wallet:    vault.BytesToAddress([]byte{byte(i)}),
			Time:      uint64(1700000000 + i),
		}
		if i%2 == 0 {
			ev.Type = registry.EventUnlocked
			ev.Balance = big.NewInt(int64(i * 100))
		}
		events = append(events, ev)
	}
	require.NoError(t, db.Insert(events...))
	return events
}

func postFilter(t *testing.T, url string, filter *eventdb.Filter) *http.Response {
	body, err := json.Marshal(filter)
	require.NoError(t, err)
	res, err := http.Post(url+"/events", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return res
}

func decodeEvents(t *testing.T, res *http.Response) []*FilteredEvent {
	defer res.Body.Close()
	var events []*FilteredEvent
	require.NoError(t, json.NewDecoder(res.Body).Decode(&events))
	return events
}

func TestFilterEvents(t *testing.T) {
	url, db := newTestServer(t)
	seedEvents(t, db, 4)

	res := postFilter(t, url, &eventdb.Filter{})
	require.Equal(t, http.StatusOK, res.StatusCode)
	got := decodeEvents(t, res)
	require.Len(t, got, 4)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Equal(t, "assigned", got[0].Type)
	assert.NotNil(t, got[0].Validator)
	assert.Nil(t, got[0].Balance)
	assert.Equal(t, "unlocked", got[1].Type)
	assert.NotNil(t, got[1].Balance)

	evType := registry.EventUnlocked
	res = postFilter(t, url, &eventdb.Filter{Type: &evType, Order: eventdb.DESC})
	require.Equal(t, http.StatusOK, res.StatusCode)
	got = decodeEvents(t, res)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(4), got[0].Seq)
	assert.Equal(t, uint64(2), got[1].Seq)
}

func TestFilterEventsLimit(t *testing.T) {
	url, db := newTestServer(t)
	seedEvents(t, db, testLimit+3)

	// without explicit pagination the server cap applies
	res := postFilter(t, url, &eventdb.Filter{})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, decodeEvents(t, res), testLimit)

	res = postFilter(t, url, &eventdb.Filter{
		Options: &eventdb.Options{Limit: testLimit + 1},
	})
	defer res.Body.Close()
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}
