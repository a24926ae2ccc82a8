// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/stakevault/vault/api/assignments"
	"github.com/stakevault/vault/api/auth"
	"github.com/stakevault/vault/api/events"
	"github.com/stakevault/vault/api/subscriptions"
	"github.com/stakevault/vault/api/wallets"
	"github.com/stakevault/vault/eventdb"
	"github.com/stakevault/vault/registry"
	"github.com/stakevault/vault/wallet"
)

type Options struct {
	AllowedOrigins string
	EventsLimit    uint64
	PprofOn        bool
	EnableMetrics  bool
}

// New returns the http handler of the whole REST surface along with a
// closer that disconnects websocket subscribers.
func New(
	reg *registry.Registry,
	ledger *wallet.Ledger,
	eventDB *eventdb.EventDB,
	opts Options,
) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	assignments.New(reg).
		Mount(router, "/assignments")
	wallets.New(reg, ledger).
		Mount(router, "/wallets")
	events.New(eventDB, opts.EventsLimit).
		Mount(router, "/events")
	subs := subscriptions.New(reg)
	subs.Mount(router, "/subscriptions")

	if opts.PprofOn {
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	if opts.EnableMetrics {
		router.Use(metricsHandler)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type", auth.SignatureHeader, auth.TimestampHeader}),
	)(handler)

	return handler.ServeHTTP, subs.Close // subscriptions holds hijacked conns, which need to be closed
}
