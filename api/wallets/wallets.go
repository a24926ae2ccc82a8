// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package wallets

import (
	"io"
	"math/big"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stakevault/vault/api/auth"
	"github.com/stakevault/vault/api/utils"
	"github.com/stakevault/vault/registry"
	"github.com/stakevault/vault/vault"
	"github.com/stakevault/vault/wallet"
)

type Wallets struct {
	reg    *registry.Registry
	ledger *wallet.Ledger
}

func New(reg *registry.Registry, ledger *wallet.Ledger) *Wallets {
	return &Wallets{reg, ledger}
}

func (ws *Wallets) handleGetWallet(w http.ResponseWriter, req *http.Request) error {
	addr, err := vault.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}

	exists, err := ws.ledger.Exists(*addr)
	if err != nil {
		return err
	}
	if !exists {
		return utils.HTTPError(errors.New("unknown wallet"), http.StatusNotFound)
	}
	balance, err := ws.ledger.BalanceOf(*addr)
	if err != nil {
		return err
	}

	status := &WalletStatus{
		Wallet:  *addr,
		Balance: (*HexOrDecimal)(balance),
	}
	if rec, ok := ws.reg.Get(*addr); ok && rec.HasValidator() {
		status.Validator = &rec.Validator
		status.Unlocked = rec.Unlocked
	}
	return utils.WriteJSON(w, status)
}

func (ws *Wallets) handleGetPool(w http.ResponseWriter, _ *http.Request) error {
	available := ws.reg.Available()
	return utils.WriteJSON(w, &PoolStatus{
		Available: available,
		Count:     len(available),
		Assigned:  ws.reg.AssignedCount(),
	})
}

func (ws *Wallets) handleUnlock(w http.ResponseWriter, req *http.Request) error {
	addr, caller, err := ws.walletAndCaller(req)
	if err != nil {
		return err
	}
	if err := ws.reg.Unlock(*addr, *caller); err != nil {
		return utils.ConvertRegistryError(err)
	}
	rec, _ := ws.reg.Get(*addr)
	balance, err := ws.ledger.BalanceOf(*addr)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &WalletStatus{
		Wallet:    *addr,
		Validator: &rec.Validator,
		Unlocked:  true,
		Balance:   (*HexOrDecimal)(balance),
	})
}

func (ws *Wallets) handleReset(w http.ResponseWriter, req *http.Request) error {
	addr, caller, err := ws.walletAndCaller(req)
	if err != nil {
		return err
	}
	if err := ws.reg.Reset(*addr, *caller); err != nil {
		return utils.ConvertRegistryError(err)
	}
	return utils.WriteJSON(w, &WalletStatus{Wallet: *addr})
}

func (ws *Wallets) handleDeposit(w http.ResponseWriter, req *http.Request) error {
	addr, err := vault.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	var dreq DepositRequest
	if err := utils.ParseJSON(req.Body, &dreq); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	amount := (*big.Int)(dreq.Amount)
	if err := ws.ledger.Deposit(*addr, amount); err != nil {
		if errors.Is(err, wallet.ErrUnknownWallet) {
			return utils.HTTPError(err, http.StatusNotFound)
		}
		return utils.BadRequest(err)
	}
	balance, err := ws.ledger.BalanceOf(*addr)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"wallet": addr, "balance": (*HexOrDecimal)(balance)})
}

func (ws *Wallets) handleSweep(w http.ResponseWriter, req *http.Request) error {
	addr, caller, err := ws.walletAndCaller(req)
	if err != nil {
		return err
	}
	amount, err := ws.ledger.Sweep(*addr, *caller)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrUnknownWallet):
			return utils.HTTPError(err, http.StatusNotFound)
		case errors.Is(err, wallet.ErrPermissionDenied):
			return utils.Forbidden(err)
		}
		return err
	}
	return utils.WriteJSON(w, utils.M{"wallet": addr, "amount": (*HexOrDecimal)(amount)})
}

// walletAndCaller parses the wallet address var and authenticates the caller.
func (ws *Wallets) walletAndCaller(req *http.Request) (*vault.Address, *vault.Address, error) {
	addr, err := vault.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return nil, nil, utils.BadRequest(errors.WithMessage(err, "address"))
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, nil, utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caller, err := auth.RecoverCaller(req, body)
	if err != nil {
		return nil, nil, utils.Unauthorized(errors.WithMessage(err, "caller"))
	}
	return addr, &caller, nil
}

func (ws *Wallets) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/pool").
		Methods(http.MethodGet).
		Name("GET /wallets/pool").
		HandlerFunc(utils.WrapHandlerFunc(ws.handleGetPool))
	sub.Path("/{address}").
		Methods(http.MethodGet).
		Name("GET /wallets/{address}").
		HandlerFunc(utils.WrapHandlerFunc(ws.handleGetWallet))
	sub.Path("/{address}/unlock").
		Methods(http.MethodPost).
		Name("POST /wallets/{address}/unlock").
		HandlerFunc(utils.WrapHandlerFunc(ws.handleUnlock))
	sub.Path("/{address}/reset").
		Methods(http.MethodPost).
		Name("POST /wallets/{address}/reset").
		HandlerFunc(utils.WrapHandlerFunc(ws.handleReset))
	sub.Path("/{address}/deposit").
		Methods(http.MethodPost).
		Name("POST /wallets/{address}/deposit").
		HandlerFunc(utils.WrapHandlerFunc(ws.handleDeposit))
	sub.Path("/{address}/sweep").
		Methods(http.MethodPost).
		Name("POST /wallets/{address}/sweep").
		HandlerFunc(utils.WrapHandlerFunc(ws.handleSweep))
}
