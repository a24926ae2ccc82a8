// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package assignments

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stakevault/vault/api/auth"
	"github.com/stakevault/vault/api/utils"
	"github.com/stakevault/vault/registry"
	"github.com/stakevault/vault/vault"
)

type Assignments struct {
	reg *registry.Registry
}

func New(reg *registry.Registry) *Assignments {
	return &Assignments{reg}
}

func (a *Assignments) handleAssign(w http.ResponseWriter, req *http.Request) error {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caller, err := auth.RecoverCaller(req, body)
	if err != nil {
		return utils.Unauthorized(errors.WithMessage(err, "caller"))
	}

	var areq AssignRequest
	if err := utils.ParseJSON(bytesReader(body), &areq); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if areq.Validator.IsZero() {
		return utils.BadRequest(errors.New("validator: zero identity"))
	}

	wallet, err := a.reg.Assign(areq.Validator, caller)
	if err != nil {
		return utils.ConvertRegistryError(err)
	}
	return utils.WriteJSON(w, &Assignment{
		Validator: areq.Validator,
		Wallet:    wallet,
	})
}

func (a *Assignments) handleGetAssignment(w http.ResponseWriter, req *http.Request) error {
	validator, err := vault.ParseBytes32(mux.Vars(req)["validator"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "validator"))
	}

	wallet, ok := a.reg.WalletOf(validator)
	if !ok {
		return utils.HTTPError(errors.New("validator has no wallet assigned"), http.StatusNotFound)
	}
	rec, _ := a.reg.Get(wallet)
	return utils.WriteJSON(w, &Assignment{
		Validator: validator,
		Wallet:    wallet,
		Unlocked:  rec.Unlocked,
	})
}

func (a *Assignments) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("POST /assignments").
		HandlerFunc(utils.WrapHandlerFunc(a.handleAssign))
	sub.Path("/{validator}").
		Methods(http.MethodGet).
		Name("GET /assignments/{validator}").
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetAssignment))
}
