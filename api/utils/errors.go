// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/stakevault/vault/registry"
)

// ConvertRegistryError maps the registry's error taxonomy onto http statuses.
// Unrecognized errors pass through and surface as internal server errors.
func ConvertRegistryError(err error) error {
	switch {
	case errors.Is(err, registry.ErrPermissionDenied),
		errors.Is(err, registry.ErrNoDeposit):
		return Forbidden(err)
	case errors.Is(err, registry.ErrAlreadyAssigned),
		errors.Is(err, registry.ErrAlreadyReset),
		errors.Is(err, registry.ErrAlreadyUnlocked),
		errors.Is(err, registry.ErrAlreadyInitialized):
		return Conflict(err)
	case errors.Is(err, registry.ErrNotInitialized):
		return HTTPError(err, http.StatusServiceUnavailable)
	default:
		return err
	}
}
