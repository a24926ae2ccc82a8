// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import "github.com/pkg/errors"

// Operation failures. Every failed call leaves the registry untouched;
// callers are expected to re-derive arguments and resubmit.
var (
	// ErrNotInitialized the registry has not been set up yet.
	ErrNotInitialized = errors.New("not initialized")
	// ErrAlreadyInitialized setup was invoked a second time.
	ErrAlreadyInitialized = errors.New("already initialized")
	// ErrPermissionDenied the caller lacks the role or identity the operation requires.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrAlreadyAssigned the validator is already bound to a wallet.
	ErrAlreadyAssigned = errors.New("validator already assigned")
	// ErrNoDeposit the validator ledger reports no deposit for the validator.
	ErrNoDeposit = errors.New("validator has no deposit")
	// ErrAlreadyReset the wallet has no assignment to clear.
	ErrAlreadyReset = errors.New("wallet has no assignment")
	// ErrAlreadyUnlocked the wallet is already unlocked.
	ErrAlreadyUnlocked = errors.New("wallet already unlocked")
)
