// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package wallets

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/stakevault/vault/vault"
)

// HexOrDecimal accepts both hex and decimal representations of balances.
type HexOrDecimal = math.HexOrDecimal256

// WalletStatus is the external view of a pooled wallet.
type WalletStatus struct {
	Wallet    vault.Address  `json:"wallet"`
	Validator *vault.Bytes32 `json:"validator,omitempty"`
	Unlocked  bool           `json:"unlocked"`
	Balance   *HexOrDecimal  `json:"balance,omitempty"`
}

// PoolStatus summarizes the recycling pool.
type PoolStatus struct {
	Available []vault.Address `json:"available"`
	Count     int             `json:"count"`
	Assigned  int             `json:"assigned"`
}

// DepositRequest credits a wallet's balance.
type DepositRequest struct {
	Amount *HexOrDecimal `json:"amount"`
}
