// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package assignments

import (
	"bytes"
	"io"

	"github.com/stakevault/vault/vault"
)

// AssignRequest the body of an assign call.
type AssignRequest struct {
	Validator vault.Bytes32 `json:"validator"`
}

// Assignment one validator↔wallet binding.
type Assignment struct {
	Validator vault.Bytes32 `json:"validator"`
	Wallet    vault.Address `json:"wallet"`
	Unlocked  bool          `json:"unlocked"`
}

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}
