// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/stakevault/vault/registry"
	"github.com/stakevault/vault/vault"
)

// StreamedEvent is the frame pushed for every matched transition.
type StreamedEvent struct {
	Seq       uint64                `json:"seq"`
	Type      string                `json:"type"`
	Validator *vault.Bytes32        `json:"validator,omitempty"`
	Wallet    vault.Address         `json:"wallet"`
	Balance   *math.HexOrDecimal256 `json:"balance,omitempty"`
	Time      uint64                `json:"time"`
}

func convertEvent(ev *registry.Event) *StreamedEvent {
	se := &StreamedEvent{
		Seq:    ev.Seq,
		Type:   ev.Type.String(),
		Wallet: ev.Wallet,
		Time:   ev.Time,
	}
	if !ev.Validator.IsZero() {
		v := ev.Validator
		se.Validator = &v
	}
	if ev.Balance != nil {
		se.Balance = (*math.HexOrDecimal256)(ev.Balance)
	}
	return se
}
