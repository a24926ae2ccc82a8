// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/stakevault/vault/registry"
	"github.com/stakevault/vault/vault"
)

// FilteredEvent is the JSON form of a stored registry event.
type FilteredEvent struct {
	Seq       uint64                `json:"seq"`
	Type      string                `json:"type"`
	Validator *vault.Bytes32        `json:"validator,omitempty"`
	Wallet    vault.Address         `json:"wallet"`
	Balance   *math.HexOrDecimal256 `json:"balance,omitempty"`
	Time      uint64                `json:"time"`
}

func convertEvent(ev *registry.Event) *FilteredEvent {
	fe := &FilteredEvent{
		Seq:    ev.Seq,
		Type:   ev.Type.String(),
		Wallet: ev.Wallet,
		Time:   ev.Time,
	}
	if !ev.Validator.IsZero() {
		v := ev.Validator
		fe.Validator = &v
	}
	if ev.Balance != nil {
		fe.Balance = (*math.HexOrDecimal256)(ev.Balance)
	}
	return fe
}

func convertEvents(events []*registry.Event) []*FilteredEvent {
	converted := make([]*FilteredEvent, len(events))
	for i, ev := range events {
		converted[i] = convertEvent(ev)
	}
	return converted
}
