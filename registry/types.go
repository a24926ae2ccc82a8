// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/stakevault/vault/vault"
)

// RoleOracle answers role membership queries. Answers are trusted as
// ground truth and queried synchronously while the registry holds its lock.
type RoleOracle interface {
	IsAdmin(caller vault.Address) bool
	IsManager(caller vault.Address) bool
}

// DepositLedger reports the deposit recorded upstream for a validator.
// A nil or zero amount means no deposit.
type DepositLedger interface {
	DepositAmount(validator vault.Bytes32) *big.Int
}

// WalletFactory creates wallet objects bound to the settlement authority
// and reads their balances.
type WalletFactory interface {
	CreateWallet(settlement vault.Address) (vault.Address, error)
	BalanceOf(wallet vault.Address) (*big.Int, error)
}

// Record is the assignment record of a wallet handle.
// A wallet with an empty record is in the available pool.
type Record struct {
	Unlocked  bool
	Validator vault.Bytes32
}

// HasValidator returns whether the record currently binds a validator.
func (r *Record) HasValidator() bool {
	return !r.Validator.IsZero()
}

// IsEmpty returns whether the record can be treated as empty.
func (r *Record) IsEmpty() bool {
	return !r.Unlocked && r.Validator.IsZero()
}

// Encode encodes the record into storage form. Empty records encode to nil.
func (r *Record) Encode() ([]byte, error) {
	if r.IsEmpty() {
		return nil, nil
	}
	return rlp.EncodeToBytes(r)
}

// Decode decodes the storage form. nil/empty data decodes to the empty record.
func (r *Record) Decode(data []byte) error {
	if len(data) == 0 {
		*r = Record{}
		return nil
	}
	return rlp.DecodeBytes(data, r)
}

// Params binds the registry to its collaborator identities. Set exactly
// once via Initialize.
type Params struct {
	SettlementAuthority vault.Address
	ValidatorLedger     vault.Address
	AdminRegistry       vault.Address
	ManagerRegistry     vault.Address
}

// EventType the kind of a registry transition.
type EventType byte

const (
	EventAssigned EventType = iota + 1
	EventReset
	EventUnlocked
)

func (t EventType) String() string {
	switch t {
	case EventAssigned:
		return "assigned"
	case EventReset:
		return "reset"
	case EventUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// ParseEventType parses the textual form produced by String.
func ParseEventType(s string) (EventType, error) {
	switch s {
	case "assigned":
		return EventAssigned, nil
	case "reset":
		return EventReset, nil
	case "unlocked":
		return EventUnlocked, nil
	default:
		return 0, errors.Errorf("unknown event type %q", s)
	}
}

// Event is posted on every committed transition, after the state mutation
// has been persisted. Seq is strictly increasing across the registry's
// lifetime.
type Event struct {
	Seq       uint64
	Type      EventType
	Validator vault.Bytes32 // zero for reset events
	Wallet    vault.Address
	Balance   *big.Int // point-in-time wallet balance, unlock events only
	Time      uint64   // unix seconds
}
