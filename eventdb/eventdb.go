// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventdb persists the registry's transition notifications in an
// append-only sqlite database so external monitors can query them long
// after subscribers have gone away.
package eventdb

import (
	"database/sql"
	"math/big"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/stakevault/vault/log"
	"github.com/stakevault/vault/registry"
	"github.com/stakevault/vault/vault"
)

var logger = log.WithContext("pkg", "eventdb")

const eventTableSchema = `CREATE TABLE IF NOT EXISTS event (
	seq INTEGER PRIMARY KEY,
	type INTEGER NOT NULL,
	validator BLOB,
	wallet BLOB NOT NULL,
	balance TEXT,
	ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS event_wallet ON event(wallet);`

// OrderType result ordering by sequence.
type OrderType string

const (
	ASC  OrderType = "ASC"
	DESC OrderType = "DESC"
)

// Range bounds the sequence numbers returned, both ends included.
type Range struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// Options pagination options.
type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// Filter narrows down queried events.
type Filter struct {
	Type    *registry.EventType `json:"type"`
	Wallet  *vault.Address      `json:"wallet"`
	Range   *Range              `json:"range"`
	Options *Options            `json:"options"`
	Order   OrderType           `json:"order"` // default asc
}

// EventDB manages persisted registry events.
type EventDB struct {
	path string
	db   *sql.DB
}

// New opens an event db at the given path, creating it when absent.
func New(path string) (*EventDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open event db")
	}
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, errors.Wrap(err, "create event schema")
	}
	version, _, _ := sqlite3.Version()
	logger.Debug("event db opened", "path", path, "sqlite", version)
	return &EventDB{
		path: path,
		db:   db,
	}, nil
}

// NewMem creates a memory backed event db.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

// Insert appends events to the db. Replays of an already stored sequence
// number overwrite in place, which makes the drain loop safely restartable.
func (db *EventDB) Insert(events ...*registry.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	for _, ev := range events {
		var validator []byte
		if !ev.Validator.IsZero() {
			validator = ev.Validator.Bytes()
		}
		var balance any
		if ev.Balance != nil {
			balance = ev.Balance.String()
		}
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO event(seq, type, validator, wallet, balance, ts) VALUES (?, ?, ?, ?, ?, ?);",
			ev.Seq,
			byte(ev.Type),
			validator,
			ev.Wallet.Bytes(),
			balance,
			ev.Time,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Filter returns stored events matching the filter.
func (db *EventDB) Filter(filter *Filter) ([]*registry.Event, error) {
	if filter == nil {
		return db.query("SELECT seq, type, validator, wallet, balance, ts FROM event ORDER BY seq ASC")
	}
	var args []any
	stmt := "SELECT seq, type, validator, wallet, balance, ts FROM event WHERE 1"
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND seq >= ?"
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND seq <= ?"
		}
	}
	if filter.Type != nil {
		args = append(args, byte(*filter.Type))
		stmt += " AND type = ?"
	}
	if filter.Wallet != nil {
		args = append(args, filter.Wallet.Bytes())
		stmt += " AND wallet = ?"
	}

	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC"
	} else {
		stmt += " ORDER BY seq ASC"
	}

	if filter.Options != nil {
		stmt += " LIMIT ?, ?"
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.query(stmt, args...)
}

func (db *EventDB) query(stmt string, args ...any) ([]*registry.Event, error) {
	rows, err := db.db.Query(stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*registry.Event
	for rows.Next() {
		var (
			seq       uint64
			evType    byte
			validator []byte
			wallet    []byte
			balance   sql.NullString
			ts        uint64
		)
		if err := rows.Scan(&seq, &evType, &validator, &wallet, &balance, &ts); err != nil {
			return nil, err
		}
		ev := &registry.Event{
			Seq:    seq,
			Type:   registry.EventType(evType),
			Wallet: vault.BytesToAddress(wallet),
			Time:   ts,
		}
		if len(validator) > 0 {
			ev.Validator = vault.BytesToBytes32(validator)
		}
		if balance.Valid {
			bal, ok := new(big.Int).SetString(balance.String, 10)
			if !ok {
				return nil, errors.Errorf("seq %d: bad stored balance %q", seq, balance.String)
			}
			ev.Balance = bal
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Path return db's directory.
func (db *EventDB) Path() string {
	return db.path
}

// Close close sqlite.
func (db *EventDB) Close() {
	db.db.Close()
}
