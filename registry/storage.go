// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/stakevault/vault/kv"
	"github.com/stakevault/vault/vault"
)

// Storage layout: every entry lives under a short named prefix. Assignment
// records are keyed per wallet handle so the assigned set can be rebuilt by
// a prefix scan; the pool is kept as one ordered list since reuse order
// matters.
var (
	paramsKey    = []byte("registry/params")
	poolKey      = []byte("registry/pool")
	seqKey       = []byte("registry/seq")
	recordPrefix = []byte("registry/record/")
)

func recordKey(wallet vault.Address) []byte {
	return append(append([]byte(nil), recordPrefix...), wallet.Bytes()...)
}

func (r *Registry) loadState() error {
	data, err := r.store.Get(paramsKey)
	if err != nil {
		if !r.store.IsNotFound(err) {
			return errors.Wrap(err, "load params")
		}
	} else {
		var params Params
		if err := rlp.DecodeBytes(data, &params); err != nil {
			return errors.Wrap(err, "decode params")
		}
		r.params = &params
	}

	data, err = r.store.Get(poolKey)
	if err != nil {
		if !r.store.IsNotFound(err) {
			return errors.Wrap(err, "load pool")
		}
	} else {
		if err := rlp.DecodeBytes(data, &r.pool); err != nil {
			return errors.Wrap(err, "decode pool")
		}
	}

	data, err = r.store.Get(seqKey)
	if err != nil {
		if !r.store.IsNotFound(err) {
			return errors.Wrap(err, "load seq")
		}
	} else {
		r.seq = binary.BigEndian.Uint64(data)
	}

	it := r.store.NewIterator(kv.PrefixRange(recordPrefix))
	defer it.Release()
	for it.Next() {
		wallet := vault.BytesToAddress(it.Key()[len(recordPrefix):])
		var rec Record
		if err := rec.Decode(it.Value()); err != nil {
			return errors.Wrap(err, "decode record")
		}
		r.records[wallet] = &rec
		if rec.HasValidator() {
			r.assigned[rec.Validator] = wallet
		}
	}
	return errors.Wrap(it.Error(), "iterate records")
}

func saveParams(putter kv.Putter, params *Params) error {
	data, err := rlp.EncodeToBytes(params)
	if err != nil {
		return err
	}
	return putter.Put(paramsKey, data)
}

func saveRecord(putter kv.Putter, wallet vault.Address, rec *Record) error {
	data, err := rec.Encode()
	if err != nil {
		return err
	}
	if data == nil {
		return putter.Delete(recordKey(wallet))
	}
	return putter.Put(recordKey(wallet), data)
}

func savePool(putter kv.Putter, pool []vault.Address) error {
	data, err := rlp.EncodeToBytes(pool)
	if err != nil {
		return err
	}
	return putter.Put(poolKey, data)
}

func saveSeq(putter kv.Putter, seq uint64) error {
	var data [8]byte
	binary.BigEndian.PutUint64(data[:], seq)
	return putter.Put(seqKey, data[:])
}
