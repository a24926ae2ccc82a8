// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelDB(t *testing.T) {
	db, err := NewMem()
	assert.Nil(t, err)
	defer db.Close()

	key := []byte("key")
	value := []byte("value")

	_, err = db.Get(key)
	assert.True(t, db.IsNotFound(err))

	assert.Nil(t, db.Put(key, value))
	got, err := db.Get(key)
	assert.Nil(t, err)
	assert.Equal(t, value, got)

	has, err := db.Has(key)
	assert.Nil(t, err)
	assert.True(t, has)

	assert.Nil(t, db.Delete(key))
	has, err = db.Has(key)
	assert.Nil(t, err)
	assert.False(t, has)
}

func TestLevelDBBatch(t *testing.T) {
	db, _ := NewMem()
	defer db.Close()

	batch := db.NewBatch()
	batch.Put([]byte("a1"), []byte("1"))
	batch.Put([]byte("a2"), []byte("2"))
	batch.Put([]byte("b1"), []byte("3"))
	assert.Equal(t, 3, batch.Len())
	assert.Nil(t, batch.Write())

	// iterate over the "a" prefix only
	it := db.NewIterator(PrefixRange([]byte("a")))
	defer it.Release()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	assert.Nil(t, it.Error())
	assert.Equal(t, []string{"a1", "a2"}, keys)
}
