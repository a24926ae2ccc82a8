// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytes32(t *testing.T) {
	b := BytesToBytes32([]byte("validator-1"))

	assert.False(t, b.IsZero())
	assert.True(t, Bytes32{}.IsZero())
	assert.Equal(t, b, MustParseBytes32(b.String()))

	_, err := ParseBytes32("0xzz")
	assert.EqualError(t, err, "invalid length")
}

func TestBlake2b(t *testing.T) {
	h1 := Blake2b([]byte("hello"))
	h2 := Blake2b([]byte("hel"), []byte("lo"))

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, Blake2b([]byte("world")))
}
