// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package auth authenticates API callers. State-changing requests carry a
// recoverable secp256k1 signature over the blake2b hash of the request
// method, path, timestamp and body; the recovered address is the caller
// identity the registry gates on, so the server never keeps credentials.
package auth

import (
	"crypto/ecdsa"
	"encoding/binary"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/stakevault/vault/vault"
)

const (
	// SignatureHeader carries the hex encoded 65-byte recoverable signature.
	SignatureHeader = "x-caller-signature"
	// TimestampHeader carries the unix-seconds timestamp bound into the signature.
	TimestampHeader = "x-caller-timestamp"

	// MaxAge bounds how far a signed request's timestamp may drift from the
	// server clock, in either direction. An expired signature is worthless,
	// which keeps the replay window of any captured header short.
	MaxAge = time.Minute
)

// SigningHash derives the message a caller signs. Method, path, timestamp
// and body all feed the hash, so a captured signature neither transfers to
// another endpoint or target wallet nor outlives MaxAge.
func SigningHash(method, path string, timestamp uint64, body []byte) vault.Bytes32 {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], timestamp)
	return vault.Blake2bFn(func(w io.Writer) {
		w.Write([]byte(method))
		w.Write([]byte{0})
		w.Write([]byte(path))
		w.Write([]byte{0})
		w.Write(ts[:])
		w.Write(body)
	})
}

// Sign produces the signature header value for a request about to be sent.
// The timestamp must also travel in TimestampHeader.
func Sign(method, path string, timestamp uint64, body []byte, key *ecdsa.PrivateKey) (string, error) {
	hash := SigningHash(method, path, timestamp, body)
	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return "", errors.Wrap(err, "sign request")
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// SignRequest stamps and signs an outgoing request. The body bytes must
// match what the request will actually carry.
func SignRequest(req *http.Request, body []byte, key *ecdsa.PrivateKey) error {
	timestamp := uint64(time.Now().Unix())
	sig, err := Sign(req.Method, req.URL.Path, timestamp, body, key)
	if err != nil {
		return err
	}
	req.Header.Set(TimestampHeader, strconv.FormatUint(timestamp, 10))
	req.Header.Set(SignatureHeader, sig)
	return nil
}

// RecoverCaller recovers the caller address from the request's signature
// headers and the payload it signed. Requests whose timestamp is older or
// newer than MaxAge are rejected regardless of signature validity.
func RecoverCaller(req *http.Request, body []byte) (vault.Address, error) {
	sigHex := req.Header.Get(SignatureHeader)
	if sigHex == "" {
		return vault.Address{}, errors.New("missing " + SignatureHeader + " header")
	}
	tsStr := req.Header.Get(TimestampHeader)
	if tsStr == "" {
		return vault.Address{}, errors.New("missing " + TimestampHeader + " header")
	}
	timestamp, err := strconv.ParseUint(tsStr, 10, 64)
	if err != nil {
		return vault.Address{}, errors.WithMessage(err, "parse timestamp")
	}
	if age := time.Since(time.Unix(int64(timestamp), 0)); age > MaxAge || age < -MaxAge {
		return vault.Address{}, errors.New("signature timestamp out of range")
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return vault.Address{}, errors.WithMessage(err, "decode signature")
	}
	if len(sig) != crypto.SignatureLength {
		return vault.Address{}, errors.Errorf("bad signature length %d", len(sig))
	}

	hash := SigningHash(req.Method, req.URL.Path, timestamp, body)
	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return vault.Address{}, errors.WithMessage(err, "recover signer")
	}
	return vault.Address(crypto.PubkeyToAddress(*pub)), nil
}
