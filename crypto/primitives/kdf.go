// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package primitives

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDFExpand runs HKDF-SHA256 over ikm with the given salt and info,
// producing outLen bytes. Every chain/root/message key derivation in the
// pairwise and group engines goes through this one function so the KDF
// construction stays in a single place.
func HKDFExpand(ikm, salt, info []byte, outLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, ikm, salt, info)
	out := make([]byte, outLen)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, fmt.Errorf("primitives: hkdf expand: %w", err)
	}
	return out, nil
}

// KDFChainStep advances a Double Ratchet symmetric chain one step,
// returning the next chain key and the message key derived from the
// current one. Grounded on the constant-label HMAC chain construction
// libsignal uses: chain key is re-keyed with label 0x02, message key with
// label 0x01, both HMAC-SHA256 over the current chain key.
func KDFChainStep(chainKey []byte) (nextChainKey, messageKey []byte, err error) {
	nextChainKey, err = hmacSHA256(chainKey, []byte{0x02})
	if err != nil {
		return nil, nil, err
	}
	messageKey, err = hmacSHA256(chainKey, []byte{0x01})
	if err != nil {
		ZeroBytes(nextChainKey)
		return nil, nil, err
	}
	return nextChainKey, messageKey, nil
}

// KDFRootStep advances the Double Ratchet root chain given a fresh DH (or
// PQXDH-hybrid) output, returning the next root key and the seed for a new
// sending/receiving chain key.
func KDFRootStep(rootKey, dhOutput []byte) (nextRootKey, chainKeySeed []byte, err error) {
	out, err := HKDFExpand(dhOutput, rootKey, []byte("signalcore-root-ratchet"), 64)
	if err != nil {
		return nil, nil, err
	}
	return out[:32], out[32:], nil
}

func hmacSHA256(key, data []byte) ([]byte, error) {
	mac := hmac.New(sha256.New, key)
	if _, err := mac.Write(data); err != nil {
		return nil, fmt.Errorf("primitives: hmac: %w", err)
	}
	return mac.Sum(nil), nil
}

// HMACSHA256 exposes the raw primitive for callers (the SignalMessage
// authentication tag, the CBC+HMAC helper's tag) that need it directly
// rather than through a chain step.
func HMACSHA256(key, data []byte) ([]byte, error) {
	return hmacSHA256(key, data)
}
