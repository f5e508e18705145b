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

// AES-256-GCM-SIV (RFC 8452) has no implementation anywhere in the
// dependency pack this module was grown from — circl, x/crypto, and the
// rest of the retrieval corpus stop at AES-GCM and ChaCha20-Poly1305. The
// sealed-sender envelope format requires the misuse-resistant variant
// specifically, so this one primitive is built directly on crypto/aes and
// crypto/subtle rather than grounded on a pack dependency; see DESIGN.md.
package primitives

import (
	"crypto/aes"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
)

const (
	gcmSIVKeySize   = 32
	gcmSIVNonceSize = 12
	gcmSIVTagSize   = 16
)

// GCMSIVSeal encrypts plaintext with AES-256-GCM-SIV under key and nonce,
// authenticating associatedData, and returns ciphertext||tag.
func GCMSIVSeal(key, nonce, associatedData, plaintext []byte) ([]byte, error) {
	macKey, encKey, err := deriveGCMSIVKeys(key, nonce)
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(encKey)
	defer ZeroBytes(macKey)

	tag := polyvalTag(macKey, associatedData, plaintext)
	for i := 0; i < 12; i++ {
		tag[i] ^= nonce[i]
	}
	tag[15] &= 0x7f

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("primitives: gcm-siv cipher: %w", err)
	}
	block.Encrypt(tag, tag)
	ciphertext := make([]byte, len(plaintext))
	ctrXOR(block, tag, plaintext, ciphertext)

	return append(ciphertext, tag...), nil
}

// GCMSIVOpen verifies and decrypts a GCMSIVSeal output.
func GCMSIVOpen(key, nonce, associatedData, sealed []byte) ([]byte, error) {
	if len(sealed) < gcmSIVTagSize {
		return nil, fmt.Errorf("primitives: gcm-siv ciphertext too short")
	}
	ciphertext := sealed[:len(sealed)-gcmSIVTagSize]
	tag := sealed[len(sealed)-gcmSIVTagSize:]

	macKey, encKey, err := deriveGCMSIVKeys(key, nonce)
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(encKey)
	defer ZeroBytes(macKey)

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("primitives: gcm-siv cipher: %w", err)
	}
	plaintext := make([]byte, len(ciphertext))
	ctrXOR(block, tag, ciphertext, plaintext)

	want := polyvalTag(macKey, associatedData, plaintext)
	for i := 0; i < 12; i++ {
		want[i] ^= nonce[i]
	}
	want[15] &= 0x7f
	block.Encrypt(want, want)

	if subtle.ConstantTimeCompare(want, tag) != 1 {
		ZeroBytes(plaintext)
		return nil, fmt.Errorf("primitives: gcm-siv authentication failed")
	}
	return plaintext, nil
}

// deriveGCMSIVKeys runs the RFC 8452 §4 key derivation: the message
// encryption key is AES-256-GCM-SIV's own key-and-nonce stream, split into
// a 16-byte POLYVAL key and a 32-byte AES key (for the -256 variant, the
// first 8 bytes of each of six AES-ECB(key, counter||nonce) blocks: two
// for the POLYVAL key, four for the AES key).
func deriveGCMSIVKeys(key, nonce []byte) (macKey, encKey []byte, err error) {
	if len(key) != gcmSIVKeySize {
		return nil, nil, fmt.Errorf("primitives: gcm-siv key must be %d bytes", gcmSIVKeySize)
	}
	if len(nonce) != gcmSIVNonceSize {
		return nil, nil, fmt.Errorf("primitives: gcm-siv nonce must be %d bytes", gcmSIVNonceSize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("primitives: gcm-siv derive cipher: %w", err)
	}

	out := make([]byte, 0, 48)
	var counterBlock [16]byte
	copy(counterBlock[4:], nonce)
	var dst [16]byte
	for i := uint32(0); i < 6; i++ {
		binary.LittleEndian.PutUint32(counterBlock[0:4], i)
		block.Encrypt(dst[:], counterBlock[:])
		out = append(out, dst[:8]...)
	}
	return out[:16], out[16:48], nil
}

// ctrXOR runs raw AES-CTR (GCM-SIV's little-endian counter, starting at
// tag|0x80000000 per RFC 8452 §4) over src into dst.
func ctrXOR(block interface {
	Encrypt(dst, src []byte)
	BlockSize() int
}, tag []byte, src, dst []byte) {
	var counterBlock [16]byte
	copy(counterBlock[:], tag)
	counterBlock[15] |= 0x80

	var keystream [16]byte
	ctr := binary.LittleEndian.Uint32(counterBlock[0:4])
	for offset := 0; offset < len(src); offset += 16 {
		binary.LittleEndian.PutUint32(counterBlock[0:4], ctr)
		block.Encrypt(keystream[:], counterBlock[:])
		end := offset + 16
		if end > len(src) {
			end = len(src)
		}
		for i := offset; i < end; i++ {
			dst[i] = src[i] ^ keystream[i-offset]
		}
		ctr++
	}
}

// polyvalTag computes the RFC 8452 §3 POLYVAL-based tag over
// associatedData and plaintext under macKey, returning the raw 16-byte
// pre-nonce-mask tag (length block encodes bit-lengths of both inputs).
func polyvalTag(macKey, associatedData, plaintext []byte) []byte {
	h := newPolyval(macKey)
	h.updatePadded(associatedData)
	h.updatePadded(plaintext)

	var lengths [16]byte
	binary.LittleEndian.PutUint64(lengths[0:8], uint64(len(associatedData))*8)
	binary.LittleEndian.PutUint64(lengths[8:16], uint64(len(plaintext))*8)
	h.update(lengths[:])

	return h.sum()
}
