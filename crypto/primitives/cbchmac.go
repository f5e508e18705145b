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
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

const (
	// MessageKeySize is the length of a Double Ratchet message key before
	// it is expanded into cipher/mac/iv material.
	MessageKeySize = 32
	cbcKeySize     = 32
	macKeySize     = 32
	ivSize         = 16
	macTagSize     = 8
)

// MessageCipherKeys holds the AES key, HMAC key, and IV derived from a
// single Double Ratchet message key.
type MessageCipherKeys struct {
	CipherKey []byte
	MacKey    []byte
	IV        []byte
}

// DeriveMessageCipherKeys expands a 32-byte message key into the AES-CBC
// key, HMAC-SHA256 key, and IV used to encrypt one message, following the
// libsignal layout: HKDF-SHA256 with no salt, info "WhisperMessageKeys",
// and an 80-byte output split 32/32/16.
func DeriveMessageCipherKeys(messageKey []byte) (*MessageCipherKeys, error) {
	if len(messageKey) != MessageKeySize {
		return nil, fmt.Errorf("primitives: message key must be %d bytes", MessageKeySize)
	}
	out, err := HKDFExpand(messageKey, nil, []byte("WhisperMessageKeys"), cbcKeySize+macKeySize+ivSize)
	if err != nil {
		return nil, err
	}
	return &MessageCipherKeys{
		CipherKey: out[:cbcKeySize],
		MacKey:    out[cbcKeySize : cbcKeySize+macKeySize],
		IV:        out[cbcKeySize+macKeySize:],
	}, nil
}

// EncryptCBCHMAC encrypts plaintext with AES-256-CBC under keys.CipherKey
// and keys.IV, then appends a truncated HMAC-SHA256 tag computed over
// associatedData||ciphertext, matching the SignalMessage MAC layout (the
// first macTagSize bytes of the full HMAC).
func EncryptCBCHMAC(keys *MessageCipherKeys, associatedData, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(keys.CipherKey)
	if err != nil {
		return nil, fmt.Errorf("primitives: aes cipher: %w", err)
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, keys.IV).CryptBlocks(ciphertext, padded)

	tag, err := computeMAC(keys.MacKey, associatedData, ciphertext)
	if err != nil {
		return nil, err
	}
	return append(ciphertext, tag...), nil
}

// DecryptCBCHMAC verifies the MAC over associatedData||ciphertext and, on
// success, decrypts and unpads the AES-256-CBC body. input is the
// ciphertext with the trailing MAC tag still attached.
func DecryptCBCHMAC(keys *MessageCipherKeys, associatedData, input []byte) ([]byte, error) {
	if len(input) < macTagSize || (len(input)-macTagSize)%aes.BlockSize != 0 || len(input)-macTagSize == 0 {
		return nil, fmt.Errorf("primitives: malformed ciphertext")
	}
	ciphertext := input[:len(input)-macTagSize]
	gotTag := input[len(input)-macTagSize:]

	wantTag, err := computeMAC(keys.MacKey, associatedData, ciphertext)
	if err != nil {
		return nil, err
	}
	if !ConstantTimeEqual(gotTag, wantTag) {
		return nil, fmt.Errorf("primitives: mac mismatch")
	}

	block, err := aes.NewCipher(keys.CipherKey)
	if err != nil {
		return nil, fmt.Errorf("primitives: aes cipher: %w", err)
	}
	plainPadded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, keys.IV).CryptBlocks(plainPadded, ciphertext)
	return pkcs7Unpad(plainPadded)
}

// EncryptCBCOnly runs AES-256-CBC/PKCS7 without appending a MAC, for
// callers (like the SignalMessage wire format) that compute their own
// MAC over a wider scope than associatedData||ciphertext.
func EncryptCBCOnly(keys *MessageCipherKeys, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(keys.CipherKey)
	if err != nil {
		return nil, fmt.Errorf("primitives: aes cipher: %w", err)
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, keys.IV).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// DecryptCBCOnly reverses EncryptCBCOnly. The caller is responsible for
// having already verified any enclosing MAC.
func DecryptCBCOnly(keys *MessageCipherKeys, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("primitives: malformed ciphertext")
	}
	block, err := aes.NewCipher(keys.CipherKey)
	if err != nil {
		return nil, fmt.Errorf("primitives: aes cipher: %w", err)
	}
	plainPadded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, keys.IV).CryptBlocks(plainPadded, ciphertext)
	return pkcs7Unpad(plainPadded)
}

func computeMAC(macKey, associatedData, ciphertext []byte) ([]byte, error) {
	full, err := HMACSHA256(macKey, append(append([]byte{}, associatedData...), ciphertext...))
	if err != nil {
		return nil, err
	}
	return full[:macTagSize], nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("primitives: empty padded buffer")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) || padLen > aes.BlockSize {
		return nil, fmt.Errorf("primitives: invalid pkcs7 padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("primitives: invalid pkcs7 padding")
		}
	}
	return data[:len(data)-padLen], nil
}
