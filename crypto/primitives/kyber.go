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
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem1024"
)

// kyberScheme is the ML-KEM-1024 instance PQXDH's post-quantum component
// is built on. It is a package-level value rather than a constructor
// argument because every Kyber pre-key in the system must speak the same
// KEM.
var kyberScheme = mlkem1024.Scheme()

// KyberPublicKeySize, KyberPrivateKeySize, KyberCiphertextSize, and
// KyberSharedSecretSize are the fixed byte lengths of ML-KEM-1024's wire
// artifacts, exported so protocol/wire can size its buffers without
// importing circl directly.
var (
	KyberPublicKeySize    = kyberScheme.PublicKeySize()
	KyberPrivateKeySize   = kyberScheme.PrivateKeySize()
	KyberCiphertextSize   = kyberScheme.CiphertextSize()
	KyberSharedSecretSize = kyberScheme.SharedKeySize()
)

// KyberKeyPair wraps an ML-KEM-1024 encapsulation key pair.
type KyberKeyPair struct {
	Public  kem.PublicKey
	Private kem.PrivateKey
}

// GenerateKyberKeyPair creates a fresh ML-KEM-1024 key pair.
func GenerateKyberKeyPair() (*KyberKeyPair, error) {
	pub, priv, err := kyberScheme.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("primitives: generate kyber key pair: %w", err)
	}
	return &KyberKeyPair{Public: pub, Private: priv}, nil
}

// MarshalKyberPublicKey serializes a public key to its fixed-length wire
// form.
func MarshalKyberPublicKey(pub kem.PublicKey) ([]byte, error) {
	b, err := pub.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("primitives: marshal kyber public key: %w", err)
	}
	return b, nil
}

// MarshalKyberPrivateKey serializes a private key to its fixed-length
// wire form, for store persistence.
func MarshalKyberPrivateKey(priv kem.PrivateKey) ([]byte, error) {
	b, err := priv.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("primitives: marshal kyber private key: %w", err)
	}
	return b, nil
}

// ParseKyberPublicKey reconstructs a public key from wire bytes.
func ParseKyberPublicKey(b []byte) (kem.PublicKey, error) {
	pub, err := kyberScheme.UnmarshalBinaryPublicKey(b)
	if err != nil {
		return nil, fmt.Errorf("primitives: parse kyber public key: %w", err)
	}
	return pub, nil
}

// ParseKyberPrivateKey reconstructs a private key from wire bytes.
func ParseKyberPrivateKey(b []byte) (kem.PrivateKey, error) {
	priv, err := kyberScheme.UnmarshalBinaryPrivateKey(b)
	if err != nil {
		return nil, fmt.Errorf("primitives: parse kyber private key: %w", err)
	}
	return priv, nil
}

// KyberEncapsulate runs the sender's half of ML-KEM-1024 against a
// recipient's Kyber pre-key, returning the ciphertext to send and the
// shared secret to fold into the PQXDH root key derivation.
func KyberEncapsulate(pub kem.PublicKey) (ciphertext, sharedSecret []byte, err error) {
	ct, ss, err := kyberScheme.Encapsulate(pub)
	if err != nil {
		return nil, nil, fmt.Errorf("primitives: kyber encapsulate: %w", err)
	}
	return ct, ss, nil
}

// KyberDecapsulate runs the recipient's half of ML-KEM-1024, recovering
// the same shared secret the sender derived via KyberEncapsulate.
func KyberDecapsulate(priv kem.PrivateKey, ciphertext []byte) ([]byte, error) {
	ss, err := kyberScheme.Decapsulate(priv, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("primitives: kyber decapsulate: %w", err)
	}
	return ss, nil
}

// kyberRandReader is not read by any function in this package: key
// generation and encapsulation always seed from crypto/rand through the
// circl scheme, so replacing it does not make them deterministic.
var kyberRandReader = rand.Reader
