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

// Package keys holds the long-term and ephemeral key objects of the
// protocol's data model: identity keys, one-shot pre-keys, signed
// pre-keys, Kyber pre-keys, and the bundle that advertises them.
package keys

import (
	"encoding/hex"
	"fmt"

	"github.com/sage-x-project/signalcore/crypto/primitives"
)

// IdentityKeyPair is a principal's long-term X25519 key pair. It is also
// a Curve25519 signing key: signed pre-keys, Kyber pre-keys, and
// certificates are all signed with the same XEdDSA construction over
// this key's private scalar.
type IdentityKeyPair struct {
	curve *primitives.CurveKeyPair
}

// GenerateIdentityKeyPair creates a fresh identity key pair. Created once
// per install; re-keying is a full re-registration, never an in-place
// rotation.
func GenerateIdentityKeyPair() (*IdentityKeyPair, error) {
	kp, err := primitives.GenerateCurveKeyPair()
	if err != nil {
		return nil, fmt.Errorf("keys: generate identity key pair: %w", err)
	}
	return &IdentityKeyPair{curve: kp}, nil
}

// NewIdentityKeyPairFromSeed reconstructs an identity key pair from its
// serialized 32-byte private seed.
func NewIdentityKeyPairFromSeed(seed [32]byte) (*IdentityKeyPair, error) {
	kp, err := primitives.NewCurveKeyPairFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("keys: load identity key pair: %w", err)
	}
	return &IdentityKeyPair{curve: kp}, nil
}

// PublicKey is the 32-byte Montgomery public key published to peers and
// embedded in pre-key bundles and certificates.
type PublicKey [32]byte

// String renders the public key as lowercase hex, for logs.
func (p PublicKey) String() string {
	return hex.EncodeToString(p[:])
}

// Public returns the identity's public key.
func (kp *IdentityKeyPair) Public() PublicKey {
	return PublicKey(kp.curve.PublicKey())
}

// Seed returns the 32-byte private seed for store persistence. Callers
// must zero the returned array once it has been written out.
func (kp *IdentityKeyPair) Seed() [32]byte {
	return kp.curve.Seed()
}

// DH computes the X25519 shared secret between this identity and a
// peer's public key — one leg of a PQXDH handshake's four-way DH.
func (kp *IdentityKeyPair) DH(peer PublicKey) ([]byte, error) {
	return kp.curve.DH([32]byte(peer))
}

// Sign produces a Curve25519 (XEdDSA) signature over message with this
// identity's private key.
func (kp *IdentityKeyPair) Sign(message []byte) ([]byte, error) {
	return kp.curve.Sign(message)
}

// Close zeroes the identity's private seed. Safe to call more than once.
func (kp *IdentityKeyPair) Close() {
	kp.curve.Close()
}

// VerifySignature checks a Curve25519 (XEdDSA) signature against a
// Montgomery public key, for validating any signed-pre-key, Kyber
// pre-key, or certificate signature produced with Sign.
func VerifySignature(signer PublicKey, message, signature []byte) bool {
	return primitives.Verify([32]byte(signer), message, signature)
}
