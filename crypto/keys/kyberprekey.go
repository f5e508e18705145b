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

package keys

import (
	"fmt"

	"github.com/sage-x-project/signalcore/crypto/primitives"
)

// KyberPreKey is an ML-KEM-1024 encapsulation key pair, identity-signed
// the same way a SignedPreKey is. It is marked-used rather than deleted
// on consumption, so a delayed re-delivery of the same bundle still
// decapsulates against it.
type KyberPreKey struct {
	ID          uint32
	TimestampMs uint64
	Signature   []byte
	kem         *primitives.KyberKeyPair
}

// GenerateKyberPreKey creates a fresh Kyber pre-key and signs its public
// key with identity's private key.
func GenerateKyberPreKey(id uint32, timestampMs uint64, identity *IdentityKeyPair) (*KyberPreKey, error) {
	kp, err := primitives.GenerateKyberKeyPair()
	if err != nil {
		return nil, fmt.Errorf("keys: generate kyber pre-key %d: %w", id, err)
	}
	pubBytes, err := primitives.MarshalKyberPublicKey(kp.Public)
	if err != nil {
		return nil, fmt.Errorf("keys: marshal kyber pre-key %d: %w", id, err)
	}
	sig, err := identity.Sign(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("keys: sign kyber pre-key %d: %w", id, err)
	}
	return &KyberPreKey{ID: id, TimestampMs: timestampMs, Signature: sig, kem: kp}, nil
}

// NewKyberPreKeyFromParts reconstructs a Kyber pre-key from its stored
// fields, as read back from a KyberPreKeyStore.
func NewKyberPreKeyFromParts(id uint32, timestampMs uint64, privBytes []byte, signature []byte) (*KyberPreKey, error) {
	priv, err := primitives.ParseKyberPrivateKey(privBytes)
	if err != nil {
		return nil, fmt.Errorf("keys: load kyber pre-key %d: %w", id, err)
	}
	return &KyberPreKey{ID: id, TimestampMs: timestampMs, Signature: signature, kem: &primitives.KyberKeyPair{
		Public:  priv.Public(),
		Private: priv,
	}}, nil
}

// PublicBytes returns the Kyber pre-key's marshaled public key.
func (k *KyberPreKey) PublicBytes() ([]byte, error) {
	return primitives.MarshalKyberPublicKey(k.kem.Public)
}

// PrivateBytes returns the Kyber pre-key's marshaled private key for
// store persistence.
func (k *KyberPreKey) PrivateBytes() ([]byte, error) {
	return primitives.MarshalKyberPrivateKey(k.kem.Private)
}

// VerifyAgainst checks the Kyber pre-key's signature against the claimed
// signer's identity public key.
func (k *KyberPreKey) VerifyAgainst(identity PublicKey) bool {
	pubBytes, err := k.PublicBytes()
	if err != nil {
		return false
	}
	return VerifySignature(identity, pubBytes, k.Signature)
}

// Decapsulate recovers the shared secret a sender encapsulated against
// this Kyber pre-key's public key.
func (k *KyberPreKey) Decapsulate(ciphertext []byte) ([]byte, error) {
	return primitives.KyberDecapsulate(k.kem.Private, ciphertext)
}

// EncapsulateAgainst runs the sender side of ML-KEM-1024 against a
// recipient's marshaled Kyber public key, used when processing a
// PreKeyBundle's kyber_pre_key field.
func EncapsulateAgainst(publicBytes []byte) (ciphertext, sharedSecret []byte, err error) {
	pub, err := primitives.ParseKyberPublicKey(publicBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("keys: parse kyber public key: %w", err)
	}
	return primitives.KyberEncapsulate(pub)
}
