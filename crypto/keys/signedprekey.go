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

// SignedPreKey is a rotated, identity-signed X25519 key pair. Multiple
// valid ones may coexist across a rotation window so in-flight bundles
// that referenced an older one still verify.
type SignedPreKey struct {
	ID          uint32
	TimestampMs uint64
	Signature   []byte
	curve       *primitives.CurveKeyPair
}

// GenerateSignedPreKey creates a fresh signed pre-key and signs its
// public key with identity's private key.
func GenerateSignedPreKey(id uint32, timestampMs uint64, identity *IdentityKeyPair) (*SignedPreKey, error) {
	kp, err := primitives.GenerateCurveKeyPair()
	if err != nil {
		return nil, fmt.Errorf("keys: generate signed pre-key %d: %w", id, err)
	}
	pub := kp.PublicKey()
	sig, err := identity.Sign(pub[:])
	if err != nil {
		return nil, fmt.Errorf("keys: sign signed pre-key %d: %w", id, err)
	}
	return &SignedPreKey{ID: id, TimestampMs: timestampMs, Signature: sig, curve: kp}, nil
}

// NewSignedPreKeyFromParts reconstructs a signed pre-key from its stored
// fields, as read back from a SignedPreKeyStore.
func NewSignedPreKeyFromParts(id uint32, timestampMs uint64, seed [32]byte, signature []byte) (*SignedPreKey, error) {
	kp, err := primitives.NewCurveKeyPairFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("keys: load signed pre-key %d: %w", id, err)
	}
	return &SignedPreKey{ID: id, TimestampMs: timestampMs, Signature: signature, curve: kp}, nil
}

// Public returns the signed pre-key's public half.
func (s *SignedPreKey) Public() PublicKey {
	return PublicKey(s.curve.PublicKey())
}

// Seed returns the signed pre-key's private seed for persistence.
func (s *SignedPreKey) Seed() [32]byte {
	return s.curve.Seed()
}

// DH computes the X25519 shared secret between this signed pre-key and a
// peer's public key.
func (s *SignedPreKey) DH(peer PublicKey) ([]byte, error) {
	return s.curve.DH([32]byte(peer))
}

// VerifyAgainst checks the signed pre-key's signature against the
// claimed signer's identity public key.
func (s *SignedPreKey) VerifyAgainst(identity PublicKey) bool {
	pub := s.curve.PublicKey()
	return VerifySignature(identity, pub[:], s.Signature)
}

// Close zeroes the signed pre-key's private seed.
func (s *SignedPreKey) Close() {
	s.curve.Close()
}
