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

// SigningKeyPair is an ephemeral Curve25519 signing key a sender
// generates per sender-key distribution — distinct from its identity
// key, so a group chain's authenticity never implicates the long-term
// key. It uses the same XEdDSA construction as identity/pre-key
// signatures so the engines share one signature verifier.
type SigningKeyPair struct {
	curve *primitives.CurveKeyPair
}

// GenerateSigningKeyPair creates a fresh ephemeral signing key for a new
// sender-key distribution.
func GenerateSigningKeyPair() (*SigningKeyPair, error) {
	kp, err := primitives.GenerateCurveKeyPair()
	if err != nil {
		return nil, fmt.Errorf("keys: generate signing key pair: %w", err)
	}
	return &SigningKeyPair{curve: kp}, nil
}

// NewSigningKeyPairFromSeed reconstructs a signing key pair from its
// serialized seed, as read back from a groupsession.Store.
func NewSigningKeyPairFromSeed(seed [32]byte) (*SigningKeyPair, error) {
	kp, err := primitives.NewCurveKeyPairFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("keys: load signing key pair: %w", err)
	}
	return &SigningKeyPair{curve: kp}, nil
}

// Public returns the signing key's public half, carried on the wire in a
// SenderKeyDistributionMessage.
func (s *SigningKeyPair) Public() PublicKey {
	return PublicKey(s.curve.PublicKey())
}

// Seed returns the signing key's private seed for persistence.
func (s *SigningKeyPair) Seed() [32]byte {
	return s.curve.Seed()
}

// Sign signs message with the signing key's private scalar, producing
// the trailing signature on a SenderKeyMessage.
func (s *SigningKeyPair) Sign(message []byte) ([]byte, error) {
	return s.curve.Sign(message)
}

// Close zeroes the signing key's private seed.
func (s *SigningKeyPair) Close() {
	s.curve.Close()
}
