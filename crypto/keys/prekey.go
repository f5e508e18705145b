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

// PreKey is a one-shot X25519 key pair: after it is consumed inside an
// inbound PreKeySignalMessage, the engine asks the owning store to
// delete its id.
type PreKey struct {
	ID   uint32
	curve *primitives.CurveKeyPair
}

// GeneratePreKey creates a fresh one-shot pre-key with the given id.
func GeneratePreKey(id uint32) (*PreKey, error) {
	kp, err := primitives.GenerateCurveKeyPair()
	if err != nil {
		return nil, fmt.Errorf("keys: generate pre-key %d: %w", id, err)
	}
	return &PreKey{ID: id, curve: kp}, nil
}

// NewPreKeyFromSeed reconstructs a pre-key from its serialized seed, as
// read back from a PreKeyStore.
func NewPreKeyFromSeed(id uint32, seed [32]byte) (*PreKey, error) {
	kp, err := primitives.NewCurveKeyPairFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("keys: load pre-key %d: %w", id, err)
	}
	return &PreKey{ID: id, curve: kp}, nil
}

// Public returns the pre-key's public half.
func (p *PreKey) Public() PublicKey {
	return PublicKey(p.curve.PublicKey())
}

// Seed returns the pre-key's private seed for persistence.
func (p *PreKey) Seed() [32]byte {
	return p.curve.Seed()
}

// DH computes the X25519 shared secret between this pre-key and a peer's
// public key.
func (p *PreKey) DH(peer PublicKey) ([]byte, error) {
	return p.curve.DH([32]byte(peer))
}

// Close zeroes the pre-key's private seed.
func (p *PreKey) Close() {
	p.curve.Close()
}

// BatchGeneratePreKeys creates count pre-keys with sequential ids
// starting at startID, the shape operators export to a pre-key directory
// for a device to upload.
func BatchGeneratePreKeys(startID uint32, count int) ([]*PreKey, error) {
	out := make([]*PreKey, 0, count)
	for i := 0; i < count; i++ {
		pk, err := GeneratePreKey(startID + uint32(i))
		if err != nil {
			return nil, err
		}
		out = append(out, pk)
	}
	return out, nil
}
