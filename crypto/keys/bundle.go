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

import "fmt"

// PreKeyBundle is the capability a device publishes so a peer can start a
// pairwise session with it. The one-time pre-key is optional; the Kyber
// fields are mandatory for v4 sessions and must be all-present or
// all-absent together — a partially populated Kyber field is invalid.
type PreKeyBundle struct {
	RegistrationID uint32
	DeviceID       uint32
	IdentityKey    PublicKey

	HasPreKey bool
	PreKeyID  uint32
	PreKey    PublicKey

	SignedPreKeyID        uint32
	SignedPreKeyPublic    PublicKey
	SignedPreKeySignature []byte

	HasKyberPreKey        bool
	KyberPreKeyID         uint32
	KyberPreKeyPublic     []byte
	KyberPreKeySignature  []byte
}

// Validate checks the bundle's internal consistency (Kyber fields
// all-or-nothing) and that both embedded signatures verify against the
// bundle's identity key.
func (b *PreKeyBundle) Validate() error {
	if !b.HasKyberPreKey {
		if b.KyberPreKeyID != 0 || len(b.KyberPreKeyPublic) != 0 || len(b.KyberPreKeySignature) != 0 {
			return fmt.Errorf("keys: bundle has partial kyber fields")
		}
	}
	if !VerifySignature(b.IdentityKey, b.SignedPreKeyPublic[:], b.SignedPreKeySignature) {
		return fmt.Errorf("keys: signed pre-key signature invalid")
	}
	if b.HasKyberPreKey {
		if !VerifySignature(b.IdentityKey, b.KyberPreKeyPublic, b.KyberPreKeySignature) {
			return fmt.Errorf("keys: kyber pre-key signature invalid")
		}
	}
	return nil
}

// IsV4 reports whether the bundle carries a Kyber pre-key and therefore
// describes a PQXDH (version-4) session rather than a legacy v3 one.
func (b *PreKeyBundle) IsV4() bool {
	return b.HasKyberPreKey
}
