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

package wire

import (
	"github.com/sage-x-project/signalcore/protocol/perror"
)

// DJBKeyType is the one-byte key-type prefix libsignal stamps on every
// serialized Curve25519 public key, kept here so the sealed envelope's
// ephemeral key matches that convention exactly.
const DJBKeyType = 0x05

// EphemeralKeySize is the on-wire length of the sealed envelope's
// ephemeral public key: one type byte plus the 32-byte Montgomery point.
const EphemeralKeySize = 1 + 32

// SealedEnvelope is the outermost sealed-sender wire format: not a
// protobuf message like everything it carries, but a flat concatenation
// of a version byte, an ephemeral X25519 public key, and an
// AES-256-GCM-SIV ciphertext (with its 16-byte tag) of the encoded USMC.
type SealedEnvelope struct {
	Version       byte
	EphemeralKey  [32]byte
	Ciphertext    []byte // AES-256-GCM-SIV output, tag included
}

func EncodeSealedEnvelope(e SealedEnvelope) []byte {
	out := make([]byte, 0, 1+EphemeralKeySize+len(e.Ciphertext))
	out = append(out, e.Version)
	out = append(out, DJBKeyType)
	out = append(out, e.EphemeralKey[:]...)
	out = append(out, e.Ciphertext...)
	return out
}

func DecodeSealedEnvelope(b []byte) (SealedEnvelope, error) {
	const op = "wire.DecodeSealedEnvelope"
	if len(b) < 1+EphemeralKeySize {
		return SealedEnvelope{}, perror.Newf(op, perror.KindInvalidSerialization, "envelope too short")
	}
	var e SealedEnvelope
	e.Version = b[0]
	if b[1] != DJBKeyType {
		return SealedEnvelope{}, perror.Newf(op, perror.KindInvalidSerialization, "unexpected key type byte")
	}
	copy(e.EphemeralKey[:], b[2:2+32])
	e.Ciphertext = append([]byte(nil), b[1+EphemeralKeySize:]...)
	return e, nil
}
