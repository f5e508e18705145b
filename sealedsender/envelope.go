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

package sealedsender

import (
	"github.com/sage-x-project/signalcore/crypto/primitives"
)

// envelopeInfo domain-separates the sealed-sender envelope key derivation
// from every other HKDF use in the module.
const envelopeInfo = "signalcore sealed sender envelope v1"

// envelopeNonce is the fixed AES-256-GCM-SIV nonce every envelope is
// sealed under. GCM-SIV's misuse resistance is exactly what makes this
// safe: the key itself is unique per envelope (derived from a fresh
// ephemeral key pair the sender discards immediately after), so there is
// no nonce-reuse-under-a-fixed-key case for an attacker to exploit.
var envelopeNonce = [12]byte{}

// deriveEnvelopeKeys expands the X25519 shared secret between the
// sender's ephemeral key and the recipient's identity key into the
// envelope's symmetric key material. envelopeMacKey and chainKey are
// reserved for a future multi-message envelope chain; today's one-shot
// envelope only consumes envelopeKey.
func deriveEnvelopeKeys(shared []byte) (envelopeKey, envelopeMacKey, chainKey []byte, err error) {
	out, err := primitives.HKDFExpand(shared, nil, []byte(envelopeInfo), 96)
	if err != nil {
		return nil, nil, nil, err
	}
	return out[:32], out[32:64], out[64:96], nil
}
