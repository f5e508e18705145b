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

// DecryptionErrorMessage is sent back to a sender whose message a
// recipient could not decrypt, so the sender can decide whether to
// re-establish the session. RatchetKey is only present when the failing
// message's ratchet public key could be extracted from its envelope
// (a PreKeySignalMessage or SignalMessage, not an opaque sealed blob).
type DecryptionErrorMessage struct {
	Version     byte
	TimestampMs uint64
	DeviceID    uint32
	HasRatchetKey bool
	RatchetKey  [32]byte
}

func EncodeDecryptionErrorMessage(m DecryptionErrorMessage) []byte {
	var body []byte
	body = appendVarintField(body, 1, m.TimestampMs)
	body = appendVarintField(body, 2, uint64(m.DeviceID))
	if m.HasRatchetKey {
		body = appendBytesField(body, 3, m.RatchetKey[:])
	}

	out := make([]byte, 0, 1+len(body))
	out = append(out, m.Version)
	out = append(out, body...)
	return out
}

func DecodeDecryptionErrorMessage(b []byte) (DecryptionErrorMessage, error) {
	const op = "wire.DecodeDecryptionErrorMessage"
	if len(b) < 1 {
		return DecryptionErrorMessage{}, perror.Newf(op, perror.KindInvalidSerialization, "message too short")
	}
	var m DecryptionErrorMessage
	m.Version = b[0]

	var sawTimestamp, sawDevice bool
	err := walkFields(b[1:], func(f field) error {
		switch f.Num {
		case 1:
			m.TimestampMs = f.Varint
			sawTimestamp = true
		case 2:
			m.DeviceID = uint32(f.Varint)
			sawDevice = true
		case 3:
			if len(f.Bytes) != 32 {
				return perror.Newf(op, perror.KindInvalidSerialization, "ratchet_key must be 32 bytes")
			}
			copy(m.RatchetKey[:], f.Bytes)
			m.HasRatchetKey = true
		}
		return nil
	})
	if err != nil {
		return DecryptionErrorMessage{}, err
	}
	if !sawTimestamp || !sawDevice {
		return DecryptionErrorMessage{}, perror.Newf(op, perror.KindInvalidSerialization, "missing required field")
	}
	return m, nil
}
