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

// PreKeySignalMessage is the first message of a PQXDH-initiated session:
// the recipient's handshake material (registration id, the one-shot
// pre-key and signed pre-key ids consumed, the sender's ephemeral base
// key, and the Kyber encapsulation ciphertext) wrapping the initial
// SignalMessage.
type PreKeySignalMessage struct {
	Version           byte
	RegistrationID    uint32
	HasPreKeyID       bool
	PreKeyID          uint32
	SignedPreKeyID    uint32
	BaseKey           [32]byte
	IdentityKey       [32]byte
	KyberPreKeyID     uint32
	KyberCiphertext   []byte
	Message           []byte // the embedded, fully serialized SignalMessage
}

func EncodePreKeySignalMessage(m PreKeySignalMessage) []byte {
	var body []byte
	body = appendVarintField(body, 1, uint64(m.RegistrationID))
	if m.HasPreKeyID {
		body = appendVarintField(body, 2, uint64(m.PreKeyID))
	}
	body = appendVarintField(body, 3, uint64(m.SignedPreKeyID))
	body = appendBytesField(body, 4, m.BaseKey[:])
	body = appendBytesField(body, 5, m.IdentityKey[:])
	body = appendBytesField(body, 6, m.Message)
	body = appendVarintField(body, 7, uint64(m.KyberPreKeyID))
	body = appendBytesField(body, 8, m.KyberCiphertext)

	out := make([]byte, 0, 1+len(body))
	out = append(out, m.Version)
	out = append(out, body...)
	return out
}

func DecodePreKeySignalMessage(b []byte) (PreKeySignalMessage, error) {
	if len(b) < 1 {
		return PreKeySignalMessage{}, perror.Newf("wire.DecodePreKeySignalMessage", perror.KindInvalidSerialization, "message too short")
	}
	var m PreKeySignalMessage
	m.Version = b[0]

	var sawSignedPreKeyID, sawBaseKey, sawIdentityKey, sawMessage bool
	err := walkFields(b[1:], func(f field) error {
		switch f.Num {
		case 1:
			m.RegistrationID = uint32(f.Varint)
		case 2:
			m.HasPreKeyID = true
			m.PreKeyID = uint32(f.Varint)
		case 3:
			m.SignedPreKeyID = uint32(f.Varint)
			sawSignedPreKeyID = true
		case 4:
			if len(f.Bytes) != 32 {
				return perror.Newf("wire.DecodePreKeySignalMessage", perror.KindInvalidSerialization, "base_key must be 32 bytes")
			}
			copy(m.BaseKey[:], f.Bytes)
			sawBaseKey = true
		case 5:
			if len(f.Bytes) != 32 {
				return perror.Newf("wire.DecodePreKeySignalMessage", perror.KindInvalidSerialization, "identity_key must be 32 bytes")
			}
			copy(m.IdentityKey[:], f.Bytes)
			sawIdentityKey = true
		case 6:
			m.Message = append([]byte(nil), f.Bytes...)
			sawMessage = true
		case 7:
			m.KyberPreKeyID = uint32(f.Varint)
		case 8:
			m.KyberCiphertext = append([]byte(nil), f.Bytes...)
		}
		return nil
	})
	if err != nil {
		return PreKeySignalMessage{}, err
	}
	if !sawSignedPreKeyID || !sawBaseKey || !sawIdentityKey || !sawMessage {
		return PreKeySignalMessage{}, perror.Newf("wire.DecodePreKeySignalMessage", perror.KindInvalidSerialization, "missing required field")
	}
	return m, nil
}
