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

// SenderKeyMessage is one group-message ciphertext under a sender-key
// chain. Unlike SignalMessage, authenticity is a Curve25519 signature
// over the whole body rather than a shared HMAC, since every group
// member holds the signing public key but none but the sender holds its
// private half.
type SenderKeyMessage struct {
	Version        byte
	DistributionID [16]byte
	ChainID        uint32
	Iteration      uint32
	Ciphertext     []byte
	Signature      [64]byte
}

// SenderKeyMessageBody returns the version_byte||protobuf(...) prefix
// that Signature is computed over.
func SenderKeyMessageBody(m SenderKeyMessage) []byte {
	var body []byte
	body = appendBytesField(body, 1, m.DistributionID[:])
	body = appendVarintField(body, 2, uint64(m.ChainID))
	body = appendVarintField(body, 3, uint64(m.Iteration))
	body = appendBytesField(body, 4, m.Ciphertext)

	out := make([]byte, 0, 1+len(body))
	out = append(out, m.Version)
	out = append(out, body...)
	return out
}

func EncodeSenderKeyMessage(m SenderKeyMessage) []byte {
	body := SenderKeyMessageBody(m)
	out := make([]byte, 0, len(body)+64)
	out = append(out, body...)
	out = append(out, m.Signature[:]...)
	return out
}

func DecodeSenderKeyMessage(b []byte) (SenderKeyMessage, error) {
	const op = "wire.DecodeSenderKeyMessage"
	if len(b) < 1+64 {
		return SenderKeyMessage{}, perror.Newf(op, perror.KindInvalidSerialization, "message too short")
	}
	sig := b[len(b)-64:]
	body := b[:len(b)-64]

	var m SenderKeyMessage
	m.Version = body[0]
	copy(m.Signature[:], sig)

	var sawDistID, sawCiphertext bool
	err := walkFields(body[1:], func(f field) error {
		switch f.Num {
		case 1:
			if len(f.Bytes) != 16 {
				return perror.Newf(op, perror.KindInvalidSerialization, "distribution_id must be 16 bytes")
			}
			copy(m.DistributionID[:], f.Bytes)
			sawDistID = true
		case 2:
			m.ChainID = uint32(f.Varint)
		case 3:
			m.Iteration = uint32(f.Varint)
		case 4:
			m.Ciphertext = append([]byte(nil), f.Bytes...)
			sawCiphertext = true
		}
		return nil
	})
	if err != nil {
		return SenderKeyMessage{}, err
	}
	if !sawDistID || !sawCiphertext {
		return SenderKeyMessage{}, perror.Newf(op, perror.KindInvalidSerialization, "missing required field")
	}
	return m, nil
}
