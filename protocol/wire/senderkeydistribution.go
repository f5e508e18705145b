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

// SenderKeyDistributionMessage carries a new or rotated sender-key chain
// to the other members of a group: which distribution (and chain) it
// starts, the iteration it starts from, the chain key seed itself, and
// the Curve25519 public key group members use to verify subsequent
// SenderKeyMessages signed with it.
type SenderKeyDistributionMessage struct {
	Version        byte
	DistributionID [16]byte
	ChainID        uint32
	Iteration      uint32
	ChainKey       [32]byte
	SigningKey     [32]byte
}

func EncodeSenderKeyDistributionMessage(m SenderKeyDistributionMessage) []byte {
	var body []byte
	body = appendBytesField(body, 1, m.DistributionID[:])
	body = appendVarintField(body, 2, uint64(m.ChainID))
	body = appendVarintField(body, 3, uint64(m.Iteration))
	body = appendBytesField(body, 4, m.ChainKey[:])
	body = appendBytesField(body, 5, m.SigningKey[:])

	out := make([]byte, 0, 1+len(body))
	out = append(out, m.Version)
	out = append(out, body...)
	return out
}

func DecodeSenderKeyDistributionMessage(b []byte) (SenderKeyDistributionMessage, error) {
	const op = "wire.DecodeSenderKeyDistributionMessage"
	if len(b) < 1 {
		return SenderKeyDistributionMessage{}, perror.Newf(op, perror.KindInvalidSerialization, "message too short")
	}
	var m SenderKeyDistributionMessage
	m.Version = b[0]

	var sawDistID, sawChainKey, sawSigningKey bool
	err := walkFields(b[1:], func(f field) error {
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
			if len(f.Bytes) != 32 {
				return perror.Newf(op, perror.KindInvalidSerialization, "chain_key must be 32 bytes")
			}
			copy(m.ChainKey[:], f.Bytes)
			sawChainKey = true
		case 5:
			if len(f.Bytes) != 32 {
				return perror.Newf(op, perror.KindInvalidSerialization, "signing_key must be 32 bytes")
			}
			copy(m.SigningKey[:], f.Bytes)
			sawSigningKey = true
		}
		return nil
	})
	if err != nil {
		return SenderKeyDistributionMessage{}, err
	}
	if !sawDistID || !sawChainKey || !sawSigningKey {
		return SenderKeyDistributionMessage{}, perror.Newf(op, perror.KindInvalidSerialization, "missing required field")
	}
	return m, nil
}
