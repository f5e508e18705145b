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
	"fmt"

	"github.com/sage-x-project/signalcore/protocol/perror"
)

// MACSize is the length in bytes of the truncated HMAC-SHA256 MAC
// appended to every SignalMessage and PreKeySignalMessage.
const MACSize = 8

// SignalMessage is one Double Ratchet ciphertext message: the sender's
// current ratchet public key, chain counters locating the message key,
// and the AES-CBC/HMAC ciphertext produced by the encrypted-message
// cipher.
type SignalMessage struct {
	Version         byte
	SenderRatchetKey [32]byte
	Counter          uint32
	PreviousCounter  uint32
	Ciphertext       []byte
	MAC              [MACSize]byte
}

// EncodeSignalMessage serializes a SignalMessage as
// version_byte || protobuf(sender_ratchet_pub, counter, previous_counter, ciphertext) || mac.
// mac must already have been computed over the version byte and the
// protobuf body by the caller (the session engine, which holds the MAC
// key); this function only lays out the bytes.
func EncodeSignalMessage(m SignalMessage) []byte {
	body := encodeSignalMessageBody(m)
	out := make([]byte, 0, 1+len(body)+MACSize)
	out = append(out, m.Version)
	out = append(out, body...)
	out = append(out, m.MAC[:]...)
	return out
}

func encodeSignalMessageBody(m SignalMessage) []byte {
	var body []byte
	body = appendBytesField(body, 1, m.SenderRatchetKey[:])
	body = appendVarintField(body, 2, uint64(m.Counter))
	body = appendVarintField(body, 3, uint64(m.PreviousCounter))
	body = appendBytesField(body, 4, m.Ciphertext)
	return body
}

// SignalMessageBody returns the version_byte||protobuf(...) prefix that
// is MACed, without the trailing MAC itself — what a sender computes the
// MAC over and a receiver re-derives to verify it.
func SignalMessageBody(m SignalMessage) []byte {
	body := encodeSignalMessageBody(m)
	out := make([]byte, 0, 1+len(body))
	out = append(out, m.Version)
	out = append(out, body...)
	return out
}

// DecodeSignalMessage parses a serialized SignalMessage, verifying the
// protobuf framing but not the MAC or signature (that is the session
// engine's job once it can derive the expected MAC key).
func DecodeSignalMessage(b []byte) (SignalMessage, error) {
	if len(b) < 1+MACSize {
		return SignalMessage{}, perror.Newf("wire.DecodeSignalMessage", perror.KindInvalidSerialization, "message too short")
	}
	version := b[0]
	mac := b[len(b)-MACSize:]
	body := b[1 : len(b)-MACSize]

	var m SignalMessage
	m.Version = version
	copy(m.MAC[:], mac)

	var sawKey, sawCounter, sawPrev, sawCiphertext bool
	err := walkFields(body, func(f field) error {
		switch f.Num {
		case 1:
			if len(f.Bytes) != 32 {
				return fmt.Errorf("wire: sender_ratchet_pub must be 32 bytes, got %d", len(f.Bytes))
			}
			copy(m.SenderRatchetKey[:], f.Bytes)
			sawKey = true
		case 2:
			m.Counter = uint32(f.Varint)
			sawCounter = true
		case 3:
			m.PreviousCounter = uint32(f.Varint)
			sawPrev = true
		case 4:
			m.Ciphertext = append([]byte(nil), f.Bytes...)
			sawCiphertext = true
		}
		return nil
	})
	if err != nil {
		return SignalMessage{}, perror.Wrap("wire.DecodeSignalMessage", perror.KindInvalidSerialization, err)
	}
	if !sawKey || !sawCounter || !sawPrev || !sawCiphertext {
		return SignalMessage{}, perror.Newf("wire.DecodeSignalMessage", perror.KindInvalidSerialization, "missing required field")
	}
	return m, nil
}
