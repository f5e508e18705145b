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

import "github.com/sage-x-project/signalcore/protocol/wire"

// NewDecryptionErrorMessage builds the message a recipient sends back to
// originalType's sender when originalBytes could not be decrypted, so the
// sender can correlate it against an archived session generation. The
// ratchet key is only carried when it could be pulled out of
// originalBytes: whisper and pre-key messages name one, sender-key and
// plaintext messages don't.
func NewDecryptionErrorMessage(originalBytes []byte, originalType wire.MessageType, timestampMs uint64, deviceID uint32) wire.DecryptionErrorMessage {
	msg := wire.DecryptionErrorMessage{
		Version:     wire.PackVersionByte(wire.CurrentVersion, wire.MinSupportedVersion),
		TimestampMs: timestampMs,
		DeviceID:    deviceID,
	}
	if key, ok := extractRatchetKey(originalBytes, originalType); ok {
		msg.HasRatchetKey = true
		msg.RatchetKey = key
	}
	return msg
}

func extractRatchetKey(originalBytes []byte, originalType wire.MessageType) ([32]byte, bool) {
	switch originalType {
	case wire.MessageTypeWhisper:
		m, err := wire.DecodeSignalMessage(originalBytes)
		if err != nil {
			return [32]byte{}, false
		}
		return m.SenderRatchetKey, true
	case wire.MessageTypePreKey:
		outer, err := wire.DecodePreKeySignalMessage(originalBytes)
		if err != nil {
			return [32]byte{}, false
		}
		inner, err := wire.DecodeSignalMessage(outer.Message)
		if err != nil {
			return [32]byte{}, false
		}
		return inner.SenderRatchetKey, true
	default:
		return [32]byte{}, false
	}
}
