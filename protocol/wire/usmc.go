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

// MessageType names which inner message Content holds.
type MessageType uint32

const (
	MessageTypeWhisper MessageType = 1
	MessageTypePreKey  MessageType = 2
	MessageTypeSenderKey MessageType = 3
	MessageTypePlaintext MessageType = 4
)

// ContentHint tells a recipient whose session has gone astray how to
// treat the failure: Default aborts and surfaces a decryption error,
// Resendable/Implicit let the caller choose to silently drop instead.
type ContentHint uint32

const (
	ContentHintDefault    ContentHint = 0
	ContentHintResendable ContentHint = 1
	ContentHintImplicit   ContentHint = 2
)

// USMC is UnidentifiedSenderMessageContent: the payload sealed inside a
// sealed-sender envelope, carrying the sender's certificate alongside
// the inner encrypted message so a recipient can authenticate the
// sender only after decrypting.
type USMC struct {
	Type        MessageType
	Certificate SenderCertificate
	Content     []byte
	ContentHint ContentHint
	GroupID     []byte // optional, present for sealed group-addressed content
}

func EncodeUSMC(m USMC) []byte {
	var out []byte
	out = appendVarintField(out, 1, uint64(m.Type))
	out = appendBytesField(out, 2, EncodeSenderCertificate(m.Certificate))
	out = appendBytesField(out, 3, m.Content)
	out = appendVarintField(out, 4, uint64(m.ContentHint))
	if len(m.GroupID) > 0 {
		out = appendBytesField(out, 5, m.GroupID)
	}
	return out
}

func DecodeUSMC(b []byte) (USMC, error) {
	const op = "wire.DecodeUSMC"
	var out USMC
	var sawType, sawCert, sawContent bool
	err := walkFields(b, func(f field) error {
		switch f.Num {
		case 1:
			out.Type = MessageType(f.Varint)
			sawType = true
		case 2:
			cert, err := DecodeSenderCertificate(f.Bytes)
			if err != nil {
				return err
			}
			out.Certificate = cert
			sawCert = true
		case 3:
			out.Content = append([]byte(nil), f.Bytes...)
			sawContent = true
		case 4:
			out.ContentHint = ContentHint(f.Varint)
		case 5:
			out.GroupID = append([]byte(nil), f.Bytes...)
		}
		return nil
	})
	if err != nil {
		return USMC{}, err
	}
	if !sawType || !sawCert || !sawContent {
		return USMC{}, perror.Newf(op, perror.KindInvalidSerialization, "missing required field")
	}
	return out, nil
}
