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

// Package wire implements the byte-exact serialization of every message
// type exchanged between engines: the version-byte-prefixed protobuf
// bodies of SignalMessage, PreKeySignalMessage, the sender-key messages,
// the certificate chain, USMC, and the sealed-sender envelope. Encoding
// is done at the protowire field level rather than through generated
// .pb.go code, so the exact tag layout is explicit in one place per
// message.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// CurrentVersion and MinSupportedVersion are packed into the leading
// version byte of every versioned message as (current<<4)|min.
const (
	CurrentVersion      = 4
	LegacyVersion       = 3
	MinSupportedVersion = 3
)

// PackVersionByte combines a current and minimum-supported protocol
// version into the single leading byte every versioned wire format uses.
func PackVersionByte(current, minSupported byte) byte {
	return (current << 4) | (minSupported & 0x0F)
}

// UnpackVersionByte splits a leading version byte back into its current
// and minimum-supported halves.
func UnpackVersionByte(b byte) (current, minSupported byte) {
	return b >> 4, b & 0x0F
}

// field writers, reused across every message type in this package.

func appendVarintField(buf []byte, num protowire.Number, v uint64) []byte {
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	return protowire.AppendVarint(buf, v)
}

func appendBytesField(buf []byte, num protowire.Number, v []byte) []byte {
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendBytes(buf, v)
}

// field is one decoded (number, value) pair from walkFields. Exactly one
// of Varint or Bytes is meaningful, selected by Type.
type field struct {
	Num   protowire.Number
	Type  protowire.Type
	Varint uint64
	Bytes []byte
}

// walkFields decodes every top-level field of a protobuf-wire message
// once, in order, calling fn for each. Returning an error aborts the walk.
func walkFields(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("wire: malformed tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		f := field{Num: num, Type: typ}
		var consumed int
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("wire: malformed varint: %w", protowire.ParseError(n))
			}
			f.Varint = v
			consumed = n
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("wire: malformed bytes: %w", protowire.ParseError(n))
			}
			f.Bytes = v
			consumed = n
		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return fmt.Errorf("wire: malformed fixed32: %w", protowire.ParseError(n))
			}
			f.Varint = uint64(v)
			consumed = n
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return fmt.Errorf("wire: malformed fixed64: %w", protowire.ParseError(n))
			}
			f.Varint = v
			consumed = n
		default:
			return fmt.Errorf("wire: unsupported wire type %d", typ)
		}

		if err := fn(f); err != nil {
			return err
		}
		b = b[consumed:]
	}
	return nil
}
