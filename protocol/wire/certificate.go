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

// ServerCertificateBody is the signed portion of a ServerCertificate:
// the trust root's attestation that key_id names server_key_pub. It is
// signed out of band, by a trust root key this package never handles
// directly.
type ServerCertificateBody struct {
	KeyID        uint32
	ServerKeyPub [32]byte
}

func EncodeServerCertificateBody(b ServerCertificateBody) []byte {
	var body []byte
	body = appendVarintField(body, 1, uint64(b.KeyID))
	body = appendBytesField(body, 2, b.ServerKeyPub[:])
	return body
}

func DecodeServerCertificateBody(b []byte) (ServerCertificateBody, error) {
	const op = "wire.DecodeServerCertificateBody"
	var out ServerCertificateBody
	var sawKey bool
	err := walkFields(b, func(f field) error {
		switch f.Num {
		case 1:
			out.KeyID = uint32(f.Varint)
		case 2:
			if len(f.Bytes) != 32 {
				return perror.Newf(op, perror.KindInvalidSerialization, "server_key_pub must be 32 bytes")
			}
			copy(out.ServerKeyPub[:], f.Bytes)
			sawKey = true
		}
		return nil
	})
	if err != nil {
		return ServerCertificateBody{}, err
	}
	if !sawKey {
		return ServerCertificateBody{}, perror.Newf(op, perror.KindInvalidSerialization, "missing server_key_pub")
	}
	return out, nil
}

// ServerCertificate pairs the signed body with the trust root's
// signature over it.
type ServerCertificate struct {
	Body      ServerCertificateBody
	Signature []byte
}

func EncodeServerCertificate(c ServerCertificate) []byte {
	var out []byte
	out = appendBytesField(out, 1, EncodeServerCertificateBody(c.Body))
	out = appendBytesField(out, 2, c.Signature)
	return out
}

func DecodeServerCertificate(b []byte) (ServerCertificate, error) {
	const op = "wire.DecodeServerCertificate"
	var out ServerCertificate
	var sawBody, sawSig bool
	err := walkFields(b, func(f field) error {
		switch f.Num {
		case 1:
			body, err := DecodeServerCertificateBody(f.Bytes)
			if err != nil {
				return err
			}
			out.Body = body
			sawBody = true
		case 2:
			out.Signature = append([]byte(nil), f.Bytes...)
			sawSig = true
		}
		return nil
	})
	if err != nil {
		return ServerCertificate{}, err
	}
	if !sawBody || !sawSig {
		return ServerCertificate{}, perror.Newf(op, perror.KindInvalidSerialization, "missing required field")
	}
	return out, nil
}

// SenderCertificateBody is the signed portion of a SenderCertificate:
// the binding between an account/device and the identity key it was
// issued for, valid until Expiration, countersigned by the ServerCert
// whose key_id the issuing server used.
type SenderCertificateBody struct {
	SenderUUID   string
	SenderE164   string // optional, empty when not present
	SenderDevice uint32
	SenderKey    [32]byte
	Expiration   uint64 // unix millis
	Signer       ServerCertificate
}

func EncodeSenderCertificateBody(b SenderCertificateBody) []byte {
	var body []byte
	body = appendBytesField(body, 1, []byte(b.SenderUUID))
	if b.SenderE164 != "" {
		body = appendBytesField(body, 2, []byte(b.SenderE164))
	}
	body = appendVarintField(body, 3, uint64(b.SenderDevice))
	body = appendBytesField(body, 4, b.SenderKey[:])
	body = appendVarintField(body, 5, b.Expiration)
	body = appendBytesField(body, 6, EncodeServerCertificate(b.Signer))
	return body
}

func DecodeSenderCertificateBody(b []byte) (SenderCertificateBody, error) {
	const op = "wire.DecodeSenderCertificateBody"
	var out SenderCertificateBody
	var sawUUID, sawDevice, sawKey, sawExp, sawSigner bool
	err := walkFields(b, func(f field) error {
		switch f.Num {
		case 1:
			out.SenderUUID = string(f.Bytes)
			sawUUID = true
		case 2:
			out.SenderE164 = string(f.Bytes)
		case 3:
			out.SenderDevice = uint32(f.Varint)
			sawDevice = true
		case 4:
			if len(f.Bytes) != 32 {
				return perror.Newf(op, perror.KindInvalidSerialization, "sender_key must be 32 bytes")
			}
			copy(out.SenderKey[:], f.Bytes)
			sawKey = true
		case 5:
			out.Expiration = f.Varint
			sawExp = true
		case 6:
			signer, err := DecodeServerCertificate(f.Bytes)
			if err != nil {
				return err
			}
			out.Signer = signer
			sawSigner = true
		}
		return nil
	})
	if err != nil {
		return SenderCertificateBody{}, err
	}
	if !sawUUID || !sawDevice || !sawKey || !sawExp || !sawSigner {
		return SenderCertificateBody{}, perror.Newf(op, perror.KindInvalidSerialization, "missing required field")
	}
	return out, nil
}

// SenderCertificate pairs the signed body with the server identity key's
// signature over it (the key named by Body.Signer.Body.ServerKeyPub).
type SenderCertificate struct {
	Body      SenderCertificateBody
	Signature []byte
}

func EncodeSenderCertificate(c SenderCertificate) []byte {
	var out []byte
	out = appendBytesField(out, 1, EncodeSenderCertificateBody(c.Body))
	out = appendBytesField(out, 2, c.Signature)
	return out
}

func DecodeSenderCertificate(b []byte) (SenderCertificate, error) {
	const op = "wire.DecodeSenderCertificate"
	var out SenderCertificate
	var sawBody, sawSig bool
	err := walkFields(b, func(f field) error {
		switch f.Num {
		case 1:
			body, err := DecodeSenderCertificateBody(f.Bytes)
			if err != nil {
				return err
			}
			out.Body = body
			sawBody = true
		case 2:
			out.Signature = append([]byte(nil), f.Bytes...)
			sawSig = true
		}
		return nil
	})
	if err != nil {
		return SenderCertificate{}, err
	}
	if !sawBody || !sawSig {
		return SenderCertificate{}, perror.Newf(op, perror.KindInvalidSerialization, "missing required field")
	}
	return out, nil
}
