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

// Package sealedsender implements the sealed-sender envelope engine:
// hiding a message's sender from transport while still letting the
// recipient authenticate the sender after decryption, via a certificate
// chain rooted at a trust anchor the recipient already holds out of band.
package sealedsender

import (
	"github.com/sage-x-project/signalcore/crypto/keys"
	"github.com/sage-x-project/signalcore/protocol/wire"
)

// TrustRoot is the set of server identity keys a recipient accepts as
// having signed a ServerCertificate. A single root is the common case;
// carrying more than one supports rotating the signing key without
// invalidating certificates issued under the outgoing one.
type TrustRoot struct {
	roots []keys.PublicKey
}

// NewTrustRoot builds a TrustRoot from one or more accepted signing keys.
func NewTrustRoot(roots ...keys.PublicKey) TrustRoot {
	return TrustRoot{roots: append([]keys.PublicKey(nil), roots...)}
}

// ValidateServerCertificate reports whether cert was signed by any key
// in root.
func ValidateServerCertificate(root TrustRoot, cert wire.ServerCertificate) bool {
	body := wire.EncodeServerCertificateBody(cert.Body)
	for _, r := range root.roots {
		if keys.VerifySignature(r, body, cert.Signature) {
			return true
		}
	}
	return false
}

// ValidateSenderCertificate runs the three checks a SenderCertificate
// must pass against root at nowMs: not expired, its embedded
// ServerCertificate traces to root, and the server key it names actually
// signed the sender certificate body. All three are required; there is
// no partial signal, matching the single boolean this returns.
func ValidateSenderCertificate(root TrustRoot, cert wire.SenderCertificate, nowMs uint64) bool {
	if nowMs >= cert.Body.Expiration {
		return false
	}
	if !ValidateServerCertificate(root, cert.Body.Signer) {
		return false
	}
	serverKey := keys.PublicKey(cert.Body.Signer.Body.ServerKeyPub)
	return keys.VerifySignature(serverKey, wire.EncodeSenderCertificateBody(cert.Body), cert.Signature)
}
