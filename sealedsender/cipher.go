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

import (
	"context"

	"github.com/sage-x-project/signalcore/crypto/keys"
	"github.com/sage-x-project/signalcore/crypto/primitives"
	"github.com/sage-x-project/signalcore/groupsession"
	"github.com/sage-x-project/signalcore/protocol/address"
	"github.com/sage-x-project/signalcore/protocol/perror"
	"github.com/sage-x-project/signalcore/protocol/wire"
	"github.com/sage-x-project/signalcore/session"
)

// Destination names who an envelope is sealed to: the address the
// pairwise session engine already has established state for, and the
// identity public key the outer envelope's DH agreement runs against.
type Destination struct {
	Address     address.Address
	IdentityKey keys.PublicKey
}

// Recipient is the local party decrypting a sealed envelope: the
// identity key pair the outer DH agreement runs against, and the
// (uuid, device id) this installation is known as, for the self-sender
// check.
type Recipient struct {
	Identity *keys.IdentityKeyPair
	UUID     string
	DeviceID uint32
}

// Result is what a successful Decrypt reveals: the plaintext and the
// sender identity the embedded certificate vouched for.
type Result struct {
	Plaintext    []byte
	SenderUUID   string
	SenderE164   string
	SenderDevice uint32
}

// Encrypt seals plaintext to dest: first through the pairwise session
// engine (producing a whisper or pre-key inner message), then wrapped in
// a UnidentifiedSenderMessageContent sealed under a key derived from a
// fresh ephemeral/destination-identity DH agreement, so transport never
// sees who sent it.
func Encrypt(ctx context.Context, sessionCipher *session.Cipher, dest Destination, plaintext []byte, senderCert wire.SenderCertificate, contentHint wire.ContentHint, groupID []byte) ([]byte, error) {
	const op = "sealedsender.Encrypt"

	rec, ok, err := sessionCipher.SessionStore.Load(ctx, dest.Address)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindStoreError, err)
	}
	if !ok || rec.Current == nil {
		return nil, perror.New(op, perror.KindNoSession)
	}
	msgType := wire.MessageTypeWhisper
	if rec.Current.PendingPreKeyHeader != nil {
		msgType = wire.MessageTypePreKey
	}

	inner, err := sessionCipher.Encrypt(ctx, dest.Address, plaintext)
	if err != nil {
		return nil, err
	}

	usmcBytes := wire.EncodeUSMC(wire.USMC{
		Type:        msgType,
		Certificate: senderCert,
		Content:     inner,
		ContentHint: contentHint,
		GroupID:     groupID,
	})

	ephemeral, err := primitives.GenerateCurveKeyPair()
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	defer ephemeral.Close()

	shared, err := ephemeral.DH([32]byte(dest.IdentityKey))
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	envelopeKey, _, _, err := deriveEnvelopeKeys(shared)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}

	ephemeralPub := ephemeral.PublicKey()
	sealed, err := primitives.GCMSIVSeal(envelopeKey, envelopeNonce[:], ephemeralPub[:], usmcBytes)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}

	return wire.EncodeSealedEnvelope(wire.SealedEnvelope{
		Version:      wire.PackVersionByte(wire.CurrentVersion, wire.MinSupportedVersion),
		EphemeralKey: ephemeralPub,
		Ciphertext:   sealed,
	}), nil
}

// DecryptToUSMC runs steps 1-3 of the decrypt algorithm only: parse the
// envelope, recover the shared secret and open it, and parse the USMC
// inside. It performs no certificate validation, so callers can inspect
// the sender certificate and message type before deciding whether to
// commit to full decryption.
func DecryptToUSMC(local *keys.IdentityKeyPair, data []byte) (wire.USMC, error) {
	const op = "sealedsender.DecryptToUSMC"

	env, err := wire.DecodeSealedEnvelope(data)
	if err != nil {
		return wire.USMC{}, err
	}
	shared, err := local.DH(keys.PublicKey(env.EphemeralKey))
	if err != nil {
		return wire.USMC{}, perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	envelopeKey, _, _, err := deriveEnvelopeKeys(shared)
	if err != nil {
		return wire.USMC{}, perror.Wrap(op, perror.KindInvalidArgument, err)
	}

	usmcBytes, err := primitives.GCMSIVOpen(envelopeKey, envelopeNonce[:], env.EphemeralKey[:], env.Ciphertext)
	if err != nil {
		return wire.USMC{}, perror.Wrap(op, perror.KindInvalidMAC, err)
	}
	return wire.DecodeUSMC(usmcBytes)
}

// Decrypt runs the full sealed-sender decrypt algorithm: open the
// envelope, validate the embedded sender certificate against root at
// nowMs, reject a self-sent envelope, then dispatch the inner message to
// the pairwise or group engine by its USMC type.
func Decrypt(ctx context.Context, sessionCipher *session.Cipher, groupStore groupsession.Store, local Recipient, root TrustRoot, nowMs uint64, data []byte) (Result, error) {
	const op = "sealedsender.Decrypt"

	usmc, err := DecryptToUSMC(local.Identity, data)
	if err != nil {
		return Result{}, err
	}

	if !ValidateSenderCertificate(root, usmc.Certificate, nowMs) {
		return Result{}, perror.New(op, perror.KindCertificateInvalid)
	}
	cert := usmc.Certificate.Body
	if cert.SenderUUID == local.UUID && cert.SenderDevice == local.DeviceID {
		return Result{}, perror.New(op, perror.KindSelfSender)
	}
	senderAddr := address.New(cert.SenderUUID, cert.SenderDevice)

	var plaintext []byte
	switch usmc.Type {
	case wire.MessageTypeWhisper:
		plaintext, err = sessionCipher.Decrypt(ctx, senderAddr, usmc.Content)
	case wire.MessageTypePreKey:
		plaintext, err = sessionCipher.DecryptPreKeyMessage(ctx, senderAddr, usmc.Content)
	case wire.MessageTypeSenderKey:
		plaintext, err = groupsession.Decrypt(ctx, groupStore, senderAddr, usmc.Content)
	case wire.MessageTypePlaintext:
		plaintext = usmc.Content
	default:
		return Result{}, perror.New(op, perror.KindInvalidArgument)
	}
	if err != nil {
		return Result{}, err
	}

	return Result{
		Plaintext:    plaintext,
		SenderUUID:   cert.SenderUUID,
		SenderE164:   cert.SenderE164,
		SenderDevice: cert.SenderDevice,
	}, nil
}
