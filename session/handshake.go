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

package session

import (
	"context"
	"time"

	"github.com/sage-x-project/signalcore/crypto/keys"
	"github.com/sage-x-project/signalcore/crypto/primitives"
	"github.com/sage-x-project/signalcore/protocol/address"
	"github.com/sage-x-project/signalcore/protocol/perror"
	"github.com/sage-x-project/signalcore/protocol/store"
	"github.com/sage-x-project/signalcore/protocol/wire"
)

const pqxdhRootInfo = "signalcore-pqxdh-root"

// deriveRootKey turns the concatenated PQXDH DH/KEM outputs into the
// session's starting root key (X3DH's "SK"). Every chain key — send or
// receive, initiator or responder — comes only from a KDFRootStep
// against this root, never straight from the PQXDH output, so that both
// sides run the identical single root-step for their first chain.
func deriveRootKey(ikm []byte) (rootKey [32]byte, err error) {
	var zeroSalt [32]byte
	out, err := primitives.HKDFExpand(ikm, zeroSalt[:], []byte(pqxdhRootInfo), 32)
	if err != nil {
		return [32]byte{}, err
	}
	copy(rootKey[:], out)
	return rootKey, nil
}

// ProcessPreKeyBundle runs the initiator side of a PQXDH handshake
// (§4.1.1): it validates and trusts bundle's identity, computes the
// four-DH-plus-Kyber shared secret, and installs a fresh current session
// state seeded with a sending chain. The caller's next Encrypt call wraps
// its output in a PreKeySignalMessage using the header stored in that
// state as PendingPreKeyHeader.
func ProcessPreKeyBundle(
	ctx context.Context,
	identityStore store.IdentityKeyStore,
	sessionStore Store,
	localIdentity *keys.IdentityKeyPair,
	localRegistrationID uint32,
	remote address.Address,
	bundle keys.PreKeyBundle,
) error {
	const op = "session.ProcessPreKeyBundle"

	trusted, err := identityStore.IsTrusted(ctx, remote, bundle.IdentityKey, store.DirectionSending)
	if err != nil {
		return perror.Wrap(op, perror.KindStoreError, err)
	}
	if !trusted {
		return perror.New(op, perror.KindUntrustedIdentity)
	}
	if err := bundle.Validate(); err != nil {
		return perror.Wrap(op, perror.KindInvalidSignature, err)
	}

	ephemeral, err := primitives.GenerateCurveKeyPair()
	if err != nil {
		return perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	defer ephemeral.Close()

	dh1, err := localIdentity.DH(bundle.SignedPreKeyPublic)
	if err != nil {
		return perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	dh2, err := ephemeral.DH([32]byte(bundle.IdentityKey))
	if err != nil {
		return perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	dh3, err := ephemeral.DH([32]byte(bundle.SignedPreKeyPublic))
	if err != nil {
		return perror.Wrap(op, perror.KindInvalidArgument, err)
	}

	ikm := append(append(append([]byte{}, dh1...), dh2...), dh3...)
	if bundle.HasPreKey {
		dh4, err := ephemeral.DH([32]byte(bundle.PreKey))
		if err != nil {
			return perror.Wrap(op, perror.KindInvalidArgument, err)
		}
		ikm = append(ikm, dh4...)
	}

	var kyberCiphertext []byte
	if bundle.HasKyberPreKey {
		ct, shared, err := keys.EncapsulateAgainst(bundle.KyberPreKeyPublic)
		if err != nil {
			return perror.Wrap(op, perror.KindInvalidArgument, err)
		}
		kyberCiphertext = ct
		ikm = append(ikm, shared...)
	}

	sk, err := deriveRootKey(ikm)
	if err != nil {
		return perror.Wrap(op, perror.KindInvalidArgument, err)
	}

	ownRatchet, err := primitives.GenerateCurveKeyPair()
	if err != nil {
		return perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	defer ownRatchet.Close()

	// RatchetInitAlice (§4.1.1/§4.1.3): the initiator's first sending
	// chain is not SK itself but one root step of SK against the
	// responder's signed pre-key, using a freshly generated ratchet
	// key pair as the initiator's own DH leg. This is the exact mirror
	// of the single root step the responder runs on its first decrypt
	// (see processIncomingPreKeyMessage/dhRatchetStep) — both sides
	// must run exactly one KDFRootStep before the first message, never
	// zero (initiator skipping it) or two (responder re-deriving it).
	sendDH, err := ownRatchet.DH(bundle.SignedPreKeyPublic)
	if err != nil {
		return perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	rootKeyOut, chainKeyOut, err := primitives.KDFRootStep(sk[:], sendDH)
	if err != nil {
		return perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	var rootKey, chainKey [32]byte
	copy(rootKey[:], rootKeyOut)
	copy(chainKey[:], chainKeyOut)

	next := &SessionState{
		Version:              wire.CurrentVersion,
		RootKey:              rootKey,
		RatchetPrivate:       ownRatchet.Seed(),
		RatchetPublic:        ownRatchet.PublicKey(),
		SendingChainKey:      chainKey,
		HasSendingChain:      true,
		Counter:              0,
		PreviousCounter:      0,
		RemoteRegistrationID: bundle.RegistrationID,
		RemoteIdentity:       [32]byte(bundle.IdentityKey),
		CreatedAt:            time.Now(),
		PendingPreKeyHeader: &PreKeyHeader{
			RegistrationID:  localRegistrationID,
			HasPreKeyID:     bundle.HasPreKey,
			PreKeyID:        bundle.PreKeyID,
			SignedPreKeyID:  bundle.SignedPreKeyID,
			BaseKey:         ephemeral.PublicKey(),
			IdentityKey:     localIdentity.Public(),
			KyberPreKeyID:   bundle.KyberPreKeyID,
			KyberCiphertext: kyberCiphertext,
		},
	}
	if !bundle.HasKyberPreKey {
		next.Version = wire.LegacyVersion
	}

	rec, _, err := sessionStore.Load(ctx, remote)
	if err != nil {
		return perror.Wrap(op, perror.KindStoreError, err)
	}
	if rec == nil {
		rec = NewSessionRecord()
	}
	rec.InstallCurrent(next)

	if err := sessionStore.Store(ctx, remote, rec); err != nil {
		return perror.Wrap(op, perror.KindStoreError, err)
	}
	if _, err := identityStore.SaveIdentity(ctx, remote, bundle.IdentityKey); err != nil {
		return perror.Wrap(op, perror.KindStoreError, err)
	}
	return nil
}

// processIncomingPreKeyMessage runs the responder side of a PQXDH
// handshake (§4.1.2), consuming the one-time/signed/Kyber pre-keys named
// by msg and installing a fresh current session state holding only the
// root key (RatchetInitBob). It deliberately installs no receiver chain:
// the embedded SignalMessage's ratchet key is new to this state, so the
// caller's first decryptAgainst call runs dhRatchetStep itself, which
// performs the single root step (recv leg, against the responder's
// still-unchanged signed-pre-key DH leg) that mirrors the initiator's
// own single root step in ProcessPreKeyBundle — and, in the same call,
// generates the responder's fresh ratchet key pair and send-leg chain
// key, so the responder is ready to reply without a second, separate
// bootstrap step. It does not remove the one-time pre-key or mark the
// Kyber pre-key used — that happens only after the embedded message
// itself decrypts successfully.
func processIncomingPreKeyMessage(
	ctx context.Context,
	identityStore store.IdentityKeyStore,
	preKeyStore store.PreKeyStore,
	signedPreKeyStore store.SignedPreKeyStore,
	kyberPreKeyStore store.KyberPreKeyStore,
	localIdentity *keys.IdentityKeyPair,
	remote address.Address,
	msg wire.PreKeySignalMessage,
) (*SessionState, error) {
	const op = "session.processIncomingPreKeyMessage"

	trusted, err := identityStore.IsTrusted(ctx, remote, keys.PublicKey(msg.IdentityKey), store.DirectionReceiving)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindStoreError, err)
	}
	if !trusted {
		return nil, perror.New(op, perror.KindUntrustedIdentity)
	}

	signedPreKey, ok, err := signedPreKeyStore.LoadSignedPreKey(ctx, msg.SignedPreKeyID)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindStoreError, err)
	}
	if !ok {
		return nil, perror.New(op, perror.KindKeyNotFound)
	}

	dh1, err := signedPreKey.DH(keys.PublicKey(msg.IdentityKey))
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	dh2, err := localIdentity.DH(keys.PublicKey(msg.BaseKey))
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	dh3, err := signedPreKey.DH(keys.PublicKey(msg.BaseKey))
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}

	ikm := append(append(append([]byte{}, dh1...), dh2...), dh3...)
	if msg.HasPreKeyID {
		preKey, ok, err := preKeyStore.LoadPreKey(ctx, msg.PreKeyID)
		if err != nil {
			return nil, perror.Wrap(op, perror.KindStoreError, err)
		}
		if !ok {
			return nil, perror.New(op, perror.KindKeyNotFound)
		}
		dh4, err := preKey.DH(keys.PublicKey(msg.BaseKey))
		if err != nil {
			return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
		}
		ikm = append(ikm, dh4...)
	}

	version := byte(wire.LegacyVersion)
	if len(msg.KyberCiphertext) > 0 {
		kyberPreKey, ok, err := kyberPreKeyStore.LoadKyberPreKey(ctx, msg.KyberPreKeyID)
		if err != nil {
			return nil, perror.Wrap(op, perror.KindStoreError, err)
		}
		if !ok {
			return nil, perror.New(op, perror.KindKeyNotFound)
		}
		shared, err := kyberPreKey.Decapsulate(msg.KyberCiphertext)
		if err != nil {
			return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
		}
		ikm = append(ikm, shared...)
		version = wire.CurrentVersion
	}

	rootKey, err := deriveRootKey(ikm)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}

	next := &SessionState{
		Version:              version,
		RootKey:              rootKey,
		RatchetPrivate:       signedPreKey.Seed(),
		RatchetPublic:        signedPreKey.Public(),
		RemoteRegistrationID: msg.RegistrationID,
		RemoteIdentity:       msg.IdentityKey,
		CreatedAt:            time.Now(),
	}

	if _, err := identityStore.SaveIdentity(ctx, remote, keys.PublicKey(msg.IdentityKey)); err != nil {
		return nil, perror.Wrap(op, perror.KindStoreError, err)
	}
	return next, nil
}
