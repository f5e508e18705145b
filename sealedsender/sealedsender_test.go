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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/signalcore/crypto/keys"
	"github.com/sage-x-project/signalcore/protocol/address"
	"github.com/sage-x-project/signalcore/protocol/store"
	"github.com/sage-x-project/signalcore/protocol/wire"
	"github.com/sage-x-project/signalcore/session"
)

type testPeer struct {
	identity *keys.IdentityKeyPair
	cipher   *session.Cipher
}

func newTestPeer(t *testing.T, registrationID uint32) *testPeer {
	t.Helper()
	identity, err := keys.GenerateIdentityKeyPair()
	require.NoError(t, err)
	return &testPeer{
		identity: identity,
		cipher: &session.Cipher{
			IdentityStore:       store.NewMemoryIdentityKeyStore(identity, registrationID),
			PreKeyStore:         store.NewMemoryPreKeyStore(),
			SignedPreKeyStore:   store.NewMemorySignedPreKeyStore(),
			KyberPreKeyStore:    store.NewMemoryKyberPreKeyStore(),
			SessionStore:        session.NewMemoryStore(),
			LocalIdentity:       identity,
			LocalRegistrationID: registrationID,
		},
	}
}

func (p *testPeer) bundle(t *testing.T) keys.PreKeyBundle {
	t.Helper()
	ctx := context.Background()

	oneTime, err := keys.GeneratePreKey(1)
	require.NoError(t, err)
	require.NoError(t, p.cipher.PreKeyStore.StorePreKey(ctx, 1, oneTime))

	signed, err := keys.GenerateSignedPreKey(1, 1000, p.identity)
	require.NoError(t, err)
	require.NoError(t, p.cipher.SignedPreKeyStore.StoreSignedPreKey(ctx, 1, signed))

	kyber, err := keys.GenerateKyberPreKey(1, 1000, p.identity)
	require.NoError(t, err)
	require.NoError(t, p.cipher.KyberPreKeyStore.StoreKyberPreKey(ctx, 1, kyber))
	kyberPub, err := kyber.PublicBytes()
	require.NoError(t, err)
	signedPub := signed.Public()

	return keys.PreKeyBundle{
		RegistrationID:        p.cipher.LocalRegistrationID,
		IdentityKey:           p.identity.Public(),
		HasPreKey:             true,
		PreKeyID:              1,
		PreKey:                oneTime.Public(),
		SignedPreKeyID:        1,
		SignedPreKeyPublic:    signedPub,
		SignedPreKeySignature: mustSign(t, p.identity, signedPub[:]),
		HasKyberPreKey:        true,
		KyberPreKeyID:         1,
		KyberPreKeyPublic:     kyberPub,
		KyberPreKeySignature:  mustSign(t, p.identity, kyberPub),
	}
}

func mustSign(t *testing.T, identity *keys.IdentityKeyPair, msg []byte) []byte {
	t.Helper()
	sig, err := identity.Sign(msg)
	require.NoError(t, err)
	return sig
}

func newTrustRoot(t *testing.T) (*keys.IdentityKeyPair, TrustRoot) {
	t.Helper()
	kp, err := keys.GenerateIdentityKeyPair()
	require.NoError(t, err)
	return kp, NewTrustRoot(kp.Public())
}

func issueServerCert(t *testing.T, trustRoot *keys.IdentityKeyPair, keyID uint32) (*keys.IdentityKeyPair, wire.ServerCertificate) {
	t.Helper()
	serverKP, err := keys.GenerateIdentityKeyPair()
	require.NoError(t, err)
	body := wire.ServerCertificateBody{KeyID: keyID, ServerKeyPub: [32]byte(serverKP.Public())}
	sig := mustSign(t, trustRoot, wire.EncodeServerCertificateBody(body))
	return serverKP, wire.ServerCertificate{Body: body, Signature: sig}
}

func issueSenderCert(t *testing.T, serverKP *keys.IdentityKeyPair, serverCert wire.ServerCertificate, senderUUID, senderE164 string, deviceID uint32, senderKey keys.PublicKey, expirationMs uint64) wire.SenderCertificate {
	t.Helper()
	body := wire.SenderCertificateBody{
		SenderUUID:   senderUUID,
		SenderE164:   senderE164,
		SenderDevice: deviceID,
		SenderKey:    [32]byte(senderKey),
		Expiration:   expirationMs,
		Signer:       serverCert,
	}
	sig := mustSign(t, serverKP, wire.EncodeSenderCertificateBody(body))
	return wire.SenderCertificate{Body: body, Signature: sig}
}

// TestSealedSenderHappyPath mirrors scenario S5: a valid, unexpired
// sender certificate, sealed to bob, decrypts to the exact plaintext and
// reveals alice's identity only after the fact.
func TestSealedSenderHappyPath(t *testing.T) {
	ctx := context.Background()
	alice := newTestPeer(t, 1)
	bob := newTestPeer(t, 2)
	aliceAddr := address.New("alice-uuid", 1)
	bobAddr := address.New("bob-uuid", 1)

	require.NoError(t, session.ProcessPreKeyBundle(ctx, alice.cipher.IdentityStore, alice.cipher.SessionStore, alice.identity, alice.cipher.LocalRegistrationID, bobAddr, bob.bundle(t)))

	trustRootKP, trustRoot := newTrustRoot(t)
	serverKP, serverCert := issueServerCert(t, trustRootKP, 1)
	now := time.Now().UnixMilli()
	senderCert := issueSenderCert(t, serverKP, serverCert, "alice-uuid", "+1234567890", 1, alice.identity.Public(), uint64(now+30*24*60*60*1000))

	sealed, err := Encrypt(ctx, alice.cipher, Destination{Address: bobAddr, IdentityKey: bob.identity.Public()}, []byte("Hello, Bob!"), senderCert, wire.ContentHintDefault, nil)
	require.NoError(t, err)

	usmc, err := DecryptToUSMC(bob.identity, sealed)
	require.NoError(t, err)
	require.Equal(t, wire.MessageTypePreKey, usmc.Type)

	recipient := Recipient{Identity: bob.identity, UUID: "bob-uuid", DeviceID: 1}
	result, err := Decrypt(ctx, bob.cipher, nil, recipient, trustRoot, uint64(now), sealed)
	require.NoError(t, err)
	require.Equal(t, "Hello, Bob!", string(result.Plaintext))
	require.Equal(t, "alice-uuid", result.SenderUUID)
	require.Equal(t, "+1234567890", result.SenderE164)
	require.Equal(t, uint32(1), result.SenderDevice)

	// bob's reply, in turn, goes back through the pairwise engine as a
	// bare whisper message rather than a fresh pre-key message.
	reply, err := Encrypt(ctx, bob.cipher, Destination{Address: aliceAddr, IdentityKey: alice.identity.Public()}, []byte("hi alice"), senderCert, wire.ContentHintDefault, nil)
	require.NoError(t, err)
	replyUSMC, err := DecryptToUSMC(alice.identity, reply)
	require.NoError(t, err)
	require.Equal(t, wire.MessageTypeWhisper, replyUSMC.Type)
}

// TestSealedSenderExpiredCertificateStillInspectable mirrors scenario
// S6: decrypt_to_usmc performs no certificate validation and still
// succeeds against an already-expired certificate, but the certificate's
// own validate() reports false, and a full Decrypt refuses to proceed.
func TestSealedSenderExpiredCertificateStillInspectable(t *testing.T) {
	ctx := context.Background()
	alice := newTestPeer(t, 1)
	bob := newTestPeer(t, 2)
	bobAddr := address.New("bob-uuid", 1)

	require.NoError(t, session.ProcessPreKeyBundle(ctx, alice.cipher.IdentityStore, alice.cipher.SessionStore, alice.identity, alice.cipher.LocalRegistrationID, bobAddr, bob.bundle(t)))

	trustRootKP, trustRoot := newTrustRoot(t)
	serverKP, serverCert := issueServerCert(t, trustRootKP, 1)
	now := time.Now().UnixMilli()
	expired := issueSenderCert(t, serverKP, serverCert, "alice-uuid", "", 1, alice.identity.Public(), uint64(now-24*60*60*1000))

	sealed, err := Encrypt(ctx, alice.cipher, Destination{Address: bobAddr, IdentityKey: bob.identity.Public()}, []byte("too late"), expired, wire.ContentHintDefault, nil)
	require.NoError(t, err)

	usmc, err := DecryptToUSMC(bob.identity, sealed)
	require.NoError(t, err)
	require.Equal(t, "alice-uuid", usmc.Certificate.Body.SenderUUID)

	require.False(t, ValidateSenderCertificate(trustRoot, usmc.Certificate, uint64(now)))

	recipient := Recipient{Identity: bob.identity, UUID: "bob-uuid", DeviceID: 1}
	_, err = Decrypt(ctx, bob.cipher, nil, recipient, trustRoot, uint64(now), sealed)
	require.Error(t, err)
}

func TestSealedSenderRejectsSelfSend(t *testing.T) {
	ctx := context.Background()
	bob := newTestPeer(t, 1)
	bobAddr := address.New("bob-uuid", 1)

	require.NoError(t, session.ProcessPreKeyBundle(ctx, bob.cipher.IdentityStore, bob.cipher.SessionStore, bob.identity, bob.cipher.LocalRegistrationID, bobAddr, bob.bundle(t)))

	trustRootKP, trustRoot := newTrustRoot(t)
	serverKP, serverCert := issueServerCert(t, trustRootKP, 1)
	now := time.Now().UnixMilli()
	senderCert := issueSenderCert(t, serverKP, serverCert, "bob-uuid", "", 1, bob.identity.Public(), uint64(now+60000))

	sealed, err := Encrypt(ctx, bob.cipher, Destination{Address: bobAddr, IdentityKey: bob.identity.Public()}, []byte("to myself"), senderCert, wire.ContentHintDefault, nil)
	require.NoError(t, err)

	recipient := Recipient{Identity: bob.identity, UUID: "bob-uuid", DeviceID: 1}
	_, err = Decrypt(ctx, bob.cipher, nil, recipient, trustRoot, uint64(now), sealed)
	require.Error(t, err)
}

func TestSealedSenderTamperedEnvelopeFailsAuthentication(t *testing.T) {
	ctx := context.Background()
	alice := newTestPeer(t, 1)
	bob := newTestPeer(t, 2)
	bobAddr := address.New("bob-uuid", 1)

	require.NoError(t, session.ProcessPreKeyBundle(ctx, alice.cipher.IdentityStore, alice.cipher.SessionStore, alice.identity, alice.cipher.LocalRegistrationID, bobAddr, bob.bundle(t)))

	trustRootKP, _ := newTrustRoot(t)
	serverKP, serverCert := issueServerCert(t, trustRootKP, 1)
	now := time.Now().UnixMilli()
	senderCert := issueSenderCert(t, serverKP, serverCert, "alice-uuid", "", 1, alice.identity.Public(), uint64(now+60000))

	sealed, err := Encrypt(ctx, alice.cipher, Destination{Address: bobAddr, IdentityKey: bob.identity.Public()}, []byte("hello"), senderCert, wire.ContentHintDefault, nil)
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xFF

	_, err = DecryptToUSMC(bob.identity, sealed)
	require.Error(t, err)
}

func TestDecryptionErrorMessageExtractsRatchetKey(t *testing.T) {
	ctx := context.Background()
	alice := newTestPeer(t, 1)
	bob := newTestPeer(t, 2)
	bobAddr := address.New("bob-uuid", 1)

	require.NoError(t, session.ProcessPreKeyBundle(ctx, alice.cipher.IdentityStore, alice.cipher.SessionStore, alice.identity, alice.cipher.LocalRegistrationID, bobAddr, bob.bundle(t)))

	preKeyMsg, err := alice.cipher.Encrypt(ctx, bobAddr, []byte("msg-1"))
	require.NoError(t, err)

	derr := NewDecryptionErrorMessage(preKeyMsg, wire.MessageTypePreKey, 1234, 1)
	require.True(t, derr.HasRatchetKey)

	encoded := wire.EncodeDecryptionErrorMessage(derr)
	decoded, err := wire.DecodeDecryptionErrorMessage(encoded)
	require.NoError(t, err)
	require.Equal(t, derr.RatchetKey, decoded.RatchetKey)
	require.Equal(t, uint64(1234), decoded.TimestampMs)

	// a sender-key or plaintext message has no ratchet key to extract.
	noKey := NewDecryptionErrorMessage([]byte("opaque"), wire.MessageTypeSenderKey, 5678, 2)
	require.False(t, noKey.HasRatchetKey)
}
