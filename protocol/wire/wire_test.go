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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionByteRoundTrip(t *testing.T) {
	b := PackVersionByte(CurrentVersion, MinSupportedVersion)
	current, min := UnpackVersionByte(b)
	require.Equal(t, byte(CurrentVersion), current)
	require.Equal(t, byte(MinSupportedVersion), min)
}

func TestDistributionIDRoundTrip(t *testing.T) {
	var id [16]byte
	for i := range id {
		id[i] = byte(i)
	}
	s := DistributionIDString(id)
	back, err := ParseDistributionID(s)
	require.NoError(t, err)
	require.Equal(t, id, back)
}

func TestSignalMessageRoundTrip(t *testing.T) {
	m := SignalMessage{
		Version:          PackVersionByte(CurrentVersion, MinSupportedVersion),
		Counter:          7,
		PreviousCounter:  3,
		Ciphertext:       []byte("ciphertext bytes"),
	}
	for i := range m.SenderRatchetKey {
		m.SenderRatchetKey[i] = byte(i + 1)
	}
	for i := range m.MAC {
		m.MAC[i] = byte(0xA0 + i)
	}

	encoded := EncodeSignalMessage(m)
	decoded, err := DecodeSignalMessage(encoded)
	require.NoError(t, err)
	require.Equal(t, m.Version, decoded.Version)
	require.Equal(t, m.SenderRatchetKey, decoded.SenderRatchetKey)
	require.Equal(t, m.Counter, decoded.Counter)
	require.Equal(t, m.PreviousCounter, decoded.PreviousCounter)
	require.Equal(t, m.Ciphertext, decoded.Ciphertext)
	require.Equal(t, m.MAC, decoded.MAC)

	t.Run("too short", func(t *testing.T) {
		_, err := DecodeSignalMessage([]byte{0x01})
		require.Error(t, err)
	})
}

func TestPreKeySignalMessageRoundTrip(t *testing.T) {
	m := PreKeySignalMessage{
		Version:         PackVersionByte(CurrentVersion, MinSupportedVersion),
		RegistrationID:  42,
		HasPreKeyID:     true,
		PreKeyID:        100,
		SignedPreKeyID:  200,
		KyberPreKeyID:   300,
		KyberCiphertext: []byte("kyber ciphertext"),
		Message:         []byte("embedded signal message"),
	}
	for i := range m.BaseKey {
		m.BaseKey[i] = byte(i)
	}
	for i := range m.IdentityKey {
		m.IdentityKey[i] = byte(i + 64)
	}

	encoded := EncodePreKeySignalMessage(m)
	decoded, err := DecodePreKeySignalMessage(encoded)
	require.NoError(t, err)
	require.Equal(t, m, decoded)

	t.Run("without pre_key_id", func(t *testing.T) {
		m.HasPreKeyID = false
		m.PreKeyID = 0
		encoded := EncodePreKeySignalMessage(m)
		decoded, err := DecodePreKeySignalMessage(encoded)
		require.NoError(t, err)
		require.False(t, decoded.HasPreKeyID)
	})
}

func TestSenderKeyDistributionMessageRoundTrip(t *testing.T) {
	m := SenderKeyDistributionMessage{
		Version:   PackVersionByte(CurrentVersion, MinSupportedVersion),
		ChainID:   5,
		Iteration: 9,
	}
	for i := range m.DistributionID {
		m.DistributionID[i] = byte(i)
	}
	for i := range m.ChainKey {
		m.ChainKey[i] = byte(i + 1)
	}
	for i := range m.SigningKey {
		m.SigningKey[i] = byte(i + 2)
	}

	encoded := EncodeSenderKeyDistributionMessage(m)
	decoded, err := DecodeSenderKeyDistributionMessage(encoded)
	require.NoError(t, err)
	require.Equal(t, m, decoded)
}

func TestSenderKeyMessageRoundTrip(t *testing.T) {
	m := SenderKeyMessage{
		Version:    PackVersionByte(CurrentVersion, MinSupportedVersion),
		ChainID:    2,
		Iteration:  11,
		Ciphertext: []byte("group ciphertext"),
	}
	for i := range m.DistributionID {
		m.DistributionID[i] = byte(i + 3)
	}
	for i := range m.Signature {
		m.Signature[i] = byte(i + 4)
	}

	encoded := EncodeSenderKeyMessage(m)
	decoded, err := DecodeSenderKeyMessage(encoded)
	require.NoError(t, err)
	require.Equal(t, m, decoded)

	t.Run("body excludes signature", func(t *testing.T) {
		body := SenderKeyMessageBody(m)
		require.Equal(t, encoded[:len(encoded)-64], body)
	})
}

func TestCertificateChainRoundTrip(t *testing.T) {
	serverCert := ServerCertificate{
		Body:      ServerCertificateBody{KeyID: 7},
		Signature: []byte("trust root signature"),
	}
	for i := range serverCert.Body.ServerKeyPub {
		serverCert.Body.ServerKeyPub[i] = byte(i)
	}

	encodedServer := EncodeServerCertificate(serverCert)
	decodedServer, err := DecodeServerCertificate(encodedServer)
	require.NoError(t, err)
	require.Equal(t, serverCert, decodedServer)

	senderCert := SenderCertificate{
		Body: SenderCertificateBody{
			SenderUUID:   "11111111-2222-3333-4444-555555555555",
			SenderE164:   "+15555550100",
			SenderDevice: 1,
			Expiration:   1900000000000,
			Signer:       serverCert,
		},
		Signature: []byte("server identity key signature"),
	}
	for i := range senderCert.Body.SenderKey {
		senderCert.Body.SenderKey[i] = byte(i + 9)
	}

	encodedSender := EncodeSenderCertificate(senderCert)
	decodedSender, err := DecodeSenderCertificate(encodedSender)
	require.NoError(t, err)
	require.Equal(t, senderCert, decodedSender)

	t.Run("without e164", func(t *testing.T) {
		senderCert.Body.SenderE164 = ""
		encoded := EncodeSenderCertificate(senderCert)
		decoded, err := DecodeSenderCertificate(encoded)
		require.NoError(t, err)
		require.Equal(t, "", decoded.Body.SenderE164)
	})
}

func TestUSMCRoundTrip(t *testing.T) {
	cert := SenderCertificate{
		Body: SenderCertificateBody{
			SenderUUID:   "11111111-2222-3333-4444-555555555555",
			SenderDevice: 1,
			Expiration:   1900000000000,
			Signer: ServerCertificate{
				Body:      ServerCertificateBody{KeyID: 1},
				Signature: []byte("sig"),
			},
		},
		Signature: []byte("sig2"),
	}

	m := USMC{
		Type:        MessageTypeWhisper,
		Certificate: cert,
		Content:     []byte("inner ciphertext"),
		ContentHint: ContentHintResendable,
	}

	encoded := EncodeUSMC(m)
	decoded, err := DecodeUSMC(encoded)
	require.NoError(t, err)
	require.Equal(t, m, decoded)

	t.Run("with group id", func(t *testing.T) {
		m.Type = MessageTypeSenderKey
		m.GroupID = []byte("group-1")
		encoded := EncodeUSMC(m)
		decoded, err := DecodeUSMC(encoded)
		require.NoError(t, err)
		require.Equal(t, m.GroupID, decoded.GroupID)
	})
}

func TestSealedEnvelopeRoundTrip(t *testing.T) {
	e := SealedEnvelope{
		Version:    PackVersionByte(CurrentVersion, MinSupportedVersion),
		Ciphertext: []byte("aes-gcm-siv ciphertext and tag"),
	}
	for i := range e.EphemeralKey {
		e.EphemeralKey[i] = byte(i + 5)
	}

	encoded := EncodeSealedEnvelope(e)
	require.Equal(t, byte(DJBKeyType), encoded[1])

	decoded, err := DecodeSealedEnvelope(encoded)
	require.NoError(t, err)
	require.Equal(t, e, decoded)

	t.Run("rejects wrong key type byte", func(t *testing.T) {
		bad := append([]byte(nil), encoded...)
		bad[1] = 0x01
		_, err := DecodeSealedEnvelope(bad)
		require.Error(t, err)
	})
}

func TestDecryptionErrorMessageRoundTrip(t *testing.T) {
	m := DecryptionErrorMessage{
		Version:     PackVersionByte(CurrentVersion, MinSupportedVersion),
		TimestampMs: 1700000000000,
		DeviceID:    3,
	}

	encoded := EncodeDecryptionErrorMessage(m)
	decoded, err := DecodeDecryptionErrorMessage(encoded)
	require.NoError(t, err)
	require.Equal(t, m, decoded)

	t.Run("with ratchet key", func(t *testing.T) {
		m.HasRatchetKey = true
		for i := range m.RatchetKey {
			m.RatchetKey[i] = byte(i)
		}
		encoded := EncodeDecryptionErrorMessage(m)
		decoded, err := DecodeDecryptionErrorMessage(encoded)
		require.NoError(t, err)
		require.Equal(t, m, decoded)
	})
}
