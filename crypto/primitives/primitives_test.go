package primitives

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCurveKeyPairDHRoundTrip(t *testing.T) {
	alice, err := GenerateCurveKeyPair()
	require.NoError(t, err)
	bob, err := GenerateCurveKeyPair()
	require.NoError(t, err)

	t.Run("shared secret matches both directions", func(t *testing.T) {
		secretA, err := alice.DH(bob.PublicKey())
		require.NoError(t, err)
		secretB, err := bob.DH(alice.PublicKey())
		require.NoError(t, err)
		require.Equal(t, secretA, secretB)
	})

	t.Run("seed round trip reproduces the public key", func(t *testing.T) {
		reloaded, err := NewCurveKeyPairFromSeed(alice.Seed())
		require.NoError(t, err)
		require.Equal(t, alice.PublicKey(), reloaded.PublicKey())
	})
}

func TestXEdDSASignVerify(t *testing.T) {
	kp, err := GenerateCurveKeyPair()
	require.NoError(t, err)
	message := []byte("pre-key bundle signature payload")

	t.Run("valid signature verifies", func(t *testing.T) {
		sig, err := kp.Sign(message)
		require.NoError(t, err)
		require.Len(t, sig, SignatureSize)
		require.True(t, Verify(kp.PublicKey(), message, sig))
	})

	t.Run("tampered message fails verification", func(t *testing.T) {
		sig, err := kp.Sign(message)
		require.NoError(t, err)
		require.False(t, Verify(kp.PublicKey(), []byte("different payload"), sig))
	})

	t.Run("tampered signature fails verification", func(t *testing.T) {
		sig, err := kp.Sign(message)
		require.NoError(t, err)
		sig[0] ^= 0xFF
		require.False(t, Verify(kp.PublicKey(), message, sig))
	})

	t.Run("wrong key fails verification", func(t *testing.T) {
		other, err := GenerateCurveKeyPair()
		require.NoError(t, err)
		sig, err := kp.Sign(message)
		require.NoError(t, err)
		require.False(t, Verify(other.PublicKey(), message, sig))
	})
}

func TestKDFChainStep(t *testing.T) {
	chainKey := make([]byte, 32)
	_, err := rand.Read(chainKey)
	require.NoError(t, err)

	nextKey, msgKey, err := KDFChainStep(chainKey)
	require.NoError(t, err)
	require.Len(t, nextKey, 32)
	require.Len(t, msgKey, 32)
	require.NotEqual(t, nextKey, msgKey)
	require.NotEqual(t, chainKey, nextKey)

	t.Run("deterministic for the same input", func(t *testing.T) {
		nextKey2, msgKey2, err := KDFChainStep(chainKey)
		require.NoError(t, err)
		require.Equal(t, nextKey, nextKey2)
		require.Equal(t, msgKey, msgKey2)
	})
}

func TestCBCHMACRoundTrip(t *testing.T) {
	messageKey := make([]byte, MessageKeySize)
	_, err := rand.Read(messageKey)
	require.NoError(t, err)
	keys, err := DeriveMessageCipherKeys(messageKey)
	require.NoError(t, err)

	ad := []byte("sender-identity||receiver-identity")
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	t.Run("decrypts what was encrypted", func(t *testing.T) {
		ct, err := EncryptCBCHMAC(keys, ad, plaintext)
		require.NoError(t, err)
		pt, err := DecryptCBCHMAC(keys, ad, ct)
		require.NoError(t, err)
		require.Equal(t, plaintext, pt)
	})

	t.Run("tampered ciphertext fails the mac", func(t *testing.T) {
		ct, err := EncryptCBCHMAC(keys, ad, plaintext)
		require.NoError(t, err)
		ct[0] ^= 0xFF
		_, err = DecryptCBCHMAC(keys, ad, ct)
		require.Error(t, err)
	})

	t.Run("mismatched associated data fails the mac", func(t *testing.T) {
		ct, err := EncryptCBCHMAC(keys, ad, plaintext)
		require.NoError(t, err)
		_, err = DecryptCBCHMAC(keys, []byte("wrong ad"), ct)
		require.Error(t, err)
	})
}

func TestGCMSIVRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	nonce := make([]byte, 12)
	_, err := rand.Read(key)
	require.NoError(t, err)
	_, err = rand.Read(nonce)
	require.NoError(t, err)

	ad := []byte("sealed-sender-envelope-header")
	plaintext := []byte("usmc content bytes")

	t.Run("decrypts what was encrypted", func(t *testing.T) {
		sealed, err := GCMSIVSeal(key, nonce, ad, plaintext)
		require.NoError(t, err)
		opened, err := GCMSIVOpen(key, nonce, ad, sealed)
		require.NoError(t, err)
		require.Equal(t, plaintext, opened)
	})

	t.Run("tampered tag fails to open", func(t *testing.T) {
		sealed, err := GCMSIVSeal(key, nonce, ad, plaintext)
		require.NoError(t, err)
		sealed[len(sealed)-1] ^= 0xFF
		_, err = GCMSIVOpen(key, nonce, ad, sealed)
		require.Error(t, err)
	})

	t.Run("empty plaintext still authenticates", func(t *testing.T) {
		sealed, err := GCMSIVSeal(key, nonce, ad, nil)
		require.NoError(t, err)
		opened, err := GCMSIVOpen(key, nonce, ad, sealed)
		require.NoError(t, err)
		require.Empty(t, opened)
	})
}

func TestKyberEncapsulateDecapsulate(t *testing.T) {
	kp, err := GenerateKyberKeyPair()
	require.NoError(t, err)

	ct, ss1, err := KyberEncapsulate(kp.Public)
	require.NoError(t, err)
	require.Len(t, ct, KyberCiphertextSize)
	require.Len(t, ss1, KyberSharedSecretSize)

	ss2, err := KyberDecapsulate(kp.Private, ct)
	require.NoError(t, err)
	require.Equal(t, ss1, ss2)

	t.Run("public key marshal round trip", func(t *testing.T) {
		b, err := MarshalKyberPublicKey(kp.Public)
		require.NoError(t, err)
		require.Len(t, b, KyberPublicKeySize)
		reloaded, err := ParseKyberPublicKey(b)
		require.NoError(t, err)
		require.True(t, reloaded.Equal(kp.Public))
	})
}

func TestConstantTimeEqual(t *testing.T) {
	t.Run("equal slices", func(t *testing.T) {
		require.True(t, ConstantTimeEqual([]byte("abc"), []byte("abc")))
	})
	t.Run("different lengths", func(t *testing.T) {
		require.False(t, ConstantTimeEqual([]byte("abc"), []byte("abcd")))
	})
	t.Run("same length different content", func(t *testing.T) {
		require.False(t, ConstantTimeEqual([]byte("abc"), []byte("abd")))
	})
}
