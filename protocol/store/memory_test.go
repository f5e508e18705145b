package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/signalcore/crypto/keys"
	"github.com/sage-x-project/signalcore/protocol/address"
)

func TestMemoryIdentityKeyStoreTrustOnFirstUse(t *testing.T) {
	ctx := context.Background()
	local, err := keys.GenerateIdentityKeyPair()
	require.NoError(t, err)
	s := NewMemoryIdentityKeyStore(local, 12345)
	addr := address.New("bob", 1)

	remote, err := keys.GenerateIdentityKeyPair()
	require.NoError(t, err)

	t.Run("unknown address is trusted", func(t *testing.T) {
		trusted, err := s.IsTrusted(ctx, addr, remote.Public(), DirectionReceiving)
		require.NoError(t, err)
		require.True(t, trusted)
	})

	t.Run("first save is not a replacement", func(t *testing.T) {
		replaced, err := s.SaveIdentity(ctx, addr, remote.Public())
		require.NoError(t, err)
		require.False(t, replaced)
	})

	t.Run("same identity stays trusted", func(t *testing.T) {
		trusted, err := s.IsTrusted(ctx, addr, remote.Public(), DirectionReceiving)
		require.NoError(t, err)
		require.True(t, trusted)
	})

	t.Run("different identity for the same address is untrusted", func(t *testing.T) {
		other, err := keys.GenerateIdentityKeyPair()
		require.NoError(t, err)
		trusted, err := s.IsTrusted(ctx, addr, other.Public(), DirectionReceiving)
		require.NoError(t, err)
		require.False(t, trusted)

		replaced, err := s.SaveIdentity(ctx, addr, other.Public())
		require.NoError(t, err)
		require.True(t, replaced)
	})
}

func TestMemoryPreKeyStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryPreKeyStore()

	pk, err := keys.GeneratePreKey(100)
	require.NoError(t, err)
	require.NoError(t, s.StorePreKey(ctx, 100, pk))

	t.Run("loads what was stored", func(t *testing.T) {
		loaded, ok, err := s.LoadPreKey(ctx, 100)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, pk.Public(), loaded.Public())
	})

	t.Run("remove deletes the one-shot key", func(t *testing.T) {
		require.NoError(t, s.RemovePreKey(ctx, 100))
		_, ok, err := s.LoadPreKey(ctx, 100)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestMemoryKyberPreKeyStoreMarkUsed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryKyberPreKeyStore()

	id, err := keys.GenerateIdentityKeyPair()
	require.NoError(t, err)
	kpk, err := keys.GenerateKyberPreKey(200, 1700000000000, id)
	require.NoError(t, err)
	require.NoError(t, s.StoreKyberPreKey(ctx, 200, kpk))

	require.False(t, s.IsUsed(200))
	require.NoError(t, s.MarkKyberPreKeyUsed(ctx, 200))
	require.True(t, s.IsUsed(200))

	loaded, ok, err := s.LoadKyberPreKey(ctx, 200)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, kpk.Signature, loaded.Signature)
}
