package perror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIsSentinel(t *testing.T) {
	t.Run("direct kind match", func(t *testing.T) {
		err := New("session.Decrypt", KindInvalidMAC)
		require.True(t, errors.Is(err, ErrInvalidMAC))
		require.False(t, errors.Is(err, ErrDuplicateMessage))
	})

	t.Run("wrapped store cause still matches its own kind", func(t *testing.T) {
		cause := errors.New("boltdb: closed")
		err := Wrap("store.Load", KindStoreError, cause)
		require.True(t, errors.Is(err, ErrStoreError))
		require.True(t, errors.Is(err, cause))
	})

	t.Run("KindOf recovers the classification", func(t *testing.T) {
		err := Newf("session.Decrypt", KindMessageTooFarAhead, "counter=%d", 30000)
		require.Equal(t, KindMessageTooFarAhead, KindOf(err))
		require.Contains(t, err.Error(), "counter=30000")
	})

	t.Run("plain errors classify as unknown", func(t *testing.T) {
		require.Equal(t, KindUnknown, KindOf(errors.New("not ours")))
	})
}
