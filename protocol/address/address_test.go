package address

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressEquality(t *testing.T) {
	a := New("alice", 1)
	b := New("alice", 1)
	c := New("alice", 2)
	d := New("bob", 1)

	t.Run("same name and device are equal", func(t *testing.T) {
		require.True(t, a.Equal(b))
	})
	t.Run("different device is not equal", func(t *testing.T) {
		require.False(t, a.Equal(c))
	})
	t.Run("different name is not equal", func(t *testing.T) {
		require.False(t, a.Equal(d))
	})
	t.Run("string form is name.device", func(t *testing.T) {
		require.Equal(t, "alice.1", a.String())
	})
}
