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

package groupsession

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/signalcore/protocol/address"
)

func TestDistributeAndDecryptRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	alice := address.New("alice", 1)
	bob := address.New("bob", 1)
	distID := [16]byte(uuid.New())

	distMsg, err := CreateDistributionMessage(ctx, st, alice, distID)
	require.NoError(t, err)

	// bob keeps his own copy of alice's state, keyed by her address.
	bobView := NewMemoryStore()
	require.NoError(t, ProcessDistributionMessage(ctx, bobView, alice, distMsg))

	ciphertext, err := Encrypt(ctx, st, alice, distID, []byte("hello group"))
	require.NoError(t, err)

	plaintext, err := Decrypt(ctx, bobView, alice, ciphertext)
	require.NoError(t, err)
	require.Equal(t, "hello group", string(plaintext))
}

func TestOutOfOrderDeliveryWithinChain(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	bobView := NewMemoryStore()
	alice := address.New("alice", 1)
	distID := [16]byte(uuid.New())

	distMsg, err := CreateDistributionMessage(ctx, st, alice, distID)
	require.NoError(t, err)
	require.NoError(t, ProcessDistributionMessage(ctx, bobView, alice, distMsg))

	first, err := Encrypt(ctx, st, alice, distID, []byte("m0"))
	require.NoError(t, err)
	second, err := Encrypt(ctx, st, alice, distID, []byte("m1"))
	require.NoError(t, err)
	third, err := Encrypt(ctx, st, alice, distID, []byte("m2"))
	require.NoError(t, err)

	p, err := Decrypt(ctx, bobView, alice, third)
	require.NoError(t, err)
	require.Equal(t, "m2", string(p))

	p, err = Decrypt(ctx, bobView, alice, first)
	require.NoError(t, err)
	require.Equal(t, "m0", string(p))

	p, err = Decrypt(ctx, bobView, alice, second)
	require.NoError(t, err)
	require.Equal(t, "m1", string(p))
}

func TestReplayIsRejected(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	bobView := NewMemoryStore()
	alice := address.New("alice", 1)
	distID := [16]byte(uuid.New())

	distMsg, err := CreateDistributionMessage(ctx, st, alice, distID)
	require.NoError(t, err)
	require.NoError(t, ProcessDistributionMessage(ctx, bobView, alice, distMsg))

	msg, err := Encrypt(ctx, st, alice, distID, []byte("once"))
	require.NoError(t, err)

	_, err = Decrypt(ctx, bobView, alice, msg)
	require.NoError(t, err)

	_, err = Decrypt(ctx, bobView, alice, msg)
	require.Error(t, err)
}

func TestHistoricalChainRetentionAfterRedistribution(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	bobView := NewMemoryStore()
	alice := address.New("alice", 1)
	distID := [16]byte(uuid.New())

	firstDist, err := CreateDistributionMessage(ctx, st, alice, distID)
	require.NoError(t, err)
	require.NoError(t, ProcessDistributionMessage(ctx, bobView, alice, firstDist))

	beforeRotation, err := Encrypt(ctx, st, alice, distID, []byte("before rotation"))
	require.NoError(t, err)

	// alice rotates (e.g. membership change) to a fresh chain under the
	// same distribution id.
	secondDist, err := CreateDistributionMessage(ctx, st, alice, distID)
	require.NoError(t, err)
	require.NotEqual(t, firstDist.ChainID, secondDist.ChainID)
	require.NoError(t, ProcessDistributionMessage(ctx, bobView, alice, secondDist))

	afterRotation, err := Encrypt(ctx, st, alice, distID, []byte("after rotation"))
	require.NoError(t, err)

	// a message under the now-historical chain is still decryptable.
	p, err := Decrypt(ctx, bobView, alice, beforeRotation)
	require.NoError(t, err)
	require.Equal(t, "before rotation", string(p))

	p, err = Decrypt(ctx, bobView, alice, afterRotation)
	require.NoError(t, err)
	require.Equal(t, "after rotation", string(p))
}

func TestTamperedSignatureFailsVerification(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	bobView := NewMemoryStore()
	alice := address.New("alice", 1)
	distID := [16]byte(uuid.New())

	distMsg, err := CreateDistributionMessage(ctx, st, alice, distID)
	require.NoError(t, err)
	require.NoError(t, ProcessDistributionMessage(ctx, bobView, alice, distMsg))

	msg, err := Encrypt(ctx, st, alice, distID, []byte("tampered"))
	require.NoError(t, err)
	msg[len(msg)-1] ^= 0xFF

	_, err = Decrypt(ctx, bobView, alice, msg)
	require.Error(t, err)
}
