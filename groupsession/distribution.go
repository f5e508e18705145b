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
	"crypto/rand"
	"io"

	"github.com/sage-x-project/signalcore/crypto/keys"
	"github.com/sage-x-project/signalcore/protocol/address"
	"github.com/sage-x-project/signalcore/protocol/perror"
	"github.com/sage-x-project/signalcore/protocol/wire"
)

// CreateDistributionMessage allocates a fresh chain (with a new chain id)
// as the local sender's own chain for distributionID and returns
// the SenderKeyDistributionMessage to deliver to each group member over an
// authenticated pairwise channel (spec §4.2: authenticity of this message
// comes from that outer channel, not from a signature within it).
func CreateDistributionMessage(ctx context.Context, st Store, senderAddr address.Address, distributionID [16]byte) (wire.SenderKeyDistributionMessage, error) {
	const op = "groupsession.CreateDistributionMessage"

	state, ok, err := st.Load(ctx, senderAddr, distributionID)
	if err != nil {
		return wire.SenderKeyDistributionMessage{}, perror.Wrap(op, perror.KindStoreError, err)
	}
	if !ok {
		state = NewSenderKeyState(distributionID)
	}

	var chainKey [32]byte
	if _, err := io.ReadFull(rand.Reader, chainKey[:]); err != nil {
		return wire.SenderKeyDistributionMessage{}, perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	signingKP, err := keys.GenerateSigningKeyPair()
	if err != nil {
		return wire.SenderKeyDistributionMessage{}, perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	defer signingKP.Close()

	chainID := state.NextChainID
	state.NextChainID++
	seed := signingKP.Seed()
	signingPub := signingKP.Public()

	state.installChain(&Chain{
		ChainID:        chainID,
		ChainKey:       chainKey,
		Iteration:      0,
		SigningPublic:  [32]byte(signingPub),
		SigningPrivate: &seed,
		Skipped:        make(map[uint32][32]byte),
	})

	if err := st.Store(ctx, senderAddr, distributionID, state); err != nil {
		return wire.SenderKeyDistributionMessage{}, perror.Wrap(op, perror.KindStoreError, err)
	}

	return wire.SenderKeyDistributionMessage{
		Version:        wire.PackVersionByte(wire.CurrentVersion, wire.MinSupportedVersion),
		DistributionID: distributionID,
		ChainID:        chainID,
		Iteration:      0,
		ChainKey:       chainKey,
		SigningKey:     [32]byte(signingPub),
	}, nil
}

// ProcessDistributionMessage appends msg's chain to the local record of
// senderAddr's state for its distribution id, retaining up to
// Limits.MaxHistoricalChains chains (evicting the oldest). Re-delivery of
// an already-known chain id overwrites that chain in place rather than
// growing the historical list.
func ProcessDistributionMessage(ctx context.Context, st Store, senderAddr address.Address, msg wire.SenderKeyDistributionMessage) error {
	const op = "groupsession.ProcessDistributionMessage"

	state, ok, err := st.Load(ctx, senderAddr, msg.DistributionID)
	if err != nil {
		return perror.Wrap(op, perror.KindStoreError, err)
	}
	if !ok {
		state = NewSenderKeyState(msg.DistributionID)
	}

	chain := &Chain{
		ChainID:       msg.ChainID,
		ChainKey:      msg.ChainKey,
		Iteration:     msg.Iteration,
		SigningPublic: msg.SigningKey,
		Skipped:       make(map[uint32][32]byte),
	}

	if existing := state.findChain(msg.ChainID); existing != nil {
		*existing = *chain
	} else {
		state.installChain(chain)
	}

	return st.Store(ctx, senderAddr, msg.DistributionID, state)
}
