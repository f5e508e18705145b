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
	"fmt"

	"github.com/sage-x-project/signalcore/crypto/primitives"
)

// advanceChain runs one symmetric chain step, returning the next chain
// key and the message key for the step just taken.
func advanceChain(chainKey [32]byte) (nextChainKey [32]byte, messageKey [32]byte, err error) {
	next, msgKey, err := primitives.KDFChainStep(chainKey[:])
	if err != nil {
		return [32]byte{}, [32]byte{}, err
	}
	copy(nextChainKey[:], next)
	copy(messageKey[:], msgKey)
	return nextChainKey, messageKey, nil
}

// dhRatchetStep performs a DH ratchet turn on state when a message
// arrives carrying a new remote ratchet public key: it closes out the
// current sending chain, derives a fresh receiving chain key against
// newRemotePub, generates a new own ratchet key pair, and derives a
// fresh sending chain against that. The old receiver chain (if any
// matching a *different* remote key) is left in ReceiverChains, bounded
// by Limits.MaxReceiverChains.
func dhRatchetStep(state *SessionState, newRemotePub [32]byte, limits Limits) (*ReceiverChain, error) {
	recvDH, err := primitives.X25519(state.RatchetPrivate, newRemotePub)
	if err != nil {
		return nil, fmt.Errorf("session: dh ratchet (recv leg): %w", err)
	}
	rootAfterRecv, recvChainSeed, err := primitives.KDFRootStep(state.RootKey[:], recvDH)
	if err != nil {
		return nil, err
	}

	newPriv, newPub, err := generateRatchetKeyPair()
	if err != nil {
		return nil, err
	}

	sendDH, err := primitives.X25519(newPriv, newRemotePub)
	if err != nil {
		return nil, fmt.Errorf("session: dh ratchet (send leg): %w", err)
	}
	rootAfterSend, sendChainSeed, err := primitives.KDFRootStep(rootAfterRecv, sendDH)
	if err != nil {
		return nil, err
	}

	recvChain := &ReceiverChain{
		RatchetPublic: newRemotePub,
		Counter:       0,
		Skipped:       make(map[uint32][32]byte),
	}
	copy(recvChain.ChainKey[:], recvChainSeed)

	state.ReceiverChains = append([]*ReceiverChain{recvChain}, state.ReceiverChains...)
	if len(state.ReceiverChains) > limits.MaxReceiverChains {
		state.ReceiverChains = state.ReceiverChains[:limits.MaxReceiverChains]
	}

	copy(state.RootKey[:], rootAfterSend)
	state.RatchetPrivate = newPriv
	state.RatchetPublic = newPub
	copy(state.SendingChainKey[:], sendChainSeed)
	state.HasSendingChain = true
	state.PreviousCounter = state.Counter
	state.Counter = 0

	return recvChain, nil
}

func generateRatchetKeyPair() (seed [32]byte, pub [32]byte, err error) {
	kp, err := primitives.GenerateCurveKeyPair()
	if err != nil {
		return [32]byte{}, [32]byte{}, fmt.Errorf("session: generate ratchet key pair: %w", err)
	}
	defer kp.Close()
	return kp.Seed(), kp.PublicKey(), nil
}

// findReceiverChain returns the chain matching remotePub, if any.
func findReceiverChain(state *SessionState, remotePub [32]byte) *ReceiverChain {
	for _, c := range state.ReceiverChains {
		if c.RatchetPublic == remotePub {
			return c
		}
	}
	return nil
}
