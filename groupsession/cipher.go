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

	"github.com/sage-x-project/signalcore/crypto/keys"
	"github.com/sage-x-project/signalcore/crypto/primitives"
	"github.com/sage-x-project/signalcore/protocol/address"
	"github.com/sage-x-project/signalcore/protocol/perror"
	"github.com/sage-x-project/signalcore/protocol/wire"
)

// Encrypt advances the local sender's current chain for distributionID
// and returns the signed SenderKeyMessage wire bytes. Fails if the
// current chain was learned from a remote distribution message rather
// than created locally (no signing private key to sign with).
func Encrypt(ctx context.Context, st Store, senderAddr address.Address, distributionID [16]byte, plaintext []byte) ([]byte, error) {
	const op = "groupsession.Encrypt"

	state, ok, err := st.Load(ctx, senderAddr, distributionID)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindStoreError, err)
	}
	if !ok || len(state.Chains) == 0 {
		return nil, perror.New(op, perror.KindNoSession)
	}
	chain := state.Chains[0]
	if chain.SigningPrivate == nil {
		return nil, perror.New(op, perror.KindInvalidArgument)
	}

	nextChainKey, msgKey, err := primitives.KDFChainStep(chain.ChainKey[:])
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	iteration := chain.Iteration
	copy(chain.ChainKey[:], nextChainKey)
	chain.Iteration++

	cipherKeys, err := primitives.DeriveMessageCipherKeys(msgKey)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	ciphertext, err := primitives.EncryptCBCOnly(cipherKeys, plaintext)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}

	msg := wire.SenderKeyMessage{
		Version:        wire.PackVersionByte(wire.CurrentVersion, wire.MinSupportedVersion),
		DistributionID: distributionID,
		ChainID:        chain.ChainID,
		Iteration:      iteration,
		Ciphertext:     ciphertext,
	}
	signingKP, err := keys.NewSigningKeyPairFromSeed(*chain.SigningPrivate)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	defer signingKP.Close()
	sig, err := signingKP.Sign(wire.SenderKeyMessageBody(msg))
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	copy(msg.Signature[:], sig)

	if err := st.Store(ctx, senderAddr, distributionID, state); err != nil {
		return nil, perror.Wrap(op, perror.KindStoreError, err)
	}
	return wire.EncodeSenderKeyMessage(msg), nil
}

// Decrypt verifies and decrypts a SenderKeyMessage sent by senderAddr
// under the distribution id and chain it names, advancing (or consulting
// the skipped-key cache of) the matching chain in senderAddr's state. A
// failed verification or decrypt never mutates the stored state.
func Decrypt(ctx context.Context, st Store, senderAddr address.Address, data []byte) ([]byte, error) {
	const op = "groupsession.Decrypt"

	msg, err := wire.DecodeSenderKeyMessage(data)
	if err != nil {
		return nil, err
	}

	state, ok, err := st.Load(ctx, senderAddr, msg.DistributionID)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindStoreError, err)
	}
	if !ok {
		return nil, perror.New(op, perror.KindNoSession)
	}
	original := state.findChain(msg.ChainID)
	if original == nil {
		return nil, perror.New(op, perror.KindSessionNotFound)
	}

	if !primitives.Verify(original.SigningPublic, wire.SenderKeyMessageBody(msg), msg.Signature[:]) {
		return nil, perror.New(op, perror.KindInvalidSignature)
	}

	chain := cloneChain(original)
	limits := state.Limits

	var msgKey []byte
	switch {
	case msg.Iteration == chain.Iteration:
		next, mk, err := primitives.KDFChainStep(chain.ChainKey[:])
		if err != nil {
			return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
		}
		msgKey = mk
		copy(chain.ChainKey[:], next)
		chain.Iteration++

	case msg.Iteration > chain.Iteration:
		if int(msg.Iteration-chain.Iteration) > limits.MaxLookAhead {
			return nil, perror.New(op, perror.KindMessageTooFarAhead)
		}
		for chain.Iteration < msg.Iteration {
			if len(chain.Skipped) >= limits.MaxSkippedKeysPerChain {
				return nil, perror.New(op, perror.KindMessageTooFarAhead)
			}
			next, mk, err := primitives.KDFChainStep(chain.ChainKey[:])
			if err != nil {
				return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
			}
			chain.Skipped[chain.Iteration] = [32]byte(mk)
			copy(chain.ChainKey[:], next)
			chain.Iteration++
		}
		next, mk, err := primitives.KDFChainStep(chain.ChainKey[:])
		if err != nil {
			return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
		}
		msgKey = mk
		copy(chain.ChainKey[:], next)
		chain.Iteration++

	default: // msg.Iteration < chain.Iteration
		stored, ok := chain.Skipped[msg.Iteration]
		if !ok {
			return nil, perror.New(op, perror.KindDuplicateMessage)
		}
		msgKey = stored[:]
	}

	cipherKeys, err := primitives.DeriveMessageCipherKeys(msgKey)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	plaintext, err := primitives.DecryptCBCOnly(cipherKeys, msg.Ciphertext)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}

	delete(chain.Skipped, msg.Iteration)
	*original = *chain
	if err := st.Store(ctx, senderAddr, msg.DistributionID, state); err != nil {
		return nil, perror.Wrap(op, perror.KindStoreError, err)
	}
	return plaintext, nil
}
