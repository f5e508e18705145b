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
	"context"

	"github.com/sage-x-project/signalcore/crypto/keys"
	"github.com/sage-x-project/signalcore/crypto/primitives"
	"github.com/sage-x-project/signalcore/protocol/address"
	"github.com/sage-x-project/signalcore/protocol/perror"
	"github.com/sage-x-project/signalcore/protocol/store"
	"github.com/sage-x-project/signalcore/protocol/wire"
)

// Cipher is the pairwise session engine's entry point: one instance per
// local identity, shared across every remote address it talks to.
type Cipher struct {
	IdentityStore       store.IdentityKeyStore
	PreKeyStore         store.PreKeyStore
	SignedPreKeyStore   store.SignedPreKeyStore
	KyberPreKeyStore    store.KyberPreKeyStore
	SessionStore        Store
	LocalIdentity       *keys.IdentityKeyPair
	LocalRegistrationID uint32
}

// cloneReceiverChain deep-copies a chain, including its skipped-key map,
// so trial ratchet steps never mutate the stored state before a message
// authenticates.
func cloneReceiverChain(c *ReceiverChain) *ReceiverChain {
	skipped := make(map[uint32][32]byte, len(c.Skipped))
	for k, v := range c.Skipped {
		skipped[k] = v
	}
	return &ReceiverChain{RatchetPublic: c.RatchetPublic, ChainKey: c.ChainKey, Counter: c.Counter, Skipped: skipped}
}

func cloneState(s *SessionState) *SessionState {
	clone := *s
	clone.ReceiverChains = make([]*ReceiverChain, len(s.ReceiverChains))
	for i, c := range s.ReceiverChains {
		clone.ReceiverChains[i] = cloneReceiverChain(c)
	}
	return &clone
}

// Encrypt advances the session's sending chain and returns the wire
// bytes for plaintext: a PreKeySignalMessage wrapping the SignalMessage
// for the first message after a fresh PQXDH install, and a bare
// SignalMessage for every later message.
func (c *Cipher) Encrypt(ctx context.Context, remote address.Address, plaintext []byte) ([]byte, error) {
	const op = "session.Encrypt"

	rec, ok, err := c.SessionStore.Load(ctx, remote)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindStoreError, err)
	}
	if !ok || rec.Current == nil {
		return nil, perror.New(op, perror.KindNoSession)
	}
	state := cloneState(rec.Current)

	// A session only ever lacks a sending chain before its first
	// message has been sent or received: ProcessPreKeyBundle seeds the
	// initiator's sending chain directly (RatchetInitAlice), and a
	// responder gets its sending chain from the DH ratchet step run
	// during its first decrypt of the initiator's message
	// (processIncomingPreKeyMessage + dhRatchetStep, RatchetInitBob).
	// There is no legitimate bootstrap left for Encrypt itself to run.
	if !state.HasSendingChain {
		return nil, perror.New(op, perror.KindNoSession)
	}

	nextChainKey, msgKey, err := advanceChain(state.SendingChainKey)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	counter := state.Counter
	state.SendingChainKey = nextChainKey
	state.Counter++

	cipherKeys, err := primitives.DeriveMessageCipherKeys(msgKey[:])
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	ciphertext, err := primitives.EncryptCBCOnly(cipherKeys, plaintext)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}

	msg := wire.SignalMessage{
		Version:          wire.PackVersionByte(state.Version, wire.MinSupportedVersion),
		SenderRatchetKey: state.RatchetPublic,
		Counter:          counter,
		PreviousCounter:  state.PreviousCounter,
		Ciphertext:       ciphertext,
	}
	mac, err := primitives.HMACSHA256(cipherKeys.MacKey, macInput([32]byte(c.LocalIdentity.Public()), state.RemoteIdentity, wire.SignalMessageBody(msg)))
	if err != nil {
		return nil, perror.Wrap(op, perror.KindInvalidArgument, err)
	}
	copy(msg.MAC[:], mac[:wire.MACSize])

	encoded := wire.EncodeSignalMessage(msg)

	var out []byte
	if state.PendingPreKeyHeader != nil {
		h := state.PendingPreKeyHeader
		out = wire.EncodePreKeySignalMessage(wire.PreKeySignalMessage{
			Version:         wire.PackVersionByte(state.Version, wire.MinSupportedVersion),
			RegistrationID:  h.RegistrationID,
			HasPreKeyID:     h.HasPreKeyID,
			PreKeyID:        h.PreKeyID,
			SignedPreKeyID:  h.SignedPreKeyID,
			BaseKey:         h.BaseKey,
			IdentityKey:     h.IdentityKey,
			KyberPreKeyID:   h.KyberPreKeyID,
			KyberCiphertext: h.KyberCiphertext,
			Message:         encoded,
		})
		state.PendingPreKeyHeader = nil
	} else {
		out = encoded
	}

	rec.Current = state
	if err := c.SessionStore.Store(ctx, remote, rec); err != nil {
		return nil, perror.Wrap(op, perror.KindStoreError, err)
	}
	return out, nil
}

func macInput(senderIdentity, receiverIdentity [32]byte, body []byte) []byte {
	out := make([]byte, 0, 32+32+len(body))
	out = append(out, senderIdentity[:]...)
	out = append(out, receiverIdentity[:]...)
	out = append(out, body...)
	return out
}

// decryptAgainst runs the Double Ratchet decrypt algorithm (§4.1.3)
// against a single session generation, on a clone: the MAC is checked
// (and, on failure, no mutation is ever observed) before the clone
// replaces the generation it was taken from.
func decryptAgainst(localIdentity [32]byte, state *SessionState, limits Limits, msg wire.SignalMessage) ([]byte, *SessionState, error) {
	clone := cloneState(state)

	chain := findReceiverChain(clone, msg.SenderRatchetKey)
	if chain == nil {
		var err error
		chain, err = dhRatchetStep(clone, msg.SenderRatchetKey, limits)
		if err != nil {
			return nil, nil, perror.Wrap("session.Decrypt", perror.KindInvalidArgument, err)
		}
	}

	var msgKey [32]byte
	switch {
	case msg.Counter == chain.Counter:
		next, mk, err := advanceChain(chain.ChainKey)
		if err != nil {
			return nil, nil, perror.Wrap("session.Decrypt", perror.KindInvalidArgument, err)
		}
		msgKey = mk
		chain.ChainKey = next
		chain.Counter++

	case msg.Counter > chain.Counter:
		if int(msg.Counter-chain.Counter) > limits.MaxLookAhead {
			return nil, nil, perror.New("session.Decrypt", perror.KindMessageTooFarAhead)
		}
		for chain.Counter < msg.Counter {
			if len(chain.Skipped) >= limits.MaxSkippedKeysPerChain {
				return nil, nil, perror.New("session.Decrypt", perror.KindMessageTooFarAhead)
			}
			next, mk, err := advanceChain(chain.ChainKey)
			if err != nil {
				return nil, nil, perror.Wrap("session.Decrypt", perror.KindInvalidArgument, err)
			}
			chain.Skipped[chain.Counter] = mk
			chain.ChainKey = next
			chain.Counter++
		}
		next, mk, err := advanceChain(chain.ChainKey)
		if err != nil {
			return nil, nil, perror.Wrap("session.Decrypt", perror.KindInvalidArgument, err)
		}
		msgKey = mk
		chain.ChainKey = next
		chain.Counter++

	default: // msg.Counter < chain.Counter
		stored, ok := chain.Skipped[msg.Counter]
		if !ok {
			return nil, nil, perror.New("session.Decrypt", perror.KindDuplicateMessage)
		}
		msgKey = stored
	}

	cipherKeys, err := primitives.DeriveMessageCipherKeys(msgKey[:])
	if err != nil {
		return nil, nil, perror.Wrap("session.Decrypt", perror.KindInvalidArgument, err)
	}
	body := wire.SignalMessageBody(msg)
	wantMac, err := primitives.HMACSHA256(cipherKeys.MacKey, macInput(clone.RemoteIdentity, localIdentity, body))
	if err != nil {
		return nil, nil, perror.Wrap("session.Decrypt", perror.KindInvalidArgument, err)
	}
	if !primitives.ConstantTimeEqual(wantMac[:wire.MACSize], msg.MAC[:]) {
		return nil, nil, perror.New("session.Decrypt", perror.KindInvalidMAC)
	}

	plaintext, err := primitives.DecryptCBCOnly(cipherKeys, msg.Ciphertext)
	if err != nil {
		return nil, nil, perror.New("session.Decrypt", perror.KindInvalidMAC)
	}

	delete(chain.Skipped, msg.Counter)
	return plaintext, clone, nil
}

// Decrypt decrypts a bare SignalMessage sent over an already-established
// session, trying the current generation and then each archived
// generation in turn (a message can arrive after its generation was
// superseded by a ratchet turn the other side already saw).
func (c *Cipher) Decrypt(ctx context.Context, remote address.Address, data []byte) ([]byte, error) {
	const op = "session.Decrypt"
	msg, err := wire.DecodeSignalMessage(data)
	if err != nil {
		return nil, err
	}

	rec, ok, err := c.SessionStore.Load(ctx, remote)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindStoreError, err)
	}
	if !ok || rec.Current == nil {
		return nil, perror.New(op, perror.KindNoSession)
	}

	local := [32]byte(c.LocalIdentity.Public())
	plaintext, mutated, lastErr := decryptAgainst(local, rec.Current, rec.Limits, msg)
	if lastErr == nil {
		rec.Current = mutated
		if err := c.SessionStore.Store(ctx, remote, rec); err != nil {
			return nil, perror.Wrap(op, perror.KindStoreError, err)
		}
		return plaintext, nil
	}

	for i, archived := range rec.Archived {
		pt, mut, err := decryptAgainst(local, archived, rec.Limits, msg)
		if err != nil {
			lastErr = err
			continue
		}
		rec.Archived[i] = mut
		if err := c.SessionStore.Store(ctx, remote, rec); err != nil {
			return nil, perror.Wrap(op, perror.KindStoreError, err)
		}
		return pt, nil
	}
	// Every generation failed: report the most recent attempt's real
	// error (invalid MAC, too-far-ahead, etc.) rather than collapsing
	// every failure mode into duplicate-message.
	return nil, lastErr
}

// DecryptPreKeyMessage decrypts a PreKeySignalMessage, running the PQXDH
// responder handshake (§4.1.2) to install a fresh session when the
// embedded ratchet key is not already known, then decrypting the
// embedded SignalMessage. On success it removes the consumed one-time
// pre-key and marks the Kyber pre-key used.
func (c *Cipher) DecryptPreKeyMessage(ctx context.Context, remote address.Address, data []byte) ([]byte, error) {
	const op = "session.DecryptPreKeyMessage"
	outer, err := wire.DecodePreKeySignalMessage(data)
	if err != nil {
		return nil, err
	}
	inner, err := wire.DecodeSignalMessage(outer.Message)
	if err != nil {
		return nil, err
	}

	rec, ok, err := c.SessionStore.Load(ctx, remote)
	if err != nil {
		return nil, perror.Wrap(op, perror.KindStoreError, err)
	}
	if !ok {
		rec = NewSessionRecord()
	}

	known := rec.Current != nil && findReceiverChain(rec.Current, inner.SenderRatchetKey) != nil
	if !known {
		next, err := processIncomingPreKeyMessage(ctx, c.IdentityStore, c.PreKeyStore, c.SignedPreKeyStore, c.KyberPreKeyStore, c.LocalIdentity, remote, outer)
		if err != nil {
			return nil, err
		}
		rec.InstallCurrent(next)
	}

	local := [32]byte(c.LocalIdentity.Public())
	plaintext, mutated, err := decryptAgainst(local, rec.Current, rec.Limits, inner)
	if err != nil {
		return nil, err
	}
	rec.Current = mutated

	if err := c.SessionStore.Store(ctx, remote, rec); err != nil {
		return nil, perror.Wrap(op, perror.KindStoreError, err)
	}
	if !known {
		if outer.HasPreKeyID {
			if err := c.PreKeyStore.RemovePreKey(ctx, outer.PreKeyID); err != nil {
				return nil, perror.Wrap(op, perror.KindStoreError, err)
			}
		}
		if len(outer.KyberCiphertext) > 0 {
			if err := c.KyberPreKeyStore.MarkKyberPreKeyUsed(ctx, outer.KyberPreKeyID); err != nil {
				return nil, perror.Wrap(op, perror.KindStoreError, err)
			}
		}
	}
	return plaintext, nil
}
