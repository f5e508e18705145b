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

// Package session implements the pairwise Double Ratchet engine: PQXDH
// handshake establishment, per-message symmetric-chain and DH-chain
// ratcheting, and the bounded skipped-message-key and archived-state
// caches that let messages arrive out of order across a ratchet turn.
package session

import "time"

// Limits bounds the memory a single SessionRecord can hold, matched to
// the defaults named in the protocol's data model.
type Limits struct {
	MaxArchivedStates     int
	MaxReceiverChains     int
	MaxSkippedKeysPerChain int
	MaxLookAhead          int
}

// DefaultLimits returns the operator-tunable defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxArchivedStates:      40,
		MaxReceiverChains:      5,
		MaxSkippedKeysPerChain: 2000,
		MaxLookAhead:           25000,
	}
}

// PreKeyHeader is the PQXDH handshake material a fresh outbound session
// must wrap its first message in. Cleared from SessionState once that
// first message has been sent.
type PreKeyHeader struct {
	RegistrationID  uint32
	HasPreKeyID     bool
	PreKeyID        uint32
	SignedPreKeyID  uint32
	BaseKey         [32]byte
	IdentityKey     [32]byte
	KyberPreKeyID   uint32
	KyberCiphertext []byte
}

// ReceiverChain is one of the bounded set of chains a session keeps for
// decrypting messages sent under a particular remote ratchet public key.
type ReceiverChain struct {
	RatchetPublic [32]byte
	ChainKey      [32]byte
	Counter       uint32
	Skipped       map[uint32][32]byte
}

// PQRatchetState carries the evolving post-quantum shared secret
// alongside the classical root key. Its bytes are preserved verbatim
// across serialize/deserialize even when a session's policy does not mix
// it into the next root step.
type PQRatchetState struct {
	SharedSecret []byte
	Ciphertext   []byte
}

// SessionState is one generation of a Double Ratchet session: the
// classical + PQ root key, the single sending chain, and the bounded set
// of receiver chains for messages still arriving under older ratchet
// keys.
type SessionState struct {
	Version               byte
	RootKey               [32]byte
	RatchetPrivate        [32]byte
	RatchetPublic         [32]byte
	SendingChainKey       [32]byte
	HasSendingChain       bool
	Counter               uint32 // Ns
	PreviousCounter       uint32 // PNs
	ReceiverChains        []*ReceiverChain
	RemoteRegistrationID  uint32
	RemoteIdentity        [32]byte
	PQ                    PQRatchetState
	PendingPreKeyHeader   *PreKeyHeader
	CreatedAt             time.Time
}

// SessionRecord is the persisted state of a pairwise session: the
// current generation plus a bounded list of previous generations still
// usable for inbound decryption of messages that crossed a ratchet turn
// in flight.
type SessionRecord struct {
	Current  *SessionState
	Archived []*SessionState
	Limits   Limits
}

// NewSessionRecord creates an empty record with default limits.
func NewSessionRecord() *SessionRecord {
	return &SessionRecord{Limits: DefaultLimits()}
}

// InstallCurrent archives the existing current state (if any) and makes
// next the new current generation, trimming the archive to Limits.
func (r *SessionRecord) InstallCurrent(next *SessionState) {
	if r.Current != nil {
		r.Archived = append([]*SessionState{r.Current}, r.Archived...)
		if len(r.Archived) > r.Limits.MaxArchivedStates {
			r.Archived = r.Archived[:r.Limits.MaxArchivedStates]
		}
	}
	r.Current = next
}

// HasUsableSenderChain reports whether the current state has a sending
// chain and is younger than maxAge.
func (r *SessionRecord) HasUsableSenderChain(now time.Time, maxAge time.Duration) bool {
	if r.Current == nil || !r.Current.HasSendingChain {
		return false
	}
	if maxAge <= 0 {
		return true
	}
	return now.Before(r.Current.CreatedAt.Add(maxAge))
}
