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

// Package store defines the capability-set store interfaces the engines
// consume: IdentityKeyStore, PreKeyStore, SignedPreKeyStore, and
// KyberPreKeyStore. Each is dispatched independently — nothing here forms
// a hierarchy, and a caller may mix an in-memory store for one capability
// with a persistent one for another.
//
// The session and sender-key stores are declared as Store in the session
// and groupsession packages respectively: both hold a live engine-owned
// record type (SessionRecord, SenderKeyState) that would otherwise force
// this package to import the engines it is meant to be a dependency of.
package store

import (
	"context"

	"github.com/sage-x-project/signalcore/crypto/keys"
	"github.com/sage-x-project/signalcore/protocol/address"
)

// IdentityKeyStore holds the local identity key pair, the local
// registration id, and the trusted identity key last seen for each
// remote address.
type IdentityKeyStore interface {
	IdentityKeyPair(ctx context.Context) (*keys.IdentityKeyPair, error)
	LocalRegistrationID(ctx context.Context) (uint32, error)

	// SaveIdentity stores pub as the trusted identity for addr, returning
	// true if it replaced a different previously-trusted identity.
	SaveIdentity(ctx context.Context, addr address.Address, pub keys.PublicKey) (replaced bool, err error)
	GetIdentity(ctx context.Context, addr address.Address) (pub keys.PublicKey, found bool, err error)

	// IsTrusted reports whether pub should be accepted for addr given the
	// currently stored identity (trust-on-first-use: no stored identity
	// always trusts).
	IsTrusted(ctx context.Context, addr address.Address, pub keys.PublicKey, direction Direction) (bool, error)
}

// Direction distinguishes a sending from a receiving trust check, mirroring
// libsignal's IdentityKeyStore.Direction — both directions apply the same
// trust-on-first-use policy in this implementation, but the parameter is
// kept so a store may special-case one of them.
type Direction int

const (
	DirectionSending Direction = iota
	DirectionReceiving
)

// PreKeyStore holds one-shot pre-keys.
type PreKeyStore interface {
	LoadPreKey(ctx context.Context, id uint32) (*keys.PreKey, bool, error)
	StorePreKey(ctx context.Context, id uint32, pk *keys.PreKey) error
	RemovePreKey(ctx context.Context, id uint32) error
	AllPreKeyIDs(ctx context.Context) ([]uint32, error)
}

// SignedPreKeyStore holds signed pre-keys.
type SignedPreKeyStore interface {
	LoadSignedPreKey(ctx context.Context, id uint32) (*keys.SignedPreKey, bool, error)
	StoreSignedPreKey(ctx context.Context, id uint32, spk *keys.SignedPreKey) error
	AllSignedPreKeyIDs(ctx context.Context) ([]uint32, error)
}

// KyberPreKeyStore holds Kyber pre-keys.
type KyberPreKeyStore interface {
	LoadKyberPreKey(ctx context.Context, id uint32) (*keys.KyberPreKey, bool, error)
	StoreKyberPreKey(ctx context.Context, id uint32, kpk *keys.KyberPreKey) error
	MarkKyberPreKeyUsed(ctx context.Context, id uint32) error
	AllKyberPreKeyIDs(ctx context.Context) ([]uint32, error)
}
