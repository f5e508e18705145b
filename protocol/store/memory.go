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

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/sage-x-project/signalcore/crypto/keys"
	"github.com/sage-x-project/signalcore/crypto/primitives"
	"github.com/sage-x-project/signalcore/protocol/address"
)

// MemoryIdentityKeyStore is an in-memory IdentityKeyStore, suitable for
// tests and single-process embedding. Trust is first-use: the first
// identity seen for an address is trusted; a later, different identity
// for the same address is rejected by IsTrusted.
type MemoryIdentityKeyStore struct {
	mu             sync.RWMutex
	identity       *keys.IdentityKeyPair
	registrationID uint32
	trusted        map[string]keys.PublicKey
}

// NewMemoryIdentityKeyStore creates a store seeded with the local
// identity key pair and registration id.
func NewMemoryIdentityKeyStore(identity *keys.IdentityKeyPair, registrationID uint32) *MemoryIdentityKeyStore {
	return &MemoryIdentityKeyStore{
		identity:       identity,
		registrationID: registrationID,
		trusted:        make(map[string]keys.PublicKey),
	}
}

func (s *MemoryIdentityKeyStore) IdentityKeyPair(ctx context.Context) (*keys.IdentityKeyPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, nil
}

func (s *MemoryIdentityKeyStore) LocalRegistrationID(ctx context.Context) (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registrationID, nil
}

func (s *MemoryIdentityKeyStore) SaveIdentity(ctx context.Context, addr address.Address, pub keys.PublicKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.trusted[addr.String()]
	s.trusted[addr.String()] = pub
	if !ok {
		return false, nil
	}
	return !primitives.ConstantTimeEqual(existing[:], pub[:]), nil
}

func (s *MemoryIdentityKeyStore) GetIdentity(ctx context.Context, addr address.Address) (keys.PublicKey, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pub, ok := s.trusted[addr.String()]
	return pub, ok, nil
}

func (s *MemoryIdentityKeyStore) IsTrusted(ctx context.Context, addr address.Address, pub keys.PublicKey, _ Direction) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	existing, ok := s.trusted[addr.String()]
	if !ok {
		return true, nil
	}
	return primitives.ConstantTimeEqual(existing[:], pub[:]), nil
}

// MemoryPreKeyStore is an in-memory PreKeyStore.
type MemoryPreKeyStore struct {
	mu   sync.RWMutex
	keys map[uint32]*keys.PreKey
}

func NewMemoryPreKeyStore() *MemoryPreKeyStore {
	return &MemoryPreKeyStore{keys: make(map[uint32]*keys.PreKey)}
}

func (s *MemoryPreKeyStore) LoadPreKey(ctx context.Context, id uint32) (*keys.PreKey, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pk, ok := s.keys[id]
	return pk, ok, nil
}

func (s *MemoryPreKeyStore) StorePreKey(ctx context.Context, id uint32, pk *keys.PreKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[id] = pk
	return nil
}

func (s *MemoryPreKeyStore) RemovePreKey(ctx context.Context, id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, id)
	return nil
}

func (s *MemoryPreKeyStore) AllPreKeyIDs(ctx context.Context) ([]uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedUint32Keys(s.keys), nil
}

// MemorySignedPreKeyStore is an in-memory SignedPreKeyStore.
type MemorySignedPreKeyStore struct {
	mu   sync.RWMutex
	keys map[uint32]*keys.SignedPreKey
}

func NewMemorySignedPreKeyStore() *MemorySignedPreKeyStore {
	return &MemorySignedPreKeyStore{keys: make(map[uint32]*keys.SignedPreKey)}
}

func (s *MemorySignedPreKeyStore) LoadSignedPreKey(ctx context.Context, id uint32) (*keys.SignedPreKey, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	spk, ok := s.keys[id]
	return spk, ok, nil
}

func (s *MemorySignedPreKeyStore) StoreSignedPreKey(ctx context.Context, id uint32, spk *keys.SignedPreKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[id] = spk
	return nil
}

func (s *MemorySignedPreKeyStore) AllSignedPreKeyIDs(ctx context.Context) ([]uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedUint32Keys(s.keys), nil
}

// MemoryKyberPreKeyStore is an in-memory KyberPreKeyStore.
type MemoryKyberPreKeyStore struct {
	mu   sync.RWMutex
	keys map[uint32]*keys.KyberPreKey
	used map[uint32]bool
}

func NewMemoryKyberPreKeyStore() *MemoryKyberPreKeyStore {
	return &MemoryKyberPreKeyStore{
		keys: make(map[uint32]*keys.KyberPreKey),
		used: make(map[uint32]bool),
	}
}

func (s *MemoryKyberPreKeyStore) LoadKyberPreKey(ctx context.Context, id uint32) (*keys.KyberPreKey, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kpk, ok := s.keys[id]
	return kpk, ok, nil
}

func (s *MemoryKyberPreKeyStore) StoreKyberPreKey(ctx context.Context, id uint32, kpk *keys.KyberPreKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[id] = kpk
	return nil
}

func (s *MemoryKyberPreKeyStore) MarkKyberPreKeyUsed(ctx context.Context, id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used[id] = true
	return nil
}

func (s *MemoryKyberPreKeyStore) IsUsed(id uint32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used[id]
}

func (s *MemoryKyberPreKeyStore) AllKyberPreKeyIDs(ctx context.Context) ([]uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedUint32Keys(s.keys), nil
}

func sortedUint32Keys[V any](m map[uint32]V) []uint32 {
	ids := make([]uint32, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
