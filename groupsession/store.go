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
	"sync"

	"github.com/sage-x-project/signalcore/protocol/address"
)

// Store holds SenderKeyStates keyed by (sender address, distribution id).
// Declared here rather than in protocol/store for the same reason
// session.Store is declared in package session: it depends on
// SenderKeyState, which would otherwise force that package to import this
// one.
type Store interface {
	Load(ctx context.Context, sender address.Address, distributionID [16]byte) (*SenderKeyState, bool, error)
	Store(ctx context.Context, sender address.Address, distributionID [16]byte, state *SenderKeyState) error
}

// MemoryStore is an in-memory Store, suitable for tests and
// single-process embedding.
type MemoryStore struct {
	mu    sync.RWMutex
	byKey map[string]*SenderKeyState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byKey: make(map[string]*SenderKeyState)}
}

func key(sender address.Address, distributionID [16]byte) string {
	return sender.String() + "/" + string(distributionID[:])
}

func (s *MemoryStore) Load(ctx context.Context, sender address.Address, distributionID [16]byte) (*SenderKeyState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.byKey[key(sender, distributionID)]
	return state, ok, nil
}

func (s *MemoryStore) Store(ctx context.Context, sender address.Address, distributionID [16]byte, state *SenderKeyState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[key(sender, distributionID)] = state
	return nil
}
