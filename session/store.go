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
	"sort"
	"sync"

	"github.com/sage-x-project/signalcore/protocol/address"
)

// Store holds SessionRecords keyed by remote address. Declared here
// rather than in protocol/store because it depends on SessionRecord,
// which would otherwise force that package to import this one.
type Store interface {
	Load(ctx context.Context, addr address.Address) (*SessionRecord, bool, error)
	Store(ctx context.Context, addr address.Address, rec *SessionRecord) error
	Contains(ctx context.Context, addr address.Address) (bool, error)
	Delete(ctx context.Context, addr address.Address) error
	DeleteAll(ctx context.Context, name string) error
	SubDeviceIDs(ctx context.Context, name string) ([]uint32, error)
}

// MemoryStore is an in-memory Store, suitable for tests and
// single-process embedding.
type MemoryStore struct {
	mu       sync.RWMutex
	byAddr   map[string]*SessionRecord
	devices  map[string]map[uint32]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byAddr:  make(map[string]*SessionRecord),
		devices: make(map[string]map[uint32]struct{}),
	}
}

func (s *MemoryStore) Load(ctx context.Context, addr address.Address) (*SessionRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byAddr[addr.String()]
	return rec, ok, nil
}

func (s *MemoryStore) Store(ctx context.Context, addr address.Address, rec *SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byAddr[addr.String()] = rec
	set, ok := s.devices[addr.Name()]
	if !ok {
		set = make(map[uint32]struct{})
		s.devices[addr.Name()] = set
	}
	set[addr.DeviceID()] = struct{}{}
	return nil
}

func (s *MemoryStore) Contains(ctx context.Context, addr address.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byAddr[addr.String()]
	return ok, nil
}

func (s *MemoryStore) Delete(ctx context.Context, addr address.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byAddr, addr.String())
	if set, ok := s.devices[addr.Name()]; ok {
		delete(set, addr.DeviceID())
	}
	return nil
}

func (s *MemoryStore) DeleteAll(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for device := range s.devices[name] {
		delete(s.byAddr, address.New(name, device).String())
	}
	delete(s.devices, name)
	return nil
}

func (s *MemoryStore) SubDeviceIDs(ctx context.Context, name string) ([]uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint32, 0, len(s.devices[name]))
	for id := range s.devices[name] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
