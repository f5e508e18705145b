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

// Package groupsession implements the sender-key group engine: one
// symmetric chain per (sender, distribution) pair, shared by every group
// member that has received the matching SenderKeyDistributionMessage over
// an authenticated pairwise channel.
package groupsession

// Limits bounds the memory a single SenderKeyState can hold.
type Limits struct {
	MaxHistoricalChains    int
	MaxSkippedKeysPerChain int
	MaxLookAhead           int
}

// DefaultLimits returns the operator-tunable defaults named in spec §4.2.
func DefaultLimits() Limits {
	return Limits{
		MaxHistoricalChains:    5,
		MaxSkippedKeysPerChain: 2000,
		MaxLookAhead:           25000,
	}
}

// Chain is one sender-key generation: a symmetric chain identified by
// ChainID, advanced by iteration. SigningPrivate is present only on the
// chain the local address itself created (via CreateDistributionMessage);
// chains learned from a remote distribution message carry only the
// signing public key needed to verify incoming SenderKeyMessages.
type Chain struct {
	ChainID        uint32
	ChainKey       [32]byte
	Iteration      uint32
	SigningPublic  [32]byte
	SigningPrivate *[32]byte
	Skipped        map[uint32][32]byte
}

// SenderKeyState is the persisted state for one (sender_addr,
// distribution_id) pair: the current chain plus a bounded list of
// historical chains still usable for decrypting messages sent before the
// most recent re-distribution.
type SenderKeyState struct {
	DistributionID [16]byte
	Chains         []*Chain // Chains[0] is current
	NextChainID    uint32
	Limits         Limits
}

// NewSenderKeyState creates an empty state for distributionID.
func NewSenderKeyState(distributionID [16]byte) *SenderKeyState {
	return &SenderKeyState{DistributionID: distributionID, Limits: DefaultLimits()}
}

// installChain prepends chain as the current generation, trimming the
// historical list to Limits.MaxHistoricalChains.
func (s *SenderKeyState) installChain(chain *Chain) {
	s.Chains = append([]*Chain{chain}, s.Chains...)
	if len(s.Chains) > s.Limits.MaxHistoricalChains {
		s.Chains = s.Chains[:s.Limits.MaxHistoricalChains]
	}
}

// findChain returns the chain matching chainID, if any.
func (s *SenderKeyState) findChain(chainID uint32) *Chain {
	for _, c := range s.Chains {
		if c.ChainID == chainID {
			return c
		}
	}
	return nil
}

func cloneChain(c *Chain) *Chain {
	skipped := make(map[uint32][32]byte, len(c.Skipped))
	for k, v := range c.Skipped {
		skipped[k] = v
	}
	var priv *[32]byte
	if c.SigningPrivate != nil {
		seed := *c.SigningPrivate
		priv = &seed
	}
	return &Chain{
		ChainID:        c.ChainID,
		ChainKey:       c.ChainKey,
		Iteration:      c.Iteration,
		SigningPublic:  c.SigningPublic,
		SigningPrivate: priv,
		Skipped:        skipped,
	}
}

func cloneState(s *SenderKeyState) *SenderKeyState {
	clone := *s
	clone.Chains = make([]*Chain, len(s.Chains))
	for i, c := range s.Chains {
		clone.Chains[i] = cloneChain(c)
	}
	return &clone
}
