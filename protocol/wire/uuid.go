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

package wire

import (
	"fmt"

	"github.com/google/uuid"
)

// DistributionIDSize is the fixed length of a distribution_id on the
// wire: an opaque 16-byte UUID. The core never links against a UUID
// library for its own sake — only these two conversion helpers do, so a
// caller may pass either form without the engines caring which.
const DistributionIDSize = 16

// ParseDistributionID parses a canonical 8-4-4-4-12 hex UUID string into
// its 16 wire bytes.
func ParseDistributionID(s string) ([16]byte, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return [16]byte{}, fmt.Errorf("wire: parse distribution id: %w", err)
	}
	return id, nil
}

// DistributionIDString renders 16 wire bytes as a canonical hex UUID
// string.
func DistributionIDString(id [16]byte) string {
	return uuid.UUID(id).String()
}
