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

package primitives

// ZeroBytes overwrites b with zeroes in place. Used on every secret buffer
// (seeds, chain keys, message keys, shared secrets) once it is no longer
// needed, so a session or chain that outlives its keys doesn't keep them
// resident any longer than necessary.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Zero32 overwrites a fixed-size 32-byte secret in place.
func Zero32(b *[32]byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
