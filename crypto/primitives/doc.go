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

// Package primitives collects the raw cryptographic building blocks used
// across the protocol engines: X25519 key agreement and Curve25519
// signatures, HKDF/HMAC key derivation, the AES-256-CBC+HMAC message
// cipher, AES-256-GCM-SIV for sealed envelopes, and the ML-KEM-1024 KEM
// used by PQXDH. Nothing in this package is aware of sessions, wire
// formats, or stores — it only turns key material into other key
// material or ciphertext.
package primitives
