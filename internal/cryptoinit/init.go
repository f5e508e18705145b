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

// Package cryptoinit holds the process-wide, run-once verification that
// the crypto primitives layer actually works in this build before any
// engine relies on it.
package cryptoinit

import (
	"fmt"
	"sync"

	"github.com/sage-x-project/signalcore/crypto/primitives"
)

var (
	once    sync.Once
	initErr error
)

// Init runs a self-test of the ML-KEM and Curve25519 primitives PQXDH
// depends on and caches the result. Safe to call more than once — only
// the first call does any work, matching every later caller's
// expectation that initialization has already happened by the time it
// runs. There is no teardown: the self-test allocates nothing that
// outlives this call.
func Init() error {
	once.Do(func() {
		initErr = selfTest()
	})
	return initErr
}

func selfTest() error {
	if err := kyberSelfTest(); err != nil {
		return err
	}
	return curveSelfTest()
}

func kyberSelfTest() error {
	kp, err := primitives.GenerateKyberKeyPair()
	if err != nil {
		return fmt.Errorf("cryptoinit: kyber key pair: %w", err)
	}
	ciphertext, senderSecret, err := primitives.KyberEncapsulate(kp.Public)
	if err != nil {
		return fmt.Errorf("cryptoinit: kyber encapsulate: %w", err)
	}
	recipientSecret, err := primitives.KyberDecapsulate(kp.Private, ciphertext)
	if err != nil {
		return fmt.Errorf("cryptoinit: kyber decapsulate: %w", err)
	}
	if !primitives.ConstantTimeEqual(senderSecret, recipientSecret) {
		return fmt.Errorf("cryptoinit: kyber self-test: shared secrets diverged")
	}
	return nil
}

func curveSelfTest() error {
	a, err := primitives.GenerateCurveKeyPair()
	if err != nil {
		return fmt.Errorf("cryptoinit: curve key pair: %w", err)
	}
	defer a.Close()
	b, err := primitives.GenerateCurveKeyPair()
	if err != nil {
		return fmt.Errorf("cryptoinit: curve key pair: %w", err)
	}
	defer b.Close()

	ab, err := a.DH(b.PublicKey())
	if err != nil {
		return fmt.Errorf("cryptoinit: curve dh: %w", err)
	}
	ba, err := b.DH(a.PublicKey())
	if err != nil {
		return fmt.Errorf("cryptoinit: curve dh: %w", err)
	}
	if !primitives.ConstantTimeEqual(ab, ba) {
		return fmt.Errorf("cryptoinit: curve self-test: shared secrets diverged")
	}
	return nil
}
