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

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha512"
	"fmt"
	"io"

	"filippo.io/edwards25519"
	"filippo.io/edwards25519/field"
)

const (
	// X25519KeySize is the length in bytes of an X25519 scalar or point.
	X25519KeySize = 32
	// SignatureSize is the length in bytes of a Curve25519 (XEdDSA) signature.
	SignatureSize = 64
)

// xeddsaDomain separates signature nonce/challenge hashing from any other
// use of SHA-512 over the same key material.
var xeddsaDomain = []byte("signalcore/xeddsa-v1")

// CurveKeyPair is an X25519 scalar/point pair that can also produce and
// verify Curve25519 ("XEdDSA") signatures — the same dual-use key shape
// libsignal uses for identity keys, signed pre-keys, and Kyber pre-key
// signing keys.
type CurveKeyPair struct {
	// seed is the 32 random bytes the private scalar is clamped from.
	// Both DH and signing re-derive the canonical scalar from it so only
	// one secret needs to be zeroed on Close.
	seed   [X25519KeySize]byte
	pubMont [X25519KeySize]byte
}

// GenerateCurveKeyPair creates a fresh random X25519 key pair.
func GenerateCurveKeyPair() (*CurveKeyPair, error) {
	var seed [X25519KeySize]byte
	if _, err := io.ReadFull(rand.Reader, seed[:]); err != nil {
		return nil, fmt.Errorf("primitives: generate curve key pair: %w", err)
	}
	return NewCurveKeyPairFromSeed(seed)
}

// NewCurveKeyPairFromSeed reconstructs a key pair from a previously
// generated 32-byte private seed (as read back from a store).
func NewCurveKeyPairFromSeed(seed [X25519KeySize]byte) (*CurveKeyPair, error) {
	scalar, err := clampedScalar(seed[:])
	if err != nil {
		return nil, err
	}
	var pub edwards25519.Point
	pub.ScalarBaseMult(scalar)

	kp := &CurveKeyPair{seed: seed}
	copy(kp.pubMont[:], pub.BytesMontgomery())
	return kp, nil
}

// PublicKey returns the 32-byte Montgomery-form public key (the wire
// representation used throughout the protocol).
func (kp *CurveKeyPair) PublicKey() [X25519KeySize]byte {
	return kp.pubMont
}

// Seed returns the 32-byte private seed. Callers must zero the returned
// copy with Zero32 when they are done with it.
func (kp *CurveKeyPair) Seed() [X25519KeySize]byte {
	return kp.seed
}

// Close zeroes the private seed. Safe to call more than once.
func (kp *CurveKeyPair) Close() {
	ZeroBytes(kp.seed[:])
}

// DH computes the X25519 Diffie-Hellman shared secret between this key
// pair's private scalar and a peer's Montgomery public key.
func (kp *CurveKeyPair) DH(peerPublic [X25519KeySize]byte) ([]byte, error) {
	return X25519(kp.seed, peerPublic)
}

// X25519 computes the Diffie-Hellman shared secret for a raw 32-byte
// private seed (clamped per RFC 7748) and a peer's public key.
func X25519(privateSeed, peerPublic [X25519KeySize]byte) ([]byte, error) {
	curve := ecdh.X25519()
	priv, err := curve.NewPrivateKey(privateSeed[:])
	if err != nil {
		return nil, fmt.Errorf("primitives: invalid private key: %w", err)
	}
	pub, err := curve.NewPublicKey(peerPublic[:])
	if err != nil {
		return nil, fmt.Errorf("primitives: invalid peer public key: %w", err)
	}
	shared, err := priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("primitives: x25519 dh: %w", err)
	}
	return shared, nil
}

// Sign produces a 64-byte Curve25519 ("XEdDSA") signature over message
// using this key pair's private scalar. The signature verifies against
// the pair's Montgomery public key via Verify.
func (kp *CurveKeyPair) Sign(message []byte) ([]byte, error) {
	return SignXEdDSA(kp.seed, message)
}

// SignXEdDSA signs message with the Montgomery private seed, following the
// XEdDSA construction: the Montgomery scalar is reused directly as an
// Edwards scalar, and the sign of the Edwards public point — which the
// Montgomery public key alone does not carry — is stashed in the unused
// top bit of the signature's S component.
func SignXEdDSA(privateSeed [X25519KeySize]byte, message []byte) ([]byte, error) {
	scalar, err := clampedScalar(privateSeed[:])
	if err != nil {
		return nil, err
	}

	var A edwards25519.Point
	A.ScalarBaseMult(scalar)
	aBytes := A.Bytes()
	signBit := aBytes[31] & 0x80

	var random [64]byte
	if _, err := io.ReadFull(rand.Reader, random[:]); err != nil {
		return nil, fmt.Errorf("primitives: sign nonce: %w", err)
	}

	nonce, err := hashToScalar(xeddsaDomain, privateSeed[:], message, random[:])
	if err != nil {
		return nil, err
	}

	var R edwards25519.Point
	R.ScalarBaseMult(nonce)
	rBytes := R.Bytes()

	challenge, err := hashToScalar(rBytes, aBytes, message)
	if err != nil {
		return nil, err
	}

	s := edwards25519.NewScalar().MultiplyAdd(challenge, scalar, nonce)
	sBytes := s.Bytes()
	sBytes[31] |= signBit

	sig := make([]byte, 0, SignatureSize)
	sig = append(sig, rBytes...)
	sig = append(sig, sBytes...)
	return sig, nil
}

// Verify checks a Curve25519 (XEdDSA) signature produced by Sign/SignXEdDSA
// against a Montgomery public key.
func Verify(publicKey [X25519KeySize]byte, message, signature []byte) bool {
	if len(signature) != SignatureSize {
		return false
	}
	rBytes := append([]byte(nil), signature[:32]...)
	sBytes := append([]byte(nil), signature[32:64]...)
	signBit := sBytes[31] & 0x80
	sBytes[31] &= 0x7F

	s, err := edwards25519.NewScalar().SetCanonicalBytes(sBytes)
	if err != nil {
		return false
	}

	aBytes, err := montgomeryToEdwards(publicKey, signBit)
	if err != nil {
		return false
	}
	A, err := edwards25519.NewIdentityPoint().SetBytes(aBytes)
	if err != nil {
		return false
	}
	R, err := edwards25519.NewIdentityPoint().SetBytes(rBytes)
	if err != nil {
		return false
	}

	challenge, err := hashToScalar(rBytes, aBytes, message)
	if err != nil {
		return false
	}

	minusA := edwards25519.NewIdentityPoint().Negate(A)
	check := edwards25519.NewIdentityPoint().VarTimeDoubleScalarBaseMult(challenge, minusA, s)
	return ConstantTimeEqual(check.Bytes(), rBytes)
}

// clampedScalar derives the canonical Edwards scalar used by X25519 for a
// raw 32-byte seed, applying the RFC 7748 clamp.
func clampedScalar(seed []byte) (*edwards25519.Scalar, error) {
	if len(seed) != X25519KeySize {
		return nil, fmt.Errorf("primitives: seed must be %d bytes", X25519KeySize)
	}
	s, err := edwards25519.NewScalar().SetBytesWithClamping(seed)
	if err != nil {
		return nil, fmt.Errorf("primitives: clamp scalar: %w", err)
	}
	return s, nil
}

// hashToScalar reduces SHA-512(parts...) into a canonical Edwards scalar,
// the same construction Ed25519 uses for its nonce and challenge values.
func hashToScalar(parts ...[]byte) (*edwards25519.Scalar, error) {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	digest := h.Sum(nil)
	s, err := edwards25519.NewScalar().SetUniformBytes(digest)
	if err != nil {
		return nil, fmt.Errorf("primitives: hash to scalar: %w", err)
	}
	return s, nil
}

// montgomeryToEdwards recovers the compressed Edwards encoding of the
// point whose Montgomery u-coordinate is u, selecting the sign requested
// by signBit (the high bit of the returned encoding).
func montgomeryToEdwards(u [X25519KeySize]byte, signBit byte) ([]byte, error) {
	var uElem, one, num, den, y field.Element
	if _, err := uElem.SetBytes(u[:]); err != nil {
		return nil, fmt.Errorf("primitives: invalid u-coordinate: %w", err)
	}
	one.One()
	num.Subtract(&uElem, &one)
	den.Add(&uElem, &one)
	den.Invert(&den)
	y.Multiply(&num, &den)

	out := y.Bytes()
	out[31] = (out[31] & 0x7F) | signBit
	return out, nil
}
