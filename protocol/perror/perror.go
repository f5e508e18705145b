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

// Package perror collects the error taxonomy shared by the pairwise
// session, group, and sealed-sender engines. Every engine failure is one
// of the Kinds below, wrapped with the operation that raised it; callers
// use errors.Is against the Kind sentinels and errors.As against *Error
// to recover the offending identifier.
package perror

import (
	"errors"
	"fmt"
)

// Kind classifies an error by what went wrong, independent of which
// engine or operation raised it.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindInvalidSerialization
	KindInvalidSignature
	KindInvalidMAC
	KindUntrustedIdentity
	KindNoSession
	KindDuplicateMessage
	KindMessageTooFarAhead
	KindSessionNotFound
	KindKeyNotFound
	KindCertificateExpired
	KindCertificateInvalid
	KindSelfSender
	KindPolicyVersionMismatch
	KindStoreError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid-argument"
	case KindInvalidSerialization:
		return "invalid-serialization"
	case KindInvalidSignature:
		return "invalid-signature"
	case KindInvalidMAC:
		return "invalid-mac"
	case KindUntrustedIdentity:
		return "untrusted-identity"
	case KindNoSession:
		return "no-session"
	case KindDuplicateMessage:
		return "duplicate-message"
	case KindMessageTooFarAhead:
		return "message-too-far-ahead"
	case KindSessionNotFound:
		return "session-not-found"
	case KindKeyNotFound:
		return "key-not-found"
	case KindCertificateExpired:
		return "certificate-expired"
	case KindCertificateInvalid:
		return "certificate-invalid"
	case KindSelfSender:
		return "self-sender"
	case KindPolicyVersionMismatch:
		return "policy-version-mismatch"
	case KindStoreError:
		return "store-error"
	default:
		return "unknown"
	}
}

// Sentinel errors for the taxonomy in §7. errors.Is(err, ErrInvalidMAC)
// works whether err is one of these directly or an *Error wrapping one.
var (
	ErrInvalidArgument        = errors.New("perror: invalid argument")
	ErrInvalidSerialization   = errors.New("perror: invalid serialization")
	ErrInvalidSignature       = errors.New("perror: invalid signature")
	ErrInvalidMAC             = errors.New("perror: invalid mac")
	ErrUntrustedIdentity      = errors.New("perror: untrusted identity")
	ErrNoSession              = errors.New("perror: no session")
	ErrDuplicateMessage       = errors.New("perror: duplicate message")
	ErrMessageTooFarAhead     = errors.New("perror: message too far ahead")
	ErrSessionNotFound        = errors.New("perror: session not found")
	ErrKeyNotFound            = errors.New("perror: key not found")
	ErrCertificateExpired     = errors.New("perror: certificate expired")
	ErrCertificateInvalid     = errors.New("perror: certificate invalid")
	ErrSelfSender             = errors.New("perror: self sender")
	ErrPolicyVersionMismatch  = errors.New("perror: policy version mismatch")
	ErrStoreError             = errors.New("perror: store error")
)

var kindSentinels = map[Kind]error{
	KindInvalidArgument:       ErrInvalidArgument,
	KindInvalidSerialization:  ErrInvalidSerialization,
	KindInvalidSignature:      ErrInvalidSignature,
	KindInvalidMAC:            ErrInvalidMAC,
	KindUntrustedIdentity:     ErrUntrustedIdentity,
	KindNoSession:             ErrNoSession,
	KindDuplicateMessage:      ErrDuplicateMessage,
	KindMessageTooFarAhead:    ErrMessageTooFarAhead,
	KindSessionNotFound:       ErrSessionNotFound,
	KindKeyNotFound:           ErrKeyNotFound,
	KindCertificateExpired:    ErrCertificateExpired,
	KindCertificateInvalid:    ErrCertificateInvalid,
	KindSelfSender:            ErrSelfSender,
	KindPolicyVersionMismatch: ErrPolicyVersionMismatch,
	KindStoreError:            ErrStoreError,
}

// Error is the typed wrapper every engine-level failure is returned as.
// Op names the API call that failed (e.g. "session.Decrypt"), Kind
// classifies the failure, Detail names the offending identifier (a
// pre-key id, a chain_id, an address) when one applies, and Err is the
// underlying cause when the failure originated below this package (a
// store error, a malformed-protobuf error).
type Error struct {
	Op     string
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return kindSentinels[e.Kind]
}

// Is lets errors.Is(err, perror.ErrInvalidMAC) succeed against an *Error
// carrying KindInvalidMAC even when Err is a different underlying cause.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// New builds an *Error for op/kind with no further detail or cause.
func New(op string, kind Kind) *Error {
	return &Error{Op: op, Kind: kind}
}

// Newf builds an *Error for op/kind carrying a formatted detail string.
func Newf(op string, kind Kind, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error for op/kind that chains an underlying cause
// (typically a store error or a lower-level parse error).
func Wrap(op string, kind Kind, err error) *Error {
	if err == nil {
		return New(op, kind)
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error,
// returning KindUnknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
