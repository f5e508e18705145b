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

package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sage-x-project/signalcore/crypto/keys"
	"github.com/sage-x-project/signalcore/internal/metrics"
	"github.com/sage-x-project/signalcore/protocol/address"
	"github.com/sage-x-project/signalcore/protocol/store"
	"github.com/sage-x-project/signalcore/session"
)

var (
	turns       int
	payloadSize int
)

var ratchetCmd = &cobra.Command{
	Use:   "ratchet",
	Short: "Run a loopback PQXDH handshake and N Double Ratchet turns",
	Long: `ratchet constructs two in-process peers, runs a single PQXDH
handshake between them (ProcessPreKeyBundle + the first PreKeySignalMessage),
then alternates Encrypt/Decrypt turns between the peers, recording latency
and throughput for both phases.`,
	Example: "signalcore-bench ratchet --turns 5000 --payload-size 256",
	RunE:    runRatchet,
}

func init() {
	rootCmd.AddCommand(ratchetCmd)
	ratchetCmd.Flags().IntVar(&turns, "turns", 1000, "number of alternating encrypt/decrypt turns to run")
	ratchetCmd.Flags().IntVar(&payloadSize, "payload-size", 128, "plaintext payload size in bytes")
}

type benchPeer struct {
	identity *keys.IdentityKeyPair
	cipher   *session.Cipher
}

func newBenchPeer(registrationID uint32) (*benchPeer, error) {
	identity, err := keys.GenerateIdentityKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}
	return &benchPeer{
		identity: identity,
		cipher: &session.Cipher{
			IdentityStore:       store.NewMemoryIdentityKeyStore(identity, registrationID),
			PreKeyStore:         store.NewMemoryPreKeyStore(),
			SignedPreKeyStore:   store.NewMemorySignedPreKeyStore(),
			KyberPreKeyStore:    store.NewMemoryKyberPreKeyStore(),
			SessionStore:        session.NewMemoryStore(),
			LocalIdentity:       identity,
			LocalRegistrationID: registrationID,
		},
	}, nil
}

// publishBundle builds a one-time prekey bundle for p the way a directory
// service would hand it to an initiator.
func publishBundle(ctx context.Context, p *benchPeer) (keys.PreKeyBundle, error) {
	oneTime, err := keys.GeneratePreKey(1)
	if err != nil {
		return keys.PreKeyBundle{}, err
	}
	if err := p.cipher.PreKeyStore.StorePreKey(ctx, 1, oneTime); err != nil {
		return keys.PreKeyBundle{}, err
	}

	signed, err := keys.GenerateSignedPreKey(1, uint64(time.Now().UnixMilli()), p.identity)
	if err != nil {
		return keys.PreKeyBundle{}, err
	}
	if err := p.cipher.SignedPreKeyStore.StoreSignedPreKey(ctx, 1, signed); err != nil {
		return keys.PreKeyBundle{}, err
	}
	signedPub := signed.Public()
	signedSig, err := p.identity.Sign(signedPub[:])
	if err != nil {
		return keys.PreKeyBundle{}, err
	}

	kyber, err := keys.GenerateKyberPreKey(1, uint64(time.Now().UnixMilli()), p.identity)
	if err != nil {
		return keys.PreKeyBundle{}, err
	}
	if err := p.cipher.KyberPreKeyStore.StoreKyberPreKey(ctx, 1, kyber); err != nil {
		return keys.PreKeyBundle{}, err
	}
	kyberPub, err := kyber.PublicBytes()
	if err != nil {
		return keys.PreKeyBundle{}, err
	}
	kyberSig, err := p.identity.Sign(kyberPub)
	if err != nil {
		return keys.PreKeyBundle{}, err
	}

	return keys.PreKeyBundle{
		RegistrationID:        p.cipher.LocalRegistrationID,
		IdentityKey:           p.identity.Public(),
		HasPreKey:             true,
		PreKeyID:              1,
		PreKey:                oneTime.Public(),
		SignedPreKeyID:        1,
		SignedPreKeyPublic:    signedPub,
		SignedPreKeySignature: signedSig,
		HasKyberPreKey:        true,
		KyberPreKeyID:         1,
		KyberPreKeyPublic:     kyberPub,
		KyberPreKeySignature:  kyberSig,
	}, nil
}

func runRatchet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	collector := metrics.NewMetricsCollector()

	initiator, err := newBenchPeer(1)
	if err != nil {
		return err
	}
	responder, err := newBenchPeer(2)
	if err != nil {
		return err
	}

	initiatorAddr := address.New("initiator", 1)
	responderAddr := address.New("responder", 1)

	bundle, err := publishBundle(ctx, responder)
	if err != nil {
		return fmt.Errorf("publish bundle: %w", err)
	}

	handshakeStart := time.Now()
	err = session.ProcessPreKeyBundle(ctx, initiator.cipher.IdentityStore, initiator.cipher.SessionStore,
		initiator.identity, initiator.cipher.LocalRegistrationID, responderAddr, bundle)
	collector.RecordHandshake(time.Since(handshakeStart))
	if err != nil {
		return fmt.Errorf("process prekey bundle: %w", err)
	}

	payload := make([]byte, payloadSize)
	if _, err := rand.Read(payload); err != nil {
		return fmt.Errorf("generate payload: %w", err)
	}

	// First turn carries the PreKeySignalMessage wrapper; the responder's
	// DecryptPreKeyMessage call installs the session on its side.
	start := time.Now()
	ciphertext, err := initiator.cipher.Encrypt(ctx, responderAddr, payload)
	success := err == nil
	if err == nil {
		_, err = responder.cipher.DecryptPreKeyMessage(ctx, initiatorAddr, ciphertext)
		success = err == nil
	}
	collector.RecordRatchetTurn(success, time.Since(start))
	if err != nil {
		return fmt.Errorf("first ratchet turn: %w", err)
	}

	from, to := responder, initiator
	fromAddr, toAddr := responderAddr, initiatorAddr
	wallClockStart := time.Now()
	for i := 1; i < turns; i++ {
		start := time.Now()
		ciphertext, encErr := from.cipher.Encrypt(ctx, toAddr, payload)
		success := encErr == nil
		if encErr == nil {
			_, decErr := to.cipher.Decrypt(ctx, fromAddr, ciphertext)
			success = decErr == nil
			err = decErr
		} else {
			err = encErr
		}
		collector.RecordRatchetTurn(success, time.Since(start))
		if err != nil {
			return fmt.Errorf("ratchet turn %d: %w", i, err)
		}
		from, to = to, from
		fromAddr, toAddr = toAddr, fromAddr
	}
	elapsed := time.Since(wallClockStart)

	printSummary(cmd, collector.GetSnapshot(), elapsed)
	return nil
}

func printSummary(cmd *cobra.Command, snap *metrics.MetricsSnapshot, turnsElapsed time.Duration) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "handshake: count=%d avg=%.0fus p95=%dus\n",
		snap.HandshakeCount, snap.AvgHandshakeTime, snap.P95HandshakeTime)
	fmt.Fprintf(out, "ratchet turns: count=%d success_rate=%.2f%% avg=%.0fus p95=%dus\n",
		snap.RatchetTurnCount, snap.GetRatchetTurnSuccessRate(), snap.AvgRatchetTurnTime, snap.P95RatchetTurnTime)
	if turnsElapsed > 0 && snap.RatchetTurnCount > 1 {
		throughput := float64(snap.RatchetTurnCount-1) / turnsElapsed.Seconds()
		fmt.Fprintf(out, "throughput: %.1f turns/sec\n", throughput)
	}
}
