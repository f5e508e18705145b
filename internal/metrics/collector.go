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

package metrics

import (
	"sync"
	"time"
)

// MetricsCollector accumulates in-process latency/throughput samples
// for the engine operations signalcore-bench reports on. It runs
// alongside, not instead of, the Prometheus vectors in the other files
// in this package — this collector is for a one-shot CLI summary,
// Prometheus is for a running process's scrape endpoint.
type MetricsCollector struct {
	mu sync.RWMutex

	// Counters
	HandshakeCount            int64
	RatchetTurnCount          int64
	SuccessfulRatchetTurns    int64
	FailedRatchetTurns        int64
	SealedSenderDecrypts      int64
	SealedSenderValidCerts    int64
	SealedSenderInvalidCerts  int64
	GroupDecrypts             int64
	GroupDecryptErrors        int64

	// Timing metrics (in microseconds)
	HandshakeTimes       []int64
	RatchetTurnTimes     []int64
	GroupDecryptTimes    []int64
	SealedSenderTimes    []int64

	// Start time for uptime calculation
	startTime time.Time

	// Configuration
	maxTimingSamples int
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startTime:        time.Now(),
		maxTimingSamples: 1000, // Keep last 1000 samples for each timing metric
	}
}

// RecordHandshake records a PQXDH handshake (ProcessPreKeyBundle).
func (mc *MetricsCollector) RecordHandshake(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.HandshakeCount++
	mc.recordTiming(&mc.HandshakeTimes, duration)
}

// RecordRatchetTurn records one Double Ratchet encrypt or decrypt.
func (mc *MetricsCollector) RecordRatchetTurn(success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.RatchetTurnCount++
	if success {
		mc.SuccessfulRatchetTurns++
	} else {
		mc.FailedRatchetTurns++
	}
	mc.recordTiming(&mc.RatchetTurnTimes, duration)
}

// RecordSealedSenderDecrypt records a sealed-sender decrypt and
// whether the embedded sender certificate validated.
func (mc *MetricsCollector) RecordSealedSenderDecrypt(certValid bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.SealedSenderDecrypts++
	if certValid {
		mc.SealedSenderValidCerts++
	} else {
		mc.SealedSenderInvalidCerts++
	}
	mc.recordTiming(&mc.SealedSenderTimes, duration)
}

// RecordGroupDecrypt records a sender-key group decrypt.
func (mc *MetricsCollector) RecordGroupDecrypt(success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.GroupDecrypts++
	if !success {
		mc.GroupDecryptErrors++
	}
	mc.recordTiming(&mc.GroupDecryptTimes, duration)
}

// recordTiming records a timing sample
func (mc *MetricsCollector) recordTiming(timings *[]int64, duration time.Duration) {
	microseconds := duration.Microseconds()
	*timings = append(*timings, microseconds)

	// Keep only last N samples
	if len(*timings) > mc.maxTimingSamples {
		*timings = (*timings)[len(*timings)-mc.maxTimingSamples:]
	}
}

// GetSnapshot returns a snapshot of current metrics
func (mc *MetricsCollector) GetSnapshot() *MetricsSnapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return &MetricsSnapshot{
		Timestamp:                time.Now(),
		Uptime:                   time.Since(mc.startTime),
		HandshakeCount:           mc.HandshakeCount,
		RatchetTurnCount:         mc.RatchetTurnCount,
		SuccessfulRatchetTurns:   mc.SuccessfulRatchetTurns,
		FailedRatchetTurns:       mc.FailedRatchetTurns,
		SealedSenderDecrypts:     mc.SealedSenderDecrypts,
		SealedSenderValidCerts:   mc.SealedSenderValidCerts,
		SealedSenderInvalidCerts: mc.SealedSenderInvalidCerts,
		GroupDecrypts:            mc.GroupDecrypts,
		GroupDecryptErrors:       mc.GroupDecryptErrors,
		AvgHandshakeTime:         calculateAverage(mc.HandshakeTimes),
		AvgRatchetTurnTime:       calculateAverage(mc.RatchetTurnTimes),
		AvgGroupDecryptTime:      calculateAverage(mc.GroupDecryptTimes),
		AvgSealedSenderTime:      calculateAverage(mc.SealedSenderTimes),
		P95HandshakeTime:         calculatePercentile(mc.HandshakeTimes, 95),
		P95RatchetTurnTime:       calculatePercentile(mc.RatchetTurnTimes, 95),
		P95GroupDecryptTime:      calculatePercentile(mc.GroupDecryptTimes, 95),
		P95SealedSenderTime:      calculatePercentile(mc.SealedSenderTimes, 95),
	}
}

// Reset resets all metrics
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.HandshakeCount = 0
	mc.RatchetTurnCount = 0
	mc.SuccessfulRatchetTurns = 0
	mc.FailedRatchetTurns = 0
	mc.SealedSenderDecrypts = 0
	mc.SealedSenderValidCerts = 0
	mc.SealedSenderInvalidCerts = 0
	mc.GroupDecrypts = 0
	mc.GroupDecryptErrors = 0

	mc.HandshakeTimes = nil
	mc.RatchetTurnTimes = nil
	mc.GroupDecryptTimes = nil
	mc.SealedSenderTimes = nil

	mc.startTime = time.Now()
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	Timestamp time.Time
	Uptime    time.Duration

	// Counters
	HandshakeCount           int64
	RatchetTurnCount         int64
	SuccessfulRatchetTurns   int64
	FailedRatchetTurns       int64
	SealedSenderDecrypts     int64
	SealedSenderValidCerts   int64
	SealedSenderInvalidCerts int64
	GroupDecrypts            int64
	GroupDecryptErrors       int64

	// Timing averages (microseconds)
	AvgHandshakeTime    float64
	AvgRatchetTurnTime  float64
	AvgGroupDecryptTime float64
	AvgSealedSenderTime float64

	// 95th percentile timings (microseconds)
	P95HandshakeTime    int64
	P95RatchetTurnTime  int64
	P95GroupDecryptTime int64
	P95SealedSenderTime int64
}

// GetRatchetTurnSuccessRate returns the ratchet turn success rate as a percentage
func (ms *MetricsSnapshot) GetRatchetTurnSuccessRate() float64 {
	if ms.RatchetTurnCount == 0 {
		return 0
	}
	return float64(ms.SuccessfulRatchetTurns) / float64(ms.RatchetTurnCount) * 100
}

// GetSealedSenderValidRate returns the fraction of sealed-sender
// decrypts whose embedded certificate validated, as a percentage.
func (ms *MetricsSnapshot) GetSealedSenderValidRate() float64 {
	total := ms.SealedSenderValidCerts + ms.SealedSenderInvalidCerts
	if total == 0 {
		return 0
	}
	return float64(ms.SealedSenderValidCerts) / float64(total) * 100
}

// GetGroupDecryptErrorRate returns the group decrypt error rate as a percentage
func (ms *MetricsSnapshot) GetGroupDecryptErrorRate() float64 {
	if ms.GroupDecrypts == 0 {
		return 0
	}
	return float64(ms.GroupDecryptErrors) / float64(ms.GroupDecrypts) * 100
}

// Helper functions

func calculateAverage(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum int64
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func calculatePercentile(values []int64, percentile int) int64 {
	if len(values) == 0 {
		return 0
	}

	// Simple implementation - for production, use a proper percentile algorithm
	// This is an approximation
	index := len(values) * percentile / 100
	if index >= len(values) {
		index = len(values) - 1
	}

	// Create a copy and sort (simple bubble sort for small datasets)
	sorted := make([]int64, len(values))
	copy(sorted, values)

	for i := 0; i < len(sorted)-1; i++ {
		for j := 0; j < len(sorted)-i-1; j++ {
			if sorted[j] > sorted[j+1] {
				sorted[j], sorted[j+1] = sorted[j+1], sorted[j]
			}
		}
	}

	return sorted[index]
}

// Global metrics collector instance
var globalCollector = NewMetricsCollector()

// GetGlobalCollector returns the global metrics collector
func GetGlobalCollector() *MetricsCollector {
	return globalCollector
}
