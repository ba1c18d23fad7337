// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package exchange

import "go.uber.org/atomic"

// MemoryListener is the external system-memory tracker. Deltas must
// sum to zero over a client's lifetime after its final Close.
// Implementations must tolerate concurrent calls: positive deltas are
// applied under the façade mutex, negative ones on the polling
// goroutine outside of it.
type MemoryListener interface {
	UpdateSystemMemoryUsage(delta int64)
}

// NopMemoryListener discards every delta; the default when no
// listener is configured.
type NopMemoryListener struct{}

// UpdateSystemMemoryUsage implements MemoryListener.
func (NopMemoryListener) UpdateSystemMemoryUsage(int64) {}

// MemoryAccountant forwards signed byte deltas to a MemoryListener.
// It is a thin adapter; the running total it keeps is only used so
// tests can assert deltas net to zero without reaching into the
// listener's own state.
type MemoryAccountant struct {
	listener MemoryListener
	applied  atomic.Int64
}

// NewMemoryAccountant wraps listener, defaulting to a no-op.
func NewMemoryAccountant(listener MemoryListener) *MemoryAccountant {
	if listener == nil {
		listener = NopMemoryListener{}
	}
	return &MemoryAccountant{listener: listener}
}

// Reserve applies a positive delta for bytes newly enqueued.
func (m *MemoryAccountant) Reserve(bytes int64) {
	if bytes == 0 {
		return
	}
	m.applied.Add(bytes)
	m.listener.UpdateSystemMemoryUsage(bytes)
}

// Release applies a negative delta for bytes dequeued or returned to
// the pool at Close.
func (m *MemoryAccountant) Release(bytes int64) {
	if bytes == 0 {
		return
	}
	m.applied.Add(-bytes)
	m.listener.UpdateSystemMemoryUsage(-bytes)
}

// Applied returns the running sum of deltas forwarded so far; it
// should be zero at any quiescent point after a final Close.
func (m *MemoryAccountant) Applied() int64 {
	return m.applied.Load()
}
