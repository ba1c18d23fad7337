// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package exchange

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"
)

// TransportError wraps the first transport-level failure reported by
// any sub-client via ClientFailed. It, and StateViolation, are
// terminal for the client instance.
type TransportError struct {
	Location Location
	Cause    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("exchange: transport failure from %s: %v", e.Location, e.Cause)
}

// Unwrap exposes the underlying sub-client error to errors.Is/As.
func (e *TransportError) Unwrap() error { return e.Cause }

// UsageError reports a programming error at the call site, e.g.
// AddLocation after NoMoreLocations. It surfaces at the caller but
// does not poison the client.
type UsageError struct {
	Op  string
	Msg string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("exchange: usage error in %s: %s", e.Op, e.Msg)
}

// StateViolation is a defensive assertion failure, e.g. calling
// PollPage or GetNextPage while holding the façade mutex. No method of
// this package returns it: PollPage and GetNextPage do not check
// whether the caller holds the mutex.
type StateViolation struct {
	Msg string
}

func (e *StateViolation) Error() string {
	return fmt.Sprintf("exchange: state violation: %s", e.Msg)
}

// firstFailure implements compare-and-set, first-writer-wins storage
// of the client's terminal failure. Get takes no lock while no failure
// is recorded and only the small dedicated mutex afterwards, so it can
// be called from fast paths without the façade mutex; TrySet serializes
// writers through a small dedicated mutex (never the façade's) so the
// rare race is a write-write race, not a read tear.
type firstFailure struct {
	mu  sync.Mutex
	set atomic.Bool
	val error
}

// TrySet records err as the failure if none is set yet. It returns
// true if this call won the race.
func (f *firstFailure) TrySet(err error) bool {
	if f.set.Load() {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.set.Load() {
		return false
	}
	f.val = err
	f.set.Store(true)
	return true
}

// Get returns the first failure recorded, or nil if none.
func (f *firstFailure) Get() error {
	if !f.set.Load() {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.val
}
