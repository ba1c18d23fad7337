// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package exchange

// Executor dispatches a function for execution. The default sub-client
// uses it to run HTTP fetches off whatever goroutine called
// ScheduleRequest, so that ScheduleRequest itself — called with the
// façade mutex held — never blocks.
type Executor interface {
	Go(fn func())
}

// GoroutineExecutor runs every submitted function on its own
// goroutine. It is the production default.
type GoroutineExecutor struct{}

// Go implements Executor.
func (GoroutineExecutor) Go(fn func()) { go fn() }

// SyncExecutor runs submitted functions inline on the caller's
// goroutine. It exists for deterministic tests; wiring it to a real
// PageBufferSubClient would violate ScheduleRequest's non-blocking
// contract.
type SyncExecutor struct{}

// Go implements Executor.
func (SyncExecutor) Go(fn func()) { fn() }
