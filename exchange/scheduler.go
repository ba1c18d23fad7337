// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package exchange

// computeDispatchTarget implements the core arithmetic of §4.5: the
// target number of sub-clients to have in flight, scaled by
// bytes-in-flight rather than a fixed parallelism. It is a pure
// function so it can be unit-tested without constructing a façade.
//
// neededBytes is max_buffered_bytes - buffer_bytes (already known to
// be positive by the caller). avgBytesPerRequest is the running mean
// response size, treated as 1 when it is not yet known (zero).
// multiplier scales the ratio; pendingCount is subtracted from the
// result. The return value is floor-clamped to at least 1 before
// pendingCount is subtracted, matching the original spec's "floor-
// clamped to 1" step preceding the in-flight subtraction.
func computeDispatchTarget(neededBytes, avgBytesPerRequest, multiplier, pendingCount int64) int64 {
	if avgBytesPerRequest <= 0 {
		avgBytesPerRequest = 1
	}
	target := int64(float64(neededBytes) / float64(avgBytesPerRequest) * float64(multiplier))
	if target < 1 {
		target = 1
	}
	return target - pendingCount
}

// scheduleLocked is the adaptive dispatcher. It must be called with
// c.mu held and must never block: sub-client ScheduleRequest calls are
// fire-and-forget by contract, so the façade lock is safely held
// across them.
func (c *ExchangeClient) scheduleLocked() {
	if c.closed.Load() {
		return
	}
	if c.failure.Get() != nil {
		return
	}

	if c.noMoreLocations && c.registry.AllCompleted() {
		c.queue.AppendSentinelIfAbsent()
		if head, ok := c.queue.PeekHead(); ok && IsSentinel(head) {
			c.closed.Store(true)
		}
		c.blocked.NotifyAll()
		return
	}

	needed := c.config.MaxBufferedBytes - c.bufferBytes.Load()
	if needed <= 0 {
		return
	}

	target := computeDispatchTarget(
		needed,
		c.averageBytesPerRequest.Load(),
		c.config.ConcurrentRequestMultiplier,
		int64(c.registry.PendingCount()),
	)

	for i := int64(0); i < target; i++ {
		sc, ok := c.registry.PopQueued()
		if !ok {
			return
		}
		c.registry.MarkPending(sc.Location())
		c.logger.Debugf("exchange: dispatching request to %s", sc.Location())
		sc.ScheduleRequest()
	}
}
