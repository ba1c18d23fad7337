// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package backoff implements the exponential retry envelope the
// default PageBufferSubClient uses between attempts against a single
// endpoint. It is rebuilt from the teacher's ExpBackoffPolicy contract
// (see blocked_endpoints_test.go: MinBackoffFactor, BaseBackoffTime,
// MaxBackoffTime, RecoveryInterval, MaxErrors) since the pack retained
// only that package's tests, not its implementation. Here it is
// generalized to the exchange spec's two-duration envelope
// (MinErrorDuration, MaxErrorDuration) instead of the teacher's
// config-sourced factor/base/max trio.
package backoff

import "time"

// Policy computes an increasing delay as consecutive failures for a
// single endpoint accumulate, clamped to [minDuration, maxDuration].
// It is the same shape as the teacher's ExpBackoffPolicy: delay grows
// by MinBackoffFactor per error until MaxErrors is reached, at which
// point every further error is clamped at MaxBackoffTime.
type Policy struct {
	minDuration time.Duration
	maxDuration time.Duration

	// minBackoffFactor is the exponent base; the teacher defaults this
	// to 2 and the default here matches it.
	minBackoffFactor float64
	maxErrors        int
}

// NewPolicy builds a Policy whose first error waits minDuration and
// whose delay saturates at maxDuration. A non-positive minDuration
// recovers to 10s and a non-positive maxDuration to 1m; an inverted
// envelope (maxDuration below minDuration) recovers to the whole 10s/1m
// default, mirroring the teacher's "invalid values recover gracefully"
// contract.
func NewPolicy(minDuration, maxDuration time.Duration) *Policy {
	if minDuration <= 0 {
		minDuration = 10 * time.Second
	}
	if maxDuration <= 0 {
		maxDuration = 60 * time.Second
	}
	if maxDuration < minDuration {
		minDuration, maxDuration = 10*time.Second, 60*time.Second
	}

	p := &Policy{
		minDuration:      minDuration,
		maxDuration:      maxDuration,
		minBackoffFactor: 2,
	}
	p.maxErrors = p.errorsToSaturate()
	return p
}

// errorsToSaturate returns the smallest nbError at which Delay no
// longer grows, i.e. the smallest nbError for which
// minDuration * factor^(nbError-1) >= maxDuration.
func (p *Policy) errorsToSaturate() int {
	n := 0
	d := p.minDuration
	for d < p.maxDuration && n < 1000 {
		d = time.Duration(float64(d) * p.minBackoffFactor)
		n++
	}
	return n + 1
}

// Delay returns the backoff duration for the nbError-th consecutive
// failure (1-indexed, matching the teacher's getBackoffDuration(i)).
// nbError <= 0 returns zero.
func (p *Policy) Delay(nbError int) time.Duration {
	if nbError <= 0 {
		return 0
	}
	if nbError >= p.maxErrors {
		return p.maxDuration
	}
	d := float64(p.minDuration) * pow(p.minBackoffFactor, float64(nbError-1))
	if d > float64(p.maxDuration) {
		return p.maxDuration
	}
	return time.Duration(d)
}

// MaxErrors returns the error count at which Delay saturates.
func (p *Policy) MaxErrors() int {
	return p.maxErrors
}

func pow(base, exp float64) float64 {
	result := 1.0
	for i := 0; i < int(exp); i++ {
		result *= base
	}
	return result
}
