// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewPolicyRecoversInvalidDurations(t *testing.T) {
	p := NewPolicy(0, 0)
	assert.Equal(t, 10*time.Second, p.Delay(1))
	assert.Equal(t, 60*time.Second, p.Delay(p.MaxErrors()))
}

func TestNewPolicyRecoversWhenMaxBelowMin(t *testing.T) {
	p := NewPolicy(30*time.Second, 5*time.Second)
	assert.Equal(t, 10*time.Second, p.Delay(1))
}

func TestDelayZeroOrNegativeErrorsIsZero(t *testing.T) {
	p := NewPolicy(10*time.Second, time.Minute)
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, time.Duration(0), p.Delay(-1))
}

func TestDelayGrowsByFactorThenSaturates(t *testing.T) {
	p := NewPolicy(10*time.Second, time.Minute)

	assert.Equal(t, 10*time.Second, p.Delay(1))
	assert.Equal(t, 20*time.Second, p.Delay(2))
	assert.Equal(t, 40*time.Second, p.Delay(3))

	// 10s * 2^3 = 80s > 60s max: saturates.
	assert.Equal(t, time.Minute, p.Delay(4))
	assert.Equal(t, time.Minute, p.Delay(1000))
}

func TestMaxErrorsIsTheSaturationPoint(t *testing.T) {
	p := NewPolicy(10*time.Second, time.Minute)
	n := p.MaxErrors()
	assert.GreaterOrEqual(t, n, 1)
	assert.Equal(t, p.maxDuration, p.Delay(n))
}
