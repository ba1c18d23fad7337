// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingListener struct {
	deltas []int64
}

func (r *recordingListener) UpdateSystemMemoryUsage(delta int64) {
	r.deltas = append(r.deltas, delta)
}

func (r *recordingListener) sum() int64 {
	var total int64
	for _, d := range r.deltas {
		total += d
	}
	return total
}

func TestMemoryAccountantForwardsSignedDeltas(t *testing.T) {
	l := &recordingListener{}
	m := NewMemoryAccountant(l)

	m.Reserve(100)
	m.Reserve(50)
	m.Release(100)
	m.Release(50)

	assert.Equal(t, []int64{100, 50, -100, -50}, l.deltas)
	assert.Equal(t, int64(0), l.sum())
	assert.Equal(t, int64(0), m.Applied())
}

func TestMemoryAccountantZeroDeltaIsNoop(t *testing.T) {
	l := &recordingListener{}
	m := NewMemoryAccountant(l)

	m.Reserve(0)
	m.Release(0)

	assert.Empty(t, l.deltas)
}

func TestMemoryAccountantDefaultsToNop(t *testing.T) {
	m := NewMemoryAccountant(nil)
	assert.NotPanics(t, func() {
		m.Reserve(10)
		m.Release(10)
	})
}
