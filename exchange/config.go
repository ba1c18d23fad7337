// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package exchange

import (
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
)

// Config collects every construction parameter for an ExchangeClient
// (see the public contract table for the semantics each one gates).
// SubClientFactory is the one field with no library-wide default: a
// concrete factory (e.g. pagebuffer.NewFactory) must be supplied,
// since this package deliberately has no opinion on HTTP transport.
type Config struct {
	MaxBufferedBytes            int64
	MaxResponseSize             int64
	ConcurrentRequestMultiplier int64

	MinErrorDuration time.Duration
	MaxErrorDuration time.Duration

	HTTPClient     *http.Client
	Executor       Executor
	MemoryListener MemoryListener

	SubClientFactory SubClientFactory

	Logger Logger
	Clock  clock.Clock
}

// DefaultConfig mirrors the teacher's config-driven defaults
// (forwarder_timeout, forwarder_max_concurrent_requests,
// forwarder_backoff_*) as plain struct field defaults: a library with
// an explicit constructor has no daemon-wide config component to
// source them from at runtime.
func DefaultConfig() Config {
	return Config{
		MaxBufferedBytes:            32 << 20,
		MaxResponseSize:             16 << 20,
		ConcurrentRequestMultiplier: 2,
		MinErrorDuration:            10 * time.Second,
		MaxErrorDuration:            1 * time.Minute,
		HTTPClient:                  http.DefaultClient,
		Executor:                    GoroutineExecutor{},
		MemoryListener:              NopMemoryListener{},
		Logger:                      NopLogger{},
		Clock:                       clock.New(),
	}
}

// withDefaults fills in the zero-valued optional fields of c.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HTTPClient == nil {
		c.HTTPClient = d.HTTPClient
	}
	if c.Executor == nil {
		c.Executor = d.Executor
	}
	if c.MemoryListener == nil {
		c.MemoryListener = d.MemoryListener
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	if c.Clock == nil {
		c.Clock = d.Clock
	}
	if c.ConcurrentRequestMultiplier <= 0 {
		c.ConcurrentRequestMultiplier = d.ConcurrentRequestMultiplier
	}
	return c
}
