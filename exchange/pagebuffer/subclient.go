// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package pagebuffer provides the default PageBufferSubClient: a
// concrete per-endpoint HTTP fetcher implementing exchange.SubClient.
// The exchange package itself treats the sub-client as an external
// collaborator whose contract, not implementation, matters; this
// package supplies one concrete implementation so the façade can be
// exercised end to end, the way the teacher's concrete Worker is the
// thing domainForwarder actually dispatches to.
package pagebuffer

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"

	"github.com/seazod/presto-exchange/exchange"
	"github.com/seazod/presto-exchange/exchange/internal/backoff"
)

// Client fetches pages from a single remote endpoint over HTTP,
// retrying transient failures with an exponential backoff envelope
// before escalating to ClientFailed once MaxErrorDuration of
// continuous failure has elapsed.
type Client struct {
	loc      exchange.Location
	http     *http.Client
	maxResp  int64
	callback exchange.SubClientCallback
	executor exchange.Executor
	logger   exchange.Logger
	clk      clock.Clock

	maxErrorDuration time.Duration
	backoffPolicy    *backoff.Policy

	// sem bounds the number of concurrent in-flight requests this
	// single sub-client will issue against its own endpoint; the
	// façade's scheduler bounds how many sub-clients are dispatched at
	// once, this bounds duplicate dispatch to the same one.
	sem *semaphore.Weighted

	mu           sync.Mutex
	nbErrors     int
	firstErrorAt time.Time

	requests atomic.Int64
	closed   atomic.Bool
}

// New constructs a Client for loc, wired to cb, using cfg's HTTP
// client, executor, clock, logger, and retry envelope.
func New(loc exchange.Location, cb exchange.SubClientCallback, cfg exchange.Config) *Client {
	return &Client{
		loc:              loc,
		http:             cfg.HTTPClient,
		maxResp:          cfg.MaxResponseSize,
		callback:         cb,
		executor:         cfg.Executor,
		logger:           cfg.Logger,
		clk:              cfg.Clock,
		maxErrorDuration: cfg.MaxErrorDuration,
		backoffPolicy:    backoff.NewPolicy(cfg.MinErrorDuration, cfg.MaxErrorDuration),
		sem:              semaphore.NewWeighted(1),
	}
}

// NewFactory returns an exchange.SubClientFactory that builds Clients
// sharing cfg's transport, executor, clock, and retry envelope.
func NewFactory(cfg exchange.Config) exchange.SubClientFactory {
	return func(loc exchange.Location, cb exchange.SubClientCallback) exchange.SubClient {
		return New(loc, cb, cfg)
	}
}

// Location implements exchange.SubClient.
func (c *Client) Location() exchange.Location { return c.loc }

// ScheduleRequest implements exchange.SubClient. It is fire-and-forget:
// the actual HTTP call runs on c.executor, never on the caller's
// goroutine.
func (c *Client) ScheduleRequest() {
	c.executor.Go(c.doRequest)
}

func (c *Client) doRequest() {
	if c.closed.Load() {
		return
	}
	if !c.sem.TryAcquire(1) {
		// Already have a request in flight for this endpoint; let the
		// scheduler try again once it completes.
		return
	}
	defer c.sem.Release(1)

	req, err := http.NewRequest(http.MethodGet, string(c.loc), nil)
	if err != nil {
		c.fail(err)
		return
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.retryOrFail(err)
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		c.resetErrors()
		c.callback.ClientFinished(c)
		return
	case resp.StatusCode != http.StatusOK:
		c.retryOrFail(fmt.Errorf("pagebuffer: unexpected status %d from %s", resp.StatusCode, c.loc))
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResp))
	if err != nil {
		c.retryOrFail(err)
		return
	}
	c.resetErrors()
	c.requests.Add(1)

	page := &exchange.Page{
		Data:                body,
		SizeInBytes:         int64(len(body)),
		RetainedSizeInBytes: int64(cap(body)),
	}

	if len(body) == 0 {
		// An empty, non-204 response still counts as a successful,
		// zero-page request per the spec's EWMA/successful_requests
		// semantics.
		if !c.callback.AddPages(c, nil) {
			return
		}
		c.callback.RequestComplete(c)
		return
	}

	if !c.callback.AddPages(c, []*exchange.Page{page}) {
		return
	}
	c.callback.RequestComplete(c)
}

func (c *Client) resetErrors() {
	c.mu.Lock()
	c.nbErrors = 0
	c.firstErrorAt = time.Time{}
	c.mu.Unlock()
}

func (c *Client) retryOrFail(err error) {
	c.mu.Lock()
	c.nbErrors++
	n := c.nbErrors
	if c.firstErrorAt.IsZero() {
		c.firstErrorAt = c.clk.Now()
	}
	elapsed := c.clk.Now().Sub(c.firstErrorAt)
	c.mu.Unlock()

	if elapsed >= c.maxErrorDuration {
		c.fail(err)
		return
	}

	delay := c.backoffPolicy.Delay(n)
	c.logger.Warnf("pagebuffer: %s request failed (%v), retrying in %s", c.loc, err, delay)

	timer := c.clk.Timer(delay)
	c.executor.Go(func() {
		<-timer.C
		c.ScheduleRequest()
	})
}

func (c *Client) fail(err error) {
	if c.closed.Swap(true) {
		return
	}
	c.callback.ClientFailed(c, err)
}

// Close implements exchange.SubClient.
func (c *Client) Close() error {
	c.closed.Store(true)
	return nil
}

// Status implements exchange.SubClient.
func (c *Client) Status() exchange.SubClientStatus {
	return exchange.SubClientStatus{
		Location: c.loc,
		Requests: c.requests.Load(),
	}
}
