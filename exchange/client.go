// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package exchange implements a distributed exchange client: the
// consumer side of a massively parallel query engine's shuffle,
// pulling serialized pages from many remote producer endpoints over
// HTTP, buffering them against a global byte budget, and handing them
// to a single downstream consumer in arrival order.
package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rcrowley/go-metrics"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// ExchangeClient is the façade tying together the page queue, memory
// accountant, sub-client registry, blocked-caller set, and adaptive
// scheduler. A single coarse-grained mutex protects every piece of
// mutable state except the page queue itself (which has its own
// internal synchronization) and the closed/failure flags (atomic, so
// fast-path reads never need the mutex).
type ExchangeClient struct {
	config Config
	logger Logger

	mu              sync.Mutex
	registry        *SubClientRegistry
	noMoreLocations bool

	queue   *PageQueue
	mem     *MemoryAccountant
	blocked *BlockedCallers

	closed  atomic.Bool
	failure firstFailure

	bufferBytes            atomic.Int64
	successfulRequests     atomic.Int64
	averageBytesPerRequest atomic.Int64

	metricsRegistry metrics.Registry
	metricAvg       metrics.GaugeFloat64
	metricSuccess   metrics.Counter
	metricCleared   metrics.Counter
}

// NewExchangeClient constructs a client from cfg. cfg.SubClientFactory
// must be set (see pagebuffer.NewFactory for the production default).
// HTTPClient, Executor, MemoryListener, Logger and Clock fall back to
// DefaultConfig's values when nil, and ConcurrentRequestMultiplier when
// not positive; MaxBufferedBytes, MaxResponseSize, MinErrorDuration and
// MaxErrorDuration are used exactly as given, zero included.
func NewExchangeClient(cfg Config) *ExchangeClient {
	cfg = cfg.withDefaults()

	c := &ExchangeClient{
		config:          cfg,
		logger:          cfg.Logger,
		registry:        NewSubClientRegistry(),
		queue:           NewPageQueue(cfg.Clock),
		mem:             NewMemoryAccountant(cfg.MemoryListener),
		blocked:         NewBlockedCallers(),
		metricsRegistry: metrics.NewRegistry(),
	}
	c.metricAvg = metrics.NewRegisteredGaugeFloat64("average-bytes-per-request", c.metricsRegistry)
	c.metricSuccess = metrics.NewRegisteredCounter("successful-requests", c.metricsRegistry)
	c.metricCleared = metrics.NewRegisteredCounter("cleared-pages-on-close", c.metricsRegistry)
	return c
}

// Metrics exposes the client's private go-metrics registry so callers
// can attach their own reporter (graphite, expvar, log dump, ...)
// without this package taking an opinion on how metrics are shipped.
func (c *ExchangeClient) Metrics() metrics.Registry {
	return c.metricsRegistry
}

// AddLocation registers a new endpoint. Duplicate locations are
// silently ignored. It fails with a *UsageError if NoMoreLocations has
// already been called, and is a silent no-op once the client is
// closed.
func (c *ExchangeClient) AddLocation(loc Location) error {
	if c.closed.Load() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil
	}
	if c.noMoreLocations {
		return &UsageError{Op: "AddLocation", Msg: fmt.Sprintf("no_more_locations already called, cannot add %s", loc)}
	}

	sc := c.config.SubClientFactory(loc, c)
	if c.registry.Add(loc, sc) {
		c.logger.Debugf("exchange: added location %s", loc)
	}
	c.scheduleLocked()
	return nil
}

// NoMoreLocations freezes the endpoint set and triggers the terminal
// check. It is idempotent.
func (c *ExchangeClient) NoMoreLocations() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.noMoreLocations {
		return
	}
	c.noMoreLocations = true
	c.scheduleLocked()
}

// PollPage returns the next page without blocking, or (nil, nil) if
// none is available yet, or (nil, nil) once the client is closed, or
// (nil, err) if the client has failed and nothing is buffered.
func (c *ExchangeClient) PollPage() (*Page, error) {
	if c.closed.Load() {
		return nil, nil
	}

	p, ok := c.queue.Poll()
	if !ok {
		return nil, c.failure.Get()
	}
	return c.consumePage(p)
}

// GetNextPage blocks up to maxWait for a page. It only waits if at
// least one endpoint is registered and maxWait is at least 1ms;
// otherwise it behaves like PollPage. It is cancellable by Close.
//
// Precondition: the caller must not hold any lock this package could
// need re-entrantly; in particular it must never be called while
// holding the façade mutex.
func (c *ExchangeClient) GetNextPage(maxWait time.Duration) (*Page, error) {
	if p, err := c.PollPage(); p != nil || err != nil {
		return p, err
	}
	if c.closed.Load() {
		return nil, nil
	}

	c.mu.Lock()
	registered := c.registry.Len()
	c.mu.Unlock()

	if registered == 0 || maxWait < time.Millisecond {
		return nil, nil
	}

	p, ok := c.queue.PollWithTimeout(maxWait)
	if !ok {
		return nil, c.failure.Get()
	}
	return c.consumePage(p)
}

// consumePage applies the sentinel-vs-real-page handling shared by
// PollPage and GetNextPage.
func (c *ExchangeClient) consumePage(p *Page) (*Page, error) {
	if IsSentinel(p) {
		c.closed.Store(true)
		c.queue.AppendSentinelIfAbsent()

		c.mu.Lock()
		c.blocked.NotifyAll()
		c.mu.Unlock()

		return nil, c.failure.Get()
	}

	c.bufferBytes.Sub(p.RetainedSizeInBytes)
	c.mem.Release(p.RetainedSizeInBytes)

	c.mu.Lock()
	c.scheduleLocked()
	c.mu.Unlock()

	return p, nil
}

// IsBlocked returns a channel that is already closed if a page is
// available, the client is closed, or it has failed; otherwise the
// channel is completed by the next page arrival, Close, or failure.
//
// The closed/failed/available check and the signal registration must
// happen as one atomic step under c.mu: every writer that could make
// one of those three conditions true (AddPages, ClientFailed, Close,
// the sentinel branch of consumePage) also calls blocked.NotifyAll
// while still holding c.mu, so a signal handed out here can never miss
// a notification that already happened-before it was registered.
func (c *ExchangeClient) IsBlocked() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() || c.failure.Get() != nil {
		return closedSignal
	}
	if _, ok := c.queue.PeekHead(); ok {
		return closedSignal
	}
	return c.blocked.NewSignal()
}

// IsFinished reports whether the client is closed and every
// registered endpoint has completed.
func (c *ExchangeClient) IsFinished() (bool, error) {
	if err := c.failure.Get(); err != nil {
		return false, err
	}
	if !c.closed.Load() {
		return false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.AllCompleted(), nil
}

// IsClosed reports whether the client has reached its terminal state,
// whether by explicit Close or by naturally finishing.
func (c *ExchangeClient) IsClosed() bool {
	return c.closed.Load()
}

// Close is idempotent: it closes every sub-client, clears the queue,
// returns buffered bytes to the memory pool, appends the sentinel if
// absent, and wakes every blocked caller.
func (c *ExchangeClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.mu.Lock()
	clients := c.registry.Clients()
	c.mu.Unlock()

	closeErr := closeAll(clients)

	cleared := c.queue.Clear()
	var freed int64
	pages := 0
	for _, p := range cleared {
		if IsSentinel(p) {
			continue
		}
		freed += p.RetainedSizeInBytes
		pages++
	}
	if freed > 0 {
		c.bufferBytes.Sub(freed)
		c.mem.Release(freed)
	}
	if pages > 0 {
		c.metricCleared.Inc(int64(pages))
	}

	c.queue.AppendSentinelIfAbsent()

	c.mu.Lock()
	c.blocked.NotifyAll()
	c.mu.Unlock()

	return closeErr
}

// closeAll fans Close out across every sub-client concurrently and
// aggregates every non-nil error, rather than surfacing only the
// first one the way errgroup.Group.Wait would on its own.
func closeAll(clients []SubClient) error {
	if len(clients) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		errs *multierror.Error
	)
	g, _ := errgroup.WithContext(context.Background())
	for _, sc := range clients {
		sc := sc
		g.Go(func() error {
			if err := sc.Close(); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs.ErrorOrNil()
}

// AddPages implements SubClientCallback. It enqueues pages, updates
// buffer accounting and the running-mean response size, and returns
// false (telling the sub-client to drop the batch) if the client is
// already closed or failed.
func (c *ExchangeClient) AddPages(sc SubClient, pages []*Page) bool {
	if c.closed.Load() || c.failure.Get() != nil {
		return false
	}

	var batchRetained, batchSize int64
	for _, p := range pages {
		batchRetained += p.RetainedSizeInBytes
		batchSize += p.SizeInBytes
	}

	c.mu.Lock()
	if c.closed.Load() || c.failure.Get() != nil {
		c.mu.Unlock()
		return false
	}

	if len(pages) > 0 {
		c.queue.PushAll(pages)
		c.bufferBytes.Add(batchRetained)
		c.mem.Reserve(batchRetained)
	}

	n := c.successfulRequests.Add(1)
	prevAvg := float64(c.averageBytesPerRequest.Load())
	newAvg := prevAvg*float64(n-1)/float64(n) + float64(batchSize)/float64(n)
	c.averageBytesPerRequest.Store(int64(newAvg))
	c.metricAvg.Update(newAvg)
	c.metricSuccess.Inc(1)

	c.scheduleLocked()
	c.blocked.NotifyAll()
	c.mu.Unlock()

	return true
}

// RequestComplete implements SubClientCallback: sc is ready for
// another request.
func (c *ExchangeClient) RequestComplete(sc SubClient) {
	c.mu.Lock()
	c.registry.MarkQueued(sc.Location())
	c.scheduleLocked()
	c.mu.Unlock()
}

// ClientFinished implements SubClientCallback: sc produced its last
// page.
func (c *ExchangeClient) ClientFinished(sc SubClient) {
	c.mu.Lock()
	c.registry.MarkCompleted(sc.Location())
	c.logger.Debugf("exchange: %s finished", sc.Location())
	c.scheduleLocked()
	c.mu.Unlock()
}

// ClientFailed implements SubClientCallback: sc has exhausted its own
// retry envelope. The first failure wins; close and failure remain
// distinct states, so no transition to closed happens here.
func (c *ExchangeClient) ClientFailed(sc SubClient, cause error) {
	if c.failure.TrySet(&TransportError{Location: sc.Location(), Cause: cause}) {
		c.logger.Errorf("exchange: %s failed: %v", sc.Location(), cause)
	}

	c.mu.Lock()
	c.blocked.NotifyAll()
	c.mu.Unlock()
}
