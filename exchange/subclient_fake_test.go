// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package exchange

import "sync"

// fakeClient is a test double for SubClient: ScheduleRequest counts
// invocations and, if onSchedule is set, hands the façade callback
// back to the test so it can simulate AddPages/RequestComplete/
// ClientFinished/ClientFailed deterministically instead of driving a
// real HTTP round trip.
type fakeClient struct {
	loc Location
	cb  SubClientCallback

	mu         sync.Mutex
	scheduled  int
	closed     bool
	onSchedule func(cb SubClientCallback)
}

func (f *fakeClient) Location() Location { return f.loc }

func (f *fakeClient) ScheduleRequest() {
	f.mu.Lock()
	f.scheduled++
	hook := f.onSchedule
	f.mu.Unlock()
	if hook != nil {
		hook(f.cb)
	}
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Status() SubClientStatus {
	return SubClientStatus{Location: f.loc}
}

func (f *fakeClient) scheduledCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scheduled
}

func (f *fakeClient) wasClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeFactory builds fakeClients and remembers one per Location so
// tests can reach back into a specific endpoint's fake after
// AddLocation constructs it via the façade.
type fakeFactory struct {
	mu         sync.Mutex
	clients    map[Location]*fakeClient
	onSchedule func(loc Location, cb SubClientCallback)
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{clients: make(map[Location]*fakeClient)}
}

func (f *fakeFactory) factory(loc Location, cb SubClientCallback) SubClient {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := &fakeClient{loc: loc, cb: cb}
	if f.onSchedule != nil {
		c.onSchedule = func(cb SubClientCallback) { f.onSchedule(loc, cb) }
	}
	f.clients[loc] = c
	return c
}

func (f *fakeFactory) get(loc Location) *fakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clients[loc]
}

func (f *fakeFactory) totalScheduled() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.clients {
		n += c.scheduledCount()
	}
	return n
}

// newTestExchangeClient builds an ExchangeClient wired to factory,
// with a synchronous executor so tests don't need to synchronize on
// extra goroutines beyond what the façade itself spawns.
func newTestExchangeClient(maxBuffered, multiplier int64, factory SubClientFactory) *ExchangeClient {
	cfg := DefaultConfig()
	cfg.MaxBufferedBytes = maxBuffered
	cfg.ConcurrentRequestMultiplier = multiplier
	cfg.Executor = SyncExecutor{}
	cfg.SubClientFactory = factory
	return NewExchangeClient(cfg)
}
