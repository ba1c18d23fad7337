// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package exchange

// SubClientStatus is a point-in-time snapshot of one sub-client,
// folded into ExchangeClient's Status() report.
type SubClientStatus struct {
	Location Location `json:"location"`
	State    string   `json:"state"`
	Requests int64    `json:"requests"`
}

// SubClient is the contract each endpoint's sub-client satisfies. A
// real implementation owns its own HTTP transport and retry loop; see
// the pagebuffer package for one. ScheduleRequest is fire-and-forget:
// it is called with the façade mutex held and must never synchronously
// invoke any of the SubClientCallback methods.
type SubClient interface {
	Location() Location
	ScheduleRequest()
	Close() error
	Status() SubClientStatus
}

// SubClientCallback is the surface the façade exposes to each
// sub-client. ExchangeClient implements it.
type SubClientCallback interface {
	// AddPages accepts a batch delivered by c. It returns false if the
	// client is closed or failed, in which case the sub-client must
	// drop the batch.
	AddPages(c SubClient, pages []*Page) bool
	// RequestComplete signals c is idle and ready for another request.
	RequestComplete(c SubClient)
	// ClientFinished signals c has produced its last page.
	ClientFinished(c SubClient)
	// ClientFailed signals c has given up retrying.
	ClientFailed(c SubClient, cause error)
}

// SubClientFactory constructs the sub-client for a newly added
// endpoint, wired to the façade's callback surface. Concrete factories
// live outside this package (see pagebuffer.NewFactory) to avoid this
// package depending on an HTTP transport.
type SubClientFactory func(loc Location, cb SubClientCallback) SubClient

type subClientState int

const (
	stateQueued subClientState = iota
	statePending
	stateCompleted
)

func (s subClientState) String() string {
	switch s {
	case stateQueued:
		return "queued"
	case statePending:
		return "pending"
	case stateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// SubClientRegistry tracks every registered endpoint and the disjoint
// {queued, pending, completed} sets the scheduler dispatches against.
// Every method assumes the caller already holds the façade's mutex;
// the registry has no synchronization of its own.
type SubClientRegistry struct {
	clients map[Location]SubClient
	states  map[Location]subClientState
	queue   []Location
}

// NewSubClientRegistry constructs an empty registry.
func NewSubClientRegistry() *SubClientRegistry {
	return &SubClientRegistry{
		clients: make(map[Location]SubClient),
		states:  make(map[Location]subClientState),
	}
}

// Add registers loc with sub-client c and marks it queued. It is a
// no-op, returning false, if loc is already registered.
func (r *SubClientRegistry) Add(loc Location, c SubClient) bool {
	if _, ok := r.clients[loc]; ok {
		return false
	}
	r.clients[loc] = c
	r.states[loc] = stateQueued
	r.queue = append(r.queue, loc)
	return true
}

// Len returns the number of registered endpoints.
func (r *SubClientRegistry) Len() int {
	return len(r.clients)
}

// PopQueued removes and returns the next queued sub-client in FIFO
// order, or false if none are queued.
func (r *SubClientRegistry) PopQueued() (SubClient, bool) {
	if len(r.queue) == 0 {
		return nil, false
	}
	loc := r.queue[0]
	r.queue = r.queue[1:]
	return r.clients[loc], true
}

// MarkPending moves loc into the pending set.
func (r *SubClientRegistry) MarkPending(loc Location) {
	r.states[loc] = statePending
}

// MarkQueued moves loc back into the queued set, appended at the
// back so dispatch order roughly tracks arrival order of completions.
func (r *SubClientRegistry) MarkQueued(loc Location) {
	if _, ok := r.clients[loc]; !ok {
		return
	}
	r.states[loc] = stateQueued
	r.queue = append(r.queue, loc)
}

// MarkCompleted moves loc into the completed set, terminally.
func (r *SubClientRegistry) MarkCompleted(loc Location) {
	r.states[loc] = stateCompleted
}

// PendingCount returns |registered| minus |queued| minus |completed|.
func (r *SubClientRegistry) PendingCount() int {
	n := 0
	for _, s := range r.states {
		if s == statePending {
			n++
		}
	}
	return n
}

// CompletedCount returns the number of endpoints marked completed.
func (r *SubClientRegistry) CompletedCount() int {
	n := 0
	for _, s := range r.states {
		if s == stateCompleted {
			n++
		}
	}
	return n
}

// AllCompleted reports whether every registered endpoint has
// completed. Vacuously true when nothing is registered.
func (r *SubClientRegistry) AllCompleted() bool {
	return r.CompletedCount() == len(r.clients)
}

// Clients returns every registered sub-client, in no particular
// order, for fan-out operations like Close.
func (r *SubClientRegistry) Clients() []SubClient {
	out := make([]SubClient, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Statuses returns a status snapshot for every registered sub-client.
func (r *SubClientRegistry) Statuses() []SubClientStatus {
	out := make([]SubClientStatus, 0, len(r.clients))
	for loc, c := range r.clients {
		st := c.Status()
		st.Location = loc
		if st.State == "" {
			st.State = r.states[loc].String()
		}
		out = append(out, st)
	}
	return out
}
