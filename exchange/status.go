// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package exchange

import "fmt"

// Status is a point-in-time snapshot of an ExchangeClient, suitable
// for JSON marshaling (agent status pages) or human-readable display
// via String.
type Status struct {
	BufferedBytes          int64             `json:"buffer_bytes"`
	AverageBytesPerRequest int64             `json:"average_bytes_per_request"`
	BufferedPages          int               `json:"buffered_pages"`
	NoMoreLocations        bool              `json:"no_more_locations"`
	PerClient              []SubClientStatus `json:"per_client"`
}

// String renders a one-line human-readable summary.
func (s Status) String() string {
	return fmt.Sprintf(
		"exchange status: buffered=%dB avg-request=%dB pages=%d no-more-locations=%t clients=%d",
		s.BufferedBytes, s.AverageBytesPerRequest, s.BufferedPages, s.NoMoreLocations, len(s.PerClient),
	)
}

// Status returns a snapshot of the client's current state.
func (c *ExchangeClient) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		BufferedBytes:          c.bufferBytes.Load(),
		AverageBytesPerRequest: c.averageBytesPerRequest.Load(),
		BufferedPages:          c.queue.Len(),
		NoMoreLocations:        c.noMoreLocations,
		PerClient:              c.registry.Statuses(),
	}
}
