// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package exchange

// Location identifies a remote shuffle-source endpoint. Equality is by
// exact value; duplicate AddLocation calls for the same Location are
// silently ignored by the registry.
type Location string

// Page is an opaque serialized batch of rows exchanged between a
// producer endpoint and the consumer. SizeInBytes is the on-the-wire
// size (used for the running-mean response size); RetainedSizeInBytes
// is the in-memory footprint used for accounting and the buffer
// headroom calculation.
type Page struct {
	Data                []byte
	SizeInBytes         int64
	RetainedSizeInBytes int64
}

// Sentinel is the unique, identity-compared marker appended to a
// PageQueue once every registered producer has completed after
// NoMoreLocations, or when the client is closed. At most one
// Sentinel is ever present in a queue, and only as the last element.
// It is compared by pointer, not by value, so an ordinary zero-sized
// Page is never mistaken for it.
var Sentinel = &Page{}

// IsSentinel reports whether p is the distinguished end-of-stream
// marker.
func IsSentinel(p *Page) bool {
	return p == Sentinel
}
