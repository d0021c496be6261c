// Package timeline records the history of stream values and derives the
// time windows used to draw them.
//
// A Timeline is an immutable value: Append returns a new Timeline and never
// touches the storage of the receiver, so a consumer holding an older
// snapshot keeps seeing it unchanged.
package timeline

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TimeIndexed is one recorded observation.
type TimeIndexed[V any] struct {
	Timestamp int64 // milliseconds since the Unix epoch
	Value     V
}

// MarshalJSON encodes the observation as a [timestamp, value] tuple.
func (ti TimeIndexed[V]) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{ti.Timestamp, ti.Value})
}

// Timeline is an ordered sequence of observations in arrival order.
// Timestamps are non-decreasing as long as the recording clock is monotonic.
type Timeline[V any] struct {
	entries []TimeIndexed[V]
	limit   int
}

// Empty returns an empty timeline. A positive limit caps the number of
// retained entries; once reached, every Append evicts the oldest entry.
// A limit of zero or less keeps every entry.
func Empty[V any](limit int) Timeline[V] {
	if limit < 0 {
		limit = 0
	}
	return Timeline[V]{limit: limit}
}

// Append returns a new timeline extended with (ts, v).
func (t Timeline[V]) Append(ts int64, v V) Timeline[V] {
	keep := t.entries
	if t.limit > 0 && len(keep) >= t.limit {
		keep = keep[len(keep)-t.limit+1:]
	}
	entries := make([]TimeIndexed[V], len(keep), len(keep)+1)
	copy(entries, keep)
	entries = append(entries, TimeIndexed[V]{Timestamp: ts, Value: v})
	return Timeline[V]{entries: entries, limit: t.limit}
}

// Len returns the number of retained entries.
func (t Timeline[V]) Len() int {
	return len(t.entries)
}

// Limit returns the retention cap, 0 when unbounded.
func (t Timeline[V]) Limit() int {
	return t.limit
}

// At returns the i-th entry.
func (t Timeline[V]) At(i int) TimeIndexed[V] {
	return t.entries[i]
}

// Entries returns the entries in arrival order. The returned slice must not
// be modified.
func (t Timeline[V]) Entries() []TimeIndexed[V] {
	return t.entries[:len(t.entries):len(t.entries)]
}

// Last returns the most recent entry.
func (t Timeline[V]) Last() (TimeIndexed[V], bool) {
	if len(t.entries) == 0 {
		var zero TimeIndexed[V]
		return zero, false
	}
	return t.entries[len(t.entries)-1], true
}

// Between returns the entries with start < Timestamp <= end.
func (t Timeline[V]) Between(start, end int64) []TimeIndexed[V] {
	var out []TimeIndexed[V]
	for _, e := range t.entries {
		if e.Timestamp > start && e.Timestamp <= end {
			out = append(out, e)
		}
	}
	return out
}

// Erase converts the timeline to one holding untyped values so timelines of
// different streams can share a Table.
func (t Timeline[V]) Erase() Timeline[any] {
	entries := make([]TimeIndexed[any], len(t.entries))
	for i, e := range t.entries {
		entries[i] = TimeIndexed[any]{Timestamp: e.Timestamp, Value: e.Value}
	}
	return Timeline[any]{entries: entries, limit: t.limit}
}

// MarshalJSON encodes the timeline as an array of [timestamp, value] tuples.
func (t Timeline[V]) MarshalJSON() ([]byte, error) {
	if t.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.entries)
}
