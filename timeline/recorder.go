package timeline

import (
	"github.com/xiaonanln/streamgraph/reactive"
)

// NowFunc returns the capture time in milliseconds.
type NowFunc func() int64

// Record turns a value source into a source of timeline snapshots. The first
// snapshot is the empty timeline, delivered on subscription; every value of
// src produces a new snapshot extended with (now(), value).
func Record[V any](src reactive.Observable[V], now NowFunc, limit int) reactive.Observable[Timeline[V]] {
	stamped := reactive.Map(src, func(v V) TimeIndexed[V] {
		return TimeIndexed[V]{Timestamp: now(), Value: v}
	})
	history := reactive.Scan(stamped, func(tl Timeline[V], ti TimeIndexed[V]) Timeline[V] {
		return tl.Append(ti.Timestamp, ti.Value)
	}, Empty[V](limit))
	return reactive.StartWith(history, Empty[V](limit))
}

// RecordErased is Record followed by Erase, ready to be assembled into a Table.
func RecordErased[V any](src reactive.Observable[V], now NowFunc, limit int) reactive.Observable[Timeline[any]] {
	return reactive.Map(Record(src, now, limit), Timeline[V].Erase)
}
