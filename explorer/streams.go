package explorer

import (
	"github.com/xiaonanln/streamgraph/reactive"
	"github.com/xiaonanln/streamgraph/timeline"
)

// Timeline names, in the order they appear in a Table.
const (
	StreamConnections      = "connections"
	StreamConnectionCounts = "connectionCounts"
	StreamSockets          = "sockets"
	StreamCloses           = "closes"
	StreamCloseCounts      = "closeCounts"
	StreamCombinedCounts   = "combinedCounts"
	StreamCurrentCounts    = "currentCounts"
	StreamPauses           = "pauses"
	StreamTicks            = "ticks"
)

// StreamNames lists every recorded timeline.
var StreamNames = []string{
	StreamConnections,
	StreamConnectionCounts,
	StreamSockets,
	StreamCloses,
	StreamCloseCounts,
	StreamCombinedCounts,
	StreamCurrentCounts,
	StreamPauses,
	StreamTicks,
}

// Values carried by the event streams.
const (
	ConnectionValue = "[ WebSocket, http.IncomingMessage ]"
	SocketValue     = "WebSocket"
	CloseValue      = "[ code, reason ]"
)

// streams is the derived dataflow. Everything here is touched only by the
// event loop.
type streams struct {
	connections      reactive.Observable[string]
	sockets          reactive.Observable[string]
	closes           reactive.Observable[string]
	connectionCounts reactive.Observable[int]
	closeCounts      reactive.Observable[int]
	combinedCounts   reactive.Observable[[2]int]
	currentCounts    reactive.Observable[int]
	pauses           reactive.Observable[bool]
	ticks            reactive.Observable[int]

	disconnectDisabled reactive.Observable[bool]
}

func count[T any](acc int, _ T) int {
	return acc + 1
}

// newStreams derives the connection/close/tick streams from the raw UI
// event subjects.
func newStreams(connect, disconnect reactive.Observable[struct{}], ticks reactive.Observable[int]) *streams {
	s := &streams{ticks: ticks}

	s.connections = reactive.Share(reactive.MapTo[struct{}, string](connect, ConnectionValue))
	s.sockets = reactive.Share(reactive.MapTo[string, string](s.connections, SocketValue))
	s.closes = reactive.Share(reactive.MapTo[struct{}, string](disconnect, CloseValue))

	s.connectionCounts = reactive.Share(reactive.StartWith(reactive.Scan(s.connections, count[string], 0), 0))
	s.closeCounts = reactive.Share(reactive.StartWith(reactive.Scan(s.closes, count[string], 0), 0))

	both := reactive.Share(reactive.CombineLatest2(s.connectionCounts, s.closeCounts))
	s.combinedCounts = reactive.Share(reactive.Map(both, func(p reactive.Pair[int, int]) [2]int {
		return [2]int{p.First, p.Second}
	}))
	s.currentCounts = reactive.Share(reactive.Map(s.combinedCounts, func(c [2]int) int {
		return c[0] - c[1]
	}))
	s.pauses = reactive.Share(reactive.Map(s.currentCounts, func(n int) bool {
		return n < 1
	}))

	s.disconnectDisabled = reactive.Map(both, func(p reactive.Pair[int, int]) bool {
		return p.First <= p.Second
	})
	return s
}

// record builds one shared timeline per stream, named after StreamNames.
func (s *streams) record(now timeline.NowFunc, limit int) []timeline.Source {
	rec := func(name string, tl reactive.Observable[timeline.Timeline[any]]) timeline.Source {
		return timeline.Source{Name: name, Timeline: reactive.Share(tl)}
	}
	return []timeline.Source{
		rec(StreamConnections, timeline.RecordErased(s.connections, now, limit)),
		rec(StreamConnectionCounts, timeline.RecordErased(s.connectionCounts, now, limit)),
		rec(StreamSockets, timeline.RecordErased(s.sockets, now, limit)),
		rec(StreamCloses, timeline.RecordErased(s.closes, now, limit)),
		rec(StreamCloseCounts, timeline.RecordErased(s.closeCounts, now, limit)),
		rec(StreamCombinedCounts, timeline.RecordErased(s.combinedCounts, now, limit)),
		rec(StreamCurrentCounts, timeline.RecordErased(s.currentCounts, now, limit)),
		rec(StreamPauses, timeline.RecordErased(s.pauses, now, limit)),
		rec(StreamTicks, timeline.RecordErased(s.ticks, now, limit)),
	}
}
