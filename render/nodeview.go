package render

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/xiaonanln/streamgraph/layout"
	"github.com/xiaonanln/streamgraph/timeline"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Marker is one drawn observation.
type Marker struct {
	X         float64
	Y         float64
	Timestamp int64
}

// NodeView is the drawable form of one node and its timeline axis.
type NodeView struct {
	Node         layout.Node
	Markers      []Marker
	DisplayValue string
	// Window is the (start, end] time span shown on the axis.
	WindowStart int64
	WindowEnd   int64
}

// BuildNodeView places the entries of tl that fall inside the window ending
// at the cursor. The window spans MaxMarkers slots of msPerSlot
// milliseconds. An invalid cursor yields a bare axis.
func BuildNodeView(node layout.Node, tl timeline.Timeline[any], cur timeline.CurrentRange, msPerSlot int64) NodeView {
	view := NodeView{Node: node}
	if !cur.Valid {
		return view
	}
	if msPerSlot <= 0 {
		msPerSlot = DefaultMsPerSlot
	}

	view.WindowEnd = cur.Current
	view.WindowStart = cur.Current - int64(MaxMarkers)*msPerSlot
	scale := LinearScale{
		Domain: [2]float64{float64(view.WindowStart), float64(view.WindowEnd)},
		Range:  [2]float64{MarkerStart, TimelineEnd},
	}

	entries := tl.Between(view.WindowStart, view.WindowEnd)
	for _, e := range entries {
		view.Markers = append(view.Markers, Marker{
			X:         round3(scale.Map(float64(e.Timestamp))),
			Y:         node.Point.Y,
			Timestamp: e.Timestamp,
		})
	}
	if len(entries) > 0 {
		view.DisplayValue = DisplayValue(entries[len(entries)-1].Value)
	}
	return view
}

// DisplayValue formats a stream value for display: strings verbatim,
// anything else JSON-encoded.
func DisplayValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
