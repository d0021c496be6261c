// Package render turns render states into SVG and HTML. Every function here
// is a pure function of its inputs.
package render

import (
	"math"

	"github.com/xiaonanln/streamgraph/layout"
)

// LinearScale maps Domain onto Range linearly.
type LinearScale struct {
	Domain [2]float64
	Range  [2]float64
}

// Map returns the image of v. Values outside Domain extrapolate; a
// degenerate domain maps everything to Range[0].
func (s LinearScale) Map(v float64) float64 {
	d := s.Domain[1] - s.Domain[0]
	if d == 0 {
		return s.Range[0]
	}
	return s.Range[0] + (v-s.Domain[0])/d*(s.Range[1]-s.Range[0])
}

// Timeline axis geometry in pixels.
const (
	PathStart      = 40.96
	PathEnd        = 55.51 * layout.RemBase
	ArrowHead      = 0.262 * layout.RemBase
	MarkerDiameter = 0.512 * layout.RemBase
	BarX           = PathEnd - 0.64*layout.RemBase
	TimelineEnd    = BarX - MarkerDiameter/2 - 2.25 - ArrowHead
	// MarkerStart aligns the left edge of the first marker with the axis start.
	MarkerStart = PathStart + 6.56/2
	LabelX      = PathEnd + 0.64*layout.RemBase

	DefaultMsPerSlot = 1000
)

// MaxMarkers is the number of marker slots that fit on one axis.
var MaxMarkers = int(math.Floor((TimelineEnd - PathStart) / (MarkerDiameter + ArrowHead)))

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
