package layout

// Positions follow a 1:1.25 modular scale where 1em = 16px.
// x increments are multiples of 0.64em, y increments of 3.052em + 0.512em.
var (
	xStep      = RemToPx(0.64)
	xScaleBase = 6.0
	yStep      = RemToPx(3.052 + 0.512)
	yScaleBase = RemToPx(0.64)

	nodeDiameter = RemToPx(0.64)
	arrowSize    = RemToPx(0.262)
)

// XScale returns the i-th horizontal grid position.
func XScale(i int) float64 {
	return round3(xScaleBase + float64(i)*xStep)
}

// YScale returns the i-th vertical grid position.
func YScale(i int) float64 {
	return round3(yScaleBase + float64(i)*yStep)
}

func at(x, y int) Point {
	return Point{X: XScale(x), Y: YScale(y)}
}

func node(label, timelineName string, x, y int) Node {
	return Node{
		Label:        label,
		Point:        at(x, y),
		Diameter:     nodeDiameter,
		TimelineName: timelineName,
	}
}

func edge(label string, points ...Point) Edge {
	return Edge{Label: label, Points: points}
}

// DefaultGraph returns the connection/close/tick stream diagram.
func DefaultGraph() *Graph {
	return &Graph{
		Nodes: []Node{
			node("connection$", "connections", 1, 0),
			node("connectionCount$", "connectionCounts", 0, 1),
			node("socket$", "sockets", 2, 2),
			node("close$", "closes", 2, 3),
			node("closeCount$", "closeCounts", 2, 4),
			node("combinedCount$", "combinedCounts", 1, 5),
			node("currentCount$", "currentCounts", 1, 6),
			node("pause$", "pauses", 1, 7),
			node("tick$", "ticks", 1, 8),
		},
		Edges: []Edge{
			edge("connection$ -> connectionCount$", at(1, 0), at(0, 1)),
			edge("connection$ -> socket$", at(1, 0), at(2, 1), at(2, 2)),
			edge("socket$ -> close$", at(2, 2), at(2, 3)),
			edge("close$ -> closeCount$", at(2, 3), at(2, 4)),
			edge("closeCount$ -> combinedCount$", at(2, 4), at(1, 5)),
			edge("connectionCount$ -> combinedCount$", at(0, 1), at(0, 4), at(1, 5)),
			edge("combinedCount$ -> currentCount$", at(1, 5), at(1, 6)),
			edge("currentCount$ -> pause$", at(1, 6), at(1, 7)),
			edge("pause$ -> tick$", at(1, 7), at(1, 8)),
			edge("tick$ ->", at(1, 8), at(1, 9)),
			edge("->",
				Point{X: round3(XScale(1) - arrowSize), Y: round3(YScale(9) - arrowSize)},
				at(1, 9),
				Point{X: round3(XScale(1) + arrowSize), Y: round3(YScale(9) - arrowSize)},
			),
		},
	}
}
