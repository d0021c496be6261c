package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/xiaonanln/streamgraph/explorer"
	"github.com/xiaonanln/streamgraph/layout"
)

// SVGWidth is the width of the diagram, room included for labels and values.
const SVGWidth = 1120.0

const svgSource = `<svg xmlns="http://www.w3.org/2000/svg" class="stream-graph" width="100%" viewBox="0 0 {{px .Width}} {{px .Height}}" data-version="{{.Version}}">
{{- range .Edges}}
<g class="edge" data-label="{{.Label}}"><path d="{{.D}}" fill="transparent" stroke="#333" stroke-width="1.25px"/></g>
{{- end}}
{{- range .Nodes}}
<g class="node" data-timeline="{{.View.Node.TimelineName}}">
<path d="{{.AxisD}}" fill="transparent" stroke="#333" stroke-width="1.25px"/>
<path d="{{.BarD}}" fill="transparent" stroke="#333" stroke-width="1.25px"/>
<path d="{{.ArrowUpD}}" fill="transparent" stroke="#333" stroke-width="1.25px"/>
<path d="{{.ArrowDownD}}" fill="transparent" stroke="#333" stroke-width="1.25px"/>
<text class="code" fill="#333" font-size="10" x="{{px .LabelX}}" y="{{px .LabelY}}">{{.View.Node.Label}}<tspan class="value" dx="8" fill="#888">{{.View.DisplayValue}}</tspan></text>
{{- range .View.Markers}}
<circle class="marker" fill="white" stroke="#333" stroke-width="1.5" cx="{{px .X}}" cy="{{px .Y}}" r="{{px $.MarkerRadius}}"/>
{{- end}}
<circle fill="white" stroke="#333" stroke-width="1.25px" cx="{{px .View.Node.Point.X}}" cy="{{px .View.Node.Point.Y}}" r="{{px .Radius}}"/>
</g>
{{- end}}
</svg>
`

var funcs = template.FuncMap{
	"px": formatPx,
}

func formatPx(v float64) string {
	return strconv.FormatFloat(round3(v), 'f', -1, 64)
}

type edgeDrawing struct {
	Label string
	D     string
}

type nodeDrawing struct {
	View       NodeView
	AxisD      string
	BarD       string
	ArrowUpD   string
	ArrowDownD string
	LabelX     float64
	LabelY     float64
	Radius     float64
}

type svgData struct {
	Version      uint64
	Width        float64
	Height       float64
	MarkerRadius float64
	Edges        []edgeDrawing
	Nodes        []nodeDrawing
}

// Renderer draws render states.
type Renderer struct {
	msPerSlot int64
	svg       *template.Template
	page      *template.Template
}

// NewRenderer creates a Renderer whose axes span MaxMarkers slots of
// msPerSlot milliseconds. Zero selects DefaultMsPerSlot.
func NewRenderer(msPerSlot int64) *Renderer {
	if msPerSlot <= 0 {
		msPerSlot = DefaultMsPerSlot
	}
	return &Renderer{
		msPerSlot: msPerSlot,
		svg:       template.Must(template.New("svg").Funcs(funcs).Parse(svgSource)),
		page:      template.Must(template.New("page").Funcs(funcs).Parse(pageSource)),
	}
}

// MsPerSlot returns the duration of one marker slot.
func (r *Renderer) MsPerSlot() int64 {
	return r.msPerSlot
}

// PathD converts a polyline into an SVG path "d" attribute.
func PathD(points []layout.Point) string {
	var b strings.Builder
	for i, p := range points {
		if i == 0 {
			b.WriteString("M")
		} else {
			b.WriteString("L")
		}
		b.WriteString(formatPx(p.X))
		b.WriteString(" ")
		b.WriteString(formatPx(p.Y))
	}
	return b.String()
}

func line(x1, y1, x2, y2 float64) string {
	return PathD([]layout.Point{{X: x1, Y: y1}, {X: x2, Y: y2}})
}

// NodeViews builds the view of every graph node from st.
func (r *Renderer) NodeViews(st *explorer.RenderState) []NodeView {
	views := make([]NodeView, 0, len(st.Graph.Nodes))
	for _, n := range st.Graph.Nodes {
		tl, _ := st.Table.Get(n.TimelineName)
		views = append(views, BuildNodeView(n, tl, st.Current, r.msPerSlot))
	}
	return views
}

func (r *Renderer) svgData(st *explorer.RenderState) svgData {
	data := svgData{
		Version:      st.Version,
		Width:        SVGWidth,
		Height:       st.Graph.Height() + MarkerDiameter,
		MarkerRadius: MarkerDiameter / 2,
	}
	for _, e := range st.Graph.Edges {
		data.Edges = append(data.Edges, edgeDrawing{Label: e.Label, D: PathD(e.Points)})
	}
	for _, v := range r.NodeViews(st) {
		y := v.Node.Point.Y
		data.Nodes = append(data.Nodes, nodeDrawing{
			View:       v,
			AxisD:      line(PathStart, y, PathEnd, y),
			BarD:       line(BarX, y+ArrowHead, BarX, y-ArrowHead),
			ArrowUpD:   line(PathEnd-ArrowHead, y-ArrowHead, PathEnd+1, y),
			ArrowDownD: line(PathEnd-ArrowHead, y+ArrowHead, PathEnd+1, y),
			LabelX:     LabelX,
			LabelY:     y + 3,
			Radius:     v.Node.Diameter / 2,
		})
	}
	return data
}

// SVG writes the diagram of st.
func (r *Renderer) SVG(w io.Writer, st *explorer.RenderState) error {
	if err := r.svg.Execute(w, r.svgData(st)); err != nil {
		return fmt.Errorf("render svg: %w", err)
	}
	return nil
}

// SVGString is SVG into a string.
func (r *Renderer) SVGString(st *explorer.RenderState) (string, error) {
	var buf bytes.Buffer
	if err := r.SVG(&buf, st); err != nil {
		return "", err
	}
	return buf.String(), nil
}
