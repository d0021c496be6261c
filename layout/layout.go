// Package layout describes the static stream graph diagram: node positions,
// edge polylines, and the modular scale they are placed on.
package layout

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// RemBase is the number of pixels per rem.
const RemBase = 16.0

// RemToPx converts rem units to pixels.
func RemToPx(rem float64) float64 {
	return round3(rem * RemBase)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Point is a 2D coordinate in pixels.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is one visualized stream. TimelineName is the key of its timeline in
// the recorded table.
type Node struct {
	Label        string  `json:"label" yaml:"label"`
	Point        Point   `json:"point" yaml:"point"`
	Diameter     float64 `json:"diameter" yaml:"diameter"`
	TimelineName string  `json:"timelineName" yaml:"timeline"`
}

// Edge is a decorative polyline connecting nodes.
type Edge struct {
	Label  string  `json:"label" yaml:"label"`
	Points []Point `json:"points" yaml:"points"`
}

// Graph is the diagram topology. It is built once at startup and treated as
// read-only afterwards.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Validate checks that every node refers to a known timeline, node labels
// are unique, and every edge has at least two points.
func (g *Graph) Validate(timelineNames []string) error {
	if len(g.Nodes) == 0 {
		return fmt.Errorf("graph has no nodes")
	}
	known := make(map[string]bool, len(timelineNames))
	for _, name := range timelineNames {
		known[name] = true
	}
	labels := make(map[string]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.Label == "" {
			return fmt.Errorf("node %d: label is required", i)
		}
		if labels[n.Label] {
			return fmt.Errorf("duplicate node label: %s", n.Label)
		}
		labels[n.Label] = true
		if !known[n.TimelineName] {
			return fmt.Errorf("node %s: unknown timeline %q", n.Label, n.TimelineName)
		}
		if n.Diameter <= 0 {
			return fmt.Errorf("node %s: diameter must be positive", n.Label)
		}
	}
	for i, e := range g.Edges {
		if len(e.Points) < 2 {
			return fmt.Errorf("edge %d (%s): at least two points are required", i, e.Label)
		}
	}
	return nil
}

// Height returns the largest y coordinate used by the graph.
func (g *Graph) Height() float64 {
	h := 0.0
	for _, n := range g.Nodes {
		h = math.Max(h, n.Point.Y+n.Diameter/2)
	}
	for _, e := range g.Edges {
		for _, p := range e.Points {
			h = math.Max(h, p.Y)
		}
	}
	return h
}

// LoadGraph reads a graph from a YAML file and validates it.
func LoadGraph(path string, timelineNames []string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	var g Graph
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse graph file: %w", err)
	}

	if err := g.Validate(timelineNames); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	return &g, nil
}
