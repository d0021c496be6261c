package layout

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var streamNames = []string{
	"connections", "connectionCounts", "sockets", "closes", "closeCounts",
	"combinedCounts", "currentCounts", "pauses", "ticks",
}

func TestModularScale(t *testing.T) {
	if XScale(0) != 6 || XScale(1) != 16.24 || XScale(2) != 26.48 {
		t.Errorf("x scale = %v %v %v", XScale(0), XScale(1), XScale(2))
	}
	if YScale(0) != 10.24 || YScale(1) != 67.264 {
		t.Errorf("y scale = %v %v", YScale(0), YScale(1))
	}
}

func TestDefaultGraphIsValid(t *testing.T) {
	g := DefaultGraph()
	if err := g.Validate(streamNames); err != nil {
		t.Fatalf("default graph invalid: %v", err)
	}
	if len(g.Nodes) != 9 {
		t.Errorf("expected 9 nodes, got %d", len(g.Nodes))
	}
	if len(g.Edges) != 11 {
		t.Errorf("expected 11 edges, got %d", len(g.Edges))
	}
	if g.Height() != YScale(9) {
		t.Errorf("Height() = %v, want %v", g.Height(), YScale(9))
	}
}

func TestDefaultGraphIsFresh(t *testing.T) {
	a := DefaultGraph()
	a.Nodes[0].Label = "changed"
	if DefaultGraph().Nodes[0].Label != "connection$" {
		t.Fatal("DefaultGraph shares state between calls")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name  string
		graph Graph
		want  string
	}{
		{"empty", Graph{}, "no nodes"},
		{"unknown timeline", Graph{Nodes: []Node{{Label: "a$", Diameter: 1, TimelineName: "nope"}}}, "unknown timeline"},
		{"duplicate label", Graph{Nodes: []Node{
			{Label: "a$", Diameter: 1, TimelineName: "ticks"},
			{Label: "a$", Diameter: 1, TimelineName: "pauses"},
		}}, "duplicate node label"},
		{"short edge", Graph{
			Nodes: []Node{{Label: "a$", Diameter: 1, TimelineName: "ticks"}},
			Edges: []Edge{{Label: "x", Points: []Point{{1, 1}}}},
		}, "at least two points"},
		{"zero diameter", Graph{Nodes: []Node{{Label: "a$", TimelineName: "ticks"}}}, "diameter"},
	}
	for _, tt := range tests {
		err := tt.graph.Validate(streamNames)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: Validate() = %v; want error containing %q", tt.name, err, tt.want)
		}
	}
}

func TestLoadGraph(t *testing.T) {
	content := `
nodes:
  - label: "tick$"
    timeline: ticks
    diameter: 10.24
    point: {x: 16.24, y: 10.24}
edges:
  - label: "tick$ ->"
    points:
      - {x: 16.24, y: 10.24}
      - {x: 16.24, y: 67.264}
`
	path := filepath.Join(t.TempDir(), "graph.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write graph file: %v", err)
	}

	g, err := LoadGraph(path, streamNames)
	if err != nil {
		t.Fatalf("LoadGraph failed: %v", err)
	}
	if len(g.Nodes) != 1 || g.Nodes[0].TimelineName != "ticks" || g.Nodes[0].Point.Y != 10.24 {
		t.Fatalf("unexpected graph: %+v", g)
	}
	if len(g.Edges) != 1 || len(g.Edges[0].Points) != 2 {
		t.Fatalf("unexpected edges: %+v", g.Edges)
	}
}

func TestLoadGraphMissingFile(t *testing.T) {
	if _, err := LoadGraph(filepath.Join(t.TempDir(), "missing.yaml"), streamNames); err == nil {
		t.Fatal("expected error for missing file")
	}
}
