package output

import (
	"fmt"
	"strings"

	"loadplan/internal/graph"
)

type DOTGenerator struct {
	graph *graph.Graph
}

func NewDOTGenerator(g *graph.Graph) *DOTGenerator {
	return &DOTGenerator{graph: g}
}

func (d *DOTGenerator) Generate(cycles [][]string) (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.5;\n")
	buf.WriteString("  nodesep=0.6;\n")
	buf.WriteString("  splines=polyline;\n")
	buf.WriteString("  overlap=false;\n\n")

	// Build cycle edge set for highlighting
	cycleEdges := make(map[string]map[string]bool)
	for _, cycle := range cycles {
		for i := 0; i < len(cycle); i++ {
			from := cycle[i]
			to := cycle[(i+1)%len(cycle)]
			if cycleEdges[from] == nil {
				cycleEdges[from] = make(map[string]bool)
			}
			cycleEdges[from][to] = true
		}
	}

	registered := d.graph.Nodes()
	registeredSet := make(map[string]bool, len(registered))
	for _, name := range registered {
		registeredSet[name] = true
	}

	// Names referenced as dependencies but never registered render
	// outside the cluster so gaps in the registry stand out.
	externalSet := make(map[string]bool)
	for _, from := range registered {
		for _, to := range d.graph.Dependencies(from) {
			if !registeredSet[to] {
				externalSet[to] = true
			}
		}
	}

	buf.WriteString("  subgraph cluster_registered {\n")
	buf.WriteString("    label=\"Registered Modules\";\n")
	buf.WriteString("    style=filled;\n")
	buf.WriteString("    color=\"whitesmoke\";\n")
	buf.WriteString("    node [fillcolor=\"white\", style=\"rounded,filled\"];\n")
	for _, name := range registered {
		fanIn := d.graph.FanIn(name)
		buf.WriteString(fmt.Sprintf("    %q [label=\"%s\\nfan-in: %d\"];\n", name, name, fanIn))
	}
	buf.WriteString("  }\n\n")

	for name := range externalSet {
		buf.WriteString(fmt.Sprintf("  %q [style=dashed, color=gray];\n", name))
	}
	if len(externalSet) > 0 {
		buf.WriteString("\n")
	}

	for _, from := range registered {
		for _, to := range d.graph.Dependencies(from) {
			if cycleEdges[from][to] {
				buf.WriteString(fmt.Sprintf("  %q -> %q [color=red, penwidth=2.0, label=\"CYCLE\"];\n", from, to))
			} else {
				buf.WriteString(fmt.Sprintf("  %q -> %q;\n", from, to))
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}
