package resolver

import (
	"loadplan/internal/graph"
)

// Plan is the result of resolving one set of requested modules.
type Plan struct {
	Requested []string            `json:"requested"`
	Resolved  []string            `json:"resolved"`
	Phases    map[string][]string `json:"phases"`
	Missing   []string            `json:"missing"`
	Cycles    [][]string          `json:"cycles_detected"`
}

type Resolver struct {
	graph      *graph.Graph
	classifier *Classifier
}

func New(g *graph.Graph, c *Classifier) *Resolver {
	return &Resolver{graph: g, classifier: c}
}

// Resolve computes the transitive closure of the requested modules in
// dependency-first order. Cycles and missing names are reported in the
// plan, never as errors; the closure is still usable around them.
func (r *Resolver) Resolve(requested []string) *Plan {
	plan := &Plan{
		Requested: append([]string{}, requested...),
		Resolved:  []string{},
		Phases:    map[string][]string{},
		Missing:   []string{},
		Cycles:    [][]string{},
	}

	visited := make(map[string]bool)
	onPath := make(map[string]bool)
	missingSeen := make(map[string]bool)
	var path []string

	var visit func(name string)
	visit = func(name string) {
		if onPath[name] {
			// Back edge: the slice of the current path from the first
			// occurrence of name is one cycle. Do not re-descend.
			for i, p := range path {
				if p == name {
					cycle := make([]string, len(path)-i)
					copy(cycle, path[i:])
					plan.Cycles = append(plan.Cycles, cycle)
					break
				}
			}
			return
		}
		if visited[name] {
			return
		}
		if !r.graph.Has(name) {
			// Unknown module: its own dependencies are unknowable, so it
			// is reported rather than traversed.
			if !missingSeen[name] {
				missingSeen[name] = true
				plan.Missing = append(plan.Missing, name)
			}
			return
		}

		visited[name] = true
		onPath[name] = true
		path = append(path, name)

		for _, dep := range r.graph.Dependencies(name) {
			visit(dep)
		}

		path = path[:len(path)-1]
		onPath[name] = false

		// Dependencies land before the modules requiring them, so the
		// output is topological everywhere except reported cycle edges.
		plan.Resolved = append(plan.Resolved, name)
	}

	for _, name := range requested {
		visit(name)
	}

	if r.classifier != nil {
		plan.Phases = r.classifier.Classify(plan.Resolved, r.graph)
	}

	return plan
}
