package graph

import (
	"sort"

	"loadplan/internal/registry"
)

// Graph is the name-keyed dependency graph for one registry load.
// It is built once and never mutated afterward; accessors return copies.
type Graph struct {
	forward map[string][]string // name -> dependency names
	reverse map[string][]string // name -> dependent names
}

// Build constructs the graph from parsed modules. Repeated dependency
// entries collapse to one edge and self-dependencies are dropped.
func Build(modules []registry.Module) *Graph {
	g := &Graph{
		forward: make(map[string][]string, len(modules)),
		reverse: make(map[string][]string),
	}

	for _, mod := range modules {
		seen := make(map[string]bool, len(mod.Dependencies))
		deps := make([]string, 0, len(mod.Dependencies))
		for _, dep := range mod.Dependencies {
			if dep == mod.Name || seen[dep] {
				continue
			}
			seen[dep] = true
			deps = append(deps, dep)
			g.reverse[dep] = append(g.reverse[dep], mod.Name)
		}
		g.forward[mod.Name] = deps
	}

	return g
}

// Has reports whether name is a registered module.
func (g *Graph) Has(name string) bool {
	_, ok := g.forward[name]
	return ok
}

// Dependencies returns the direct dependencies of name in declaration
// order. Nil for unknown names.
func (g *Graph) Dependencies(name string) []string {
	deps, ok := g.forward[name]
	if !ok {
		return nil
	}
	return append([]string(nil), deps...)
}

// Dependents returns the names that directly depend on name.
func (g *Graph) Dependents(name string) []string {
	return append([]string(nil), g.reverse[name]...)
}

// FanIn returns how many modules depend on name.
func (g *Graph) FanIn(name string) int {
	return len(g.reverse[name])
}

// Nodes returns all registered module names, sorted.
func (g *Graph) Nodes() []string {
	names := make([]string, 0, len(g.forward))
	for name := range g.forward {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Graph) NodeCount() int {
	return len(g.forward)
}

func (g *Graph) EdgeCount() int {
	n := 0
	for _, deps := range g.forward {
		n += len(deps)
	}
	return n
}

// Symmetric verifies the forward/reverse invariant: every edge n->d in
// forward has n recorded in reverse[d].
func (g *Graph) Symmetric() bool {
	for name, deps := range g.forward {
		for _, dep := range deps {
			found := false
			for _, back := range g.reverse[dep] {
				if back == name {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}

	count := 0
	for _, dependents := range g.reverse {
		count += len(dependents)
	}
	return count == g.EdgeCount()
}
