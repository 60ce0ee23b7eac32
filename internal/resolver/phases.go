package resolver

import (
	"github.com/gobwas/glob"

	"loadplan/internal/graph"
)

// Phase names, in load priority order.
const (
	PhaseInfrastructure = "infrastructure"
	PhaseExtensions     = "extensions"
	PhaseGadgets        = "gadgets"
	PhaseGeneral        = "general"
)

// PhaseOrder is the advisory coarse load sequence. The authoritative
// per-module order is the resolver's topological output.
var PhaseOrder = []string{PhaseInfrastructure, PhaseExtensions, PhaseGadgets, PhaseGeneral}

// Rules configures phase classification: glob pattern lists per bucket
// plus the fan-in count at which a module is treated as infrastructure
// regardless of its name.
type Rules struct {
	Infrastructure []string
	Extensions     []string
	Gadgets        []string
	FanInThreshold int
}

type Classifier struct {
	infrastructure []glob.Glob
	extensions     []glob.Glob
	gadgets        []glob.Glob
	fanInThreshold int
}

func NewClassifier(rules Rules) (*Classifier, error) {
	c := &Classifier{fanInThreshold: rules.FanInThreshold}

	var err error
	if c.infrastructure, err = compileAll(rules.Infrastructure); err != nil {
		return nil, err
	}
	if c.extensions, err = compileAll(rules.Extensions); err != nil {
		return nil, err
	}
	if c.gadgets, err = compileAll(rules.Gadgets); err != nil {
		return nil, err
	}
	return c, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Classify partitions resolved into phases. Pure categorization: the
// union of all buckets is exactly the input, membership never changes
// ordering within the resolved list.
func (c *Classifier) Classify(resolved []string, g *graph.Graph) map[string][]string {
	phases := map[string][]string{}

	for _, name := range resolved {
		phase := c.phaseOf(name, g)
		phases[phase] = append(phases[phase], name)
	}
	return phases
}

func (c *Classifier) phaseOf(name string, g *graph.Graph) string {
	// Gadget patterns are narrower than extension patterns (ext.gadget.*
	// is inside ext.*), so they are checked first.
	if matchAny(c.gadgets, name) {
		return PhaseGadgets
	}
	if c.fanInThreshold > 0 && g != nil && g.FanIn(name) >= c.fanInThreshold {
		return PhaseInfrastructure
	}
	if matchAny(c.infrastructure, name) {
		return PhaseInfrastructure
	}
	if matchAny(c.extensions, name) {
		return PhaseExtensions
	}
	return PhaseGeneral
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
