package output

import (
	"encoding/json"
	"fmt"
	"time"

	"loadplan/internal/graph"
	"loadplan/internal/masterlist"
	"loadplan/internal/registry"
	"loadplan/internal/resolver"
)

// ModuleRecord is one row of the module_registry artifact, consumed by
// asset-deployment tooling to decide load order at runtime.
type ModuleRecord struct {
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	Dependencies []string `json:"dependencies"`
	Group        *int     `json:"group,omitempty"`
	Phase        string   `json:"phase,omitempty"`
	LoadIndex    int      `json:"load_index"`
	ParseWarning bool     `json:"parse_warning,omitempty"`
}

// ModuleRegistry is the full artifact: every parsed module, annotated
// with resolution metadata for the modules the plan covers.
type ModuleRegistry struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Modules     map[string]ModuleRecord `json:"modules"`
}

// WritePlanJSON persists a loading plan as a JSON artifact.
func WritePlanJSON(path string, plan *resolver.Plan) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("encode loading plan: %w", err)
	}
	return masterlist.WriteFileAtomic(path, append(data, '\n'))
}

// BuildModuleRegistry assembles the artifact from the parsed modules and
// one resolved plan. Load index is the position in the plan's topological
// order; modules outside the plan get -1.
func BuildModuleRegistry(modules []registry.Module, plan *resolver.Plan) *ModuleRegistry {
	loadIndex := make(map[string]int, len(plan.Resolved))
	for i, name := range plan.Resolved {
		loadIndex[name] = i
	}
	phaseOf := make(map[string]string)
	for phase, names := range plan.Phases {
		for _, name := range names {
			phaseOf[name] = phase
		}
	}

	reg := &ModuleRegistry{
		GeneratedAt: time.Now().UTC(),
		Modules:     make(map[string]ModuleRecord, len(modules)),
	}
	for _, mod := range modules {
		idx := -1
		if i, ok := loadIndex[mod.Name]; ok {
			idx = i
		}
		reg.Modules[mod.Name] = ModuleRecord{
			Name:         mod.Name,
			Version:      mod.Version,
			Dependencies: append([]string{}, mod.Dependencies...),
			Group:        mod.Group,
			Phase:        phaseOf[mod.Name],
			LoadIndex:    idx,
			ParseWarning: mod.ParseWarning,
		}
	}
	return reg
}

// WriteModuleRegistry persists the artifact.
func WriteModuleRegistry(path string, modules []registry.Module, plan *resolver.Plan) error {
	data, err := json.MarshalIndent(BuildModuleRegistry(modules, plan), "", "  ")
	if err != nil {
		return fmt.Errorf("encode module registry: %w", err)
	}
	return masterlist.WriteFileAtomic(path, append(data, '\n'))
}

// TSVGenerator renders the dependency edge list for spreadsheet tooling.
type TSVGenerator struct {
	graph *graph.Graph
}

func NewTSVGenerator(g *graph.Graph) *TSVGenerator {
	return &TSVGenerator{graph: g}
}

func (t *TSVGenerator) Generate() (string, error) {
	var buf []byte
	buf = append(buf, "From\tTo\tFanInOfTarget\n"...)
	for _, from := range t.graph.Nodes() {
		for _, to := range t.graph.Dependencies(from) {
			buf = append(buf, fmt.Sprintf("%s\t%s\t%d\n", from, to, t.graph.FanIn(to))...)
		}
	}
	return string(buf), nil
}
