package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loadplan/internal/graph"
	"loadplan/internal/registry"
	"loadplan/internal/resolver"
)

func testModules() []registry.Module {
	return []registry.Module{
		{Name: "jquery", Version: "v1"},
		{Name: "ext.cite", Version: "v2", Dependencies: []string{"jquery"}},
		{Name: "ext.unused", Version: "v3"},
	}
}

func testPlan(mods []registry.Module) *resolver.Plan {
	g := graph.Build(mods)
	c, _ := resolver.NewClassifier(resolver.Rules{
		Infrastructure: []string{"jquery*"},
		Extensions:     []string{"ext.*"},
	})
	return resolver.New(g, c).Resolve([]string{"ext.cite"})
}

func TestDOTGenerator(t *testing.T) {
	g := graph.Build([]registry.Module{
		{Name: "modA", Dependencies: []string{"modB"}},
		{Name: "modB", Dependencies: []string{"modA"}},
	})

	cycles := [][]string{{"modA", "modB"}}
	gen := NewDOTGenerator(g)
	dot, err := gen.Generate(cycles)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(dot, "digraph dependencies") {
		t.Error("DOT output missing digraph header")
	}
	if !strings.Contains(dot, "\"modA\" -> \"modB\"") {
		t.Error("DOT output missing edge modA -> modB")
	}
	if !strings.Contains(dot, "CYCLE") {
		t.Error("DOT output missing CYCLE label")
	}
}

func TestDOTGenerator_ExternalNodes(t *testing.T) {
	g := graph.Build([]registry.Module{
		{Name: "modA", Dependencies: []string{"ghost"}},
	})
	dot, err := NewDOTGenerator(g).Generate(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dot, "\"ghost\" [style=dashed") {
		t.Error("Unregistered dependency should render dashed")
	}
}

func TestTSVGenerator(t *testing.T) {
	g := graph.Build([]registry.Module{
		{Name: "modA", Dependencies: []string{"modB"}},
		{Name: "modB"},
	})

	tsv, err := NewTSVGenerator(g).Generate()
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(tsv), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header + 1 edge, got %d lines", len(lines))
	}
	if lines[1] != "modA\tmodB\t1" {
		t.Errorf("Unexpected edge row: %q", lines[1])
	}
}

func TestBuildModuleRegistry(t *testing.T) {
	mods := testModules()
	plan := testPlan(mods)
	reg := BuildModuleRegistry(mods, plan)

	if len(reg.Modules) != 3 {
		t.Fatalf("Expected all parsed modules in artifact, got %d", len(reg.Modules))
	}

	jq := reg.Modules["jquery"]
	if jq.LoadIndex != 0 {
		t.Errorf("jquery resolves first, got load index %d", jq.LoadIndex)
	}
	if jq.Phase != resolver.PhaseInfrastructure {
		t.Errorf("Expected infrastructure phase, got %q", jq.Phase)
	}

	cite := reg.Modules["ext.cite"]
	if cite.LoadIndex != 1 {
		t.Errorf("ext.cite resolves second, got %d", cite.LoadIndex)
	}

	unused := reg.Modules["ext.unused"]
	if unused.LoadIndex != -1 {
		t.Errorf("Unresolved module should have load index -1, got %d", unused.LoadIndex)
	}
	if unused.Phase != "" {
		t.Errorf("Unresolved module should have no phase, got %q", unused.Phase)
	}
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	mods := testModules()
	plan := testPlan(mods)

	planPath := filepath.Join(dir, "plan.json")
	if err := WritePlanJSON(planPath, plan); err != nil {
		t.Fatal(err)
	}
	regPath := filepath.Join(dir, "module_registry.json")
	if err := WriteModuleRegistry(regPath, mods, plan); err != nil {
		t.Fatal(err)
	}

	var loadedPlan resolver.Plan
	data, err := os.ReadFile(planPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &loadedPlan); err != nil {
		t.Fatalf("Plan artifact is not valid JSON: %v", err)
	}
	if len(loadedPlan.Resolved) != 2 {
		t.Errorf("Plan artifact lost resolution: %v", loadedPlan.Resolved)
	}

	var loadedReg ModuleRegistry
	data, err = os.ReadFile(regPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &loadedReg); err != nil {
		t.Fatalf("Registry artifact is not valid JSON: %v", err)
	}
	if _, ok := loadedReg.Modules["ext.unused"]; !ok {
		t.Error("Registry artifact must include unresolved modules")
	}
}
