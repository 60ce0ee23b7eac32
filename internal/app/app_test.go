package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loadplan/internal/config"
	"loadplan/internal/masterlist"
)

const testRegistry = `mw.loader.register([
	["jquery", "v1"],
	["mediawiki.base", "v2", [0]],
	["ext.cite", "v3", ["mediawiki.base"]],
	["ext.gadget.nav", "v4", [2]]
]);`

func testConfig(t *testing.T) (*config.Config, string) {
	tmpDir := t.TempDir()

	registryPath := filepath.Join(tmpDir, "startup.js")
	require.NoError(t, os.WriteFile(registryPath, []byte(testRegistry), 0644))

	cfg := config.Default()
	cfg.RegistryPath = registryPath
	cfg.MasterlistDir = filepath.Join(tmpDir, "masterlists")
	cfg.HistoryDB = filepath.Join(tmpDir, "history.db")
	cfg.Output.PlanJSON = filepath.Join(tmpDir, "plan.json")
	cfg.Output.ModuleRegistry = filepath.Join(tmpDir, "module_registry.json")
	cfg.Output.DOT = filepath.Join(tmpDir, "dependencies.dot")
	cfg.Output.TSV = filepath.Join(tmpDir, "dependencies.tsv")
	return cfg, registryPath
}

func TestRunResolve_FullPipeline(t *testing.T) {
	cfg, registryPath := testConfig(t)

	a, err := New(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	result, err := a.RunResolve(ctx, registryPath, []string{"ext.cite"})
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)

	assert.Equal(t, []string{"jquery", "mediawiki.base", "ext.cite"}, result.Plan.Resolved)
	assert.Empty(t, result.Plan.Missing)
	assert.Empty(t, result.Plan.Cycles)
	assert.Len(t, result.Modules, 4)

	// Every parsed module lands in the discovery masterlist.
	assert.Equal(t, 4, a.Store.DiscoveredCount())
	entry, ok := a.Store.Discovered("ext.gadget.nav")
	require.True(t, ok)
	assert.Equal(t, []string{"ext.cite"}, setKeys(entry.Dependencies))
	assert.True(t, entry.PagesFoundOn[registryPath])

	// Artifacts are written where configured.
	for _, path := range []string{cfg.Output.PlanJSON, cfg.Output.ModuleRegistry, cfg.Output.DOT, cfg.Output.TSV} {
		_, err := os.Stat(path)
		assert.NoError(t, err, "missing artifact %s", path)
	}

	snapshots, err := a.History.Recent(10)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, result.RunID, snapshots[0].RunID)
	assert.Equal(t, 4, snapshots[0].ModuleCount)
	assert.Equal(t, 3, snapshots[0].ResolvedCount)

	require.NoError(t, a.Close(ctx))
}

func TestRunResolve_MissingAndCycles(t *testing.T) {
	cfg, registryPath := testConfig(t)
	cyclic := `mw.loader.register([
		["modA", "v1", ["modB"]],
		["modB", "v1", ["modA"]]
	]);`
	require.NoError(t, os.WriteFile(registryPath, []byte(cyclic), 0644))

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	result, err := a.RunResolve(context.Background(), registryPath, []string{"modA", "ghost"})
	require.NoError(t, err)

	assert.Len(t, result.Plan.Cycles, 1)
	assert.Contains(t, result.Plan.Missing, "ghost")
	assert.ElementsMatch(t, []string{"modA", "modB"}, result.Plan.Resolved)
}

func TestReplayDiscoveries_MergesAndPersists(t *testing.T) {
	cfg, registryPath := testConfig(t)

	a, err := New(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = a.RunResolve(ctx, registryPath, nil)
	require.NoError(t, err)

	err = a.ReplayDiscoveries(ctx, []Discovery{
		{Name: "ext.cite", Context: masterlist.DiscoveryContext{Source: "Special:Gadgets", Type: "gadget"}},
		{Name: "ext.timeline", Context: masterlist.DiscoveryContext{Source: "Special:Gadgets", Type: "gadget"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, a.Store.DiscoveredCount())
	cite, ok := a.Store.Discovered("ext.cite")
	require.True(t, ok)
	assert.Equal(t, 2, cite.ScanCount)
	assert.True(t, cite.PagesFoundOn["Special:Gadgets"])
	assert.True(t, cite.PagesFoundOn[registryPath])

	require.NoError(t, a.Close(ctx))

	// Reopen: durable state survives the process.
	reopened, err := New(cfg)
	require.NoError(t, err)
	defer reopened.Close(ctx)

	assert.Equal(t, 5, reopened.Store.DiscoveredCount())
	cite, ok = reopened.Store.Discovered("ext.cite")
	require.True(t, ok)
	assert.Equal(t, 2, cite.ScanCount)

	snapshots, err := reopened.History.Recent(10)
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)
}

func setKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	return keys
}
