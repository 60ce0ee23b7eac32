package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"loadplan/internal/graph"
	"loadplan/internal/history"
	"loadplan/internal/masterlist"
	"loadplan/internal/output"
	"loadplan/internal/registry"
	"loadplan/internal/resolver"
	"loadplan/internal/shared/errors"
	"loadplan/internal/shared/observability"
)

// Result is everything one resolution run produced.
type Result struct {
	RunID    string
	Plan     *resolver.Plan
	Modules  []registry.Module
	Warnings []string
}

// Discovery is one named observation for bulk replay.
type Discovery struct {
	Name    string
	Context masterlist.DiscoveryContext
}

// RunResolve executes the full pipeline for one registry file: parse,
// build the graph, resolve the requested set, write artifacts, fold the
// parsed modules into the discovery masterlist, and snapshot the run.
func (a *App) RunResolve(ctx context.Context, registryPath string, requested []string) (*Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.RunResolve", trace.WithAttributes(
		attribute.String("registry.path", registryPath),
		attribute.Int("requested.count", len(requested)),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(registryPath)
	if err != nil {
		return nil, fmt.Errorf("read registry %q: %w", registryPath, err)
	}

	parseStart := time.Now()
	parsed, err := registry.NewParser(a.Config.RegistryCall).Parse(string(raw))
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, registryPath)
	}
	observability.ParseDuration.WithLabelValues(registryPath).Observe(time.Since(parseStart).Seconds())
	observability.ParseWarningsTotal.Add(float64(len(parsed.Warnings)))
	if parsed.UsedFallback {
		observability.ParseFallbackTotal.Inc()
		slog.Warn("registry decoded via tolerant scanner", "path", registryPath)
	}
	for _, warning := range parsed.Warnings {
		slog.Warn("parse warning", "path", registryPath, "detail", warning)
	}

	g := graph.Build(parsed.Modules)
	observability.GraphNodes.Set(float64(g.NodeCount()))
	observability.GraphEdges.Set(float64(g.EdgeCount()))

	classifier, err := a.Classifier()
	if err != nil {
		return nil, fmt.Errorf("compile phase rules: %w", err)
	}

	resolveStart := time.Now()
	plan := resolver.New(g, classifier).Resolve(requested)
	resolveElapsed := time.Since(resolveStart)
	observability.ResolveDuration.Observe(resolveElapsed.Seconds())
	observability.CyclesDetectedTotal.Add(float64(len(plan.Cycles)))
	observability.MissingModulesTotal.Add(float64(len(plan.Missing)))

	for _, cycle := range plan.Cycles {
		slog.Warn("dependency cycle detected", "cycle", cycle)
	}
	if len(plan.Missing) > 0 {
		slog.Warn("modules missing from registry", "names", plan.Missing)
	}

	result := &Result{Plan: plan, Modules: parsed.Modules, Warnings: parsed.Warnings}

	if err := a.writeArtifacts(parsed.Modules, g, plan); err != nil {
		return nil, err
	}

	// Every parsed module counts as one observation from this registry.
	for _, mod := range parsed.Modules {
		a.Store.RecordDiscovery(mod.Name, masterlist.DiscoveryContext{
			Source:       registryPath,
			Dependencies: mod.Dependencies,
			Type:         "registry",
		})
		observability.DiscoveryEventsTotal.Inc()
	}
	a.Store.RecomputeUnimplemented()
	a.updateMasterlistGauges()

	runID, err := a.History.SaveSnapshot(history.Snapshot{
		RegistryPath:       registryPath,
		ModuleCount:        len(parsed.Modules),
		RequestedCount:     len(requested),
		ResolvedCount:      len(plan.Resolved),
		MissingCount:       len(plan.Missing),
		CycleCount:         len(plan.Cycles),
		ParseWarningCount:  len(parsed.Warnings),
		UsedFallback:       parsed.UsedFallback,
		DiscoveredCount:    a.Store.DiscoveredCount(),
		ImplementedCount:   a.Store.ImplementedCount(),
		UnimplementedCount: a.Store.UnimplementedCount(),
		ResolveMillis:      resolveElapsed.Milliseconds(),
	})
	if err != nil {
		return nil, err
	}
	result.RunID = runID

	slog.Info("resolution complete",
		"run_id", runID,
		"modules", len(parsed.Modules),
		"resolved", len(plan.Resolved),
		"missing", len(plan.Missing),
		"cycles", len(plan.Cycles))

	return result, nil
}

func (a *App) writeArtifacts(modules []registry.Module, g *graph.Graph, plan *resolver.Plan) error {
	out := a.Config.Output

	if out.PlanJSON != "" {
		if err := output.WritePlanJSON(out.PlanJSON, plan); err != nil {
			return err
		}
	}
	if out.ModuleRegistry != "" {
		if err := output.WriteModuleRegistry(out.ModuleRegistry, modules, plan); err != nil {
			return err
		}
	}
	if out.DOT != "" {
		dot, err := output.NewDOTGenerator(g).Generate(plan.Cycles)
		if err != nil {
			return err
		}
		if err := masterlist.WriteFileAtomic(out.DOT, []byte(dot)); err != nil {
			return err
		}
	}
	if out.TSV != "" {
		tsv, err := output.NewTSVGenerator(g).Generate()
		if err != nil {
			return err
		}
		if err := masterlist.WriteFileAtomic(out.TSV, []byte(tsv)); err != nil {
			return err
		}
	}
	return nil
}

// ReplayDiscoveries folds externally collected observations into the
// store. Rate-limited so bulk replays from many scan sessions do not
// monopolize the process; merge semantics make replays idempotent.
func (a *App) ReplayDiscoveries(ctx context.Context, discoveries []Discovery) error {
	ctx, span := observability.Tracer.Start(ctx, "app.ReplayDiscoveries", trace.WithAttributes(
		attribute.Int("event.count", len(discoveries)),
	))
	defer span.End()

	for _, d := range discoveries {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}
		a.Store.RecordDiscovery(d.Name, d.Context)
		observability.DiscoveryEventsTotal.Inc()
	}

	a.Store.RecomputeUnimplemented()
	a.updateMasterlistGauges()
	return nil
}
