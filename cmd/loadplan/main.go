// # cmd/loadplan/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loadplan/internal/app"
	"loadplan/internal/config"
	"loadplan/internal/resolver"
	"loadplan/internal/shared/observability"
	"loadplan/internal/watcher"
)

var (
	configPath  = flag.String("config", "./loadplan.toml", "Path to config file")
	registry    = flag.String("registry", "", "Path to a saved registry dump (overrides config)")
	modules     = flag.String("modules", "", "Comma-separated modules to resolve (empty: parse and catalog only)")
	once        = flag.Bool("once", false, "Run single resolution and exit")
	watch       = flag.Bool("watch", false, "Keep running and re-resolve when the dump changes")
	metricsAddr = flag.String("metrics-listen", "", "Serve prometheus metrics on this address (overrides config)")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	version     = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("loadplan v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == "./loadplan.toml" {
			cfg, err = config.Load("./loadplan.example.toml")
		}
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	if *registry != "" {
		cfg.RegistryPath = *registry
	}
	if *metricsAddr != "" {
		cfg.MetricsListen = *metricsAddr
	}
	if flag.NArg() > 0 {
		cfg.RegistryPath = flag.Arg(0)
	}
	if cfg.RegistryPath == "" {
		fmt.Fprintln(os.Stderr, "no registry dump configured: pass -registry or set registry_path")
		os.Exit(1)
	}

	requested := splitModules(*modules)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	if cfg.MetricsListen != "" {
		go serveMetrics(cfg.MetricsListen)
	}

	a, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			slog.Error("failed to persist state", "error", err)
		}
	}()

	result, err := a.RunResolve(ctx, cfg.RegistryPath, requested)
	if err != nil {
		slog.Error("resolution failed", "error", err)
		os.Exit(1)
	}
	printSummary(result)

	if *once || !*watch {
		return
	}

	// Watch mode: re-run the pipeline whenever the dump is refreshed.
	w, err := watcher.NewWatcher(cfg.Watch.Debounce, cfg.Watch.Exclude, func(paths []string) {
		for _, path := range paths {
			result, err := a.RunResolve(ctx, path, requested)
			if err != nil {
				slog.Error("resolution failed", "path", path, "error", err)
				continue
			}
			printSummary(result)
		}
	})
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}
	defer w.Close()

	if err := w.Watch([]string{cfg.RegistryPath}); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}
	slog.Info("watching registry dump", "path", cfg.RegistryPath)

	<-ctx.Done()
}

func splitModules(list string) []string {
	if list == "" {
		return nil
	}
	parts := strings.Split(list, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics listener failed", "error", err)
	}
}

func printSummary(result *app.Result) {
	plan := result.Plan

	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Run %s: %d modules parsed, %d resolved\n", result.RunID, len(result.Modules), len(plan.Resolved))

	if len(plan.Cycles) > 0 {
		fmt.Printf("⚠️  FOUND %d DEPENDENCY CYCLES:\n", len(plan.Cycles))
		for _, c := range plan.Cycles {
			fmt.Printf("   %s\n", strings.Join(c, " -> "))
		}
	} else {
		fmt.Println("✅ No dependency cycles found.")
	}

	if len(plan.Missing) > 0 {
		fmt.Printf("❓ %d MODULES MISSING FROM REGISTRY:\n", len(plan.Missing))
		for _, name := range plan.Missing {
			fmt.Printf("   %s\n", name)
		}
	} else {
		fmt.Println("✅ All requested modules registered.")
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("🧹 %d PARSE WARNINGS:\n", len(result.Warnings))
		for _, w := range result.Warnings {
			fmt.Printf("   %s\n", w)
		}
	}

	for _, phase := range resolver.PhaseOrder {
		if names := plan.Phases[phase]; len(names) > 0 {
			fmt.Printf("📦 %s (%d): %s\n", phase, len(names), strings.Join(names, ", "))
		}
	}
	fmt.Println(strings.Repeat("-", 40))
}
