package history

import "time"

const SchemaVersion = 1

// Snapshot is one run of the resolution pipeline, recorded for trend
// reporting and diffing across incremental runs.
type Snapshot struct {
	RunID              string    `json:"run_id"`
	SchemaVersion      int       `json:"schema_version"`
	Timestamp          time.Time `json:"timestamp"`
	RegistryPath       string    `json:"registry_path,omitempty"`
	ModuleCount        int       `json:"module_count"`
	RequestedCount     int       `json:"requested_count"`
	ResolvedCount      int       `json:"resolved_count"`
	MissingCount       int       `json:"missing_count"`
	CycleCount         int       `json:"cycle_count"`
	ParseWarningCount  int       `json:"parse_warning_count"`
	UsedFallback       bool      `json:"used_fallback"`
	DiscoveredCount    int       `json:"discovered_count"`
	ImplementedCount   int       `json:"implemented_count"`
	UnimplementedCount int       `json:"unimplemented_count"`
	ResolveMillis      int64     `json:"resolve_millis"`
}
