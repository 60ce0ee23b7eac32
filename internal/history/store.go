package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot records one run. A zero RunID gets a fresh UUID; saving
// the same RunID twice overwrites the earlier row.
func (s *Store) SaveSnapshot(snapshot Snapshot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snapshot.RunID == "" {
		snapshot.RunID = uuid.NewString()
	}
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}
	if snapshot.SchemaVersion == 0 {
		snapshot.SchemaVersion = SchemaVersion
	}
	if snapshot.SchemaVersion != SchemaVersion {
		return "", fmt.Errorf("unsupported snapshot schema version %d", snapshot.SchemaVersion)
	}

	query := `
INSERT INTO runs (
  run_id, schema_version, ts_utc, registry_path, module_count, requested_count,
  resolved_count, missing_count, cycle_count, parse_warning_count, used_fallback,
  discovered_count, implemented_count, unimplemented_count, resolve_millis
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
  schema_version=excluded.schema_version,
  ts_utc=excluded.ts_utc,
  registry_path=excluded.registry_path,
  module_count=excluded.module_count,
  requested_count=excluded.requested_count,
  resolved_count=excluded.resolved_count,
  missing_count=excluded.missing_count,
  cycle_count=excluded.cycle_count,
  parse_warning_count=excluded.parse_warning_count,
  used_fallback=excluded.used_fallback,
  discovered_count=excluded.discovered_count,
  implemented_count=excluded.implemented_count,
  unimplemented_count=excluded.unimplemented_count,
  resolve_millis=excluded.resolve_millis
`
	usedFallback := 0
	if snapshot.UsedFallback {
		usedFallback = 1
	}

	_, err := s.db.Exec(
		query,
		snapshot.RunID,
		snapshot.SchemaVersion,
		snapshot.Timestamp.UTC().Format(time.RFC3339Nano),
		snapshot.RegistryPath,
		snapshot.ModuleCount,
		snapshot.RequestedCount,
		snapshot.ResolvedCount,
		snapshot.MissingCount,
		snapshot.CycleCount,
		snapshot.ParseWarningCount,
		usedFallback,
		snapshot.DiscoveredCount,
		snapshot.ImplementedCount,
		snapshot.UnimplementedCount,
		snapshot.ResolveMillis,
	)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return snapshot.RunID, nil
}

// Recent returns up to limit snapshots, newest first.
func (s *Store) Recent(limit int) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
SELECT
  run_id, schema_version, ts_utc, registry_path, module_count, requested_count,
  resolved_count, missing_count, cycle_count, parse_warning_count, used_fallback,
  discovered_count, implemented_count, unimplemented_count, resolve_millis
FROM runs
ORDER BY ts_utc DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var snap Snapshot
		var ts string
		var usedFallback int
		if err := rows.Scan(
			&snap.RunID,
			&snap.SchemaVersion,
			&ts,
			&snap.RegistryPath,
			&snap.ModuleCount,
			&snap.RequestedCount,
			&snap.ResolvedCount,
			&snap.MissingCount,
			&snap.CycleCount,
			&snap.ParseWarningCount,
			&usedFallback,
			&snap.DiscoveredCount,
			&snap.ImplementedCount,
			&snap.UnimplementedCount,
			&snap.ResolveMillis,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot timestamp %q: %w", ts, err)
		}
		snap.Timestamp = parsed
		snap.UsedFallback = usedFallback != 0
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}
