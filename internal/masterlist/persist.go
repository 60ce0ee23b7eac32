package masterlist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	discoveredFile    = "discovered.json"
	implementedFile   = "implemented.json"
	unimplementedFile = "unimplemented.json"
)

// Disk forms. Set-typed fields serialize as sorted slices so the files
// are deterministic and diffable; Load rebuilds the in-memory sets, so a
// load->mutate->save cycle cannot grow duplicates.

type discoveredRecord struct {
	Name         string    `json:"name"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
	ScanCount    int       `json:"scan_count"`
	PagesFoundOn []string  `json:"pages_found_on"`
	Dependencies []string  `json:"dependencies"`
	Type         string    `json:"type,omitempty"`
	SizeBytes    int64     `json:"size_bytes,omitempty"`
}

type implementationRecord struct {
	Name          string   `json:"name"`
	WikiNames     []string `json:"wiki_names"`
	Files         []string `json:"files,omitempty"`
	Functionality string   `json:"functionality,omitempty"`
}

type unimplementedRecord struct {
	Name                  string `json:"name"`
	PriorityScore         int    `json:"priority_score"`
	Complexity            string `json:"complexity"`
	DependenciesAvailable bool   `json:"dependencies_available"`
}

// Open loads a store backed by three masterlist files under dir. Missing
// files start as empty sets; dir is created on first Persist.
func Open(dir string) (*Store, error) {
	s := NewStore()
	s.dir = dir

	if err := loadFile(filepath.Join(dir, discoveredFile), func(records map[string]discoveredRecord) {
		for name, rec := range records {
			s.discovered[name] = &Discovered{
				Name:         rec.Name,
				FirstSeen:    rec.FirstSeen,
				LastSeen:     rec.LastSeen,
				ScanCount:    rec.ScanCount,
				PagesFoundOn: sliceToSet(rec.PagesFoundOn),
				Dependencies: sliceToSet(rec.Dependencies),
				Type:         rec.Type,
				SizeBytes:    rec.SizeBytes,
			}
		}
	}); err != nil {
		return nil, err
	}

	if err := loadFile(filepath.Join(dir, implementedFile), func(records map[string]implementationRecord) {
		for name, rec := range records {
			s.implemented[name] = &Implementation{
				Name:          rec.Name,
				WikiNames:     sliceToSet(rec.WikiNames),
				Files:         append([]string(nil), rec.Files...),
				Functionality: rec.Functionality,
			}
			for _, wiki := range rec.WikiNames {
				s.claimedBy[wiki] = name
			}
		}
	}); err != nil {
		return nil, err
	}

	if err := loadFile(filepath.Join(dir, unimplementedFile), func(records map[string]unimplementedRecord) {
		for name, rec := range records {
			s.unimplemented[name] = &Unimplemented{
				Name:                  rec.Name,
				PriorityScore:         rec.PriorityScore,
				Complexity:            rec.Complexity,
				DependenciesAvailable: rec.DependenciesAvailable,
			}
		}
	}); err != nil {
		return nil, err
	}

	return s, nil
}

func loadFile[T any](path string, apply func(map[string]T)) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read masterlist %q: %w", path, err)
	}

	var records map[string]T
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("decode masterlist %q: %w", path, err)
	}
	apply(records)
	return nil
}

// Persist writes all three masterlists. Each file is backed up to a
// .backup sibling before being atomically replaced, so a crash mid-write
// never leaves a truncated authoritative file.
func (s *Store) Persist() error {
	if s.dir == "" {
		return fmt.Errorf("store has no backing directory")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create masterlist dir %q: %w", s.dir, err)
	}

	discovered := make(map[string]discoveredRecord, len(s.discovered))
	for name, entry := range s.discovered {
		discovered[name] = discoveredRecord{
			Name:         entry.Name,
			FirstSeen:    entry.FirstSeen,
			LastSeen:     entry.LastSeen,
			ScanCount:    entry.ScanCount,
			PagesFoundOn: setToSorted(entry.PagesFoundOn),
			Dependencies: setToSorted(entry.Dependencies),
			Type:         entry.Type,
			SizeBytes:    entry.SizeBytes,
		}
	}
	if err := writeMasterlist(filepath.Join(s.dir, discoveredFile), discovered); err != nil {
		return err
	}

	implemented := make(map[string]implementationRecord, len(s.implemented))
	for name, impl := range s.implemented {
		files := append([]string(nil), impl.Files...)
		sort.Strings(files)
		implemented[name] = implementationRecord{
			Name:          impl.Name,
			WikiNames:     setToSorted(impl.WikiNames),
			Files:         files,
			Functionality: impl.Functionality,
		}
	}
	if err := writeMasterlist(filepath.Join(s.dir, implementedFile), implemented); err != nil {
		return err
	}

	unimplemented := make(map[string]unimplementedRecord, len(s.unimplemented))
	for name, entry := range s.unimplemented {
		unimplemented[name] = unimplementedRecord{
			Name:                  entry.Name,
			PriorityScore:         entry.PriorityScore,
			Complexity:            entry.Complexity,
			DependenciesAvailable: entry.DependenciesAvailable,
		}
	}
	return writeMasterlist(filepath.Join(s.dir, unimplementedFile), unimplemented)
}

func writeMasterlist[T any](path string, records map[string]T) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode masterlist %q: %w", path, err)
	}
	data = append(data, '\n')

	if prev, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+".backup", prev, 0644); err != nil {
			return fmt.Errorf("back up masterlist %q: %w", path, err)
		}
	}

	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %q: %w", path, err)
	}
	tmpName := tmp.Name()

	writeErr := error(nil)
	if _, err := tmp.Write(data); err != nil {
		writeErr = fmt.Errorf("write temp file %q: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil && writeErr == nil {
		writeErr = fmt.Errorf("close temp file %q: %w", tmpName, err)
	}
	if writeErr != nil {
		_ = os.Remove(tmpName)
		return writeErr
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace file %q: %w", path, err)
	}
	return nil
}

func sliceToSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func setToSorted(set map[string]bool) []string {
	items := make([]string, 0, len(set))
	for item := range set {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}
