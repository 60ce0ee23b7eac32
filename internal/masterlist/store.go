package masterlist

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"loadplan/internal/shared/errors"
)

// Complexity buckets derived from dependency count.
const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

// DiscoveryContext is one observation of a module in the wild.
type DiscoveryContext struct {
	Source       string
	Dependencies []string
	Type         string
	SizeBytes    int64
}

// Discovered is the accumulated record for one module name. Set-typed
// fields are maps in memory and sorted slices on disk.
type Discovered struct {
	Name         string
	FirstSeen    time.Time
	LastSeen     time.Time
	ScanCount    int
	PagesFoundOn map[string]bool
	Dependencies map[string]bool
	Type         string
	SizeBytes    int64
}

// Implementation is a local implementation claiming one or more registry
// names. A registry name belongs to at most one implementation.
type Implementation struct {
	Name          string
	WikiNames     map[string]bool
	Files         []string
	Functionality string
}

// Unimplemented is derived bookkeeping, rebuilt by Recompute; it is
// never authored directly.
type Unimplemented struct {
	Name                  string
	PriorityScore         int
	Complexity            string
	DependenciesAvailable bool
}

// Store holds the three interlocking masterlists. Single-writer; callers
// own serialization across processes.
type Store struct {
	dir string

	discovered    map[string]*Discovered
	implemented   map[string]*Implementation
	unimplemented map[string]*Unimplemented
	claimedBy     map[string]string // wiki name -> implementation name

	now func() time.Time
}

// NewStore returns an empty in-memory store with no backing files.
func NewStore() *Store {
	return &Store{
		discovered:    make(map[string]*Discovered),
		implemented:   make(map[string]*Implementation),
		unimplemented: make(map[string]*Unimplemented),
		claimedBy:     make(map[string]string),
		now:           time.Now,
	}
}

// RecordDiscovery merges one observation into the discovered set.
// Replays are idempotent per (name, source) pair: the scan count always
// increments, the source set does not grow on repeats.
func (s *Store) RecordDiscovery(name string, ctx DiscoveryContext) {
	entry, ok := s.discovered[name]
	if !ok {
		entry = &Discovered{
			Name:         name,
			FirstSeen:    s.now(),
			PagesFoundOn: make(map[string]bool),
			Dependencies: make(map[string]bool),
		}
		s.discovered[name] = entry
	}

	entry.LastSeen = s.now()
	entry.ScanCount++
	if ctx.Source != "" {
		entry.PagesFoundOn[ctx.Source] = true
	}
	for _, dep := range ctx.Dependencies {
		entry.Dependencies[dep] = true
	}
	if ctx.Type != "" {
		entry.Type = ctx.Type
	}
	if ctx.SizeBytes > 0 {
		entry.SizeBytes = ctx.SizeBytes
	}
}

// RecordImplementation registers a local implementation claiming the
// given wiki names. Claiming a name already held by a different
// implementation fails with DUPLICATE_WIKI_NAME and changes nothing.
// Re-recording under the same implementation merges.
func (s *Store) RecordImplementation(implName string, wikiNames []string, files []string, functionality string) error {
	var conflicts []string
	for _, wiki := range wikiNames {
		if owner, ok := s.claimedBy[wiki]; ok && owner != implName {
			conflicts = append(conflicts, fmt.Sprintf("%s (claimed by %s)", wiki, owner))
		}
	}
	if len(conflicts) > 0 {
		err := errors.New(errors.CodeDuplicateWikiName,
			fmt.Sprintf("wiki names already claimed: %v", conflicts))
		return errors.AddContext(err, errors.CtxOperation, "record_implementation")
	}

	impl, ok := s.implemented[implName]
	if !ok {
		impl = &Implementation{
			Name:      implName,
			WikiNames: make(map[string]bool),
		}
		s.implemented[implName] = impl
	}

	for _, wiki := range wikiNames {
		impl.WikiNames[wiki] = true
		s.claimedBy[wiki] = implName
	}
	for _, file := range files {
		found := false
		for _, existing := range impl.Files {
			if existing == file {
				found = true
				break
			}
		}
		if !found {
			impl.Files = append(impl.Files, file)
		}
	}
	if functionality != "" {
		impl.Functionality = functionality
	}

	return nil
}

// RecomputeUnimplemented rebuilds the unimplemented set from scratch.
// Names claimed by any implementation are evicted unconditionally, even
// when a prior run persisted them; this is what keeps the three lists
// consistent as implementations accumulate.
func (s *Store) RecomputeUnimplemented() {
	s.unimplemented = make(map[string]*Unimplemented, len(s.discovered))

	for name, entry := range s.discovered {
		if _, claimed := s.claimedBy[name]; claimed {
			continue
		}

		s.unimplemented[name] = &Unimplemented{
			Name:                  name,
			PriorityScore:         entry.ScanCount * len(entry.PagesFoundOn),
			Complexity:            complexityOf(len(entry.Dependencies)),
			DependenciesAvailable: s.dependenciesAvailable(entry),
		}
	}
}

func complexityOf(depCount int) string {
	switch {
	case depCount <= 2:
		return ComplexityLow
	case depCount <= 5:
		return ComplexityMedium
	default:
		return ComplexityHigh
	}
}

func (s *Store) dependenciesAvailable(entry *Discovered) bool {
	for dep := range entry.Dependencies {
		if _, ok := s.discovered[dep]; ok {
			continue
		}
		if _, ok := s.claimedBy[dep]; ok {
			continue
		}
		return false
	}
	return true
}

// ValidateInvariants checks cross-set consistency and returns the
// offending names. A non-empty result comes with a CROSS_LIST_VIOLATION
// error; RecomputeUnimplemented heals all reported violations.
func (s *Store) ValidateInvariants() ([]string, error) {
	var offenders []string

	for name := range s.unimplemented {
		if owner, claimed := s.claimedBy[name]; claimed {
			offenders = append(offenders, name)
			slog.Warn("module is both implemented and unimplemented",
				"name", name, "implementation", owner)
		}
	}

	// claimedBy must agree with the implementations' own name sets.
	for implName, impl := range s.implemented {
		for wiki := range impl.WikiNames {
			if s.claimedBy[wiki] != implName {
				offenders = append(offenders, wiki)
				slog.Warn("wiki name claim index out of sync",
					"name", wiki, "implementation", implName)
			}
		}
	}

	if len(offenders) == 0 {
		return nil, nil
	}

	sort.Strings(offenders)
	return offenders, errors.New(errors.CodeCrossListViolation,
		fmt.Sprintf("%d names violate cross-list invariants: %v", len(offenders), offenders))
}

// Discovered returns the discovered entry for name, if any.
func (s *Store) Discovered(name string) (*Discovered, bool) {
	entry, ok := s.discovered[name]
	return entry, ok
}

// Unimplemented returns the derived entry for name, if any.
func (s *Store) Unimplemented(name string) (*Unimplemented, bool) {
	entry, ok := s.unimplemented[name]
	return entry, ok
}

// Implementation returns the implementation record for implName, if any.
func (s *Store) Implementation(implName string) (*Implementation, bool) {
	impl, ok := s.implemented[implName]
	return impl, ok
}

// ClaimedBy returns the implementation holding a wiki name, if any.
func (s *Store) ClaimedBy(wikiName string) (string, bool) {
	owner, ok := s.claimedBy[wikiName]
	return owner, ok
}

func (s *Store) DiscoveredCount() int    { return len(s.discovered) }
func (s *Store) ImplementedCount() int   { return len(s.implemented) }
func (s *Store) UnimplementedCount() int { return len(s.unimplemented) }
