package registry

// Module is one entry of the packed registry, with positional dependency
// references already resolved to names.
type Module struct {
	Name         string
	Version      string
	Dependencies []string
	Group        *int

	// Index is the entry's position in the packed list. Only meaningful
	// during parsing; positional dependency references resolve through it.
	Index int

	// ParseWarning marks entries that were malformed or referenced an
	// out-of-range position. They are kept, never dropped.
	ParseWarning bool

	// Fallback marks entries recovered by the tolerant scanner rather
	// than the strict decode path.
	Fallback bool
}

// ParseResult carries the module list plus parse diagnostics.
type ParseResult struct {
	Modules      []Module
	Warnings     []string
	UsedFallback bool
}

// rawDep is a dependency reference before positional resolution:
// either a direct name or an index into the packed list.
type rawDep struct {
	name    string
	index   int
	isIndex bool
}

// rawEntry is a parsed tuple before dependency resolution.
type rawEntry struct {
	name         string
	version      string
	deps         []rawDep
	group        *int
	parseWarning bool
	fallback     bool
}
