package registry

import (
	"fmt"
	"strconv"
	"strings"
)

// scanTolerant is the fallback path: a manual walk over bracket
// boundaries that survives malformation the strict decoder rejects
// (trailing commas, odd quoting, junk between entries). Every entry it
// recovers is tagged so callers can audit parse confidence.
func scanTolerant(span string, result *ParseResult) []rawEntry {
	cleaned := strings.TrimSpace(stripComments(span))
	if strings.HasPrefix(cleaned, "[") && strings.HasSuffix(cleaned, "]") {
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	var entries []rawEntry
	for i, elem := range splitTop(cleaned) {
		elem = strings.TrimSpace(elem)
		if elem == "" {
			continue
		}

		entry, ok := scanEntry(elem)
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"entry %d is not a recognizable module tuple: %s", i, truncate(elem, 60)))
			continue
		}
		entry.fallback = true
		entries = append(entries, entry)
	}
	return entries
}

// scanEntry parses one bracketed tuple [name, version, deps?, group?].
// A tuple whose name can be recovered is always kept; malformed trailing
// fields degrade to a parse warning with an empty dependency list.
func scanEntry(elem string) (rawEntry, bool) {
	var entry rawEntry

	if !strings.HasPrefix(elem, "[") {
		// Not a tuple at all; salvage a quoted name if one exists.
		name, ok := firstQuoted(elem)
		if !ok {
			return entry, false
		}
		entry.name = name
		entry.parseWarning = true
		return entry, true
	}

	inner := strings.TrimPrefix(elem, "[")
	inner = strings.TrimSuffix(inner, "]")
	fields := splitTop(inner)
	if len(fields) == 0 {
		return entry, false
	}

	nameTok := strings.TrimSpace(fields[0])
	if len(nameTok) == 0 || (nameTok[0] != '"' && nameTok[0] != '\'') {
		return entry, false
	}
	entry.name = unquote(nameTok)

	if len(fields) > 1 {
		verTok := strings.TrimSpace(fields[1])
		switch {
		case len(verTok) > 0 && (verTok[0] == '"' || verTok[0] == '\''):
			entry.version = unquote(verTok)
		case isNumeric(verTok):
			entry.version = verTok
		}
	}

	if len(fields) > 2 {
		deps, ok := scanDeps(strings.TrimSpace(fields[2]))
		if !ok {
			entry.parseWarning = true
		}
		entry.deps = deps
	}

	if len(fields) > 3 {
		if group, err := strconv.Atoi(strings.TrimSpace(fields[3])); err == nil {
			entry.group = &group
		}
	}

	return entry, true
}

// scanDeps parses a dependency list: a bracketed array mixing quoted
// names and bare indices, or a single scalar. Returns ok=false when any
// token was unusable; usable tokens are still kept.
func scanDeps(tok string) ([]rawDep, bool) {
	if tok == "" || tok == "null" {
		return nil, true
	}

	if strings.HasPrefix(tok, "[") {
		inner := strings.TrimPrefix(tok, "[")
		inner = strings.TrimSuffix(inner, "]")
		ok := true
		var deps []rawDep
		for _, t := range splitTop(inner) {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			dep, parsed := parseScalar(t)
			if !parsed {
				ok = false
				continue
			}
			deps = append(deps, dep)
		}
		return deps, ok
	}

	dep, parsed := parseScalar(tok)
	if !parsed {
		return nil, false
	}
	return []rawDep{dep}, true
}

// splitTop splits s on commas at bracket depth zero, honoring string
// literals so embedded commas do not split.
func splitTop(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\'':
			end, err := skipString(s, i)
			if err != nil {
				parts = append(parts, s[start:])
				return parts
			}
			i = end
		case '[', '{', '(':
			depth++
		case ']', '}', ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if strings.TrimSpace(s[start:]) != "" {
		parts = append(parts, s[start:])
	}
	return parts
}

func firstQuoted(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\'' {
			end, err := skipString(s, i)
			if err != nil {
				return "", false
			}
			return unquote(s[i : end+1]), true
		}
	}
	return "", false
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
