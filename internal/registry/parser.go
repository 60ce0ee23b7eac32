package registry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"loadplan/internal/shared/errors"
)

// DefaultCall is the opening token of the register call in the wiki
// startup dialect.
const DefaultCall = "mw.loader.register("

type Parser struct {
	call string
}

func NewParser(call string) *Parser {
	if call == "" {
		call = DefaultCall
	}
	return &Parser{call: call}
}

// Parse locates the register call in raw input, extracts the packed module
// list, and resolves positional dependency references to names.
//
// Structural failures (no register call, zero entries) are errors; every
// other malformation degrades to a warning on the affected entry.
func (p *Parser) Parse(raw string) (*ParseResult, error) {
	start := strings.Index(raw, p.call)
	if start < 0 {
		return nil, errors.New(errors.CodeRegistryNotFound,
			fmt.Sprintf("register call %q not found in input", strings.TrimSuffix(p.call, "(")))
	}

	span, err := extractSpan(raw[start+len(p.call):])
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeRegistryNotFound, "register call has no balanced argument list")
	}

	result := &ParseResult{}

	entries, ok := decodeStrict(span)
	if !ok {
		entries = scanTolerant(span, result)
		result.UsedFallback = true
	}

	if len(entries) == 0 {
		return nil, errors.New(errors.CodeEmptyRegistry, "register call contains zero module entries")
	}

	result.Modules = resolveEntries(entries, result)
	return result, nil
}

// extractSpan returns the balanced bracket span beginning at the first
// '[' in s. A depth counter is used instead of a grammar because entries
// nest dependency arrays arbitrarily deep; string literals and comments
// are honored so brackets inside them do not count.
func extractSpan(s string) (string, error) {
	open := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '[' {
			open = i
			break
		}
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			continue
		}
		return "", fmt.Errorf("unexpected %q before opening bracket", c)
	}
	if open < 0 {
		return "", fmt.Errorf("no opening bracket after register call")
	}

	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '"', '\'':
			end, err := skipString(s, i)
			if err != nil {
				return "", err
			}
			i = end
		case '/':
			if end, ok := skipComment(s, i); ok {
				i = end
			}
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[open : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced brackets in register call")
}

// skipString returns the index of the closing quote matching s[i].
func skipString(s string, i int) (int, error) {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j, nil
		}
	}
	return 0, fmt.Errorf("unterminated string literal at offset %d", i)
}

// skipComment handles // and /* */ starting at s[i]. Returns the index of
// the last comment byte and whether a comment was present.
func skipComment(s string, i int) (int, bool) {
	if i+1 >= len(s) {
		return 0, false
	}
	switch s[i+1] {
	case '/':
		for j := i + 2; j < len(s); j++ {
			if s[j] == '\n' {
				return j, true
			}
		}
		return len(s) - 1, true
	case '*':
		for j := i + 2; j+1 < len(s); j++ {
			if s[j] == '*' && s[j+1] == '/' {
				return j + 1, true
			}
		}
		return len(s) - 1, true
	}
	return 0, false
}

// decodeStrict is the fast path: clean the span just enough to be valid
// JSON and decode it. The dialect is close to JSON, so this succeeds on
// well-formed registries; anything else falls back to the scanner.
func decodeStrict(span string) ([]rawEntry, bool) {
	cleaned := stripComments(span)
	cleaned = stripTrailingCommas(cleaned)

	var tuples []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &tuples); err != nil {
		return nil, false
	}

	entries := make([]rawEntry, 0, len(tuples))
	for _, tuple := range tuples {
		var fields []json.RawMessage
		if err := json.Unmarshal(tuple, &fields); err != nil {
			return nil, false
		}
		entry, err := decodeEntry(fields)
		if err != nil {
			return nil, false
		}
		entries = append(entries, entry)
	}
	return entries, true
}

func decodeEntry(fields []json.RawMessage) (rawEntry, error) {
	var entry rawEntry
	if len(fields) == 0 {
		return entry, fmt.Errorf("empty module tuple")
	}

	if err := json.Unmarshal(fields[0], &entry.name); err != nil {
		return entry, fmt.Errorf("module name is not a string: %w", err)
	}

	if len(fields) > 1 {
		entry.version = decodeVersion(fields[1])
	}

	if len(fields) > 2 {
		deps, err := decodeDeps(fields[2])
		if err != nil {
			return entry, err
		}
		entry.deps = deps
	}

	if len(fields) > 3 {
		var group int
		if err := json.Unmarshal(fields[3], &group); err == nil {
			entry.group = &group
		}
	}

	return entry, nil
}

// decodeVersion accepts a string token or a bare number; anything else
// yields an empty version rather than a failure, the token is opaque.
func decodeVersion(field json.RawMessage) string {
	var s string
	if err := json.Unmarshal(field, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(field, &n); err == nil {
		return n.String()
	}
	return ""
}

// decodeDeps accepts an array mixing quoted names and bare positional
// indices, or a single scalar of either kind.
func decodeDeps(field json.RawMessage) ([]rawDep, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(field, &elems); err != nil {
		elems = []json.RawMessage{field}
	}

	deps := make([]rawDep, 0, len(elems))
	for _, elem := range elems {
		trimmed := strings.TrimSpace(string(elem))
		if trimmed == "null" {
			continue
		}
		var name string
		if err := json.Unmarshal(elem, &name); err == nil {
			deps = append(deps, rawDep{name: name})
			continue
		}
		var idx int
		if err := json.Unmarshal(elem, &idx); err == nil {
			deps = append(deps, rawDep{index: idx, isIndex: true})
			continue
		}
		return nil, fmt.Errorf("dependency element %s is neither a name nor an index", trimmed)
	}
	return deps, nil
}

// resolveEntries turns raw entries into modules, replacing every index
// reference with the name at that position in the packed list. An index
// outside the list degrades to a warning; the module keeps its remaining
// dependencies.
func resolveEntries(entries []rawEntry, result *ParseResult) []Module {
	nameAt := make([]string, len(entries))
	for i, entry := range entries {
		nameAt[i] = entry.name
	}

	modules := make([]Module, 0, len(entries))
	for i, entry := range entries {
		mod := Module{
			Name:         entry.name,
			Version:      entry.version,
			Group:        entry.group,
			Index:        i,
			ParseWarning: entry.parseWarning,
			Fallback:     entry.fallback,
		}

		seen := make(map[string]bool, len(entry.deps))
		for _, dep := range entry.deps {
			name := dep.name
			if dep.isIndex {
				if dep.index < 0 || dep.index >= len(entries) {
					result.Warnings = append(result.Warnings, fmt.Sprintf(
						"module %q: dependency index %d out of range [0,%d)",
						entry.name, dep.index, len(entries)))
					mod.ParseWarning = true
					continue
				}
				name = nameAt[dep.index]
			}
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			mod.Dependencies = append(mod.Dependencies, name)
		}

		modules = append(modules, mod)
	}
	return modules
}

// stripComments removes // and /* */ comments outside string literals.
func stripComments(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"', '\'':
			end, err := skipString(s, i)
			if err != nil {
				buf.WriteString(s[i:])
				return buf.String()
			}
			buf.WriteString(s[i : end+1])
			i = end
		case '/':
			if end, ok := skipComment(s, i); ok {
				i = end
				continue
			}
			buf.WriteByte(c)
		default:
			buf.WriteByte(c)
		}
	}
	return buf.String()
}

// stripTrailingCommas removes commas that directly precede a closing
// bracket or brace, outside string literals.
func stripTrailingCommas(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"', '\'':
			end, err := skipString(s, i)
			if err != nil {
				buf.WriteString(s[i:])
				return buf.String()
			}
			buf.WriteString(s[i : end+1])
			i = end
		case ',':
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == ']' || s[j] == '}') {
				continue
			}
			buf.WriteByte(c)
		default:
			buf.WriteByte(c)
		}
	}
	return buf.String()
}

// parseScalar interprets a single fallback token.
func parseScalar(tok string) (rawDep, bool) {
	tok = strings.TrimSpace(tok)
	if len(tok) == 0 {
		return rawDep{}, false
	}
	if tok[0] == '"' || tok[0] == '\'' {
		return rawDep{name: unquote(tok)}, true
	}
	if idx, err := strconv.Atoi(tok); err == nil {
		return rawDep{index: idx, isIndex: true}, true
	}
	return rawDep{}, false
}

// unquote strips matching quotes and resolves backslash escapes. Tolerant:
// a missing closing quote just strips the opening one.
func unquote(tok string) string {
	if len(tok) < 2 {
		return strings.Trim(tok, `"'`)
	}
	quote := tok[0]
	body := tok[1:]
	if body[len(body)-1] == quote {
		body = body[:len(body)-1]
	}
	if !strings.ContainsRune(body, '\\') {
		return body
	}
	var buf strings.Builder
	buf.Grow(len(body))
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		buf.WriteByte(body[i])
	}
	return buf.String()
}
