// Package manifest recognises the five supported manifest formats and
// extracts each project's direct dependencies.
package manifest

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/NFrozeCLAWDBOT/bastion/internal/graph"
)

// Dependency is a single direct dependency as declared in a manifest,
// with its version already cleaned of range operators.
type Dependency struct {
	Name    string
	Version string
}

var rangePrefix = regexp.MustCompile(`^[\^~>=<]*`)

// cleanVersion strips a leading run of range-operator characters and
// surrounding whitespace, e.g. "^1.2.3" -> "1.2.3".
func cleanVersion(v string) string {
	return strings.TrimSpace(rangePrefix.ReplaceAllString(v, ""))
}

// Parse extracts the direct dependency list for the given ecosystem.
// Unparsable entries are silently skipped; Parse returns whatever it
// could extract, possibly an empty slice.
func Parse(ecosystem graph.Ecosystem, text string) []Dependency {
	switch ecosystem {
	case graph.NPM:
		return parseNPM(text)
	case graph.PyPI:
		return parsePyPI(text)
	case graph.Go:
		return parseGo(text)
	case graph.Maven:
		return parseMaven(text)
	case graph.Cargo:
		return parseCargo(text)
	default:
		return nil
	}
}

// orderedEntry is one key/value pair read off a JSON object in
// document order.
type orderedEntry struct {
	Key   string
	Value string
}

// decodeOrderedStringObject walks a JSON object token-by-token so that
// key order (and last-value-wins semantics on duplicate keys) matches
// how a JS/Python dict would iterate it, instead of the random order
// Go's map decoding would otherwise produce.
func decodeOrderedStringObject(raw json.RawMessage) ([]orderedEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil
	}
	var entries []orderedEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return entries, err
		}
		key, _ := keyTok.(string)

		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return entries, err
		}
		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			// Non-string dependency value (e.g. object form); skip it.
			continue
		}
		entries = append(entries, orderedEntry{Key: key, Value: s})
	}
	return entries, nil
}

// mergeOrdered applies dict.update semantics: a key keeps the position
// of its first occurrence but the value of its last occurrence.
func mergeOrdered(dst []Dependency, index map[string]int, entries []orderedEntry) ([]Dependency, map[string]int) {
	for _, e := range entries {
		if i, ok := index[e.Key]; ok {
			dst[i].Version = cleanVersion(e.Value)
			continue
		}
		index[e.Key] = len(dst)
		dst = append(dst, Dependency{Name: e.Key, Version: cleanVersion(e.Value)})
	}
	return dst, index
}

func parseNPM(text string) []Dependency {
	var pkg struct {
		Dependencies    json.RawMessage `json:"dependencies"`
		DevDependencies json.RawMessage `json:"devDependencies"`
	}
	if err := json.Unmarshal([]byte(text), &pkg); err != nil {
		return nil
	}

	deps, index := []Dependency{}, map[string]int{}
	if entries, err := decodeOrderedStringObject(pkg.Dependencies); err == nil {
		deps, index = mergeOrdered(deps, index, entries)
	}
	if entries, err := decodeOrderedStringObject(pkg.DevDependencies); err == nil {
		deps, index = mergeOrdered(deps, index, entries)
	}
	return deps
}

var pypiLine = regexp.MustCompile(`^([A-Za-z0-9._-]+)\s*(?:[><=!~]+\s*(.+?))?$`)

func parsePyPI(text string) []Dependency {
	var deps []Dependency
	for _, rawLine := range strings.Split(strings.TrimSpace(text), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		m := pypiLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.ToLower(strings.ReplaceAll(m[1], "_", "-"))

		version := ""
		if m[2] != "" {
			version = strings.SplitN(m[2], ",", 2)[0]
			version = strings.SplitN(version, ";", 2)[0]
			version = strings.TrimSpace(version)
			version = strings.TrimRight(version, ",")
			version = strings.TrimLeft(version, "=><~!")
		}
		deps = append(deps, Dependency{Name: name, Version: version})
	}
	return deps
}

func parseGo(text string) []Dependency {
	var deps []Dependency
	inRequire := false
	for _, rawLine := range strings.Split(strings.TrimSpace(text), "\n") {
		line := strings.TrimSpace(rawLine)
		switch {
		case strings.HasPrefix(line, "require ("):
			inRequire = true
			continue
		case inRequire && line == ")":
			inRequire = false
			continue
		case inRequire || strings.HasPrefix(line, "require "):
			body := strings.TrimSpace(strings.TrimPrefix(line, "require "))
			parts := strings.Fields(body)
			if len(parts) >= 2 && !strings.HasPrefix(parts[0], "//") {
				deps = append(deps, Dependency{Name: parts[0], Version: strings.TrimPrefix(parts[1], "v")})
			}
		}
	}
	return deps
}

var (
	mavenDepBlock = regexp.MustCompile(`(?s)<dependency>(.*?)</dependency>`)
	mavenGroupID  = regexp.MustCompile(`(?s)<groupId>(.*?)</groupId>`)
	mavenArtID    = regexp.MustCompile(`(?s)<artifactId>(.*?)</artifactId>`)
	mavenVersion  = regexp.MustCompile(`(?s)<version>(.*?)</version>`)
)

func parseMaven(text string) []Dependency {
	var deps []Dependency
	for _, block := range mavenDepBlock.FindAllStringSubmatch(text, -1) {
		gid := mavenGroupID.FindStringSubmatch(block[1])
		aid := mavenArtID.FindStringSubmatch(block[1])
		if gid == nil || aid == nil {
			continue
		}
		version := ""
		if v := mavenVersion.FindStringSubmatch(block[1]); v != nil {
			version = strings.TrimSpace(v[1])
		}
		deps = append(deps, Dependency{
			Name:    strings.TrimSpace(gid[1]) + ":" + strings.TrimSpace(aid[1]),
			Version: version,
		})
	}
	return deps
}

var cargoInlineVersion = regexp.MustCompile(`version\s*=\s*["']([^"']+)`)

func parseCargo(text string) []Dependency {
	var deps []Dependency
	inDeps := false
	for _, rawLine := range strings.Split(strings.TrimSpace(text), "\n") {
		line := strings.TrimSpace(rawLine)
		switch {
		case line == "[dependencies]" || line == "[dev-dependencies]":
			inDeps = true
			continue
		case strings.HasPrefix(line, "[") && inDeps:
			inDeps = false
			continue
		}
		if !inDeps || !strings.Contains(line, "=") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		name := strings.TrimSpace(parts[0])
		verStr := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		if m := cargoInlineVersion.FindStringSubmatch(verStr); m != nil {
			verStr = m[1]
		}
		deps = append(deps, Dependency{Name: name, Version: cleanVersion(verStr)})
	}
	return deps
}
