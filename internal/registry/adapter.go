// Package registry defines the shared contract every ecosystem-specific
// registry adapter implements: given a package name and pinned
// version, fetch its immediate dependencies and metadata.
package registry

import (
	"context"
	"encoding/json"
	"strings"
)

// DependencyRef is one immediate dependency as returned by a registry
// adapter, in the order the upstream registry reported it.
type DependencyRef struct {
	Name    string
	Version string
}

// Metadata carries the optional package-level signals a registry
// adapter could find. Any field left at its zero value is treated by
// the risk scorer as "absent" per spec.
type Metadata struct {
	Licence         string
	FirstPublished  string
	LastPublished   string
	WeeklyDownloads int
}

// Adapter fetches one package's immediate dependencies and metadata
// from a single ecosystem's registry. Adapters never return an error
// for ordinary upstream failures (404s, timeouts, malformed bodies) —
// those produce an empty or partial result, and the caller still records
// the node, without a resolution error. Adapter.Fetch only returns a non-nil
// error for conditions the resolver should treat as unrecoverable for
// that node, which in practice this analyser never triggers; the
// return signature exists so adapters compose with context
// cancellation.
type Adapter interface {
	Fetch(ctx context.Context, name, version string) ([]DependencyRef, Metadata, error)
}

// DecodeOrderedStringObject walks a JSON object token-by-token,
// preserving declaration order, and returns only the entries whose
// value is a plain JSON string (skipping nested objects/arrays such as
// npm's git/workspace dependency specifiers).
func DecodeOrderedStringObject(raw json.RawMessage) []DependencyRef {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}
	var out []DependencyRef
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return out
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return out
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		out = append(out, DependencyRef{Name: key, Version: s})
	}
	return out
}

// CleanVersion strips a leading run of semver range-operator
// characters, mirroring the manifest parser's cleaning rule so
// versions read from upstream registries match the same convention.
func CleanVersion(v string) string {
	v = strings.TrimLeft(v, "^~>=< ")
	return strings.TrimSpace(v)
}
