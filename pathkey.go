// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import "strings"

// PathKey is an ordered sequence of components plus a wildcard flag, the
// key type for [PathMap]. Two flavors share this type: path-style keys
// (URL path components, in request order) and hostname-style keys
// (reversed DNS labels, so the TLD is the first component, enabling
// subdomain-wildcard prefix matching the same way path-wildcard matching
// works).
//
// If Wildcard is true, the key represents "this prefix and anything
// below it"; if false, only an exact match of all components. An empty
// Components slice with Wildcard=true is the universal key (matches
// everything).
type PathKey struct {
	Components []string
	Wildcard   bool
}

// NewPathKey builds a [PathKey] from explicit components.
func NewPathKey(components []string, wildcard bool) PathKey {
	out := make([]string, len(components))
	copy(out, components)
	return PathKey{Components: out, Wildcard: wildcard}
}

// ParsePath parses a URL-style path into a path-flavored [PathKey].
// A trailing "/" (or an empty path) designates a wildcard key; the
// literal component "*" designates the universal wildcard and must be
// the sole component. Leading/trailing slashes and empty segments
// (collapsing "//") are ignored when splitting.
func ParsePath(path string) PathKey {
	trimmed := strings.Trim(path, "/")
	if trimmed == "*" {
		return PathKey{Wildcard: true}
	}
	wildcard := strings.HasSuffix(path, "/") || path == ""
	if trimmed == "" {
		return PathKey{Wildcard: wildcard}
	}
	parts := strings.Split(trimmed, "/")
	components := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		components = append(components, p)
	}
	return PathKey{Components: components, Wildcard: wildcard}
}

// ParseHostname parses a hostname pattern into a hostname-flavored
// [PathKey] with labels in reversed (TLD-first) order. "*" parses to the
// universal wildcard key. "*.example.com" parses to a subdomain-wildcard
// key with components ["com", "example"]. A plain hostname parses to an
// exact (non-wildcard) key, e.g. "www.example.com" -> ["com", "example",
// "www"].
func ParseHostname(pattern string) PathKey {
	if pattern == "*" {
		return PathKey{Wildcard: true}
	}
	wildcard := false
	rest := pattern
	if strings.HasPrefix(pattern, "*.") {
		wildcard = true
		rest = pattern[2:]
	}
	labels := strings.Split(rest, ".")
	components := make([]string, 0, len(labels))
	for i := len(labels) - 1; i >= 0; i-- {
		if labels[i] == "" {
			continue
		}
		components = append(components, strings.ToLower(labels[i]))
	}
	return PathKey{Components: components, Wildcard: wildcard}
}

// String renders the key back into its natural textual form: a
// slash-joined path (with a trailing slash when Wildcard) for path-style
// keys, or a dotted, un-reversed hostname (with a leading "*." when
// Wildcard) for hostname-style keys. Since PathKey does not itself
// remember which flavor it is, callers use [PathKey.PathString] or
// [PathKey.HostString] to pick the correct rendering explicitly; String
// defaults to the path rendering.
func (k PathKey) String() string {
	return k.PathString()
}

// PathString renders k as a URL path.
func (k PathKey) PathString() string {
	var b strings.Builder
	b.WriteByte('/')
	b.WriteString(strings.Join(k.Components, "/"))
	if k.Wildcard {
		if len(k.Components) > 0 {
			b.WriteByte('/')
		}
	}
	return b.String()
}

// HostString renders k as a dotted hostname pattern (labels un-reversed).
func (k PathKey) HostString() string {
	if len(k.Components) == 0 {
		if k.Wildcard {
			return "*"
		}
		return ""
	}
	labels := make([]string, len(k.Components))
	for i, c := range k.Components {
		labels[len(k.Components)-1-i] = c
	}
	host := strings.Join(labels, ".")
	if k.Wildcard {
		return "*." + host
	}
	return host
}

// Concat returns a new [PathKey] whose components are k's followed by
// other's, with other's Wildcard flag (the suffix governs whether the
// combined key is a prefix match). Used to build synthetic
// hostname+path mount keys (see [Endpoint] mount table construction).
// Concat assumes k itself matches a fixed, known number of components:
// it has no way to represent "k matches any number of components", so
// a universal (zero-component, wildcard) k must not be combined with
// Concat — callers need that case handled separately (see
// [MountTable]'s universal map).
func (k PathKey) Concat(other PathKey) PathKey {
	combined := make([]string, 0, len(k.Components)+len(other.Components))
	combined = append(combined, k.Components...)
	combined = append(combined, other.Components...)
	return PathKey{Components: combined, Wildcard: other.Wildcard}
}

// Equal reports whether k and other have identical components and
// wildcard flag.
func (k PathKey) Equal(other PathKey) bool {
	if k.Wildcard != other.Wildcard || len(k.Components) != len(other.Components) {
		return false
	}
	for i := range k.Components {
		if k.Components[i] != other.Components[i] {
			return false
		}
	}
	return true
}
