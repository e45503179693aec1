// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

// BaseConfig is embedded by every typed configuration record (host,
// service, application, endpoint). Name, if present, must be unique
// among siblings and match the pattern described by [ValidateName].
// Class, if present, must equal the concrete class the record is
// evaluated against (see [CheckClass]).
type BaseConfig struct {
	// Name is the optional explicit name of the component this record
	// configures. Anonymous (empty) records are auto-numbered by
	// [ControlContext.AddChild].
	Name string

	// Class is the optional concrete component class this record must
	// be evaluated against. Used to catch authoring mistakes where a
	// record intended for one class is attached under another.
	Class string
}

// ConfigRecord is satisfied by every typed configuration record.
// Validate checks field-level invariants (the "_config_<name>"
// validator-method convention of the source, reimagined as a single
// method per record type); defaults should already have been merged by
// the caller before Validate is invoked.
type ConfigRecord interface {
	Validate() error
}

// isNameByte reports whether b is a legal interior/edge byte of a
// component name: ASCII letters, digits, '-', '_', or '.'.
func isNameByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '-' || b == '_' || b == '.':
		return true
	}
	return false
}

// ValidateName checks name against ^(?![-.])[-_.A-Za-z0-9]+(?<![-.])$:
// non-empty, built only from letters/digits/'-'/'_'/'.', and not starting
// or ending with '-' or '.'. An empty name is always valid (anonymous).
func ValidateName(name string) error {
	if name == "" {
		return nil
	}
	for i := 0; i < len(name); i++ {
		if !isNameByte(name[i]) {
			return NewError(KindConfiguration, "invalid character in name: "+name, nil)
		}
	}
	if first := name[0]; first == '-' || first == '.' {
		return NewError(KindConfiguration, "name must not start with '-' or '.': "+name, nil)
	}
	if last := name[len(name)-1]; last == '-' || last == '.' {
		return NewError(KindConfiguration, "name must not end with '-' or '.': "+name, nil)
	}
	return nil
}

// Validate implements [ConfigRecord] for the embedded fields common to
// every record: the name pattern.
func (c *BaseConfig) Validate() error {
	return ValidateName(c.Name)
}

// CheckClass fails with a [KindConfiguration] error (matching
// [ErrConfiguration]) whose message starts with "ClassMismatch" if cfg declares an explicit Class that does not
// equal target. An empty declared class is always accepted (the record
// did not pin itself to a class).
func CheckClass(declaredClass, target string) error {
	if declaredClass != "" && declaredClass != target {
		return NewError(KindConfiguration,
			"ClassMismatch: config declares class \""+declaredClass+"\" but target class is \""+target+"\"", nil)
	}
	return nil
}

// stem returns the conventional auto-numbering prefix for a class name:
// the class name with its first letter lowercased, e.g. "HostRouter" ->
// "hostRouter". Used by [ControlContext.AddChild] to mint "{stem}1",
// "{stem}2", ... for anonymous children.
func stem(class string) string {
	if class == "" {
		return "component"
	}
	r := []rune(class)
	r[0] = toLowerRune(r[0])
	return string(r)
}

func toLowerRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// mergeDefault is a tiny helper used by config evaluators: it returns
// value if it is non-zero (per the comparable semantics of T), and def
// otherwise. This mirrors the source's "defaults are merged before
// validation" step for simple scalar fields without reflection.
func mergeDefault[T comparable](value, def T) T {
	var zero T
	if value == zero {
		return def
	}
	return value
}
