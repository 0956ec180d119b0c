package gate

import (
	"fmt"
	"strings"
)

// EntryType is the direction of traffic passing through a resource.
type EntryType int

const (
	// Outbound marks calls leaving this process (client calls, local
	// functions). It is the zero value.
	Outbound EntryType = iota

	// Inbound marks traffic arriving at this process. System protection
	// rules only apply to inbound entries.
	Inbound
)

// String returns the lowercase name of the entry type.
func (t EntryType) String() string {
	switch t {
	case Outbound:
		return "outbound"
	case Inbound:
		return "inbound"
	default:
		return fmt.Sprintf("EntryType(%d)", int(t))
	}
}

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	return t == Outbound || t == Inbound
}

// ParseEntryType parses "inbound" or "outbound" (case-insensitive).
// The short forms "in" and "out" are accepted as well.
func ParseEntryType(s string) (EntryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "outbound", "out":
		return Outbound, nil
	case "inbound", "in":
		return Inbound, nil
	default:
		return Outbound, fmt.Errorf("%w: unknown entry type %q", ErrInvalidResource, s)
	}
}

// Resource identifies a guarded unit of work. Resources are immutable and
// comparable, so they can be used as map keys.
type Resource struct {
	name      string
	entryType EntryType
}

// NewResource returns a resource with the given name and entry type.
// The name must be non-empty.
func NewResource(name string, entryType EntryType) (Resource, error) {
	r := Resource{name: name, entryType: entryType}
	if err := r.Validate(); err != nil {
		return Resource{}, err
	}
	return r, nil
}

// MustResource is like NewResource but panics on invalid input. It is meant
// for package-level resource declarations.
func MustResource(name string, entryType EntryType) Resource {
	r, err := NewResource(name, entryType)
	if err != nil {
		panic(err)
	}
	return r
}

// Name returns the resource name.
func (r Resource) Name() string {
	return r.name
}

// EntryType returns the traffic direction of the resource.
func (r Resource) EntryType() EntryType {
	return r.entryType
}

// Validate returns ErrInvalidResource if the resource has no name or an
// unknown entry type.
func (r Resource) Validate() error {
	if strings.TrimSpace(r.name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidResource)
	}
	if !r.entryType.Valid() {
		return fmt.Errorf("%w: unknown entry type %d for %q", ErrInvalidResource, int(r.entryType), r.name)
	}
	return nil
}

// String returns "name(entry_type)".
func (r Resource) String() string {
	return fmt.Sprintf("%s(%s)", r.name, r.entryType)
}
