// Package preserve copies file metadata from a source to its destination.
package preserve

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFailed is returned when a requested attribute could not be applied for
// a reason other than missing privileges.
var ErrFailed = errors.New("failed to preserve attributes")

// Attrs is the set of attributes to carry over. Links does not affect Apply;
// it tells the planner to recreate hard-link topology.
type Attrs struct {
	Mode       bool
	Ownership  bool
	Timestamps bool
	Links      bool
	Context    bool
	Xattr      bool
}

// Default is what -p preserves without an explicit list.
func Default() Attrs {
	return Attrs{Mode: true, Ownership: true, Timestamps: true}
}

// All enables every attribute.
func All() Attrs {
	return Attrs{Mode: true, Ownership: true, Timestamps: true, Links: true, Context: true, Xattr: true}
}

// Any reports whether Apply has anything to do.
func (a Attrs) Any() bool {
	return a.Mode || a.Ownership || a.Timestamps || a.Context || a.Xattr
}

func (a Attrs) String() string {
	var names []string
	for _, f := range a.fields() {
		if *f.on {
			names = append(names, f.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

type field struct {
	name string
	on   *bool
}

func (a *Attrs) fields() []field {
	return []field{
		{"mode", &a.Mode},
		{"ownership", &a.Ownership},
		{"timestamps", &a.Timestamps},
		{"links", &a.Links},
		{"context", &a.Context},
		{"xattr", &a.Xattr},
	}
}

// ParseAttrs parses a comma-separated attribute list. An empty string or
// "default" yields Default; "all" anywhere in the list yields All.
func ParseAttrs(s string) (Attrs, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "default" {
		return Default(), nil
	}

	var a Attrs
	for _, raw := range strings.Split(s, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if name == "all" {
			return All(), nil
		}
		if name == "none" {
			continue
		}
		found := false
		for _, f := range a.fields() {
			if f.name == name {
				*f.on = true
				found = true
				break
			}
		}
		if !found {
			return Attrs{}, fmt.Errorf("unknown attribute %q (valid: mode, ownership, timestamps, links, context, xattr, all)", name)
		}
	}
	return a, nil
}
