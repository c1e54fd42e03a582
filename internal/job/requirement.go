package job

import (
	"strings"

	"github.com/sourcepkg/pkgexec/internal/errors"
)

// RequirementFlags is a set of conditions attached to a Requirement.
type RequirementFlags uint8

const (
	// FetchGate: the target must be Startable before this job may begin.
	FetchGate RequirementFlags = 1 << iota
	// RequireAlways: the target must have succeeded under every continue-on-failure policy.
	RequireAlways
	// RequireIfSatisfied: the target must have succeeded under the if-satisfied policy.
	RequireIfSatisfied
	// RequireIfIndependent: the target must have succeeded under the if-independent policy.
	RequireIfIndependent
)

var requirementFlagNames = []struct {
	flag RequirementFlags
	name string
}{
	{FetchGate, "fetch_gate"},
	{RequireAlways, "always"},
	{RequireIfSatisfied, "if_satisfied"},
	{RequireIfIndependent, "if_independent"},
}

// Has reports whether all bits of flag are set.
func (flags RequirementFlags) Has(flag RequirementFlags) bool {
	return flags&flag == flag
}

// Names returns the flag names in a stable order.
func (flags RequirementFlags) Names() []string {
	var names []string

	for _, f := range requirementFlagNames {
		if flags.Has(f.flag) {
			names = append(names, f.name)
		}
	}

	return names
}

func (flags RequirementFlags) String() string {
	return strings.Join(flags.Names(), "|")
}

// ParseRequirementFlags combines the named flags.
func ParseRequirementFlags(names ...string) (RequirementFlags, error) {
	var flags RequirementFlags

	for _, name := range names {
		found := false

		for _, f := range requirementFlagNames {
			if strings.EqualFold(f.name, strings.TrimSpace(name)) {
				flags |= f.flag
				found = true

				break
			}
		}

		if !found {
			return 0, errors.Errorf("unknown requirement flag %q", name)
		}
	}

	return flags, nil
}

// Requirement is an edge from a job to an earlier job in the same List.
type Requirement struct {
	Target Index
	Flags  RequirementFlags
}
