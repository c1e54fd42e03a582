package queue

import (
	"strings"

	"github.com/sourcepkg/pkgexec/internal/errors"
)

// Policy is the continue-on-failure policy of a run.
type Policy int

const (
	// Never stops admitting work after the first failure.
	Never Policy = iota
	// IfSatisfied keeps running jobs whose always and if-satisfied requirements succeeded.
	IfSatisfied
	// IfIndependent keeps running jobs whose always and if-independent requirements succeeded.
	IfIndependent
	// Always keeps running jobs whose always requirements succeeded.
	Always
)

var policyNames = map[Policy]string{
	Never:         "never",
	IfSatisfied:   "if-satisfied",
	IfIndependent: "if-independent",
	Always:        "always",
}

func (policy Policy) String() string {
	return policyNames[policy]
}

// ParsePolicy parses the command line spelling of a policy.
func ParsePolicy(str string) (Policy, error) {
	for policy, name := range policyNames {
		if strings.EqualFold(name, str) {
			return policy, nil
		}
	}

	return Never, errors.Errorf("invalid continue-on-failure value %q, expected one of: never, if-satisfied, if-independent, always", str)
}

// PolicyNames lists the accepted spellings.
func PolicyNames() []string {
	return []string{"never", "if-satisfied", "if-independent", "always"}
}
