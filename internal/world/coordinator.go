package world

import (
	"context"
	"strings"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/pkg/log"
)

// ExclusionPrefix marks a target the user asked to remove.
const ExclusionPrefix = "!"

// DependentsChecker reports whether anything installed still depends on the named package.
type DependentsChecker func(ctx context.Context, name string) (bool, error)

// NoDependents is a DependentsChecker for systems without reverse dependency information.
func NoDependents(context.Context, string) (bool, error) {
	return false, nil
}

// Update describes the world changes of a finished run.
type Update struct {
	// Targets are the user's targets, used when WorldSpecs is empty.
	Targets []string
	// WorldSpecs are the specs to record, as computed by the resolver.
	WorldSpecs []string
	// RemovedIfDependentNames are purged from the world set unless something still depends on them.
	RemovedIfDependentNames []string
	TargetIsSet             bool
}

// Coordinator applies the world changes once a run completed successfully.
type Coordinator struct {
	set           Set
	hasDependents DependentsChecker
	logger        log.Logger
}

func NewCoordinator(l log.Logger, set Set, hasDependents DependentsChecker) *Coordinator {
	if hasDependents == nil {
		hasDependents = NoDependents
	}

	return &Coordinator{set: set, hasDependents: hasDependents, logger: l}
}

// Classify splits specs into entries to add and entries to remove. Exclusions are removed,
// package specs are added, set names are left alone, and nothing is added when the targets name a set.
func Classify(specs []string, targetIsSet bool) (add, remove []string) {
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)

		switch {
		case spec == "":
		case strings.HasPrefix(spec, ExclusionPrefix):
			if name := strings.TrimPrefix(spec, ExclusionPrefix); name != "" {
				remove = append(remove, name)
			}
		case targetIsSet || !IsPackageSpec(spec):
		default:
			add = append(add, spec)
		}
	}

	return add, remove
}

// IsPackageSpec reports whether spec names a package (category/name) rather than a set.
func IsPackageSpec(spec string) bool {
	return strings.Contains(spec, "/")
}

// Apply updates the world set.
func (coordinator *Coordinator) Apply(ctx context.Context, update Update) error {
	specs := update.WorldSpecs
	if len(specs) == 0 {
		specs = update.Targets
	}

	add, remove := Classify(specs, update.TargetIsSet)

	for _, name := range update.RemovedIfDependentNames {
		dependent, err := coordinator.hasDependents(ctx, name)
		if err != nil {
			return errors.WithStackTraceAndPrefix(err, "check dependents of %s", name)
		}

		if dependent {
			coordinator.logger.Infof("Keeping %s in world: other packages still depend on it", name)
			continue
		}

		remove = append(remove, name)
	}

	if len(remove) > 0 {
		coordinator.logger.Infof("Removing from world: %s", strings.Join(remove, " "))

		if err := coordinator.set.Remove(ctx, remove...); err != nil {
			return err
		}
	}

	if len(add) > 0 {
		coordinator.logger.Infof("Adding to world: %s", strings.Join(add, " "))

		if err := coordinator.set.Add(ctx, add...); err != nil {
			return err
		}
	}

	return nil
}
