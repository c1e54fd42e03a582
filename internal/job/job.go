// Package job describes the planned units of work handed over by the resolver: fetching,
// installing and uninstalling packages. Jobs are immutable; their run-time status lives in State
// values kept alongside the list by whoever executes it.
package job

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sourcepkg/pkgexec/internal/errors"
)

// Index is the position of a job in its List. It is the job's stable identity.
type Index int

// Spec is a package dependency specification, e.g. `=dev-lang/go-1.22.1:0::gentoo`.
type Spec string

// RepositoryID names the repository a package is installed to.
type RepositoryID string

// Kind identifies the job variant.
type Kind int

const (
	KindFetch Kind = iota
	KindInstall
	KindUninstall
)

var kindNames = map[Kind]string{
	KindFetch:     "fetch",
	KindInstall:   "install",
	KindUninstall: "uninstall",
}

func (kind Kind) String() string {
	if name, ok := kindNames[kind]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", int(kind))
}

// ParseKind parses the textual kind name.
func ParseKind(str string) (Kind, error) {
	for kind, name := range kindNames {
		if strings.EqualFold(name, str) {
			return kind, nil
		}
	}

	return 0, errors.Errorf("unknown job kind %q", str)
}

// DestinationKind tells an install job where the merge goes.
type DestinationKind int

const (
	ToRoot DestinationKind = iota
	ToChroot
	CreateBinary
)

var destinationKindNames = map[DestinationKind]string{
	ToRoot:       "root",
	ToChroot:     "chroot",
	CreateBinary: "binary",
}

func (kind DestinationKind) String() string {
	if name, ok := destinationKindNames[kind]; ok {
		return name
	}

	return fmt.Sprintf("destination(%d)", int(kind))
}

// ParseDestinationKind parses the textual destination kind; an empty string means ToRoot.
func ParseDestinationKind(str string) (DestinationKind, error) {
	if str == "" {
		return ToRoot, nil
	}

	for kind, name := range destinationKindNames {
		if strings.EqualFold(name, str) {
			return kind, nil
		}
	}

	return 0, errors.Errorf("unknown destination kind %q", str)
}

// Job is one of FetchJob, InstallJob or UninstallJob.
type Job interface {
	Kind() Kind
	// Specs returns the package specs the job targets.
	Specs() []Spec
	// Description is a short human readable label, also used as the log prefix.
	Description() string

	isJob()
}

// FetchJob downloads whatever the origin package needs to be built.
type FetchJob struct {
	Origin Spec
}

// InstallJob builds and merges the origin package into the destination repository.
type InstallJob struct {
	Origin          Spec
	Destination     RepositoryID
	Replacing       []Spec
	DestinationKind DestinationKind
}

// UninstallJob unmerges the targets.
type UninstallJob struct {
	Targets []Spec
}

func (FetchJob) isJob()     {}
func (InstallJob) isJob()   {}
func (UninstallJob) isJob() {}

func (FetchJob) Kind() Kind     { return KindFetch }
func (InstallJob) Kind() Kind   { return KindInstall }
func (UninstallJob) Kind() Kind { return KindUninstall }

func (j FetchJob) Specs() []Spec   { return []Spec{j.Origin} }
func (j InstallJob) Specs() []Spec { return []Spec{j.Origin} }

func (j UninstallJob) Specs() []Spec {
	return append([]Spec(nil), j.Targets...)
}

func (j FetchJob) Description() string {
	return "fetch " + string(j.Origin)
}

func (j InstallJob) Description() string {
	desc := "install " + string(j.Origin)
	if j.Destination != "" {
		desc += " to " + string(j.Destination)
	}

	return desc
}

func (j UninstallJob) Description() string {
	targets := make([]string, len(j.Targets))
	for i, target := range j.Targets {
		targets[i] = string(target)
	}

	return "uninstall " + strings.Join(targets, ", ")
}

func cloneJob(j Job) Job {
	switch j := j.(type) {
	case InstallJob:
		j.Replacing = slices.Clone(j.Replacing)
		return j
	case UninstallJob:
		j.Targets = slices.Clone(j.Targets)
		return j
	default:
		return j
	}
}

// Validate checks that the job carries the fields its kind requires.
func Validate(j Job) error {
	switch j := j.(type) {
	case FetchJob:
		if j.Origin == "" {
			return errors.Errorf("fetch job without origin")
		}
	case InstallJob:
		if j.Origin == "" {
			return errors.Errorf("install job without origin")
		}

		if j.Destination == "" {
			return errors.Errorf("install job for %s without destination", j.Origin)
		}
	case UninstallJob:
		if len(j.Targets) == 0 {
			return errors.Errorf("uninstall job without targets")
		}
	case nil:
		return errors.Errorf("nil job")
	}

	return nil
}
