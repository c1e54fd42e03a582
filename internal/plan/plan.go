// Package plan loads the job lists produced by the resolver.
//
// A plan is read from a JSON document, from an HCL file or from an inherited file descriptor carrying
// the JSON document.
package plan

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/job"
	"github.com/sourcepkg/pkgexec/internal/resume"
)

// Plan is the resolver's output: what to pretend, what to execute, and what to record in the world set.
type Plan struct {
	ExecuteJobs             *job.List
	PretendJobs             *job.List
	Targets                 []string
	WorldSpecs              []string
	RemovedIfDependentNames []string
	TargetIsSet             bool
}

type document struct {
	Targets                 []string          `json:"targets,omitempty"`
	WorldSpecs              []string          `json:"world_specs,omitempty"`
	RemovedIfDependentNames []string          `json:"removed_if_dependent_names,omitempty"`
	ExecuteJobs             []job.EntryRecord `json:"execute_jobs"`
	PretendJobs             []job.EntryRecord `json:"pretend_jobs,omitempty"`
	TargetIsSet             bool              `json:"target_is_set,omitempty"`
}

// Decode reads a JSON plan. Without pretend jobs, every install job is pretended.
func Decode(r io.Reader) (*Plan, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "decode plan")
	}

	executeJobs, err := job.ListFromRecords(doc.ExecuteJobs)
	if err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "execute jobs")
	}

	pretendJobs, err := job.ListFromRecords(doc.PretendJobs)
	if err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "pretend jobs")
	}

	return finish(&Plan{
		ExecuteJobs:             executeJobs,
		PretendJobs:             pretendJobs,
		Targets:                 doc.Targets,
		WorldSpecs:              doc.WorldSpecs,
		RemovedIfDependentNames: doc.RemovedIfDependentNames,
		TargetIsSet:             doc.TargetIsSet,
	}, len(doc.PretendJobs) == 0), nil
}

// Encode writes the plan as JSON.
func Encode(w io.Writer, plan *Plan) error {
	doc := document{
		Targets:                 plan.Targets,
		WorldSpecs:              plan.WorldSpecs,
		RemovedIfDependentNames: plan.RemovedIfDependentNames,
		ExecuteJobs:             plan.ExecuteJobs.Records(),
		PretendJobs:             plan.PretendJobs.Records(),
		TargetIsSet:             plan.TargetIsSet,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return errors.WithStackTrace(encoder.Encode(doc))
}

// LoadFile reads a plan file; `.hcl` files are parsed as HCL, anything else as JSON.
func LoadFile(path string) (*Plan, error) {
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.New(err)
		}

		return ParseHCL(src, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err)
	}

	defer file.Close()

	return Decode(file)
}

// LoadFD reads a JSON plan from an inherited file descriptor and closes it.
func LoadFD(fd int) (*Plan, error) {
	file := os.NewFile(uintptr(fd), "plan-fd")
	if file == nil {
		return nil, errors.Errorf("invalid plan file descriptor %d", fd)
	}

	defer file.Close()

	return Decode(file)
}

// DerivePretend returns one pretend job per install job of the list, without requirements.
func DerivePretend(list *job.List) *job.List {
	builder := job.NewBuilder()

	for _, entry := range list.Entries() {
		if install, ok := entry.Job.(job.InstallJob); ok {
			builder.MustAppend(install)
		}
	}

	return builder.List()
}

// ResumeData converts the plan to the state of a fresh run.
func (plan *Plan) ResumeData(runID string, preserveWorld bool) *resume.Data {
	return &resume.Data{
		RunID:                   runID,
		ExecuteJobs:             plan.ExecuteJobs,
		PretendJobs:             plan.PretendJobs,
		States:                  job.PendingStates(plan.ExecuteJobs.Len()),
		Targets:                 plan.Targets,
		WorldSpecs:              plan.WorldSpecs,
		RemovedIfDependentNames: plan.RemovedIfDependentNames,
		PreserveWorld:           preserveWorld,
		TargetIsSet:             plan.TargetIsSet,
	}
}

func finish(plan *Plan, derivePretend bool) *Plan {
	if derivePretend {
		plan.PretendJobs = DerivePretend(plan.ExecuteJobs)
	}

	return plan
}
