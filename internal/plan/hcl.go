package plan

import (
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/hclenv"
	"github.com/sourcepkg/pkgexec/internal/job"
)

type hclPlanFile struct {
	Targets                 []string  `hcl:"targets,optional"`
	WorldSpecs              []string  `hcl:"world_specs,optional"`
	RemovedIfDependentNames []string  `hcl:"removed_if_dependent_names,optional"`
	TargetIsSet             *bool     `hcl:"target_is_set,optional"`
	Jobs                    []*hclJob `hcl:"job,block"`
	Pretend                 []*hclJob `hcl:"pretend,block"`
}

type hclJob struct {
	Origin          *string           `hcl:"origin,optional"`
	Destination     *string           `hcl:"destination,optional"`
	DestinationKind *string           `hcl:"destination_kind,optional"`
	Kind            string            `hcl:"kind,label"`
	Replacing       []string          `hcl:"replacing,optional"`
	Targets         []string          `hcl:"targets,optional"`
	Requires        []*hclRequirement `hcl:"requires,block"`
}

type hclRequirement struct {
	Flags  []string `hcl:"flags,optional"`
	Target int      `hcl:"target"`
}

// ParseHCL parses a plan written as HCL:
//
//	targets = ["dev-lang/go"]
//
//	job "fetch" {
//	  origin = "=dev-lang/go-1.22.1::gentoo"
//	}
//
//	job "install" {
//	  origin      = "=dev-lang/go-1.22.1::gentoo"
//	  destination = "installed"
//	  requires {
//	    target = 0
//	    flags  = ["fetch_gate", "always"]
//	  }
//	}
//
// `env.NAME` expands environment variables.
func ParseHCL(src []byte, filename string) (*Plan, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.WithStackTraceAndPrefix(diags, "failed to parse plan %s", filename)
	}

	var parsed hclPlanFile
	if diags := gohcl.DecodeBody(file.Body, hclenv.EvalContext(), &parsed); diags.HasErrors() {
		return nil, errors.WithStackTraceAndPrefix(diags, "failed to decode plan %s", filename)
	}

	executeJobs, err := hclJobList(parsed.Jobs)
	if err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "plan %s", filename)
	}

	pretendJobs, err := hclJobList(parsed.Pretend)
	if err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "plan %s", filename)
	}

	plan := &Plan{
		ExecuteJobs:             executeJobs,
		PretendJobs:             pretendJobs,
		Targets:                 parsed.Targets,
		WorldSpecs:              parsed.WorldSpecs,
		RemovedIfDependentNames: parsed.RemovedIfDependentNames,
	}

	if parsed.TargetIsSet != nil {
		plan.TargetIsSet = *parsed.TargetIsSet
	}

	return finish(plan, len(parsed.Pretend) == 0), nil
}

func hclJobList(blocks []*hclJob) (*job.List, error) {
	records := make([]job.EntryRecord, 0, len(blocks))

	for _, block := range blocks {
		record := job.EntryRecord{
			Kind:            block.Kind,
			Origin:          job.Spec(deref(block.Origin)),
			Destination:     job.RepositoryID(deref(block.Destination)),
			DestinationKind: deref(block.DestinationKind),
		}

		for _, spec := range block.Replacing {
			record.Replacing = append(record.Replacing, job.Spec(spec))
		}

		for _, spec := range block.Targets {
			record.Targets = append(record.Targets, job.Spec(spec))
		}

		for _, req := range block.Requires {
			record.Requires = append(record.Requires, job.RequirementRecord{Target: job.Index(req.Target), Flags: req.Flags})
		}

		records = append(records, record)
	}

	return job.ListFromRecords(records)
}

func deref(str *string) string {
	if str == nil {
		return ""
	}

	return *str
}
