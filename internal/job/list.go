package job

import (
	"slices"

	"github.com/sourcepkg/pkgexec/internal/errors"
)

// Entry is a job together with its requirements.
type Entry struct {
	Job          Job
	Requirements []Requirement
}

// List is an immutable, ordered sequence of jobs. Every requirement refers to a job with a lower index,
// so the list is always in a valid topological order.
type List struct {
	entries []Entry
}

// NewList validates the entries and wraps them in a List.
func NewList(entries ...Entry) (*List, error) {
	builder := NewBuilder()

	for _, entry := range entries {
		if _, err := builder.Append(entry.Job, entry.Requirements...); err != nil {
			return nil, err
		}
	}

	return builder.List(), nil
}

// Len returns the number of jobs.
func (list *List) Len() int {
	if list == nil {
		return 0
	}

	return len(list.entries)
}

// Job returns a copy of the job at index.
func (list *List) Job(index Index) Job {
	return cloneJob(list.entries[index].Job)
}

// Requirements returns a copy of the requirements of the job at index.
func (list *List) Requirements(index Index) []Requirement {
	return slices.Clone(list.entries[index].Requirements)
}

// Entries returns a copy of all entries.
func (list *List) Entries() []Entry {
	if list == nil {
		return nil
	}

	entries := make([]Entry, len(list.entries))
	for i, entry := range list.entries {
		entries[i] = Entry{Job: cloneJob(entry.Job), Requirements: slices.Clone(entry.Requirements)}
	}

	return entries
}

// Count returns the number of jobs of the given kind.
func (list *List) Count(kind Kind) int {
	if list == nil {
		return 0
	}

	count := 0

	for _, entry := range list.entries {
		if entry.Job.Kind() == kind {
			count++
		}
	}

	return count
}

// Builder is the append-only way to construct a List.
type Builder struct {
	entries []Entry
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Append adds a job and returns its index. Requirements must point at jobs already appended.
func (builder *Builder) Append(j Job, requirements ...Requirement) (Index, error) {
	if err := Validate(j); err != nil {
		return 0, err
	}

	index := Index(len(builder.entries))

	for _, req := range requirements {
		if req.Target < 0 || req.Target >= index {
			return 0, errors.New(InvalidRequirementError{Job: index, Target: req.Target})
		}
	}

	builder.entries = append(builder.entries, Entry{
		Job:          cloneJob(j),
		Requirements: slices.Clone(requirements),
	})

	return index, nil
}

// MustAppend is Append for statically known plans; it panics on an invalid requirement.
func (builder *Builder) MustAppend(j Job, requirements ...Requirement) Index {
	index, err := builder.Append(j, requirements...)
	if err != nil {
		panic(err)
	}

	return index
}

// List freezes the builder contents.
func (builder *Builder) List() *List {
	return &List{entries: append([]Entry(nil), builder.entries...)}
}
