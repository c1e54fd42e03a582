package job

import (
	"encoding/json"

	"github.com/sourcepkg/pkgexec/internal/errors"
)

// EntryRecord is the serialized form of an Entry. Fields not used by a kind are omitted.
type EntryRecord struct {
	Kind            string              `json:"kind"`
	Origin          Spec                `json:"origin,omitempty"`
	Destination     RepositoryID        `json:"destination,omitempty"`
	DestinationKind string              `json:"destination_kind,omitempty"`
	Replacing       []Spec              `json:"replacing,omitempty"`
	Targets         []Spec              `json:"targets,omitempty"`
	Requires        []RequirementRecord `json:"requires,omitempty"`
}

// RequirementRecord is the serialized form of a Requirement.
type RequirementRecord struct {
	Target Index    `json:"target"`
	Flags  []string `json:"flags,omitempty"`
}

// StateRecord is the serialized form of a State.
type StateRecord struct {
	Status   string    `json:"status"`
	Output   OutputRef `json:"output,omitempty"`
	ExitCode int       `json:"exit_code,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// EncodeEntry converts an entry to its record.
func EncodeEntry(entry Entry) EntryRecord {
	record := EntryRecord{Kind: entry.Job.Kind().String()}

	switch j := entry.Job.(type) {
	case FetchJob:
		record.Origin = j.Origin
	case InstallJob:
		record.Origin = j.Origin
		record.Destination = j.Destination
		record.DestinationKind = j.DestinationKind.String()
		record.Replacing = j.Replacing
	case UninstallJob:
		record.Targets = j.Targets
	}

	for _, req := range entry.Requirements {
		record.Requires = append(record.Requires, RequirementRecord{Target: req.Target, Flags: req.Flags.Names()})
	}

	return record
}

// DecodeEntry converts a record back to an entry. Requirement targets are validated by the List.
func DecodeEntry(record EntryRecord) (Entry, error) {
	kind, err := ParseKind(record.Kind)
	if err != nil {
		return Entry{}, err
	}

	var entry Entry

	switch kind {
	case KindFetch:
		entry.Job = FetchJob{Origin: record.Origin}
	case KindInstall:
		destKind, err := ParseDestinationKind(record.DestinationKind)
		if err != nil {
			return Entry{}, err
		}

		entry.Job = InstallJob{
			Origin:          record.Origin,
			Destination:     record.Destination,
			Replacing:       record.Replacing,
			DestinationKind: destKind,
		}
	case KindUninstall:
		entry.Job = UninstallJob{Targets: record.Targets}
	}

	for _, req := range record.Requires {
		flags, err := ParseRequirementFlags(req.Flags...)
		if err != nil {
			return Entry{}, err
		}

		entry.Requirements = append(entry.Requirements, Requirement{Target: req.Target, Flags: flags})
	}

	return entry, nil
}

// Records returns the serialized form of the list.
func (list *List) Records() []EntryRecord {
	records := make([]EntryRecord, 0, list.Len())
	for _, entry := range list.Entries() {
		records = append(records, EncodeEntry(entry))
	}

	return records
}

// ListFromRecords decodes and validates serialized entries.
func ListFromRecords(records []EntryRecord) (*List, error) {
	builder := NewBuilder()

	for i, record := range records {
		entry, err := DecodeEntry(record)
		if err != nil {
			return nil, errors.Errorf("job %d: %w", i, err)
		}

		if _, err := builder.Append(entry.Job, entry.Requirements...); err != nil {
			return nil, errors.Errorf("job %d: %w", i, err)
		}
	}

	return builder.List(), nil
}

func (list *List) MarshalJSON() ([]byte, error) {
	return json.Marshal(list.Records())
}

func (list *List) UnmarshalJSON(data []byte) error {
	var records []EntryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return errors.New(err)
	}

	decoded, err := ListFromRecords(records)
	if err != nil {
		return err
	}

	list.entries = decoded.entries

	return nil
}

// EncodeState converts a state to its record.
func EncodeState(state State) StateRecord {
	record := StateRecord{Status: state.Status().String()}

	switch state := state.(type) {
	case Active:
		record.Output = state.Output
	case Succeeded:
		record.Output = state.Output
	case Failed:
		record.Output = state.Output
		record.ExitCode = state.ExitCode
	case Skipped:
		record.Reason = state.Reason
	}

	return record
}

// DecodeState converts a record back to a state.
func DecodeState(record StateRecord) (State, error) {
	status, err := ParseStatus(record.Status)
	if err != nil {
		return nil, err
	}

	switch status {
	case StatusActive:
		return Active{Output: record.Output}, nil
	case StatusSucceeded:
		return Succeeded{Output: record.Output}, nil
	case StatusFailed:
		return Failed{Output: record.Output, ExitCode: record.ExitCode}, nil
	case StatusSkipped:
		return Skipped{Reason: record.Reason}, nil
	}

	return Pending{}, nil
}

// EncodeStates converts states to records.
func EncodeStates(states []State) []StateRecord {
	records := make([]StateRecord, len(states))
	for i, state := range states {
		records[i] = EncodeState(state)
	}

	return records
}

// DecodeStates converts records to states.
func DecodeStates(records []StateRecord) ([]State, error) {
	states := make([]State, len(records))

	for i, record := range records {
		state, err := DecodeState(record)
		if err != nil {
			return nil, errors.Errorf("state %d: %w", i, err)
		}

		states[i] = state
	}

	return states, nil
}
