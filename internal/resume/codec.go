package resume

import (
	"encoding/json"
	"io"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/job"
)

// FormatVersion is bumped whenever the envelope layout changes.
const FormatVersion = 1

const formatName = "pkgexec-resume"

type envelope struct {
	SavedAt       time.Time `json:"saved_at"`
	Format        string    `json:"format"`
	EngineVersion string    `json:"engine_version"`
	Data          record    `json:"data"`
	FormatVersion int       `json:"format_version"`
}

type record struct {
	RunID                   string            `json:"run_id"`
	ExecuteJobs             []job.EntryRecord `json:"execute_jobs"`
	PretendJobs             []job.EntryRecord `json:"pretend_jobs,omitempty"`
	States                  []job.StateRecord `json:"states"`
	Targets                 []string          `json:"targets,omitempty"`
	WorldSpecs              []string          `json:"world_specs,omitempty"`
	RemovedIfDependentNames []string          `json:"removed_if_dependent_names,omitempty"`
	PreserveWorld           bool              `json:"preserve_world,omitempty"`
	TargetIsSet             bool              `json:"target_is_set,omitempty"`
}

// Codec serializes Data for one engine version.
type Codec struct {
	engineVersion *version.Version
	clock         func() time.Time
}

// NewCodec parses the engine version stamped into, and required from, every envelope.
func NewCodec(engineVersion string) (*Codec, error) {
	ver, err := version.NewVersion(engineVersion)
	if err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "invalid engine version %q", engineVersion)
	}

	return &Codec{engineVersion: ver, clock: time.Now}, nil
}

// Encode writes data as an envelope.
func (codec *Codec) Encode(w io.Writer, data *Data) error {
	if err := data.Validate(); err != nil {
		return err
	}

	env := envelope{
		Format:        formatName,
		FormatVersion: FormatVersion,
		EngineVersion: codec.engineVersion.String(),
		SavedAt:       codec.clock().UTC(),
		Data: record{
			RunID:                   data.RunID,
			ExecuteJobs:             data.ExecuteJobs.Records(),
			States:                  job.EncodeStates(data.States),
			Targets:                 data.Targets,
			WorldSpecs:              data.WorldSpecs,
			RemovedIfDependentNames: data.RemovedIfDependentNames,
			PreserveWorld:           data.PreserveWorld,
			TargetIsSet:             data.TargetIsSet,
		},
	}

	if data.PretendJobs != nil {
		env.Data.PretendJobs = data.PretendJobs.Records()
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return errors.WithStackTrace(encoder.Encode(env))
}

// Decode reads an envelope written by the same format and engine version.
func (codec *Codec) Decode(r io.Reader) (*Data, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, errors.New(SerializationError{Err: err})
	}

	if env.Format != formatName {
		return nil, errors.New(SerializationError{Err: errors.Errorf("unexpected format %q", env.Format)})
	}

	stored, err := version.NewVersion(env.EngineVersion)
	if err != nil || env.FormatVersion != FormatVersion || !stored.Equal(codec.engineVersion) {
		return nil, errors.New(IncompatibleVersionError{
			FormatVersion:  env.FormatVersion,
			EngineVersion:  env.EngineVersion,
			CurrentVersion: codec.engineVersion.String(),
		})
	}

	executeJobs, err := job.ListFromRecords(env.Data.ExecuteJobs)
	if err != nil {
		return nil, errors.New(SerializationError{Err: err})
	}

	pretendJobs, err := job.ListFromRecords(env.Data.PretendJobs)
	if err != nil {
		return nil, errors.New(SerializationError{Err: err})
	}

	states, err := job.DecodeStates(env.Data.States)
	if err != nil {
		return nil, errors.New(SerializationError{Err: err})
	}

	data := &Data{
		RunID:                   env.Data.RunID,
		ExecuteJobs:             executeJobs,
		PretendJobs:             pretendJobs,
		States:                  states,
		Targets:                 env.Data.Targets,
		WorldSpecs:              env.Data.WorldSpecs,
		RemovedIfDependentNames: env.Data.RemovedIfDependentNames,
		PreserveWorld:           env.Data.PreserveWorld,
		TargetIsSet:             env.Data.TargetIsSet,
	}

	if err := data.Validate(); err != nil {
		return nil, errors.New(SerializationError{Err: err})
	}

	return data, nil
}
