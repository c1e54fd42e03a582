package resume

import "fmt"

// IncompatibleVersionError is returned when a resume file was written by another format or engine version.
type IncompatibleVersionError struct {
	EngineVersion  string
	CurrentVersion string
	FormatVersion  int
}

func (err IncompatibleVersionError) Error() string {
	return fmt.Sprintf("resume file was written by engine version %q with format %d, this is version %s with format %d",
		err.EngineVersion, err.FormatVersion, err.CurrentVersion, FormatVersion)
}

// SerializationError is returned for a resume file that cannot be read.
type SerializationError struct {
	Err error
}

func (err SerializationError) Error() string {
	return fmt.Sprintf("invalid resume data: %v", err.Err)
}

func (err SerializationError) Unwrap() error {
	return err.Err
}

// NotFoundError is returned when there is no resume file to load.
type NotFoundError struct {
	Path string
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("no resume file at %s", err.Path)
}
