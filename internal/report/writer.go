package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/fsutil"
)

// Format is the report file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from the file extension, defaulting to CSV.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}

	return FormatCSV
}

// JSONRun represents a run in JSON format.
type JSONRun struct {
	Started  time.Time `json:"started"`
	Ended    time.Time `json:"ended"`
	Reason   *string   `json:"reason,omitempty"`
	Cause    *string   `json:"cause,omitempty"`
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Result   string    `json:"result"`
	Output   string    `json:"output,omitempty"`
	Index    int       `json:"index"`
	ExitCode int       `json:"exit_code,omitempty"`
}

// WriteToFile writes the report to path atomically.
func (r *Report) WriteToFile(path string) error {
	var buf bytes.Buffer

	var err error

	switch r.format {
	case FormatCSV:
		err = r.WriteCSV(&buf)
	case FormatJSON:
		err = r.WriteJSON(&buf)
	default:
		return errors.Errorf("unsupported report format: %s", r.format)
	}

	if err != nil {
		return errors.WithStackTraceAndPrefix(err, "failed to write report")
	}

	return fsutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// WriteCSV writes the report to a writer in CSV format.
func (r *Report) WriteCSV(w io.Writer) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write([]string{"Index", "Name", "Kind", "Started", "Ended", "Result", "Reason", "Cause", "ExitCode", "Output"}); err != nil {
		return errors.New(err)
	}

	for _, run := range r.Runs() {
		jsonRun := run.toJSON()

		reason, cause := "", ""
		if jsonRun.Reason != nil {
			reason = *jsonRun.Reason
		}

		if jsonRun.Cause != nil {
			cause = *jsonRun.Cause
		}

		err := csvWriter.Write([]string{
			strconv.Itoa(jsonRun.Index),
			jsonRun.Name,
			jsonRun.Kind,
			jsonRun.Started.Format(time.RFC3339),
			jsonRun.Ended.Format(time.RFC3339),
			jsonRun.Result,
			reason,
			cause,
			strconv.Itoa(jsonRun.ExitCode),
			jsonRun.Output,
		})
		if err != nil {
			return errors.New(err)
		}
	}

	csvWriter.Flush()

	return errors.WithStackTrace(csvWriter.Error())
}

// WriteJSON writes the report to a writer in JSON format.
func (r *Report) WriteJSON(w io.Writer) error {
	runs := r.Runs()

	jsonRuns := make([]JSONRun, 0, len(runs))
	for _, run := range runs {
		jsonRuns = append(jsonRuns, run.toJSON())
	}

	jsonBytes, err := json.MarshalIndent(jsonRuns, "", "  ")
	if err != nil {
		return errors.New(err)
	}

	jsonBytes = append(jsonBytes, '\n')

	_, err = w.Write(jsonBytes)

	return errors.WithStackTrace(err)
}

func (run *Run) toJSON() JSONRun {
	run.mu.RLock()
	defer run.mu.RUnlock()

	jsonRun := JSONRun{
		Index:    int(run.Index),
		Name:     run.Name,
		Kind:     run.Kind,
		Started:  run.Started,
		Ended:    run.Ended,
		Result:   string(run.Result),
		ExitCode: run.ExitCode,
		Output:   run.Output,
	}

	if run.Reason != nil {
		reason := string(*run.Reason)
		jsonRun.Reason = &reason
	}

	if run.Cause != nil {
		cause := string(*run.Cause)
		jsonRun.Cause = &cause
	}

	return jsonRun
}
