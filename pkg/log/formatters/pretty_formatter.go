// Package formatters contains the log formatters selectable with --log-format.
package formatters

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mgutz/ansi"
	"github.com/sirupsen/logrus"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/pkg/log"
)

const (
	PrettyFormatterName = "pretty"
	JSONFormatterName   = "json"

	defaultTimestampFormat = "15:04:05.000"
)

var levelColors = map[log.Level]string{
	log.ErrorLevel: "red+h",
	log.WarnLevel:  "yellow+h",
	log.InfoLevel:  "white+h",
	log.DebugLevel: "blue+h",
	log.TraceLevel: "white",
}

var _ logrus.Formatter = new(PrettyFormatter)

// PrettyFormatter renders `HH:MM:SS.mmm LEVEL  [prefix] message key=value` lines.
type PrettyFormatter struct {
	prefixStyle *PrefixStyle

	// TimestampFormat to use for display.
	TimestampFormat string

	// DisableTimestamp removes the timestamp column.
	DisableTimestamp bool

	// DisableColors forces plain output, used when the output is not a terminal.
	DisableColors bool
}

// NewPrettyFormatter returns a new PrettyFormatter instance with default values.
func NewPrettyFormatter(disableColors bool) *PrettyFormatter {
	return &PrettyFormatter{
		TimestampFormat: defaultTimestampFormat,
		DisableColors:   disableColors,
		prefixStyle:     NewPrefixStyle(),
	}
}

// Format implements logrus.Formatter.
func (formatter *PrettyFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	buf := entry.Buffer
	if buf == nil {
		buf = new(bytes.Buffer)
	}

	var (
		lvl       = log.FromLogrusLevel(entry.Level)
		level     = strings.ToUpper(fmt.Sprintf("%-6s ", lvl))
		fields    = log.Fields(entry.Data)
		prefix    string
		timestamp string
	)

	if val, ok := fields[log.FieldKeyPrefix].(string); ok && val != "" {
		prefix = "[" + val + "] "
	}

	if !formatter.DisableTimestamp && formatter.TimestampFormat != "" {
		timestamp = entry.Time.Format(formatter.TimestampFormat) + " "
	}

	if !formatter.DisableColors {
		level = ansi.Color(level, levelColors[lvl])
		timestamp = ansi.Color(timestamp, "black+h")

		if prefix != "" {
			prefix = formatter.prefixStyle.ColorFunc(prefix)(prefix)
		}
	}

	if _, err := fmt.Fprintf(buf, "%s%s%s%s", timestamp, level, prefix, entry.Message); err != nil {
		return nil, errors.New(err)
	}

	for _, key := range fields.Keys(log.FieldKeyPrefix) {
		if _, err := fmt.Fprintf(buf, " %s=%v", key, fields[key]); err != nil {
			return nil, errors.New(err)
		}
	}

	if err := buf.WriteByte('\n'); err != nil {
		return nil, errors.New(err)
	}

	return buf.Bytes(), nil
}

// ParseFormat returns the formatter registered under name.
func ParseFormat(name string, disableColors bool) (logrus.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PrettyFormatterName:
		return NewPrettyFormatter(disableColors), nil
	case JSONFormatterName:
		return &logrus.JSONFormatter{}, nil
	}

	return nil, errors.Errorf("invalid log format %q, supported formats: %s, %s", name, PrettyFormatterName, JSONFormatterName)
}
