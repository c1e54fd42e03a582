package log

import (
	"slices"
	"sort"
)

const (
	FieldKeyPrefix = "prefix"
	FieldKeyJob    = "job"
	FieldKeyRunID  = "run-id"
)

// Fields type, used to pass to `WithFields`.
type Fields map[string]any

// Keys returns the sorted field keys, leaving out removeKeys.
func (fields Fields) Keys(removeKeys ...string) []string {
	keys := make([]string, 0, len(fields))

	for key := range fields {
		if !slices.Contains(removeKeys, key) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	return keys
}
