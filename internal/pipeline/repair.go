package pipeline

import (
	"encoding/json"
	"strings"
)

// recordSeparator sits between two objects of a compactly serialized array
const recordSeparator = "}, {"

// maxRepairAttempts bounds how many separators are tried, newest first
const maxRepairAttempts = 32

// Repair turns a possibly truncated JSON array of objects into a valid one.
//
// A buffer that already holds a valid array is returned unchanged. Otherwise the
// text is cut after the "}" of the last record separator and "]" is appended, so
// the trailing (possibly partial) record is always dropped. A buffer with no usable
// separator yields a *RepairError; no data is invented for it.
func Repair(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", &RepairError{Reason: "empty buffer"}
	}
	if trimmed[0] != '[' {
		return "", &RepairError{Reason: "buffer does not start with a JSON array"}
	}
	if json.Valid([]byte(trimmed)) {
		return text, nil
	}

	end := len(trimmed)
	for attempt := 0; attempt < maxRepairAttempts; attempt++ {
		idx := strings.LastIndex(trimmed[:end], recordSeparator)
		if idx < 0 {
			break
		}
		candidate := trimmed[:idx+1] + "]"
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
		// separator was inside a string or a nested value; try the previous one
		end = idx
	}

	return "", &RepairError{Reason: "no complete record boundary found"}
}
