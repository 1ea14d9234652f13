package ocr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRecognition is returned when the recognition job ends in a failed state or
// the provider could not be reached.
var ErrRecognition = errors.New("recognition failed")

// ErrPollTimeout is returned when a job is still running after the poller ran
// out of attempts or time.
var ErrPollTimeout = errors.New("recognition job did not finish in time")

const (
	ReasonRegionNotFound  = "region not found"
	ReasonPatternNotFound = "pattern not found"
)

// FieldError reports a single field that could not be read from the screenshot.
type FieldError struct {
	Field  Field
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s not extracted: %s", e.Field.Label(), e.Reason)
}

// ValidationError lists required fields that are missing from a Result or
// hold values outside their range.
type ValidationError struct {
	Missing []Field
	Invalid []Field
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+fieldList(e.Missing))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "out of range: "+fieldList(e.Invalid))
	}
	return strings.Join(parts, "; ")
}

func fieldList(fs []Field) string {
	names := make([]string, 0, len(fs))
	for _, f := range fs {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
