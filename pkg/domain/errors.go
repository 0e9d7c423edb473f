package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrCountryNotFound = errors.New("country not found")
	ErrSummaryNotFound = errors.New("summary image not found")
	// ErrConflict is returned when a write hits a uniqueness constraint,
	// typically two refreshes racing on the same country name.
	ErrConflict = errors.New("conflict")
)

// SourceUnavailableError reports that an upstream data source could not be
// reached, timed out, answered with a non-success status or sent an
// undecodable body.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("could not fetch data from %s", e.Source)
	}
	return fmt.Sprintf("could not fetch data from %s: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// InvalidInputError carries per-field messages for a rejected request.
type InvalidInputError struct {
	Details map[string]string
}

func (e *InvalidInputError) Error() string {
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Details[k])
	}
	return "invalid input: " + strings.Join(parts, ", ")
}
