package explore

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies errors produced by a run.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindComputation
	KindEmptyResult
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindComputation:
		return "computation"
	case KindEmptyResult:
		return "empty result"
	}
	return "unknown"
}

// ValidationError reports unusable input. Nothing was computed.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "invalid analysis input: " + e.Msg }

// ComputationError is the failure of one (group, variable) task.
type ComputationError struct {
	Group    GroupKey
	Variable string
	Err      error
}

func (e *ComputationError) Error() string {
	if e.Group == AllDataKey {
		return fmt.Sprintf("%s: %v", e.Variable, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Variable, e.Group, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// EmptyResultError reports a run with nothing to show.
type EmptyResultError struct {
	Failures []*ComputationError
}

func (e *EmptyResultError) Error() string {
	if len(e.Failures) == 0 {
		return "Analysis produced no results"
	}
	return fmt.Sprintf("Analysis produced no results: %s", summarize(e.Failures, len(e.Failures)))
}

// KindOf returns the kind of err, looking through wrapping.
func KindOf(err error) ErrorKind {
	var ve *ValidationError
	var ce *ComputationError
	var ee *EmptyResultError
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ee):
		return KindEmptyResult
	case errors.As(err, &ce):
		return KindComputation
	}
	return KindUnknown
}

// summarize lists up to three failures.
func summarize(failures []*ComputationError, total int) string {
	const shown = 3
	msgs := make([]string, 0, shown)
	for i, f := range failures {
		if i == shown {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(failures)-shown))
			break
		}
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("%d of %d computations failed: %s", len(failures), total, strings.Join(msgs, "; "))
}
