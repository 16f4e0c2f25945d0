package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bamsammich/cpx/internal/preserve"
)

var (
	ErrInterrupted        = errors.New("operation interrupted")
	ErrReflinkFailed      = errors.New("reflink failed")
	ErrFailedToPreserve   = preserve.ErrFailed
	ErrInvalidSource      = errors.New("invalid source")
	ErrInvalidDestination = errors.New("invalid destination")
	ErrAlreadyExists      = errors.New("destination already exists")
)

// maxShownErrors is how many errors AggregateError spells out.
const maxShownErrors = 5

// ValidationError reports conflicting options.
type ValidationError struct {
	Conflicts []string
}

func (e *ValidationError) Error() string {
	return "conflicting options: " + strings.Join(e.Conflicts, "; ")
}

// CopyError wraps a failure of a single planned task.
type CopyError struct {
	Src    string
	Dst    string
	Reason string
	Err    error
}

func (e *CopyError) Error() string {
	if e.Src == "" {
		return fmt.Sprintf("%s %s: %v", e.Reason, e.Dst, e.Err)
	}
	return fmt.Sprintf("%s %s -> %s: %v", e.Reason, e.Src, e.Dst, e.Err)
}

func (e *CopyError) Unwrap() error { return e.Err }

// AggregateError collects the per-task failures of a batch.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors occurred:", len(e.Errors))
	for i, err := range e.Errors {
		if i == maxShownErrors {
			fmt.Fprintf(&b, "\n  ... and %d more errors", len(e.Errors)-maxShownErrors)
			break
		}
		b.WriteString("\n  ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// InterruptedError is returned when the cancel token fired mid-run. It takes
// priority over any other failure of the same run.
type InterruptedError struct {
	Completed int64
	Remaining int64
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf(
		"%v: %d files completed, %d remaining; run again with --resume to continue",
		ErrInterrupted, e.Completed, e.Remaining,
	)
}

func (e *InterruptedError) Unwrap() error { return ErrInterrupted }

// combineErrors returns nil, the only error, or an AggregateError.
func combineErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &AggregateError{Errors: errs}
	}
}
