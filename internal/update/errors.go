package update

import (
	"errors"
	"fmt"

	"github.com/arugifa/websync/internal/content"
)

var (
	// ErrUpdateAborted is returned when the operator declines the
	// confirmation prompt. Clean termination, zero mutations.
	ErrUpdateAborted = errors.New("update aborted by operator")

	// ErrPlanFailed is returned when at least one file could not be
	// planned. A partially-valid plan is never applied.
	ErrPlanFailed = errors.New("update plan failed")

	// ErrUpdateFailed is returned when applying the plan failed and the
	// whole batch was rolled back.
	ErrUpdateFailed = errors.New("update failed")

	// ErrNotPlanned and ErrNotConfirmed guard the runner's state machine.
	ErrNotPlanned   = errors.New("update not planned yet")
	ErrNotConfirmed = errors.New("interactive update not confirmed")
)

// NoCallbackError reports a path whose document kind has no registered
// processor binding. This is a configuration gap, not a file problem.
type NoCallbackError struct {
	Kind string
	Path string
}

func (e *NoCallbackError) Error() string {
	return fmt.Sprintf("no processor bound for kind %q (%s)", e.Kind, e.Path)
}

// CrossDirectoryRenameError reports a renamed pair whose paths do not
// share a parent directory, which the naming convention forbids.
type CrossDirectoryRenameError struct {
	From string
	To   string
}

func (e *CrossDirectoryRenameError) Error() string {
	return fmt.Sprintf("cannot rename across directories: %s -> %s", e.From, e.To)
}

// FileError ties a processing failure to the file it belongs to, so the
// operator gets per-file reasons in the failure summary.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

func fileErrors(path string, errs *content.ErrorList) []*FileError {
	out := make([]*FileError, 0, len(errs.Errors()))
	for _, err := range errs.Errors() {
		out = append(out, &FileError{Path: path, Err: err})
	}
	return out
}
