// Package content implements the document processing pipeline: path
// classification, source parsing, reference resolution and per-file
// orchestration. Processing is fully speculative; nothing in this
// package writes to the store except interactive category/tag creation,
// which is staged inside the caller's unit of work.
package content

import (
	"errors"
	"fmt"
	"strings"
)

// Path errors. Both are permanent conditions for a file: its location or
// name does not follow the content naming convention.
var (
	ErrInvalidLocation  = errors.New("invalid document location")
	ErrDateMalformatted = errors.New("malformatted date in filename")
)

// Parsing errors.
var (
	ErrSourceMalformatted = errors.New("source malformatted")
	ErrTitleMissing       = errors.New("title missing")
	ErrCategoryMissing    = errors.New("category missing")
	ErrLeadMissing        = errors.New("lead paragraph missing")
	ErrLeadMalformatted   = errors.New("ambiguous lead paragraph")
	ErrBodyMissing        = errors.New("body missing")
)

// LoadingError reports a failure to read or convert a source file.
type LoadingError struct {
	Path string
	Err  error
}

func (e *LoadingError) Error() string {
	return fmt.Sprintf("cannot load %s: %v", e.Path, e.Err)
}

func (e *LoadingError) Unwrap() error { return e.Err }

// CategoryNotFoundError reports a category slug with no matching entity.
type CategoryNotFoundError struct {
	Slug string
}

func (e *CategoryNotFoundError) Error() string {
	return fmt.Sprintf("category not found: %s", e.Slug)
}

// TagsNotFoundError reports the full set of tag slugs with no matching
// entity, not just the first one.
type TagsNotFoundError struct {
	Slugs []string
}

func (e *TagsNotFoundError) Error() string {
	return fmt.Sprintf("tags not found: %s", strings.Join(e.Slugs, ", "))
}

// ErrorList accumulates independent per-field failures so a document can
// be reported with every problem at once, instead of one error per save
// attempt.
type ErrorList struct {
	errs []error
}

// Add appends err to the list. Nil errors are ignored, so extraction
// results can be collected unconditionally.
func (l *ErrorList) Add(err error) {
	if err != nil {
		l.errs = append(l.errs, err)
	}
}

// Empty reports whether no error was collected.
func (l *ErrorList) Empty() bool {
	return l == nil || len(l.errs) == 0
}

// Errors returns the collected errors.
func (l *ErrorList) Errors() []error {
	if l == nil {
		return nil
	}
	return l.errs
}

// Has reports whether any collected error matches target.
func (l *ErrorList) Has(target error) bool {
	for _, err := range l.Errors() {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (l *ErrorList) Error() string {
	msgs := make([]string, len(l.errs))
	for i, err := range l.errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap supports errors.Is/As over the collected set.
func (l *ErrorList) Unwrap() []error { return l.errs }

// collect runs an extraction and merges its failure into errs, returning
// the zero value on error.
func collect[T any](errs *ErrorList, fn func() (T, error)) T {
	v, err := fn()
	if err != nil {
		errs.Add(err)
		var zero T
		return zero
	}
	return v
}
