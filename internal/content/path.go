package content

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Location is what can be derived from a source file's path alone: the
// document kind (first path segment), the URI (last dot-segment of the
// file stem) and, for dated layouts, the publication date.
type Location struct {
	Kind string
	URI  string
	Date time.Time
}

// Dated reports whether the path carried a publication date.
func (l Location) Dated() bool { return !l.Date.IsZero() }

// Classify derives a document's kind and URI from its repository path.
//
// Two layouts are recognized:
//
//	<kind>/<uri>.<ext>
//	<kind>/<year>/<month>-<day>.<uri>.<ext>
//
// The dated layout also yields a publication date; see ScanDate for the
// validation rules.
func Classify(relPath string) (Location, error) {
	parts := strings.Split(path.Clean(filepath.ToSlash(relPath)), "/")

	switch len(parts) {
	case 2:
		return Location{Kind: parts[0], URI: ScanURI(relPath)}, nil
	case 3:
		date, err := ScanDate(relPath)
		if err != nil {
			return Location{}, err
		}
		return Location{Kind: parts[0], URI: ScanURI(relPath), Date: date}, nil
	default:
		return Location{}, fmt.Errorf("%w: %s", ErrInvalidLocation, relPath)
	}
}

// ScanURI returns the document's URI, the last dot-delimited component
// of the file stem. Both "article.html" and "04-08.article.html" yield
// "article".
func ScanURI(relPath string) string {
	stem := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	segments := strings.Split(stem, ".")
	return segments[len(segments)-1]
}

// ScanDate returns the publication date encoded in a dated path
// <kind>/<year>/<month>-<day>.<uri>.<ext>.
//
// The parent directory must parse as a year number, otherwise the file
// sits in the wrong place (ErrInvalidLocation). The first dot-segment of
// the filename must split into two integers on "-", otherwise the date
// syntax is wrong (ErrDateMalformatted). Calendar validity is checked
// last: a syntactically-correct but impossible month/day (e.g. 13-40) is
// also ErrDateMalformatted.
func ScanDate(relPath string) (time.Time, error) {
	rel := path.Clean(filepath.ToSlash(relPath))

	year, err := strconv.Atoi(path.Base(path.Dir(rel)))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidLocation, relPath)
	}

	monthDay := strings.SplitN(path.Base(rel), ".", 2)[0]
	tokens := strings.Split(monthDay, "-")
	if len(tokens) != 2 {
		return time.Time{}, fmt.Errorf("%w: %s", ErrDateMalformatted, relPath)
	}

	month, err := strconv.Atoi(tokens[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrDateMalformatted, relPath)
	}
	day, err := strconv.Atoi(tokens[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrDateMalformatted, relPath)
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || date.Month() != time.Month(month) || date.Day() != day {
		// time.Date normalizes out-of-range components instead of failing.
		return time.Time{}, fmt.Errorf("%w: %s", ErrDateMalformatted, relPath)
	}

	return date, nil
}
