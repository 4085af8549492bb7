// Package vcs extracts categorized path diffs from the content
// repository's git history.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Rename is a renamed path pair.
type Rename struct {
	From string
	To   string
}

// Diff is a four-way categorization of changed paths between two
// revisions. Paths are repository-relative with forward slashes.
type Diff struct {
	Added    []string
	Modified []string
	Renamed  []Rename
	Deleted  []string
}

// Empty reports whether the diff carries no change at all.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 &&
		len(d.Renamed) == 0 && len(d.Deleted) == 0
}

// Filter returns a copy of the diff without the paths matching any of
// the ignore patterns. A rename is dropped when its new path is ignored.
func (d Diff) Filter(ignorePatterns []string) Diff {
	ignored := func(path string) bool {
		for _, pattern := range ignorePatterns {
			if ok, err := doublestar.Match(pattern, path); err == nil && ok {
				return true
			}
		}
		return false
	}

	var out Diff
	for _, p := range d.Added {
		if !ignored(p) {
			out.Added = append(out.Added, p)
		}
	}
	for _, p := range d.Modified {
		if !ignored(p) {
			out.Modified = append(out.Modified, p)
		}
	}
	for _, r := range d.Renamed {
		if !ignored(r.To) {
			out.Renamed = append(out.Renamed, r)
		}
	}
	for _, p := range d.Deleted {
		if !ignored(p) {
			out.Deleted = append(out.Deleted, p)
		}
	}
	return out
}

// Repository is a local git repository holding the website's content.
type Repository struct {
	Path string
}

// New creates a repository handle for the given directory.
func New(path string) *Repository {
	return &Repository{Path: path}
}

// Diff returns the categorized changes between two revisions.
func (r *Repository) Diff(ctx context.Context, from, to string) (Diff, error) {
	if to == "" {
		to = "HEAD"
	}

	output, err := r.git(ctx, "diff", "--name-status", "--find-renames", from, to)
	if err != nil {
		return Diff{}, err
	}

	return ParseNameStatus(output)
}

// Head returns the current commit hash.
func (r *Repository) Head(ctx context.Context) (string, error) {
	output, err := r.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

func (r *Repository) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Path

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s failed: %w: %s",
			strings.Join(args, " "), err, bytes.TrimSpace(stderr.Bytes()))
	}

	return stdout.String(), nil
}

// ParseNameStatus parses `git diff --name-status` output. Rename
// statuses carry a similarity score (e.g. R100), so only the first
// letter is significant.
func ParseNameStatus(output string) (Diff, error) {
	var diff Diff

	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		status := fields[0]

		switch {
		case strings.HasPrefix(status, "R"):
			if len(fields) != 3 {
				return Diff{}, fmt.Errorf("malformed rename line: %q", line)
			}
			diff.Renamed = append(diff.Renamed, Rename{From: fields[1], To: fields[2]})
		case len(fields) != 2:
			return Diff{}, fmt.Errorf("malformed diff line: %q", line)
		case strings.HasPrefix(status, "A"):
			diff.Added = append(diff.Added, fields[1])
		case strings.HasPrefix(status, "M"):
			diff.Modified = append(diff.Modified, fields[1])
		case strings.HasPrefix(status, "D"):
			diff.Deleted = append(diff.Deleted, fields[1])
		default:
			// Copied, type-changed etc. are not produced by the content
			// workflow; refuse instead of guessing.
			return Diff{}, fmt.Errorf("unsupported diff status %q in line %q", status, line)
		}
	}

	return diff, nil
}
