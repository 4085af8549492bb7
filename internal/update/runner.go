// Package update turns a repository diff into database mutations, with
// whole-batch transactional semantics and an optional human confirmation
// between planning and applying.
package update

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/arugifa/websync/internal/content"
	"github.com/arugifa/websync/internal/store"
	"github.com/arugifa/websync/internal/vcs"
)

// State is the runner's position in its life cycle. Each runner drives
// exactly one batch and is not reusable.
type State int

const (
	StateIdle State = iota
	StatePlanned
	StateConfirmed
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlanned:
		return "planned"
	case StateConfirmed:
		return "confirmed"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// planningConcurrency bounds the speculative processing fan-out.
// Processing is read-only until Apply, so concurrency across independent
// paths is safe.
const planningConcurrency = 8

type plannedChange struct {
	Path  string
	Kind  string
	URI   string
	Attrs content.Attributes
}

type plannedRename struct {
	From   string
	To     string
	Kind   string
	OldURI string
	NewURI string
	Attrs  content.Attributes
}

// Plan is the speculative outcome of one diff: every intended mutation,
// plus every per-file failure. A plan with errors is never applied.
type Plan struct {
	Inserts []plannedChange
	Updates []plannedChange
	Renames []plannedRename
	Deletes []plannedChange
	Errors  []*FileError
}

func (p *Plan) size() int {
	return len(p.Inserts) + len(p.Updates) + len(p.Renames) + len(p.Deletes)
}

// Runner executes one synchronization batch: Plan, optionally Confirm,
// then Apply. The runner owns the unit of work and decides commit versus
// rollback for the whole batch.
type Runner struct {
	uow        store.UnitOfWork
	processors map[string]content.Processor
	prompt     *Prompt
	out        io.Writer
	diff       vcs.Diff

	// interactive requires an affirmative Confirm before Apply.
	interactive bool

	state State
	plan  *Plan
	now   func() time.Time
}

// NewRunner creates a runner for one diff. processors maps a document
// kind to its processor; a path whose kind has no entry fails planning
// with NoCallbackError.
func NewRunner(
	uow store.UnitOfWork, processors map[string]content.Processor,
	prompt *Prompt, out io.Writer, diff vcs.Diff, interactive bool,
) *Runner {
	return &Runner{
		uow:         uow,
		processors:  processors,
		prompt:      prompt,
		out:         out,
		diff:        diff,
		interactive: interactive,
		now:         time.Now,
	}
}

// State returns the runner's current life-cycle state.
func (r *Runner) State() State { return r.state }

// Errors returns the per-file failures collected during planning.
func (r *Runner) Errors() []*FileError {
	if r.plan == nil {
		return nil
	}
	return r.plan.Errors
}

// Plan speculatively processes every path in the diff and returns a
// human-readable preview of the intended changes. No persisted state is
// touched (interactive category/tag creations are staged in the unit of
// work, which rolls back with everything else). If any file fails, the
// preview is still returned along with ErrPlanFailed, and the batch can
// never be applied.
func (r *Runner) Plan(ctx context.Context) (string, error) {
	if r.state != StateIdle {
		return "", fmt.Errorf("cannot plan twice (state: %s)", r.state)
	}

	plan := &Plan{}
	var mu sync.Mutex

	total := len(r.diff.Added) + len(r.diff.Modified) + len(r.diff.Renamed) + len(r.diff.Deleted)
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Planning changes"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionClearOnFinish(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(planningConcurrency)

	for _, p := range r.diff.Added {
		p := p
		g.Go(func() error {
			defer bar.Add(1)
			change, errs := r.processPath(gctx, p)

			mu.Lock()
			defer mu.Unlock()
			if len(errs) > 0 {
				plan.Errors = append(plan.Errors, errs...)
			} else {
				plan.Inserts = append(plan.Inserts, change)
			}
			return nil
		})
	}

	for _, p := range r.diff.Modified {
		p := p
		g.Go(func() error {
			defer bar.Add(1)
			change, errs := r.processPath(gctx, p)

			mu.Lock()
			defer mu.Unlock()
			if len(errs) > 0 {
				plan.Errors = append(plan.Errors, errs...)
			} else {
				plan.Updates = append(plan.Updates, change)
			}
			return nil
		})
	}

	for _, ren := range r.diff.Renamed {
		ren := ren
		g.Go(func() error {
			defer bar.Add(1)
			change, errs := r.processRename(gctx, ren)

			mu.Lock()
			defer mu.Unlock()
			if len(errs) > 0 {
				plan.Errors = append(plan.Errors, errs...)
			} else {
				plan.Renames = append(plan.Renames, change)
			}
			return nil
		})
	}

	for _, p := range r.diff.Deleted {
		p := p
		g.Go(func() error {
			defer bar.Add(1)
			change, err := r.classifyPath(p)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				plan.Errors = append(plan.Errors, &FileError{Path: p, Err: err})
			} else {
				plan.Deletes = append(plan.Deletes, change)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}
	bar.Finish()

	sortPlan(plan)
	r.plan = plan
	r.state = StatePlanned

	preview := renderPreview(plan)
	if len(plan.Errors) > 0 {
		return preview, fmt.Errorf("%w: %s", ErrPlanFailed, summarize(plan.Errors))
	}
	return preview, nil
}

// Confirm shows nothing by itself (the caller prints the preview) and
// asks the operator whether to proceed. Declining aborts the batch with
// zero mutations.
func (r *Runner) Confirm() error {
	if r.state != StatePlanned {
		return ErrNotPlanned
	}

	ok, err := r.prompt.Confirm("Do you want to continue?")
	if err != nil {
		return fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		r.abort()
		return ErrUpdateAborted
	}

	r.state = StateConfirmed
	return nil
}

// Apply stages every planned mutation in the unit of work and commits.
// The first failure rolls back the entire batch: a single malformed file
// must never leave the store half-updated. On success, a human-readable
// report of what changed is returned.
func (r *Runner) Apply(ctx context.Context) (string, error) {
	switch {
	case r.state == StateConfirmed:
	case r.state == StatePlanned && !r.interactive:
	case r.state == StatePlanned && r.interactive:
		return "", ErrNotConfirmed
	default:
		return "", ErrNotPlanned
	}

	if len(r.plan.Errors) > 0 {
		r.abort()
		return "", fmt.Errorf("%w: %s", ErrPlanFailed, summarize(r.plan.Errors))
	}

	bar := progressbar.NewOptions(r.plan.size(),
		progressbar.OptionSetDescription("Applying changes"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionClearOnFinish(),
	)

	if err := r.applyAll(ctx, bar); err != nil {
		r.abort()
		return "", fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}
	bar.Finish()

	if err := r.uow.Commit(ctx); err != nil {
		r.abort()
		return "", fmt.Errorf("%w: commit: %v", ErrUpdateFailed, err)
	}

	r.state = StateCommitted
	return renderReport(r.plan), nil
}

func (r *Runner) applyAll(ctx context.Context, bar *progressbar.ProgressBar) error {
	today := r.today()

	for _, change := range r.plan.Inserts {
		if err := r.applyInsert(ctx, change, today); err != nil {
			return err
		}
		bar.Add(1)
	}

	for _, change := range r.plan.Updates {
		if err := r.applyUpdate(ctx, change, today); err != nil {
			return err
		}
		bar.Add(1)
	}

	for _, change := range r.plan.Renames {
		if err := r.applyRename(ctx, change, today); err != nil {
			return err
		}
		bar.Add(1)
	}

	for _, change := range r.plan.Deletes {
		if err := r.applyDelete(ctx, change); err != nil {
			return err
		}
		bar.Add(1)
	}

	return nil
}

func (r *Runner) applyInsert(ctx context.Context, change plannedChange, today time.Time) error {
	exists, err := r.uow.DocumentExists(ctx, change.Kind, change.URI)
	if err != nil {
		return &FileError{Path: change.Path, Err: err}
	}
	if exists {
		return &FileError{
			Path: change.Path,
			Err:  fmt.Errorf("%w: %s/%s", store.ErrItemAlreadyExisting, change.Kind, change.URI),
		}
	}

	doc := &store.Document{
		Kind:            change.Kind,
		URI:             change.URI,
		PublicationDate: today,
	}
	assignAttributes(doc, change.Attrs)

	if err := r.uow.InsertDocument(ctx, doc); err != nil {
		return &FileError{Path: change.Path, Err: err}
	}
	return nil
}

func (r *Runner) applyUpdate(ctx context.Context, change plannedChange, today time.Time) error {
	doc, err := r.uow.FindDocument(ctx, change.Kind, change.URI)
	if err != nil {
		return &FileError{Path: change.Path, Err: err}
	}

	assignAttributes(doc, change.Attrs)
	doc.LastUpdate = &today

	if err := r.uow.UpdateDocument(ctx, doc); err != nil {
		return &FileError{Path: change.Path, Err: err}
	}
	return nil
}

func (r *Runner) applyRename(ctx context.Context, change plannedRename, today time.Time) error {
	doc, err := r.uow.FindDocument(ctx, change.Kind, change.OldURI)
	if err != nil {
		return &FileError{Path: change.From, Err: err}
	}

	doc.URI = change.NewURI
	assignAttributes(doc, change.Attrs)
	doc.LastUpdate = &today

	if err := r.uow.UpdateDocument(ctx, doc); err != nil {
		return &FileError{Path: change.To, Err: err}
	}
	return nil
}

func (r *Runner) applyDelete(ctx context.Context, change plannedChange) error {
	doc, err := r.uow.FindDocument(ctx, change.Kind, change.URI)
	if err != nil {
		return &FileError{Path: change.Path, Err: err}
	}

	if err := r.uow.DeleteDocument(ctx, doc); err != nil {
		return &FileError{Path: change.Path, Err: err}
	}
	return nil
}

// abort rolls the whole unit of work back; zero mutations remain.
func (r *Runner) abort() {
	r.uow.Rollback(context.Background())
	r.state = StateRolledBack
}

// processPath runs the bound processor against one file.
func (r *Runner) processPath(ctx context.Context, p string) (plannedChange, []*FileError) {
	change, err := r.classifyPath(p)
	if err != nil {
		return plannedChange{}, []*FileError{{Path: p, Err: err}}
	}

	attrs, errs := r.processors[change.Kind].Process(ctx, p)
	if !errs.Empty() {
		return plannedChange{}, fileErrors(p, errs)
	}

	change.Attrs = attrs
	return change, nil
}

// processRename validates the rename convention and reprocesses the new
// path in full, so a rename also refreshes the document's content.
func (r *Runner) processRename(ctx context.Context, ren vcs.Rename) (plannedRename, []*FileError) {
	if path.Dir(ren.From) != path.Dir(ren.To) {
		err := &CrossDirectoryRenameError{From: ren.From, To: ren.To}
		return plannedRename{}, []*FileError{{Path: ren.From, Err: err}}
	}

	change, errs := r.processPath(ctx, ren.To)
	if len(errs) > 0 {
		return plannedRename{}, errs
	}

	return plannedRename{
		From:   ren.From,
		To:     ren.To,
		Kind:   change.Kind,
		OldURI: content.ScanURI(ren.From),
		NewURI: change.URI,
		Attrs:  change.Attrs,
	}, nil
}

// classifyPath resolves the processor binding for one path.
func (r *Runner) classifyPath(p string) (plannedChange, error) {
	loc, err := content.Classify(p)
	if err != nil {
		return plannedChange{}, err
	}
	if _, ok := r.processors[loc.Kind]; !ok {
		return plannedChange{}, &NoCallbackError{Kind: loc.Kind, Path: p}
	}
	return plannedChange{Path: p, Kind: loc.Kind, URI: loc.URI}, nil
}

// today returns the current date, truncated to midnight UTC.
func (r *Runner) today() time.Time {
	now := r.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func assignAttributes(doc *store.Document, attrs content.Attributes) {
	doc.Title = attrs.Title
	doc.Lead = attrs.Lead
	doc.Body = attrs.Body
	doc.Category = attrs.Category
	doc.SetTags(attrs.Tags)
	if !attrs.PublicationDate.IsZero() {
		doc.PublicationDate = attrs.PublicationDate
	}
}

// sortPlan makes previews, reports and apply order deterministic.
func sortPlan(plan *Plan) {
	sort.Slice(plan.Inserts, func(i, j int) bool { return plan.Inserts[i].Path < plan.Inserts[j].Path })
	sort.Slice(plan.Updates, func(i, j int) bool { return plan.Updates[i].Path < plan.Updates[j].Path })
	sort.Slice(plan.Renames, func(i, j int) bool { return plan.Renames[i].From < plan.Renames[j].From })
	sort.Slice(plan.Deletes, func(i, j int) bool { return plan.Deletes[i].Path < plan.Deletes[j].Path })
	sort.Slice(plan.Errors, func(i, j int) bool { return plan.Errors[i].Path < plan.Errors[j].Path })
}

func renderPreview(plan *Plan) string {
	var b strings.Builder

	renderSection(&b, "The following documents will be added:", paths(plan.Inserts))
	renderSection(&b, "The following documents will be updated:", paths(plan.Updates))
	renderSection(&b, "The following documents will be renamed:", renamePairs(plan.Renames))
	renderSection(&b, "The following documents will be deleted:", paths(plan.Deletes))

	if len(plan.Errors) > 0 {
		b.WriteString("The following files cannot be processed:\n")
		for _, err := range plan.Errors {
			fmt.Fprintf(&b, "- %v\n", err)
		}
	}

	if b.Len() == 0 {
		return "Nothing to update.\n"
	}
	return b.String()
}

func renderReport(plan *Plan) string {
	var b strings.Builder

	renderSection(&b, "The following documents have been added:", paths(plan.Inserts))
	renderSection(&b, "The following documents have been updated:", paths(plan.Updates))
	renderSection(&b, "The following documents have been renamed:", renamePairs(plan.Renames))
	renderSection(&b, "The following documents have been deleted:", paths(plan.Deletes))

	if b.Len() == 0 {
		return "Nothing changed.\n"
	}
	return b.String()
}

func renderSection(b *strings.Builder, header string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString(header)
	b.WriteString("\n")
	for _, line := range lines {
		fmt.Fprintf(b, "- %s\n", line)
	}
}

func paths(changes []plannedChange) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = c.Path
	}
	return out
}

func renamePairs(renames []plannedRename) []string {
	out := make([]string, len(renames))
	for i, r := range renames {
		out[i] = r.From + " -> " + r.To
	}
	return out
}

func summarize(errs []*FileError) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
