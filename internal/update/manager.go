package update

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/arugifa/websync/internal/content"
	"github.com/arugifa/websync/internal/store"
	"github.com/arugifa/websync/internal/vcs"
)

// ProcessorFactory builds a processor bound to the resolver of one
// synchronization run. Processors need a per-run resolver because
// interactive category/tag creation is staged inside the run's unit of
// work.
type ProcessorFactory func(resolver *content.Resolver) content.Processor

// Manager wires the content repository, the store and the processor
// bindings together, and produces one Runner per synchronization run.
type Manager struct {
	Repo           *vcs.Repository
	Store          store.Store
	Bindings       map[string]ProcessorFactory
	Prompt         *Prompt
	Out            io.Writer
	IgnorePatterns []string
}

// NewRun opens a unit of work and prepares a runner for the changes
// between the given revision and HEAD.
func (m *Manager) NewRun(ctx context.Context, since string, interactive bool) (*Runner, error) {
	diff, err := m.Repo.Diff(ctx, since, "HEAD")
	if err != nil {
		return nil, fmt.Errorf("cannot diff repository: %w", err)
	}
	diff = diff.Filter(m.IgnorePatterns)

	slog.Debug("repository diff loaded",
		"since", since,
		"added", len(diff.Added),
		"modified", len(diff.Modified),
		"renamed", len(diff.Renamed),
		"deleted", len(diff.Deleted))

	uow, err := m.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}

	resolver := content.NewResolver(uow, m.Prompt, interactive)
	processors := make(map[string]content.Processor, len(m.Bindings))
	for kind, build := range m.Bindings {
		processors[kind] = build(resolver)
	}

	return NewRunner(uow, processors, m.Prompt, m.Out, diff, interactive), nil
}

// Run drives a full synchronization: plan, preview, optional
// confirmation, apply. The preview is always printed before any
// mutation; the report is printed after the batch commits.
func (m *Manager) Run(ctx context.Context, since string, interactive bool) error {
	runner, err := m.NewRun(ctx, since, interactive)
	if err != nil {
		return err
	}

	preview, err := runner.Plan(ctx)
	if preview != "" {
		fmt.Fprint(m.Out, preview)
	}
	if err != nil {
		runner.abort()
		return err
	}

	if interactive {
		if err := runner.Confirm(); err != nil {
			return err
		}
	}

	report, err := runner.Apply(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(m.Out, report)

	return nil
}
