package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/arugifa/websync/internal/store"
)

// Catalog is the store surface the resolver needs: slug lookups that
// distinguish 0/1/N matches, and entity creation for interactive runs.
// Creations are staged in the caller's unit of work, never committed
// here.
type Catalog interface {
	FindCategory(ctx context.Context, slug string) (*store.Category, error)
	CreateCategory(ctx context.Context, slug, name string) (*store.Category, error)
	FilterTags(ctx context.Context, slugs []string) ([]*store.Tag, error)
	CreateTag(ctx context.Context, slug, name string) (*store.Tag, error)
}

// Prompter asks the operator a free-text question, returning the default
// answer when the operator just presses enter.
type Prompter interface {
	Ask(question, defaultAnswer string) (string, error)
}

// Resolver maps category and tag slugs extracted from a source file to
// persisted entities. In interactive mode, unknown slugs trigger a
// prompt for a display name and the entity is created on the spot;
// otherwise unknown slugs are reported as unresolved.
//
// The resolver serializes its store and prompt access, so processors may
// call it from concurrent planning goroutines.
type Resolver struct {
	catalog     Catalog
	prompt      Prompter
	interactive bool

	mu sync.Mutex
}

// NewResolver creates a resolver on top of catalog. prompt may be nil
// when interactive is false.
func NewResolver(catalog Catalog, prompt Prompter, interactive bool) *Resolver {
	return &Resolver{catalog: catalog, prompt: prompt, interactive: interactive}
}

// ResolveCategory returns the persisted category for slug.
func (r *Resolver) ResolveCategory(ctx context.Context, slug string) (*store.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	category, err := r.catalog.FindCategory(ctx, slug)
	if errors.Is(err, store.ErrItemNotFound) {
		if !r.interactive {
			return nil, &CategoryNotFoundError{Slug: slug}
		}
		return r.createCategory(ctx, slug)
	}
	if err != nil {
		// Includes ErrMultipleItemsFound: a duplicate slug is an
		// integrity violation and must surface loudly.
		return nil, fmt.Errorf("cannot resolve category %q: %w", slug, err)
	}

	return category, nil
}

// ResolveTags returns the persisted tags for slugs, ascending by slug.
func (r *Resolver) ResolveTags(ctx context.Context, slugs []string) ([]*store.Tag, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tags, err := r.catalog.FilterTags(ctx, slugs)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve tags: %w", err)
	}

	found := make(map[string]bool, len(tags))
	for _, tag := range tags {
		found[tag.URI] = true
	}

	var missing []string
	for _, slug := range slugs {
		if !found[slug] && slug != "" {
			found[slug] = true // Report duplicates once.
			missing = append(missing, slug)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)

		if !r.interactive {
			return nil, &TagsNotFoundError{Slugs: missing}
		}

		for _, slug := range missing {
			tag, err := r.createTag(ctx, slug)
			if err != nil {
				return nil, err
			}
			tags = append(tags, tag)
		}
	}

	return store.SortTagsByURI(tags), nil
}

func (r *Resolver) createCategory(ctx context.Context, slug string) (*store.Category, error) {
	name, err := r.prompt.Ask(fmt.Sprintf("Name of the new category %q: ", slug), "")
	if err != nil {
		return nil, fmt.Errorf("cannot prompt for category %q: %w", slug, err)
	}

	category, err := r.catalog.CreateCategory(ctx, slug, name)
	if err != nil {
		return nil, fmt.Errorf("cannot create category %q: %w", slug, err)
	}

	return category, nil
}

func (r *Resolver) createTag(ctx context.Context, slug string) (*store.Tag, error) {
	name, err := r.prompt.Ask(fmt.Sprintf("Name of the new tag %q: ", slug), "")
	if err != nil {
		return nil, fmt.Errorf("cannot prompt for tag %q: %w", slug, err)
	}

	tag, err := r.catalog.CreateTag(ctx, slug, name)
	if err != nil {
		return nil, fmt.Errorf("cannot create tag %q: %w", slug, err)
	}

	return tag, nil
}
