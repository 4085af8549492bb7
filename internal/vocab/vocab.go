// Package vocab loads category and tag vocabulary files: YAML mappings
// from slug to display name, kept next to the content in the repository.
// Applying a vocabulary creates missing entries and refreshes display
// names; it never deletes anything, since tag deletion is owned by the
// document life cycle.
package vocab

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the store surface needed to apply a vocabulary.
type Catalog interface {
	UpsertCategory(ctx context.Context, slug, name string) error
	UpsertTag(ctx context.Context, slug, name string) error
}

// Vocabulary is an ordered slug → display-name mapping.
type Vocabulary struct {
	entries map[string]string
}

// Slugs returns the defined slugs in ascending order.
func (v *Vocabulary) Slugs() []string {
	slugs := make([]string, 0, len(v.entries))
	for slug := range v.entries {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// Name returns the display name for a slug.
func (v *Vocabulary) Name(slug string) string {
	return v.entries[slug]
}

// Len returns the number of entries.
func (v *Vocabulary) Len() int { return len(v.entries) }

// Load reads and validates a vocabulary file.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse validates raw vocabulary YAML. Every slug must map to a
// non-empty display name.
func Parse(data []byte) (*Vocabulary, error) {
	entries := make(map[string]string)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("malformed vocabulary file: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("empty vocabulary file")
	}

	var invalid []string
	for slug, name := range entries {
		if strings.TrimSpace(slug) == "" || strings.TrimSpace(name) == "" {
			invalid = append(invalid, slug)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return nil, fmt.Errorf("invalid vocabulary names for: %s", strings.Join(invalid, ", "))
	}

	return &Vocabulary{entries: entries}, nil
}

// ApplyCategories upserts every entry as a category.
func ApplyCategories(ctx context.Context, catalog Catalog, v *Vocabulary) error {
	for _, slug := range v.Slugs() {
		if err := catalog.UpsertCategory(ctx, slug, v.Name(slug)); err != nil {
			return fmt.Errorf("cannot upsert category %q: %w", slug, err)
		}
	}
	return nil
}

// ApplyTags upserts every entry as a tag.
func ApplyTags(ctx context.Context, catalog Catalog, v *Vocabulary) error {
	for _, slug := range v.Slugs() {
		if err := catalog.UpsertTag(ctx, slug, v.Name(slug)); err != nil {
			return fmt.Errorf("cannot upsert tag %q: %w", slug, err)
		}
	}
	return nil
}
