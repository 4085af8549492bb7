// Package store persists documents, categories and tags. All writes go
// through a unit of work: changes are staged against one transaction and
// either commit together or not at all.
package store

import "context"

// Store opens units of work.
type Store interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

// UnitOfWork is one atomic batch of lookups and staged mutations. The
// synchronization runner owns the commit/rollback decision; nothing is
// visible to other readers until Commit.
type UnitOfWork interface {
	// Catalog lookups. Find distinguishes 0 (ErrItemNotFound), 1 and
	// N (ErrMultipleItemsFound) matches.
	FindCategory(ctx context.Context, slug string) (*Category, error)
	CreateCategory(ctx context.Context, slug, name string) (*Category, error)
	FilterTags(ctx context.Context, slugs []string) ([]*Tag, error)
	CreateTag(ctx context.Context, slug, name string) (*Tag, error)
	UpsertCategory(ctx context.Context, slug, name string) error
	UpsertTag(ctx context.Context, slug, name string) error

	// Document operations.
	FindDocument(ctx context.Context, kind, uri string) (*Document, error)
	DocumentExists(ctx context.Context, kind, uri string) (bool, error)
	InsertDocument(ctx context.Context, doc *Document) error
	UpdateDocument(ctx context.Context, doc *Document) error
	// DeleteDocument removes the document and then drops every tag left
	// without a referencing document.
	DeleteDocument(ctx context.Context, doc *Document) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
