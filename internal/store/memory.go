package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process store implementing the same unit-of-work
// contract as the Postgres-backed store. It backs tests and dry runs:
// staged changes stay invisible until Commit.
type Memory struct {
	mu         sync.Mutex
	documents  []*Document
	categories []*Category
	tags       []*Tag
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Seed inserts entities directly, bypassing the unit of work. Duplicate
// slugs are allowed on purpose, so integrity violations can be
// simulated.
func (m *Memory) Seed(items ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		switch v := item.(type) {
		case *Document:
			if v.ID == uuid.Nil {
				v.ID = uuid.New()
			}
			m.documents = append(m.documents, v)
		case *Category:
			if v.ID == uuid.Nil {
				v.ID = uuid.New()
			}
			m.categories = append(m.categories, v)
		case *Tag:
			if v.ID == uuid.Nil {
				v.ID = uuid.New()
			}
			m.tags = append(m.tags, v)
		default:
			panic(fmt.Sprintf("store: cannot seed %T", item))
		}
	}
}

// Documents returns the committed documents of one kind.
func (m *Memory) Documents(kind string) []*Document {
	m.mu.Lock()
	defer m.mu.Unlock()

	var docs []*Document
	for _, doc := range m.documents {
		if doc.Kind == kind {
			docs = append(docs, doc)
		}
	}
	return docs
}

// Categories returns all committed categories.
func (m *Memory) Categories() []*Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Category(nil), m.categories...)
}

// AllTags returns all committed tags.
func (m *Memory) AllTags() []*Tag {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Tag(nil), m.tags...)
}

// Begin opens a unit of work over a snapshot of the store.
func (m *Memory) Begin(ctx context.Context) (UnitOfWork, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{store: m}
	tx.documents = cloneDocuments(m.documents)
	tx.categories = cloneCategories(m.categories)
	tx.tags = cloneTags(m.tags)
	return tx, nil
}

// memoryTx is a snapshot-based unit of work: every staged change applies
// to the snapshot only, and Commit swaps the snapshot back into the
// store atomically.
type memoryTx struct {
	store      *Memory
	documents  []*Document
	categories []*Category
	tags       []*Tag
	done       bool
}

func (tx *memoryTx) FindCategory(ctx context.Context, slug string) (*Category, error) {
	var matches []*Category
	for _, c := range tx.categories {
		if c.URI == slug {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return nil, ErrItemNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, ErrMultipleItemsFound
	}
}

func (tx *memoryTx) CreateCategory(ctx context.Context, slug, name string) (*Category, error) {
	for _, c := range tx.categories {
		if c.URI == slug {
			return nil, fmt.Errorf("%w: category %s", ErrInvalidItem, slug)
		}
	}
	category := &Category{ID: uuid.New(), URI: slug, Name: name}
	tx.categories = append(tx.categories, category)
	return category, nil
}

func (tx *memoryTx) FilterTags(ctx context.Context, slugs []string) ([]*Tag, error) {
	wanted := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		wanted[slug] = true
	}

	var tags []*Tag
	for _, tag := range tx.tags {
		if wanted[tag.URI] {
			tags = append(tags, tag)
		}
	}
	return SortTagsByURI(tags), nil
}

func (tx *memoryTx) CreateTag(ctx context.Context, slug, name string) (*Tag, error) {
	for _, tag := range tx.tags {
		if tag.URI == slug {
			return nil, fmt.Errorf("%w: tag %s", ErrInvalidItem, slug)
		}
	}
	tag := &Tag{ID: uuid.New(), URI: slug, Name: name}
	tx.tags = append(tx.tags, tag)
	return tag, nil
}

func (tx *memoryTx) FindDocument(ctx context.Context, kind, uri string) (*Document, error) {
	var matches []*Document
	for _, doc := range tx.documents {
		if doc.Kind == kind && doc.URI == uri {
			matches = append(matches, doc)
		}
	}
	switch len(matches) {
	case 0:
		return nil, ErrItemNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, ErrMultipleItemsFound
	}
}

func (tx *memoryTx) DocumentExists(ctx context.Context, kind, uri string) (bool, error) {
	for _, doc := range tx.documents {
		if doc.Kind == kind && doc.URI == uri {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryTx) InsertDocument(ctx context.Context, doc *Document) error {
	if exists, _ := tx.DocumentExists(ctx, doc.Kind, doc.URI); exists {
		return fmt.Errorf("%w: %s/%s", ErrItemAlreadyExisting, doc.Kind, doc.URI)
	}
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	tx.documents = append(tx.documents, doc)
	return nil
}

func (tx *memoryTx) UpdateDocument(ctx context.Context, doc *Document) error {
	for i, existing := range tx.documents {
		if existing.ID == doc.ID {
			tx.documents[i] = doc
			return nil
		}
	}
	return fmt.Errorf("%w: %s/%s", ErrItemNotFound, doc.Kind, doc.URI)
}

func (tx *memoryTx) DeleteDocument(ctx context.Context, doc *Document) error {
	for i, existing := range tx.documents {
		if existing.ID == doc.ID {
			tx.documents = append(tx.documents[:i], tx.documents[i+1:]...)
			tx.deleteOrphanTags()
			return nil
		}
	}
	return fmt.Errorf("%w: %s/%s", ErrItemNotFound, doc.Kind, doc.URI)
}

// deleteOrphanTags drops every tag no remaining document references.
// The tag catalog must not accumulate dead vocabulary entries.
func (tx *memoryTx) deleteOrphanTags() {
	referenced := make(map[uuid.UUID]bool)
	for _, doc := range tx.documents {
		for _, tag := range doc.Tags() {
			referenced[tag.ID] = true
		}
	}

	kept := tx.tags[:0]
	for _, tag := range tx.tags {
		if referenced[tag.ID] {
			kept = append(kept, tag)
		}
	}
	tx.tags = kept
}

func (tx *memoryTx) UpsertCategory(ctx context.Context, slug, name string) error {
	for _, c := range tx.categories {
		if c.URI == slug {
			c.Name = name
			return nil
		}
	}
	tx.categories = append(tx.categories, &Category{ID: uuid.New(), URI: slug, Name: name})
	return nil
}

func (tx *memoryTx) UpsertTag(ctx context.Context, slug, name string) error {
	for _, tag := range tx.tags {
		if tag.URI == slug {
			tag.Name = name
			return nil
		}
	}
	tx.tags = append(tx.tags, &Tag{ID: uuid.New(), URI: slug, Name: name})
	return nil
}

func (tx *memoryTx) Commit(ctx context.Context) error {
	if tx.done {
		return fmt.Errorf("store: unit of work already closed")
	}
	tx.done = true

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	tx.store.documents = tx.documents
	tx.store.categories = tx.categories
	tx.store.tags = tx.tags
	return nil
}

func (tx *memoryTx) Rollback(ctx context.Context) error {
	tx.done = true
	return nil
}

func cloneDocuments(docs []*Document) []*Document {
	out := make([]*Document, len(docs))
	for i, doc := range docs {
		clone := *doc
		clone.SetTags(doc.Tags())
		out[i] = &clone
	}
	return out
}

func cloneCategories(categories []*Category) []*Category {
	out := make([]*Category, len(categories))
	for i, c := range categories {
		clone := *c
		out[i] = &clone
	}
	return out
}

func cloneTags(tags []*Tag) []*Tag {
	out := make([]*Tag, len(tags))
	for i, tag := range tags {
		clone := *tag
		out[i] = &clone
	}
	return out
}
