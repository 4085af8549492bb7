package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arugifa/websync/internal/db"
)

// PG is the Postgres-backed store.
type PG struct {
	db *db.DB
}

// NewPG creates a store on top of an open connection pool.
func NewPG(database *db.DB) *PG {
	return &PG{db: database}
}

// Begin opens a database transaction as a unit of work.
func (s *PG) Begin(ctx context.Context) (UnitOfWork, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot begin transaction: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) FindCategory(ctx context.Context, slug string) (*Category, error) {
	rows, err := t.tx.Query(ctx,
		"SELECT id, uri, name FROM categories WHERE uri = $1", slug)
	if err != nil {
		return nil, err
	}

	categories, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[Category])
	if err != nil {
		return nil, err
	}

	switch len(categories) {
	case 0:
		return nil, ErrItemNotFound
	case 1:
		return categories[0], nil
	default:
		return nil, ErrMultipleItemsFound
	}
}

func (t *pgTx) CreateCategory(ctx context.Context, slug, name string) (*Category, error) {
	category := &Category{URI: slug, Name: name}
	err := t.tx.QueryRow(ctx,
		"INSERT INTO categories (uri, name) VALUES ($1, $2) RETURNING id",
		slug, name,
	).Scan(&category.ID)
	if err != nil {
		return nil, constraintError(err, fmt.Sprintf("category %s", slug))
	}
	return category, nil
}

func (t *pgTx) FilterTags(ctx context.Context, slugs []string) ([]*Tag, error) {
	rows, err := t.tx.Query(ctx,
		"SELECT id, uri, name FROM tags WHERE uri = ANY($1) ORDER BY uri", slugs)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[Tag])
}

func (t *pgTx) CreateTag(ctx context.Context, slug, name string) (*Tag, error) {
	tag := &Tag{URI: slug, Name: name}
	err := t.tx.QueryRow(ctx,
		"INSERT INTO tags (uri, name) VALUES ($1, $2) RETURNING id",
		slug, name,
	).Scan(&tag.ID)
	if err != nil {
		return nil, constraintError(err, fmt.Sprintf("tag %s", slug))
	}
	return tag, nil
}

func (t *pgTx) UpsertCategory(ctx context.Context, slug, name string) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO categories (uri, name) VALUES ($1, $2)
		ON CONFLICT (uri) DO UPDATE SET name = EXCLUDED.name
	`, slug, name)
	return err
}

func (t *pgTx) UpsertTag(ctx context.Context, slug, name string) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO tags (uri, name) VALUES ($1, $2)
		ON CONFLICT (uri) DO UPDATE SET name = EXCLUDED.name
	`, slug, name)
	return err
}

func (t *pgTx) FindDocument(ctx context.Context, kind, uri string) (*Document, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT d.id, d.kind, d.uri, d.title, d.lead, d.body,
			d.publication_date, d.last_update,
			c.id AS category_id, c.uri AS category_uri, c.name AS category_name
		FROM documents d
		JOIN categories c ON c.id = d.category_id
		WHERE d.kind = $1 AND d.uri = $2
	`, kind, uri)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []*Document
	for rows.Next() {
		doc := &Document{Category: &Category{}}
		if err := rows.Scan(
			&doc.ID, &doc.Kind, &doc.URI, &doc.Title, &doc.Lead, &doc.Body,
			&doc.PublicationDate, &doc.LastUpdate,
			&doc.Category.ID, &doc.Category.URI, &doc.Category.Name,
		); err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(documents) {
	case 0:
		return nil, ErrItemNotFound
	case 1:
		doc := documents[0]
		tags, err := t.documentTags(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		doc.SetTags(tags)
		return doc, nil
	default:
		return nil, ErrMultipleItemsFound
	}
}

func (t *pgTx) DocumentExists(ctx context.Context, kind, uri string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM documents WHERE kind = $1 AND uri = $2)",
		kind, uri,
	).Scan(&exists)
	return exists, err
}

func (t *pgTx) InsertDocument(ctx context.Context, doc *Document) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO documents (kind, uri, title, lead, body, publication_date, last_update, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`,
		doc.Kind, doc.URI, doc.Title, doc.Lead, doc.Body,
		doc.PublicationDate, doc.LastUpdate, doc.Category.ID,
	).Scan(&doc.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s/%s", ErrItemAlreadyExisting, doc.Kind, doc.URI)
		}
		return constraintError(err, fmt.Sprintf("document %s/%s", doc.Kind, doc.URI))
	}

	return t.saveTags(ctx, doc)
}

func (t *pgTx) UpdateDocument(ctx context.Context, doc *Document) error {
	cmd, err := t.tx.Exec(ctx, `
		UPDATE documents
		SET uri = $2, title = $3, lead = $4, body = $5,
			publication_date = $6, last_update = $7, category_id = $8
		WHERE id = $1
	`,
		doc.ID, doc.URI, doc.Title, doc.Lead, doc.Body,
		doc.PublicationDate, doc.LastUpdate, doc.Category.ID,
	)
	if err != nil {
		return constraintError(err, fmt.Sprintf("document %s/%s", doc.Kind, doc.URI))
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%s", ErrItemNotFound, doc.Kind, doc.URI)
	}

	if _, err := t.tx.Exec(ctx,
		"DELETE FROM document_tags WHERE document_id = $1", doc.ID); err != nil {
		return err
	}
	return t.saveTags(ctx, doc)
}

func (t *pgTx) DeleteDocument(ctx context.Context, doc *Document) error {
	cmd, err := t.tx.Exec(ctx, "DELETE FROM documents WHERE id = $1", doc.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%s", ErrItemNotFound, doc.Kind, doc.URI)
	}

	// Orphan cleanup: the tag catalog must not keep entries no document
	// references anymore.
	_, err = t.tx.Exec(ctx, `
		DELETE FROM tags
		WHERE NOT EXISTS (
			SELECT 1 FROM document_tags dt WHERE dt.tag_id = tags.id
		)
	`)
	return err
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func (t *pgTx) documentTags(ctx context.Context, docID any) ([]*Tag, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT t.id, t.uri, t.name
		FROM tags t
		JOIN document_tags dt ON dt.tag_id = t.id
		WHERE dt.document_id = $1
		ORDER BY t.uri
	`, docID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[Tag])
}

func (t *pgTx) saveTags(ctx context.Context, doc *Document) error {
	for _, tag := range doc.Tags() {
		if _, err := t.tx.Exec(ctx,
			"INSERT INTO document_tags (document_id, tag_id) VALUES ($1, $2)",
			doc.ID, tag.ID,
		); err != nil {
			return err
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func constraintError(err error, subject string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%w: %s: %v", ErrInvalidItem, subject, err)
	}
	return err
}
