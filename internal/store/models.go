package store

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Category is a document category (e.g. music, programming).
type Category struct {
	ID   uuid.UUID `db:"id"`
	URI  string    `db:"uri"`
	Name string    `db:"name"`
}

// Tag is a document tag (e.g. house, electro).
type Tag struct {
	ID   uuid.UUID `db:"id"`
	URI  string    `db:"uri"`
	Name string    `db:"name"`
}

// Document is a piece of website content synced from the source
// repository. Kind identifies the document family (article, note, ...);
// URI is unique within a kind.
type Document struct {
	ID              uuid.UUID  `db:"id"`
	Kind            string     `db:"kind"`
	URI             string     `db:"uri"`
	Title           string     `db:"title"`
	Lead            string     `db:"lead"`
	Body            string     `db:"body"`
	PublicationDate time.Time  `db:"publication_date"`
	LastUpdate      *time.Time `db:"last_update"`
	Category        *Category
	tags            []*Tag
}

// Tags returns the document's tags, always in ascending slug order.
func (d *Document) Tags() []*Tag {
	return d.tags
}

// SetTags overwrites the document's tags. Tags are re-sorted by slug at
// this boundary, so callers can hand them over in any order.
func (d *Document) SetTags(tags []*Tag) {
	sorted := make([]*Tag, len(tags))
	copy(sorted, tags)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].URI < sorted[j].URI })
	d.tags = sorted
}

// SortTagsByURI returns a sorted copy of tags, ascending by slug.
func SortTagsByURI(tags []*Tag) []*Tag {
	sorted := make([]*Tag, len(tags))
	copy(sorted, tags)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].URI < sorted[j].URI })
	return sorted
}
