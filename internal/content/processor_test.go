package content

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/arugifa/websync/internal/store"
)

// mapReader serves canned markup by path.
type mapReader map[string]string

func (r mapReader) Read(ctx context.Context, path string) (string, error) {
	markup, ok := r[path]
	if !ok {
		return "", fmt.Errorf("no such file: %s", path)
	}
	return markup, nil
}

func TestArticleProcessor(t *testing.T) {
	ctx := context.Background()

	t.Run("complete article", func(t *testing.T) {
		uow := newTestCatalog(t,
			&store.Category{URI: "music", Name: "Music"},
			&store.Tag{URI: "house", Name: "House"},
			&store.Tag{URI: "electro", Name: "Electro"},
		)
		reader := mapReader{"blog/2024/04-08.house-music-history.html": articleMarkup}
		processor := NewArticleProcessor("blog", reader, NewResolver(uow, nil, false))

		attrs, errs := processor.Process(ctx, "blog/2024/04-08.house-music-history.html")
		if !errs.Empty() {
			t.Fatalf("unexpected errors: %v", errs)
		}

		if attrs.Title != "House Music History" {
			t.Errorf("title = %q", attrs.Title)
		}
		if attrs.Lead != "Where house music comes from." {
			t.Errorf("lead = %q", attrs.Lead)
		}
		if attrs.Body == "" {
			t.Error("body is empty")
		}
		if attrs.Category == nil || attrs.Category.URI != "music" {
			t.Errorf("category = %+v", attrs.Category)
		}
		if len(attrs.Tags) != 2 || attrs.Tags[0].URI != "electro" || attrs.Tags[1].URI != "house" {
			t.Errorf("tags = %v", tagURIs(attrs.Tags))
		}
		want := time.Date(2024, time.April, 8, 0, 0, 0, 0, time.UTC)
		if !attrs.PublicationDate.Equal(want) {
			t.Errorf("publication date = %v, want %v", attrs.PublicationDate, want)
		}
	})

	t.Run("malformed path short-circuits", func(t *testing.T) {
		reader := mapReader{}
		processor := NewArticleProcessor("blog", reader, NewResolver(newTestCatalog(t), nil, false))

		_, errs := processor.Process(ctx, "blog/2024/article.html")
		if len(errs.Errors()) != 1 || !errs.Has(ErrDateMalformatted) {
			t.Fatalf("errors = %v, want a single %v", errs, ErrDateMalformatted)
		}
	})

	t.Run("unreadable file short-circuits", func(t *testing.T) {
		processor := NewArticleProcessor("blog", mapReader{}, NewResolver(newTestCatalog(t), nil, false))

		_, errs := processor.Process(ctx, "blog/2024/04-08.article.html")
		if len(errs.Errors()) != 1 {
			t.Fatalf("errors = %v, want a single loading error", errs)
		}
		var loading *LoadingError
		if !errors.As(errs.Errors()[0], &loading) {
			t.Fatalf("error = %v, want LoadingError", errs.Errors()[0])
		}
	})

	t.Run("every field failure is reported at once", func(t *testing.T) {
		// No title, no lead, no sections, no category, unknown tag.
		markup := `<html><head>
			<meta name="keywords" content="unknown">
		</head><body><div id="content"></div></body></html>`

		reader := mapReader{"blog/2024/04-08.broken.html": markup}
		processor := NewArticleProcessor("blog", reader, NewResolver(newTestCatalog(t), nil, false))

		_, errs := processor.Process(ctx, "blog/2024/04-08.broken.html")

		for _, want := range []error{ErrTitleMissing, ErrLeadMissing, ErrBodyMissing, ErrCategoryMissing} {
			if !errs.Has(want) {
				t.Errorf("errors %v do not include %v", errs, want)
			}
		}

		var tagsNotFound *TagsNotFoundError
		found := false
		for _, err := range errs.Errors() {
			if errors.As(err, &tagsNotFound) {
				found = true
			}
		}
		if !found {
			t.Errorf("errors %v do not include TagsNotFoundError", errs)
		}
	})
}

func TestNoteProcessor(t *testing.T) {
	ctx := context.Background()

	noteMarkup := `<html>
<head>
<title>Git Cheatsheet</title>
<meta name="description" content="programming">
</head>
<body><div id="content"><p>git log --oneline</p></div></body>
</html>`

	t.Run("complete note", func(t *testing.T) {
		uow := newTestCatalog(t, &store.Category{URI: "programming", Name: "Programming"})
		reader := mapReader{"notes/git-cheatsheet.html": noteMarkup}
		processor := NewNoteProcessor("notes", reader, NewResolver(uow, nil, false))

		attrs, errs := processor.Process(ctx, "notes/git-cheatsheet.html")
		if !errs.Empty() {
			t.Fatalf("unexpected errors: %v", errs)
		}

		if attrs.Title != "Git Cheatsheet" {
			t.Errorf("title = %q", attrs.Title)
		}
		if attrs.Body == "" {
			t.Error("body is empty")
		}
		if attrs.Lead != "" {
			t.Errorf("lead = %q, want empty", attrs.Lead)
		}
		if !attrs.PublicationDate.IsZero() {
			t.Errorf("publication date = %v, want zero", attrs.PublicationDate)
		}
	})

	t.Run("invalid location short-circuits", func(t *testing.T) {
		processor := NewNoteProcessor("notes", mapReader{}, NewResolver(newTestCatalog(t), nil, false))

		_, errs := processor.Process(ctx, "git-cheatsheet.html")
		if len(errs.Errors()) != 1 || !errs.Has(ErrInvalidLocation) {
			t.Fatalf("errors = %v, want a single %v", errs, ErrInvalidLocation)
		}
	})
}
