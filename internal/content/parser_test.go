package content

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const articleMarkup = `<html>
<head>
<title>House Music History</title>
<meta name="description" content="music">
<meta name="keywords" content="house, electro">
</head>
<body>
<div id="content">
<div id="preamble">
<p>Where house music
   comes from.</p>
</div>
<div class="sect1"><h2>Chicago</h2><p>It all started there.</p></div>
<div class="sect1"><h2>Europe</h2><p>Then it crossed the ocean.</p></div>
</div>
</body>
</html>`

func TestParseSource(t *testing.T) {
	if _, err := ParseSource(articleMarkup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, markup := range []string{"", "   \n\t  "} {
		if _, err := ParseSource(markup); !errors.Is(err, ErrSourceMalformatted) {
			t.Errorf("ParseSource(%q) error = %v, want %v", markup, err, ErrSourceMalformatted)
		}
	}
}

func TestSourceTitle(t *testing.T) {
	src := mustParse(t, articleMarkup)

	title, err := src.Title()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != "House Music History" {
		t.Errorf("Title() = %q", title)
	}

	src = mustParse(t, `<html><head></head><body><p>no title</p></body></html>`)
	if _, err := src.Title(); !errors.Is(err, ErrTitleMissing) {
		t.Errorf("Title() error = %v, want %v", err, ErrTitleMissing)
	}
}

func TestSourceCategory(t *testing.T) {
	src := mustParse(t, articleMarkup)

	slug, err := src.Category()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slug != "music" {
		t.Errorf("Category() = %q", slug)
	}

	src = mustParse(t, `<html><head><title>t</title></head><body></body></html>`)
	if _, err := src.Category(); !errors.Is(err, ErrCategoryMissing) {
		t.Errorf("Category() error = %v, want %v", err, ErrCategoryMissing)
	}
}

func TestSourceTags(t *testing.T) {
	tests := []struct {
		name  string
		field string
		want  []string
	}{
		{
			name:  "comma-separated slugs",
			field: "house, electro",
			want:  []string{"house", "electro"},
		},
		{
			name:  "single slug",
			field: "house",
			want:  []string{"house"},
		},
		{
			name:  "no keywords field",
			field: "",
			want:  nil,
		},
		{
			// A blank slug invalidates the whole field instead of keeping
			// the valid remainder.
			name:  "blank slug in the middle",
			field: "house, , electro",
			want:  nil,
		},
		{
			name:  "trailing comma",
			field: "house, electro,",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markup := `<html><head><meta name="keywords" content="` + tt.field + `"></head><body></body></html>`
			src := mustParse(t, markup)

			if got := src.Tags(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSourceLead(t *testing.T) {
	src := mustParse(t, articleMarkup)

	lead, err := src.Lead()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Newlines and indentation inside the paragraph collapse to single
	// spaces.
	if lead != "Where house music comes from." {
		t.Errorf("Lead() = %q", lead)
	}

	t.Run("missing preamble", func(t *testing.T) {
		src := mustParse(t, `<html><body><div id="content"></div></body></html>`)
		if _, err := src.Lead(); !errors.Is(err, ErrLeadMissing) {
			t.Errorf("Lead() error = %v, want %v", err, ErrLeadMissing)
		}
	})

	t.Run("several paragraphs", func(t *testing.T) {
		src := mustParse(t, `<html><body><div id="content"><div id="preamble">
			<p>First.</p><p>Second.</p>
		</div></div></body></html>`)
		if _, err := src.Lead(); !errors.Is(err, ErrLeadMalformatted) {
			t.Errorf("Lead() error = %v, want %v", err, ErrLeadMalformatted)
		}
	})
}

func TestSourceBody(t *testing.T) {
	src := mustParse(t, articleMarkup)

	body, err := src.Body()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Chicago", "Europe", `<div class="sect1">`} {
		if !strings.Contains(body, want) {
			t.Errorf("Body() does not contain %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "preamble") {
		t.Errorf("Body() leaked the preamble:\n%s", body)
	}

	src = mustParse(t, `<html><body><div id="content"><p>sectionless</p></div></body></html>`)
	if _, err := src.Body(); !errors.Is(err, ErrBodyMissing) {
		t.Errorf("Body() error = %v, want %v", err, ErrBodyMissing)
	}
}

func TestSourceContent(t *testing.T) {
	src := mustParse(t, `<html><body><div id="content"><p>free-form notes</p></div></body></html>`)

	content, err := src.Content()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(content, "<p>free-form notes</p>") {
		t.Errorf("Content() = %q", content)
	}

	src = mustParse(t, `<html><body><div id="content">   </div></body></html>`)
	if _, err := src.Content(); !errors.Is(err, ErrBodyMissing) {
		t.Errorf("Content() error = %v, want %v", err, ErrBodyMissing)
	}
}

func mustParse(t *testing.T, markup string) *Source {
	t.Helper()

	src, err := ParseSource(markup)
	if err != nil {
		t.Fatalf("cannot parse markup: %v", err)
	}
	return src
}
