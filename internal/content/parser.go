package content

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Source is a parsed HTML document tree, with one extraction method per
// semantic field. Each extractor fails independently so a processor can
// run them all and aggregate the failures.
type Source struct {
	doc *goquery.Document
}

// ParseSource deserializes raw HTML markup. Empty input counts as
// malformatted: a blank source file can never yield a document.
func ParseSource(markup string) (*Source, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, fmt.Errorf("%w: empty source", ErrSourceMalformatted)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceMalformatted, err)
	}

	return &Source{doc: doc}, nil
}

// Title returns the document's title.
func (s *Source) Title() (string, error) {
	title := strings.TrimSpace(s.doc.Find("head title").First().Text())
	if title == "" {
		return "", ErrTitleMissing
	}
	return title, nil
}

// Category returns the document's category slug, held in the
// description metadata field.
func (s *Source) Category() (string, error) {
	slug, _ := s.doc.Find(`head meta[name=description]`).First().Attr("content")
	if slug == "" {
		return "", ErrCategoryMissing
	}
	return slug, nil
}

// Tags returns the document's tag slugs, held comma-separated in the
// keywords metadata field. A missing field is not an error and yields no
// tags. If any slug is blank after trimming, the whole field is treated
// as empty rather than keeping the valid remainder.
func (s *Source) Tags() []string {
	field, _ := s.doc.Find(`head meta[name=keywords]`).First().Attr("content")
	if field == "" {
		return nil
	}

	slugs := strings.Split(field, ",")
	for i, slug := range slugs {
		slugs[i] = strings.TrimSpace(slug)
		if slugs[i] == "" {
			return nil
		}
	}

	return slugs
}

// Lead returns the document's lead paragraph. Exactly one preamble
// paragraph is expected: more than one is ambiguous and always an
// error, never resolved by picking the first. Embedded whitespace runs
// are collapsed to single spaces.
func (s *Source) Lead() (string, error) {
	paragraphs := s.doc.Find("body #content #preamble p")

	if paragraphs.Length() > 1 {
		return "", ErrLeadMalformatted
	}

	lead := strings.TrimSpace(whitespaceRun.ReplaceAllString(paragraphs.Text(), " "))
	if lead == "" {
		return "", ErrLeadMissing
	}

	return lead, nil
}

// Body returns the document's body: every top-level section, serialized
// back to markup and concatenated.
func (s *Source) Body() (string, error) {
	sections := s.doc.Find("body #content div.sect1")
	if sections.Length() == 0 {
		return "", ErrBodyMissing
	}

	var b strings.Builder
	var serr error
	sections.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		markup, err := goquery.OuterHtml(sel)
		if err != nil {
			serr = err
			return false
		}
		b.WriteString(markup)
		return true
	})
	if serr != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceMalformatted, serr)
	}

	return b.String(), nil
}

// Content returns the inner markup of the content container, used by
// document kinds without a lead/section structure.
func (s *Source) Content() (string, error) {
	container := s.doc.Find("body #content")
	if container.Length() == 0 {
		return "", ErrBodyMissing
	}

	markup, err := container.First().Html()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceMalformatted, err)
	}
	if strings.TrimSpace(markup) == "" {
		return "", ErrBodyMissing
	}

	return markup, nil
}
