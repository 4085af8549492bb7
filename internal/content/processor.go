package content

import (
	"context"
	"time"

	"github.com/arugifa/websync/internal/store"
)

// Reader loads a source file's markup, converting it on the fly when the
// repository stores another format (e.g. Asciidoctor).
type Reader interface {
	Read(ctx context.Context, path string) (string, error)
}

// Attributes is the complete field set extracted from one source file,
// ready to be applied to a document. PublicationDate is zero for undated
// document kinds.
type Attributes struct {
	Title           string
	Lead            string
	Body            string
	Category        *store.Category
	Tags            []*store.Tag
	PublicationDate time.Time
}

// Processor analyzes one source file and produces either a complete
// attribute set or the full collection of per-field errors. Processing
// never mutates persisted documents; the synchronization runner decides
// what to apply.
type Processor interface {
	// Kind returns the document kind this processor handles.
	Kind() string
	// Process classifies, loads, parses and resolves one file. When the
	// returned error list is non-empty, the attributes are meaningless
	// and nothing may be written for this file.
	Process(ctx context.Context, path string) (Attributes, *ErrorList)
}

// ArticleProcessor processes dated blog articles:
// <kind>/<year>/<month>-<day>.<uri>.<ext>, with a title, a single lead
// paragraph, body sections, a category and optional tags.
type ArticleProcessor struct {
	kind     string
	reader   Reader
	resolver *Resolver
}

// NewArticleProcessor creates a processor for the given article kind.
func NewArticleProcessor(kind string, reader Reader, resolver *Resolver) *ArticleProcessor {
	return &ArticleProcessor{kind: kind, reader: reader, resolver: resolver}
}

func (p *ArticleProcessor) Kind() string { return p.kind }

// Process implements Processor.
func (p *ArticleProcessor) Process(ctx context.Context, path string) (Attributes, *ErrorList) {
	errs := &ErrorList{}

	// A malformed path makes everything else meaningless.
	date, err := ScanDate(path)
	if err != nil {
		errs.Add(err)
		return Attributes{}, errs
	}

	src, ok := loadSource(ctx, p.reader, path, errs)
	if !ok {
		return Attributes{}, errs
	}

	attrs := Attributes{PublicationDate: date}
	attrs.Title = collect(errs, src.Title)
	attrs.Lead = collect(errs, src.Lead)
	attrs.Body = collect(errs, src.Body)
	resolveReferences(ctx, p.resolver, src, &attrs, errs)

	if !errs.Empty() {
		return Attributes{}, errs
	}
	return attrs, errs
}

// NoteProcessor processes undated notes: <kind>/<uri>.<ext>, with a
// title, a category, optional tags and a free-form content body.
type NoteProcessor struct {
	kind     string
	reader   Reader
	resolver *Resolver
}

// NewNoteProcessor creates a processor for the given note kind.
func NewNoteProcessor(kind string, reader Reader, resolver *Resolver) *NoteProcessor {
	return &NoteProcessor{kind: kind, reader: reader, resolver: resolver}
}

func (p *NoteProcessor) Kind() string { return p.kind }

// Process implements Processor.
func (p *NoteProcessor) Process(ctx context.Context, path string) (Attributes, *ErrorList) {
	errs := &ErrorList{}

	if _, err := Classify(path); err != nil {
		errs.Add(err)
		return Attributes{}, errs
	}

	src, ok := loadSource(ctx, p.reader, path, errs)
	if !ok {
		return Attributes{}, errs
	}

	var attrs Attributes
	attrs.Title = collect(errs, src.Title)
	attrs.Body = collect(errs, src.Content)
	resolveReferences(ctx, p.resolver, src, &attrs, errs)

	if !errs.Empty() {
		return Attributes{}, errs
	}
	return attrs, errs
}

// loadSource reads and parses one file, short-circuiting on loading or
// total-malformation errors.
func loadSource(ctx context.Context, reader Reader, path string, errs *ErrorList) (*Source, bool) {
	markup, err := reader.Read(ctx, path)
	if err != nil {
		errs.Add(&LoadingError{Path: path, Err: err})
		return nil, false
	}

	src, err := ParseSource(markup)
	if err != nil {
		errs.Add(err)
		return nil, false
	}

	return src, true
}

// resolveReferences extracts the category and tag slugs and maps them to
// persisted entities, merging every failure into errs.
func resolveReferences(ctx context.Context, resolver *Resolver, src *Source, attrs *Attributes, errs *ErrorList) {
	if slug, err := src.Category(); err != nil {
		errs.Add(err)
	} else if category, err := resolver.ResolveCategory(ctx, slug); err != nil {
		errs.Add(err)
	} else {
		attrs.Category = category
	}

	tags, err := resolver.ResolveTags(ctx, src.Tags())
	if err != nil {
		errs.Add(err)
		return
	}
	attrs.Tags = tags
}
