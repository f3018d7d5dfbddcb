// Package loader turns raw chapter documents into Chapter values.
//
// The loader enforces a strict front-matter schema: chapter_number must be a
// positive YAML integer, title and permalink must be non-blank strings and the
// permalink must be a site-absolute path. Every problem in every document is
// collected in one pass; the loader never deduplicates, that is the ordering
// validator's job. It performs no I/O.
package loader

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/types"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// Front-matter keys.
const (
	KeyTitle         = "title"
	KeyChapterNumber = "chapter_number"
	KeyPermalink     = "permalink"
	KeyLayout        = "layout"
)

// metadata is the strict schema a document's front-matter must satisfy.
type metadata struct {
	Title         string `yaml:"title" validate:"required"`
	ChapterNumber int    `yaml:"chapter_number" validate:"gt=0"`
	Permalink     string `yaml:"permalink" validate:"required,permalink"`
	Layout        string `yaml:"layout"`
}

// Loader converts documents into chapters.
type Loader struct {
	validate *validator.Validate
}

// New creates a loader with its schema validator.
func New() *Loader {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("permalink", func(fl validator.FieldLevel) bool {
		return ValidPermalink(fl.Field().String())
	})

	return &Loader{validate: v}
}

// ValidPermalink reports whether s is a site-absolute URL path.
func ValidPermalink(s string) bool {
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") {
		return false
	}
	return !strings.ContainsAny(s, " \t\n\r?#")
}

// NormalizePermalink applies the canonical form used for uniqueness checks
// and link resolution: NFC, surrounding space trimmed, no trailing slash
// except for the root path.
func NormalizePermalink(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	for len(s) > 1 && strings.HasSuffix(s, "/") {
		s = strings.TrimSuffix(s, "/")
	}
	return s
}

// LoadSources parses raw sources and loads every decodable document.
// Undecodable front-matter is reported as MalformedMetadata alongside the
// problems of the other documents.
func (l *Loader) LoadSources(sources []Source) ([]types.Chapter, error) {
	report := errors.NewReport(errors.StageLoad)
	docs := make([]types.Document, 0, len(sources))

	for _, src := range sources {
		doc, err := ParseDocument(src.ID, src.Raw)
		if err != nil {
			report.Errorf(errors.KindMalformedMetadata,
				errors.Issue{Sources: []string{src.ID}},
				"%v", err)
			continue
		}
		docs = append(docs, doc)
	}

	chapters, err := l.Load(docs)
	if r, ok := errors.AsReport(err); ok {
		report.Merge(r)
	}
	if report.HasErrors() {
		return nil, report
	}
	return chapters, nil
}

// Load converts documents into chapters in input order. It returns a
// *errors.Report listing every MalformedMetadata and MissingField problem
// when any document is invalid.
func (l *Loader) Load(docs []types.Document) ([]types.Chapter, error) {
	report := errors.NewReport(errors.StageLoad)
	chapters := make([]types.Chapter, 0, len(docs))

	for _, doc := range docs {
		ch, ok := l.loadOne(doc, report)
		if ok {
			chapters = append(chapters, ch)
		}
	}

	if report.HasErrors() {
		return nil, report
	}
	return chapters, nil
}

func (l *Loader) loadOne(doc types.Document, report *errors.Report) (types.Chapter, bool) {
	before := len(report.Issues)
	where := errors.Issue{Sources: []string{doc.SourceID}}

	var meta metadata
	meta.Title = l.stringField(doc, KeyTitle, report)
	meta.Permalink = l.stringField(doc, KeyPermalink, report)
	meta.Layout, _ = doc.Metadata[KeyLayout].(string)

	number, numberOK := chapterNumber(doc.Metadata)
	switch {
	case numberOK:
		meta.ChapterNumber = number
	case hasKey(doc.Metadata, KeyChapterNumber):
		report.Errorf(errors.KindMalformedMetadata, withField(where, KeyChapterNumber),
			"chapter_number must be an integer, got %s", describe(doc.Metadata[KeyChapterNumber]))
	default:
		report.Errorf(errors.KindMalformedMetadata, withField(where, KeyChapterNumber),
			"chapter_number is missing")
	}

	meta.Title = norm.NFC.String(strings.TrimSpace(meta.Title))
	directory := strings.HasSuffix(strings.TrimSpace(meta.Permalink), "/")
	meta.Permalink = NormalizePermalink(meta.Permalink)

	if err := l.validate.Struct(meta); err != nil {
		var verrs validator.ValidationErrors
		if !asValidationErrors(err, &verrs) {
			report.Errorf(errors.KindMalformedMetadata, where, "%v", err)
		}
		for _, fe := range verrs {
			// Numbers that failed to decode were already reported.
			if fe.Field() == KeyChapterNumber && !numberOK {
				continue
			}
			// So were present fields of the wrong type.
			if fe.Tag() == "required" && hasKey(doc.Metadata, fe.Field()) && !isString(doc.Metadata[fe.Field()]) {
				continue
			}
			l.reportFieldError(fe, where, report)
		}
	}

	if len(report.Issues) > before {
		return types.Chapter{}, false
	}

	return types.Chapter{
		Number:        meta.ChapterNumber,
		Title:         meta.Title,
		Permalink:     meta.Permalink,
		DirectoryPage: directory,
		Layout:        meta.Layout,
		SourceID:      doc.SourceID,
		Body:          doc.Body,
	}, true
}

func (l *Loader) stringField(doc types.Document, key string, report *errors.Report) string {
	raw, ok := doc.Metadata[key]
	if !ok || raw == nil {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		report.Errorf(errors.KindMalformedMetadata,
			errors.Issue{Sources: []string{doc.SourceID}, Field: key},
			"%s must be a string, got %s", key, describe(raw))
		return ""
	}
	return s
}

func (l *Loader) reportFieldError(fe validator.FieldError, where errors.Issue, report *errors.Report) {
	issue := withField(where, fe.Field())
	switch fe.Tag() {
	case "required":
		report.Errorf(errors.KindMissingField, issue, "%s is missing", fe.Field())
	case "gt":
		report.Errorf(errors.KindMalformedMetadata, issue,
			"%s must be positive, got %v", fe.Field(), fe.Value())
	case "permalink":
		report.Errorf(errors.KindMalformedMetadata, issue,
			"permalink %q must be a site-absolute path without query or fragment", fe.Value())
	default:
		report.Errorf(errors.KindMalformedMetadata, issue,
			"%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// chapterNumber extracts an integral chapter_number. YAML floats, strings and
// booleans are rejected even when they look numeric.
func chapterNumber(meta map[string]any) (int, bool) {
	switch v := meta[KeyChapterNumber].(type) {
	case int:
		return v, true
	case int64:
		if v < math.MinInt || v > math.MaxInt {
			return 0, false
		}
		return int(v), true
	case uint64:
		if v > math.MaxInt {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

func hasKey(meta map[string]any, key string) bool {
	v, ok := meta[key]
	return ok && v != nil
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func withField(issue errors.Issue, field string) errors.Issue {
	issue.Field = field
	return issue
}

func describe(v any) string {
	switch x := v.(type) {
	case string:
		return fmt.Sprintf("string %q", x)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T %v", v, v)
	}
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}
