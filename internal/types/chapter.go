// Package types provides the value types shared by every bindery stage.
// This package has no dependencies on other bindery packages to avoid
// circular imports between the loader, validators and builders.
package types

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Document is one raw chapter source as handed over by a content source,
// before any metadata has been checked.
type Document struct {
	// SourceID identifies the originating document. It is opaque to the core.
	SourceID string
	// Metadata holds the decoded front-matter keys exactly as written.
	Metadata map[string]any
	// Body is the document text following the front-matter block.
	Body string
}

// Chapter is one validated unit of the book. Chapters are values: once
// constructed by the loader they are never mutated, and a source change
// rebuilds the whole set.
type Chapter struct {
	// Number is the declared chapter_number and the only ordering key.
	Number int `json:"chapter_number" yaml:"chapter_number"`
	// Title is the human readable chapter title.
	Title string `json:"title" yaml:"title"`
	// Permalink is the stable URL path of the chapter.
	Permalink string `json:"permalink" yaml:"permalink"`
	// DirectoryPage records a permalink declared with a trailing slash.
	// Relative links on such a page resolve inside it rather than beside it.
	DirectoryPage bool `json:"-" yaml:"-"`
	// Layout is the optional site layout name, passed through untouched.
	Layout string `json:"layout,omitempty" yaml:"layout,omitempty"`
	// SourceID identifies the document the chapter was loaded from.
	SourceID string `json:"source_id" yaml:"source_id"`
	// Body is the raw chapter text.
	Body string `json:"-" yaml:"-"`
}

// String returns a short human readable label for diagnostics.
func (c Chapter) String() string {
	return fmt.Sprintf("chapter %d (%s)", c.Number, c.SourceID)
}

// Collection is a certified chapter collection: numbers are exactly 1..N and
// permalinks are unique. The zero value is empty and not certified; only
// NewCollection (called by the ordering validator) produces a usable one.
type Collection struct {
	chapters    []Chapter
	byPermalink map[string]int
}

// NewCollection certifies chapters that have already been checked for
// contiguity and uniqueness. The input is copied and sorted by number.
func NewCollection(chapters []Chapter) *Collection {
	sorted := make([]Chapter, len(chapters))
	copy(sorted, chapters)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Number < sorted[j].Number
	})

	byPermalink := make(map[string]int, len(sorted))
	for i, ch := range sorted {
		byPermalink[ch.Permalink] = i
	}

	return &Collection{chapters: sorted, byPermalink: byPermalink}
}

// Len returns the number of chapters.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.chapters)
}

// Chapters returns a copy of the chapters in ascending number order.
func (c *Collection) Chapters() []Chapter {
	if c == nil {
		return nil
	}
	out := make([]Chapter, len(c.chapters))
	copy(out, c.chapters)
	return out
}

// ByNumber returns the chapter with the given number.
func (c *Collection) ByNumber(number int) (Chapter, bool) {
	if c == nil || number < 1 || number > len(c.chapters) {
		return Chapter{}, false
	}
	return c.chapters[number-1], true
}

// ByPermalink returns the chapter with the given permalink.
func (c *Collection) ByPermalink(permalink string) (Chapter, bool) {
	if c == nil {
		return Chapter{}, false
	}
	i, ok := c.byPermalink[permalink]
	if !ok {
		return Chapter{}, false
	}
	return c.chapters[i], true
}

// MarshalJSON encodes the collection as its ordered chapter list.
func (c *Collection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Chapters())
}

// RefKind classifies a cross reference.
type RefKind string

const (
	RefNext     RefKind = "next"
	RefPrevious RefKind = "previous"
	RefInline   RefKind = "inline"
)

// CrossReference is a directed edge from one chapter to another, as declared
// in the source chapter's body.
type CrossReference struct {
	// From is the number of the chapter declaring the reference.
	From int `json:"from" yaml:"from"`
	// Target is the permalink or chapter number exactly as written.
	Target string `json:"target" yaml:"target"`
	// Kind says whether the reference is navigation or an inline link.
	Kind RefKind `json:"kind" yaml:"kind"`
	// Line is the 1-based body line the reference was found on.
	Line int `json:"line,omitempty" yaml:"line,omitempty"`
	// Resolved is the number of the chapter the target resolves to; 0 until
	// the resolver has matched it.
	Resolved int `json:"resolved,omitempty" yaml:"resolved,omitempty"`
}

// String returns a short human readable label for diagnostics.
func (r CrossReference) String() string {
	return fmt.Sprintf("%s reference from chapter %d to %q", r.Kind, r.From, r.Target)
}
