// Package toc builds the table of contents handed to the renderer. Order and
// previous/next pointers come only from chapter numbers; declared navigation
// links are cross-checked against them and never used as a source of truth.
package toc

import (
	"encoding/json"

	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/types"
)

// Entry is one chapter of the table of contents.
type Entry struct {
	Number    int    `json:"chapter_number" yaml:"chapter_number"`
	Title     string `json:"title" yaml:"title"`
	Permalink string `json:"permalink" yaml:"permalink"`
	Previous  string `json:"previous,omitempty" yaml:"previous,omitempty"`
	Next      string `json:"next,omitempty" yaml:"next,omitempty"`
}

// HasPrevious reports whether the entry has a preceding chapter.
func (e Entry) HasPrevious() bool { return e.Previous != "" }

// HasNext reports whether the entry has a following chapter.
func (e Entry) HasNext() bool { return e.Next != "" }

// TableOfContents is an immutable, number-ordered chapter listing.
type TableOfContents struct {
	entries []Entry
}

// Build projects a certified collection into a table of contents. The
// returned report holds NavigationMismatch warnings for declared next and
// previous links that disagree with numeric order; it never holds errors.
func Build(col *types.Collection, refs []types.CrossReference) (*TableOfContents, *errors.Report) {
	chapters := col.Chapters()
	entries := make([]Entry, len(chapters))

	for i, ch := range chapters {
		entries[i] = Entry{
			Number:    ch.Number,
			Title:     ch.Title,
			Permalink: ch.Permalink,
		}
		if i > 0 {
			entries[i].Previous = chapters[i-1].Permalink
		}
		if i < len(chapters)-1 {
			entries[i].Next = chapters[i+1].Permalink
		}
	}

	return &TableOfContents{entries: entries}, CrossCheck(col, refs)
}

// CrossCheck compares declared navigation against numeric order. A next link
// from chapter n must land on n+1 and a previous link on n-1.
func CrossCheck(col *types.Collection, refs []types.CrossReference) *errors.Report {
	report := errors.NewReport(errors.StageBuild)

	for _, ref := range refs {
		var want int
		switch ref.Kind {
		case types.RefNext:
			want = ref.From + 1
		case types.RefPrevious:
			want = ref.From - 1
		default:
			continue
		}
		if ref.Resolved == want {
			continue
		}

		from, _ := col.ByNumber(ref.From)
		issue := errors.Issue{
			Chapters: []int{ref.From},
			Sources:  []string{from.SourceID},
			Target:   ref.Target,
		}
		if _, ok := col.ByNumber(want); !ok {
			report.Warnf(errors.KindNavigationMismatch, issue,
				"chapter %d declares a %s link to chapter %d but has no %s chapter",
				ref.From, ref.Kind, ref.Resolved, ref.Kind)
			continue
		}
		report.Warnf(errors.KindNavigationMismatch, issue,
			"chapter %d declares a %s link to chapter %d, expected chapter %d",
			ref.From, ref.Kind, ref.Resolved, want)
	}

	return report
}

// Len returns the number of entries.
func (t *TableOfContents) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns a copy of the entries in chapter order.
func (t *TableOfContents) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Entry returns the entry for a chapter number.
func (t *TableOfContents) Entry(number int) (Entry, bool) {
	if t == nil || number < 1 || number > len(t.entries) {
		return Entry{}, false
	}
	return t.entries[number-1], true
}

// Lookup returns the entry with the given permalink.
func (t *TableOfContents) Lookup(permalink string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	for _, e := range t.entries {
		if e.Permalink == permalink {
			return e, true
		}
	}
	return Entry{}, false
}

// MarshalJSON encodes the table as its entry list.
func (t *TableOfContents) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Entries())
}

// MarshalYAML encodes the table as its entry list.
func (t *TableOfContents) MarshalYAML() (any, error) {
	return t.Entries(), nil
}
