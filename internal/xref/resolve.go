// Package xref extracts chapter cross references from chapter bodies and
// checks that every one of them lands on a chapter of the certified
// collection.
//
// A reference is a link (Markdown or raw HTML) or an explicit
// "Next: Chapter 3" marker. Links labelled next/previous are navigation;
// other site-internal links are inline references. Unresolvable targets are
// DanglingReference errors and a chapter declaring two different next (or
// previous) targets is a ConflictingReference error; ambiguity is never
// settled by picking one.
package xref

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/loader"
	"github.com/conneroisu/bindery/internal/types"
)

// DefaultInternalExtensions are the link path extensions that may name a
// chapter page besides extension-less paths.
var DefaultInternalExtensions = []string{".html", ".htm"}

// Resolver validates the references of a certified collection.
type Resolver struct {
	extractor *Extractor
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithInternalExtensions replaces the extensions treated as chapter pages.
func WithInternalExtensions(exts []string) Option {
	return func(r *Resolver) {
		r.extractor = NewExtractor(exts)
	}
}

// New creates a resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{extractor: NewExtractor(DefaultInternalExtensions)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve extracts and validates every reference of col. It returns the
// references with Resolved set, ordered by source chapter then line, or a
// *errors.Report with every DanglingReference and ConflictingReference.
func (r *Resolver) Resolve(col *types.Collection) ([]types.CrossReference, error) {
	report := errors.NewReport(errors.StageResolve)
	var all []types.CrossReference

	for _, ch := range col.Chapters() {
		refs := r.extractor.Extract(ch)
		for i := range refs {
			target, ok := resolveTarget(col, ch, refs[i].Target)
			if !ok {
				report.Errorf(errors.KindDanglingReference,
					errors.Issue{Chapters: []int{ch.Number}, Sources: []string{ch.SourceID}, Target: refs[i].Target},
					"%s reference on line %d of chapter %d points at %q, which is not a chapter",
					refs[i].Kind, refs[i].Line, ch.Number, refs[i].Target)
				continue
			}
			refs[i].Resolved = target.Number
		}

		checkConflicts(ch, refs, types.RefNext, report)
		checkConflicts(ch, refs, types.RefPrevious, report)

		all = append(all, refs...)
	}

	if report.HasErrors() {
		return nil, report
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].From != all[j].From {
			return all[i].From < all[j].From
		}
		return all[i].Line < all[j].Line
	})
	return all, nil
}

// checkConflicts reports a chapter whose references of one kind name more
// than one distinct chapter. Repeating the same target is fine.
func checkConflicts(ch types.Chapter, refs []types.CrossReference, kind types.RefKind, report *errors.Report) {
	seen := make(map[string]bool)
	var targets []string

	for _, ref := range refs {
		if ref.Kind != kind {
			continue
		}
		key := "raw:" + ref.Target
		if ref.Resolved > 0 {
			key = "chapter:" + strconv.Itoa(ref.Resolved)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		targets = append(targets, ref.Target)
	}

	if len(targets) < 2 {
		return
	}

	report.Errorf(errors.KindConflictingReference,
		errors.Issue{Chapters: []int{ch.Number}, Sources: []string{ch.SourceID}, Target: strings.Join(targets, ", ")},
		"chapter %d declares %d different %s chapters: %s",
		ch.Number, len(targets), kind, strings.Join(targets, ", "))
}

// resolveTarget matches a target as written against the collection: either
// a chapter number or a link resolved against the source chapter's
// permalink, with query and fragment dropped.
func resolveTarget(col *types.Collection, from types.Chapter, target string) (types.Chapter, bool) {
	target = strings.TrimSpace(target)

	if n, err := strconv.Atoi(target); err == nil {
		return col.ByNumber(n)
	}

	base := from.Permalink
	if from.DirectoryPage && base != "/" {
		base += "/"
	}
	permalink, ok := ResolvePath(base, target)
	if !ok {
		return types.Chapter{}, false
	}
	return col.ByPermalink(permalink)
}

// ResolvePath resolves a link destination relative to the page at base the
// way a browser does and returns it in normalized permalink form. Only a
// base ending in "/" is a directory: "b" from "/book/a" yields "/book/b",
// from "/book/a/" it yields "/book/a/b".
func ResolvePath(base, dest string) (string, bool) {
	ref, err := url.Parse(dest)
	if err != nil || ref.Path == "" {
		return "", false
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}

	resolved := baseURL.ResolveReference(&url.URL{Path: ref.Path})
	return loader.NormalizePermalink(resolved.Path), true
}
