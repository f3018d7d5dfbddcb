// Package ordering certifies a chapter set: numbers must run 1..N without
// gaps or duplicates and permalinks must be unique.
package ordering

import (
	"sort"
	"strings"

	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/types"
)

// Validate sorts chapters by number, scans them once and reports every
// violation it finds. On success it returns the certified collection.
func Validate(chapters []types.Chapter) (*types.Collection, error) {
	report := errors.NewReport(errors.StageOrder)

	if len(chapters) == 0 {
		report.Errorf(errors.KindEmptyCollection, errors.Issue{}, "no chapters were supplied")
		return nil, report
	}

	sorted := make([]types.Chapter, len(chapters))
	copy(sorted, chapters)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Number != sorted[j].Number {
			return sorted[i].Number < sorted[j].Number
		}
		return sorted[i].SourceID < sorted[j].SourceID
	})

	checkNumbers(sorted, report)
	checkPermalinks(sorted, report)

	if report.HasErrors() {
		return nil, report
	}
	return types.NewCollection(sorted), nil
}

// checkNumbers walks adjacent pairs of the sorted slice. Runs of equal
// numbers become one DuplicateChapterNumber issue, and every number missing
// between 1 and the maximum is listed in a single NonContiguousSequence.
func checkNumbers(sorted []types.Chapter, report *errors.Report) {
	var missing []errors.Range
	expected := 1

	for i := 0; i < len(sorted); {
		n := sorted[i].Number
		j := i + 1
		for j < len(sorted) && sorted[j].Number == n {
			j++
		}

		if n < 1 {
			report.Errorf(errors.KindNonContiguousSequence,
				errors.Issue{Chapters: []int{n}, Sources: []string{sorted[i].SourceID}},
				"chapter number %d is outside the sequence starting at 1", n)
		}

		if j-i > 1 {
			sources := make([]string, 0, j-i)
			for _, ch := range sorted[i:j] {
				sources = append(sources, ch.SourceID)
			}
			report.Errorf(errors.KindDuplicateChapterNumber,
				errors.Issue{Chapters: []int{n}, Sources: sources},
				"chapter number %d is declared by %d documents: %s",
				n, len(sources), strings.Join(sources, ", "))
		}

		if expected < n {
			missing = append(missing, errors.Range{First: expected, Last: n - 1})
		}
		if n >= expected {
			expected = n + 1
		}
		i = j
	}

	if len(missing) > 0 {
		nums := make([]string, len(missing))
		for i, m := range missing {
			nums[i] = m.String()
		}
		report.Errorf(errors.KindNonContiguousSequence,
			errors.Issue{Missing: missing},
			"chapter numbers must run from 1 to %d without gaps; missing %s",
			sorted[len(sorted)-1].Number, strings.Join(nums, ", "))
	}
}

// checkPermalinks reports each permalink shared by more than one chapter,
// in order of its first appearance.
func checkPermalinks(sorted []types.Chapter, report *errors.Report) {
	owners := make(map[string][]types.Chapter)
	var order []string

	for _, ch := range sorted {
		if _, seen := owners[ch.Permalink]; !seen {
			order = append(order, ch.Permalink)
		}
		owners[ch.Permalink] = append(owners[ch.Permalink], ch)
	}

	for _, permalink := range order {
		chs := owners[permalink]
		if len(chs) < 2 {
			continue
		}
		issue := errors.Issue{Target: permalink}
		for _, ch := range chs {
			issue.Chapters = append(issue.Chapters, ch.Number)
			issue.Sources = append(issue.Sources, ch.SourceID)
		}
		report.Errorf(errors.KindDuplicatePermalink, issue,
			"permalink %q is declared by %d documents: %s",
			permalink, len(chs), strings.Join(issue.Sources, ", "))
	}
}
