package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityString(t *testing.T) {
	testCases := []struct {
		severity Severity
		expected string
	}{
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{Severity(999), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.severity.String())
		})
	}
}

func TestIssueError(t *testing.T) {
	issue := Issue{
		Kind:     KindDuplicateChapterNumber,
		Severity: SeverityError,
		Chapters: []int{2},
		Sources:  []string{"b.md", "c.md"},
		Message:  "chapter number 2 is declared 2 times",
	}

	msg := issue.Error()
	assert.Contains(t, msg, "[DuplicateChapterNumber]")
	assert.Contains(t, msg, "chapter:2")
	assert.Contains(t, msg, "b.md,c.md")
	assert.Contains(t, msg, "declared 2 times")
}

func TestRangeString(t *testing.T) {
	assert.Equal(t, "3", Range{First: 3, Last: 3}.String())
	assert.Equal(t, "4-7", Range{First: 4, Last: 7}.String())
	assert.Equal(t, 4, Range{First: 4, Last: 7}.Len())
}

func TestReportAccumulates(t *testing.T) {
	r := NewReport(StageOrder)
	assert.False(t, r.HasErrors())
	assert.Equal(t, "no validation errors", r.Error())

	r.Errorf(KindNonContiguousSequence, Issue{Missing: []Range{{First: 3, Last: 3}}}, "missing chapter %d", 3)
	r.Warnf(KindNavigationMismatch, Issue{Chapters: []int{1}}, "mismatch")

	require.True(t, r.HasErrors())
	assert.Len(t, r.Errors(), 1)
	assert.Len(t, r.Warnings(), 1)
	assert.Equal(t, StageOrder, r.Issues[0].Stage)
	assert.Contains(t, r.Error(), "missing chapter 3")

	r.Errorf(KindEmptyCollection, Issue{}, "empty")
	assert.Equal(t, "order stage failed with 2 errors", r.Error())
	assert.Equal(t,
		[]Kind{KindEmptyCollection, KindNavigationMismatch, KindNonContiguousSequence},
		r.Kinds())
	assert.Len(t, r.ByKind(KindEmptyCollection), 1)
}

func TestReportMergeKeepsStages(t *testing.T) {
	load := NewReport(StageLoad)
	load.Errorf(KindMissingField, Issue{Field: "title"}, "title is missing")

	all := NewReport(StageResolve)
	all.Merge(load)
	all.Merge(nil)

	require.Len(t, all.Issues, 1)
	assert.Equal(t, StageLoad, all.Issues[0].Stage)
}

func TestReportPromote(t *testing.T) {
	r := NewReport(StageBuild)
	r.Warnf(KindNavigationMismatch, Issue{}, "declared next differs")
	assert.False(t, r.HasErrors())

	promoted := r.Promote()
	assert.True(t, promoted.HasErrors())
	assert.False(t, r.HasErrors(), "promote must not mutate the original")
}

func TestReportAsError(t *testing.T) {
	r := NewReport(StageLoad)
	r.Errorf(KindMalformedMetadata, Issue{Sources: []string{"x.md"}}, "bad")

	wrapped := fmt.Errorf("pipeline: %w", r)
	got, ok := AsReport(wrapped)
	require.True(t, ok)
	assert.Same(t, r, got)

	_, ok = AsReport(errors.New("plain"))
	assert.False(t, ok)
}

func TestReportJSON(t *testing.T) {
	r := NewReport(StageResolve)
	r.Errorf(KindDanglingReference, Issue{Chapters: []int{1}, Target: "/nonexistent"}, "unresolved")

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"severity":"error"`)
	assert.Contains(t, string(data), `"kind":"DanglingReference"`)
	assert.Contains(t, string(data), `"target":"/nonexistent"`)
}

func TestBookError(t *testing.T) {
	cause := errors.New("permission denied")
	err := WrapIO(cause, ErrCodeReadFailed, "cannot read chapter").WithFile("ch1.md")

	assert.Contains(t, err.Error(), "[ERR_READ_FAILED]")
	assert.Contains(t, err.Error(), "ch1.md")
	assert.Contains(t, err.Error(), "permission denied")
	assert.ErrorIs(t, err, cause)
	assert.True(t, errors.Is(err, &BookError{Type: ErrorTypeIO, Code: ErrCodeReadFailed}))
	assert.False(t, IsConfigError(err))

	rewrapped := WrapConfig(err, ErrCodeConfigInvalid, "bad content dir")
	assert.Equal(t, "ch1.md", rewrapped.FilePath)
	assert.True(t, IsConfigError(rewrapped))

	assert.Nil(t, Wrap(nil, ErrorTypeIO, "x", "y"))
}
