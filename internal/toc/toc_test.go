package toc

import (
	"encoding/json"
	"testing"

	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func collection(permalinks ...string) *types.Collection {
	chapters := make([]types.Chapter, len(permalinks))
	for i, p := range permalinks {
		chapters[i] = types.Chapter{
			Number:    i + 1,
			Title:     "Chapter " + p,
			Permalink: p,
			SourceID:  p[1:] + ".md",
		}
	}
	return types.NewCollection(chapters)
}

func TestBuildComputesNavigation(t *testing.T) {
	toc, warnings := Build(collection("/a", "/b", "/c"), nil)
	require.False(t, warnings.HasErrors())
	assert.Empty(t, warnings.Issues)

	want := []Entry{
		{Number: 1, Title: "Chapter /a", Permalink: "/a", Next: "/b"},
		{Number: 2, Title: "Chapter /b", Permalink: "/b", Previous: "/a", Next: "/c"},
		{Number: 3, Title: "Chapter /c", Permalink: "/c", Previous: "/b"},
	}
	if diff := cmp.Diff(want, toc.Entries()); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}

	second, ok := toc.Entry(2)
	require.True(t, ok)
	assert.Equal(t, "/a", second.Previous)
	assert.Equal(t, "/c", second.Next)

	first, _ := toc.Entry(1)
	last, _ := toc.Entry(3)
	assert.False(t, first.HasPrevious())
	assert.False(t, last.HasNext())
}

func TestBuildSingleChapter(t *testing.T) {
	toc, _ := Build(collection("/only"), nil)
	require.Equal(t, 1, toc.Len())

	e, ok := toc.Entry(1)
	require.True(t, ok)
	assert.False(t, e.HasPrevious())
	assert.False(t, e.HasNext())
}

func TestEntriesAreCopies(t *testing.T) {
	toc, _ := Build(collection("/a", "/b"), nil)
	entries := toc.Entries()
	entries[0].Title = "changed"

	e, _ := toc.Entry(1)
	assert.Equal(t, "Chapter /a", e.Title)
}

func TestLookup(t *testing.T) {
	toc, _ := Build(collection("/a", "/b"), nil)

	e, ok := toc.Lookup("/b")
	require.True(t, ok)
	assert.Equal(t, 2, e.Number)

	_, ok = toc.Lookup("/missing")
	assert.False(t, ok)

	_, ok = toc.Entry(3)
	assert.False(t, ok)
}

func TestCrossCheck(t *testing.T) {
	col := collection("/a", "/b", "/c")

	tests := []struct {
		name    string
		refs    []types.CrossReference
		wantLen int
	}{
		{
			name: "matching navigation",
			refs: []types.CrossReference{
				{From: 1, Target: "/b", Kind: types.RefNext, Resolved: 2},
				{From: 2, Target: "/a", Kind: types.RefPrevious, Resolved: 1},
				{From: 2, Target: "/c", Kind: types.RefNext, Resolved: 3},
				{From: 3, Target: "/a", Kind: types.RefInline, Resolved: 1},
			},
		},
		{
			name: "next skips a chapter",
			refs: []types.CrossReference{
				{From: 1, Target: "/c", Kind: types.RefNext, Resolved: 3},
			},
			wantLen: 1,
		},
		{
			name: "previous from the first chapter",
			refs: []types.CrossReference{
				{From: 1, Target: "/c", Kind: types.RefPrevious, Resolved: 3},
			},
			wantLen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := CrossCheck(col, tt.refs)
			assert.False(t, report.HasErrors())
			require.Len(t, report.Warnings(), tt.wantLen)
			for _, w := range report.Warnings() {
				assert.Equal(t, errors.KindNavigationMismatch, w.Kind)
				assert.Equal(t, errors.StageBuild, w.Stage)
			}
		})
	}
}

func TestCrossCheckDoesNotChangeOrder(t *testing.T) {
	refs := []types.CrossReference{{From: 1, Target: "/c", Kind: types.RefNext, Resolved: 3}}
	toc, warnings := Build(collection("/a", "/b", "/c"), refs)

	assert.Len(t, warnings.Warnings(), 1)
	first, _ := toc.Entry(1)
	assert.Equal(t, "/b", first.Next)
}

func TestMarshal(t *testing.T) {
	toc, _ := Build(collection("/a", "/b"), nil)

	data, err := json.Marshal(toc)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"chapter_number": 1, "title": "Chapter /a", "permalink": "/a", "next": "/b"},
		{"chapter_number": 2, "title": "Chapter /b", "permalink": "/b", "previous": "/a"}
	]`, string(data))

	out, err := yaml.Marshal(toc)
	require.NoError(t, err)

	var decoded []Entry
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, toc.Entries(), decoded)
}
