package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestScanSelectsChapterFiles(t *testing.T) {
	root := testutils.WriteTree(t, map[string]string{
		"01-intro.md":              "---\ntitle: Intro\n---\n",
		"02-basic-types.md":        "two",
		"part-2/03-generics.md":    "three",
		"README.txt":               "not a chapter",
		".git/HEAD.md":             "hidden",
		"drafts/99-unfinished.md":  "draft",
		"part-2/.cache/cached.md":  "hidden dir",
		"part-2/notes/scratch.md":  "excluded by path",
		"part-2/notes/keep-out.md": "excluded by path",
	})

	s, err := New(root, Options{Exclude: []string{"drafts", "part-2/notes"}, Concurrency: 2}, nil)
	require.NoError(t, err)

	sources, err := s.Scan(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(sources))
	for i, src := range sources {
		ids[i] = src.ID
	}
	assert.Equal(t, []string{"01-intro.md", "02-basic-types.md", "part-2/03-generics.md"}, ids)
	assert.Equal(t, "---\ntitle: Intro\n---\n", string(sources[0].Raw))
}

func TestScanCustomInclude(t *testing.T) {
	root := testutils.WriteTree(t, map[string]string{
		"a.markdown": "a",
		"b.md":       "b",
	})

	s, err := New(root, Options{Include: []string{"*.markdown"}}, nil)
	require.NoError(t, err)

	files, err := s.Files(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.markdown"}, files)
}

func TestScanManyFiles(t *testing.T) {
	files := make(map[string]string)
	for i := 0; i < 64; i++ {
		files[filepath.ToSlash(filepath.Join("ch", string(rune('a'+i%26))+string(rune('a'+i/26))+".md"))] = "x"
	}
	root := testutils.WriteTree(t, files)

	s, err := New(root, Options{Concurrency: 4}, nil)
	require.NoError(t, err)

	sources, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, sources, 64)
}

func TestScanCancelled(t *testing.T) {
	root := testutils.WriteTree(t, map[string]string{"a.md": "a"})
	s, err := New(root, Options{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanMissingRoot(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "nope"), Options{}, nil)
	require.NoError(t, err)

	_, err = s.Scan(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestScanRootIsFile(t *testing.T) {
	root := testutils.WriteTree(t, map[string]string{"a.md": "a"})
	s, err := New(filepath.Join(root, "a.md"), Options{}, nil)
	require.NoError(t, err)

	_, err = s.Scan(context.Background())
	assert.True(t, errors.IsConfigError(err))
}

func TestInvalidPattern(t *testing.T) {
	_, err := New(t.TempDir(), Options{Exclude: []string{"[unclosed"}}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestRelAndMatches(t *testing.T) {
	root := t.TempDir()
	s, err := New(root, Options{Exclude: []string{"drafts"}}, nil)
	require.NoError(t, err)

	rel, err := s.Rel(filepath.Join(root, "part", "ch.md"))
	require.NoError(t, err)
	assert.Equal(t, "part/ch.md", rel)

	_, err = s.Rel(filepath.Join(root, "..", "elsewhere.md"))
	require.Error(t, err)

	assert.True(t, s.Matches("part/ch.md"))
	assert.False(t, s.Matches("drafts/ch.md"))
	assert.False(t, s.Matches(".hidden/ch.md"))
	assert.False(t, s.Matches("ch.txt"))
	assert.False(t, s.Matches("../ch.md"))
	assert.Equal(t, root, s.Root())
}
