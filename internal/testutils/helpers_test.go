package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTree(t *testing.T) {
	root := WriteTree(t, map[string]string{
		"01.md":        "one",
		"part-2/02.md": "two",
	})

	data, err := os.ReadFile(filepath.Join(root, "part-2", "02.md"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestChapterFile(t *testing.T) {
	got := ChapterFile(3, "/generics", "body\n")
	assert.Equal(t,
		"---\nlayout: chapter\ntitle: \"Chapter 3\"\nchapter_number: 3\npermalink: /generics\n---\nbody\n",
		got)
}

func TestNavBook(t *testing.T) {
	root := NavBook(t)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
