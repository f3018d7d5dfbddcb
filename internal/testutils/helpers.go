// Package testutils holds fixtures shared by the bindery test suites.
package testutils

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteTree creates files under a fresh temporary directory and returns it.
// Keys are slash-separated paths relative to the root.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

// ChapterFile renders a chapter with a complete front-matter block titled
// "Chapter <number>".
func ChapterFile(number int, permalink, body string) string {
	return fmt.Sprintf("---\nlayout: chapter\ntitle: \"Chapter %d\"\nchapter_number: %d\npermalink: %s\n---\n%s",
		number, number, permalink, body)
}

// NavBook writes three chapters whose navigation links agree with their
// order: /a, /b and /c.
func NavBook(t *testing.T) string {
	t.Helper()
	return WriteTree(t, map[string]string{
		"01-intro.md":    ChapterFile(1, "/a", "[Next →](/b)\n"),
		"02-basics.md":   ChapterFile(2, "/b", "[← Previous](/a) | [Next →](/c)\n"),
		"03-advanced.md": ChapterFile(3, "/c", "[← Previous](/b)\n"),
	})
}

// SecurityTestCases are inputs every path or command check must reject.
var SecurityTestCases = struct {
	PathTraversal    []string
	CommandInjection []string
}{
	PathTraversal: []string{
		"../../../etc/passwd",
		"../../../../../etc/passwd",
		"book/../../secrets",
		"..",
	},
	CommandInjection: []string{
		"make site; rm -rf /",
		"make site && rm -rf /",
		"make site | rm -rf /",
		"make `rm -rf /`",
		"make $(rm -rf /)",
		"make site > /etc/passwd",
	},
}
