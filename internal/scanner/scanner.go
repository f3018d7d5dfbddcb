// Package scanner reads chapter sources from a content directory.
//
// The scanner walks the content root, selects files matching the include
// globs (default *.md) and not matching any exclude pattern, and reads them
// concurrently with a bounded errgroup. Source ids are slash-separated paths
// relative to the root so the build never depends on where the book lives.
// Output order is sorted by id but carries no meaning: chapter order comes
// only from front-matter.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/loader"
	"github.com/conneroisu/bindery/internal/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultInclude selects Markdown chapter files.
var DefaultInclude = []string{"*.md"}

// maxFileSize bounds a single chapter read.
const maxFileSize = 8 << 20

// Options configures a Scanner.
type Options struct {
	// Include holds globs matched against file base names.
	Include []string
	// Exclude holds globs matched against the relative path and every
	// path element, so "drafts" skips a whole directory.
	Exclude []string
	// Concurrency bounds parallel reads; zero picks a CPU-based default.
	Concurrency int
}

// Scanner discovers and reads chapter sources under a root directory.
type Scanner struct {
	root   string
	opts   Options
	logger logging.Logger
}

// New creates a scanner for root. A nil logger discards output.
func New(root string, opts Options, logger logging.Logger) (*Scanner, error) {
	if len(opts.Include) == 0 {
		opts.Include = DefaultInclude
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
		if opts.Concurrency > 8 {
			opts.Concurrency = 8
		}
	}
	for _, pattern := range append(append([]string{}, opts.Include...), opts.Exclude...) {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("invalid glob pattern %q", pattern)).WithContext("pattern", pattern)
		}
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	abs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "resolving content directory").WithFile(root)
	}

	return &Scanner{root: abs, opts: opts, logger: logger.WithComponent("scanner")}, nil
}

// Root returns the absolute content root.
func (s *Scanner) Root() string {
	return s.root
}

// Scan reads every matching file under the root. It fails on the first read
// error; cancelling ctx stops outstanding reads.
func (s *Scanner) Scan(ctx context.Context) ([]loader.Source, error) {
	files, err := s.Files(ctx)
	if err != nil {
		return nil, err
	}

	sources := make([]loader.Source, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for i, rel := range files {
		i, rel := i, rel
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := s.read(rel)
			if err != nil {
				return err
			}
			sources[i] = loader.Source{ID: rel, Raw: raw}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "Scanned content directory", "root", s.root, "files", len(sources))
	return sources, nil
}

// Files lists the relative ids of every matching file, sorted.
func (s *Scanner) Files(ctx context.Context) ([]string, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "content directory is not readable").WithFile(s.root)
	}
	if !info.IsDir() {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "content path is not a directory").WithFile(s.root)
	}

	var files []string
	err = filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := s.Rel(p)
		if relErr != nil {
			return nil
		}

		if d.IsDir() {
			if rel != "." && (isHidden(d.Name()) || s.excluded(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if s.Matches(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.WrapIO(err, errors.ErrCodeReadFailed, "walking content directory").WithFile(s.root)
	}

	sort.Strings(files)
	return files, nil
}

// Rel converts a path under the root to its slash-separated source id. It
// rejects paths that escape the root.
func (s *Scanner) Rel(p string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.NewConfigError(errors.ErrCodePathTraversal,
			fmt.Sprintf("path %s is outside the content directory", p)).WithFile(p)
	}
	return filepath.ToSlash(rel), nil
}

// Matches reports whether a relative id is a chapter source: its base name
// matches an include glob, it sits in no hidden directory, and no exclude
// pattern matches it.
func (s *Scanner) Matches(rel string) bool {
	rel = path.Clean(filepath.ToSlash(rel))
	if rel == "." || strings.HasPrefix(rel, "../") {
		return false
	}

	parts := strings.Split(rel, "/")
	for _, part := range parts {
		if isHidden(part) {
			return false
		}
	}
	if s.excluded(rel) {
		return false
	}

	base := parts[len(parts)-1]
	for _, pattern := range s.opts.Include {
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

func (s *Scanner) excluded(rel string) bool {
	for _, pattern := range s.opts.Exclude {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		for _, part := range strings.Split(rel, "/") {
			if ok, _ := path.Match(pattern, part); ok {
				return true
			}
		}
	}
	return false
}

func (s *Scanner) read(rel string) ([]byte, error) {
	full := filepath.Join(s.root, filepath.FromSlash(rel))

	info, err := os.Stat(full)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "reading chapter source").WithFile(rel)
	}
	if info.Size() > maxFileSize {
		return nil, errors.WrapIO(fmt.Errorf("file is %d bytes, limit is %d", info.Size(), maxFileSize),
			errors.ErrCodeReadFailed, "chapter source is too large").WithFile(rel)
	}

	raw, err := os.ReadFile(full)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeReadFailed, "reading chapter source").WithFile(rel)
	}
	return raw, nil
}

func isHidden(name string) bool {
	return len(name) > 1 && strings.HasPrefix(name, ".") && name != ".."
}
