// Package pipeline runs the four build stages in order:
// Loaded -> Ordered -> Resolved -> Built.
//
// Each stage consumes the immutable output of the previous one. A stage that
// reports any error halts the run at the state reached so far; no partial
// table of contents is ever returned.
package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/loader"
	"github.com/conneroisu/bindery/internal/ordering"
	"github.com/conneroisu/bindery/internal/toc"
	"github.com/conneroisu/bindery/internal/types"
	"github.com/conneroisu/bindery/internal/xref"
)

// State is the furthest stage a run has completed.
type State int

const (
	StatePending State = iota
	StateLoaded
	StateOrdered
	StateResolved
	StateBuilt
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateLoaded:
		return "loaded"
	case StateOrdered:
		return "ordered"
	case StateResolved:
		return "resolved"
	case StateBuilt:
		return "built"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON and YAML output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// HaltError is returned when a stage reports errors. It unwraps to the
// stage's *errors.Report.
type HaltError struct {
	State  State
	Report *errors.Report
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("build halted at %s: %v", e.State, e.Report)
}

func (e *HaltError) Unwrap() error {
	return e.Report
}

// Result is the output of a successful run. Warnings holds non-fatal
// findings such as NavigationMismatch.
type Result struct {
	State      State                  `json:"state" yaml:"state"`
	TOC        *toc.TableOfContents   `json:"toc" yaml:"toc"`
	Collection *types.Collection      `json:"-" yaml:"-"`
	References []types.CrossReference `json:"references" yaml:"references"`
	Warnings   *errors.Report         `json:"warnings" yaml:"warnings"`
}

// Pipeline holds the stage implementations. It keeps no per-run state and
// is safe for concurrent use.
type Pipeline struct {
	loader   *loader.Loader
	resolver *xref.Resolver
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithInternalExtensions sets the link extensions treated as chapter pages.
func WithInternalExtensions(exts []string) Option {
	return func(p *Pipeline) {
		p.resolver = xref.New(xref.WithInternalExtensions(exts))
	}
}

// New creates a pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		loader:   loader.New(),
		resolver: xref.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunSources parses raw sources and runs the build.
func (p *Pipeline) RunSources(ctx context.Context, sources []loader.Source) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chapters, err := p.loader.LoadSources(sources)
	if err != nil {
		return nil, halt(StatePending, err)
	}
	return p.fromChapters(ctx, chapters)
}

// Run loads documents and runs the build.
func (p *Pipeline) Run(ctx context.Context, docs []types.Document) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chapters, err := p.loader.Load(docs)
	if err != nil {
		return nil, halt(StatePending, err)
	}
	return p.fromChapters(ctx, chapters)
}

func (p *Pipeline) fromChapters(ctx context.Context, chapters []types.Chapter) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	col, err := ordering.Validate(chapters)
	if err != nil {
		return nil, halt(StateLoaded, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	refs, err := p.resolver.Resolve(col)
	if err != nil {
		return nil, halt(StateOrdered, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, warnings := toc.Build(col, refs)

	return &Result{
		State:      StateBuilt,
		TOC:        table,
		Collection: col,
		References: refs,
		Warnings:   warnings,
	}, nil
}

func halt(state State, err error) error {
	report, ok := errors.AsReport(err)
	if !ok {
		return err
	}
	return &HaltError{State: state, Report: report}
}

// Halted returns the state a failed run stopped at.
func Halted(err error) (State, bool) {
	var h *HaltError
	if stderrors.As(err, &h) {
		return h.State, true
	}
	return 0, false
}

// Enforce applies strict mode to the outcome of a run: any warning fails
// the build at the resolved state and the table of contents is withheld.
func Enforce(res *Result, err error, strict bool) (*Result, error) {
	if err != nil || !strict || res == nil || len(res.Warnings.Issues) == 0 {
		return res, err
	}
	return nil, &HaltError{State: StateResolved, Report: res.Warnings.Promote()}
}
