package errors

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind names one class of validation problem.
type Kind string

const (
	KindMalformedMetadata      Kind = "MalformedMetadata"
	KindMissingField           Kind = "MissingField"
	KindDuplicateChapterNumber Kind = "DuplicateChapterNumber"
	KindDuplicatePermalink     Kind = "DuplicatePermalink"
	KindNonContiguousSequence  Kind = "NonContiguousSequence"
	KindEmptyCollection        Kind = "EmptyCollection"
	KindDanglingReference      Kind = "DanglingReference"
	KindConflictingReference   Kind = "ConflictingReference"
	KindNavigationMismatch     Kind = "NavigationMismatch"
)

// Severity represents the severity of an issue.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText lets severities render as words in JSON and YAML reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Stage names the pipeline stage that raised an issue.
type Stage string

const (
	StageLoad    Stage = "load"
	StageOrder   Stage = "order"
	StageResolve Stage = "resolve"
	StageBuild   Stage = "build"
)

// Issue is one entry of a validation report. It carries enough context for
// a caller to print a complete diagnostic without re-running validation.
type Issue struct {
	Kind     Kind     `json:"kind" yaml:"kind"`
	Severity Severity `json:"severity" yaml:"severity"`
	Stage    Stage    `json:"stage" yaml:"stage"`
	Chapters []int    `json:"chapters,omitempty" yaml:"chapters,omitempty"`
	Sources  []string `json:"sources,omitempty" yaml:"sources,omitempty"`
	Field    string   `json:"field,omitempty" yaml:"field,omitempty"`
	Target   string   `json:"target,omitempty" yaml:"target,omitempty"`
	Missing  []Range  `json:"missing,omitempty" yaml:"missing,omitempty"`
	Message  string   `json:"message" yaml:"message"`
}

// Range is an inclusive run of chapter numbers.
type Range struct {
	First int `json:"first" yaml:"first"`
	Last  int `json:"last" yaml:"last"`
}

// Len returns how many numbers the range covers.
func (r Range) Len() int {
	return r.Last - r.First + 1
}

func (r Range) String() string {
	if r.First == r.Last {
		return strconv.Itoa(r.First)
	}
	return strconv.Itoa(r.First) + "-" + strconv.Itoa(r.Last)
}

// Error implements the error interface.
func (i Issue) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", i.Kind))

	if len(i.Chapters) > 0 {
		nums := make([]string, len(i.Chapters))
		for n, c := range i.Chapters {
			nums[n] = strconv.Itoa(c)
		}
		parts = append(parts, "chapter:"+strings.Join(nums, ","))
	}

	if len(i.Sources) > 0 {
		parts = append(parts, strings.Join(i.Sources, ","))
	}

	parts = append(parts, i.Message)

	return strings.Join(parts, " ")
}

// Report is the ordered list of issues produced by one pipeline run.
// A Report with at least one error-severity issue is itself an error.
type Report struct {
	Stage  Stage   `json:"stage,omitempty" yaml:"stage,omitempty"`
	Issues []Issue `json:"issues" yaml:"issues"`
}

// NewReport creates an empty report for a stage.
func NewReport(stage Stage) *Report {
	return &Report{Stage: stage, Issues: make([]Issue, 0)}
}

// Error implements the error interface.
func (r *Report) Error() string {
	errs := r.Errors()
	switch len(errs) {
	case 0:
		return "no validation errors"
	case 1:
		return errs[0].Error()
	default:
		return fmt.Sprintf("%s stage failed with %d errors", r.Stage, len(errs))
	}
}

// Add appends an issue, defaulting its stage to the report's stage.
func (r *Report) Add(issue Issue) {
	if issue.Stage == "" {
		issue.Stage = r.Stage
	}
	r.Issues = append(r.Issues, issue)
}

// Errorf appends an error-severity issue.
func (r *Report) Errorf(kind Kind, issue Issue, format string, args ...any) {
	issue.Kind = kind
	issue.Severity = SeverityError
	issue.Message = fmt.Sprintf(format, args...)
	r.Add(issue)
}

// Warnf appends a warning-severity issue.
func (r *Report) Warnf(kind Kind, issue Issue, format string, args ...any) {
	issue.Kind = kind
	issue.Severity = SeverityWarning
	issue.Message = fmt.Sprintf(format, args...)
	r.Add(issue)
}

// Merge appends every issue of other, keeping their stages.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Issues = append(r.Issues, other.Issues...)
}

// HasErrors reports whether any issue is an error.
func (r *Report) HasErrors() bool {
	if r == nil {
		return false
	}
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns the error-severity issues.
func (r *Report) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns the warning-severity issues.
func (r *Report) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

// ByKind returns the issues of one kind.
func (r *Report) ByKind(kind Kind) []Issue {
	if r == nil {
		return nil
	}
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Kind == kind {
			out = append(out, issue)
		}
	}
	return out
}

// Kinds returns the distinct kinds present, sorted.
func (r *Report) Kinds() []Kind {
	if r == nil {
		return nil
	}
	seen := make(map[Kind]bool)
	var kinds []Kind
	for _, issue := range r.Issues {
		if !seen[issue.Kind] {
			seen[issue.Kind] = true
			kinds = append(kinds, issue.Kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Promote returns a copy of the report with every warning raised to an error.
func (r *Report) Promote() *Report {
	out := &Report{Stage: r.Stage, Issues: make([]Issue, len(r.Issues))}
	for i, issue := range r.Issues {
		issue.Severity = SeverityError
		out.Issues[i] = issue
	}
	return out
}

func (r *Report) filter(sev Severity) []Issue {
	if r == nil {
		return nil
	}
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}
