package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/pipeline"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// validateCmd represents the validate command.
var validateCmd = &cobra.Command{
	Use:     "validate [dir]",
	Aliases: []string{"v"},
	Short:   "Validate chapter ordering and cross-references",
	Long: `Validate the chapters under dir (default: content.dir) for:

- Malformed or incomplete front matter
- Duplicate chapter numbers or permalinks
- Gaps in the chapter sequence
- Previous/next links that point nowhere or disagree

Every problem is reported in one run. The command exits non-zero when the
build halts, and with --strict also when navigation warnings remain.

Examples:
  bindery validate                  # Validate content.dir
  bindery validate book             # Validate ./book
  bindery validate --strict         # Fail on warnings too
  bindery validate -f json          # Output the report as JSON`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidateCommand,
}

var validateFlags *StandardFlags

func init() {
	rootCmd.AddCommand(validateCmd)

	validateFlags = AddStandardFlags(validateCmd, []string{"text", "json", "yaml"}, "output", "validation")
}

// ValidationSummary is the machine-readable outcome of validate.
type ValidationSummary struct {
	Status     string         `json:"status" yaml:"status"`
	State      pipeline.State `json:"state" yaml:"state"`
	Root       string         `json:"root" yaml:"root"`
	Chapters   int            `json:"chapters" yaml:"chapters"`
	References int            `json:"references" yaml:"references"`
	Errors     int            `json:"errors" yaml:"errors"`
	Warnings   int            `json:"warnings" yaml:"warnings"`
	Issues     []errors.Issue `json:"issues" yaml:"issues"`
}

// ValidationFailedError reports a halted build after its report was printed.
type ValidationFailedError struct {
	State  pipeline.State
	Errors int
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("validation failed at %s: %d error(s)", e.State, e.Errors)
}

func runValidateCommand(cmd *cobra.Command, args []string) error {
	if err := validateFlags.ValidateFlags(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	env, err := loadEnvironment(cmd, args)
	if err != nil {
		return err
	}
	defer env.Close()
	validateFlags.Apply(cmd, env.cfg)

	b, err := newBook(env.cfg, env.logger)
	if err != nil {
		return err
	}

	res, buildErr := b.build(cmd.Context())
	summary, err := summarize(b.scanner.Root(), res, buildErr)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch validateFlags.Format(env.cfg) {
	case "json":
		err = outputValidationJSON(out, summary)
	case "yaml":
		err = outputValidationYAML(out, summary)
	default:
		err = outputValidationText(out, summary, res, validateFlags.Verbose, validateFlags.Quiet)
	}
	if err != nil {
		return err
	}

	if buildErr != nil {
		return &ValidationFailedError{State: summary.State, Errors: summary.Errors}
	}
	return nil
}

// summarize turns a build outcome into a summary. Errors other than a halted
// build are returned unchanged.
func summarize(root string, res *pipeline.Result, err error) (*ValidationSummary, error) {
	summary := &ValidationSummary{Root: root, Issues: []errors.Issue{}}

	if err != nil {
		state, halted := pipeline.Halted(err)
		if !halted {
			return nil, err
		}
		report, _ := errors.AsReport(err)
		summary.Status = "failed"
		summary.State = state
		summary.Issues = report.Issues
		summary.Errors = len(report.Errors())
		summary.Warnings = len(report.Warnings())
		return summary, nil
	}

	summary.Status = "ok"
	summary.State = res.State
	summary.Chapters = res.Collection.Len()
	summary.References = len(res.References)
	summary.Issues = res.Warnings.Issues
	summary.Warnings = len(res.Warnings.Warnings())
	return summary, nil
}

func outputValidationText(w io.Writer, summary *ValidationSummary, res *pipeline.Result, verbose, quiet bool) error {
	for _, issue := range summary.Issues {
		marker := "!"
		if issue.Severity == errors.SeverityError {
			marker = "✗"
		}
		fmt.Fprintf(w, "%s %s %s\n", marker, issue.Severity, issue.Error())
	}

	if summary.Status != "ok" {
		fmt.Fprintf(w, "✗ Build halted at %s: %d error(s), %d warning(s)\n",
			summary.State, summary.Errors, summary.Warnings)
		return nil
	}

	if quiet && summary.Warnings == 0 {
		return nil
	}

	if verbose {
		for _, ref := range res.References {
			fmt.Fprintf(w, "  chapter %d %s -> %s (chapter %d, line %d)\n",
				ref.From, ref.Kind, ref.Target, ref.Resolved, ref.Line)
		}
	}

	fmt.Fprintf(w, "✓ %d chapters, %d cross-references, %d warning(s)\n",
		summary.Chapters, summary.References, summary.Warnings)
	return nil
}

func outputValidationJSON(w io.Writer, summary *ValidationSummary) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}

func outputValidationYAML(w io.Writer, summary *ValidationSummary) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	return encoder.Encode(summary)
}
