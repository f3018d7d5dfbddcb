package cmd

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/toc"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var tocCmd = &cobra.Command{
	Use:     "toc [dir]",
	Aliases: []string{"t"},
	Short:   "Print the table of contents",
	Long: `Build the book under dir (default: content.dir) and print its table of
contents: one entry per chapter in order, with the previous and next
permalinks a renderer should link.

If the build halts the report is printed to stderr and no table of contents
is written.

Examples:
  bindery toc                     # Table format
  bindery toc book -f json        # Output as JSON
  bindery toc --format csv        # Output as CSV
  bindery toc -f yaml --strict    # YAML, failing on warnings
  bindery toc --check toc.yml     # Fail with a diff if toc.yml is stale`,
	Args: cobra.MaximumNArgs(1),
	RunE: runToc,
}

var (
	tocFlags *StandardFlags
	tocCheck string
)

func init() {
	rootCmd.AddCommand(tocCmd)

	tocFlags = AddStandardFlags(tocCmd, []string{"table", "json", "yaml", "csv"}, "output", "validation")
	tocCmd.Flags().StringVar(&tocCheck, "check", "", "compare against a committed file instead of printing; format follows its extension")
}

// StaleTocError reports a committed table of contents that no longer
// matches the book.
type StaleTocError struct {
	File string
}

func (e *StaleTocError) Error() string {
	return fmt.Sprintf("table of contents in %s is out of date", e.File)
}

func runToc(cmd *cobra.Command, args []string) error {
	if err := tocFlags.ValidateFlags(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	env, err := loadEnvironment(cmd, args)
	if err != nil {
		return err
	}
	defer env.Close()
	tocFlags.Apply(cmd, env.cfg)

	b, err := newBook(env.cfg, env.logger)
	if err != nil {
		return err
	}

	res, buildErr := b.build(cmd.Context())
	if buildErr != nil {
		summary, err := summarize(b.scanner.Root(), nil, buildErr)
		if err != nil {
			return err
		}
		if err := outputValidationText(cmd.ErrOrStderr(), summary, nil, false, false); err != nil {
			return err
		}
		return &ValidationFailedError{State: summary.State, Errors: summary.Errors}
	}

	format := tocFlags.Format(env.cfg)
	if tocCheck != "" && !cmd.Flags().Changed("format") {
		if f, ok := formatForFile(tocCheck); ok {
			format = f
		}
	}

	var rendered bytes.Buffer
	if err := renderToc(&rendered, format, res.TOC); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if tocCheck == "" {
		_, err := out.Write(rendered.Bytes())
		return err
	}
	return checkToc(out, tocCheck, rendered.Bytes())
}

func renderToc(w io.Writer, format string, table *toc.TableOfContents) error {
	switch format {
	case "json":
		return outputTocJSON(w, table)
	case "yaml":
		return outputTocYAML(w, table)
	case "csv":
		return outputTocCSV(w, table)
	default:
		return outputTocTable(w, table)
	}
}

func formatForFile(name string) (string, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "json", true
	case ".yaml", ".yml":
		return "yaml", true
	case ".csv":
		return "csv", true
	}
	return "", false
}

// checkToc compares the committed file with the generated table and prints
// a unified diff when they differ.
func checkToc(w io.Writer, file string, generated []byte) error {
	committed, err := os.ReadFile(file)
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeFileNotFound, "reading committed table of contents").WithFile(file)
	}

	if bytes.Equal(committed, generated) {
		fmt.Fprintf(w, "✓ %s is up to date\n", file)
		return nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(committed)),
		B:        difflib.SplitLines(string(generated)),
		FromFile: file,
		ToFile:   "generated",
		Context:  3,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, errors.ErrCodeInternalError, "diffing table of contents")
	}
	fmt.Fprint(w, diff)
	return &StaleTocError{File: file}
}

func outputTocJSON(w io.Writer, table *toc.TableOfContents) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(table)
}

func outputTocYAML(w io.Writer, table *toc.TableOfContents) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	return encoder.Encode(table)
}

func outputTocTable(w io.Writer, table *toc.TableOfContents) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "NUMBER\tTITLE\tPERMALINK\tPREVIOUS\tNEXT")
	fmt.Fprintln(tw, strings.Join([]string{
		strings.Repeat("-", 6),
		strings.Repeat("-", 5),
		strings.Repeat("-", 9),
		strings.Repeat("-", 8),
		strings.Repeat("-", 4),
	}, "\t"))

	for _, e := range table.Entries() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			e.Number, e.Title, e.Permalink, orDash(e.Previous), orDash(e.Next))
	}

	fmt.Fprintf(tw, "\nTotal: %d chapters\n", table.Len())
	return tw.Flush()
}

func outputTocCSV(w io.Writer, table *toc.TableOfContents) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"chapter_number", "title", "permalink", "previous", "next"}); err != nil {
		return err
	}

	for _, e := range table.Entries() {
		record := []string{strconv.Itoa(e.Number), e.Title, e.Permalink, e.Previous, e.Next}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
