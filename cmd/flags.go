package cmd

import (
	"fmt"
	"strings"

	"github.com/conneroisu/bindery/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// StandardFlags provides consistent flag definitions across commands
type StandardFlags struct {
	// Output flags
	OutputFormat string `flag:"format,f" desc:"Output format" default:""`
	Verbose      bool   `flag:"verbose,v" desc:"Enable verbose output" default:"false"`
	Quiet        bool   `flag:"quiet,q" desc:"Suppress output" default:"false"`

	// Validation flags
	Strict bool `flag:"strict" desc:"Treat warnings as errors" default:"false"`

	formats []string
}

// AddStandardFlags adds standard flags to a command. formats lists the
// output formats the command accepts, the first being its default.
func AddStandardFlags(cmd *cobra.Command, formats []string, flagTypes ...string) *StandardFlags {
	flags := &StandardFlags{formats: formats}

	for _, flagType := range flagTypes {
		switch flagType {
		case "output":
			addOutputFlags(cmd, flags)
		case "validation":
			addValidationFlags(cmd, flags)
		}
	}

	return flags
}

func addOutputFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "format", "f", "",
		fmt.Sprintf("Output format (%s; default from output.format)", strings.Join(flags.formats, "|")))
	cmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose output")
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress output on success")

	AddFlagValidation(cmd, "format", func(format string) error {
		return ValidateFormatWithSuggestion(format, flags.formats)
	})
}

func addValidationFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().BoolVar(&flags.Strict, "strict", false, "Treat navigation warnings as errors")
}

// ValidateFlags validates flag combinations and values
func (f *StandardFlags) ValidateFlags() error {
	if f.Quiet && f.Verbose {
		return fmt.Errorf("cannot specify both --quiet and --verbose")
	}
	return nil
}

// Apply copies explicitly set flags over the loaded configuration.
func (f *StandardFlags) Apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("strict") {
		cfg.Validation.Strict = f.Strict
	}
}

// Format resolves the output format: the flag wins, then output.format when
// the command supports it, then the command's default.
func (f *StandardFlags) Format(cfg *config.Config) string {
	if f.OutputFormat != "" {
		return strings.ToLower(f.OutputFormat)
	}
	if contains(f.formats, cfg.Output.Format) {
		return cfg.Output.Format
	}
	return f.formats[0]
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	// Store original value setter
	originalSet := flag.Value.Set

	// Create wrapper that validates
	flag.Value = &validatingValue{
		Value:       flag.Value,
		validator:   validator,
		originalSet: originalSet,
	}
}

type validatingValue struct {
	pflag.Value
	validator   func(string) error
	originalSet func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.originalSet(val)
}

// ValidateFormatWithSuggestion accepts an empty value or one of valid,
// case-insensitively. Otherwise the error names the closest valid format.
func ValidateFormatWithSuggestion(format string, valid []string) error {
	if format == "" {
		return nil
	}
	lower := strings.ToLower(format)
	if contains(valid, lower) {
		return nil
	}

	best, bestDist := "", len(lower)/2+1
	for _, candidate := range valid {
		if d := editDistance(lower, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}

	var hint string
	if best != "" {
		hint = fmt.Sprintf(" (did you mean %q?)", best)
	}
	return fmt.Errorf("invalid format %q, must be one of: %s%s", format, strings.Join(valid, ", "), hint)
}

func editDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
