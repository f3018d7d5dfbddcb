package cmd

import (
	stderrors "errors"
	"fmt"

	"github.com/conneroisu/bindery/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect bindery configuration",
	Long: `Inspect the configuration bindery resolves from .bindery.yml, the --config
flag, BINDERY_* environment variables and defaults.

Examples:
  bindery config show                      # Show resolved configuration
  bindery config validate                  # Validate current configuration
  bindery config validate --strict         # Treat warnings as errors
  bindery --config book.yml config show    # Show a specific file`,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the resolved configuration and report every error and warning.

This command checks for:
- Path traversal or shell characters in content.dir
- Invalid glob patterns and link extensions
- Value ranges for concurrency and debounce
- Listen addresses exposed beyond localhost
- Unknown output, log level and log format values`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show resolved configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configStrict bool

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	configValidateCmd.Flags().BoolVar(&configStrict, "strict", false, "Treat warnings as errors")
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	v, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFrom(v)
	if err != nil {
		var result *config.ValidationResult
		if stderrors.As(err, &result) {
			fmt.Fprint(out, result.String())
			return fmt.Errorf("configuration validation failed with %d errors", len(result.Errors))
		}
		return err
	}

	checked := config.Validate(cfg)
	if !checked.HasWarnings() {
		fmt.Fprintln(out, "✅ Configuration is valid!")
		return nil
	}

	fmt.Fprint(out, checked.String())
	if configStrict {
		return fmt.Errorf("configuration validation failed in strict mode with %d warnings",
			len(checked.Warnings))
	}

	fmt.Fprintf(out, "✅ Configuration is valid with %d warning(s).\n", len(checked.Warnings))
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	v, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFrom(v)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "# Resolved from all sources (file, env vars, defaults)")
	if used := v.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "# Config file: %s\n", used)
	}

	encoder := yaml.NewEncoder(out)
	defer encoder.Close()
	return encoder.Encode(cfg)
}
