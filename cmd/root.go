package cmd

import (
	stderrors "errors"
	"io"
	"os"

	"github.com/conneroisu/bindery/internal/config"
	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bindery",
	Short: "Validate chapter ordering and cross-references of a Markdown book",
	Long: `Bindery checks that the chapters of a Markdown book form a contiguous,
uniquely numbered sequence and that every previous/next link points at a real
chapter, then builds the table of contents.

Quick Start:
  bindery validate book           Check the book in ./book
  bindery toc book                Print the table of contents
  bindery watch book              Rebuild on every change

Configuration is read from .bindery.yml, the --config flag or the
BINDERY_CONFIG_FILE environment variable, and every key can be overridden
with BINDERY_<SECTION>_<KEY> (for example BINDERY_VALIDATION_STRICT=true).`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .bindery.yml, can also use BINDERY_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
}

// environment is the configuration and logger shared by one command run.
type environment struct {
	cfg     *config.Config
	logger  logging.Logger
	closers []io.Closer
}

// loadSettings builds the viper instance for a command run: defaults,
// BINDERY_* environment overrides, bound flags and the config file.
//
// Configuration file priority (highest to lowest):
//  1. --config flag
//  2. BINDERY_CONFIG_FILE environment variable
//  3. .bindery.yml in the current directory
func loadSettings(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	config.Configure(v)
	_ = v.BindPFlag("log.level", cmd.Flags().Lookup("log-level"))
	_ = v.BindPFlag("log.format", cmd.Flags().Lookup("log-format"))

	explicit := cfgFile
	if explicit == "" {
		explicit = os.Getenv(config.EnvPrefix + "_CONFIG_FILE")
	}

	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "reading config file").WithFile(explicit)
		}
		return v, nil
	}

	v.AddConfigPath(".")
	v.SetConfigType("yaml")
	v.SetConfigName(".bindery")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "reading .bindery.yml")
		}
	}
	return v, nil
}

// loadEnvironment resolves configuration and logging for a command. The
// first positional argument, when present, replaces content.dir.
func loadEnvironment(cmd *cobra.Command, args []string) (*environment, error) {
	v, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadFrom(v)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Content.Dir = args[0]
	}

	env := &environment{cfg: cfg}
	if err := env.initLogger(cmd.ErrOrStderr()); err != nil {
		return nil, err
	}
	if used := v.ConfigFileUsed(); used != "" {
		env.logger.Debug(cmd.Context(), "Using config file", "path", used)
	}

	return env, nil
}

func (e *environment) initLogger(stderr io.Writer) error {
	level, err := logging.ParseLevel(e.cfg.Log.Level)
	if err != nil {
		return errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "invalid log level")
	}

	logCfg := &logging.LoggerConfig{
		Level:  level,
		Format: e.cfg.Log.Format,
		Output: stderr,
	}
	console := logging.NewLogger(logCfg)

	if e.cfg.Log.Dir == "" {
		e.logger = console
		return nil
	}

	file, err := logging.NewFileLogger(logCfg, e.cfg.Log.Dir)
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeReadFailed, "opening log file").WithFile(e.cfg.Log.Dir)
	}
	e.closers = append(e.closers, file)
	e.logger = logging.NewMultiLogger(console, file)
	return nil
}

// Close releases log files opened for the run.
func (e *environment) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c.Close())
	}
	return stderrors.Join(errs...)
}
