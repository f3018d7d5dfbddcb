// Package config provides configuration management for bindery using Viper
// for loading from files, environment variables and command-line flags.
//
// Configuration lives in .bindery.yml (or the file named by --config or
// BINDERY_CONFIG_FILE). Every key can be overridden from the environment
// with the BINDERY_ prefix, e.g. BINDERY_CONTENT_DIR or
// BINDERY_VALIDATION_STRICT=true.
package config

import (
	"strings"
	"time"

	"github.com/conneroisu/bindery/internal/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix for every key.
const EnvPrefix = "BINDERY"

type Config struct {
	Content    ContentConfig    `mapstructure:"content" yaml:"content"`
	Links      LinksConfig      `mapstructure:"links" yaml:"links"`
	Validation ValidationConfig `mapstructure:"validation" yaml:"validation"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output"`
	Watch      WatchConfig      `mapstructure:"watch" yaml:"watch"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

// ContentConfig selects the chapter sources.
type ContentConfig struct {
	Dir         string   `mapstructure:"dir" yaml:"dir"`
	Include     []string `mapstructure:"include" yaml:"include"`
	Exclude     []string `mapstructure:"exclude" yaml:"exclude"`
	Concurrency int      `mapstructure:"concurrency" yaml:"concurrency"`
}

// LinksConfig tunes cross-reference extraction.
type LinksConfig struct {
	InternalExtensions []string `mapstructure:"internal_extensions" yaml:"internal_extensions"`
}

type ValidationConfig struct {
	Strict bool `mapstructure:"strict" yaml:"strict"`
}

type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Listen   string        `mapstructure:"listen" yaml:"listen"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Dir    string `mapstructure:"dir" yaml:"dir"`
}

// SetDefaults registers every key with its default so that environment
// overrides are visible to Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("content.dir", ".")
	v.SetDefault("content.include", []string{"*.md"})
	v.SetDefault("content.exclude", []string{"README.md", "_site", "node_modules", "vendor"})
	v.SetDefault("content.concurrency", 0)
	v.SetDefault("links.internal_extensions", []string{".html", ".htm"})
	v.SetDefault("validation.strict", false)
	v.SetDefault("output.format", "text")
	v.SetDefault("watch.debounce", 300*time.Millisecond)
	v.SetDefault("watch.listen", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.dir", "")
}

// Configure wires the environment binding used by every bindery command.
func Configure(v *viper.Viper) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom decodes and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "decoding configuration")
	}

	// Comma-separated env values arrive as one string for slice keys.
	config.Content.Include = splitList(config.Content.Include)
	config.Content.Exclude = splitList(config.Content.Exclude)
	config.Links.InternalExtensions = normalizeExtensions(splitList(config.Links.InternalExtensions))
	config.Output.Format = strings.ToLower(strings.TrimSpace(config.Output.Format))

	if result := Validate(&config); result.HasErrors() {
		return nil, errors.WrapConfig(result, errors.ErrCodeConfigInvalid, "invalid configuration")
	}

	return &config, nil
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
