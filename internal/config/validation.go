package config

import (
	"fmt"
	"net"
	"path"
	"strings"
	"time"

	"github.com/conneroisu/bindery/internal/logging"
	"github.com/conneroisu/bindery/internal/validation"
)

// Formats accepted by output.format.
var validFormats = []string{"text", "table", "json", "yaml", "csv"}

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// Error lists every validation error on one line each.
func (vr *ValidationResult) Error() string {
	msgs := make([]string, len(vr.Errors))
	for i, e := range vr.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	write := func(title string, items []ValidationError) {
		if len(items) == 0 {
			return
		}
		builder.WriteString(title + ":\n")
		for _, item := range items {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", item.Field, item.Message))
			for _, suggestion := range item.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}

	write("Configuration errors", vr.Errors)
	write("Configuration warnings", vr.Warnings)
	return builder.String()
}

func (vr *ValidationResult) fail(field string, value interface{}, msg string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

func (vr *ValidationResult) warn(field string, value interface{}, msg string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

// Validate checks every section and collects all problems.
func Validate(config *Config) *ValidationResult {
	result := &ValidationResult{}

	validateContent(&config.Content, result)
	validateLinks(&config.Links, result)
	validateOutput(&config.Output, result)
	validateWatch(&config.Watch, result)
	validateLog(&config.Log, result)

	return result
}

func validateContent(c *ContentConfig, result *ValidationResult) {
	if c.Dir == "" {
		result.fail("content.dir", c.Dir, "content directory cannot be empty",
			"Use '.' for the current directory")
	} else if err := validation.ValidatePath(c.Dir); err != nil {
		result.fail("content.dir", c.Dir, err.Error(),
			"Point content.dir at the book directory or pass it as an argument")
	}

	if len(c.Include) == 0 {
		result.fail("content.include", c.Include, "at least one include pattern is required",
			"Use '*.md' to select Markdown chapters")
	}
	for _, pattern := range c.Include {
		if _, err := path.Match(pattern, ""); err != nil {
			result.fail("content.include", pattern, fmt.Sprintf("invalid glob %q", pattern))
		}
	}
	for _, pattern := range c.Exclude {
		if _, err := path.Match(pattern, ""); err != nil {
			result.fail("content.exclude", pattern, fmt.Sprintf("invalid glob %q", pattern))
		}
	}

	if c.Concurrency < 0 || c.Concurrency > 64 {
		result.fail("content.concurrency", c.Concurrency,
			fmt.Sprintf("concurrency %d is not in range 0-64", c.Concurrency),
			"Use 0 to pick a default based on the CPU count")
	}
}

func validateLinks(l *LinksConfig, result *ValidationResult) {
	for _, ext := range l.InternalExtensions {
		if ext == "." || strings.ContainsAny(ext, "/\\ ") {
			result.fail("links.internal_extensions", ext, fmt.Sprintf("invalid extension %q", ext),
				"Use values such as '.html' or '.htm'")
		}
		if ext == ".md" {
			result.warn("links.internal_extensions", ext,
				"links to .md files will be treated as chapter pages",
				"Published books usually link to permalinks, not source files")
		}
	}
}

func validateOutput(o *OutputConfig, result *ValidationResult) {
	if !contains(validFormats, o.Format) {
		result.fail("output.format", o.Format, fmt.Sprintf("unknown output format %q", o.Format),
			"Available formats: "+strings.Join(validFormats, ", "))
	}
}

func validateWatch(w *WatchConfig, result *ValidationResult) {
	if w.Debounce < 0 || w.Debounce > time.Minute {
		result.fail("watch.debounce", w.Debounce,
			fmt.Sprintf("debounce %s is not in range 0-1m", w.Debounce),
			"A few hundred milliseconds coalesces editor save bursts")
	}

	if w.Listen == "" {
		return
	}
	host, port, err := net.SplitHostPort(w.Listen)
	if err != nil {
		result.fail("watch.listen", w.Listen, err.Error(),
			"Use host:port, for example 'localhost:8090' or ':8090'")
		return
	}
	if port == "" {
		result.fail("watch.listen", w.Listen, "port cannot be empty")
	}
	if err := validateHostname(host); err != nil {
		result.fail("watch.listen", w.Listen, err.Error())
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		result.warn("watch.listen", w.Listen, "build feed will be reachable from other hosts",
			"Use 'localhost:port' to keep it local")
	}
}

func validateLog(l *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(l.Level); err != nil {
		result.fail("log.level", l.Level, err.Error(),
			"Available levels: debug, info, warn, error")
	}
	if l.Format != "text" && l.Format != "json" {
		result.fail("log.format", l.Format, fmt.Sprintf("unknown log format %q", l.Format),
			"Use 'text' or 'json'")
	}
	if l.Dir != "" {
		if err := validation.ValidatePath(l.Dir); err != nil {
			result.fail("log.dir", l.Dir, err.Error())
		}
	}
}

func validateHostname(host string) error {
	if host == "" {
		return nil
	}
	if strings.ContainsAny(host, ";&|$`()<>\"'\\ /") {
		return fmt.Errorf("host %q contains invalid characters", host)
	}
	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
