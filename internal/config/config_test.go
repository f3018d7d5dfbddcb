package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/testutils"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Content.Dir)
	assert.Equal(t, []string{"*.md"}, cfg.Content.Include)
	assert.Contains(t, cfg.Content.Exclude, "README.md")
	assert.Equal(t, []string{".html", ".htm"}, cfg.Links.InternalExtensions)
	assert.False(t, cfg.Validation.Strict)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".bindery.yml")
	require.NoError(t, os.WriteFile(file, []byte(`
content:
  dir: book
  include: ["*.md", "*.markdown"]
  exclude: [drafts]
  concurrency: 4
links:
  internal_extensions: [html]
validation:
  strict: true
output:
  format: JSON
watch:
  debounce: 1s
  listen: localhost:8090
log:
  level: debug
  format: json
`), 0o644))

	v := viper.New()
	v.SetConfigFile(file)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "book", cfg.Content.Dir)
	assert.Equal(t, []string{"*.md", "*.markdown"}, cfg.Content.Include)
	assert.Equal(t, []string{"drafts"}, cfg.Content.Exclude)
	assert.Equal(t, 4, cfg.Content.Concurrency)
	assert.Equal(t, []string{".html"}, cfg.Links.InternalExtensions)
	assert.True(t, cfg.Validation.Strict)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, "localhost:8090", cfg.Watch.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BINDERY_CONTENT_DIR", "chapters")
	t.Setenv("BINDERY_CONTENT_EXCLUDE", "drafts, notes")
	t.Setenv("BINDERY_VALIDATION_STRICT", "true")
	t.Setenv("BINDERY_WATCH_DEBOUNCE", "50ms")

	v := viper.New()
	Configure(v)

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "chapters", cfg.Content.Dir)
	assert.Equal(t, []string{"drafts", "notes"}, cfg.Content.Exclude)
	assert.True(t, cfg.Validation.Strict)
	assert.Equal(t, 50*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
		field string
	}{
		{name: "traversal", key: "content.dir", value: "../../etc", field: "content.dir"},
		{name: "shell characters", key: "content.dir", value: "book;rm", field: "content.dir"},
		{name: "bad glob", key: "content.exclude", value: []string{"[oops"}, field: "content.exclude"},
		{name: "concurrency", key: "content.concurrency", value: 1000, field: "content.concurrency"},
		{name: "format", key: "output.format", value: "xml", field: "output.format"},
		{name: "debounce", key: "watch.debounce", value: "2h", field: "watch.debounce"},
		{name: "listen", key: "watch.listen", value: "no-port", field: "watch.listen"},
		{name: "log level", key: "log.level", value: "loud", field: "log.level"},
		{name: "log format", key: "log.format", value: "xml", field: "log.format"},
		{name: "extension", key: "links.internal_extensions", value: []string{"a/b"}, field: "links.internal_extensions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)

			cfg, err := LoadFrom(v)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, errors.IsConfigError(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidateRejectsUnsafeContentDir(t *testing.T) {
	unsafe := append([]string{}, testutils.SecurityTestCases.PathTraversal...)
	unsafe = append(unsafe, testutils.SecurityTestCases.CommandInjection...)

	for _, dir := range unsafe {
		cfg, err := LoadFrom(viper.New())
		require.NoError(t, err)
		cfg.Content.Dir = dir

		result := Validate(cfg)
		assert.True(t, result.HasErrors(), dir)
	}
}

func TestValidateCollectsEverything(t *testing.T) {
	cfg := &Config{
		Content: ContentConfig{Dir: "", Concurrency: -1},
		Output:  OutputConfig{Format: "pdf"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}

	result := Validate(cfg)
	require.True(t, result.HasErrors())

	fields := make([]string, len(result.Errors))
	for i, e := range result.Errors {
		fields[i] = e.Field
	}
	assert.ElementsMatch(t, []string{"content.dir", "content.include", "content.concurrency", "output.format"}, fields)
	assert.Contains(t, result.String(), "Configuration errors")
}

func TestValidateWarnings(t *testing.T) {
	v := viper.New()
	v.Set("watch.listen", ":8090")
	v.Set("links.internal_extensions", []string{"md"})

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	result := Validate(cfg)
	assert.False(t, result.HasErrors())
	assert.True(t, result.HasWarnings())
	assert.Len(t, result.Warnings, 2)
}
