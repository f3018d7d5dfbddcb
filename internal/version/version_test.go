package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseISOTime(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2025-03-01T10:20:30Z", time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"2025-03-01T10:20:30", time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"2025-03-01 10:20:30", time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"unknown", time.Time{}},
		{"", time.Time{}},
		{"yesterday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseISOTime(tt.input)))
		})
	}
}

func TestLinkerOverrides(t *testing.T) {
	oldVersion, oldCommit := Version, GitCommit
	defer func() { Version, GitCommit = oldVersion, oldCommit }()

	Version = "v1.2.0"
	GitCommit = "0123456789abcdef"

	assert.Equal(t, "v1.2.0", GetVersion())
	assert.Equal(t, "v1.2.0 (0123456)", GetShortVersion())

	info := GetBuildInfo()
	assert.Equal(t, "v1.2.0", info.Version)
	assert.Equal(t, "0123456789abcdef", info.GitCommit)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}

func TestShortVersionWithoutCommit(t *testing.T) {
	oldVersion, oldCommit := Version, GitCommit
	defer func() { Version, GitCommit = oldVersion, oldCommit }()

	Version = "v1.2.0"
	GitCommit = "abc"

	assert.Equal(t, "v1.2.0", GetShortVersion())
}
