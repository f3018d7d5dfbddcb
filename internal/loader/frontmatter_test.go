package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantMeta map[string]any
		wantBody string
		wantErr  string
	}{
		{
			name:     "jekyll style front-matter",
			raw:      "---\nlayout: chapter\ntitle: \"Basic Types\"\nchapter_number: 2\npermalink: /chapters/basic-types/\n---\n\n# Basic Types\n",
			wantMeta: map[string]any{"layout": "chapter", "title": "Basic Types", "chapter_number": 2, "permalink": "/chapters/basic-types/"},
			wantBody: "\n# Basic Types\n",
		},
		{
			name:     "crlf line endings and bom",
			raw:      "\xEF\xBB\xBF---\r\ntitle: T\r\n---\r\nbody\r\n",
			wantMeta: map[string]any{"title": "T"},
			wantBody: "body\n",
		},
		{
			name:     "yaml document end marker",
			raw:      "---\ntitle: T\n...\nbody",
			wantMeta: map[string]any{"title": "T"},
			wantBody: "body",
		},
		{
			name:     "no front-matter",
			raw:      "# Just prose\n",
			wantMeta: map[string]any{},
			wantBody: "# Just prose\n",
		},
		{
			name:     "empty front-matter",
			raw:      "---\n---\nbody",
			wantMeta: map[string]any{},
			wantBody: "body",
		},
		{
			name:     "closing fence at end of file",
			raw:      "---\ntitle: T\n---",
			wantMeta: map[string]any{"title": "T"},
			wantBody: "",
		},
		{
			name:    "unterminated",
			raw:     "---\ntitle: T\nbody without fence\n",
			wantErr: "not terminated",
		},
		{
			name:    "only an opening fence",
			raw:     "---",
			wantErr: "not terminated",
		},
		{
			name:    "sequence instead of mapping",
			raw:     "---\n- a\n- b\n---\n",
			wantErr: "not a YAML mapping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument("src.md", []byte(tt.raw))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Contains(t, err.Error(), "src.md")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "src.md", doc.SourceID)
			assert.Equal(t, tt.wantMeta, doc.Metadata)
			assert.Equal(t, tt.wantBody, doc.Body)
		})
	}
}
