package loader

import (
	"bytes"
	"fmt"

	"github.com/conneroisu/bindery/internal/types"
	"gopkg.in/yaml.v3"
)

const fence = "---"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Source is one undecoded chapter file.
type Source struct {
	ID  string
	Raw []byte
}

// FrontMatterError reports a front-matter block that could not be decoded.
type FrontMatterError struct {
	SourceID string
	Reason   string
	Cause    error
}

func (e *FrontMatterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.SourceID, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.SourceID, e.Reason)
}

func (e *FrontMatterError) Unwrap() error {
	return e.Cause
}

// ParseDocument splits a `---` fenced YAML front-matter block from the body.
// A document without an opening fence has empty metadata and its whole text
// as body; the loader then reports the missing fields.
func ParseDocument(sourceID string, raw []byte) (types.Document, error) {
	doc := types.Document{SourceID: sourceID, Metadata: map[string]any{}}

	content := bytes.TrimPrefix(raw, utf8BOM)
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))

	first, rest, found := bytes.Cut(content, []byte("\n"))
	if string(bytes.TrimRight(first, " \t")) != fence {
		doc.Body = string(content)
		return doc, nil
	}
	if !found {
		return doc, &FrontMatterError{SourceID: sourceID, Reason: "front-matter is not terminated"}
	}

	var block []byte
	var body []byte
	closed := false
	for {
		line, next, more := bytes.Cut(rest, []byte("\n"))
		trimmed := string(bytes.TrimRight(line, " \t"))
		if trimmed == fence || trimmed == "..." {
			closed = true
			body = next
			break
		}
		block = append(block, line...)
		block = append(block, '\n')
		if !more {
			break
		}
		rest = next
	}
	if !closed {
		return doc, &FrontMatterError{SourceID: sourceID, Reason: "front-matter is not terminated"}
	}

	if len(bytes.TrimSpace(block)) > 0 {
		var meta map[string]any
		if err := yaml.Unmarshal(block, &meta); err != nil {
			return doc, &FrontMatterError{SourceID: sourceID, Reason: "front-matter is not a YAML mapping", Cause: err}
		}
		if meta != nil {
			doc.Metadata = meta
		}
	}

	doc.Body = string(body)
	return doc, nil
}
