package xref

import (
	"bytes"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/conneroisu/bindery/internal/types"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
)

// Marker patterns operate on case-folded text.
var (
	// Link text that is itself a navigation label: "Next", "Previous chapter",
	// "← Basic Types", "Generics →".
	linkWordRe   = regexp.MustCompile(`^[\s←«‹]*(next|previous|prev)(?:[^\p{L}]|$)`)
	linkPrevRe   = regexp.MustCompile(`^\s*[←«‹]`)
	linkNextRe   = regexp.MustCompile(`[→»›]\s*$`)
	labelSuffix  = regexp.MustCompile(`(?:^|[^\p{L}])(next|previous|prev)(?:\s+chapter)?\s*[:：→»›←«‹\-–—]\s*$`)
	labelOnly    = regexp.MustCompile(`^[\s|·•*_>\-–—\p{So}\p{M}]*(next|previous|prev)(?:\s+chapter)?\s*$`)
	numberMarker = regexp.MustCompile(`(?:^|[^\p{L}])(next|previous|prev)(?:\s+chapter)?\s*[:：→»›←«‹\-–—]?\s*chapter\s+(\d+)`)
)

func fold(s string) string {
	return cases.Fold().String(s)
}

func kindOf(word string) types.RefKind {
	if word == "next" {
		return types.RefNext
	}
	return types.RefPrevious
}

// linkTextKind classifies a link by its own text.
func linkTextKind(label string) types.RefKind {
	folded := fold(label)
	if m := linkWordRe.FindStringSubmatch(folded); m != nil {
		return kindOf(m[1])
	}
	if linkPrevRe.MatchString(folded) {
		return types.RefPrevious
	}
	if linkNextRe.MatchString(folded) {
		return types.RefNext
	}
	return ""
}

// precedingKind classifies a link by the text between it and the previous
// link of the same block. Only label-like text counts: "Next chapter:",
// "| Previous", "➡️ Next". Prose such as "the next section covers" does not.
func precedingKind(preceding string) types.RefKind {
	folded := fold(preceding)
	if m := labelSuffix.FindStringSubmatch(folded); m != nil {
		return kindOf(m[1])
	}
	if m := labelOnly.FindStringSubmatch(folded); m != nil {
		return kindOf(m[1])
	}
	return ""
}

// Extractor finds chapter references in Markdown bodies.
type Extractor struct {
	md           goldmark.Markdown
	internalExts map[string]bool
}

// NewExtractor creates an extractor. Links whose path has an extension are
// only treated as chapter links when the extension is listed in exts;
// extension-less paths always are.
func NewExtractor(exts []string) *Extractor {
	allowed := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}
	return &Extractor{md: goldmark.New(), internalExts: allowed}
}

// Extract returns every chapter reference declared in ch's body, in
// document order. Code spans and code blocks never yield references.
func (e *Extractor) Extract(ch types.Chapter) []types.CrossReference {
	source := []byte(ch.Body)
	doc := e.md.Parser().Parse(text.NewReader(source))

	s := &scan{
		ex:         e,
		from:       ch.Number,
		source:     source,
		lineStarts: lineStarts(source),
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.CodeSpan, *ast.Image, *ast.AutoLink:
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.TextBlock, *ast.Heading:
			if entering {
				s.beginBlock(s.nodeLine(n))
			} else {
				s.endBlock()
			}

		case *ast.HTMLBlock:
			if entering {
				s.beginBlock(s.nodeLine(n))
				s.html(htmlBlockSource(node, source))
				s.endBlock()
			}
			return ast.WalkSkipChildren, nil

		case *ast.Text:
			if entering {
				s.at(node.Segment.Start)
				s.text(string(node.Segment.Value(source)))
				if node.SoftLineBreak() || node.HardLineBreak() {
					s.text(" ")
				}
			}

		case *ast.String:
			if entering {
				s.text(string(node.Value))
			}

		case *ast.RawHTML:
			if entering {
				var raw bytes.Buffer
				for i := 0; i < node.Segments.Len(); i++ {
					seg := node.Segments.At(i)
					if i == 0 {
						s.at(seg.Start)
					}
					raw.Write(seg.Value(source))
				}
				s.html(raw.String())
			}
			return ast.WalkSkipChildren, nil

		case *ast.Link:
			if entering {
				if off, ok := firstTextOffset(node); ok {
					s.at(off)
				}
				s.link(string(node.Destination), plainText(node, source), s.line)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return s.refs
}

// scan is the per-chapter extraction state.
type scan struct {
	ex         *Extractor
	from       int
	source     []byte
	lineStarts []int
	refs       []types.CrossReference

	line      int
	blockLine int
	pending   strings.Builder // text since the previous link of the block
	plain     strings.Builder // all non-link text of the block
	anchor    *anchor         // open raw-HTML <a>, if any
}

type anchor struct {
	href      string
	preceding string
	line      int
	label     strings.Builder
}

func (s *scan) beginBlock(line int) {
	s.blockLine = line
	s.line = line
	s.pending.Reset()
	s.plain.Reset()
	s.anchor = nil
}

// endBlock emits references written as "Next: Chapter 3" without a link.
func (s *scan) endBlock() {
	if s.anchor != nil {
		s.closeAnchor()
	}
	for _, m := range numberMarker.FindAllStringSubmatch(fold(s.plain.String()), -1) {
		s.refs = append(s.refs, types.CrossReference{
			From:   s.from,
			Target: m[2],
			Kind:   kindOf(m[1]),
			Line:   s.blockLine,
		})
	}
	s.pending.Reset()
	s.plain.Reset()
}

func (s *scan) text(t string) {
	if s.anchor != nil {
		s.anchor.label.WriteString(t)
		return
	}
	s.pending.WriteString(t)
	s.plain.WriteString(t)
}

func (s *scan) at(offset int) {
	s.line = sort.SearchInts(s.lineStarts, offset+1)
}

func (s *scan) link(dest, label string, line int) {
	kind := linkTextKind(label)
	if kind == "" {
		kind = precedingKind(s.pending.String())
	}
	s.pending.Reset()
	s.plain.WriteString(" ")

	if !s.ex.isChapterLink(dest, kind != "") {
		return
	}
	if kind == "" {
		kind = types.RefInline
	}
	s.refs = append(s.refs, types.CrossReference{
		From:   s.from,
		Target: dest,
		Kind:   kind,
		Line:   line,
	})
}

func (s *scan) openAnchor(href string) {
	if s.anchor != nil {
		s.closeAnchor()
	}
	s.anchor = &anchor{href: href, preceding: s.pending.String(), line: s.line}
}

func (s *scan) closeAnchor() {
	a := s.anchor
	s.anchor = nil

	kind := linkTextKind(a.label.String())
	if kind == "" {
		kind = precedingKind(a.preceding)
	}
	s.pending.Reset()
	s.plain.WriteString(" ")

	if !s.ex.isChapterLink(a.href, kind != "") {
		return
	}
	if kind == "" {
		kind = types.RefInline
	}
	s.refs = append(s.refs, types.CrossReference{
		From:   s.from,
		Target: a.href,
		Kind:   kind,
		Line:   a.line,
	})
}

// html feeds raw HTML through the tokenizer, tracking anchors and text.
func (s *scan) html(raw string) {
	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return
		case html.TextToken:
			s.text(string(z.Text()))
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" {
				break
			}
			href := ""
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == "href" {
					href = string(val)
				}
			}
			if href != "" && tt == html.StartTagToken {
				s.openAnchor(href)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "a" && s.anchor != nil {
				s.closeAnchor()
			}
		}
		s.line += bytes.Count(z.Raw(), []byte("\n"))
	}
}

// isChapterLink decides whether a destination can point at a chapter.
// Navigation links only need to be site-internal; inline links must also
// have an extension-less or allowed path.
func (e *Extractor) isChapterLink(dest string, navigation bool) bool {
	u, err := url.Parse(strings.TrimSpace(dest))
	if err != nil {
		return navigation
	}
	if u.Scheme != "" || u.Host != "" || u.Opaque != "" {
		return false
	}
	if u.Path == "" {
		return false
	}
	if navigation {
		return true
	}
	ext := strings.ToLower(path.Ext(u.Path))
	return ext == "" || e.internalExts[ext]
}

func (s *scan) nodeLine(n ast.Node) int {
	lines := n.Lines()
	if lines == nil || lines.Len() == 0 {
		if off, ok := firstTextOffset(n); ok {
			return sort.SearchInts(s.lineStarts, off+1)
		}
		return s.line
	}
	return sort.SearchInts(s.lineStarts, lines.At(0).Start+1)
}

func htmlBlockSource(n *ast.HTMLBlock, source []byte) string {
	var b bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	if n.HasClosure() {
		b.Write(n.ClosureLine.Value(source))
	}
	return b.String()
}

func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func firstTextOffset(n ast.Node) (int, bool) {
	found := -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			found = t.Segment.Start
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return found, found >= 0
}

// lineStarts returns the byte offset at which each line begins.
func lineStarts(source []byte) []int {
	starts := []int{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}
