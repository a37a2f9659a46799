package typst

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dshills/lockstep/internal/anchor"
)

// AnchorPrefix starts every injected anchor id.
const AnchorPrefix = "tf-"

// Output is a preprocessed document.
type Output struct {
	// Markdown is the text handed to the typesetter.
	Markdown string

	// Anchors lists the injected anchors in document order. Lines and
	// offsets refer to the original markdown.
	Anchors []anchor.Anchor
}

var markdown = goldmark.New(goldmark.WithExtensions(
	extension.Table,
	extension.Footnote,
	extension.TaskList,
	extension.Strikethrough,
))

// Preprocess converts admonitions and injects an invisible anchor before
// every block-level element.
func Preprocess(src string) Output {
	transformed, lineMap := transformAdmonitions(src)
	transformed = legacyCallouts.Replace(transformed)

	source := []byte(transformed)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var offsets []int
	seen := make(map[int]bool)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || !isBlockLevel(n) {
			return ast.WalkContinue, nil
		}
		off, ok := blockStart(n, source)
		if ok && !seen[off] {
			seen[off] = true
			offsets = append(offsets, off)
		}
		return ast.WalkContinue, nil
	})
	sort.Ints(offsets)

	srcStarts := lineStarts(src)
	outStarts := lineStarts(transformed)
	anchors := make([]anchor.Anchor, len(offsets))
	for i, off := range offsets {
		line := 0
		if out := lineIndex(outStarts, off); out < len(lineMap) {
			line = lineMap[out]
		}
		anchors[i] = anchor.Anchor{
			ID:           fmt.Sprintf("%s%d-%d", AnchorPrefix, off, i),
			SourceLine:   line,
			SourceOffset: srcStarts[min(line, len(srcStarts)-1)],
		}
	}

	var b strings.Builder
	b.Grow(len(transformed) + len(offsets)*48)
	prev := 0
	for i, off := range offsets {
		b.WriteString(transformed[prev:off])
		b.WriteString(indentOf(transformed[off:]))
		b.WriteString(`<!--raw-typst #anchor("`)
		b.WriteString(anchors[i].ID)
		b.WriteString(`") -->` + "\n")
		prev = off
	}
	b.WriteString(transformed[prev:])

	return Output{Markdown: b.String(), Anchors: anchors}
}

func isBlockLevel(n ast.Node) bool {
	switch n.Kind() {
	case ast.KindParagraph, ast.KindTextBlock, ast.KindHeading, ast.KindBlockquote,
		ast.KindCodeBlock, ast.KindFencedCodeBlock, ast.KindList, ast.KindListItem,
		extast.KindTable, extast.KindTableHeader, extast.KindTableRow, extast.KindTableCell,
		extast.KindFootnote:
		return true
	}
	return false
}

// blockStart returns the offset of the first line n occupies.
func blockStart(n ast.Node, src []byte) (int, bool) {
	if fc, ok := n.(*ast.FencedCodeBlock); ok {
		if fc.Info != nil {
			return lineStart(src, fc.Info.Segment.Start), true
		}
		if fc.Lines().Len() > 0 {
			return lineStart(src, lineStart(src, fc.Lines().At(0).Start)-1), true
		}
		return 0, false
	}
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		return lineStart(src, n.Lines().At(0).Start), true
	}
	if t, ok := n.(*ast.Text); ok {
		return lineStart(src, t.Segment.Start), true
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if off, ok := blockStart(c, src); ok {
			return off, true
		}
	}
	return 0, false
}

func lineStart(src []byte, off int) int {
	if off <= 0 {
		return 0
	}
	if off > len(src) {
		off = len(src)
	}
	for off > 0 && src[off-1] != '\n' {
		off--
	}
	return off
}

func lineStarts(s string) []int {
	starts := []int{0}
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' && i+1 < len(s) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineIndex returns the 0-based line containing off.
func lineIndex(starts []int, off int) int {
	return sort.Search(len(starts), func(i int) bool { return starts[i] > off }) - 1
}

func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
