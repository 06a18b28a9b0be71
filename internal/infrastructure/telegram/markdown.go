package telegram

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Characters Telegram requires escaped outside entities in MarkdownV2.
const markdownV2Special = "_*[]()~`>#+-=|{}.!\\"

var mdParser = goldmark.New(goldmark.WithExtensions(extension.Strikethrough)).Parser()

// ToMarkdownV2 converts CommonMark (as produced by the summarizer) into Telegram MarkdownV2.
// Bold and headings become *bold*, emphasis _italic_, lists use bullets.
func ToMarkdownV2(markdown string) string {
	source := []byte(markdown)
	doc := mdParser.Parse(text.NewReader(source))

	r := &v2Renderer{source: source}
	_ = ast.Walk(doc, r.walk)
	return strings.TrimSpace(r.out.String())
}

// EscapeMarkdownV2 escapes every reserved character.
func EscapeMarkdownV2(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x80 && strings.ContainsRune(markdownV2Special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func escapeCode(s string) string {
	return strings.NewReplacer("\\", "\\\\", "`", "\\`").Replace(s)
}

func escapeLinkURL(s string) string {
	return strings.NewReplacer("\\", "\\\\", ")", "\\)").Replace(s)
}

// insideBold reports whether an ancestor already renders as bold; MarkdownV2
// would read a nested "*" as closing the outer run.
func insideBold(n ast.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch parent := p.(type) {
		case *ast.Heading:
			return true
		case *ast.Emphasis:
			if parent.Level >= 2 {
				return true
			}
		}
	}
	return false
}

type listState struct {
	ordered bool
	index   int
}

type v2Renderer struct {
	source []byte
	out    strings.Builder
	lists  []listState
}

func (r *v2Renderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		r.out.WriteString("*")
		if !entering {
			r.blockEnd(n)
		}
	case *ast.Paragraph, *ast.TextBlock:
		if !entering {
			r.blockEnd(n)
		}
	case *ast.Text:
		if entering {
			r.out.WriteString(EscapeMarkdownV2(string(node.Segment.Value(r.source))))
			if node.HardLineBreak() || node.SoftLineBreak() {
				r.out.WriteString("\n")
			}
		}
	case *ast.String:
		if entering {
			r.out.WriteString(EscapeMarkdownV2(string(node.Value)))
		}
	case *ast.Emphasis:
		if node.Level >= 2 {
			if !insideBold(n) {
				r.out.WriteString("*")
			}
		} else {
			r.out.WriteString("_")
		}
	case *extast.Strikethrough:
		r.out.WriteString("~")
	case *ast.CodeSpan:
		if entering {
			var code strings.Builder
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					code.Write(t.Segment.Value(r.source))
				}
			}
			r.out.WriteString("`" + escapeCode(code.String()) + "`")
		}
		return ast.WalkSkipChildren, nil
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			r.out.WriteString("```\n" + escapeCode(r.lines(n)) + "```")
			r.blockEnd(n)
		}
		return ast.WalkSkipChildren, nil
	case *ast.Link:
		if entering {
			r.out.WriteString("[")
		} else {
			r.out.WriteString("](" + escapeLinkURL(string(node.Destination)) + ")")
		}
	case *ast.AutoLink:
		if entering {
			r.out.WriteString(EscapeMarkdownV2(string(node.URL(r.source))))
		}
		return ast.WalkSkipChildren, nil
	case *ast.ThematicBreak:
		if entering {
			r.out.WriteString(EscapeMarkdownV2("---"))
			r.blockEnd(n)
		}
	case *ast.Blockquote:
		if entering {
			r.out.WriteString(">")
		}
	case *ast.HTMLBlock:
		if entering {
			r.out.WriteString(EscapeMarkdownV2(r.lines(n)))
			r.blockEnd(n)
		}
		return ast.WalkSkipChildren, nil
	case *ast.RawHTML:
		if entering {
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				r.out.WriteString(EscapeMarkdownV2(string(seg.Value(r.source))))
			}
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		if entering {
			r.lists = append(r.lists, listState{ordered: node.IsOrdered(), index: node.Start})
		} else {
			r.lists = r.lists[:len(r.lists)-1]
			if _, nested := n.Parent().(*ast.ListItem); !nested {
				r.blockEnd(n)
			}
		}
	case *ast.ListItem:
		if entering {
			r.writeBullet()
		} else if n.NextSibling() != nil {
			r.newline()
		}
	}
	return ast.WalkContinue, nil
}

func (r *v2Renderer) writeBullet() {
	depth := len(r.lists)
	if depth == 0 {
		return
	}
	r.out.WriteString(strings.Repeat("  ", depth-1))
	state := &r.lists[depth-1]
	if state.ordered {
		r.out.WriteString(strconv.Itoa(state.index) + "\\. ")
		state.index++
		return
	}
	r.out.WriteString("• ")
}

func (r *v2Renderer) lines(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(r.source))
	}
	return b.String()
}

// blockEnd separates n from its next sibling; list items get single newlines.
func (r *v2Renderer) blockEnd(n ast.Node) {
	if n.NextSibling() == nil {
		return
	}
	if _, inItem := n.Parent().(*ast.ListItem); inItem {
		r.newline()
		return
	}
	r.newline()
	r.out.WriteString("\n")
}

func (r *v2Renderer) newline() {
	s := r.out.String()
	if len(s) > 0 && !strings.HasSuffix(s, "\n") {
		r.out.WriteString("\n")
	}
}
