package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ajstarks/deck"
	"github.com/inful/mdfp"
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/deckbuild/pkg/assembly"
)

// Frontmatter holds the slide options a Markdown source may declare.
type Frontmatter struct {
	Bg     string `yaml:"bg"`
	Fg     string `yaml:"fg"`
	Layout string `yaml:"layout"` // "content" (default) or "title"
}

// ErrMissingClosingDelimiter indicates a frontmatter block that never ends.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Layout metrics in percent of the canvas.
const (
	marginX      = 6.0
	topY         = 88.0
	bottomY      = 6.0
	contentWidth = 88.0
	h1Size       = 5.0
	h2Size       = 3.6
	bodySize     = 2.4
	codeSize     = 1.8
	blockGap     = 3.0
	charsPerLine = 70
)

// MarkdownRenderer renders .md slide sources. The body is parsed with
// goldmark and its blocks are laid out top to bottom as deck text and lists.
type MarkdownRenderer struct {
	load Loader
	md   goldmark.Markdown
}

// NewMarkdownRenderer creates a renderer reading sources through load.
func NewMarkdownRenderer(load Loader) *MarkdownRenderer {
	return &MarkdownRenderer{load: load, md: goldmark.New()}
}

// Render implements assembly.Renderer.
func (r *MarkdownRenderer) Render(ctx context.Context, source string, d *assembly.Deck) (assembly.Annotatable, error) {
	content, err := r.load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", source, err)
	}

	slide, fingerprint, err := r.Convert(content)
	if err != nil {
		return nil, err
	}
	s := d.AddSlide(source, slide)
	s.Fingerprint = fingerprint
	return s, nil
}

// Convert lays out one Markdown document as a slide and returns the slide
// with the document's content fingerprint.
func (r *MarkdownRenderer) Convert(content []byte) (deck.Slide, string, error) {
	fm, body, err := splitFrontmatter(content)
	if err != nil {
		return deck.Slide{}, "", err
	}

	var opts Frontmatter
	if len(fm) > 0 {
		if err := yaml.Unmarshal(fm, &opts); err != nil {
			return deck.Slide{}, "", fmt.Errorf("invalid frontmatter: %w", err)
		}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return deck.Slide{}, "", fmt.Errorf("markdown source has no content")
	}

	root := r.md.Parser().Parse(text.NewReader(body))
	l := &layout{src: body, fg: opts.Fg, y: topY, centered: opts.Layout == "title"}
	if l.centered {
		l.y = 60
	}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		l.block(n)
	}

	slide := deck.Slide{Bg: opts.Bg, Fg: opts.Fg, Text: l.texts, List: l.lists}
	fingerprint := mdfp.CalculateFingerprintFromParts(strings.TrimSuffix(string(fm), "\n"), string(body))
	return slide, fingerprint, nil
}

// splitFrontmatter separates a leading "---" YAML block from the body.
func splitFrontmatter(content []byte) ([]byte, []byte, error) {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	open := []byte("---\n")
	if !bytes.HasPrefix(content, open) {
		return nil, content, nil
	}
	rest := content[len(open):]
	if bytes.HasPrefix(rest, open) {
		return []byte{}, rest[len(open):], nil
	}
	idx := bytes.Index(rest, []byte("\n---\n"))
	if idx < 0 {
		if bytes.HasSuffix(rest, []byte("\n---")) {
			return rest[:len(rest)-3], []byte{}, nil
		}
		return nil, nil, ErrMissingClosingDelimiter
	}
	return rest[:idx+1], rest[idx+len("\n---\n"):], nil
}

// layout accumulates positioned deck elements while walking the document.
type layout struct {
	src      []byte
	fg       string
	y        float64
	centered bool
	texts    []deck.Text
	lists    []deck.List
}

func (l *layout) x() float64 {
	if l.centered {
		return 50
	}
	return marginX
}

func (l *layout) align() string {
	if l.centered {
		return "center"
	}
	return "left"
}

func (l *layout) block(n gmast.Node) {
	if l.y < bottomY {
		return
	}
	switch node := n.(type) {
	case *gmast.Heading:
		size := h2Size
		if node.Level == 1 {
			size = h1Size
		}
		l.addText(inlineText(node, l.src), size, "", "sans")
	case *gmast.Paragraph:
		l.addText(inlineText(node, l.src), bodySize, "block", "serif")
	case *gmast.Blockquote:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			l.addText(inlineText(c, l.src), bodySize, "block", "serif")
		}
	case *gmast.FencedCodeBlock:
		l.addCode(blockLines(node, l.src))
	case *gmast.CodeBlock:
		l.addCode(blockLines(node, l.src))
	case *gmast.List:
		l.addList(node)
	}
}

func (l *layout) addText(s string, size float64, ttype, font string) {
	if s == "" {
		return
	}
	t := deck.Text{
		Xp:    l.x(),
		Yp:    l.y,
		Sp:    size,
		Tdata: s,
		Font:  font,
		Align: l.align(),
		Color: l.fg,
		Type:  ttype,
	}
	lines := 1
	if ttype == "block" {
		t.Wp = contentWidth
		lines = wrappedLines(s)
	}
	l.texts = append(l.texts, t)
	l.y -= float64(lines)*size*1.8 + blockGap
}

func (l *layout) addCode(s string) {
	if s == "" {
		return
	}
	l.texts = append(l.texts, deck.Text{
		Xp:    marginX,
		Yp:    l.y,
		Sp:    codeSize,
		Tdata: s,
		Font:  "mono",
		Type:  "code",
		Wp:    contentWidth,
		Color: l.fg,
	})
	l.y -= float64(strings.Count(s, "\n")+1)*codeSize*1.8 + blockGap
}

func (l *layout) addList(node *gmast.List) {
	list := deck.List{
		Xp:    l.x() + 2,
		Yp:    l.y,
		Sp:    bodySize,
		Wp:    contentWidth,
		Font:  "sans",
		Color: l.fg,
		Type:  "bullet",
	}
	if node.IsOrdered() {
		list.Type = "number"
	}
	for item := node.FirstChild(); item != nil; item = item.NextSibling() {
		s := inlineText(item, l.src)
		if s == "" {
			continue
		}
		list.Li = append(list.Li, deck.ListItem{ListText: s})
	}
	if len(list.Li) == 0 {
		return
	}
	l.lists = append(l.lists, list)
	l.y -= float64(len(list.Li))*bodySize*2.2 + blockGap
}

func wrappedLines(s string) int {
	n := len([]rune(s))
	return 1 + n/charsPerLine
}

// inlineText flattens the inline content of n into one line of plain text.
func inlineText(n gmast.Node, src []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(t.Value)
		case *gmast.AutoLink:
			b.Write(t.URL(src))
			return gmast.WalkSkipChildren, nil
		case *gmast.List:
			// nested list items are joined onto the parent line
			if c != n {
				b.WriteString(" ")
			}
		}
		return gmast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

// blockLines returns the raw lines of a code block.
func blockLines(n gmast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimRight(b.String(), "\n")
}
