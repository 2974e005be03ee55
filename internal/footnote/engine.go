// Package footnote turns the citation markers of a rendered essay into
// interactive controls and manages the popover that presents each
// note. Citations come in two styles: same-page fragment links whose
// visible text is the number, and plain bracketed numbers in prose.
// Definitions live in a trailing notes region of the essay body.
package footnote

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// ControlClass marks an installed citation control.
	ControlClass = "footnote-ref"
	// NumberAttr carries the citation number on a control.
	NumberAttr = "data-footnote"
	// NotesClass marks a structurally tagged notes region.
	NotesClass = "notes"
)

var markerPattern = regexp.MustCompile(`\[(\d+)\]`)

// Engine scans one rendered essay container. It is rebuilt fresh per
// essay; the definition map is derived state, never persisted.
type Engine struct {
	root      *goquery.Selection
	defs      map[string]string
	noteRoots []*html.Node
}

// New parses the notes region of the container and builds the
// definition map. A container without notes yields an engine whose
// Annotate is a no-op; essays without footnotes are the common case.
func New(container *goquery.Selection) *Engine {
	e := &Engine{root: container, defs: map[string]string{}}
	e.collectNoteRegions()
	e.parseDefinitions()
	return e
}

// NewFromDocument scans the document body.
func NewFromDocument(doc *goquery.Document) *Engine {
	return New(doc.Selection)
}

// Definitions maps citation number to note body text.
func (e *Engine) Definitions() map[string]string {
	return e.defs
}

// collectNoteRegions finds the notes block(s): either an element
// carrying the notes class, or a trailing heading whose text starts
// with "Notes" together with everything after it.
func (e *Engine) collectNoteRegions() {
	tagged := e.root.Find("section." + NotesClass + ", div." + NotesClass)
	if tagged.Length() > 0 {
		e.noteRoots = append(e.noteRoots, tagged.Nodes...)
		return
	}
	e.root.Find("h1,h2,h3,h4,h5,h6").Each(func(_ int, s *goquery.Selection) {
		if !strings.HasPrefix(strings.TrimSpace(s.Text()), "Notes") {
			return
		}
		for n := s.Nodes[0]; n != nil; n = n.NextSibling {
			e.noteRoots = append(e.noteRoots, n)
		}
	})
}

// parseDefinitions splits the notes text on [N] markers; the segment
// between consecutive markers is the body for the preceding number.
// Empty bodies are discarded.
func (e *Engine) parseDefinitions() {
	var b strings.Builder
	for _, root := range e.noteRoots {
		writeText(&b, root)
	}
	text := b.String()
	matches := markerPattern.FindAllStringSubmatchIndex(text, -1)
	for i, m := range matches {
		number := text[m[2]:m[3]]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimSpace(text[m[1]:end])
		if body == "" {
			continue
		}
		e.defs[number] = body
	}
}

// Annotate installs interactive controls for every citation with a
// definition. Linked citations are processed first, then plain-text
// markers; controls already installed are never re-processed, so the
// pass is idempotent. Returns the number of controls installed.
func (e *Engine) Annotate() int {
	if len(e.defs) == 0 {
		return 0
	}
	return e.annotateLinked() + e.annotatePlain()
}

func (e *Engine) annotateLinked() int {
	installed := 0
	e.root.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !strings.HasPrefix(href, "#") {
			return
		}
		number := strings.TrimSpace(s.Text())
		if !allDigits(number) {
			return
		}
		if _, ok := e.defs[number]; !ok {
			return
		}
		node := s.Nodes[0]
		if e.insideExcluded(node) {
			return
		}
		stripAdjacentBrackets(node)
		parent := node.Parent
		parent.InsertBefore(controlNode(number), node)
		parent.RemoveChild(node)
		installed++
	})
	return installed
}

func (e *Engine) annotatePlain() int {
	var texts []*html.Node
	for _, root := range e.root.Nodes {
		e.collectTextNodes(root, &texts)
	}
	installed := 0
	for _, n := range texts {
		installed += e.rewriteTextNode(n)
	}
	return installed
}

// collectTextNodes walks the leaf text spans under n, pruning subtrees
// whose root matches the exclusion predicate (notes region, existing
// controls, non-prose elements).
func (e *Engine) collectTextNodes(n *html.Node, out *[]*html.Node) {
	if e.excludedSubtree(n) {
		return
	}
	if n.Type == html.TextNode {
		*out = append(*out, n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		e.collectTextNodes(c, out)
	}
}

func (e *Engine) excludedSubtree(n *html.Node) bool {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style":
			return true
		}
		if hasClass(n, ControlClass) {
			return true
		}
	}
	for _, root := range e.noteRoots {
		if n == root {
			return true
		}
	}
	return false
}

func (e *Engine) insideExcluded(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if e.excludedSubtree(p) {
			return true
		}
	}
	return false
}

// rewriteTextNode replaces each defined [N] substring with a control,
// keeping the surrounding text verbatim as adjacent text nodes.
// Numbers without a definition stay literal text.
func (e *Engine) rewriteTextNode(n *html.Node) int {
	parent := n.Parent
	if parent == nil {
		return 0
	}
	matches := markerPattern.FindAllStringSubmatchIndex(n.Data, -1)
	installed := 0
	last := 0
	for _, m := range matches {
		number := n.Data[m[2]:m[3]]
		if _, ok := e.defs[number]; !ok {
			continue
		}
		if m[0] > last {
			parent.InsertBefore(textNode(n.Data[last:m[0]]), n)
		}
		parent.InsertBefore(controlNode(number), n)
		last = m[1]
		installed++
	}
	if installed == 0 {
		return 0
	}
	if last < len(n.Data) {
		parent.InsertBefore(textNode(n.Data[last:]), n)
	}
	parent.RemoveChild(n)
	return installed
}

// stripAdjacentBrackets removes the literal [ and ] remnants around a
// linked citation, when present in the neighboring text nodes.
func stripAdjacentBrackets(n *html.Node) {
	if prev := n.PrevSibling; prev != nil && prev.Type == html.TextNode && strings.HasSuffix(prev.Data, "[") {
		prev.Data = prev.Data[:len(prev.Data)-1]
	}
	if next := n.NextSibling; next != nil && next.Type == html.TextNode && strings.HasPrefix(next.Data, "]") {
		next.Data = next.Data[1:]
	}
}

func controlNode(number string) *html.Node {
	sup := &html.Node{
		Type:     html.ElementNode,
		Data:     "sup",
		DataAtom: atom.Sup,
		Attr: []html.Attribute{
			{Key: "class", Val: ControlClass},
			{Key: "role", Val: "button"},
			{Key: "tabindex", Val: "0"},
			{Key: "aria-label", Val: "Footnote " + number},
			{Key: NumberAttr, Val: number},
		},
	}
	sup.AppendChild(textNode(number))
	return sup
}

func textNode(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

func writeText(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, field := range strings.Fields(attr.Val) {
			if field == class {
				return true
			}
		}
	}
	return false
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
