package tui

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/net/html"

	"github.com/csheth/folio/internal/footnote"
)

type blockKind int

const (
	blockParagraph blockKind = iota
	blockHeading
	blockQuote
	blockListItem
	blockNotes
)

// citation is the on-screen location of one interactive control.
type citation struct {
	number string
	line   int
	start  int // rune column, inclusive
	end    int // rune column, exclusive
}

// renderedEssay is the essay body laid out for the terminal: plain
// wrapped lines plus the metadata view styling and hit-testing need.
type renderedEssay struct {
	lines     []string
	kinds     []blockKind
	cites     []citation
	lineStart []int // rune offset of each line in the full text
	lineBlock []int
	blockSel  []string
}

// citation markers survive wrapping as ⟦N⟧ tokens and are swapped for
// superscript digits afterwards, once final positions are known.
const (
	citeOpen  = '⟦'
	citeClose = '⟧'
)

var superscriptDigits = map[rune]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴',
	'5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
}

type essayRenderer struct {
	width  int
	out    renderedEssay
	blocks int
	nth    map[string]int
	offset int
}

// renderEssay lays the annotated container out at the given wrap width.
func renderEssay(doc *goquery.Document, width int) renderedEssay {
	if width < 20 {
		width = 20
	}
	r := &essayRenderer{width: width, nth: map[string]int{}}
	body := doc.Find("body")
	for _, n := range body.Nodes {
		r.walk(n, false)
	}
	return r.out
}

func (r *essayRenderer) walk(n *html.Node, inNotes bool) {
	if n.Type != html.ElementNode {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			r.walk(c, inNotes)
		}
		return
	}
	if hasClassAttr(n, footnote.NotesClass) {
		inNotes = true
	}
	switch n.Data {
	case "p":
		kind := blockParagraph
		if inNotes {
			kind = blockNotes
		}
		r.emitBlock(n, kind)
	case "h1", "h2", "h3", "h4", "h5", "h6":
		kind := blockHeading
		if inNotes {
			kind = blockNotes
		}
		r.emitBlock(n, kind)
	case "blockquote":
		r.emitBlock(n, blockQuote)
	case "li":
		r.emitBlock(n, blockListItem)
	case "script", "style":
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			r.walk(c, inNotes)
		}
	}
}

func (r *essayRenderer) emitBlock(n *html.Node, kind blockKind) {
	text := strings.Join(strings.Fields(inlineText(n)), " ")
	if text == "" {
		return
	}
	if kind == blockListItem {
		text = "• " + text
	}
	block := r.blocks
	r.blocks++
	r.nth[n.Data]++
	r.out.blockSel = append(r.out.blockSel, selectorFor(n.Data, r.nth[n.Data]))

	wrapped := strings.Split(wordwrap.String(text, r.width), "\n")
	for _, raw := range wrapped {
		line, cites := extractCitations(raw, len(r.out.lines))
		r.out.lines = append(r.out.lines, line)
		r.out.kinds = append(r.out.kinds, kind)
		r.out.cites = append(r.out.cites, cites...)
		r.out.lineStart = append(r.out.lineStart, r.offset)
		r.out.lineBlock = append(r.out.lineBlock, block)
		r.offset += len([]rune(line)) + 1
	}
	// Paragraph gap.
	r.out.lines = append(r.out.lines, "")
	r.out.kinds = append(r.out.kinds, kind)
	r.out.lineStart = append(r.out.lineStart, r.offset)
	r.out.lineBlock = append(r.out.lineBlock, block)
	r.offset++
}

// inlineText flattens a block to display text, encoding installed
// citation controls as marker tokens.
func inlineText(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && n.Data == "sup" && hasClassAttr(n, footnote.ControlClass) {
			for _, attr := range n.Attr {
				if attr.Key == footnote.NumberAttr {
					b.WriteRune(citeOpen)
					b.WriteString(attr.Val)
					b.WriteRune(citeClose)
					return
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

// extractCitations strips marker tokens from a wrapped line, replacing
// each with superscript digits, and records the final rune columns.
func extractCitations(raw string, lineIdx int) (string, []citation) {
	if !strings.ContainsRune(raw, citeOpen) {
		return raw, nil
	}
	var out []rune
	var cites []citation
	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		if runes[i] != citeOpen {
			out = append(out, runes[i])
			continue
		}
		end := i + 1
		for end < len(runes) && runes[end] != citeClose {
			end++
		}
		if end == len(runes) {
			out = append(out, runes[i:]...)
			break
		}
		number := string(runes[i+1 : end])
		start := len(out)
		for _, d := range number {
			if sup, ok := superscriptDigits[d]; ok {
				out = append(out, sup)
			} else {
				out = append(out, d)
			}
		}
		cites = append(cites, citation{number: number, line: lineIdx, start: start, end: len(out)})
		i = end
	}
	return string(out), cites
}

// citationAt hit-tests a content position against the laid-out controls.
func (r *renderedEssay) citationAt(line, col int) (citation, bool) {
	for _, c := range r.cites {
		if c.line == line && col >= c.start && col < c.end {
			return c, true
		}
	}
	return citation{}, false
}

// textRange returns the rune offsets spanned by a run of lines.
func (r *renderedEssay) textRange(from, to int) (start, end int) {
	if len(r.lines) == 0 {
		return 0, 0
	}
	from = clampInt(from, 0, len(r.lines)-1)
	to = clampInt(to, 0, len(r.lines)-1)
	return r.lineStart[from], r.lineStart[to] + len([]rune(r.lines[to]))
}

// selectorFor builds the advisory anchor selector stored with highlights.
func selectorFor(tag string, nth int) string {
	return fmt.Sprintf("%s:nth-of-type(%d)", tag, nth)
}

func hasClassAttr(n *html.Node, class string) bool {
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

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
