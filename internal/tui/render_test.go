package tui

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func parseFragment(t *testing.T, fragment string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		t.Fatalf("parse fragment: %v", err)
	}
	return doc
}

func TestRenderConvertsControlsToSuperscripts(t *testing.T) {
	t.Parallel()
	doc := parseFragment(t, `<p>Fact<sup class="footnote-ref" data-footnote="2">2</sup> follows.</p>`)
	r := renderEssay(doc, 60)

	if len(r.lines) == 0 {
		t.Fatal("no lines rendered")
	}
	if want := "Fact² follows."; r.lines[0] != want {
		t.Fatalf("line = %q, want %q", r.lines[0], want)
	}
	if len(r.cites) != 1 {
		t.Fatalf("got %d citations, want 1", len(r.cites))
	}
	c := r.cites[0]
	if c.number != "2" || c.line != 0 || c.start != 4 || c.end != 5 {
		t.Fatalf("citation = %+v", c)
	}
}

func TestCitationAtHitTest(t *testing.T) {
	t.Parallel()
	doc := parseFragment(t, `<p>Fact<sup class="footnote-ref" data-footnote="2">2</sup> follows.</p>`)
	r := renderEssay(doc, 60)

	if _, ok := r.citationAt(0, 4); !ok {
		t.Fatal("expected a hit on the superscript column")
	}
	if _, ok := r.citationAt(0, 3); ok {
		t.Fatal("unexpected hit left of the control")
	}
	if _, ok := r.citationAt(1, 4); ok {
		t.Fatal("unexpected hit on the wrong line")
	}
}

func TestRenderBlockKinds(t *testing.T) {
	t.Parallel()
	doc := parseFragment(t, `
		<h2>Heading</h2>
		<blockquote>A quoted thought.</blockquote>
		<ul><li>first item</li></ul>
		<section class="notes"><h2>Notes</h2><p>[1] Detail.</p></section>`)
	r := renderEssay(doc, 60)

	kinds := map[blockKind]bool{}
	for _, k := range r.kinds {
		kinds[k] = true
	}
	for _, want := range []blockKind{blockHeading, blockQuote, blockListItem, blockNotes} {
		if !kinds[want] {
			t.Fatalf("kind %d missing from %v", want, r.kinds)
		}
	}
	var bullet bool
	for _, line := range r.lines {
		if strings.HasPrefix(line, "• ") {
			bullet = true
		}
	}
	if !bullet {
		t.Fatal("list item lost its bullet")
	}
}

func TestRenderWrapsAtWidth(t *testing.T) {
	t.Parallel()
	doc := parseFragment(t, "<p>"+strings.Repeat("word ", 40)+"</p>")
	r := renderEssay(doc, 24)

	var wrapped int
	for _, line := range r.lines {
		if len([]rune(line)) > 24 {
			t.Fatalf("line %q exceeds the wrap width", line)
		}
		if line != "" {
			wrapped++
		}
	}
	if wrapped < 2 {
		t.Fatalf("expected the paragraph to wrap, got %d lines", wrapped)
	}
}

func TestTextRangeTracksLineOffsets(t *testing.T) {
	t.Parallel()
	doc := parseFragment(t, `<p>First paragraph here.</p><p>Second paragraph follows.</p>`)
	r := renderEssay(doc, 60)

	start, end := r.textRange(0, 0)
	if start != 0 || end != len([]rune("First paragraph here.")) {
		t.Fatalf("range = [%d, %d)", start, end)
	}
	s2, e2 := r.textRange(0, len(r.lines)-1)
	if s2 != 0 || e2 <= end {
		t.Fatalf("full range = [%d, %d), want to extend past %d", s2, e2, end)
	}
}

func TestSelectorForBlocks(t *testing.T) {
	t.Parallel()
	doc := parseFragment(t, `<p>One.</p><p>Two.</p>`)
	r := renderEssay(doc, 60)

	if len(r.blockSel) < 2 {
		t.Fatalf("got %d selectors", len(r.blockSel))
	}
	if r.blockSel[0] != "p:nth-of-type(1)" || r.blockSel[1] != "p:nth-of-type(2)" {
		t.Fatalf("selectors = %v", r.blockSel)
	}
}
