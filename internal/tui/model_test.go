package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/folio/internal/essay"
	"github.com/csheth/folio/internal/footnote"
	"github.com/csheth/folio/internal/highlight"
	"github.com/csheth/folio/internal/history"
	"github.com/csheth/folio/internal/prefs"
	"github.com/csheth/folio/internal/storage"
)

const annotatedBody = `<p>Alpha beta[1] gamma delta[2] epsilon.</p>
<p>Second paragraph without markers.</p>
<section class="notes"><h2>Notes</h2><p>[1] The first note body. [2] The second note body.</p></section>`

func testEssays() []essay.Essay {
	long := strings.Repeat("<p>Filler paragraph with several words in it.</p>\n", 80)
	return []essay.Essay{
		{Slug: "alpha", Title: "Alpha", Date: "2021-02", Words: 320, ReadingTime: 2, Body: annotatedBody},
		{Slug: "beta", Title: "Beta", Date: "2019-07", Words: 1200, ReadingTime: 6, Body: long},
	}
}

func newTestModel(t *testing.T, width int) (*model, storage.Store) {
	t.Helper()
	store := storage.NewMemStore()
	m := New(Config{
		DataDir: t.TempDir(),
		Store:   store,
		Essays:  testEssays(),
	}).(*model)
	m.Update(tea.WindowSizeMsg{Width: width, Height: 30})
	return m, store
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func press(m *model, x, y int) {
	m.Update(tea.MouseMsg{X: x, Y: y, Type: tea.MouseLeft})
}

func release(m *model, x, y int) {
	m.Update(tea.MouseMsg{X: x, Y: y, Type: tea.MouseRelease})
}

func click(m *model, x, y int) {
	press(m, x, y)
	release(m, x, y)
}

func openFirstEssay(t *testing.T, m *model) {
	t.Helper()
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.stage != stageReading {
		t.Fatal("enter did not open the essay")
	}
}

func clickCitation(t *testing.T, m *model, idx int) {
	t.Helper()
	if len(m.rendered.cites) <= idx {
		t.Fatalf("citation %d not in the rendered essay", idx)
	}
	c := m.rendered.cites[idx]
	click(m, c.start, c.line+readingHeaderLines)
}

func clickFirstCitation(t *testing.T, m *model) {
	t.Helper()
	clickCitation(t, m, 0)
}

func TestThemeCyclePersists(t *testing.T) {
	t.Parallel()
	m, store := newTestModel(t, 100)

	m.Update(keyRune('t'))
	if got := prefs.Load(store).Theme; got != prefs.ThemeSepia {
		t.Fatalf("theme = %q, want sepia", got)
	}
	m.Update(keyRune('t'))
	m.Update(keyRune('t'))
	m.Update(keyRune('t'))
	if got := prefs.Load(store).Theme; got != prefs.ThemeWhite {
		t.Fatalf("theme after full cycle = %q, want white", got)
	}
}

func TestFilterNarrowsLibrary(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t, 100)

	m.Update(keyRune('/'))
	m.Update(keyRune('b'))
	if len(m.filtered) != 1 || m.essays[m.filtered[0]].Slug != "beta" {
		t.Fatalf("filtered = %v", m.filtered)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if len(m.filtered) != 2 {
		t.Fatalf("escape should clear the filter, got %v", m.filtered)
	}
}

func TestMarkReadFromReader(t *testing.T) {
	t.Parallel()
	m, store := newTestModel(t, 100)
	openFirstEssay(t, m)

	m.Update(keyRune('m'))
	if !history.IsRead(store, "alpha") {
		t.Fatal("essay not recorded as read")
	}
}

func TestScrollPersistsViaFlush(t *testing.T) {
	t.Parallel()
	m, store := newTestModel(t, 100)
	m.Update(keyRune('j')) // select beta, the long essay
	openFirstEssay(t, m)

	for i := 0; i < 5; i++ {
		m.Update(keyRune('j'))
	}
	m.Update(flushMsg{})
	if got := history.ScrollPosition(store, "beta"); got != 5 {
		t.Fatalf("scroll position = %v, want 5", got)
	}
}

func TestCitationClickOpensTooltipWhenWide(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t, 120) // 960px, past the sheet breakpoint
	openFirstEssay(t, m)

	clickFirstCitation(t, m)
	p := m.popovers.Current()
	if p == nil || !m.popovers.Open() {
		t.Fatal("click did not open a popover")
	}
	if p.Kind != footnote.KindTooltip {
		t.Fatalf("kind = %v, want tooltip", p.Kind)
	}
	if p.Number != "1" || !strings.Contains(p.Body, "first note") {
		t.Fatalf("popover = %+v", p)
	}
}

func TestCitationClickOpensSheetWhenNarrow(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t, 80) // 640px, under the sheet breakpoint
	openFirstEssay(t, m)

	clickFirstCitation(t, m)
	p := m.popovers.Current()
	if p == nil || p.Kind != footnote.KindSheet {
		t.Fatalf("popover = %+v, want a sheet", p)
	}
}

func TestClickingSecondCitationReplacesTooltip(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t, 120)
	openFirstEssay(t, m)

	clickCitation(t, m, 0)
	clickCitation(t, m, 1)
	p := m.popovers.Current()
	if p == nil || !m.popovers.Open() {
		t.Fatalf("popover after second click = %+v, open=%v", p, m.popovers.Open())
	}
	if p.Number != "2" || !strings.Contains(p.Body, "second note") {
		t.Fatalf("popover shows %+v, want the second footnote", p)
	}
}

func TestClickingSecondCitationReplacesSheet(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t, 80)
	openFirstEssay(t, m)

	clickCitation(t, m, 0)
	clickCitation(t, m, 1)
	p := m.popovers.Current()
	if p == nil || !m.popovers.Open() {
		t.Fatalf("sheet after second click = %+v, open=%v", p, m.popovers.Open())
	}
	if p.Number != "2" || p.Kind != footnote.KindSheet {
		t.Fatalf("popover = %+v, want the second footnote as a sheet", p)
	}
}

func TestEscapeDismissesPopoverBeforeLeavingReader(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t, 120)
	openFirstEssay(t, m)
	clickFirstCitation(t, m)

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.stage != stageReading {
		t.Fatal("escape left the reader while a popover was up")
	}
	if m.popovers.Current() == nil {
		t.Fatal("popover should linger through its exit transition")
	}
	m.Update(popoverExitMsg{})
	if m.popovers.Current() != nil {
		t.Fatal("popover still present after the transition finished")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.stage != stageLibrary {
		t.Fatal("second escape should return to the library")
	}
}

func TestSheetDragPastThresholdDismisses(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t, 80)
	openFirstEssay(t, m)
	clickFirstCitation(t, m)

	// Six rows of drag is 96 nominal pixels, past the commit threshold.
	press(m, 10, 20)
	press(m, 10, 23)
	press(m, 10, 26)
	release(m, 10, 26)
	m.Update(popoverExitMsg{})
	if m.popovers.Current() != nil {
		t.Fatal("drag past the threshold should dismiss the sheet")
	}
}

func TestSheetShortDragSpringsBack(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t, 80)
	openFirstEssay(t, m)
	clickFirstCitation(t, m)

	press(m, 10, 20)
	press(m, 10, 22) // 32px, under the threshold
	release(m, 10, 22)
	p := m.popovers.Current()
	if p == nil || !m.popovers.Open() {
		t.Fatal("short drag should leave the sheet open")
	}
	if p.Sheet.DragOffset != 0 {
		t.Fatalf("drag offset = %v after spring back", p.Sheet.DragOffset)
	}
}

func TestHorizontalSwipeChangesEssay(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t, 100)
	openFirstEssay(t, m)

	press(m, 60, 10)
	release(m, 40, 10)
	if got := m.currentEssay().Slug; got != "beta" {
		t.Fatalf("after left swipe reading %q, want beta", got)
	}
	press(m, 40, 10)
	release(m, 60, 10)
	if got := m.currentEssay().Slug; got != "alpha" {
		t.Fatalf("after right swipe reading %q, want alpha", got)
	}
}

func TestHighlightLifecycle(t *testing.T) {
	t.Parallel()
	m, store := newTestModel(t, 100)
	openFirstEssay(t, m)

	m.Update(keyRune('H'))
	m.Update(keyRune('j'))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(keyRune('2'))

	hs := highlight.ForEssay(store, "alpha")
	if len(hs) != 1 {
		t.Fatalf("got %d highlights, want 1", len(hs))
	}
	if hs[0].Color != "green" || hs[0].Text == "" {
		t.Fatalf("highlight = %+v", hs[0])
	}
	if hs[0].EndOffset <= hs[0].StartOffset {
		t.Fatalf("offsets [%d, %d) not increasing", hs[0].StartOffset, hs[0].EndOffset)
	}

	m.Update(keyRune('H'))
	m.Update(keyRune('d'))
	if left := highlight.ForEssay(store, "alpha"); len(left) != 0 {
		t.Fatalf("%d highlights remain after delete", len(left))
	}
}

func TestExportWritesFile(t *testing.T) {
	t.Parallel()
	m, store := newTestModel(t, 100)
	highlight.Add(store, "alpha", highlight.Highlight{Text: "kept", Color: "yellow"})

	m.Update(keyRune('e'))
	path := filepath.Join(m.config.DataDir, "highlights.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "kept") {
		t.Fatalf("export missing highlight text: %s", data)
	}
}

func TestViewShowsReadingChrome(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t, 100)
	openFirstEssay(t, m)

	view := m.View()
	if !strings.Contains(view, "Alpha") {
		t.Fatal("reading view missing the essay title")
	}
	if !strings.Contains(view, fmt.Sprintf("%d words", 320)) {
		t.Fatal("reading view missing the word count")
	}
}

func TestViewOverlaysTooltip(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t, 120)
	openFirstEssay(t, m)
	clickFirstCitation(t, m)

	view := m.View()
	if !strings.Contains(view, "first note body") {
		t.Fatal("tooltip body not spliced into the view")
	}
}
