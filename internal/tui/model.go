package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/csheth/folio/internal/essay"
	"github.com/csheth/folio/internal/footnote"
	"github.com/csheth/folio/internal/highlight"
	"github.com/csheth/folio/internal/history"
	"github.com/csheth/folio/internal/prefs"
	"github.com/csheth/folio/internal/storage"
)

// Config wires runtime options into the TUI program.
type Config struct {
	DataDir string
	Store   storage.Store
	Essays  []essay.Essay
}

// settleDelay lets the layout stabilize before a saved scroll position
// is restored.
const settleDelay = 250 * time.Millisecond

// frameInterval coalesces scroll persistence to one write per frame.
const frameInterval = time.Second / 60

const popoverExitDelay = 200 * time.Millisecond

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	filterInput := textinput.New()
	filterInput.Placeholder = "Filter essays…"
	filterInput.CharLimit = 60
	filterInput.Width = 40

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	m := &model{
		config:      config,
		store:       config.Store,
		essays:      config.Essays,
		stage:       stageLibrary,
		mode:        modeNormal,
		filterInput: filterInput,
		viewport:    vp,
		current:     -1,
		infoMessage: "Enter opens an essay. Press ? for keys.",
	}
	m.prefs = prefs.Load(m.store)
	m.vars = prefs.Apply(m.prefs)
	m.palette = paletteFor(m.prefs.Theme)
	m.applyFilter("")
	return m
}

type model struct {
	config Config
	store  storage.Store
	stage  stage
	mode   interactionMode

	essays   []essay.Essay
	filtered []int
	cursor   int

	filterInput textinput.Model
	viewport    viewport.Model
	width       int
	height      int

	prefs   prefs.Record
	vars    prefs.StyleVars
	palette palette

	current    int
	rendered   renderedEssay
	lineColors []string
	tracker    *history.Tracker
	engine     *footnote.Engine
	popovers   *footnote.Manager

	// dismissKeysBound mirrors the popover manager's global listener
	// state: Escape and outside clicks reach the manager only while set.
	dismissKeysBound bool

	selectionAnchor int
	cursorLine      int

	pressed       bool
	pressX        int
	pressY        int
	sheetDragging bool
	flushPending  bool

	infoMessage  string
	errorMessage string
	helpVisible  bool
}

type restoreScrollMsg struct {
	slug string
}

type flushMsg struct{}

type popoverExitMsg struct{}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			return m.handleEscape()
		}
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.contentWidth()
		height := msg.Height - readingHeaderLines - readingFooterLines
		if height < 5 {
			height = 5
		}
		m.viewport.Height = height
		m.rerender()
		return m, nil
	case restoreScrollMsg:
		if m.currentEssay() != nil && m.currentEssay().Slug == msg.slug {
			saved := history.ScrollPosition(m.store, msg.slug)
			m.viewport.SetYOffset(int(saved))
		}
		return m, nil
	case flushMsg:
		m.flushPending = false
		if m.tracker != nil {
			m.tracker.Flush()
		}
		return m, nil
	case popoverExitMsg:
		if m.popovers != nil {
			m.popovers.FinishTransition()
		}
		return m, nil
	}
	return m, nil
}

func (m *model) currentEssay() *essay.Essay {
	if m.current < 0 || m.current >= len(m.essays) {
		return nil
	}
	return &m.essays[m.current]
}

func (m *model) handleEscape() (tea.Model, tea.Cmd) {
	if m.dismissKeysBound {
		m.popovers.HandleEscape()
		return m, m.popoverExitCmd()
	}
	switch m.mode {
	case modeColorPick:
		m.mode = modeHighlight
		return m, nil
	case modeHighlight:
		m.mode = modeNormal
		m.infoMessage = "Highlight mode off."
		m.refreshContent()
		return m, nil
	case modeFilter:
		m.mode = modeNormal
		m.filterInput.Blur()
		m.filterInput.SetValue("")
		m.applyFilter("")
		return m, nil
	}
	if m.stage == stageReading {
		m.closeEssay()
		return m, nil
	}
	return m, tea.Quit
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeFilter {
		return m.handleFilterKey(key)
	}
	switch m.stage {
	case stageLibrary:
		return m.handleLibraryKey(key)
	case stageReading:
		return m.handleReadingKey(key)
	}
	return m, nil
}

func (m *model) handleFilterKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Type == tea.KeyEnter {
		m.mode = modeNormal
		m.filterInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(key)
	m.applyFilter(m.filterInput.Value())
	return m, cmd
}

func (m *model) handleLibraryKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "j", "down":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "g":
		m.cursor = 0
	case "G":
		m.cursor = len(m.filtered) - 1
	case "/":
		m.mode = modeFilter
		m.filterInput.Focus()
	case "t":
		m.cyclePrefs(func(r prefs.Record) prefs.Record { return r.CycleTheme() })
	case "e":
		m.exportHighlights(highlight.FormatJSON)
	case "E":
		m.exportHighlights(highlight.FormatText)
	case "?":
		m.helpVisible = !m.helpVisible
	case "q":
		return m, tea.Quit
	case "enter":
		if len(m.filtered) > 0 {
			return m, m.openEssay(m.filtered[m.cursor])
		}
	}
	return m, nil
}

func (m *model) handleReadingKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeColorPick {
		return m.handleColorPickKey(key)
	}
	if m.mode == modeHighlight {
		return m.handleHighlightKey(key)
	}
	switch key.String() {
	case "j", "down":
		m.viewport.LineDown(1)
		return m, m.observeScroll()
	case "k", "up":
		m.viewport.LineUp(1)
		return m, m.observeScroll()
	case " ", "pgdown":
		m.viewport.LineDown(m.viewport.Height)
		return m, m.observeScroll()
	case "b", "pgup":
		m.viewport.LineUp(m.viewport.Height)
		return m, m.observeScroll()
	case "g":
		m.viewport.GotoTop()
		return m, m.observeScroll()
	case "G":
		m.viewport.GotoBottom()
		return m, m.observeScroll()
	case "t":
		m.cyclePrefs(func(r prefs.Record) prefs.Record { return r.CycleTheme() })
	case "f":
		m.cyclePrefs(func(r prefs.Record) prefs.Record { return r.CycleFontFamily() })
	case "w":
		m.cyclePrefs(func(r prefs.Record) prefs.Record { return r.CycleContentWidth() })
	case "L":
		m.cyclePrefs(func(r prefs.Record) prefs.Record { return r.AdjustLineHeight(1) })
	case "+", "=":
		m.cyclePrefs(func(r prefs.Record) prefs.Record { return r.AdjustFontSize(1) })
	case "-":
		m.cyclePrefs(func(r prefs.Record) prefs.Record { return r.AdjustFontSize(-1) })
	case "m":
		e := m.currentEssay()
		history.MarkRead(m.store, e.Slug, e.Words)
		m.infoMessage = fmt.Sprintf("Marked %q as read.", e.Title)
	case "n", "right":
		return m, m.openAdjacent(1)
	case "p", "left":
		return m, m.openAdjacent(-1)
	case "H":
		m.mode = modeHighlight
		m.cursorLine = m.viewport.YOffset
		m.selectionAnchor = m.cursorLine
		m.infoMessage = "Highlight: j/k extend, Enter picks a color, d deletes, Esc cancels."
		m.refreshContent()
	case "e":
		m.exportHighlights(highlight.FormatJSON)
	case "E":
		m.exportHighlights(highlight.FormatText)
	case "?":
		m.helpVisible = !m.helpVisible
	case "q":
		m.closeEssay()
	}
	return m, nil
}

func (m *model) handleHighlightKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "j", "down":
		if m.cursorLine < len(m.rendered.lines)-1 {
			m.cursorLine++
		}
	case "k", "up":
		if m.cursorLine > 0 {
			m.cursorLine--
		}
	case "d":
		m.deleteHighlightAtCursor()
	case "enter":
		m.mode = modeColorPick
		m.infoMessage = "Color: 1 yellow, 2 green, 3 blue, 4 pink."
	}
	m.scrollCursorIntoView()
	m.refreshContent()
	return m, m.observeScroll()
}

func (m *model) handleColorPickKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	idx := strings.Index("1234", key.String())
	if idx < 0 || idx >= len(highlight.Colors) {
		return m, nil
	}
	m.addHighlight(highlight.Colors[idx])
	m.mode = modeNormal
	m.refreshContent()
	return m, nil
}

func (m *model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.MouseWheelUp:
		m.viewport.LineUp(3)
		return m, m.observeScroll()
	case tea.MouseWheelDown:
		m.viewport.LineDown(3)
		return m, m.observeScroll()
	case tea.MouseLeft:
		if !m.pressed {
			m.pressed = true
			m.pressX, m.pressY = msg.X, msg.Y
			if m.sheetOpen() {
				m.sheetDragging = true
				m.popovers.DragStart(float64(msg.Y * cellHeight))
			}
			return m, nil
		}
		if m.sheetDragging {
			m.popovers.DragMove(float64(msg.Y * cellHeight))
		}
		return m, nil
	case tea.MouseRelease:
		return m.handleMouseRelease(msg)
	}
	return m, nil
}

func (m *model) handleMouseRelease(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	pressed := m.pressed
	m.pressed = false
	if m.sheetDragging {
		m.sheetDragging = false
		if m.popovers.DragEnd() {
			return m, m.popoverExitCmd()
		}
		// Spring-back, or a tap. A tap above the sheet on another
		// control replaces the popover; anywhere else above it is the
		// backdrop.
		if msg.Y == m.pressY && msg.X == m.pressX && msg.Y < m.sheetTop() {
			if m.activateCitation(msg.X, msg.Y) {
				return m, nil
			}
			m.popovers.HandleBackdropClick()
			return m, m.popoverExitCmd()
		}
		return m, nil
	}
	if !pressed || m.stage != stageReading {
		return m, nil
	}
	dx := msg.X - m.pressX
	dy := msg.Y - m.pressY
	if abs(dx) >= swipeCells && abs(dy) <= 2 {
		if dx < 0 {
			return m, m.openAdjacent(1)
		}
		return m, m.openAdjacent(-1)
	}
	point := footnote.Point{
		X: float64(msg.X * cellWidth),
		Y: float64(msg.Y * cellHeight),
	}
	if m.dismissKeysBound {
		if p := m.popovers.Current(); p != nil && p.Kind == footnote.KindTooltip && p.Tooltip.Bounds().Contains(point) {
			return m, nil
		}
	}
	// A click on another control replaces the open popover; only a
	// miss counts as an outside click.
	if m.activateCitation(msg.X, msg.Y) {
		return m, nil
	}
	if m.dismissKeysBound {
		m.popovers.HandleOutsideClick(point)
		return m, m.popoverExitCmd()
	}
	return m, nil
}

// activateCitation hit-tests a click against the laid-out citation
// controls and opens the popover for the one under it.
func (m *model) activateCitation(x, y int) bool {
	row := y - readingHeaderLines
	if row < 0 || row >= m.viewport.Height {
		return false
	}
	line := m.viewport.YOffset + row
	if line >= len(m.rendered.lines) {
		return false
	}
	cite, ok := m.rendered.citationAt(line, x)
	if !ok {
		return false
	}
	anchor := footnote.Rect{
		X: float64(cite.start * cellWidth),
		Y: float64(y * cellHeight),
		W: float64((cite.end - cite.start) * cellWidth),
		H: cellHeight,
	}
	viewportPx := footnote.Size{
		W: float64(m.width * cellWidth),
		H: float64(m.height * cellHeight),
	}
	return m.popovers.Activate(cite.number, anchor, viewportPx)
}

func (m *model) openEssay(idx int) tea.Cmd {
	if m.tracker != nil {
		m.tracker.Flush()
	}
	e := &m.essays[idx]
	doc, err := e.Document()
	if err != nil {
		m.errorMessage = fmt.Sprintf("cannot parse %q: %v", e.Slug, err)
		return nil
	}
	m.engine = footnote.New(doc.Selection)
	m.engine.Annotate()
	m.popovers = footnote.NewManager(m.engine.Definitions())
	m.popovers.SetGlobalListeners(
		func() { m.dismissKeysBound = true },
		func() { m.dismissKeysBound = false },
	)
	m.current = idx
	m.stage = stageReading
	m.mode = modeNormal
	m.rendered = renderEssay(doc, m.contentWidth())
	m.tracker = history.NewTracker(m.store, e.Slug, e.Words)
	m.rebuildLineColors()
	m.refreshContent()
	m.viewport.GotoTop()
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("%s • %d words • %d min", e.Title, e.Words, e.ReadingTime)

	if saved := history.ScrollPosition(m.store, e.Slug); saved > 0 {
		slug := e.Slug
		return tea.Tick(settleDelay, func(time.Time) tea.Msg {
			return restoreScrollMsg{slug: slug}
		})
	}
	return nil
}

func (m *model) openAdjacent(delta int) tea.Cmd {
	next := m.current + delta
	if next < 0 || next >= len(m.essays) {
		return nil
	}
	return m.openEssay(next)
}

func (m *model) closeEssay() {
	if m.tracker != nil {
		m.tracker.Flush()
	}
	if m.popovers != nil && m.popovers.Open() {
		m.popovers.Dismiss()
		m.popovers.FinishTransition()
	}
	m.stage = stageLibrary
	m.mode = modeNormal
	m.current = -1
	m.infoMessage = "Enter opens an essay. Press ? for keys."
}

// observeScroll feeds the tracker and schedules one flush per frame.
func (m *model) observeScroll() tea.Cmd {
	if m.tracker == nil {
		return nil
	}
	max := m.viewport.TotalLineCount() - m.viewport.Height
	m.tracker.Observe(float64(m.viewport.YOffset), float64(max))
	if m.flushPending {
		return nil
	}
	m.flushPending = true
	return tea.Tick(frameInterval, func(time.Time) tea.Msg {
		return flushMsg{}
	})
}

func (m *model) popoverExitCmd() tea.Cmd {
	return tea.Tick(popoverExitDelay, func(time.Time) tea.Msg {
		return popoverExitMsg{}
	})
}

func (m *model) cyclePrefs(change func(prefs.Record) prefs.Record) {
	m.prefs = change(m.prefs)
	prefs.Save(m.store, m.prefs)
	m.vars = prefs.Apply(m.prefs)
	m.palette = paletteFor(m.prefs.Theme)
	m.viewport.Width = m.contentWidth()
	m.rerender()
	m.infoMessage = fmt.Sprintf("theme %s • %s • %s • %s wide",
		m.prefs.Theme, m.prefs.FontFamily, m.vars[prefs.VarFontSize], m.prefs.ContentWidth)
}

// contentWidth derives the wrap width in cells from the preferred
// content width, bounded by the terminal.
func (m *model) contentWidth() int {
	width := prefs.MaxWidthPx(m.prefs) / cellWidth
	if limit := m.width - viewportHorizontalPadding; m.width > 0 && width > limit {
		width = limit
	}
	if width < minViewportWidth {
		width = minViewportWidth
	}
	return width
}

func (m *model) rerender() {
	e := m.currentEssay()
	if e == nil {
		return
	}
	doc, err := e.Document()
	if err != nil {
		return
	}
	m.rendered = renderEssay(doc, m.contentWidth())
	m.rebuildLineColors()
	m.refreshContent()
}

func (m *model) applyFilter(query string) {
	query = strings.ToLower(strings.TrimSpace(query))
	m.filtered = m.filtered[:0]
	for i, e := range m.essays {
		if query == "" || strings.Contains(strings.ToLower(e.Title), query) {
			m.filtered = append(m.filtered, i)
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = 0
	}
}

func (m *model) scrollCursorIntoView() {
	if m.cursorLine < m.viewport.YOffset {
		m.viewport.SetYOffset(m.cursorLine)
	}
	if m.cursorLine >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(m.cursorLine - m.viewport.Height + 1)
	}
}

func (m *model) addHighlight(color string) {
	e := m.currentEssay()
	if e == nil {
		return
	}
	from, to := m.selectionAnchor, m.cursorLine
	if from > to {
		from, to = to, from
	}
	start, end := m.rendered.textRange(from, to)
	var texts []string
	for i := from; i <= to && i < len(m.rendered.lines); i++ {
		if line := strings.TrimSpace(m.rendered.lines[i]); line != "" {
			texts = append(texts, line)
		}
	}
	selector := ""
	if from < len(m.rendered.lineBlock) {
		selector = m.rendered.blockSel[m.rendered.lineBlock[from]]
	}
	highlight.Add(m.store, e.Slug, highlight.Highlight{
		Text:           strings.Join(texts, " "),
		Color:          color,
		StartOffset:    start,
		EndOffset:      end,
		ParentSelector: selector,
	})
	m.rebuildLineColors()
	m.infoMessage = fmt.Sprintf("Highlighted in %s.", color)
}

func (m *model) deleteHighlightAtCursor() {
	e := m.currentEssay()
	if e == nil || m.cursorLine >= len(m.rendered.lines) {
		return
	}
	start, end := m.rendered.textRange(m.cursorLine, m.cursorLine)
	for _, h := range highlight.ForEssay(m.store, e.Slug) {
		if h.StartOffset < end && h.EndOffset > start {
			highlight.Remove(m.store, e.Slug, h.ID)
			m.infoMessage = "Highlight removed."
			m.rebuildLineColors()
			return
		}
	}
	m.infoMessage = "No highlight under the cursor."
}

// rebuildLineColors projects the persisted highlights onto the current
// layout; the mapping is best-effort, offsets may drift after the text
// re-wraps.
func (m *model) rebuildLineColors() {
	m.lineColors = make([]string, len(m.rendered.lines))
	e := m.currentEssay()
	if e == nil {
		return
	}
	for _, h := range highlight.ForEssay(m.store, e.Slug) {
		for i := range m.rendered.lines {
			start, end := m.rendered.textRange(i, i)
			if start < h.EndOffset && end > h.StartOffset && m.rendered.lines[i] != "" {
				m.lineColors[i] = h.Color
			}
		}
	}
}

func (m *model) exportHighlights(format string) {
	data, err := highlight.Export(m.store, format)
	if err != nil {
		m.errorMessage = err.Error()
		return
	}
	ext := "txt"
	if format == highlight.FormatJSON {
		ext = "json"
	}
	path := filepath.Join(m.config.DataDir, "highlights."+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		m.errorMessage = fmt.Sprintf("export failed: %v", err)
		return
	}
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Highlights exported to %s", path)
}

func (m *model) sheetOpen() bool {
	if m.popovers == nil || !m.popovers.Open() {
		return false
	}
	p := m.popovers.Current()
	return p != nil && p.Kind == footnote.KindSheet
}

func (m *model) sheetTop() int {
	return m.height - sheetHeight(m.height)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

var (
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	taglineStyle       = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("110"))
	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	currentLineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	selectionLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#bde0fe"))
	readMarkStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#a3be8c"))
	citeStyle          = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	backdropStyle      = lipgloss.NewStyle().Faint(true)
	tooltipBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("81")).Padding(0, 1)
	sheetBoxStyle      = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true, false, false, false).BorderForeground(lipgloss.Color("81")).Padding(0, 2)
	helpBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 2)

	highlightStyles = map[string]lipgloss.Style{
		"yellow": lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("229")),
		"green":  lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("151")),
		"blue":   lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("153")),
		"pink":   lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("218")),
	}
)

// palette is the per-theme style set. The white theme is the baseline:
// plain terminal colors, no overrides.
type palette struct {
	name    string
	text    lipgloss.Style
	heading lipgloss.Style
	notes   lipgloss.Style
	quote   lipgloss.Style
}

func paletteFor(theme string) palette {
	base := lipgloss.NewStyle()
	switch theme {
	case prefs.ThemeSepia:
		base = base.Foreground(lipgloss.Color("#5b4636"))
	case prefs.ThemeGray:
		base = base.Foreground(lipgloss.Color("250"))
	case prefs.ThemeDark:
		base = base.Foreground(lipgloss.Color("252"))
	}
	return palette{
		name:    theme,
		text:    base,
		heading: base.Copy().Bold(true),
		notes:   base.Copy().Faint(true),
		quote:   base.Copy().Italic(true),
	}
}
