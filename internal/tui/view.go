package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/folio/internal/footnote"
	"github.com/csheth/folio/internal/history"
)

func (m *model) View() string {
	if m.width == 0 {
		return "loading…"
	}
	if m.helpVisible {
		return m.helpView()
	}
	switch m.stage {
	case stageReading:
		return m.readingView()
	default:
		return m.libraryView()
	}
}

func (m *model) libraryView() string {
	var b strings.Builder
	b.WriteString("  " + titleStyle.Render("folio") + "\n")
	b.WriteString("  " + taglineStyle.Render(heroTagline) + "\n\n")

	if m.mode == modeFilter {
		b.WriteString("  " + m.filterInput.View() + "\n\n")
	}

	visible := m.height - 10
	if visible < 3 {
		visible = 3
	}
	top := 0
	if m.cursor >= visible {
		top = m.cursor - visible + 1
	}
	for i := top; i < len(m.filtered) && i < top+visible; i++ {
		e := m.essays[m.filtered[i]]
		mark := "  "
		if history.IsRead(m.store, e.Slug) {
			mark = "✓ "
		}
		meta := fmt.Sprintf("  %s · %d words · %d min", e.Date, e.Words, e.ReadingTime)
		var line string
		if i == m.cursor {
			line = currentLineStyle.Render("> " + mark + e.Title + meta)
		} else {
			line = "  " + readMarkStyle.Render(mark) + e.Title + helperStyle.Render(meta)
		}
		b.WriteString(truncate.String(line, uint(maxInt(m.width-1, 10))) + "\n")
	}
	if len(m.filtered) == 0 {
		b.WriteString(helperStyle.Render("  No essays match.") + "\n")
	}

	stats := history.GetStats(m.store)
	b.WriteString("\n" + helperStyle.Render(fmt.Sprintf(
		"  %d of %d read · %d words · %s",
		stats.ReadCount, len(m.essays), stats.TotalWords, m.infoMessage)))
	return b.String()
}

func (m *model) readingView() string {
	e := m.currentEssay()
	if e == nil {
		return m.libraryView()
	}

	header := m.readingHeader(e.Title, e.Date, e.Words, e.ReadingTime)
	content := m.viewport.View()
	if m.popovers != nil && m.popovers.Current() != nil {
		p := m.popovers.Current()
		switch p.Kind {
		case footnote.KindTooltip:
			content = m.spliceTooltip(content, p)
		case footnote.KindSheet:
			// The sheet replaces the bottom rows so it stays on screen.
			lines := strings.Split(header+backdropStyle.Render(content), "\n")
			if top := m.sheetTop(); len(lines) > top && top > 0 {
				lines = lines[:top]
			}
			return strings.Join(lines, "\n") + "\n" + m.sheetView(p)
		}
	}
	return header + content + "\n" + m.footerView()
}

func (m *model) readingHeader(title, date string, words, minutes int) string {
	pct := int(m.viewport.ScrollPercent() * 100)
	left := titleStyle.Render(title)
	right := helperStyle.Render(fmt.Sprintf("%s · %d words · %d min · %d%%", date, words, minutes, pct))
	line := left + "  " + right
	return truncate.String(line, uint(maxInt(m.width-1, 10))) + "\n" +
		helperStyle.Render(strings.Repeat("─", maxInt(m.width-1, 1))) + "\n\n"
}

func (m *model) footerView() string {
	if m.errorMessage != "" {
		return errorStyle.Render(m.errorMessage)
	}
	var hints []keyHint
	switch m.mode {
	case modeHighlight:
		hints = []keyHint{{"j/k", "extend"}, {"enter", "color"}, {"d", "delete"}, {"esc", "cancel"}}
	case modeColorPick:
		hints = []keyHint{{"1", "yellow"}, {"2", "green"}, {"3", "blue"}, {"4", "pink"}}
	default:
		hints = []keyHint{{"j/k", "scroll"}, {"n/p", "essay"}, {"t", "theme"}, {"H", "highlight"}, {"?", "help"}}
	}
	parts := make([]string, 0, len(hints)+1)
	for _, h := range hints {
		parts = append(parts, h.Key+" "+h.Description)
	}
	bar := statusBarStyle.Render(m.palette.name + " · " + strings.Join(parts, " · "))
	return bar + "  " + helperStyle.Render(m.infoMessage)
}

// refreshContent pushes the styled essay lines into the viewport.
func (m *model) refreshContent() {
	if len(m.rendered.lines) == 0 {
		m.viewport.SetContent("")
		return
	}
	styled := make([]string, len(m.rendered.lines))
	for i := range m.rendered.lines {
		styled[i] = m.styledLine(i)
	}
	m.viewport.SetContent(strings.Join(styled, "\n"))
}

func (m *model) styledLine(i int) string {
	line := m.rendered.lines[i]
	if m.mode == modeHighlight || m.mode == modeColorPick {
		from, to := m.selectionAnchor, m.cursorLine
		if from > to {
			from, to = to, from
		}
		if i == m.cursorLine {
			return currentLineStyle.Render(line)
		}
		if i >= from && i <= to {
			return selectionLineStyle.Render(line)
		}
	}
	if i < len(m.lineColors) && m.lineColors[i] != "" {
		if style, ok := highlightStyles[m.lineColors[i]]; ok && line != "" {
			return style.Render(line)
		}
	}
	switch m.rendered.kinds[i] {
	case blockHeading:
		return m.palette.heading.Render(line)
	case blockQuote:
		return m.palette.quote.Render(line)
	case blockNotes:
		return m.palette.notes.Render(line)
	default:
		return m.palette.text.Render(line)
	}
}

// spliceTooltip overlays the tooltip box onto the viewport rows that
// its pixel placement maps to.
func (m *model) spliceTooltip(content string, p *footnote.Popover) string {
	boxWidth := int(p.Tooltip.Size.W) / cellWidth
	if boxWidth > m.width-2 {
		boxWidth = m.width - 2
	}
	if boxWidth < 16 {
		boxWidth = 16
	}
	body := wordwrap.String(p.Body, boxWidth-4)
	box := tooltipBoxStyle.Width(boxWidth - 2).Render(
		citeStyle.Render(p.Number+".") + " " + body)
	boxLines := strings.Split(box, "\n")

	row := int(p.Tooltip.Y)/cellHeight - readingHeaderLines
	if !p.Tooltip.Below {
		// Anchor the box so it ends where the layout says it starts
		// growing from; keeps the box clear of the control either way.
		row = int(p.Tooltip.Y)/cellHeight - readingHeaderLines - len(boxLines) + int(p.Tooltip.Size.H)/cellHeight
	}
	col := int(p.Tooltip.X) / cellWidth

	lines := strings.Split(content, "\n")
	for i, bl := range boxLines {
		r := row + i
		if r < 0 || r >= len(lines) {
			continue
		}
		lines[r] = overlayAt(lines[r], col, bl)
	}
	return strings.Join(lines, "\n")
}

// overlayAt replaces the cells of line from col onwards with seg,
// preserving what is to the left.
func overlayAt(line string, col int, seg string) string {
	left := truncate.String(line, uint(maxInt(col, 0)))
	if pad := col - lipgloss.Width(left); pad > 0 {
		left += strings.Repeat(" ", pad)
	}
	return left + seg
}

func sheetHeight(totalHeight int) int {
	h := totalHeight / 3
	if h < 5 {
		h = 5
	}
	if h > 9 {
		h = 9
	}
	return h
}

func (m *model) sheetView(p *footnote.Popover) string {
	height := sheetHeight(m.height)
	inner := height - 3
	body := wordwrap.String(p.Body, maxInt(m.width-6, 20))
	bodyLines := strings.Split(body, "\n")
	if len(bodyLines) > inner {
		bodyLines = append(bodyLines[:inner-1], helperStyle.Render("…"))
	}
	panel := sheetBoxStyle.Width(m.width).Render(
		citeStyle.Render("Footnote "+p.Number) + "\n" +
			strings.Join(bodyLines, "\n") + "\n" +
			helperStyle.Render("drag down or tap above to dismiss"))

	// A live drag shifts the panel downward, cropping its bottom.
	if offset := int(p.Sheet.DragOffset) / cellHeight; offset > 0 {
		lines := strings.Split(panel, "\n")
		if offset >= len(lines) {
			return strings.Repeat("\n", len(lines)-1)
		}
		shifted := make([]string, 0, len(lines))
		for i := 0; i < offset; i++ {
			shifted = append(shifted, "")
		}
		shifted = append(shifted, lines[:len(lines)-offset]...)
		return strings.Join(shifted, "\n")
	}
	return panel
}

func (m *model) helpView() string {
	rows := []keyHint{
		{"enter", "open the selected essay"},
		{"/", "filter the library"},
		{"j/k, space/b", "scroll, page"},
		{"g/G", "top, bottom"},
		{"n/p or swipe", "next, previous essay"},
		{"t/f/w", "cycle theme, font family, width"},
		{"+/-, L", "font size, line height"},
		{"m", "mark the essay read"},
		{"H", "highlight mode"},
		{"e/E", "export highlights as JSON, text"},
		{"click a marker", "open its footnote"},
		{"esc", "dismiss, back, quit"},
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Keys") + "\n\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("%-16s %s\n", sectionHeaderStyle.Render(r.Key), r.Description))
	}
	b.WriteString("\n" + helperStyle.Render("? closes this help."))
	return helpBoxStyle.Render(b.String())
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
